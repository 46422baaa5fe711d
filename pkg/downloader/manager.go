package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"launcher/pkg/common"
	"launcher/pkg/config"
	"launcher/pkg/events"
)

// Options tune the default handlers.
type Options struct {
	// Client is used for http(s). nil builds one with Timeout.
	Client *http.Client
	// Timeout bounds a whole request when Client is nil. 0 means none.
	Timeout time.Duration
	// UserAgent is sent with every request when set.
	UserAgent string
	// BandwidthLimit caps throughput in bytes per second, shared by every
	// request of this manager. 0 is unlimited.
	BandwidthLimit int64
}

// OptionsFromSettings maps persisted settings to Options.
func OptionsFromSettings(s config.Settings) Options {
	return Options{
		Timeout:        s.Timeout(),
		UserAgent:      s.UserAgent,
		BandwidthLimit: s.BandwidthLimit,
	}
}

// Mutable
type Manager struct {
	handlers map[string]SchemeHandler
}

var _ Downloader = (*Manager)(nil)

// New returns a Manager with the http(s) and file handlers registered.
func New(opts Options) *Manager {
	m := &Manager{
		handlers: make(map[string]SchemeHandler),
	}
	var limiter *rate.Limiter
	if opts.BandwidthLimit > 0 {
		limiter = newLimiter(opts.BandwidthLimit)
	}
	m.Register(NewHTTPHandler(opts, limiter))
	m.Register(NewFileHandler())
	return m
}

// NewDefaultDownloader returns a Manager with default options.
func NewDefaultDownloader() *Manager {
	return New(Options{UserAgent: config.UserAgent()})
}

// Register adds h for each of its schemes, replacing earlier handlers.
func (m *Manager) Register(h SchemeHandler) {
	for _, scheme := range h.Schemes() {
		m.handlers[scheme] = h
	}
}

func (m *Manager) Fetch(ctx context.Context, uri string, w io.Writer, obs events.Observer) (int64, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return 0, common.NewError(common.InvalidEntry, "fetch", uri, fmt.Errorf("invalid uri: %w", err))
	}

	scheme := strings.ToLower(u.Scheme)
	handler, ok := m.handlers[scheme]
	if !ok {
		return 0, common.Errorf(common.UnsupportedFormat, "fetch", uri, "unsupported scheme: %s", scheme)
	}

	return handler.Fetch(ctx, uri, w, events.OrDiscard(obs))
}
