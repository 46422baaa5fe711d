package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	"launcher/pkg/common"
	"launcher/pkg/events"
)

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bad status: %s", e.Status)
}

// Immutable
type httpHandler struct {
	client    *http.Client
	userAgent string
	limiter   *rate.Limiter
}

// NewHTTPHandler serves http and https. limiter may be nil.
func NewHTTPHandler(opts Options, limiter *rate.Limiter) SchemeHandler {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &httpHandler{
		client:    client,
		userAgent: opts.UserAgent,
		limiter:   limiter,
	}
}

func (h *httpHandler) Schemes() []string {
	return []string{"http", "https"}
}

func (h *httpHandler) Fetch(ctx context.Context, uri string, w io.Writer, obs events.Observer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return 0, common.NewError(common.InvalidEntry, "fetch", uri, err)
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, common.NewError(common.NetworkError, "fetch", uri, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, common.NewError(common.NetworkError, "fetch", uri, &StatusError{Code: resp.StatusCode, Status: resp.Status})
	}

	var body io.Reader = resp.Body
	if h.limiter != nil {
		body = &limitedReader{ctx: ctx, r: body, limiter: h.limiter}
	}

	// ContentLength is -1 when unknown, matching events.UnknownTotal.
	return copyWithProgress(w, body, uri, resp.ContentLength, obs)
}
