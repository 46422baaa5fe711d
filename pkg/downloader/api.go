// Package downloader retrieves remote resources for the launcher.
//
// A Manager dispatches URIs to scheme handlers (http, https, file). On top of
// it, Stream downloads one large file with live progress and Pool fetches a
// batch of files under a concurrency ceiling.
package downloader

import (
	"context"
	"io"

	"launcher/pkg/events"
)

// Downloader fetches a URI into a writer.
type Downloader interface {
	// Fetch retrieves uri and writes the body to w. After each chunk has been
	// written, a Progress event is emitted to obs.
	// It returns the number of bytes written.
	Fetch(ctx context.Context, uri string, w io.Writer, obs events.Observer) (int64, error)
}

// SchemeHandler handles one family of URI schemes.
type SchemeHandler interface {
	Fetch(ctx context.Context, uri string, w io.Writer, obs events.Observer) (int64, error)
	// Schemes returns the schemes (e.g. "http", "https") this handler serves.
	Schemes() []string
}
