package downloader

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"launcher/pkg/common"
	"launcher/pkg/events"
)

// Immutable
type fileHandler struct{}

// NewFileHandler serves file:// URIs, used for local mirrors.
func NewFileHandler() SchemeHandler {
	return fileHandler{}
}

func (fileHandler) Schemes() []string {
	return []string{"file"}
}

func (fileHandler) Fetch(ctx context.Context, uri string, w io.Writer, obs events.Observer) (int64, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return 0, common.NewError(common.InvalidEntry, "fetch", uri, err)
	}
	path := filepath.FromSlash(u.Path)

	f, err := os.Open(path)
	if err != nil {
		return 0, common.FromIO("fetch", path, err)
	}
	defer f.Close()

	total := events.UnknownTotal
	if info, err := f.Stat(); err == nil && info.Mode().IsRegular() {
		total = info.Size()
	}

	return copyWithProgress(w, &ctxReader{ctx: ctx, r: f}, uri, total, obs)
}

// ctxReader stops reading once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
