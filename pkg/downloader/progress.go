package downloader

import (
	"io"

	"launcher/pkg/common"
	"launcher/pkg/events"
)

// copyWithProgress copies src to dst. Each chunk is written to dst before the
// matching Progress event is emitted, so an event never reports bytes that
// have not been handed to dst.
func copyWithProgress(dst io.Writer, src io.Reader, uri string, total int64, obs events.Observer) (int64, error) {
	tw := &trackedWriter{w: dst}
	pw := &progressWriter{
		obs:   obs,
		uri:   uri,
		total: total,
	}

	// MultiWriter stops at the first failing writer, so pw only sees
	// chunks tw accepted.
	n, err := io.Copy(io.MultiWriter(tw, pw), src)
	if err != nil {
		if tw.err != nil {
			return n, common.NewError(common.IoError, "write", uri, tw.err)
		}
		return n, common.FromNetwork("fetch", uri, err)
	}
	if pw.emitted == 0 {
		// Empty bodies still get a final event.
		pw.emit()
	}
	return n, nil
}

// Mutable
type trackedWriter struct {
	w   io.Writer
	err error
}

func (t *trackedWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil {
		t.err = err
	} else if n < len(p) {
		t.err = io.ErrShortWrite
		err = t.err
	}
	return n, err
}

// Mutable
type progressWriter struct {
	obs     events.Observer
	uri     string
	total   int64
	written int64
	emitted int
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	pw.written += int64(len(p))
	pw.emit()
	return len(p), nil
}

func (pw *progressWriter) emit() {
	pw.emitted++
	downloaded := pw.written
	if pw.total >= 0 && downloaded > pw.total {
		downloaded = pw.total
	}
	pw.obs.Progress(events.Progress{
		URL:        pw.uri,
		Downloaded: downloaded,
		Total:      pw.total,
	})
}
