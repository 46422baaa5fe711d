package downloader

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"launcher/pkg/common"
	"launcher/pkg/events"
)

// Stream downloads exactly one uri to dest, emitting a Progress event to obs
// after every chunk is written. Total is events.UnknownTotal when the server
// sends no length. dest is created or truncated once the server has answered
// successfully. On error dest may hold a truncated file; discarding it is up
// to the caller.
func (m *Manager) Stream(ctx context.Context, uri, dest string, obs events.Observer) (int64, error) {
	op := events.NewOp()
	slog.Info("Downloading file", "url", uri, "path", dest, "op", op)

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, common.FromIO("mkdir", filepath.Dir(dest), err)
	}

	out := &lazyFile{path: dest}
	n, err := m.Fetch(ctx, uri, out, events.WithOp(op, obs))
	closeErr := out.finish(err == nil)
	if err != nil {
		return n, err
	}
	if closeErr != nil {
		return n, common.FromIO("write", dest, closeErr)
	}

	slog.Debug("Download complete", "path", dest, "bytes", n, "op", op)
	return n, nil
}

// lazyFile opens its path on the first write, so a failed request never
// clobbers an existing file.
// Mutable
type lazyFile struct {
	path string
	f    *os.File
}

func (l *lazyFile) Write(p []byte) (int, error) {
	if l.f == nil {
		f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return 0, err
		}
		l.f = f
	}
	return l.f.Write(p)
}

// finish closes the file. With create set, an empty file is produced for a
// body that never wrote anything.
func (l *lazyFile) finish(create bool) error {
	if l.f == nil {
		if !create {
			return nil
		}
		f, err := os.Create(l.path)
		if err != nil {
			return err
		}
		l.f = f
	}
	return l.f.Close()
}
