package assets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"launcher/pkg/cache"
	"launcher/pkg/common"
	"launcher/pkg/config"
	"launcher/pkg/downloader"
	"launcher/pkg/events"
	"launcher/pkg/integrity"
	"launcher/pkg/manifest"
)

// SyncOptions locate the object store and its source.
type SyncOptions struct {
	// Root is the assets directory; objects live in Root/objects.
	Root string
	// BaseURL is the asset server. Empty uses config.DefaultAssetBaseURL.
	BaseURL string
	// Concurrency is the download ceiling. Below 1 uses the pool default.
	Concurrency int
}

// ObjectsDir returns Root/objects.
func (o SyncOptions) ObjectsDir() string {
	return filepath.Join(o.Root, "objects")
}

// SyncResult reports a finished Sync.
type SyncResult struct {
	// Expected is the number of distinct objects in the index.
	Expected int
	// Missing is the number of objects that had to be downloaded.
	Missing int
	// Download is the batch result, nil when nothing was missing.
	Download *downloader.BatchResult
	// Corrupt lists downloaded objects that failed verification and were removed.
	Corrupt []downloader.TaskError
}

// OK reports whether every missing object is now present and verified.
func (r *SyncResult) OK() bool {
	return len(r.Corrupt) == 0 && (r.Download == nil || r.Download.OK())
}

// Err summarizes failures, or returns nil.
func (r *SyncResult) Err() error {
	if r.OK() {
		return nil
	}
	var errs []error
	if r.Download != nil {
		errs = append(errs, r.Download.Err())
	}
	if len(r.Corrupt) > 0 {
		errs = append(errs, fmt.Errorf("%d objects failed verification: %w", len(r.Corrupt), r.Corrupt[0]))
	}
	return errors.Join(errs...)
}

// Sync downloads the objects of ix missing under opts.Root and verifies
// each downloaded object against its hash. Objects already present are not
// inspected. Concurrent syncs of the same root are serialized.
func Sync(ctx context.Context, d downloader.Downloader, ix *Index, opts SyncOptions, obs events.Observer) (*SyncResult, error) {
	objectsDir := opts.ObjectsDir()
	base := opts.BaseURL
	if base == "" {
		base = config.DefaultAssetBaseURL
	}

	unlock, err := cache.Lock(ctx, objectsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", objectsDir, err)
	}
	defer unlock()

	paths := ix.Paths()
	missing := manifest.Diff(objectsDir, paths)
	res := &SyncResult{Expected: len(paths), Missing: len(missing)}
	if len(missing) == 0 {
		slog.Info("Assets up to date", "root", opts.Root, "objects", len(paths))
		return res, nil
	}

	byPath := ix.ByPath()
	byDest := make(map[string]Object, len(missing))
	batch := make(downloader.Batch, len(missing))
	var size int64
	for _, p := range missing {
		obj := byPath[p]
		dest := filepath.Join(objectsDir, filepath.FromSlash(p))
		batch[obj.URL(base)] = dest
		byDest[dest] = obj
		size += obj.Size
	}

	pool := downloader.NewPool(d, opts.Concurrency)
	slog.Info("Syncing assets", "root", opts.Root, "missing", len(missing), "of", len(paths), "size", humanize.Bytes(uint64(size)), "concurrency", pool.Limit())

	res.Download, err = pool.Run(ctx, batch, obs)
	if err != nil {
		return nil, err
	}

	failed := make(map[string]bool, res.Download.Failed())
	for _, f := range res.Download.Failures {
		failed[f.Dest] = true
	}
	tasks, _ := batch.Tasks()
	for _, t := range tasks {
		if failed[t.Dest] {
			continue
		}
		obj := byDest[t.Dest]
		if err := integrity.Verify(t.Dest, obj.Hash); err != nil {
			slog.Warn("Removing corrupt asset", "name", obj.Name, "path", t.Dest, "error", err)
			if rmErr := os.Remove(t.Dest); rmErr != nil && !os.IsNotExist(rmErr) {
				err = errors.Join(err, common.FromIO("remove", t.Dest, rmErr))
			}
			res.Corrupt = append(res.Corrupt, downloader.TaskError{Task: t, Err: err})
		}
	}

	slog.Info("Asset sync finished", "downloaded", res.Download.Succeeded-len(res.Corrupt), "failed", res.Download.Failed(), "corrupt", len(res.Corrupt))
	return res, nil
}
