package downloader

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"launcher/pkg/common"
	"launcher/pkg/events"
)

// DefaultConcurrency is the ceiling of simultaneous requests in a batch.
const DefaultConcurrency = 4

// Task downloads URL to the absolute path Dest.
type Task struct {
	URL  string
	Dest string
}

// Batch maps source URL to destination path.
type Batch map[string]string

// Tasks validates the batch and returns its tasks sorted by URL.
// Two URLs targeting the same destination are rejected.
func (b Batch) Tasks() ([]Task, error) {
	tasks := make([]Task, 0, len(b))
	seen := make(map[string]string, len(b))
	for u, dest := range b {
		if dest == "" {
			return nil, common.Errorf(common.InvalidEntry, "batch", u, "empty destination")
		}
		key := filepath.Clean(dest)
		if other, dup := seen[key]; dup {
			return nil, common.Errorf(common.InvalidEntry, "batch", dest, "destination shared by %s and %s", other, u)
		}
		seen[key] = u
		tasks = append(tasks, Task{URL: u, Dest: dest})
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].URL < tasks[j].URL })
	return tasks, nil
}

// TaskError is a failed task and its reason.
type TaskError struct {
	Task
	Err error
}

func (e TaskError) Error() string {
	return fmt.Sprintf("%s -> %s: %v", e.URL, e.Dest, e.Err)
}

func (e TaskError) Unwrap() error { return e.Err }

// BatchResult summarizes a finished batch.
type BatchResult struct {
	Op        events.OpID
	Total     int
	Succeeded int
	Bytes     int64
	Failures  []TaskError
}

// Failed returns the number of failed tasks.
func (r *BatchResult) Failed() int {
	return len(r.Failures)
}

// OK reports whether every task succeeded.
func (r *BatchResult) OK() bool {
	return len(r.Failures) == 0
}

// Err returns nil when every task succeeded, otherwise an error naming the
// failure count and wrapping the first failure.
func (r *BatchResult) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("%d of %d downloads failed: %w", r.Failed(), r.Total, r.Failures[0])
}

// Pool downloads batches with at most limit requests in flight.
// Immutable
type Pool struct {
	d     Downloader
	limit int
}

// NewPool returns a Pool over d. A limit below 1 uses DefaultConcurrency.
func NewPool(d Downloader, limit int) *Pool {
	if limit < 1 {
		limit = DefaultConcurrency
	}
	return &Pool{d: d, limit: limit}
}

// Limit returns the concurrency ceiling.
func (p *Pool) Limit() int {
	return p.limit
}

// Run validates batch and downloads every task. The returned error is only
// about the batch itself; per-task failures are in the BatchResult.
func (p *Pool) Run(ctx context.Context, batch Batch, obs events.Observer) (*BatchResult, error) {
	tasks, err := batch.Tasks()
	if err != nil {
		return nil, err
	}
	return p.RunTasks(ctx, tasks, obs), nil
}

// RunTasks downloads every task and returns once all of them finished.
// A failing task never cancels its siblings. obs receives exactly one
// Downloaded event per task, successful or not; calls into obs are
// serialized. When ctx is cancelled, tasks not yet started are failed with
// the context error.
func (p *Pool) RunTasks(ctx context.Context, tasks []Task, obs events.Observer) *BatchResult {
	op := events.NewOp()
	notify := events.Synchronized(events.WithOp(op, obs))
	res := &BatchResult{Op: op, Total: len(tasks)}
	var mu sync.Mutex

	finish := func(t Task, n int64, err error) {
		mu.Lock()
		if err != nil {
			res.Failures = append(res.Failures, TaskError{Task: t, Err: err})
		} else {
			res.Succeeded++
			res.Bytes += n
		}
		mu.Unlock()
		if err != nil {
			slog.Warn("Download failed", "url", t.URL, "path", t.Dest, "error", err)
		}
		notify.Downloaded(events.Downloaded{URL: t.URL, Dest: t.Dest, Bytes: n, Err: err})
	}

	slog.Info("Starting batch download", "tasks", len(tasks), "concurrency", p.limit, "op", op)

	// Plain Group: a task error must not cancel the others.
	var g errgroup.Group
	g.SetLimit(p.limit)
	for _, t := range tasks {
		if err := ctx.Err(); err != nil {
			finish(t, 0, common.NewError(common.NetworkError, "fetch", t.URL, err))
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				finish(t, 0, common.NewError(common.NetworkError, "fetch", t.URL, err))
				return nil
			}
			n, err := p.fetchOne(ctx, t)
			finish(t, n, err)
			return nil
		})
	}
	g.Wait()

	slog.Info("Batch download finished", "succeeded", res.Succeeded, "failed", res.Failed(), "op", op)
	sort.Slice(res.Failures, func(i, j int) bool { return res.Failures[i].URL < res.Failures[j].URL })
	return res
}

// fetchOne reads the full body, then creates the parent and writes dest.
func (p *Pool) fetchOne(ctx context.Context, t Task) (int64, error) {
	var buf bytes.Buffer
	if _, err := p.d.Fetch(ctx, t.URL, &buf, events.Discard); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(t.Dest), 0755); err != nil {
		return 0, common.FromIO("mkdir", filepath.Dir(t.Dest), err)
	}
	if err := os.WriteFile(t.Dest, buf.Bytes(), 0644); err != nil {
		return 0, common.FromIO("write", t.Dest, err)
	}
	return int64(buf.Len()), nil
}
