package downloader

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launcher/pkg/common"
	"launcher/pkg/events"
)

func TestPoolCeiling(t *testing.T) {
	var inFlight, peak atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := inFlight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(40 * time.Millisecond)
		inFlight.Add(-1)
		if strings.HasSuffix(r.URL.Path, "/7") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(r.URL.Path))
	}))
	defer ts.Close()

	const n, ceiling = 12, 3
	dir := t.TempDir()
	batch := Batch{}
	for i := 0; i < n; i++ {
		batch[fmt.Sprintf("%s/objects/%d", ts.URL, i)] = filepath.Join(dir, fmt.Sprintf("%d.bin", i))
	}

	rec := &events.Recorder{}
	res, err := NewPool(NewDefaultDownloader(), ceiling).Run(context.Background(), batch, rec)
	require.NoError(t, err)

	assert.Len(t, rec.DownloadedEvents(), n)
	assert.LessOrEqual(t, peak.Load(), int32(ceiling))
	assert.Equal(t, n, res.Total)
	assert.Equal(t, n-1, res.Succeeded)
	assert.Equal(t, 1, res.Failed())
	for _, ev := range rec.DownloadedEvents() {
		assert.Equal(t, res.Op, ev.Op)
	}
}

func TestPoolPartialFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("content of " + r.URL.Path))
	}))
	defer ts.Close()

	dir := t.TempDir()
	batch := Batch{
		ts.URL + "/a":      filepath.Join(dir, "x", "a.json"),
		ts.URL + "/b":      filepath.Join(dir, "y", "z", "b.json"),
		ts.URL + "/broken": filepath.Join(dir, "broken.json"),
	}

	rec := &events.Recorder{}
	res, err := NewPool(NewDefaultDownloader(), DefaultConcurrency).Run(context.Background(), batch, rec)
	require.NoError(t, err)

	assert.Len(t, rec.DownloadedEvents(), 3)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Succeeded)
	require.Equal(t, 1, res.Failed())
	assert.Equal(t, ts.URL+"/broken", res.Failures[0].URL)
	assert.Equal(t, common.NetworkError, common.KindOf(res.Failures[0].Err))
	assert.ErrorContains(t, res.Err(), "1 of 3 downloads failed")

	a, err := os.ReadFile(filepath.Join(dir, "x", "a.json"))
	require.NoError(t, err)
	assert.Equal(t, "content of /a", string(a))
	b, err := os.ReadFile(filepath.Join(dir, "y", "z", "b.json"))
	require.NoError(t, err)
	assert.Equal(t, "content of /b", string(b))
	assert.NoFileExists(t, filepath.Join(dir, "broken.json"))
}

func TestPoolAllFail(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	dir := t.TempDir()
	batch := Batch{}
	for i := 0; i < 10; i++ {
		batch[fmt.Sprintf("%s/%d", ts.URL, i)] = filepath.Join(dir, fmt.Sprint(i))
	}

	done := make(chan *BatchResult)
	go func() {
		res, _ := NewPool(NewDefaultDownloader(), 2).Run(context.Background(), batch, nil)
		done <- res
	}()

	select {
	case res := <-done:
		assert.Equal(t, 10, res.Failed())
		assert.Zero(t, res.Succeeded)
	case <-time.After(10 * time.Second):
		t.Fatal("pool did not finish when every task failed")
	}
}

func TestPoolWriteFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer ts.Close()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	res, err := NewPool(NewDefaultDownloader(), 2).Run(context.Background(), Batch{
		ts.URL + "/ok":  filepath.Join(dir, "ok"),
		ts.URL + "/bad": filepath.Join(blocker, "child"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	require.Equal(t, 1, res.Failed())
	assert.Equal(t, common.IoError, common.KindOf(res.Failures[0].Err))
}

func TestPoolDuplicateDestination(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "same.jar")
	_, err := NewPool(NewDefaultDownloader(), 2).Run(context.Background(), Batch{
		"http://mirror-a.invalid/x.jar": dest,
		"http://mirror-b.invalid/x.jar": dest,
	}, nil)
	assert.Equal(t, common.InvalidEntry, common.KindOf(err))
}

func TestPoolCancelled(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("x"))
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	batch := Batch{}
	for i := 0; i < 5; i++ {
		batch[fmt.Sprintf("%s/%d", ts.URL, i)] = filepath.Join(dir, fmt.Sprint(i))
	}

	rec := &events.Recorder{}
	res, err := NewPool(NewDefaultDownloader(), 2).Run(ctx, batch, rec)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Failed())
	assert.Len(t, rec.DownloadedEvents(), 5)
	assert.Zero(t, hits.Load())
}

func TestPoolEmptyBatch(t *testing.T) {
	pool := NewPool(NewDefaultDownloader(), 0)
	assert.Equal(t, DefaultConcurrency, pool.Limit())

	res, err := pool.Run(context.Background(), Batch{}, nil)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.NoError(t, res.Err())
	assert.Zero(t, res.Total)
}
