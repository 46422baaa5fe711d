package assets

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launcher/pkg/common"
	"launcher/pkg/downloader"
	"launcher/pkg/events"
)

type assetServer struct {
	*httptest.Server
	mu      sync.Mutex
	objects map[string][]byte
	hits    map[string]int
}

func newAssetServer(t *testing.T) *assetServer {
	s := &assetServer{objects: map[string][]byte{}, hits: map[string]int{}}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		body, ok := s.objects[r.URL.Path]
		s.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	}))
	t.Cleanup(s.Close)
	return s
}

func sha1Hex(data string) string {
	sum := sha1.Sum([]byte(data))
	return hex.EncodeToString(sum[:])
}

// add serves content under the hash of served, which lets tests publish a
// corrupt object by passing different strings.
func (s *assetServer) add(name, content, served string) Object {
	o := Object{Name: name, Hash: sha1Hex(content), Size: int64(len(content))}
	s.mu.Lock()
	s.objects["/"+o.Path()] = []byte(served)
	s.mu.Unlock()
	return o
}

func (s *assetServer) hitCount(o Object) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits["/"+o.Path()]
}

func TestSync(t *testing.T) {
	srv := newAssetServer(t)
	sound := srv.add("sounds/cave1.ogg", "ogg data", "ogg data")
	lang := srv.add("lang/en_us.json", `{"a":"b"}`, `{"a":"b"}`)
	icon := srv.add("icons/icon.png", "png", "png")
	ix := &Index{Objects: []Object{icon, lang, sound}}

	root := t.TempDir()
	opts := SyncOptions{Root: root, BaseURL: srv.URL, Concurrency: 2}

	// icon is already present.
	iconPath := filepath.Join(opts.ObjectsDir(), filepath.FromSlash(icon.Path()))
	require.NoError(t, os.MkdirAll(filepath.Dir(iconPath), 0755))
	require.NoError(t, os.WriteFile(iconPath, []byte("png"), 0644))

	rec := &events.Recorder{}
	res, err := Sync(context.Background(), downloader.NewDefaultDownloader(), ix, opts, rec)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.NoError(t, res.Err())
	assert.Equal(t, 3, res.Expected)
	assert.Equal(t, 2, res.Missing)
	assert.Len(t, rec.DownloadedEvents(), 2)
	assert.Zero(t, srv.hitCount(icon))

	got, err := os.ReadFile(filepath.Join(opts.ObjectsDir(), filepath.FromSlash(sound.Path())))
	require.NoError(t, err)
	assert.Equal(t, "ogg data", string(got))

	// Second run finds nothing to do.
	res, err = Sync(context.Background(), downloader.NewDefaultDownloader(), ix, opts, nil)
	require.NoError(t, err)
	assert.Zero(t, res.Missing)
	assert.Nil(t, res.Download)
	assert.Equal(t, 1, srv.hitCount(sound))
	assert.NoFileExists(t, opts.ObjectsDir()+".lock")
}

func TestSyncCorruptAndMissing(t *testing.T) {
	srv := newAssetServer(t)
	good := srv.add("good.txt", "good", "good")
	bad := srv.add("bad.txt", "expected", "tampered")
	gone := Object{Name: "gone.txt", Hash: sha1Hex("gone"), Size: 4}
	ix := &Index{Objects: []Object{bad, gone, good}}

	opts := SyncOptions{Root: t.TempDir(), BaseURL: srv.URL}
	res, err := Sync(context.Background(), downloader.NewDefaultDownloader(), ix, opts, nil)
	require.NoError(t, err)
	assert.False(t, res.OK())

	require.Equal(t, 1, res.Download.Failed())
	assert.True(t, strings.HasSuffix(res.Download.Failures[0].URL, gone.Path()))

	require.Len(t, res.Corrupt, 1)
	assert.Equal(t, common.IntegrityMismatch, common.KindOf(res.Corrupt[0].Err))
	assert.NoFileExists(t, filepath.Join(opts.ObjectsDir(), filepath.FromSlash(bad.Path())))
	assert.FileExists(t, filepath.Join(opts.ObjectsDir(), filepath.FromSlash(good.Path())))

	err = res.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 downloads failed")
	assert.Contains(t, err.Error(), "1 objects failed verification")
}

func TestSyncLoadedIndex(t *testing.T) {
	srv := newAssetServer(t)
	obj := srv.add("minecraft/lang/de_de.json", "{}", "{}")
	doc, err := json.Marshal(map[string]any{
		"objects": map[string]any{obj.Name: map[string]any{"hash": obj.Hash, "size": obj.Size}},
	})
	require.NoError(t, err)
	srv.mu.Lock()
	srv.objects["/indexes/5.json"] = doc
	srv.mu.Unlock()

	root := t.TempDir()
	d := downloader.NewDefaultDownloader()
	ix, err := LoadIndex(context.Background(), d, srv.URL+"/indexes/5.json", filepath.Join(root, "indexes", "5.json"))
	require.NoError(t, err)

	res, err := Sync(context.Background(), d, ix, SyncOptions{Root: root, BaseURL: srv.URL + "/"}, nil)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.FileExists(t, filepath.Join(root, "objects", obj.Hash[:2], obj.Hash))
}

func TestSyncCancelled(t *testing.T) {
	srv := newAssetServer(t)
	obj := srv.add("a", "a", "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Sync(ctx, downloader.NewDefaultDownloader(), &Index{Objects: []Object{obj}}, SyncOptions{Root: t.TempDir(), BaseURL: srv.URL}, nil)
	assert.Error(t, err)
}
