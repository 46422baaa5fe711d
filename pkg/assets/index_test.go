package assets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launcher/pkg/common"
	"launcher/pkg/downloader"
)

const sampleIndex = `{
  "objects": {
    "minecraft/sounds/ambient/cave/cave1.ogg": {"hash": "AAF4C61DDCC5E8A2DABEDE0F3B482CD9AEA9434D", "size": 5},
    "icons/icon_16x16.png": {"hash": "bd4cd4a8e8b3d5fb6ee0b0ff3a6e7a7fa1a0b0d5", "size": 3120},
    "icons/copy_of_icon.png": {"hash": "bd4cd4a8e8b3d5fb6ee0b0ff3a6e7a7fa1a0b0d5", "size": 3120}
  }
}`

func TestParseIndex(t *testing.T) {
	ix, err := ParseIndex([]byte(sampleIndex))
	require.NoError(t, err)
	require.Len(t, ix.Objects, 3)

	assert.Equal(t, "icons/copy_of_icon.png", ix.Objects[0].Name)
	assert.Equal(t, "minecraft/sounds/ambient/cave/cave1.ogg", ix.Objects[2].Name)
	assert.Equal(t, "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d", ix.Objects[2].Hash)
	assert.Equal(t, int64(5), ix.Objects[2].Size)

	assert.Equal(t, []string{
		"bd/bd4cd4a8e8b3d5fb6ee0b0ff3a6e7a7fa1a0b0d5",
		"aa/aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d",
	}, ix.Paths())
	assert.Equal(t, int64(3125), ix.Size())
}

func TestObjectURL(t *testing.T) {
	o := Object{Hash: "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"}
	assert.Equal(t, "https://resources.example/aa/aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d", o.URL("https://resources.example/"))
}

func TestParseIndexInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{"objects":`},
		{"no objects", `{"version": 1}`},
		{"short hash", `{"objects": {"a": {"hash": "abc", "size": 1}}}`},
		{"traversal hash", `{"objects": {"a": {"hash": "../../../../../../../../../../etc/passwd00", "size": 1}}}`},
		{"negative size", `{"objects": {"a": {"hash": "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d", "size": -1}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseIndex([]byte(tt.doc))
			assert.Equal(t, common.InvalidEntry, common.KindOf(err))
		})
	}
}

func TestParseIndexEmpty(t *testing.T) {
	ix, err := ParseIndex([]byte(`{"objects": {}}`))
	require.NoError(t, err)
	assert.Empty(t, ix.Objects)
	assert.Empty(t, ix.Paths())
}

func TestLoadIndexCaches(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(sampleIndex))
	}))
	defer ts.Close()

	cachePath := filepath.Join(t.TempDir(), "indexes", "17.json")
	d := downloader.NewDefaultDownloader()

	ix, err := LoadIndex(context.Background(), d, ts.URL+"/17.json", cachePath)
	require.NoError(t, err)
	assert.Len(t, ix.Objects, 3)
	assert.Equal(t, ts.URL+"/17.json", ix.Source)
	assert.FileExists(t, cachePath)

	again, err := LoadIndex(context.Background(), d, ts.URL+"/17.json", cachePath)
	require.NoError(t, err)
	assert.Equal(t, ix.Objects, again.Objects)
	assert.Equal(t, int32(1), hits.Load())
}

func TestLoadIndexFetchError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	cachePath := filepath.Join(t.TempDir(), "17.json")
	_, err := LoadIndex(context.Background(), downloader.NewDefaultDownloader(), ts.URL, cachePath)
	assert.Equal(t, common.NetworkError, common.KindOf(err))
	assert.NoFileExists(t, cachePath)
}
