// Package assets keeps a local object store in line with a remote asset index.
//
// An index maps logical names to content hashes. Objects are stored and
// served by hash: "ab/abcdef...". Sync downloads what is missing and checks
// every new object against its SHA-1.
package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/itchyny/gojq"

	"launcher/pkg/common"
	"launcher/pkg/downloader"
	"launcher/pkg/events"
	"launcher/pkg/jsonstore"
)

// objectsQuery flattens {"objects": {name: {hash, size}}} into one value per object.
var objectsQuery = mustCompile(`.objects | to_entries[] | {name: .key, hash: .value.hash, size: .value.size}`)

var hashPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

func mustCompile(src string) *gojq.Code {
	q, err := gojq.Parse(src)
	if err != nil {
		panic(err)
	}
	code, err := gojq.Compile(q)
	if err != nil {
		panic(err)
	}
	return code
}

// Object is one entry of an asset index.
type Object struct {
	Name string `json:"name"`
	Hash string `json:"hash"`
	Size int64  `json:"size"`
}

// Path returns the object's location relative to the objects directory and
// to the asset server: the first two hash characters, then the hash.
func (o Object) Path() string {
	return o.Hash[:2] + "/" + o.Hash
}

// URL returns the download location of the object under base.
func (o Object) URL(base string) string {
	return strings.TrimRight(base, "/") + "/" + o.Path()
}

// Index is a parsed asset index, sorted by object name.
type Index struct {
	Source  string   `json:"source,omitempty"`
	Objects []Object `json:"objects"`
}

// Paths returns the distinct object paths. Objects sharing a hash share a
// path and are listed once.
func (ix *Index) Paths() []string {
	seen := make(map[string]bool, len(ix.Objects))
	paths := make([]string, 0, len(ix.Objects))
	for _, o := range ix.Objects {
		p := o.Path()
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	return paths
}

// ByPath returns one object per distinct path.
func (ix *Index) ByPath() map[string]Object {
	m := make(map[string]Object, len(ix.Objects))
	for _, o := range ix.Objects {
		if _, ok := m[o.Path()]; !ok {
			m[o.Path()] = o
		}
	}
	return m
}

// Size returns the total size of the distinct objects.
func (ix *Index) Size() int64 {
	var total int64
	for _, o := range ix.ByPath() {
		total += o.Size
	}
	return total
}

func (ix *Index) String() string {
	return fmt.Sprintf("%d objects (%s)", len(ix.Paths()), humanize.Bytes(uint64(ix.Size())))
}

// ParseIndex decodes an asset index document.
func ParseIndex(data []byte) (*Index, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, common.NewError(common.InvalidEntry, "parse index", "", err)
	}

	ix := &Index{}
	iter := objectsQuery.Run(doc)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return nil, common.NewError(common.InvalidEntry, "parse index", "", err)
		}
		obj, err := toObject(v)
		if err != nil {
			return nil, err
		}
		ix.Objects = append(ix.Objects, obj)
	}

	sort.Slice(ix.Objects, func(i, j int) bool { return ix.Objects[i].Name < ix.Objects[j].Name })
	return ix, nil
}

func toObject(v any) (Object, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return Object{}, common.Errorf(common.InvalidEntry, "parse index", "", "unexpected object %v", v)
	}
	name, _ := m["name"].(string)
	hash, _ := m["hash"].(string)
	hash = strings.ToLower(hash)
	if !hashPattern.MatchString(hash) {
		return Object{}, common.Errorf(common.InvalidEntry, "parse index", name, "invalid hash %q", hash)
	}

	var size int64
	switch n := m["size"].(type) {
	case float64:
		size = int64(n)
	case int:
		size = int64(n)
	case nil:
	default:
		return Object{}, common.Errorf(common.InvalidEntry, "parse index", name, "invalid size %v", n)
	}
	if size < 0 {
		return Object{}, common.Errorf(common.InvalidEntry, "parse index", name, "negative size %d", size)
	}
	return Object{Name: name, Hash: hash, Size: size}, nil
}

// LoadIndex returns the index at url, using the copy cached at cachePath
// when there is one. A freshly fetched index is written to cachePath.
func LoadIndex(ctx context.Context, d downloader.Downloader, url, cachePath string) (*Index, error) {
	store := jsonstore.New(cachePath, jsonstore.WithCompact[Index](), jsonstore.WithCreateIfMissing[Index](false))
	if store.Exists() {
		ix, err := store.Get()
		if err == nil {
			slog.Debug("Using cached asset index", "path", cachePath)
			return ix, nil
		}
		slog.Warn("Ignoring unreadable asset index cache", "path", cachePath, "error", err)
	}

	var buf strings.Builder
	if _, err := d.Fetch(ctx, url, &buf, events.Discard); err != nil {
		return nil, err
	}
	ix, err := ParseIndex([]byte(buf.String()))
	if err != nil {
		return nil, err
	}
	ix.Source = url

	store.Put(ix)
	if err := store.Save(); err != nil {
		return nil, common.NewError(common.IoError, "save index", cachePath, err)
	}
	slog.Info("Fetched asset index", "url", url, "index", ix.String())
	return ix, nil
}
