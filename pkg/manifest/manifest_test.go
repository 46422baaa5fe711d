package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, nil, 0644))
}

func TestDiffEmptyDir(t *testing.T) {
	paths := []string{"z/last.json", "a/b.jar", "c.json", "m/n/o.png"}
	assert.Equal(t, paths, Diff(t.TempDir(), paths))
}

func TestDiffMissingBase(t *testing.T) {
	base := filepath.Join(t.TempDir(), "empty")
	got := Diff(base, []string{"a/b.jar", "c.json"})
	assert.Equal(t, []string{"a/b.jar", "c.json"}, got)

	_, err := os.Stat(base)
	assert.True(t, os.IsNotExist(err), "diff must not create the base directory")
}

func TestDiffEmptyInput(t *testing.T) {
	got := Diff(t.TempDir(), nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDiffAllPresent(t *testing.T) {
	base := t.TempDir()
	paths := []string{"a/b.jar", "c.json"}
	for _, p := range paths {
		touch(t, filepath.Join(base, p))
	}
	assert.Empty(t, Diff(base, paths))
	assert.Equal(t, paths, Present(base, paths))
}

func TestDiffMixedPreservesOrder(t *testing.T) {
	base := t.TempDir()
	touch(t, filepath.Join(base, "ab", "abcd"))
	require.NoError(t, os.MkdirAll(filepath.Join(base, "dir-entry"), 0755))

	got := Diff(base, []string{"ff/ffff", "ab/abcd", "dir-entry", "00/0000"})
	assert.Equal(t, []string{"ff/ffff", "00/0000"}, got)
}
