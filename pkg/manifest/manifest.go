// Package manifest compares an expected file list against what is on disk.
package manifest

import (
	"log/slog"
	"os"
	"path/filepath"
)

// Diff returns, in input order, the paths that do not exist under base.
// Any entry type counts as present and contents are not inspected. A base
// that does not exist reports every path missing.
func Diff(base string, paths []string) []string {
	missing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Lstat(filepath.Join(base, filepath.FromSlash(p))); err != nil {
			missing = append(missing, p)
		}
	}
	slog.Debug("Manifest diff", "base", base, "expected", len(paths), "missing", len(missing))
	return missing
}

// Present is the complement of Diff: paths that do exist under base.
func Present(base string, paths []string) []string {
	present := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Lstat(filepath.Join(base, filepath.FromSlash(p))); err == nil {
			present = append(present, p)
		}
	}
	return present
}
