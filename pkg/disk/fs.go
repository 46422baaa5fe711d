// Package disk provides the filesystem helpers used by the launcher front end
// and the bookkeeping of the launcher's own storage.
package disk

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"launcher/pkg/common"
)

// Exists reports whether anything is at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Mkdir creates path and any missing parents.
func Mkdir(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return common.FromIO("mkdir", path, err)
	}
	return nil
}

// ReadText returns the content of the file at path.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", common.FromIO("read", path, err)
	}
	return string(data), nil
}

// WriteText replaces the file at path with data, creating parents as needed.
func WriteText(path, data string) error {
	return write(path, data, 0644)
}

// WriteExecutable writes a launch script: owner rwx, others execute only.
func WriteExecutable(path, data string) error {
	if err := write(path, data, 0711); err != nil {
		return err
	}
	// The umask may have stripped bits from the create mode.
	return chmod(path, 0711)
}

// MakeExecutable sets rwxr-xr-x on an existing file.
func MakeExecutable(path string) error {
	return chmod(path, 0755)
}

func write(path, data string, mode os.FileMode) error {
	if err := Mkdir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(data), mode); err != nil {
		return common.FromIO("write", path, err)
	}
	return nil
}

func chmod(path string, mode os.FileMode) error {
	if err := os.Chmod(path, mode); err != nil {
		return common.FromIO("chmod", path, err)
	}
	return nil
}

// Remove deletes a file or a whole directory tree.
func Remove(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return common.FromIO("remove", path, err)
	}
	if info.IsDir() {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		return common.FromIO("remove", path, err)
	}
	return nil
}

// ReadDir lists path. Flat listings include directories; recursive listings
// return only files, at any depth. Paths are joined to path and sorted.
func ReadDir(path string, recursive bool) ([]string, error) {
	var out []string
	if !recursive {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, common.FromIO("readdir", path, err)
		}
		for _, e := range entries {
			out = append(out, filepath.Join(path, e.Name()))
		}
		return out, nil
	}

	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, common.FromIO("readdir", path, err)
	}
	sort.Strings(out)
	return out, nil
}
