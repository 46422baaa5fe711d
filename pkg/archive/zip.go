package archive

import (
	"archive/zip"
	"errors"
	"log/slog"
	"os"

	"launcher/pkg/common"
)

func extractZip(src, root string) error {
	r, err := zip.OpenReader(src)
	if errors.Is(err, zip.ErrInsecurePath) {
		// Entries are checked one by one below.
		err = nil
	}
	if err != nil {
		if _, statErr := os.Stat(src); statErr != nil {
			return common.FromIO("extract", src, statErr)
		}
		return common.NewError(common.UnsupportedFormat, "extract", src, err)
	}
	defer r.Close()

	for _, f := range r.File {
		target, ok, err := entryPath(root, f.Name)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		info := f.FileInfo()
		if info.Mode()&os.ModeSymlink != 0 {
			slog.Debug("Skipping zip symlink entry", "name", f.Name)
			continue
		}
		if info.IsDir() {
			if err := os.MkdirAll(target, fileMode(info.Mode(), true)); err != nil {
				return common.FromIO("mkdir", target, err)
			}
			continue
		}
		if err := extractZipFile(f, target, fileMode(info.Mode(), false)); err != nil {
			return err
		}
	}
	return nil
}

func extractZipFile(f *zip.File, target string, mode os.FileMode) error {
	rc, err := f.Open()
	if err != nil {
		return common.NewError(common.IoError, "extract", f.Name, err)
	}
	defer rc.Close()
	return writeFile(target, rc, mode)
}
