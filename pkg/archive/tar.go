package archive

import (
	"archive/tar"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"launcher/pkg/common"
)

func extractTarFile(src, root string, compressed bool) error {
	f, err := os.Open(src)
	if err != nil {
		return common.FromIO("extract", src, err)
	}
	defer f.Close()

	var r io.Reader = f
	if compressed {
		gzr, err := gzip.NewReader(f)
		if err != nil {
			return common.NewError(common.UnsupportedFormat, "extract", src, err)
		}
		defer gzr.Close()
		r = gzr
	}
	return extractTar(r, src, root)
}

func extractTar(r io.Reader, src, root string) error {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, tar.ErrInsecurePath) {
			return common.NewError(common.InvalidEntry, "extract", header.Name, err)
		}
		if err != nil {
			return common.NewError(common.IoError, "extract", src, err)
		}

		target, ok, err := entryPath(root, header.Name)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, fileMode(os.FileMode(header.Mode), true)); err != nil {
				return common.FromIO("mkdir", target, err)
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, fileMode(os.FileMode(header.Mode), false)); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if !linkTargetInside(root, target, header.Linkname) {
				return common.Errorf(common.InvalidEntry, "extract", header.Name, "symlink to %s escapes destination", header.Linkname)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return common.FromIO("mkdir", filepath.Dir(target), err)
			}
			if err := clearEntry(target); err != nil {
				return err
			}
			if err := os.Symlink(header.Linkname, target); err != nil {
				return common.FromIO("symlink", target, err)
			}
		case tar.TypeLink:
			linked, ok, err := entryPath(root, header.Linkname)
			if err != nil {
				return err
			}
			if !ok {
				return common.Errorf(common.InvalidEntry, "extract", header.Name, "hard link to destination root")
			}
			if err := clearEntry(target); err != nil {
				return err
			}
			if err := os.Link(linked, target); err != nil {
				return common.FromIO("link", target, err)
			}
		default:
			slog.Debug("Skipping archive entry", "name", header.Name, "type", string(header.Typeflag))
		}
	}
}

// clearEntry removes whatever an earlier entry left at target, never
// following a symlink and never removing a directory tree.
func clearEntry(target string) error {
	info, err := os.Lstat(target)
	if err != nil {
		return nil
	}
	if info.IsDir() {
		return common.Errorf(common.InvalidEntry, "extract", target, "link would replace a directory")
	}
	if err := os.Remove(target); err != nil {
		return common.FromIO("remove", target, err)
	}
	return nil
}
