// Package archive unpacks downloaded archives into a destination directory.
package archive

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"launcher/pkg/common"
)

// Format is an archive family.
type Format int

const (
	FormatUnknown Format = iota
	// FormatTarGz is a gzip-compressed tar stream.
	FormatTarGz
	// FormatTar is an uncompressed tar stream.
	FormatTar
	// FormatZip is a zip container, including .jar files.
	FormatZip
)

func (f Format) String() string {
	switch f {
	case FormatTarGz:
		return "tar.gz"
	case FormatTar:
		return "tar"
	case FormatZip:
		return "zip"
	default:
		return "unknown"
	}
}

var (
	zipMagic      = []byte("PK\x03\x04")
	zipEmptyMagic = []byte("PK\x05\x06")
	gzipMagic     = []byte{0x1f, 0x8b}
	tarMagic      = []byte("ustar")
)

// SupportedExtensions returns every file extension Extract accepts.
func SupportedExtensions() []string {
	return []string{".tar.gz", ".tgz", ".zip", ".jar", ".tar"}
}

// IsSupported reports whether filename carries a supported extension.
func IsSupported(filename string) bool {
	name := strings.ToLower(filename)
	for _, ext := range SupportedExtensions() {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// Detect returns the format of the archive at src. The extension decides,
// except for .tar which is sniffed: it may hold a zip, a gzip stream or a
// plain tar.
func Detect(src string) (Format, error) {
	name := strings.ToLower(src)
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return FormatTarGz, nil
	case strings.HasSuffix(name, ".zip"), strings.HasSuffix(name, ".jar"):
		return FormatZip, nil
	case strings.HasSuffix(name, ".tar"):
		return sniff(src)
	}
	return FormatUnknown, common.Errorf(common.UnsupportedFormat, "extract", src, "unsupported archive extension: %s", filepath.Ext(src))
}

func sniff(src string) (Format, error) {
	f, err := os.Open(src)
	if err != nil {
		return FormatUnknown, common.FromIO("extract", src, err)
	}
	defer f.Close()

	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FormatUnknown, common.FromIO("extract", src, err)
	}
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, zipMagic), bytes.HasPrefix(head, zipEmptyMagic):
		return FormatZip, nil
	case bytes.HasPrefix(head, gzipMagic):
		return FormatTarGz, nil
	case len(head) >= 262 && bytes.Equal(head[257:262], tarMagic):
		return FormatTar, nil
	}
	return FormatUnknown, common.Errorf(common.UnsupportedFormat, "extract", src, "unrecognized archive signature")
}

// Extract unpacks the archive at src into dest, creating dest if needed.
// It returns a short status message. Entries that would land outside dest
// fail with InvalidEntry; the first failing entry aborts the extraction and
// whatever was already written stays in place.
func Extract(src, dest string) (string, error) {
	format, err := Detect(src)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dest, 0755); err != nil {
		return "", common.FromIO("mkdir", dest, err)
	}
	root, err := filepath.Abs(dest)
	if err != nil {
		return "", common.NewError(common.IoError, "extract", dest, err)
	}

	slog.Info("Extracting archive", "src", src, "dest", dest, "format", format)

	switch format {
	case FormatZip:
		err = extractZip(src, root)
	case FormatTarGz:
		err = extractTarFile(src, root, true)
	case FormatTar:
		err = extractTarFile(src, root, false)
	}
	if err != nil {
		return "", err
	}
	return "extracted to " + dest, nil
}

// entryPath resolves an archive entry name under root. ok is false for
// entries that name root itself and should be skipped.
func entryPath(root, name string) (target string, ok bool, err error) {
	slashed := filepath.ToSlash(name)
	if strings.HasPrefix(slashed, "/") || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", false, common.Errorf(common.InvalidEntry, "extract", name, "absolute path in archive")
	}
	clean := path.Clean(slashed)
	if clean == "." {
		return "", false, nil
	}
	local := filepath.FromSlash(clean)
	if !filepath.IsLocal(local) {
		return "", false, common.Errorf(common.InvalidEntry, "extract", name, "path escapes destination")
	}
	target = filepath.Join(root, local)
	if err := noSymlinkParents(root, target); err != nil {
		return "", false, common.NewError(common.InvalidEntry, "extract", name, err)
	}
	return target, true, nil
}

// noSymlinkParents fails when a directory between root and target is a
// symlink, so no entry is written through a link created earlier.
func noSymlinkParents(root, target string) error {
	rel, err := filepath.Rel(root, filepath.Dir(target))
	if err != nil || rel == "." {
		return err
	}
	cur := root
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		cur = filepath.Join(cur, part)
		info, err := os.Lstat(cur)
		if err != nil {
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("parent %s is a symlink", cur)
		}
	}
	return nil
}

// linkTargetInside reports whether a symlink at target pointing to linkname
// stays inside root once every link already on disk along the way is
// followed.
func linkTargetInside(root, target, linkname string) bool {
	if filepath.IsAbs(linkname) || filepath.VolumeName(linkname) != "" {
		return false
	}
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return false
	}
	cur, err := resolveExisting(filepath.Dir(target))
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.FromSlash(linkname), string(filepath.Separator)) {
		switch part {
		case "", ".":
		case "..":
			cur = filepath.Dir(cur)
		default:
			if cur, err = resolveExisting(filepath.Join(cur, part)); err != nil {
				return false
			}
		}
	}
	rel, err := filepath.Rel(realRoot, cur)
	if err != nil {
		return false
	}
	return filepath.IsLocal(rel) || rel == "."
}

// resolveExisting evaluates symlinks in the longest existing prefix of p and
// appends the remaining components unchanged.
func resolveExisting(p string) (string, error) {
	rest := ""
	cur := p
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(resolved, rest), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p, nil
		}
		rest = filepath.Join(filepath.Base(cur), rest)
		cur = parent
	}
}

// replaceable clears a symlink left at target by an earlier entry, so the
// next entry replaces the link instead of following it.
func replaceable(target string) error {
	info, err := os.Lstat(target)
	if err != nil || info.Mode()&os.ModeSymlink == 0 {
		return nil
	}
	if err := os.Remove(target); err != nil {
		return common.FromIO("remove", target, err)
	}
	return nil
}

func writeFile(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return common.FromIO("mkdir", filepath.Dir(target), err)
	}
	if err := replaceable(target); err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return common.FromIO("create", target, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return common.NewError(common.IoError, "write", target, err)
	}
	if err := f.Close(); err != nil {
		return common.NewError(common.IoError, "write", target, err)
	}
	return nil
}

func fileMode(perm os.FileMode, dir bool) os.FileMode {
	perm &= os.ModePerm
	if perm == 0 {
		if dir {
			return 0755
		}
		return 0644
	}
	return perm
}
