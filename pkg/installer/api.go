// Package installer places runtime archives on the host filesystem.
// It manages the download, integrity verification and extraction of an
// archive into its own directory under the runtime root.
package installer

import (
	"context"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"launcher/pkg/archive"
	"launcher/pkg/common"
	"launcher/pkg/config"
	"launcher/pkg/events"
)

// Streamer downloads one file with progress.
type Streamer interface {
	Stream(ctx context.Context, uri, dest string, obs events.Observer) (int64, error)
}

// Plan describes one runtime installation.
type Plan struct {
	// Name is the runtime's directory name, e.g. "java-17".
	Name string
	// URL is the archive location.
	URL string
	// Checksum is the expected SHA-256 of the archive. Empty skips verification.
	Checksum string
	// ArchivePath is where the archive will be saved on the host.
	ArchivePath string
	// InstallPath is the final destination directory.
	InstallPath string
	// Executables are paths relative to InstallPath to mark executable.
	Executables []string
	// KeepArchive leaves the downloaded archive in the cache after install.
	KeepArchive bool
}

// Stage represents a single step in the installation pipeline.
type Stage func(ctx context.Context, s Streamer, plan *Plan, obs events.Observer) error

// NewPlan derives the archive and install paths for name from the
// configured download and runtime directories.
func NewPlan(cfg config.ReadOnly, name, rawURL, checksum string) (*Plan, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || !filepath.IsLocal(name) {
		return nil, common.Errorf(common.InvalidEntry, "plan", name, "invalid runtime name")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, common.NewError(common.InvalidEntry, "plan", rawURL, err)
	}
	fileName := path.Base(u.Path)
	if !archive.IsSupported(fileName) {
		return nil, common.Errorf(common.UnsupportedFormat, "plan", rawURL, "cannot install %q: not a supported archive", fileName)
	}

	return &Plan{
		Name:        name,
		URL:         rawURL,
		Checksum:    strings.ToLower(strings.TrimSpace(checksum)),
		ArchivePath: filepath.Join(cfg.GetDownloadDir(), name+"-"+fileName),
		InstallPath: filepath.Join(cfg.GetRuntimeDir(), name),
	}, nil
}
