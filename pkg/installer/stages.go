package installer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"launcher/pkg/archive"
	"launcher/pkg/cache"
	"launcher/pkg/common"
	"launcher/pkg/disk"
	"launcher/pkg/events"
	"launcher/pkg/integrity"
)

// DownloadStage retrieves the archive from the remote URL.
// It uses the local cache to avoid redundant downloads if the file already exists.
func DownloadStage(ctx context.Context, s Streamer, plan *Plan, obs events.Observer) error {
	return cache.Ensure(ctx, plan.ArchivePath, func() error {
		part := plan.ArchivePath + ".part"
		if _, err := s.Stream(ctx, plan.URL, part, obs); err != nil {
			os.Remove(part)
			return err
		}
		if err := os.Rename(part, plan.ArchivePath); err != nil {
			os.Remove(part)
			return common.FromIO("rename", part, err)
		}
		return nil
	})
}

// VerifyStage compares the archive's SHA-256 with the plan's checksum.
// A mismatching archive is removed so the next attempt downloads it again.
func VerifyStage(ctx context.Context, s Streamer, plan *Plan, obs events.Observer) error {
	if plan.Checksum == "" {
		slog.Debug("No checksum, skipping verification", "path", plan.ArchivePath)
		return nil
	}
	if err := integrity.VerifyWith(plan.ArchivePath, integrity.SHA256, plan.Checksum); err != nil {
		if common.KindOf(err) == common.IntegrityMismatch {
			os.Remove(plan.ArchivePath)
		}
		return err
	}
	return nil
}

// ExtractStage unpacks the archive into the install directory.
// It extracts into a temporary directory first so the install is atomic.
func ExtractStage(ctx context.Context, s Streamer, plan *Plan, obs events.Observer) error {
	slog.Info("Extracting runtime", "path", plan.InstallPath)
	return cache.Ensure(ctx, plan.InstallPath, func() error {
		tmpDir := plan.InstallPath + ".tmp"
		if err := os.RemoveAll(tmpDir); err != nil {
			return common.FromIO("remove", tmpDir, err)
		}
		defer os.RemoveAll(tmpDir)

		if _, err := archive.Extract(plan.ArchivePath, tmpDir); err != nil {
			return err
		}
		host := common.HostOS()
		for _, rel := range plan.Executables {
			if err := disk.MakeExecutable(filepath.Join(tmpDir, host.ExecutableName(filepath.FromSlash(rel)))); err != nil {
				return err
			}
		}

		if err := os.Rename(tmpDir, plan.InstallPath); err != nil {
			return common.FromIO("rename", tmpDir, err)
		}
		return nil
	})
}

// CleanupStage removes the downloaded archive unless the plan keeps it.
func CleanupStage(ctx context.Context, s Streamer, plan *Plan, obs events.Observer) error {
	if plan.KeepArchive {
		return nil
	}
	if err := os.Remove(plan.ArchivePath); err != nil && !os.IsNotExist(err) {
		return common.FromIO("remove", plan.ArchivePath, err)
	}
	return nil
}

var pipeline = []struct {
	name  string
	stage Stage
}{
	{"download", DownloadStage},
	{"verify", VerifyStage},
	{"extract", ExtractStage},
	{"cleanup", CleanupStage},
}

// Install runs the full pipeline. It skips everything if the runtime is
// already present on disk and returns the install path.
func Install(ctx context.Context, s Streamer, plan *Plan, obs events.Observer) (string, error) {
	if disk.Exists(plan.InstallPath) {
		slog.Debug("Runtime already installed", "path", plan.InstallPath)
		return plan.InstallPath, nil
	}

	slog.Info("Installing runtime", "name", plan.Name, "url", plan.URL, "path", plan.InstallPath)
	for _, p := range pipeline {
		if err := p.stage(ctx, s, plan, obs); err != nil {
			return "", fmt.Errorf("%s stage failed: %w", p.name, err)
		}
	}

	slog.Info("Installation complete", "name", plan.Name, "path", plan.InstallPath)
	return plan.InstallPath, nil
}
