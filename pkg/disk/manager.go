package disk

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"launcher/pkg/common"
	"launcher/pkg/config"
)

// manager reports on and cleans the launcher's storage.
type manager struct {
	cfg config.ReadOnly
}

// Manager is a pointer to the internal manager implementation.
type Manager = *manager

// NewManager creates a new disk manager with the specified configuration.
func NewManager(cfg config.ReadOnly) Manager {
	return &manager{cfg: cfg}
}

// Usage represents disk usage information for a specific category of data.
type Usage struct {
	Label string
	Size  int64
	Items int
	Path  string
}

func (m *manager) Info() (*common.ExecutionResult, error) {
	stats, total := m.GetInfo()
	table := &common.Table{
		Header: []string{"Type", "Size", "Items", "Path"},
	}
	for _, s := range stats {
		table.AddRow(s.Label, FormatSize(s.Size), fmt.Sprintf("%d", s.Items), s.Path)
	}

	return &common.ExecutionResult{
		Output: &common.Output{
			Table:   table,
			Message: fmt.Sprintf("Total: %s", FormatSize(total)),
		},
	}, nil
}

func (m *manager) CleanDir() (*common.ExecutionResult, error) {
	cleaned, err := m.Clean()
	for _, p := range cleaned {
		slog.Info("Cleaning", "path", p)
	}
	if err != nil {
		return nil, err
	}
	return &common.ExecutionResult{
		Output: &common.Output{
			Message: fmt.Sprintf("Clean complete, %d paths removed", len(cleaned)),
		},
	}, nil
}

// GetInfo returns usage per category, in a fixed order, and the total.
func (m *manager) GetInfo() ([]Usage, int64) {
	categories := []struct {
		label string
		path  string
	}{
		{"Downloads", m.cfg.GetDownloadDir()},
		{"Indexes", m.cfg.GetIndexesDir()},
		{"Objects", m.cfg.GetObjectsDir()},
		{"Runtimes", m.cfg.GetRuntimeDir()},
	}
	var total int64
	var stats []Usage
	for _, c := range categories {
		size, count := DirSize(c.path)
		total += size
		stats = append(stats, Usage{
			Label: c.label,
			Size:  size,
			Items: count,
			Path:  c.path,
		})
	}
	return stats, total
}

// Clean empties the download cache and removes leftovers of interrupted
// installs: *.tmp staging directories and *.part files in the runtime
// directory. Installed runtimes and asset objects are kept.
func (m *manager) Clean() ([]string, error) {
	var cleaned []string

	dl := m.cfg.GetDownloadDir()
	if Exists(dl) {
		if err := Remove(dl); err != nil {
			return cleaned, err
		}
		if err := Mkdir(dl); err != nil {
			return cleaned, err
		}
		cleaned = append(cleaned, dl)
	}

	entries, err := os.ReadDir(m.cfg.GetRuntimeDir())
	if err != nil && !os.IsNotExist(err) {
		return cleaned, common.FromIO("readdir", m.cfg.GetRuntimeDir(), err)
	}
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".tmp") && !strings.HasSuffix(e.Name(), ".part") {
			continue
		}
		p := filepath.Join(m.cfg.GetRuntimeDir(), e.Name())
		if err := Remove(p); err != nil {
			return cleaned, err
		}
		cleaned = append(cleaned, p)
	}
	return cleaned, nil
}
