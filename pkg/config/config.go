package config

import (
	"fmt"
	"path/filepath"

	"github.com/adrg/xdg"

	"launcher/pkg/common"
)

const appName = "launcher"

// ReadOnly defines the read-only interface for Config.
// Immutable
type ReadOnly interface {
	GetCacheDir() string
	GetConfigDir() string
	GetDataDir() string
	GetDownloadDir() string
	GetAssetsDir() string
	GetIndexesDir() string
	GetObjectsDir() string
	GetRuntimeDir() string
	GetSettingsPath() string
	GetSettings() Settings
	GetOS() OSType
	GetArch() ArchType
	Freeze()
	Checkout() Writable
}

// Writable defines the writable interface for Config.
// Mutable
type Writable interface {
	ReadOnly
	SetCacheDir(string)
	SetConfigDir(string)
	SetDataDir(string)
	SetSettings(Settings)
}

// Config holds the base directories and settings of the launcher.
// Mutable
type Config struct {
	cacheDir  string
	configDir string
	dataDir   string

	downloadDir  string
	assetsDir    string
	indexesDir   string
	objectsDir   string
	runtimeDir   string
	settingsPath string

	settings Settings

	os   OSType
	arch ArchType

	frozen bool
	edited bool
}

var _ ReadOnly = (*Config)(nil)
var _ Writable = (*Config)(nil)

func (c *Config) GetCacheDir() string     { return c.cacheDir }
func (c *Config) GetConfigDir() string    { return c.configDir }
func (c *Config) GetDataDir() string      { return c.dataDir }
func (c *Config) GetDownloadDir() string  { return c.downloadDir }
func (c *Config) GetAssetsDir() string    { return c.assetsDir }
func (c *Config) GetIndexesDir() string   { return c.indexesDir }
func (c *Config) GetObjectsDir() string   { return c.objectsDir }
func (c *Config) GetRuntimeDir() string   { return c.runtimeDir }
func (c *Config) GetSettingsPath() string { return c.settingsPath }
func (c *Config) GetSettings() Settings   { return c.settings }
func (c *Config) GetOS() OSType           { return c.os }
func (c *Config) GetArch() ArchType       { return c.arch }

func (c *Config) SetCacheDir(s string) {
	c.mustEdit()
	c.cacheDir = s
	c.updateDerived()
}

func (c *Config) SetConfigDir(s string) {
	c.mustEdit()
	c.configDir = s
	c.updateDerived()
}

func (c *Config) SetDataDir(s string) {
	c.mustEdit()
	c.dataDir = s
	c.updateDerived()
}

func (c *Config) SetSettings(s Settings) {
	c.mustEdit()
	c.settings = s
}

func (c *Config) mustEdit() {
	if c.frozen {
		panic("cannot modify frozen config")
	}
}

func (c *Config) Freeze() {
	c.frozen = true
}

func (c *Config) Checkout() Writable {
	if c.frozen {
		panic("cannot checkout from frozen config")
	}
	if c.edited {
		panic("config already checked out")
	}
	c.edited = true
	return c
}

func (c *Config) updateDerived() {
	c.downloadDir = filepath.Join(c.cacheDir, "downloads")
	c.assetsDir = filepath.Join(c.dataDir, "assets")
	c.indexesDir = filepath.Join(c.assetsDir, "indexes")
	c.objectsDir = filepath.Join(c.assetsDir, "objects")
	c.runtimeDir = filepath.Join(c.dataDir, "runtime")
	c.settingsPath = filepath.Join(c.configDir, "settings.json")
}

// Init initializes the configuration using XDG base directories and loads
// settings.json from the config directory.
func Init() (ReadOnly, error) {
	c := &Config{
		cacheDir:  filepath.Join(xdg.CacheHome, appName),
		configDir: filepath.Join(xdg.ConfigHome, appName),
		dataDir:   filepath.Join(xdg.DataHome, appName),
		os:        common.HostOS(),
		arch:      common.HostArch(),
	}
	c.updateDerived()

	s, err := LoadSettings(c.settingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	c.settings = *s

	return c, nil
}
