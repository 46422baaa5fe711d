package config

import (
	"fmt"
	"time"

	"launcher/pkg/jsonstore"
)

// DefaultAssetBaseURL serves asset objects by hash.
const DefaultAssetBaseURL = "https://resources.download.minecraft.net"

// Settings are the user-tunable knobs persisted in settings.json.
type Settings struct {
	// Concurrency is the ceiling of in-flight requests in a batch download.
	Concurrency int `json:"concurrency"`
	// TimeoutSeconds bounds a whole request. 0 disables the timeout.
	TimeoutSeconds int `json:"timeout_seconds"`
	// UserAgent overrides the default User-Agent header.
	UserAgent string `json:"user_agent,omitempty"`
	// BandwidthLimit caps download throughput in bytes per second. 0 is unlimited.
	BandwidthLimit int64 `json:"bandwidth_limit"`
	// AssetBaseURL is the prefix asset object paths are appended to.
	AssetBaseURL string `json:"asset_base_url"`
}

// DefaultSettings returns the settings used when no file exists.
func DefaultSettings() *Settings {
	return &Settings{
		Concurrency:  4,
		UserAgent:    UserAgent(),
		AssetBaseURL: DefaultAssetBaseURL,
	}
}

// Timeout returns TimeoutSeconds as a duration.
func (s *Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Validate rejects settings that would stall downloads.
func (s *Settings) Validate() error {
	if s.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", s.Concurrency)
	}
	if s.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must not be negative")
	}
	if s.BandwidthLimit < 0 {
		return fmt.Errorf("bandwidth_limit must not be negative")
	}
	return nil
}

// NewSettingsStore returns the store backing settings.json at path.
func NewSettingsStore(path string) jsonstore.Store[Settings] {
	return jsonstore.New(path, jsonstore.WithDefaultValue(DefaultSettings))
}

// LoadSettings reads settings.json, falling back to defaults when it is missing.
func LoadSettings(path string) (*Settings, error) {
	s, err := NewSettingsStore(path).Get()
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings %s: %w", path, err)
	}
	return s, nil
}
