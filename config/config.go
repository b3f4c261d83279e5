package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Config holds the conversion defaults. Command-line flags override it.
type Config struct {
	MaxLoops   int    `json:"maxLoops"`
	Forced     bool   `json:"forced,omitempty"`
	Verbose    bool   `json:"verbose,omitempty"`
	Resolution int    `json:"resolution"`
	Workers    int    `json:"workers,omitempty"` // 0 = one per CPU
	Encoding   string `json:"encoding"`

	// Palette is a GIMP palette file for the report colors.
	Palette string `json:"palette,omitempty"`

	// OutputDir is used when no output path is given.
	OutputDir string `json:"outputDir,omitempty"`

	Player PlayerConfig `json:"player,omitempty"`
}

// PlayerConfig stores mdxplay preferences
type PlayerConfig struct {
	PortName string `json:"portName,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxLoops:   2,
		Resolution: 480,
		Encoding:   "shift_jis",
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "mdx2midi"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads the config at path. Fields missing from the file keep
// their default values; a missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "reading config %s", path)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.MaxLoops < 0:
		return errors.Errorf("maxLoops must be >= 0, got %d", c.MaxLoops)
	case c.Resolution <= 0 || c.Resolution > 0x7FFF:
		return errors.Errorf("resolution must be in 1..32767, got %d", c.Resolution)
	case c.Workers < 0:
		return errors.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	switch c.Encoding {
	case "shift_jis", "ascii", "ASCII", "":
		return nil
	}
	return errors.Errorf("unknown encoding %q", c.Encoding)
}

// SaveFile writes the config to path, creating its directory.
func (c *Config) SaveFile(path string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.WithStack(err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(os.WriteFile(path, data, 0644))
}
