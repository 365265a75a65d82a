package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when loaded values fail validation.
var ErrInvalidConfig = errors.New("invalid config")

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	cfg := Default()

	// Explicit path takes priority over the search locations
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside the viewer.
func (c *Config) Validate() error {
	switch c.Background.Mode {
	case BackgroundNone, BackgroundGradient:
	default:
		return fmt.Errorf("%w: background.mode %q (want %q or %q)",
			ErrInvalidConfig, c.Background.Mode, BackgroundNone, BackgroundGradient)
	}
	if c.Asset.URL == "" {
		return fmt.Errorf("%w: asset.url is empty", ErrInvalidConfig)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalidConfig, c.Window.Width, c.Window.Height)
	}
	if c.Screenshot.Scale < 1 || c.Screenshot.Scale > 8 {
		return fmt.Errorf("%w: screenshot.scale %d (want 1..8)", ErrInvalidConfig, c.Screenshot.Scale)
	}
	if c.Environment.Enabled {
		if c.Environment.Size < 8 || c.Environment.Levels < 1 || c.Environment.Samples < 1 {
			return fmt.Errorf("%w: environment size=%d levels=%d samples=%d",
				ErrInvalidConfig, c.Environment.Size, c.Environment.Levels, c.Environment.Samples)
		}
	}
	return nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./glbview.yaml",
		DefaultPath(),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "glbview")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "glbview")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "glbview")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "glbview")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
