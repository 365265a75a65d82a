package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the per-user config file Load falls back to.
func DefaultPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Encode writes the config as YAML with two-space indentation.
func (c *Config) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}

// SaveTo writes the config to path, creating parent directories as
// needed. The file is written beside the target and renamed over it, so a
// failed write leaves any existing file intact.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".glbview-*.yaml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := c.Encode(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
