package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Window.Width != 1280 || cfg.Window.Height != 720 {
		t.Errorf("expected 1280x720, got %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.Window.Transparent {
		t.Error("expected opaque surface by default")
	}
	if !cfg.Window.VSync {
		t.Error("expected vsync to be true by default")
	}

	if cfg.Asset.DracoDecoderPath != "draco/" {
		t.Errorf("expected draco path 'draco/', got %s", cfg.Asset.DracoDecoderPath)
	}
	if cfg.Asset.KTX2TranscoderPath != "basis/" {
		t.Errorf("expected transcoder path 'basis/', got %s", cfg.Asset.KTX2TranscoderPath)
	}
	if cfg.Asset.FetchTimeout != 30*time.Second {
		t.Errorf("expected fetch timeout 30s, got %v", cfg.Asset.FetchTimeout)
	}

	if cfg.Background.Mode != BackgroundNone {
		t.Errorf("expected background mode %q, got %q", BackgroundNone, cfg.Background.Mode)
	}
	if !cfg.Environment.Enabled {
		t.Error("expected environment to be enabled by default")
	}
	if cfg.Environment.AsBackground {
		t.Error("expected environment background to be off by default")
	}

	if cfg.Screenshot.Dir != "screenshots" || cfg.Screenshot.Scale != 1 {
		t.Errorf("unexpected screenshot defaults %+v", cfg.Screenshot)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
window:
  width: 1920
  height: 1080
  transparent: true

asset:
  url: "https://example.com/models/scene.glb"
  fetch_timeout: 5s

background:
  mode: gradient

environment:
  enabled: true
  as_background: true
  size: 256
  levels: 5
  samples: 32

screenshot:
  scale: 2

logging:
  level: "debug"
  log_file: "viewer.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Window.Width != 1920 || cfg.Window.Height != 1080 {
		t.Errorf("expected 1920x1080, got %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if !cfg.Window.Transparent {
		t.Error("expected transparent to be true")
	}
	if cfg.Asset.URL != "https://example.com/models/scene.glb" {
		t.Errorf("unexpected asset url %s", cfg.Asset.URL)
	}
	if cfg.Asset.FetchTimeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", cfg.Asset.FetchTimeout)
	}
	// untouched keys keep defaults
	if cfg.Asset.DracoDecoderPath != "draco/" {
		t.Errorf("expected default draco path to survive merge, got %s", cfg.Asset.DracoDecoderPath)
	}
	if cfg.Background.Mode != BackgroundGradient {
		t.Errorf("expected gradient background, got %s", cfg.Background.Mode)
	}
	if !cfg.Environment.AsBackground || cfg.Environment.Levels != 5 {
		t.Errorf("unexpected environment config %+v", cfg.Environment)
	}
	if cfg.Screenshot.Scale != 2 || cfg.Screenshot.Dir != "screenshots" {
		t.Errorf("unexpected screenshot config %+v", cfg.Screenshot)
	}
	if cfg.Logging.LogFile != "viewer.log" {
		t.Errorf("expected log file 'viewer.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
window:
  width: not a number
  invalid syntax here
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown background", func(c *Config) { c.Background.Mode = "sky" }},
		{"empty asset", func(c *Config) { c.Asset.URL = "" }},
		{"zero width", func(c *Config) { c.Window.Width = 0 }},
		{"no env levels", func(c *Config) { c.Environment.Levels = 0 }},
		{"screenshot scale", func(c *Config) { c.Screenshot.Scale = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	// env settings are ignored when extraction is off
	cfg := Default()
	cfg.Environment.Enabled = false
	cfg.Environment.Samples = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected disabled environment to skip checks, got %v", err)
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestSaveTo(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	path := filepath.Join(dir, "config.yaml")
	cfg := Default()
	cfg.Background.Mode = BackgroundGradient
	cfg.Window.Transparent = true

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Background.Mode != BackgroundGradient || !loaded.Window.Transparent {
		t.Errorf("saved config did not round trip: %+v", loaded)
	}

	// overwrite in place and leave no temp files behind
	cfg.Screenshot.Scale = 3
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("second SaveTo failed: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "config.yaml" {
		t.Errorf("unexpected directory contents: %v", entries)
	}
	loaded = Default()
	if err := loadFromFile(loaded, path); err != nil || loaded.Screenshot.Scale != 3 {
		t.Errorf("overwrite not visible: scale=%d err=%v", loaded.Screenshot.Scale, err)
	}
}

func TestEncode(t *testing.T) {
	cfg := Default()
	cfg.Asset.FetchTimeout = 45 * time.Second

	var buf bytes.Buffer
	if err := cfg.Encode(&buf); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"window:\n  title:", "fetch_timeout: 45s"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

func TestDefaultPath(t *testing.T) {
	if got := DefaultPath(); filepath.Dir(got) != ConfigDir() || filepath.Base(got) != "config.yaml" {
		t.Errorf("DefaultPath = %s", got)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "asset flag",
			setup: func() { *flagAsset = "models/other.glb" },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Asset.URL != "models/other.glb" {
					t.Errorf("expected asset models/other.glb, got %s", cfg.Asset.URL)
				}
			},
			teardown: func() { *flagAsset = "" },
		},
		{
			name: "gradient variant",
			setup: func() {
				*flagBackground = BackgroundGradient
				*flagTransparent = true
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Background.Mode != BackgroundGradient {
					t.Errorf("expected gradient, got %s", cfg.Background.Mode)
				}
				if !cfg.Window.Transparent {
					t.Error("expected transparent surface")
				}
			},
			teardown: func() {
				*flagBackground = ""
				*flagTransparent = false
			},
		},
		{
			name: "environment flags",
			setup: func() {
				*flagNoEnv = true
				*flagEnvBackground = true
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Environment.Enabled {
					t.Error("expected environment disabled")
				}
				if !cfg.Environment.AsBackground {
					t.Error("expected environment background enabled")
				}
			},
			teardown: func() {
				*flagNoEnv = false
				*flagEnvBackground = false
			},
		},
		{
			name: "screenshot flags",
			setup: func() {
				*flagScreenshotDir = "shots"
				*flagScreenshotX = 3
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Screenshot.Dir != "shots" || cfg.Screenshot.Scale != 3 {
					t.Errorf("unexpected screenshot config %+v", cfg.Screenshot)
				}
			},
			teardown: func() {
				*flagScreenshotDir = ""
				*flagScreenshotX = 0
			},
		},
		{
			name: "width and height flags",
			setup: func() {
				*flagWidth = 1600
				*flagHeight = 900
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Window.Width != 1600 || cfg.Window.Height != 900 {
					t.Errorf("expected 1600x900, got %dx%d", cfg.Window.Width, cfg.Window.Height)
				}
			},
			teardown: func() {
				*flagWidth = 0
				*flagHeight = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
window:
  width: 1600
  height: 900
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagWidth = 1920
	defer func() {
		*flagConfig = ""
		*flagWidth = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Width from flag, height from file
	if cfg.Window.Width != 1920 {
		t.Errorf("expected width 1920 from flag, got %d", cfg.Window.Width)
	}
	if cfg.Window.Height != 900 {
		t.Errorf("expected height 900 from file, got %d", cfg.Window.Height)
	}
}
