// Package config handles viewer configuration loading and management.
package config

import "time"

// Background modes.
const (
	BackgroundNone     = "none"
	BackgroundGradient = "gradient"
)

// Config holds all viewer settings.
type Config struct {
	Window      WindowConfig      `yaml:"window"`
	Asset       AssetConfig       `yaml:"asset"`
	Background  BackgroundConfig  `yaml:"background"`
	Environment EnvironmentConfig `yaml:"environment"`
	Screenshot  ScreenshotConfig  `yaml:"screenshot"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// WindowConfig holds display surface settings. Transparent requests an
// alpha channel on the drawing surface; the gradient backdrop is only
// visible through a transparent surface.
type WindowConfig struct {
	Title       string `yaml:"title"`
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	Fullscreen  bool   `yaml:"fullscreen"`
	VSync       bool   `yaml:"vsync"`
	Transparent bool   `yaml:"transparent"`
}

// AssetConfig holds the scene asset location and sub-decoder paths.
type AssetConfig struct {
	URL                string        `yaml:"url"`
	AssetsRoot         string        `yaml:"assets_root"`
	DracoDecoderPath   string        `yaml:"draco_decoder_path"`
	KTX2TranscoderPath string        `yaml:"ktx2_transcoder_path"`
	FetchTimeout       time.Duration `yaml:"fetch_timeout"`
}

// BackgroundConfig selects the backdrop behind the render surface.
type BackgroundConfig struct {
	Mode string `yaml:"mode"` // "none" or "gradient"
}

// EnvironmentConfig controls HDR environment extraction and prefiltering.
type EnvironmentConfig struct {
	Enabled      bool `yaml:"enabled"`
	AsBackground bool `yaml:"as_background"`
	Size         int  `yaml:"size"`    // width of the roughness-0 level
	Levels       int  `yaml:"levels"`  // number of roughness levels
	Samples      int  `yaml:"samples"` // GGX samples per texel
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// ScreenshotConfig controls F12 captures.
type ScreenshotConfig struct {
	Dir   string `yaml:"dir"`
	Scale int    `yaml:"scale"` // multiple of the surface size
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:       "glbview",
			Width:       1280,
			Height:      720,
			Fullscreen:  false,
			VSync:       true,
			Transparent: false,
		},
		Asset: AssetConfig{
			URL:                "carton_for_torben.glb",
			AssetsRoot:         "assets",
			DracoDecoderPath:   "draco/",
			KTX2TranscoderPath: "basis/",
			FetchTimeout:       30 * time.Second,
		},
		Background: BackgroundConfig{
			Mode: BackgroundNone,
		},
		Environment: EnvironmentConfig{
			Enabled:      true,
			AsBackground: false,
			Size:         512,
			Levels:       6,
			Samples:      64,
		},
		Screenshot: ScreenshotConfig{
			Dir:   "screenshots",
			Scale: 1,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
