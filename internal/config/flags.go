package config

import "flag"

var (
	flagConfig        = flag.String("config", "", "Path to config file")
	flagDebug         = flag.Bool("debug", false, "Enable debug logging")
	flagAsset         = flag.String("asset", "", "Asset URL or path (.glb/.gltf)")
	flagWindowed      = flag.Bool("windowed", false, "Run in windowed mode")
	flagFullscreen    = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth         = flag.Int("width", 0, "Window width")
	flagHeight        = flag.Int("height", 0, "Window height")
	flagBackground    = flag.String("background", "", "Backdrop mode: none or gradient")
	flagTransparent   = flag.Bool("transparent", false, "Create the surface with an alpha channel")
	flagNoEnv         = flag.Bool("no-env", false, "Skip HDR environment extraction")
	flagEnvBackground = flag.Bool("env-background", false, "Show the prefiltered environment as background")
	flagHeadless      = flag.Bool("headless-check", false, "Load the asset without a window, report and exit")
	flagDumpEnv       = flag.String("dump-env", "", "Write the prefiltered environment levels as EXR files with this path prefix")
	flagScreenshotDir = flag.String("screenshot-dir", "", "Directory for F12 screenshots")
	flagScreenshotX   = flag.Int("screenshot-scale", 0, "Render F12 screenshots at this multiple of the window size")
	flagWriteConfig   = flag.String("write-config", "", "Write the effective config as YAML to this path (- for stdout) and exit")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// HeadlessCheck reports whether --headless-check was given.
func HeadlessCheck() bool {
	return *flagHeadless
}

// DumpEnvPrefix returns the --dump-env path prefix, or "".
func DumpEnvPrefix() string {
	return *flagDumpEnv
}

// WriteConfigPath returns the --write-config destination, or "".
func WriteConfigPath() string {
	return *flagWriteConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagAsset != "" {
		cfg.Asset.URL = *flagAsset
	}
	if *flagWindowed {
		cfg.Window.Fullscreen = false
	}
	if *flagFullscreen {
		cfg.Window.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
	}
	if *flagBackground != "" {
		cfg.Background.Mode = *flagBackground
	}
	if *flagTransparent {
		cfg.Window.Transparent = true
	}
	if *flagNoEnv {
		cfg.Environment.Enabled = false
	}
	if *flagEnvBackground {
		cfg.Environment.AsBackground = true
	}
	if *flagScreenshotDir != "" {
		cfg.Screenshot.Dir = *flagScreenshotDir
	}
	if *flagScreenshotX > 0 {
		cfg.Screenshot.Scale = *flagScreenshotX
	}
}
