// Package main is the entry point for the glbview scene viewer.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/glbview/internal/asset"
	"github.com/Faultbox/glbview/internal/config"
	"github.com/Faultbox/glbview/internal/engine/debug"
	"github.com/Faultbox/glbview/internal/engine/envmap"
	"github.com/Faultbox/glbview/internal/engine/input"
	"github.com/Faultbox/glbview/internal/engine/renderer"
	"github.com/Faultbox/glbview/internal/engine/window"
	"github.com/Faultbox/glbview/internal/logger"
	"github.com/Faultbox/glbview/internal/viewer"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if dest := config.WriteConfigPath(); dest != "" {
		if err := writeConfig(cfg, dest, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== glbview ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.HeadlessCheck() {
		err = runHeadless(ctx, cfg, config.DumpEnvPrefix())
	} else {
		err = run(ctx, cfg)
	}
	if err != nil {
		logger.Error("viewer error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("viewer closed normally")
}

func run(ctx context.Context, cfg *config.Config) error {
	win, err := window.New(window.Config{
		Title:      cfg.Window.Title,
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		Fullscreen: cfg.Window.Fullscreen,
		VSync:      cfg.Window.VSync,
		Alpha:      cfg.Window.Transparent,
	})
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}
	defer win.Close()
	win.SetTitle(windowTitle(cfg))

	// Create renderer (AFTER window, since OpenGL context must exist)
	width, height := win.DrawableSize()
	r, err := renderer.New(renderer.Config{
		Width:     width,
		Height:    height,
		Alpha:     win.HasAlpha(),
		Prefilter: prefilterOptions(cfg),
	})
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	defer r.Close()

	loader := newLoader(cfg)
	loader.Decoders().DetectSupport(r.Capabilities())

	v := viewer.New(viewerOptions(cfg), r, loader, width, height)
	v.Start(ctx)

	shots := debug.NewScreenshotCapture(cfg.Screenshot.Dir, "glbview")
	return v.Run(ctx, win, input.New(), func(pixels []byte, w, h int) {
		path, err := shots.CaptureFromPixels(pixels, w, h)
		if err != nil {
			logger.Warn("screenshot failed", zap.Error(err))
			return
		}
		logger.Info("screenshot saved", zap.String("path", path))
	})
}

// writeConfig dumps the merged configuration for --write-config. A dest
// of "-" writes the YAML to stdout.
func writeConfig(cfg *config.Config, dest string, stdout io.Writer) error {
	if dest == "-" {
		return cfg.Encode(stdout)
	}
	if err := cfg.SaveTo(dest); err != nil {
		return fmt.Errorf("writing config to %s: %w", dest, err)
	}
	fmt.Fprintf(stdout, "wrote %s\n", dest)
	return nil
}

// windowTitle appends the asset's file name to the configured title.
func windowTitle(cfg *config.Config) string {
	name := path.Base(strings.TrimRight(cfg.Asset.URL, "/"))
	if name == "." || name == "/" || name == "" {
		return cfg.Window.Title
	}
	return cfg.Window.Title + " - " + name
}

func newLoader(cfg *config.Config) *asset.Loader {
	return asset.NewLoader(asset.Config{
		AssetsRoot:         cfg.Asset.AssetsRoot,
		DracoDecoderPath:   cfg.Asset.DracoDecoderPath,
		KTX2TranscoderPath: cfg.Asset.KTX2TranscoderPath,
		FetchTimeout:       cfg.Asset.FetchTimeout,
	})
}

func viewerOptions(cfg *config.Config) viewer.Options {
	opts := viewer.Options{
		URL:                   cfg.Asset.URL,
		SurfaceAlpha:          cfg.Window.Transparent,
		Environment:           cfg.Environment.Enabled,
		EnvironmentBackground: cfg.Environment.AsBackground,
		ScreenshotScale:       cfg.Screenshot.Scale,
	}
	if cfg.Background.Mode == config.BackgroundGradient {
		opts.Background = viewer.BackgroundGradientFromMetadata
	}
	return opts
}

func prefilterOptions(cfg *config.Config) envmap.Options {
	return envmap.Options{
		Size:    cfg.Environment.Size,
		Levels:  cfg.Environment.Levels,
		Samples: cfg.Environment.Samples,
	}
}
