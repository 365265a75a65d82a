package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/glbview/internal/config"
	"github.com/Faultbox/glbview/internal/engine/background"
	"github.com/Faultbox/glbview/internal/engine/camera"
	"github.com/Faultbox/glbview/internal/engine/envmap"
	"github.com/Faultbox/glbview/internal/engine/scene"
	"github.com/Faultbox/glbview/internal/logger"
	"github.com/Faultbox/glbview/internal/viewer"
)

// headlessRenderer stands in for the GL renderer when no window is opened.
type headlessRenderer struct {
	prefilter envmap.Options

	mu       sync.Mutex
	frames   int
	backdrop *background.Gradient
}

func (h *headlessRenderer) Render(*scene.Scene, *camera.Camera) {
	h.mu.Lock()
	h.frames++
	h.mu.Unlock()
}

func (h *headlessRenderer) SetSize(int, int) {}

func (h *headlessRenderer) NewPrefilterGenerator() envmap.Generator {
	return envmap.NewPMREMGenerator(h.prefilter)
}

func (h *headlessRenderer) SetBackdrop(g *background.Gradient) {
	h.mu.Lock()
	h.backdrop = g
	h.mu.Unlock()
}

func (h *headlessRenderer) SetEnvironmentBackground(bool) {}

// runHeadless runs both loading chains without a window, renders one frame
// into the null renderer and reports what the asset provided.
func runHeadless(ctx context.Context, cfg *config.Config, dumpPrefix string) error {
	r := &headlessRenderer{prefilter: prefilterOptions(cfg)}
	v := viewer.New(viewerOptions(cfg), r, newLoader(cfg), cfg.Window.Width, cfg.Window.Height)
	v.Start(ctx)
	v.Wait()
	v.Tick()

	fields := []zap.Field{
		zap.String("url", cfg.Asset.URL),
		zap.Bool("camera", v.Controls() != nil),
		zap.Int("frames", r.frames),
	}
	if r.backdrop != nil {
		fields = append(fields, zap.String("backdrop", r.backdrop.CSS()))
	}
	env := v.Scene().Environment()
	if env != nil {
		fields = append(fields, zap.Int("environment_levels", len(env.Levels)))
	}
	logger.Info("headless check finished", fields...)

	if env != nil && dumpPrefix != "" {
		if err := dumpEnvironment(env, dumpPrefix); err != nil {
			return err
		}
	}

	if errs := v.Errors(); len(errs) > 0 {
		return fmt.Errorf("headless check: %w", errors.Join(errs...))
	}
	return nil
}

func dumpEnvironment(env *envmap.Prefiltered, prefix string) error {
	for i := range env.Levels {
		path := fmt.Sprintf("%s_%d.exr", prefix, i)
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		err = env.EncodeLevel(f, i)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		logger.Info("environment level written", zap.String("path", path), zap.Int("level", i))
	}
	return nil
}
