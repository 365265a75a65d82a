// Package viewer wires asset loading, scene assembly, environment setup and
// the render loop into one pipeline.
package viewer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Faultbox/glbview/internal/asset"
	"github.com/Faultbox/glbview/internal/engine/background"
	"github.com/Faultbox/glbview/internal/engine/camera"
	"github.com/Faultbox/glbview/internal/engine/envmap"
	"github.com/Faultbox/glbview/internal/engine/scene"
	"github.com/Faultbox/glbview/internal/logger"
)

// BackgroundMode selects the backdrop behind the render surface.
type BackgroundMode int

const (
	BackgroundNone BackgroundMode = iota
	// BackgroundGradientFromMetadata reads the gradient from the scene's
	// HYB_scene_background extension.
	BackgroundGradientFromMetadata
)

func (m BackgroundMode) String() string {
	if m == BackgroundGradientFromMetadata {
		return "gradient"
	}
	return "none"
}

// Options parameterize the pipeline. The gradient backdrop and the
// environment background are independent steps.
type Options struct {
	URL                   string
	Background            BackgroundMode
	SurfaceAlpha          bool
	Environment           bool
	EnvironmentBackground bool
	// ScreenshotScale multiplies the surface size for captures; 0 means 1.
	ScreenshotScale int
}

// Renderer is the drawing backend used by the viewer.
type Renderer interface {
	Render(s *scene.Scene, cam *camera.Camera)
	SetSize(width, height int)
	NewPrefilterGenerator() envmap.Generator
	SetBackdrop(g *background.Gradient)
	SetEnvironmentBackground(on bool)
}

// Loader fetches and parses a scene asset.
type Loader interface {
	Load(ctx context.Context, url string) (*asset.Container, error)
}

// Viewer owns the scene and drives both loading chains and the render loop.
// Tick, Resize and Run must be called from the render thread.
type Viewer struct {
	opts     Options
	renderer Renderer
	loader   Loader
	scene    *scene.Scene
	log      *zap.Logger

	// published once by the load chain
	controls atomic.Pointer[camera.OrbitControls]

	// render thread state
	bound  *camera.OrbitControls
	width  int
	height int

	wg      sync.WaitGroup
	errMu   sync.Mutex
	errs    []error
	started atomic.Bool
}

// New creates a viewer for a surface of width x height pixels.
func New(opts Options, r Renderer, l Loader, width, height int) *Viewer {
	v := &Viewer{
		opts:     opts,
		renderer: r,
		loader:   l,
		scene:    scene.New(),
		log:      logger.Named("viewer"),
		width:    width,
		height:   height,
	}
	r.SetSize(width, height)
	return v
}

// Scene returns the viewer's scene.
func (v *Viewer) Scene() *scene.Scene {
	return v.scene
}

// Controls returns the orbit controls once a camera has been established.
func (v *Viewer) Controls() *camera.OrbitControls {
	return v.controls.Load()
}

// Start launches the load chain. It returns immediately; ticks before the
// load completes draw nothing. Only the first call has an effect.
func (v *Viewer) Start(ctx context.Context) {
	if !v.started.CompareAndSwap(false, true) {
		return
	}
	v.log.Info("loading scene",
		zap.String("url", v.opts.URL),
		zap.Stringer("background", v.opts.Background),
		zap.Bool("environment", v.opts.Environment),
	)
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		v.load(ctx)
	}()
}

// Wait blocks until the load chain and, if started, the environment chain
// have finished.
func (v *Viewer) Wait() {
	v.wg.Wait()
}

// Errors returns the errors reported by both chains so far.
func (v *Viewer) Errors() []error {
	v.errMu.Lock()
	defer v.errMu.Unlock()
	return append([]error(nil), v.errs...)
}

func (v *Viewer) load(ctx context.Context) {
	c, err := v.loader.Load(ctx, v.opts.URL)
	if err != nil {
		v.reportError(err)
		return
	}

	if v.opts.Background == BackgroundGradientFromMetadata {
		v.applyGradient(c)
	}

	sel := scene.Assemble(v.scene, c)
	if cam, ok := sel.Get(); ok {
		v.controls.Store(camera.NewOrbitControls(cam))
	} else {
		v.log.Warn("asset has no camera, nothing will be rendered", zap.String("url", c.URL))
	}

	if v.opts.Environment {
		v.wg.Add(1)
		go func() {
			defer v.wg.Done()
			v.environment(ctx, c)
		}()
	}
}

func (v *Viewer) applyGradient(c *asset.Container) {
	g, ok := background.FromExtensions(c.SceneExtensions())
	if !ok {
		v.log.Debug("no background metadata in scene")
		return
	}
	v.renderer.SetBackdrop(&g)
	v.log.Info("background gradient applied",
		zap.String("css", g.CSS()),
		zap.Bool("visible", v.opts.SurfaceAlpha),
	)
}

func (v *Viewer) environment(ctx context.Context, c *asset.Container) {
	tex, err := envmap.Extract(ctx, c)
	if errors.Is(err, envmap.ErrEnvironmentNotFound) {
		return
	}
	if err != nil {
		v.reportError(err)
		return
	}

	p, err := v.renderer.NewPrefilterGenerator().FromEquirectangular(ctx, tex)
	if err != nil {
		v.reportError(err)
		return
	}
	if !v.scene.SetEnvironment(p) {
		return
	}
	if v.opts.EnvironmentBackground {
		v.renderer.SetEnvironmentBackground(true)
	}
	v.log.Info("environment installed",
		zap.Int("width", tex.Width),
		zap.Int("height", tex.Height),
		zap.Int("levels", len(p.Levels)),
	)
}

// reportError is the top-level handler for both chains. Every error is
// logged once here and nowhere else.
func (v *Viewer) reportError(err error) {
	v.errMu.Lock()
	v.errs = append(v.errs, err)
	v.errMu.Unlock()

	var loadErr *asset.LoadError
	var extractErr *envmap.ExtractionError
	switch {
	case errors.Is(err, context.Canceled):
		v.log.Debug("loading cancelled", zap.Error(err))
	case errors.As(err, &loadErr):
		v.log.Error("An error occurred while loading the GLTF model",
			zap.String("url", loadErr.URL),
			zap.String("op", loadErr.Op),
			zap.Error(loadErr.Err),
		)
	case errors.As(err, &extractErr):
		v.log.Error("environment map could not be resolved",
			zap.Int("image", extractErr.Image),
			zap.Int("buffer_view", extractErr.BufferView),
			zap.Error(extractErr.Err),
		)
	default:
		v.log.Error("environment setup failed", zap.Error(err))
	}
}
