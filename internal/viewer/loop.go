package viewer

import (
	"context"
	"fmt"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/glbview/internal/engine/camera"
	"github.com/Faultbox/glbview/internal/engine/input"
	"github.com/Faultbox/glbview/internal/engine/picking"
	"github.com/Faultbox/glbview/internal/engine/scene"
)

// Surface is the window the viewer presents to. GetSize is in the same
// screen coordinates as pointer events; DrawableSize is in pixels.
type Surface interface {
	SwapBuffers()
	GetSize() (int, int)
	DrawableSize() (int, int)
}

// EventSource yields translated input events once per frame.
type EventSource interface {
	// Update polls pending events and reports whether the user asked to quit.
	Update() bool
	Events() []input.Event
}

// Screenshotter is implemented by renderers that can read back the frame.
type Screenshotter interface {
	Snapshot(s *scene.Scene, cam *camera.Camera, scale int) ([]byte, int, int, error)
}

// Tick renders one frame from the established camera. Before a camera is
// established, or when the asset has none, it does nothing.
func (v *Viewer) Tick() {
	c := v.controls.Load()
	if c == nil {
		return
	}
	if c != v.bound {
		// controls created on the load chain pick up the current size here
		c.Resize(v.width, v.height)
		v.bound = c
	}
	v.renderer.Render(v.scene, c.Camera)
}

// Resize resizes the surface and, when a camera exists, updates its aspect
// and projection. Repeating the same size is harmless.
func (v *Viewer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	v.width, v.height = width, height
	v.renderer.SetSize(width, height)
	if c := v.controls.Load(); c != nil {
		c.Resize(width, height)
		v.bound = c
	}
}

// Size returns the current surface size.
func (v *Viewer) Size() (int, int) {
	return v.width, v.height
}

// Run polls input, ticks and presents until the user quits or ctx ends.
// capture, if non-nil, is called with the frame when F12 is pressed.
func (v *Viewer) Run(ctx context.Context, surface Surface, events EventSource, capture func(pixels []byte, w, h int)) error {
	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	v.log.Info("starting render loop")

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		now := time.Now()
		dt := now.Sub(lastTime).Seconds()
		lastTime = now

		if events.Update() {
			return nil
		}
		quit, shot := v.handleEvents(events.Events(), surface)
		if quit {
			return nil
		}

		v.Tick()

		if shot && capture != nil {
			if err := v.screenshot(capture); err != nil {
				return err
			}
		}

		surface.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			v.log.Debug("fps", zap.Int("count", frameCount), zap.String("dt", fmt.Sprintf("%.2fms", dt*1000)))
			frameCount = 0
			fpsTimer = time.Now()
		}
	}
}

// screenshot reads back the current camera's view. Failures other than a
// renderer that cannot read pixels are logged and skipped.
func (v *Viewer) screenshot(capture func(pixels []byte, w, h int)) error {
	s, ok := v.renderer.(Screenshotter)
	if !ok {
		return fmt.Errorf("renderer %T cannot read pixels", v.renderer)
	}
	c := v.controls.Load()
	if c == nil {
		v.log.Info("nothing rendered yet, screenshot skipped")
		return nil
	}
	pixels, w, h, err := s.Snapshot(v.scene, c.Camera, max(v.opts.ScreenshotScale, 1))
	if err != nil {
		v.log.Warn("screenshot failed", zap.Error(err))
		return nil
	}
	capture(pixels, w, h)
	return nil
}

// handleEvents dispatches one frame of events.
func (v *Viewer) handleEvents(events []input.Event, surface Surface) (quit, screenshot bool) {
	c := v.controls.Load()
	for _, e := range events {
		switch e.Type {
		case input.EventQuit:
			return true, screenshot
		case input.EventWindowResize:
			// event sizes are in screen coordinates; the surface is in pixels
			v.Resize(surface.DrawableSize())
		case input.EventKeyDown:
			switch e.Key {
			case sdl.SCANCODE_ESCAPE:
				return true, screenshot
			case sdl.SCANCODE_F12:
				screenshot = true
			}
		case input.EventMouseMove:
			if c == nil {
				continue
			}
			switch {
			case e.Held(input.ButtonLeft):
				c.HandleDrag(e.DeltaX, e.DeltaY)
			case e.Held(input.ButtonRight), e.Held(input.ButtonMiddle):
				c.HandlePan(e.DeltaX, e.DeltaY)
			}
		case input.EventMouseDown:
			if c != nil && e.Button == input.ButtonLeft && e.Clicks == 2 {
				v.focus(c, e.MouseX, e.MouseY, surface)
			}
		case input.EventMouseWheel:
			if c != nil {
				c.HandleZoom(e.DeltaY)
			}
		}
	}
	return false, screenshot
}

// focus re-centres the orbit on the mesh under the pointer.
func (v *Viewer) focus(c *camera.OrbitControls, x, y int, surface Surface) {
	w, h := surface.GetSize()
	if w <= 0 || h <= 0 {
		return
	}
	inv := c.Camera.ViewProjection().Inv()
	ray := picking.ScreenToRay(float32(x), float32(y), float32(w), float32(h), inv)
	hit, ok := picking.Pick(v.scene, ray)
	if !ok {
		return
	}
	c.SetTarget(hit.Bounds.Center())
	v.log.Debug("orbit target moved", zap.String("node", hit.Node.Name))
}
