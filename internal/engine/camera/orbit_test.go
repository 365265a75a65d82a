package camera

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

func newTestControls() *OrbitControls {
	cam := NewPerspective(0.8, 800.0/600.0, 0.1, 100)
	cam.Position = mgl32.Vec3{0, 2, 8}
	return NewOrbitControls(cam)
}

func TestNewOrbitControls(t *testing.T) {
	o := newTestControls()

	wantDist := math32.Sqrt(4 + 64)
	if math32.Abs(o.Distance-wantDist) > eps {
		t.Errorf("expected distance %v, got %v", wantDist, o.Distance)
	}
	if math32.Abs(o.RotationY) > eps {
		t.Errorf("expected yaw 0, got %v", o.RotationY)
	}
	if !o.Camera.Position.ApproxEqualThreshold(mgl32.Vec3{0, 2, 8}, eps) {
		t.Errorf("camera moved on attach: %v", o.Camera.Position)
	}
	want := mgl32.Vec3{0, -2, -8}.Normalize()
	if f := o.Camera.Forward(); !f.ApproxEqualThreshold(want, eps) {
		t.Errorf("expected camera aimed at origin, forward %v", f)
	}
}

func TestResizeKeepsPose(t *testing.T) {
	o := newTestControls()
	o.Resize(800, 600)
	pos := o.Camera.Position
	orient := o.Camera.Orientation

	o.Resize(1600, 900)

	if o.Camera.Aspect != float32(1600)/float32(900) {
		t.Errorf("expected aspect 1600/900, got %v", o.Camera.Aspect)
	}
	want := mgl32.Perspective(0.8, float32(1600)/float32(900), 0.1, 100)
	if !o.Camera.ProjectionMatrix().ApproxEqual(want) {
		t.Error("projection not updated")
	}
	if o.Camera.Position != pos {
		t.Errorf("position changed: %v -> %v", pos, o.Camera.Position)
	}
	if o.Camera.Orientation != orient {
		t.Errorf("orientation changed: %v -> %v", orient, o.Camera.Orientation)
	}

	o.Resize(0, 900)
	if o.Camera.Aspect != float32(1600)/float32(900) {
		t.Error("zero-size resize should be ignored")
	}
}

func TestHandleDrag(t *testing.T) {
	o := newTestControls()
	dist := o.Distance

	o.HandleDrag(-100, 0)
	if math32.Abs(o.RotationY-0.5) > eps {
		t.Errorf("expected yaw 0.5, got %v", o.RotationY)
	}
	if d := o.Camera.Position.Len(); math32.Abs(d-dist) > eps {
		t.Errorf("drag changed distance: %v -> %v", dist, d)
	}

	o.HandleDrag(0, 1e6)
	if o.RotationX != o.MaxPitch {
		t.Errorf("expected pitch clamped to %v, got %v", o.MaxPitch, o.RotationX)
	}
}

func TestHandleZoom(t *testing.T) {
	o := newTestControls()
	dist := o.Distance

	o.HandleZoom(1)
	if want := dist * 0.9; math32.Abs(o.Distance-want) > eps {
		t.Errorf("expected distance %v, got %v", want, o.Distance)
	}
	if d := o.Camera.Position.Len(); math32.Abs(d-o.Distance) > eps {
		t.Errorf("camera not at new distance: %v", d)
	}

	o.MinDistance = 2
	o.HandleZoom(100)
	if o.Distance != 2 {
		t.Errorf("expected min distance clamp, got %v", o.Distance)
	}
}

func TestHandlePan(t *testing.T) {
	cam := NewPerspective(0.8, 1, 0.1, 100)
	cam.Position = mgl32.Vec3{0, 0, 10}
	o := NewOrbitControls(cam)

	o.HandlePan(-50, 0)
	// dragging left moves the target right along +X
	if o.Target[0] <= 0 || math32.Abs(o.Target[1]) > eps {
		t.Errorf("unexpected target after pan %v", o.Target)
	}
	offset := o.Camera.Position.Sub(o.Target)
	if !offset.ApproxEqualThreshold(mgl32.Vec3{0, 0, 10}, 1e-3) {
		t.Errorf("pan should translate camera with target, offset %v", offset)
	}
}

func TestControlsOnTarget(t *testing.T) {
	cam := NewPerspective(0.8, 1, 0.1, 100)
	o := NewOrbitControls(cam)
	if o.Distance != 1 {
		t.Errorf("expected fallback distance 1, got %v", o.Distance)
	}
	if !o.Camera.Position.ApproxEqualThreshold(mgl32.Vec3{0, 0, 1}, eps) {
		t.Errorf("expected camera backed off to +Z, got %v", o.Camera.Position)
	}
}

func TestSetTarget(t *testing.T) {
	o := newTestControls()
	pos := o.Camera.Position

	o.SetTarget(mgl32.Vec3{0, 2, 0})

	if !o.Camera.Position.ApproxEqualThreshold(pos, eps) {
		t.Errorf("camera moved: %v -> %v", pos, o.Camera.Position)
	}
	if math32.Abs(o.Distance-8) > eps {
		t.Errorf("expected distance 8, got %v", o.Distance)
	}
	if f := o.Camera.Forward(); !f.ApproxEqualThreshold(mgl32.Vec3{0, 0, -1}, eps) {
		t.Errorf("expected camera aimed at new target, forward %v", f)
	}
}
