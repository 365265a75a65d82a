package camera

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const eps = 1e-4

func TestNewPerspectiveDefaults(t *testing.T) {
	c := NewPerspective(0.8, 0, 0.1, 0)
	if c.Aspect != 1 {
		t.Errorf("expected aspect fallback 1, got %v", c.Aspect)
	}
	if c.Far != DefaultFar {
		t.Errorf("expected default far %v, got %v", DefaultFar, c.Far)
	}
	want := mgl32.Perspective(0.8, 1, 0.1, DefaultFar)
	if !c.ProjectionMatrix().ApproxEqual(want) {
		t.Errorf("unexpected projection %v", c.ProjectionMatrix())
	}
}

func TestSetAspectNeedsUpdate(t *testing.T) {
	c := NewPerspective(0.8, 4.0/3.0, 0.1, 100)
	before := c.ProjectionMatrix()

	c.SetAspect(16.0 / 9.0)
	if c.ProjectionMatrix() != before {
		t.Error("projection changed before UpdateProjectionMatrix")
	}
	c.UpdateProjectionMatrix()
	want := mgl32.Perspective(0.8, 16.0/9.0, 0.1, 100)
	if !c.ProjectionMatrix().ApproxEqual(want) {
		t.Errorf("unexpected projection after update %v", c.ProjectionMatrix())
	}

	c.SetAspect(-1)
	if c.Aspect != 16.0/9.0 {
		t.Errorf("negative aspect should be ignored, got %v", c.Aspect)
	}
}

func TestOrthographicAspect(t *testing.T) {
	c := NewOrthographic(2, 1, 0.1, 10)
	if c.Aspect != 2 {
		t.Errorf("expected aspect 2, got %v", c.Aspect)
	}
	c.SetAspect(3)
	c.UpdateProjectionMatrix()
	if c.XMag != 3 || c.YMag != 1 {
		t.Errorf("expected xmag 3 ymag 1, got %v/%v", c.XMag, c.YMag)
	}
}

func TestSetWorldTransform(t *testing.T) {
	c := NewPerspective(0.8, 1, 0.1, 100)
	rot := mgl32.QuatRotate(math32.Pi/2, mgl32.Vec3{0, 1, 0})
	m := mgl32.Translate3D(1, 2, 3).Mul4(rot.Mat4()).Mul4(mgl32.Scale3D(2, 2, 2))

	c.SetWorldTransform(m)
	if !c.Position.ApproxEqualThreshold(mgl32.Vec3{1, 2, 3}, eps) {
		t.Errorf("unexpected position %v", c.Position)
	}
	// rotated 90 degrees about +Y, -Z turns into -X
	if f := c.Forward(); !f.ApproxEqualThreshold(mgl32.Vec3{-1, 0, 0}, eps) {
		t.Errorf("unexpected forward %v", f)
	}

	// view matrix maps the camera position to the origin
	p := c.ViewMatrix().Mul4x1(mgl32.Vec4{1, 2, 3, 1})
	if !p.Vec3().ApproxEqualThreshold(mgl32.Vec3{}, eps) {
		t.Errorf("camera position not at view origin: %v", p)
	}
}

func TestLookAt(t *testing.T) {
	c := NewPerspective(0.8, 1, 0.1, 100)
	c.Position = mgl32.Vec3{0, 0, 5}
	c.LookAt(mgl32.Vec3{})
	if f := c.Forward(); !f.ApproxEqualThreshold(mgl32.Vec3{0, 0, -1}, eps) {
		t.Errorf("expected forward -Z, got %v", f)
	}

	c.Position = mgl32.Vec3{3, 0, 0}
	c.LookAt(mgl32.Vec3{})
	if f := c.Forward(); !f.ApproxEqualThreshold(mgl32.Vec3{-1, 0, 0}, eps) {
		t.Errorf("expected forward -X, got %v", f)
	}
}
