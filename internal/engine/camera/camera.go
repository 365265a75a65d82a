// Package camera provides the scene camera and orbit-style controls.
package camera

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Projection kinds.
type Projection int

const (
	Perspective Projection = iota
	Orthographic
)

// DefaultFar is used when a perspective camera declares no far plane.
const DefaultFar = 2e6

// Camera is a positioned camera with a cached projection matrix. Callers
// change Aspect or the frustum fields and then call UpdateProjectionMatrix.
type Camera struct {
	Name       string
	Projection Projection

	// Perspective frustum
	FovY   float32 // radians
	Aspect float32
	Near   float32
	Far    float32

	// Orthographic half extents
	XMag float32
	YMag float32

	Position    mgl32.Vec3
	Orientation mgl32.Quat

	projection mgl32.Mat4
}

// NewPerspective creates a perspective camera at the origin looking down -Z.
func NewPerspective(fovY, aspect, near, far float32) *Camera {
	if aspect <= 0 {
		aspect = 1
	}
	if far <= 0 {
		far = DefaultFar
	}
	c := &Camera{
		Projection:  Perspective,
		FovY:        fovY,
		Aspect:      aspect,
		Near:        near,
		Far:         far,
		Orientation: mgl32.QuatIdent(),
	}
	c.UpdateProjectionMatrix()
	return c
}

// NewOrthographic creates an orthographic camera at the origin looking
// down -Z.
func NewOrthographic(xmag, ymag, near, far float32) *Camera {
	aspect := float32(1)
	if ymag != 0 {
		aspect = xmag / ymag
	}
	c := &Camera{
		Projection:  Orthographic,
		XMag:        xmag,
		YMag:        ymag,
		Aspect:      aspect,
		Near:        near,
		Far:         far,
		Orientation: mgl32.QuatIdent(),
	}
	c.UpdateProjectionMatrix()
	return c
}

// SetAspect sets the width/height ratio. The projection is not recomputed
// until UpdateProjectionMatrix.
func (c *Camera) SetAspect(aspect float32) {
	if aspect > 0 {
		c.Aspect = aspect
	}
}

// UpdateProjectionMatrix recomputes the projection from the frustum fields.
// Orthographic cameras keep YMag and derive XMag from the aspect.
func (c *Camera) UpdateProjectionMatrix() {
	switch c.Projection {
	case Orthographic:
		c.XMag = c.YMag * c.Aspect
		c.projection = mgl32.Ortho(-c.XMag, c.XMag, -c.YMag, c.YMag, c.Near, c.Far)
	default:
		c.projection = mgl32.Perspective(c.FovY, c.Aspect, c.Near, c.Far)
	}
}

// ProjectionMatrix returns the matrix computed by the last
// UpdateProjectionMatrix.
func (c *Camera) ProjectionMatrix() mgl32.Mat4 {
	return c.projection
}

// ViewMatrix returns the inverse of the camera's world transform.
func (c *Camera) ViewMatrix() mgl32.Mat4 {
	rot := c.Orientation.Conjugate().Mat4()
	return rot.Mul4(mgl32.Translate3D(-c.Position[0], -c.Position[1], -c.Position[2]))
}

// ViewProjection returns projection * view.
func (c *Camera) ViewProjection() mgl32.Mat4 {
	return c.projection.Mul4(c.ViewMatrix())
}

// SetWorldTransform places the camera from a node's world matrix. Scale is
// discarded.
func (c *Camera) SetWorldTransform(m mgl32.Mat4) {
	c.Position = m.Col(3).Vec3()

	x := m.Col(0).Vec3().Normalize()
	y := m.Col(1).Vec3().Normalize()
	z := m.Col(2).Vec3().Normalize()
	rot := mgl32.Mat3FromCols(x, y, z)
	c.Orientation = mgl32.Mat4ToQuat(rot.Mat4()).Normalize()
}

// LookAt orients the camera towards target with +Y up.
func (c *Camera) LookAt(target mgl32.Vec3) {
	if c.Position.ApproxEqual(target) {
		return
	}
	view := mgl32.LookAtV(c.Position, target, mgl32.Vec3{0, 1, 0})
	c.Orientation = mgl32.Mat4ToQuat(view).Conjugate().Normalize()
}

// Forward returns the world-space viewing direction.
func (c *Camera) Forward() mgl32.Vec3 {
	return c.Orientation.Rotate(mgl32.Vec3{0, 0, -1})
}
