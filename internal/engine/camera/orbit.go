package camera

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// OrbitControls orbits a camera around a target point.
type OrbitControls struct {
	Camera *Camera
	Target mgl32.Vec3

	// Spherical coordinates relative to Target
	Distance  float32
	RotationX float32 // Pitch (elevation above the target's horizon, radians)
	RotationY float32 // Yaw (radians, 0 looks down -Z)

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	// Sensitivity
	DragSensitivity float32
	ZoomSensitivity float32
	PanSensitivity  float32
}

const pitchLimit = math32.Pi/2 - 1e-3

// NewOrbitControls attaches controls to cam, orbiting the origin from the
// camera's current position, and points the camera at the origin.
func NewOrbitControls(cam *Camera) *OrbitControls {
	o := &OrbitControls{
		Camera:          cam,
		MinDistance:     1e-3,
		MaxDistance:     math.MaxFloat32,
		MinPitch:        -pitchLimit,
		MaxPitch:        pitchLimit,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
		PanSensitivity:  0.002,
	}
	o.syncFromCamera()
	o.Update()
	return o
}

// syncFromCamera derives spherical coordinates from the camera position.
func (o *OrbitControls) syncFromCamera() {
	offset := o.Camera.Position.Sub(o.Target)
	o.Distance = offset.Len()
	if o.Distance < o.MinDistance {
		// camera sits on the target; back off along its view direction
		o.Distance = 1
		offset = o.Camera.Forward().Mul(-1)
	}
	dir := offset.Normalize()
	o.RotationX = math32.Asin(clamp(dir[1], -1, 1))
	o.RotationY = math32.Atan2(dir[0], dir[2])
	o.clampPitch()
}

// Position returns the orbit position in world space.
func (o *OrbitControls) Position() mgl32.Vec3 {
	cp := math32.Cos(o.RotationX)
	return mgl32.Vec3{
		o.Target[0] + o.Distance*cp*math32.Sin(o.RotationY),
		o.Target[1] + o.Distance*math32.Sin(o.RotationX),
		o.Target[2] + o.Distance*cp*math32.Cos(o.RotationY),
	}
}

// Update moves the camera to the orbit position and aims it at the target.
func (o *OrbitControls) Update() {
	o.Camera.Position = o.Position()
	o.Camera.LookAt(o.Target)
}

// HandleDrag rotates around the target from a pointer delta in pixels.
func (o *OrbitControls) HandleDrag(deltaX, deltaY float32) {
	o.RotationY -= deltaX * o.DragSensitivity
	o.RotationX += deltaY * o.DragSensitivity
	o.clampPitch()
	o.Update()
}

// HandleZoom dollies towards (positive delta) or away from the target.
func (o *OrbitControls) HandleZoom(delta float32) {
	o.Distance -= delta * o.Distance * o.ZoomSensitivity
	o.Distance = clamp(o.Distance, o.MinDistance, o.MaxDistance)
	o.Update()
}

// HandlePan moves the target in the camera's screen plane. Speed scales
// with distance.
func (o *OrbitControls) HandlePan(deltaX, deltaY float32) {
	speed := o.Distance * o.PanSensitivity
	right := o.Camera.Orientation.Rotate(mgl32.Vec3{1, 0, 0})
	up := o.Camera.Orientation.Rotate(mgl32.Vec3{0, 1, 0})

	move := right.Mul(-deltaX * speed).Add(up.Mul(deltaY * speed))
	o.Target = o.Target.Add(move)
	o.Update()
}

// SetTarget re-centres the orbit on target without moving the camera.
func (o *OrbitControls) SetTarget(target mgl32.Vec3) {
	o.Target = target
	o.syncFromCamera()
	o.Update()
}

// Resize updates the camera aspect and projection for a new viewport.
// Position and orientation are left untouched.
func (o *OrbitControls) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	o.Camera.SetAspect(float32(width) / float32(height))
	o.Camera.UpdateProjectionMatrix()
}

func (o *OrbitControls) clampPitch() {
	o.RotationX = clamp(o.RotationX, o.MinPitch, o.MaxPitch)
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
