package lighting

import (
	"github.com/go-gl/mathgl/mgl32"
)

// MaxPointLights is the maximum number of point lights supported in shaders.
const MaxPointLights = 8

// MaxDirectionalLights is the maximum number of directional lights
// supported in shaders.
const MaxDirectionalLights = 4

// PointLight is a positioned light ready for GPU upload.
type PointLight struct {
	Position  [3]float32 // World position
	Color     [3]float32 // RGB color (0-1 range)
	Range     float32    // 0 means no cutoff
	Intensity float32
}

// DirectionalLight is an infinitely distant light ready for GPU upload.
type DirectionalLight struct {
	Direction [3]float32 // direction the light travels, normalized
	Color     [3]float32
	Intensity float32
}

// PointLightBuffer holds the lights of one frame.
type PointLightBuffer struct {
	Lights      []PointLight
	Directional []DirectionalLight
}

// NewPointLightBuffer creates an empty light buffer.
func NewPointLightBuffer() *PointLightBuffer {
	return &PointLightBuffer{
		Lights:      make([]PointLight, 0, MaxPointLights),
		Directional: make([]DirectionalLight, 0, MaxDirectionalLights),
	}
}

// Clear removes all lights from the buffer.
func (b *PointLightBuffer) Clear() {
	b.Lights = b.Lights[:0]
	b.Directional = b.Directional[:0]
}

// Add places l with a node's world matrix. Lights beyond the shader limits
// are dropped and Add returns false.
func (b *PointLightBuffer) Add(l Light, world mgl32.Mat4) bool {
	switch l.Kind {
	case Directional:
		if len(b.Directional) >= MaxDirectionalLights {
			return false
		}
		b.Directional = append(b.Directional, DirectionalLight{
			Direction: Direction(world),
			Color:     l.Color,
			Intensity: l.Intensity,
		})
	default:
		if len(b.Lights) >= MaxPointLights {
			return false
		}
		p := world.Col(3)
		b.Lights = append(b.Lights, PointLight{
			Position:  [3]float32{p[0], p[1], p[2]},
			Color:     l.Color,
			Range:     l.Range,
			Intensity: l.Intensity,
		})
	}
	return true
}

// Direction returns the node's -Z axis in world space, the direction
// glTF lights point along.
func Direction(world mgl32.Mat4) [3]float32 {
	d := world.Mul4x1(mgl32.Vec4{0, 0, -1, 0}).Vec3()
	if d.Len() == 0 {
		return [3]float32{0, 0, -1}
	}
	d = d.Normalize()
	return [3]float32{d[0], d[1], d[2]}
}

// GetPositions returns positions as a flat float32 slice for GPU upload.
// Format: [x0, y0, z0, x1, y1, z1, ...]
func (b *PointLightBuffer) GetPositions() []float32 {
	result := make([]float32, MaxPointLights*3)
	for i, light := range b.Lights {
		result[i*3+0] = light.Position[0]
		result[i*3+1] = light.Position[1]
		result[i*3+2] = light.Position[2]
	}
	return result
}

// GetColors returns colors premultiplied by intensity.
func (b *PointLightBuffer) GetColors() []float32 {
	result := make([]float32, MaxPointLights*3)
	for i, light := range b.Lights {
		result[i*3+0] = light.Color[0] * light.Intensity
		result[i*3+1] = light.Color[1] * light.Intensity
		result[i*3+2] = light.Color[2] * light.Intensity
	}
	return result
}

// GetRanges returns ranges as a flat float32 slice for GPU upload.
func (b *PointLightBuffer) GetRanges() []float32 {
	result := make([]float32, MaxPointLights)
	for i, light := range b.Lights {
		result[i] = light.Range
	}
	return result
}

// GetDirections returns directional light directions, flat.
func (b *PointLightBuffer) GetDirections() []float32 {
	result := make([]float32, MaxDirectionalLights*3)
	for i, light := range b.Directional {
		copy(result[i*3:], light.Direction[:])
	}
	return result
}

// GetDirectionalColors returns directional colors premultiplied by
// intensity.
func (b *PointLightBuffer) GetDirectionalColors() []float32 {
	result := make([]float32, MaxDirectionalLights*3)
	for i, light := range b.Directional {
		result[i*3+0] = light.Color[0] * light.Intensity
		result[i*3+1] = light.Color[1] * light.Intensity
		result[i*3+2] = light.Color[2] * light.Intensity
	}
	return result
}
