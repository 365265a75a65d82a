// Package background derives the backdrop gradient from scene metadata.
package background

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/glbview/internal/asset"
)

// ExtSceneBackground is the scene-root extension carrying the gradient.
const ExtSceneBackground = "HYB_scene_background"

// Gradient is a two-stop vertical gradient, top at 0% and bottom at 100%.
type Gradient struct {
	Top    [3]float64
	Bottom [3]float64
}

type metadata struct {
	TopColor    []float64 `json:"topcolor"`
	BottomColor []float64 `json:"bottomcolor"`
}

// FromExtensions reads the gradient from scene-root extensions. ok is false
// when the extension is absent or either colour is not a 3-element array.
func FromExtensions(ext map[string]any) (g Gradient, ok bool) {
	var md metadata
	if found, err := asset.UnmarshalExtension(ext, ExtSceneBackground, &md); !found || err != nil {
		return Gradient{}, false
	}
	if len(md.TopColor) != 3 || len(md.BottomColor) != 3 {
		return Gradient{}, false
	}
	copy(g.Top[:], md.TopColor)
	copy(g.Bottom[:], md.BottomColor)
	return g, true
}

// Hex formats a normalized colour as #rrggbb. Each channel is scaled by 255,
// rounded to nearest and clamped.
func Hex(c [3]float64) string {
	return fmt.Sprintf("#%02x%02x%02x", channel(c[0]), channel(c[1]), channel(c[2]))
}

func channel(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	r := math.Round(v * 255)
	if r < 0 {
		return 0
	}
	if r > 255 {
		return 255
	}
	return uint8(r)
}

// CSS renders the gradient the way a page backdrop would declare it.
func (g Gradient) CSS() string {
	return fmt.Sprintf("linear-gradient(%s 0%%, %s 100%%)", Hex(g.Top), Hex(g.Bottom))
}

// Stops returns the quantized top and bottom colours as they are drawn.
func (g Gradient) Stops() (top, bottom mgl32.Vec3) {
	return quantize(g.Top), quantize(g.Bottom)
}

func quantize(c [3]float64) mgl32.Vec3 {
	return mgl32.Vec3{
		float32(channel(c[0])) / 255,
		float32(channel(c[1])) / 255,
		float32(channel(c[2])) / 255,
	}
}
