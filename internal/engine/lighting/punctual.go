// Package lighting converts glTF punctual lights into per-frame buffers for
// GPU upload.
package lighting

import (
	"errors"
	"fmt"
	"math"

	"github.com/qmuntal/gltf/ext/lightspunctual"

	"github.com/Faultbox/glbview/internal/asset"
)

// ExtLightsPunctual is the glTF extension carrying light definitions.
const ExtLightsPunctual = lightspunctual.ExtensionName

// ErrLightOutOfRange is returned for a node referencing an undefined light.
var ErrLightOutOfRange = errors.New("light index out of range")

// Kind is the punctual light type.
type Kind int

const (
	Directional Kind = iota
	Point
	// Spot lights are shaded as point lights; the cone is ignored.
	Spot
)

func (k Kind) String() string {
	switch k {
	case Point:
		return "point"
	case Spot:
		return "spot"
	default:
		return "directional"
	}
}

// Light is one light definition from the document. It has no position; the
// node that references it places it.
type Light struct {
	Name      string
	Kind      Kind
	Color     [3]float32
	Intensity float32
	// Range is 0 for unbounded lights.
	Range float32
}

// ParseLights reads the document-level KHR_lights_punctual extension.
// A missing extension yields no lights and no error.
func ParseLights(ext map[string]any) ([]Light, error) {
	v, ok := ext[ExtLightsPunctual]
	if !ok {
		return nil, nil
	}
	defs, ok := v.(lightspunctual.Lights)
	if !ok {
		// raw when the extension was not registered at decode time or
		// failed to decode
		decoded, err := decodePunctual(v)
		if err != nil {
			return nil, err
		}
		if defs, ok = decoded.(lightspunctual.Lights); !ok {
			return nil, fmt.Errorf("%s: document extension has no lights array", ExtLightsPunctual)
		}
	}

	lights := make([]Light, 0, len(defs))
	for i, src := range defs {
		if src == nil {
			return nil, fmt.Errorf("%s: light %d is null", ExtLightsPunctual, i)
		}
		l := Light{Name: src.Name, Intensity: float32(src.IntensityOrDefault())}
		switch src.Type {
		case lightspunctual.TypeDirectional:
			l.Kind = Directional
		case lightspunctual.TypePoint:
			l.Kind = Point
		case lightspunctual.TypeSpot:
			l.Kind = Spot
		default:
			return nil, fmt.Errorf("%s: light %d has unknown type %q", ExtLightsPunctual, i, src.Type)
		}
		c := src.ColorOrDefault()
		l.Color = [3]float32{float32(c[0]), float32(c[1]), float32(c[2])}
		if src.Range != nil && *src.Range > 0 && !math.IsInf(*src.Range, 1) {
			l.Range = float32(*src.Range)
		}
		lights = append(lights, l)
	}
	return lights, nil
}

// NodeLight returns the light index referenced by a node's extensions.
func NodeLight(ext map[string]any) (int, bool) {
	v, ok := ext[ExtLightsPunctual]
	if !ok {
		return 0, false
	}
	idx, ok := v.(lightspunctual.LightIndex)
	if !ok {
		decoded, err := decodePunctual(v)
		if err != nil {
			return 0, false
		}
		if idx, ok = decoded.(lightspunctual.LightIndex); !ok {
			return 0, false
		}
	}
	if idx < 0 {
		return 0, false
	}
	return int(idx), true
}

func decodePunctual(v any) (any, error) {
	b, err := asset.ExtensionJSON(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ExtLightsPunctual, err)
	}
	decoded, err := lightspunctual.Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ExtLightsPunctual, err)
	}
	return decoded, nil
}
