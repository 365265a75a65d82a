package renderer

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/glbview/internal/asset"
	"github.com/Faultbox/glbview/internal/engine/lighting"
	"github.com/Faultbox/glbview/internal/engine/model"
	"github.com/Faultbox/glbview/internal/engine/scene"
)

// drawItem is one mesh instance with its world transform.
type drawItem struct {
	mesh  *model.Mesh
	world mgl32.Mat4
}

// frame is everything one Render pass needs from the scene graph.
type frame struct {
	draws   []drawItem
	lights  *lighting.PointLightBuffer
	dropped int // lights over the shader limits
}

func newFrame() *frame {
	return &frame{lights: lighting.NewPointLightBuffer()}
}

// collect gathers mesh instances and placed lights under the scene's read
// lock so that GL work and further scene reads happen after it is released.
func (f *frame) collect(s *scene.Scene) {
	f.draws = f.draws[:0]
	f.lights.Clear()
	f.dropped = 0
	s.Walk(func(n *scene.Node, world mgl32.Mat4) {
		if n.Mesh != nil && len(n.Mesh.Primitives) > 0 {
			f.draws = append(f.draws, drawItem{mesh: n.Mesh, world: world})
		}
		if n.Light != nil && !f.lights.Add(*n.Light, world) {
			f.dropped++
		}
	})
}

// normalMatrix is the inverse transpose of the upper 3x3 of world.
func normalMatrix(world mgl32.Mat4) mgl32.Mat3 {
	m := world.Mat3()
	if m.Det() == 0 {
		return mgl32.Ident3()
	}
	return m.Inv().Transpose()
}

// capabilities builds the capability set from a GL_VERSION string such as
// "4.1 Metal - 76.3" or "4.6.0 NVIDIA 535.54".
func capabilities(exts []string, version string, maxTextureSize int) asset.Capabilities {
	major, minor, es := parseVersion(version)
	coreETC2 := major > 4 || (major == 4 && minor >= 3)
	if es {
		coreETC2 = major >= 3
	}
	return asset.Capabilities{
		Extensions:     exts,
		MaxTextureSize: maxTextureSize,
		CoreETC2:       coreETC2,
	}
}

func parseVersion(version string) (major, minor int, es bool) {
	if rest, ok := strings.CutPrefix(version, "OpenGL ES "); ok {
		version, es = rest, true
	}
	if _, err := fmt.Sscanf(version, "%d.%d", &major, &minor); err != nil {
		return 0, 0, es
	}
	return major, minor, es
}
