package picking

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/glbview/internal/engine/scene"
)

// Hit describes the nearest mesh node struck by a ray.
type Hit struct {
	Node     *scene.Node
	Distance float32
	Point    mgl32.Vec3
	Bounds   AABB
}

// Pick returns the mesh node whose world bounds the ray enters first.
// Nodes with empty meshes are skipped.
func Pick(s *scene.Scene, ray Ray) (Hit, bool) {
	var best Hit
	found := false
	s.Walk(func(n *scene.Node, world mgl32.Mat4) {
		if n.Mesh == nil || n.Mesh.Bounds.Empty() {
			return
		}
		box := TransformAABB(n.Mesh.Bounds, world)
		t, ok := ray.IntersectAABB(box)
		if !ok || (found && t >= best.Distance) {
			return
		}
		best = Hit{Node: n, Distance: t, Point: ray.At(t), Bounds: box}
		found = true
	})
	return best, found
}
