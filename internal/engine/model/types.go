// Package model converts glTF mesh primitives into CPU meshes ready for GPU
// upload.
package model

// Vertex represents a mesh vertex with position, normal, and texture coordinates.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
}

// Material is the metallic-roughness subset the renderer shades with.
type Material struct {
	Name      string
	BaseColor [4]float32
	Metallic  float32
	Roughness float32
	// BaseColorImage is the image table index of the base colour texture,
	// or -1.
	BaseColorImage int
	DoubleSided    bool
}

// DefaultMaterial is used by primitives without a material.
func DefaultMaterial() Material {
	return Material{
		Name:           "default",
		BaseColor:      [4]float32{1, 1, 1, 1},
		Metallic:       1,
		Roughness:      1,
		BaseColorImage: -1,
	}
}

// Primitive is one draw call worth of triangles.
type Primitive struct {
	Vertices []Vertex
	Indices  []uint32
	Material Material
}

// Mesh holds every triangle primitive of one glTF mesh.
type Mesh struct {
	Name       string
	Primitives []Primitive
	Bounds     Bounds
}

// Bounds holds the axis-aligned bounding box of the mesh.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}

// Empty reports whether no point has been added.
func (b Bounds) Empty() bool {
	return b.Min[0] > b.Max[0]
}

// emptyBounds returns inverted bounds that any point will grow.
func emptyBounds() Bounds {
	return Bounds{
		Min: [3]float32{1e30, 1e30, 1e30},
		Max: [3]float32{-1e30, -1e30, -1e30},
	}
}
