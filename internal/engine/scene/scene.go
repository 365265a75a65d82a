// Package scene holds the assembled scene graph shared by the loader
// goroutines and the render thread.
package scene

import (
	"image"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/glbview/internal/engine/camera"
	"github.com/Faultbox/glbview/internal/engine/envmap"
	"github.com/Faultbox/glbview/internal/engine/lighting"
	"github.com/Faultbox/glbview/internal/engine/model"
)

// Node is one element of the scene graph.
type Node struct {
	Name     string
	Local    mgl32.Mat4
	Mesh     *model.Mesh
	Camera   *camera.Camera
	Light    *lighting.Light
	Children []*Node

	parent *Node
}

// NewNode returns a node with an identity transform.
func NewNode(name string) *Node {
	return &Node{Name: name, Local: mgl32.Ident4()}
}

// Add appends child under n.
func (n *Node) Add(child *Node) {
	child.parent = n
	n.Children = append(n.Children, child)
}

// Parent returns the node's parent, or nil for a root.
func (n *Node) Parent() *Node {
	return n.parent
}

// WorldMatrix composes the local transforms from the root down to n.
func (n *Node) WorldMatrix() mgl32.Mat4 {
	m := n.Local
	for p := n.parent; p != nil; p = p.parent {
		m = p.Local.Mul4(m)
	}
	return m
}

// walk visits n and its subtree depth-first with world matrices.
func (n *Node) walk(parent mgl32.Mat4, fn func(*Node, mgl32.Mat4)) {
	world := parent.Mul4(n.Local)
	fn(n, world)
	for _, c := range n.Children {
		c.walk(world, fn)
	}
}

// AmbientLight lights every surface uniformly.
type AmbientLight struct {
	Color     mgl32.Vec3
	Intensity float32
}

// Scene is the root of the scene graph. All methods are safe for concurrent
// use; nodes handed to Add must not be mutated afterwards.
type Scene struct {
	mu          sync.RWMutex
	roots       []*Node
	ambient     []AmbientLight
	images      map[int]*image.NRGBA
	environment *envmap.Prefiltered
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{images: make(map[int]*image.NRGBA)}
}

// Add inserts a root node.
func (s *Scene) Add(n *Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roots = append(s.roots, n)
}

// AddAmbientLight adds an ambient light.
func (s *Scene) AddAmbientLight(l AmbientLight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ambient = append(s.ambient, l)
}

// Ambient returns the summed ambient radiance.
func (s *Scene) Ambient() mgl32.Vec3 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum mgl32.Vec3
	for _, l := range s.ambient {
		sum = sum.Add(l.Color.Mul(l.Intensity))
	}
	return sum
}

// AmbientLights returns a copy of the ambient lights.
func (s *Scene) AmbientLights() []AmbientLight {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]AmbientLight(nil), s.ambient...)
}

// SetImage stores a decoded image under its image table index.
func (s *Scene) SetImage(index int, img *image.NRGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[index] = img
}

// Image returns a decoded image, or nil.
func (s *Scene) Image(index int) *image.NRGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.images[index]
}

// SetEnvironment installs the prefiltered environment. Only the first call
// takes effect; it reports whether this call installed p.
func (s *Scene) SetEnvironment(p *envmap.Prefiltered) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.environment != nil || p == nil {
		return false
	}
	s.environment = p
	return true
}

// Environment returns the installed environment, or nil.
func (s *Scene) Environment() *envmap.Prefiltered {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.environment
}

// Walk visits every node depth-first with its world matrix. The scene is
// read-locked for the duration; fn must not call back into s.
func (s *Scene) Walk(fn func(n *Node, world mgl32.Mat4)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roots {
		r.walk(mgl32.Ident4(), fn)
	}
}

// Roots returns a copy of the root nodes.
func (s *Scene) Roots() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Node(nil), s.roots...)
}
