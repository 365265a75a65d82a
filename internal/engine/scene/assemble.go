package scene

import (
	"context"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/glbview/internal/asset"
	"github.com/Faultbox/glbview/internal/engine/camera"
	"github.com/Faultbox/glbview/internal/engine/lighting"
	"github.com/Faultbox/glbview/internal/engine/model"
	"github.com/Faultbox/glbview/internal/logger"
)

// CameraSelection is the optional camera chosen from an asset.
type CameraSelection struct {
	camera *camera.Camera
}

// Some wraps a selected camera.
func Some(c *camera.Camera) CameraSelection {
	return CameraSelection{camera: c}
}

// None is the empty selection.
func None() CameraSelection {
	return CameraSelection{}
}

// Get returns the camera and whether one was selected.
func (s CameraSelection) Get() (*camera.Camera, bool) {
	return s.camera, s.camera != nil
}

// IsSome reports whether a camera was selected.
func (s CameraSelection) IsSome() bool {
	return s.camera != nil
}

// DefaultAmbient is the fixed light added to every assembled scene.
var DefaultAmbient = AmbientLight{Color: mgl32.Vec3{1, 1, 1}, Intensity: 1}

// Assemble inserts the container's default scene under one group node, adds
// the default ambient light and selects the first embedded camera. Nodes
// referencing KHR_lights_punctual lights carry them into the graph.
func Assemble(s *Scene, c *asset.Container) CameraSelection {
	doc := c.Document()
	b := builder{
		doc:     doc,
		meshes:  make(map[int]*model.Mesh),
		cameras: make(map[int]*camera.Camera),
		visited: make(map[int]bool),
	}
	lights, err := lighting.ParseLights(doc.Extensions)
	if err != nil {
		logger.Warn("punctual lights ignored", zap.Error(err))
	}
	b.lights = lights

	group := NewNode(sceneName(doc))
	for _, idx := range c.RootNodes() {
		if n := b.node(idx); n != nil {
			group.Add(n)
		}
	}
	for _, n := range b.placed {
		n.Camera.SetWorldTransform(n.WorldMatrix())
	}
	s.Add(group)
	s.AddAmbientLight(DefaultAmbient)

	for img := range b.images {
		decoded, err := c.DecodeImage(context.Background(), img)
		if err != nil {
			logger.Warn("base colour image not decoded", zap.Int("image", img), zap.Error(err))
			continue
		}
		s.SetImage(img, decoded)
	}

	logger.Info("scene assembled",
		zap.String("url", c.URL),
		zap.Int("nodes", len(b.visited)),
		zap.Int("meshes", len(b.meshes)),
		zap.Int("cameras", len(doc.Cameras)),
		zap.Int("lights", b.placedLights),
	)

	if len(doc.Cameras) == 0 {
		return None()
	}
	cam, ok := b.cameras[0]
	if !ok {
		// camera 0 is not placed by any node of the default scene
		cam = newCamera(doc.Cameras[0])
	}
	return Some(cam)
}

type builder struct {
	doc     *gltf.Document
	meshes  map[int]*model.Mesh
	cameras map[int]*camera.Camera
	images  map[int]struct{}
	visited map[int]bool
	placed  []*Node // nodes that own a camera

	lights       []lighting.Light
	placedLights int
}

func (b *builder) node(idx int) *Node {
	if idx < 0 || idx >= len(b.doc.Nodes) || b.visited[idx] {
		return nil
	}
	b.visited[idx] = true
	src := b.doc.Nodes[idx]

	n := NewNode(src.Name)
	n.Local = localMatrix(src)

	if src.Mesh != nil {
		n.Mesh = b.mesh(*src.Mesh)
	}
	if li, ok := lighting.NodeLight(src.Extensions); ok && li < len(b.lights) {
		l := b.lights[li]
		n.Light = &l
		b.placedLights++
	}
	for _, child := range src.Children {
		if cn := b.node(child); cn != nil {
			n.Add(cn)
		}
	}
	if src.Camera != nil {
		cam, first := b.camera(*src.Camera)
		n.Camera = cam
		if first {
			b.placed = append(b.placed, n)
		}
	}
	return n
}

func (b *builder) mesh(idx int) *model.Mesh {
	if m, ok := b.meshes[idx]; ok {
		return m
	}
	m, err := model.BuildMesh(b.doc, idx)
	if err != nil {
		logger.Warn("mesh skipped", zap.Int("mesh", idx), zap.Error(err))
		b.meshes[idx] = nil
		return nil
	}
	for _, p := range m.Primitives {
		if p.Material.BaseColorImage >= 0 {
			if b.images == nil {
				b.images = make(map[int]struct{})
			}
			b.images[p.Material.BaseColorImage] = struct{}{}
		}
	}
	b.meshes[idx] = m
	return m
}

// camera returns the camera for a definition. first is true for the node
// that created it, which also places it.
func (b *builder) camera(idx int) (cam *camera.Camera, first bool) {
	if idx < 0 || idx >= len(b.doc.Cameras) {
		return nil, false
	}
	if cam, ok := b.cameras[idx]; ok {
		return cam, false
	}
	cam = newCamera(b.doc.Cameras[idx])
	b.cameras[idx] = cam
	return cam, true
}

func newCamera(src *gltf.Camera) *camera.Camera {
	var cam *camera.Camera
	switch {
	case src.Perspective != nil:
		p := src.Perspective
		aspect := float32(1)
		if p.AspectRatio != nil {
			aspect = float32(*p.AspectRatio)
		}
		var far float32
		if p.Zfar != nil {
			far = float32(*p.Zfar)
		}
		cam = camera.NewPerspective(float32(p.Yfov), aspect, float32(p.Znear), far)
	case src.Orthographic != nil:
		o := src.Orthographic
		cam = camera.NewOrthographic(float32(o.Xmag), float32(o.Ymag), float32(o.Znear), float32(o.Zfar))
	default:
		cam = camera.NewPerspective(mgl32.DegToRad(50), 1, 0.1, 0)
	}
	cam.Name = src.Name
	return cam
}

func localMatrix(n *gltf.Node) mgl32.Mat4 {
	if m := n.MatrixOrDefault(); m != gltf.DefaultMatrix {
		var out mgl32.Mat4
		for i, v := range m {
			out[i] = float32(v)
		}
		return out
	}
	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	s := n.ScaleOrDefault()

	q := mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}
	return mgl32.Translate3D(float32(t[0]), float32(t[1]), float32(t[2])).
		Mul4(q.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(float32(s[0]), float32(s[1]), float32(s[2])))
}

func sceneName(doc *gltf.Document) string {
	idx := 0
	if doc.Scene != nil {
		idx = *doc.Scene
	}
	if idx >= 0 && idx < len(doc.Scenes) && doc.Scenes[idx].Name != "" {
		return doc.Scenes[idx].Name
	}
	return "Scene"
}
