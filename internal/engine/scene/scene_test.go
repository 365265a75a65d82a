package scene

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"

	"github.com/Faultbox/glbview/internal/asset/assettest"
	"github.com/Faultbox/glbview/internal/engine/envmap"
	"github.com/Faultbox/glbview/internal/engine/lighting"
)

func TestAssembleWithCamera(t *testing.T) {
	b := assettest.New()
	b.AddTriangle("box")
	b.AddPerspectiveCamera(0.7, [3]float64{0, 1, 5})
	b.AddPerspectiveCamera(1.2, [3]float64{9, 9, 9})

	s := New()
	sel := Assemble(s, b.Container())

	cam, ok := sel.Get()
	if !ok {
		t.Fatal("expected a camera selection")
	}
	if cam.FovY != 0.7 {
		t.Errorf("expected first camera (fov 0.7), got %v", cam.FovY)
	}
	if !cam.Position.ApproxEqualThreshold(mgl32.Vec3{0, 1, 5}, 1e-5) {
		t.Errorf("expected camera at node translation, got %v", cam.Position)
	}

	roots := s.Roots()
	if len(roots) != 1 {
		t.Fatalf("expected one group root, got %d", len(roots))
	}
	if got := len(roots[0].Children); got != 3 {
		t.Errorf("expected 3 nodes under the group, got %d", got)
	}

	lights := s.AmbientLights()
	if len(lights) != 1 || lights[0] != DefaultAmbient {
		t.Errorf("expected one default ambient light, got %+v", lights)
	}
	if s.Ambient() != (mgl32.Vec3{1, 1, 1}) {
		t.Errorf("unexpected ambient sum %v", s.Ambient())
	}

	var meshes int
	s.Walk(func(n *Node, _ mgl32.Mat4) {
		if n.Mesh != nil {
			meshes++
		}
	})
	if meshes != 1 {
		t.Errorf("expected 1 mesh node, got %d", meshes)
	}
}

func TestAssembleNoCamera(t *testing.T) {
	b := assettest.New()
	b.AddTriangle("box")

	s := New()
	sel := Assemble(s, b.Container())
	if sel.IsSome() {
		t.Error("expected None selection")
	}
	if cam, ok := sel.Get(); ok || cam != nil {
		t.Errorf("expected nil camera, got %v", cam)
	}
	if len(s.Roots()) != 1 {
		t.Error("scene should still be assembled without a camera")
	}
}

func TestAssembleUnplacedCamera(t *testing.T) {
	b := assettest.New()
	b.AddPerspectiveCamera(0.5, [3]float64{1, 2, 3})
	doc := b.Document()
	doc.Scenes[0].Nodes = nil

	sel := Assemble(New(), b.Container())
	cam, ok := sel.Get()
	if !ok {
		t.Fatal("expected camera definition to be selected")
	}
	if cam.Position != (mgl32.Vec3{}) {
		t.Errorf("unplaced camera should sit at the origin, got %v", cam.Position)
	}
}

func TestWorldMatrix(t *testing.T) {
	root := NewNode("root")
	root.Local = mgl32.Translate3D(1, 0, 0)
	child := NewNode("child")
	child.Local = mgl32.Translate3D(0, 2, 0)
	root.Add(child)

	if child.Parent() != root {
		t.Error("parent not linked")
	}
	p := child.WorldMatrix().Col(3).Vec3()
	if p != (mgl32.Vec3{1, 2, 0}) {
		t.Errorf("expected world position (1,2,0), got %v", p)
	}

	s := New()
	s.Add(root)
	var seen []string
	s.Walk(func(n *Node, world mgl32.Mat4) {
		seen = append(seen, n.Name)
		if n == child && world.Col(3).Vec3() != (mgl32.Vec3{1, 2, 0}) {
			t.Errorf("walk world matrix mismatch: %v", world.Col(3))
		}
	})
	if len(seen) != 2 || seen[0] != "root" || seen[1] != "child" {
		t.Errorf("unexpected walk order %v", seen)
	}
}

func TestSetEnvironmentOnce(t *testing.T) {
	s := New()
	if s.Environment() != nil {
		t.Fatal("expected no environment initially")
	}
	if s.SetEnvironment(nil) {
		t.Error("nil environment should not install")
	}

	first := &envmap.Prefiltered{Levels: make([]envmap.Level, 1)}
	second := &envmap.Prefiltered{Levels: make([]envmap.Level, 2)}

	var wg sync.WaitGroup
	results := make([]bool, 2)
	for i, p := range []*envmap.Prefiltered{first, second} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.SetEnvironment(p)
		}()
	}
	wg.Wait()

	if results[0] == results[1] {
		t.Errorf("exactly one install should win, got %v", results)
	}
	env := s.Environment()
	if (results[0] && env != first) || (results[1] && env != second) {
		t.Error("installed environment does not match the winning call")
	}
}

func TestAssembleLights(t *testing.T) {
	b := assettest.New()
	doc := b.Document()
	doc.Extensions = gltf.Extensions{
		lighting.ExtLightsPunctual: json.RawMessage(`{"lights":[{"type":"point","intensity":4}]}`),
	}
	doc.Nodes = append(doc.Nodes,
		&gltf.Node{
			Name:        "lamp",
			Translation: [3]float64{0, 3, 0},
			Extensions:  gltf.Extensions{lighting.ExtLightsPunctual: json.RawMessage(`{"light":0}`)},
		},
		&gltf.Node{
			Name:       "dangling",
			Extensions: gltf.Extensions{lighting.ExtLightsPunctual: json.RawMessage(`{"light":7}`)},
		},
	)
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, len(doc.Nodes)-2, len(doc.Nodes)-1)

	s := New()
	Assemble(s, b.Container())

	var lit []*Node
	s.Walk(func(n *Node, world mgl32.Mat4) {
		if n.Light != nil {
			lit = append(lit, n)
			if p := world.Col(3).Vec3(); p != (mgl32.Vec3{0, 3, 0}) {
				t.Errorf("light world position = %v", p)
			}
		}
	})
	if len(lit) != 1 || lit[0].Name != "lamp" {
		t.Fatalf("expected only the lamp to carry a light, got %d", len(lit))
	}
	if lit[0].Light.Kind != lighting.Point || lit[0].Light.Intensity != 4 {
		t.Errorf("unexpected light %+v", lit[0].Light)
	}
}
