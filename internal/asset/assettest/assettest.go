// Package assettest builds in-memory glTF containers for tests.
package assettest

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"

	"github.com/mrjoshuak/go-openexr/exr"
	"github.com/qmuntal/gltf"

	"github.com/Faultbox/glbview/internal/asset"
	"github.com/Faultbox/glbview/pkg/formats"
)

// Builder accumulates a single-buffer glTF document.
type Builder struct {
	doc *gltf.Document
	bin []byte
}

// New returns a builder with one empty scene and one binary buffer.
func New() *Builder {
	return &Builder{
		doc: &gltf.Document{
			Asset:   gltf.Asset{Version: "2.0", Generator: "assettest"},
			Scene:   gltf.Index(0),
			Scenes:  []*gltf.Scene{{Name: "Scene"}},
			Buffers: []*gltf.Buffer{{}},
		},
	}
}

// AddBufferView appends data to the binary buffer and returns the new
// buffer view index.
func (b *Builder) AddBufferView(data []byte) int {
	for len(b.bin)%4 != 0 {
		b.bin = append(b.bin, 0)
	}
	offset := len(b.bin)
	b.bin = append(b.bin, data...)
	b.doc.BufferViews = append(b.doc.BufferViews, &gltf.BufferView{
		Buffer:     0,
		ByteOffset: offset,
		ByteLength: len(data),
	})
	b.sync()
	return len(b.doc.BufferViews) - 1
}

// AddImage embeds data as an image with the given MIME type.
func (b *Builder) AddImage(mime string, data []byte) int {
	return b.AddImageView(mime, b.AddBufferView(data))
}

// AddImageView adds an image referencing an existing (or bogus) buffer view.
func (b *Builder) AddImageView(mime string, bufferView int) int {
	b.doc.Images = append(b.doc.Images, &gltf.Image{
		Name:       mime,
		MimeType:   mime,
		BufferView: gltf.Index(bufferView),
	})
	return len(b.doc.Images) - 1
}

// AddPerspectiveCamera adds a camera on a root node at translation.
func (b *Builder) AddPerspectiveCamera(yfov float64, translation [3]float64) int {
	zfar := 100.0
	b.doc.Cameras = append(b.doc.Cameras, &gltf.Camera{
		Name: "Camera",
		Perspective: &gltf.Perspective{
			Yfov:  yfov,
			Znear: 0.1,
			Zfar:  &zfar,
		},
	})
	cam := len(b.doc.Cameras) - 1
	b.addRootNode(&gltf.Node{Name: "CameraNode", Camera: gltf.Index(cam), Translation: translation})
	return cam
}

// AddTriangle adds a one-triangle mesh on a root node and returns the node.
func (b *Builder) AddTriangle(name string) int {
	var pos bytes.Buffer
	for _, v := range [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}} {
		binary.Write(&pos, binary.LittleEndian, v)
	}
	posView := b.AddBufferView(pos.Bytes())

	var idx bytes.Buffer
	binary.Write(&idx, binary.LittleEndian, []uint16{0, 1, 2, 0})
	idxView := b.AddBufferView(idx.Bytes())

	b.doc.Accessors = append(b.doc.Accessors,
		&gltf.Accessor{
			BufferView:    gltf.Index(posView),
			ComponentType: gltf.ComponentFloat,
			Count:         3,
			Type:          gltf.AccessorVec3,
			Min:           []float64{0, 0, 0},
			Max:           []float64{1, 1, 0},
		},
		&gltf.Accessor{
			BufferView:    gltf.Index(idxView),
			ComponentType: gltf.ComponentUshort,
			Count:         3,
			Type:          gltf.AccessorScalar,
		},
	)
	n := len(b.doc.Accessors)
	b.doc.Materials = append(b.doc.Materials, &gltf.Material{
		Name: name,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float64{0.8, 0.2, 0.2, 1},
		},
	})
	b.doc.Meshes = append(b.doc.Meshes, &gltf.Mesh{
		Name: name,
		Primitives: []*gltf.Primitive{{
			Attributes: gltf.PrimitiveAttributes{gltf.POSITION: n - 2},
			Indices:    gltf.Index(n - 1),
			Material:   gltf.Index(len(b.doc.Materials) - 1),
			Mode:       gltf.PrimitiveTriangles,
		}},
	})
	return b.addRootNode(&gltf.Node{Name: name, Mesh: gltf.Index(len(b.doc.Meshes) - 1)})
}

// SetSceneExtension sets a vendor extension on the default scene.
func (b *Builder) SetSceneExtension(name string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}
	s := b.doc.Scenes[0]
	if s.Extensions == nil {
		s.Extensions = gltf.Extensions{}
	}
	s.Extensions[name] = json.RawMessage(raw)
}

// RequireExtension marks ext as required by the document.
func (b *Builder) RequireExtension(ext string) {
	b.doc.ExtensionsUsed = append(b.doc.ExtensionsUsed, ext)
	b.doc.ExtensionsRequired = append(b.doc.ExtensionsRequired, ext)
}

// Document returns the built document.
func (b *Builder) Document() *gltf.Document {
	return b.doc
}

// Container wraps the document as a loaded asset.
func (b *Builder) Container() *asset.Container {
	return asset.NewContainer("memory://assettest.glb", b.doc, nil)
}

func (b *Builder) addRootNode(n *gltf.Node) int {
	b.doc.Nodes = append(b.doc.Nodes, n)
	idx := len(b.doc.Nodes) - 1
	b.doc.Scenes[0].Nodes = append(b.doc.Scenes[0].Nodes, idx)
	return idx
}

func (b *Builder) sync() {
	buf := b.doc.Buffers[0]
	buf.Data = b.bin
	buf.ByteLength = len(b.bin)
}

// EXR returns an uncompressed float EXR filled with one colour. When
// gradient is true, the red channel ramps from 0 on the left to r on the
// right.
func EXR(width, height int, r, g, bl float32, gradient bool) []byte {
	pix := make([]float32, width*height*4)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * 4
			pix[i] = r
			if gradient && width > 1 {
				pix[i] = r * float32(x) / float32(width-1)
			}
			pix[i+1] = g
			pix[i+2] = bl
			pix[i+3] = 1
		}
	}
	var buf bytes.Buffer
	if err := formats.EncodeEXR(&buf, width, height, pix, exr.CompressionNone); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Approx reports whether a and b differ by at most eps.
func Approx(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}
