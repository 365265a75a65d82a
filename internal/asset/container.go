// Package asset loads packaged glTF scenes and exposes the parsed container
// read-only: image table, node hierarchy, cameras and buffer-view access.
package asset

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // decoders for embedded base colour images
	_ "image/png"
	"strings"

	"github.com/qmuntal/gltf"
	_ "golang.org/x/image/webp" // EXT_texture_webp

	"github.com/Faultbox/glbview/pkg/formats"
)

// Container errors.
var (
	ErrBufferViewOutOfRange = errors.New("buffer view index out of range")
	ErrBufferOutOfRange     = errors.New("buffer index out of range")
	ErrBufferViewBounds     = errors.New("buffer view exceeds buffer bounds")
	ErrImageOutOfRange      = errors.New("image index out of range")
	ErrImageHasNoData       = errors.New("image has neither buffer view nor data URI")
)

// Image is one entry of the embedded image table.
type Image struct {
	Index      int
	Name       string
	MimeType   string
	BufferView *int
	URI        string
}

// Container is the immutable parsed representation of a loaded asset.
type Container struct {
	URL string

	doc      *gltf.Document
	decoders *Decoders
}

// NewContainer wraps a parsed document. Decoders may be nil.
func NewContainer(url string, doc *gltf.Document, decoders *Decoders) *Container {
	if decoders == nil {
		decoders = NewDecoders()
	}
	return &Container{URL: url, doc: doc, decoders: decoders}
}

// Document returns the underlying glTF document. Callers must not mutate it.
func (c *Container) Document() *gltf.Document {
	return c.doc
}

// Images returns the image table in declaration order.
func (c *Container) Images() []Image {
	images := make([]Image, len(c.doc.Images))
	for i, img := range c.doc.Images {
		images[i] = Image{
			Index:      i,
			Name:       img.Name,
			MimeType:   img.MimeType,
			BufferView: img.BufferView,
			URI:        img.URI,
		}
	}
	return images
}

// CameraCount returns the number of embedded camera definitions.
func (c *Container) CameraCount() int {
	return len(c.doc.Cameras)
}

// SceneExtensions returns the extensions of the default scene, or nil.
func (c *Container) SceneExtensions() gltf.Extensions {
	s := c.defaultScene()
	if s == nil {
		return nil
	}
	return s.Extensions
}

// RootNodes returns the node indices of the default scene.
func (c *Container) RootNodes() []int {
	s := c.defaultScene()
	if s == nil {
		return nil
	}
	return s.Nodes
}

func (c *Container) defaultScene() *gltf.Scene {
	if len(c.doc.Scenes) == 0 {
		return nil
	}
	idx := 0
	if c.doc.Scene != nil && *c.doc.Scene >= 0 && *c.doc.Scene < len(c.doc.Scenes) {
		idx = *c.doc.Scene
	}
	return c.doc.Scenes[idx]
}

// ResolveBufferView returns the bytes referenced by a buffer view. The
// returned slice aliases the container's buffer and must not be modified.
func (c *Container) ResolveBufferView(ctx context.Context, index int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(c.doc.BufferViews) {
		return nil, fmt.Errorf("%w: %d of %d", ErrBufferViewOutOfRange, index, len(c.doc.BufferViews))
	}
	bv := c.doc.BufferViews[index]
	if bv.Buffer < 0 || bv.Buffer >= len(c.doc.Buffers) {
		return nil, fmt.Errorf("buffer view %d: %w: %d", index, ErrBufferOutOfRange, bv.Buffer)
	}
	data := c.doc.Buffers[bv.Buffer].Data
	start, end := bv.ByteOffset, bv.ByteOffset+bv.ByteLength
	if start < 0 || bv.ByteLength < 0 || end > len(data) {
		return nil, fmt.Errorf("buffer view %d [%d:%d] of %d bytes: %w",
			index, start, end, len(data), ErrBufferViewBounds)
	}
	return data[start:end], nil
}

// ImageData returns the encoded bytes of an image, from its buffer view or
// a base64 data URI.
func (c *Container) ImageData(ctx context.Context, index int) ([]byte, error) {
	if index < 0 || index >= len(c.doc.Images) {
		return nil, fmt.Errorf("%w: %d", ErrImageOutOfRange, index)
	}
	img := c.doc.Images[index]
	if img.BufferView != nil {
		return c.ResolveBufferView(ctx, *img.BufferView)
	}
	if strings.HasPrefix(img.URI, "data:") {
		comma := strings.IndexByte(img.URI, ',')
		if comma < 0 {
			return nil, fmt.Errorf("image %d: malformed data URI", index)
		}
		return base64.StdEncoding.DecodeString(img.URI[comma+1:])
	}
	return nil, fmt.Errorf("image %d: %w", index, ErrImageHasNoData)
}

// DecodeImage decodes an LDR image (PNG, JPEG, WebP or KTX2) into 8-bit RGBA.
// KTX2 payloads go through the configured texture transcoder.
func (c *Container) DecodeImage(ctx context.Context, index int) (*image.NRGBA, error) {
	data, err := c.ImageData(ctx, index)
	if err != nil {
		return nil, err
	}

	if c.doc.Images[index].MimeType == formats.MimeKTX2 || formats.IsKTX2(data) {
		return c.decoders.TranscodeTexture(ctx, data)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("image %d: %w", index, err)
	}
	if nrgba, ok := src.(*image.NRGBA); ok {
		return nrgba, nil
	}
	dst := image.NewNRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	return dst, nil
}
