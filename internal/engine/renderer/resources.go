package renderer

import (
	"image"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/glbview/internal/engine/envmap"
	"github.com/Faultbox/glbview/internal/engine/model"
	"github.com/Faultbox/glbview/internal/engine/scene"
	"github.com/Faultbox/glbview/internal/logger"
)

type gpuPrimitive struct {
	vao   uint32
	vbo   uint32
	ebo   uint32
	count int32
}

type gpuEnvironment struct {
	source  *envmap.Prefiltered
	texture uint32
	levels  int
}

type primitiveKey struct {
	mesh  *model.Mesh
	index int
}

// resources caches GPU objects created lazily on the render thread.
type resources struct {
	primitives map[primitiveKey]*gpuPrimitive
	images     map[int]uint32
	env        *gpuEnvironment
}

func newResources() *resources {
	return &resources{
		primitives: make(map[primitiveKey]*gpuPrimitive),
		images:     make(map[int]uint32),
	}
}

func (r *resources) primitive(m *model.Mesh, index int) *gpuPrimitive {
	key := primitiveKey{m, index}
	if gp, ok := r.primitives[key]; ok {
		return gp
	}
	gp := uploadPrimitive(&m.Primitives[index])
	r.primitives[key] = gp
	return gp
}

// image returns the texture for an image index, or 0 when there is none
// yet. Images still being decoded are retried on the next frame.
func (r *resources) image(s *scene.Scene, index int) uint32 {
	if index < 0 {
		return 0
	}
	if tex, ok := r.images[index]; ok {
		return tex
	}
	img := s.Image(index)
	if img == nil {
		return 0
	}
	tex := uploadImage(img)
	r.images[index] = tex
	return tex
}

// environment uploads p the first time it is seen and returns the GPU copy.
func (r *resources) environment(p *envmap.Prefiltered) *gpuEnvironment {
	if p == nil || len(p.Levels) == 0 {
		return r.env
	}
	if r.env != nil && r.env.source == p {
		return r.env
	}
	if r.env != nil {
		gl.DeleteTextures(1, &r.env.texture)
	}
	r.env = uploadEnvironment(p)
	return r.env
}

func (r *resources) release() {
	for _, gp := range r.primitives {
		if gp == nil {
			continue
		}
		gl.DeleteVertexArrays(1, &gp.vao)
		gl.DeleteBuffers(1, &gp.vbo)
		gl.DeleteBuffers(1, &gp.ebo)
	}
	for _, tex := range r.images {
		gl.DeleteTextures(1, &tex)
	}
	if r.env != nil {
		gl.DeleteTextures(1, &r.env.texture)
	}
	r.primitives = make(map[primitiveKey]*gpuPrimitive)
	r.images = make(map[int]uint32)
	r.env = nil
}

func uploadPrimitive(p *model.Primitive) *gpuPrimitive {
	if len(p.Vertices) == 0 || len(p.Indices) == 0 {
		return nil
	}
	gp := &gpuPrimitive{count: int32(len(p.Indices))}

	gl.GenVertexArrays(1, &gp.vao)
	gl.BindVertexArray(gp.vao)

	stride := int32(unsafe.Sizeof(model.Vertex{}))
	gl.GenBuffers(1, &gp.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, gp.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(p.Vertices)*int(stride), gl.Ptr(p.Vertices), gl.STATIC_DRAW)

	gl.GenBuffers(1, &gp.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, gp.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(p.Indices)*4, gl.Ptr(p.Indices), gl.STATIC_DRAW)

	// Position (location = 0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(0)
	// Normal (location = 1)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 3*4)
	gl.EnableVertexAttribArray(1)
	// TexCoord (location = 2)
	gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, stride, 6*4)
	gl.EnableVertexAttribArray(2)

	gl.BindVertexArray(0)
	return gp
}

func uploadImage(img *image.NRGBA) uint32 {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	pix := img.Pix
	if img.Stride != w*4 {
		tight := image.NewNRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			copy(tight.Pix[y*tight.Stride:], img.Pix[img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y):][:w*4])
		}
		pix = tight.Pix
	}

	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.SRGB8_ALPHA8, int32(w), int32(h), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pix))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.GenerateMipmap(gl.TEXTURE_2D)
	return tex
}

// uploadEnvironment stores the roughness chain as the mip levels of one
// RGB32F texture so the shader selects roughness with textureLod.
func uploadEnvironment(p *envmap.Prefiltered) *gpuEnvironment {
	env := &gpuEnvironment{source: p, levels: len(p.Levels)}

	gl.GenTextures(1, &env.texture)
	gl.BindTexture(gl.TEXTURE_2D, env.texture)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	for i, l := range p.Levels {
		gl.TexImage2D(gl.TEXTURE_2D, int32(i), gl.RGB32F, int32(l.Width), int32(l.Height), 0, gl.RGB, gl.FLOAT, gl.Ptr(l.Data))
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_BASE_LEVEL, 0)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAX_LEVEL, int32(len(p.Levels)-1))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	logger.Debug("environment uploaded",
		zap.Int("levels", env.levels),
		zap.Int("width", p.Levels[0].Width),
		zap.Int("height", p.Levels[0].Height),
	)
	return env
}
