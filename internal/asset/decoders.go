package asset

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/glbview/internal/logger"
	"github.com/Faultbox/glbview/pkg/formats"
)

// Compression extensions handled by sub-decoders.
const (
	ExtDracoMeshCompression = "KHR_draco_mesh_compression"
	ExtTextureBasisu        = "KHR_texture_basisu"
	ExtMeshoptCompression   = "EXT_meshopt_compression"
)

// ErrUnsupportedCompression is returned when a payload needs a sub-decoder
// that is not available.
var ErrUnsupportedCompression = errors.New("unsupported compression")

// GeometryDecoder expands compressed primitives in place, replacing the
// compressed attributes with plain accessors.
type GeometryDecoder interface {
	DecodePrimitive(ctx context.Context, doc *gltf.Document, prim *gltf.Primitive) error
}

// TextureTranscoder turns a compressed texture container into RGBA pixels
// for the given target.
type TextureTranscoder interface {
	Transcode(ctx context.Context, data []byte, target Target) (*image.NRGBA, error)
}

// Target is the GPU texture format a transcoder should produce.
type Target int

// Targets in order of preference.
const (
	TargetRGBA8 Target = iota
	TargetASTC4x4
	TargetBC7
	TargetETC2
	TargetBC3
)

// String returns the target name.
func (t Target) String() string {
	switch t {
	case TargetASTC4x4:
		return "ASTC_4x4"
	case TargetBC7:
		return "BC7"
	case TargetETC2:
		return "ETC2"
	case TargetBC3:
		return "BC3"
	default:
		return "RGBA8"
	}
}

// Capabilities describes what the graphics context can sample directly.
type Capabilities struct {
	Extensions     []string
	MaxTextureSize int
	// ETC2 is core in GL 4.3 and ES 3.0 regardless of the extension list.
	CoreETC2 bool
}

// Has reports whether the extension list contains name.
func (c Capabilities) Has(name string) bool {
	for _, e := range c.Extensions {
		if e == name {
			return true
		}
	}
	return false
}

// Decoders holds the pluggable sub-decoders used during a load.
type Decoders struct {
	decoderPath    string
	transcoderPath string
	target         Target
	geometry       map[string]GeometryDecoder
	transcoder     TextureTranscoder
}

// NewDecoders returns a set with the built-in KTX2 transcoder and no
// geometry decoders.
func NewDecoders() *Decoders {
	return &Decoders{
		geometry:   make(map[string]GeometryDecoder),
		transcoder: ktx2Transcoder{},
	}
}

// SetDecoderPath sets the directory holding the compressed-geometry decoder.
func (d *Decoders) SetDecoderPath(path string) {
	d.decoderPath = path
}

// SetTranscoderPath sets the directory holding the compressed-texture
// transcoder.
func (d *Decoders) SetTranscoderPath(path string) {
	d.transcoderPath = path
}

// DecoderPath returns the compressed-geometry decoder directory.
func (d *Decoders) DecoderPath() string { return d.decoderPath }

// TranscoderPath returns the compressed-texture transcoder directory.
func (d *Decoders) TranscoderPath() string { return d.transcoderPath }

// RegisterGeometryDecoder installs a decoder for a mesh compression extension.
func (d *Decoders) RegisterGeometryDecoder(ext string, dec GeometryDecoder) {
	d.geometry[ext] = dec
}

// SetTranscoder replaces the texture transcoder.
func (d *Decoders) SetTranscoder(t TextureTranscoder) {
	d.transcoder = t
}

// Target returns the transcode target chosen by DetectSupport.
func (d *Decoders) Target() Target {
	return d.target
}

// DetectSupport picks the best compressed target the context can sample.
func (d *Decoders) DetectSupport(caps Capabilities) Target {
	switch {
	case caps.Has("GL_KHR_texture_compression_astc_ldr"):
		d.target = TargetASTC4x4
	case caps.Has("GL_ARB_texture_compression_bptc") || caps.Has("GL_EXT_texture_compression_bptc"):
		d.target = TargetBC7
	case caps.CoreETC2 || caps.Has("GL_ARB_ES3_compatibility"):
		d.target = TargetETC2
	case caps.Has("GL_EXT_texture_compression_s3tc"):
		d.target = TargetBC3
	default:
		d.target = TargetRGBA8
	}
	logger.Debug("texture transcode target selected", zap.Stringer("target", d.target))
	return d.target
}

// CheckRequired fails when the document requires an extension no
// sub-decoder can handle.
func (d *Decoders) CheckRequired(doc *gltf.Document) error {
	for _, ext := range doc.ExtensionsRequired {
		switch ext {
		case ExtDracoMeshCompression, ExtMeshoptCompression:
			if d.geometry[ext] == nil {
				return fmt.Errorf("%w: %s (no geometry decoder registered for %q)",
					ErrUnsupportedCompression, ext, d.decoderPath)
			}
		case ExtTextureBasisu:
			if d.transcoder == nil {
				return fmt.Errorf("%w: %s (no transcoder at %q)",
					ErrUnsupportedCompression, ext, d.transcoderPath)
			}
		}
	}
	return nil
}

// DecodeGeometry runs registered geometry decoders over every primitive
// carrying a compression extension. Primitives with an optional extension
// and no decoder keep their uncompressed fallback accessors.
func (d *Decoders) DecodeGeometry(ctx context.Context, doc *gltf.Document) error {
	for mi, mesh := range doc.Meshes {
		for pi, prim := range mesh.Primitives {
			for ext := range prim.Extensions {
				dec := d.geometry[ext]
				if dec == nil {
					if isRequired(doc, ext) {
						return fmt.Errorf("mesh %d primitive %d: %w: %s", mi, pi, ErrUnsupportedCompression, ext)
					}
					continue
				}
				if err := dec.DecodePrimitive(ctx, doc, prim); err != nil {
					return fmt.Errorf("mesh %d primitive %d: %s: %w", mi, pi, ext, err)
				}
			}
		}
	}
	return nil
}

// TranscodeTexture decodes a KTX2 payload for the selected target.
func (d *Decoders) TranscodeTexture(ctx context.Context, data []byte) (*image.NRGBA, error) {
	if d.transcoder == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, ExtTextureBasisu)
	}
	img, err := d.transcoder.Transcode(ctx, data, d.target)
	if err != nil {
		if errors.Is(err, formats.ErrBasisPayload) {
			return nil, fmt.Errorf("%w: %v (transcoder path %q)", ErrUnsupportedCompression, err, d.transcoderPath)
		}
		return nil, err
	}
	return img, nil
}

func isRequired(doc *gltf.Document, ext string) bool {
	for _, r := range doc.ExtensionsRequired {
		if strings.EqualFold(r, ext) {
			return true
		}
	}
	return false
}

// ktx2Transcoder handles KTX2 payloads that carry plain pixel formats.
// Every target falls back to RGBA8 since the pixels are uncompressed.
type ktx2Transcoder struct{}

func (ktx2Transcoder) Transcode(ctx context.Context, data []byte, _ Target) (*image.NRGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k, err := formats.ParseKTX2(data)
	if err != nil {
		return nil, err
	}
	return k.DecodeRGBA()
}
