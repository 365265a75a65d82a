// Package envmap extracts the embedded HDR environment from a loaded asset
// and prefilters it into a roughness mip chain for image-based lighting.
package envmap

import (
	"context"
	"errors"
	"fmt"

	"github.com/Faultbox/glbview/internal/asset"
	"github.com/Faultbox/glbview/internal/engine/texture"
	"github.com/Faultbox/glbview/pkg/formats"
)

// ErrEnvironmentNotFound means the asset has no image/x-exr image. It is the
// normal outcome for most assets and is not worth logging.
var ErrEnvironmentNotFound = errors.New("no HDR environment image in asset")

// ExtractionError reports an HDR image that was found but could not be
// turned into a texture.
type ExtractionError struct {
	Image      int
	BufferView int // -1 when the image has no buffer view
	Err        error
}

func (e *ExtractionError) Error() string {
	if e.BufferView < 0 {
		return fmt.Sprintf("environment image %d: %v", e.Image, e.Err)
	}
	return fmt.Sprintf("environment image %d (buffer view %d): %v", e.Image, e.BufferView, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Source is the part of a loaded asset the extractor reads.
type Source interface {
	Images() []asset.Image
	ResolveBufferView(ctx context.Context, index int) ([]byte, error)
}

// Find returns the first HDR image in table order.
func Find(images []asset.Image) (asset.Image, bool) {
	for _, img := range images {
		if img.MimeType == formats.MimeEXR {
			return img, true
		}
	}
	return asset.Image{}, false
}

// Extract locates the first HDR image, decodes it and returns it as an
// equirectangular radiance texture.
func Extract(ctx context.Context, src Source) (*texture.DataTexture, error) {
	img, ok := Find(src.Images())
	if !ok {
		return nil, ErrEnvironmentNotFound
	}
	if img.BufferView == nil {
		return nil, &ExtractionError{Image: img.Index, BufferView: -1, Err: asset.ErrImageHasNoData}
	}

	data, err := src.ResolveBufferView(ctx, *img.BufferView)
	if err != nil {
		return nil, &ExtractionError{Image: img.Index, BufferView: *img.BufferView, Err: err}
	}

	exr, err := formats.ParseEXR(data)
	if err != nil {
		return nil, &ExtractionError{Image: img.Index, BufferView: *img.BufferView, Err: err}
	}

	typ := texture.FloatType
	if exr.Half {
		typ = texture.HalfFloatType
	}
	tex := texture.New(exr.Pix, exr.Width, exr.Height, texture.RGBAFormat, typ)
	ApplyPolicy(tex)
	return tex, nil
}

// ApplyPolicy sets the fixed sampling policy for radiance maps: linear
// colour, linear filtering, no mipmaps, no flip, equirectangular mapping.
func ApplyPolicy(tex *texture.DataTexture) {
	tex.Mapping = texture.EquirectangularReflectionMapping
	tex.ColorSpace = texture.LinearSRGBColorSpace
	tex.MinFilter = texture.LinearFilter
	tex.MagFilter = texture.LinearFilter
	tex.GenerateMipmaps = false
	tex.FlipY = false
	tex.MarkUpdated()
}
