package envmap

import (
	"context"
	"errors"
	"testing"

	"github.com/Faultbox/glbview/internal/asset"
	"github.com/Faultbox/glbview/internal/asset/assettest"
	"github.com/Faultbox/glbview/internal/engine/texture"
	"github.com/Faultbox/glbview/pkg/formats"
)

func TestExtractNoHDR(t *testing.T) {
	b := assettest.New()
	b.AddImage("image/png", []byte{0x89, 'P', 'N', 'G'})

	tex, err := Extract(context.Background(), b.Container())
	if !errors.Is(err, ErrEnvironmentNotFound) {
		t.Fatalf("expected ErrEnvironmentNotFound, got %v", err)
	}
	if tex != nil {
		t.Error("expected nil texture")
	}
}

func TestExtractPolicy(t *testing.T) {
	b := assettest.New()
	b.AddImage("image/png", []byte{0x89})
	b.AddImage(formats.MimeEXR, assettest.EXR(8, 4, 2, 1, 0.5, false))

	tex, err := Extract(context.Background(), b.Container())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if tex.Width != 8 || tex.Height != 4 {
		t.Errorf("expected 8x4, got %dx%d", tex.Width, tex.Height)
	}
	if tex.Mapping != texture.EquirectangularReflectionMapping {
		t.Errorf("expected equirectangular mapping, got %s", tex.Mapping)
	}
	if tex.ColorSpace != texture.LinearSRGBColorSpace {
		t.Errorf("expected linear colour space, got %d", tex.ColorSpace)
	}
	if tex.MinFilter != texture.LinearFilter || tex.MagFilter != texture.LinearFilter {
		t.Errorf("expected linear filters, got %d/%d", tex.MinFilter, tex.MagFilter)
	}
	if tex.GenerateMipmaps {
		t.Error("expected mipmaps disabled")
	}
	if tex.FlipY {
		t.Error("expected flipY disabled")
	}
	if tex.Type != texture.FloatType {
		t.Errorf("expected float source type, got %s", tex.Type)
	}
	if r, g, bl := tex.At(3, 2); r != 2 || g != 1 || bl != 0.5 {
		t.Errorf("unexpected texel (%v, %v, %v)", r, g, bl)
	}
}

func TestExtractFirstMatchWins(t *testing.T) {
	b := assettest.New()
	b.AddImage(formats.MimeEXR, assettest.EXR(4, 2, 1, 0, 0, false))
	b.AddImage(formats.MimeEXR, assettest.EXR(16, 8, 0, 1, 0, false))

	tex, err := Extract(context.Background(), b.Container())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if tex.Width != 4 {
		t.Errorf("expected first HDR image (width 4), got width %d", tex.Width)
	}
	if r, g, _ := tex.At(0, 0); r != 1 || g != 0 {
		t.Errorf("expected red first image, got r=%v g=%v", r, g)
	}
}

func TestExtractResolutionError(t *testing.T) {
	tests := []struct {
		name   string
		build  func(*assettest.Builder)
		target error
	}{
		{
			name:   "dangling buffer view",
			build:  func(b *assettest.Builder) { b.AddImageView(formats.MimeEXR, 42) },
			target: asset.ErrBufferViewOutOfRange,
		},
		{
			name:   "corrupt payload",
			build:  func(b *assettest.Builder) { b.AddImage(formats.MimeEXR, []byte("not an exr file")) },
			target: formats.ErrInvalidEXRMagic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := assettest.New()
			tt.build(b)

			_, err := Extract(context.Background(), b.Container())
			var ee *ExtractionError
			if !errors.As(err, &ee) {
				t.Fatalf("expected *ExtractionError, got %T: %v", err, err)
			}
			if ee.Image != 0 {
				t.Errorf("expected image 0, got %d", ee.Image)
			}
			if !errors.Is(err, tt.target) {
				t.Errorf("expected %v in chain, got %v", tt.target, err)
			}
		})
	}
}

func TestFind(t *testing.T) {
	view := 3
	images := []asset.Image{
		{Index: 0, MimeType: "image/jpeg"},
		{Index: 1, MimeType: formats.MimeEXR, BufferView: &view},
		{Index: 2, MimeType: formats.MimeEXR},
	}
	img, ok := Find(images)
	if !ok || img.Index != 1 {
		t.Errorf("expected image 1, got %+v (ok=%v)", img, ok)
	}
	if _, ok := Find(images[:1]); ok {
		t.Error("expected no match")
	}
}
