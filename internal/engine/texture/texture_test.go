package texture

import "testing"

func TestNewDefaults(t *testing.T) {
	tex := New(make([]float32, 4*2*2), 2, 2, RGBAFormat, FloatType)

	if tex.Mapping != UVMapping {
		t.Errorf("expected UV mapping, got %s", tex.Mapping)
	}
	if !tex.GenerateMipmaps || !tex.FlipY {
		t.Error("expected mipmaps and flipY on by default")
	}
	if tex.ColorSpace != SRGBColorSpace {
		t.Errorf("expected sRGB colour space, got %d", tex.ColorSpace)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		tex     *DataTexture
		wantErr bool
	}{
		{"rgba ok", New(make([]float32, 16), 2, 2, RGBAFormat, FloatType), false},
		{"rgb ok", New(make([]float32, 12), 2, 2, RGBFormat, HalfFloatType), false},
		{"short data", New(make([]float32, 15), 2, 2, RGBAFormat, FloatType), true},
		{"zero size", New(nil, 0, 2, RGBAFormat, FloatType), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tex.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAtClamps(t *testing.T) {
	data := []float32{
		1, 2, 3, 1, 4, 5, 6, 1,
		7, 8, 9, 1, 10, 11, 12, 1,
	}
	tex := New(data, 2, 2, RGBAFormat, FloatType)

	if r, g, b := tex.At(1, 1); r != 10 || g != 11 || b != 12 {
		t.Errorf("At(1,1): got (%f,%f,%f)", r, g, b)
	}
	if r, _, _ := tex.At(-5, 0); r != 1 {
		t.Errorf("At(-5,0) should clamp to (0,0), got r=%f", r)
	}
	if r, _, _ := tex.At(9, 9); r != 10 {
		t.Errorf("At(9,9) should clamp to (1,1), got r=%f", r)
	}
}

func TestMarkUpdated(t *testing.T) {
	tex := New(make([]float32, 4), 1, 1, RGBAFormat, FloatType)
	tex.MarkUpdated()
	tex.MarkUpdated()
	if tex.Version != 2 {
		t.Errorf("expected version 2, got %d", tex.Version)
	}
}
