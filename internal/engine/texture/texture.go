// Package texture describes CPU-side pixel buffers and the sampling policy
// the renderer applies when uploading them.
package texture

import "fmt"

// Mapping says how texture coordinates are derived when sampling.
type Mapping int

// Mappings.
const (
	UVMapping Mapping = iota
	EquirectangularReflectionMapping
)

// String returns the mapping name.
func (m Mapping) String() string {
	switch m {
	case UVMapping:
		return "UV"
	case EquirectangularReflectionMapping:
		return "EquirectangularReflection"
	default:
		return fmt.Sprintf("Mapping(%d)", int(m))
	}
}

// ColorSpace of the stored values.
type ColorSpace int

// Color spaces. Radiance data is already linear and must not be decoded.
const (
	NoColorSpace ColorSpace = iota
	SRGBColorSpace
	LinearSRGBColorSpace
)

// Filter is a minification or magnification filter.
type Filter int

// Filters.
const (
	NearestFilter Filter = iota
	LinearFilter
	LinearMipmapLinearFilter
)

// Format is the channel layout of Data.
type Format int

// Formats.
const (
	RGBAFormat Format = iota
	RGBFormat
)

// Channels returns the number of values per pixel.
func (f Format) Channels() int {
	if f == RGBFormat {
		return 3
	}
	return 4
}

// DataType is the numeric type the data was stored with at the source.
// Pixels are always held as float32 in memory.
type DataType int

// Data types.
const (
	FloatType DataType = iota
	HalfFloatType
	UnsignedByteType
)

// String returns the type name.
func (t DataType) String() string {
	switch t {
	case FloatType:
		return "Float"
	case HalfFloatType:
		return "HalfFloat"
	case UnsignedByteType:
		return "UnsignedByte"
	default:
		return fmt.Sprintf("DataType(%d)", int(t))
	}
}

// DataTexture is a 2D pixel buffer plus its sampling policy. Row 0 is the
// top row.
type DataTexture struct {
	Data   []float32
	Width  int
	Height int
	Format Format
	Type   DataType

	Mapping         Mapping
	ColorSpace      ColorSpace
	MinFilter       Filter
	MagFilter       Filter
	GenerateMipmaps bool
	FlipY           bool

	// Version increments on every MarkUpdated so uploaders know to refresh.
	Version int
}

// New returns a texture with the default policy: UV mapping, sRGB colour,
// mipmapped minification and vertical flip on upload.
func New(data []float32, width, height int, format Format, typ DataType) *DataTexture {
	return &DataTexture{
		Data:            data,
		Width:           width,
		Height:          height,
		Format:          format,
		Type:            typ,
		Mapping:         UVMapping,
		ColorSpace:      SRGBColorSpace,
		MinFilter:       LinearMipmapLinearFilter,
		MagFilter:       LinearFilter,
		GenerateMipmaps: true,
		FlipY:           true,
	}
}

// MarkUpdated flags the texture for re-upload.
func (t *DataTexture) MarkUpdated() {
	t.Version++
}

// Validate checks that Data matches the declared size and format.
func (t *DataTexture) Validate() error {
	if t.Width <= 0 || t.Height <= 0 {
		return fmt.Errorf("invalid texture size %dx%d", t.Width, t.Height)
	}
	want := t.Width * t.Height * t.Format.Channels()
	if len(t.Data) != want {
		return fmt.Errorf("texture data has %d values, want %d", len(t.Data), want)
	}
	return nil
}

// At returns the RGB value at pixel (x, y), clamping coordinates.
func (t *DataTexture) At(x, y int) (r, g, b float32) {
	if x < 0 {
		x = 0
	} else if x >= t.Width {
		x = t.Width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= t.Height {
		y = t.Height - 1
	}
	i := (y*t.Width + x) * t.Format.Channels()
	return t.Data[i], t.Data[i+1], t.Data[i+2]
}
