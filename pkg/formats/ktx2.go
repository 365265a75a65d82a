package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/mrjoshuak/go-openexr/half"
)

// KTX2 format errors.
var (
	ErrInvalidKTX2Magic            = errors.New("invalid KTX2 identifier")
	ErrTruncatedKTX2Data           = errors.New("truncated KTX2 data")
	ErrUnsupportedKTX2Format       = errors.New("unsupported KTX2 vkFormat")
	ErrUnsupportedSupercompression = errors.New("unsupported KTX2 supercompression")
	ErrKTX2TooLarge                = errors.New("KTX2 image too large")

	// ErrBasisPayload is returned for BasisLZ/UASTC payloads, which need a
	// Basis Universal transcoder.
	ErrBasisPayload = errors.New("KTX2 payload requires a Basis Universal transcoder")
)

// Vulkan formats decoded by this package.
const (
	VkFormatUndefined          uint32 = 0
	VkFormatR8G8B8A8Unorm      uint32 = 37
	VkFormatR8G8B8A8SRGB       uint32 = 43
	VkFormatR16G16B16A16Sfloat uint32 = 97
	VkFormatR32G32B32A32Sfloat uint32 = 109
)

// KTX2 supercompression schemes.
const (
	SupercompressionNone    uint32 = 0
	SupercompressionBasisLZ uint32 = 1
	SupercompressionZstd    uint32 = 2
	SupercompressionZlib    uint32 = 3
)

const ktx2HeaderSize = 80

// maxKTX2LevelBytes bounds one uncompressed level: MaxImagePixels texels
// of the widest supported format.
const maxKTX2LevelBytes = MaxImagePixels * 16

// KTX2Level is one entry of the level index.
type KTX2Level struct {
	ByteOffset             uint64
	ByteLength             uint64
	UncompressedByteLength uint64
}

// KTX2 is a parsed KTX2 container. Only the level index and header are
// interpreted; the data format descriptor is kept raw.
type KTX2 struct {
	VkFormat               uint32
	TypeSize               uint32
	PixelWidth             uint32
	PixelHeight            uint32
	PixelDepth             uint32
	LayerCount             uint32
	FaceCount              uint32
	LevelCount             uint32
	SupercompressionScheme uint32
	Levels                 []KTX2Level
	DFD                    []byte

	data []byte
}

// ParseKTX2 parses the KTX2 header and level index.
func ParseKTX2(data []byte) (*KTX2, error) {
	if len(data) < ktx2HeaderSize {
		return nil, ErrTruncatedKTX2Data
	}
	if !bytes.Equal(data[:12], ktx2Magic) {
		return nil, ErrInvalidKTX2Magic
	}

	le := binary.LittleEndian
	k := &KTX2{
		VkFormat:               le.Uint32(data[12:]),
		TypeSize:               le.Uint32(data[16:]),
		PixelWidth:             le.Uint32(data[20:]),
		PixelHeight:            le.Uint32(data[24:]),
		PixelDepth:             le.Uint32(data[28:]),
		LayerCount:             le.Uint32(data[32:]),
		FaceCount:              le.Uint32(data[36:]),
		LevelCount:             le.Uint32(data[40:]),
		SupercompressionScheme: le.Uint32(data[44:]),
		data:                   data,
	}
	dfdOffset := le.Uint32(data[48:])
	dfdLength := le.Uint32(data[52:])

	levels := k.LevelCount
	if levels == 0 {
		levels = 1
	}
	indexEnd := uint64(ktx2HeaderSize) + uint64(levels)*24
	if indexEnd > uint64(len(data)) {
		return nil, ErrTruncatedKTX2Data
	}
	k.Levels = make([]KTX2Level, levels)
	for i := range k.Levels {
		p := ktx2HeaderSize + i*24
		k.Levels[i] = KTX2Level{
			ByteOffset:             le.Uint64(data[p:]),
			ByteLength:             le.Uint64(data[p+8:]),
			UncompressedByteLength: le.Uint64(data[p+16:]),
		}
		end := k.Levels[i].ByteOffset + k.Levels[i].ByteLength
		if end > uint64(len(data)) || end < k.Levels[i].ByteOffset {
			return nil, fmt.Errorf("level %d: %w", i, ErrTruncatedKTX2Data)
		}
	}
	if dfdLength > 0 {
		end := uint64(dfdOffset) + uint64(dfdLength)
		if end > uint64(len(data)) {
			return nil, fmt.Errorf("dfd: %w", ErrTruncatedKTX2Data)
		}
		k.DFD = data[dfdOffset:end]
	}

	return k, nil
}

// IsBasis reports whether the payload is BasisLZ (ETC1S) or UASTC.
func (k *KTX2) IsBasis() bool {
	return k.VkFormat == VkFormatUndefined || k.SupercompressionScheme == SupercompressionBasisLZ
}

// LevelData returns the uncompressed bytes of a mip level.
func (k *KTX2) LevelData(level int) ([]byte, error) {
	if level < 0 || level >= len(k.Levels) {
		return nil, fmt.Errorf("level %d out of range", level)
	}
	lv := k.Levels[level]
	raw := k.data[lv.ByteOffset : lv.ByteOffset+lv.ByteLength]

	if lv.UncompressedByteLength > maxKTX2LevelBytes {
		return nil, fmt.Errorf("%w: level %d expands to %d bytes", ErrKTX2TooLarge, level, lv.UncompressedByteLength)
	}
	limit := lv.UncompressedByteLength
	if limit == 0 {
		limit = maxKTX2LevelBytes
	}

	switch k.SupercompressionScheme {
	case SupercompressionNone:
		return raw, nil
	case SupercompressionZstd:
		dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(limit))
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(raw, make([]byte, 0, lv.UncompressedByteLength))
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return out, nil
	case SupercompressionZlib:
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("zlib: %w", err)
		}
		defer zr.Close()
		out, err := io.ReadAll(io.LimitReader(zr, int64(limit)+1))
		if err != nil {
			return nil, fmt.Errorf("zlib: %w", err)
		}
		if uint64(len(out)) > limit {
			return nil, fmt.Errorf("%w: level %d expands past %d bytes", ErrKTX2TooLarge, level, limit)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: scheme %d", ErrUnsupportedSupercompression, k.SupercompressionScheme)
	}
}

// DecodeRGBA decodes mip level 0 of a 2D texture into 8-bit RGBA.
// Float formats are clamped to [0,1].
func (k *KTX2) DecodeRGBA() (*image.NRGBA, error) {
	if k.IsBasis() {
		return nil, ErrBasisPayload
	}
	if k.PixelDepth > 1 || k.FaceCount > 1 {
		return nil, fmt.Errorf("%w: only 2D textures are supported", ErrUnsupportedKTX2Format)
	}

	if k.PixelWidth == 0 {
		return nil, fmt.Errorf("%w: zero width", ErrUnsupportedKTX2Format)
	}
	h := max(k.PixelHeight, 1)
	if uint64(k.PixelWidth)*uint64(h) > MaxImagePixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrKTX2TooLarge, k.PixelWidth, h)
	}
	n := int(k.PixelWidth) * int(h)

	var texel int
	switch k.VkFormat {
	case VkFormatR8G8B8A8Unorm, VkFormatR8G8B8A8SRGB:
		texel = 4
	case VkFormatR16G16B16A16Sfloat:
		texel = 8
	case VkFormatR32G32B32A32Sfloat:
		texel = 16
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedKTX2Format, k.VkFormat)
	}

	data, err := k.LevelData(0)
	if err != nil {
		return nil, err
	}
	if len(data) < n*texel {
		return nil, ErrTruncatedKTX2Data
	}

	img := image.NewNRGBA(image.Rect(0, 0, int(k.PixelWidth), int(h)))
	switch k.VkFormat {
	case VkFormatR8G8B8A8Unorm, VkFormatR8G8B8A8SRGB:
		copy(img.Pix, data[:n*4])
	case VkFormatR16G16B16A16Sfloat:
		for i := 0; i < n*4; i++ {
			v := half.Half(binary.LittleEndian.Uint16(data[i*2:])).Float32()
			img.Pix[i] = unitToByte(v)
		}
	case VkFormatR32G32B32A32Sfloat:
		for i := 0; i < n*4; i++ {
			v := math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
			img.Pix[i] = unitToByte(v)
		}
	}

	return img, nil
}

func unitToByte(v float32) uint8 {
	if v <= 0 || v != v {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
