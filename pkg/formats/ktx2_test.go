package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// createTestKTX2 builds a single-level 2D KTX2 file around payload.
func createTestKTX2(vkFormat, width, height, scheme uint32, payload []byte, uncompressed int) []byte {
	buf := new(bytes.Buffer)
	buf.Write(ktx2Magic)
	for _, v := range []uint32{vkFormat, 1, width, height, 0, 0, 1, 1, scheme} {
		binary.Write(buf, binary.LittleEndian, v)
	}
	// dfd, kvd offsets and lengths, sgd offset and length
	binary.Write(buf, binary.LittleEndian, [4]uint32{})
	binary.Write(buf, binary.LittleEndian, [2]uint64{})

	levelOffset := uint64(ktx2HeaderSize + 24)
	binary.Write(buf, binary.LittleEndian, levelOffset)
	binary.Write(buf, binary.LittleEndian, uint64(len(payload)))
	binary.Write(buf, binary.LittleEndian, uint64(uncompressed))
	buf.Write(payload)
	return buf.Bytes()
}

func TestParseKTX2_RGBA8(t *testing.T) {
	payload := []byte{
		255, 0, 0, 255, 0, 255, 0, 255,
		0, 0, 255, 255, 10, 20, 30, 40,
	}
	data := createTestKTX2(VkFormatR8G8B8A8Unorm, 2, 2, SupercompressionNone, payload, len(payload))

	k, err := ParseKTX2(data)
	if err != nil {
		t.Fatalf("ParseKTX2 failed: %v", err)
	}
	if k.PixelWidth != 2 || k.PixelHeight != 2 {
		t.Errorf("expected 2x2, got %dx%d", k.PixelWidth, k.PixelHeight)
	}
	if k.IsBasis() {
		t.Error("RGBA8 payload reported as Basis")
	}

	img, err := k.DecodeRGBA()
	if err != nil {
		t.Fatalf("DecodeRGBA failed: %v", err)
	}
	if !bytes.Equal(img.Pix, payload) {
		t.Errorf("pixels: got %v, want %v", img.Pix, payload)
	}
}

func TestParseKTX2_Zstd(t *testing.T) {
	raw := bytes.Repeat([]byte{1, 2, 3, 4}, 16)
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	packed := enc.EncodeAll(raw, nil)
	enc.Close()

	data := createTestKTX2(VkFormatR8G8B8A8SRGB, 4, 4, SupercompressionZstd, packed, len(raw))
	k, err := ParseKTX2(data)
	if err != nil {
		t.Fatalf("ParseKTX2 failed: %v", err)
	}
	level, err := k.LevelData(0)
	if err != nil {
		t.Fatalf("LevelData failed: %v", err)
	}
	if !bytes.Equal(level, raw) {
		t.Error("zstd level data mismatch")
	}
}

func TestParseKTX2_Basis(t *testing.T) {
	data := createTestKTX2(VkFormatUndefined, 4, 4, SupercompressionBasisLZ, []byte{0, 0, 0, 0}, 4)
	k, err := ParseKTX2(data)
	if err != nil {
		t.Fatalf("ParseKTX2 failed: %v", err)
	}
	if _, err := k.DecodeRGBA(); !errors.Is(err, ErrBasisPayload) {
		t.Errorf("expected ErrBasisPayload, got %v", err)
	}
}

func TestParseKTX2_InvalidMagic(t *testing.T) {
	data := make([]byte, ktx2HeaderSize+24)
	if _, err := ParseKTX2(data); !errors.Is(err, ErrInvalidKTX2Magic) {
		t.Errorf("expected ErrInvalidKTX2Magic, got %v", err)
	}
}

func TestParseKTX2_LevelOutOfBounds(t *testing.T) {
	data := createTestKTX2(VkFormatR8G8B8A8Unorm, 2, 2, SupercompressionNone, []byte{1, 2, 3, 4}, 16)
	// claim more bytes than present
	binary.LittleEndian.PutUint64(data[ktx2HeaderSize+8:], 1<<20)
	if _, err := ParseKTX2(data); !errors.Is(err, ErrTruncatedKTX2Data) {
		t.Errorf("expected ErrTruncatedKTX2Data, got %v", err)
	}
}

func TestKTX2_HostileSizes(t *testing.T) {
	raw := bytes.Repeat([]byte{0}, 4096)
	zs, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	zstdPacked := zs.EncodeAll(raw, nil)
	zs.Close()

	var zbuf bytes.Buffer
	zw := zlib.NewWriter(&zbuf)
	zw.Write(raw)
	zw.Close()

	tests := []struct {
		name   string
		data   []byte
		target error
	}{
		{
			"huge uncompressed length",
			createTestKTX2(VkFormatR8G8B8A8Unorm, 2, 2, SupercompressionZstd, zstdPacked, 0),
			ErrKTX2TooLarge,
		},
		{
			"zstd expands past declared length",
			createTestKTX2(VkFormatR8G8B8A8Unorm, 2, 2, SupercompressionZstd, zstdPacked, 16),
			nil,
		},
		{
			"zlib expands past declared length",
			createTestKTX2(VkFormatR8G8B8A8Unorm, 2, 2, SupercompressionZlib, zbuf.Bytes(), 16),
			ErrKTX2TooLarge,
		},
		{
			"maximal dimensions",
			createTestKTX2(VkFormatR8G8B8A8Unorm, 0xFFFFFFFF, 0xFFFFFFFF, SupercompressionNone, []byte{1, 2, 3, 4}, 4),
			ErrKTX2TooLarge,
		},
		{
			"dimensions past payload",
			createTestKTX2(VkFormatR8G8B8A8Unorm, 4096, 4096, SupercompressionNone, []byte{1, 2, 3, 4}, 4),
			ErrTruncatedKTX2Data,
		},
	}
	// the first case declares an uncompressed length past the level cap
	binary.LittleEndian.PutUint64(tests[0].data[ktx2HeaderSize+16:], 1<<62)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := ParseKTX2(tt.data)
			if err != nil {
				t.Fatalf("ParseKTX2 failed: %v", err)
			}
			_, err = k.DecodeRGBA()
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("expected %v, got %v", tt.target, err)
			}
		})
	}
}

func TestParseKTX2_HugeLevelCount(t *testing.T) {
	data := createTestKTX2(VkFormatR8G8B8A8Unorm, 2, 2, SupercompressionNone, make([]byte, 16), 16)
	binary.LittleEndian.PutUint32(data[40:], 0xFFFFFFFF)
	if _, err := ParseKTX2(data); !errors.Is(err, ErrTruncatedKTX2Data) {
		t.Errorf("expected ErrTruncatedKTX2Data, got %v", err)
	}
}
