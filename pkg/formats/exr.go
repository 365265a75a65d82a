package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mrjoshuak/go-openexr/exr"
)

// EXR format errors.
var (
	ErrInvalidEXRMagic       = errors.New("invalid EXR magic")
	ErrUnsupportedEXRVersion = errors.New("unsupported EXR version")
	ErrUnsupportedEXRLayout  = errors.New("unsupported EXR layout (tiled, deep or multi-part)")
	ErrTruncatedEXRData      = errors.New("truncated EXR data")
	ErrEXRTooLarge           = errors.New("EXR data window too large")
	ErrNoEXRColorChannels    = errors.New("EXR has no R, G, B or Y channel")
)

// EXRImage is a decoded scanline image as interleaved RGBA float32.
// Row 0 is the top row of the data window.
type EXRImage struct {
	Header *exr.Header
	Width  int
	Height int
	// Pix holds Width*Height*4 values.
	Pix []float32
	// Half is true when every colour channel was stored as HALF.
	Half bool
}

// ParseEXR decodes a single-part scanline OpenEXR file. The data window is
// checked against MaxImagePixels and the payload length before any pixel
// storage is allocated.
func ParseEXR(data []byte) (*EXRImage, error) {
	if len(data) < 8 {
		return nil, ErrTruncatedEXRData
	}
	if !bytes.Equal(data[:4], exrMagic) {
		return nil, ErrInvalidEXRMagic
	}
	flags := binary.LittleEndian.Uint32(data[4:8])
	if v := exr.Version(flags); v != 2 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedEXRVersion, v)
	}
	if exr.IsTiled(flags) || exr.IsDeep(flags) || exr.IsMultiPart(flags) {
		return nil, ErrUnsupportedEXRLayout
	}

	hdr, err := exr.ReadHeaderFromBytes(data[8:])
	if err != nil {
		return nil, fmt.Errorf("reading EXR header: %w", err)
	}
	width, height, err := checkDataWindow(hdr, len(data))
	if err != nil {
		return nil, err
	}

	f, err := exr.OpenReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening EXR: %w", err)
	}
	if err := checkChunks(data, f.Offsets(0)); err != nil {
		return nil, err
	}

	sr, err := exr.NewScanlineReader(f)
	if err != nil {
		return nil, fmt.Errorf("opening EXR scanlines: %w", err)
	}
	hdr = sr.Header()
	dw := sr.DataWindow()

	fb, _ := exr.AllocateChannels(hdr.Channels(), dw)
	sr.SetFrameBuffer(fb)
	if err := sr.ReadPixels(int(dw.Min.Y), int(dw.Max.Y)); err != nil {
		return nil, fmt.Errorf("reading EXR pixels: %w", err)
	}

	img := &EXRImage{
		Header: hdr,
		Width:  width,
		Height: height,
		Pix:    make([]float32, width*height*4),
	}
	if err := img.fill(fb, hdr.Channels(), dw); err != nil {
		return nil, err
	}
	return img, nil
}

// checkDataWindow validates the header's data window and returns its size.
func checkDataWindow(hdr *exr.Header, size int) (width, height int, err error) {
	dw := hdr.DataWindow()
	w := int64(dw.Max.X) - int64(dw.Min.X) + 1
	h := int64(dw.Max.Y) - int64(dw.Min.Y) + 1
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid EXR data window %+v", dw)
	}
	if w*h > MaxImagePixels {
		return 0, 0, fmt.Errorf("%w: %dx%d", ErrEXRTooLarge, w, h)
	}

	cl := hdr.Channels()
	if cl == nil || cl.Len() == 0 {
		return 0, 0, ErrNoEXRColorChannels
	}
	var raw int64
	for i := 0; i < cl.Len(); i++ {
		ch := cl.At(i)
		xs, ys := int64(ch.XSampling), int64(ch.YSampling)
		if xs < 1 || ys < 1 {
			return 0, 0, fmt.Errorf("EXR channel %q has invalid sampling %dx%d", ch.Name, xs, ys)
		}
		raw += (w + xs - 1) / xs * ((h + ys - 1) / ys) * int64(ch.Type.Size())
	}

	// one offset table entry per chunk must fit in the payload
	lines := int64(hdr.Compression().ScanlinesPerChunk())
	if (h+lines-1)/lines*8 > int64(size) {
		return 0, 0, fmt.Errorf("%w: offset table for %d rows", ErrTruncatedEXRData, h)
	}
	if hdr.Compression() == exr.CompressionNone && raw > int64(size) {
		return 0, 0, fmt.Errorf("%w: %dx%d uncompressed pixels", ErrTruncatedEXRData, w, h)
	}
	return int(w), int(h), nil
}

// checkChunks verifies every chunk the offset table points at lies inside
// data.
func checkChunks(data []byte, offsets []int64) error {
	size := int64(len(data))
	for i, off := range offsets {
		if off < 8 || off+8 > size {
			return fmt.Errorf("%w: chunk %d offset %d", ErrTruncatedEXRData, i, off)
		}
		packed := int64(int32(binary.LittleEndian.Uint32(data[off+4:])))
		if packed < 0 || off+8+packed > size {
			return fmt.Errorf("%w: chunk %d", ErrTruncatedEXRData, i)
		}
	}
	return nil
}

// fill interleaves the decoded channel planes into Pix. Luminance-only
// images fan Y out to RGB; a missing alpha channel reads as opaque.
func (img *EXRImage) fill(fb *exr.FrameBuffer, cl *exr.ChannelList, dw exr.Box2i) error {
	slots := map[string]int{"R": 0, "G": 1, "B": 2, "A": 3}
	if !cl.HasRGB() && cl.Get("Y") != nil {
		slots["Y"] = -1
	}

	found := false
	img.Half = true
	for name, slot := range slots {
		ch := cl.Get(name)
		if ch == nil {
			continue
		}
		if slot != 3 {
			found = true
			if ch.Type != exr.PixelTypeHalf {
				img.Half = false
			}
		}
	}
	if !found {
		return ErrNoEXRColorChannels
	}

	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 1
	}
	for name, slot := range slots {
		s := fb.Get(name)
		if s == nil {
			continue
		}
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				v := s.GetFloat32(x+int(dw.Min.X), y+int(dw.Min.Y))
				p := (y*img.Width + x) * 4
				if slot < 0 {
					img.Pix[p], img.Pix[p+1], img.Pix[p+2] = v, v, v
					continue
				}
				img.Pix[p+slot] = v
			}
		}
	}
	return nil
}
