package formats

import (
	"errors"
	"fmt"
	"io"

	"github.com/mrjoshuak/go-openexr/exr"
)

// EncodeEXR writes RGBA float32 pixels (row 0 on top) as a single-part
// scanline OpenEXR file with FLOAT R, G, B and A channels.
func EncodeEXR(w io.Writer, width, height int, pix []float32, compression exr.Compression) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid EXR size %dx%d", width, height)
	}
	n := width * height
	if len(pix) < n*4 {
		return fmt.Errorf("pixel buffer too small: %d < %d", len(pix), n*4)
	}

	h := exr.NewScanlineHeader(width, height)
	h.SetCompression(compression)
	cl := exr.NewChannelList()
	fb := exr.NewFrameBuffer()
	for c, name := range []string{"R", "G", "B", "A"} {
		cl.Add(exr.NewChannel(name, exr.PixelTypeFloat))
		plane := make([]float32, n)
		for i := range plane {
			plane[i] = pix[i*4+c]
		}
		fb.Set(name, exr.NewSliceFromFloat32(plane, width, height))
	}
	h.SetChannels(cl)

	ws, direct := w.(io.WriteSeeker)
	var buf seekBuffer
	if !direct {
		ws = &buf
	}

	sw, err := exr.NewScanlineWriter(ws, h)
	if err != nil {
		return fmt.Errorf("creating EXR writer: %w", err)
	}
	sw.SetFrameBuffer(fb)
	if err := sw.WritePixels(0, height-1); err != nil {
		return fmt.Errorf("writing EXR pixels: %w", err)
	}
	if err := sw.Close(); err != nil {
		return fmt.Errorf("finalizing EXR: %w", err)
	}

	if !direct {
		_, err = w.Write(buf.data)
	}
	return err
}

// seekBuffer is an in-memory io.WriteSeeker. The EXR writer seeks back to
// fill in the chunk offset table once all chunks are written.
type seekBuffer struct {
	data []byte
	pos  int64
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if end > int64(len(b.data)) {
		b.data = append(b.data, make([]byte, end-int64(len(b.data)))...)
	}
	copy(b.data[b.pos:end], p)
	b.pos = end
	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = b.pos + offset
	case io.SeekEnd:
		abs = int64(len(b.data)) + offset
	default:
		return 0, errors.New("seekBuffer: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("seekBuffer: negative position")
	}
	b.pos = abs
	return abs, nil
}
