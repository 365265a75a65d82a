package envmap

import (
	"fmt"
	"io"

	"github.com/mrjoshuak/go-openexr/exr"

	"github.com/Faultbox/glbview/pkg/formats"
)

// RGBA expands the level's RGB data with an opaque alpha channel.
func (l Level) RGBA() []float32 {
	n := l.Width * l.Height
	out := make([]float32, n*4)
	for i := 0; i < n && i*3+2 < len(l.Data); i++ {
		out[i*4] = l.Data[i*3]
		out[i*4+1] = l.Data[i*3+1]
		out[i*4+2] = l.Data[i*3+2]
		out[i*4+3] = 1
	}
	return out
}

// EncodeLevel writes one level as a ZIPS-compressed EXR file. Files are
// written in place; other writers are buffered in memory first.
func (p *Prefiltered) EncodeLevel(w io.Writer, level int) error {
	if level < 0 || level >= len(p.Levels) {
		return fmt.Errorf("level %d out of range [0,%d)", level, len(p.Levels))
	}
	l := p.Levels[level]
	return formats.EncodeEXR(w, l.Width, l.Height, l.RGBA(), exr.CompressionZIPS)
}
