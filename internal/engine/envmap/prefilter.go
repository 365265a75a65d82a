package envmap

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/glbview/internal/engine/texture"
	"github.com/Faultbox/glbview/internal/logger"
)

// ErrNotEquirectangular is returned for inputs without equirectangular
// reflection mapping.
var ErrNotEquirectangular = errors.New("texture is not an equirectangular map")

// Generator turns an equirectangular radiance map into a prefiltered
// environment.
type Generator interface {
	FromEquirectangular(ctx context.Context, tex *texture.DataTexture) (*Prefiltered, error)
}

// Level is one mip of the prefiltered chain. Data is RGB, row 0 at the
// zenith.
type Level struct {
	Width     int
	Height    int
	Roughness float32
	Data      []float32
}

// Prefiltered is the roughness mip chain derived from one radiance map.
// Level i is filtered for roughness i/(len(Levels)-1).
type Prefiltered struct {
	Levels []Level
}

// MaxRoughnessLevel returns the index of the roughest level.
func (p *Prefiltered) MaxRoughnessLevel() int {
	return len(p.Levels) - 1
}

// Options control the size and quality of the chain.
type Options struct {
	Size           int // width of level 0, rounded down to a power of two
	Levels         int
	Samples        int // GGX samples per texel for levels above 0
	MaxTextureSize int // 0 means unbounded
}

// DefaultOptions matches the configuration defaults.
func DefaultOptions() Options {
	return Options{Size: 512, Levels: 6, Samples: 64}
}

const minLevelWidth = 8

// PMREMGenerator prefilters on the CPU, rows in parallel.
type PMREMGenerator struct {
	opts Options
}

// NewPMREMGenerator returns a generator clamped to opts.MaxTextureSize.
func NewPMREMGenerator(opts Options) *PMREMGenerator {
	if opts.Size <= 0 {
		opts.Size = DefaultOptions().Size
	}
	if opts.MaxTextureSize > 0 && opts.Size > opts.MaxTextureSize {
		opts.Size = opts.MaxTextureSize
	}
	opts.Size = floorPow2(opts.Size)
	if opts.Size < minLevelWidth {
		opts.Size = minLevelWidth
	}
	if opts.Levels <= 0 {
		opts.Levels = 1
	}
	if limit := maxLevels(opts.Size); opts.Levels > limit {
		opts.Levels = limit
	}
	if opts.Samples <= 0 {
		opts.Samples = DefaultOptions().Samples
	}
	return &PMREMGenerator{opts: opts}
}

// Options returns the effective, clamped options.
func (g *PMREMGenerator) Options() Options {
	return g.opts
}

// FromEquirectangular builds the roughness chain for tex.
func (g *PMREMGenerator) FromEquirectangular(ctx context.Context, tex *texture.DataTexture) (*Prefiltered, error) {
	if tex == nil || tex.Mapping != texture.EquirectangularReflectionMapping {
		return nil, ErrNotEquirectangular
	}
	if err := tex.Validate(); err != nil {
		return nil, fmt.Errorf("prefilter: %w", err)
	}

	src := sampler{tex: tex}
	out := &Prefiltered{Levels: make([]Level, g.opts.Levels)}

	for i := range out.Levels {
		w := g.opts.Size >> i
		lv := Level{
			Width:  w,
			Height: w / 2,
			Data:   make([]float32, w*(w/2)*3),
		}
		if g.opts.Levels > 1 {
			lv.Roughness = float32(i) / float32(g.opts.Levels-1)
		}
		if err := g.filterLevel(ctx, src, &lv); err != nil {
			return nil, fmt.Errorf("prefilter level %d: %w", i, err)
		}
		out.Levels[i] = lv
	}

	logger.Debug("environment prefiltered",
		zap.Int("source_width", tex.Width),
		zap.Int("source_height", tex.Height),
		zap.Int("size", g.opts.Size),
		zap.Int("levels", g.opts.Levels),
		zap.Int("samples", g.opts.Samples),
	)
	return out, nil
}

func (g *PMREMGenerator) filterLevel(ctx context.Context, src sampler, lv *Level) error {
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))

	samples := g.opts.Samples
	if lv.Roughness == 0 {
		samples = 1
	}

	for y := 0; y < lv.Height; y++ {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v := (float32(y) + 0.5) / float32(lv.Height)
			for x := 0; x < lv.Width; x++ {
				u := (float32(x) + 0.5) / float32(lv.Width)
				c := convolve(src, direction(u, v), lv.Roughness, samples)
				i := (y*lv.Width + x) * 3
				lv.Data[i], lv.Data[i+1], lv.Data[i+2] = c[0], c[1], c[2]
			}
			return nil
		})
	}
	return eg.Wait()
}

// convolve integrates the GGX lobe around n, with view and normal both
// along n.
func convolve(src sampler, n mgl32.Vec3, roughness float32, samples int) mgl32.Vec3 {
	if samples <= 1 {
		return src.sample(n)
	}

	a := roughness * roughness
	tangent, bitangent := basis(n)

	var sum mgl32.Vec3
	var weight float32
	for i := 0; i < samples; i++ {
		xi0, xi1 := hammersley(uint32(i), uint32(samples))

		phi := 2 * math32.Pi * xi0
		cosTheta := math32.Sqrt((1 - xi1) / (1 + (a*a-1)*xi1))
		sinTheta := math32.Sqrt(1 - cosTheta*cosTheta)

		h := tangent.Mul(sinTheta * math32.Cos(phi)).
			Add(bitangent.Mul(sinTheta * math32.Sin(phi))).
			Add(n.Mul(cosTheta))
		l := h.Mul(2 * n.Dot(h)).Sub(n)

		nDotL := n.Dot(l)
		if nDotL <= 0 {
			continue
		}
		sum = sum.Add(src.sample(l.Normalize()).Mul(nDotL))
		weight += nDotL
	}
	if weight == 0 {
		return src.sample(n)
	}
	return sum.Mul(1 / weight)
}

// direction maps equirectangular coordinates to a unit vector. v=0 is +Y.
func direction(u, v float32) mgl32.Vec3 {
	phi := (u - 0.5) * 2 * math32.Pi
	theta := v * math32.Pi
	st := math32.Sin(theta)
	return mgl32.Vec3{st * math32.Cos(phi), math32.Cos(theta), st * math32.Sin(phi)}
}

// equirect is the inverse of direction.
func equirect(d mgl32.Vec3) (u, v float32) {
	u = math32.Atan2(d[2], d[0])/(2*math32.Pi) + 0.5
	y := d[1]
	if y > 1 {
		y = 1
	} else if y < -1 {
		y = -1
	}
	v = math32.Acos(y) / math32.Pi
	return u, v
}

func basis(n mgl32.Vec3) (t, b mgl32.Vec3) {
	up := mgl32.Vec3{0, 1, 0}
	if math32.Abs(n[1]) > 0.999 {
		up = mgl32.Vec3{1, 0, 0}
	}
	t = up.Cross(n).Normalize()
	b = n.Cross(t)
	return t, b
}

func hammersley(i, n uint32) (float32, float32) {
	bits := i
	bits = (bits << 16) | (bits >> 16)
	bits = ((bits & 0x55555555) << 1) | ((bits & 0xAAAAAAAA) >> 1)
	bits = ((bits & 0x33333333) << 2) | ((bits & 0xCCCCCCCC) >> 2)
	bits = ((bits & 0x0F0F0F0F) << 4) | ((bits & 0xF0F0F0F0) >> 4)
	bits = ((bits & 0x00FF00FF) << 8) | ((bits & 0xFF00FF00) >> 8)
	return float32(i) / float32(n), float32(bits) * 2.3283064365386963e-10
}

// sampler reads a radiance map bilinearly, wrapping horizontally.
type sampler struct {
	tex *texture.DataTexture
}

func (s sampler) sample(d mgl32.Vec3) mgl32.Vec3 {
	u, v := equirect(d)
	fx := u*float32(s.tex.Width) - 0.5
	fy := v*float32(s.tex.Height) - 0.5

	x0 := int(math32.Floor(fx))
	y0 := int(math32.Floor(fy))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	c00 := s.texel(x0, y0)
	c10 := s.texel(x0+1, y0)
	c01 := s.texel(x0, y0+1)
	c11 := s.texel(x0+1, y0+1)

	top := c00.Mul(1 - tx).Add(c10.Mul(tx))
	bottom := c01.Mul(1 - tx).Add(c11.Mul(tx))
	return top.Mul(1 - ty).Add(bottom.Mul(ty))
}

func (s sampler) texel(x, y int) mgl32.Vec3 {
	w := s.tex.Width
	x %= w
	if x < 0 {
		x += w
	}
	r, g, b := s.tex.At(x, y)
	return mgl32.Vec3{r, g, b}
}

func floorPow2(n int) int {
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}

func maxLevels(size int) int {
	n := 1
	for size>>n >= minLevelWidth {
		n++
	}
	return n
}
