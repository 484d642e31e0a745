package gifenc

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/gif-tools-mcp/internal/imaging"
	"github.com/ironsheep/gif-tools-mcp/internal/neuquant"
)

// Frame is one animation frame as packed RGB triples, row-major, 3 bytes
// per pixel.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// NewFrame flattens img into a Frame of the same size. Translucent pixels
// are composited over bg; a nil bg means black.
func NewFrame(img image.Image, bg color.Color) (*Frame, error) {
	if img == nil {
		return nil, ErrNilFrame
	}
	b := img.Bounds()
	pix, err := imaging.FlattenRGB(img, b.Dx(), b.Dy(), bg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFrameData, err)
	}
	return &Frame{Width: b.Dx(), Height: b.Dy(), Pix: pix}, nil
}

func (f *Frame) validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrFrameData, f.Width, f.Height)
	}
	if f.Width > maxUint16 || f.Height > maxUint16 {
		return fmt.Errorf("%w: size %dx%d exceeds %d", ErrFrameData, f.Width, f.Height, maxUint16)
	}
	if len(f.Pix) != f.Width*f.Height*3 {
		return fmt.Errorf("%w: %d bytes for %dx%d", ErrFrameData, len(f.Pix), f.Width, f.Height)
	}
	return nil
}

// quantized is a frame reduced to palette indices.
type quantized struct {
	indices []byte
	// table is the color table as written, padded to 1<<bits entries.
	table []byte
	bits  int
	// used marks the entries at least one pixel maps to.
	used []bool
}

func quantize(pix []byte, colors, sample int) (*quantized, error) {
	net, err := neuquant.Train(pix, neuquant.Options{Colors: colors, Sample: sample})
	if err != nil {
		return nil, err
	}

	indices := make([]byte, len(pix)/3)
	if err := net.MapPixels(indices, pix); err != nil {
		return nil, err
	}

	bits := imaging.PaletteBits(net.Len())
	table := make([]byte, 3<<bits)
	copy(table, net.ColorMap())

	used := make([]bool, net.Len())
	for _, idx := range indices {
		used[idx] = true
	}
	return &quantized{indices: indices, table: table, bits: bits, used: used}, nil
}

// transparentIndex picks the palette entry to mark transparent. Only entries
// the frame's pixels use are candidates. In exact mode a frame without the
// exact color gets no transparency.
func (e *Encoder) transparentIndex(q *quantized) (int, bool) {
	t := e.opts.Transparent
	if t == nil {
		return 0, false
	}

	if e.opts.TransparentExact {
		for i, u := range q.used {
			if u && q.table[3*i] == t.R && q.table[3*i+1] == t.G && q.table[3*i+2] == t.B {
				return i, true
			}
		}
		return 0, false
	}

	target, _ := colorful.MakeColor(*t)
	best, bestDist := -1, math.MaxFloat64
	for i, u := range q.used {
		if !u {
			continue
		}
		c := colorful.Color{
			R: float64(q.table[3*i]) / 255,
			G: float64(q.table[3*i+1]) / 255,
			B: float64(q.table[3*i+2]) / 255,
		}
		if d := target.DistanceRgb(c); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}
