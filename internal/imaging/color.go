package imaging

import (
	"fmt"
	"image"
	"image/color"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/gif-tools-mcp/internal/neuquant"
)

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
}

// HSLColor represents a color in HSL (Hue, Saturation, Lightness) color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent (0=gray, 100=vivid)
	L int `json:"l"` // Lightness: 0-100 percent (0=black, 50=normal, 100=white)
}

// ParseHexColor parses "#RRGGBB", "RRGGBB" or the short "#RGB" form into an
// opaque color.
func ParseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	if len(s) != 4 && len(s) != 7 {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: want #RGB or #RRGGBB", s)
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// PaletteEntry is one learned palette color and how much of the image maps
// onto it.
type PaletteEntry struct {
	Index      int      `json:"index"`      // Position in the GIF color table
	Hex        string   `json:"hex"`        // Hex format "#rrggbb"
	RGB        RGBColor `json:"rgb"`        // RGB components
	HSL        HSLColor `json:"hsl"`        // HSL representation
	Percentage float64  `json:"percentage"` // Share of pixels mapped to this entry (0-100)
}

// PaletteResult contains the palette NeuQuant learned for an image.
//
// Entries lists only colors that at least one pixel maps to, sorted by
// coverage, most common first. TableSize is the full color table length a
// GIF encoder would write for this palette.
type PaletteResult struct {
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	Colors    int            `json:"colors"`
	Sample    int            `json:"sample"`
	TableSize int            `json:"table_size"`
	Entries   []PaletteEntry `json:"entries"`
}

// LearnPalette trains a NeuQuant palette on img and reports the colors its
// pixels map to.
//
// Parameters:
//   - img: The source image. Translucent pixels are composited over black.
//   - colors: Palette size, 2-256. Zero selects 256.
//   - sample: Sampling factor, 1 (best) to 30 (fastest). Zero selects 10.
//
// Returns:
//   - *PaletteResult: The used palette entries with coverage.
//   - error: Non-nil if the options are out of range.
func LearnPalette(img image.Image, colors, sample int) (*PaletteResult, error) {
	b := img.Bounds()
	pix, err := FlattenRGB(img, b.Dx(), b.Dy(), nil)
	if err != nil {
		return nil, err
	}

	net, err := neuquant.Train(pix, neuquant.Options{Colors: colors, Sample: sample})
	if err != nil {
		return nil, err
	}

	indices := make([]byte, b.Dx()*b.Dy())
	if err := net.MapPixels(indices, pix); err != nil {
		return nil, err
	}
	counts := make([]int, net.Len())
	for _, idx := range indices {
		counts[idx]++
	}

	cm := net.ColorMap()
	entries := make([]PaletteEntry, 0, net.Len())
	for i, n := range counts {
		if n == 0 {
			continue
		}
		r, g, bl := cm[3*i], cm[3*i+1], cm[3*i+2]
		c, _ := colorful.MakeColor(color.RGBA{R: r, G: g, B: bl, A: 0xff})
		h, s, l := c.Hsl()
		entries = append(entries, PaletteEntry{
			Index:      i,
			Hex:        c.Hex(),
			RGB:        RGBColor{R: r, G: g, B: bl},
			HSL:        HSLColor{H: int(h), S: int(s * 100), L: int(l * 100)},
			Percentage: float64(n) / float64(len(indices)) * 100,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Percentage > entries[j].Percentage
	})

	return &PaletteResult{
		Width:     b.Dx(),
		Height:    b.Dy(),
		Colors:    net.Len(),
		Sample:    sampleOrDefault(sample),
		TableSize: 1 << PaletteBits(net.Len()),
		Entries:   entries,
	}, nil
}

// PaletteBits returns the number of bits needed to index n palette
// entries, at least 1. A GIF color table holds 1<<PaletteBits(n) entries.
func PaletteBits(n int) int {
	bits := 1
	for 1<<bits < n {
		bits++
	}
	return bits
}

func sampleOrDefault(sample int) int {
	if sample == 0 {
		return neuquant.DefaultSample
	}
	return sample
}
