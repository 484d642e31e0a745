package imaging

import (
	"fmt"
	"image/gif"

	"github.com/ironsheep/gif-tools-mcp/internal/sink"
)

// GIFInfo describes the animation structure of a GIF file.
type GIFInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// Frames is the number of images in the stream.
	Frames int `json:"frames"`

	// LoopCount is -1 when the animation plays once, 0 when it loops
	// forever, and N when it repeats N extra times.
	LoopCount int `json:"loop_count"`

	// Delays holds each frame's display time in hundredths of a second.
	Delays []int `json:"delays"`

	// Disposals holds each frame's disposal method (0-3).
	Disposals []int `json:"disposals"`

	// PaletteSizes holds the color table length each frame decodes with.
	PaletteSizes []int `json:"palette_sizes"`

	// DurationMs is the sum of all frame delays in milliseconds.
	DurationMs int `json:"duration_ms"`
}

// InspectGIF decodes the GIF at path and reports its structure. Paths ending
// in .gz or .zst are decompressed first.
func InspectGIF(path string) (*GIFInfo, error) {
	r, err := sink.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	g, err := gif.DecodeAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode gif %s: %w", path, err)
	}

	info := &GIFInfo{
		Width:        g.Config.Width,
		Height:       g.Config.Height,
		Frames:       len(g.Image),
		LoopCount:    g.LoopCount,
		Delays:       make([]int, len(g.Image)),
		Disposals:    make([]int, len(g.Image)),
		PaletteSizes: make([]int, len(g.Image)),
	}
	for i, img := range g.Image {
		info.Delays[i] = g.Delay[i]
		info.DurationMs += g.Delay[i] * 10
		if i < len(g.Disposal) {
			info.Disposals[i] = int(g.Disposal[i])
		}
		info.PaletteSizes[i] = len(img.Palette)
	}
	return info, nil
}
