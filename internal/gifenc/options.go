package gifenc

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/rs/zerolog"

	"github.com/ironsheep/gif-tools-mcp/internal/neuquant"
)

// Disposal tells a decoder what to do with a frame before drawing the next.
type Disposal int

// Disposal methods. DisposalUnspecified lets the encoder choose: none for
// opaque frames, restore-to-background for frames with a transparent color.
const (
	DisposalUnspecified Disposal = -1
	DisposalNone        Disposal = 0
	DisposalKeep        Disposal = 1
	DisposalBackground  Disposal = 2
	DisposalPrevious    Disposal = 3
)

// maxUint16 bounds every value stored in a two-byte GIF field.
const maxUint16 = 1<<16 - 1

// ErrOptions is returned when an Options field is outside the range its
// GIF field can hold.
var ErrOptions = errors.New("gif: invalid options")

// NoRepeat omits the NETSCAPE2.0 looping extension, so viewers play the
// animation once.
const NoRepeat = -1

// Options configures an encoding session.
type Options struct {
	// Width and Height fix the logical screen. Zero takes the size of the
	// first frame.
	Width, Height int

	// Repeat is the loop count: NoRepeat for none, 0 to loop forever, N to
	// play N extra times.
	Repeat int

	// Delay is the per-frame display time in hundredths of a second.
	Delay int

	// Disposal is written into each frame's graphic control extension.
	Disposal Disposal

	// Transparent, when set, marks the palette entry matching this color
	// as transparent. TransparentExact requires an exact match; otherwise
	// the nearest color the frame uses is chosen.
	Transparent      *color.RGBA
	TransparentExact bool

	// Background fills padding and sits under translucent pixels. Nil means
	// black.
	Background *color.RGBA

	// Quality is the quantizer sampling factor: 1 gives the best palette,
	// 30 the fastest encode.
	Quality int

	// Colors is the palette size learned per frame, 2..256.
	Colors int

	// ReuseGlobalTable skips a frame's local color table when its palette
	// is byte-identical to the global one.
	ReuseGlobalTable bool

	Logger zerolog.Logger
}

// DefaultOptions returns a single-play, 256-color, quality 10 configuration.
func DefaultOptions() Options {
	return Options{
		Repeat:   NoRepeat,
		Disposal: DisposalUnspecified,
		Quality:  neuquant.DefaultSample,
		Colors:   neuquant.DefaultColors,
		Logger:   zerolog.Nop(),
	}
}

func (o Options) background() color.Color {
	if o.Background == nil {
		return color.Black
	}
	return *o.Background
}

// Validate reports the first field outside its range. Width, Height, Delay
// and Repeat are written as 16-bit values and are never truncated.
func (o Options) Validate() error {
	switch {
	case o.Width < 0 || o.Width > maxUint16 || o.Height < 0 || o.Height > maxUint16:
		return fmt.Errorf("%w: screen size %dx%d out of range 0-%d", ErrOptions, o.Width, o.Height, maxUint16)
	case o.Delay < 0 || o.Delay > maxUint16:
		return fmt.Errorf("%w: delay %d out of range 0-%d", ErrOptions, o.Delay, maxUint16)
	case o.Repeat < NoRepeat || o.Repeat > maxUint16:
		return fmt.Errorf("%w: repeat %d out of range %d-%d", ErrOptions, o.Repeat, NoRepeat, maxUint16)
	case o.Disposal < DisposalUnspecified || o.Disposal > DisposalPrevious:
		return fmt.Errorf("%w: disposal %d out of range %d-%d", ErrOptions, o.Disposal, DisposalUnspecified, DisposalPrevious)
	case o.Quality < 1 || o.Quality > neuquant.MaxSample:
		return fmt.Errorf("%w: quality %d out of range 1-%d", ErrOptions, o.Quality, neuquant.MaxSample)
	case o.Colors < 2 || o.Colors > neuquant.DefaultColors:
		return fmt.Errorf("%w: colors %d out of range 2-%d", ErrOptions, o.Colors, neuquant.DefaultColors)
	}
	return nil
}
