package gifenc

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/rs/zerolog"

	"github.com/ironsheep/gif-tools-mcp/internal/imaging"
	"github.com/ironsheep/gif-tools-mcp/internal/lzw"
	"github.com/ironsheep/gif-tools-mcp/internal/neuquant"
	"github.com/ironsheep/gif-tools-mcp/internal/sink"
)

// Section indicators and labels.
const (
	sExtension       = 0x21
	sImageDescriptor = 0x2C
	sTrailer         = 0x3B

	gcLabel     = 0xF9
	gcBlockSize = 0x04
	appLabel    = 0xFF
)

// Packed field masks.
const (
	fColorTable      = 1 << 7
	fColorResolution = 7 << 4
	fTransparent     = 0x01
)

var (
	// ErrNilWriter is returned by Start and EncodeAll for a nil destination.
	ErrNilWriter = errors.New("gif: nil writer")
	// ErrNilFrame is returned when a nil frame or image is added.
	ErrNilFrame = errors.New("gif: nil frame")
	// ErrNotStarted is returned by frame and session calls made before Start.
	ErrNotStarted = errors.New("gif: session not started")
	// ErrAlreadyStarted is returned by Start during a running session.
	ErrAlreadyStarted = errors.New("gif: session already started")
	// ErrFrameData is returned for a frame whose size and pixel buffer
	// disagree, or that cannot fit the logical screen.
	ErrFrameData = errors.New("gif: invalid frame data")
	// ErrSizeLocked is returned by SetSize after the first frame.
	ErrSizeLocked = errors.New("gif: logical screen size is locked")
	// ErrNoFrames is returned by Finish and EncodeAll when no frame was
	// written. A GIF without a logical screen descriptor is not decodable.
	ErrNoFrames = errors.New("gif: no frames written")
)

// Encoder writes an animated GIF one frame at a time.
//
// A session runs Start (or StartFile), any number of AddFrame/AddImage
// calls, then Finish. Finish returns the Encoder to its unstarted state: the
// sink is released, the screen size learned from the first frame is
// forgotten, and the next Start begins an independent stream. Options set
// through New or the setters survive Finish.
//
// After any write error the session is poisoned: every later AddFrame
// returns the same error, and the output should be discarded.
//
// An Encoder is not safe for concurrent use.
type Encoder struct {
	opts Options
	log  zerolog.Logger

	started bool
	out     *sinkWriter
	closer  io.Closer

	width, height int
	sizeLocked    bool
	frames        int
	globalTable   []byte

	buf [32]byte
}

// New returns an Encoder configured with opts. Start from DefaultOptions:
// the zero Options loops forever and never picks a disposal method. Zero
// Quality and Colors select the defaults; Quality is clamped to 1..30.
// Every other field is checked by Start.
func New(opts Options) *Encoder {
	if opts.Quality == 0 {
		opts.Quality = neuquant.DefaultSample
	}
	if opts.Colors == 0 {
		opts.Colors = neuquant.DefaultColors
	}
	opts.Quality = max(1, min(neuquant.MaxSample, opts.Quality))
	return &Encoder{opts: opts, log: opts.Logger}
}

// Options returns the current configuration.
func (e *Encoder) Options() Options { return e.opts }

// SetDelay sets the display time of following frames, in hundredths of a
// second, clamped to 0..65535.
func (e *Encoder) SetDelay(centiseconds int) {
	e.opts.Delay = max(0, min(maxUint16, centiseconds))
}

// SetRepeat sets the loop count, clamped to 65535. Negative values select
// NoRepeat. It only has an effect before the first frame, which is when
// the looping extension is written.
func (e *Encoder) SetRepeat(n int) {
	if n < 0 {
		n = NoRepeat
	}
	e.opts.Repeat = min(maxUint16, n)
}

// SetDisposal sets the disposal method of following frames. Values outside
// DisposalUnspecified..DisposalPrevious select DisposalUnspecified.
func (e *Encoder) SetDisposal(d Disposal) {
	if d < DisposalUnspecified || d > DisposalPrevious {
		d = DisposalUnspecified
	}
	e.opts.Disposal = d
}

// SetTransparent sets the color to mark transparent in following frames.
// Pass nil to turn transparency off.
func (e *Encoder) SetTransparent(c *color.RGBA, exact bool) {
	e.opts.Transparent = c
	e.opts.TransparentExact = exact
}

// SetBackground sets the color used for padding and compositing.
func (e *Encoder) SetBackground(c *color.RGBA) {
	e.opts.Background = c
}

// SetQuality sets the quantizer sampling factor, clamped to 1..30.
func (e *Encoder) SetQuality(q int) {
	e.opts.Quality = max(1, min(neuquant.MaxSample, q))
}

// SetSize fixes the logical screen size. It fails once a frame has been
// written.
func (e *Encoder) SetSize(width, height int) error {
	if e.sizeLocked {
		return ErrSizeLocked
	}
	if width <= 0 || height <= 0 || width > maxUint16 || height > maxUint16 {
		return fmt.Errorf("gif: invalid screen size %dx%d", width, height)
	}
	e.opts.Width, e.opts.Height = width, height
	return nil
}

// Start begins a session writing to w. The caller keeps ownership of w;
// Finish flushes but does not close it. Start fails with ErrOptions, and
// writes nothing, when a setting does not fit its GIF field.
func (e *Encoder) Start(w io.Writer) error {
	if w == nil {
		return ErrNilWriter
	}
	if e.started {
		return ErrAlreadyStarted
	}
	if err := e.opts.Validate(); err != nil {
		return err
	}

	e.out = &sinkWriter{bw: bufio.NewWriter(w)}
	e.started = true
	e.out.Write([]byte("GIF89a"))
	if err := e.out.flush(); err != nil {
		e.reset()
		return fmt.Errorf("gif: write header: %w", err)
	}
	return nil
}

// StartFile begins a session writing to a file the Encoder creates and
// closes in Finish. Paths ending in .gz or .zst are compressed.
func (e *Encoder) StartFile(path string) error {
	if e.started {
		return ErrAlreadyStarted
	}
	if err := e.opts.Validate(); err != nil {
		return err
	}
	f, err := sink.Create(path)
	if err != nil {
		return fmt.Errorf("gif: %w", err)
	}
	if err := e.Start(f); err != nil {
		f.Close()
		e.reset()
		return err
	}
	e.closer = f
	return nil
}

// AddFrame quantizes and writes one frame. A frame whose size differs from
// the logical screen is cropped or padded with the background color.
//
// AddFrame writes nothing when it returns ErrNilFrame, ErrNotStarted or
// ErrFrameData.
func (e *Encoder) AddFrame(f *Frame) error {
	if f == nil {
		return ErrNilFrame
	}
	if !e.started {
		return ErrNotStarted
	}
	if e.out.err != nil {
		return e.out.err
	}
	if err := f.validate(); err != nil {
		return err
	}
	if err := e.lockSize(f.Width, f.Height); err != nil {
		return err
	}

	pix, err := imaging.ConformRGB(f.Pix, f.Width, f.Height, e.width, e.height, e.opts.background())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFrameData, err)
	}
	return e.addPixels(pix)
}

// AddImage converts img to a frame, compositing it over the background
// color, and writes it.
func (e *Encoder) AddImage(img image.Image) error {
	if img == nil {
		return ErrNilFrame
	}
	if !e.started {
		return ErrNotStarted
	}
	if e.out.err != nil {
		return e.out.err
	}
	b := img.Bounds()
	if err := e.lockSize(b.Dx(), b.Dy()); err != nil {
		return err
	}

	pix, err := imaging.FlattenRGB(img, e.width, e.height, e.opts.background())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFrameData, err)
	}
	return e.addPixels(pix)
}

// Finish writes the trailer, flushes, closes a sink opened by StartFile,
// and resets the session. A session without frames has no logical screen;
// Finish then writes no trailer and returns ErrNoFrames.
func (e *Encoder) Finish() error {
	if !e.started {
		return ErrNotStarted
	}
	if e.frames == 0 {
		err := e.out.err
		if err == nil {
			err = ErrNoFrames
		}
		if e.closer != nil {
			e.closer.Close()
		}
		e.reset()
		return fmt.Errorf("gif: finish: %w", err)
	}

	e.out.Write([]byte{sTrailer})
	err := e.out.flush()
	if e.closer != nil {
		if cerr := e.closer.Close(); err == nil {
			err = cerr
		}
	}
	e.log.Debug().
		Int("frames", e.frames).
		Int64("bytes", e.out.n).
		Err(err).
		Msg("gif session finished")

	e.reset()
	if err != nil {
		return fmt.Errorf("gif: finish: %w", err)
	}
	return nil
}

// Abort ends the session without writing the trailer. A sink opened by
// StartFile is closed; a caller's writer is left as is.
func (e *Encoder) Abort() error {
	if !e.started {
		return ErrNotStarted
	}
	var err error
	if e.closer != nil {
		err = e.closer.Close()
	}
	e.reset()
	return err
}

func (e *Encoder) reset() {
	e.started = false
	e.out = nil
	e.closer = nil
	e.width, e.height = 0, 0
	e.sizeLocked = false
	e.frames = 0
	e.globalTable = nil
}

func (e *Encoder) lockSize(w, h int) error {
	if e.sizeLocked {
		return nil
	}
	if e.opts.Width > 0 {
		w = e.opts.Width
	}
	if e.opts.Height > 0 {
		h = e.opts.Height
	}
	if w <= 0 || h <= 0 || w > maxUint16 || h > maxUint16 {
		return fmt.Errorf("%w: screen size %dx%d", ErrFrameData, w, h)
	}
	e.width, e.height = w, h
	e.sizeLocked = true
	return nil
}

func (e *Encoder) addPixels(pix []byte) error {
	q, err := quantize(pix, e.opts.Colors, e.opts.Quality)
	if err != nil {
		return fmt.Errorf("gif: quantize frame %d: %w", e.frames, err)
	}
	return e.writeFrame(q)
}

// writeFrame serializes one quantized frame. The first frame also writes
// the logical screen descriptor, global color table and looping extension.
func (e *Encoder) writeFrame(q *quantized) error {
	if err := e.opts.Validate(); err != nil {
		return err
	}
	first := e.frames == 0
	if first {
		e.writeScreenDescriptor(q.bits)
		e.out.Write(q.table)
		if e.opts.Repeat >= 0 {
			e.writeNetscapeExt()
		}
		e.globalTable = q.table
	}

	transIndex, hasTrans := e.transparentIndex(q)
	e.writeGraphicCtrlExt(transIndex, hasTrans)

	local := !first
	if local && e.opts.ReuseGlobalTable && string(q.table) == string(e.globalTable) {
		local = false
	}
	e.writeImageDescriptor(local, q.bits)
	if local {
		e.out.Write(q.table)
	}

	z, err := lzw.NewWriter(e.out, max(2, q.bits))
	if err != nil {
		return err
	}
	if _, err := z.Write(q.indices); err != nil {
		return fmt.Errorf("gif: compress frame %d: %w", e.frames, err)
	}
	if err := z.Close(); err != nil {
		return fmt.Errorf("gif: compress frame %d: %w", e.frames, err)
	}
	if err := e.out.flush(); err != nil {
		return fmt.Errorf("gif: write frame %d: %w", e.frames, err)
	}

	e.log.Debug().
		Int("frame", e.frames).
		Int("palette_bits", q.bits).
		Bool("local_table", local).
		Bool("transparent", hasTrans).
		Int("lzw_resets", z.Resets()).
		Int64("bytes", e.out.n).
		Msg("gif frame written")

	e.frames++
	return nil
}

func (e *Encoder) writeScreenDescriptor(bits int) {
	putUint16(e.buf[0:2], e.width)
	putUint16(e.buf[2:4], e.height)
	e.buf[4] = fColorTable | fColorResolution | byte(bits-1)
	e.buf[5] = 0x00 // Background Color Index.
	e.buf[6] = 0x00 // Pixel Aspect Ratio.
	e.out.Write(e.buf[:7])
}

func (e *Encoder) writeNetscapeExt() {
	e.buf[0] = sExtension
	e.buf[1] = appLabel
	e.buf[2] = 0x0B // Block Size.
	copy(e.buf[3:14], "NETSCAPE2.0")
	e.buf[14] = 0x03 // Sub-block Size.
	e.buf[15] = 0x01 // Loop Sub-block ID.
	putUint16(e.buf[16:18], e.opts.Repeat)
	e.buf[18] = 0x00 // Block Terminator.
	e.out.Write(e.buf[:19])
}

func (e *Encoder) writeGraphicCtrlExt(transIndex int, hasTrans bool) {
	var transp, disp byte
	if hasTrans {
		transp = fTransparent
		disp = byte(DisposalBackground)
	}
	if e.opts.Disposal >= 0 {
		disp = byte(e.opts.Disposal) & 7
	}

	e.buf[0] = sExtension
	e.buf[1] = gcLabel
	e.buf[2] = gcBlockSize
	e.buf[3] = disp<<2 | transp
	putUint16(e.buf[4:6], e.opts.Delay)
	e.buf[6] = byte(transIndex)
	e.buf[7] = 0x00 // Block Terminator.
	e.out.Write(e.buf[:8])
}

func (e *Encoder) writeImageDescriptor(local bool, bits int) {
	e.buf[0] = sImageDescriptor
	putUint16(e.buf[1:3], 0)
	putUint16(e.buf[3:5], 0)
	putUint16(e.buf[5:7], e.width)
	putUint16(e.buf[7:9], e.height)
	if local {
		e.buf[9] = fColorTable | byte(bits-1)
	} else {
		e.buf[9] = 0x00
	}
	e.out.Write(e.buf[:10])
}

// Little-endian.
func putUint16(b []byte, v int) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

// sinkWriter buffers output and keeps the first write error. All writes
// after an error are no-ops.
type sinkWriter struct {
	bw  *bufio.Writer
	n   int64
	err error
}

func (s *sinkWriter) Write(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	n, err := s.bw.Write(p)
	s.n += int64(n)
	s.err = err
	return n, err
}

func (s *sinkWriter) flush() error {
	if s.err == nil {
		s.err = s.bw.Flush()
	}
	return s.err
}
