package gifenc

import (
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/ironsheep/gif-tools-mcp/internal/imaging"
)

// EncodeAll writes frames as one complete animation to w.
//
// Frames are quantized in parallel, at most GOMAXPROCS at a time, and then
// serialized in order. The output is byte-identical to starting an Encoder
// with the same options and adding the frames one by one. Nothing is
// written when the options are out of range or any frame fails validation
// or quantization.
func EncodeAll(w io.Writer, frames []*Frame, opts Options) error {
	if w == nil {
		return ErrNilWriter
	}
	if len(frames) == 0 {
		return ErrNoFrames
	}
	for i, f := range frames {
		if f == nil {
			return fmt.Errorf("frame %d: %w", i, ErrNilFrame)
		}
		if err := f.validate(); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}

	e := New(opts)
	if err := e.opts.Validate(); err != nil {
		return err
	}
	if err := e.lockSize(frames[0].Width, frames[0].Height); err != nil {
		return err
	}

	qs := make([]*quantized, len(frames))
	errs := make([]error, len(frames))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for range min(runtime.GOMAXPROCS(0), len(frames)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				f := frames[i]
				pix, err := imaging.ConformRGB(f.Pix, f.Width, f.Height, e.width, e.height, e.opts.background())
				if err != nil {
					errs[i] = err
					continue
				}
				qs[i], errs[i] = quantize(pix, e.opts.Colors, e.opts.Quality)
			}
		}()
	}
	for i := range frames {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("gif: quantize frame %d: %w", i, err)
		}
	}

	if err := e.Start(w); err != nil {
		return err
	}
	for _, q := range qs {
		if err := e.writeFrame(q); err != nil {
			e.Abort()
			return err
		}
	}
	return e.Finish()
}
