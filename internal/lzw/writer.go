// Package lzw implements the variable-width LZW compressor used for GIF
// image data.
//
// Codes start one bit wider than the literal width and grow up to 12 bits.
// They are packed least-significant-bit first and written as GIF data
// sub-blocks: a length byte followed by up to 254 bytes of codes. The stream
// opens with the minimum code size byte and ends with a zero-length block.
//
// The dictionary is an open-addressing hash table keyed on (prefix code,
// next symbol). When it fills, a Clear code is emitted and compression
// restarts at the initial width.
package lzw

import (
	"errors"
	"fmt"
	"io"
)

const (
	maxBits  = 12
	maxCodes = 1 << maxBits // dictionary limit, including reserved codes
	hashSize = 5003         // prime, about 80% occupancy at 4096 entries

	// GIF allows 255 data bytes per sub-block; the classic encoder flushes
	// at 254 and so do we.
	blockSize = 254
)

var (
	// ErrSymbolRange is returned when an input symbol does not fit the
	// literal width.
	ErrSymbolRange = errors.New("lzw: symbol out of range")
	// ErrClosed is returned by Write after Close.
	ErrClosed = errors.New("lzw: writer is closed")
)

// Writer compresses palette indices into GIF image data.
//
// A Writer is not safe for concurrent use.
type Writer struct {
	w   io.Writer
	err error

	litWidth int
	initBits int
	nBits    int
	maxCode  int
	clear    int
	eof      int
	freeEnt  int
	clearFlg bool

	hshift  int
	htab    [hashSize]int
	codetab [hashSize]int

	ent     int
	haveEnt bool

	accum   uint32
	accBits int
	block   [blockSize + 1]byte // block[0] is the length prefix
	nBlock  int

	resets  int
	started bool
	closed  bool
}

// NewWriter returns a Writer that sends compressed data to w. litWidth is
// the GIF minimum code size: the number of bits needed for a palette index,
// between 2 and 8.
func NewWriter(w io.Writer, litWidth int) (*Writer, error) {
	if litWidth < 2 || litWidth > 8 {
		return nil, fmt.Errorf("lzw: literal width %d outside 2..8", litWidth)
	}
	z := &Writer{
		w:        w,
		litWidth: litWidth,
		initBits: litWidth + 1,
		clear:    1 << litWidth,
	}
	z.eof = z.clear + 1
	z.freeEnt = z.clear + 2
	z.nBits = z.initBits
	z.maxCode = maxCodeFor(z.nBits)

	for fcode := hashSize; fcode < 65536; fcode *= 2 {
		z.hshift++
	}
	z.hshift = 8 - z.hshift
	z.clearHash()
	return z, nil
}

// Encode compresses pix in one call, including the minimum code size byte
// and the block terminator.
func Encode(w io.Writer, pix []byte, litWidth int) error {
	z, err := NewWriter(w, litWidth)
	if err != nil {
		return err
	}
	if _, err := z.Write(pix); err != nil {
		return err
	}
	return z.Close()
}

// Write compresses p. Every byte must be below 1<<litWidth.
func (z *Writer) Write(p []byte) (int, error) {
	if z.err != nil {
		return 0, z.err
	}
	if z.closed {
		return 0, ErrClosed
	}
	z.start()

	limit := byte(z.clear - 1)
	for n, sym := range p {
		if z.clear < 256 && sym > limit {
			return n, fmt.Errorf("%w: %d does not fit %d bits", ErrSymbolRange, sym, z.litWidth)
		}
		z.add(int(sym))
		if z.err != nil {
			return n, z.err
		}
	}
	return len(p), nil
}

// Close flushes the pending code, writes the EOF code, and terminates the
// data sub-blocks. It does not close the underlying writer. Calling Close
// more than once is a no-op.
func (z *Writer) Close() error {
	if z.closed {
		return z.err
	}
	z.closed = true
	if z.err != nil {
		return z.err
	}
	z.start()

	if z.haveEnt {
		z.output(z.ent)
	}
	z.output(z.eof)
	z.flushBlock()
	z.writeByte(0)
	return z.err
}

// start writes the minimum code size and the leading Clear code once.
func (z *Writer) start() {
	if z.started {
		return
	}
	z.started = true
	z.writeByte(byte(z.litWidth))
	z.output(z.clear)
}

func (z *Writer) add(c int) {
	if !z.haveEnt {
		z.ent = c
		z.haveEnt = true
		return
	}

	fcode := (c << maxBits) + z.ent
	i := (c << z.hshift) ^ z.ent

	if z.htab[i] == fcode {
		z.ent = z.codetab[i]
		return
	}
	if z.htab[i] >= 0 {
		// Secondary probe after G. Knott.
		disp := hashSize - i
		if i == 0 {
			disp = 1
		}
		for {
			i -= disp
			if i < 0 {
				i += hashSize
			}
			if z.htab[i] == fcode {
				z.ent = z.codetab[i]
				return
			}
			if z.htab[i] < 0 {
				break
			}
		}
	}

	z.output(z.ent)
	z.ent = c
	if z.freeEnt < maxCodes {
		z.codetab[i] = z.freeEnt
		z.freeEnt++
		z.htab[i] = fcode
	} else {
		z.clearBlock()
	}
}

func (z *Writer) clearHash() {
	for i := range z.htab {
		z.htab[i] = -1
	}
}

// clearBlock resets the dictionary and emits a Clear code.
func (z *Writer) clearBlock() {
	z.clearHash()
	z.freeEnt = z.clear + 2
	z.clearFlg = true
	z.resets++
	z.output(z.clear)
}

// Resets reports how many times the dictionary filled up and was cleared
// mid-stream.
func (z *Writer) Resets() int { return z.resets }

// output packs code at the current width and adjusts the width for the
// next code.
func (z *Writer) output(code int) {
	z.accum |= uint32(code) << z.accBits
	z.accBits += z.nBits
	for z.accBits >= 8 {
		z.putByte(byte(z.accum))
		z.accum >>= 8
		z.accBits -= 8
	}

	if z.freeEnt > z.maxCode || z.clearFlg {
		if z.clearFlg {
			z.nBits = z.initBits
			z.maxCode = maxCodeFor(z.nBits)
			z.clearFlg = false
		} else {
			z.nBits++
			if z.nBits == maxBits {
				z.maxCode = maxCodes
			} else {
				z.maxCode = maxCodeFor(z.nBits)
			}
		}
	}

	if code == z.eof {
		for z.accBits > 0 {
			z.putByte(byte(z.accum))
			z.accum >>= 8
			z.accBits -= 8
		}
		z.accum, z.accBits = 0, 0
	}
}

// putByte appends c to the current sub-block, flushing it when full.
func (z *Writer) putByte(c byte) {
	z.nBlock++
	z.block[z.nBlock] = c
	if z.nBlock >= blockSize {
		z.flushBlock()
	}
}

func (z *Writer) flushBlock() {
	if z.nBlock == 0 {
		return
	}
	z.block[0] = byte(z.nBlock)
	z.write(z.block[:z.nBlock+1])
	z.nBlock = 0
}

func (z *Writer) write(p []byte) {
	if z.err != nil {
		return
	}
	_, z.err = z.w.Write(p)
}

func (z *Writer) writeByte(c byte) {
	z.write([]byte{c})
}

func maxCodeFor(nBits int) int {
	return 1<<nBits - 1
}
