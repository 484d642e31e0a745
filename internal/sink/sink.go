// Package sink opens output and input files for encoded animations.
//
// The file extension picks the stream wrapper: ".gz" files are gzip
// compressed, ".zst" files are zstd compressed, and anything else is written
// as is. Compressed sinks are useful when GIFs are archived or shipped
// through size-limited channels.
package sink

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression identifies the wrapper applied to a file.
type Compression string

const (
	None Compression = "none"
	Gzip Compression = "gzip"
	Zstd Compression = "zstd"
)

// CompressionFor returns the wrapper implied by the extension of path.
func CompressionFor(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return Gzip
	case ".zst":
		return Zstd
	}
	return None
}

// Create creates (or truncates) the file at path and returns a writer for
// it. Closing the writer flushes the compressor, if any, and closes the
// file.
func Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output: %w", err)
	}

	var w io.WriteCloser
	switch CompressionFor(path) {
	case Gzip:
		w = gzip.NewWriter(f)
	case Zstd:
		w, err = zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			f.Close()
			os.Remove(path)
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	default:
		return f, nil
	}
	return &fileWriter{WriteCloser: w, file: f}, nil
}

// Open opens the file at path for reading, undoing the compression its
// extension implies.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}

	switch CompressionFor(path) {
	case Gzip:
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to read gzip header: %w", err)
		}
		return &fileReader{ReadCloser: zr, file: f}, nil
	case Zstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		return &fileReader{ReadCloser: zr.IOReadCloser(), file: f}, nil
	}
	return f, nil
}

// fileWriter closes a compression stream and then the file beneath it.
type fileWriter struct {
	io.WriteCloser
	file *os.File
}

func (w *fileWriter) Close() error {
	err := w.WriteCloser.Close()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// fileReader closes a decompression stream and then the file beneath it.
type fileReader struct {
	io.ReadCloser
	file *os.File
}

func (r *fileReader) Close() error {
	err := r.ReadCloser.Close()
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	return err
}
