// Package compress wraps zlib as the fixed-capacity deflate primitive used by
// the map writer and the PFS container.
package compress

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
)

// Errors returned by Deflate and Inflate.
var (
	ErrShortBuffer  = errors.New("compressed data does not fit output buffer")
	ErrSizeMismatch = errors.New("inflated size does not match expected size")
)

// fixedWriter writes into a caller-owned slice and refuses to grow it.
type fixedWriter struct {
	buf []byte
	n   int
}

func (w *fixedWriter) Write(p []byte) (int, error) {
	if len(p) > len(w.buf)-w.n {
		return 0, ErrShortBuffer
	}
	w.n += copy(w.buf[w.n:], p)
	return len(p), nil
}

// Deflate compresses src as a zlib stream into dst and returns the number of
// bytes written. dst is never grown; callers size it generously.
func Deflate(dst, src []byte) (int, error) {
	fw := &fixedWriter{buf: dst}
	zw, err := zlib.NewWriterLevel(fw, zlib.BestCompression)
	if err != nil {
		return 0, err
	}
	if _, err := zw.Write(src); err != nil {
		return 0, err
	}
	if err := zw.Close(); err != nil {
		return 0, err
	}
	return fw.n, nil
}

// Inflate decompresses a zlib stream that must expand to exactly size bytes.
func Inflate(src []byte, size int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("opening zlib stream: %w", err)
	}
	defer zr.Close()

	out := make([]byte, size)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSizeMismatch, err)
	}
	// Anything left over means the declared size was too small.
	var extra [1]byte
	if n, _ := zr.Read(extra[:]); n != 0 {
		return nil, ErrSizeMismatch
	}
	return out, nil
}
