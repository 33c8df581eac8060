package compress

import (
	"bytes"
	"errors"
	"testing"
)

func TestDeflateInflateRoundTrip(t *testing.T) {
	src := bytes.Repeat([]byte("zone geometry "), 200)
	dst := make([]byte, len(src)+128)

	n, err := Deflate(dst, src)
	if err != nil {
		t.Fatalf("Deflate() error: %v", err)
	}
	if n <= 0 || n > len(dst) {
		t.Fatalf("Deflate() returned implausible size %d", n)
	}

	got, err := Inflate(dst[:n], len(src))
	if err != nil {
		t.Fatalf("Inflate() error: %v", err)
	}
	if !bytes.Equal(got, src) {
		t.Error("round trip mismatch")
	}
}

func TestDeflateShortBuffer(t *testing.T) {
	src := bytes.Repeat([]byte{1, 2, 3, 4}, 64)
	_, err := Deflate(make([]byte, 4), src)
	if !errors.Is(err, ErrShortBuffer) {
		t.Errorf("expected ErrShortBuffer, got %v", err)
	}
}

func TestInflateSizeMismatch(t *testing.T) {
	src := []byte("twelve bytes")
	dst := make([]byte, len(src)+128)
	n, err := Deflate(dst, src)
	if err != nil {
		t.Fatalf("Deflate() error: %v", err)
	}

	if _, err := Inflate(dst[:n], len(src)+1); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("larger size: expected ErrSizeMismatch, got %v", err)
	}
	if _, err := Inflate(dst[:n], len(src)-1); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("smaller size: expected ErrSizeMismatch, got %v", err)
	}
}

func TestInflateGarbage(t *testing.T) {
	if _, err := Inflate([]byte("not zlib"), 8); err == nil {
		t.Error("expected error for non-zlib input")
	}
}
