package docscan

import (
	"bytes"
	"io"
	"testing"
)

func TestSourceBufferDetached(t *testing.T) {
	orig := []byte("%PDF-1.4 sample")
	src := NewSourceBuffer(orig)

	// Mutating the caller's slice must not reach the buffer.
	orig[0] = 'X'
	if src.Bytes()[0] != '%' {
		t.Fatalf("buffer shares caller's slice")
	}

	// Mutating one read must not affect the next.
	a := src.Bytes()
	a[1] = 'Z'
	b := src.Bytes()
	if b[1] != 'P' {
		t.Fatalf("Bytes returned a shared slice")
	}
}

func TestSourceBufferReaderIndependent(t *testing.T) {
	src := NewSourceBuffer([]byte("abcdef"))
	r1 := src.Reader()
	if _, err := io.ReadAll(r1); err != nil {
		t.Fatalf("read: %v", err)
	}
	// Draining one reader leaves the next one full.
	got, err := io.ReadAll(src.Reader())
	if err != nil || !bytes.Equal(got, []byte("abcdef")) {
		t.Fatalf("second reader got %q (%v)", got, err)
	}
}

func TestSourceBufferHead(t *testing.T) {
	src := NewSourceBuffer([]byte("abc"))
	if got := src.Head(10); !bytes.Equal(got, []byte("abc")) {
		t.Fatalf("head beyond length: %q", got)
	}
	if got := src.Head(2); !bytes.Equal(got, []byte("ab")) {
		t.Fatalf("head: %q", got)
	}
	if src.Len() != 3 {
		t.Fatalf("len: %d", src.Len())
	}
}
