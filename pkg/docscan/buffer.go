package docscan

import "bytes"

// SourceBuffer holds the uploaded document bytes for the lifetime of a scan.
// Every consumer receives an owned, independent copy: PDF tooling and
// temp-file writers must never share or transfer the underlying slice, so a
// second parse of the same document always sees intact bytes.
type SourceBuffer struct {
	data []byte
}

// NewSourceBuffer copies data so later mutation of the caller's slice cannot
// corrupt an in-flight scan.
func NewSourceBuffer(data []byte) *SourceBuffer {
	owned := make([]byte, len(data))
	copy(owned, data)
	return &SourceBuffer{data: owned}
}

// Bytes returns a fresh copy on every call (copy-on-read).
func (b *SourceBuffer) Bytes() []byte {
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// Reader returns a reader over an independent copy of the bytes.
func (b *SourceBuffer) Reader() *bytes.Reader {
	return bytes.NewReader(b.Bytes())
}

// Len reports the document size in bytes.
func (b *SourceBuffer) Len() int {
	return len(b.data)
}

// Head returns up to n leading bytes (copied) for content sniffing.
func (b *SourceBuffer) Head(n int) []byte {
	if n > len(b.data) {
		n = len(b.data)
	}
	out := make([]byte, n)
	copy(out, b.data[:n])
	return out
}
