package docscan

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		mime     string
		size     int64
		head     []byte
		want     Kind
		wantErr  error
	}{
		{"declared pdf", "doc.bin", "application/pdf", 100, nil, KindPDF, nil},
		{"declared jpeg with params", "photo", "image/jpeg; charset=binary", 100, nil, KindImage, nil},
		{"extension fallback", "scan.PDF", "application/octet-stream", 100, nil, KindPDF, nil},
		{"png extension", "card.png", "", 100, nil, KindImage, nil},
		{"sniffed pdf", "blob", "application/octet-stream", 100, []byte("%PDF-1.7\n"), KindPDF, nil},
		{"unsupported", "notes.txt", "text/plain", 100, []byte("hello"), KindUnknown, ErrUnsupportedType},
		{"oversize", "big.pdf", "application/pdf", MaxUploadBytes + 1, nil, KindUnknown, ErrFileTooLarge},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Classify(c.filename, c.mime, c.size, c.head)
			if c.wantErr != nil {
				if !errors.Is(err, c.wantErr) {
					t.Fatalf("expected %v got %v", c.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != c.want {
				t.Fatalf("expected %s got %s", c.want, got)
			}
		})
	}
}

func TestOversizeBeatsUnsupported(t *testing.T) {
	// Size is checked before type so the caller reports the right failure.
	_, err := Classify("notes.txt", "text/plain", MaxUploadBytes+1, nil)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge got %v", err)
	}
}
