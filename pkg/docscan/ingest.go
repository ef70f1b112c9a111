package docscan

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxUploadBytes caps accepted documents at 20 MiB.
const MaxUploadBytes = 20 << 20

// Kind is the processing branch for an accepted document.
type Kind int

const (
	KindUnknown Kind = iota
	KindPDF
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindPDF:
		return "pdf"
	case KindImage:
		return "image"
	}
	return "unknown"
}

var mimeKinds = map[string]Kind{
	"application/pdf": KindPDF,
	"image/jpeg":      KindImage,
	"image/jpg":       KindImage,
	"image/png":       KindImage,
	"image/webp":      KindImage,
}

var extKinds = map[string]Kind{
	".pdf":  KindPDF,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".png":  KindImage,
	".webp": KindImage,
}

// Classify validates a candidate upload and decides its processing branch.
// The declared MIME type, the filename extension, and a content sniff of the
// leading bytes are each consulted; camera captures and some browsers
// misreport MIME, so any one signal is enough. Violations fail fast with
// ErrUnsupportedType or ErrFileTooLarge before anything is uploaded or
// processed.
func Classify(filename, declaredMIME string, size int64, head []byte) (Kind, error) {
	if size > MaxUploadBytes {
		return KindUnknown, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, size, MaxUploadBytes)
	}
	if k, ok := mimeKinds[normalizeMIME(declaredMIME)]; ok {
		return k, nil
	}
	if k, ok := extKinds[strings.ToLower(filepath.Ext(filename))]; ok {
		return k, nil
	}
	if len(head) > 0 {
		if k, ok := mimeKinds[normalizeMIME(mimetype.Detect(head).String())]; ok {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("%w: %q (%s)", ErrUnsupportedType, declaredMIME, filename)
}

// normalizeMIME lowercases and drops parameters ("image/jpeg; charset=x").
func normalizeMIME(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
