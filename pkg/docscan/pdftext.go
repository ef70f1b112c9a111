package docscan

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageMarker labels each page's text so provenance survives concatenation.
func PageMarker(n int) string { return fmt.Sprintf("--- Page %d ---", n) }

// ExtractTextLayer walks every page of the PDF's embedded text layer and
// returns the concatenated text with page markers, plus the page count.
// All pages are walked, not a truncated subset: insurance documents place
// the relevant clauses on arbitrary pages.
func ExtractTextLayer(src *SourceBuffer) (string, int, error) {
	ctx, err := api.ReadValidateAndOptimize(src.Reader(), relaxedConf())
	if err != nil {
		return "", 0, fmt.Errorf("pdf parse: %w", err)
	}
	var b strings.Builder
	for n := 1; n <= ctx.PageCount; n++ {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(PageMarker(n))
		b.WriteByte('\n')
		b.WriteString(pageText(ctx, n))
	}
	return b.String(), ctx.PageCount, nil
}

// pageText pulls one page's content stream and decodes its text operators.
// Pages that fail to decode contribute nothing rather than failing the walk.
func pageText(ctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return contentStreamText(data)
}

// pdfStringRe matches PDF string literals: (text here)
var pdfStringRe = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)

// contentStreamText scans content-stream operators for shown text. Tj/TJ/'
// carry string literals; Td/TD/T* are positioning operators that imply word
// or line breaks.
func contentStreamText(data []byte) string {
	var b strings.Builder
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		switch {
		case bytes.HasSuffix(line, []byte("Tj")) || bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				b.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				b.WriteByte('\n')
				b.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("Td")) || bytes.HasSuffix(line, []byte("TD")):
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
		case bytes.Equal(line, []byte("T*")):
			b.WriteByte('\n')
		}
	}
	return cleanText(b.String())
}

// decodePDFString resolves the basic PDF literal escapes.
func decodePDFString(raw []byte) string {
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			b.WriteByte(c)
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r', 't':
			b.WriteByte(' ')
		case '(', ')', '\\':
			b.WriteByte(raw[i])
		default:
			// Octal escapes and anything exotic are dropped; OCR-grade
			// fidelity is all field inference needs.
		}
	}
	return b.String()
}

// cleanText trims trailing space per line and collapses blank-line runs.
func cleanText(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, ln := range lines {
		ln = strings.TrimRight(ln, " \t")
		if ln == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, ln)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
