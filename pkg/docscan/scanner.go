package docscan

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"chronyx/pkg/policyextract"
)

// Extraction methods reported to callers.
const (
	MethodPDFText  = "pdf-text"
	MethodPDFOCR   = "pdf-ocr"
	MethodImageOCR = "image-ocr"
)

// Config tunes the scan pipeline. Zero values fall back to defaults.
type Config struct {
	// MinTextLayerChars is the embedded-text size at which a PDF is trusted
	// without OCR. Below it the document is treated as a scan.
	MinTextLayerChars int
	// SparseTextChars marks results whose total text is too thin to trust.
	SparseTextChars int
	// MaxOCRPages caps how many pages get rasterized and recognized.
	MaxOCRPages int
	RenderScale float64
	Language    string
}

func DefaultConfig() Config {
	return Config{
		MinTextLayerChars: 500,
		SparseTextChars:   200,
		MaxOCRPages:       8,
		RenderScale:       DefaultRenderScale,
		Language:          "eng",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinTextLayerChars <= 0 {
		c.MinTextLayerChars = d.MinTextLayerChars
	}
	if c.SparseTextChars <= 0 {
		c.SparseTextChars = d.SparseTextChars
	}
	if c.MaxOCRPages <= 0 {
		c.MaxOCRPages = d.MaxOCRPages
	}
	if c.RenderScale <= 0 {
		c.RenderScale = d.RenderScale
	}
	if c.Language == "" {
		c.Language = d.Language
	}
	return c
}

// Uploader persists the original upload and returns its public URL.
// pkg/storage satisfies this.
type Uploader interface {
	Upload(path string, data []byte) (string, error)
}

// Request is one document to scan.
type Request struct {
	Filename     string
	DeclaredMIME string
	Data         []byte
	UserID       string
	// StorePath is where the original bytes get uploaded. Empty skips upload.
	StorePath string
	// Progress, when non-nil, is driven through the scan states.
	Progress *Progress
}

// Extraction is the result of a completed scan.
type Extraction struct {
	Data        policyextract.PolicyData
	Text        string
	DocumentURL string
	PreviewPath string
	Method      string
	Pages       int
	Chars       int
	// Sparse warns that the recognized text was too thin for reliable
	// field inference.
	Sparse bool
}

// Scanner runs uploads through classification, text acquisition and field
// inference. Safe for sequential reuse; a new Scan invalidates progress
// reporting from any scan still running.
type Scanner struct {
	cfg    Config
	engine Engine
	rast   *Rasterizer
	store  Uploader
	gen    atomic.Uint64
}

func NewScanner(cfg Config, engine Engine, runner Runner, store Uploader) *Scanner {
	cfg = cfg.withDefaults()
	if engine == nil {
		engine = NewTesseractEngine(cfg.Language)
	}
	return &Scanner{
		cfg:    cfg,
		engine: engine,
		rast:   NewRasterizer(runner, cfg.RenderScale),
		store:  store,
	}
}

// Scan processes one document end to end and leaves progress in review.
func (s *Scanner) Scan(ctx context.Context, req Request) (*Extraction, error) {
	gen := s.gen.Add(1)
	if req.Progress != nil {
		req.Progress.Reset()
	}
	prog := s.guarded(req.Progress, gen)

	kind, err := Classify(req.Filename, req.DeclaredMIME, int64(len(req.Data)), head(req.Data, 512))
	if err != nil {
		return nil, err
	}
	src := NewSourceBuffer(req.Data)

	prog.advance(StateUploading)
	urlCh := s.uploadAsync(req)

	text, pages, preview, method, err := s.acquireText(ctx, src, kind, prog)
	if err != nil {
		return nil, err
	}

	prog.advance(StateExtracting)
	data := policyextract.Extract(text)

	url := <-urlCh
	prog.advance(StateReview)

	chars := len(strings.TrimSpace(text))
	return &Extraction{
		Data:        data,
		Text:        text,
		DocumentURL: url,
		PreviewPath: preview,
		Method:      method,
		Pages:       pages,
		Chars:       chars,
		Sparse:      chars < s.cfg.SparseTextChars,
	}, nil
}

// uploadAsync stores the original bytes without blocking the scan. The
// channel always receives exactly once; upload failure yields "" and a log
// line rather than failing the extraction.
func (s *Scanner) uploadAsync(req Request) <-chan string {
	ch := make(chan string, 1)
	go func() {
		if s.store == nil || req.StorePath == "" {
			ch <- ""
			return
		}
		url, err := s.store.Upload(req.StorePath, req.Data)
		if err != nil {
			log.Printf("upload failed for %s: %v", req.Filename, err)
			ch <- ""
			return
		}
		ch <- url
	}()
	return ch
}

// acquireText picks the extraction path: embedded PDF text when rich enough,
// otherwise page-by-page OCR.
func (s *Scanner) acquireText(ctx context.Context, src *SourceBuffer, kind Kind, prog guardedProgress) (text string, pages int, preview, method string, err error) {
	switch kind {
	case KindPDF:
		prog.advance(StateConverting)
		layer, pageCount, terr := ExtractTextLayer(src)
		if terr != nil {
			log.Printf("text layer extraction failed, falling back to ocr: %v", terr)
		}
		if terr == nil && len(strings.TrimSpace(layer)) >= s.cfg.MinTextLayerChars {
			return layer, pageCount, "", MethodPDFText, nil
		}
		if pageCount == 0 {
			pageCount, err = PageCount(src)
			if err != nil {
				return "", 0, "", "", err
			}
		}
		text, preview, err = s.ocrPDF(ctx, src, pageCount, prog)
		if err != nil {
			return "", 0, "", "", err
		}
		return text, pageCount, preview, MethodPDFOCR, nil
	case KindImage:
		text, preview, err = s.ocrImage(ctx, src, prog)
		if err != nil {
			return "", 0, "", "", err
		}
		return text, 1, preview, MethodImageOCR, nil
	}
	return "", 0, "", "", ErrUnsupportedType
}

// ocrPDF rasterizes and recognizes up to MaxOCRPages pages, reporting
// fractional progress across the capped page set.
func (s *Scanner) ocrPDF(ctx context.Context, src *SourceBuffer, pageCount int, prog guardedProgress) (string, string, error) {
	capped := pageCount
	if capped > s.cfg.MaxOCRPages {
		capped = s.cfg.MaxOCRPages
		log.Printf("ocr capped at %d of %d pages", capped, pageCount)
	}
	dir, err := os.MkdirTemp("", "scan-pages-")
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrRender, err)
	}
	defer os.RemoveAll(dir)

	prog.advance(StateScanning)
	var b strings.Builder
	var preview string
	for n := 1; n <= capped; n++ {
		page, err := s.rast.RenderPage(ctx, src, n, dir)
		if err != nil {
			dropPreview(preview)
			return "", "", err
		}
		if n == 1 {
			if p, err := stashPreview(page); err == nil {
				preview = p
			}
		}
		done := n - 1
		res, err := s.engine.Recognize(ctx, page, func(frac float64) {
			prog.setPercent((float64(done) + frac) / float64(capped) * 100)
		})
		if err != nil {
			dropPreview(preview)
			return "", "", fmt.Errorf("%w: page %d: %v", ErrOCR, n, err)
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(PageMarker(n))
		b.WriteByte('\n')
		b.WriteString(res.Text)
	}
	prog.setPercent(100)
	return b.String(), preview, nil
}

// ocrImage recognizes a single uploaded image.
func (s *Scanner) ocrImage(ctx context.Context, src *SourceBuffer, prog guardedProgress) (string, string, error) {
	tmp, err := os.CreateTemp("", "scan-img-*")
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrOCR, err)
	}
	if _, err := tmp.Write(src.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", "", fmt.Errorf("%w: %v", ErrOCR, err)
	}
	_ = tmp.Close()
	defer os.Remove(tmp.Name())

	prog.advance(StateScanning)
	res, err := s.engine.Recognize(ctx, tmp.Name(), func(frac float64) {
		prog.setPercent(frac * 100)
	})
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrOCR, err)
	}
	preview, _ := stashPreview(tmp.Name())
	return res.Text, preview, nil
}

// dropPreview discards a stashed preview when the scan it belongs to fails.
func dropPreview(preview string) {
	if preview != "" {
		_ = os.Remove(preview)
	}
}

// stashPreview copies a rendered page out of the per-scan temp dir so it
// survives cleanup for the review screen.
func stashPreview(page string) (string, error) {
	in, err := os.Open(page)
	if err != nil {
		return "", err
	}
	defer in.Close()
	out, err := os.CreateTemp("", "scan-preview-*"+filepath.Ext(page))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(out.Name())
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return out.Name(), nil
}

// guardedProgress drops updates from a superseded scan so a slow worker
// cannot scribble over the progress of a newer one.
type guardedProgress struct {
	s   *Scanner
	p   *Progress
	gen uint64
}

func (s *Scanner) guarded(p *Progress, gen uint64) guardedProgress {
	return guardedProgress{s: s, p: p, gen: gen}
}

func (g guardedProgress) live() bool {
	return g.p != nil && g.s.gen.Load() == g.gen
}

func (g guardedProgress) advance(st State) {
	if g.live() {
		g.p.Advance(st)
	}
}

func (g guardedProgress) setPercent(pct float64) {
	if g.live() {
		g.p.SetPercent(pct)
	}
}

func head(b []byte, n int) []byte {
	if len(b) < n {
		n = len(b)
	}
	return b[:n]
}
