package docscan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// buildPDF assembles a minimal uncompressed PDF with one page per entry in
// pageContents, each entry becoming that page's content stream.
func buildPDF(t *testing.T, pageContents []string) []byte {
	t.Helper()
	n := len(pageContents)
	kids := make([]string, n)
	for i := 0; i < n; i++ {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}
	for i, content := range pageContents {
		objs = append(objs, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			5+2*i))
		objs = append(objs, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content)+1, content))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs)+1)
	for i, o := range objs {
		offsets[i+1] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	start := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objs)+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= len(objs); i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, start)
	return buf.Bytes()
}

// pageStream wraps text in the operators a viewer would expect.
func pageStream(text string) string {
	return fmt.Sprintf("BT\n/F1 12 Tf\n72 720 Td\n(%s) Tj\nET", text)
}

type fakeEngine struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
}

func (e *fakeEngine) Recognize(ctx context.Context, imagePath string, onProgress func(float64)) (OCRResult, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return OCRResult{}, e.err
	}
	if onProgress != nil {
		onProgress(1)
	}
	return OCRResult{Text: e.text, Confidence: 0.8}, nil
}

// fakeRunner stands in for pdftoppm: it fabricates the expected output file
// instead of rendering.
type fakeRunner struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.fail {
		return nil, []byte("boom"), errors.New("exit status 1")
	}
	prefix := args[len(args)-1]
	if err := os.WriteFile(prefix+".png", []byte("png"), 0o644); err != nil {
		return nil, nil, err
	}
	return nil, nil, nil
}

type fakeStore struct {
	url string
	err error
	got string
}

func (s *fakeStore) Upload(path string, data []byte) (string, error) {
	s.got = path
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}

func TestScanRichTextLayerSkipsOCR(t *testing.T) {
	padding := strings.Repeat("Lorem ipsum policy terms and conditions apply here. ", 12)
	doc := buildPDF(t, []string{pageStream("Policy Number: CHX-2024-0099 " + padding)})
	eng := &fakeEngine{text: "should not be used"}
	run := &fakeRunner{}
	s := NewScanner(DefaultConfig(), eng, run, nil)

	ext, err := s.Scan(context.Background(), Request{Filename: "policy.pdf", DeclaredMIME: "application/pdf", Data: doc})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if ext.Method != MethodPDFText {
		t.Fatalf("expected method %s got %s", MethodPDFText, ext.Method)
	}
	if eng.calls != 0 {
		t.Fatalf("expected 0 ocr calls got %d", eng.calls)
	}
	if run.calls != 0 {
		t.Fatalf("expected 0 render calls got %d", run.calls)
	}
	if ext.Pages != 1 {
		t.Fatalf("expected 1 page got %d", ext.Pages)
	}
	if ext.Data.PolicyNumber != "CHX-2024-0099" {
		t.Fatalf("expected policy number from text layer, got %q", ext.Data.PolicyNumber)
	}
	if ext.Sparse {
		t.Fatalf("rich text layer flagged sparse")
	}
}

func TestScanThinTextLayerFallsBackToOCR(t *testing.T) {
	doc := buildPDF(t, []string{pageStream("Scanned")})
	eng := &fakeEngine{text: "Policy No: HLT-123456\nInsured Name: Rahul Sharma"}
	run := &fakeRunner{}
	s := NewScanner(DefaultConfig(), eng, run, nil)

	ext, err := s.Scan(context.Background(), Request{Filename: "scan.pdf", DeclaredMIME: "application/pdf", Data: doc})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if ext.Method != MethodPDFOCR {
		t.Fatalf("expected method %s got %s", MethodPDFOCR, ext.Method)
	}
	if eng.calls != 1 {
		t.Fatalf("expected 1 ocr call got %d", eng.calls)
	}
	if ext.Data.PolicyNumber != "HLT-123456" {
		t.Fatalf("expected policy number from ocr text, got %q", ext.Data.PolicyNumber)
	}
	if ext.PreviewPath == "" {
		t.Fatalf("expected a preview for the ocr path")
	}
	defer os.Remove(ext.PreviewPath)
}

func TestScanOCRPageCap(t *testing.T) {
	contents := make([]string, 20)
	for i := range contents {
		contents[i] = pageStream("x")
	}
	doc := buildPDF(t, contents)
	eng := &fakeEngine{text: "noise"}
	s := NewScanner(DefaultConfig(), eng, &fakeRunner{}, nil)

	ext, err := s.Scan(context.Background(), Request{Filename: "long.pdf", DeclaredMIME: "application/pdf", Data: doc})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if eng.calls != 8 {
		t.Fatalf("expected ocr capped at 8 pages got %d calls", eng.calls)
	}
	if ext.Pages != 20 {
		t.Fatalf("expected true page count 20 got %d", ext.Pages)
	}
	if ext.PreviewPath != "" {
		defer os.Remove(ext.PreviewPath)
	}
}

func TestScanImage(t *testing.T) {
	eng := &fakeEngine{text: "Premium Amount: Rs. 8,500"}
	s := NewScanner(DefaultConfig(), eng, &fakeRunner{}, nil)

	var states []State
	prog := NewProgress(func(st State, _ float64) { states = append(states, st) })
	ext, err := s.Scan(context.Background(), Request{
		Filename: "card.jpg", DeclaredMIME: "image/jpeg", Data: []byte("jpegbytes"), Progress: prog,
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if ext.Method != MethodImageOCR {
		t.Fatalf("expected method %s got %s", MethodImageOCR, ext.Method)
	}
	if ext.Data.PremiumAmount != "8500" {
		t.Fatalf("expected premium 8500 got %q", ext.Data.PremiumAmount)
	}
	if !ext.Sparse {
		t.Fatalf("short ocr text should be flagged sparse")
	}
	for _, st := range states {
		if st == StateConverting {
			t.Fatalf("image scan must not enter converting")
		}
	}
	if prog.State() != StateReview {
		t.Fatalf("expected final state review got %s", prog.State())
	}
	if ext.PreviewPath != "" {
		defer os.Remove(ext.PreviewPath)
	}
}

func TestScanRejectsUnsupportedType(t *testing.T) {
	s := NewScanner(DefaultConfig(), &fakeEngine{}, &fakeRunner{}, nil)
	_, err := s.Scan(context.Background(), Request{Filename: "notes.txt", DeclaredMIME: "text/plain", Data: []byte("hello")})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType got %v", err)
	}
}

func TestScanUploadDecoupled(t *testing.T) {
	doc := buildPDF(t, []string{pageStream("Policy Number: CHX-1 " + strings.Repeat("pad word ", 70))})

	store := &fakeStore{url: "http://store/doc.pdf"}
	s := NewScanner(DefaultConfig(), &fakeEngine{}, &fakeRunner{}, store)
	ext, err := s.Scan(context.Background(), Request{
		Filename: "p.pdf", DeclaredMIME: "application/pdf", Data: doc, StorePath: "u1/doc.pdf",
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if ext.DocumentURL != "http://store/doc.pdf" {
		t.Fatalf("expected upload url got %q", ext.DocumentURL)
	}
	if store.got != "u1/doc.pdf" {
		t.Fatalf("expected store path u1/doc.pdf got %q", store.got)
	}

	// A failed upload must not fail the extraction.
	s = NewScanner(DefaultConfig(), &fakeEngine{}, &fakeRunner{}, &fakeStore{err: errors.New("bucket down")})
	ext, err = s.Scan(context.Background(), Request{
		Filename: "p.pdf", DeclaredMIME: "application/pdf", Data: doc, StorePath: "u1/doc.pdf",
	})
	if err != nil {
		t.Fatalf("scan with failed upload: %v", err)
	}
	if ext.DocumentURL != "" {
		t.Fatalf("expected empty url on failed upload got %q", ext.DocumentURL)
	}
}

func TestScanOCRFailureHalts(t *testing.T) {
	doc := buildPDF(t, []string{pageStream("thin")})
	before, _ := filepath.Glob(filepath.Join(os.TempDir(), "scan-preview-*"))
	s := NewScanner(DefaultConfig(), &fakeEngine{err: errors.New("tesseract missing")}, &fakeRunner{}, nil)
	_, err := s.Scan(context.Background(), Request{Filename: "p.pdf", DeclaredMIME: "application/pdf", Data: doc})
	if !errors.Is(err, ErrOCR) {
		t.Fatalf("expected ErrOCR got %v", err)
	}
	// A failed scan must not leave its stashed preview behind.
	after, _ := filepath.Glob(filepath.Join(os.TempDir(), "scan-preview-*"))
	if len(after) > len(before) {
		t.Fatalf("failed scan leaked a preview: %d before, %d after", len(before), len(after))
	}
}

func TestRenderPageLeavesBufferIntact(t *testing.T) {
	doc := buildPDF(t, []string{pageStream("page one"), pageStream("page two")})
	src := NewSourceBuffer(doc)
	r := NewRasterizer(&fakeRunner{}, 0)
	dir := t.TempDir()

	if _, err := r.RenderPage(context.Background(), src, 1, dir); err != nil {
		t.Fatalf("first render: %v", err)
	}
	// The same buffer must survive a second, independent parse.
	if _, err := r.RenderPage(context.Background(), src, 2, dir); err != nil {
		t.Fatalf("second render on same buffer: %v", err)
	}
	if n, err := PageCount(src); err != nil || n != 2 {
		t.Fatalf("expected page count 2 after renders, got %d (%v)", n, err)
	}
}

func TestRenderPageWrapsRunnerFailure(t *testing.T) {
	doc := buildPDF(t, []string{pageStream("x")})
	r := NewRasterizer(&fakeRunner{fail: true}, 0)
	_, err := r.RenderPage(context.Background(), NewSourceBuffer(doc), 1, t.TempDir())
	if !errors.Is(err, ErrRender) {
		t.Fatalf("expected ErrRender got %v", err)
	}
}

func TestExtractTextLayerPageMarkers(t *testing.T) {
	doc := buildPDF(t, []string{pageStream("first page"), pageStream("second page")})
	text, pages, err := ExtractTextLayer(NewSourceBuffer(doc))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if pages != 2 {
		t.Fatalf("expected 2 pages got %d", pages)
	}
	for _, want := range []string{PageMarker(1), "first page", PageMarker(2), "second page"} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in:\n%s", want, text)
		}
	}
}
