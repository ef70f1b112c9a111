package docscan

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine runs gosseract over a lightly preprocessed copy of the page.
type TesseractEngine struct {
	Language string // defaults to "eng"
}

func NewTesseractEngine(lang string) *TesseractEngine {
	if lang == "" {
		lang = "eng"
	}
	return &TesseractEngine{Language: lang}
}

// minPageHeight is the height below which a rendered page gets upscaled;
// Tesseract accuracy drops sharply on small glyphs.
const minPageHeight = 900

// Recognize preprocesses the image (grayscale, contrast, sharpen, upscale if
// small) and OCRs it. Preprocessing failures fall back to the raw image.
func (e *TesseractEngine) Recognize(ctx context.Context, imagePath string, onProgress func(float64)) (OCRResult, error) {
	if err := ctx.Err(); err != nil {
		return OCRResult{}, err
	}
	prepped := imagePath
	if p, err := preprocessPage(imagePath); err == nil {
		prepped = p
		defer os.Remove(p)
	} else {
		log.Printf("ocr preprocess failed, using raw image: %v", err)
	}
	if onProgress != nil {
		onProgress(0.5)
	}

	client := gosseract.NewClient()
	defer client.Close()
	_ = client.SetLanguage(e.Language)
	if err := client.SetImage(prepped); err != nil {
		return OCRResult{}, fmt.Errorf("tesseract set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return OCRResult{}, fmt.Errorf("tesseract: %w", err)
	}
	if onProgress != nil {
		onProgress(1)
	}
	return OCRResult{Text: text, Confidence: scoreConfidence(text)}, nil
}

// preprocessPage writes the enhanced variant to a temp png and returns its path.
func preprocessPage(path string) (string, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return "", err
	}
	gray := imaging.Grayscale(img)
	gray = imaging.AdjustContrast(gray, 15)
	gray = imaging.Sharpen(gray, 0.7)
	if gray.Bounds().Dy() < minPageHeight {
		gray = imaging.Resize(gray, 0, 1300, imaging.Lanczos)
	}
	tmp, err := os.CreateTemp("", "scan-prep-*.png")
	if err != nil {
		return "", err
	}
	_ = tmp.Close()
	if err := imaging.Save(gray, tmp.Name()); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
