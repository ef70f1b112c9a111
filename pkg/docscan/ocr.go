package docscan

import (
	"context"
	"strings"
	"unicode"
)

// OCRResult is one page's worth of recognized text.
type OCRResult struct {
	Text       string
	Confidence float32 // 0..1 heuristic, not an engine probability
}

// Engine recognizes text in a rendered page image. onProgress, when non-nil,
// receives a fraction in [0,1] as recognition advances; implementations that
// cannot report intermediate progress call it once with 1.
type Engine interface {
	Recognize(ctx context.Context, imagePath string, onProgress func(float64)) (OCRResult, error)
}

// scoreConfidence estimates recognition quality from textual artifacts. Real
// policy schedules are label-dense, so labels count for more than raw length.
func scoreConfidence(text string) float32 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	score := float32(0.3)
	if len(trimmed) > 200 {
		score += 0.2
	}
	low := strings.ToLower(trimmed)
	for _, kw := range []string{"policy", "insured", "premium", "sum", "date"} {
		if strings.Contains(low, kw) {
			score += 0.08
		}
	}
	// Heavy non-alphanumeric noise is the usual OCR failure signature.
	var letters, junk int
	for _, r := range trimmed {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			letters++
		case unicode.IsSpace(r) || unicode.IsPunct(r):
		default:
			junk++
		}
	}
	if letters > 0 && junk*10 > letters {
		score -= 0.2
	}
	if score < 0.05 {
		score = 0.05
	}
	if score > 0.95 {
		score = 0.95
	}
	return score
}
