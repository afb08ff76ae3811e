//go:build tesseract

// Package tesseract registers a Tesseract OCR engine as the extract default.
// It needs the tesseract and leptonica libraries and the "tesseract" build tag.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"efaktur-validator/internal/extract"
)

func init() {
	extract.SetDefaultOCR(NewEngine())
}

// Engine implements extract.OCREngine with gosseract.
type Engine struct {
	clientFactory func() *gosseract.Client
}

// NewEngine constructs a Tesseract-backed OCR engine.
func NewEngine() *Engine {
	return &Engine{clientFactory: gosseract.NewClient}
}

func (e *Engine) Name() string { return "tesseract" }

// Recognize runs OCR on one encoded image. gosseract clients are not safe
// for concurrent use, so each call gets its own.
func (e *Engine) Recognize(ctx context.Context, img []byte, languages []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := e.clientFactory()
	defer c.Close()

	if len(languages) > 0 {
		if err := c.SetLanguage(languages...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetImageFromBytes(img); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}
