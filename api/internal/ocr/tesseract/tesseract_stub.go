//go:build !tesseract

package tesseract

import (
	"context"
	"fmt"
	"strings"

	"handwriting-ocr/api/internal/ocr"
)

// Engine is a placeholder for builds without libtesseract. Build with
// -tags tesseract to get the real engine.
type Engine struct {
	languages []string
}

func New(languages []string) (*Engine, error) {
	return &Engine{languages: normalizeLanguages(languages)}, nil
}

func (e *Engine) Name() string     { return "tesseract" }
func (e *Engine) GetModel() string { return strings.Join(e.languages, "+") }

func (e *Engine) Recognize(context.Context, []byte) (string, error) {
	return "", fmt.Errorf("%w: binary built without the tesseract tag", ocr.ErrBackendUnavailable)
}
