//go:build tesseract

package tesseract

import (
	"context"
	"fmt"
	"strings"

	"handwriting-ocr/api/internal/ocr"

	"github.com/otiai10/gosseract/v2"
)

// Engine runs libtesseract in-process. Every call gets its own client since a
// gosseract client is not safe for concurrent use.
type Engine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

func New(languages []string) (*Engine, error) {
	return &Engine{languages: normalizeLanguages(languages), clientFactory: gosseract.NewClient}, nil
}

func (e *Engine) Name() string     { return "tesseract" }
func (e *Engine) GetModel() string { return strings.Join(e.languages, "+") }

func (e *Engine) Recognize(ctx context.Context, png []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("%w: set image: %w", ocr.ErrBackendInference, err)
	}
	if err := c.SetLanguage(e.languages...); err != nil {
		return "", fmt.Errorf("%w: set languages: %w", ocr.ErrBackendUnavailable, err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("%w: recognize text: %w", ocr.ErrBackendInference, err)
	}
	return strings.TrimSpace(text), nil
}
