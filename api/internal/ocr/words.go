package ocr

import (
	"context"
	"fmt"

	"handwriting-ocr/api/internal/segment"
	"handwriting-ocr/api/internal/util"
)

// Word is one detected word box with its recognized text.
type Word struct {
	BBox segment.Box `json:"bbox"`
	Text string      `json:"text"`
}

// DetectWords decodes raw and returns word boxes in reading order: lines
// in detection order, left to right inside a line.
func (r *Recognizer) DetectWords(raw []byte) ([]segment.Box, error) {
	img, _, err := util.DecodeImage(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nonNil(segment.DetectWords(img)), nil
}

// ReadWords detects word boxes and recognizes each crop with the named
// engine ("" = default). The first failure aborts the whole image.
func (r *Recognizer) ReadWords(ctx context.Context, engineName string, raw []byte) ([]Word, error) {
	engine, err := r.engs.GetEngine(engineName)
	if err != nil {
		return nil, err
	}
	img, _, err := util.DecodeImage(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	boxes := segment.DetectWords(img)
	words := make([]Word, 0, len(boxes))
	for _, b := range boxes {
		text, err := r.recognize(ctx, engine, segment.Crop(img, b))
		if err != nil {
			return nil, fmt.Errorf("word %d,%d-%d,%d: %w", b.X0, b.Y0, b.X1, b.Y1, err)
		}
		words = append(words, Word{BBox: b, Text: text})
	}
	return words, nil
}

func nonNil(boxes []segment.Box) []segment.Box {
	if boxes == nil {
		return []segment.Box{}
	}
	return boxes
}
