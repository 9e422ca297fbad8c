package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"handwriting-ocr/api/internal/segment"
)

// sizeEngine answers with the crop size so tests can tell words apart.
type sizeEngine struct{ calls int }

func (e *sizeEngine) Name() string     { return "size" }
func (e *sizeEngine) GetModel() string { return "size" }

func (e *sizeEngine) Recognize(_ context.Context, b []byte) (string, error) {
	e.calls++
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	return img.Bounds().Size().String(), nil
}

func pageWithTwoWords(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 300, 80))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	ink := func(x0, y0, x1, y1 int) {
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				img.SetRGBA(x, y, color.RGBA{A: 0xFF})
			}
		}
	}
	ink(10, 10, 29, 39)   // 20x30
	ink(200, 12, 239, 31) // 40x20
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestDetectWords(t *testing.T) {
	rec := NewRecognizer(newTestEngines(t, &sizeEngine{}), RecognizerConfig{})

	boxes, err := rec.DetectWords(pageWithTwoWords(t))
	if err != nil {
		t.Fatalf("DetectWords() error = %v", err)
	}
	want := []segment.Box{{X0: 10, Y0: 10, X1: 29, Y1: 39}, {X0: 200, Y0: 12, X1: 239, Y1: 31}}
	if len(boxes) != 2 || boxes[0] != want[0] || boxes[1] != want[1] {
		t.Fatalf("DetectWords() = %v, want %v", boxes, want)
	}

	blank := image.NewGray(image.Rect(0, 0, 10, 10))
	for i := range blank.Pix {
		blank.Pix[i] = 0xFF
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, blank)
	boxes, err = rec.DetectWords(buf.Bytes())
	if err != nil || boxes == nil || len(boxes) != 0 {
		t.Fatalf("blank page must give an empty, non-nil list: %v %v", boxes, err)
	}

	if _, err := rec.DetectWords([]byte("nope")); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestReadWords(t *testing.T) {
	eng := &sizeEngine{}
	rec := NewRecognizer(newTestEngines(t, eng), RecognizerConfig{})

	words, err := rec.ReadWords(context.Background(), "", pageWithTwoWords(t))
	if err != nil {
		t.Fatalf("ReadWords() error = %v", err)
	}
	if len(words) != 2 || words[0].Text != "(20,30)" || words[1].Text != "(40,20)" {
		t.Fatalf("unexpected words %+v", words)
	}
	if eng.calls != 2 {
		t.Fatalf("expected one engine call per word, got %d", eng.calls)
	}
}

func TestReadWordsAbortsOnFailure(t *testing.T) {
	eng := &fakeEngine{name: "fake", err: ErrBackendInference}
	rec := NewRecognizer(newTestEngines(t, eng), RecognizerConfig{})

	if _, err := rec.ReadWords(context.Background(), "", pageWithTwoWords(t)); !errors.Is(err, ErrBackendInference) {
		t.Fatalf("expected ErrBackendInference, got %v", err)
	}
	if eng.calls != 1 {
		t.Fatalf("first failure must stop the loop, calls=%d", eng.calls)
	}
}
