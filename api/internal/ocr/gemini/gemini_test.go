package gemini

import (
	"context"
	"errors"
	"testing"

	"handwriting-ocr/api/internal/ocr"

	"github.com/google/generative-ai-go/genai"
)

func TestRecognizeWithoutKey(t *testing.T) {
	e := New("  ", "")
	if e.GetModel() != DefaultModel {
		t.Fatalf("expected default model, got %q", e.GetModel())
	}
	_, err := e.Recognize(context.Background(), []byte{1, 2, 3})
	if !errors.Is(err, ocr.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestFirstText(t *testing.T) {
	if got := firstText(nil); got != "" {
		t.Fatalf("firstText(nil) = %q", got)
	}
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: nil},
			{Content: &genai.Content{Parts: []genai.Part{
				&genai.Blob{MIMEType: "image/png"},
				genai.Text("hello"),
				genai.Text("ignored"),
			}}},
		},
	}
	if got := firstText(resp); got != "hello" {
		t.Fatalf("firstText() = %q", got)
	}
}
