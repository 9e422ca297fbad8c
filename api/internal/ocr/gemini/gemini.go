package gemini

import (
	"context"
	"fmt"
	"strings"

	"handwriting-ocr/api/internal/ocr"
	"handwriting-ocr/api/internal/util"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultModel = "gemini-2.0-flash"

type Engine struct {
	APIKey string
	Model  string

	opts []option.ClientOption
}

func New(apiKey, model string, opts ...option.ClientOption) *Engine {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  model,
		opts:   opts,
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

// Recognize sends the image with the transcription instruction and returns
// the first text part of the answer.
func (e *Engine) Recognize(ctx context.Context, png []byte) (string, error) {
	if e.APIKey == "" {
		return "", fmt.Errorf("%w: GEMINI_API_KEY is empty", ocr.ErrBackendUnavailable)
	}
	opts := append([]option.ClientOption{option.WithAPIKey(e.APIKey)}, e.opts...)
	cl, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ocr.ErrBackendUnavailable, err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: ptrFloat32(0),
	}

	instruction := util.LoadPrompt("transcribe", e.Name(), ocr.TranscribeInstruction)
	parts := []genai.Part{
		genai.Text(instruction),
		&genai.Blob{MIMEType: util.SniffMimeHTTP(png), Data: png},
	}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %w", ocr.ErrBackendInference, err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: gemini: no candidates", ocr.ErrBackendProtocol)
	}
	txt := util.StripCodeFences(strings.TrimSpace(firstText(resp)))
	return util.StripQuotes(txt), nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
