package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"handwriting-ocr/api/internal/ocr"
	"handwriting-ocr/api/internal/util"

	openai "github.com/sashabaranov/go-openai"
)

const DefaultModel = "gpt-4o-mini"

type Engine struct {
	APIKey string
	Model  string

	client *openai.Client
}

// New builds a vision chat engine. baseURL may point at any OpenAI-compatible
// server; empty means api.openai.com.
func New(key, model, baseURL string) *Engine {
	key = strings.TrimSpace(key)
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	clientConfig := openai.DefaultConfig(key)
	if baseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Engine{
		APIKey: key,
		Model:  model,
		client: openai.NewClientWithConfig(clientConfig),
	}
}

func (e *Engine) Name() string     { return "openai" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Recognize(ctx context.Context, png []byte) (string, error) {
	if e.APIKey == "" {
		return "", fmt.Errorf("%w: OPENAI_API_KEY not set", ocr.ErrBackendUnavailable)
	}
	dataURL := util.MakeDataURL(util.SniffMimeHTTP(png), base64.StdEncoding.EncodeToString(png))

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: util.LoadPrompt("transcribe", e.Name(), ocr.TranscribeInstruction),
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
		Temperature: 0,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: openai %d: %s", ocr.ErrBackendInference, apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("%w: openai: %w", ocr.ErrBackendUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai: empty choices", ocr.ErrBackendProtocol)
	}
	txt := util.StripCodeFences(strings.TrimSpace(resp.Choices[0].Message.Content))
	return util.StripQuotes(txt), nil
}
