package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"handwriting-ocr/api/internal/ocr"
)

const (
	DefaultBaseURL = "https://api-inference.huggingface.co"
	DefaultModel   = "microsoft/trocr-base-handwritten"
)

// Engine calls the hosted Inference API for an image-to-text model.
type Engine struct {
	Token   string
	Model   string
	BaseURL string
	httpc   *http.Client
}

func New(token, model, baseURL string) *Engine {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Engine{
		Token:   strings.TrimSpace(token),
		Model:   strings.TrimSpace(model),
		BaseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 120 * time.Second},
	}
}

func (e *Engine) Name() string     { return "huggingface" }
func (e *Engine) GetModel() string { return e.Model }

type generated struct {
	GeneratedText string `json:"generated_text"`
}

func (e *Engine) Recognize(ctx context.Context, png []byte) (string, error) {
	url := e.BaseURL + "/models/" + e.Model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(png))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "image/png")
	// ждём прогрева модели вместо мгновенного 503
	req.Header.Set("x-wait-for-model", "true")
	if e.Token != "" {
		req.Header.Set("Authorization", "Bearer "+e.Token)
	}

	resp, err := e.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: huggingface: %w", ocr.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: huggingface: %w", ocr.ErrBackendProtocol, err)
	}
	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return "", fmt.Errorf("%w: huggingface 503: %s", ocr.ErrBackendUnavailable, strings.TrimSpace(string(body)))
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: huggingface %d: %s", ocr.ErrBackendInference, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return parseGenerated(body)
}

// parseGenerated accepts both [{"generated_text": ...}] and the bare object
// some deployments return.
func parseGenerated(body []byte) (string, error) {
	var list []generated
	if err := json.Unmarshal(body, &list); err == nil {
		if len(list) == 0 {
			return "", fmt.Errorf("%w: huggingface: empty result", ocr.ErrBackendProtocol)
		}
		return list[0].GeneratedText, nil
	}
	var one generated
	if err := json.Unmarshal(body, &one); err != nil {
		return "", fmt.Errorf("%w: huggingface: %w", ocr.ErrBackendProtocol, err)
	}
	return one.GeneratedText, nil
}
