package yandex

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"handwriting-ocr/api/internal/ocr"
)

const (
	defaultOCRURL = "https://ocr.api.cloud.yandex.net/ocr/v1/recognizeText"
	modelName     = "handwritten"
)

type Engine struct {
	iamc      *IamClient
	folderID  string
	languages []string
	endpoint  string
	httpc     *http.Client
}

// New builds the Yandex Vision OCR engine. languages defaults to ["en"].
func New(oauth2Token, folderID string, languages []string) *Engine {
	if len(languages) == 0 {
		languages = []string{"en"}
	}
	return &Engine{
		iamc:      NewIamClient(oauth2Token),
		folderID:  folderID,
		languages: languages,
		endpoint:  defaultOCRURL,
		httpc:     &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *Engine) Name() string     { return "yandex" }
func (e *Engine) GetModel() string { return modelName }

type request struct {
	Content       string   `json:"content"`
	MimeType      string   `json:"mimeType,omitempty"`      // "JPEG" | "PNG" | "PDF"
	LanguageCodes []string `json:"languageCodes,omitempty"` // ["ru","en"]
	Model         string   `json:"model,omitempty"`         // "handwritten", "page"
}

type textAnnotation struct {
	FullText string `json:"fullText,omitempty"`
	Blocks   []struct {
		Lines []struct {
			Text string `json:"text,omitempty"`
		} `json:"lines,omitempty"`
	} `json:"blocks,omitempty"`
}

type response struct {
	Result *struct {
		TextAnnotation *textAnnotation `json:"textAnnotation,omitempty"`
	} `json:"result,omitempty"`
}

func (r *response) GetTextAnnotation() *textAnnotation {
	if r == nil || r.Result == nil {
		return nil
	}
	return r.Result.TextAnnotation
}

func (e *Engine) Recognize(ctx context.Context, png []byte) (string, error) {
	payload, _ := json.Marshal(request{
		Content:       base64.StdEncoding.EncodeToString(png),
		MimeType:      "PNG",
		LanguageCodes: e.languages,
		Model:         modelName,
	})

	resp, err := e.do(ctx, payload)
	if err != nil {
		return "", err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		// токен мог протухнуть раньше срока: один повтор со свежим
		resp.Body.Close()
		e.iamc.Invalidate()
		if resp, err = e.do(ctx, payload); err != nil {
			return "", err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		x, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("%w: yandex ocr %d: %s", ocr.ErrBackendInference, resp.StatusCode, strings.TrimSpace(string(x)))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: yandex ocr: %w", ocr.ErrBackendProtocol, err)
	}
	ta := out.GetTextAnnotation()
	if ta == nil {
		return "", nil
	}
	if t := strings.TrimSpace(ta.FullText); t != "" {
		return t, nil
	}
	// fallback: lines
	var lines []string
	for _, b := range ta.Blocks {
		for _, l := range b.Lines {
			if s := strings.TrimSpace(l.Text); s != "" {
				lines = append(lines, s)
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}

func (e *Engine) do(ctx context.Context, payload []byte) (*http.Response, error) {
	iamToken, err := e.iamc.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: yandex iam: %w", ocr.ErrBackendUnavailable, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+iamToken)
	req.Header.Set("x-folder-id", e.folderID)

	resp, err := e.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: yandex ocr: %w", ocr.ErrBackendUnavailable, err)
	}
	return resp, nil
}
