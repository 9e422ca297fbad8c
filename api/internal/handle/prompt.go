package handle

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"handwriting-ocr/api/internal/util"
)

var (
	allowedProviderRe = regexp.MustCompile(`^[a-z][a-z0-9_-]{1,31}$`)
	allowedNameRe     = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

// UpdatePromptRequest Update API request payload.
type UpdatePromptRequest struct {
	Provider string `json:"provider"` // e.g. "openai" | "gemini"
	Name     string `json:"name"`     // filename WITHOUT extension (e.g. "transcribe")
	Text     string `json:"text"`     // new prompt body
}

// UpdatePromptResponse Update API response payload.
type UpdatePromptResponse struct {
	OK       bool   `json:"ok"`
	Provider string `json:"provider"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Size     int    `json:"size"`
	Updated  string `json:"updated_at"`
}

func (req *UpdatePromptRequest) Validate() error {
	if req.Provider == "" || !allowedProviderRe.MatchString(strings.ToLower(req.Provider)) {
		return fmt.Errorf("invalid provider: must match %q", allowedProviderRe.String())
	}
	if req.Name == "" || !allowedNameRe.MatchString(req.Name) {
		return fmt.Errorf("invalid name: must be a simple basename without extension; allowed %q", allowedNameRe.String())
	}
	if strings.TrimSpace(req.Text) == "" {
		return fmt.Errorf("text is required")
	}
	if len(req.Text) > 2*1024*1024 {
		return fmt.Errorf("text too large (max 2 MiB)")
	}
	return nil
}

// UpdatePrompt persists a provider prompt under $PROMPT_DIR/<provider>/<name>.txt
// using an atomic rename. LLM engines pick it up on their next call.
func (h *Handle) UpdatePrompt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	defer r.Body.Close()

	var req UpdatePromptRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, 4<<20)) // 4 MiB limit
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	req.Name = strings.TrimSuffix(req.Name, ".txt")
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	provider := strings.ToLower(req.Provider)

	dstPath, err := util.PromptPath(req.Name, provider)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := writeFileAtomic(dstPath, req.Text); err != nil {
		h.logger.Error("prompt_update_failed", "provider", provider, "name", req.Name, "error", err.Error())
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.logger.Info("prompt_updated", "provider", provider, "name", req.Name, "size", len(req.Text))

	writeJSON(w, http.StatusOK, UpdatePromptResponse{
		OK:       true,
		Provider: provider,
		Name:     req.Name,
		Path:     dstPath,
		Size:     len(req.Text),
		Updated:  time.Now().UTC().Format(time.RFC3339),
	})
}

// writeFileAtomic writes into a temp file in the same directory, then renames.
func writeFileAtomic(dstPath, text string) error {
	dir := filepath.Dir(dstPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("make dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(dstPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(text); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp: %w", err)
	}
	_ = tmp.Chmod(0o644)
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpPath, dstPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
