package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadPrompt returns <PROMPT_DIR>/<provider>/<name>.txt when it exists and is
// non-empty, otherwise the built-in fallback.
func LoadPrompt(name, provider, fallback string) string {
	p, err := PromptPath(name, provider)
	if err != nil {
		return fallback
	}
	if b, err := os.ReadFile(p); err == nil && len(strings.TrimSpace(string(b))) > 0 {
		return strings.TrimSpace(string(b))
	}
	return fallback
}

// PromptPath is where LoadPrompt looks for a provider prompt.
func PromptPath(name, provider string) (string, error) {
	if provider == "" {
		return "", fmt.Errorf("provider is empty")
	}
	baseRoot := os.Getenv("PROMPT_DIR")
	if baseRoot == "" {
		baseRoot = filepath.Join("api", "prompt")
	}
	return filepath.Join(baseRoot, strings.ToLower(provider), name+".txt"), nil
}
