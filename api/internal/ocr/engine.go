package ocr

import (
	"context"
	"sync"
)

// Engine turns one normalized PNG (opaque RGB) into recognized text.
// Implementations return the decoded string with special tokens already
// stripped.
type Engine interface {
	Name() string
	GetModel() string
	Recognize(ctx context.Context, png []byte) (string, error)
}

type Manager struct {
	def Engine
	m   sync.Map // chatID -> Engine
}

func NewManager(defaultEngine Engine) *Manager {
	return &Manager{def: defaultEngine}
}

func (m *Manager) Get(chatID int64) Engine {
	if v, ok := m.m.Load(chatID); ok {
		return v.(Engine)
	}
	return m.def
}

func (m *Manager) Set(chatID int64, e Engine) {
	m.m.Store(chatID, e)
}

func (m *Manager) Reset(chatID int64) {
	m.m.Delete(chatID)
}

// TranscribeInstruction is the built-in prompt for vision LLM engines. It can
// be overridden per provider with $PROMPT_DIR/<provider>/transcribe.txt.
const TranscribeInstruction = `Transcribe the handwritten text in this image exactly as written.
Keep the original spelling, punctuation and line breaks.
Return only the transcription with no comments, quotes or formatting.
If there is no readable text, return an empty answer.`
