package handle

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"handwriting-ocr/api/internal/httpserver"
	"handwriting-ocr/api/internal/logging"
	"handwriting-ocr/api/internal/ocr"
)

const defaultMaxMemory = 32 << 20

type Options struct {
	// MaxMultipartMemory is the in-memory part of a multipart body; the rest
	// spills to temp files.
	MaxMultipartMemory int64
	// RequestTimeout bounds one request; 0 disables it.
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

type Handle struct {
	rec       *ocr.Recognizer
	maxMemory int64
	timeout   time.Duration
	logger    *slog.Logger
}

func New(rec *ocr.Recognizer, opts Options) *Handle {
	h := &Handle{
		rec:       rec,
		maxMemory: opts.MaxMultipartMemory,
		timeout:   opts.RequestTimeout,
		logger:    opts.Logger,
	}
	if h.maxMemory <= 0 {
		h.maxMemory = defaultMaxMemory
	}
	if h.logger == nil {
		h.logger = logging.Discard()
	}
	return h
}

// Register mounts every endpoint on mux.
func (h *Handle) Register(mux *http.ServeMux) {
	mux.HandleFunc("/extract", h.Extract)
	mux.HandleFunc("/v1/words/detect", h.DetectWords)
	mux.HandleFunc("/v1/words/read", h.ReadWords)
	mux.HandleFunc("/v1/engines", h.Engines)
	mux.HandleFunc("/v1/prompts", h.UpdatePrompt)
	mux.HandleFunc("/healthz", h.Healthz)
}

func (h *Handle) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// requestContext applies the configured timeout; X-Request-Timeout (seconds)
// or ?timeoutSec= override it per request.
func (h *Handle) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	deadline := h.timeout
	if ts := r.Header.Get("X-Request-Timeout"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			deadline = time.Duration(v) * time.Second
		}
	} else if ts := r.URL.Query().Get("timeoutSec"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			deadline = time.Duration(v) * time.Second
		}
	}
	if deadline <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), deadline)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeFailure reports a recognition failure as a bare 500 and logs the cause.
func (h *Handle) writeFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error(op+"_failed",
		"path", r.URL.Path,
		"request_id", httpserver.RequestID(r.Context()),
		"error", err.Error(),
	)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
