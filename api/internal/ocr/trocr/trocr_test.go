package trocr

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"handwriting-ocr/api/internal/ocr"
)

// TestHelperProcess is not a real test: it plays the worker when the engine
// re-executes the test binary.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	model := ""
	for i, arg := range os.Args {
		if arg == "--model" && i+1 < len(os.Args) {
			model = os.Args[i+1]
		}
	}
	mode := os.Getenv("TROCR_HELPER_MODE")
	enc := json.NewEncoder(os.Stdout)
	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 64<<10), 16<<20)
	for sc.Scan() {
		var req workerRequest
		if err := json.Unmarshal(sc.Bytes(), &req); err != nil {
			fmt.Fprintln(os.Stderr, "bad request:", err)
			os.Exit(2)
		}
		switch mode {
		case "crash":
			fmt.Fprintln(os.Stderr, "CUDA out of memory")
			os.Exit(3)
		case "garbage":
			fmt.Println("not json")
		case "error":
			_ = enc.Encode(workerResponse{ID: req.ID, Error: "cannot identify image file"})
		case "wrongid":
			_ = enc.Encode(workerResponse{ID: req.ID + 100, Text: "late"})
		default:
			img, _ := base64.StdEncoding.DecodeString(req.Image)
			_ = enc.Encode(workerResponse{
				ID:   req.ID,
				Text: fmt.Sprintf("%s|%s|%d", img, model, os.Getpid()),
			})
		}
	}
}

func newHelperEngine(t *testing.T, mode string) *Engine {
	t.Helper()
	e, err := New(Config{
		Model:   "test/model",
		Command: os.Args[0] + " -test.run=TestHelperProcess --",
		Env:     []string{"GO_WANT_HELPER_PROCESS=1", "TROCR_HELPER_MODE=" + mode},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestRecognizeReusesWorker(t *testing.T) {
	e := newHelperEngine(t, "")

	first, err := e.Recognize(context.Background(), []byte("one"))
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	second, err := e.Recognize(context.Background(), []byte("two"))
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}

	a := strings.Split(first, "|")
	b := strings.Split(second, "|")
	if len(a) != 3 || len(b) != 3 {
		t.Fatalf("unexpected worker answers %q %q", first, second)
	}
	if a[0] != "one" || b[0] != "two" {
		t.Fatalf("answers out of order: %q %q", first, second)
	}
	if a[1] != "test/model" {
		t.Fatalf("model flag not passed, got %q", a[1])
	}
	if a[2] != b[2] {
		t.Fatalf("expected one worker process, pids %s and %s", a[2], b[2])
	}
}

func TestRecognizeInferenceErrorKeepsWorker(t *testing.T) {
	e := newHelperEngine(t, "error")

	_, err := e.Recognize(context.Background(), []byte("x"))
	if !errors.Is(err, ocr.ErrBackendInference) {
		t.Fatalf("expected ErrBackendInference, got %v", err)
	}
	if !strings.Contains(err.Error(), "cannot identify image file") {
		t.Fatalf("worker message lost: %v", err)
	}
	if e.w == nil {
		t.Fatalf("worker must survive a per-request error")
	}
}

func TestRecognizeWorkerFailures(t *testing.T) {
	tests := []struct {
		mode string
		want error
		text string
	}{
		{mode: "crash", want: ocr.ErrBackendUnavailable, text: "CUDA out of memory"},
		{mode: "garbage", want: ocr.ErrBackendProtocol},
		{mode: "wrongid", want: ocr.ErrBackendProtocol},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			e := newHelperEngine(t, tt.mode)
			_, err := e.Recognize(context.Background(), []byte("x"))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if tt.text != "" && !strings.Contains(err.Error(), tt.text) {
				t.Fatalf("expected %q in %v", tt.text, err)
			}
			if e.w != nil {
				t.Fatalf("broken worker must be dropped")
			}
		})
	}
}

func TestRecognizeMissingInterpreter(t *testing.T) {
	e, err := New(Config{Python: "/nonexistent/python3"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = e.Recognize(context.Background(), []byte("x"))
	if !errors.Is(err, ocr.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestRecognizeCanceledContext(t *testing.T) {
	e := newHelperEngine(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Recognize(ctx, []byte("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if e.w != nil {
		t.Fatalf("worker must not start for a canceled request")
	}
}

func TestNewDefaults(t *testing.T) {
	e, err := New(Config{Device: "cuda"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	want := []string{DefaultPython, DefaultScript, "--model", DefaultModel, "--device", "cuda"}
	if strings.Join(e.command, " ") != strings.Join(want, " ") {
		t.Fatalf("command = %v, want %v", e.command, want)
	}
	if e.GetModel() != DefaultModel || e.Name() != "trocr" {
		t.Fatalf("unexpected identity %s/%s", e.Name(), e.GetModel())
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close() on idle engine error = %v", err)
	}
}
