// Package trocr runs the pretrained TrOCR model through a long-lived Python
// worker. The worker speaks JSON lines: one request per line on stdin, one
// response per line on stdout.
package trocr

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"handwriting-ocr/api/internal/ocr"
)

const (
	DefaultModel  = "microsoft/trocr-base-handwritten"
	DefaultPython = "python3"
	DefaultScript = "scripts/trocr_worker.py"
)

type Config struct {
	Python string
	Script string
	Model  string
	Device string // "cpu", "cuda", empty = auto
	// Command replaces the python invocation entirely, e.g.
	// "uv run scripts/trocr_worker.py". Model and device flags are appended.
	Command string
	Env     []string
}

type workerRequest struct {
	ID    uint64 `json:"id"`
	Image string `json:"image"`
}

type workerResponse struct {
	ID    uint64 `json:"id"`
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Engine serializes requests to one worker process. The worker is started on
// the first Recognize and restarted after it dies or misbehaves.
type Engine struct {
	model   string
	command []string
	env     []string

	mu     sync.Mutex
	w      *worker
	nextID uint64
}

type worker struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  *bufio.Scanner
	stderr *tailBuffer
}

func New(cfg Config) (*Engine, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	command, err := parseBridgeCommand(cfg.Command)
	if err != nil {
		return nil, err
	}
	if len(command) == 0 {
		python := strings.TrimSpace(cfg.Python)
		if python == "" {
			python = DefaultPython
		}
		script := strings.TrimSpace(cfg.Script)
		if script == "" {
			script = DefaultScript
		}
		command = []string{python, script}
	}
	command = append(command, "--model", model)
	if d := strings.TrimSpace(cfg.Device); d != "" {
		command = append(command, "--device", d)
	}
	return &Engine{model: model, command: command, env: cfg.Env}, nil
}

func (e *Engine) Name() string     { return "trocr" }
func (e *Engine) GetModel() string { return e.model }

func (e *Engine) Recognize(ctx context.Context, png []byte) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if e.w == nil {
		w, err := e.start()
		if err != nil {
			return "", err
		}
		e.w = w
	}

	e.nextID++
	req := workerRequest{ID: e.nextID, Image: base64.StdEncoding.EncodeToString(png)}
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %w", ocr.ErrBackendProtocol, err)
	}
	if _, err := e.w.stdin.Write(append(payload, '\n')); err != nil {
		return "", e.fail(fmt.Errorf("%w: write request: %w", ocr.ErrBackendUnavailable, err))
	}

	type result struct {
		line []byte
		err  error
	}
	done := make(chan result, 1)
	w := e.w
	go func() {
		if w.lines.Scan() {
			done <- result{line: append([]byte(nil), w.lines.Bytes()...)}
			return
		}
		err := w.lines.Err()
		if err == nil {
			err = io.EOF
		}
		done <- result{err: err}
	}()

	var res result
	select {
	case <-ctx.Done():
		// ответ уже не нужен, а протокол рассинхронизирован: гасим воркер
		_ = e.fail(ctx.Err())
		return "", ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		// stderr is complete only after Wait
		_ = e.stop()
		msg := strings.TrimSpace(w.stderr.String())
		if msg == "" {
			return "", fmt.Errorf("%w: worker exited: %w", ocr.ErrBackendUnavailable, res.err)
		}
		return "", fmt.Errorf("%w: worker exited: %w: %s", ocr.ErrBackendUnavailable, res.err, msg)
	}

	var resp workerResponse
	if err := json.Unmarshal(res.line, &resp); err != nil {
		return "", e.fail(fmt.Errorf("%w: decode response: %w", ocr.ErrBackendProtocol, err))
	}
	if resp.ID != req.ID {
		return "", e.fail(fmt.Errorf("%w: response id %d, want %d", ocr.ErrBackendProtocol, resp.ID, req.ID))
	}
	if msg := strings.TrimSpace(resp.Error); msg != "" {
		return "", fmt.Errorf("%w: %s", ocr.ErrBackendInference, msg)
	}
	return resp.Text, nil
}

// Close stops the worker if it is running.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stop()
}

func (e *Engine) start() (*worker, error) {
	cmd := exec.Command(e.command[0], e.command[1:]...)
	cmd.Env = append(os.Environ(), e.env...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ocr.ErrBackendUnavailable, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ocr.ErrBackendUnavailable, err)
	}
	stderr := &tailBuffer{max: 4 << 10}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		var execErr *exec.Error
		var pathErr *os.PathError
		if errors.As(err, &execErr) || errors.As(err, &pathErr) {
			return nil, fmt.Errorf("%w: start %q: %w", ocr.ErrBackendUnavailable, e.command[0], err)
		}
		return nil, fmt.Errorf("%w: %w", ocr.ErrBackendUnavailable, err)
	}
	lines := bufio.NewScanner(stdout)
	lines.Buffer(make([]byte, 64<<10), 16<<20)
	return &worker{cmd: cmd, stdin: stdin, lines: lines, stderr: stderr}, nil
}

func (e *Engine) fail(err error) error {
	_ = e.stop()
	return err
}

func (e *Engine) stop() error {
	if e.w == nil {
		return nil
	}
	w := e.w
	e.w = nil
	_ = w.stdin.Close()
	if w.cmd.Process != nil {
		_ = w.cmd.Process.Kill()
	}
	err := w.cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func parseBridgeCommand(raw string) ([]string, error) {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return nil, nil
	}
	parts := strings.Fields(clean)
	if len(parts) == 0 {
		return nil, fmt.Errorf("bridge command is empty")
	}
	return parts, nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
