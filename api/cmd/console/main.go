// Command console recognizes local image files from an interactive prompt.
//
//	> path/to/note.png          recognize with the current engine
//	> :engine gemini            switch engine
//	> :words                    toggle word mode
//	> :engines                  list engines
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"handwriting-ocr/api/internal/app"
	"handwriting-ocr/api/internal/config"
	"handwriting-ocr/api/internal/logging"
	"handwriting-ocr/api/internal/ocr"
)

func main() {
	err := mainImpl()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func mainImpl() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// в консоли логи только мешают
	logger, err := logging.New(os.Stderr, cfg.LogFormat, "error")
	if err != nil {
		return err
	}
	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	rl, err := readline.New("> ")
	if err != nil {
		return err
	}
	defer func() {
		_ = rl.Close()
	}()

	s := &session{rec: a.Recognizer, engine: a.Recognizer.Engines().DefaultName(), out: rl.Stdout()}
	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF, readline.ErrInterrupt
			break
		}
		s.exec(context.Background(), strings.TrimSpace(line))
	}
	return nil
}

type session struct {
	rec    *ocr.Recognizer
	engine string
	words  bool
	out    io.Writer
}

func (s *session) exec(ctx context.Context, line string) {
	switch {
	case line == "":
	case line == ":engines":
		for _, n := range s.rec.Engines().Names() {
			mark := " "
			if n == s.engine {
				mark = "*"
			}
			fmt.Fprintf(s.out, "%s %s\n", mark, n)
		}
	case strings.HasPrefix(line, ":engine"):
		name := strings.TrimSpace(strings.TrimPrefix(line, ":engine"))
		eng, err := s.rec.Engines().GetEngine(name)
		if err != nil {
			fmt.Fprintln(s.out, err)
			return
		}
		s.engine = eng.Name()
		fmt.Fprintf(s.out, "engine: %s (%s)\n", eng.Name(), eng.GetModel())
	case line == ":words":
		s.words = !s.words
		fmt.Fprintf(s.out, "word mode: %v\n", s.words)
	case strings.HasPrefix(line, ":"):
		fmt.Fprintln(s.out, "unknown command; use :engines, :engine <name>, :words")
	default:
		s.recognize(ctx, line)
	}
}

func (s *session) recognize(ctx context.Context, path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(s.out, err)
		return
	}
	if !s.words {
		text, err := s.rec.ExtractWith(ctx, s.engine, raw)
		if err != nil {
			s.printErr(err)
			return
		}
		fmt.Fprintln(s.out, text)
		return
	}
	words, err := s.rec.ReadWords(ctx, s.engine, raw)
	if err != nil {
		s.printErr(err)
		return
	}
	for _, w := range words {
		fmt.Fprintf(s.out, "%4d,%-4d %4d,%-4d  %s\n", w.BBox.X0, w.BBox.Y0, w.BBox.X1, w.BBox.Y1, w.Text)
	}
}

func (s *session) printErr(err error) {
	if errors.Is(err, ocr.ErrDecode) {
		fmt.Fprintln(s.out, "not an image:", err)
		return
	}
	fmt.Fprintln(s.out, "recognition failed:", err)
}
