package ocr

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Engines is the process-wide engine set. It is built once at start-up and
// only read afterwards.
type Engines struct {
	def    string
	byName map[string]Engine
}

func NewEngines(defaultName string, engines ...Engine) (*Engines, error) {
	e := &Engines{
		def:    strings.ToLower(strings.TrimSpace(defaultName)),
		byName: make(map[string]Engine, len(engines)),
	}
	for _, eng := range engines {
		if eng == nil {
			continue
		}
		name := strings.ToLower(eng.Name())
		if _, dup := e.byName[name]; dup {
			return nil, fmt.Errorf("engine %q registered twice", name)
		}
		e.byName[name] = eng
	}
	if _, ok := e.byName[e.def]; !ok {
		return nil, fmt.Errorf("%w: default engine %q is not configured", ErrUnknownEngine, defaultName)
	}
	return e, nil
}

// GetEngine resolves name; an empty name means the default engine.
func (e *Engines) GetEngine(name string) (Engine, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = e.def
	}
	eng, ok := e.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w %q; use one of: %s", ErrUnknownEngine, name, strings.Join(e.Names(), ", "))
	}
	return eng, nil
}

func (e *Engines) Default() Engine { return e.byName[e.def] }

func (e *Engines) DefaultName() string { return e.def }

func (e *Engines) Names() []string {
	out := make([]string, 0, len(e.byName))
	for name := range e.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Close releases engines that hold resources (the TrOCR worker process).
func (e *Engines) Close() error {
	var errs []error
	for _, name := range e.Names() {
		if c, ok := e.byName[name].(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}
