package ocr

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"

	"handwriting-ocr/api/internal/logging"
	"handwriting-ocr/api/internal/util"
)

// ResultStore persists recognized strings keyed by the hash of the
// normalized image. Find must return an error when nothing fresh is stored.
type ResultStore interface {
	Find(ctx context.Context, imageHash, engine, model string, maxAge time.Duration) (string, error)
	Save(ctx context.Context, imageHash, engine, model, text string) error
}

type RecognizerConfig struct {
	// MaxSide downsizes large uploads before they reach the engine; 0 keeps
	// the original size.
	MaxSide int
	// Store is optional. Results are only read back when CacheMaxAge > 0.
	Store       ResultStore
	CacheMaxAge time.Duration
	Logger      *slog.Logger
}

// Recognizer is the inference wrapper shared by every front door.
type Recognizer struct {
	engs        *Engines
	store       ResultStore
	cacheMaxAge time.Duration
	maxSide     int
	logger      *slog.Logger
}

func NewRecognizer(engs *Engines, cfg RecognizerConfig) *Recognizer {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Recognizer{
		engs:        engs,
		store:       cfg.Store,
		cacheMaxAge: cfg.CacheMaxAge,
		maxSide:     cfg.MaxSide,
		logger:      logger,
	}
}

func (r *Recognizer) Engines() *Engines { return r.engs }

// Extract recognizes raw image bytes with the default engine.
func (r *Recognizer) Extract(ctx context.Context, raw []byte) (string, error) {
	return r.ExtractWith(ctx, "", raw)
}

// ExtractWith recognizes raw image bytes with the named engine ("" = default).
// Bytes that do not decode as an image fail with ErrDecode.
func (r *Recognizer) ExtractWith(ctx context.Context, engineName string, raw []byte) (string, error) {
	engine, err := r.engs.GetEngine(engineName)
	if err != nil {
		return "", err
	}
	img, _, err := util.DecodeImage(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return r.recognize(ctx, engine, img)
}

func (r *Recognizer) recognize(ctx context.Context, engine Engine, img image.Image) (string, error) {
	rgb := util.FitWithin(util.ToRGB(img), r.maxSide)
	png, err := util.EncodePNG(rgb)
	if err != nil {
		return "", err
	}

	hash := util.SHA256Hex(png)
	if r.store != nil && r.cacheMaxAge > 0 {
		if text, err := r.store.Find(ctx, hash, engine.Name(), engine.GetModel(), r.cacheMaxAge); err == nil {
			r.logger.Debug("recognize_cache_hit", "engine", engine.Name(), "image_hash", hash)
			return text, nil
		}
	}

	start := time.Now()
	text, err := engine.Recognize(ctx, png)
	if err != nil {
		return "", fmt.Errorf("%s recognize: %w", engine.Name(), err)
	}
	text = strings.TrimSpace(text)
	r.logger.Debug("recognize_done",
		"engine", engine.Name(),
		"model", engine.GetModel(),
		"width", rgb.Bounds().Dx(),
		"height", rgb.Bounds().Dy(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if r.store != nil {
		if err := r.store.Save(ctx, hash, engine.Name(), engine.GetModel(), text); err != nil {
			r.logger.Warn("recognize_store_failed", "engine", engine.Name(), "error", err.Error())
		}
	}
	return text, nil
}
