// Package app assembles the recognizer from configuration. Every binary
// (HTTP API, bot, console) starts from here.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"handwriting-ocr/api/internal/config"
	"handwriting-ocr/api/internal/logging"
	"handwriting-ocr/api/internal/ocr"
	"handwriting-ocr/api/internal/ocr/gemini"
	"handwriting-ocr/api/internal/ocr/huggingface"
	"handwriting-ocr/api/internal/ocr/openai"
	"handwriting-ocr/api/internal/ocr/tesseract"
	"handwriting-ocr/api/internal/ocr/trocr"
	"handwriting-ocr/api/internal/ocr/yandex"
	"handwriting-ocr/api/internal/store"
)

type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Recognizer *ocr.Recognizer

	engines *ocr.Engines
	db      *sql.DB
}

// New builds the engine set and, when a DSN is configured, the result store.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	engs, err := BuildEngines(cfg)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Logger: logger, engines: engs}

	rc := ocr.RecognizerConfig{
		MaxSide:     cfg.MaxSide,
		CacheMaxAge: cfg.CacheMaxAge,
		Logger:      logger,
	}
	if cfg.DatabaseURL != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = engs.Close()
			return nil, err
		}
		logger.Info("db_connected", "dsn", store.SafeDSNSummary(cfg.DatabaseURL))
		a.db = db
		rc.Store = store.NewRecognitionRepo(db)
	}
	a.Recognizer = ocr.NewRecognizer(engs, rc)

	logger.Info("engines_ready", "default", engs.DefaultName(), "engines", engs.Names(),
		"store", a.db != nil, "cache_max_age", cfg.CacheMaxAge.String())
	return a, nil
}

// BuildEngines registers every local and hosted engine. Hosted engines
// without credentials stay registered and fail with ErrBackendUnavailable;
// Yandex is only added once both OAuth token and folder are set.
func BuildEngines(cfg *config.Config) (*ocr.Engines, error) {
	tr, err := trocr.New(trocr.Config{
		Python:  cfg.TrOCR.Python,
		Script:  cfg.TrOCR.Script,
		Model:   cfg.TrOCR.Model,
		Device:  cfg.TrOCR.Device,
		Command: cfg.TrOCR.Command,
	})
	if err != nil {
		return nil, fmt.Errorf("trocr: %w", err)
	}
	tess, err := tesseract.New(cfg.Tesseract.Languages)
	if err != nil {
		return nil, fmt.Errorf("tesseract: %w", err)
	}

	list := []ocr.Engine{
		tr,
		huggingface.New(cfg.HuggingFace.Token, cfg.HuggingFace.Model, cfg.HuggingFace.BaseURL),
		gemini.New(cfg.Gemini.APIKey, cfg.Gemini.Model),
		openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL),
		tess,
	}
	if cfg.Yandex.OAuthToken != "" && cfg.Yandex.FolderID != "" {
		list = append(list, yandex.New(cfg.Yandex.OAuthToken, cfg.Yandex.FolderID, cfg.Yandex.Languages))
	}
	return ocr.NewEngines(cfg.DefaultEngine, list...)
}

func (a *App) Close() error {
	var errs []error
	if err := a.engines.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("db close: %w", err))
		}
	}
	return errors.Join(errs...)
}
