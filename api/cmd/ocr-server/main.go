// Command ocr-server serves the /extract API and the interactive upload page.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"handwriting-ocr/api/internal/app"
	"handwriting-ocr/api/internal/config"
	"handwriting-ocr/api/internal/handle"
	"handwriting-ocr/api/internal/httpserver"
	"handwriting-ocr/api/internal/logging"
	"handwriting-ocr/api/internal/page"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ocr-server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("app_close_failed", "error", err.Error())
		}
	}()

	h := handle.New(a.Recognizer, handle.Options{
		MaxMultipartMemory: cfg.MaxMultipartMemory,
		RequestTimeout:     cfg.RequestTimeout,
		Logger:             logger,
	})
	mux := http.NewServeMux()
	h.Register(mux)

	api := &http.Server{
		Addr: cfg.Addr,
		Handler: httpserver.Chain(mux,
			httpserver.RecoveryMiddleware(logger),
			httpserver.RequestIDMiddleware,
			httpserver.LoggingMiddleware(logger),
			httpserver.CORSMiddleware,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}
	servers := []*http.Server{api}

	if cfg.PageAddr != "" && cfg.PageAddr != "-" {
		p := page.New(a.Recognizer, page.Options{
			MaxMultipartMemory: cfg.MaxMultipartMemory,
			Logger:             logger,
		})
		servers = append(servers, &http.Server{
			Addr:              cfg.PageAddr,
			Handler:           p.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	logger.Info("ocr_server_starting", "addr", cfg.Addr, "page_addr", cfg.PageAddr)
	return httpserver.Serve(ctx, logger, servers...)
}
