package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"finances/internal/cache"
	"finances/internal/cli"
	apphttp "finances/internal/http"
	"finances/internal/log"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		logger := cli.SetupLogger("info", log.ComponentApp)
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentApp)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	app, err := cli.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", log.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Failed to release resources", log.FieldError, err)
		}
	}()

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		logger.Error("Failed to create upload directory", log.FieldError, err, "path", cfg.UploadDir)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Dependencies{
		Transactions: app.Transactions,
		CSVImport:    app.CSVImport,
		SheetImport:  app.SheetImport,
		Ready:        app.Store.Ping,
	}, apphttp.Options{
		UploadDir:          cfg.UploadDir,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		DefaultSheet:       cfg.GoogleSheetName,
		Logger:             logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting finances server",
			log.FieldOperation, log.OpStartup,
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"events", app.Events != nil,
			"sheets", app.SheetImport != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return cache.NewManager(app.Categories).Run(gctx, cfg.CategoryCacheCleanInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server", log.FieldOperation, log.OpShutdown)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
