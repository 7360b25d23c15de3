// Package cli provides common initialization shared by cmd/finances-server
// and cmd/finances.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"finances/internal/backend"
	"finances/internal/cache"
	"finances/internal/config"
	"finances/internal/core"
	"finances/internal/log"
	"finances/internal/ports"
	"finances/internal/services"
	"finances/internal/source/csvfile"
	"finances/internal/source/gsheet"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// sets it as the slog default.
func SetupLogger(level, component string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	cfg.Format = os.Getenv("LOG_FORMAT")
	if component != "" {
		cfg.Component = component
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// App is the wired application: store, services and the resources that
// must be released on exit.
type App struct {
	Config       *config.Config
	Logger       *log.Logger
	Store        ports.Store
	Events       services.EventPublisher
	Categories   *cache.LRUCache[core.Category]
	Transactions *services.TransactionService
	CSVImport    *services.ImportService
	// SheetImport is nil when Google Sheets is not configured.
	SheetImport *services.ImportService

	cleanup backend.CleanupFunc
}

// Build opens the configured backend and wires the services on top of it.
func Build(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentStorage).Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:  cfg,
		Logger:  logger,
		Store:   res.Store,
		Events:  res.Events,
		cleanup: res.Cleanup,
	}
	app.Categories = cache.NewLRUCache[core.Category](cfg.CategoryCacheSize, cfg.CategoryCacheTTL)

	reconciler := services.NewCategoryReconciler(res.Store, app.Categories)
	ledger := services.NewLedger(res.Store, res.Events)
	app.Transactions = services.NewTransactionService(reconciler, ledger)
	app.CSVImport = services.NewImportService(csvfile.New(), reconciler, ledger, res.Events)

	if cfg.ValidateSheets() == nil {
		src, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, gsheet.Credentials{
			JSON: cfg.GoogleServiceAccountJSON,
			File: cfg.GoogleServiceAccountFile,

			OAuthClientFile: cfg.GoogleOAuthClientFile,
			OAuthTokenFile:  cfg.GoogleOAuthTokenFile,
		})
		if err != nil {
			logger.WarnContext(ctx, "Google Sheets import disabled", log.FieldError, err)
		} else {
			app.SheetImport = services.NewImportService(src, reconciler, ledger, res.Events)
		}
	}
	return app, nil
}

// RequireSheets returns the sheet importer or explains what configuration is
// missing.
func (a *App) RequireSheets() (*services.ImportService, error) {
	if a.SheetImport != nil {
		return a.SheetImport, nil
	}
	if err := a.Config.ValidateSheets(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("google sheets client could not be initialized")
}

// Close releases the store and the broker connection.
func (a *App) Close() error {
	if a.cleanup == nil {
		return nil
	}
	return a.cleanup()
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
