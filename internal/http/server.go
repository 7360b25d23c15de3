// Package http exposes the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finances/internal/log"
	"finances/internal/middleware/ratelimit"
	"finances/internal/middleware/security"
	"finances/internal/middleware/trace"
	"finances/internal/services"
)

const defaultMaxUploadBytes = 10 << 20

// Dependencies are the services the API serves. SheetImport may be nil, in
// which case the sheet import route is not mounted.
type Dependencies struct {
	Transactions *services.TransactionService
	CSVImport    *services.ImportService
	SheetImport  *services.ImportService
	// Ready reports whether backing stores are reachable.
	Ready func(ctx context.Context) error
}

type Options struct {
	UploadDir          string
	MaxUploadBytes     int64
	RateLimitPerMinute int
	// DefaultSheet is imported when the request names no tab.
	DefaultSheet string
	Logger             *log.Logger
}

type Server struct {
	http.Server
	deps    Dependencies
	opts    Options
	logger  *log.Logger
	tracer  *trace.Middleware
	limiter *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Dependencies, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}

	s := &Server{
		deps:   deps,
		opts:   opts,
		logger: opts.Logger.WithComponent(log.ComponentHTTP),
	}
	s.tracer = trace.NewMiddleware(opts.Logger, extractClientIP)

	write := func(h http.HandlerFunc) http.Handler { return h }
	if opts.RateLimitPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute})
		limit := s.limiter.Middleware(extractClientIP, func(w http.ResponseWriter, r *http.Request) {
			s.logger.WarnContext(r.Context(), "Rate limit exceeded", log.FieldClientIP, extractClientIP(r))
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded", Code: "rate_limited"})
		})
		write = func(h http.HandlerFunc) http.Handler { return limit(h) }
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /transactions", s.handleListTransactions)
	mux.Handle("POST /transactions", write(s.handleCreateTransaction))
	mux.HandleFunc("GET /balance", s.handleBalance)
	if deps.CSVImport != nil {
		mux.Handle("POST /transactions/import", write(s.handleImportCSV))
	}
	if deps.SheetImport != nil {
		mux.Handle("POST /transactions/import-sheet", write(s.handleImportSheet))
	}

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(headers.Middleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and its background routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
