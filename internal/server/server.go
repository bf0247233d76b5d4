// Package server provides the HTTP server and routing for folio.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/di"
	currencyhandlers "github.com/aristath/folio/internal/modules/currency/handlers"
	ledgerhandlers "github.com/aristath/folio/internal/modules/ledger/handlers"
	portfoliohandlers "github.com/aristath/folio/internal/modules/portfolio/handlers"
	pricinghandlers "github.com/aristath/folio/internal/modules/pricing/handlers"
	"github.com/aristath/folio/internal/scheduler"
)

// RequestTimeout bounds every non-streaming API request.
const RequestTimeout = 60 * time.Second

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container
	Jobs      *di.JobInstances
	Scheduler *scheduler.Scheduler
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	container      *di.Container
	systemHandlers *SystemHandlers
	startedAt      time.Time
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		container: cfg.Container,
		startedAt: time.Now(),
	}

	var jobs []scheduler.Job
	if cfg.Jobs != nil {
		jobs = cfg.Jobs.All()
	}
	s.systemHandlers = NewSystemHandlers(
		cfg.Log,
		cfg.Container.Databases(),
		cfg.Container.PriceLookup,
		cfg.Container.BackupService,
		cfg.Scheduler,
		jobs,
	)

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the websocket stream is long-lived. API routes are
		// bounded by middleware.Timeout instead.
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	portfolioHandler := portfoliohandlers.NewHandler(s.container.PortfolioService, s.cfg.StreamInterval, s.log)

	s.router.Route("/api", func(r chi.Router) {
		// Streams live outside the request timeout.
		portfolioHandler.RegisterStreamRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(RequestTimeout))

			portfolioHandler.RegisterRoutes(r)
			ledgerhandlers.NewHandler(s.container.LedgerService, s.log).RegisterRoutes(r)
			pricinghandlers.NewHandler(s.container.PriceLookup, s.log).RegisterRoutes(r)
			currencyhandlers.NewHandler(s.container.CurrencyService, s.log).RegisterRoutes(r)

			s.systemHandlers.RegisterRoutes(r)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
