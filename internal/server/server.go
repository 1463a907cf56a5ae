// Package server provides the HTTP server and routing for latticefold.
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

	"github.com/aristath/latticefold/internal/config"
	"github.com/aristath/latticefold/internal/database"
	"github.com/aristath/latticefold/internal/modules/jobs"
	predictionhandlers "github.com/aristath/latticefold/internal/modules/prediction/handlers"
	quantumhandlers "github.com/aristath/latticefold/internal/modules/quantum/handlers"
	"github.com/aristath/latticefold/internal/scheduler"
)

// Config holds server configuration
type Config struct {
	Log         zerolog.Logger
	DB          *database.DB // may be nil
	Config      *config.Config
	Registry    *jobs.Registry
	Predictions *predictionhandlers.Handler
	Quantum     *quantumhandlers.Handler
	Jobs        []scheduler.Job // maintenance jobs that can be triggered manually
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	predictions    *predictionhandlers.Handler
	quantum        *quantumhandlers.Handler
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		log:         cfg.Log.With().Str("component", "server").Logger(),
		cfg:         cfg.Config,
		predictions: cfg.Predictions,
		quantum:     cfg.Quantum,
		systemHandlers: NewSystemHandlers(
			cfg.Log,
			cfg.DB,
			cfg.Registry,
			cfg.Config,
			cfg.Jobs,
		),
	}

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	// No read/write timeouts: trace streams are long-lived WebSockets.
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
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

	s.router.Route("/api", func(r chi.Router) {
		if s.predictions != nil {
			s.predictions.RegisterRoutes(r)
		}
		if s.quantum != nil {
			s.quantum.RegisterRoutes(r)
		}

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
			r.Get("/database", s.systemHandlers.HandleDatabaseStats)
			r.Post("/jobs/{name}", s.systemHandlers.HandleTriggerJob)
		})
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests, then cancels running prediction jobs
// and waits for them until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	err := s.server.Shutdown(ctx)
	if s.predictions != nil {
		if jerr := s.predictions.Shutdown(ctx); jerr != nil && err == nil {
			err = jerr
		}
	}
	return err
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
