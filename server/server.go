// Package server wires the router, the middleware chain and the HTTP server
// lifecycle of the drug interactions service.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"strings"
	"time"

	"github.com/giygas/druginteractions-api/config"
	"github.com/giygas/druginteractions-api/handlers"
	"github.com/giygas/druginteractions-api/interfaces"
	"github.com/giygas/druginteractions-api/logging"
	"github.com/giygas/druginteractions-api/metrics"
	"github.com/giygas/druginteractions-api/validation"
	"github.com/giygas/druginteractions-api/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the HTTP server
type Server struct {
	server      *http.Server
	router      chi.Router
	config      *config.Config
	httpHandler *handlers.HTTPHandlerImpl
	pages       *web.Pages
	rateLimiter *RateLimiter
}

// NewServer creates the server and its routes. It fails only when the page
// templates cannot be parsed.
func NewServer(cfg *config.Config, db interfaces.Store, stats interfaces.StatsProvider, healthChecker interfaces.HealthChecker) (*Server, error) {
	validator := validation.NewDataValidator()

	pages, err := web.NewPages(db, stats, validator)
	if err != nil {
		return nil, fmt.Errorf("failed to load web pages: %w", err)
	}

	router := chi.NewRouter()

	server := &Server{
		server: &http.Server{
			Handler:        router,
			Addr:           cfg.Address + ":" + cfg.Port,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: int(cfg.MaxHeaderSize),
		},
		router:      router,
		config:      cfg,
		httpHandler: handlers.NewHTTPHandler(db, stats, validator, healthChecker),
		pages:       pages,
		rateLimiter: NewRateLimiter(rateLimitPerSecond, rateLimitCapacity),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server, nil
}

// Router exposes the handler tree, mostly for tests
func (s *Server) Router() http.Handler {
	return s.router
}

func requestLogger() *slog.Logger {
	if logging.DefaultLoggingService != nil && logging.DefaultLoggingService.Logger != nil {
		return logging.DefaultLoggingService.Logger
	}
	return slog.Default()
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(RealIPMiddleware)
	s.router.Use(logging.LoggingMiddleware(requestLogger()))
	s.router.Use(metrics.Metrics)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:         300,
	}))
	s.router.Use(RequestSizeMiddleware(s.config))
	s.router.Use(s.rateLimiter.Middleware)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	h := s.httpHandler

	s.router.Get("/health", h.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/drugs", h.ListDrugs)
		r.Get("/drugs/{id}", h.GetDrug)
		r.Get("/drugs/{id}/interactions", h.DrugInteractions)
		r.Get("/interactions", h.SearchInteractions)
		r.Get("/interactions/search", h.SearchInteractions)
		r.Get("/interactions/{id}", h.GetInteraction)
		r.Get("/stats", h.Stats)

		if s.config.AdminEnabled() {
			r.Route("/admin", func(r chi.Router) {
				r.Use(AdminAuthMiddleware(s.config.AdminToken))
				r.Post("/drugs", h.CreateDrug)
				r.Put("/drugs/{id}", h.UpdateDrug)
				r.Delete("/drugs/{id}", h.DeleteDrug)
				r.Post("/interactions", h.CreateInteraction)
				r.Put("/interactions/{id}", h.UpdateInteraction)
				r.Delete("/interactions/{id}", h.DeleteInteraction)
			})
		}
	})

	s.router.Get("/", s.pages.Home)
	s.router.Get("/search", s.pages.Search)
	s.router.Get("/drug/{id}", s.pages.Drug)
	s.router.Get("/interaction/{id}", s.pages.Interaction)

	s.router.NotFound(s.notFound)
}

// notFound answers JSON under /api and the HTML page elsewhere
func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
		s.httpHandler.RespondWithError(w, http.StatusNotFound, "Endpoint not found")
		return
	}
	s.pages.NotFound(w, r)
}

// Start starts the server and blocks until it stops. A graceful shutdown is
// not reported as an error.
func (s *Server) Start() error {
	if s.config.Env == config.EnvDevelopment {
		s.startProfilingServer()
	}
	s.rateLimiter.StartCleanup(5 * time.Minute)

	logging.Info(fmt.Sprintf("Starting server at: %s", s.server.Addr),
		"env", s.config.Env.String(),
		"admin_api", s.config.AdminEnabled(),
	)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")
	s.rateLimiter.Stop()

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		// If graceful shutdown fails, force close
		if err := s.server.Close(); err != nil {
			logging.Error("Server close error", "error", err)
			return err
		}
	}

	logging.Info("Server shutdown complete")
	return nil
}

// startProfilingServer starts the pprof profiling server in development mode
func (s *Server) startProfilingServer() {
	go func() {
		logging.Info("Profiling server started at http://localhost:6060/debug/pprof/")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			logging.Warn("Profiling server failed", "error", err)
		}
	}()
}
