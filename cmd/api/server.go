package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// Server runs the import API and, when enabled, the metrics endpoint
type Server struct {
	deps    *Dependencies
	router  *chi.Mux
	server  *http.Server
	metrics *http.Server
}

// NewServer creates the HTTP server for deps
func NewServer(deps *Dependencies) *Server {
	s := &Server{
		deps:   deps,
		router: chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()

	cfg := deps.Config.Server
	s.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.corsHandler(s.router),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	if deps.Config.Observability.MetricsEnabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{Registry: deps.Registry}))
		s.metrics = &http.Server{
			Addr:              fmt.Sprintf(":%d", deps.Config.Observability.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.deps.Config.Remote.Timeout + 10*time.Second))
}

func (s *Server) setupRoutes() {
	s.deps.ImportHandler.Register(s.router)
}

func (s *Server) corsHandler(next http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   s.deps.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler(next)
}

// Start serves until Shutdown. The metrics listener runs alongside.
func (s *Server) Start() error {
	if s.metrics != nil {
		go func() {
			s.deps.Logger.Info("metrics server starting", slog.String("addr", s.metrics.Addr))
			if err := s.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.deps.Logger.Error("metrics server failed", slog.Any("error", err))
			}
		}()
	}

	s.deps.Logger.Info("server starting", slog.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops both listeners.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.metrics != nil {
		errs = append(errs, s.metrics.Shutdown(ctx))
	}
	errs = append(errs, s.server.Shutdown(ctx))
	return errors.Join(errs...)
}

// Handler returns the API handler with CORS applied, for testing.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
