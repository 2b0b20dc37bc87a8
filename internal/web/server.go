// Package web provides the HTTP API for the data mapper: sessions over
// saved query results, operations on them, config import and export, and
// file exports.
package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/JonMunkholm/datamapper/internal/config"
	"github.com/JonMunkholm/datamapper/internal/core"
	mw "github.com/JonMunkholm/datamapper/internal/web/middleware"
)

// Server is the HTTP server for the data mapper API.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}

	s.router.Use(securityHeaders)

	if len(s.cfg.Security.AllowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.Security.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-API-Key", "X-Request-Id"},
			ExposedHeaders:   []string{"Content-Disposition", "Retry-After"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	if s.cfg.Rate.Enabled {
		s.router.Use(mw.RateLimit(s.cfg.Rate.RequestsPerSecond, s.cfg.Rate.Burst))
	}

	s.router.Use(clientMetadata)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(&s.cfg.Security))

		r.Get("/healthz", s.handleHealth)

		// Saved query catalog
		r.Get("/queries", s.handleListQueries)

		// Sessions
		r.Post("/sessions", s.handleOpenQuerySession)
		r.Post("/sessions/records", s.handleOpenRecordsSession)
		r.Post("/sessions/csv", s.handleOpenCSVSession)
		r.Get("/sessions", s.handleListSessions)

		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleCloseSession)

			// Views
			r.Get("/data", s.handleData)
			r.Get("/columns", s.handleColumns)
			r.Patch("/columns/{column}", s.handleSetColumnVisible)
			r.Get("/stats/{column}", s.handleStats)

			// Operations
			r.Get("/operations", s.handleListOperations)
			r.Post("/operations", s.handleApply)
			r.Post("/undo", s.handleUndo)
			r.Post("/reset", s.handleReset)

			// Config import and export
			r.Get("/config", s.handleExportConfig)
			r.Put("/config", s.handleImportConfig)

			// File exports
			r.Get("/export.xlsx", s.handleExportXLSX)
			r.Get("/export.csv", s.handleExportCSV)

			// Saved configs
			r.Post("/configs", s.handleSaveConfig)
			r.Post("/configs/{configID}/apply", s.handleApplySavedConfig)
		})

		r.Get("/configs", s.handleListConfigs)
		r.Get("/configs/{configID}", s.handleGetConfig)
		r.Delete("/configs/{configID}", s.handleDeleteConfig)
	})
}

// Start listens on the configured address until Shutdown is called, then
// returns http.ErrServerClosed.
func (s *Server) Start() error {
	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server. Calling it before Start makes Start
// return immediately.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// The API serves JSON and downloads only
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}
