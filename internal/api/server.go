// Package api serves validation results over HTTP as JSON.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/HendryAvila/specgate/internal/history"
	"github.com/HendryAvila/specgate/internal/workspace"
)

// Opener returns the workspace a request operates on. It is called once
// per request so configuration edits are picked up without a restart.
type Opener func(ctx context.Context) (*workspace.Workspace, error)

// Config holds the HTTP settings.
type Config struct {
	// APIKey enables bearer authentication on /api routes when set.
	APIKey string
}

// Server is the HTTP API server for specgate.
type Server struct {
	router  chi.Router
	open    Opener
	history *history.Store
	log     *slog.Logger
	cfg     Config
}

// NewServer creates and configures the HTTP server. hs may be nil, in
// which case /api/history answers 503 and validations are not recorded.
func NewServer(open Opener, hs *history.Store, log *slog.Logger, cfg Config) *Server {
	s := &Server{
		open:    open,
		history: hs,
		log:     log,
		cfg:     cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Get("/api/specs", s.handleListSpecs)
		r.Get("/api/specs/{ref}", s.handleGetSpec)
		r.Get("/api/specs/{ref}/validate", s.handleValidateSpec)
		r.Get("/api/specs/{ref}/tokens", s.handleTokens)
		r.Post("/api/validate", s.handleValidateAll)
		r.Get("/api/history", s.handleHistory)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
