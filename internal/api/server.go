package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/archanaanairr/vb6/internal/artifacts"
	"github.com/archanaanairr/vb6/internal/events"
	"github.com/archanaanairr/vb6/internal/project"
	"github.com/archanaanairr/vb6/internal/slack"
	"github.com/archanaanairr/vb6/internal/store"
)

const serviceVersion = "2.1.2"

// Cloner fetches a remote repository into destRoot and returns the checkout
// path.
type Cloner interface {
	Clone(ctx context.Context, repoURL, branch, destRoot string) (string, error)
}

type Server struct {
	router    *chi.Mux
	port      int
	logger    *slog.Logger
	builder   *project.Builder
	cloner    Cloner
	db        *store.Store
	events    *events.Client
	notifier  *slack.Poster
	artifacts *artifacts.Store
}

// NewServer wires the HTTP surface. db, ev, notifier and art are optional;
// handlers skip the matching side effects when they are nil.
func NewServer(port int, apiToken string, builder *project.Builder, cloner Cloner, db *store.Store, ev *events.Client, notifier *slack.Poster, art *artifacts.Store, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:    router,
		port:      port,
		logger:    logger,
		builder:   builder,
		cloner:    cloner,
		db:        db,
		events:    ev,
		notifier:  notifier,
		artifacts: art,
	}

	router.Get("/", s.info)
	router.Get("/health", s.health)
	router.Post("/convert", s.convertUpload)
	router.Post("/convert/github", s.convertGitHub)
	router.Route("/api/v1/jobs", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Get("/", s.listJobs)
		r.Get("/{id}", s.getJob)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) info(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"message": "VB6 to .NET 9 Worker Service Converter",
		"version": serviceVersion,
		"features": []string{
			"Large file chunking",
			"Enhanced CLS support",
			"Dynamic CLS classification",
			"GitHub repository conversion",
		},
		"endpoints": map[string]string{
			"/convert":        "POST - Upload VB6 ZIP for conversion",
			"/convert/github": "POST - Convert a GitHub repository",
			"/health":         "GET - Health check",
			"/api/v1/jobs":    "GET - Conversion history",
		},
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// BearerAuthMiddleware rejects requests whose Authorization header does not
// carry the configured token. An empty token leaves the routes open.
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
