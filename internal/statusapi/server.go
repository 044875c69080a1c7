// Package statusapi exposes a read-only HTTP surface over the artifact
// store, so external dashboards can poll a race's manifest, events, and
// scores without reaching into .hydra/runs on disk themselves.
package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/hydra-cli/hydra/internal/artifact"
	"github.com/hydra-cli/hydra/internal/artifact/runindex"
	"github.com/hydra-cli/hydra/internal/core"
)

// Server serves run manifests, events, and scores read from an artifact
// store base directory. It never mutates run state; race and merge stay
// CLI-driven operations.
type Server struct {
	router  chi.Router
	baseDir string
	index   *runindex.Index
	logger  *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithRunIndex attaches the sqlite run catalog, enabling GET /runs.
// Without it the server still serves per-run endpoints.
func WithRunIndex(idx *runindex.Index) Option {
	return func(s *Server) { s.index = idx }
}

// NewServer builds a status API server reading runs from baseDir
// (typically ".hydra").
func NewServer(baseDir string, opts ...Option) *Server {
	s := &Server{baseDir: baseDir, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))
	r.Use(s.loggingMiddleware)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	r.Use(corsHandler.Handler)

	r.Get("/health", s.handleHealth)
	r.Get("/runs", s.handleListRuns)

	r.Route("/runs/{runID}", func(r chi.Router) {
		r.Get("/manifest", s.handleManifest)
		r.Get("/events", s.handleEvents)
		r.Get("/agents/{agentKey}/score", s.handleAgentScore)
	})

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			s.logger.Info("status api request",
				"method", r.Method, "path", r.URL.Path,
				"status", ww.Status(), "duration", time.Since(start))
		}()
		next.ServeHTTP(ww, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		respondError(w, http.StatusServiceUnavailable, "run index not configured")
		return
	}
	runs, err := s.index.List(r.Context(), 50)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, runs)
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	manifest, err := artifact.ReadManifest(s.baseDir, runID)
	if err != nil {
		writeReadError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, manifest)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	events, err := artifact.ReadEvents(s.baseDir, runID)
	if err != nil {
		writeReadError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}

func (s *Server) handleAgentScore(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	agentKey := core.AgentKey(chi.URLParam(r, "agentKey"))
	score, err := artifact.ReadAgentScore(s.baseDir, runID, agentKey)
	if err != nil {
		writeReadError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, score)
}

func writeReadError(w http.ResponseWriter, err error) {
	var domErr *core.DomainError
	if errors.As(err, &domErr) && domErr.Category == core.ErrCatNotFound {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondError(w, http.StatusInternalServerError, err.Error())
}

// ListenAndServe starts the HTTP server and shuts it down when ctx is
// canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("starting status api server", "addr", addr)
	return srv.ListenAndServe()
}
