// Package api serves run reports over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/tempo/internal/batch"
)

// TriggerFunc starts a run over [from, to] and returns it once finished.
type TriggerFunc func(ctx context.Context, from, to string) (*batch.Run, error)

type Server struct {
	router  *chi.Mux
	port    int
	reader  batch.Reader
	trigger TriggerFunc
	logger  *slog.Logger
}

// NewServer builds the router. Report and run routes require apiToken as a
// bearer token when it is non-empty. POST /api/v1/runs answers 503 when
// trigger is nil or no apiToken is set.
func NewServer(port int, apiToken string, reader batch.Reader, trigger TriggerFunc, logger *slog.Logger) *Server {
	if trigger != nil && apiToken == "" {
		logger.Warn("run trigger disabled: set TEMPO_API_TOKEN to allow POST /api/v1/runs")
		trigger = nil
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:  router,
		port:    port,
		reader:  reader,
		trigger: trigger,
		logger:  logger,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/tempo/status", s.status)

	router.Group(func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Get("/api/v1/reports/daily", s.dailyReport)
		r.Get("/api/v1/reports/customers", s.customerReport)
		r.Post("/api/v1/runs", s.createRun)
	})

	return s
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Agent     string     `json:"agent"`
	Status    string     `json:"status"`
	LastRunID string     `json:"last_run_id,omitempty"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Agent: "tempo", Status: "idle"}
	info, err := s.reader.LatestRun(r.Context())
	switch {
	case errors.Is(err, batch.ErrNoRuns):
	case err != nil:
		s.logger.Error("status: latest run", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read runs")
		return
	default:
		resp.Status = "ready"
		resp.LastRunID = info.ID.String()
		finished := info.FinishedAt
		resp.LastRunAt = &finished
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
