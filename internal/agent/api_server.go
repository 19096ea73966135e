package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/api"
	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/logging"
)

// apiServer exposes a local read-mostly HTTP surface for the dashboard and
// CLI: availability, queue contents, and manual queue actions.
type apiServer struct {
	bind   string
	logger *slog.Logger
	agent  *Agent

	listener net.Listener
	server   *http.Server
}

func newAPIServer(bind string, a *Agent, logger *slog.Logger) *apiServer {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api"),
		agent:  a,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/queue", srv.handleQueue)
	mux.HandleFunc("/api/queue/", srv.handleQueueItem)
	mux.HandleFunc("/api/queue-retry", srv.handleQueueRetry)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	summary, err := s.agent.store.Health(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	state := s.agent.monitor.Snapshot()
	payload := api.AgentStatus{
		Running:          true,
		PID:              os.Getpid(),
		BackendAvailable: state.Available,
		LastCheckedAt:    state.LastCheckedAt,
		Draining:         s.agent.manager.Drainer().Draining(),
		Queue:            api.FromHealthSummary(summary),
	}
	if snapshot, ok := s.agent.streamer.Snapshot(); ok {
		payload.ActiveWorkflow = api.FromSnapshot(snapshot)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleQueue(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		jobs, err := s.agent.store.List(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, api.QueueListResponse{Items: api.FromJobs(jobs)})
	case http.MethodDelete:
		// Full clear, or only frozen items with ?failed=1.
		var (
			removed int64
			err     error
		)
		if r.URL.Query().Get("failed") == "1" {
			removed, err = s.agent.store.ClearFailed(r.Context())
		} else {
			removed, err = s.agent.store.Clear(r.Context())
		}
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleQueueItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/queue/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "unknown queue item path")
		return
	}

	switch r.Method {
	case http.MethodGet:
		job, err := s.agent.store.GetByID(r.Context(), id)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if job == nil {
			s.writeError(w, http.StatusNotFound, "queue item not found")
			return
		}
		s.writeJSON(w, http.StatusOK, api.FromJob(job))
	case http.MethodDelete:
		removed, err := s.agent.store.Remove(r.Context(), id)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !removed {
			s.writeError(w, http.StatusNotFound, "queue item not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleQueueRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var request struct {
		IDs []string `json:"ids"`
	}
	if r.Body != nil {
		// An empty body means retry everything frozen.
		_ = json.NewDecoder(r.Body).Decode(&request)
	}

	reset, err := s.agent.store.RetryFailed(r.Context(), request.IDs...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.RetryResponse{Reset: reset})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("encode api response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
