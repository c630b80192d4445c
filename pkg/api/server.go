package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/roost-io/roost/pkg/controller"
	"github.com/roost-io/roost/pkg/log"
	"github.com/roost-io/roost/pkg/metrics"
	"github.com/roost-io/roost/pkg/storage"
	"github.com/roost-io/roost/pkg/types"
)

// Server exposes the controller over HTTP/JSON
type Server struct {
	controller *controller.Controller
	httpServer *http.Server
}

// NewServer creates an API server for the given controller
func NewServer(c *controller.Controller, listenAddr string) *Server {
	s := &Server{controller: c}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/nodes", s.handleRegisterNode)
	mux.HandleFunc("GET /v1/nodes", s.handleListNodes)
	mux.HandleFunc("GET /v1/nodes/status", s.handleStatus)
	mux.HandleFunc("DELETE /v1/nodes/{id}", s.handleRemoveNode)
	mux.HandleFunc("POST /v1/nodes/{id}/rotate-token", s.handleRotate)
	mux.HandleFunc("POST /v1/nodes/heartbeat", s.handleHeartbeat)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", metrics.Handler())

	s.httpServer = &http.Server{
		Addr:              listenAddr,
		Handler:           requestLogger(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the configured handler, for in-process tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving; blocks until the listener fails or Stop is
// called
func (s *Server) Start() error {
	logger := log.WithComponent("api")
	logger.Info().Str("addr", s.httpServer.Addr).Msg("Starting API server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Stop shuts the server down, draining in-flight requests
func (s *Server) Stop(ctx context.Context) error {
	logger := log.WithComponent("api")
	logger.Info().Msg("Stopping API server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleRegisterNode(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Address == "" {
		writeError(w, http.StatusBadRequest, "name and address are required")
		return
	}

	node, err := s.controller.RegisterNode(req.Name, req.Address, req.Resources)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// The only response that ever carries the token in clear: the
	// operator hands it to the agent out of band
	writeJSON(w, http.StatusCreated, types.RegisterNodeResponse{
		Node:  node.Summary(),
		Token: node.Token,
	})
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.controller.ListNodes()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	summaries := make([]types.NodeSummary, 0, len(nodes))
	for _, node := range nodes {
		summaries = append(summaries, node.Summary())
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.controller.EvaluateAll(r.Context(), time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (s *Server) handleRemoveNode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.controller.RemoveNode(id); err != nil {
		if errors.Is(err, storage.ErrNodeNotFound) {
			writeError(w, http.StatusNotFound, "node not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRotate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	err := s.controller.Rotate(r.Context(), id)
	switch {
	case err == nil:
		metrics.Rotations.WithLabelValues("success").Inc()
		writeJSON(w, http.StatusOK, map[string]string{"status": "rotated"})
	case errors.Is(err, storage.ErrNodeNotFound):
		writeError(w, http.StatusNotFound, "node not found")
	case errors.Is(err, controller.ErrRotationInFlight):
		metrics.Rotations.WithLabelValues("conflict").Inc()
		writeError(w, http.StatusConflict, "rotation already in progress")
	case errors.Is(err, controller.ErrRotationFailed):
		metrics.Rotations.WithLabelValues("failure").Inc()
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		metrics.Rotations.WithLabelValues("failure").Inc()
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		metrics.HeartbeatsReceived.WithLabelValues("unauthorized").Inc()
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	var report types.HeartbeatReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		metrics.HeartbeatsReceived.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	_, err := s.controller.ReceiveHeartbeat(r.Context(), token, &report)
	switch {
	case err == nil:
		metrics.HeartbeatsReceived.WithLabelValues("accepted").Inc()
		if latency := time.Since(report.SentAt); latency > 0 {
			metrics.HeartbeatLatency.Observe(latency.Seconds())
		}
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, controller.ErrUnauthorized):
		metrics.HeartbeatsReceived.WithLabelValues("unauthorized").Inc()
		writeError(w, http.StatusUnauthorized, "invalid token")
	case errors.Is(err, controller.ErrInvalidPayload):
		metrics.HeartbeatsReceived.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		metrics.HeartbeatsReceived.WithLabelValues("error").Inc()
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":         "ok",
		"cache_degraded": s.controller.Cache().Degraded(),
	}
	writeJSON(w, http.StatusOK, status)
}

// bearerToken extracts the credential from the Authorization header
func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, prefix))
	return token, token != ""
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.WithComponent("api")
		logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, types.ErrorResponse{Error: message})
}
