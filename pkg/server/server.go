// Package server exposes the reasoning gateway over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/silli-ai/reasoner/pkg/config"
	"github.com/silli-ai/reasoner/pkg/gateway"
	"github.com/silli-ai/reasoner/pkg/models"
	"github.com/silli-ai/reasoner/pkg/resolver"
)

// Server is the reasoner HTTP front end.
type Server struct {
	cfg     *config.Config
	gw      *gateway.Gateway
	runtime gateway.ModelRuntime
	log     *zap.Logger
	mux     *http.ServeMux
}

// New creates a Server wired to a gateway and its model runtime.
func New(cfg *config.Config, gw *gateway.Gateway, runtime gateway.ModelRuntime, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		cfg:     cfg,
		gw:      gw,
		runtime: runtime,
		log:     log,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("/v1/reason", s.handleReason)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/models", s.handleModels)
	s.mux.HandleFunc("/cache/stats", s.handleCacheStats)
	s.mux.HandleFunc("/cache/clear", s.handleCacheClear)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the server with graceful shutdown support.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Listen,
		Handler: s,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("reasoner listening", zap.String("addr", s.cfg.Listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

// reasonRequest is the inbound wire shape: the reasoning payload plus the
// family identifier used only for the gate lookup.
type reasonRequest struct {
	FamilyID string             `json:"family_id"`
	Dyad     string             `json:"dyad"`
	Features map[string]float64 `json:"features"`
	Context  map[string]any     `json:"context"`
	Metrics  map[string]float64 `json:"metrics"`
	History  []map[string]any   `json:"history"`
}

func (s *Server) handleReason(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req reasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	r.Body.Close()

	resp, err := s.gw.Reason(r.Context(), req.FamilyID, models.ReasoningRequest{
		Dyad:     models.Dyad(req.Dyad),
		Features: req.Features,
		Context:  req.Context,
		Metrics:  req.Metrics,
		History:  req.History,
	})
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrInvalidDyad):
			writeJSONError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, resolver.ErrModelUnavailable):
			writeJSONError(w, http.StatusServiceUnavailable, err.Error())
		default:
			s.log.Error("reason failed", zap.Error(err))
			writeJSONError(w, http.StatusInternalServerError, "reasoning failed")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Reasoner-Cache", string(resp.CacheStatus))
	json.NewEncoder(w).Encode(resp)
}

// healthResponse is the observability snapshot: runtime reachability, the
// model policy in effect, and cache statistics.
type healthResponse struct {
	Status           string            `json:"status"`
	RuntimeReachable bool              `json:"runtime_reachable"`
	AvailableModels  []string          `json:"available_models"`
	ModelHint        string            `json:"model_hint"`
	AllowFallback    bool              `json:"allow_fallback"`
	Cache            models.CacheStats `json:"cache"`
	Timestamp        int64             `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := healthResponse{
		Status:        "healthy",
		ModelHint:     s.cfg.Model.Hint,
		AllowFallback: s.cfg.Model.AllowFallback,
		Cache:         s.gw.Cache().Stats(),
		Timestamp:     time.Now().Unix(),
	}

	available, err := s.runtime.ListModels(r.Context())
	if err != nil {
		resp.Status = "degraded"
	} else {
		resp.RuntimeReachable = true
		resp.AvailableModels = available
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	available, err := s.runtime.ListModels(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusBadGateway, "model runtime unreachable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"models": available,
		"hint":   s.cfg.Model.Hint,
	})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.gw.Cache().Stats())
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.gw.Cache().Clear()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "cleared"})
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":{"message":%q,"type":"reasoner_error","code":%d}}`, message, code)
}
