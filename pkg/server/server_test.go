package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/silli-ai/reasoner/pkg/config"
	"github.com/silli-ai/reasoner/pkg/gateway"
	"github.com/silli-ai/reasoner/pkg/gating"
	"github.com/silli-ai/reasoner/pkg/models"
)

type fakeRuntime struct {
	available []string
	reply     string
	listErr   error
}

func (f *fakeRuntime) ListModels(ctx context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.available, nil
}

func (f *fakeRuntime) Chat(ctx context.Context, model string, msgs []models.ChatMessage, temperature float64) (string, error) {
	return f.reply, nil
}

func setupServer(t *testing.T, rt gateway.ModelRuntime, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Audit.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}
	gw := gateway.New(cfg, rt, gating.New(cfg.Gating.Enabled, nil), nil, nil)
	return New(cfg, gw, rt, nil)
}

const modelReply = `{"tips":["Dim the lights and sit close by."],"rationale":"Lower stimulation helps settle."}`

func TestReasonEndpoint(t *testing.T) {
	rt := &fakeRuntime{available: []string{"llama3.2:3b"}, reply: modelReply}
	srv := setupServer(t, rt, nil)

	body := `{"family_id":"fam-1","dyad":"tantrum","features":{"vad_fraction":0.45},"metrics":{"escalation_index":0.65}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/reason", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("X-Reasoner-Cache"); got != "MISS" {
		t.Errorf("expected MISS header, got %q", got)
	}

	var resp models.ReasoningResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Tips) != 1 {
		t.Errorf("expected 1 tip, got %d", len(resp.Tips))
	}
	if resp.ModelUsed != "llama3.2:3b" {
		t.Errorf("unexpected model: %s", resp.ModelUsed)
	}

	// Second identical request is served from cache.
	req2 := httptest.NewRequest(http.MethodPost, "/v1/reason", strings.NewReader(body))
	w2 := httptest.NewRecorder()
	srv.ServeHTTP(w2, req2)

	if got := w2.Header().Get("X-Reasoner-Cache"); got != "HIT" {
		t.Errorf("expected HIT header, got %q", got)
	}
}

func TestReasonInvalidDyad(t *testing.T) {
	rt := &fakeRuntime{available: []string{"llama3.2:3b"}, reply: modelReply}
	srv := setupServer(t, rt, nil)

	body := `{"family_id":"fam-1","dyad":"bedtime"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/reason", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestReasonModelUnavailable(t *testing.T) {
	rt := &fakeRuntime{available: []string{"llama3.2:3b"}, reply: modelReply}
	srv := setupServer(t, rt, func(c *config.Config) {
		c.Model.Hint = "gpt-oss:20b"
		c.Model.AllowFallback = false
	})

	body := `{"family_id":"fam-1","dyad":"night"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/reason", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d: %s", w.Code, w.Body.String())
	}
}

func TestReasonMethodNotAllowed(t *testing.T) {
	srv := setupServer(t, &fakeRuntime{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/reason", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	rt := &fakeRuntime{available: []string{"llama3.2:3b", "llama3.2:1b"}}
	srv := setupServer(t, rt, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp healthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "healthy" || !resp.RuntimeReachable {
		t.Errorf("unexpected health: %+v", resp)
	}
	if len(resp.AvailableModels) != 2 {
		t.Errorf("expected 2 models, got %v", resp.AvailableModels)
	}
	if resp.ModelHint != "llama3.2:3b" {
		t.Errorf("unexpected hint: %s", resp.ModelHint)
	}
}

func TestHealthDegraded(t *testing.T) {
	rt := &fakeRuntime{listErr: errors.New("connection refused")}
	srv := setupServer(t, rt, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	var resp healthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "degraded" || resp.RuntimeReachable {
		t.Errorf("expected degraded, got %+v", resp)
	}
}

func TestCacheStatsAndClear(t *testing.T) {
	rt := &fakeRuntime{available: []string{"llama3.2:3b"}, reply: modelReply}
	srv := setupServer(t, rt, nil)

	body := `{"family_id":"fam-1","dyad":"meal"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/reason", strings.NewReader(body))
	srv.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/cache/stats", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	var stats models.CacheStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Size != 1 {
		t.Errorf("expected 1 cached entry, got %d", stats.Size)
	}

	req = httptest.NewRequest(http.MethodPost, "/cache/clear", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("clear failed: %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/cache/stats", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	_ = json.Unmarshal(w.Body.Bytes(), &stats)
	if stats.Size != 0 {
		t.Errorf("expected empty cache after clear, got %d", stats.Size)
	}
}
