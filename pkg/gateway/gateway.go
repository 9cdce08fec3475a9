// Package gateway orchestrates a single reasoning request: gate, sanitize,
// fingerprint, cache, prompt, resolve, call, validate, store. Every failure
// path ends in a well-formed response or a typed error, never a panic.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/silli-ai/reasoner/pkg/audit"
	"github.com/silli-ai/reasoner/pkg/cache"
	"github.com/silli-ai/reasoner/pkg/config"
	"github.com/silli-ai/reasoner/pkg/fingerprint"
	"github.com/silli-ai/reasoner/pkg/gating"
	"github.com/silli-ai/reasoner/pkg/models"
	"github.com/silli-ai/reasoner/pkg/prompts"
	"github.com/silli-ai/reasoner/pkg/resolver"
	"github.com/silli-ai/reasoner/pkg/sanitize"
	"github.com/silli-ai/reasoner/pkg/validate"
)

// ErrInvalidDyad is returned when a request names a dyad the gateway has no
// template for.
var ErrInvalidDyad = errors.New("invalid dyad")

// ModelRuntime is the outbound surface the gateway needs from a model host.
// *ollama.Client satisfies it; tests substitute a stub.
type ModelRuntime interface {
	Chat(ctx context.Context, model string, msgs []models.ChatMessage, temperature float64) (string, error)
	ListModels(ctx context.Context) ([]string, error)
}

// Gateway wires every reasoning component behind one Reason call.
type Gateway struct {
	cfg       *config.Config
	sanitizer *sanitize.Sanitizer
	printer   *fingerprint.Fingerprinter
	cache     *cache.Cache
	gate      *gating.Policy
	builder   *prompts.Builder
	resolver  *resolver.Resolver
	runtime   ModelRuntime
	validator *validate.Validator
	auditor   *audit.Logger
	log       *zap.Logger
	flight    singleflight.Group
}

// New creates a Gateway. auditor may be nil when audit logging is disabled.
func New(cfg *config.Config, runtime ModelRuntime, gate *gating.Policy, auditor *audit.Logger, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{
		cfg:       cfg,
		sanitizer: sanitize.New(cfg.Sanitize.MaxStringLen),
		printer:   fingerprint.New(cfg.Fingerprint.Precision),
		cache:     cache.New(cfg.Cache.Capacity, cfg.Cache.TTL),
		gate:      gate,
		builder:   prompts.NewBuilder(),
		resolver:  resolver.New(cfg.Model.FallbackOrder),
		runtime:   runtime,
		validator: validate.New(cfg.Safety.ForbiddenTerms),
		auditor:   auditor,
		log:       log,
	}
}

// Cache exposes the response cache for the admin surface.
func (g *Gateway) Cache() *cache.Cache {
	return g.cache
}

// Reason processes one reasoning request end to end. It returns an error
// only for invalid input or strict-mode model unavailability; transport
// failures and unrepairable model output degrade into a scripted fallback
// response instead.
func (g *Gateway) Reason(ctx context.Context, familyID string, req models.ReasoningRequest) (models.ReasoningResponse, error) {
	start := time.Now()
	requestID := uuid.NewString()

	if !req.Dyad.Valid() {
		return models.ReasoningResponse{}, fmt.Errorf("%w: %q", ErrInvalidDyad, req.Dyad)
	}

	// Gate before any request data is touched: a gated-out family's payload
	// never reaches the sanitizer, the cache, or the model.
	decision, err := g.gate.Evaluate(ctx, familyID)
	if err != nil {
		return models.ReasoningResponse{}, fmt.Errorf("gating: %w", err)
	}
	if !decision.Effective {
		g.log.Debug("request gated out",
			zap.String("dyad", string(req.Dyad)),
			zap.Bool("global", decision.GlobalEnabled),
			zap.Bool("family", decision.FamilyEnabled))
		resp := models.ReasoningResponse{
			Tips:           []string{},
			Rationale:      "Cloud reasoning is turned off for this family.",
			Dyad:           req.Dyad,
			CacheStatus:    models.CacheDisabled,
			ResponseTimeMs: time.Since(start).Milliseconds(),
		}
		// No request body here: the payload never passed the sanitizer.
		g.audit(requestID, familyID, req.Dyad, "", resp, "gated_out", start)
		return resp, nil
	}

	sanitized := g.sanitizer.Sanitize(req)
	fp := g.printer.Fingerprint(sanitized)
	sanitizedBody, _ := json.Marshal(sanitized)

	if g.cache.Enabled() {
		if cached, ok := g.cache.Get(fp); ok {
			cached.CacheStatus = models.CacheHit
			cached.ResponseTimeMs = time.Since(start).Milliseconds()
			g.log.Debug("cache hit", zap.String("dyad", string(req.Dyad)), zap.String("fingerprint", fp[:12]))
			g.audit(requestID, familyID, req.Dyad, string(sanitizedBody), cached, "ok", start)
			return cached, nil
		}
	}

	var resp models.ReasoningResponse
	if g.cfg.Cache.Coalesce && g.cache.Enabled() {
		// Collapse concurrent identical misses into one model call. The
		// shared result is stamped per caller below.
		v, err, _ := g.flight.Do(fp, func() (any, error) {
			return g.compute(ctx, fp, sanitized)
		})
		if err != nil {
			return models.ReasoningResponse{}, err
		}
		resp = v.(models.ReasoningResponse)
	} else {
		resp, err = g.compute(ctx, fp, sanitized)
		if err != nil {
			return models.ReasoningResponse{}, err
		}
	}

	resp.ResponseTimeMs = time.Since(start).Milliseconds()
	status := "ok"
	if resp.CacheStatus == models.CacheError {
		status = "fallback"
	}
	g.audit(requestID, familyID, req.Dyad, string(sanitizedBody), resp, status, start)
	return resp, nil
}

// compute runs the miss path: prompt, resolve, call, validate, store.
func (g *Gateway) compute(ctx context.Context, fp string, req models.SanitizedRequest) (models.ReasoningResponse, error) {
	payload, err := g.builder.Build(req)
	if err != nil {
		return models.ReasoningResponse{}, fmt.Errorf("%w: %q", ErrInvalidDyad, req.Dyad)
	}

	available, err := g.runtime.ListModels(ctx)
	if err != nil {
		g.log.Warn("model runtime unreachable", zap.Error(err))
		return g.fallback(req.Dyad, ""), nil
	}

	model, err := g.resolver.Resolve(g.cfg.Model.Hint, available, g.cfg.Model.AllowFallback)
	if err != nil {
		// Strict mode: never mask unavailability behind a substitute.
		return models.ReasoningResponse{}, err
	}

	raw, err := g.runtime.Chat(ctx, model, payload.Messages, g.cfg.Ollama.Temperature)
	if err != nil {
		g.log.Warn("model call failed", zap.String("model", model), zap.Error(err))
		return g.fallback(req.Dyad, model), nil
	}

	result := g.validator.ValidateAndRepair(raw)
	if result.Status == validate.Rejected {
		g.log.Warn("model output rejected",
			zap.String("model", model),
			zap.String("reason", result.Reason))
		return g.fallback(req.Dyad, model), nil
	}

	resp := models.ReasoningResponse{
		Tips:            result.Tips,
		Rationale:       result.Rationale,
		MetricOverrides: result.MetricOverrides,
		Dyad:            req.Dyad,
		ModelUsed:       model,
		CacheStatus:     models.CacheMiss,
	}
	if !g.cache.Enabled() {
		resp.CacheStatus = models.CacheDisabled
		return resp, nil
	}

	// Cached copies carry no timing; hits re-stamp their own.
	g.cache.Put(fp, resp)
	return resp, nil
}

// fallback is the scripted tip-free response used when the runtime is
// unreachable or its output cannot be repaired. It is never cached.
func (g *Gateway) fallback(dyad models.Dyad, model string) models.ReasoningResponse {
	return models.ReasoningResponse{
		Tips:        []string{},
		Rationale:   "Analysis completed",
		Dyad:        dyad,
		ModelUsed:   model,
		CacheStatus: models.CacheError,
	}
}

// audit writes one entry asynchronously. Request IDs come from the gateway,
// not the caller, so every entry is traceable even without client headers.
// reqBody must already be sanitized (or empty).
func (g *Gateway) audit(requestID, familyID string, dyad models.Dyad, reqBody string, resp models.ReasoningResponse, status string, start time.Time) {
	if g.auditor == nil {
		return
	}

	hash, prefix := audit.HashFamilyID(familyID)
	respBody, _ := json.Marshal(resp)
	entry := models.AuditEntry{
		RequestID:    requestID,
		FamilyHash:   hash,
		FamilyPrefix: prefix,
		Dyad:         string(dyad),
		Model:        resp.ModelUsed,
		CacheStatus:  string(resp.CacheStatus),
		Status:       status,
		RequestBody:  reqBody,
		ResponseBody: string(respBody),
		LatencyMs:    time.Since(start).Milliseconds(),
		CreatedAt:    time.Now().UTC(),
	}
	go func() {
		if err := g.auditor.Log(context.Background(), entry); err != nil {
			g.log.Warn("audit log failed", zap.Error(err))
		}
	}()
}
