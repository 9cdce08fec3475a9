package models

// CacheStatus describes how the gateway produced a response.
type CacheStatus string

const (
	CacheHit      CacheStatus = "HIT"
	CacheMiss     CacheStatus = "MISS"
	CacheDisabled CacheStatus = "DISABLED"
	CacheError    CacheStatus = "ERROR"
)

// ReasoningResponse is the outbound payload of the reasoning endpoint.
// Invariants: len(Tips) <= 2, each tip <= 25 words, len(Rationale) <= 140
// characters, every metric override clamped into its declared range.
type ReasoningResponse struct {
	Tips            []string           `json:"tips"`
	Rationale       string             `json:"rationale"`
	MetricOverrides map[string]float64 `json:"metric_overrides,omitempty"`
	ResponseTimeMs  int64              `json:"response_time_ms"`
	Dyad            Dyad               `json:"dyad"`
	CacheStatus     CacheStatus        `json:"cache_status"`
	ModelUsed       string             `json:"model_used,omitempty"`
}

// GatingDecision records the outcome of the per-request gate check.
// Effective is GlobalEnabled AND FamilyEnabled.
type GatingDecision struct {
	GlobalEnabled bool `json:"global_enabled"`
	FamilyEnabled bool `json:"family_enabled"`
	Effective     bool `json:"effective"`
}
