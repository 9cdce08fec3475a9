package models

import "time"

// AuditEntry records a single reasoning call. Request and response bodies
// are stored post-sanitization only.
type AuditEntry struct {
	RequestID    string    `json:"request_id"`
	FamilyHash   string    `json:"family_hash"`
	FamilyPrefix string    `json:"family_prefix"`
	Dyad         string    `json:"dyad"`
	Model        string    `json:"model"`
	CacheStatus  string    `json:"cache_status"`
	Status       string    `json:"status"`
	RequestBody  string    `json:"request_body,omitempty"`
	ResponseBody string    `json:"response_body,omitempty"`
	LatencyMs    int64     `json:"latency_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuditConfig controls the audit logging subsystem.
type AuditConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DBPath        string `yaml:"db_path"`
	RetentionDays int    `yaml:"retention_days"`
	MaxBodySize   int    `yaml:"max_body_size"` // bytes
}

// AuditQueryOpts specifies filters for querying audit entries.
type AuditQueryOpts struct {
	Dyad         string
	Model        string
	CacheStatus  string
	FamilyPrefix string
	RequestID    string
	Since        time.Time
	Limit        int
}

// AuditStat holds aggregate audit counts for a dyad/day combination.
type AuditStat struct {
	Dyad  string
	Day   string
	Count int
}
