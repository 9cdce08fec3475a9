package config

import (
	"fmt"
	"os"
	"time"

	"github.com/silli-ai/reasoner/pkg/models"
	"gopkg.in/yaml.v3"
)

// Config holds all reasoner configuration.
type Config struct {
	Listen      string            `yaml:"listen"`
	DBPath      string            `yaml:"db_path"`
	Ollama      OllamaConfig      `yaml:"ollama"`
	Model       ModelConfig       `yaml:"model"`
	Cache       CacheConfig       `yaml:"cache"`
	Gating      GatingConfig      `yaml:"gating"`
	Sanitize    SanitizeConfig    `yaml:"sanitize"`
	Fingerprint FingerprintConfig `yaml:"fingerprint"`
	Safety      SafetyConfig      `yaml:"safety"`
	Audit       models.AuditConfig `yaml:"audit"`
}

// OllamaConfig points the gateway at the model runtime.
type OllamaConfig struct {
	Host        string        `yaml:"host"`
	Timeout     time.Duration `yaml:"timeout"`
	Temperature float64       `yaml:"temperature"`
}

// ModelConfig controls model selection and fallback.
type ModelConfig struct {
	Hint          string   `yaml:"hint"`
	AllowFallback bool     `yaml:"allow_fallback"`
	FallbackOrder []string `yaml:"fallback_order"`
}

// CacheConfig controls the response cache. Capacity or TTL of zero
// disables caching entirely.
type CacheConfig struct {
	Capacity int           `yaml:"capacity"`
	TTL      time.Duration `yaml:"ttl"`
	Coalesce bool          `yaml:"coalesce"`
}

// GatingConfig controls whether the model may be consulted at all.
// DefaultOn applies to families with no stored profile.
type GatingConfig struct {
	Enabled   bool `yaml:"enabled"`
	DefaultOn bool `yaml:"default_on"`
}

// SanitizeConfig controls inbound context sanitization.
type SanitizeConfig struct {
	MaxStringLen int `yaml:"max_string_len"`
}

// FingerprintConfig controls cache key derivation. Changing Precision
// re-keys the entire cache; existing entries simply age out.
type FingerprintConfig struct {
	Precision int `yaml:"precision"`
}

// SafetyConfig holds the forbidden-term blocklist applied to model output.
type SafetyConfig struct {
	ForbiddenTerms []string `yaml:"forbidden_terms"`
}

// DefaultForbiddenTerms is the built-in output blocklist: content the
// validator must reject outright rather than repair.
var DefaultForbiddenTerms = []string{
	"medical diagnosis", "diagnose", "medication", "prescription",
	"punish", "spank", "threat", "shame", "stupid", "lazy",
	"fuck", "shit", "damn", "bitch", "bastard", "asshole",
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen: ":5001",
		DBPath: "reasoner.db",
		Ollama: OllamaConfig{
			Host:        "http://localhost:11434",
			Timeout:     8 * time.Second,
			Temperature: 0.2,
		},
		Model: ModelConfig{
			Hint:          "llama3.2:3b",
			AllowFallback: true,
			FallbackOrder: []string{"llama3.2:3b", "llama3.2:1b", "gpt-oss:20b"},
		},
		Cache: CacheConfig{
			Capacity: 256,
			TTL:      300 * time.Second,
		},
		Gating: GatingConfig{
			Enabled:   true,
			DefaultOn: false,
		},
		Sanitize: SanitizeConfig{
			MaxStringLen: 300,
		},
		Fingerprint: FingerprintConfig{
			Precision: 4,
		},
		Safety: SafetyConfig{
			ForbiddenTerms: DefaultForbiddenTerms,
		},
		Audit: models.AuditConfig{
			Enabled:       false,
			DBPath:        "reasoner_audit.db",
			RetentionDays: 30,
			MaxBodySize:   8192,
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}
