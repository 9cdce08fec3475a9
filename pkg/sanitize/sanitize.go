// Package sanitize strips sensitive material from inbound requests before
// anything crosses the process boundary. Sanitization is total: it never
// fails and is a pure function of its input.
package sanitize

import (
	"strings"

	"github.com/silli-ai/reasoner/pkg/models"
)

// Redacted replaces the value of every PII-bearing key. The key itself is
// kept so downstream logic still sees presence/absence.
const Redacted = "[REDACTED]"

// piiKeys are context keys whose values are always redacted.
var piiKeys = map[string]bool{
	"name":        true,
	"email":       true,
	"phone":       true,
	"address":     true,
	"child_name":  true,
	"family_name": true,
	"notes":       true,
	"description": true,
	"comments":    true,
	"details":     true,
}

// Sanitizer produces SanitizedRequests from raw ReasoningRequests.
type Sanitizer struct {
	maxStringLen int
}

// New creates a Sanitizer that caps string values at maxStringLen runes.
func New(maxStringLen int) *Sanitizer {
	if maxStringLen <= 0 {
		maxStringLen = 300
	}
	return &Sanitizer{maxStringLen: maxStringLen}
}

// Sanitize returns a sanitized copy of req. The input is not modified.
func (s *Sanitizer) Sanitize(req models.ReasoningRequest) models.SanitizedRequest {
	out := models.SanitizedRequest{
		Dyad:    req.Dyad,
		Metrics: copyNumbers(req.Metrics),
	}

	if req.Features != nil {
		out.Features = make(map[string]float64, len(req.Features))
		for k, v := range req.Features {
			if isRawMediaKey(k) {
				continue
			}
			out.Features[k] = v
		}
	}

	if req.Context != nil {
		out.Context = s.sanitizeMap(req.Context)
	}

	if req.History != nil {
		out.History = make([]map[string]any, 0, len(req.History))
		for _, rec := range req.History {
			out.History = append(out.History, s.sanitizeMap(rec))
		}
	}

	return out
}

func (s *Sanitizer) sanitizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if isRawMediaKey(k) {
			continue
		}
		if piiKeys[strings.ToLower(k)] {
			out[k] = Redacted
			continue
		}
		out[k] = s.sanitizeValue(v)
	}
	return out
}

func (s *Sanitizer) sanitizeValue(v any) any {
	switch val := v.(type) {
	case string:
		return s.truncate(val)
	case map[string]any:
		return s.sanitizeMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = s.sanitizeValue(item)
		}
		return out
	default:
		return v
	}
}

func (s *Sanitizer) truncate(v string) string {
	runes := []rune(v)
	if len(runes) <= s.maxStringLen {
		return v
	}
	return string(runes[:s.maxStringLen])
}

// isRawMediaKey matches keys that may carry raw audio/video/image payloads.
func isRawMediaKey(k string) bool {
	lower := strings.ToLower(k)
	return strings.HasPrefix(lower, "raw_") ||
		strings.HasSuffix(lower, "_data") ||
		lower == "base64" ||
		lower == "imagedata"
}

func copyNumbers(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
