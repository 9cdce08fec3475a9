// Package validate enforces the output contract on raw model text: tip
// count and length, rationale length, content safety, and metric ranges.
// Length overages are repaired by truncation; safety violations reject the
// whole response.
package validate

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/silli-ai/reasoner/pkg/models"
)

const (
	// MaxTips is the most tips a response may carry.
	MaxTips = 2
	// MaxTipWords bounds each tip's word count.
	MaxTipWords = 25
	// MaxRationaleChars bounds the rationale length.
	MaxRationaleChars = 140

	fallbackRationale = "Analysis completed"
)

// Status tags a validation outcome.
type Status int

const (
	// Repaired means the output passed, possibly after safe truncation.
	Repaired Status = iota
	// Rejected means the output cannot be safely repaired; the caller
	// must fall back to a scripted, tip-free response.
	Rejected
)

// Result is the outcome of validating one raw model output.
type Result struct {
	Status          Status
	Tips            []string
	Rationale       string
	MetricOverrides map[string]float64
	Reason          string // set when Rejected
}

// Validator checks raw model output against the contract. The forbidden
// list is configuration, not hard-coded behavior; matching is
// case-insensitive substring.
type Validator struct {
	forbidden []string
}

// New creates a Validator with the given forbidden-term list.
func New(forbidden []string) *Validator {
	lowered := make([]string, 0, len(forbidden))
	for _, term := range forbidden {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			lowered = append(lowered, term)
		}
	}
	return &Validator{forbidden: lowered}
}

// rawOutput is the JSON shape the prompt instructs the model to emit.
// Tips is raw because models sometimes return a bare string instead of an
// array.
type rawOutput struct {
	Tips            json.RawMessage    `json:"tips"`
	Rationale       string             `json:"rationale"`
	MetricOverrides map[string]float64 `json:"metric_overrides"`
}

// ValidateAndRepair parses and repairs raw model text. It never returns an
// error: every outcome is a tagged Result.
func (v *Validator) ValidateAndRepair(raw string) Result {
	obj, ok := extractObject(raw)
	if !ok {
		return Result{Status: Rejected, Reason: "output is not parseable JSON"}
	}

	var out rawOutput
	if err := json.Unmarshal(obj, &out); err != nil {
		return Result{Status: Rejected, Reason: "output shape mismatch: " + err.Error()}
	}

	tips := decodeTips(out.Tips)
	rationale := strings.TrimSpace(out.Rationale)

	// Safety first: a forbidden term anywhere rejects the whole output.
	// Unlike length, content safety is not truncatable.
	for _, text := range append(append([]string{}, tips...), rationale) {
		if term, hit := v.findForbidden(text); hit {
			return Result{Status: Rejected, Reason: "forbidden term: " + term}
		}
	}

	cleaned := make([]string, 0, MaxTips)
	for _, tip := range tips {
		tip = truncateWords(cleanText(tip), MaxTipWords)
		if tip == "" {
			continue
		}
		cleaned = append(cleaned, tip)
		if len(cleaned) == MaxTips {
			break
		}
	}

	rationale = truncateChars(cleanText(rationale), MaxRationaleChars)
	if rationale == "" {
		rationale = fallbackRationale
	}

	return Result{
		Status:          Repaired,
		Tips:            cleaned,
		Rationale:       rationale,
		MetricOverrides: clampOverrides(out.MetricOverrides),
	}
}

// extractObject finds the first well-formed JSON object in raw, tolerating
// markdown code fences and surrounding prose.
func extractObject(raw string) (json.RawMessage, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	s = strings.TrimSpace(s)

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return nil, false
	}

	dec := json.NewDecoder(strings.NewReader(s[start:]))
	var obj json.RawMessage
	if err := dec.Decode(&obj); err != nil {
		return nil, false
	}
	if !json.Valid(obj) || obj[0] != '{' {
		return nil, false
	}
	return obj, true
}

// decodeTips accepts either an array of strings or a single bare string.
func decodeTips(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		tips := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				tips = append(tips, s)
			}
		}
		return tips
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}
	}
	return nil
}

func (v *Validator) findForbidden(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, term := range v.forbidden {
		if strings.Contains(lower, term) {
			return term, true
		}
	}
	return "", false
}

var urlPattern = regexp.MustCompile(`(?i)https?://[^\s]+`)

// cleanText strips URLs and pictographic emoji, keeping plain-ASCII
// emoticons untouched.
func cleanText(s string) string {
	s = urlPattern.ReplaceAllString(s, "")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isEmoji(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1FAFF: // pictographs, transport, supplemental
		return true
	case r >= 0x1F1E6 && r <= 0x1F1FF: // regional indicators (flags)
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	}
	return false
}

// truncateWords keeps the first max words, marking the cut with an
// ellipsis attached to the final word.
func truncateWords(s string, max int) string {
	words := strings.Fields(s)
	if len(words) <= max {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:max], " ") + "..."
}

// truncateChars keeps at most max characters, ellipsis included.
func truncateChars(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

// clampOverrides forces every known metric into its declared range and
// drops unknown metric keys.
func clampOverrides(overrides map[string]float64) map[string]float64 {
	if len(overrides) == 0 {
		return nil
	}
	clamped := make(map[string]float64)
	for key, val := range overrides {
		r, ok := models.MetricRanges[key]
		if !ok {
			continue
		}
		clamped[key] = r.Clamp(val)
	}
	if len(clamped) == 0 {
		return nil
	}
	return clamped
}
