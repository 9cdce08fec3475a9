package models

import "fmt"

// Dyad identifies a parenting scenario with its own prompt template and
// metric semantics.
type Dyad string

const (
	DyadNight   Dyad = "night"
	DyadTantrum Dyad = "tantrum"
	DyadMeal    Dyad = "meal"
)

// Dyads lists every valid dyad in declaration order.
var Dyads = []Dyad{DyadNight, DyadTantrum, DyadMeal}

// Valid reports whether d is one of the known dyads.
func (d Dyad) Valid() bool {
	switch d {
	case DyadNight, DyadTantrum, DyadMeal:
		return true
	}
	return false
}

// ParseDyad converts a wire string into a Dyad.
func ParseDyad(s string) (Dyad, error) {
	d := Dyad(s)
	if !d.Valid() {
		return "", fmt.Errorf("invalid dyad %q: must be night, tantrum, or meal", s)
	}
	return d, nil
}

// ReasoningRequest is the inbound payload of the reasoning endpoint.
// Features and metrics carry derived numeric signals only; context may
// contain PII until it passes through the sanitizer.
type ReasoningRequest struct {
	Dyad     Dyad               `json:"dyad"`
	Features map[string]float64 `json:"features"`
	Context  map[string]any     `json:"context"`
	Metrics  map[string]float64 `json:"metrics"`
	History  []map[string]any   `json:"history"`
}

// SanitizedRequest is a ReasoningRequest after PII redaction, raw-media key
// removal, and string capping. It lives only for the duration of a call and
// is never persisted.
type SanitizedRequest struct {
	Dyad     Dyad               `json:"dyad"`
	Features map[string]float64 `json:"features"`
	Context  map[string]any     `json:"context"`
	Metrics  map[string]float64 `json:"metrics"`
	History  []map[string]any   `json:"history"`
}

// ChatMessage is a single message sent to the model runtime.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
