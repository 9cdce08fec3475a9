// Package prompts renders per-dyad instruction payloads for the model
// runtime. Templates form a closed table keyed by dyad; an unknown dyad is
// a contract violation caught at request validation, before this package.
package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/silli-ai/reasoner/pkg/models"
)

// Constraints declares the output contract embedded in every prompt.
type Constraints struct {
	TipWordsMax       int      `json:"tip_words_max"`
	TipsMax           int      `json:"tips_max"`
	RationaleMaxChars int      `json:"rationale_max_chars"`
	Tone              string   `json:"tone"`
	Forbidden         []string `json:"forbidden"`
}

// Example is a single few-shot demonstration.
type Example struct {
	Features map[string]float64 `json:"features"`
	Context  map[string]any     `json:"context"`
	Out      ExampleOut         `json:"out"`
}

// ExampleOut is the expected model output in a few-shot example.
type ExampleOut struct {
	Tips      []string `json:"tips"`
	Rationale string   `json:"rationale"`
}

// Template is a dyad-specific prompt definition.
type Template struct {
	System      string
	Constraints Constraints
	FewShot     []Example
}

// Payload is the rendered prompt handed to the model client.
type Payload struct {
	Messages []models.ChatMessage
}

const baseSystem = "You are Silli's reasoning engine. Be calm, brief, practical. " +
	"No medical or diagnostic advice. No judgments. Parent-friendly wording."

var baseConstraints = Constraints{
	TipWordsMax:       25,
	TipsMax:           2,
	RationaleMaxChars: 140,
	Tone:              "calm, non-anthropomorphic",
	Forbidden:         []string{"medical diagnosis", "threats", "shaming"},
}

var templates = map[models.Dyad]Template{
	models.DyadTantrum: {
		System:      baseSystem,
		Constraints: baseConstraints,
		FewShot: []Example{{
			Features: map[string]float64{"vad_fraction": 0.7, "flux_norm": 0.6},
			Context:  map[string]any{"trigger": "transition"},
			Out: ExampleOut{
				Tips: []string{
					"Lower your voice and narrate one feeling.",
					"Offer a small choice (shirt A/B).",
				},
				Rationale: "Likely frustration around change.",
			},
		}},
	},
	models.DyadMeal: {
		System:      baseSystem,
		Constraints: baseConstraints,
		FewShot: []Example{{
			Features: map[string]float64{},
			Context:  map[string]any{"eaten_pct": 30, "stress_level": 3},
			Out: ExampleOut{
				Tips: []string{
					"Shrink portions; praise any tasting.",
					"Keep table uncluttered for one meal.",
				},
				Rationale: "Refusal with visual overload.",
			},
		}},
	},
	models.DyadNight: {
		System:      baseSystem,
		Constraints: baseConstraints,
		FewShot: []Example{{
			Features: map[string]float64{"vad_fraction": 0.2},
			Context:  map[string]any{},
			Out: ExampleOut{
				Tips: []string{
					"Dim lights and pause screens 20 min.",
					"Lower room sound: close door slightly.",
				},
				Rationale: "Low arousal; environmental tweak helps.",
			},
		}},
	},
}

// ForDyad returns the template for a dyad.
func ForDyad(d models.Dyad) (Template, bool) {
	t, ok := templates[d]
	return t, ok
}

// historyWindow is how many recent records go into the model payload.
const historyWindow = 3

// Builder renders prompt payloads from sanitized requests.
type Builder struct{}

// NewBuilder creates a Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build renders the system and user messages for a sanitized request.
func (b *Builder) Build(req models.SanitizedRequest) (Payload, error) {
	tmpl, ok := ForDyad(req.Dyad)
	if !ok {
		return Payload{}, fmt.Errorf("no prompt template for dyad %q", req.Dyad)
	}

	system := renderSystem(tmpl)

	recent := req.History
	if len(recent) > historyWindow {
		recent = recent[len(recent)-historyWindow:]
	}

	user, err := json.MarshalIndent(map[string]any{
		"dyad":        req.Dyad,
		"constraints": tmpl.Constraints,
		"few_shot":    tmpl.FewShot,
		"features":    req.Features,
		"context":     req.Context,
		"metrics":     req.Metrics,
		"recent":      recent,
	}, "", "  ")
	if err != nil {
		return Payload{}, fmt.Errorf("render user message: %w", err)
	}

	return Payload{
		Messages: []models.ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: string(user)},
		},
	}, nil
}

func renderSystem(tmpl Template) string {
	var b strings.Builder
	b.WriteString(tmpl.System)
	b.WriteString("\n\nReturn ONLY JSON with keys: tips (array of <=")
	fmt.Fprintf(&b, "%d strings), rationale (string <=%d chars), metric_overrides (object, optional). No prose, no markdown.",
		tmpl.Constraints.TipsMax, tmpl.Constraints.RationaleMaxChars)
	fmt.Fprintf(&b, "\n\nConstraints:\n- Tips: <=%d items, each <=%d words\n- Rationale: <=%d characters\n- Tone: %s\n- Forbidden: %s",
		tmpl.Constraints.TipsMax, tmpl.Constraints.TipWordsMax,
		tmpl.Constraints.RationaleMaxChars, tmpl.Constraints.Tone,
		strings.Join(tmpl.Constraints.Forbidden, ", "))
	return b.String()
}
