package prompts

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/silli-ai/reasoner/pkg/models"
)

func TestTemplateForEveryDyad(t *testing.T) {
	for _, d := range models.Dyads {
		tmpl, ok := ForDyad(d)
		if !ok {
			t.Fatalf("missing template for dyad %s", d)
		}
		if tmpl.System == "" {
			t.Errorf("dyad %s: empty system prompt", d)
		}
		if len(tmpl.FewShot) == 0 {
			t.Errorf("dyad %s: no few-shot examples", d)
		}
		if tmpl.Constraints.TipsMax != 2 || tmpl.Constraints.TipWordsMax != 25 {
			t.Errorf("dyad %s: unexpected constraints %+v", d, tmpl.Constraints)
		}
	}
}

func TestUnknownDyad(t *testing.T) {
	if _, ok := ForDyad(models.Dyad("bath")); ok {
		t.Error("expected no template for unknown dyad")
	}
}

func TestBuild(t *testing.T) {
	b := NewBuilder()
	p, err := b.Build(models.SanitizedRequest{
		Dyad:     models.DyadTantrum,
		Features: map[string]float64{"vad_fraction": 0.45},
		Context:  map[string]any{"trigger": "transition"},
		Metrics:  map[string]float64{"escalation_index": 0.65},
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(p.Messages) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(p.Messages))
	}
	if p.Messages[0].Role != "system" || p.Messages[1].Role != "user" {
		t.Errorf("unexpected roles: %s, %s", p.Messages[0].Role, p.Messages[1].Role)
	}
	if !strings.Contains(p.Messages[0].Content, "Return ONLY JSON") {
		t.Error("system message missing the output contract")
	}

	var user map[string]any
	if err := json.Unmarshal([]byte(p.Messages[1].Content), &user); err != nil {
		t.Fatalf("user message is not valid JSON: %v", err)
	}
	if user["dyad"] != "tantrum" {
		t.Errorf("unexpected dyad in user payload: %v", user["dyad"])
	}
	if _, ok := user["few_shot"]; !ok {
		t.Error("user payload missing few-shot examples")
	}
}

func TestBuildTruncatesHistory(t *testing.T) {
	b := NewBuilder()
	history := make([]map[string]any, 6)
	for i := range history {
		history[i] = map[string]any{"n": float64(i)}
	}

	p, err := b.Build(models.SanitizedRequest{Dyad: models.DyadNight, History: history})
	if err != nil {
		t.Fatal(err)
	}

	var user struct {
		Recent []map[string]any `json:"recent"`
	}
	if err := json.Unmarshal([]byte(p.Messages[1].Content), &user); err != nil {
		t.Fatal(err)
	}
	if len(user.Recent) != 3 {
		t.Fatalf("expected 3 recent records, got %d", len(user.Recent))
	}
	// Most recent records are kept.
	if user.Recent[2]["n"] != float64(5) {
		t.Errorf("expected newest record last, got %v", user.Recent[2]["n"])
	}
}

func TestBuildUnknownDyadFails(t *testing.T) {
	b := NewBuilder()
	if _, err := b.Build(models.SanitizedRequest{Dyad: "nap"}); err == nil {
		t.Error("expected error for unknown dyad")
	}
}
