package validate

import (
	"strings"
	"testing"
)

func newValidator() *Validator {
	return New([]string{"medical diagnosis", "spank", "damn"})
}

func TestValidOutput(t *testing.T) {
	v := newValidator()
	res := v.ValidateAndRepair(`{"tips":["Lower your voice.","Offer a choice."],"rationale":"Likely frustration around change.","metric_overrides":{"escalation_index":0.7}}`)

	if res.Status != Repaired {
		t.Fatalf("expected Repaired, got %v (%s)", res.Status, res.Reason)
	}
	if len(res.Tips) != 2 {
		t.Errorf("expected 2 tips, got %d", len(res.Tips))
	}
	if res.Rationale != "Likely frustration around change." {
		t.Errorf("unexpected rationale: %s", res.Rationale)
	}
	if res.MetricOverrides["escalation_index"] != 0.7 {
		t.Errorf("unexpected override: %v", res.MetricOverrides)
	}
}

func TestMarkdownFences(t *testing.T) {
	v := newValidator()
	raw := "```json\n{\"tips\":[\"Dim the lights.\"],\"rationale\":\"Low arousal.\"}\n```"
	res := v.ValidateAndRepair(raw)
	if res.Status != Repaired {
		t.Fatalf("expected Repaired, got reason %s", res.Reason)
	}
	if len(res.Tips) != 1 || res.Tips[0] != "Dim the lights." {
		t.Errorf("unexpected tips: %v", res.Tips)
	}
}

func TestProseAroundJSON(t *testing.T) {
	v := newValidator()
	raw := `Here is my answer: {"tips":["Pause screens."],"rationale":"Wind-down helps."} Hope that helps!`
	res := v.ValidateAndRepair(raw)
	if res.Status != Repaired {
		t.Fatalf("expected best-effort extraction, got %s", res.Reason)
	}
}

func TestUnparseableRejected(t *testing.T) {
	v := newValidator()
	res := v.ValidateAndRepair("I think you should try being calmer with your child.")
	if res.Status != Rejected {
		t.Error("expected Rejected for non-JSON output")
	}
}

func TestExtraTipsDropped(t *testing.T) {
	v := newValidator()
	res := v.ValidateAndRepair(`{"tips":["one tip","two tip","three tip"],"rationale":"r"}`)
	if res.Status != Repaired {
		t.Fatal(res.Reason)
	}
	if len(res.Tips) != 2 {
		t.Errorf("expected tips truncated to 2, got %d", len(res.Tips))
	}
}

func TestLongTipTruncated(t *testing.T) {
	v := newValidator()
	long := strings.Repeat("word ", 40)
	res := v.ValidateAndRepair(`{"tips":["` + strings.TrimSpace(long) + `"],"rationale":"r"}`)
	if res.Status != Repaired {
		t.Fatal(res.Reason)
	}
	if got := len(strings.Fields(res.Tips[0])); got > MaxTipWords {
		t.Errorf("tip has %d words, limit is %d", got, MaxTipWords)
	}
	if !strings.HasSuffix(res.Tips[0], "...") {
		t.Error("expected ellipsis marking the cut")
	}
}

func TestLongRationaleTruncated(t *testing.T) {
	v := newValidator()
	long := strings.Repeat("x", 200)
	res := v.ValidateAndRepair(`{"tips":[],"rationale":"` + long + `"}`)
	if res.Status != Repaired {
		t.Fatal(res.Reason)
	}
	if len(res.Rationale) > MaxRationaleChars {
		t.Errorf("rationale is %d chars, limit is %d", len(res.Rationale), MaxRationaleChars)
	}
}

func TestForbiddenTermRejects(t *testing.T) {
	v := newValidator()

	res := v.ValidateAndRepair(`{"tips":["You could spank lightly."],"rationale":"r"}`)
	if res.Status != Rejected {
		t.Error("expected rejection for forbidden term in tip")
	}

	res = v.ValidateAndRepair(`{"tips":[],"rationale":"This needs a Medical Diagnosis."}`)
	if res.Status != Rejected {
		t.Error("expected rejection to be case-insensitive")
	}
}

func TestMetricClamping(t *testing.T) {
	v := newValidator()
	res := v.ValidateAndRepair(`{"tips":[],"rationale":"r","metric_overrides":{"escalation_index":1.7,"meal_mood":-5,"unknown_metric":3}}`)
	if res.Status != Repaired {
		t.Fatal(res.Reason)
	}
	if res.MetricOverrides["escalation_index"] != 1.0 {
		t.Errorf("escalation_index not clamped: %v", res.MetricOverrides["escalation_index"])
	}
	if res.MetricOverrides["meal_mood"] != 0.0 {
		t.Errorf("meal_mood not clamped: %v", res.MetricOverrides["meal_mood"])
	}
	if _, ok := res.MetricOverrides["unknown_metric"]; ok {
		t.Error("unknown metric key must be dropped")
	}
}

func TestBareStringTips(t *testing.T) {
	v := newValidator()
	res := v.ValidateAndRepair(`{"tips":"Keep the routine steady.","rationale":"r"}`)
	if res.Status != Repaired {
		t.Fatal(res.Reason)
	}
	if len(res.Tips) != 1 {
		t.Errorf("expected bare string accepted as one tip, got %v", res.Tips)
	}
}

func TestURLAndEmojiStripped(t *testing.T) {
	v := newValidator()
	res := v.ValidateAndRepair(`{"tips":["See https://example.com/advice for more ❤"],"rationale":"r"}`)
	if res.Status != Repaired {
		t.Fatal(res.Reason)
	}
	if strings.Contains(res.Tips[0], "http") {
		t.Errorf("URL survived cleaning: %s", res.Tips[0])
	}
	if strings.ContainsRune(res.Tips[0], '❤') {
		t.Errorf("emoji survived cleaning: %s", res.Tips[0])
	}
}

func TestEmptyTipDropped(t *testing.T) {
	v := newValidator()
	res := v.ValidateAndRepair(`{"tips":["   ","Keep calm."],"rationale":"r"}`)
	if res.Status != Repaired {
		t.Fatal(res.Reason)
	}
	if len(res.Tips) != 1 || res.Tips[0] != "Keep calm." {
		t.Errorf("unexpected tips: %v", res.Tips)
	}
}

func TestEmptyRationaleGetsDefault(t *testing.T) {
	v := newValidator()
	res := v.ValidateAndRepair(`{"tips":["Keep calm."],"rationale":""}`)
	if res.Status != Repaired {
		t.Fatal(res.Reason)
	}
	if res.Rationale == "" {
		t.Error("expected a neutral default rationale")
	}
}
