package models

// MetricRange declares the valid interval for a metric override.
type MetricRange struct {
	Min float64
	Max float64
}

// MetricRanges maps every metric the model may override to its declared
// valid range. Overrides for metrics not listed here are dropped.
var MetricRanges = map[string]MetricRange{
	"escalation_index": {Min: 0, Max: 1},
	"meal_mood":        {Min: 0, Max: 100},
}

// Clamp forces v into the range.
func (r MetricRange) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}
