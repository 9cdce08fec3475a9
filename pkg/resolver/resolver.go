// Package resolver decides which model identifier serves a request given
// the configured hint, the runtime's live availability list, and the
// fallback policy.
package resolver

import (
	"errors"
	"fmt"
)

// ErrModelUnavailable is returned when the requested model is absent and
// fallback is disabled, or when no fallback candidate is available either.
// Callers must surface it rather than silently substituting a model.
var ErrModelUnavailable = errors.New("model unavailable")

// Resolver resolves model hints against live availability.
type Resolver struct {
	fallbackOrder []string
}

// New creates a Resolver with the declared fallback priority order.
func New(fallbackOrder []string) *Resolver {
	return &Resolver{fallbackOrder: fallbackOrder}
}

// Resolve returns the model to call. The hint wins when available. With
// fallback allowed, the first priority-order model present in available is
// used instead. Availability must be fetched live per call; it reflects
// runtime state that changes independently of this process.
func (r *Resolver) Resolve(hint string, available []string, allowFallback bool) (string, error) {
	avail := make(map[string]bool, len(available))
	for _, m := range available {
		avail[m] = true
	}

	if hint != "" && avail[hint] {
		return hint, nil
	}

	if !allowFallback {
		return "", fmt.Errorf("model %q not available and fallback disabled: %w", hint, ErrModelUnavailable)
	}

	for _, m := range r.fallbackOrder {
		if avail[m] {
			return m, nil
		}
	}

	return "", fmt.Errorf("no fallback model available for %q: %w", hint, ErrModelUnavailable)
}
