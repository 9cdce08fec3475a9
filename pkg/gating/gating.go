// Package gating decides whether the model may be consulted for a request.
// The decision is a pure AND of a process-wide switch and a per-family
// cloud-reasoning flag read from the profile store.
package gating

import (
	"context"
	"fmt"

	"github.com/silli-ai/reasoner/pkg/models"
)

// Policy combines the global enable flag with per-family flags.
type Policy struct {
	globalEnabled bool
	families      FamilyStore
}

// New creates a Policy. families may be nil, in which case every family is
// treated as enabled and only the global switch applies.
func New(globalEnabled bool, families FamilyStore) *Policy {
	return &Policy{globalEnabled: globalEnabled, families: families}
}

// Evaluate computes the gating decision for one request. It has no side
// effects; the decision is not persisted beyond the call.
func (p *Policy) Evaluate(ctx context.Context, familyID string) (models.GatingDecision, error) {
	d := models.GatingDecision{GlobalEnabled: p.globalEnabled}

	if !p.globalEnabled {
		// Short-circuit: no store read when globally off.
		return d, nil
	}

	if p.families == nil {
		d.FamilyEnabled = true
		d.Effective = true
		return d, nil
	}

	enabled, err := p.families.CloudReasoning(ctx, familyID)
	if err != nil {
		return d, fmt.Errorf("family gate lookup: %w", err)
	}
	d.FamilyEnabled = enabled
	d.Effective = d.GlobalEnabled && d.FamilyEnabled
	return d, nil
}

// Decide is the pure-function core: effective = global AND family.
func Decide(globalEnabled, familyEnabled bool) models.GatingDecision {
	return models.GatingDecision{
		GlobalEnabled: globalEnabled,
		FamilyEnabled: familyEnabled,
		Effective:     globalEnabled && familyEnabled,
	}
}
