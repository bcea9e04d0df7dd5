// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package knowledge

import (
	"slices"
	"strings"
)

// Plan is an ordered sequence of ground action signatures.
type Plan struct {
	Steps []Predicate
}

// NewPlan builds a plan from steps in execution order.
func NewPlan(steps ...Predicate) *Plan {
	out := make([]Predicate, len(steps))
	copy(out, steps)
	return &Plan{Steps: out}
}

// Len returns the number of steps.
func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Steps)
}

// Empty reports whether the plan has no steps. A nil plan is empty.
func (p *Plan) Empty() bool {
	return p.Len() == 0
}

// Equal reports step-by-step equality.
func (p *Plan) Equal(other *Plan) bool {
	if p == nil || other == nil {
		return p == other
	}
	return slices.EqualFunc(p.Steps, other.Steps, Predicate.Equal)
}

// Strings renders each step.
func (p *Plan) Strings() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.Steps))
	for i, step := range p.Steps {
		out[i] = step.String()
	}
	return out
}

// String renders "[pickup s3, stack s3 s5]". An empty plan renders as
// "[]" and a nil plan, meaning none was found, as "<no plan>".
func (p *Plan) String() string {
	if p == nil {
		return "<no plan>"
	}
	return "[" + strings.Join(p.Strings(), ", ") + "]"
}
