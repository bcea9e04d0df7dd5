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
)

// Constraint is a static domain invariant: whenever Antecedent holds, every
// consequent must hold too.
//
// Description:
//
//	Constraints typically encode mutual exclusion, for example
//	"holding X -> not holding Y" says at most one object is held. They
//	never add effects to actions. Planners use their ground instances to
//	reject inconsistent fact sets and, in the plan graph, to mark
//	propositions as mutually exclusive.
//
// Thread Safety: Immutable once built. Safe for concurrent use.
type Constraint struct {
	// Antecedent is the triggering predicate.
	Antecedent Predicate

	// Consequents must hold whenever Antecedent does.
	Consequents []Fact
}

// NewConstraint builds a constraint with a normalized consequent set.
func NewConstraint(antecedent Predicate, consequents []Fact) Constraint {
	return Constraint{
		Antecedent:  NewPredicate(antecedent.Name, antecedent.Arguments...),
		Consequents: normalizeFacts(consequents),
	}
}

// WellFormed reports whether every predicate is well-formed and no
// consequent restates the antecedent with either sign.
func (c Constraint) WellFormed() bool {
	if !c.Antecedent.WellFormed() {
		return false
	}
	for _, f := range c.Consequents {
		if !f.WellFormed() || f.Predicate.Equal(c.Antecedent) {
			return false
		}
	}
	return true
}

// Variables returns the distinct variables, sorted.
func (c Constraint) Variables() []string {
	vars := c.Antecedent.Variables()
	for _, f := range c.Consequents {
		vars = append(vars, f.Variables()...)
	}
	slices.Sort(vars)
	return slices.Compact(vars)
}

// ApplyUnification substitutes bound variables.
func (c Constraint) ApplyUnification(u Unification) Constraint {
	consequents := make([]Fact, len(c.Consequents))
	for i, f := range c.Consequents {
		consequents[i] = f.ApplyUnification(u)
	}
	return NewConstraint(c.Antecedent.ApplyUnification(u), consequents)
}

// Instantiate grounds the constraint and drops instances that are not
// well-formed. The result is sorted by String.
func (c Constraint) Instantiate(problem Problem) []Constraint {
	combos := problem.InstantiateVariables(c.Variables())
	out := make([]Constraint, 0, len(combos))
	seen := make(map[string]struct{}, len(combos))
	for _, u := range combos {
		ground := c.ApplyUnification(u)
		if !ground.WellFormed() {
			continue
		}
		key := ground.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ground)
	}
	slices.SortFunc(out, func(x, y Constraint) int {
		return compareStrings(x.String(), y.String())
	})
	return out
}

// ViolatedBy reports whether a fact set breaks this ground constraint: the
// set holds the antecedent and the complement of some consequent.
//
// contains answers membership queries for the fact set.
func (c Constraint) ViolatedBy(contains func(Fact) bool) bool {
	if !contains(Fact{Predicate: c.Antecedent, Positive: true}) {
		return false
	}
	for _, f := range c.Consequents {
		if contains(f.Flip()) {
			return true
		}
	}
	return false
}

// Excludes returns, for each consequent, the fact that may not coexist
// with the antecedent.
func (c Constraint) Excludes() []Fact {
	return flipAll(c.Consequents)
}

// String renders the constraint as "antecedent -> consequents".
func (c Constraint) String() string {
	if len(c.Consequents) == 0 {
		return c.Antecedent.String() + " ->"
	}
	return c.Antecedent.String() + " -> " + joinFacts(c.Consequents)
}
