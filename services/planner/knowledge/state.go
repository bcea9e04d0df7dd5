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
	"maps"
	"slices"
)

// State is a set of facts describing the world at one point in time.
//
// Description:
//
//	States are immutable. Apply and With return new states and leave the
//	receiver untouched, which lets backtracking search keep the parent
//	state of every branch without copying defensively.
//
//	The zero value is the empty state.
//
// Thread Safety: Immutable once built. Safe for concurrent use.
type State struct {
	facts map[string]Fact
}

// NewState builds a state from facts. Duplicates collapse.
func NewState(facts ...Fact) State {
	m := make(map[string]Fact, len(facts))
	for _, f := range facts {
		m[f.String()] = f
	}
	return State{facts: m}
}

// Len returns the number of facts.
func (s State) Len() int {
	return len(s.facts)
}

// Facts returns the facts sorted by their text.
func (s State) Facts() []Fact {
	keys := slices.Sorted(maps.Keys(s.facts))
	out := make([]Fact, len(keys))
	for i, k := range keys {
		out[i] = s.facts[k]
	}
	return out
}

// Contains reports exact membership.
func (s State) Contains(f Fact) bool {
	_, ok := s.facts[f.String()]
	return ok
}

// ContainsAll reports whether every fact is a member.
func (s State) ContainsAll(facts []Fact) bool {
	for _, f := range facts {
		if !s.Contains(f) {
			return false
		}
	}
	return true
}

// Satisfies reports whether some fact in the state unifies with literal.
//
// The literal may contain variables; it is the side whose variables are
// bound. Signs must match, so a negative literal is only satisfied by a
// negative fact stored in the state.
func (s State) Satisfies(literal Fact) bool {
	if s.Contains(literal) {
		return true
	}
	for _, f := range s.facts {
		if literal.Unify(f).Valid() {
			return true
		}
	}
	return false
}

// SatisfiesAction reports whether a can be applied: every positive
// precondition is present and no negative precondition's positive form is.
func (s State) SatisfiesAction(a Action) bool {
	return s.Unsatisfied(a) == 0
}

// Unsatisfied counts the preconditions of a that do not hold.
func (s State) Unsatisfied(a Action) int {
	missing := 0
	for _, f := range a.Preconditions {
		if f.Positive != s.Contains(Fact{Predicate: f.Predicate, Positive: true}) {
			missing++
		}
	}
	return missing
}

// Apply removes a's negative effects, then adds its positive effects.
// Preconditions are not checked.
func (s State) Apply(a Action) State {
	next := maps.Clone(s.facts)
	if next == nil {
		next = make(map[string]Fact, len(a.Effects))
	}
	for _, f := range a.NegativeEffects() {
		delete(next, f.String())
	}
	for _, f := range a.PositiveEffects() {
		next[f.String()] = f
	}
	return State{facts: next}
}

// With returns a state holding the receiver's facts plus facts.
func (s State) With(facts ...Fact) State {
	next := make(map[string]Fact, len(s.facts)+len(facts))
	maps.Copy(next, s.facts)
	for _, f := range facts {
		next[f.String()] = f
	}
	return State{facts: next}
}

// Consistent reports whether no ground constraint is violated.
func (s State) Consistent(constraints []Constraint) bool {
	for _, c := range constraints {
		if c.ViolatedBy(s.Contains) {
			return false
		}
	}
	return true
}

// Equal reports whether both states hold the same facts.
func (s State) Equal(other State) bool {
	if len(s.facts) != len(other.facts) {
		return false
	}
	for k := range s.facts {
		if _, ok := other.facts[k]; !ok {
			return false
		}
	}
	return true
}

// String renders the sorted facts separated by ", ".
func (s State) String() string {
	return joinFacts(s.Facts())
}
