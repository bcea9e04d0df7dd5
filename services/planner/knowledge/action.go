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

// ReservedActionName names the no-op actions a planning graph synthesizes
// to carry facts between levels. Domains may not declare it.
const ReservedActionName = "keep"

// Action is a STRIPS style operator: a signature plus precondition and
// effect sets.
//
// Description:
//
//	A schema action carries variables in its signature and facts, such as
//	"stack X Y". Grounding replaces every variable with a constant, giving
//	ground actions such as "stack s3 s5". Both shapes share this type.
//
//	Preconditions and effects are signed. A negative effect removes its
//	positive counterpart from a state when the action is applied, and a
//	negative precondition requires its positive counterpart to be absent.
//
//	Build actions with NewAction, which sorts and deduplicates the fact
//	sets. Two actions with the same String are the same action.
//
// Thread Safety: Immutable once built. Safe for concurrent use.
type Action struct {
	// Predicate is the action signature, e.g. "stack X Y".
	Predicate Predicate

	// Preconditions must hold before the action is applied.
	Preconditions []Fact

	// Effects describe how the action changes the world.
	Effects []Fact
}

// NewAction builds an action with normalized fact sets.
func NewAction(signature Predicate, preconditions, effects []Fact) Action {
	return Action{
		Predicate:     NewPredicate(signature.Name, signature.Arguments...),
		Preconditions: normalizeFacts(preconditions),
		Effects:       normalizeFacts(effects),
	}
}

// PositivePreconditions returns the preconditions that must be present.
func (a Action) PositivePreconditions() []Fact {
	return filterSign(a.Preconditions, true)
}

// NegativePreconditions returns, flipped to positive, the facts that must
// be absent.
func (a Action) NegativePreconditions() []Fact {
	return flipAll(filterSign(a.Preconditions, false))
}

// PositiveEffects returns the facts the action adds.
func (a Action) PositiveEffects() []Fact {
	return filterSign(a.Effects, true)
}

// NegativeEffects returns, flipped to positive, the facts the action
// removes.
func (a Action) NegativeEffects() []Fact {
	return flipAll(filterSign(a.Effects, false))
}

// WellFormed reports whether the signature and every fact are
// well-formed.
func (a Action) WellFormed() bool {
	if !a.Predicate.WellFormed() {
		return false
	}
	for _, f := range a.Preconditions {
		if !f.WellFormed() {
			return false
		}
	}
	for _, f := range a.Effects {
		if !f.WellFormed() {
			return false
		}
	}
	return true
}

// Variables returns every distinct variable in the signature,
// preconditions and effects, sorted.
func (a Action) Variables() []string {
	vars := a.Predicate.Variables()
	for _, f := range a.Preconditions {
		vars = append(vars, f.Variables()...)
	}
	for _, f := range a.Effects {
		vars = append(vars, f.Variables()...)
	}
	slices.Sort(vars)
	return slices.Compact(vars)
}

// ApplyUnification substitutes bound variables everywhere in the action.
func (a Action) ApplyUnification(u Unification) Action {
	pre := make([]Fact, len(a.Preconditions))
	for i, f := range a.Preconditions {
		pre[i] = f.ApplyUnification(u)
	}
	eff := make([]Fact, len(a.Effects))
	for i, f := range a.Effects {
		eff[i] = f.ApplyUnification(u)
	}
	return NewAction(a.Predicate.ApplyUnification(u), pre, eff)
}

// Match specializes the action so that one of its effects achieves goal.
//
// Description:
//
//	Effects are scanned in sorted order and the first one with the same
//	sign as goal that unifies with it wins. The unification binds the
//	effect's variables to the goal's terms and is then applied to the
//	whole action.
//
// Inputs:
//   - goal: The fact the caller wants to achieve.
//
// Outputs:
//   - Action: The specialized action.
//   - bool: false when no effect can achieve goal.
//
// Example:
//
//	stack, _ := ParseAction("stack X Y: clear Y, holding X -> on X Y")
//	matched, ok := stack.Match(Literal("on", "s3", "s5"))
//	// matched.Predicate is "stack s3 s5", ok is true
func (a Action) Match(goal Fact) (Action, bool) {
	for _, effect := range a.Effects {
		if effect.Positive != goal.Positive {
			continue
		}
		if u := effect.Unify(goal); u.Valid() {
			return a.ApplyUnification(u), true
		}
	}
	return Action{}, false
}

// Instantiate grounds the action against problem's type declarations.
//
// Description:
//
//	Collects the free variables, asks problem for every combination of
//	their constants and applies each combination. The result is sorted by
//	String and may contain instances that are not well-formed; callers
//	filter those out. A variable without a type declaration makes the
//	result empty.
//
// Inputs:
//   - problem: Supplies the type declarations.
//
// Outputs:
//   - []Action: The ground instances. Never contains duplicates.
func (a Action) Instantiate(problem Problem) []Action {
	combos := problem.InstantiateVariables(a.Variables())
	out := make([]Action, 0, len(combos))
	seen := make(map[string]struct{}, len(combos))
	for _, u := range combos {
		ground := a.ApplyUnification(u)
		key := ground.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ground)
	}
	SortActions(out)
	return out
}

// Equal reports whether both actions render identically.
func (a Action) Equal(other Action) bool {
	return a.Predicate.Equal(other.Predicate) &&
		slices.EqualFunc(a.Preconditions, other.Preconditions, Fact.Equal) &&
		slices.EqualFunc(a.Effects, other.Effects, Fact.Equal)
}

// String renders the action in the domain text format. The rendering is
// the action's canonical key.
func (a Action) String() string {
	var b strings.Builder
	b.WriteString(a.Predicate.String())
	b.WriteString(":")
	if len(a.Preconditions) > 0 {
		b.WriteString(" ")
		b.WriteString(joinFacts(a.Preconditions))
	}
	b.WriteString(" ->")
	if len(a.Effects) > 0 {
		b.WriteString(" ")
		b.WriteString(joinFacts(a.Effects))
	}
	return b.String()
}

// SortActions orders actions in place by their canonical key.
func SortActions(actions []Action) {
	type keyed struct {
		key    string
		action Action
	}
	decorated := make([]keyed, len(actions))
	for i, a := range actions {
		decorated[i] = keyed{key: a.String(), action: a}
	}
	slices.SortStableFunc(decorated, func(x, y keyed) int {
		return strings.Compare(x.key, y.key)
	})
	for i, d := range decorated {
		actions[i] = d.action
	}
}
