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

// Problem is a planning domain paired with an initial state.
//
// Description:
//
//	Actions are kept in declaration order; planners consider schemas in
//	that order when several could achieve the same goal. Types supply the
//	constants each variable ranges over during grounding. The first
//	declaration that names a variable wins.
//
// Thread Safety: Immutable once built. Safe for concurrent use.
type Problem struct {
	// Actions are the schema actions in declaration order.
	Actions []Action

	// Constraints are static invariants over facts.
	Constraints []Constraint

	// Types declare variable domains.
	Types []TypeDeclaration

	// InitialState is the world before any action runs.
	InitialState State
}

// InstantiateVariable returns one single-binding unification per constant
// declared for variable. Undeclared variables yield nothing.
func (p Problem) InstantiateVariable(variable string) []Unification {
	for _, t := range p.Types {
		if !t.Declares(variable) {
			continue
		}
		out := make([]Unification, len(t.Constants))
		for i, c := range t.Constants {
			out[i] = Unification{valid: true, substitutions: map[string]string{variable: c}}
		}
		return out
	}
	return nil
}

// InstantiateVariables returns the cartesian product of every variable's
// instantiations, each combination merged into one unification.
//
// Description:
//
//	Variables are processed in sorted order so the product order is
//	stable. No variables produce a single empty unification. Any
//	undeclared variable empties the product. The result size is the
//	product of the domain sizes.
//
// Inputs:
//   - variables: Variable names. Duplicates are ignored.
//
// Outputs:
//   - []Unification: One unification per combination.
//
// Example:
//
//	// Types: "X, Y: s3, s5"
//	p.InstantiateVariables([]string{"X", "Y"})
//	// [{X=s3, Y=s3} {X=s3, Y=s5} {X=s5, Y=s3} {X=s5, Y=s5}]
func (p Problem) InstantiateVariables(variables []string) []Unification {
	vars := sortedSet(variables)
	product := []Unification{EmptyUnification()}
	for _, v := range vars {
		choices := p.InstantiateVariable(v)
		next := make([]Unification, 0, len(product)*len(choices))
		for _, acc := range product {
			for _, choice := range choices {
				next = append(next, acc.Merge(choice))
			}
		}
		product = next
		if len(product) == 0 {
			return nil
		}
	}
	return product
}

// MatchingActionsFor returns, in declaration order, every schema action
// specialized so that one of its effects achieves goal.
func (p Problem) MatchingActionsFor(goal Fact) []Action {
	var out []Action
	for _, a := range p.Actions {
		if matched, ok := a.Match(goal); ok {
			out = append(out, matched)
		}
	}
	return out
}

// GroundConstraints grounds every constraint. Instances that are not
// well-formed are dropped.
func (p Problem) GroundConstraints() []Constraint {
	var out []Constraint
	for _, c := range p.Constraints {
		out = append(out, c.Instantiate(p)...)
	}
	return out
}

// TypesKey returns a canonical rendering of the type declarations. Two
// problems with the same key ground every schema identically.
func (p Problem) TypesKey() string {
	parts := make([]string, len(p.Types))
	for i, t := range p.Types {
		parts[i] = t.String()
	}
	return strings.Join(parts, "; ")
}

// ActionIndex returns the declaration index of the schema whose signature
// name and arity match signature, or -1.
func (p Problem) ActionIndex(signature Predicate) int {
	return slices.IndexFunc(p.Actions, func(a Action) bool {
		return a.Predicate.Name == signature.Name && a.Predicate.Arity() == signature.Arity()
	})
}
