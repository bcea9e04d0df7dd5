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

// Predicate is a named, ordered tuple of terms such as "on X Y".
//
// Description:
//
//	Predicates are compared structurally: two predicates are equal when
//	they share a name and the same argument sequence. Arguments are terms;
//	see IsVariable for how variables are told apart from constants.
//
// Thread Safety: Immutable once built. Safe for concurrent use.
type Predicate struct {
	// Name is the relation or action name, e.g. "on" or "stack".
	Name string

	// Arguments are the terms in positional order.
	Arguments []string
}

// NewPredicate builds a predicate, copying the argument slice.
func NewPredicate(name string, arguments ...string) Predicate {
	args := make([]string, len(arguments))
	copy(args, arguments)
	return Predicate{Name: name, Arguments: args}
}

// Arity returns the number of arguments.
func (p Predicate) Arity() int {
	return len(p.Arguments)
}

// WellFormed reports whether no argument value repeats.
//
// Description:
//
//	Grounding may substitute the same constant for two distinct schema
//	variables, producing instances like "on s3 s3". Those instances are
//	not well-formed and planners drop them.
func (p Predicate) WellFormed() bool {
	for i := 1; i < len(p.Arguments); i++ {
		if slices.Contains(p.Arguments[:i], p.Arguments[i]) {
			return false
		}
	}
	return true
}

// Equal reports structural equality.
func (p Predicate) Equal(other Predicate) bool {
	return p.Name == other.Name && slices.Equal(p.Arguments, other.Arguments)
}

// Ground reports whether every argument is a constant.
func (p Predicate) Ground() bool {
	return !slices.ContainsFunc(p.Arguments, IsVariable)
}

// Variables returns the distinct variable arguments in order of first
// appearance.
func (p Predicate) Variables() []string {
	var vars []string
	for _, arg := range p.Arguments {
		if IsVariable(arg) && !slices.Contains(vars, arg) {
			vars = append(vars, arg)
		}
	}
	return vars
}

// Unify binds the receiver's variables to other's arguments.
//
// Description:
//
//	Unification succeeds when both predicates share a name and arity and
//	every argument position agrees: a variable on the receiver side binds
//	to whatever term sits in the same position of other, and a constant
//	on the receiver side must match other's term exactly. The operation is
//	directional; variables in other are never bound.
//
//	A receiver variable that appears twice must bind to the same term both
//	times, otherwise unification fails.
//
// Inputs:
//   - other: The predicate to unify against.
//
// Outputs:
//   - Unification: A valid unification carrying the bindings, or an
//     invalid one with no bindings.
//
// Example:
//
//	NewPredicate("on", "X", "Y").Unify(NewPredicate("on", "s3", "s5"))
//	// {X=s3, Y=s5}
func (p Predicate) Unify(other Predicate) Unification {
	if p.Name != other.Name || len(p.Arguments) != len(other.Arguments) {
		return InvalidUnification()
	}

	bindings := make(map[string]string, len(p.Arguments))
	for i, arg := range p.Arguments {
		target := other.Arguments[i]
		if !IsVariable(arg) {
			if arg != target {
				return InvalidUnification()
			}
			continue
		}
		if bound, ok := bindings[arg]; ok && bound != target {
			return InvalidUnification()
		}
		bindings[arg] = target
	}
	return Unification{valid: true, substitutions: bindings}
}

// ApplyUnification returns a copy with every bound argument substituted.
func (p Predicate) ApplyUnification(u Unification) Predicate {
	args := make([]string, len(p.Arguments))
	for i, arg := range p.Arguments {
		if value, ok := u.substitutions[arg]; ok {
			args[i] = value
		} else {
			args[i] = arg
		}
	}
	return Predicate{Name: p.Name, Arguments: args}
}

// String renders the predicate as space separated tokens.
func (p Predicate) String() string {
	if len(p.Arguments) == 0 {
		return p.Name
	}
	return p.Name + " " + strings.Join(p.Arguments, " ")
}
