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

const negationToken = "not"

// Fact is a signed predicate: "on s3 s5" or "not on s3 s5".
//
// Thread Safety: Immutable once built. Safe for concurrent use.
type Fact struct {
	// Predicate is the underlying relation.
	Predicate Predicate

	// Positive is true for a literal and false for its negation.
	Positive bool
}

// Literal builds a positive fact.
func Literal(name string, arguments ...string) Fact {
	return Fact{Predicate: NewPredicate(name, arguments...), Positive: true}
}

// Negation builds a negative fact.
func Negation(name string, arguments ...string) Fact {
	return Fact{Predicate: NewPredicate(name, arguments...), Positive: false}
}

// Flip returns the complementary fact.
func (f Fact) Flip() Fact {
	return Fact{Predicate: f.Predicate, Positive: !f.Positive}
}

// Complements reports whether other is the same predicate with the
// opposite sign.
func (f Fact) Complements(other Fact) bool {
	return f.Positive != other.Positive && f.Predicate.Equal(other.Predicate)
}

// Equal reports structural equality including the sign.
func (f Fact) Equal(other Fact) bool {
	return f.Positive == other.Positive && f.Predicate.Equal(other.Predicate)
}

// WellFormed reports whether the underlying predicate is well-formed.
func (f Fact) WellFormed() bool {
	return f.Predicate.WellFormed()
}

// Variables returns the distinct variables of the predicate.
func (f Fact) Variables() []string {
	return f.Predicate.Variables()
}

// Unify binds the receiver's variables to other's arguments. Facts with
// different signs never unify.
func (f Fact) Unify(other Fact) Unification {
	if f.Positive != other.Positive {
		return InvalidUnification()
	}
	return f.Predicate.Unify(other.Predicate)
}

// ApplyUnification substitutes bound variables, keeping the sign.
func (f Fact) ApplyUnification(u Unification) Fact {
	return Fact{Predicate: f.Predicate.ApplyUnification(u), Positive: f.Positive}
}

// String renders the fact, prefixing negations with "not ".
func (f Fact) String() string {
	if f.Positive {
		return f.Predicate.String()
	}
	return negationToken + " " + f.Predicate.String()
}

// CompareFacts orders facts by their rendered text.
func CompareFacts(a, b Fact) int {
	return strings.Compare(a.String(), b.String())
}

// normalizeFacts returns a sorted copy of facts without duplicates.
func normalizeFacts(facts []Fact) []Fact {
	out := make([]Fact, 0, len(facts))
	seen := make(map[string]struct{}, len(facts))
	for _, f := range facts {
		key := f.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, f)
	}
	slices.SortFunc(out, CompareFacts)
	return out
}

// SortFacts returns a sorted, duplicate free copy of facts.
func SortFacts(facts []Fact) []Fact {
	return normalizeFacts(facts)
}

func joinFacts(facts []Fact) string {
	parts := make([]string, len(facts))
	for i, f := range facts {
		parts[i] = f.String()
	}
	return strings.Join(parts, ", ")
}

func flipAll(facts []Fact) []Fact {
	out := make([]Fact, len(facts))
	for i, f := range facts {
		out[i] = f.Flip()
	}
	return out
}

func filterSign(facts []Fact, positive bool) []Fact {
	var out []Fact
	for _, f := range facts {
		if f.Positive == positive {
			out = append(out, f)
		}
	}
	return out
}
