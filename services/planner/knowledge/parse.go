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
	"strings"
)

const (
	nameSeparator   = ":"
	effectSeparator = "->"
	listSeparator   = ","
)

// ParsePredicate parses space separated tokens, e.g. "on X Y". The first
// token is the name.
func ParsePredicate(text string) (Predicate, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Predicate{}, parseError(text, ErrMalformedPredicate, "empty predicate")
	}
	if strings.ContainsAny(text, nameSeparator+listSeparator) || strings.Contains(text, effectSeparator) {
		return Predicate{}, parseError(text, ErrMalformedPredicate, "unexpected separator")
	}
	return NewPredicate(fields[0], fields[1:]...), nil
}

// ParseFact parses "[not] name args...".
func ParseFact(text string) (Fact, error) {
	fields := strings.Fields(text)
	positive := true
	if len(fields) > 0 && fields[0] == negationToken {
		positive = false
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return Fact{}, parseError(text, ErrMalformedFact, "missing predicate")
	}
	p, err := ParsePredicate(strings.Join(fields, " "))
	if err != nil {
		return Fact{}, parseError(text, ErrMalformedFact, err.Error())
	}
	return Fact{Predicate: p, Positive: positive}, nil
}

// ParseFacts parses a comma separated fact list. Empty entries are
// skipped, so "" parses to no facts.
func ParseFacts(text string) ([]Fact, error) {
	var out []Fact
	for _, part := range strings.Split(text, listSeparator) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		f, err := ParseFact(part)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// ParseAction parses "name args: preconditions -> effects".
//
// Description:
//
//	The signature ends at the first ':'. Preconditions and effects are
//	comma separated fact lists on either side of "->"; either list may be
//	empty.
//
// Outputs:
//   - Action: The normalized action.
//   - error: A *ParseError wrapping ErrMalformedAction or
//     ErrMalformedFact.
//
// Example:
//
//	a, err := ParseAction("putdown X: holding X -> ontable X, handempty, clear X, not holding X")
func ParseAction(text string) (Action, error) {
	head, body, ok := strings.Cut(text, nameSeparator)
	if !ok {
		return Action{}, parseError(text, ErrMalformedAction, "missing ':' after signature")
	}
	signature, err := ParsePredicate(head)
	if err != nil {
		return Action{}, parseError(text, ErrMalformedAction, "bad signature")
	}
	preText, effText, ok := strings.Cut(body, effectSeparator)
	if !ok {
		return Action{}, parseError(text, ErrMalformedAction, "missing '->' between preconditions and effects")
	}
	if strings.Contains(effText, effectSeparator) {
		return Action{}, parseError(text, ErrMalformedAction, "more than one '->'")
	}
	pre, err := ParseFacts(preText)
	if err != nil {
		return Action{}, err
	}
	eff, err := ParseFacts(effText)
	if err != nil {
		return Action{}, err
	}
	return NewAction(signature, pre, eff), nil
}

// ParseConstraint parses "antecedent -> consequents".
func ParseConstraint(text string) (Constraint, error) {
	head, body, ok := strings.Cut(text, effectSeparator)
	if !ok {
		return Constraint{}, parseError(text, ErrMalformedConstraint, "missing '->'")
	}
	if fields := strings.Fields(head); len(fields) > 0 && fields[0] == negationToken {
		return Constraint{}, parseError(text, ErrMalformedConstraint, "antecedent must be positive")
	}
	antecedent, err := ParsePredicate(head)
	if err != nil {
		return Constraint{}, parseError(text, ErrMalformedConstraint, "bad antecedent")
	}
	consequents, err := ParseFacts(body)
	if err != nil {
		return Constraint{}, err
	}
	if len(consequents) == 0 {
		return Constraint{}, parseError(text, ErrMalformedConstraint, "no consequents")
	}
	return NewConstraint(antecedent, consequents), nil
}

// ParseTypeDeclaration parses "X, Y: c1, c2". Every name left of ':' must
// be a variable.
func ParseTypeDeclaration(text string) (TypeDeclaration, error) {
	head, body, ok := strings.Cut(text, nameSeparator)
	if !ok {
		return TypeDeclaration{}, parseError(text, ErrMalformedTypeDeclaration, "missing ':'")
	}
	variables := splitList(head)
	constants := splitList(body)
	if len(variables) == 0 {
		return TypeDeclaration{}, parseError(text, ErrMalformedTypeDeclaration, "no variables")
	}
	if len(constants) == 0 {
		return TypeDeclaration{}, parseError(text, ErrMalformedTypeDeclaration, "no constants")
	}
	for _, v := range variables {
		if !IsVariable(v) {
			return TypeDeclaration{}, parseError(text, ErrMalformedTypeDeclaration, "not a variable: "+v)
		}
	}
	return NewTypeDeclaration(variables, constants), nil
}

// MustParseFact is like ParseFact but panics on error.
func MustParseFact(text string) Fact {
	f, err := ParseFact(text)
	if err != nil {
		panic(err)
	}
	return f
}

// MustParseAction is like ParseAction but panics on error.
func MustParseAction(text string) Action {
	a, err := ParseAction(text)
	if err != nil {
		panic(err)
	}
	return a
}

// MustParsePredicate is like ParsePredicate but panics on error.
func MustParsePredicate(text string) Predicate {
	p, err := ParsePredicate(text)
	if err != nil {
		panic(err)
	}
	return p
}

func splitList(text string) []string {
	var out []string
	for _, part := range strings.Split(text, listSeparator) {
		out = append(out, strings.Fields(part)...)
	}
	return out
}
