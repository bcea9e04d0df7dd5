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
	"errors"
	"fmt"
)

// Package-level error definitions.
var (
	ErrMalformedPredicate       = errors.New("malformed predicate")
	ErrMalformedFact            = errors.New("malformed fact")
	ErrMalformedAction          = errors.New("malformed action")
	ErrMalformedConstraint      = errors.New("malformed constraint")
	ErrMalformedTypeDeclaration = errors.New("malformed type declaration")
)

// ParseError reports a line of domain text that could not be parsed.
//
// Err always wraps one of the ErrMalformed sentinels, so callers can use
// errors.Is to tell the kinds apart.
type ParseError struct {
	// Input is the offending text as given to the parser.
	Input string

	// Err describes what was wrong with Input.
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %v", e.Input, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseError(input string, sentinel error, reason string) error {
	return &ParseError{
		Input: input,
		Err:   fmt.Errorf("%w: %s", sentinel, reason),
	}
}
