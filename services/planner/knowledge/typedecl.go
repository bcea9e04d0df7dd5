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

// TypeDeclaration states that each variable in Variables ranges over every
// constant in Constants.
type TypeDeclaration struct {
	Variables []string
	Constants []string
}

// NewTypeDeclaration builds a declaration with both sets sorted and
// deduplicated.
func NewTypeDeclaration(variables, constants []string) TypeDeclaration {
	return TypeDeclaration{
		Variables: sortedSet(variables),
		Constants: sortedSet(constants),
	}
}

// Declares reports whether variable is one of the declared variables.
func (t TypeDeclaration) Declares(variable string) bool {
	return slices.Contains(t.Variables, variable)
}

// String renders "X, Y: s3, s5".
func (t TypeDeclaration) String() string {
	return strings.Join(t.Variables, ", ") + ": " + strings.Join(t.Constants, ", ")
}

func sortedSet(values []string) []string {
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}

func compareStrings(a, b string) int {
	return strings.Compare(a, b)
}
