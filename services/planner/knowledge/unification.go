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
	"strings"
)

// Unification is a variable substitution together with a validity flag.
//
// Description:
//
//	A valid unification maps variable names to the terms they are bound
//	to. An invalid unification records that two values could not be
//	unified and carries no bindings. The zero value is invalid; use
//	EmptyUnification for the identity.
//
// Thread Safety: Immutable once built. Safe for concurrent use.
type Unification struct {
	valid         bool
	substitutions map[string]string
}

// EmptyUnification returns the valid unification with no bindings. It is
// the identity for Merge.
func EmptyUnification() Unification {
	return Unification{valid: true}
}

// InvalidUnification returns a failed unification.
func InvalidUnification() Unification {
	return Unification{}
}

// NewUnification returns a valid unification over a copy of bindings.
func NewUnification(bindings map[string]string) Unification {
	return Unification{valid: true, substitutions: maps.Clone(bindings)}
}

// Valid reports whether the unification succeeded.
func (u Unification) Valid() bool {
	return u.valid
}

// Len returns the number of bindings.
func (u Unification) Len() int {
	return len(u.substitutions)
}

// Lookup returns the term bound to variable.
func (u Unification) Lookup(variable string) (string, bool) {
	value, ok := u.substitutions[variable]
	return value, ok
}

// Substitutions returns a copy of the bindings.
func (u Unification) Substitutions() map[string]string {
	out := make(map[string]string, len(u.substitutions))
	maps.Copy(out, u.substitutions)
	return out
}

// Merge unions two unifications.
//
// Description:
//
//	On a key collision the receiver's binding wins, so Merge is not
//	commutative. The result is valid only when both inputs are valid.
//
// Example:
//
//	a := NewUnification(map[string]string{"X": "s3"})
//	b := NewUnification(map[string]string{"X": "s5", "Y": "s4"})
//	a.Merge(b) // {X=s3, Y=s4}
//	b.Merge(a) // {X=s5, Y=s4}
func (u Unification) Merge(other Unification) Unification {
	merged := make(map[string]string, len(u.substitutions)+len(other.substitutions))
	maps.Copy(merged, other.substitutions)
	maps.Copy(merged, u.substitutions)
	return Unification{valid: u.valid && other.valid, substitutions: merged}
}

// Equal reports whether both unifications have the same validity and
// bindings.
func (u Unification) Equal(other Unification) bool {
	return u.valid == other.valid && maps.Equal(u.substitutions, other.substitutions)
}

// String renders the bindings in variable order, e.g. "{X=s3, Y=s5}".
func (u Unification) String() string {
	if !u.valid {
		return "invalid"
	}
	keys := slices.Sorted(maps.Keys(u.substitutions))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + u.substitutions[k]
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
