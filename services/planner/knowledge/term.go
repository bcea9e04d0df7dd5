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
	"unicode"
	"unicode/utf8"
)

// IsVariable reports whether term names a variable.
//
// Classification is purely lexical: a term whose first character is an
// uppercase letter is a variable, every other term (including the empty
// string) is a constant.
func IsVariable(term string) bool {
	r, size := utf8.DecodeRuneInString(term)
	if size == 0 || r == utf8.RuneError {
		return false
	}
	return unicode.IsUpper(r)
}
