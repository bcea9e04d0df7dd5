// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package knowledge holds the value types every planner shares.
//
// Description:
//
//	Terms, predicates and facts form the literal layer. Unification binds
//	variables of one predicate to the arguments of another. Actions,
//	constraints and type declarations make up a domain, which a Problem
//	pairs with an initial State. Grounding expands schema actions into
//	ground instances by taking the cartesian product of every free
//	variable's declared constants.
//
//	All values are immutable after construction. Transformations such as
//	Flip, ApplyUnification and Match return new values and never modify
//	the receiver, so planners can share them freely across branches.
//
// Ordering:
//
//	Iteration order is deterministic everywhere. Fact sets are kept sorted
//	by their rendered text, ground actions are ordered by Action.String,
//	and type declarations keep their constants sorted. Two runs over the
//	same Problem produce the same groundings in the same order.
//
// Text Format:
//
//	Every value renders back into the domain mini-language accepted by the
//	Parse functions in parse.go:
//
//	    pickup X: ontable X, clear X, handempty -> holding X, not ontable X
//	    holding X -> not holding Y
//	    X, Y: s3, s5
//	    not on s3 s5
package knowledge
