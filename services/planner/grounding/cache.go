// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package grounding memoizes the expansion of schema actions and
// constraints into their well-formed ground instances.
package grounding

import (
	"strings"

	"github.com/AleutianAI/AleutianPlanner/services/planner/knowledge"
	"golang.org/x/sync/singleflight"
)

// DefaultCapacity is the number of groundings a cache keeps when no
// capacity is given.
const DefaultCapacity = 1024

// Cache memoizes groundings.
//
// Description:
//
//	Grounding is exponential in the number of free variables of a schema
//	and planners ask for the same schemas again and again: the plan graph
//	grounds every schema once per level and goal-stack search regrounds
//	matched schemas on every backtrack. Cache stores the well-formed ground
//	instances under a key made of the problem's type declarations and the
//	schema text, so entries stay valid across problems that share their
//	types. Concurrent requests for the same key are collapsed with
//	singleflight and ground once.
//
//	Returned slices are shared between callers and must not be modified.
//
// Thread Safety: Safe for concurrent use.
type Cache struct {
	actions     *LRU[string, []knowledge.Action]
	constraints *LRU[string, []knowledge.Constraint]
	flight      singleflight.Group
}

// Stats summarizes cache effectiveness.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Entries   int   `json:"entries"`
}

// NewCache returns an empty cache holding up to capacity action groundings
// and as many constraint groundings.
//
// Example:
//
//	cache := grounding.NewCache(0) // DefaultCapacity
//	ground := cache.Actions(problem, problem.Actions[0])
func NewCache(capacity int) *Cache {
	return &Cache{
		actions:     NewLRU[string, []knowledge.Action](capacity),
		constraints: NewLRU[string, []knowledge.Constraint](capacity),
	}
}

// Actions returns the well-formed ground instances of schema, sorted by
// their canonical key.
//
// Inputs:
//   - problem: Supplies the type declarations.
//   - schema: The action to ground. May already be partially bound.
//
// Outputs:
//   - []knowledge.Action: Shared, read-only slice. Empty when a variable
//     is undeclared or every instance is ill-formed.
func (c *Cache) Actions(problem knowledge.Problem, schema knowledge.Action) []knowledge.Action {
	key := "a\x00" + problem.TypesKey() + "\x00" + schema.String()
	if cached, ok := c.actions.Get(key); ok {
		return cached
	}
	v, _, _ := c.flight.Do(key, func() (any, error) {
		if cached, ok := c.actions.Get(key); ok {
			return cached, nil
		}
		ground := WellFormed(schema.Instantiate(problem))
		c.actions.Set(key, ground)
		return ground, nil
	})
	return v.([]knowledge.Action)
}

// Constraints returns every well-formed ground constraint of problem.
func (c *Cache) Constraints(problem knowledge.Problem) []knowledge.Constraint {
	parts := make([]string, len(problem.Constraints))
	for i, con := range problem.Constraints {
		parts[i] = con.String()
	}
	key := "c\x00" + problem.TypesKey() + "\x00" + strings.Join(parts, "\x00")
	if cached, ok := c.constraints.Get(key); ok {
		return cached
	}
	v, _, _ := c.flight.Do(key, func() (any, error) {
		if cached, ok := c.constraints.Get(key); ok {
			return cached, nil
		}
		ground := problem.GroundConstraints()
		c.constraints.Set(key, ground)
		return ground, nil
	})
	return v.([]knowledge.Constraint)
}

// Stats reports action grounding cache statistics.
func (c *Cache) Stats() Stats {
	hits, misses, evictions := c.actions.Stats()
	return Stats{Hits: hits, Misses: misses, Evictions: evictions, Entries: c.actions.Len()}
}

// WellFormed returns the well-formed actions, preserving order.
func WellFormed(actions []knowledge.Action) []knowledge.Action {
	out := make([]knowledge.Action, 0, len(actions))
	for _, a := range actions {
		if a.WellFormed() {
			out = append(out, a)
		}
	}
	return out
}
