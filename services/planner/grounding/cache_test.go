// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package grounding

import (
	"sync"
	"testing"

	"github.com/AleutianAI/AleutianPlanner/services/planner/knowledge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProblem() knowledge.Problem {
	return knowledge.Problem{
		Actions: []knowledge.Action{
			knowledge.MustParseAction("stack X Y: clear Y, holding X -> handempty, on X Y, clear X, not holding X, not clear Y"),
		},
		Constraints: []knowledge.Constraint{
			knowledge.NewConstraint(knowledge.NewPredicate("holding", "X"), []knowledge.Fact{knowledge.Negation("holding", "Y")}),
		},
		Types: []knowledge.TypeDeclaration{
			knowledge.NewTypeDeclaration([]string{"X", "Y"}, []string{"s3", "s4", "s5"}),
		},
	}
}

func TestCacheActions(t *testing.T) {
	problem := testProblem()
	cache := NewCache(8)

	t.Run("drops ill-formed instances", func(t *testing.T) {
		ground := cache.Actions(problem, problem.Actions[0])
		require.Len(t, ground, 6)
		for _, a := range ground {
			assert.True(t, a.WellFormed(), a.String())
		}
		assert.Equal(t, "stack s3 s4", ground[0].Predicate.String())
	})

	t.Run("second call is a hit with identical content", func(t *testing.T) {
		before := cache.Stats()
		first := cache.Actions(problem, problem.Actions[0])
		second := cache.Actions(problem, problem.Actions[0])
		assert.Equal(t, first, second)
		after := cache.Stats()
		assert.Equal(t, before.Hits+2, after.Hits)
		assert.Equal(t, 1, after.Entries)
	})

	t.Run("matches uncached grounding", func(t *testing.T) {
		assert.Equal(t, WellFormed(problem.Actions[0].Instantiate(problem)), cache.Actions(problem, problem.Actions[0]))
	})

	t.Run("different types are different entries", func(t *testing.T) {
		other := problem
		other.Types = []knowledge.TypeDeclaration{knowledge.NewTypeDeclaration([]string{"X", "Y"}, []string{"a", "b"})}
		assert.Len(t, cache.Actions(other, problem.Actions[0]), 2)
		assert.Equal(t, 2, cache.Stats().Entries)
	})
}

func TestCacheConcurrentUse(t *testing.T) {
	problem := testProblem()
	cache := NewCache(0)

	var wg sync.WaitGroup
	results := make([][]knowledge.Action, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = cache.Actions(problem, problem.Actions[0])
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
	assert.Equal(t, 1, cache.Stats().Entries)
}

func TestCacheConstraints(t *testing.T) {
	problem := testProblem()
	cache := NewCache(4)

	ground := cache.Constraints(problem)
	assert.Len(t, ground, 6)
	assert.Equal(t, ground, cache.Constraints(problem))
}

func TestLRUEviction(t *testing.T) {
	lru := NewLRU[string, int](2)
	lru.Set("a", 1)
	lru.Set("b", 2)
	_, _ = lru.Get("a")
	lru.Set("c", 3)

	_, ok := lru.Get("b")
	assert.False(t, ok)
	v, ok := lru.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, lru.Len())

	_, _, evictions := lru.Stats()
	assert.Equal(t, int64(1), evictions)

	lru.Purge()
	assert.Zero(t, lru.Len())
	hits, misses, _ := lru.Stats()
	assert.Zero(t, hits+misses)
}
