// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graphplan

import (
	"github.com/AleutianAI/AleutianPlanner/services/planner/grounding"
	"github.com/AleutianAI/AleutianPlanner/services/planner/knowledge"
)

// Graph is a planning graph: alternating proposition and action layers
// grown from a problem's initial state.
//
// Description:
//
//	Extend returns a new Graph one level deeper that shares every existing
//	level with the receiver. Levels are immutable, so a Graph value may be
//	kept and inspected after it has been extended.
//
// Thread Safety: Safe for concurrent reads. Extend does not modify the
// receiver.
type Graph struct {
	problem     knowledge.Problem
	cache       *grounding.Cache
	constraints []knowledge.Constraint
	exclusions  map[pair]struct{}
	levels      []*Level
}

// NewGraph builds the level 0 graph for problem.
//
// Inputs:
//   - problem: The domain and initial state.
//   - goals: Goals the graph will be queried for. Atoms of negative goals
//     and of negative preconditions that are absent from the initial
//     state start out as negative propositions.
//   - cache: Grounding cache. Nil creates a private one.
//
// Outputs:
//   - *Graph: A graph holding only level 0.
func NewGraph(problem knowledge.Problem, goals []knowledge.Fact, cache *grounding.Cache) *Graph {
	if cache == nil {
		cache = grounding.NewCache(0)
	}
	constraints := cache.Constraints(problem)
	exclusions := exclusionPairs(constraints)

	var negated []knowledge.Fact
	for _, g := range goals {
		if !g.Positive {
			negated = append(negated, g)
		}
	}
	for _, schema := range problem.Actions {
		for _, a := range cache.Actions(problem, schema) {
			for _, f := range a.Preconditions {
				if !f.Positive {
					negated = append(negated, f)
				}
			}
		}
	}

	return &Graph{
		problem:     problem,
		cache:       cache,
		constraints: constraints,
		exclusions:  exclusions,
		levels:      []*Level{initialLevel(problem.InitialState, negated, exclusions)},
	}
}

// Extend returns the graph with one more level.
func (g *Graph) Extend() *Graph {
	next := Extend(g.Top(), g.problem, g.cache, g.exclusions)
	levels := make([]*Level, len(g.levels), len(g.levels)+1)
	copy(levels, g.levels)
	return &Graph{
		problem:     g.problem,
		cache:       g.cache,
		constraints: g.constraints,
		exclusions:  g.exclusions,
		levels:      append(levels, next),
	}
}

// Depth returns the index of the top level.
func (g *Graph) Depth() int {
	return len(g.levels) - 1
}

// Level returns level i, or nil when out of range.
func (g *Graph) Level(i int) *Level {
	if i < 0 || i >= len(g.levels) {
		return nil
	}
	return g.levels[i]
}

// Top returns the deepest level.
func (g *Graph) Top() *Level {
	return g.levels[len(g.levels)-1]
}

// Consistent reports whether executing steps in order from the initial
// state keeps every intermediate state within the ground constraints.
// Preconditions are not checked.
func (g *Graph) Consistent(steps []knowledge.Action) bool {
	state := g.problem.InitialState
	for _, a := range steps {
		state = state.Apply(a)
		if !state.Consistent(g.constraints) {
			return false
		}
	}
	return true
}

// LeveledOff reports whether the top two levels hold the same number of
// propositions and of proposition mutexes. Propositions only grow and
// mutexes only shrink from level to level, so every later level would be
// identical.
func (g *Graph) LeveledOff() bool {
	if len(g.levels) < 2 {
		return false
	}
	top, below := g.levels[len(g.levels)-1], g.levels[len(g.levels)-2]
	_, topMutex := top.MutexCounts()
	_, belowMutex := below.MutexCounts()
	return top.propositions.Len() == below.propositions.Len() && topMutex == belowMutex
}

// Reachable reports whether every goal is a proposition of level i and no
// two goals are mutex there. It is a necessary condition for a plan of i
// levels.
func (g *Graph) Reachable(goals []knowledge.Fact, i int) bool {
	l := g.Level(i)
	if l == nil || !l.propositions.ContainsAll(goals) {
		return false
	}
	for x, f := range goals {
		for _, h := range goals[x+1:] {
			if l.PropositionsMutex(f, h) {
				return false
			}
		}
	}
	return true
}
