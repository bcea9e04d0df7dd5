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
	"context"
	"slices"
	"strings"

	"github.com/AleutianAI/AleutianPlanner/services/planner/knowledge"
)

// extractor searches a planning graph backwards for a plan.
//
// Goal sets proven unsolvable at a level are remembered. Levels never
// change once built, so the memo stays valid as the graph grows and is
// shared across every extraction of one planning call. A branch whose
// assembled plan breaks a domain constraint fails for its later steps,
// not its goals, so such failures are never memoized.
type extractor struct {
	nogoods map[int]map[string]struct{}

	attempts   int
	memoHits   int
	rejections int
}

func newExtractor() *extractor {
	return &extractor{nogoods: make(map[int]map[string]struct{})}
}

// extract finds steps achieving goals at level i of g.
//
// Inputs:
//   - goals: Facts that must hold at level i.
//   - i: The level index.
//   - later: Actions already chosen above level i, in execution order.
//
// Outputs:
//   - []knowledge.Predicate: Plan steps, earliest level first. Steps of
//     one level are sorted by text and deduplicated.
//   - bool: Whether a plan was found.
//   - error: Non-nil only when ctx is done.
func (x *extractor) extract(ctx context.Context, g *Graph, goals []knowledge.Fact, i int, later []knowledge.Action) ([]knowledge.Predicate, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	x.attempts++

	goals = knowledge.SortFacts(goals)
	key := goalKey(goals)
	if _, ok := x.nogoods[i][key]; ok {
		x.memoHits++
		return nil, false, nil
	}
	if !g.Reachable(goals, i) {
		x.fail(i, key)
		return nil, false, nil
	}
	if i == 0 {
		if !g.Consistent(later) {
			x.rejections++
			return nil, false, nil
		}
		return nil, true, nil
	}

	rejected := x.rejections
	level := g.Level(i)
	steps, found, err := x.choose(ctx, g, level, goals, nil, later)
	if err != nil {
		return nil, false, err
	}
	if !found && x.rejections == rejected {
		x.fail(i, key)
	}
	return steps, found, nil
}

// choose picks one supporter per remaining goal, depth first, skipping
// supporters mutex with one already chosen. Once every goal is covered it
// recurses on the chosen actions' preconditions one level down.
func (x *extractor) choose(ctx context.Context, g *Graph, level *Level, goals []knowledge.Fact, chosen []*node, later []knowledge.Action) ([]knowledge.Predicate, bool, error) {
	if len(goals) == 0 {
		return x.regress(ctx, g, level, chosen, later)
	}

	for _, key := range level.supporters[goals[0].String()] {
		candidate := level.byKey[key]
		if level.mutexWithAny(candidate, chosen) {
			continue
		}
		steps, found, err := x.choose(ctx, g, level, goals[1:], append(slices.Clip(chosen), candidate), later)
		if err != nil || found {
			return steps, found, err
		}
	}
	return nil, false, nil
}

func (x *extractor) regress(ctx context.Context, g *Graph, level *Level, chosen []*node, later []knowledge.Action) ([]knowledge.Predicate, bool, error) {
	var subgoals []knowledge.Fact
	var actions []knowledge.Action
	for _, n := range chosen {
		subgoals = append(subgoals, n.needs...)
		if !n.persistence {
			actions = append(actions, n.action)
		}
	}

	slices.SortFunc(actions, func(a, b knowledge.Action) int {
		return strings.Compare(a.Predicate.String(), b.Predicate.String())
	})
	actions = slices.CompactFunc(actions, func(a, b knowledge.Action) bool {
		return a.Predicate.Equal(b.Predicate)
	})

	earlier, found, err := x.extract(ctx, g, subgoals, level.index-1, append(slices.Clip(actions), later...))
	if err != nil || !found {
		return nil, false, err
	}

	steps := make([]knowledge.Predicate, len(actions))
	for i, a := range actions {
		steps[i] = a.Predicate
	}
	return append(earlier, steps...), true, nil
}

func (x *extractor) fail(i int, key string) {
	memo, ok := x.nogoods[i]
	if !ok {
		memo = make(map[string]struct{})
		x.nogoods[i] = memo
	}
	memo[key] = struct{}{}
}

// mutexWithAny reports whether n is action-mutex with some chosen action.
func (l *Level) mutexWithAny(n *node, chosen []*node) bool {
	for _, c := range chosen {
		if c.key == n.key {
			continue
		}
		if _, ok := l.actionMutex[newPair(c.key, n.key)]; ok {
			return true
		}
	}
	return false
}

func goalKey(goals []knowledge.Fact) string {
	keys := make([]string, len(goals))
	for i, f := range goals {
		keys[i] = f.String()
	}
	return strings.Join(keys, "\x00")
}
