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
	"slices"
	"strings"

	"github.com/AleutianAI/AleutianPlanner/services/planner/grounding"
	"github.com/AleutianAI/AleutianPlanner/services/planner/knowledge"
)

// PersistenceName is the signature name of synthesized persistence
// actions. Domain documents declaring it fail validation.
const PersistenceName = knowledge.ReservedActionName

// pair is an unordered pair of keys, stored with a <= b.
type pair struct {
	a, b string
}

func newPair(x, y string) pair {
	if y < x {
		x, y = y, x
	}
	return pair{a: x, b: y}
}

// node is one action of a level with its precomputed key sets.
type node struct {
	action      knowledge.Action
	key         string
	persistence bool
	needs       []knowledge.Fact // previous-level propositions consumed
	requires    []string         // keys of needs
	pre         map[string]bool  // every precondition
	eff         map[string]bool  // every effect, as propositions
}

// Level is one action layer plus the proposition layer it produces.
//
// Description:
//
//	Level 0 holds the initial propositions and no actions. Level i > 0
//	holds the actions applicable to level i-1's propositions, one
//	persistence action per level i-1 proposition, and the propositions
//	those actions produce. Negative effects are kept as negative literal
//	propositions.
//
//	The level records which actions consumed each previous proposition,
//	which propositions each action produced and, inverted, which actions
//	support each proposition. It also records the action and proposition
//	mutex relations. A level never changes after Extend returns it.
//
// Thread Safety: Immutable once built. Safe for concurrent use.
type Level struct {
	index        int
	propositions knowledge.State
	nodes        []*node
	byKey        map[string]*node
	consumers    map[string][]string
	supporters   map[string][]string
	actionMutex  map[pair]struct{}
	propMutex    map[pair]struct{}
}

func newLevel(index int, propositions knowledge.State) *Level {
	return &Level{
		index:        index,
		propositions: propositions,
		byKey:        make(map[string]*node),
		consumers:    make(map[string][]string),
		supporters:   make(map[string][]string),
		actionMutex:  make(map[pair]struct{}),
		propMutex:    make(map[pair]struct{}),
	}
}

// initialLevel builds level 0 from the initial state under the closed
// world assumption: for every atom in negated, absent from initial, the
// negative literal is added as a proposition.
func initialLevel(initial knowledge.State, negated []knowledge.Fact, exclusions map[pair]struct{}) *Level {
	var absent []knowledge.Fact
	for _, f := range negated {
		atom := knowledge.Fact{Predicate: f.Predicate, Positive: true}
		if !initial.Contains(atom) {
			absent = append(absent, atom.Flip())
		}
	}
	l := newLevel(0, initial.With(absent...))
	l.computePropositionMutexes(exclusions)
	return l
}

// Extend builds the level that follows prev.
//
// Description:
//
//	Grounds every schema through cache and keeps the well-formed instances
//	whose preconditions are all propositions of prev, pairwise non-mutex.
//	Negative preconditions must appear as negative literals. Adds one persistence
//	action per prev proposition. The new propositions are every effect of
//	those actions. Action mutexes are then derived from inconsistent
//	effects, interference and competing needs, and proposition mutexes
//	from complements, constraint exclusions and mutually exclusive
//	support.
//
// Inputs:
//   - prev: The previous level. Not modified.
//   - problem: Supplies the schemas and types.
//   - cache: Grounding cache. Must not be nil.
//   - exclusions: Proposition pairs ruled out by ground constraints.
//
// Outputs:
//   - *Level: The new level.
func Extend(prev *Level, problem knowledge.Problem, cache *grounding.Cache, exclusions map[pair]struct{}) *Level {
	var nodes []*node
	seen := make(map[string]bool)
	add := func(n *node) {
		if seen[n.key] {
			return
		}
		seen[n.key] = true
		nodes = append(nodes, n)
	}

	for _, schema := range problem.Actions {
		for _, a := range cache.Actions(problem, schema) {
			if !prev.propositions.ContainsAll(a.Preconditions) {
				continue
			}
			if prev.anyMutex(factKeys(a.Preconditions)) {
				continue
			}
			add(newNode(a, a.Preconditions, false))
		}
	}
	for _, p := range prev.propositions.Facts() {
		add(newNode(persistence(p), []knowledge.Fact{p}, true))
	}

	var produced []knowledge.Fact
	for _, n := range nodes {
		produced = append(produced, n.action.Effects...)
	}

	l := newLevel(prev.index+1, knowledge.NewState(produced...))
	l.nodes = nodes
	for _, n := range nodes {
		l.byKey[n.key] = n
		for _, r := range n.requires {
			l.consumers[r] = append(l.consumers[r], n.key)
		}
		for e := range n.eff {
			l.supporters[e] = append(l.supporters[e], n.key)
		}
	}
	for prop, keys := range l.supporters {
		l.supporters[prop] = l.orderSupporters(keys)
	}

	l.computeActionMutexes(prev)
	l.computePropositionMutexes(exclusions)
	return l
}

func newNode(a knowledge.Action, needs []knowledge.Fact, persistence bool) *node {
	n := &node{
		action:      a,
		key:         a.String(),
		persistence: persistence,
		needs:       needs,
		requires:    factKeys(needs),
		pre:         make(map[string]bool, len(a.Preconditions)),
		eff:         make(map[string]bool, len(a.Effects)),
	}
	for _, f := range a.Preconditions {
		n.pre[f.String()] = true
	}
	for _, f := range a.Effects {
		n.eff[f.String()] = true
	}
	return n
}

// persistence returns the no-op action carrying p to the next level.
func persistence(p knowledge.Fact) knowledge.Action {
	signature := knowledge.NewPredicate(PersistenceName, strings.Fields(p.String())...)
	return knowledge.NewAction(signature, []knowledge.Fact{p}, []knowledge.Fact{p})
}

// orderSupporters puts persistence actions first, then orders by key.
func (l *Level) orderSupporters(keys []string) []string {
	out := slices.Clone(keys)
	slices.SortFunc(out, func(x, y string) int {
		px, py := l.byKey[x].persistence, l.byKey[y].persistence
		if px != py {
			if px {
				return -1
			}
			return 1
		}
		return strings.Compare(x, y)
	})
	return out
}

func (l *Level) computeActionMutexes(prev *Level) {
	for i, a := range l.nodes {
		for _, b := range l.nodes[i+1:] {
			if inconsistentEffects(a, b) || interferes(a, b) || interferes(b, a) || competingNeeds(prev, a, b) {
				l.actionMutex[newPair(a.key, b.key)] = struct{}{}
			}
		}
	}
}

// inconsistentEffects: one action's effect is the complement of the
// other's.
func inconsistentEffects(a, b *node) bool {
	for _, f := range a.action.Effects {
		if b.eff[f.Flip().String()] {
			return true
		}
	}
	return false
}

// interferes: a precondition of a is complemented by a precondition or an
// effect of b.
func interferes(a, b *node) bool {
	for _, f := range a.action.Preconditions {
		flipped := f.Flip().String()
		if b.pre[flipped] || b.eff[flipped] {
			return true
		}
	}
	return false
}

// competingNeeds: some pair of consumed propositions is mutex at prev.
func competingNeeds(prev *Level, a, b *node) bool {
	for _, p := range a.requires {
		for _, q := range b.requires {
			if prev.mutexKeys(p, q) {
				return true
			}
		}
	}
	return false
}

func (l *Level) computePropositionMutexes(exclusions map[pair]struct{}) {
	props := l.propositions.Facts()
	for i, f := range props {
		fk := f.String()
		for _, g := range props[i+1:] {
			gk := g.String()
			key := newPair(fk, gk)
			switch {
			case f.Complements(g):
				l.propMutex[key] = struct{}{}
			case hasPair(exclusions, key):
				l.propMutex[key] = struct{}{}
			case l.index > 0 && l.exclusiveSupport(fk, gk):
				l.propMutex[key] = struct{}{}
			}
		}
	}
}

// exclusiveSupport reports whether every pair of supporters of f and g is
// action-mutex. An action is never mutex with itself.
func (l *Level) exclusiveSupport(f, g string) bool {
	for _, a := range l.supporters[f] {
		for _, b := range l.supporters[g] {
			if a == b {
				return false
			}
			if _, ok := l.actionMutex[newPair(a, b)]; !ok {
				return false
			}
		}
	}
	return true
}

func (l *Level) anyMutex(keys []string) bool {
	for i, p := range keys {
		for _, q := range keys[i+1:] {
			if l.mutexKeys(p, q) {
				return true
			}
		}
	}
	return false
}

func (l *Level) mutexKeys(p, q string) bool {
	_, ok := l.propMutex[newPair(p, q)]
	return ok
}

func hasPair(set map[pair]struct{}, key pair) bool {
	_, ok := set[key]
	return ok
}

func factKeys(facts []knowledge.Fact) []string {
	out := make([]string, len(facts))
	for i, f := range facts {
		out[i] = f.String()
	}
	return out
}

// exclusionPairs derives the proposition pairs ground constraints rule
// out: each antecedent paired with the complement of each consequent.
func exclusionPairs(constraints []knowledge.Constraint) map[pair]struct{} {
	out := make(map[pair]struct{})
	for _, c := range constraints {
		antecedent := knowledge.Fact{Predicate: c.Antecedent, Positive: true}.String()
		for _, x := range c.Excludes() {
			out[newPair(antecedent, x.String())] = struct{}{}
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Queries
// -----------------------------------------------------------------------------

// Index returns the level number; 0 is the initial level.
func (l *Level) Index() int {
	return l.index
}

// Propositions returns the proposition layer.
func (l *Level) Propositions() knowledge.State {
	return l.propositions
}

// Actions returns the action layer, persistence actions included, in
// construction order.
func (l *Level) Actions() []knowledge.Action {
	out := make([]knowledge.Action, len(l.nodes))
	for i, n := range l.nodes {
		out[i] = n.action
	}
	return out
}

// IsPersistence reports whether a is a synthesized persistence action of
// this level.
func (l *Level) IsPersistence(a knowledge.Action) bool {
	n, ok := l.byKey[a.String()]
	return ok && n.persistence
}

// Supporters returns the actions of this level that produce f,
// persistence actions first.
func (l *Level) Supporters(f knowledge.Fact) []knowledge.Action {
	return l.lookup(l.supporters[f.String()])
}

// Consumers returns the actions of this level that consume f, a
// proposition of the previous level.
func (l *Level) Consumers(f knowledge.Fact) []knowledge.Action {
	return l.lookup(l.consumers[f.String()])
}

// Produces returns the propositions a produces at this level.
func (l *Level) Produces(a knowledge.Action) []knowledge.Fact {
	n, ok := l.byKey[a.String()]
	if !ok {
		return nil
	}
	return slices.Clone(n.action.Effects)
}

// ActionsMutex reports whether a and b are mutually exclusive here.
func (l *Level) ActionsMutex(a, b knowledge.Action) bool {
	_, ok := l.actionMutex[newPair(a.String(), b.String())]
	return ok
}

// PropositionsMutex reports whether f and g are mutually exclusive here.
func (l *Level) PropositionsMutex(f, g knowledge.Fact) bool {
	return l.mutexKeys(f.String(), g.String())
}

// MutexCounts returns the number of action and proposition mutex pairs.
func (l *Level) MutexCounts() (actions, propositions int) {
	return len(l.actionMutex), len(l.propMutex)
}

func (l *Level) lookup(keys []string) []knowledge.Action {
	out := make([]knowledge.Action, 0, len(keys))
	for _, k := range keys {
		out = append(out, l.byKey[k].action)
	}
	return out
}
