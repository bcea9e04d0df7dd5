// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package executor applies plans to a world model.
//
// The Executor interface is what a robot controller implements. Simulator
// is the in-memory implementation used for validation, the CLI simulate
// command and plan properties.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/AleutianAI/AleutianPlanner/services/planner/grounding"
	"github.com/AleutianAI/AleutianPlanner/services/planner/knowledge"
)

// Package-level error definitions.
var (
	ErrUnknownStep       = errors.New("plan step matches no action schema")
	ErrStepNotApplicable = errors.New("plan step not applicable in current state")
	ErrStateInconsistent = errors.New("plan step violates a domain constraint")
)

// Executor carries out plans and supports undoing individual moves.
type Executor interface {
	// ExpectedWorldState returns the state the executor believes the world
	// is in.
	ExpectedWorldState() knowledge.State

	// ExecutePlan performs every step in order.
	ExecutePlan(ctx context.Context, plan *knowledge.Plan) error

	// UndoMove reverts the most recent move and returns the moves that
	// were performed to do so. The plan is empty when there is nothing to
	// undo.
	UndoMove() *knowledge.Plan

	// RedoMove performs the most recently undone move again. The plan is
	// empty when there is nothing to redo.
	RedoMove() *knowledge.Plan
}

// StepError reports the plan step that could not be executed.
type StepError struct {
	Index int
	Step  knowledge.Predicate
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Step, e.Err)
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error {
	return e.Err
}

type move struct {
	action knowledge.Action
	before knowledge.State
}

// Simulator executes plans against an in-memory State.
//
// Description:
//
//	Each plan step is a ground action signature. The simulator resolves a
//	step to a ground action by unifying it with every schema of the same
//	name and arity, grounding what remains and taking the first instance,
//	in canonical order, that the current state satisfies. Applying it
//	records a move so it can be undone.
//
//	ExecutePlan is all-or-nothing: when a step fails the expected state is
//	left as it was before the call.
//
// Thread Safety: Safe for concurrent use.
type Simulator struct {
	mu          sync.Mutex
	problem     knowledge.Problem
	cache       *grounding.Cache
	constraints []knowledge.Constraint
	logger      *slog.Logger
	state       knowledge.State
	done        []move
	undone      []move
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithCache shares a grounding cache with the simulator.
func WithCache(cache *grounding.Cache) Option {
	return func(s *Simulator) {
		if cache != nil {
			s.cache = cache
		}
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulator) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSimulator returns a simulator positioned at problem's initial state.
func NewSimulator(problem knowledge.Problem, opts ...Option) *Simulator {
	s := &Simulator{
		problem: problem,
		logger:  slog.Default(),
		state:   problem.InitialState,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = grounding.NewCache(0)
	}
	s.constraints = s.cache.Constraints(problem)
	return s
}

// ExpectedWorldState implements Executor.
func (s *Simulator) ExpectedWorldState() knowledge.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ExecutePlan implements Executor.
//
// Outputs:
//   - error: nil on success, a *StepError wrapping ErrUnknownStep,
//     ErrStepNotApplicable or ErrStateInconsistent, or ctx.Err().
func (s *Simulator) ExecutePlan(ctx context.Context, plan *knowledge.Plan) error {
	if plan == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.state
	moves := make([]move, 0, plan.Len())
	for i, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		action, err := s.resolve(state, step)
		if err != nil {
			return &StepError{Index: i, Step: step, Err: err}
		}
		next := state.Apply(action)
		if !next.Consistent(s.constraints) {
			return &StepError{Index: i, Step: step, Err: ErrStateInconsistent}
		}
		moves = append(moves, move{action: action, before: state})
		state = next
	}

	s.state = state
	s.done = append(s.done, moves...)
	s.undone = nil
	s.logger.Debug("plan executed",
		slog.Int("steps", plan.Len()),
		slog.Int("facts", state.Len()))
	return nil
}

// UndoMove implements Executor.
func (s *Simulator) UndoMove() *knowledge.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.done) == 0 {
		return knowledge.NewPlan()
	}
	last := s.done[len(s.done)-1]
	s.done = s.done[:len(s.done)-1]
	s.undone = append(s.undone, last)
	s.state = last.before
	return knowledge.NewPlan(last.action.Predicate)
}

// RedoMove implements Executor.
func (s *Simulator) RedoMove() *knowledge.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.undone) == 0 {
		return knowledge.NewPlan()
	}
	last := s.undone[len(s.undone)-1]
	s.undone = s.undone[:len(s.undone)-1]
	s.done = append(s.done, move{action: last.action, before: s.state})
	s.state = s.state.Apply(last.action)
	return knowledge.NewPlan(last.action.Predicate)
}

// History returns the signatures of the moves performed so far, oldest
// first.
func (s *Simulator) History() *knowledge.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()

	steps := make([]knowledge.Predicate, len(s.done))
	for i, m := range s.done {
		steps[i] = m.action.Predicate
	}
	return knowledge.NewPlan(steps...)
}

// Reset returns to the initial state and clears the history.
func (s *Simulator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = s.problem.InitialState
	s.done = nil
	s.undone = nil
}

// resolve finds the ground action a step refers to. Caller holds s.mu.
func (s *Simulator) resolve(state knowledge.State, step knowledge.Predicate) (knowledge.Action, error) {
	known := false
	for _, schema := range s.problem.Actions {
		u := schema.Predicate.Unify(step)
		if !u.Valid() {
			continue
		}
		known = true
		for _, ground := range s.cache.Actions(s.problem, schema.ApplyUnification(u)) {
			if ground.Predicate.Equal(step) && state.SatisfiesAction(ground) {
				return ground, nil
			}
		}
	}
	if !known {
		return knowledge.Action{}, ErrUnknownStep
	}
	return knowledge.Action{}, ErrStepNotApplicable
}

// Replay executes plan on a fresh simulator and returns the final state.
func Replay(ctx context.Context, problem knowledge.Problem, plan *knowledge.Plan, opts ...Option) (knowledge.State, error) {
	sim := NewSimulator(problem, opts...)
	if err := sim.ExecutePlan(ctx, plan); err != nil {
		return knowledge.State{}, err
	}
	return sim.ExpectedWorldState(), nil
}

var _ Executor = (*Simulator)(nil)
