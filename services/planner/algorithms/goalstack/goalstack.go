// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package goalstack implements a STRIPS style regression planner over an
// explicit goal stack.
package goalstack

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianPlanner/services/planner/algorithms"
	"github.com/AleutianAI/AleutianPlanner/services/planner/eval"
	"github.com/AleutianAI/AleutianPlanner/services/planner/grounding"
	"github.com/AleutianAI/AleutianPlanner/services/planner/knowledge"
)

const algorithmName = "goalstack"

var tracer = otel.Tracer("aleutian.planner.goalstack")

// -----------------------------------------------------------------------------
// Goal-Stack Planner
// -----------------------------------------------------------------------------

// Planner searches backwards from the goals using a stack of goals and
// pending actions.
//
// Description:
//
//	The stack starts with the goals, the first goal on top. Each step pops
//	one element:
//
//	- A goal that already holds is discarded.
//	- A goal that does not hold is replaced, for each candidate action in
//	  turn, by the action followed by its preconditions as new goals. The
//	  first candidate whose branch succeeds wins.
//	- An action is applied if the current state satisfies it, appending
//	  its signature to the plan. Otherwise the branch fails.
//
//	The search succeeds when the stack is empty and every goal holds. It
//	is depth-first with chronological backtracking and gives up on a
//	branch once more than MaxDepth elements have been popped along it.
//
// Tie-Break Order:
//
//	Candidates for a goal are the well-formed ground instances of every
//	schema that can achieve it, sorted by the number of their
//	preconditions the current state does not satisfy, then by schema
//	declaration order, then by canonical text. Preconditions are pushed so
//	that they are resolved in sorted text order.
//
// Constraints:
//
//	A goal set that violates a ground constraint has no plan. A branch
//	whose successor state violates one fails.
//
// Thread Safety: Safe for concurrent use. Each call owns its search state.
type Planner struct {
	config *Config
}

// Config configures the goal-stack planner.
type Config struct {
	// MaxDepth bounds the number of stack pops along one branch.
	MaxDepth int

	// Cache memoizes groundings. Nil means a fresh cache per call.
	Cache *grounding.Cache

	// Logger receives branch-level debug output. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxDepth: 30,
	}
}

// New creates a goal-stack planner.
//
// Example:
//
//	planner := goalstack.New(nil)
//	plan, err := planner.Plan(ctx, knowledge.Literal("on", "s3", "s5"), problem)
func New(config *Config) *Planner {
	if config == nil {
		config = DefaultConfig()
	}
	return &Planner{config: config}
}

// Name implements eval.Evaluable.
func (p *Planner) Name() string {
	return algorithmName
}

// Plan implements algorithms.Planner.
func (p *Planner) Plan(ctx context.Context, goal knowledge.Fact, problem knowledge.Problem) (*knowledge.Plan, error) {
	return p.PlanGoals(ctx, []knowledge.Fact{goal}, problem)
}

// PlanGoals implements algorithms.Planner.
//
// Inputs:
//   - ctx: Checked once per stack pop. Must not be nil.
//   - goals: Facts that must all hold at the end. Must not be empty.
//   - problem: The domain and initial state.
//
// Outputs:
//   - *knowledge.Plan: The plan, empty if the goals already hold, nil if
//     none was found within MaxDepth.
//   - error: *algorithms.AlgorithmError for invalid input, invalid config
//     or cancellation.
func (p *Planner) PlanGoals(ctx context.Context, goals []knowledge.Fact, problem knowledge.Problem) (*knowledge.Plan, error) {
	if err := p.HealthCheck(ctx); err != nil {
		return nil, err
	}
	if err := algorithms.ValidateGoals(algorithmName, goals); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "goalstack.PlanGoals",
		trace.WithAttributes(
			attribute.Int("planner.goals", len(goals)),
			attribute.Int("planner.max_depth", p.config.MaxDepth),
		))
	defer span.End()

	s := newSearch(p.config, problem, goals)
	if !knowledge.NewState(goals...).Consistent(s.constraints) {
		s.logger.Debug("goals violate a domain constraint", slog.Int("goals", len(goals)))
		span.SetAttributes(attribute.Bool("planner.found", false))
		return nil, nil
	}

	var stack *frame
	for i := len(goals) - 1; i >= 0; i-- {
		stack = stack.push(element{goal: goals[i]})
	}

	steps, found, err := s.solve(ctx, stack, problem.InitialState, nil, 0)
	span.SetAttributes(
		attribute.Bool("planner.found", found),
		attribute.Int("goalstack.steps", s.steps),
		attribute.Int("goalstack.cutoffs", s.cutoffs),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, algorithms.Cancelled(algorithmName, err)
	}

	s.logger.Debug("goal-stack search finished",
		slog.Bool("found", found),
		slog.Int("steps", s.steps),
		slog.Int("cutoffs", s.cutoffs))
	if !found {
		return nil, nil
	}
	return knowledge.NewPlan(steps...), nil
}

// -----------------------------------------------------------------------------
// Stack
// -----------------------------------------------------------------------------

// element is either a goal or an action awaiting application.
type element struct {
	goal   knowledge.Fact
	action *knowledge.Action
}

// frame is an immutable singly linked stack node. Branches share their
// common tail, so pushing never copies.
type frame struct {
	elem element
	next *frame
}

func (f *frame) push(e element) *frame {
	return &frame{elem: e, next: f}
}

// -----------------------------------------------------------------------------
// Search
// -----------------------------------------------------------------------------

type search struct {
	problem     knowledge.Problem
	goals       []knowledge.Fact
	cache       *grounding.Cache
	constraints []knowledge.Constraint
	logger      *slog.Logger
	maxDepth    int

	steps   int
	cutoffs int
}

func newSearch(config *Config, problem knowledge.Problem, goals []knowledge.Fact) *search {
	cache := config.Cache
	if cache == nil {
		cache = grounding.NewCache(0)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &search{
		problem:     problem,
		goals:       goals,
		cache:       cache,
		constraints: cache.Constraints(problem),
		logger:      logger.With(slog.String("algorithm", algorithmName)),
		maxDepth:    config.MaxDepth,
	}
}

// solve pops one element and recurses on the remainder. Branches share no
// mutable state: stack frames are persistent and states are values.
func (s *search) solve(ctx context.Context, stack *frame, state knowledge.State, plan []knowledge.Predicate, depth int) ([]knowledge.Predicate, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if depth > s.maxDepth {
		s.cutoffs++
		return nil, false, nil
	}
	if stack == nil {
		for _, g := range s.goals {
			if !algorithms.Holds(state, g) {
				return nil, false, nil
			}
		}
		return plan, true, nil
	}
	s.steps++

	top, rest := stack.elem, stack.next
	if top.action != nil {
		return s.apply(ctx, *top.action, rest, state, plan, depth)
	}

	if algorithms.Holds(state, top.goal) {
		return s.solve(ctx, rest, state, plan, depth+1)
	}

	for _, action := range s.candidates(top.goal, state) {
		next := rest.push(element{action: &action})
		for i := len(action.Preconditions) - 1; i >= 0; i-- {
			next = next.push(element{goal: action.Preconditions[i]})
		}
		steps, found, err := s.solve(ctx, next, state, plan, depth+1)
		if err != nil || found {
			return steps, found, err
		}
	}
	return nil, false, nil
}

func (s *search) apply(ctx context.Context, action knowledge.Action, rest *frame, state knowledge.State, plan []knowledge.Predicate, depth int) ([]knowledge.Predicate, bool, error) {
	if !state.SatisfiesAction(action) {
		s.logger.Debug("action no longer applicable",
			slog.String("action", action.Predicate.String()),
			slog.Int("depth", depth))
		return nil, false, nil
	}
	next := state.Apply(action)
	if !next.Consistent(s.constraints) {
		s.logger.Debug("action violates a domain constraint",
			slog.String("action", action.Predicate.String()))
		return nil, false, nil
	}
	return s.solve(ctx, rest, next, append(slices.Clip(plan), action.Predicate), depth+1)
}

type candidate struct {
	action knowledge.Action
	unmet  int
	schema int
	key    string
}

// candidates returns the ground actions that can achieve goal, best first.
func (s *search) candidates(goal knowledge.Fact, state knowledge.State) []knowledge.Action {
	var ranked []candidate
	for i, schema := range s.problem.Actions {
		matched, ok := schema.Match(goal)
		if !ok {
			continue
		}
		for _, ground := range s.cache.Actions(s.problem, matched) {
			ranked = append(ranked, candidate{
				action: ground,
				unmet:  state.Unsatisfied(ground),
				schema: i,
				key:    ground.String(),
			})
		}
	}
	slices.SortStableFunc(ranked, func(a, b candidate) int {
		return cmp.Or(
			cmp.Compare(a.unmet, b.unmet),
			cmp.Compare(a.schema, b.schema),
			cmp.Compare(a.key, b.key),
		)
	})
	out := make([]knowledge.Action, len(ranked))
	for i, c := range ranked {
		out[i] = c.action
	}
	return out
}

// -----------------------------------------------------------------------------
// eval.Evaluable Implementation
// -----------------------------------------------------------------------------

// Properties returns the correctness properties of every returned plan.
func (p *Planner) Properties() []eval.Property {
	return []eval.Property{
		algorithms.PlanExecutableProperty(),
		algorithms.PlanReachesGoalProperty(),
	}
}

// Metrics returns the metrics this planner exposes.
func (p *Planner) Metrics() []eval.MetricDefinition {
	return []eval.MetricDefinition{
		{
			Name:        "goalstack_search_steps",
			Type:        eval.MetricHistogram,
			Description: "Stack elements popped per planning call",
			Buckets:     []float64{10, 50, 100, 500, 1000, 5000, 10000},
		},
		{
			Name:        "goalstack_depth_cutoffs_total",
			Type:        eval.MetricCounter,
			Description: "Branches abandoned at the depth bound",
		},
	}
}

// HealthCheck verifies the planner is configured correctly.
func (p *Planner) HealthCheck(_ context.Context) error {
	if p.config == nil {
		return &algorithms.AlgorithmError{
			Algorithm: algorithmName,
			Operation: "HealthCheck",
			Err:       algorithms.ErrInvalidConfig,
		}
	}
	if p.config.MaxDepth <= 0 {
		return &algorithms.AlgorithmError{
			Algorithm: algorithmName,
			Operation: "HealthCheck",
			Err:       errors.Join(algorithms.ErrInvalidConfig, errors.New("max depth must be positive")),
		}
	}
	return nil
}

var _ algorithms.Planner = (*Planner)(nil)
