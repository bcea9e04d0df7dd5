// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graphplan implements a planning graph planner.
//
// The planner grows a layered graph of propositions and actions from the
// initial state, tracking pairs that cannot hold or happen together, and
// extracts a plan backwards from the goals once they all appear without
// mutual exclusion. Steps within one level are independent and listed in
// sorted order.
package graphplan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianPlanner/services/planner/algorithms"
	"github.com/AleutianAI/AleutianPlanner/services/planner/eval"
	"github.com/AleutianAI/AleutianPlanner/services/planner/grounding"
	"github.com/AleutianAI/AleutianPlanner/services/planner/knowledge"
)

const algorithmName = "graphplan"

var tracer = otel.Tracer("aleutian.planner.graphplan")

// Planner is the planning graph planner.
//
// Description:
//
//	Extraction is first attempted on level 0. After each failed attempt
//	the graph is extended by one level, until MaxLevels levels have been
//	built. The search stops early once the graph has leveled off with
//	the goals still absent or mutex at the top level.
//
// Thread Safety: Safe for concurrent use. Each call builds its own graph.
type Planner struct {
	config *Config
}

// Config configures the graph planner.
type Config struct {
	// MaxLevels bounds the number of levels built after level 0.
	MaxLevels int

	// Cache memoizes groundings. Nil means a fresh cache per call.
	Cache *grounding.Cache

	// Logger receives per-level debug output. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxLevels: 15,
	}
}

// New creates a graph planner. A nil config uses DefaultConfig.
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
//   - ctx: Checked before each extension and each extraction step.
//   - goals: Facts that must all hold at the end. Must not be empty.
//   - problem: The domain and initial state.
//
// Outputs:
//   - *knowledge.Plan: The plan, empty if the goals already hold, nil if
//     none was found within MaxLevels.
//   - error: *algorithms.AlgorithmError for invalid input, invalid config
//     or cancellation.
func (p *Planner) PlanGoals(ctx context.Context, goals []knowledge.Fact, problem knowledge.Problem) (*knowledge.Plan, error) {
	if err := p.HealthCheck(ctx); err != nil {
		return nil, err
	}
	if err := algorithms.ValidateGoals(algorithmName, goals); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "graphplan.PlanGoals",
		trace.WithAttributes(
			attribute.Int("planner.goals", len(goals)),
			attribute.Int("planner.max_levels", p.config.MaxLevels),
		))
	defer span.End()

	logger := p.config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("algorithm", algorithmName))

	graph := NewGraph(problem, goals, p.config.Cache)
	x := newExtractor()
	steps, found, err := p.search(ctx, graph, goals, x, logger)

	span.SetAttributes(
		attribute.Bool("planner.found", found),
		attribute.Int("graphplan.extraction_attempts", x.attempts),
		attribute.Int("graphplan.nogood_hits", x.memoHits),
		attribute.Int("graphplan.constraint_rejections", x.rejections),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, algorithms.Cancelled(algorithmName, err)
	}
	if !found {
		return nil, nil
	}
	return knowledge.NewPlan(steps...), nil
}

func (p *Planner) search(ctx context.Context, graph *Graph, goals []knowledge.Fact, x *extractor, logger *slog.Logger) ([]knowledge.Predicate, bool, error) {
	for {
		steps, found, err := x.extract(ctx, graph, goals, graph.Depth(), nil)
		if err != nil || found {
			if found {
				logger.Debug("plan extracted",
					slog.Int("level", graph.Depth()),
					slog.Int("steps", len(steps)))
			}
			return steps, found, err
		}
		if graph.Depth() >= p.config.MaxLevels {
			logger.Debug("level bound reached", slog.Int("levels", graph.Depth()))
			return nil, false, nil
		}
		if graph.LeveledOff() && !graph.Reachable(knowledge.SortFacts(goals), graph.Depth()) {
			logger.Debug("graph leveled off without the goals", slog.Int("level", graph.Depth()))
			return nil, false, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}

		graph = graph.Extend()
		actions, props := graph.Top().MutexCounts()
		logger.Debug("graph extended",
			slog.Int("level", graph.Depth()),
			slog.Int("actions", len(graph.Top().nodes)),
			slog.Int("propositions", graph.Top().propositions.Len()),
			slog.Int("action_mutexes", actions),
			slog.Int("proposition_mutexes", props))
	}
}

// -----------------------------------------------------------------------------
// eval.Evaluable Implementation
// -----------------------------------------------------------------------------

// Properties returns the correctness properties of every returned plan.
func (p *Planner) Properties() []eval.Property {
	return []eval.Property{
		algorithms.PlanExecutableProperty(),
		algorithms.PlanReachesGoalProperty(),
		NoPersistenceStepsProperty(),
	}
}

// NoPersistenceStepsProperty holds when no plan step is a synthesized
// persistence action.
func NoPersistenceStepsProperty() eval.Property {
	return eval.Property{
		Name:        "no_persistence_steps",
		Description: "Persistence actions never appear in a returned plan.",
		Check: func(_, output any) error {
			plan, ok := output.(*knowledge.Plan)
			if !ok || plan == nil {
				return nil
			}
			for i, step := range plan.Steps {
				if step.Name == PersistenceName {
					return fmt.Errorf("step %d is a persistence action: %s", i, step)
				}
			}
			return nil
		},
	}
}

// Metrics returns the metrics this planner exposes.
func (p *Planner) Metrics() []eval.MetricDefinition {
	return []eval.MetricDefinition{
		{
			Name:        "graphplan_levels_built",
			Type:        eval.MetricHistogram,
			Description: "Graph levels built per planning call",
			Buckets:     []float64{1, 2, 4, 8, 16, 32},
		},
		{
			Name:        "graphplan_nogood_hits_total",
			Type:        eval.MetricCounter,
			Description: "Extractions pruned by the nogood memo",
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
	if p.config.MaxLevels < 0 {
		return &algorithms.AlgorithmError{
			Algorithm: algorithmName,
			Operation: "HealthCheck",
			Err:       errors.Join(algorithms.ErrInvalidConfig, errors.New("max levels must not be negative")),
		}
	}
	return nil
}

var _ algorithms.Planner = (*Planner)(nil)
