// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package planner is the planning service: it compiles domain documents,
// runs the goal-stack and planning graph algorithms and serves them over
// HTTP.
package planner

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianPlanner/services/planner/algorithms"
	"github.com/AleutianAI/AleutianPlanner/services/planner/algorithms/goalstack"
	"github.com/AleutianAI/AleutianPlanner/services/planner/algorithms/graphplan"
	"github.com/AleutianAI/AleutianPlanner/services/planner/config"
	"github.com/AleutianAI/AleutianPlanner/services/planner/domain"
	"github.com/AleutianAI/AleutianPlanner/services/planner/eval"
	"github.com/AleutianAI/AleutianPlanner/services/planner/executor"
	"github.com/AleutianAI/AleutianPlanner/services/planner/grounding"
	"github.com/AleutianAI/AleutianPlanner/services/planner/knowledge"
	"github.com/AleutianAI/AleutianPlanner/services/planner/storage/badger"
	"github.com/AleutianAI/AleutianPlanner/services/planner/telemetry"
)

// ServiceVersion is reported by the health endpoint.
const ServiceVersion = "0.1.0"

var tracer = otel.Tracer("aleutian.planner.service")

// Service runs planning requests.
//
// Description:
//
//	All planners share one grounding cache, so repeated requests against
//	the same domain skip grounding. Every plan returned is first checked
//	against the producing planner's properties. The portfolio strategy
//	runs both planners concurrently and returns whichever finds a plan
//	first.
//
// Thread Safety: Safe for concurrent use.
type Service struct {
	config   config.PlannerConfig
	cache    *grounding.Cache
	store    *badger.DomainStore
	metrics  *telemetry.Metrics
	registry *eval.Registry
	logger   *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithStore enables the stored-domain operations.
func WithStore(store *badger.DomainStore) ServiceOption {
	return func(s *Service) { s.store = store }
}

// WithMetrics records planning metrics.
func WithMetrics(metrics *telemetry.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = metrics }
}

// WithLogger sets the service logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a service using cfg's defaults and bounds.
func NewService(cfg config.PlannerConfig, opts ...ServiceOption) *Service {
	s := &Service{
		config:   cfg,
		cache:    grounding.NewCache(cfg.GroundingCacheSize),
		registry: eval.NewRegistry(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registry.MustRegister(s.planner(config.StrategyGoalStack, PlanOptions{}))
	s.registry.MustRegister(s.planner(config.StrategyGraphPlan, PlanOptions{}))
	return s
}

// PlanOptions overrides the configured defaults for one call. Zero
// values keep the defaults.
type PlanOptions struct {
	Strategy  string
	MaxDepth  int
	MaxLevels int
}

// PlanResult is a found plan.
type PlanResult struct {
	PlanID   string
	Strategy string
	Plan     *knowledge.Plan
	Duration time.Duration
}

// Plan searches for a plan achieving goals in compiled's problem.
//
// Inputs:
//   - ctx: Cancels the search. The configured planner timeout is applied
//     on top.
//   - compiled: The domain.
//   - goals: Goals to achieve. Empty uses compiled.Goals.
//   - opts: Per-call overrides.
//
// Outputs:
//   - *PlanResult: The plan and the strategy that produced it.
//   - error: ErrNoPlan, ErrUnknownStrategy, ErrPlanTimeout,
//     ErrPlanRejected, domain.ErrNoGoals or a wrapped
//     algorithms.AlgorithmError.
func (s *Service) Plan(ctx context.Context, compiled domain.Compiled, goals []knowledge.Fact, opts PlanOptions) (*PlanResult, error) {
	if len(goals) == 0 {
		goals = compiled.Goals
	}
	if len(goals) == 0 {
		return nil, domain.ErrNoGoals
	}
	strategy := opts.Strategy
	if strategy == "" {
		strategy = s.config.Strategy
	}

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	planID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "planner.Service.Plan",
		trace.WithAttributes(
			attribute.String("plan.id", planID),
			attribute.String("plan.domain", compiled.Name),
			attribute.String("plan.strategy", strategy),
			attribute.Int("plan.goals", len(goals)),
		))
	defer span.End()

	logger := telemetry.LoggerWithTrace(ctx, s.logger).With(
		slog.String("plan_id", planID),
		slog.String("domain", compiled.Name),
		slog.String("strategy", strategy))

	start := time.Now()
	plan, producer, err := s.run(ctx, strategy, goals, compiled.Problem, opts)
	elapsed := time.Since(start)

	switch {
	case err != nil && errors.Is(err, context.DeadlineExceeded):
		err = fmt.Errorf("%w after %s", ErrPlanTimeout, elapsed.Round(time.Millisecond))
		s.metrics.RecordPlan(ctx, strategy, telemetry.OutcomeCancelled, 0, elapsed)
	case err != nil && errors.Is(err, context.Canceled):
		s.metrics.RecordPlan(ctx, strategy, telemetry.OutcomeCancelled, 0, elapsed)
	case err != nil:
		s.metrics.RecordPlan(ctx, strategy, telemetry.OutcomeError, 0, elapsed)
	case plan == nil:
		err = ErrNoPlan
		s.metrics.RecordPlan(ctx, strategy, telemetry.OutcomeNoPlan, 0, elapsed)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		logger.Info("planning failed", slog.String("error", err.Error()), slog.Duration("elapsed", elapsed))
		return nil, err
	}

	if err := s.verify(ctx, producer, goals, compiled.Problem, plan); err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordError(ctx, "service", "PLAN_REJECTED")
		logger.Error("plan failed verification", slog.String("error", err.Error()))
		return nil, err
	}

	s.metrics.RecordPlan(ctx, producer, telemetry.OutcomeFound, plan.Len(), elapsed)
	span.SetAttributes(attribute.Int("plan.steps", plan.Len()), attribute.String("plan.producer", producer))
	logger.Info("plan found",
		slog.String("producer", producer),
		slog.Int("steps", plan.Len()),
		slog.Duration("elapsed", elapsed))

	return &PlanResult{PlanID: planID, Strategy: producer, Plan: plan, Duration: elapsed}, nil
}

func (s *Service) run(ctx context.Context, strategy string, goals []knowledge.Fact, problem knowledge.Problem, opts PlanOptions) (*knowledge.Plan, string, error) {
	switch strategy {
	case config.StrategyGoalStack, config.StrategyGraphPlan:
		plan, err := s.planner(strategy, opts).PlanGoals(ctx, goals, problem)
		return plan, strategy, err
	case config.StrategyPortfolio:
		return s.portfolio(ctx, goals, problem, opts)
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

// portfolio runs both planners and keeps the first plan found. The other
// planner is cancelled as soon as one succeeds.
func (s *Service) portfolio(ctx context.Context, goals []knowledge.Fact, problem knowledge.Problem, opts PlanOptions) (*knowledge.Plan, string, error) {
	type outcome struct {
		plan     *knowledge.Plan
		strategy string
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	found := make(chan outcome, 2)

	g, gctx := errgroup.WithContext(raceCtx)
	for _, name := range []string{config.StrategyGraphPlan, config.StrategyGoalStack} {
		planner := s.planner(name, opts)
		g.Go(func() error {
			plan, err := planner.PlanGoals(gctx, goals, problem)
			if err != nil {
				if raceCtx.Err() != nil && ctx.Err() == nil {
					return nil
				}
				return err
			}
			if plan != nil {
				found <- outcome{plan: plan, strategy: name}
				cancel()
			}
			return nil
		})
	}
	err := g.Wait()
	close(found)

	if first, ok := <-found; ok {
		return first.plan, first.strategy, nil
	}
	if err == nil {
		err = ctx.Err()
	}
	return nil, config.StrategyPortfolio, err
}

func (s *Service) planner(strategy string, opts PlanOptions) algorithms.Planner {
	switch strategy {
	case config.StrategyGoalStack:
		return goalstack.New(&goalstack.Config{
			MaxDepth: cmp.Or(opts.MaxDepth, s.config.MaxDepth),
			Cache:    s.cache,
			Logger:   s.logger,
		})
	default:
		return graphplan.New(&graphplan.Config{
			MaxLevels: cmp.Or(opts.MaxLevels, s.config.MaxLevels),
			Cache:     s.cache,
			Logger:    s.logger,
		})
	}
}

// verify checks the producing planner's properties against plan. Only
// critical failures reject the plan; the rest are logged.
func (s *Service) verify(ctx context.Context, producer string, goals []knowledge.Fact, problem knowledge.Problem, plan *knowledge.Plan) error {
	result, err := s.registry.Verify(ctx, producer, algorithms.Input{Goals: goals, Problem: problem}, plan)
	if err != nil {
		return err
	}
	if failed := result.CriticalFailures(); len(failed) > 0 {
		return fmt.Errorf("%w: %s: %s", ErrPlanRejected, failed[0].Property, failed[0].Error)
	}
	for _, f := range result.FailedProperties() {
		s.logger.Warn("plan property failed",
			slog.String("producer", producer),
			slog.String("property", f.Property),
			slog.String("error", f.Error))
	}
	return nil
}

// Simulate executes steps from the initial state of compiled's problem.
//
// Outputs:
//   - knowledge.State: The final state.
//   - bool: Whether every document goal holds in the final state.
//   - error: *executor.StepError for the first step that cannot run.
func (s *Service) Simulate(ctx context.Context, compiled domain.Compiled, steps []knowledge.Predicate) (knowledge.State, bool, error) {
	final, err := executor.Replay(ctx, compiled.Problem, knowledge.NewPlan(steps...),
		executor.WithCache(s.cache), executor.WithLogger(s.logger))
	if err != nil {
		return knowledge.State{}, false, err
	}
	satisfied := true
	for _, g := range compiled.Goals {
		satisfied = satisfied && algorithms.Holds(final, g)
	}
	return final, satisfied, nil
}

// Store returns the domain store, or ErrStorageUnavailable.
func (s *Service) Store() (*badger.DomainStore, error) {
	if s.store == nil {
		return nil, ErrStorageUnavailable
	}
	return s.store, nil
}

// Health runs every planner's health check.
func (s *Service) Health(ctx context.Context) []eval.HealthResult {
	return s.registry.HealthCheckAll(ctx)
}

// CacheStats returns grounding cache statistics.
func (s *Service) CacheStats() grounding.Stats {
	return s.cache.Stats()
}
