// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package planner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/AleutianAI/AleutianPlanner/services/planner/config"
	"github.com/AleutianAI/AleutianPlanner/services/planner/domain"
	"github.com/AleutianAI/AleutianPlanner/services/planner/eval"
	"github.com/AleutianAI/AleutianPlanner/services/planner/executor"
	"github.com/AleutianAI/AleutianPlanner/services/planner/knowledge"
	"github.com/AleutianAI/AleutianPlanner/services/planner/storage/badger"
	"github.com/AleutianAI/AleutianPlanner/services/planner/telemetry"
)

func compile(t *testing.T, name string) domain.Compiled {
	t.Helper()
	compiled, err := domain.MustExample(name).Compile()
	require.NoError(t, err)
	return compiled
}

func newTestService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	return NewService(config.Default().Planner, opts...)
}

func newTestStore(t *testing.T) *badger.DomainStore {
	t.Helper()
	db, err := badger.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return badger.NewDomainStore(db)
}

func TestServicePlan(t *testing.T) {
	sussman := []string{"unstack s4", "putdown s4", "unstack s3", "stack s3 s5"}

	for _, strategy := range []string{config.StrategyGoalStack, config.StrategyGraphPlan} {
		t.Run(strategy, func(t *testing.T) {
			svc := newTestService(t)
			result, err := svc.Plan(context.Background(), compile(t, "sussman"), nil, PlanOptions{Strategy: strategy})
			require.NoError(t, err)
			assert.Equal(t, strategy, result.Strategy)
			assert.Equal(t, sussman, result.Plan.Strings())
			assert.NotEmpty(t, result.PlanID)
		})
	}

	t.Run("portfolio", func(t *testing.T) {
		svc := newTestService(t)
		result, err := svc.Plan(context.Background(), compile(t, "blocks"), nil, PlanOptions{Strategy: config.StrategyPortfolio})
		require.NoError(t, err)
		assert.Contains(t, []string{config.StrategyGoalStack, config.StrategyGraphPlan}, result.Strategy)
		assert.Equal(t, []string{"pickup s3", "stack s3 s5"}, result.Plan.Strings())
	})

	t.Run("default strategy", func(t *testing.T) {
		svc := newTestService(t)
		result, err := svc.Plan(context.Background(), compile(t, "blocks"), nil, PlanOptions{})
		require.NoError(t, err)
		assert.Equal(t, config.StrategyGraphPlan, result.Strategy)
	})

	t.Run("explicit goals replace document goals", func(t *testing.T) {
		svc := newTestService(t)
		goals := []knowledge.Fact{knowledge.Negation("ontable", "s3")}
		result, err := svc.Plan(context.Background(), compile(t, "blocks"), goals, PlanOptions{Strategy: config.StrategyGoalStack})
		require.NoError(t, err)
		assert.Equal(t, []string{"pickup s3"}, result.Plan.Strings())
	})

	t.Run("goal already holds", func(t *testing.T) {
		svc := newTestService(t)
		goals := []knowledge.Fact{knowledge.Literal("clear", "s3")}
		result, err := svc.Plan(context.Background(), compile(t, "blocks"), goals, PlanOptions{})
		require.NoError(t, err)
		assert.True(t, result.Plan.Empty())
	})
}

func TestServicePlanErrors(t *testing.T) {
	t.Run("no plan", func(t *testing.T) {
		for _, strategy := range []string{config.StrategyGraphPlan, config.StrategyPortfolio} {
			svc := newTestService(t)
			_, err := svc.Plan(context.Background(), compile(t, "impossible"), nil, PlanOptions{Strategy: strategy})
			assert.ErrorIs(t, err, ErrNoPlan, strategy)
		}
	})

	t.Run("every step respects constraints", func(t *testing.T) {
		doc := domain.Document{
			Name:        "grab",
			Actions:     []string{"grab X: -> holding X"},
			Constraints: []string{"holding X -> not holding Y"},
			Types:       []string{"X, Y: a, b"},
			Initial:     []string{"holding a"},
			Goals:       []string{"holding b"},
		}
		compiled, err := doc.Compile()
		require.NoError(t, err)

		for _, strategy := range []string{config.StrategyGoalStack, config.StrategyGraphPlan, config.StrategyPortfolio} {
			svc := newTestService(t)
			_, err := svc.Plan(context.Background(), compiled, nil, PlanOptions{Strategy: strategy})
			assert.ErrorIs(t, err, ErrNoPlan, strategy)
		}
	})

	t.Run("depth override", func(t *testing.T) {
		svc := newTestService(t)
		_, err := svc.Plan(context.Background(), compile(t, "sussman"), nil,
			PlanOptions{Strategy: config.StrategyGoalStack, MaxDepth: 3})
		assert.ErrorIs(t, err, ErrNoPlan)
	})

	t.Run("unknown strategy", func(t *testing.T) {
		svc := newTestService(t)
		_, err := svc.Plan(context.Background(), compile(t, "blocks"), nil, PlanOptions{Strategy: "astar"})
		assert.ErrorIs(t, err, ErrUnknownStrategy)
	})

	t.Run("no goals", func(t *testing.T) {
		svc := newTestService(t)
		compiled := compile(t, "blocks")
		compiled.Goals = nil
		_, err := svc.Plan(context.Background(), compiled, nil, PlanOptions{})
		assert.ErrorIs(t, err, domain.ErrNoGoals)
	})

	t.Run("timeout", func(t *testing.T) {
		cfg := config.Default().Planner
		cfg.Timeout = time.Nanosecond
		svc := NewService(cfg)
		_, err := svc.Plan(context.Background(), compile(t, "sussman"), nil, PlanOptions{Strategy: config.StrategyGoalStack})
		assert.ErrorIs(t, err, ErrPlanTimeout)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		svc := newTestService(t)
		_, err := svc.Plan(ctx, compile(t, "sussman"), nil, PlanOptions{Strategy: config.StrategyGraphPlan})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestServiceMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := telemetry.NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	svc := newTestService(t, WithMetrics(metrics))
	_, err = svc.Plan(context.Background(), compile(t, "blocks"), nil, PlanOptions{})
	require.NoError(t, err)
	_, err = svc.Plan(context.Background(), compile(t, "impossible"), nil, PlanOptions{})
	require.ErrorIs(t, err, ErrNoPlan)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	total := int64(0)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "planner_plans_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	assert.Equal(t, int64(2), total)
	assert.Positive(t, svc.CacheStats().Entries)
}

func TestServiceSimulate(t *testing.T) {
	svc := newTestService(t)
	compiled := compile(t, "blocks")

	t.Run("reaches goals", func(t *testing.T) {
		steps := []knowledge.Predicate{
			knowledge.MustParsePredicate("pickup s3"),
			knowledge.MustParsePredicate("stack s3 s5"),
		}
		final, satisfied, err := svc.Simulate(context.Background(), compiled, steps)
		require.NoError(t, err)
		assert.True(t, satisfied)
		assert.True(t, final.Contains(knowledge.Literal("on", "s3", "s5")))
	})

	t.Run("partial plan", func(t *testing.T) {
		steps := []knowledge.Predicate{knowledge.MustParsePredicate("pickup s3")}
		final, satisfied, err := svc.Simulate(context.Background(), compiled, steps)
		require.NoError(t, err)
		assert.False(t, satisfied)
		assert.True(t, final.Contains(knowledge.Literal("holding", "s3")))
	})

	t.Run("inapplicable step", func(t *testing.T) {
		steps := []knowledge.Predicate{knowledge.MustParsePredicate("stack s3 s5")}
		_, _, err := svc.Simulate(context.Background(), compiled, steps)
		var stepErr *executor.StepError
		require.ErrorAs(t, err, &stepErr)
		assert.Equal(t, 0, stepErr.Index)
	})
}

func TestServiceStoreAndHealth(t *testing.T) {
	t.Run("without store", func(t *testing.T) {
		_, err := newTestService(t).Store()
		assert.ErrorIs(t, err, ErrStorageUnavailable)
	})

	t.Run("with store", func(t *testing.T) {
		store := newTestStore(t)
		svc := newTestService(t, WithStore(store))
		got, err := svc.Store()
		require.NoError(t, err)
		assert.Same(t, store, got)
	})

	t.Run("health", func(t *testing.T) {
		results := newTestService(t).Health(context.Background())
		require.Len(t, results, 2)
		for _, r := range results {
			assert.Equal(t, eval.HealthHealthy, r.Status, r.Component)
		}
	})
}
