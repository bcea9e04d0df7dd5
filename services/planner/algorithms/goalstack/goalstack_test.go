// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package goalstack

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianPlanner/services/planner/algorithms"
	"github.com/AleutianAI/AleutianPlanner/services/planner/domain"
	"github.com/AleutianAI/AleutianPlanner/services/planner/eval"
	"github.com/AleutianAI/AleutianPlanner/services/planner/grounding"
	"github.com/AleutianAI/AleutianPlanner/services/planner/knowledge"
)

func compile(t *testing.T, name string) domain.Compiled {
	t.Helper()
	compiled, err := domain.MustExample(name).Compile()
	require.NoError(t, err)
	return compiled
}

func TestPlanExamples(t *testing.T) {
	tests := []struct {
		name string
		want []string
	}{
		{name: "blocks", want: []string{"pickup s3", "stack s3 s5"}},
		{name: "sussman", want: []string{"unstack s4", "putdown s4", "unstack s3", "stack s3 s5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiled := compile(t, tt.name)
			planner := New(nil)

			plan, err := planner.PlanGoals(context.Background(), compiled.Goals, compiled.Problem)
			require.NoError(t, err)
			require.NotNil(t, plan)
			assert.Equal(t, tt.want, plan.Strings())

			result := eval.VerifyComponent(context.Background(), planner,
				algorithms.Input{Goals: compiled.Goals, Problem: compiled.Problem}, plan)
			assert.True(t, result.Passed(), "%+v", result.FailedProperties())
		})
	}
}

func TestPlanDeterministic(t *testing.T) {
	compiled := compile(t, "sussman")
	cache := grounding.NewCache(0)
	planner := New(&Config{MaxDepth: 30, Cache: cache})

	first, err := planner.PlanGoals(context.Background(), compiled.Goals, compiled.Problem)
	require.NoError(t, err)
	second, err := planner.PlanGoals(context.Background(), compiled.Goals, compiled.Problem)
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Positive(t, cache.Stats().Hits)
}

func TestPlanGoalAlreadyHolds(t *testing.T) {
	compiled := compile(t, "blocks")

	plan, err := New(nil).Plan(context.Background(), knowledge.Literal("clear", "s3"), compiled.Problem)
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.True(t, plan.Empty())
}

func TestPlanNegativeGoals(t *testing.T) {
	compiled := compile(t, "blocks")
	planner := New(nil)

	t.Run("achieved by a negative effect", func(t *testing.T) {
		plan, err := planner.Plan(context.Background(), knowledge.Negation("ontable", "s3"), compiled.Problem)
		require.NoError(t, err)
		require.NotNil(t, plan)
		assert.Equal(t, []string{"pickup s3"}, plan.Strings())
	})

	t.Run("absent atom holds under the closed world", func(t *testing.T) {
		plan, err := planner.Plan(context.Background(), knowledge.Negation("holding", "s3"), compiled.Problem)
		require.NoError(t, err)
		require.NotNil(t, plan)
		assert.True(t, plan.Empty())
	})
}

func TestPlanNoPlan(t *testing.T) {
	t.Run("no actions", func(t *testing.T) {
		compiled := compile(t, "blocks")
		problem := compiled.Problem
		problem.Actions = nil

		plan, err := New(nil).PlanGoals(context.Background(), compiled.Goals, problem)
		require.NoError(t, err)
		assert.Nil(t, plan)
	})

	t.Run("goals violate a constraint", func(t *testing.T) {
		compiled := compile(t, "impossible")

		plan, err := New(nil).PlanGoals(context.Background(), compiled.Goals, compiled.Problem)
		require.NoError(t, err)
		assert.Nil(t, plan)
	})

	t.Run("successor state violates a constraint", func(t *testing.T) {
		doc := domain.Document{
			Name:        "grab",
			Actions:     []string{"grab X: -> holding X"},
			Constraints: []string{"holding X -> not holding Y"},
			Types:       []string{"X, Y: a, b"},
			Initial:     []string{"holding a"},
			Goals:       []string{"holding b"},
		}
		constrained, err := doc.Compile()
		require.NoError(t, err)

		plan, err := New(nil).PlanGoals(context.Background(), constrained.Goals, constrained.Problem)
		require.NoError(t, err)
		assert.Nil(t, plan)

		doc.Constraints = nil
		free, err := doc.Compile()
		require.NoError(t, err)

		plan, err = New(nil).PlanGoals(context.Background(), free.Goals, free.Problem)
		require.NoError(t, err)
		require.NotNil(t, plan)
		assert.Equal(t, []string{"grab b"}, plan.Strings())
	})

	t.Run("depth bound too small", func(t *testing.T) {
		compiled := compile(t, "sussman")

		plan, err := New(&Config{MaxDepth: 3}).PlanGoals(context.Background(), compiled.Goals, compiled.Problem)
		require.NoError(t, err)
		assert.Nil(t, plan)
	})
}

func TestPlanErrors(t *testing.T) {
	compiled := compile(t, "blocks")

	t.Run("no goals", func(t *testing.T) {
		_, err := New(nil).PlanGoals(context.Background(), nil, compiled.Problem)
		assert.ErrorIs(t, err, algorithms.ErrNoGoals)
	})

	t.Run("goal with a variable", func(t *testing.T) {
		_, err := New(nil).Plan(context.Background(), knowledge.Literal("clear", "X"), compiled.Problem)
		assert.ErrorIs(t, err, algorithms.ErrInvalidInput)
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := New(&Config{MaxDepth: 0}).PlanGoals(context.Background(), compiled.Goals, compiled.Problem)
		assert.ErrorIs(t, err, algorithms.ErrInvalidConfig)

		var algErr *algorithms.AlgorithmError
		require.ErrorAs(t, err, &algErr)
		assert.Equal(t, "goalstack", algErr.Algorithm)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		plan, err := New(nil).PlanGoals(ctx, compiled.Goals, compiled.Problem)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, plan)
	})
}

func TestEvaluable(t *testing.T) {
	planner := New(nil)
	assert.Equal(t, "goalstack", planner.Name())
	assert.Len(t, planner.Properties(), 2)
	for _, m := range planner.Metrics() {
		assert.NoError(t, m.Validate())
	}
	assert.NoError(t, planner.HealthCheck(context.Background()))
}
