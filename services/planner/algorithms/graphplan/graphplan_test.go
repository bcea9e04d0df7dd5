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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianPlanner/services/planner/algorithms"
	"github.com/AleutianAI/AleutianPlanner/services/planner/domain"
	"github.com/AleutianAI/AleutianPlanner/services/planner/eval"
	"github.com/AleutianAI/AleutianPlanner/services/planner/knowledge"
)

func compile(t *testing.T, name string) domain.Compiled {
	t.Helper()
	compiled, err := domain.MustExample(name).Compile()
	require.NoError(t, err)
	return compiled
}

// find returns the action of l whose signature renders as signature.
func find(t *testing.T, l *Level, signature string) knowledge.Action {
	t.Helper()
	for _, a := range l.Actions() {
		if a.Predicate.String() == signature {
			return a
		}
	}
	require.FailNow(t, "action not found", "%s at level %d", signature, l.Index())
	return knowledge.Action{}
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

func TestPlanGoalAlreadyHolds(t *testing.T) {
	compiled := compile(t, "blocks")

	for _, goal := range []knowledge.Fact{
		knowledge.Literal("clear", "s3"),
		knowledge.Negation("holding", "s3"),
	} {
		t.Run(goal.String(), func(t *testing.T) {
			plan, err := New(nil).Plan(context.Background(), goal, compiled.Problem)
			require.NoError(t, err)
			require.NotNil(t, plan)
			assert.True(t, plan.Empty())
		})
	}
}

func TestPlanNegativeGoal(t *testing.T) {
	compiled := compile(t, "blocks")

	plan, err := New(nil).Plan(context.Background(), knowledge.Negation("ontable", "s3"), compiled.Problem)
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, []string{"pickup s3"}, plan.Strings())
}

func TestPlanNoPlan(t *testing.T) {
	t.Run("constraint makes goals mutex", func(t *testing.T) {
		compiled := compile(t, "impossible")

		plan, err := New(&Config{MaxLevels: 4}).PlanGoals(context.Background(), compiled.Goals, compiled.Problem)
		require.NoError(t, err)
		assert.Nil(t, plan)
	})

	t.Run("leveled off", func(t *testing.T) {
		compiled := compile(t, "impossible")

		plan, err := New(nil).PlanGoals(context.Background(), compiled.Goals, compiled.Problem)
		require.NoError(t, err)
		assert.Nil(t, plan)
	})

	t.Run("no actions", func(t *testing.T) {
		compiled := compile(t, "blocks")
		problem := compiled.Problem
		problem.Actions = nil

		plan, err := New(nil).PlanGoals(context.Background(), compiled.Goals, problem)
		require.NoError(t, err)
		assert.Nil(t, plan)
	})

	t.Run("level bound too small", func(t *testing.T) {
		compiled := compile(t, "sussman")

		plan, err := New(&Config{MaxLevels: 3}).PlanGoals(context.Background(), compiled.Goals, compiled.Problem)
		require.NoError(t, err)
		assert.Nil(t, plan)
	})
}

// grabDomain holds one object at a time only when constrained.
func grabDomain(t *testing.T, constrained bool) domain.Compiled {
	t.Helper()
	doc := domain.Document{
		Name:    "grab",
		Actions: []string{"grab X: -> holding X"},
		Types:   []string{"X, Y: a, b"},
		Initial: []string{"holding a"},
		Goals:   []string{"holding b"},
	}
	if constrained {
		doc.Constraints = []string{"holding X -> not holding Y"}
	}
	compiled, err := doc.Compile()
	require.NoError(t, err)
	return compiled
}

func TestPlanRespectsConstraints(t *testing.T) {
	t.Run("carried fact breaks constraint", func(t *testing.T) {
		compiled := grabDomain(t, true)
		planner := New(nil)

		plan, err := planner.PlanGoals(context.Background(), compiled.Goals, compiled.Problem)
		require.NoError(t, err)
		assert.Nil(t, plan)

		result := eval.VerifyComponent(context.Background(), planner,
			algorithms.Input{Goals: compiled.Goals, Problem: compiled.Problem}, plan)
		assert.True(t, result.Passed())
	})

	t.Run("unconstrained", func(t *testing.T) {
		compiled := grabDomain(t, false)

		plan, err := New(nil).PlanGoals(context.Background(), compiled.Goals, compiled.Problem)
		require.NoError(t, err)
		require.NotNil(t, plan)
		assert.Equal(t, []string{"grab b"}, plan.Strings())
	})

	t.Run("graph replay", func(t *testing.T) {
		compiled := grabDomain(t, true)
		g := NewGraph(compiled.Problem, compiled.Goals, nil)
		grabA := knowledge.MustParseAction("grab a: -> holding a")
		grabB := knowledge.MustParseAction("grab b: -> holding b")

		assert.True(t, g.Consistent(nil))
		assert.True(t, g.Consistent([]knowledge.Action{grabA}))
		assert.False(t, g.Consistent([]knowledge.Action{grabB}))
	})
}

func TestPlanErrors(t *testing.T) {
	compiled := compile(t, "blocks")

	t.Run("no goals", func(t *testing.T) {
		_, err := New(nil).PlanGoals(context.Background(), []knowledge.Fact{}, compiled.Problem)
		assert.ErrorIs(t, err, algorithms.ErrNoGoals)
	})

	t.Run("goal with a variable", func(t *testing.T) {
		_, err := New(nil).Plan(context.Background(), knowledge.Literal("clear", "X"), compiled.Problem)
		assert.ErrorIs(t, err, algorithms.ErrInvalidInput)
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := New(&Config{MaxLevels: -1}).PlanGoals(context.Background(), compiled.Goals, compiled.Problem)
		assert.ErrorIs(t, err, algorithms.ErrInvalidConfig)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		plan, err := New(nil).PlanGoals(ctx, compiled.Goals, compiled.Problem)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, plan)
	})
}

func TestGraphLevels(t *testing.T) {
	compiled := compile(t, "blocks")
	g := NewGraph(compiled.Problem, compiled.Goals, nil)

	level0 := g.Level(0)
	require.NotNil(t, level0)
	assert.Equal(t, 0, g.Depth())
	assert.True(t, level0.Propositions().Equal(compiled.Problem.InitialState))
	assert.Empty(t, level0.Actions())
	assert.Nil(t, g.Level(1))

	extended := g.Extend()
	assert.Equal(t, 0, g.Depth(), "Extend must not modify the receiver")
	require.Equal(t, 1, extended.Depth())
	assert.Same(t, level0, extended.Level(0))

	level1 := extended.Top()
	pickup3 := find(t, level1, "pickup s3")
	pickup5 := find(t, level1, "pickup s5")
	keepHandEmpty := find(t, level1, "keep handempty")

	t.Run("persistence", func(t *testing.T) {
		assert.True(t, level1.IsPersistence(keepHandEmpty))
		assert.False(t, level1.IsPersistence(pickup3))

		supporters := level1.Supporters(knowledge.Literal("handempty"))
		require.Len(t, supporters, 1)
		assert.True(t, supporters[0].Equal(keepHandEmpty))
	})

	t.Run("links", func(t *testing.T) {
		consumers := level1.Consumers(knowledge.Literal("clear", "s3"))
		names := make([]string, len(consumers))
		for i, a := range consumers {
			names[i] = a.Predicate.String()
		}
		assert.ElementsMatch(t, []string{"pickup s3", "keep clear s3"}, names)

		produced := level1.Produces(pickup3)
		assert.Contains(t, produced, knowledge.Literal("holding", "s3"))
		assert.Contains(t, produced, knowledge.Negation("handempty"))
		assert.Nil(t, level1.Produces(knowledge.MustParseAction("noop: a -> b")))
	})

	t.Run("mutexes", func(t *testing.T) {
		assert.True(t, level1.ActionsMutex(pickup3, pickup5))
		assert.True(t, level1.ActionsMutex(pickup3, keepHandEmpty))
		assert.False(t, level1.ActionsMutex(pickup3, find(t, level1, "keep clear s5")))

		assert.True(t, level1.PropositionsMutex(knowledge.Literal("holding", "s3"), knowledge.Literal("holding", "s5")))
		assert.True(t, level1.PropositionsMutex(knowledge.Literal("handempty"), knowledge.Negation("handempty")))
		assert.True(t, level1.PropositionsMutex(knowledge.Literal("holding", "s3"), knowledge.Literal("handempty")))
		assert.False(t, level1.PropositionsMutex(knowledge.Literal("holding", "s3"), knowledge.Literal("clear", "s5")))
	})

	t.Run("stack needs two levels", func(t *testing.T) {
		assert.False(t, extended.Reachable(compiled.Goals, 1))
		assert.True(t, extended.Extend().Reachable(compiled.Goals, 2))
	})
}

func TestGraphMonotonic(t *testing.T) {
	compiled := compile(t, "sussman")
	g := NewGraph(compiled.Problem, compiled.Goals, nil)
	for range 4 {
		g = g.Extend()
	}

	for i := 0; i < g.Depth(); i++ {
		lower, upper := g.Level(i), g.Level(i+1)
		props := lower.Propositions().Facts()
		for _, f := range props {
			require.True(t, upper.Propositions().Contains(f), "level %d lost %s", i+1, f)
		}
		for x, f := range props {
			for _, h := range props[x+1:] {
				if upper.PropositionsMutex(f, h) {
					assert.True(t, lower.PropositionsMutex(f, h),
						"%s and %s became mutex at level %d", f, h, i+1)
				}
			}
		}
	}
}

func TestGraphConstraintMutex(t *testing.T) {
	compiled := compile(t, "impossible")
	g := NewGraph(compiled.Problem, compiled.Goals, nil)
	for range 3 {
		g = g.Extend()
	}

	on35 := knowledge.Literal("on", "s3", "s5")
	on45 := knowledge.Literal("on", "s4", "s5")
	top := g.Top()
	require.True(t, top.Propositions().Contains(on35))
	require.True(t, top.Propositions().Contains(on45))
	assert.True(t, top.PropositionsMutex(on35, on45))
	assert.False(t, g.Reachable(compiled.Goals, g.Depth()))
}

func TestNoPersistenceStepsProperty(t *testing.T) {
	prop := NoPersistenceStepsProperty()

	assert.NoError(t, prop.Check(nil, knowledge.NewPlan(knowledge.NewPredicate("pickup", "s3"))))
	assert.NoError(t, prop.Check(nil, nil))
	assert.Error(t, prop.Check(nil, knowledge.NewPlan(knowledge.NewPredicate(PersistenceName, "handempty"))))
}

func TestEvaluable(t *testing.T) {
	planner := New(nil)
	assert.Equal(t, "graphplan", planner.Name())
	assert.Len(t, planner.Properties(), 3)
	for _, m := range planner.Metrics() {
		assert.NoError(t, m.Validate())
	}
	assert.NoError(t, planner.HealthCheck(context.Background()))
}
