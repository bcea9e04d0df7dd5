// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/AleutianAI/AleutianPlanner/services/planner/knowledge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sussman(t *testing.T) knowledge.Problem {
	t.Helper()
	var actions []knowledge.Action
	for _, line := range []string{
		"putdown X: holding X -> ontable X, handempty, clear X, not holding X",
		"pickup X: ontable X, clear X, handempty -> holding X, not ontable X, not clear X, not handempty",
		"stack X Y: clear Y, holding X -> handempty, on X Y, clear X, not holding X, not clear Y",
		"unstack X: on X Y, clear X, handempty -> holding X, clear Y, not handempty, not clear X, not on X Y",
	} {
		a, err := knowledge.ParseAction(line)
		require.NoError(t, err)
		actions = append(actions, a)
	}
	types, err := knowledge.ParseTypeDeclaration("X, Y: s2, s3, s4, s5")
	require.NoError(t, err)
	return knowledge.Problem{
		Actions: actions,
		Types:   []knowledge.TypeDeclaration{types},
		InitialState: knowledge.NewState(
			knowledge.Literal("clear", "s3"),
			knowledge.Literal("clear", "s4"),
			knowledge.Literal("handempty"),
			knowledge.Literal("on", "s3", "s2"),
			knowledge.Literal("on", "s4", "s5"),
		),
	}
}

func sussmanPlan() *knowledge.Plan {
	return knowledge.NewPlan(
		knowledge.NewPredicate("unstack", "s4"),
		knowledge.NewPredicate("putdown", "s4"),
		knowledge.NewPredicate("unstack", "s3"),
		knowledge.NewPredicate("stack", "s3", "s5"),
	)
}

func TestSimulatorExecutePlan(t *testing.T) {
	problem := sussman(t)

	t.Run("reaches the goal", func(t *testing.T) {
		sim := NewSimulator(problem)
		require.NoError(t, sim.ExecutePlan(context.Background(), sussmanPlan()))

		state := sim.ExpectedWorldState()
		assert.True(t, state.Contains(knowledge.Literal("on", "s3", "s5")))
		assert.True(t, state.Contains(knowledge.Literal("ontable", "s4")))
		assert.True(t, state.Contains(knowledge.Literal("handempty")))
		assert.False(t, state.Contains(knowledge.Literal("on", "s4", "s5")))
		assert.True(t, sussmanPlan().Equal(sim.History()))
	})

	t.Run("inapplicable step leaves state untouched", func(t *testing.T) {
		sim := NewSimulator(problem)
		bad := knowledge.NewPlan(
			knowledge.NewPredicate("unstack", "s4"),
			knowledge.NewPredicate("unstack", "s3"),
		)
		err := sim.ExecutePlan(context.Background(), bad)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrStepNotApplicable))

		var stepErr *StepError
		require.True(t, errors.As(err, &stepErr))
		assert.Equal(t, 1, stepErr.Index)
		assert.True(t, sim.ExpectedWorldState().Equal(problem.InitialState))
		assert.True(t, sim.History().Empty())
	})

	t.Run("unknown step", func(t *testing.T) {
		sim := NewSimulator(problem)
		err := sim.ExecutePlan(context.Background(), knowledge.NewPlan(knowledge.NewPredicate("fly", "s4")))
		assert.ErrorIs(t, err, ErrUnknownStep)
	})

	t.Run("nil plan is a no-op", func(t *testing.T) {
		sim := NewSimulator(problem)
		assert.NoError(t, sim.ExecutePlan(context.Background(), nil))
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		sim := NewSimulator(problem)
		assert.ErrorIs(t, sim.ExecutePlan(ctx, sussmanPlan()), context.Canceled)
	})
}

func TestSimulatorUndoRedo(t *testing.T) {
	problem := sussman(t)
	sim := NewSimulator(problem)

	assert.True(t, sim.UndoMove().Empty())
	assert.True(t, sim.RedoMove().Empty())

	require.NoError(t, sim.ExecutePlan(context.Background(), sussmanPlan()))
	final := sim.ExpectedWorldState()

	undone := sim.UndoMove()
	assert.Equal(t, "[stack s3 s5]", undone.String())
	assert.True(t, sim.ExpectedWorldState().Contains(knowledge.Literal("holding", "s3")))

	undone = sim.UndoMove()
	assert.Equal(t, "[unstack s3]", undone.String())

	assert.Equal(t, "[unstack s3]", sim.RedoMove().String())
	assert.Equal(t, "[stack s3 s5]", sim.RedoMove().String())
	assert.True(t, sim.RedoMove().Empty())
	assert.True(t, sim.ExpectedWorldState().Equal(final))

	sim.Reset()
	assert.True(t, sim.ExpectedWorldState().Equal(problem.InitialState))
}

func TestReplayRejectsConstraintViolation(t *testing.T) {
	problem := sussman(t)
	problem.Constraints = []knowledge.Constraint{
		knowledge.NewConstraint(knowledge.NewPredicate("ontable", "s4"), []knowledge.Fact{knowledge.Negation("handempty")}),
	}
	_, err := Replay(context.Background(), problem, sussmanPlan())
	assert.ErrorIs(t, err, ErrStateInconsistent)
}
