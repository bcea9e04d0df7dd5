// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package algorithms

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianPlanner/services/planner/domain"
	"github.com/AleutianAI/AleutianPlanner/services/planner/knowledge"
)

func blocksInput(t *testing.T) Input {
	t.Helper()
	compiled, err := domain.MustExample("blocks").Compile()
	require.NoError(t, err)
	return Input{Goals: compiled.Goals, Problem: compiled.Problem}
}

func plan(steps ...string) *knowledge.Plan {
	preds := make([]knowledge.Predicate, len(steps))
	for i, s := range steps {
		preds[i] = knowledge.MustParsePredicate(s)
	}
	return knowledge.NewPlan(preds...)
}

func TestHolds(t *testing.T) {
	state := knowledge.NewState(knowledge.Literal("clear", "s3"), knowledge.Literal("handempty"))

	assert.True(t, Holds(state, knowledge.Literal("clear", "s3")))
	assert.False(t, Holds(state, knowledge.Literal("clear", "s5")))
	assert.True(t, Holds(state, knowledge.Negation("holding", "s3")), "closed world")
	assert.False(t, Holds(state, knowledge.Negation("clear", "s3")))
}

func TestValidateGoals(t *testing.T) {
	err := ValidateGoals("test", nil)
	require.ErrorIs(t, err, ErrNoGoals)
	var algErr *AlgorithmError
	require.True(t, errors.As(err, &algErr))
	assert.Equal(t, "test", algErr.Algorithm)
	assert.Equal(t, "test.PlanGoals: at least one goal is required", err.Error())

	err = ValidateGoals("test", []knowledge.Fact{{Positive: true}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = ValidateGoals("test", []knowledge.Fact{knowledge.Literal("on", "s3", "s5"), knowledge.Literal("clear", "X")})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "clear X")

	assert.NoError(t, ValidateGoals("test", []knowledge.Fact{knowledge.Literal("handempty")}))
	assert.NoError(t, ValidateGoals("test", []knowledge.Fact{knowledge.Negation("holding", "s3")}))
}

func TestCancelled(t *testing.T) {
	err := Cancelled("graphplan", context.Canceled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "graphplan.PlanGoals")
}

func TestPlanProperties(t *testing.T) {
	input := blocksInput(t)
	executable := PlanExecutableProperty()
	reaches := PlanReachesGoalProperty()

	t.Run("valid plan", func(t *testing.T) {
		p := plan("pickup s3", "stack s3 s5")
		assert.NoError(t, executable.Check(input, p))
		assert.NoError(t, reaches.Check(&input, p))
	})

	t.Run("executable but short", func(t *testing.T) {
		p := plan("pickup s3")
		assert.NoError(t, executable.Check(input, p))
		assert.Error(t, reaches.Check(input, p))
	})

	t.Run("inapplicable step", func(t *testing.T) {
		p := plan("stack s3 s5")
		assert.Error(t, executable.Check(input, p))
		assert.Error(t, reaches.Check(input, p))
	})

	t.Run("nil plan holds vacuously", func(t *testing.T) {
		assert.NoError(t, executable.Check(input, nil))
		assert.NoError(t, reaches.Check(input, (*knowledge.Plan)(nil)))
	})

	t.Run("wrong types", func(t *testing.T) {
		assert.ErrorIs(t, executable.Check("input", plan()), ErrInvalidInput)
		assert.ErrorIs(t, reaches.Check(input, []string{"pickup s3"}), ErrInvalidInput)
		assert.ErrorIs(t, reaches.Check((*Input)(nil), plan()), ErrInvalidInput)
	})
}
