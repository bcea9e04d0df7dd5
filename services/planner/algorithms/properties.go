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
	"fmt"

	"github.com/AleutianAI/AleutianPlanner/services/planner/eval"
	"github.com/AleutianAI/AleutianPlanner/services/planner/executor"
	"github.com/AleutianAI/AleutianPlanner/services/planner/knowledge"
)

// PlanExecutableProperty holds when every step of the plan is applicable
// in sequence from the initial state. A nil plan holds vacuously.
func PlanExecutableProperty() eval.Property {
	return eval.Property{
		Name:        "plan_executable",
		Description: "Every plan step is applicable in sequence from the initial state.",
		Tags:        []string{eval.TagCritical},
		Check: func(input, output any) error {
			in, plan, err := unpack(input, output)
			if err != nil || plan == nil {
				return err
			}
			_, err = executor.Replay(context.Background(), in.Problem, plan)
			return err
		},
	}
}

// PlanReachesGoalProperty holds when executing the plan leaves a state
// satisfying every goal. A nil plan holds vacuously.
func PlanReachesGoalProperty() eval.Property {
	return eval.Property{
		Name:        "plan_reaches_goal",
		Description: "Executing the plan from the initial state satisfies every goal.",
		Tags:        []string{eval.TagCritical},
		Check: func(input, output any) error {
			in, plan, err := unpack(input, output)
			if err != nil || plan == nil {
				return err
			}
			final, err := executor.Replay(context.Background(), in.Problem, plan)
			if err != nil {
				return err
			}
			for _, g := range in.Goals {
				if !Holds(final, g) {
					return fmt.Errorf("goal %q does not hold after %s", g, plan)
				}
			}
			return nil
		},
	}
}

// Holds reports whether goal is true in state under the closed world
// assumption: a negative goal holds when its positive form is absent.
func Holds(state knowledge.State, goal knowledge.Fact) bool {
	if goal.Positive {
		return state.Satisfies(goal)
	}
	return state.Satisfies(goal) || !state.Satisfies(goal.Flip())
}

func unpack(input, output any) (Input, *knowledge.Plan, error) {
	var in Input
	switch v := input.(type) {
	case Input:
		in = v
	case *Input:
		if v == nil {
			return Input{}, nil, fmt.Errorf("%w: nil input", ErrInvalidInput)
		}
		in = *v
	default:
		return Input{}, nil, fmt.Errorf("%w: unexpected input type %T", ErrInvalidInput, input)
	}
	switch v := output.(type) {
	case *knowledge.Plan:
		return in, v, nil
	case nil:
		return in, nil, nil
	default:
		return Input{}, nil, fmt.Errorf("%w: unexpected output type %T", ErrInvalidInput, output)
	}
}
