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
	"fmt"

	"github.com/AleutianAI/AleutianPlanner/services/planner/eval"
	"github.com/AleutianAI/AleutianPlanner/services/planner/knowledge"
)

// Package-level error definitions.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidConfig = errors.New("invalid config")
	ErrNoGoals       = errors.New("at least one goal is required")
)

// AlgorithmError wraps algorithm-specific errors.
type AlgorithmError struct {
	Algorithm string
	Operation string
	Err       error
}

func (e *AlgorithmError) Error() string {
	return e.Algorithm + "." + e.Operation + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *AlgorithmError) Unwrap() error {
	return e.Err
}

// Planner computes a plan that drives a problem's initial state to one
// satisfying the goals.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Planner interface {
	eval.Evaluable

	// Plan is PlanGoals with a single goal.
	Plan(ctx context.Context, goal knowledge.Fact, problem knowledge.Problem) (*knowledge.Plan, error)

	// PlanGoals searches for a plan achieving every goal. Goals must be
	// ground facts.
	//
	// Outputs:
	//   - *knowledge.Plan: The first plan found, empty when the goals
	//     already hold, nil when no plan exists within the bound.
	//   - error: Non-nil only for invalid input, invalid configuration
	//     or cancellation.
	PlanGoals(ctx context.Context, goals []knowledge.Fact, problem knowledge.Problem) (*knowledge.Plan, error)
}

// Input is the input half of the pair checked by planner properties.
type Input struct {
	Goals   []knowledge.Fact
	Problem knowledge.Problem
}

// ValidateGoals rejects empty goal sets and goals that are not
// well-formed. Goals must be ground: both planners match goals against
// ground facts, and a variable goal has no single meaning across them.
func ValidateGoals(algorithm string, goals []knowledge.Fact) error {
	if len(goals) == 0 {
		return &AlgorithmError{Algorithm: algorithm, Operation: "PlanGoals", Err: ErrNoGoals}
	}
	for _, g := range goals {
		if g.Predicate.Name == "" {
			return &AlgorithmError{
				Algorithm: algorithm,
				Operation: "PlanGoals",
				Err:       fmt.Errorf("%w: goal without predicate name", ErrInvalidInput),
			}
		}
		if !g.Predicate.Ground() {
			return &AlgorithmError{
				Algorithm: algorithm,
				Operation: "PlanGoals",
				Err:       fmt.Errorf("%w: goal %q is not ground", ErrInvalidInput, g),
			}
		}
	}
	return nil
}

// Cancelled wraps a context error for algorithm.
func Cancelled(algorithm string, err error) error {
	return &AlgorithmError{Algorithm: algorithm, Operation: "PlanGoals", Err: err}
}
