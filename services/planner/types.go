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
	"github.com/AleutianAI/AleutianPlanner/services/planner/domain"
	"github.com/AleutianAI/AleutianPlanner/services/planner/eval"
)

// PlanRequest is the body of POST /v1/planner/plan.
type PlanRequest struct {
	// Domain is the inline domain document.
	Domain domain.Document `json:"domain"`

	// PlanOptionsRequest carries the search options.
	PlanOptionsRequest
}

// PlanOptionsRequest is the body of POST /v1/planner/domains/:name/plan
// and the option half of PlanRequest.
type PlanOptionsRequest struct {
	// Goals replaces the document's goals when non-empty.
	Goals []string `json:"goals,omitempty" binding:"omitempty,max=64,dive,required"`

	// Strategy is goalstack, graphplan or portfolio. Empty uses the
	// service default.
	Strategy string `json:"strategy,omitempty" binding:"omitempty,oneof=goalstack graphplan portfolio"`

	// MaxDepth overrides the goal-stack depth bound.
	MaxDepth int `json:"max_depth,omitempty" binding:"omitempty,min=1,max=10000"`

	// MaxLevels overrides the planning graph level bound.
	MaxLevels int `json:"max_levels,omitempty" binding:"omitempty,min=1,max=1000"`
}

// PlanResponse is returned when a plan is found.
type PlanResponse struct {
	// PlanID identifies this response in logs.
	PlanID string `json:"plan_id"`

	// Domain is the document name.
	Domain string `json:"domain"`

	// Strategy is the algorithm that produced the plan.
	Strategy string `json:"strategy"`

	// Found is true on every successful reply. Failures use ErrorResponse.
	Found bool `json:"found"`

	// Steps are the action signatures in execution order.
	Steps []string `json:"steps"`

	// DurationMs is the planning wall time.
	DurationMs int64 `json:"duration_ms"`
}

// SimulateRequest is the body of POST /v1/planner/simulate.
type SimulateRequest struct {
	Domain domain.Document `json:"domain"`
	Steps  []string        `json:"steps" binding:"max=1024,dive,required"`
}

// SimulateResponse reports the state after executing the steps.
type SimulateResponse struct {
	// State is the final world state, sorted.
	State []string `json:"state"`

	// GoalsSatisfied reports whether the document's goals hold at the end.
	GoalsSatisfied bool `json:"goals_satisfied"`
}

// DomainResponse describes a stored domain.
type DomainResponse struct {
	Domain  domain.Document `json:"domain"`
	Version uint64          `json:"version"`
}

// DomainListResponse lists stored domain names.
type DomainListResponse struct {
	Domains []string `json:"domains"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse is returned by the readiness endpoint.
type ReadyResponse struct {
	Ready      bool                `json:"ready"`
	Components []eval.HealthResult `json:"components"`
	Storage    bool                `json:"storage"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is a stable machine-readable code such as NO_PLAN.
	Code string `json:"code"`

	// RequestID echoes the X-Request-ID header.
	RequestID string `json:"request_id,omitempty"`
}
