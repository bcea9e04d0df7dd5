// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the planner service instruments. Every name carries the
// "planner_" prefix.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// --- HTTP Metrics ---

	// HTTPRequestsTotal counts requests by method, route and status.
	HTTPRequestsTotal metric.Int64Counter

	// HTTPRequestDuration records request duration in seconds.
	HTTPRequestDuration metric.Float64Histogram

	// HTTPActiveRequests tracks in-flight requests.
	HTTPActiveRequests metric.Int64UpDownCounter

	// --- Planning Metrics ---

	// PlansTotal counts planning calls by strategy and outcome.
	PlansTotal metric.Int64Counter

	// PlanDuration records planning call duration in seconds.
	PlanDuration metric.Float64Histogram

	// PlanSteps records the length of every plan found.
	PlanSteps metric.Int64Histogram

	// --- Grounding Metrics ---

	// GroundingCacheEntries reports the cached groundings, observed on
	// collection.
	GroundingCacheEntries metric.Int64ObservableGauge

	// --- Error Metrics ---

	// ErrorsTotal counts errors by component and code.
	ErrorsTotal metric.Int64Counter
}

// Plan outcomes recorded on PlansTotal.
const (
	OutcomeFound     = "found"
	OutcomeNoPlan    = "no_plan"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// NewMetrics registers every instrument with meter.
//
// Example:
//
//	metrics, err := telemetry.NewMetrics(otel.Meter("aleutian.planner"))
//	if err != nil {
//	    return fmt.Errorf("create metrics: %w", err)
//	}
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"planner_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_requests_total: %w", err)
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"planner_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_request_duration: %w", err)
	}

	m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"planner_http_active_requests",
		metric.WithDescription("Currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_active_requests: %w", err)
	}

	m.PlansTotal, err = meter.Int64Counter(
		"planner_plans_total",
		metric.WithDescription("Planning calls by strategy and outcome"),
		metric.WithUnit("{plan}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create plans_total: %w", err)
	}

	m.PlanDuration, err = meter.Float64Histogram(
		"planner_plan_duration_seconds",
		metric.WithDescription("Planning call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30),
	)
	if err != nil {
		return nil, fmt.Errorf("create plan_duration: %w", err)
	}

	m.PlanSteps, err = meter.Int64Histogram(
		"planner_plan_steps",
		metric.WithDescription("Steps per plan found"),
		metric.WithUnit("{step}"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 4, 8, 16, 32, 64),
	)
	if err != nil {
		return nil, fmt.Errorf("create plan_steps: %w", err)
	}

	m.ErrorsTotal, err = meter.Int64Counter(
		"planner_errors_total",
		metric.WithDescription("Total errors by component and code"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create errors_total: %w", err)
	}

	return m, nil
}

// RecordPlan records one planning call.
//
// Inputs:
//   - strategy: The algorithm that produced the outcome.
//   - outcome: One of the Outcome constants.
//   - steps: Plan length, ignored unless outcome is OutcomeFound.
//   - elapsed: Wall time of the call.
func (m *Metrics) RecordPlan(ctx context.Context, strategy, outcome string, steps int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("strategy", strategy),
		attribute.String("outcome", outcome),
	)
	m.PlansTotal.Add(ctx, 1, attrs)
	m.PlanDuration.Record(ctx, elapsed.Seconds(), attrs)
	if outcome == OutcomeFound {
		m.PlanSteps.Record(ctx, int64(steps), metric.WithAttributes(attribute.String("strategy", strategy)))
	}
}

// RecordError counts one error.
func (m *Metrics) RecordError(ctx context.Context, component, code string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("component", component),
		attribute.String("code", code),
	))
}

// RegisterGroundingCache observes the grounding cache size on each
// collection.
//
// Inputs:
//   - meter: The meter that created m.
//   - entries: Returns the current number of cached groundings.
//
// Outputs:
//   - metric.Registration: Unregister on shutdown.
//   - error: Non-nil if registration fails.
func (m *Metrics) RegisterGroundingCache(meter metric.Meter, entries func() int64) (metric.Registration, error) {
	var err error
	m.GroundingCacheEntries, err = meter.Int64ObservableGauge(
		"planner_grounding_cache_entries",
		metric.WithDescription("Cached action and constraint groundings"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create grounding_cache_entries: %w", err)
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(m.GroundingCacheEntries, entries())
		return nil
	}, m.GroundingCacheEntries)
}
