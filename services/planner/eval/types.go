// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package eval defines the evaluation contract planners implement so the
// service can list their guarantees, check them against produced plans and
// probe their health.
package eval

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
)

// Package-level error definitions.
var (
	ErrNotFound          = errors.New("component not found")
	ErrAlreadyRegistered = errors.New("component already registered")
	ErrNilComponent      = errors.New("component must not be nil")
	ErrInvalidProperty   = errors.New("invalid property definition")
	ErrInvalidMetric     = errors.New("invalid metric definition")
	ErrPropertyFailed    = errors.New("property check failed")
)

// -----------------------------------------------------------------------------
// Core Interfaces
// -----------------------------------------------------------------------------

// Evaluable is implemented by every component that can be verified and
// monitored.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Evaluable interface {
	// Name returns a stable identifier suitable for metric labels
	// (lowercase, underscore separated), e.g. "goalstack".
	Name() string

	// Properties returns the correctness properties the component
	// guarantees. An empty slice means nothing to verify.
	Properties() []Property

	// Metrics returns the metrics the component exposes.
	Metrics() []MetricDefinition

	// HealthCheck returns nil when the component is usable.
	//
	// Inputs:
	//   - ctx: Context for cancellation. Must not be nil.
	HealthCheck(ctx context.Context) error
}

// -----------------------------------------------------------------------------
// Property Definition
// -----------------------------------------------------------------------------

// Property is a correctness invariant checked against an input/output pair.
//
// Example:
//
//	Property{
//	    Name:        "plan_reaches_goal",
//	    Description: "Executing the plan from the initial state satisfies every goal",
//	    Check:       func(input, output any) error { ... },
//	}
type Property struct {
	// Name is a unique, lowercase, underscore separated identifier.
	Name string

	// Description is a complete sentence explaining the invariant.
	Description string

	// Check returns nil when the property holds for input and output.
	Check func(input any, output any) error

	// Tags categorize the property, e.g. "critical".
	Tags []string

	// Timeout bounds a single check. Zero means DefaultPropertyTimeout.
	Timeout time.Duration
}

// DefaultPropertyTimeout bounds property checks without their own Timeout.
const DefaultPropertyTimeout = 5 * time.Second

// Validate checks that the property is well-formed.
func (p *Property) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProperty)
	}
	if p.Description == "" {
		return fmt.Errorf("%w: description is required for %s", ErrInvalidProperty, p.Name)
	}
	if p.Check == nil {
		return fmt.Errorf("%w: check function is required for %s", ErrInvalidProperty, p.Name)
	}
	return nil
}

// TagCritical marks a property whose failure invalidates the output.
const TagCritical = "critical"

// HasTag reports whether the property carries tag.
func (p *Property) HasTag(tag string) bool {
	return slices.Contains(p.Tags, tag)
}

// -----------------------------------------------------------------------------
// Metric Definition
// -----------------------------------------------------------------------------

// MetricType identifies the type of metric.
type MetricType int

const (
	// MetricCounter is a monotonically increasing value.
	MetricCounter MetricType = iota
	// MetricGauge is a value that can go up or down.
	MetricGauge
	// MetricHistogram records observations in buckets.
	MetricHistogram
)

// String returns the string representation of a MetricType.
func (m MetricType) String() string {
	switch m {
	case MetricCounter:
		return "counter"
	case MetricGauge:
		return "gauge"
	case MetricHistogram:
		return "histogram"
	default:
		return fmt.Sprintf("metric_type(%d)", m)
	}
}

// MetricDefinition describes a metric exposed by a component.
type MetricDefinition struct {
	// Name follows Prometheus conventions, e.g. "graphplan_levels_built".
	Name string

	Type MetricType

	Description string

	Labels []string

	// Buckets are the histogram bucket boundaries (histograms only).
	Buckets []float64
}

// Validate checks that the metric definition is well-formed.
func (m *MetricDefinition) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidMetric)
	}
	if m.Description == "" {
		return fmt.Errorf("%w: description is required for %s", ErrInvalidMetric, m.Name)
	}
	if m.Type == MetricHistogram && len(m.Buckets) == 0 {
		return fmt.Errorf("%w: histogram %s has no buckets", ErrInvalidMetric, m.Name)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Results
// -----------------------------------------------------------------------------

// PropertyResult is the outcome of one property check.
type PropertyResult struct {
	Property string        `json:"property"`
	Critical bool          `json:"critical"`
	Passed   bool          `json:"passed"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// VerifyResult collects the property results of one component.
type VerifyResult struct {
	Component  string           `json:"component"`
	Properties []PropertyResult `json:"properties"`
}

// Passed reports whether every property held.
func (r *VerifyResult) Passed() bool {
	for _, p := range r.Properties {
		if !p.Passed {
			return false
		}
	}
	return true
}

// FailedProperties returns the results that did not pass.
func (r *VerifyResult) FailedProperties() []PropertyResult {
	var failed []PropertyResult
	for _, p := range r.Properties {
		if !p.Passed {
			failed = append(failed, p)
		}
	}
	return failed
}

// CriticalFailures returns the failed results of critical properties.
func (r *VerifyResult) CriticalFailures() []PropertyResult {
	var failed []PropertyResult
	for _, p := range r.Properties {
		if !p.Passed && p.Critical {
			failed = append(failed, p)
		}
	}
	return failed
}

// HealthStatus represents the health state of a component.
type HealthStatus int

const (
	// HealthUnknown is the zero value.
	HealthUnknown HealthStatus = iota
	// HealthHealthy indicates the component is functioning correctly.
	HealthHealthy
	// HealthUnhealthy indicates the component is not functioning.
	HealthUnhealthy
)

// String returns the string representation of a HealthStatus.
func (h HealthStatus) String() string {
	switch h {
	case HealthUnknown:
		return "unknown"
	case HealthHealthy:
		return "healthy"
	case HealthUnhealthy:
		return "unhealthy"
	default:
		return fmt.Sprintf("health_status(%d)", h)
	}
}

// MarshalText renders the status name in JSON output.
func (h HealthStatus) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// HealthResult contains the result of a health check.
type HealthResult struct {
	Component string        `json:"component"`
	Status    HealthStatus  `json:"status"`
	Message   string        `json:"message"`
	Duration  time.Duration `json:"duration_ns"`
	Timestamp time.Time     `json:"timestamp"`
}
