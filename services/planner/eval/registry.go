// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package eval

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Registry manages the evaluable components of a process.
//
// Description:
//
//	The Registry provides a central place to register components, look
//	them up by name, run their health checks and verify their properties
//	against concrete input/output pairs.
//
// Thread Safety: Safe for concurrent use via read-write mutex.
type Registry struct {
	mu         sync.RWMutex
	components map[string]Evaluable
}

// NewRegistry creates a new empty registry.
//
// Example:
//
//	registry := eval.NewRegistry()
//	registry.MustRegister(goalstack.New(nil))
func NewRegistry() *Registry {
	return &Registry{components: make(map[string]Evaluable)}
}

// Register adds a component under its Name().
//
// Outputs:
//   - error: nil on success, ErrNilComponent if component is nil,
//     ErrAlreadyRegistered if the name is already taken.
func (r *Registry) Register(component Evaluable) error {
	if component == nil {
		return ErrNilComponent
	}
	name := component.Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.components[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}
	r.components[name] = component
	return nil
}

// MustRegister registers a component and panics on error. Use during
// startup only.
func (r *Registry) MustRegister(component Evaluable) {
	if err := r.Register(component); err != nil {
		panic(fmt.Sprintf("eval: failed to register: %v", err))
	}
}

// Get retrieves a component by name.
func (r *Registry) Get(name string) (Evaluable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	component, exists := r.components[name]
	return component, exists
}

// List returns all registered component names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HealthCheckAll runs every component's health check concurrently.
//
// Inputs:
//   - ctx: Context for cancellation. Must not be nil.
//
// Outputs:
//   - []HealthResult: One result per component, sorted by name.
func (r *Registry) HealthCheckAll(ctx context.Context) []HealthResult {
	r.mu.RLock()
	components := make(map[string]Evaluable, len(r.components))
	for name, c := range r.components {
		components[name] = c
	}
	r.mu.RUnlock()

	results := make([]HealthResult, 0, len(components))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, component := range components {
		wg.Add(1)
		go func(name string, component Evaluable) {
			defer wg.Done()

			start := time.Now()
			result := HealthResult{Component: name, Status: HealthHealthy, Message: "OK"}
			if err := ctx.Err(); err != nil {
				result.Status = HealthUnknown
				result.Message = "context cancelled"
			} else if err := component.HealthCheck(ctx); err != nil {
				result.Status = HealthUnhealthy
				result.Message = err.Error()
			}
			result.Duration = time.Since(start)
			result.Timestamp = time.Now()

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		}(name, component)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Component < results[j].Component
	})
	return results
}

// Verify checks every property of the named component against one
// input/output pair.
//
// Outputs:
//   - *VerifyResult: Per-property outcomes.
//   - error: ErrNotFound if the component is not registered.
func (r *Registry) Verify(ctx context.Context, name string, input, output any) (*VerifyResult, error) {
	component, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return VerifyComponent(ctx, component, input, output), nil
}

// VerifyComponent checks every property of component against one
// input/output pair. Each check runs under its own timeout; a check that
// exceeds it is reported as failed.
func VerifyComponent(ctx context.Context, component Evaluable, input, output any) *VerifyResult {
	result := &VerifyResult{Component: component.Name()}
	for _, prop := range component.Properties() {
		result.Properties = append(result.Properties, checkProperty(ctx, prop, input, output))
	}
	return result
}

func checkProperty(ctx context.Context, prop Property, input, output any) PropertyResult {
	timeout := prop.Timeout
	if timeout <= 0 {
		timeout = DefaultPropertyTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- prop.Check(input, output)
	}()

	res := PropertyResult{Property: prop.Name, Critical: prop.HasTag(TagCritical)}
	select {
	case err := <-done:
		if err != nil {
			res.Error = fmt.Errorf("%w: %s: %v", ErrPropertyFailed, prop.Name, err).Error()
		} else {
			res.Passed = true
		}
	case <-ctx.Done():
		res.Error = fmt.Sprintf("%s: %v", prop.Name, ctx.Err())
	}
	res.Duration = time.Since(start)
	return res
}
