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

import "errors"

// Sentinel errors for the planner service.
var (
	// ErrNoPlan indicates the search ended without a plan within its bounds.
	ErrNoPlan = errors.New("no plan found")

	// ErrUnknownStrategy indicates a strategy name the service does not run.
	ErrUnknownStrategy = errors.New("unknown strategy")

	// ErrPlanTimeout indicates the planning deadline passed.
	ErrPlanTimeout = errors.New("planning timed out")

	// ErrPlanRejected indicates a planner returned a plan that failed its
	// own correctness properties.
	ErrPlanRejected = errors.New("plan failed verification")

	// ErrStorageUnavailable indicates no domain store is configured.
	ErrStorageUnavailable = errors.New("domain storage unavailable")
)
