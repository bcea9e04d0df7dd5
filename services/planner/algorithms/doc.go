// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package algorithms defines the contract shared by the search strategies.
//
// Architecture:
//
//	┌───────────────────────────────────────────────────────────────────┐
//	│                        PLANNING REQUEST                            │
//	├───────────────────────────────────────────────────────────────────┤
//	│                                                                    │
//	│   goals + knowledge.Problem                                        │
//	│      │                                                             │
//	│      ▼                                                             │
//	│   ┌──────────────────────┐     ┌──────────────────────┐            │
//	│   │  goalstack.Planner   │     │  graphplan.Planner   │            │
//	│   │  regression search   │     │  leveled graph with  │            │
//	│   │  over a goal stack   │     │  mutexes, extraction │            │
//	│   └──────────┬───────────┘     └──────────┬───────────┘            │
//	│              │                            │                        │
//	│              └──────────┬─────────────────┘                        │
//	│                         ▼                                          │
//	│              grounding.Cache (shared, read-only results)           │
//	│                         │                                          │
//	│                         ▼                                          │
//	│                 *knowledge.Plan or nil                             │
//	│                                                                    │
//	└───────────────────────────────────────────────────────────────────┘
//
// Planner Contract:
//
//	Planners MUST:
//	1. Treat their inputs as immutable
//	2. Check ctx.Err() once per search step
//	3. Return (nil, nil) when no plan exists within their bound
//	4. Return an empty plan when the goals already hold
//	5. Break ties deterministically so repeated runs return the same plan
//	6. Implement eval.Evaluable
//
//	Errors are reserved for invalid input, invalid configuration and
//	cancellation, always wrapped in *AlgorithmError.
//
// Tie-Break Order:
//
//	Schemas are considered in declaration order. Ground instances of one
//	schema are ordered by their canonical text (signature, sorted
//	preconditions, sorted effects). Each strategy documents how it orders
//	candidates on top of that.
package algorithms
