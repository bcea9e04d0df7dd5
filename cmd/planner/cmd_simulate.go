// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianPlanner/services/planner/algorithms"
	"github.com/AleutianAI/AleutianPlanner/services/planner/domain"
	"github.com/AleutianAI/AleutianPlanner/services/planner/executor"
	"github.com/AleutianAI/AleutianPlanner/services/planner/grounding"
	"github.com/AleutianAI/AleutianPlanner/services/planner/knowledge"
)

type simulateOptions struct {
	file string
	undo int
}

func newSimulateCmd(root *rootOptions) *cobra.Command {
	opts := &simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate -f FILE STEP...",
		Short: "Execute steps against a domain's initial state",
		Long: `Execute each step in order, then print the resulting world state and
whether the document's goals hold. With --undo N the last N moves are
reverted before printing.

Examples:
  planner simulate -f blocks.yaml "pickup s3" "stack s3 s5"
  planner simulate -f blocks.yaml "pickup s3" "stack s3 s5" --undo 1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd, root, opts, args)
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Domain document (YAML)")
	cmd.Flags().IntVar(&opts.undo, "undo", 0, "Moves to undo after executing")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runSimulate(cmd *cobra.Command, root *rootOptions, opts *simulateOptions, args []string) error {
	cfg, logger, err := root.load()
	if err != nil {
		return err
	}
	doc, err := domain.Load(opts.file)
	if err != nil {
		return err
	}
	compiled, err := doc.Compile()
	if err != nil {
		return err
	}
	steps := make([]knowledge.Predicate, 0, len(args))
	for _, arg := range args {
		step, err := knowledge.ParsePredicate(arg)
		if err != nil {
			return err
		}
		steps = append(steps, step)
	}

	sim := executor.NewSimulator(compiled.Problem,
		executor.WithCache(grounding.NewCache(cfg.Planner.GroundingCacheSize)),
		executor.WithLogger(logger))
	if err := sim.ExecutePlan(cmd.Context(), knowledge.NewPlan(steps...)); err != nil {
		return err
	}

	out := newPrinter(cmd.OutOrStdout())
	out.success(fmt.Sprintf("executed %d steps", len(steps)))
	for range opts.undo {
		undone := sim.UndoMove()
		if undone.Empty() {
			break
		}
		out.field("undo", undone.Steps[0])
	}

	state := sim.ExpectedWorldState()
	facts := make([]string, 0, state.Len())
	for _, f := range state.Facts() {
		facts = append(facts, f.String())
	}
	out.facts("state", facts)

	satisfied := true
	for _, g := range compiled.Goals {
		satisfied = satisfied && algorithms.Holds(state, g)
	}
	out.field("goals satisfied", satisfied)
	return nil
}
