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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianPlanner/services/planner"
	"github.com/AleutianAI/AleutianPlanner/services/planner/domain"
	"github.com/AleutianAI/AleutianPlanner/services/planner/grounding"
	"github.com/AleutianAI/AleutianPlanner/services/planner/knowledge"
)

type planOptions struct {
	file      string
	strategy  string
	maxDepth  int
	maxLevels int
	goals     []string
	watch     bool
	json      bool
}

func newPlanCmd(root *rootOptions) *cobra.Command {
	opts := &planOptions{}
	cmd := &cobra.Command{
		Use:   "plan -f FILE",
		Short: "Find a plan for a domain document",
		Long: `Find a plan that achieves the document's goals from its initial state.

Strategies:
  graphplan  - planning graph, shortest parallel plan (default)
  goalstack  - goal-stack regression, depth bounded
  portfolio  - run both, keep the first plan found

Examples:
  planner plan -f blocks.yaml
  planner plan -f blocks.yaml --strategy goalstack --max-depth 40
  planner plan -f blocks.yaml --goal "holding s3"
  planner plan -f blocks.yaml --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlan(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Domain document (YAML)")
	cmd.Flags().StringVar(&opts.strategy, "strategy", "",
		"Search strategy: goalstack, graphplan, portfolio (default from config)")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", 0,
		"Goal-stack depth bound (0 = config default)")
	cmd.Flags().IntVar(&opts.maxLevels, "max-levels", 0,
		"Planning graph level bound (0 = config default)")
	cmd.Flags().StringArrayVar(&opts.goals, "goal", nil,
		"Goal fact, repeatable. Replaces the document's goals")
	cmd.Flags().BoolVar(&opts.watch, "watch", false,
		"Re-plan whenever the document changes")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output as JSON for scripting")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runPlan(cmd *cobra.Command, root *rootOptions, opts *planOptions) error {
	cfg, logger, err := root.load()
	if err != nil {
		return err
	}
	goals, err := domain.ParseGoals(opts.goals)
	if err != nil {
		return err
	}

	svc := planner.NewService(cfg.Planner, planner.WithLogger(logger))
	out := newPrinter(cmd.OutOrStdout())
	planOpts := planner.PlanOptions{
		Strategy:  opts.strategy,
		MaxDepth:  opts.maxDepth,
		MaxLevels: opts.maxLevels,
	}

	doc, err := domain.Load(opts.file)
	if err != nil {
		return err
	}
	if !opts.watch {
		return planDocument(cmd.Context(), svc, out, doc, goals, planOpts, opts.json)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := planDocument(ctx, svc, out, doc, goals, planOpts, opts.json); err != nil {
		out.failure(err.Error())
	}
	watcher, err := domain.NewWatcher(opts.file, 0, func(doc domain.Document, err error) {
		if err != nil {
			out.failure(fmt.Sprintf("reload %s: %v", opts.file, err))
			return
		}
		if err := planDocument(ctx, svc, out, doc, goals, planOpts, opts.json); err != nil {
			out.failure(err.Error())
		}
	}, logger)
	if err != nil {
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Stop()

	logger.Info("Watching domain document", slog.String("file", opts.file))
	<-ctx.Done()
	return nil
}

// planDocument plans once and prints the result.
func planDocument(ctx context.Context, svc *planner.Service, out *printer, doc domain.Document, goals []knowledge.Fact, opts planner.PlanOptions, asJSON bool) error {
	compiled, err := doc.Compile()
	if err != nil {
		return err
	}
	result, err := svc.Plan(ctx, compiled, goals, opts)
	if err != nil {
		if errors.Is(err, planner.ErrNoPlan) && !asJSON {
			out.warning(fmt.Sprintf("no plan for %s", doc.Name))
		}
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out.w)
		enc.SetIndent("", "  ")
		return enc.Encode(planner.PlanResponse{
			PlanID:     result.PlanID,
			Domain:     compiled.Name,
			Strategy:   result.Strategy,
			Found:      true,
			Steps:      result.Plan.Strings(),
			DurationMs: result.Duration.Milliseconds(),
		})
	}
	out.steps(fmt.Sprintf("%s (%s, %d steps)", doc.Name, result.Strategy, result.Plan.Len()), result.Plan.Strings())
	if !out.plain {
		out.field("time", result.Duration.Round(time.Microsecond))
	}
	return nil
}

type validateOptions struct {
	file string
}

func newValidateCmd(root *rootOptions) *cobra.Command {
	opts := &validateOptions{}
	cmd := &cobra.Command{
		Use:   "validate -f FILE",
		Short: "Check a domain document and report its ground size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, root, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Domain document (YAML)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runValidate(cmd *cobra.Command, root *rootOptions, opts *validateOptions) error {
	cfg, _, err := root.load()
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

	cache := grounding.NewCache(cfg.Planner.GroundingCacheSize)
	ground := 0
	for _, schema := range compiled.Problem.Actions {
		ground += len(cache.Actions(compiled.Problem, schema))
	}

	out := newPrinter(cmd.OutOrStdout())
	out.success(fmt.Sprintf("%s is valid", doc.Name))
	out.field("actions", len(compiled.Problem.Actions))
	out.field("ground actions", ground)
	out.field("constraints", len(compiled.Problem.Constraints))
	out.field("ground constraints", len(cache.Constraints(compiled.Problem)))
	out.field("initial facts", compiled.Problem.InitialState.Len())
	out.field("goals", len(compiled.Goals))
	if !compiled.Problem.InitialState.Consistent(cache.Constraints(compiled.Problem)) {
		out.warning("initial state violates a constraint")
	}
	return nil
}
