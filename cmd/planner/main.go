// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command planner finds, checks and serves STRIPS plans.
//
// Usage:
//
//	planner plan -f domain.yaml [--strategy graphplan] [--watch]
//	planner validate -f domain.yaml
//	planner simulate -f domain.yaml "pickup s3" "stack s3 s5"
//	planner serve [--config planner.yaml]
//
// Exit codes: 0 on success, 1 on any error, 2 when no plan exists.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianPlanner/services/planner"
	"github.com/AleutianAI/AleutianPlanner/services/planner/config"
)

const (
	exitError  = 1
	exitNoPlan = 2
)

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	logJSON    bool
}

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		newPrinter(os.Stderr).failure(err.Error())
		if errors.Is(err, planner.ErrNoPlan) {
			os.Exit(exitNoPlan)
		}
		os.Exit(exitError)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "planner",
		Short: "Classical STRIPS planning: goal-stack and planning-graph search",
		Long: `planner searches for action sequences that turn an initial state
into one satisfying every goal. Domains are YAML documents whose actions,
constraints, types and facts use the line format

  pickup X: ontable X, clear X, handempty -> holding X, not ontable X

Run 'planner serve' to expose the same planners over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"Path to planner configuration YAML (default: built-in defaults)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "",
		"Log level: debug, info, warn, error (overrides config)")
	root.PersistentFlags().BoolVar(&opts.logJSON, "log-json", false,
		"Write logs as JSON")

	root.AddCommand(newPlanCmd(opts))
	root.AddCommand(newValidateCmd(opts))
	root.AddCommand(newSimulateCmd(opts))
	root.AddCommand(newServeCmd(opts))
	return root
}

// load reads configuration and builds the logger every command uses.
func (o *rootOptions) load() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	level := cfg.LogLevel
	if o.logLevel != "" {
		level = o.logLevel
	}
	logger, err := newLogger(level, o.logJSON)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// newLogger writes to stderr so command output on stdout stays clean.
func newLogger(level string, json bool) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "", "info":
		lvl = slog.LevelInfo
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if json {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
}
