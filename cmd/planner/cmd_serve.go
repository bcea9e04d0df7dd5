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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/AleutianPlanner/services/planner"
	"github.com/AleutianAI/AleutianPlanner/services/planner/config"
	"github.com/AleutianAI/AleutianPlanner/services/planner/storage/badger"
	"github.com/AleutianAI/AleutianPlanner/services/planner/telemetry"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	port  int
	debug bool
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the planner HTTP service",
		Long: `Run the planner HTTP service on /v1/planner with Prometheus metrics
on /metrics. Stored domains live in BadgerDB at storage.path, or in memory
when the path is empty.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, root, opts)
		},
	}
	cmd.Flags().IntVar(&opts.port, "port", 0, "Port to listen on (0 = config default)")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable gin request logging")
	return cmd
}

func runServe(cmd *cobra.Command, root *rootOptions, opts *serveOptions) error {
	cfg, logger, err := root.load()
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	if opts.port > 0 {
		cfg.Server.Port = opts.port
	}
	if opts.debug {
		cfg.Server.Debug = true
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.FromConfig(cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	db, err := openStorage(cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("Storage close failed", slog.String("error", err.Error()))
		}
	}()

	meter := otel.Meter("aleutian.planner")
	metrics, err := telemetry.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	svc := planner.NewService(cfg.Planner,
		planner.WithStore(badger.NewDomainStore(db)),
		planner.WithMetrics(metrics),
		planner.WithLogger(logger))

	registration, err := metrics.RegisterGroundingCache(meter, func() int64 {
		return int64(svc.CacheStats().Entries)
	})
	if err != nil {
		return fmt.Errorf("register cache gauge: %w", err)
	}
	defer func() { _ = registration.Unregister() }()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           planner.NewRouter(svc, cfg.Server, metrics),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting Aleutian Planner server",
			slog.String("address", server.Addr),
			slog.String("strategy", cfg.Planner.Strategy),
			slog.Bool("persistent", !db.InMemory()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down Aleutian Planner server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openStorage opens BadgerDB at cfg.Path, or in memory when the path is
// empty.
func openStorage(cfg config.StorageConfig, logger *slog.Logger) (*badger.DB, error) {
	if cfg.Path == "" {
		logger.Info("Domain storage is in memory; stored domains will not survive restart")
		return badger.OpenInMemory()
	}
	bcfg := badger.DefaultConfig()
	bcfg.Path = cfg.Path
	bcfg.Logger = logger
	if cfg.GCInterval > 0 {
		bcfg.GCInterval = cfg.GCInterval
	}
	db, err := badger.Open(bcfg)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return db, nil
}
