// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30, cfg.Planner.MaxDepth)
	assert.Equal(t, 15, cfg.Planner.MaxLevels)
	assert.Equal(t, StrategyGraphPlan, cfg.Planner.Strategy)
}

func TestLoad(t *testing.T) {
	t.Run("no file", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default().Server.Port, cfg.Server.Port)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "planner.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
planner:
  strategy: goalstack
  max_depth: 12
server:
  port: 9191
`), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, StrategyGoalStack, cfg.Planner.Strategy)
		assert.Equal(t, 12, cfg.Planner.MaxDepth)
		assert.Equal(t, 15, cfg.Planner.MaxLevels)
		assert.Equal(t, 9191, cfg.Server.Port)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "planner.yaml")
		require.NoError(t, os.WriteFile(path, []byte("planner:\n  max_levels: 4\n"), 0o644))
		t.Setenv("PLANNER_MAX_LEVELS", "7")
		t.Setenv("PLANNER_TIMEOUT", "5s")
		t.Setenv("PLANNER_STRATEGY", "portfolio")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.Planner.MaxLevels)
		assert.Equal(t, 5*time.Second, cfg.Planner.Timeout)
		assert.Equal(t, StrategyPortfolio, cfg.Planner.Strategy)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad environment value", func(t *testing.T) {
		t.Setenv("PLANNER_MAX_DEPTH", "deep")
		_, err := Load("")
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("validation failure", func(t *testing.T) {
		t.Setenv("PLANNER_STRATEGY", "astar")
		_, err := Load("")
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "planner.yaml")
	cfg := Default()
	cfg.Planner.MaxDepth = 42

	require.NoError(t, Write(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero depth", mutate: func(c *Config) { c.Planner.MaxDepth = 0 }},
		{name: "negative levels", mutate: func(c *Config) { c.Planner.MaxLevels = -1 }},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }},
		{name: "bad exporter", mutate: func(c *Config) { c.Telemetry.TraceExporter = "jaeger" }},
		{name: "otlp without endpoint", mutate: func(c *Config) {
			c.Telemetry.TraceExporter = "otlp"
			c.Telemetry.OTLPEndpoint = ""
		}},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "trace" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}
