// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads planner service and CLI configuration.
//
// Configuration comes from three layers, later layers winning:
//
//	Default() -> YAML file -> PLANNER_* environment variables
//
// The result is validated with go-playground/validator before use.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Strategy names accepted by the planner section.
const (
	StrategyGoalStack = "goalstack"
	StrategyGraphPlan = "graphplan"
	StrategyPortfolio = "portfolio"
)

// ErrInvalidConfig is returned when validation fails.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the complete planner configuration.
type Config struct {
	Planner   PlannerConfig   `yaml:"planner"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	LogLevel  string          `yaml:"log_level" validate:"oneof=debug info warn error"`
}

// PlannerConfig bounds the search algorithms.
type PlannerConfig struct {
	// Strategy is the default algorithm when a request names none.
	Strategy string `yaml:"strategy" validate:"oneof=goalstack graphplan portfolio"`

	// MaxDepth bounds goal-stack pops along one branch.
	MaxDepth int `yaml:"max_depth" validate:"min=1,max=10000"`

	// MaxLevels bounds the number of planning graph levels.
	MaxLevels int `yaml:"max_levels" validate:"min=0,max=1000"`

	// GroundingCacheSize is the LRU capacity of the shared grounding cache.
	GroundingCacheSize int `yaml:"grounding_cache_size" validate:"min=1"`

	// Timeout bounds one planning call. 0 means no limit.
	Timeout time.Duration `yaml:"timeout" validate:"min=0"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int           `yaml:"port" validate:"min=1,max=65535"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps" validate:"min=0"`
	RateLimitBurst int           `yaml:"rate_limit_burst" validate:"min=0"`
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"min=0"`
	Debug          bool          `yaml:"debug"`
}

// StorageConfig configures the domain database.
type StorageConfig struct {
	// Path is the database directory. Empty means in-memory.
	Path string `yaml:"path"`

	GCInterval time.Duration `yaml:"gc_interval" validate:"min=0"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" validate:"required"`
	TraceExporter  string `yaml:"trace_exporter" validate:"oneof=otlp stdout none"`
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=prometheus stdout none"`
	OTLPEndpoint   string `yaml:"otlp_endpoint" validate:"required_if=TraceExporter otlp"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Planner: PlannerConfig{
			Strategy:           StrategyGraphPlan,
			MaxDepth:           30,
			MaxLevels:          15,
			GroundingCacheSize: 1024,
			Timeout:            30 * time.Second,
		},
		Server: ServerConfig{
			Port:           8090,
			RateLimitRPS:   20,
			RateLimitBurst: 40,
			RequestTimeout: 60 * time.Second,
		},
		Storage: StorageConfig{
			GCInterval: 10 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "aleutian-planner",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			OTLPEndpoint:   "localhost:4317",
			OTLPInsecure:   true,
		},
		LogLevel: "info",
	}
}

var validate = validator.New()

// Validate checks every struct tag.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Load builds the configuration from defaults, the YAML file at path and
// the environment.
//
// Inputs:
//   - path: YAML file. Empty skips the file layer. A missing file is an
//     error when path is set explicitly.
//
// Outputs:
//   - Config: The validated configuration.
//   - error: Read, parse, environment or validation failure.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Write saves cfg as YAML, creating parent directories.
func Write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// applyEnv overrides fields from PLANNER_* variables.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	integer := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
		}
		*dst = n
		return nil
	}
	duration := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
		}
		*dst = d
		return nil
	}

	str("PLANNER_STRATEGY", &cfg.Planner.Strategy)
	str("PLANNER_STORAGE_PATH", &cfg.Storage.Path)
	str("PLANNER_LOG_LEVEL", &cfg.LogLevel)
	str("PLANNER_TRACE_EXPORTER", &cfg.Telemetry.TraceExporter)
	str("PLANNER_METRIC_EXPORTER", &cfg.Telemetry.MetricExporter)
	str("PLANNER_OTLP_ENDPOINT", &cfg.Telemetry.OTLPEndpoint)

	if v, ok := lookup("PLANNER_RATE_LIMIT_RPS"); ok {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: PLANNER_RATE_LIMIT_RPS: %v", ErrInvalidConfig, err)
		}
		cfg.Server.RateLimitRPS = rps
	}

	return errors.Join(
		integer("PLANNER_MAX_DEPTH", &cfg.Planner.MaxDepth),
		integer("PLANNER_MAX_LEVELS", &cfg.Planner.MaxLevels),
		integer("PLANNER_GROUNDING_CACHE_SIZE", &cfg.Planner.GroundingCacheSize),
		integer("PLANNER_PORT", &cfg.Server.Port),
		duration("PLANNER_TIMEOUT", &cfg.Planner.Timeout),
		duration("PLANNER_REQUEST_TIMEOUT", &cfg.Server.RequestTimeout),
	)
}
