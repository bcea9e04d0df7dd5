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

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/AleutianPlanner/services/planner/config"
	"github.com/AleutianAI/AleutianPlanner/services/planner/telemetry"
)

// RegisterRoutes registers all planner routes with the router.
//
// Description:
//
//	Registers all /v1/planner/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Planning Endpoints:
//
//	POST /v1/planner/plan - Plan for an inline domain
//	POST /v1/planner/simulate - Execute steps against an inline domain
//
// Domain Endpoints:
//
//	GET    /v1/planner/domains - List stored domains
//	GET    /v1/planner/domains/:name - Get a stored domain
//	PUT    /v1/planner/domains/:name - Store a domain
//	DELETE /v1/planner/domains/:name - Delete a stored domain
//	POST   /v1/planner/domains/:name/plan - Plan for a stored domain
//
// Health Endpoints:
//
//	GET /v1/planner/health - Liveness
//	GET /v1/planner/ready - Readiness
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	planner := rg.Group("/planner")
	{
		planner.POST("/plan", handlers.HandlePlan)
		planner.POST("/simulate", handlers.HandleSimulate)

		domains := planner.Group("/domains")
		{
			domains.GET("", handlers.HandleListDomains)
			domains.GET("/:name", handlers.HandleGetDomain)
			domains.PUT("/:name", handlers.HandlePutDomain)
			domains.DELETE("/:name", handlers.HandleDeleteDomain)
			domains.POST("/:name/plan", handlers.HandlePlanDomain)
		}

		planner.GET("/health", handlers.HandleHealth)
		planner.GET("/ready", handlers.HandleReady)
	}
}

// NewRouter builds the HTTP engine for svc.
//
// Description:
//
//	Installs recovery, tracing, request IDs, per-client rate limiting and
//	request metrics, then mounts the planner routes under /v1 and the
//	Prometheus scrape endpoint at /metrics.
//
// Inputs:
//
//	svc - The planning service
//	cfg - Server settings
//	metrics - Request metrics. May be nil.
func NewRouter(svc *Service, cfg config.ServerConfig, metrics *telemetry.Metrics) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Debug {
		router.Use(gin.Logger())
	}
	router.Use(otelgin.Middleware("aleutian-planner"))
	router.Use(RequestID())
	router.Use(NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).Middleware())
	if metrics != nil {
		router.Use(telemetry.GinMetrics(metrics))
	}
	if cfg.RequestTimeout > 0 {
		router.Use(requestTimeout(cfg.RequestTimeout))
	}

	if h := telemetry.MetricsHandler(); h != nil {
		router.GET("/metrics", gin.WrapH(h))
	} else {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	RegisterRoutes(router.Group("/v1"), NewHandlers(svc))
	return router
}

// requestTimeout bounds each request's context.
func requestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
