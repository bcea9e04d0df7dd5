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
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianPlanner/services/planner/algorithms"
	"github.com/AleutianAI/AleutianPlanner/services/planner/domain"
	"github.com/AleutianAI/AleutianPlanner/services/planner/eval"
	"github.com/AleutianAI/AleutianPlanner/services/planner/executor"
	"github.com/AleutianAI/AleutianPlanner/services/planner/knowledge"
	"github.com/AleutianAI/AleutianPlanner/services/planner/storage/badger"
)

// Handlers serves the planner HTTP API.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for svc.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandlePlan handles POST /v1/planner/plan.
//
// Description:
//
//	Compiles the inline domain and plans for its goals, or for the
//	request's goals when given.
//
// Response:
//
//	200 OK: PlanResponse
//	400 Bad Request: Malformed body or domain text
//	422 Unprocessable Entity: NO_PLAN
//	504 Gateway Timeout: PLAN_TIMEOUT
func (h *Handlers) HandlePlan(c *gin.Context) {
	logger := slog.With("request_id", requestID(c), "handler", "HandlePlan")

	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		h.fail(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}
	if err := req.Domain.Validate(); err != nil {
		h.respondError(c, logger, err)
		return
	}
	compiled, err := req.Domain.Compile()
	if err != nil {
		h.respondError(c, logger, err)
		return
	}
	h.plan(c, logger, compiled, req.PlanOptionsRequest)
}

// HandlePlanDomain handles POST /v1/planner/domains/:name/plan.
//
// Response:
//
//	200 OK: PlanResponse
//	404 Not Found: DOMAIN_NOT_FOUND
//	422 Unprocessable Entity: NO_PLAN
func (h *Handlers) HandlePlanDomain(c *gin.Context) {
	logger := slog.With("request_id", requestID(c), "handler", "HandlePlanDomain")

	var req PlanOptionsRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Invalid request body", "error", err)
			h.fail(c, http.StatusBadRequest, "INVALID_REQUEST", err)
			return
		}
	}

	name, ok := h.domainName(c)
	if !ok {
		return
	}
	store, err := h.svc.Store()
	if err != nil {
		h.respondError(c, logger, err)
		return
	}
	record, err := store.Get(c.Request.Context(), name)
	if err != nil {
		h.respondError(c, logger, err)
		return
	}
	compiled, err := record.Document.Compile()
	if err != nil {
		h.respondError(c, logger, err)
		return
	}
	h.plan(c, logger, compiled, req)
}

func (h *Handlers) plan(c *gin.Context, logger *slog.Logger, compiled domain.Compiled, req PlanOptionsRequest) {
	goals, err := domain.ParseGoals(req.Goals)
	if err != nil {
		h.respondError(c, logger, err)
		return
	}

	result, err := h.svc.Plan(c.Request.Context(), compiled, goals, PlanOptions{
		Strategy:  req.Strategy,
		MaxDepth:  req.MaxDepth,
		MaxLevels: req.MaxLevels,
	})
	if err != nil {
		h.respondError(c, logger, err)
		return
	}

	c.JSON(http.StatusOK, PlanResponse{
		PlanID:     result.PlanID,
		Domain:     compiled.Name,
		Strategy:   result.Strategy,
		Found:      true,
		Steps:      result.Plan.Strings(),
		DurationMs: result.Duration.Milliseconds(),
	})
}

// HandleSimulate handles POST /v1/planner/simulate.
//
// Response:
//
//	200 OK: SimulateResponse
//	400 Bad Request: Malformed domain or step
//	422 Unprocessable Entity: STEP_FAILED
func (h *Handlers) HandleSimulate(c *gin.Context) {
	logger := slog.With("request_id", requestID(c), "handler", "HandleSimulate")

	var req SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		h.fail(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}
	if err := req.Domain.Validate(); err != nil {
		h.respondError(c, logger, err)
		return
	}
	compiled, err := req.Domain.Compile()
	if err != nil {
		h.respondError(c, logger, err)
		return
	}
	steps := make([]knowledge.Predicate, 0, len(req.Steps))
	for _, line := range req.Steps {
		step, err := knowledge.ParsePredicate(line)
		if err != nil {
			h.respondError(c, logger, err)
			return
		}
		steps = append(steps, step)
	}

	final, satisfied, err := h.svc.Simulate(c.Request.Context(), compiled, steps)
	if err != nil {
		h.respondError(c, logger, err)
		return
	}
	state := make([]string, 0, final.Len())
	for _, f := range final.Facts() {
		state = append(state, f.String())
	}
	c.JSON(http.StatusOK, SimulateResponse{State: state, GoalsSatisfied: satisfied})
}

// HandlePutDomain handles PUT /v1/planner/domains/:name.
//
// Description:
//
//	Stores the document under :name. The document's own name must be
//	empty or equal :name.
//
// Response:
//
//	200 OK: DomainResponse
//	400 Bad Request: Invalid document or name mismatch
//	503 Service Unavailable: STORAGE_UNAVAILABLE
func (h *Handlers) HandlePutDomain(c *gin.Context) {
	logger := slog.With("request_id", requestID(c), "handler", "HandlePutDomain")
	name, ok := h.domainName(c)
	if !ok {
		return
	}

	var doc domain.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		logger.Warn("Invalid request body", "error", err)
		h.fail(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}
	if doc.Name == "" {
		doc.Name = name
	}
	if doc.Name != name {
		h.fail(c, http.StatusBadRequest, "NAME_MISMATCH", errors.New("document name does not match path"))
		return
	}

	store, err := h.svc.Store()
	if err != nil {
		h.respondError(c, logger, err)
		return
	}
	version, err := store.Put(c.Request.Context(), doc)
	if err != nil {
		h.respondError(c, logger, err)
		return
	}
	logger.Info("Domain stored", "domain", name, "version", version)
	c.JSON(http.StatusOK, DomainResponse{Domain: doc, Version: version})
}

// HandleGetDomain handles GET /v1/planner/domains/:name.
func (h *Handlers) HandleGetDomain(c *gin.Context) {
	logger := slog.With("request_id", requestID(c), "handler", "HandleGetDomain")

	name, ok := h.domainName(c)
	if !ok {
		return
	}
	store, err := h.svc.Store()
	if err != nil {
		h.respondError(c, logger, err)
		return
	}
	record, err := store.Get(c.Request.Context(), name)
	if err != nil {
		h.respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, DomainResponse{Domain: record.Document, Version: record.Version})
}

// HandleListDomains handles GET /v1/planner/domains.
func (h *Handlers) HandleListDomains(c *gin.Context) {
	logger := slog.With("request_id", requestID(c), "handler", "HandleListDomains")

	store, err := h.svc.Store()
	if err != nil {
		h.respondError(c, logger, err)
		return
	}
	names, err := store.List(c.Request.Context())
	if err != nil {
		h.respondError(c, logger, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, DomainListResponse{Domains: names})
}

// HandleDeleteDomain handles DELETE /v1/planner/domains/:name.
//
// Response:
//
//	204 No Content
//	404 Not Found: DOMAIN_NOT_FOUND
func (h *Handlers) HandleDeleteDomain(c *gin.Context) {
	logger := slog.With("request_id", requestID(c), "handler", "HandleDeleteDomain")

	name, ok := h.domainName(c)
	if !ok {
		return
	}
	store, err := h.svc.Store()
	if err != nil {
		h.respondError(c, logger, err)
		return
	}
	if err := store.Delete(c.Request.Context(), name); err != nil {
		h.respondError(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleHealth handles GET /v1/planner/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
	})
}

// HandleReady handles GET /v1/planner/ready.
//
// Response:
//
//	200 OK: every planner passes its health check
//	503 Service Unavailable: some planner is misconfigured
func (h *Handlers) HandleReady(c *gin.Context) {
	components := h.svc.Health(c.Request.Context())
	_, storeErr := h.svc.Store()

	ready := true
	for _, r := range components {
		ready = ready && r.Status == eval.HealthHealthy
	}
	resp := ReadyResponse{Ready: ready, Components: components, Storage: storeErr == nil}
	if !ready {
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// respondError maps service errors to HTTP status codes.
func (h *Handlers) respondError(c *gin.Context, logger *slog.Logger, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"

	var parseErr *knowledge.ParseError
	var stepErr *executor.StepError
	switch {
	case errors.Is(err, ErrNoPlan):
		status, code = http.StatusUnprocessableEntity, "NO_PLAN"
	case errors.Is(err, ErrPlanTimeout):
		status, code = http.StatusGatewayTimeout, "PLAN_TIMEOUT"
	case errors.Is(err, ErrUnknownStrategy):
		status, code = http.StatusBadRequest, "UNKNOWN_STRATEGY"
	case errors.Is(err, badger.ErrDomainNotFound):
		status, code = http.StatusNotFound, "DOMAIN_NOT_FOUND"
	case errors.Is(err, ErrStorageUnavailable):
		status, code = http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE"
	case errors.Is(err, domain.ErrNoGoals), errors.Is(err, algorithms.ErrNoGoals):
		status, code = http.StatusBadRequest, "NO_GOALS"
	case errors.As(err, &parseErr), errors.Is(err, domain.ErrInvalidDocument), errors.Is(err, domain.ErrDocumentTooLarge):
		status, code = http.StatusBadRequest, "INVALID_DOMAIN"
	case errors.As(err, &stepErr):
		status, code = http.StatusUnprocessableEntity, "STEP_FAILED"
	case errors.Is(err, algorithms.ErrInvalidInput), errors.Is(err, algorithms.ErrInvalidConfig):
		status, code = http.StatusBadRequest, "INVALID_INPUT"
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "error", err, "code", code)
		h.svc.metrics.RecordError(c.Request.Context(), "http", code)
	} else {
		logger.Info("Request rejected", "error", err, "code", code)
	}
	h.fail(c, status, code, err)
}

// domainName reads the :name parameter and rejects invalid names.
func (h *Handlers) domainName(c *gin.Context) (string, bool) {
	name := c.Param("name")
	if !domain.ValidName(name) {
		h.fail(c, http.StatusBadRequest, "INVALID_NAME", fmt.Errorf("invalid domain name %q", name))
		return "", false
	}
	return name, true
}

func (h *Handlers) fail(c *gin.Context, status int, code string, err error) {
	c.JSON(status, ErrorResponse{
		Error:     err.Error(),
		Code:      code,
		RequestID: requestID(c),
	})
}
