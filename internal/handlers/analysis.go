package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ictlab/backtest-engine-go/internal/models"
	"github.com/ictlab/backtest-engine-go/internal/services"
)

// AnalysisRunner is the pipeline surface the handler needs.
type AnalysisRunner interface {
	Run(ctx context.Context, req models.StrategicRequest) models.AnalysisResponse
}

// AnalysisHandler handles analysis and catalog related endpoints.
type AnalysisHandler struct {
	pipeline AnalysisRunner
	registry *services.FunctionRegistry
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(pipeline AnalysisRunner, registry *services.FunctionRegistry) *AnalysisHandler {
	return &AnalysisHandler{
		pipeline: pipeline,
		registry: registry,
	}
}

// RunAnalysis handles POST /api/v1/analysis.
func (h *AnalysisHandler) RunAnalysis(c *gin.Context) {
	var req models.StrategicRequest

	// Unknown fields are rejected so typos in enum field names fail loudly
	// instead of silently falling back to defaults.
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request parameters", "details": err.Error()})
		return
	}

	response := h.pipeline.Run(c.Request.Context(), req)
	c.JSON(http.StatusOK, response)
}

// ListFunctions handles GET /api/v1/functions. The optional category and
// context query parameters filter the catalog.
func (h *AnalysisHandler) ListFunctions(c *gin.Context) {
	var functions []*models.FunctionDescriptor

	category := c.Query("category")
	contextParam := c.Query("context")
	switch {
	case category != "":
		strategy := models.AnalysisStrategy(category)
		if !strategy.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown analysis category", "details": category})
			return
		}
		functions = h.registry.ByCategory(strategy)
	case contextParam != "":
		tradingContext := models.TradingContext(contextParam)
		if !tradingContext.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown trading context", "details": contextParam})
			return
		}
		functions = h.registry.ByContext(tradingContext)
	default:
		functions = h.registry.All()
	}

	c.JSON(http.StatusOK, gin.H{
		"functions": functions,
		"count":     len(functions),
	})
}

// GetFunction handles GET /api/v1/functions/:name.
func (h *AnalysisHandler) GetFunction(c *gin.Context) {
	descriptor, err := h.registry.Lookup(c.Param("name"))
	if err != nil {
		var unknown *services.UnknownFunctionError
		if errors.As(err, &unknown) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Function not found", "details": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up function", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, descriptor)
}
