package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ictlab/backtest-engine-go/internal/config"
	"github.com/ictlab/backtest-engine-go/internal/database"
	"github.com/ictlab/backtest-engine-go/internal/models"
	"github.com/ictlab/backtest-engine-go/internal/telemetry"
)

// QueryExecutor is the execution adapter boundary. The pipeline treats it
// as an opaque call that may block; cancellation reaches it through the
// context, and failures surface as *database.DataAccessError.
type QueryExecutor interface {
	Execute(ctx context.Context, function string, params map[string]any) ([]models.Row, error)
}

// AnalysisService runs the full pipeline for one strategic request:
// resolve, execute, validate, assemble. The stages are strictly
// sequential; the service itself holds no per-request state and is safe
// for concurrent use.
type AnalysisService struct {
	resolver  *Resolver
	executor  QueryExecutor
	validator *StatisticalValidator
	assembler *ResponseAssembler
	cache     *database.RedisClient
	cfg       config.AnalysisConfig
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewAnalysisService wires the pipeline stages together. cache may be nil
// to disable response caching.
func NewAnalysisService(
	resolver *Resolver,
	executor QueryExecutor,
	validator *StatisticalValidator,
	assembler *ResponseAssembler,
	cache *database.RedisClient,
	cfg config.AnalysisConfig,
	logger *slog.Logger,
) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{
		resolver:  resolver,
		executor:  executor,
		validator: validator,
		assembler: assembler,
		cache:     cache,
		cfg:       cfg,
		logger:    logger,
		tracer:    telemetry.Tracer("analysis-pipeline"),
		now:       time.Now,
	}
}

// SetClock overrides the evaluation clock (for tests).
func (s *AnalysisService) SetClock(now func() time.Time) {
	s.now = now
}

// Run executes one analysis request end to end. It never returns an
// error: every failure path is converted into a well-formed response with
// execution_status failed.
func (s *AnalysisService) Run(ctx context.Context, req models.StrategicRequest) models.AnalysisResponse {
	ctx, span := s.tracer.Start(ctx, "AnalysisService.Run")
	defer span.End()

	requestID := uuid.NewString()
	logger := s.logger.With("request_id", requestID)

	if err := req.Validate(); err != nil {
		logger.Warn("Rejected malformed request", "error", err.Error())
		return failedResponse("none", "invalid request: "+err.Error())
	}

	evalTime := s.now()

	plan, err := s.resolver.Resolve(req, evalTime)
	if err != nil {
		logger.Warn("Request resolution failed", "error", err.Error())
		return failedResponse("none", resolutionFailureDetails(err))
	}
	span.SetAttributes(attribute.String("analysis.function", plan.Function.Name))

	cacheKey := s.cacheKey(req, evalTime)
	if cached, ok := s.cacheLookup(ctx, cacheKey); ok {
		logger.Debug("Returning cached analysis response", "cache_key", cacheKey)
		return cached
	}

	execCtx, cancel := context.WithTimeout(ctx, s.cfg.ExecutorTimeoutDuration())
	defer cancel()

	start := time.Now()
	rows, err := s.executor.Execute(execCtx, plan.Function.Name, plan.ExecutionParameters())
	elapsedMs := time.Since(start).Milliseconds()

	if err != nil {
		logger.Error("Analytical function execution failed",
			"function", plan.Function.Name,
			"error", err.Error(),
		)
		resp := failedResponse(plan.Function.Name, executionFailureDetails(err, plan))
		resp.Metadata.ExecutionTimeMs = elapsedMs
		return resp
	}

	outcome := s.validator.Validate(rows, plan)
	resp := s.assembler.Assemble(plan, rows, outcome, elapsedMs)

	s.cacheStore(ctx, cacheKey, resp)

	logger.Info("Analysis request completed",
		"event", "analysis_request",
		"function", plan.Function.Name,
		"status", string(resp.ExecutionStatus),
		"duration_ms", elapsedMs,
		"rows", outcome.SampleSize,
	)

	return resp
}

// resolutionFailureDetails reports resolution errors with their full field
// context; they indicate a caller or configuration bug and the detail is
// what makes them debuggable.
func resolutionFailureDetails(err error) string {
	var conflict *ConflictingParametersError
	if errors.As(err, &conflict) {
		return "conflicting request parameters: " + conflict.Error()
	}
	var noFunc *NoApplicableFunctionError
	if errors.As(err, &noFunc) {
		return noFunc.Error()
	}
	var unknown *UnknownFunctionError
	if errors.As(err, &unknown) {
		return "catalog configuration error: " + unknown.Error()
	}
	return "request resolution failed: " + err.Error()
}

// executionFailureDetails produces a classified message for data access
// failures. Raw driver errors are never exposed to the consumer.
func executionFailureDetails(err error, plan *models.ResolvedExecutionPlan) string {
	var dae *database.DataAccessError
	if errors.As(err, &dae) && dae.Retryable {
		return "data access failure (retryable): the query timed out or the database was briefly unavailable; retry with backoff"
	}
	msg := "data access failure: the analytical function could not be executed; check parameter types and data availability"
	if len(plan.Alternates) > 0 {
		msg += "; alternate functions: " + strings.Join(plan.Alternates, ", ")
	}
	return msg
}

// failedResponse builds the well-formed failure contract. Pipeline
// failures carry zeroed metadata and no results.
func failedResponse(function string, details string) models.AnalysisResponse {
	return models.AnalysisResponse{
		ExecutionStatus: models.StatusFailed,
		AnalysisResults: models.AnalysisResults{
			FunctionOutput: []models.Row{},
		},
		Metadata: models.AnalysisMetadata{
			SQLFunctionUsed: function,
		},
		Recommendations: []string{},
		Warnings:        []string{},
		ErrorDetails:    details,
	}
}

// cacheKey digests the canonical request plus the evaluation day, so
// relative temporal scopes roll over at day boundaries.
func (s *AnalysisService) cacheKey(req models.StrategicRequest, evalTime time.Time) string {
	payload, err := json.Marshal(req)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(append(payload, []byte(evalTime.UTC().Format("2006-01-02"))...))
	return "analysis:" + hex.EncodeToString(sum[:])
}

func (s *AnalysisService) cacheLookup(ctx context.Context, key string) (models.AnalysisResponse, bool) {
	if !s.cfg.CacheEnabled || s.cache == nil || key == "" {
		return models.AnalysisResponse{}, false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		return models.AnalysisResponse{}, false
	}
	var resp models.AnalysisResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return models.AnalysisResponse{}, false
	}
	return resp, true
}

func (s *AnalysisService) cacheStore(ctx context.Context, key string, resp models.AnalysisResponse) {
	if !s.cfg.CacheEnabled || s.cache == nil || key == "" {
		return
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(payload), s.cfg.CacheTTLDuration()); err != nil {
		// Cache failures are logged, never fatal.
		s.logger.Warn("Failed to cache analysis response", "error", err.Error())
	}
}
