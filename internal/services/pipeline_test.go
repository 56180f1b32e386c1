package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ictlab/backtest-engine-go/internal/config"
	"github.com/ictlab/backtest-engine-go/internal/database"
	"github.com/ictlab/backtest-engine-go/internal/models"
	"github.com/ictlab/backtest-engine-go/internal/testutil"
)

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Execute(ctx context.Context, function string, params map[string]any) ([]models.Row, error) {
	args := m.Called(ctx, function, params)
	rows, _ := args.Get(0).([]models.Row)
	return rows, args.Error(1)
}

// spyExecutor counts invocations without any expectations.
type spyExecutor struct {
	calls int
	rows  []models.Row
	err   error
}

func (s *spyExecutor) Execute(ctx context.Context, function string, params map[string]any) ([]models.Row, error) {
	s.calls++
	return s.rows, s.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(t *testing.T, executor QueryExecutor, cache *database.RedisClient) *AnalysisService {
	t.Helper()

	cfg := config.AnalysisConfig{
		RecentDays:     30,
		HistoricalDays: 90,
		MaxAlternates:  4,
		CacheEnabled:   cache != nil,
		CacheTTL:       "5m",
	}
	resolver := NewResolver(newTestRegistry(t), DefaultParameterMappingTable(), cfg)
	svc := NewAnalysisService(resolver, executor, NewStatisticalValidator(nil), NewResponseAssembler(), cache, cfg, quietLogger())
	svc.SetClock(func() time.Time {
		return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	})
	return svc
}

func TestPipelineRunSuccess(t *testing.T) {
	executor := new(mockExecutor)
	executor.On("Execute", mock.Anything, "update_order_block_performance", mock.MatchedBy(func(params map[string]any) bool {
		symbols, _ := params["symbols"].([]string)
		return len(symbols) == 1 && symbols[0] == "eurusd" && params["timeframe"] == "4h"
	})).Return(makeRows(25), nil)

	svc := newTestPipeline(t, executor, nil)

	req := baseRequest()
	req.AssetFocus = models.FocusSpecificSymbol
	req.Symbol = "eurusd"
	req.QualityRequirements = models.TierHighConfidence

	resp := svc.Run(context.Background(), req)

	assert.Equal(t, models.StatusSuccess, resp.ExecutionStatus)
	assert.Equal(t, "update_order_block_performance", resp.Metadata.SQLFunctionUsed)
	assert.Equal(t, 25, resp.Metadata.SampleSize)
	assert.Empty(t, resp.ErrorDetails)
	executor.AssertExpectations(t)
}

func TestPipelineInsufficientSampleIsPartial(t *testing.T) {
	executor := new(mockExecutor)
	executor.On("Execute", mock.Anything, mock.Anything, mock.Anything).Return(makeRows(15), nil)

	svc := newTestPipeline(t, executor, nil)

	req := baseRequest()
	req.QualityRequirements = models.TierHighConfidence

	resp := svc.Run(context.Background(), req)

	assert.Equal(t, models.StatusPartial, resp.ExecutionStatus)
	assert.Less(t, resp.Metadata.ConfidenceLevel, 90.0)
	require.NotEmpty(t, resp.Warnings)
	assert.Contains(t, resp.Warnings[0], "insufficient sample size: 15 of 20 required")
}

func TestPipelineConflictNeverReachesExecutor(t *testing.T) {
	spy := &spyExecutor{}
	svc := newTestPipeline(t, spy, nil)

	req := baseRequest()
	req.TemporalScope = models.ScopeSpecificPeriod // no date_range supplied

	resp := svc.Run(context.Background(), req)

	assert.Equal(t, models.StatusFailed, resp.ExecutionStatus)
	assert.Contains(t, resp.ErrorDetails, "conflicting request parameters")
	assert.Equal(t, "none", resp.Metadata.SQLFunctionUsed)
	assert.Equal(t, 0, spy.calls, "executor must not be invoked for unresolvable requests")
}

func TestPipelineMalformedRequestFails(t *testing.T) {
	spy := &spyExecutor{}
	svc := newTestPipeline(t, spy, nil)

	req := baseRequest()
	req.AnalysisStrategy = "vibes"

	resp := svc.Run(context.Background(), req)

	assert.Equal(t, models.StatusFailed, resp.ExecutionStatus)
	assert.Contains(t, resp.ErrorDetails, "invalid request")
	assert.Equal(t, 0, spy.calls)
}

func TestPipelineDataAccessFailure(t *testing.T) {
	spy := &spyExecutor{
		err: &database.DataAccessError{
			Function:  "update_order_block_performance",
			Retryable: true,
			Cause:     errors.New("connection reset"),
		},
	}
	svc := newTestPipeline(t, spy, nil)

	resp := svc.Run(context.Background(), baseRequest())

	assert.Equal(t, models.StatusFailed, resp.ExecutionStatus)
	assert.Contains(t, resp.ErrorDetails, "retryable")
	// Raw driver details stay out of the response.
	assert.NotContains(t, resp.ErrorDetails, "connection reset")
	assert.NotEqual(t, "none", resp.Metadata.SQLFunctionUsed)
}

func TestPipelineNonRetryableFailureNamesAlternates(t *testing.T) {
	spy := &spyExecutor{
		err: &database.DataAccessError{
			Function: "update_order_block_performance",
			Cause:    errors.New("function does not exist"),
		},
	}
	svc := newTestPipeline(t, spy, nil)

	resp := svc.Run(context.Background(), baseRequest())

	assert.Equal(t, models.StatusFailed, resp.ExecutionStatus)
	assert.Contains(t, resp.ErrorDetails, "analyze_session_performance")
}

func TestPipelineCachesResponses(t *testing.T) {
	cache, _ := testutil.NewMiniredisClient(t)
	spy := &spyExecutor{rows: makeRows(25)}
	svc := newTestPipeline(t, spy, cache)

	req := baseRequest()
	req.QualityRequirements = models.TierHighConfidence

	first := svc.Run(context.Background(), req)
	second := svc.Run(context.Background(), req)

	assert.Equal(t, 1, spy.calls, "second run should be served from cache")

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(firstJSON), string(secondJSON))
}

func TestPipelineCacheKeyVariesByRequest(t *testing.T) {
	cache, _ := testutil.NewMiniredisClient(t)
	spy := &spyExecutor{rows: makeRows(25)}
	svc := newTestPipeline(t, spy, cache)

	svc.Run(context.Background(), baseRequest())

	other := baseRequest()
	other.AnalysisStrategy = models.StrategyStructureDetection
	svc.Run(context.Background(), other)

	assert.Equal(t, 2, spy.calls, "different requests must not share cache entries")
}

func TestPipelineRunsUncachedWhenCacheNil(t *testing.T) {
	spy := &spyExecutor{rows: makeRows(25)}
	svc := newTestPipeline(t, spy, nil)

	svc.Run(context.Background(), baseRequest())
	svc.Run(context.Background(), baseRequest())

	assert.Equal(t, 2, spy.calls)
}
