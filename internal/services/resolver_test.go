package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ictlab/backtest-engine-go/internal/config"
	"github.com/ictlab/backtest-engine-go/internal/models"
)

func testAnalysisConfig() config.AnalysisConfig {
	return config.AnalysisConfig{
		RecentDays:     30,
		HistoricalDays: 90,
		MaxAlternates:  4,
	}
}

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	return NewResolver(newTestRegistry(t), DefaultParameterMappingTable(), testAnalysisConfig())
}

func baseRequest() models.StrategicRequest {
	return models.StrategicRequest{
		AnalysisStrategy:    models.StrategyPerformanceAnalysis,
		TradingContext:      models.ContextSwingTrading,
		TemporalScope:       models.ScopeRecentPerformance,
		AssetFocus:          models.FocusMajorPairs,
		SessionRelevance:    models.SessionsAll,
		QualityRequirements: models.TierBalanced,
	}
}

func TestResolveSpecificSymbolSwingScenario(t *testing.T) {
	resolver := newTestResolver(t)
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	req := baseRequest()
	req.AssetFocus = models.FocusSpecificSymbol
	req.Symbol = "eurusd"
	req.SessionRelevance = models.SessionsHighLiquidity
	req.QualityRequirements = models.TierHighConfidence

	plan, err := resolver.Resolve(req, now)
	require.NoError(t, err)

	assert.Equal(t, "update_order_block_performance", plan.Function.Name)
	assert.Equal(t, []string{"eurusd"}, plan.Symbols)
	assert.Equal(t, models.Timeframe4h, plan.Timeframe)
	assert.Equal(t, []models.Session{models.SessionLondon, models.SessionNewYork}, plan.Sessions)
	assert.Equal(t, now.AddDate(0, 0, -30), plan.DateRange.Start)
	assert.Equal(t, now, plan.DateRange.End)
	assert.Equal(t, 20, plan.MinSampleSize)
	assert.Equal(t, 80.0, plan.MinCoveragePct)
	assert.Equal(t, 0.01, plan.SignificanceLevel)
	assert.Equal(t, 90.0, plan.ConfidenceCeiling)
	assert.Equal(t, []string{"analyze_session_performance"}, plan.Alternates)
}

func TestResolveIsDeterministic(t *testing.T) {
	resolver := newTestResolver(t)
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	req := baseRequest()
	first, err := resolver.Resolve(req, now)
	require.NoError(t, err)
	second, err := resolver.Resolve(req, now)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestResolveHistoricalPatternWindowIs90Days(t *testing.T) {
	resolver := newTestResolver(t)
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	req := baseRequest()
	req.TemporalScope = models.ScopeHistoricalPattern

	plan, err := resolver.Resolve(req, now)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, -90), plan.DateRange.Start)
	assert.Equal(t, now, plan.DateRange.End)
}

func TestResolveSpecificPeriodWithoutRangeConflicts(t *testing.T) {
	resolver := newTestResolver(t)

	req := baseRequest()
	req.TemporalScope = models.ScopeSpecificPeriod

	_, err := resolver.Resolve(req, time.Now())
	var conflict *ConflictingParametersError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "date_range", conflict.Field)
}

func TestResolveSpecificPeriodRangeMustBeOrdered(t *testing.T) {
	resolver := newTestResolver(t)

	req := baseRequest()
	req.TemporalScope = models.ScopeSpecificPeriod
	req.DateRange = &models.DateRange{
		Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	_, err := resolver.Resolve(req, time.Now())
	var conflict *ConflictingParametersError
	assert.ErrorAs(t, err, &conflict)
}

func TestResolveSpecificPeriodUsesCallerRange(t *testing.T) {
	resolver := newTestResolver(t)
	window := models.DateRange{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	}

	req := baseRequest()
	req.TemporalScope = models.ScopeSpecificPeriod
	req.DateRange = &window

	plan, err := resolver.Resolve(req, time.Now())
	require.NoError(t, err)
	assert.Equal(t, window, plan.DateRange)
}

func TestResolveExplicitRangeWithRelativeScopeConflicts(t *testing.T) {
	resolver := newTestResolver(t)

	req := baseRequest()
	req.DateRange = &models.DateRange{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	_, err := resolver.Resolve(req, time.Now())
	var conflict *ConflictingParametersError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "date_range", conflict.Field)
}

func TestResolveSymbolConflicts(t *testing.T) {
	resolver := newTestResolver(t)
	now := time.Now()

	tests := []struct {
		name   string
		mutate func(*models.StrategicRequest)
		field  string
	}{
		{
			"specific symbol missing",
			func(r *models.StrategicRequest) { r.AssetFocus = models.FocusSpecificSymbol },
			"symbol",
		},
		{
			"specific symbol unsupported",
			func(r *models.StrategicRequest) {
				r.AssetFocus = models.FocusSpecificSymbol
				r.Symbol = "usdtry"
			},
			"symbol",
		},
		{
			"cross symbol with major focus",
			func(r *models.StrategicRequest) { r.Symbol = "eurgbp" },
			"symbol",
		},
		{
			"major symbol with cross focus",
			func(r *models.StrategicRequest) {
				r.AssetFocus = models.FocusCrossPairs
				r.Symbol = "eurusd"
			},
			"symbol",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest()
			tt.mutate(&req)
			_, err := resolver.Resolve(req, now)
			var conflict *ConflictingParametersError
			require.ErrorAs(t, err, &conflict)
			assert.Equal(t, tt.field, conflict.Field)
		})
	}
}

func TestResolveSymbolNarrowsUniverse(t *testing.T) {
	resolver := newTestResolver(t)
	now := time.Now()

	req := baseRequest()
	req.Symbol = "gbpusd"
	plan, err := resolver.Resolve(req, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"gbpusd"}, plan.Symbols)

	req = baseRequest()
	plan, err = resolver.Resolve(req, now)
	require.NoError(t, err)
	assert.Equal(t, models.MajorPairs, plan.Symbols)

	req = baseRequest()
	req.AssetFocus = models.FocusCrossPairs
	plan, err = resolver.Resolve(req, now)
	require.NoError(t, err)
	assert.Equal(t, models.CrossPairs, plan.Symbols)
}

func TestResolveExplicitTimeframeHonored(t *testing.T) {
	resolver := newTestResolver(t)

	req := baseRequest()
	req.Timeframe = models.Timeframe1h
	plan, err := resolver.Resolve(req, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.Timeframe1h, plan.Timeframe)

	req.Timeframe = "3m"
	_, err = resolver.Resolve(req, time.Now())
	var conflict *ConflictingParametersError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "timeframe", conflict.Field)
}

func TestResolveContextDefaultTimeframes(t *testing.T) {
	resolver := newTestResolver(t)
	now := time.Now()

	tests := []struct {
		context   models.TradingContext
		timeframe models.Timeframe
	}{
		{models.ContextScalping, models.Timeframe15m},
		{models.ContextSwingTrading, models.Timeframe4h},
		{models.ContextPositionAnalysis, models.Timeframe1d},
	}
	for _, tt := range tests {
		req := baseRequest()
		req.TradingContext = tt.context
		plan, err := resolver.Resolve(req, now)
		require.NoError(t, err)
		assert.Equal(t, tt.timeframe, plan.Timeframe, "context %s", tt.context)
	}
}

func TestResolveSessionRules(t *testing.T) {
	resolver := newTestResolver(t)
	now := time.Now()

	// Daily timeframe drops the session filter regardless of relevance.
	req := baseRequest()
	req.TradingContext = models.ContextPositionAnalysis
	req.SessionRelevance = models.SessionsHighLiquidity
	plan, err := resolver.Resolve(req, now)
	require.NoError(t, err)
	assert.Nil(t, plan.Sessions)

	// specific_session binds exactly the requested session.
	req = baseRequest()
	req.SessionRelevance = models.SessionsSpecific
	req.Session = models.SessionAsian
	plan, err = resolver.Resolve(req, now)
	require.NoError(t, err)
	assert.Equal(t, []models.Session{models.SessionAsian}, plan.Sessions)

	// specific_session without a session is a conflict.
	req.Session = ""
	_, err = resolver.Resolve(req, now)
	var conflict *ConflictingParametersError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "session", conflict.Field)

	// An explicit session without specific_session relevance is a conflict.
	req = baseRequest()
	req.Session = models.SessionLondon
	_, err = resolver.Resolve(req, now)
	require.ErrorAs(t, err, &conflict)

	// Unknown session names are rejected.
	req = baseRequest()
	req.SessionRelevance = models.SessionsSpecific
	req.Session = "tokyo"
	_, err = resolver.Resolve(req, now)
	require.ErrorAs(t, err, &conflict)
}

func TestResolveTieBreaksByComplexityThenRegistration(t *testing.T) {
	resolver := newTestResolver(t)
	now := time.Now()

	// structure_detection + swing candidates are fvg (medium), msb (slow)
	// and order blocks (fast); the cheapest eligible function wins.
	req := baseRequest()
	req.AnalysisStrategy = models.StrategyStructureDetection
	plan, err := resolver.Resolve(req, now)
	require.NoError(t, err)
	assert.Equal(t, "update_order_block_performance", plan.Function.Name)

	// correlation_study + scalping: session correlation and fvg are both
	// medium, so earlier registration wins.
	req = baseRequest()
	req.AnalysisStrategy = models.StrategyCorrelationStudy
	req.TradingContext = models.ContextScalping
	plan, err = resolver.Resolve(req, now)
	require.NoError(t, err)
	assert.Equal(t, "detect_fair_value_gaps", plan.Function.Name)
}

func TestResolveNoApplicableFunction(t *testing.T) {
	registry := newTestRegistry(t)
	mapping := DefaultParameterMappingTable()
	mapping.StrategyFunctions[models.StrategyPerformanceAnalysis] = []string{"calculate_cross_pair_correlation"}
	resolver := NewResolver(registry, mapping, testAnalysisConfig())

	req := baseRequest()
	req.TradingContext = models.ContextScalping

	_, err := resolver.Resolve(req, time.Now())
	var noFunc *NoApplicableFunctionError
	require.ErrorAs(t, err, &noFunc)
	assert.Equal(t, models.StrategyPerformanceAnalysis, noFunc.Strategy)
	assert.Equal(t, models.ContextScalping, noFunc.Context)
}

func TestResolveUnknownMappedFunctionIsConfigBug(t *testing.T) {
	registry := newTestRegistry(t)
	mapping := DefaultParameterMappingTable()
	mapping.StrategyFunctions[models.StrategyPerformanceAnalysis] = []string{"function_that_does_not_exist"}
	resolver := NewResolver(registry, mapping, testAnalysisConfig())

	_, err := resolver.Resolve(baseRequest(), time.Now())
	var unknown *UnknownFunctionError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "function_that_does_not_exist", unknown.Name)
}
