package models

import (
	"fmt"
	"time"
)

// AnalysisStrategy identifies the family of analytical SQL functions a
// request should be routed to.
type AnalysisStrategy string

const (
	StrategyPerformanceAnalysis AnalysisStrategy = "performance_analysis"
	StrategyCorrelationStudy    AnalysisStrategy = "correlation_study"
	StrategyStructureDetection  AnalysisStrategy = "structure_detection"
)

// Valid reports whether the strategy is one of the supported values.
func (s AnalysisStrategy) Valid() bool {
	switch s {
	case StrategyPerformanceAnalysis, StrategyCorrelationStudy, StrategyStructureDetection:
		return true
	}
	return false
}

// TradingContext describes the trading style the analysis should serve.
// It drives the default timeframe selection.
type TradingContext string

const (
	ContextScalping         TradingContext = "scalping"
	ContextSwingTrading     TradingContext = "swing_trading"
	ContextPositionAnalysis TradingContext = "position_analysis"
)

// Valid reports whether the trading context is one of the supported values.
func (c TradingContext) Valid() bool {
	switch c {
	case ContextScalping, ContextSwingTrading, ContextPositionAnalysis:
		return true
	}
	return false
}

// TemporalScope describes how the analysis window is determined.
type TemporalScope string

const (
	ScopeRecentPerformance TemporalScope = "recent_performance"
	ScopeHistoricalPattern TemporalScope = "historical_pattern"
	ScopeSpecificPeriod    TemporalScope = "specific_period"
)

// Valid reports whether the temporal scope is one of the supported values.
func (s TemporalScope) Valid() bool {
	switch s {
	case ScopeRecentPerformance, ScopeHistoricalPattern, ScopeSpecificPeriod:
		return true
	}
	return false
}

// AssetFocus describes which symbol universe the analysis targets.
type AssetFocus string

const (
	FocusMajorPairs     AssetFocus = "major_pairs"
	FocusCrossPairs     AssetFocus = "cross_pairs"
	FocusSpecificSymbol AssetFocus = "specific_symbol"
)

// Valid reports whether the asset focus is one of the supported values.
func (f AssetFocus) Valid() bool {
	switch f {
	case FocusMajorPairs, FocusCrossPairs, FocusSpecificSymbol:
		return true
	}
	return false
}

// SessionRelevance describes which trading sessions matter for the analysis.
// Session filters only apply to intraday timeframes.
type SessionRelevance string

const (
	SessionsHighLiquidity SessionRelevance = "high_liquidity"
	SessionsAll           SessionRelevance = "all_sessions"
	SessionsSpecific      SessionRelevance = "specific_session"
)

// Valid reports whether the session relevance is one of the supported values.
func (r SessionRelevance) Valid() bool {
	switch r {
	case SessionsHighLiquidity, SessionsAll, SessionsSpecific:
		return true
	}
	return false
}

// QualityTier selects the statistical sufficiency thresholds applied to
// query results.
type QualityTier string

const (
	TierHighConfidence QualityTier = "high_confidence"
	TierBalanced       QualityTier = "balanced"
	TierBroadCoverage  QualityTier = "broad_coverage"
)

// Valid reports whether the quality tier is one of the supported values.
func (t QualityTier) Valid() bool {
	switch t {
	case TierHighConfidence, TierBalanced, TierBroadCoverage:
		return true
	}
	return false
}

// DateRange is an inclusive analysis window.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IsZero reports whether both bounds are unset.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Days returns the window length in whole days, rounded down.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours() / 24)
}

// StrategicRequest is the structured analysis intent produced by the
// external classification layer. It is immutable once constructed; the
// resolver derives an execution plan from it without modifying it.
type StrategicRequest struct {
	AnalysisStrategy    AnalysisStrategy `json:"analysis_strategy"`
	TradingContext      TradingContext   `json:"trading_context"`
	TemporalScope       TemporalScope    `json:"temporal_scope"`
	AssetFocus          AssetFocus       `json:"asset_focus"`
	SessionRelevance    SessionRelevance `json:"session_relevance"`
	QualityRequirements QualityTier      `json:"quality_requirements"`

	// Optional fields, each owned by one of the scope enums above.
	Symbol    string     `json:"symbol,omitempty"`
	Timeframe Timeframe  `json:"timeframe,omitempty"`
	DateRange *DateRange `json:"date_range,omitempty"`
	Session   Session    `json:"session,omitempty"`
}

// Validate checks that every enum field carries a supported value. It does
// not check cross-field consistency; that is the resolver's job, so that
// conflicts surface as ConflictingParametersError with full context.
func (r StrategicRequest) Validate() error {
	if !r.AnalysisStrategy.Valid() {
		return fmt.Errorf("invalid analysis_strategy %q", r.AnalysisStrategy)
	}
	if !r.TradingContext.Valid() {
		return fmt.Errorf("invalid trading_context %q", r.TradingContext)
	}
	if !r.TemporalScope.Valid() {
		return fmt.Errorf("invalid temporal_scope %q", r.TemporalScope)
	}
	if !r.AssetFocus.Valid() {
		return fmt.Errorf("invalid asset_focus %q", r.AssetFocus)
	}
	if !r.SessionRelevance.Valid() {
		return fmt.Errorf("invalid session_relevance %q", r.SessionRelevance)
	}
	if !r.QualityRequirements.Valid() {
		return fmt.Errorf("invalid quality_requirements %q", r.QualityRequirements)
	}
	return nil
}
