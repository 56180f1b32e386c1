package services

import (
	"time"

	"github.com/ictlab/backtest-engine-go/internal/config"
	"github.com/ictlab/backtest-engine-go/internal/models"
)

// Resolver maps a structured strategic request onto a concrete execution
// plan using the function registry and parameter mapping table. It is pure
// and stateless over its immutable inputs, so concurrent use needs no
// locking.
type Resolver struct {
	registry *FunctionRegistry
	mapping  *ParameterMappingTable
	cfg      config.AnalysisConfig
}

// NewResolver creates a resolver over a fully-constructed registry and
// mapping table. Both must be loaded before the first request is resolved.
func NewResolver(registry *FunctionRegistry, mapping *ParameterMappingTable, cfg config.AnalysisConfig) *Resolver {
	return &Resolver{
		registry: registry,
		mapping:  mapping,
		cfg:      cfg,
	}
}

// Resolve derives an execution plan from the request, evaluated at now.
// It returns ConflictingParametersError when an explicit optional field
// contradicts its scope enum, NoApplicableFunctionError when the strategy
// and context yield zero candidates, and UnknownFunctionError when the
// mapping table references a function missing from the catalog.
func (r *Resolver) Resolve(req models.StrategicRequest, now time.Time) (*models.ResolvedExecutionPlan, error) {
	timeframe, err := r.resolveTimeframe(req)
	if err != nil {
		return nil, err
	}
	symbols, err := resolveSymbols(req)
	if err != nil {
		return nil, err
	}
	dateRange, err := r.resolveDateRange(req, now)
	if err != nil {
		return nil, err
	}
	sessions, err := resolveSessions(req, timeframe)
	if err != nil {
		return nil, err
	}

	thresholds := r.mapping.Thresholds(req.QualityRequirements)

	chosen, alternates, err := r.selectFunction(req, thresholds)
	if err != nil {
		return nil, err
	}

	return &models.ResolvedExecutionPlan{
		Function:          chosen,
		AssetFocus:        req.AssetFocus,
		Symbols:           symbols,
		Timeframe:         timeframe,
		Sessions:          sessions,
		DateRange:         dateRange,
		MinSampleSize:     thresholds.MinSampleSize,
		MinCoveragePct:    thresholds.MinCoveragePct,
		SignificanceLevel: thresholds.SignificanceLevel,
		ConfidenceCeiling: thresholds.ConfidenceCeiling,
		Alternates:        alternates,
	}, nil
}

// selectFunction intersects the mapping table's strategy candidates with
// the registry's context-compatible set, then tie-breaks by complexity and
// registration order so the choice is reproducible.
func (r *Resolver) selectFunction(req models.StrategicRequest, thresholds QualityThresholds) (*models.FunctionDescriptor, []string, error) {
	names := r.mapping.StrategyFunctions[req.AnalysisStrategy]

	var candidates []*models.FunctionDescriptor
	for _, name := range names {
		desc, err := r.registry.Lookup(name)
		if err != nil {
			// A mapping entry pointing at a missing function is a
			// configuration bug, not a data condition.
			return nil, nil, err
		}
		if desc.SupportsContext(req.TradingContext) {
			candidates = append(candidates, desc)
		}
	}
	if len(candidates) == 0 {
		return nil, nil, &NoApplicableFunctionError{
			Strategy: req.AnalysisStrategy,
			Context:  req.TradingContext,
		}
	}

	// Prefer functions whose own evidence bar meets the tier's minimum
	// sample size. If none do, keep the full candidate list and let the
	// validator report the shortfall.
	pool := candidates
	var eligible []*models.FunctionDescriptor
	for _, desc := range candidates {
		if desc.MinSampleSize >= thresholds.MinSampleSize {
			eligible = append(eligible, desc)
		}
	}
	if len(eligible) > 0 {
		pool = eligible
	}

	chosen := pool[0]
	for _, desc := range pool[1:] {
		if desc.Complexity.Rank() < chosen.Complexity.Rank() {
			chosen = desc
			continue
		}
		if desc.Complexity.Rank() == chosen.Complexity.Rank() &&
			r.registry.registrationIndex(desc.Name) < r.registry.registrationIndex(chosen.Name) {
			chosen = desc
		}
	}

	maxAlternates := r.cfg.MaxAlternates
	if maxAlternates <= 0 {
		maxAlternates = 4
	}
	var alternates []string
	for _, desc := range candidates {
		if desc.Name == chosen.Name {
			continue
		}
		alternates = append(alternates, desc.Name)
		if len(alternates) == maxAlternates {
			break
		}
	}

	return chosen, alternates, nil
}

func (r *Resolver) resolveTimeframe(req models.StrategicRequest) (models.Timeframe, error) {
	if req.Timeframe != "" {
		if !req.Timeframe.Valid() {
			return "", &ConflictingParametersError{
				Field:  "timeframe",
				Value:  string(req.Timeframe),
				Reason: "not a supported timeframe",
			}
		}
		return req.Timeframe, nil
	}
	return r.mapping.ContextDefaults[req.TradingContext].Timeframe, nil
}

func resolveSymbols(req models.StrategicRequest) ([]string, error) {
	switch req.AssetFocus {
	case models.FocusSpecificSymbol:
		if req.Symbol == "" {
			return nil, &ConflictingParametersError{
				Field:  "symbol",
				Value:  "",
				Reason: "asset_focus is specific_symbol but no symbol was supplied",
			}
		}
		if !models.IsSupportedSymbol(req.Symbol) {
			return nil, &ConflictingParametersError{
				Field:  "symbol",
				Value:  req.Symbol,
				Reason: "not in the supported symbol universe",
			}
		}
		return []string{req.Symbol}, nil

	case models.FocusMajorPairs:
		if req.Symbol != "" {
			if !models.IsMajorPair(req.Symbol) {
				return nil, &ConflictingParametersError{
					Field:  "symbol",
					Value:  req.Symbol,
					Reason: "asset_focus is major_pairs but symbol is outside the major-pair set",
				}
			}
			return []string{req.Symbol}, nil
		}
		return append([]string(nil), models.MajorPairs...), nil

	case models.FocusCrossPairs:
		if req.Symbol != "" {
			if !models.IsCrossPair(req.Symbol) {
				return nil, &ConflictingParametersError{
					Field:  "symbol",
					Value:  req.Symbol,
					Reason: "asset_focus is cross_pairs but symbol is outside the cross-pair set",
				}
			}
			return []string{req.Symbol}, nil
		}
		return append([]string(nil), models.CrossPairs...), nil
	}
	// Unreachable for validated requests.
	return nil, &ConflictingParametersError{
		Field:  "asset_focus",
		Value:  string(req.AssetFocus),
		Reason: "not a supported asset focus",
	}
}

func (r *Resolver) resolveDateRange(req models.StrategicRequest, now time.Time) (models.DateRange, error) {
	switch req.TemporalScope {
	case models.ScopeSpecificPeriod:
		if req.DateRange == nil || req.DateRange.IsZero() {
			return models.DateRange{}, &ConflictingParametersError{
				Field:  "date_range",
				Value:  "",
				Reason: "temporal_scope is specific_period but no date_range was supplied",
			}
		}
		if req.DateRange.End.Before(req.DateRange.Start) {
			return models.DateRange{}, &ConflictingParametersError{
				Field:  "date_range",
				Value:  req.DateRange.Start.Format(time.RFC3339) + ".." + req.DateRange.End.Format(time.RFC3339),
				Reason: "range end precedes range start",
			}
		}
		return *req.DateRange, nil

	case models.ScopeRecentPerformance, models.ScopeHistoricalPattern:
		if req.DateRange != nil {
			return models.DateRange{}, &ConflictingParametersError{
				Field:  "date_range",
				Value:  req.DateRange.Start.Format(time.RFC3339) + ".." + req.DateRange.End.Format(time.RFC3339),
				Reason: "explicit date_range requires temporal_scope specific_period",
			}
		}
		days := r.cfg.RecentDays
		if req.TemporalScope == models.ScopeHistoricalPattern {
			days = r.cfg.HistoricalDays
		}
		return models.DateRange{
			Start: now.AddDate(0, 0, -days),
			End:   now,
		}, nil
	}
	return models.DateRange{}, &ConflictingParametersError{
		Field:  "temporal_scope",
		Value:  string(req.TemporalScope),
		Reason: "not a supported temporal scope",
	}
}

// resolveSessions binds the concrete session list. Daily and weekly data
// carries no session dimension, so the filter is omitted there regardless
// of session relevance.
func resolveSessions(req models.StrategicRequest, timeframe models.Timeframe) ([]models.Session, error) {
	if req.SessionRelevance == models.SessionsSpecific && req.Session == "" {
		return nil, &ConflictingParametersError{
			Field:  "session",
			Value:  "",
			Reason: "session_relevance is specific_session but no session was supplied",
		}
	}
	if req.Session != "" {
		if req.SessionRelevance != models.SessionsSpecific {
			return nil, &ConflictingParametersError{
				Field:  "session",
				Value:  string(req.Session),
				Reason: "explicit session requires session_relevance specific_session",
			}
		}
		if !req.Session.Valid() {
			return nil, &ConflictingParametersError{
				Field:  "session",
				Value:  string(req.Session),
				Reason: "not a supported session",
			}
		}
	}

	if !timeframe.IsIntraday() || req.SessionRelevance == models.SessionsAll {
		return nil, nil
	}

	switch req.SessionRelevance {
	case models.SessionsHighLiquidity:
		return append([]models.Session(nil), models.HighLiquiditySessions...), nil
	case models.SessionsSpecific:
		return []models.Session{req.Session}, nil
	}
	return nil, nil
}
