package models

import "time"

// ResolvedExecutionPlan is the concrete, fully-bound execution plan derived
// from a StrategicRequest. It is created per request and discarded after
// execution; nothing mutates it after the resolver returns it.
type ResolvedExecutionPlan struct {
	// Function is the chosen catalog entry.
	Function *FunctionDescriptor `json:"function"`
	// AssetFocus is carried from the request for recommendation templates.
	AssetFocus AssetFocus `json:"asset_focus"`
	// Symbols is the resolved symbol set.
	Symbols []string `json:"symbols"`
	// Timeframe is the resolved aggregation granularity.
	Timeframe Timeframe `json:"timeframe"`
	// Sessions is the bound session filter; nil means no session filter.
	// Always nil for daily and weekly timeframes.
	Sessions []Session `json:"sessions,omitempty"`
	// DateRange is the resolved analysis window.
	DateRange DateRange `json:"date_range"`

	// Quality thresholds bound from the parameter mapping table.
	MinSampleSize     int     `json:"min_sample_size"`
	MinCoveragePct    float64 `json:"min_coverage_pct"`
	SignificanceLevel float64 `json:"significance_level"`
	ConfidenceCeiling float64 `json:"confidence_ceiling"`

	// Alternates holds up to four alternate candidate function names for
	// fallback messaging.
	Alternates []string `json:"alternates,omitempty"`
}

// ExecutionParameters builds the keyed parameter structure passed to the
// execution adapter. The adapter forwards it to the SQL function as a
// single jsonb argument.
func (p *ResolvedExecutionPlan) ExecutionParameters() map[string]any {
	params := map[string]any{
		"symbols":            p.Symbols,
		"timeframe":          string(p.Timeframe),
		"start_date":         p.DateRange.Start.UTC().Format(time.RFC3339),
		"end_date":           p.DateRange.End.UTC().Format(time.RFC3339),
		"min_sample_size":    p.MinSampleSize,
		"significance_level": p.SignificanceLevel,
	}
	if len(p.Sessions) > 0 {
		sessions := make([]string, len(p.Sessions))
		for i, s := range p.Sessions {
			sessions[i] = string(s)
		}
		params["sessions"] = sessions
	}
	return params
}
