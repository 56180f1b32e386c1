package services

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ictlab/backtest-engine-go/internal/models"
)

// QualityThresholds holds the numeric thresholds of one quality tier.
type QualityThresholds struct {
	MinSampleSize     int     `json:"min_sample_size"`
	MinCoveragePct    float64 `json:"min_coverage_pct"`
	SignificanceLevel float64 `json:"significance_level"`
	// ConfidenceCeiling is the tier's nominal confidence level, reached
	// only when the result set is sufficient.
	ConfidenceCeiling float64 `json:"confidence_ceiling"`
}

// ContextDefaults holds the per-trading-context parameter defaults.
type ContextDefaults struct {
	Timeframe models.Timeframe `json:"timeframe"`
}

// ParameterMappingTable is the static policy data consulted during
// resolution: which functions serve a strategy, which timeframe a trading
// context defaults to, and which thresholds a quality tier carries.
// Like the registry it is built once at startup and never mutated.
type ParameterMappingTable struct {
	StrategyFunctions map[models.AnalysisStrategy][]string    `json:"strategy_functions"`
	ContextDefaults   map[models.TradingContext]ContextDefaults `json:"context_defaults"`
	QualityTiers      map[models.QualityTier]QualityThresholds  `json:"quality_tiers"`
}

// DefaultParameterMappingTable returns the built-in policy table.
func DefaultParameterMappingTable() *ParameterMappingTable {
	return &ParameterMappingTable{
		StrategyFunctions: map[models.AnalysisStrategy][]string{
			models.StrategyPerformanceAnalysis: {
				"update_order_block_performance",
				"analyze_session_performance",
			},
			models.StrategyCorrelationStudy: {
				"calculate_cross_pair_correlation",
				"analyze_session_correlation",
				"detect_fair_value_gaps",
			},
			models.StrategyStructureDetection: {
				"detect_fair_value_gaps",
				"identify_market_structure_breaks",
				"analyze_liquidity_sweeps",
				"update_order_block_performance",
			},
		},
		ContextDefaults: map[models.TradingContext]ContextDefaults{
			models.ContextScalping:         {Timeframe: models.Timeframe15m},
			models.ContextSwingTrading:     {Timeframe: models.Timeframe4h},
			models.ContextPositionAnalysis: {Timeframe: models.Timeframe1d},
		},
		QualityTiers: map[models.QualityTier]QualityThresholds{
			models.TierHighConfidence: {
				MinSampleSize:     20,
				MinCoveragePct:    80,
				SignificanceLevel: 0.01,
				ConfidenceCeiling: 90,
			},
			models.TierBalanced: {
				MinSampleSize:     10,
				MinCoveragePct:    70,
				SignificanceLevel: 0.05,
				ConfidenceCeiling: 75,
			},
			models.TierBroadCoverage: {
				MinSampleSize:     5,
				MinCoveragePct:    50,
				SignificanceLevel: 0.10,
				ConfidenceCeiling: 60,
			},
		},
	}
}

// LoadParameterMapping reads a mapping table from a JSON file. Sections
// absent from the file fall back to the built-in defaults.
func LoadParameterMapping(path string) (*ParameterMappingTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameter mapping: %w", err)
	}

	table := DefaultParameterMappingTable()
	if err := json.Unmarshal(data, table); err != nil {
		return nil, fmt.Errorf("failed to parse parameter mapping: %w", err)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// Validate checks the table covers every enum value it is keyed on.
func (t *ParameterMappingTable) Validate() error {
	for _, strategy := range []models.AnalysisStrategy{
		models.StrategyPerformanceAnalysis,
		models.StrategyCorrelationStudy,
		models.StrategyStructureDetection,
	} {
		if len(t.StrategyFunctions[strategy]) == 0 {
			return fmt.Errorf("mapping table has no functions for strategy %q", strategy)
		}
	}
	for _, ctx := range []models.TradingContext{
		models.ContextScalping,
		models.ContextSwingTrading,
		models.ContextPositionAnalysis,
	} {
		if !t.ContextDefaults[ctx].Timeframe.Valid() {
			return fmt.Errorf("mapping table has no timeframe default for context %q", ctx)
		}
	}
	for _, tier := range []models.QualityTier{
		models.TierHighConfidence,
		models.TierBalanced,
		models.TierBroadCoverage,
	} {
		row := t.QualityTiers[tier]
		if row.MinSampleSize <= 0 || row.MinCoveragePct <= 0 || row.ConfidenceCeiling <= 0 {
			return fmt.Errorf("mapping table has incomplete thresholds for tier %q", tier)
		}
	}
	return nil
}

// Thresholds returns the threshold row for a tier.
func (t *ParameterMappingTable) Thresholds(tier models.QualityTier) QualityThresholds {
	return t.QualityTiers[tier]
}
