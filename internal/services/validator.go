package services

import (
	"fmt"

	"github.com/ictlab/backtest-engine-go/internal/models"
)

// ExpectedRowCounter supplies the theoretically expected row count for a
// resolved plan, used as the coverage baseline. The data tier owns the
// actual calendar; when no counter is available the validator falls back
// to comparing the sample against the plan's minimum sample size.
type ExpectedRowCounter interface {
	ExpectedRows(plan *models.ResolvedExecutionPlan) (int, bool)
}

// StatisticalValidator checks raw result sets against the plan's
// sufficiency thresholds. It never fails: insufficiency is an expected,
// common outcome and is reported through the outcome value.
type StatisticalValidator struct {
	baseline ExpectedRowCounter
}

// NewStatisticalValidator creates a validator. baseline may be nil.
func NewStatisticalValidator(baseline ExpectedRowCounter) *StatisticalValidator {
	return &StatisticalValidator{baseline: baseline}
}

// Validate computes the sufficiency outcome for one raw result set.
func (v *StatisticalValidator) Validate(rows []models.Row, plan *models.ResolvedExecutionPlan) models.ValidationOutcome {
	sampleSize := len(rows)
	coverage := v.coveragePct(sampleSize, plan)

	sufficient := sampleSize >= plan.MinSampleSize && coverage >= plan.MinCoveragePct

	confidence := plan.ConfidenceCeiling
	if !sufficient {
		sampleRatio := ratio(float64(sampleSize), float64(plan.MinSampleSize))
		coverageRatio := ratio(coverage, plan.MinCoveragePct)
		shortfall := sampleRatio
		if coverageRatio < shortfall {
			shortfall = coverageRatio
		}
		confidence = plan.ConfidenceCeiling * shortfall
	}

	var warnings []string
	if sampleSize < plan.MinSampleSize {
		warnings = append(warnings, fmt.Sprintf(
			"insufficient sample size: %d of %d required", sampleSize, plan.MinSampleSize))
	}
	if coverage < plan.MinCoveragePct {
		warnings = append(warnings, fmt.Sprintf(
			"insufficient data coverage: %.1f%% of %.1f%% required", coverage, plan.MinCoveragePct))
	}
	if coverage < 50 {
		warnings = append(warnings,
			"severe data gaps: results may be unreliable regardless of tier")
	}

	return models.ValidationOutcome{
		SampleSize:      sampleSize,
		DataCoveragePct: coverage,
		ConfidenceLevel: confidence,
		IsSufficient:    sufficient,
		Warnings:        warnings,
	}
}

// coveragePct compares returned rows against the expected row count for
// the plan's range and timeframe, falling back to the minimum sample size
// when no baseline is available. Clipped to [0, 100].
func (v *StatisticalValidator) coveragePct(sampleSize int, plan *models.ResolvedExecutionPlan) float64 {
	denominator := plan.MinSampleSize
	if v.baseline != nil {
		if expected, ok := v.baseline.ExpectedRows(plan); ok && expected > 0 {
			denominator = expected
		}
	}
	if denominator <= 0 {
		return 0
	}
	pct := float64(sampleSize) / float64(denominator) * 100
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}

// ratio clips numerator/denominator to [0, 1].
func ratio(numerator, denominator float64) float64 {
	if denominator <= 0 {
		return 0
	}
	r := numerator / denominator
	if r > 1 {
		return 1
	}
	if r < 0 {
		return 0
	}
	return r
}
