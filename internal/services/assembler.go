package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ictlab/backtest-engine-go/internal/models"
)

// nearMissRatio is the shortfall ratio above which a result counts as a
// tier boundary near-miss for recommendation purposes.
const nearMissRatio = 0.8

// ResponseAssembler merges raw results, the validation outcome, and plan
// metadata into the outbound response contract. It is a deterministic,
// pure transformation with no failure path: upstream failures are turned
// into failed responses by the pipeline before the assembler is reached.
type ResponseAssembler struct{}

// NewResponseAssembler creates an assembler.
func NewResponseAssembler() *ResponseAssembler {
	return &ResponseAssembler{}
}

// Assemble builds the response for a completed execution. The status is
// success when the outcome is sufficient and partial otherwise; failed
// responses are produced only at the pipeline boundary.
func (a *ResponseAssembler) Assemble(plan *models.ResolvedExecutionPlan, rows []models.Row, outcome models.ValidationOutcome, elapsedMs int64) models.AnalysisResponse {
	status := models.StatusPartial
	if outcome.IsSufficient {
		status = models.StatusSuccess
	}

	strategy := models.AnalysisStrategy("")
	if len(plan.Function.Categories) > 0 {
		strategy = plan.Function.Categories[0]
	}

	warnings := append([]string(nil), outcome.Warnings...)

	return models.AnalysisResponse{
		ExecutionStatus: status,
		AnalysisResults: models.AnalysisResults{
			FunctionOutput: rows,
			SummaryStats: models.SummaryStats{
				TotalRecords:   outcome.SampleSize,
				AnalysisType:   strategy,
				ParametersUsed: plan.ExecutionParameters(),
				Columns:        summarizeColumns(rows),
			},
		},
		Metadata: models.AnalysisMetadata{
			SampleSize:       outcome.SampleSize,
			DataCoverage:     outcome.DataCoveragePct,
			ConfidenceLevel:  outcome.ConfidenceLevel,
			ExecutionTimeMs:  elapsedMs,
			SQLFunctionUsed:  plan.Function.Name,
			DataQualityScore: (outcome.ConfidenceLevel + outcome.DataCoveragePct) / 2,
		},
		Recommendations: buildRecommendations(plan, rows, outcome),
		Warnings:        warnings,
	}
}

// buildRecommendations generates follow-up suggestions from fixed
// templates. All applicable templates fire, in a fixed order.
func buildRecommendations(plan *models.ResolvedExecutionPlan, rows []models.Row, outcome models.ValidationOutcome) []string {
	var recs []string

	if !outcome.IsSufficient {
		sampleRatio := ratio(float64(outcome.SampleSize), float64(plan.MinSampleSize))
		coverageRatio := ratio(outcome.DataCoveragePct, plan.MinCoveragePct)
		shortfall := sampleRatio
		if coverageRatio < shortfall {
			shortfall = coverageRatio
		}
		if shortfall >= nearMissRatio {
			recs = append(recs,
				"Results narrowly miss the quality tier thresholds: consider widening the date range")
		}
	}

	if len(plan.Sessions) > 0 && outcome.DataCoveragePct < plan.MinCoveragePct {
		recs = append(recs,
			"Session filter reduced data coverage: consider session_relevance all_sessions or dropping the session filter")
	}

	if plan.AssetFocus == models.FocusSpecificSymbol && len(rows) == 0 && len(plan.Alternates) > 0 {
		recs = append(recs, fmt.Sprintf(
			"No rows returned for %s: consider alternate functions %s",
			strings.Join(plan.Symbols, ", "), strings.Join(plan.Alternates, ", ")))
	}

	switch {
	case outcome.ConfidenceLevel > 90:
		recs = append(recs, "High confidence results: suitable for strategy validation")
	case outcome.ConfidenceLevel > 75:
		recs = append(recs, "Good confidence results: consider additional validation")
	default:
		recs = append(recs, "Low confidence: recommend broader analysis criteria or a different approach")
	}

	return recs
}

// summarizeColumns computes min/mean/max for every numeric column present
// in the result set. Non-numeric columns are skipped.
func summarizeColumns(rows []models.Row) map[string]models.ColumnStats {
	if len(rows) == 0 {
		return nil
	}

	sums := make(map[string]decimal.Decimal)
	mins := make(map[string]decimal.Decimal)
	maxs := make(map[string]decimal.Decimal)
	counts := make(map[string]int64)

	for _, row := range rows {
		for column, value := range row {
			d, ok := toDecimal(value)
			if !ok {
				continue
			}
			if counts[column] == 0 {
				mins[column] = d
				maxs[column] = d
				sums[column] = d
			} else {
				if d.LessThan(mins[column]) {
					mins[column] = d
				}
				if d.GreaterThan(maxs[column]) {
					maxs[column] = d
				}
				sums[column] = sums[column].Add(d)
			}
			counts[column]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	columns := make([]string, 0, len(counts))
	for column := range counts {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	stats := make(map[string]models.ColumnStats, len(columns))
	for _, column := range columns {
		stats[column] = models.ColumnStats{
			Min:  mins[column],
			Mean: sums[column].Div(decimal.NewFromInt(counts[column])).Round(6),
			Max:  maxs[column],
		}
	}
	return stats
}

func toDecimal(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true
	case float64:
		return decimal.NewFromFloat(v), true
	case float32:
		return decimal.NewFromFloat32(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int32:
		return decimal.NewFromInt32(v), true
	case int64:
		return decimal.NewFromInt(v), true
	}
	return decimal.Decimal{}, false
}
