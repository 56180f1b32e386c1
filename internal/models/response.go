package models

import "github.com/shopspring/decimal"

// Row is one record returned by an analytical function. The column set is
// function-specific, so rows stay opaque to the pipeline.
type Row map[string]any

// ExecutionStatus is the overall outcome of one analysis request.
type ExecutionStatus string

const (
	StatusSuccess ExecutionStatus = "success"
	StatusPartial ExecutionStatus = "partial"
	StatusFailed  ExecutionStatus = "failed"
)

// ValidationOutcome is the statistical sufficiency assessment of one raw
// result set. Insufficiency is an expected outcome, never an error.
type ValidationOutcome struct {
	SampleSize      int      `json:"sample_size"`
	DataCoveragePct float64  `json:"data_coverage_pct"`
	ConfidenceLevel float64  `json:"confidence_level"`
	IsSufficient    bool     `json:"is_sufficient"`
	Warnings        []string `json:"warnings,omitempty"`
}

// AnalysisMetadata is the statistical metadata block of a response.
type AnalysisMetadata struct {
	SampleSize       int     `json:"sample_size"`
	DataCoverage     float64 `json:"data_coverage"`
	ConfidenceLevel  float64 `json:"confidence_level"`
	ExecutionTimeMs  int64   `json:"execution_time_ms"`
	SQLFunctionUsed  string  `json:"sql_function_used"`
	DataQualityScore float64 `json:"data_quality_score"`
}

// ColumnStats summarizes one numeric result column.
type ColumnStats struct {
	Min  decimal.Decimal `json:"min"`
	Mean decimal.Decimal `json:"mean"`
	Max  decimal.Decimal `json:"max"`
}

// SummaryStats aggregates the result set for quick inspection without
// walking the raw rows.
type SummaryStats struct {
	TotalRecords   int                    `json:"total_records"`
	AnalysisType   AnalysisStrategy       `json:"analysis_type"`
	ParametersUsed map[string]any         `json:"parameters_used"`
	Columns        map[string]ColumnStats `json:"columns,omitempty"`
}

// AnalysisResults is the structured payload block of a response.
type AnalysisResults struct {
	FunctionOutput []Row        `json:"function_output"`
	SummaryStats   SummaryStats `json:"summary_stats"`
}

// AnalysisResponse is the outbound contract returned to the calling
// orchestration layer. Every failure path still produces a well-formed
// response; the pipeline never lets an error escape its boundary.
type AnalysisResponse struct {
	ExecutionStatus ExecutionStatus  `json:"execution_status"`
	AnalysisResults AnalysisResults  `json:"analysis_results"`
	Metadata        AnalysisMetadata `json:"metadata"`
	Recommendations []string         `json:"recommendations"`
	Warnings        []string         `json:"warnings"`
	ErrorDetails    string           `json:"error_details,omitempty"`
}
