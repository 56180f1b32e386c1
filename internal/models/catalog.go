package models

// ComplexityTier classifies the expected cost of an analytical function.
type ComplexityTier string

const (
	ComplexityFast   ComplexityTier = "fast"
	ComplexityMedium ComplexityTier = "medium"
	ComplexitySlow   ComplexityTier = "slow"
)

// Rank orders complexity tiers from cheapest to most expensive. Unknown
// tiers rank after slow so they are never preferred.
func (t ComplexityTier) Rank() int {
	switch t {
	case ComplexityFast:
		return 0
	case ComplexityMedium:
		return 1
	case ComplexitySlow:
		return 2
	}
	return 3
}

// Valid reports whether the tier is one of the supported values.
func (t ComplexityTier) Valid() bool {
	return t == ComplexityFast || t == ComplexityMedium || t == ComplexitySlow
}

// ParameterSpec describes one required parameter of an analytical function.
type ParameterSpec struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// FunctionDescriptor is a catalog entry for one analytical SQL function.
// Descriptors are loaded once at startup and treated as read-only for the
// remainder of the process lifetime.
type FunctionDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	// Parameters lists required parameters in declaration order.
	Parameters []ParameterSpec `json:"parameters"`
	ReturnType string          `json:"return_type"`
	// Categories maps the function to one or more analysis strategies.
	Categories []AnalysisStrategy `json:"categories"`
	// Contexts lists the trading contexts the function is applicable to.
	Contexts      []TradingContext `json:"applicable_contexts"`
	Complexity    ComplexityTier   `json:"complexity_tier"`
	MinSampleSize int              `json:"min_sample_size"`
}

// InCategory reports whether the descriptor serves the given strategy.
func (d *FunctionDescriptor) InCategory(strategy AnalysisStrategy) bool {
	for _, c := range d.Categories {
		if c == strategy {
			return true
		}
	}
	return false
}

// SupportsContext reports whether the descriptor is applicable to the given
// trading context.
func (d *FunctionDescriptor) SupportsContext(ctx TradingContext) bool {
	for _, c := range d.Contexts {
		if c == ctx {
			return true
		}
	}
	return false
}
