package services

import (
	"fmt"

	"github.com/ictlab/backtest-engine-go/internal/models"
)

// DuplicateFunctionError is returned when a catalog entry is registered
// under a name that is already present.
type DuplicateFunctionError struct {
	Name string
}

func (e *DuplicateFunctionError) Error() string {
	return fmt.Sprintf("function %q is already registered", e.Name)
}

// UnknownFunctionError is returned on a registry lookup miss. It indicates
// a configuration bug (a mapping entry or caller referencing a function the
// catalog does not carry) and is never silently ignored.
type UnknownFunctionError struct {
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("unknown function %q", e.Name)
}

// NoApplicableFunctionError is returned when a strategy/context pair yields
// zero candidate functions.
type NoApplicableFunctionError struct {
	Strategy models.AnalysisStrategy
	Context  models.TradingContext
}

func (e *NoApplicableFunctionError) Error() string {
	return fmt.Sprintf("no applicable function for strategy %q in context %q", e.Strategy, e.Context)
}

// ConflictingParametersError is returned when an explicit optional field
// contradicts its owning scope enum. Conflicts are rejected rather than
// auto-corrected so that authoring bugs surface immediately.
type ConflictingParametersError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConflictingParametersError) Error() string {
	return fmt.Sprintf("conflicting parameter %s=%q: %s", e.Field, e.Value, e.Reason)
}
