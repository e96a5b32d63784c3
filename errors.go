package bags

import (
	"errors"
	"fmt"
)

//////
// Error taxonomy.
//
// A record (FoldResult, ConfigurationSummary) is either complete or absent;
// these errors are how incompleteness is surfaced instead.
//////

// ErrFoldTimeout is the cause recorded in a FitError when a single fold
// evaluation exceeded the configured timeout.
var ErrFoldTimeout = errors.New("fold evaluation timed out")

// DimensionMismatchError indicates that the inputs to a metric calculator, or
// the vectors of a Dataset, do not share the same length. It is always a
// caller error and always fatal: no partial result is produced.
type DimensionMismatchError struct {
	// What describes the misaligned inputs, e.g. "predictions vs labels".
	What string

	// Want and Got are the expected and observed lengths.
	Want, Got int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: %s: want %d, got %d", e.What, e.Want, e.Got)
}

// InvalidGridError indicates a parameter grid that cannot be expanded: either
// the grid has no parameters at all, or a parameter has zero candidate
// values. Fatal at enumeration time.
type InvalidGridError struct {
	// Parameter is the offending parameter name, empty when the whole grid
	// is empty.
	Parameter string
}

func (e *InvalidGridError) Error() string {
	if e.Parameter == "" {
		return "invalid grid: no parameters"
	}

	return fmt.Sprintf("invalid grid: parameter %q has no candidate values", e.Parameter)
}

// FitError records the failure of a single (configuration, fold) evaluation:
// the estimator returned an error or panicked during fitting, produced a
// prediction vector of the wrong length, or the evaluation timed out.
//
// A FitError is recovered locally: the fold is dropped from its
// configuration's aggregate and the failure is recorded on the SearchResult.
// It never aborts the search.
type FitError struct {
	// ConfigIndex and FoldIndex locate the failed cell in the evaluation
	// grid, in enumeration order.
	ConfigIndex int
	FoldIndex   int

	// Err is the underlying cause.
	Err error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("fit failed for configuration %d on fold %d: %v",
		e.ConfigIndex, e.FoldIndex, e.Err)
}

func (e *FitError) Unwrap() error { return e.Err }

// NoFeasibleConfigurationError indicates that selection found nothing to
// rank: in constrained mode, no configuration satisfied the bias threshold;
// in any mode, every configuration may have been excluded because all of its
// folds failed. Selection never silently falls back to a weaker rule.
//
// Summaries carries the full summary table so the caller can diagnose why
// nothing was feasible.
type NoFeasibleConfigurationError struct {
	// Threshold is the bias threshold that filtered everything out.
	// Meaningless (zero) when Constrained is false.
	Threshold float64

	// Constrained reports whether threshold-constrained selection was in
	// effect.
	Constrained bool

	// Summaries is the full table considered by the selector.
	Summaries []ConfigurationSummary
}

func (e *NoFeasibleConfigurationError) Error() string {
	if e.Constrained {
		return fmt.Sprintf(
			"no feasible configuration: none of %d summaries has bias <= %g",
			len(e.Summaries), e.Threshold)
	}

	return fmt.Sprintf(
		"no feasible configuration: all %d configurations failed every fold",
		len(e.Summaries))
}
