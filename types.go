package bags

import (
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"
)

//////
// Core types shared by the enumerator, evaluator, orchestrator and selector.
//////

// Configuration is one concrete assignment of hyperparameter values, keyed by
// parameter name. Configurations are produced by ParamGrid.Expand and
// consumed read-only by the fold evaluator; treat them as immutable.
//
// Usage example:
//
//	cfg := bags.Configuration{
//	    "learning_rate": 0.1,
//	    "epochs":        200,
//	}
type Configuration map[string]any

// Key returns a canonical string form of the configuration: parameter
// name-sorted "name=value" pairs joined by spaces. Two configurations with
// the same contents always produce the same key, so it can be used to
// identify a configuration in reports and logs.
func (c Configuration) Key() string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}

	sort.Strings(names)

	pairs := make([]string, len(names))
	for i, name := range names {
		pairs[i] = fmt.Sprintf("%s=%v", name, c[name])
	}

	return strings.Join(pairs, " ")
}

// Fold is one train/validation split used in cross-validation: two disjoint
// index sets over the dataset rows. Folds are built once per search (see
// KFold and StratifiedKFold) and reused across every configuration so that
// all configurations are compared on identical splits.
type Fold struct {
	// Train holds the row indices used to fit the estimator.
	Train []int

	// Validation holds the held-out row indices used to score it.
	Validation []int
}

// Dataset bundles the three equal-length inputs of a search: the feature
// matrix, the binary labels, and the protected-attribute group of each row.
//
// Fields:
// - X: feature matrix, one row per sample (gonum dense matrix)
// - Y: labels in {0, 1}, one per row of X
// - Groups: discrete protected-attribute group label, one per row of X
//
// The dataset is immutable for the duration of a search.
type Dataset struct {
	X      *mat.Dense
	Y      []int
	Groups []string
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil || d.X == nil {
		return 0
	}

	rows, _ := d.X.Dims()

	return rows
}

// Validate checks that X, Y and Groups agree on the row count.
//
// Returns:
// - nil when the dataset is well-formed
// - *DimensionMismatchError otherwise.
func (d *Dataset) Validate() error {
	rows := d.Len()

	if len(d.Y) != rows {
		return &DimensionMismatchError{What: "features vs labels", Want: rows, Got: len(d.Y)}
	}

	if len(d.Groups) != rows {
		return &DimensionMismatchError{What: "features vs groups", Want: rows, Got: len(d.Groups)}
	}

	return nil
}

// Subset copies the given rows out of the dataset. The returned matrix,
// labels and groups are fresh allocations; mutating them never touches the
// original dataset, which keeps concurrent fold evaluations independent.
func (d *Dataset) Subset(indices []int) (*mat.Dense, []int, []string) {
	_, cols := d.X.Dims()

	x := mat.NewDense(len(indices), cols, nil)
	y := make([]int, len(indices))
	groups := make([]string, len(indices))

	for i, row := range indices {
		x.SetRow(i, d.X.RawRowView(row))
		y[i] = d.Y[row]
		groups[i] = d.Groups[row]
	}

	return x, y, groups
}

// Estimator is the capability set the fold evaluator requires from a model:
// fit on training data, predict on unseen data. Any model family
// implementing these two operations is accepted; the search core is fully
// agnostic to what is inside.
//
// Implementation notes:
//   - Fit receives one row per training sample and binary labels in {0, 1}
//   - Predict must return exactly one prediction in {0, 1} per input row
//   - A deterministic estimator (or one seeded explicitly through its
//     configuration) makes the whole search deterministic.
type Estimator interface {
	Fit(x mat.Matrix, y []int) error
	Predict(x mat.Matrix) ([]int, error)
}

// EstimatorFactory constructs a fresh Estimator for one configuration. It is
// called once per (configuration, fold) cell so that no model state leaks
// between folds.
//
// Returning an error marks the cell as failed with a FitError; it does not
// abort the search.
type EstimatorFactory func(cfg Configuration) (Estimator, error)

// FairnessMetric selects which bias calculator governs selection.
type FairnessMetric int

const (
	// DemographicParity ranks configurations by their mean
	// demographic-parity gap.
	DemographicParity FairnessMetric = iota

	// EqualizedOdds ranks configurations by their mean equalized-odds gap.
	EqualizedOdds

	// BothMetrics ranks configurations by the worse (larger) of the two
	// mean gaps.
	BothMetrics
)

// String returns the short name used by logs and the CLI.
func (m FairnessMetric) String() string {
	switch m {
	case DemographicParity:
		return "demographic-parity"
	case EqualizedOdds:
		return "equalized-odds"
	case BothMetrics:
		return "both"
	default:
		return fmt.Sprintf("FairnessMetric(%d)", int(m))
	}
}

// ParseFairnessMetric maps a short name ("demographic-parity", "dp",
// "equalized-odds", "eo", "both") to a FairnessMetric.
func ParseFairnessMetric(s string) (FairnessMetric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "demographic-parity", "dp":
		return DemographicParity, nil
	case "equalized-odds", "eo":
		return EqualizedOdds, nil
	case "both":
		return BothMetrics, nil
	default:
		return 0, fmt.Errorf("unknown fairness metric %q", s)
	}
}

// FoldResult holds the scores of one configuration on one fold. Created by
// the fold evaluator, never mutated afterwards.
type FoldResult struct {
	// ConfigIndex and FoldIndex locate the cell in the evaluation grid.
	ConfigIndex int
	FoldIndex   int

	// Accuracy is the fraction of correct validation predictions, in [0, 1].
	Accuracy float64

	// DemographicParityGap is the spread in positive-prediction rate across
	// groups on the validation split, >= 0.
	DemographicParityGap float64

	// EqualizedOddsGap is the larger of the TPR and FPR spreads across
	// groups on the validation split, >= 0.
	EqualizedOddsGap float64
}

// ConfigurationSummary aggregates all fold results of one configuration.
type ConfigurationSummary struct {
	// Index is the configuration's position in enumeration order. Ties in
	// the selector resolve to the smaller index.
	Index int

	// Config is the configuration being summarized.
	Config Configuration

	// MeanAccuracy is the mean validation accuracy over completed folds.
	MeanAccuracy float64

	// MeanDemographicParityGap is the mean demographic-parity gap over
	// completed folds.
	MeanDemographicParityGap float64

	// MeanEqualizedOddsGap is the mean equalized-odds gap over completed
	// folds.
	MeanEqualizedOddsGap float64

	// CompletedFolds and FailedFolds count the folds that produced a
	// FoldResult and the folds dropped with a FitError. Their sum equals
	// the number of folds requested.
	CompletedFolds int
	FailedFolds    int

	// Failed reports that no fold completed. A failed summary carries no
	// meaningful means and is excluded from ranking, never scored as 0.
	Failed bool
}

// Bias returns the summary's bias score under the given metric. For
// BothMetrics it is the larger of the two gaps.
func (s ConfigurationSummary) Bias(metric FairnessMetric) float64 {
	switch metric {
	case EqualizedOdds:
		return s.MeanEqualizedOddsGap
	case BothMetrics:
		if s.MeanEqualizedOddsGap > s.MeanDemographicParityGap {
			return s.MeanEqualizedOddsGap
		}

		return s.MeanDemographicParityGap
	default:
		return s.MeanDemographicParityGap
	}
}

// SearchResult is the terminal artifact of one search run. The orchestrator
// holds no reference to it after returning; it is owned by the caller.
type SearchResult struct {
	// Summaries holds one entry per enumerated configuration, in
	// enumeration order regardless of rank.
	Summaries []ConfigurationSummary

	// Ranked holds indices into Summaries, best first. Failed summaries are
	// excluded.
	Ranked []int

	// Best is the index into Summaries of the selected winner.
	Best int

	// FoldErrors records every fold failure (*FitError) encountered during
	// the run, for diagnosis.
	FoldErrors []error
}

// BestSummary returns the winning configuration's summary.
func (r *SearchResult) BestSummary() ConfigurationSummary {
	return r.Summaries[r.Best]
}

// ProgressUpdate reports one completed (configuration, fold) evaluation.
// Updates are sent on SearchConfig.ProgressChan as cells finish; the send is
// non-blocking, so a slow receiver only loses updates, never stalls the
// search.
type ProgressUpdate struct {
	// ConfigIndex and TotalConfigs locate the configuration.
	ConfigIndex  int
	TotalConfigs int

	// FoldIndex and TotalFolds locate the fold.
	FoldIndex  int
	TotalFolds int

	// Accuracy and Bias are the cell's scores. Bias is the score under the
	// configured fairness metric. Both are zero when Failed is set.
	Accuracy float64
	Bias     float64

	// Failed reports that this cell ended in a FitError.
	Failed bool
}

// SearchConfig controls one search run.
//
// Usage example:
//
//	config := bags.DefaultSearchConfig()
//	config.Metric = bags.EqualizedOdds
//	config.FairnessWeight = 0.3
type SearchConfig struct {
	// Metric selects which bias calculator governs selection.
	Metric FairnessMetric

	// FairnessWeight in [0, 1] controls the accuracy/bias trade-off in the
	// selector's combined score: 0 ranks by accuracy alone, 1 by bias
	// alone.
	FairnessWeight float64

	// MaxWorkers bounds the number of concurrent fold evaluations. Model
	// fitting is usually the resource-heavy part of a search; an unbounded
	// pool risks exhausting memory. Values < 1 fall back to one worker.
	MaxWorkers int

	// FoldTimeout, when positive, bounds each fold evaluation. Expiry is
	// treated as a fold failure (FitError wrapping ErrFoldTimeout), not a
	// search failure.
	FoldTimeout time.Duration

	// ProgressChan receives a ProgressUpdate per completed cell. If nil, no
	// updates are sent.
	ProgressChan chan<- ProgressUpdate

	// Logger, when non-nil, receives debug-level progress lines. The
	// library never logs above debug.
	Logger *slog.Logger
}

// DefaultSearchConfig returns a default configuration: demographic parity,
// equal accuracy/bias weighting, one worker per CPU, no timeout.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Metric:         DemographicParity,
		FairnessWeight: 0.5,
		MaxWorkers:     runtime.NumCPU(),
	}
}
