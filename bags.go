package bags

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

//////
// Search orchestration.
//////

// Search runs bias-aware grid search: every configuration expanded from the
// grid is cross-validated over the given folds, scored for accuracy and for
// both group-fairness gaps, and the selector picks the configuration with
// the best combined score.
//
// Parameters:
// - ctx: cancels the whole search
// - config: SearchConfig controlling metric choice, trade-off weight,
//   concurrency bound, per-fold timeout and progress reporting
// - grid: the declarative parameter grid to expand
// - ds: feature matrix, labels and protected-attribute groups
// - folds: cross-validation splits, shared by every configuration (build
//   them once with KFold or StratifiedKFold)
// - factory: constructs a fresh estimator per (configuration, fold) cell
//
// Returns:
// - *SearchResult: all configuration summaries in enumeration order, the
//   ranked order, the selected winner, and any recorded fold failures
// - error: *DimensionMismatchError or *InvalidGridError for malformed
//   inputs, *NoFeasibleConfigurationError when every configuration failed
//   every fold, or the context error on cancellation
//
// How it works:
//  1. The grid is expanded into configurations in a stable order
//  2. Every (configuration, fold) cell is evaluated on a bounded worker
//     pool; cells are independent, each reads only its own configuration
//     and fold and writes only its own pre-allocated slot, so scheduling
//     never changes results
//  3. Per-configuration fold results are aggregated into mean accuracy and
//     mean bias scores; a fold that failed with a FitError is dropped from
//     the aggregate and counted, and a configuration whose every fold
//     failed is flagged and excluded from ranking
//  4. The selector ranks the summaries by combined score and picks the
//     winner, ties resolving to the earlier enumeration index
//
// Determinism:
// - With deterministic folds (explicit seed) and a deterministic estimator,
//   two runs over identical inputs produce identical rankings and winners,
//   regardless of MaxWorkers.
func Search(
	ctx context.Context,
	config SearchConfig,
	grid ParamGrid,
	ds *Dataset,
	folds []Fold,
	factory EstimatorFactory,
) (*SearchResult, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}

	if len(folds) == 0 {
		return nil, fmt.Errorf("search: no folds supplied")
	}

	if config.FairnessWeight < 0 || config.FairnessWeight > 1 {
		return nil, fmt.Errorf("search: fairness weight must be in [0, 1], got %g", config.FairnessWeight)
	}

	configs, err := grid.Expand()
	if err != nil {
		return nil, err
	}

	workers := config.MaxWorkers
	if workers < 1 {
		workers = 1
	}

	// One slot per cell, written by exactly one worker.
	results := make([][]*FoldResult, len(configs))
	failures := make([][]*FitError, len(configs))

	for i := range configs {
		results[i] = make([]*FoldResult, len(folds))
		failures[i] = make([]*FitError, len(folds))
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	for ci := range configs {
		for fi := range folds {
			ci, fi := ci, fi
			group.Go(func() error {
				result, err := evaluateFold(
					groupCtx, ci, fi, configs[ci], ds, folds[fi], factory, config.FoldTimeout)

				var fitErr *FitError
				if errors.As(err, &fitErr) {
					failures[ci][fi] = fitErr

					logDebug(config.Logger, "fold failed",
						"config", configs[ci].Key(), "fold", fi, "err", fitErr.Err)
					sendProgress(config, ProgressUpdate{
						ConfigIndex:  ci,
						TotalConfigs: len(configs),
						FoldIndex:    fi,
						TotalFolds:   len(folds),
						Failed:       true,
					})

					return nil
				} else if err != nil {
					return err
				}

				results[ci][fi] = &result

				logDebug(config.Logger, "fold evaluated",
					"config", configs[ci].Key(), "fold", fi,
					"accuracy", result.Accuracy,
					"dp_gap", result.DemographicParityGap,
					"eo_gap", result.EqualizedOddsGap)
				sendProgress(config, ProgressUpdate{
					ConfigIndex:  ci,
					TotalConfigs: len(configs),
					FoldIndex:    fi,
					TotalFolds:   len(folds),
					Accuracy:     result.Accuracy,
					Bias:         biasOf(result, config.Metric),
				})

				return nil
			})
		}
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	// Aggregation pass: enumeration order, one summary per configuration.
	summaries := make([]ConfigurationSummary, len(configs))

	var foldErrors []error

	for ci, cfg := range configs {
		accuracies := make([]float64, 0, len(folds))
		dpGaps := make([]float64, 0, len(folds))
		eoGaps := make([]float64, 0, len(folds))

		failed := 0

		for fi := range folds {
			if failure := failures[ci][fi]; failure != nil {
				failed++

				foldErrors = append(foldErrors, failure)

				continue
			}

			result := results[ci][fi]
			accuracies = append(accuracies, result.Accuracy)
			dpGaps = append(dpGaps, result.DemographicParityGap)
			eoGaps = append(eoGaps, result.EqualizedOddsGap)
		}

		summaries[ci] = ConfigurationSummary{
			Index:                    ci,
			Config:                   cfg,
			MeanAccuracy:             mean(accuracies),
			MeanDemographicParityGap: mean(dpGaps),
			MeanEqualizedOddsGap:     mean(eoGaps),
			CompletedFolds:           len(accuracies),
			FailedFolds:              failed,
			Failed:                   len(accuracies) == 0,
		}
	}

	// Selection pass, kept separate from aggregation so the ranking rule
	// stays independent of scheduling.
	best, ranked, err := Select(summaries, config.Metric, config.FairnessWeight)
	if err != nil {
		return nil, err
	}

	return &SearchResult{
		Summaries:  summaries,
		Ranked:     ranked,
		Best:       best,
		FoldErrors: foldErrors,
	}, nil
}

// biasOf returns a fold result's bias score under the given metric.
func biasOf(r FoldResult, metric FairnessMetric) float64 {
	switch metric {
	case EqualizedOdds:
		return r.EqualizedOddsGap
	case BothMetrics:
		if r.EqualizedOddsGap > r.DemographicParityGap {
			return r.EqualizedOddsGap
		}

		return r.DemographicParityGap
	default:
		return r.DemographicParityGap
	}
}

// sendProgress delivers an update without ever blocking the worker.
func sendProgress(config SearchConfig, update ProgressUpdate) {
	if config.ProgressChan == nil {
		return
	}

	select {
	case config.ProgressChan <- update:
	default:
		// Skip update if channel is full.
	}
}
