// Package bags provides bias-aware grid search (BAGS) for binary
// classifiers: exhaustive hyperparameter search that jointly optimizes
// predictive accuracy and group fairness instead of accuracy alone.
//
// # Features
//
// The package includes the following key features:
//
//   - Exhaustive Grid Search: expands a declarative parameter grid into
//     every concrete configuration, in a stable, reproducible order
//   - Cross-Validated Scoring: every configuration is fitted and scored on
//     the same K folds, so candidates are compared on identical splits
//   - Two Fairness Metrics: demographic-parity gap and equalized-odds gap,
//     computed per fold on the held-out split
//   - Weighted Selection: a single explainable rule,
//     score = (1-w)*accuracy - w*bias, ranks all configurations; ties break
//     deterministically by enumeration order
//   - Constrained Selection: alternatively, maximize accuracy among
//     configurations whose bias stays under a threshold
//   - Bounded Concurrency: the (configuration, fold) grid is evaluated on a
//     worker pool capped by MaxWorkers, without affecting results
//   - Fault Isolation: a failed or timed-out fold fit is dropped and
//     counted, never aborting the search or corrupting the ranking
//   - Progress Monitoring: per-fold updates via channels
//   - Model Agnostic: any estimator implementing Fit and Predict works
//
// # Quick Start
//
//	grid := bags.ParamGrid{
//	    "learning_rate": bags.Values(0.01, 0.1, 1.0),
//	    "epochs":        bags.Values(50, 200),
//	}
//
//	folds, err := bags.KFold(ds.Len(), 5, 42)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	config := bags.DefaultSearchConfig()
//	config.Metric = bags.DemographicParity
//	config.FairnessWeight = 0.4
//
//	result, err := bags.Search(ctx, config, grid, ds, folds, factory)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	best := result.BestSummary()
//	fmt.Println(best.Config.Key(), best.MeanAccuracy, best.MeanDemographicParityGap)
//
// # Determinism
//
// Every source of ordering in the package is explicit: grid expansion sorts
// parameter names, fold construction takes a seed, selection breaks ties by
// enumeration order, and the metric calculators are pure functions. With a
// deterministic estimator, two runs over identical inputs produce identical
// winners and rankings, whatever the concurrency limit.
//
// # Thread Safety
//
// A single Search call fans its (configuration, fold) evaluations out over a
// bounded worker pool; each cell reads only its own inputs and writes only
// its own result slot. Separate Search calls with separate configs are safe
// to run concurrently.
package bags
