package bags

import (
	"context"
	"fmt"
	"time"
)

//////
// Per-fold evaluation: one configuration, one split, one fresh estimator.
//////

// evaluateFold fits one configuration on one fold and scores the held-out
// split: instantiate a fresh estimator, fit on the train rows, predict the
// validation rows, then compute accuracy and both bias gaps against the
// validation labels and protected-attribute groups.
//
// Failure modes:
//   - factory error, fit/predict error or panic, or a prediction vector of
//     the wrong length: returned as a *FitError for the caller to record; the
//     fold is dropped, the search continues
//   - timeout expiry (timeout > 0): *FitError wrapping ErrFoldTimeout
//   - context cancellation: the context error, which aborts the search.
//
// Each call reads only its own configuration, fold indices and dataset copy,
// and returns a fresh FoldResult, so calls are safe to run concurrently.
func evaluateFold(
	ctx context.Context,
	configIndex, foldIndex int,
	cfg Configuration,
	ds *Dataset,
	fold Fold,
	factory EstimatorFactory,
	timeout time.Duration,
) (FoldResult, error) {
	fitErr := func(err error) (FoldResult, error) {
		return FoldResult{}, &FitError{ConfigIndex: configIndex, FoldIndex: foldIndex, Err: err}
	}

	if timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	predictions, err := fitAndPredict(ctx, cfg, ds, fold, factory)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr == context.DeadlineExceeded {
			return fitErr(ErrFoldTimeout)
		} else if ctxErr != nil {
			return FoldResult{}, ctxErr
		}

		return fitErr(err)
	}

	_, labels, groups := ds.Subset(fold.Validation)

	if len(predictions) != len(labels) {
		return fitErr(fmt.Errorf("estimator returned %d predictions for %d validation rows",
			len(predictions), len(labels)))
	}

	accuracy, err := Accuracy(predictions, labels)
	if err != nil {
		return FoldResult{}, err
	}

	dpGap, err := DemographicParityGap(predictions, labels, groups)
	if err != nil {
		return FoldResult{}, err
	}

	eoGap, err := EqualizedOddsGap(predictions, labels, groups)
	if err != nil {
		return FoldResult{}, err
	}

	return FoldResult{
		ConfigIndex:          configIndex,
		FoldIndex:            foldIndex,
		Accuracy:             accuracy,
		DemographicParityGap: dpGap,
		EqualizedOddsGap:     eoGap,
	}, nil
}

// fitAndPredict runs the estimator's fit and predict steps, honoring context
// expiry. The estimator itself cannot be interrupted mid-fit; on expiry its
// goroutine is left to finish and its result is discarded.
func fitAndPredict(
	ctx context.Context,
	cfg Configuration,
	ds *Dataset,
	fold Fold,
	factory EstimatorFactory,
) ([]int, error) {
	type outcome struct {
		predictions []int
		err         error
	}

	done := make(chan outcome, 1)

	go func() {
		done <- func() (out outcome) {
			// An estimator panic is a per-fold failure, same as an error
			// return.
			defer func() {
				if r := recover(); r != nil {
					out = outcome{err: fmt.Errorf("estimator panicked: %v", r)}
				}
			}()

			estimator, err := factory(cfg)
			if err != nil {
				return outcome{err: fmt.Errorf("constructing estimator: %w", err)}
			}

			trainX, trainY, _ := ds.Subset(fold.Train)

			if err := estimator.Fit(trainX, trainY); err != nil {
				return outcome{err: fmt.Errorf("fitting: %w", err)}
			}

			validationX, _, _ := ds.Subset(fold.Validation)

			predictions, err := estimator.Predict(validationX)
			if err != nil {
				return outcome{err: fmt.Errorf("predicting: %w", err)}
			}

			return outcome{predictions: predictions}
		}()
	}()

	select {
	case out := <-done:
		return out.predictions, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
