package bags

import "sort"

//////
// Selection rules combining accuracy and bias into a single ranking.
// Each rule resolves ties by enumeration order, so every selection is
// deterministic given the same summary table.
//////

// ScoreParams holds the knobs of a ScoreFunc.
type ScoreParams struct {
	// FairnessWeight in [0, 1] sets how much bias counts against accuracy.
	FairnessWeight float64
}

// ScoreFunc maps a configuration's mean accuracy and mean bias score to a
// single combined score. Higher is better.
//
// Implementation notes for custom score functions:
// - Must be deterministic (no internal randomness)
// - Must be monotone increasing in accuracy and decreasing in bias if the
//   usual trade-off semantics are wanted
// - Must only use parameters from ScoreParams.
type ScoreFunc func(accuracy, bias float64, params ScoreParams) float64

// WeightedScore is the default selection rule:
//
//	score = (1 - w)*accuracy - w*bias
//
// where w is params.FairnessWeight. With w = 0 the rule degenerates to pure
// accuracy maximization; with w = 1 to pure bias minimization.
func WeightedScore(accuracy, bias float64, params ScoreParams) float64 {
	return (1-params.FairnessWeight)*accuracy - params.FairnessWeight*bias
}

// Select ranks the summaries by WeightedScore, higher first, and returns the
// winner. Failed summaries (no completed folds) are excluded from the
// ranking entirely rather than being scored as 0.
//
// Returns:
// - int: index into summaries of the winner
// - []int: indices into summaries in rank order, best first
// - error: *NoFeasibleConfigurationError when nothing is rankable.
func Select(summaries []ConfigurationSummary, metric FairnessMetric, fairnessWeight float64) (int, []int, error) {
	return SelectWith(summaries, metric, WeightedScore, ScoreParams{FairnessWeight: fairnessWeight})
}

// SelectWith is Select with a caller-supplied score function.
func SelectWith(
	summaries []ConfigurationSummary,
	metric FairnessMetric,
	score ScoreFunc,
	params ScoreParams,
) (int, []int, error) {
	ranked := rankable(summaries)
	if len(ranked) == 0 {
		return 0, nil, &NoFeasibleConfigurationError{Summaries: summaries}
	}

	// Stable sort over ascending enumeration order: equal scores keep the
	// earlier configuration first, making the winner unique.
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := summaries[ranked[i]], summaries[ranked[j]]

		return score(a.MeanAccuracy, a.Bias(metric), params) >
			score(b.MeanAccuracy, b.Bias(metric), params)
	})

	return ranked[0], ranked, nil
}

// SelectConstrained picks, among the summaries whose bias score is at most
// threshold, the one with maximum mean accuracy. Ties resolve to the
// earlier enumeration index.
//
// When no summary satisfies the threshold, it fails with a
// *NoFeasibleConfigurationError carrying the full table; it never falls
// back to unconstrained selection silently.
func SelectConstrained(
	summaries []ConfigurationSummary,
	metric FairnessMetric,
	threshold float64,
) (int, []int, error) {
	feasible := make([]int, 0, len(summaries))

	for _, i := range rankable(summaries) {
		if summaries[i].Bias(metric) <= threshold {
			feasible = append(feasible, i)
		}
	}

	if len(feasible) == 0 {
		return 0, nil, &NoFeasibleConfigurationError{
			Threshold:   threshold,
			Constrained: true,
			Summaries:   summaries,
		}
	}

	sort.SliceStable(feasible, func(i, j int) bool {
		return summaries[feasible[i]].MeanAccuracy > summaries[feasible[j]].MeanAccuracy
	})

	return feasible[0], feasible, nil
}

// SelectMostAccurate returns the summary with the highest mean accuracy,
// ignoring bias entirely.
func SelectMostAccurate(summaries []ConfigurationSummary) (int, error) {
	winner, _, err := SelectWith(summaries, DemographicParity,
		func(accuracy, _ float64, _ ScoreParams) float64 { return accuracy },
		ScoreParams{})

	return winner, err
}

// SelectLeastBiased returns the summary with the lowest bias score under the
// given metric, ignoring accuracy entirely.
func SelectLeastBiased(summaries []ConfigurationSummary, metric FairnessMetric) (int, error) {
	winner, _, err := SelectWith(summaries, metric,
		func(_, bias float64, _ ScoreParams) float64 { return -bias },
		ScoreParams{})

	return winner, err
}

// SelectBalanced returns the least biased summary among the topN most
// accurate ones: first the rankable summaries are ordered by accuracy, the
// topN best are kept, and the one with the lowest bias score wins.
func SelectBalanced(summaries []ConfigurationSummary, metric FairnessMetric, topN int) (int, error) {
	byAccuracy := rankable(summaries)
	if len(byAccuracy) == 0 {
		return 0, &NoFeasibleConfigurationError{Summaries: summaries}
	}

	sort.SliceStable(byAccuracy, func(i, j int) bool {
		return summaries[byAccuracy[i]].MeanAccuracy > summaries[byAccuracy[j]].MeanAccuracy
	})

	if topN < 1 {
		topN = 1
	}

	if topN > len(byAccuracy) {
		topN = len(byAccuracy)
	}

	top := byAccuracy[:topN]

	winner := top[0]
	for _, i := range top[1:] {
		better := summaries[i].Bias(metric) < summaries[winner].Bias(metric)
		tiedEarlier := summaries[i].Bias(metric) == summaries[winner].Bias(metric) && i < winner

		if better || tiedEarlier {
			winner = i
		}
	}

	return winner, nil
}

// Refit trains a fresh estimator for the chosen configuration on the full
// dataset. Typically called on the winner after a search, mirroring the
// usual fit-on-all-data step once cross-validation has picked the
// hyperparameters.
func Refit(cfg Configuration, ds *Dataset, factory EstimatorFactory) (Estimator, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}

	estimator, err := factory(cfg)
	if err != nil {
		return nil, err
	}

	if err := estimator.Fit(ds.X, ds.Y); err != nil {
		return nil, err
	}

	return estimator, nil
}

// rankable returns the indices of the summaries eligible for ranking, in
// enumeration order.
func rankable(summaries []ConfigurationSummary) []int {
	indices := make([]int, 0, len(summaries))

	for i, s := range summaries {
		if !s.Failed {
			indices = append(indices, i)
		}
	}

	return indices
}
