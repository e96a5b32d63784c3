package bags

//////
// Group-fairness metric calculators.
//
// All calculators are pure functions over (predictions, labels, groups):
// deterministic, side-effect free, and bit-reproducible for identical inputs.
//////

// MetricFunc is the common contract of the bias calculators: given parallel
// prediction, label and group vectors, produce a scalar bias score >= 0,
// where 0 means perfect fairness under that metric.
//
// All three inputs must have the same length; a *DimensionMismatchError is
// returned otherwise.
type MetricFunc func(predictions, labels []int, groups []string) (float64, error)

// Accuracy returns the fraction of predictions that match the labels.
//
// Returns:
// - float64: accuracy in [0, 1]
// - error: *DimensionMismatchError when the inputs are misaligned.
func Accuracy(predictions, labels []int) (float64, error) {
	if len(predictions) != len(labels) {
		return 0, &DimensionMismatchError{
			What: "predictions vs labels",
			Want: len(labels),
			Got:  len(predictions),
		}
	}

	if len(predictions) == 0 {
		return 0, nil
	}

	correct := 0
	for i, p := range predictions {
		if p == labels[i] {
			correct++
		}
	}

	return float64(correct) / float64(len(predictions)), nil
}

// DemographicParityGap measures how unevenly positive predictions are
// distributed across protected-attribute groups: for each group it computes
// the positive-prediction rate P(pred=1 | group), and returns the maximum
// rate minus the minimum rate.
//
// Properties:
// - 0 means perfect parity; a single group always scores 0
// - symmetric in the groups and scale-free
// - a group with zero positive predictions simply has rate 0
//
// The labels argument is unused by this metric; it is accepted so that both
// calculators share the MetricFunc contract.
func DemographicParityGap(predictions, labels []int, groups []string) (float64, error) {
	if err := checkMetricInputs(predictions, labels, groups); err != nil {
		return 0, err
	}

	total := make(map[string]int)
	positive := make(map[string]int)

	for i, g := range groups {
		total[g]++

		if predictions[i] == 1 {
			positive[g]++
		}
	}

	rates := make([]float64, 0, len(total))
	for g, n := range total {
		rates = append(rates, float64(positive[g])/float64(n))
	}

	return spread(rates), nil
}

// EqualizedOddsGap measures the spread of error-rate behaviour across groups:
// for each group it computes the true-positive rate (among rows whose label
// is 1) and the false-positive rate (among rows whose label is 0), and
// returns the larger of the TPR spread and the FPR spread.
//
// A rate is only defined when the group contains the corresponding label
// class. A group lacking one class entirely contributes nothing to that
// rate's spread; the other rate, and all other groups, are unaffected. The
// calculation never fails because of a degenerate group.
func EqualizedOddsGap(predictions, labels []int, groups []string) (float64, error) {
	if err := checkMetricInputs(predictions, labels, groups); err != nil {
		return 0, err
	}

	type counts struct {
		positives, truePositives  int
		negatives, falsePositives int
	}

	byGroup := make(map[string]*counts)

	for i, g := range groups {
		c := byGroup[g]
		if c == nil {
			c = &counts{}
			byGroup[g] = c
		}

		if labels[i] == 1 {
			c.positives++

			if predictions[i] == 1 {
				c.truePositives++
			}
		} else {
			c.negatives++

			if predictions[i] == 1 {
				c.falsePositives++
			}
		}
	}

	tprs := make([]float64, 0, len(byGroup))
	fprs := make([]float64, 0, len(byGroup))

	for _, c := range byGroup {
		if c.positives > 0 {
			tprs = append(tprs, float64(c.truePositives)/float64(c.positives))
		}

		if c.negatives > 0 {
			fprs = append(fprs, float64(c.falsePositives)/float64(c.negatives))
		}
	}

	gap := spread(tprs)
	if f := spread(fprs); f > gap {
		gap = f
	}

	return gap, nil
}

// StatisticalParityDifference returns the positive-prediction rate of the
// unprivileged group minus that of the privileged group. Unlike
// DemographicParityGap it is signed and restricted to a designated pair of
// groups: negative values mean the unprivileged group receives fewer
// positive outcomes.
func StatisticalParityDifference(predictions []int, groups []string, privileged, unprivileged string) (float64, error) {
	if len(predictions) != len(groups) {
		return 0, &DimensionMismatchError{
			What: "predictions vs groups",
			Want: len(groups),
			Got:  len(predictions),
		}
	}

	privRate := positiveRate(predictions, groups, privileged)
	unprivRate := positiveRate(predictions, groups, unprivileged)

	return unprivRate - privRate, nil
}

// DisparateImpact returns the ratio of the unprivileged group's
// positive-prediction rate to the privileged group's. The common "80% rule"
// flags values below 0.8. A privileged rate of 0 yields 0 rather than a
// division error.
func DisparateImpact(predictions []int, groups []string, privileged, unprivileged string) (float64, error) {
	if len(predictions) != len(groups) {
		return 0, &DimensionMismatchError{
			What: "predictions vs groups",
			Want: len(groups),
			Got:  len(predictions),
		}
	}

	privRate := positiveRate(predictions, groups, privileged)
	if privRate == 0 {
		return 0, nil
	}

	return positiveRate(predictions, groups, unprivileged) / privRate, nil
}

func checkMetricInputs(predictions, labels []int, groups []string) error {
	if len(predictions) != len(labels) {
		return &DimensionMismatchError{
			What: "predictions vs labels",
			Want: len(labels),
			Got:  len(predictions),
		}
	}

	if len(predictions) != len(groups) {
		return &DimensionMismatchError{
			What: "predictions vs groups",
			Want: len(groups),
			Got:  len(predictions),
		}
	}

	return nil
}

// positiveRate returns P(pred=1 | group=g), or 0 for an absent group.
func positiveRate(predictions []int, groups []string, g string) float64 {
	total, positive := 0, 0

	for i, gi := range groups {
		if gi != g {
			continue
		}

		total++

		if predictions[i] == 1 {
			positive++
		}
	}

	if total == 0 {
		return 0
	}

	return float64(positive) / float64(total)
}
