package bags

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccuracy(t *testing.T) {
	accuracy, err := Accuracy([]int{1, 0, 1, 1}, []int{1, 0, 0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, accuracy, 1e-12)

	// Misaligned inputs must fail with a DimensionMismatchError.
	_, err = Accuracy([]int{1, 0}, []int{1})

	var mismatch *DimensionMismatchError

	assert.True(t, errors.As(err, &mismatch))
}

func TestDemographicParityGapSingleGroup(t *testing.T) {
	// A single group has nothing to diverge from: the gap is 0.
	gap, err := DemographicParityGap(
		[]int{1, 0, 1, 0},
		[]int{1, 1, 0, 0},
		[]string{"a", "a", "a", "a"},
	)
	require.NoError(t, err)
	assert.Zero(t, gap)
}

func TestDemographicParityGapKnownValue(t *testing.T) {
	// Group a: rate 1.0, group b: rate 0.0 -> gap 1.0.
	gap, err := DemographicParityGap(
		[]int{1, 1, 0, 0},
		[]int{1, 1, 1, 1},
		[]string{"a", "a", "b", "b"},
	)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, gap, 1e-12)

	// Equal rates -> perfect parity.
	gap, err = DemographicParityGap(
		[]int{1, 0, 1, 0},
		[]int{1, 1, 1, 1},
		[]string{"a", "a", "b", "b"},
	)
	require.NoError(t, err)
	assert.Zero(t, gap)
}

func TestDemographicParityGapZeroPositives(t *testing.T) {
	// A group with no positive predictions has rate 0, not NaN.
	gap, err := DemographicParityGap(
		[]int{0, 0, 1, 0},
		[]int{0, 0, 1, 1},
		[]string{"a", "a", "b", "b"},
	)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, gap, 1e-12)
}

func TestEqualizedOddsGapSingleGroup(t *testing.T) {
	gap, err := EqualizedOddsGap(
		[]int{1, 0, 1, 0},
		[]int{1, 1, 0, 0},
		[]string{"a", "a", "a", "a"},
	)
	require.NoError(t, err)
	assert.Zero(t, gap)
}

func TestEqualizedOddsGapKnownValue(t *testing.T) {
	// Group a: TPR 0.5 (one of two positives caught), FPR 0.
	// Group b: TPR 1.0, FPR 1.0.
	// TPR spread 0.5, FPR spread 1.0 -> gap 1.0.
	predictions := []int{1, 0, 0, 1, 1}
	labels := []int{1, 1, 0, 1, 0}
	groups := []string{"a", "a", "a", "b", "b"}

	gap, err := EqualizedOddsGap(predictions, labels, groups)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, gap, 1e-12)
}

func TestEqualizedOddsGapMissingClass(t *testing.T) {
	// Group b has no negatives, so its FPR is undefined and must be
	// excluded from the FPR spread without failing the calculation.
	predictions := []int{1, 0, 1, 1}
	labels := []int{1, 0, 1, 1}
	groups := []string{"a", "a", "b", "b"}

	gap, err := EqualizedOddsGap(predictions, labels, groups)
	require.NoError(t, err)

	// TPRs: a=1.0, b=1.0 -> spread 0. FPRs: only a (0.0) -> spread 0.
	assert.Zero(t, gap)
}

func TestGapsNonNegativeAndPermutationInvariant(t *testing.T) {
	predictions := []int{1, 0, 1, 1, 0, 0, 1, 0}
	labels := []int{1, 1, 0, 1, 0, 1, 1, 0}
	groups := []string{"a", "b", "a", "c", "b", "c", "a", "b"}

	dpGap, err := DemographicParityGap(predictions, labels, groups)
	require.NoError(t, err)

	eoGap, err := EqualizedOddsGap(predictions, labels, groups)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, dpGap, 0.0)
	assert.GreaterOrEqual(t, eoGap, 0.0)

	// Permuting the rows consistently across all three inputs must not
	// change either gap.
	perm := rand.New(rand.NewSource(7)).Perm(len(predictions))

	permutedPredictions := make([]int, len(predictions))
	permutedLabels := make([]int, len(labels))
	permutedGroups := make([]string, len(groups))

	for i, j := range perm {
		permutedPredictions[i] = predictions[j]
		permutedLabels[i] = labels[j]
		permutedGroups[i] = groups[j]
	}

	permutedDPGap, err := DemographicParityGap(permutedPredictions, permutedLabels, permutedGroups)
	require.NoError(t, err)
	assert.Equal(t, dpGap, permutedDPGap)

	permutedEOGap, err := EqualizedOddsGap(permutedPredictions, permutedLabels, permutedGroups)
	require.NoError(t, err)
	assert.Equal(t, eoGap, permutedEOGap)
}

func TestMetricDimensionMismatch(t *testing.T) {
	var mismatch *DimensionMismatchError

	_, err := DemographicParityGap([]int{1}, []int{1, 0}, []string{"a", "b"})
	assert.True(t, errors.As(err, &mismatch))

	_, err = EqualizedOddsGap([]int{1, 0}, []int{1, 0}, []string{"a"})
	assert.True(t, errors.As(err, &mismatch))
}

func TestStatisticalParityDifference(t *testing.T) {
	// Privileged rate 1.0, unprivileged rate 0.5 -> difference -0.5.
	diff, err := StatisticalParityDifference(
		[]int{1, 1, 1, 0},
		[]string{"m", "m", "f", "f"},
		"m", "f",
	)
	require.NoError(t, err)
	assert.InDelta(t, -0.5, diff, 1e-12)
}

func TestDisparateImpact(t *testing.T) {
	// Unprivileged rate 0.5 over privileged rate 1.0 -> ratio 0.5.
	ratio, err := DisparateImpact(
		[]int{1, 1, 1, 0},
		[]string{"m", "m", "f", "f"},
		"m", "f",
	)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, ratio, 1e-12)

	// A privileged group with no positive predictions yields 0, not a
	// division error.
	ratio, err = DisparateImpact(
		[]int{0, 0, 1, 0},
		[]string{"m", "m", "f", "f"},
		"m", "f",
	)
	require.NoError(t, err)
	assert.Zero(t, ratio)
}
