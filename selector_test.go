package bags

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// summariesFixture builds a small table with a clear accuracy/bias trade-off:
// index 0 is the most accurate, index 2 the least biased.
func summariesFixture() []ConfigurationSummary {
	return []ConfigurationSummary{
		{Index: 0, Config: Configuration{"c": 0}, MeanAccuracy: 0.95, MeanDemographicParityGap: 0.40, MeanEqualizedOddsGap: 0.30, CompletedFolds: 5},
		{Index: 1, Config: Configuration{"c": 1}, MeanAccuracy: 0.90, MeanDemographicParityGap: 0.20, MeanEqualizedOddsGap: 0.25, CompletedFolds: 5},
		{Index: 2, Config: Configuration{"c": 2}, MeanAccuracy: 0.80, MeanDemographicParityGap: 0.05, MeanEqualizedOddsGap: 0.10, CompletedFolds: 5},
	}
}

func TestSelectWeightZeroIgnoresBias(t *testing.T) {
	// With weight 0 the winner is the most accurate configuration even
	// though another one has a lower bias score.
	winner, ranked, err := Select(summariesFixture(), DemographicParity, 0)
	require.NoError(t, err)

	assert.Equal(t, 0, winner)
	assert.Equal(t, []int{0, 1, 2}, ranked)
}

func TestSelectWeightOneIgnoresAccuracy(t *testing.T) {
	winner, _, err := Select(summariesFixture(), DemographicParity, 1)
	require.NoError(t, err)

	assert.Equal(t, 2, winner)
}

func TestSelectMaximizesCombinedScore(t *testing.T) {
	summaries := summariesFixture()
	weight := 0.5

	winner, ranked, err := Select(summaries, DemographicParity, weight)
	require.NoError(t, err)

	// The winner must carry the maximum combined score among ranked
	// entries, and the ranking must be non-increasing in score.
	params := ScoreParams{FairnessWeight: weight}

	scores := make([]float64, len(ranked))
	for i, idx := range ranked {
		scores[i] = WeightedScore(summaries[idx].MeanAccuracy, summaries[idx].Bias(DemographicParity), params)
	}

	assert.Equal(t, ranked[0], winner)

	for i := 1; i < len(scores); i++ {
		assert.GreaterOrEqual(t, scores[i-1], scores[i])
	}
}

func TestSelectTieBreaksByEnumerationOrder(t *testing.T) {
	// Identical summaries: identical scores. The earlier enumeration index
	// must win.
	summaries := []ConfigurationSummary{
		{Index: 0, MeanAccuracy: 0.9, MeanDemographicParityGap: 0.1, CompletedFolds: 3},
		{Index: 1, MeanAccuracy: 0.9, MeanDemographicParityGap: 0.1, CompletedFolds: 3},
	}

	winner, ranked, err := Select(summaries, DemographicParity, 0.5)
	require.NoError(t, err)

	assert.Equal(t, 0, winner)
	assert.Equal(t, []int{0, 1}, ranked)
}

func TestSelectExcludesFailedSummaries(t *testing.T) {
	summaries := summariesFixture()

	// Make the would-be winner a failure: it must drop out of the ranking
	// entirely instead of being scored as 0.
	summaries[0].Failed = true
	summaries[0].CompletedFolds = 0

	winner, ranked, err := Select(summaries, DemographicParity, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, winner)
	assert.NotContains(t, ranked, 0)
}

func TestSelectAllFailed(t *testing.T) {
	summaries := summariesFixture()
	for i := range summaries {
		summaries[i].Failed = true
	}

	_, _, err := Select(summaries, DemographicParity, 0.5)

	var noFeasible *NoFeasibleConfigurationError

	require.True(t, errors.As(err, &noFeasible))
	assert.False(t, noFeasible.Constrained)
	assert.Len(t, noFeasible.Summaries, 3)
}

func TestSelectConstrained(t *testing.T) {
	// Threshold 0.25 leaves indices 1 and 2 feasible; 1 is more accurate.
	winner, feasible, err := SelectConstrained(summariesFixture(), DemographicParity, 0.25)
	require.NoError(t, err)

	assert.Equal(t, 1, winner)
	assert.Equal(t, []int{1, 2}, feasible)
}

func TestSelectConstrainedNoFeasibleConfiguration(t *testing.T) {
	// No configuration achieves exact parity: threshold 0 must fail, never
	// silently fall back to unconstrained selection.
	_, _, err := SelectConstrained(summariesFixture(), DemographicParity, 0)

	var noFeasible *NoFeasibleConfigurationError

	require.True(t, errors.As(err, &noFeasible))
	assert.True(t, noFeasible.Constrained)
	assert.Zero(t, noFeasible.Threshold)

	// The full table rides along for diagnosis.
	assert.Len(t, noFeasible.Summaries, 3)
}

func TestSelectMostAccurate(t *testing.T) {
	winner, err := SelectMostAccurate(summariesFixture())
	require.NoError(t, err)
	assert.Equal(t, 0, winner)
}

func TestSelectLeastBiased(t *testing.T) {
	winner, err := SelectLeastBiased(summariesFixture(), EqualizedOdds)
	require.NoError(t, err)
	assert.Equal(t, 2, winner)
}

func TestSelectBalanced(t *testing.T) {
	// Top 2 by accuracy are indices 0 and 1; the less biased of those is 1.
	winner, err := SelectBalanced(summariesFixture(), DemographicParity, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, winner)

	// topN larger than the table degrades to least biased overall.
	winner, err = SelectBalanced(summariesFixture(), DemographicParity, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, winner)
}

func TestBiasMetricSelection(t *testing.T) {
	summary := ConfigurationSummary{
		MeanDemographicParityGap: 0.2,
		MeanEqualizedOddsGap:     0.3,
	}

	assert.Equal(t, 0.2, summary.Bias(DemographicParity))
	assert.Equal(t, 0.3, summary.Bias(EqualizedOdds))

	// BothMetrics takes the worse of the two.
	assert.Equal(t, 0.3, summary.Bias(BothMetrics))
}
