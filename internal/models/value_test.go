package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScalarSimilarity tests normalized inverse absolute difference
func TestScalarSimilarity(t *testing.T) {
	domain := Domain{Min: 0, Max: 100}

	sim, err := Scalar(55).Similarity(Scalar(50), domain)
	require.NoError(t, err)
	assert.InDelta(t, 0.95, sim, 1e-9)

	// symmetric
	rev, err := Scalar(50).Similarity(Scalar(55), domain)
	require.NoError(t, err)
	assert.InDelta(t, sim, rev, 1e-9)

	// identical values are fully similar
	sim, err = Scalar(42).Similarity(Scalar(42), domain)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)
}

// TestScalarSimilarity_UnboundedDomain tests rejection of empty domains
func TestScalarSimilarity_UnboundedDomain(t *testing.T) {
	_, err := Scalar(1).Similarity(Scalar(2), Domain{})
	assert.Error(t, err)
}

// TestScalarSimilarity_KindMismatch tests comparison across shapes
func TestScalarSimilarity_KindMismatch(t *testing.T) {
	_, err := Scalar(1).Similarity(Distribution{"4-3-3": 1}, Domain{Min: 0, Max: 1})
	assert.Error(t, err)

	_, err = Distribution{"4-3-3": 1}.Similarity(Scalar(1), Domain{Min: 0, Max: 1})
	assert.Error(t, err)
}

// TestDistributionSimilarity tests one minus total-variation distance
func TestDistributionSimilarity(t *testing.T) {
	a := Distribution{"4-3-3": 0.7, "3-5-2": 0.3}
	b := Distribution{"4-3-3": 0.5, "4-4-2": 0.5}

	// TV = (|0.7-0.5| + 0.3 + 0.5) / 2 = 0.5
	sim, err := a.Similarity(b, Domain{})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, sim, 1e-9)

	// symmetric
	rev, err := b.Similarity(a, Domain{})
	require.NoError(t, err)
	assert.InDelta(t, sim, rev, 1e-9)

	// identical distributions are fully similar
	sim, err = a.Similarity(a, Domain{})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)

	// disjoint distributions are fully dissimilar
	sim, err = Distribution{"4-3-3": 1}.Similarity(Distribution{"4-4-2": 1}, Domain{})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sim, 1e-9)
}

// TestDistributionNormalize tests rescaling raw counts to probability mass
func TestDistributionNormalize(t *testing.T) {
	d := Distribution{"4-3-3": 3, "3-5-2": 1}.Normalize()

	assert.InDelta(t, 0.75, d["4-3-3"], 1e-9)
	assert.InDelta(t, 0.25, d["3-5-2"], 1e-9)
}

// TestWindowValidate tests the two accepted window forms
func TestWindowValidate(t *testing.T) {
	assert.NoError(t, Window{LastN: 10}.Validate())

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.NoError(t, Window{Start: start, End: start.AddDate(0, 6, 0)}.Validate())

	assert.Error(t, Window{}.Validate())
	assert.Error(t, Window{Start: start}.Validate())
	assert.Error(t, Window{Start: start, End: start}.Validate())
	assert.Error(t, Window{LastN: 5, Start: start, End: start.AddDate(0, 1, 0)}.Validate())
}

// TestWindowKey tests cache key stability
func TestWindowKey(t *testing.T) {
	assert.Equal(t, "last10", Window{LastN: 10}.Key())

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "20260101T000000_20260630T000000", Window{Start: start, End: end}.Key())
}

// TestClassify tests the fit score tiers
func TestClassify(t *testing.T) {
	assert.Equal(t, KeyEnabler, Classify(90))
	assert.Equal(t, KeyEnabler, Classify(75))
	assert.Equal(t, GoodFit, Classify(74.9))
	assert.Equal(t, GoodFit, Classify(60))
	assert.Equal(t, SystemDependent, Classify(59))
	assert.Equal(t, SystemDependent, Classify(45))
	assert.Equal(t, PotentiallyMarginalised, Classify(44))
	assert.Equal(t, PotentiallyMarginalised, Classify(0))
}
