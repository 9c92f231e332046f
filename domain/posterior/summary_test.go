package posterior

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evenChain(chain, draws, params, steps int, f func(d, p int) float64) ChainDraws {
	c := ChainDraws{Chain: chain}
	for d := 0; d < draws; d++ {
		row := make([]float64, params)
		for p := 0; p < params; p++ {
			row[p] = f(d, p)
		}
		pred := make([]float64, steps)
		for s := 0; s < steps; s++ {
			pred[s] = f(d, 0) + float64(s)
		}
		c.Params = append(c.Params, row)
		c.Predicted = append(c.Predicted, pred)
	}
	return c
}

func TestNewSampleSetValidation(t *testing.T) {
	good := evenChain(0, 10, 2, 3, func(d, p int) float64 { return float64(d + p) })

	_, err := NewSampleSet([]string{"a", "b"}, []ChainDraws{good})
	assert.NoError(t, err)

	_, err = NewSampleSet(nil, []ChainDraws{good})
	assert.Error(t, err)

	_, err = NewSampleSet([]string{"a", "b", "c"}, []ChainDraws{good})
	assert.Error(t, err, "draw width must match parameter names")

	_, err = NewSampleSet([]string{"a", "b"}, nil)
	assert.Error(t, err)
}

func TestHDIUniformDraws(t *testing.T) {
	// 0..999: any 94% window has the same width, the scan keeps the first
	draws := make([]float64, 1000)
	for i := range draws {
		draws[i] = float64(i)
	}
	low, high, err := HDI(draws, 0.94)
	require.NoError(t, err)
	assert.InDelta(t, 939.0, high-low, 1.0)
}

func TestHDIFindsNarrowestWindow(t *testing.T) {
	// Dense cluster near zero plus a distant outlier tail: a 90% HDI must
	// exclude the tail.
	rng := rand.New(rand.NewSource(3))
	draws := make([]float64, 0, 1000)
	for i := 0; i < 950; i++ {
		draws = append(draws, rng.NormFloat64())
	}
	for i := 0; i < 50; i++ {
		draws = append(draws, 100+rng.NormFloat64())
	}
	low, high, err := HDI(draws, 0.90)
	require.NoError(t, err)
	assert.Greater(t, low, -5.0)
	assert.Less(t, high, 5.0)
}

func TestHDIRejectsBadInput(t *testing.T) {
	_, _, err := HDI([]float64{1}, 0.9)
	assert.Error(t, err)
	_, _, err = HDI([]float64{1, 2, 3}, 1.5)
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	c := ChainDraws{Chain: 0}
	for d := 0; d < 4000; d++ {
		c.Params = append(c.Params, []float64{2 + 0.1*rng.NormFloat64()})
		c.Predicted = append(c.Predicted, []float64{0})
	}
	s, err := NewSampleSet([]string{"theta"}, []ChainDraws{c})
	require.NoError(t, err)

	summaries, err := Summarize(s, 0.94)
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	sum := summaries[0]
	assert.Equal(t, "theta", sum.Name)
	assert.InDelta(t, 2.0, sum.Mean, 0.02)
	assert.InDelta(t, 0.1, sum.StdDev, 0.02)
	assert.Less(t, sum.HDILow, sum.Mean)
	assert.Greater(t, sum.HDIHigh, sum.Mean)
	// 94% HDI of a normal is roughly +/- 1.88 sigma
	assert.InDelta(t, 2*1.88*0.1, sum.HDIHigh-sum.HDILow, 0.05)
}

func TestPredictiveBand(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	c := ChainDraws{Chain: 0}
	steps := 4
	for d := 0; d < 3000; d++ {
		c.Params = append(c.Params, []float64{0})
		pred := make([]float64, steps)
		for s := 0; s < steps; s++ {
			pred[s] = float64(s) + 0.05*rng.NormFloat64()
		}
		c.Predicted = append(c.Predicted, pred)
	}
	set, err := NewSampleSet([]string{"theta"}, []ChainDraws{c})
	require.NoError(t, err)

	ts := []float64{0, 1, 2, 3}
	obs := []float64{0.01, 1.02, 1.97, 3.05}
	records, err := PredictiveBand(set, ts, obs, 0.90)
	require.NoError(t, err)
	require.Len(t, records, steps)

	for i, r := range records {
		assert.Equal(t, ts[i], r.T)
		assert.Equal(t, obs[i], r.Observed)
		assert.InDelta(t, float64(i), r.PredictedMean, 0.01)
		assert.Less(t, r.CILow, r.PredictedMean)
		assert.Greater(t, r.CIHigh, r.PredictedMean)
		// equal-tailed 90% band of a normal is roughly +/- 1.64 sigma
		assert.InDelta(t, 2*1.64*0.05, r.CIHigh-r.CILow, 0.03)
	}
}

func TestPredictiveBandShapeMismatch(t *testing.T) {
	c := evenChain(0, 10, 1, 3, func(d, p int) float64 { return float64(d) })
	set, err := NewSampleSet([]string{"theta"}, []ChainDraws{c})
	require.NoError(t, err)

	_, err = PredictiveBand(set, []float64{0, 1}, []float64{0, 1}, 0.9)
	assert.Error(t, err, "series length must match predicted steps")
}
