package posterior

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaussChain(rng *rand.Rand, n int, mean float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = mean + rng.NormFloat64()
	}
	return out
}

func TestSplitRHatWellMixed(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	chains := [][]float64{
		gaussChain(rng, 1000, 0),
		gaussChain(rng, 1000, 0),
	}
	r, err := SplitRHat(chains)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r, 0.05, "independent draws from the same target must give R-hat near 1")
}

func TestSplitRHatDisagreeingChains(t *testing.T) {
	rng := rand.New(rand.NewSource(22))
	chains := [][]float64{
		gaussChain(rng, 1000, 0),
		gaussChain(rng, 1000, 5),
	}
	r, err := SplitRHat(chains)
	require.NoError(t, err)
	assert.Greater(t, r, 1.5, "chains exploring different modes must be flagged")
}

func TestSplitRHatDriftingChain(t *testing.T) {
	// a single trending chain: the split halves disagree
	n := 1000
	c := make([]float64, n)
	for i := range c {
		c[i] = float64(i) / 100
	}
	r, err := SplitRHat([][]float64{c})
	require.NoError(t, err)
	assert.Greater(t, r, 1.5)
}

func TestSplitRHatTooShort(t *testing.T) {
	_, err := SplitRHat([][]float64{{1, 2}})
	assert.Error(t, err)
}

func TestRHatByParam(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	mk := func(shift float64) ChainDraws {
		c := ChainDraws{}
		for d := 0; d < 500; d++ {
			c.Params = append(c.Params, []float64{rng.NormFloat64(), shift + rng.NormFloat64()})
			c.Predicted = append(c.Predicted, []float64{0})
		}
		return c
	}
	set, err := NewSampleSet([]string{"mixed", "split"}, []ChainDraws{mk(0), mk(4)})
	require.NoError(t, err)

	rhat, err := RHatByParam(set)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, rhat["mixed"], 0.05)
	assert.Greater(t, rhat["split"], 1.3)
	assert.Equal(t, rhat["split"], MaxRHat(rhat))
}
