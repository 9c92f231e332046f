package kinetics

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() Params {
	return Params{
		MaxRate:              0.7,
		BiomassSaturation:    0.2,
		O2Inhibition:         0.3,
		N2OAffinity:          0.4,
		FormaldehydeAffinity: 2.0,
	}
}

func TestParamsValidate(t *testing.T) {
	assert.NoError(t, testParams().Validate())

	bad := testParams()
	bad.N2OAffinity = 0
	assert.Error(t, bad.Validate())

	bad = testParams()
	bad.MaxRate = -0.1
	assert.Error(t, bad.Validate())
}

// For positive constants and non-negative drivers the rate is finite,
// non-negative and strictly below MaxRate*biomass.
func TestRateBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	const biomass = 0.3

	for i := 0; i < 2000; i++ {
		p := Params{
			MaxRate:              0.01 + rng.Float64()*2,
			BiomassSaturation:    0.01 + rng.Float64()*2,
			O2Inhibition:         0.01 + rng.Float64()*2,
			N2OAffinity:          0.01 + rng.Float64()*2,
			FormaldehydeAffinity: 0.01 + rng.Float64()*2,
		}
		d := Drivers{
			O2:   rng.Float64() * 5,
			N2O:  rng.Float64() * 5,
			CH2O: rng.Float64() * 10,
		}
		r := Rate(p, biomass, d)
		require.False(t, math.IsNaN(r) || math.IsInf(r, 0))
		require.GreaterOrEqual(t, r, 0.0)
		require.Less(t, r, p.MaxRate*biomass)
	}
}

func TestRateZeroSubstrate(t *testing.T) {
	p := testParams()
	assert.Zero(t, Rate(p, 0.3, Drivers{O2: 0.5, N2O: 0, CH2O: 1}))
	assert.Zero(t, Rate(p, 0.3, Drivers{O2: 0.5, N2O: 1, CH2O: 0}))
}

// Saturation/inhibition structure: non-decreasing in N2O and CH2O,
// non-increasing in O2.
func TestRateMonotonicity(t *testing.T) {
	p := testParams()
	const biomass = 0.3
	base := Drivers{O2: 0.5, N2O: 1.0, CH2O: 3.0}

	prev := 0.0
	for n2o := 0.0; n2o <= 5.0; n2o += 0.25 {
		d := base
		d.N2O = n2o
		r := Rate(p, biomass, d)
		assert.GreaterOrEqual(t, r, prev, "rate must not decrease with N2O")
		prev = r
	}

	prev = 0.0
	for ch2o := 0.0; ch2o <= 10.0; ch2o += 0.5 {
		d := base
		d.CH2O = ch2o
		r := Rate(p, biomass, d)
		assert.GreaterOrEqual(t, r, prev, "rate must not decrease with CH2O")
		prev = r
	}

	prev = math.Inf(1)
	for o2 := 0.0; o2 <= 5.0; o2 += 0.25 {
		d := base
		d.O2 = o2
		r := Rate(p, biomass, d)
		assert.LessOrEqual(t, r, prev, "rate must not increase with O2")
		prev = r
	}
}

func TestRateWithGradientMatchesFiniteDifference(t *testing.T) {
	p := testParams()
	const biomass = 0.3
	d := Drivers{O2: 1.3, N2O: 0.9, CH2O: 4.2}
	const h = 1e-6

	r, g := RateWithGradient(p, biomass, d)
	assert.InDelta(t, Rate(p, biomass, d), r, 1e-14)

	check := func(name string, analytic float64, perturb func(eps float64) float64) {
		numeric := (perturb(h) - perturb(-h)) / (2 * h)
		assert.InDelta(t, numeric, analytic, 1e-6, "partial wrt %s", name)
	}

	check("max_rate", g.MaxRate, func(e float64) float64 {
		q := p
		q.MaxRate += e
		return Rate(q, biomass, d)
	})
	check("biomass_saturation", g.BiomassSaturation, func(e float64) float64 {
		q := p
		q.BiomassSaturation += e
		return Rate(q, biomass, d)
	})
	check("o2_inhibition", g.O2Inhibition, func(e float64) float64 {
		q := p
		q.O2Inhibition += e
		return Rate(q, biomass, d)
	})
	check("n2o_affinity", g.N2OAffinity, func(e float64) float64 {
		q := p
		q.N2OAffinity += e
		return Rate(q, biomass, d)
	})
	check("formaldehyde_affinity", g.FormaldehydeAffinity, func(e float64) float64 {
		q := p
		q.FormaldehydeAffinity += e
		return Rate(q, biomass, d)
	})
	check("o2", g.O2, func(e float64) float64 {
		q := d
		q.O2 += e
		return Rate(p, biomass, q)
	})
	check("n2o", g.N2O, func(e float64) float64 {
		q := d
		q.N2O += e
		return Rate(p, biomass, q)
	})
	check("ch2o", g.CH2O, func(e float64) float64 {
		q := d
		q.CH2O += e
		return Rate(p, biomass, q)
	})
}

func TestRateSeriesMatchesScalar(t *testing.T) {
	p := testParams()
	o2 := []float64{3.0, 2.0, 1.0}
	n2o := []float64{1.2, 1.0, 0.8}
	ch2o := []float64{6.0, 4.5, 3.0}

	rates := RateSeries(p, 0.3, o2, n2o, ch2o)
	require.Len(t, rates, 3)
	for i := range rates {
		assert.Equal(t, Rate(p, 0.3, Drivers{O2: o2[i], N2O: n2o[i], CH2O: ch2o[i]}), rates[i])
	}
}
