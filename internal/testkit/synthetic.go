// Package testkit generates synthetic experiment scenarios: deterministic
// forward-model evaluation at known "true" parameters plus additive Gaussian
// noise. The true values travel with the scenario for validation only and
// are never handed to the inference engine.
package testkit

import (
	"math/rand"

	"gokinet/domain/kinetics"
	"gokinet/domain/series"
)

// Scenario is a synthetic experiment with its generating ground truth
type Scenario struct {
	Name       string
	True       kinetics.Params
	Biomass    float64
	NoiseScale float64
	Series     *series.Series
	TrueRates  []float64
}

// TrueParams returns the hypothetical ground-truth kinetic constants used
// across scenarios.
func TrueParams() kinetics.Params {
	return kinetics.Params{
		MaxRate:              0.7,
		BiomassSaturation:    0.2,
		O2Inhibition:         0.3,
		N2OAffinity:          0.4,
		FormaldehydeAffinity: 2.0,
	}
}

// Generate builds a scenario from driver profiles: rates are evaluated at
// the true parameters and additive Gaussian noise of the given scale is
// injected. Observations keep their sign so the Gaussian observation model
// stays well-specified.
func Generate(name string, true_ kinetics.Params, biomass float64, t, o2, n2o, ch2o []float64, noiseScale float64, seed int64) (*Scenario, error) {
	rng := rand.New(rand.NewSource(seed))

	trueRates := kinetics.RateSeries(true_, biomass, o2, n2o, ch2o)
	observed := make([]float64, len(trueRates))
	for i, r := range trueRates {
		observed[i] = r + noiseScale*rng.NormFloat64()
	}

	s, err := series.New(t, o2, n2o, ch2o, observed)
	if err != nil {
		return nil, err
	}
	return &Scenario{
		Name:       name,
		True:       true_,
		Biomass:    biomass,
		NoiseScale: noiseScale,
		Series:     s,
		TrueRates:  trueRates,
	}, nil
}

// LinearRamp is the reference recovery scenario: constant O2 and CH2O with
// N2O ramping linearly from 0.1 to 2.0 over the given number of steps.
func LinearRamp(steps int, noiseScale float64, seed int64) (*Scenario, error) {
	t := make([]float64, steps)
	o2 := make([]float64, steps)
	n2o := make([]float64, steps)
	ch2o := make([]float64, steps)
	for i := 0; i < steps; i++ {
		t[i] = float64(i)
		o2[i] = 0.5
		n2o[i] = linspace(0.1, 2.0, steps, i)
		ch2o[i] = 1.0
	}
	return Generate("linear-ramp", TrueParams(), 1.0, t, o2, n2o, ch2o, noiseScale, seed)
}

// Benchtop mimics the original bench experiment: twenty measurements with
// declining O2, N2O and CH2O profiles carrying instrument noise.
func Benchtop(seed int64) (*Scenario, error) {
	const steps = 20
	rng := rand.New(rand.NewSource(seed))

	t := make([]float64, steps)
	o2 := make([]float64, steps)
	n2o := make([]float64, steps)
	ch2o := make([]float64, steps)
	for i := 0; i < steps; i++ {
		t[i] = float64(i)
		o2[i] = clipNonNegative(linspace(3.0, 1.0, steps, i) + 0.1*rng.NormFloat64())
		n2o[i] = clipNonNegative(linspace(1.2, 0.8, steps, i) + 0.05*rng.NormFloat64())
		ch2o[i] = clipNonNegative(linspace(6.0, 3.0, steps, i) + 0.2*rng.NormFloat64())
	}
	return Generate("benchtop", TrueParams(), 0.3, t, o2, n2o, ch2o, 0.01, seed+1)
}

func linspace(lo, hi float64, n, i int) float64 {
	if n == 1 {
		return lo
	}
	return lo + (hi-lo)*float64(i)/float64(n-1)
}

func clipNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
