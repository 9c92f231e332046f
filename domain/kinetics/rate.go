// Package kinetics implements the denitrification reaction-rate law: four
// Monod-type saturation/inhibition factors scaled by the maximum specific
// rate and the biomass concentration.
package kinetics

import (
	"fmt"
	"math"
)

// Canonical latent-quantity names, shared by summaries, exports and storage.
const (
	NameMaxRate              = "max_rate"
	NameBiomassSaturation    = "biomass_saturation"
	NameO2Inhibition         = "o2_inhibition"
	NameN2OAffinity          = "n2o_affinity"
	NameFormaldehydeAffinity = "formaldehyde_affinity"
	NameRateNoise            = "rate_noise"
)

// ParamNames lists the five kinetic constants in canonical order
var ParamNames = []string{
	NameMaxRate,
	NameBiomassSaturation,
	NameO2Inhibition,
	NameN2OAffinity,
	NameFormaldehydeAffinity,
}

// Params holds the five kinetic constants of the rate law. All must be
// strictly positive; positivity is enforced structurally by the prior
// transforms during inference, and by Validate for direct construction.
type Params struct {
	MaxRate              float64 `json:"max_rate"`              // mu_max_deni (1/s)
	BiomassSaturation    float64 `json:"biomass_saturation"`    // k_b3 (g/L)
	O2Inhibition         float64 `json:"o2_inhibition"`         // k_O2I3 (mg/L)
	N2OAffinity          float64 `json:"n2o_affinity"`          // K_N2O (mg/L)
	FormaldehydeAffinity float64 `json:"formaldehyde_affinity"` // K_CH2O (mg/L)
}

// Validate checks strict positivity of every constant
func (p Params) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{NameMaxRate, p.MaxRate},
		{NameBiomassSaturation, p.BiomassSaturation},
		{NameO2Inhibition, p.O2Inhibition},
		{NameN2OAffinity, p.N2OAffinity},
		{NameFormaldehydeAffinity, p.FormaldehydeAffinity},
	}
	for _, f := range fields {
		if !(f.v > 0) || math.IsInf(f.v, 0) {
			return fmt.Errorf("kinetic constant %s must be positive and finite, got %v", f.name, f.v)
		}
	}
	return nil
}

// Slice returns the constants in canonical order
func (p Params) Slice() []float64 {
	return []float64{p.MaxRate, p.BiomassSaturation, p.O2Inhibition, p.N2OAffinity, p.FormaldehydeAffinity}
}

// Drivers holds the substrate concentrations at one timestep
type Drivers struct {
	O2   float64 `json:"o2"`   // dissolved oxygen (mg/L)
	N2O  float64 `json:"n2o"`  // nitrous oxide (mg/L)
	CH2O float64 `json:"ch2o"` // formaldehyde (mg/L)
}

// Gradient holds the partial derivatives of the rate with respect to every
// kinetic constant and every driver at one timestep.
type Gradient struct {
	MaxRate              float64
	BiomassSaturation    float64
	O2Inhibition         float64
	N2OAffinity          float64
	FormaldehydeAffinity float64
	O2                   float64
	N2O                  float64
	CH2O                 float64
}

// Rate computes the denitrification rate r3 for a single timestep:
//
//	r3 = mu_max * X3 * kb/(kb+X3) * ki/(ki+O2) * N2O/(Kn+N2O) * CH2O/(Kc+CH2O)
//
// Each factor is bounded in (0, 1) for positive constants and non-negative
// drivers, so the rate is non-negative and below mu_max*X3.
func Rate(p Params, biomass float64, d Drivers) float64 {
	biomassTerm := p.BiomassSaturation / (p.BiomassSaturation + biomass)
	oxygenInhibition := p.O2Inhibition / (p.O2Inhibition + d.O2)
	n2oUptake := d.N2O / (p.N2OAffinity + d.N2O)
	formaldehydeUptake := d.CH2O / (p.FormaldehydeAffinity + d.CH2O)

	return p.MaxRate * biomass * biomassTerm * oxygenInhibition * n2oUptake * formaldehydeUptake
}

// RateWithGradient computes the rate together with its partial derivatives.
// The derivatives are written per-factor so that zero drivers do not produce
// 0/0 forms.
func RateWithGradient(p Params, biomass float64, d Drivers) (float64, Gradient) {
	kbX := p.BiomassSaturation + biomass
	kiO := p.O2Inhibition + d.O2
	knN := p.N2OAffinity + d.N2O
	kcC := p.FormaldehydeAffinity + d.CH2O

	f1 := p.BiomassSaturation / kbX
	f2 := p.O2Inhibition / kiO
	f3 := d.N2O / knN
	f4 := d.CH2O / kcC
	pre := p.MaxRate * biomass

	r := pre * f1 * f2 * f3 * f4
	g := Gradient{
		MaxRate:              biomass * f1 * f2 * f3 * f4,
		BiomassSaturation:    pre * f2 * f3 * f4 * biomass / (kbX * kbX),
		O2Inhibition:         pre * f1 * f3 * f4 * d.O2 / (kiO * kiO),
		N2OAffinity:          -pre * f1 * f2 * f4 * d.N2O / (knN * knN),
		FormaldehydeAffinity: -pre * f1 * f2 * f3 * d.CH2O / (kcC * kcC),
		O2:                   -pre * f1 * f3 * f4 * p.O2Inhibition / (kiO * kiO),
		N2O:                  pre * f1 * f2 * f4 * p.N2OAffinity / (knN * knN),
		CH2O:                 pre * f1 * f2 * f3 * p.FormaldehydeAffinity / (kcC * kcC),
	}
	return r, g
}

// RateSeries evaluates the rate independently at every timestep
func RateSeries(p Params, biomass float64, o2, n2o, ch2o []float64) []float64 {
	out := make([]float64, len(o2))
	for i := range o2 {
		out[i] = Rate(p, biomass, Drivers{O2: o2[i], N2O: n2o[i], CH2O: ch2o[i]})
	}
	return out
}
