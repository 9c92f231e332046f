// Package dist provides the closed set of prior families used by the
// inference model: Uniform, Normal and HalfNormal. The family set is small
// and fixed, so priors are a tagged variant rather than an interface.
package dist

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"gokinet/domain/core"
)

// Family tags the distribution family of a Prior
type Family string

const (
	FamilyUniform    Family = "uniform"
	FamilyNormal     Family = "normal"
	FamilyHalfNormal Family = "half_normal"
)

const lnSqrt2Pi = 0.9189385332046727 // log(sqrt(2*pi))

// Prior is a tagged-variant prior distribution. Low/High are used by the
// uniform family, Mu/Sigma by the normal and half-normal families (Mu is
// ignored for half-normal, whose support starts at zero).
type Prior struct {
	Family Family  `json:"family"`
	Low    float64 `json:"low,omitempty"`
	High   float64 `json:"high,omitempty"`
	Mu     float64 `json:"mu,omitempty"`
	Sigma  float64 `json:"sigma,omitempty"`
}

// Uniform creates a bounded uniform prior on [low, high]
func Uniform(low, high float64) Prior {
	return Prior{Family: FamilyUniform, Low: low, High: high}
}

// Normal creates a normal prior with the given center and spread
func Normal(mu, sigma float64) Prior {
	return Prior{Family: FamilyNormal, Mu: mu, Sigma: sigma}
}

// HalfNormal creates a half-normal prior with support on the non-negative reals
func HalfNormal(sigma float64) Prior {
	return Prior{Family: FamilyHalfNormal, Sigma: sigma}
}

// Validate checks the prior's parameters for the tagged family
func (p Prior) Validate() error {
	switch p.Family {
	case FamilyUniform:
		if !(p.Low < p.High) {
			return core.NewPriorError(string(p.Family), "lower bound must be below upper bound")
		}
		if math.IsInf(p.Low, 0) || math.IsInf(p.High, 0) {
			return core.NewPriorError(string(p.Family), "bounds must be finite")
		}
	case FamilyNormal, FamilyHalfNormal:
		if !(p.Sigma > 0) || math.IsInf(p.Sigma, 0) {
			return core.NewPriorError(string(p.Family), "sigma must be positive and finite")
		}
	default:
		return core.NewPriorError(string(p.Family), "unknown family")
	}
	return nil
}

// InSupport reports whether x lies in the prior's support
func (p Prior) InSupport(x float64) bool {
	switch p.Family {
	case FamilyUniform:
		return x >= p.Low && x <= p.High
	case FamilyHalfNormal:
		return x >= 0
	default:
		return !math.IsNaN(x)
	}
}

// LogDensity returns the log probability density at x (-Inf outside support)
func (p Prior) LogDensity(x float64) float64 {
	switch p.Family {
	case FamilyUniform:
		return distuv.Uniform{Min: p.Low, Max: p.High}.LogProb(x)
	case FamilyNormal:
		return distuv.Normal{Mu: p.Mu, Sigma: p.Sigma}.LogProb(x)
	case FamilyHalfNormal:
		if x < 0 {
			return math.Inf(-1)
		}
		return math.Ln2 + distuv.Normal{Mu: 0, Sigma: p.Sigma}.LogProb(x)
	}
	return math.Inf(-1)
}

// Sample draws one value from the prior using the provided stream
func (p Prior) Sample(rng *rand.Rand) float64 {
	switch p.Family {
	case FamilyUniform:
		return p.Low + rng.Float64()*(p.High-p.Low)
	case FamilyNormal:
		return p.Mu + p.Sigma*rng.NormFloat64()
	case FamilyHalfNormal:
		return math.Abs(p.Sigma * rng.NormFloat64())
	}
	return math.NaN()
}

// Mean returns the prior mean (used for initialization)
func (p Prior) Mean() float64 {
	switch p.Family {
	case FamilyUniform:
		return 0.5 * (p.Low + p.High)
	case FamilyNormal:
		return p.Mu
	case FamilyHalfNormal:
		return p.Sigma * math.Sqrt(2/math.Pi)
	}
	return math.NaN()
}
