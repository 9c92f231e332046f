package inference

import (
	"fmt"
	"math"
	"math/rand"

	"gokinet/domain/core"
	"gokinet/domain/dist"
	"gokinet/domain/kinetics"
	"gokinet/domain/series"
)

const lnSqrt2Pi = 0.9189385332046727

// Model is the explicit, statically-typed composition of priors, forward
// model and observation model. It exposes the joint log-density of the
// unconstrained latent vector together with its analytic gradient.
//
// Latent vector layout (unconstrained space):
//
//	[0..4]  kinetic constants, logit-transformed uniforms
//	[5]     rate-noise scale, log-transformed half-normal
//	[6..]   per-timestep latent driver blocks (identity), one block per
//	        driver with latency enabled, in O2, N2O, CH2O order
type Model struct {
	Series  *series.Series
	Biomass float64
	Priors  PriorSet
	Latency DriverLatency
	Scales  DriverScales

	n   int
	dim int

	// block offsets into the latent vector, -1 when the driver is fixed
	o2Off, n2oOff, ch2oOff int

	kineticPriors []dist.Prior
}

const sigmaIdx = 5

// Draw is one posterior draw decoded to the constrained space, including
// the predicted-rate trajectory as a named deterministic quantity.
type Draw struct {
	Params    kinetics.Params
	RateNoise float64
	Predicted []float64
}

// NewModel builds the joint density for a validated series and configuration
func NewModel(s *series.Series, cfg Config) (*Model, error) {
	if s == nil || s.Len() < series.MinLength {
		return nil, fmt.Errorf("%w: need at least %d timesteps", core.ErrInsufficientData, series.MinLength)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Model{
		Series:        s,
		Biomass:       cfg.Biomass,
		Priors:        cfg.Priors,
		Latency:       cfg.Latency,
		Scales:        cfg.Scales,
		n:             s.Len(),
		o2Off:         -1,
		n2oOff:        -1,
		ch2oOff:       -1,
		kineticPriors: cfg.Priors.kinetic(),
	}

	off := sigmaIdx + 1
	if cfg.Latency.O2 {
		m.o2Off = off
		off += m.n
	}
	if cfg.Latency.N2O {
		m.n2oOff = off
		off += m.n
	}
	if cfg.Latency.CH2O {
		m.ch2oOff = off
		off += m.n
	}
	m.dim = off
	return m, nil
}

// Dim returns the size of the unconstrained latent vector
func (m *Model) Dim() int { return m.dim }

// ParamNames lists the named (non-driver) latent quantities in layout order
func (m *Model) ParamNames() []string {
	return append(append([]string(nil), kinetics.ParamNames...), kinetics.NameRateNoise)
}

// InitialPoint places kinetic constants at their transformed prior means
// with a small jitter, the noise scale at its prior scale, and latent
// drivers at their measured values.
func (m *Model) InitialPoint(rng *rand.Rand) []float64 {
	z := make([]float64, m.dim)
	for i, p := range m.kineticPriors {
		z[i] = p.Transform(p.Mean()) + 0.5*(2*rng.Float64()-1)
	}
	z[sigmaIdx] = math.Log(m.Priors.RateNoise.Sigma) + 0.2*(2*rng.Float64()-1)
	m.copyMeasured(z)
	return z
}

func (m *Model) copyMeasured(z []float64) {
	if m.o2Off >= 0 {
		copy(z[m.o2Off:m.o2Off+m.n], m.Series.O2)
	}
	if m.n2oOff >= 0 {
		copy(z[m.n2oOff:m.n2oOff+m.n], m.Series.N2O)
	}
	if m.ch2oOff >= 0 {
		copy(z[m.ch2oOff:m.ch2oOff+m.n], m.Series.CH2O)
	}
}

// Decode maps an unconstrained point to a constrained draw, evaluating the
// predicted-rate trajectory at the draw's drivers.
func (m *Model) Decode(z []float64) Draw {
	p := m.constrainParams(z)
	d := Draw{
		Params:    p,
		RateNoise: math.Exp(z[sigmaIdx]),
		Predicted: make([]float64, m.n),
	}
	for t := 0; t < m.n; t++ {
		d.Predicted[t] = kinetics.Rate(p, m.Biomass, m.driversAt(z, t))
	}
	return d
}

func (m *Model) constrainParams(z []float64) kinetics.Params {
	return kinetics.Params{
		MaxRate:              m.Priors.MaxRate.Untransform(z[0]),
		BiomassSaturation:    m.Priors.BiomassSaturation.Untransform(z[1]),
		O2Inhibition:         m.Priors.O2Inhibition.Untransform(z[2]),
		N2OAffinity:          m.Priors.N2OAffinity.Untransform(z[3]),
		FormaldehydeAffinity: m.Priors.FormaldehydeAffinity.Untransform(z[4]),
	}
}

func (m *Model) driversAt(z []float64, t int) kinetics.Drivers {
	d := kinetics.Drivers{O2: m.Series.O2[t], N2O: m.Series.N2O[t], CH2O: m.Series.CH2O[t]}
	if m.o2Off >= 0 {
		d.O2 = z[m.o2Off+t]
	}
	if m.n2oOff >= 0 {
		d.N2O = z[m.n2oOff+t]
	}
	if m.ch2oOff >= 0 {
		d.CH2O = z[m.ch2oOff+t]
	}
	return d
}

// logDensity evaluates the joint log-density (priors + transform Jacobians +
// Gaussian observation terms) at z and fills grad with its gradient. The
// result may be non-finite when latent drivers wander past a pole of the
// rate law; callers decide whether that is a divergence or a fatal
// instability.
func (m *Model) logDensity(z, grad []float64) float64 {
	for i := range grad {
		grad[i] = 0
	}

	lp := 0.0

	// Priors of the kinetic constants and noise scale, in z-space.
	for i, prior := range m.kineticPriors {
		l, dl := prior.LogDensityJacobian(z[i])
		lp += l
		grad[i] += dl
	}
	l, dl := m.Priors.RateNoise.LogDensityJacobian(z[sigmaIdx])
	lp += l
	grad[sigmaIdx] += dl

	// Priors of the latent drivers, centered on the measured profiles.
	lp += m.driverPrior(z, grad, m.o2Off, m.Series.O2, m.Scales.O2)
	lp += m.driverPrior(z, grad, m.n2oOff, m.Series.N2O, m.Scales.N2O)
	lp += m.driverPrior(z, grad, m.ch2oOff, m.Series.CH2O, m.Scales.CH2O)

	// Observation model: observed rate ~ Normal(predicted, sigma).
	p := m.constrainParams(z)
	sigma := math.Exp(z[sigmaIdx])
	inv2 := 1 / (sigma * sigma)

	dxdz := [5]float64{
		m.Priors.MaxRate.DxDz(z[0]),
		m.Priors.BiomassSaturation.DxDz(z[1]),
		m.Priors.O2Inhibition.DxDz(z[2]),
		m.Priors.N2OAffinity.DxDz(z[3]),
		m.Priors.FormaldehydeAffinity.DxDz(z[4]),
	}

	for t := 0; t < m.n; t++ {
		r, g := kinetics.RateWithGradient(p, m.Biomass, m.driversAt(z, t))
		resid := m.Series.Rate[t] - r
		lp += -math.Log(sigma) - lnSqrt2Pi - 0.5*resid*resid*inv2

		dldr := resid * inv2
		grad[0] += dldr * g.MaxRate * dxdz[0]
		grad[1] += dldr * g.BiomassSaturation * dxdz[1]
		grad[2] += dldr * g.O2Inhibition * dxdz[2]
		grad[3] += dldr * g.N2OAffinity * dxdz[3]
		grad[4] += dldr * g.FormaldehydeAffinity * dxdz[4]
		// d/dz log sigma terms: dx/dz = sigma cancels one power
		grad[sigmaIdx] += -1 + resid*resid*inv2

		if m.o2Off >= 0 {
			grad[m.o2Off+t] += dldr * g.O2
		}
		if m.n2oOff >= 0 {
			grad[m.n2oOff+t] += dldr * g.N2O
		}
		if m.ch2oOff >= 0 {
			grad[m.ch2oOff+t] += dldr * g.CH2O
		}
	}
	return lp
}

func (m *Model) driverPrior(z, grad []float64, off int, measured []float64, scale float64) float64 {
	if off < 0 {
		return 0
	}
	lp := 0.0
	inv2 := 1 / (scale * scale)
	logScale := math.Log(scale)
	for t := 0; t < m.n; t++ {
		d := z[off+t] - measured[t]
		lp += -logScale - lnSqrt2Pi - 0.5*d*d*inv2
		grad[off+t] += -d * inv2
	}
	return lp
}
