// Package inference is the probabilistic core: it turns a time series and a
// prior specification into a joint log-density over an unconstrained latent
// vector, explores the posterior with a No-U-Turn sampler, and merges
// per-chain draws into a summarized result.
package inference

import (
	"gokinet/domain/core"
	"gokinet/domain/dist"
	"gokinet/domain/posterior"
)

// Baseline sampler configuration, matching the recognized defaults of the
// upstream kinetics study.
const (
	DefaultTuningSteps  = 600
	DefaultDrawSteps    = 600
	DefaultTargetAccept = 0.90
	DefaultMaxTreeDepth = 10
	DefaultBiomass      = 0.3
)

// DriverLatency toggles measurement-uncertainty modeling per driver. An
// enabled driver becomes a per-timestep latent variable centered on its
// measured value; a disabled one is a fixed input.
type DriverLatency struct {
	O2   bool `json:"o2"`
	N2O  bool `json:"n2o"`
	CH2O bool `json:"ch2o"`
}

// DriverScales holds the fixed measurement-uncertainty scale per driver,
// used only for drivers with latency enabled.
type DriverScales struct {
	O2   float64 `json:"o2"`
	N2O  float64 `json:"n2o"`
	CH2O float64 `json:"ch2o"`
}

// PriorSet assigns a prior to every non-driver latent quantity. The five
// kinetic constants take bounded uniforms so non-physical values are outside
// the support; the noise scale takes a half-normal so negative noise is
// structurally impossible.
type PriorSet struct {
	MaxRate              dist.Prior `json:"max_rate"`
	BiomassSaturation    dist.Prior `json:"biomass_saturation"`
	O2Inhibition         dist.Prior `json:"o2_inhibition"`
	N2OAffinity          dist.Prior `json:"n2o_affinity"`
	FormaldehydeAffinity dist.Prior `json:"formaldehyde_affinity"`
	RateNoise            dist.Prior `json:"rate_noise"`
}

// DefaultPriors returns the biologically plausible baseline priors
func DefaultPriors() PriorSet {
	return PriorSet{
		MaxRate:              dist.Uniform(0.1, 1.5),
		BiomassSaturation:    dist.Uniform(0.05, 1.0),
		O2Inhibition:         dist.Uniform(0.05, 1.0),
		N2OAffinity:          dist.Uniform(0.05, 1.0),
		FormaldehydeAffinity: dist.Uniform(0.1, 5.0),
		RateNoise:            dist.HalfNormal(0.05),
	}
}

// kinetic returns the five kinetic priors in canonical parameter order
func (ps PriorSet) kinetic() []dist.Prior {
	return []dist.Prior{
		ps.MaxRate, ps.BiomassSaturation, ps.O2Inhibition,
		ps.N2OAffinity, ps.FormaldehydeAffinity,
	}
}

// Validate enforces the structural constraints: bounded positive uniforms
// for the kinetic constants, a half-normal for the noise scale.
func (ps PriorSet) Validate() error {
	names := []string{
		"max_rate", "biomass_saturation", "o2_inhibition",
		"n2o_affinity", "formaldehyde_affinity",
	}
	for i, p := range ps.kinetic() {
		if err := p.Validate(); err != nil {
			return core.NewPriorError(names[i], err.Error())
		}
		if p.Family != dist.FamilyUniform {
			return core.NewPriorError(names[i], "kinetic constants take bounded uniform priors")
		}
		if p.Low <= 0 {
			return core.NewPriorError(names[i], "support must be strictly positive")
		}
	}
	if err := ps.RateNoise.Validate(); err != nil {
		return core.NewPriorError("rate_noise", err.Error())
	}
	if ps.RateNoise.Family != dist.FamilyHalfNormal {
		return core.NewPriorError("rate_noise", "noise scale takes a half-normal prior")
	}
	return nil
}

// Config is the full configuration surface of one inference run. It is
// passed by value into Run; there is no process-wide sampler state.
type Config struct {
	TuningSteps  int     `json:"tuning_steps"`
	DrawSteps    int     `json:"draw_steps"`
	TargetAccept float64 `json:"target_accept"`
	Chains       int     `json:"n_chains"`
	Seed         int64   `json:"random_seed"`
	MaxTreeDepth int     `json:"max_tree_depth"`

	HDIMass          float64 `json:"hdi_mass"`
	PredictiveCIMass float64 `json:"predictive_ci_mass"`

	// DivergenceTolerance is the divergent-draw fraction above which a
	// chain terminates DIVERGED; RHatThreshold flags (never aborts)
	// non-convergence across chains.
	DivergenceTolerance float64 `json:"divergence_tolerance"`
	RHatThreshold       float64 `json:"rhat_threshold"`

	// MaxParallel bounds concurrently running chains; 0 means all at once.
	MaxParallel int `json:"max_parallel,omitempty"`

	Biomass float64       `json:"biomass"` // X3, known constant
	Latency DriverLatency `json:"driver_latency"`
	Scales  DriverScales  `json:"driver_scales"`
	Priors  PriorSet      `json:"priors"`
}

// DefaultConfig returns the recognized baseline configuration. Driver
// latency defaults to on for all three drivers with the instrument scales
// of the upstream study.
func DefaultConfig() Config {
	return Config{
		TuningSteps:         DefaultTuningSteps,
		DrawSteps:           DefaultDrawSteps,
		TargetAccept:        DefaultTargetAccept,
		Chains:              2,
		Seed:                42,
		MaxTreeDepth:        DefaultMaxTreeDepth,
		HDIMass:             posterior.DefaultHDIMass,
		PredictiveCIMass:    posterior.DefaultPredictiveCIMass,
		DivergenceTolerance: 0.05,
		RHatThreshold:       posterior.DefaultRHatThreshold,
		Biomass:             DefaultBiomass,
		Latency:             DriverLatency{O2: true, N2O: true, CH2O: true},
		Scales:              DriverScales{O2: 0.05, N2O: 0.02, CH2O: 0.10},
		Priors:              DefaultPriors(),
	}
}

// Validate rejects an invalid configuration before sampling begins,
// reporting the offending field.
func (c Config) Validate() error {
	if c.TuningSteps <= 0 {
		return core.NewConfigError("tuning_steps", "must be positive")
	}
	if c.DrawSteps <= 0 {
		return core.NewConfigError("draw_steps", "must be positive")
	}
	if !(c.TargetAccept > 0 && c.TargetAccept < 1) {
		return core.NewConfigError("target_accept", "must be in (0,1)")
	}
	if c.Chains < 1 {
		return core.NewConfigError("n_chains", "must be at least 1")
	}
	if c.MaxTreeDepth < 1 || c.MaxTreeDepth > 15 {
		return core.NewConfigError("max_tree_depth", "must be in [1,15]")
	}
	if !(c.HDIMass > 0 && c.HDIMass < 1) {
		return core.NewConfigError("hdi_mass", "must be in (0,1)")
	}
	if !(c.PredictiveCIMass > 0 && c.PredictiveCIMass < 1) {
		return core.NewConfigError("predictive_ci_mass", "must be in (0,1)")
	}
	if !(c.DivergenceTolerance >= 0 && c.DivergenceTolerance < 1) {
		return core.NewConfigError("divergence_tolerance", "must be in [0,1)")
	}
	if c.RHatThreshold < 1 {
		return core.NewConfigError("rhat_threshold", "must be at least 1")
	}
	if c.MaxParallel < 0 {
		return core.NewConfigError("max_parallel", "must be non-negative")
	}
	if !(c.Biomass > 0) {
		return core.NewConfigError("biomass", "must be positive")
	}
	if c.Latency.O2 && !(c.Scales.O2 > 0) {
		return core.NewConfigError("driver_scales.o2", "must be positive when O2 is latent")
	}
	if c.Latency.N2O && !(c.Scales.N2O > 0) {
		return core.NewConfigError("driver_scales.n2o", "must be positive when N2O is latent")
	}
	if c.Latency.CH2O && !(c.Scales.CH2O > 0) {
		return core.NewConfigError("driver_scales.ch2o", "must be positive when CH2O is latent")
	}
	return c.Priors.Validate()
}
