package inference

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"gokinet/domain/core"
	"gokinet/domain/posterior"
)

// ChainState is the lifecycle of one chain. Terminal states are never left
// within a run; a fresh run starts new chains.
type ChainState string

const (
	StateConfigured ChainState = "CONFIGURED"
	StateWarmingUp  ChainState = "WARMING_UP"
	StateSampling   ChainState = "SAMPLING"
	StateConverged  ChainState = "CONVERGED"
	StateDiverged   ChainState = "DIVERGED"
)

// chainRunner drives a single chain through warm-up and sampling. Chains
// share only the immutable model and configuration; every mutable piece of
// state here belongs to one chain.
type chainRunner struct {
	id      int
	model   *Model
	cfg     Config
	rng     *rand.Rand
	sampler *nuts
	state   ChainState
}

func newChainRunner(id int, m *Model, cfg Config, rng *rand.Rand) *chainRunner {
	return &chainRunner{
		id:      id,
		model:   m,
		cfg:     cfg,
		rng:     rng,
		sampler: newNUTS(m, rng, cfg.TargetAccept, cfg.MaxTreeDepth),
		state:   StateConfigured,
	}
}

// run executes the chain to a terminal state. A non-finite density at the
// initial point aborts with ErrNonFinite; a cancelled context aborts with
// the context error and the partial draws are discarded by the caller.
func (c *chainRunner) run(ctx context.Context) (*posterior.ChainDraws, error) {
	z := c.model.InitialPoint(c.rng)

	grad := make([]float64, c.model.Dim())
	if lp := c.model.logDensity(z, grad); math.IsNaN(lp) || math.IsInf(lp, 0) {
		return nil, fmt.Errorf("%w: chain %d initial point", core.ErrNonFinite, c.id)
	}

	c.state = StateWarmingUp
	c.sampler.initStepSize(z)

	// Metric adaptation window: draws from the middle half of warm-up feed
	// the diagonal inverse metric, then the step size is re-tuned.
	warm := c.cfg.TuningSteps
	winLow := warm / 4
	winHigh := 3 * warm / 4
	window := make([][]float64, 0, winHigh-winLow)

	for i := 0; i < warm; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var stats stepStats
		z, stats = c.sampler.step(z)
		c.sampler.adapt(stats.alpha)

		if i >= winLow && i < winHigh {
			window = append(window, append([]float64(nil), z...))
		}
		if i == winHigh && len(window) > 10 {
			c.sampler.setMetric(regularizedVariances(window))
			c.sampler.initStepSize(z)
		}
	}
	c.sampler.freezeStepSize()

	c.state = StateSampling
	draws := &posterior.ChainDraws{Chain: c.id}
	alphaSum := 0.0
	for i := 0; i < c.cfg.DrawSteps; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var stats stepStats
		z, stats = c.sampler.step(z)
		if stats.divergent {
			draws.Divergences++
		}
		alphaSum += stats.alpha

		d := c.model.Decode(z)
		row := append(d.Params.Slice(), d.RateNoise)
		draws.Params = append(draws.Params, row)
		draws.Predicted = append(draws.Predicted, d.Predicted)
	}
	draws.AcceptRate = alphaSum / float64(c.cfg.DrawSteps)

	if float64(draws.Divergences) > c.cfg.DivergenceTolerance*float64(c.cfg.DrawSteps) {
		c.state = StateDiverged
	} else {
		c.state = StateConverged
	}
	return draws, nil
}

// regularizedVariances estimates per-dimension posterior variances from
// warm-up draws, shrunk toward a small floor so early noise cannot produce
// a degenerate metric.
func regularizedVariances(window [][]float64) []float64 {
	n := float64(len(window))
	dim := len(window[0])
	out := make([]float64, dim)
	col := make([]float64, len(window))
	for j := 0; j < dim; j++ {
		for i, row := range window {
			col[i] = row[j]
		}
		v := stat.Variance(col, nil)
		out[j] = (n/(n+5))*v + (5/(n+5))*1e-3
	}
	return out
}
