package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"gokinet/domain/core"
	"gokinet/domain/posterior"
	"gokinet/domain/run"
	"gokinet/domain/series"
	"gokinet/ports"
)

// rngStreamName scopes the per-chain RNG streams of the sampler
const rngStreamName = "nuts-chain"

// Result is the immutable outcome of one inference run
type Result struct {
	RunID       core.RunID
	Config      Config
	Fingerprint run.Fingerprint
	Samples     *posterior.SampleSet

	Params     []posterior.ParamSummary
	Predictive []posterior.PredictiveRecord

	ChainStates []ChainState
	RHat        map[string]float64
	Divergences int

	// Converged means every R-hat is under threshold and acceptance is
	// near target; Diverged means at least one chain terminated DIVERGED.
	// Neither gates the presence of results.
	Converged bool
	Diverged  bool
	Warnings  []string

	Elapsed time.Duration
}

// Record converts the result into the persistable run record
func (r *Result) Record(label string) *run.Record {
	return &run.Record{
		ID:          r.RunID,
		Label:       label,
		CreatedAt:   time.Now().UTC(),
		Timesteps:   len(r.Predictive),
		Chains:      r.Config.Chains,
		Seed:        r.Config.Seed,
		Fingerprint: r.Fingerprint,
		Converged:   r.Converged,
		Diverged:    r.Diverged,
		RHat:        r.RHat,
		Divergences: r.Divergences,
		Warnings:    r.Warnings,
		ElapsedMs:   r.Elapsed.Milliseconds(),
		Params:      r.Params,
		Predictive:  r.Predictive,
	}
}

// Run draws from the posterior over the full latent vector and summarizes
// the retained draws. Chains run in parallel with no shared mutable state;
// a chain lost to numerical instability is dropped while the others
// continue, and the run fails only if no chain produced draws.
func Run(ctx context.Context, s *series.Series, cfg Config, rng ports.RNGPort, log *logrus.Logger) (*Result, error) {
	if log == nil {
		log = logrus.New()
	}
	start := time.Now()

	model, err := NewModel(s, cfg)
	if err != nil {
		return nil, err
	}

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding config for fingerprint: %w", err)
	}
	fingerprint := run.NewFingerprint(s, run.DigestOf(string(cfgJSON)), cfg.Seed, core.Version)

	maxParallel := cfg.MaxParallel
	if maxParallel == 0 {
		maxParallel = cfg.Chains
	}
	sem := semaphore.NewWeighted(int64(maxParallel))

	type chainOutcome struct {
		draws *posterior.ChainDraws
		state ChainState
		err   error
	}
	outcomes := make([]chainOutcome, cfg.Chains)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Chains; i++ {
		chainRNG, err := rng.Stream(ctx, rngStreamName, i, cfg.Seed)
		if err != nil {
			return nil, fmt.Errorf("deriving RNG stream for chain %d: %w", i, err)
		}

		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				outcomes[id] = chainOutcome{err: err}
				return
			}
			defer sem.Release(1)

			runner := newChainRunner(id, model, cfg, chainRNG)
			draws, err := runner.run(ctx)
			outcomes[id] = chainOutcome{draws: draws, state: runner.state, err: err}
		}(i)
	}
	wg.Wait()

	var chains []posterior.ChainDraws
	states := make([]ChainState, cfg.Chains)
	divergences := 0
	var warnings []string
	diverged := false

	for i, o := range outcomes {
		states[i] = o.state
		if o.err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.WithFields(logrus.Fields{"chain": i, "error": o.err}).Warn("chain aborted")
			warnings = append(warnings, fmt.Sprintf("chain %d aborted: %v", i, o.err))
			continue
		}
		chains = append(chains, *o.draws)
		divergences += o.draws.Divergences
		if o.state == StateDiverged {
			diverged = true
			warnings = append(warnings, fmt.Sprintf("chain %d exceeded divergence tolerance (%d divergent draws)", i, o.draws.Divergences))
		}
		log.WithFields(logrus.Fields{
			"chain":       i,
			"state":       o.state,
			"divergences": o.draws.Divergences,
			"accept_rate": fmt.Sprintf("%.3f", o.draws.AcceptRate),
		}).Info("chain finished")
	}
	if len(chains) == 0 {
		return nil, fmt.Errorf("%w: all %d chains failed", core.ErrNoDraws, cfg.Chains)
	}

	samples, err := posterior.NewSampleSet(model.ParamNames(), chains)
	if err != nil {
		return nil, err
	}

	rhat := map[string]float64{}
	converged := true
	if len(chains) > 1 || len(chains[0].Params) >= 4 {
		rhat, err = posterior.RHatByParam(samples)
		if err != nil {
			return nil, err
		}
		if worst := posterior.MaxRHat(rhat); worst > cfg.RHatThreshold {
			converged = false
			warnings = append(warnings, fmt.Sprintf("split R-hat %.3f exceeds threshold %.3f", worst, cfg.RHatThreshold))
		}
	}
	for _, c := range chains {
		if c.AcceptRate < cfg.TargetAccept-0.25 {
			converged = false
			warnings = append(warnings, fmt.Sprintf("chain %d acceptance %.2f far below target %.2f", c.Chain, c.AcceptRate, cfg.TargetAccept))
		}
	}
	if diverged {
		converged = false
	}

	summaries, err := posterior.Summarize(samples, cfg.HDIMass)
	if err != nil {
		return nil, err
	}
	predictive, err := posterior.PredictiveBand(samples, s.T, s.Rate, cfg.PredictiveCIMass)
	if err != nil {
		return nil, err
	}

	return &Result{
		RunID:       core.NewRunID(),
		Config:      cfg,
		Fingerprint: fingerprint,
		Samples:     samples,
		Params:      summaries,
		Predictive:  predictive,
		ChainStates: states,
		RHat:        rhat,
		Divergences: divergences,
		Converged:   converged,
		Diverged:    diverged,
		Warnings:    warnings,
		Elapsed:     time.Since(start),
	}, nil
}
