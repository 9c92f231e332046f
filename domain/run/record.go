// Package run defines the immutable result record of one inference run, the
// unit persisted by stores and consumed by exporters and the results API.
package run

import (
	"time"

	"gokinet/domain/core"
	"gokinet/domain/posterior"
)

// Record is the reportable outcome of a completed inference run
type Record struct {
	ID        core.RunID `json:"id"`
	Label     string     `json:"label"`
	CreatedAt time.Time  `json:"created_at"`

	// Run provenance
	Timesteps   int         `json:"timesteps"`
	Chains      int         `json:"chains"`
	Seed        int64       `json:"seed"`
	Fingerprint Fingerprint `json:"fingerprint"`

	// Diagnostics
	Converged   bool               `json:"converged"`
	Diverged    bool               `json:"diverged"`
	RHat        map[string]float64 `json:"rhat"`
	Divergences int                `json:"divergences"`
	Warnings    []string           `json:"warnings,omitempty"`
	ElapsedMs   int64              `json:"elapsed_ms"`

	// Summaries
	Params     []posterior.ParamSummary     `json:"params"`
	Predictive []posterior.PredictiveRecord `json:"predictive"`
}

// Trustworthy reports whether the summaries can be taken at face value:
// the run reached its terminal CONVERGED state and chains agree.
func (r *Record) Trustworthy() bool {
	return r.Converged && !r.Diverged
}
