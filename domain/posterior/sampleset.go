// Package posterior holds the merged draw set produced by the sampler and
// turns it into credible intervals, predictive bands and convergence
// diagnostics.
package posterior

import (
	"fmt"
)

// ChainDraws is the ordered draw sequence of one chain. Order matters within
// a chain (draws are autocorrelated); no ordering is guaranteed across
// chains.
type ChainDraws struct {
	Chain       int         `json:"chain"`
	Params      [][]float64 `json:"params"`    // draws x latent parameters, constrained space
	Predicted   [][]float64 `json:"predicted"` // draws x timesteps
	Divergences int         `json:"divergences"`
	AcceptRate  float64     `json:"accept_rate"`
}

// SampleSet is the merged, equally-weighted posterior draw set. The raw
// per-chain draws stay accessible for trace and autocorrelation diagnostics.
type SampleSet struct {
	ParamNames []string     `json:"param_names"`
	Chains     []ChainDraws `json:"chains"`
}

// NewSampleSet validates chain shapes against the parameter names
func NewSampleSet(paramNames []string, chains []ChainDraws) (*SampleSet, error) {
	if len(paramNames) == 0 {
		return nil, fmt.Errorf("sample set needs at least one named parameter")
	}
	if len(chains) == 0 {
		return nil, fmt.Errorf("sample set needs at least one chain")
	}
	for _, c := range chains {
		if len(c.Params) == 0 {
			return nil, fmt.Errorf("chain %d has no draws", c.Chain)
		}
		for i, draw := range c.Params {
			if len(draw) != len(paramNames) {
				return nil, fmt.Errorf("chain %d draw %d has %d values, expected %d",
					c.Chain, i, len(draw), len(paramNames))
			}
		}
	}
	return &SampleSet{ParamNames: paramNames, Chains: chains}, nil
}

// NumDraws returns the total retained draws across chains
func (s *SampleSet) NumDraws() int {
	n := 0
	for _, c := range s.Chains {
		n += len(c.Params)
	}
	return n
}

// ParamIndex returns the column index of a named parameter, or -1
func (s *SampleSet) ParamIndex(name string) int {
	for i, n := range s.ParamNames {
		if n == name {
			return i
		}
	}
	return -1
}

// Flatten collects every chain's draws for one parameter column
func (s *SampleSet) Flatten(param int) []float64 {
	out := make([]float64, 0, s.NumDraws())
	for _, c := range s.Chains {
		for _, draw := range c.Params {
			out = append(out, draw[param])
		}
	}
	return out
}

// FlattenParam collects draws for a named parameter
func (s *SampleSet) FlattenParam(name string) ([]float64, error) {
	i := s.ParamIndex(name)
	if i < 0 {
		return nil, fmt.Errorf("unknown parameter %q", name)
	}
	return s.Flatten(i), nil
}

// PredictedAt collects every chain's predicted rate at one timestep
func (s *SampleSet) PredictedAt(step int) []float64 {
	out := make([]float64, 0, s.NumDraws())
	for _, c := range s.Chains {
		for _, draw := range c.Predicted {
			out = append(out, draw[step])
		}
	}
	return out
}
