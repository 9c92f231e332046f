package posterior

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// DefaultRHatThreshold is the conventional cutoff above which chains are
// considered not to have mixed.
const DefaultRHatThreshold = 1.05

// SplitRHat computes the split potential-scale-reduction statistic for one
// parameter across chains. Each chain is split in half so the statistic also
// detects non-stationarity within a single chain.
func SplitRHat(chains [][]float64) (float64, error) {
	if len(chains) == 0 {
		return 0, fmt.Errorf("split R-hat needs at least one chain")
	}

	var halves [][]float64
	for i, c := range chains {
		if len(c) < 4 {
			return 0, fmt.Errorf("chain %d too short for split R-hat: %d draws", i, len(c))
		}
		mid := len(c) / 2
		halves = append(halves, c[:mid], c[mid:mid*2])
	}

	m := len(halves)
	n := len(halves[0])
	for _, h := range halves {
		if len(h) < n {
			n = len(h)
		}
	}

	means := make([]float64, m)
	vars := make([]float64, m)
	for i, h := range halves {
		means[i] = stat.Mean(h[:n], nil)
		vars[i] = stat.Variance(h[:n], nil)
	}

	w := stat.Mean(vars, nil)
	b := float64(n) * stat.Variance(means, nil)
	if w <= 0 {
		// all draws identical within sequences
		if b <= 0 {
			return 1, nil
		}
		return math.Inf(1), nil
	}

	varPlus := float64(n-1)/float64(n)*w + b/float64(n)
	return math.Sqrt(varPlus / w), nil
}

// RHatByParam computes split R-hat for every named parameter in the set
func RHatByParam(s *SampleSet) (map[string]float64, error) {
	out := make(map[string]float64, len(s.ParamNames))
	for i, name := range s.ParamNames {
		chains := make([][]float64, len(s.Chains))
		for j, c := range s.Chains {
			col := make([]float64, len(c.Params))
			for k, draw := range c.Params {
				col[k] = draw[i]
			}
			chains[j] = col
		}
		r, err := SplitRHat(chains)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		out[name] = r
	}
	return out, nil
}

// MaxRHat returns the worst split R-hat across parameters
func MaxRHat(rhat map[string]float64) float64 {
	worst := 0.0
	for _, r := range rhat {
		if r > worst {
			worst = r
		}
	}
	return worst
}
