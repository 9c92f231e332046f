package posterior

import (
	"fmt"
	"math"
	"sort"

	mfstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Default probability masses, matching the reporting conventions of the
// upstream kinetics study.
const (
	DefaultHDIMass          = 0.94
	DefaultPredictiveCIMass = 0.90
)

// ParamSummary is the per-parameter record handed to reporting collaborators
type ParamSummary struct {
	Name    string  `json:"name"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`
	HDILow  float64 `json:"hdi_low"`
	HDIHigh float64 `json:"hdi_high"`
	HDIMass float64 `json:"hdi_mass"`
}

// PredictiveRecord is the per-timestep posterior-predictive record
type PredictiveRecord struct {
	T             float64 `json:"t"`
	PredictedMean float64 `json:"predicted_mean"`
	CILow         float64 `json:"ci_low"`
	CIHigh        float64 `json:"ci_high"`
	Observed      float64 `json:"observed"`
}

// HDI computes the highest-density interval containing the given probability
// mass: the narrowest contiguous window over the sorted draws.
func HDI(draws []float64, mass float64) (low, high float64, err error) {
	if len(draws) < 2 {
		return 0, 0, fmt.Errorf("HDI needs at least 2 draws, got %d", len(draws))
	}
	if !(mass > 0 && mass < 1) {
		return 0, 0, fmt.Errorf("HDI mass must be in (0,1), got %v", mass)
	}

	sorted := append([]float64(nil), draws...)
	sort.Float64s(sorted)

	n := len(sorted)
	window := int(math.Ceil(mass * float64(n)))
	if window < 2 {
		window = 2
	}
	if window > n {
		window = n
	}

	bestLow, bestHigh := sorted[0], sorted[window-1]
	bestWidth := bestHigh - bestLow
	for i := 1; i+window <= n; i++ {
		w := sorted[i+window-1] - sorted[i]
		if w < bestWidth {
			bestWidth = w
			bestLow, bestHigh = sorted[i], sorted[i+window-1]
		}
	}
	return bestLow, bestHigh, nil
}

// Summarize produces per-parameter means and highest-density intervals
func Summarize(s *SampleSet, hdiMass float64) ([]ParamSummary, error) {
	if hdiMass == 0 {
		hdiMass = DefaultHDIMass
	}
	summaries := make([]ParamSummary, len(s.ParamNames))
	for i, name := range s.ParamNames {
		draws := s.Flatten(i)
		low, high, err := HDI(draws, hdiMass)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		summaries[i] = ParamSummary{
			Name:    name,
			Mean:    stat.Mean(draws, nil),
			StdDev:  stat.StdDev(draws, nil),
			HDILow:  low,
			HDIHigh: high,
			HDIMass: hdiMass,
		}
	}
	return summaries, nil
}

// PredictiveBand produces the posterior-predictive mean and equal-tailed
// credible band for the rate trajectory, aligned with the observed rates.
func PredictiveBand(s *SampleSet, t, observed []float64, mass float64) ([]PredictiveRecord, error) {
	if mass == 0 {
		mass = DefaultPredictiveCIMass
	}
	if !(mass > 0 && mass < 1) {
		return nil, fmt.Errorf("predictive CI mass must be in (0,1), got %v", mass)
	}
	if len(t) != len(observed) {
		return nil, fmt.Errorf("timestamps and observations disagree: %d vs %d", len(t), len(observed))
	}
	for _, c := range s.Chains {
		for _, draw := range c.Predicted {
			if len(draw) != len(t) {
				return nil, fmt.Errorf("chain %d predicted %d steps, expected %d", c.Chain, len(draw), len(t))
			}
		}
	}

	lowPct := (1 - mass) / 2 * 100
	highPct := 100 - lowPct

	records := make([]PredictiveRecord, len(t))
	for step := range t {
		draws := s.PredictedAt(step)
		ciLow, err := mfstats.Percentile(draws, lowPct)
		if err != nil {
			return nil, fmt.Errorf("step %d lower percentile: %w", step, err)
		}
		ciHigh, err := mfstats.Percentile(draws, highPct)
		if err != nil {
			return nil, fmt.Errorf("step %d upper percentile: %w", step, err)
		}
		records[step] = PredictiveRecord{
			T:             t[step],
			PredictedMean: stat.Mean(draws, nil),
			CILow:         ciLow,
			CIHigh:        ciHigh,
			Observed:      observed[step],
		}
	}
	return records, nil
}
