// Package series defines the immutable input time series consumed by the
// inference engine: driver concentrations and the observed denitrification
// rate at ordered timestamps.
package series

import (
	"fmt"
	"math"

	"gokinet/domain/core"
)

// MinLength is the shortest series the engine accepts
const MinLength = 2

// Series is an ordered time series of driver measurements and observed
// rates. Construct it with New; the constructor copies its inputs and the
// slices must be treated as read-only afterwards.
type Series struct {
	T    []float64 `json:"t"`
	O2   []float64 `json:"o2"`
	N2O  []float64 `json:"n2o"`
	CH2O []float64 `json:"ch2o"`
	Rate []float64 `json:"rate"` // observed r3
}

// New validates and copies the columns into an immutable Series
func New(t, o2, n2o, ch2o, rate []float64) (*Series, error) {
	n := len(t)
	if n < MinLength {
		return nil, fmt.Errorf("%w: need at least %d points, got %d", core.ErrInsufficientData, MinLength, n)
	}
	cols := []struct {
		name string
		data []float64
	}{
		{"t", t}, {"o2", o2}, {"n2o", n2o}, {"ch2o", ch2o}, {"rate", rate},
	}
	for _, c := range cols {
		if len(c.data) != n {
			return nil, core.NewSeriesError(fmt.Sprintf("column %s has %d values, expected %d", c.name, len(c.data), n))
		}
	}
	for i := 1; i < n; i++ {
		if !(t[i] > t[i-1]) {
			return nil, core.NewSeriesError(fmt.Sprintf("timestamps must be strictly increasing at index %d", i))
		}
	}
	for _, c := range cols {
		for i, v := range c.data {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, core.NewSeriesError(fmt.Sprintf("column %s has non-finite value at index %d", c.name, i))
			}
		}
	}
	// Drivers are concentrations and cannot be negative; the observed rate
	// may dip below zero from measurement noise.
	for _, c := range cols[1:4] {
		for i, v := range c.data {
			if v < 0 {
				return nil, core.NewSeriesError(fmt.Sprintf("column %s has negative concentration at index %d", c.name, i))
			}
		}
	}

	return &Series{
		T:    append([]float64(nil), t...),
		O2:   append([]float64(nil), o2...),
		N2O:  append([]float64(nil), n2o...),
		CH2O: append([]float64(nil), ch2o...),
		Rate: append([]float64(nil), rate...),
	}, nil
}

// Len returns the number of timesteps
func (s *Series) Len() int {
	return len(s.T)
}
