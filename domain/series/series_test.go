package series

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gokinet/domain/core"
)

func TestNew(t *testing.T) {
	ts := []float64{0, 1, 2}
	pos := []float64{1, 2, 3}
	rate := []float64{0.1, 0.2, -0.01}

	tests := []struct {
		name    string
		t       []float64
		o2      []float64
		rate    []float64
		wantErr error
	}{
		{"valid", ts, pos, rate, nil},
		{"too short", []float64{0}, []float64{1}, []float64{0.1}, core.ErrInsufficientData},
		{"negative driver", ts, []float64{1, -2, 3}, rate, core.ErrInvalidSeries},
		{"nan driver", ts, []float64{1, math.NaN(), 3}, rate, core.ErrInvalidSeries},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var o2, n2o, ch2o, r []float64
			n := len(tt.t)
			o2 = tt.o2
			n2o = pos[:n]
			ch2o = pos[:n]
			r = tt.rate
			s, err := New(tt.t, o2, n2o, ch2o, r)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, n, s.Len())
		})
	}
}

func TestNewRejectsLengthMismatch(t *testing.T) {
	_, err := New([]float64{0, 1, 2}, []float64{1, 2}, []float64{1, 2, 3}, []float64{1, 2, 3}, []float64{0, 0, 0})
	assert.ErrorIs(t, err, core.ErrInvalidSeries)
}

func TestNewRejectsUnorderedTimestamps(t *testing.T) {
	c := []float64{1, 2, 3}
	_, err := New([]float64{0, 2, 1}, c, c, c, c)
	assert.ErrorIs(t, err, core.ErrInvalidSeries)
}

func TestNewRejectsNonFiniteTimestamps(t *testing.T) {
	c := []float64{1, 2, 3}

	// +Inf at the tail satisfies strict ordering, so finiteness must catch it
	_, err := New([]float64{0, 1, math.Inf(1)}, c, c, c, c)
	assert.ErrorIs(t, err, core.ErrInvalidSeries)

	_, err = New([]float64{0, 1, math.NaN()}, c, c, c, c)
	assert.ErrorIs(t, err, core.ErrInvalidSeries)
}

func TestNewCopiesInput(t *testing.T) {
	ts := []float64{0, 1, 2}
	c := []float64{1, 2, 3}
	s, err := New(ts, c, c, c, c)
	require.NoError(t, err)

	c[0] = 99
	assert.Equal(t, 1.0, s.O2[0], "mutating the caller's slice must not affect the series")
}

func TestNewAllowsNegativeObservedRate(t *testing.T) {
	c := []float64{1, 2, 3}
	_, err := New([]float64{0, 1, 2}, c, c, c, []float64{-0.02, 0.1, 0.2})
	assert.NoError(t, err)
}
