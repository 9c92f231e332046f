package run

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gokinet/domain/series"
)

func testSeries(t *testing.T, rate0 float64) *series.Series {
	t.Helper()
	s, err := series.New(
		[]float64{0, 1, 2},
		[]float64{0.5, 0.5, 0.5},
		[]float64{0.1, 0.2, 0.3},
		[]float64{1, 1, 1},
		[]float64{rate0, 0.02, 0.03},
	)
	require.NoError(t, err)
	return s
}

func TestFingerprintIsDeterministic(t *testing.T) {
	a := NewFingerprint(testSeries(t, 0.01), "cfg", 42, "1.0.0")
	b := NewFingerprint(testSeries(t, 0.01), "cfg", 42, "1.0.0")
	assert.True(t, a.Matches(b))
	assert.Equal(t, a.Digest, b.Digest)
	assert.NotEmpty(t, a.DataDigest)
}

func TestFingerprintSeparatesInputs(t *testing.T) {
	base := NewFingerprint(testSeries(t, 0.01), "cfg", 42, "1.0.0")

	changedData := NewFingerprint(testSeries(t, 0.011), "cfg", 42, "1.0.0")
	assert.False(t, base.Matches(changedData))

	changedConfig := NewFingerprint(testSeries(t, 0.01), "cfg2", 42, "1.0.0")
	assert.False(t, base.Matches(changedConfig))

	changedSeed := NewFingerprint(testSeries(t, 0.01), "cfg", 43, "1.0.0")
	assert.False(t, base.Matches(changedSeed))
}

func TestFingerprintZeroValueNeverMatches(t *testing.T) {
	var zero Fingerprint
	assert.False(t, zero.Matches(zero))
}
