package run

import (
	"crypto/sha256"
	"fmt"

	"gokinet/domain/series"
)

// Fingerprint pins everything that determines a run's draws: the observed
// series, the sampler configuration, the seed and the code version. Runs
// with equal fingerprints must replay to identical draws.
type Fingerprint struct {
	DataDigest   string `json:"data_digest"`
	ConfigDigest string `json:"config_digest"`
	Seed         int64  `json:"seed"`
	CodeVersion  string `json:"code_version"`
	Digest       string `json:"digest"`
}

// NewFingerprint derives the replay fingerprint for one run
func NewFingerprint(s *series.Series, configDigest string, seed int64, codeVersion string) Fingerprint {
	dataDigest := DigestSeries(s)
	return Fingerprint{
		DataDigest:   dataDigest,
		ConfigDigest: configDigest,
		Seed:         seed,
		CodeVersion:  codeVersion,
		Digest:       DigestOf(fmt.Sprintf("%s|%s|%d|%s", dataDigest, configDigest, seed, codeVersion)),
	}
}

// Matches reports whether two fingerprints pin the same replayable run
func (f Fingerprint) Matches(other Fingerprint) bool {
	return f.Digest != "" && f.Digest == other.Digest
}

// DigestSeries hashes the full observed series, values and order included
func DigestSeries(s *series.Series) string {
	h := sha256.New()
	for i := 0; i < s.Len(); i++ {
		fmt.Fprintf(h, "%g|%g|%g|%g|%g\n", s.T[i], s.O2[i], s.N2O[i], s.CH2O[i], s.Rate[i])
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// DigestOf hashes an arbitrary payload string
func DigestOf(payload string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(payload)))
}
