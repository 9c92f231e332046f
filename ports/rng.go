package ports

import (
	"context"
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// Stream creates a deterministic RNG stream for a named operation and
	// chain index. The same (name, chain, seed) triple must always produce
	// the identical sequence, and distinct chains must produce independent
	// streams.
	Stream(ctx context.Context, name string, chain int, seed int64) (*rand.Rand, error)
}
