package ports

import (
	"context"

	"gokinet/domain/core"
	"gokinet/domain/run"
)

// RunStore persists completed run records for downstream reporting
type RunStore interface {
	Save(ctx context.Context, rec *run.Record) error
	Get(ctx context.Context, id core.RunID) (*run.Record, error)
	List(ctx context.Context, limit int) ([]*run.Record, error)
}
