package ports

import (
	"context"

	"gokinet/domain/run"
)

// Exporter writes a run record to an external artifact (workbook, report)
type Exporter interface {
	Export(ctx context.Context, rec *run.Record, dir string) error
}
