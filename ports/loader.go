package ports

import (
	"context"

	"gokinet/domain/series"
)

// SeriesLoader reads an observed time series from an external source
type SeriesLoader interface {
	Load(ctx context.Context, path string) (*series.Series, error)
}
