// Package app orchestrates the estimation workflow: load an observed series,
// run the sampler, persist the record and export report artifacts.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"gokinet/domain/core"
	"gokinet/domain/run"
	"gokinet/domain/series"
	"gokinet/inference"
	"gokinet/ports"
)

// EstimationService wires the inference engine to its adapters
type EstimationService struct {
	loader    ports.SeriesLoader
	rngPort   ports.RNGPort
	store     ports.RunStore
	exporters []ports.Exporter
	log       *logrus.Logger
}

// NewEstimationService creates an estimation service. The store and the
// exporters are optional; the loader is needed only for path-based requests.
func NewEstimationService(loader ports.SeriesLoader, rngPort ports.RNGPort, store ports.RunStore, exporters []ports.Exporter, log *logrus.Logger) *EstimationService {
	if log == nil {
		log = logrus.New()
	}
	return &EstimationService{
		loader:    loader,
		rngPort:   rngPort,
		store:     store,
		exporters: exporters,
		log:       log,
	}
}

// EstimationRequest defines the inputs of one estimation run. Exactly one of
// Series and SeriesPath must be set.
type EstimationRequest struct {
	Label      string
	Series     *series.Series
	SeriesPath string
	Config     inference.Config
	ExportDir  string
}

// RunEstimation executes one full estimation run and returns the persisted
// record. Export failures degrade to warnings; persistence failures abort.
func (s *EstimationService) RunEstimation(ctx context.Context, req EstimationRequest) (*run.Record, error) {
	obs, err := s.resolveSeries(ctx, req)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"label":     req.Label,
		"timesteps": obs.Len(),
		"chains":    req.Config.Chains,
		"seed":      req.Config.Seed,
	}).Info("starting estimation run")

	res, err := inference.Run(ctx, obs, req.Config, s.rngPort, s.log)
	if err != nil {
		return nil, err
	}
	rec := res.Record(req.Label)

	if s.store != nil {
		if err := s.store.Save(ctx, rec); err != nil {
			return nil, fmt.Errorf("persisting run %s: %w", rec.ID, err)
		}
	}

	if req.ExportDir != "" {
		for _, exp := range s.exporters {
			if err := exp.Export(ctx, rec, req.ExportDir); err != nil {
				s.log.WithFields(logrus.Fields{"run": rec.ID, "error": err}).Warn("export failed")
				rec.Warnings = append(rec.Warnings, fmt.Sprintf("export failed: %v", err))
			}
		}
	}

	s.log.WithFields(logrus.Fields{
		"run":        rec.ID,
		"converged":  rec.Converged,
		"diverged":   rec.Diverged,
		"elapsed_ms": rec.ElapsedMs,
	}).Info("estimation run finished")
	return rec, nil
}

func (s *EstimationService) resolveSeries(ctx context.Context, req EstimationRequest) (*series.Series, error) {
	switch {
	case req.Series != nil && req.SeriesPath != "":
		return nil, core.NewConfigError("series", "set either an in-memory series or a path, not both")
	case req.Series != nil:
		return req.Series, nil
	case req.SeriesPath != "":
		if s.loader == nil {
			return nil, core.NewConfigError("series_path", "no series loader configured")
		}
		return s.loader.Load(ctx, req.SeriesPath)
	default:
		return nil, core.NewConfigError("series", "an observed series is required")
	}
}

// GetRun retrieves a persisted run record
func (s *EstimationService) GetRun(ctx context.Context, id core.RunID) (*run.Record, error) {
	if s.store == nil {
		return nil, core.NewConfigError("store", "no run store configured")
	}
	return s.store.Get(ctx, id)
}

// ListRuns returns the most recent persisted runs
func (s *EstimationService) ListRuns(ctx context.Context, limit int) ([]*run.Record, error) {
	if s.store == nil {
		return nil, core.NewConfigError("store", "no run store configured")
	}
	return s.store.List(ctx, limit)
}
