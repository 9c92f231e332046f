// Package export writes completed run records to shareable artifacts: an
// Excel workbook with the posterior tables and a markdown report with an
// HTML rendering.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"gokinet/domain/run"
	"gokinet/ports"
)

const (
	sheetRun        = "Run"
	sheetParameters = "Parameters"
	sheetPredictive = "Predictive"
)

// ExcelExporter writes one workbook per run record
type ExcelExporter struct{}

// NewExcelExporter creates a workbook exporter
func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{}
}

var _ ports.Exporter = (*ExcelExporter)(nil)

// Export writes run-<id>.xlsx into dir
func (e *ExcelExporter) Export(ctx context.Context, rec *run.Record, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := writeRunSheet(f, rec); err != nil {
		return err
	}
	if err := writeParameterSheet(f, rec); err != nil {
		return err
	}
	if err := writePredictiveSheet(f, rec); err != nil {
		return err
	}

	// the default sheet is replaced by the run overview
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("dropping default sheet: %w", err)
	}
	idx, err := f.GetSheetIndex(sheetRun)
	if err != nil {
		return fmt.Errorf("locating %s sheet: %w", sheetRun, err)
	}
	f.SetActiveSheet(idx)

	path := filepath.Join(dir, WorkbookName(rec))
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", path, err)
	}
	return nil
}

// WorkbookName returns the workbook file name for a record
func WorkbookName(rec *run.Record) string {
	return fmt.Sprintf("run-%s.xlsx", rec.ID)
}

func writeRunSheet(f *excelize.File, rec *run.Record) error {
	if _, err := f.NewSheet(sheetRun); err != nil {
		return fmt.Errorf("creating %s sheet: %w", sheetRun, err)
	}
	rows := [][]interface{}{
		{"run_id", rec.ID.String()},
		{"label", rec.Label},
		{"created_at", rec.CreatedAt.Format("2006-01-02 15:04:05 MST")},
		{"timesteps", rec.Timesteps},
		{"chains", rec.Chains},
		{"seed", rec.Seed},
		{"fingerprint", rec.Fingerprint.Digest},
		{"converged", rec.Converged},
		{"diverged", rec.Diverged},
		{"divergences", rec.Divergences},
		{"elapsed_ms", rec.ElapsedMs},
	}
	for _, w := range rec.Warnings {
		rows = append(rows, []interface{}{"warning", w})
	}
	return writeRows(f, sheetRun, rows)
}

func writeParameterSheet(f *excelize.File, rec *run.Record) error {
	if _, err := f.NewSheet(sheetParameters); err != nil {
		return fmt.Errorf("creating %s sheet: %w", sheetParameters, err)
	}
	rows := [][]interface{}{
		{"parameter", "mean", "sd", "hdi_low", "hdi_high", "hdi_mass", "rhat"},
	}
	for _, p := range rec.Params {
		row := []interface{}{p.Name, p.Mean, p.StdDev, p.HDILow, p.HDIHigh, p.HDIMass}
		if rh, ok := rec.RHat[p.Name]; ok {
			row = append(row, rh)
		} else {
			row = append(row, "")
		}
		rows = append(rows, row)
	}
	return writeRows(f, sheetParameters, rows)
}

func writePredictiveSheet(f *excelize.File, rec *run.Record) error {
	if _, err := f.NewSheet(sheetPredictive); err != nil {
		return fmt.Errorf("creating %s sheet: %w", sheetPredictive, err)
	}
	rows := [][]interface{}{
		{"t", "predicted_mean", "ci_low", "ci_high", "observed"},
	}
	for _, p := range rec.Predictive {
		rows = append(rows, []interface{}{p.T, p.PredictedMean, p.CILow, p.CIHigh, p.Observed})
	}
	return writeRows(f, sheetPredictive, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("addressing row %d of %s: %w", i+1, sheet, err)
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("writing row %d of %s: %w", i+1, sheet, err)
		}
	}
	return nil
}
