package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"gokinet/domain/core"
	"gokinet/domain/posterior"
	"gokinet/domain/run"
)

func sampleRecord() *run.Record {
	return &run.Record{
		ID:          core.RunID("0190b7f0-0000-7000-8000-000000000001"),
		Label:       "benchtop",
		CreatedAt:   time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC),
		Timesteps:   2,
		Chains:      2,
		Seed:        42,
		Fingerprint: run.Fingerprint{Digest: "abc123"},
		Converged:   true,
		RHat:        map[string]float64{"n2o_affinity": 1.004},
		Divergences: 0,
		ElapsedMs:   850,
		Params: []posterior.ParamSummary{
			{Name: "n2o_affinity", Mean: 0.41, StdDev: 0.03, HDILow: 0.35, HDIHigh: 0.46, HDIMass: 0.94},
			{Name: "rate_noise", Mean: 0.0021, StdDev: 0.0003, HDILow: 0.0016, HDIHigh: 0.0027, HDIMass: 0.94},
		},
		Predictive: []posterior.PredictiveRecord{
			{T: 0, PredictedMean: 0.004, CILow: 0.003, CIHigh: 0.005, Observed: 0.0041},
			{T: 1, PredictedMean: 0.008, CILow: 0.007, CIHigh: 0.009, Observed: 0.0079},
		},
	}
}

func TestExcelExporterWritesWorkbook(t *testing.T) {
	dir := t.TempDir()
	rec := sampleRecord()

	require.NoError(t, NewExcelExporter().Export(context.Background(), rec, dir))

	f, err := excelize.OpenFile(filepath.Join(dir, WorkbookName(rec)))
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{sheetRun, sheetParameters, sheetPredictive}, f.GetSheetList())

	rows, err := f.GetRows(sheetParameters)
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus one row per parameter")
	assert.Equal(t, "n2o_affinity", rows[1][0])

	rows, err = f.GetRows(sheetPredictive)
	require.NoError(t, err)
	require.Len(t, rows, 3)
}

func TestReportExporterWritesMarkdownAndHTML(t *testing.T) {
	dir := t.TempDir()
	rec := sampleRecord()

	require.NoError(t, NewReportExporter().Export(context.Background(), rec, dir))

	md, err := os.ReadFile(filepath.Join(dir, "run-"+rec.ID.String()+".md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Inference run benchtop")
	assert.Contains(t, string(md), "n2o_affinity")
	assert.Contains(t, string(md), "1.004")
	assert.NotContains(t, string(md), "Caution", "trustworthy runs carry no caution banner")

	html, err := os.ReadFile(filepath.Join(dir, "run-"+rec.ID.String()+".html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "<table>")
	assert.Contains(t, string(html), "n2o_affinity")
}

func TestReportFlagsUntrustworthyRun(t *testing.T) {
	rec := sampleRecord()
	rec.Converged = false
	rec.Warnings = []string{"split R-hat 1.210 exceeds threshold 1.050"}

	md := RenderMarkdown(rec)
	assert.Contains(t, md, "Caution")
	assert.Contains(t, md, "split R-hat 1.210")
}

func TestExportersHonorCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, NewExcelExporter().Export(ctx, sampleRecord(), t.TempDir()), context.Canceled)
	assert.ErrorIs(t, NewReportExporter().Export(ctx, sampleRecord(), t.TempDir()), context.Canceled)
}
