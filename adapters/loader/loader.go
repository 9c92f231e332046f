// Package loader reads observed rate time series from CSV and Excel files
// into the validated domain representation.
package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"gokinet/domain/core"
	"gokinet/domain/series"
	"gokinet/ports"
)

// DefaultSheet is the worksheet read from Excel workbooks
const DefaultSheet = "Sheet1"

// canonical column per accepted header alias
var columnAliases = map[string]string{
	"t":             "t",
	"time":          "t",
	"timestep":      "t",
	"o2":            "o2",
	"oxygen":        "o2",
	"n2o":           "n2o",
	"nitrous_oxide": "n2o",
	"ch2o":          "ch2o",
	"formaldehyde":  "ch2o",
	"r3":            "rate",
	"rate":          "rate",
	"observed_rate": "rate",
}

var requiredColumns = []string{"t", "o2", "n2o", "ch2o", "rate"}

// FileLoader reads CSV and xlsx files, dispatching on the file extension
type FileLoader struct {
	sheet string
}

// NewFileLoader creates a loader reading Excel data from the default sheet
func NewFileLoader() *FileLoader {
	return &FileLoader{sheet: DefaultSheet}
}

var _ ports.SeriesLoader = (*FileLoader)(nil)

// Load reads and validates the observed series at path
func (l *FileLoader) Load(ctx context.Context, path string) (*series.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, path)
	}

	var rows [][]string
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		rows, err = readCSV(path)
	case ".xlsx":
		rows, err = l.readWorkbook(path)
	default:
		return nil, core.NewSeriesError(fmt.Sprintf("unsupported file extension %q", ext))
	}
	if err != nil {
		return nil, err
	}
	return parseRows(rows)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, core.NewSeriesError(fmt.Sprintf("parsing %s: %v", path, err))
	}
	return rows, nil
}

func (l *FileLoader) readWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(l.sheet)
	if err != nil {
		return nil, core.NewSeriesError(fmt.Sprintf("reading sheet %s of %s: %v", l.sheet, path, err))
	}
	return rows, nil
}

// parseRows maps the header row onto canonical columns and parses the body
func parseRows(rows [][]string) (*series.Series, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: need a header row and at least one data row", core.ErrInsufficientData)
	}

	index := map[string]int{}
	for i, h := range rows[0] {
		name := strings.ToLower(strings.TrimSpace(h))
		if canonical, ok := columnAliases[name]; ok {
			index[canonical] = i
		}
	}
	for _, c := range requiredColumns {
		if _, ok := index[c]; !ok {
			return nil, core.NewSeriesError(fmt.Sprintf("missing column %q in header", c))
		}
	}

	n := len(rows) - 1
	cols := map[string][]float64{}
	for _, c := range requiredColumns {
		cols[c] = make([]float64, 0, n)
	}
	for rowNum, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		for _, c := range requiredColumns {
			j := index[c]
			if j >= len(row) {
				return nil, core.NewSeriesError(fmt.Sprintf("row %d: missing value for column %q", rowNum+2, c))
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row[j]), 64)
			if err != nil {
				return nil, core.NewSeriesError(fmt.Sprintf("row %d: column %q: %v", rowNum+2, c, err))
			}
			cols[c] = append(cols[c], v)
		}
	}

	return series.New(cols["t"], cols["o2"], cols["n2o"], cols["ch2o"], cols["rate"])
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
