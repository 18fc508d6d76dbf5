// Package export writes the batch summary workbook.
package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

const (
	SheetDocuments = "Documents"
	SheetMissing   = "Missing"
)

// DocumentRow is one processed document as it appears in the summary.
type DocumentRow struct {
	File       string
	Vendor     string
	Status     string
	Pages      int
	Fields     int
	Missing    int
	Confidence float32
	Error      string
	// NotFound lists the values the validator could not locate in the text.
	NotFound []MissingValue
}

type MissingValue struct {
	Path  string
	Value string
}

var documentHeaders = []string{"File", "Vendor", "Status", "Pages", "Fields", "Missing", "Confidence", "Error"}

var missingHeaders = []string{"File", "Path", "Value"}

// SummaryXLSX builds the workbook: one row per document, then one row per value not found.
func SummaryXLSX(rows []DocumentRow) (*excelize.File, error) {
	f := excelize.NewFile()
	// NewFile starts with one sheet named Sheet1.
	if err := f.SetSheetName(f.GetSheetName(0), SheetDocuments); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(SheetMissing); err != nil {
		return nil, err
	}
	f.SetActiveSheet(0)

	if err := writeRow(f, SheetDocuments, 1, toAny(documentHeaders)); err != nil {
		return nil, err
	}
	if err := writeRow(f, SheetMissing, 1, toAny(missingHeaders)); err != nil {
		return nil, err
	}

	missingRow := 2
	for i, r := range rows {
		values := []any{r.File, r.Vendor, r.Status, r.Pages, r.Fields, r.Missing, fmt.Sprintf("%.2f", r.Confidence), r.Error}
		if err := writeRow(f, SheetDocuments, i+2, values); err != nil {
			return nil, err
		}
		for _, m := range r.NotFound {
			if err := writeRow(f, SheetMissing, missingRow, []any{r.File, m.Path, m.Value}); err != nil {
				return nil, err
			}
			missingRow++
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(SheetDocuments, "A", "A", 32) // file
	_ = f.SetColWidth(SheetDocuments, "B", "C", 12)
	_ = f.SetColWidth(SheetDocuments, "H", "H", 60) // error
	_ = f.SetColWidth(SheetMissing, "A", "A", 32)
	_ = f.SetColWidth(SheetMissing, "B", "B", 40)
	_ = f.SetColWidth(SheetMissing, "C", "C", 48)
	return f, nil
}

// WriteSummaryXLSX writes the summary workbook to path, creating its directory.
func WriteSummaryXLSX(path string, rows []DocumentRow, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	f, err := SummaryXLSX(rows)
	if err != nil {
		return fmt.Errorf("build summary: %w", err)
	}
	defer f.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create summary dir: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	logger.Info("export.xlsx.ok", "path", path, "documents", len(rows))
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("%s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
