package aggregate

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// WriteCSV writes the combined dataset as CSV, creating parent directories
// as needed.
func WriteCSV(path string, result *Result) error {
	if err := ensureParent(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create combined output %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(result.Columns); err != nil {
		return fmt.Errorf("failed to write combined header: %w", err)
	}
	for i, row := range result.Rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write combined row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush combined output: %w", err)
	}
	return nil
}

// WriteXLSX writes the combined dataset as a spreadsheet workbook.
func WriteXLSX(path string, result *Result) error {
	if err := ensureParent(path); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", cellRow(result.Columns)); err != nil {
		return fmt.Errorf("failed to write workbook header: %w", err)
	}
	for i, row := range result.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address workbook row %d: %w", i, err)
		}
		if err := f.SetSheetRow(sheet, cell, cellRow(row)); err != nil {
			return fmt.Errorf("failed to write workbook row %d: %w", i, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func ensureParent(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return nil
}

func cellRow(values []string) *[]interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return &cells
}
