package main

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/cultivate-research/fsi-screener/internal/ingestion"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert JSON batch files to spreadsheet workbooks",
	Long: `Converts every JSON and NDJSON file in the input directory into an
<name>_results.xlsx workbook ready for scraping. The detected URL column is
renamed to the canonical "URL" header.`,
	RunE: runConvert,
}

var convertInput string

func init() {
	convertCmd.Flags().StringVarP(&convertInput, "input", "i", "", "Directory containing JSON batch files (required)")

	if err := convertCmd.MarkFlagRequired("input"); err != nil {
		panic(fmt.Sprintf("failed to mark input flag as required: %v", err))
	}

	rootCmd.AddCommand(convertCmd)
}

// convertFile turns one JSON/NDJSON batch into a workbook next to the
// source file and returns the workbook path.
func convertFile(path string) (string, error) {
	batch, err := ingestion.Load(path)
	if err != nil {
		return "", err
	}

	// Promote the detected URL column to the canonical header so later
	// stages and readers agree on its name.
	columns := make([]string, len(batch.Columns))
	copy(columns, batch.Columns)
	if batch.URLColumn != "" && batch.URLColumn != "URL" {
		for i, col := range columns {
			if col == batch.URLColumn {
				columns[i] = "URL"
			}
		}
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)

	header := make([]interface{}, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}
	for r, row := range batch.Rows {
		cells := make([]interface{}, len(batch.Columns))
		for i, col := range batch.Columns {
			cells[i] = row.Values[col]
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return "", err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return "", fmt.Errorf("failed to write row %d: %w", r, err)
		}
	}

	out := filepath.Join(filepath.Dir(path), batch.Name+"_results.xlsx")
	if err := f.SaveAs(out); err != nil {
		return "", fmt.Errorf("failed to save workbook %s: %w", out, err)
	}
	return out, nil
}

func runConvert(_ *cobra.Command, _ []string) error {
	inputs, err := ingestion.DiscoverInputs(convertInput)
	if err != nil {
		return err
	}

	converted := 0
	for _, path := range inputs {
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".json" && ext != ".ndjson" && ext != ".jsonl" {
			continue
		}
		out, err := convertFile(path)
		if err != nil {
			log.Printf("Warning: failed to convert %s: %v", path, err)
			continue
		}
		fmt.Printf("Converted %s -> %s\n", filepath.Base(path), filepath.Base(out))
		converted++
	}
	fmt.Printf("Converted %d files\n", converted)
	return nil
}
