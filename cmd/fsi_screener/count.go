package main

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cultivate-research/fsi-screener/internal/ingestion"
)

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Count the rows of every input batch",
	Long:  "Loads every supported file in the input directory, prints a per-file row count table with a TOTAL row, and optionally writes the counts as CSV.",
	RunE:  runCount,
}

var (
	countInput string
	countOut   string
)

func init() {
	countCmd.Flags().StringVarP(&countInput, "input", "i", "", "Directory containing source batch files (required)")
	countCmd.Flags().StringVarP(&countOut, "out", "o", "", "Optional CSV path for the counts")

	if err := countCmd.MarkFlagRequired("input"); err != nil {
		panic(fmt.Sprintf("failed to mark input flag as required: %v", err))
	}

	rootCmd.AddCommand(countCmd)
}

// fileCount is one row of the counts table.
type fileCount struct {
	File string
	Rows int
}

// countRows loads every supported input file and returns its row count.
// Files that fail to load are reported and omitted from the counts.
func countRows(dir string) ([]fileCount, error) {
	inputs, err := ingestion.DiscoverInputs(dir)
	if err != nil {
		return nil, err
	}

	var counts []fileCount
	for _, path := range inputs {
		batch, err := ingestion.Load(path)
		if err != nil {
			log.Printf("Warning: skipping %s: %v", path, err)
			continue
		}
		counts = append(counts, fileCount{File: filepath.Base(path), Rows: len(batch.Rows)})
	}
	return counts, nil
}

// countsTable renders the counts with a trailing TOTAL row.
func countsTable(counts []fileCount) string {
	rows := make([][]string, 0, len(counts)+1)
	total := 0
	for _, c := range counts {
		rows = append(rows, []string{c.File, strconv.Itoa(c.Rows)})
		total += c.Rows
	}
	rows = append(rows, []string{"TOTAL", strconv.Itoa(total)})
	return renderTable([]string{"File", "Rows"}, rows, []columnAlignment{alignLeft, alignRight})
}

// writeCountsCSV writes the counts table, TOTAL row included.
func writeCountsCSV(path string, counts []fileCount) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create counts file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"file", "rows"}); err != nil {
		return fmt.Errorf("failed to write counts header: %w", err)
	}
	total := 0
	for _, c := range counts {
		if err := w.Write([]string{c.File, strconv.Itoa(c.Rows)}); err != nil {
			return fmt.Errorf("failed to write counts row: %w", err)
		}
		total += c.Rows
	}
	if err := w.Write([]string{"TOTAL", strconv.Itoa(total)}); err != nil {
		return fmt.Errorf("failed to write counts total: %w", err)
	}
	w.Flush()
	return w.Error()
}

func runCount(_ *cobra.Command, _ []string) error {
	counts, err := countRows(countInput)
	if err != nil {
		return err
	}
	fmt.Println(countsTable(counts))

	if countOut != "" {
		if err := writeCountsCSV(countOut, counts); err != nil {
			return err
		}
		fmt.Printf("Counts written to %s\n", countOut)
	}
	return nil
}
