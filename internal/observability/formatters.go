// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/cultivate-research/fsi-screener/internal/aggregate"
	"github.com/cultivate-research/fsi-screener/internal/decisions"
	"github.com/cultivate-research/fsi-screener/internal/ingestion"
	"github.com/cultivate-research/fsi-screener/internal/manifest"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintBatch outputs a human-readable summary of a loaded source batch.
func (p *Printer) PrintBatch(batch *ingestion.SourceBatch) {
	if batch == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:     %s\n", batch.Name))
	sb.WriteString(fmt.Sprintf("Rows:     %d\n", len(batch.Rows)))
	if batch.HasURLColumn() {
		sb.WriteString(fmt.Sprintf("URL col:  %s (%d usable URLs)\n", batch.URLColumn, len(batch.URLRows())))
	} else {
		sb.WriteString("URL col:  none detected\n")
	}
	sb.WriteString("\n")

	sb.WriteString("Columns:\n")
	count := min(len(batch.Columns), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", batch.Columns[i]))
	}
	if len(batch.Columns) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(batch.Columns)-maxItemsToShow))
	}

	p.printBox("SOURCE BATCH", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintFetchSummary outputs the outcome counts of one scraped batch plus a
// sample of the failures.
func (p *Printer) PrintFetchSummary(batch string, entries []manifest.Entry) {
	if len(entries) == 0 {
		return
	}

	var failures []manifest.Entry
	ok := 0
	for _, e := range entries {
		if e.Error == "" && e.Status != 0 {
			ok++
		} else {
			failures = append(failures, e)
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Attempted: %d\n", len(entries)))
	sb.WriteString(fmt.Sprintf("Fetched:   %d\n", ok))
	sb.WriteString(fmt.Sprintf("Failed:    %d\n", len(failures)))

	if len(failures) > 0 {
		sb.WriteString("\nFailures:\n")
		count := min(len(failures), 3)
		for i := 0; i < count; i++ {
			f := failures[i]
			detail := f.Error
			if detail == "" {
				detail = fmt.Sprintf("HTTP %d", f.Status)
			}
			if len(detail) > 40 {
				detail = detail[:37] + "..."
			}
			sb.WriteString(fmt.Sprintf("  • row %d: %s\n", f.Row, detail))
		}
		if len(failures) > 3 {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(failures)-3))
		}
	}

	p.printBox(fmt.Sprintf("SCRAPE SUMMARY: %s", batch), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintDecision outputs one screening decision with its leading reasons.
func (p *Printer) PrintDecision(d *decisions.Decision) {
	if d == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Content:    %s\n", d.ContentID))
	sb.WriteString(fmt.Sprintf("Decision:   %s (confidence %d/5)\n", d.Decision, d.Confidence))
	if d.OrganisationName != "" {
		sb.WriteString(fmt.Sprintf("Org:        %s", d.OrganisationName))
		if d.OrganisationType != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", d.OrganisationType))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if len(d.Reasons) > 0 {
		sb.WriteString("Reasons:\n")
		count := min(len(d.Reasons), 3)
		for i := 0; i < count; i++ {
			reason := d.Reasons[i]
			if len(reason) > 50 {
				reason = reason[:47] + "..."
			}
			sb.WriteString(fmt.Sprintf("  • %s\n", reason))
		}
		if len(d.Reasons) > 3 {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(d.Reasons)-3))
		}
	}

	p.printBox("SCREENING DECISION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintAggregate outputs the shape of the combined dataset and any join
// problems collected along the way.
func (p *Printer) PrintAggregate(result *aggregate.Result) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Included rows:  %d\n", result.Included))
	sb.WriteString(fmt.Sprintf("Source batches: %d\n", result.Batches))
	sb.WriteString(fmt.Sprintf("Columns:        %d\n", len(result.Columns)))

	if len(result.Problems) > 0 {
		sb.WriteString(fmt.Sprintf("\nProblems (%d):\n", len(result.Problems)))
		count := min(len(result.Problems), maxItemsToShow)
		for i := 0; i < count; i++ {
			msg := result.Problems[i].Error()
			if len(msg) > 50 {
				msg = msg[:47] + "..."
			}
			sb.WriteString(fmt.Sprintf("  ⚠ %s\n", msg))
		}
		if len(result.Problems) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(result.Problems)-maxItemsToShow))
		}
	}

	p.printBox("COMBINED DATASET", strings.TrimSuffix(sb.String(), "\n"))
}
