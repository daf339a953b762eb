package decisions

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cultivate-research/fsi-screener/internal/contentid"
)

// listSeparator joins multi-valued fields in the results table.
const listSeparator = " | "

// ResultColumns is the header of the exported results table.
var ResultColumns = []string{
	"batch",
	"file",
	"content_identifier",
	"decision",
	"confidence",
	"organisation_name",
	"organisation_type",
	"is_ongoing",
	"site_owner_is_initiative",
	"reasons",
	"evidence_quotes",
	"notes",
}

// WriteCSV exports decisions as the results table, creating parent
// directories as needed.
func WriteCSV(path string, all []*Decision) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create results directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create results file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(ResultColumns); err != nil {
		return fmt.Errorf("failed to write results header: %w", err)
	}
	for _, d := range all {
		record := []string{
			d.Batch,
			d.File,
			string(d.ContentID),
			d.Decision,
			strconv.Itoa(d.Confidence),
			d.OrganisationName,
			d.OrganisationType,
			formatNullableBool(d.IsOngoing),
			formatNullableBool(d.SiteOwnerIsInitiative),
			strings.Join(d.Reasons, listSeparator),
			strings.Join(d.EvidenceQuotes, listSeparator),
			d.Notes,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write results row for %s: %w", d.ContentID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush results file: %w", err)
	}
	return nil
}

// LoadCSV reads a results table written by WriteCSV.
func LoadCSV(path string) ([]*Decision, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read results file %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("results file %s has no header", path)
	}

	col := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		col[name] = i
	}
	for _, required := range ResultColumns {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("results file %s is missing column %q", path, required)
		}
	}

	field := func(record []string, name string) string {
		idx := col[name]
		if idx >= len(record) {
			return ""
		}
		return record[idx]
	}

	all := make([]*Decision, 0, len(records)-1)
	for i, record := range records[1:] {
		confidence, err := strconv.Atoi(field(record, "confidence"))
		if err != nil {
			return nil, fmt.Errorf("results file %s line %d: bad confidence: %w", path, i+2, err)
		}
		ongoing, err := parseNullableBool(field(record, "is_ongoing"))
		if err != nil {
			return nil, fmt.Errorf("results file %s line %d: bad is_ongoing: %w", path, i+2, err)
		}
		siteOwner, err := parseNullableBool(field(record, "site_owner_is_initiative"))
		if err != nil {
			return nil, fmt.Errorf("results file %s line %d: bad site_owner_is_initiative: %w", path, i+2, err)
		}
		all = append(all, &Decision{
			ContentID:             contentid.ID(field(record, "content_identifier")),
			Batch:                 field(record, "batch"),
			File:                  field(record, "file"),
			Decision:              field(record, "decision"),
			Confidence:            confidence,
			Reasons:               splitJoined(field(record, "reasons")),
			EvidenceQuotes:        splitJoined(field(record, "evidence_quotes")),
			OrganisationName:      field(record, "organisation_name"),
			OrganisationType:      field(record, "organisation_type"),
			IsOngoing:             ongoing,
			SiteOwnerIsInitiative: siteOwner,
			Notes:                 field(record, "notes"),
		})
	}
	return all, nil
}

func formatNullableBool(value *bool) string {
	if value == nil {
		return ""
	}
	return strconv.FormatBool(*value)
}

func parseNullableBool(raw string) (*bool, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func splitJoined(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, listSeparator)
}
