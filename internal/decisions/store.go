package decisions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cultivate-research/fsi-screener/internal/contentid"
)

// Store manages decision persistence backed by SQLite. One row per content
// identifier; Put replaces an existing decision wholesale.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the decision database.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("ensure db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS decisions (
        content_id TEXT PRIMARY KEY,
        batch TEXT NOT NULL DEFAULT '',
        file TEXT NOT NULL DEFAULT '',
        decision TEXT NOT NULL,
        confidence INTEGER NOT NULL,
        reasons TEXT NOT NULL,
        evidence_quotes TEXT NOT NULL,
        organisation_name TEXT NOT NULL DEFAULT '',
        organisation_type TEXT NOT NULL DEFAULT '',
        is_ongoing INTEGER,
        site_owner_is_initiative INTEGER,
        notes TEXT NOT NULL DEFAULT '',
        run_id TEXT NOT NULL DEFAULT '',
        decided_at TEXT NOT NULL
    )`)
	if err != nil {
		return fmt.Errorf("ensure decisions table: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Put stores a decision, replacing any prior decision for the same content
// identifier.
func (s *Store) Put(ctx context.Context, d *Decision) error {
	if d == nil {
		return errors.New("decision is nil")
	}
	if d.DecidedAt.IsZero() {
		d.DecidedAt = time.Now().UTC()
	}

	reasonsJSON, err := json.Marshal(d.Reasons)
	if err != nil {
		return fmt.Errorf("marshal reasons: %w", err)
	}
	quotesJSON, err := json.Marshal(d.EvidenceQuotes)
	if err != nil {
		return fmt.Errorf("marshal evidence quotes: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO decisions (
            content_id, batch, file, decision, confidence, reasons,
            evidence_quotes, organisation_name, organisation_type,
            is_ongoing, site_owner_is_initiative, notes, run_id, decided_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(d.ContentID),
		d.Batch,
		d.File,
		d.Decision,
		d.Confidence,
		string(reasonsJSON),
		string(quotesJSON),
		d.OrganisationName,
		d.OrganisationType,
		nullableBool(d.IsOngoing),
		nullableBool(d.SiteOwnerIsInitiative),
		d.Notes,
		d.RunID,
		d.DecidedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("put decision: %w", err)
	}
	return nil
}

// Get fetches the decision for a content identifier, or nil when none is
// stored.
func (s *Store) Get(ctx context.Context, id contentid.ID) (*Decision, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+decisionColumns+` FROM decisions WHERE content_id = ?`,
		string(id),
	)
	d, err := scanDecision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get decision: %w", err)
	}
	return d, nil
}

// All returns every stored decision ordered by batch then file.
func (s *Store) All(ctx context.Context) ([]*Decision, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+decisionColumns+` FROM decisions ORDER BY batch, file, content_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var all []*Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, d)
	}
	return all, rows.Err()
}

// IncludeSet returns the content identifiers of all accepted pages.
func (s *Store) IncludeSet(ctx context.Context) (map[contentid.ID]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT content_id FROM decisions WHERE decision = 'include'`)
	if err != nil {
		return nil, fmt.Errorf("query include set: %w", err)
	}
	defer rows.Close()

	set := make(map[contentid.ID]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		set[contentid.ID(id)] = struct{}{}
	}
	return set, rows.Err()
}

// Stats returns a count of decisions grouped by verdict.
func (s *Store) Stats(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT decision, COUNT(1) FROM decisions GROUP BY decision`)
	if err != nil {
		return nil, fmt.Errorf("decision stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var verdict string
		var count int
		if err := rows.Scan(&verdict, &count); err != nil {
			return nil, err
		}
		stats[verdict] = count
	}
	return stats, rows.Err()
}

const decisionColumns = "content_id, batch, file, decision, confidence, reasons, evidence_quotes, organisation_name, organisation_type, is_ongoing, site_owner_is_initiative, notes, run_id, decided_at"

func scanDecision(scanner interface{ Scan(dest ...any) error }) (*Decision, error) {
	var (
		id         string
		batch      string
		file       string
		verdict    string
		confidence int
		reasonsRaw string
		quotesRaw  string
		orgName    string
		orgType    string
		ongoing    sql.NullInt64
		siteOwner  sql.NullInt64
		notes      string
		runID      string
		decidedRaw string
	)

	if err := scanner.Scan(
		&id,
		&batch,
		&file,
		&verdict,
		&confidence,
		&reasonsRaw,
		&quotesRaw,
		&orgName,
		&orgType,
		&ongoing,
		&siteOwner,
		&notes,
		&runID,
		&decidedRaw,
	); err != nil {
		return nil, err
	}

	d := &Decision{
		ContentID:        contentid.ID(id),
		Batch:            batch,
		File:             file,
		Decision:         verdict,
		Confidence:       confidence,
		OrganisationName: orgName,
		OrganisationType: orgType,
		Notes:            notes,
		RunID:            runID,
	}

	if err := json.Unmarshal([]byte(reasonsRaw), &d.Reasons); err != nil {
		return nil, fmt.Errorf("unmarshal reasons: %w", err)
	}
	if err := json.Unmarshal([]byte(quotesRaw), &d.EvidenceQuotes); err != nil {
		return nil, fmt.Errorf("unmarshal evidence quotes: %w", err)
	}

	if ongoing.Valid {
		v := ongoing.Int64 != 0
		d.IsOngoing = &v
	}
	if siteOwner.Valid {
		v := siteOwner.Int64 != 0
		d.SiteOwnerIsInitiative = &v
	}

	if decided, err := time.Parse(time.RFC3339Nano, decidedRaw); err == nil {
		d.DecidedAt = decided
	}

	return d, nil
}

func nullableBool(value *bool) any {
	if value == nil {
		return nil
	}
	if *value {
		return 1
	}
	return 0
}
