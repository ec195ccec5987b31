// Package sqlite persists the finding history in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/ochairo/trustscan/internal/domain/entities"
)

// HistoryStore wraps the SQLite connection and implements repositories.HistoryRepository
type HistoryStore struct {
	conn *sql.DB
	now  func() time.Time
}

// NewHistoryStore opens (creating if needed) the database at dbPath and ensures the schema exists
func NewHistoryStore(ctx context.Context, dbPath string) (*HistoryStore, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		// Pragmas are optimizations, not critical
		_, _ = conn.ExecContext(ctx, pragma)
	}

	store := &HistoryStore{conn: conn, now: time.Now}
	if err := store.migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection
func (s *HistoryStore) Close() error {
	return s.conn.Close()
}

func (s *HistoryStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS findings (
		id TEXT PRIMARY KEY,
		category TEXT NOT NULL,
		severity TEXT NOT NULL,
		title TEXT NOT NULL,
		path TEXT,
		state TEXT NOT NULL DEFAULT 'OPEN',
		first_seen TEXT NOT NULL,
		last_seen TEXT NOT NULL,
		resolved_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_findings_state ON findings(state);
	CREATE INDEX IF NOT EXISTS idx_findings_severity ON findings(severity);
	`
	_, err := s.conn.ExecContext(ctx, schema)
	return err
}

// Record upserts every finding and resolves open ids missing from a non-empty scan.
// An empty scan resolves nothing.
func (s *HistoryStore) Record(ctx context.Context, findings []entities.Finding) (*entities.HistorySummary, error) {
	now := s.now().UTC().Format(time.RFC3339)
	summary := &entities.HistorySummary{}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current := make(map[string]bool, len(findings))
	for _, f := range findings {
		current[f.ID] = true

		var state string
		err := tx.QueryRowContext(ctx, "SELECT state FROM findings WHERE id = ?", f.ID).Scan(&state)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx, `
				INSERT INTO findings (id, category, severity, title, path, state, first_seen, last_seen)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, f.ID, string(f.Category), f.Severity.String(), f.Title, f.Path, entities.StateOpen, now, now)
			if err != nil {
				return nil, fmt.Errorf("failed to insert %s: %w", f.ID, err)
			}
			summary.New++
		case err != nil:
			return nil, fmt.Errorf("failed to look up %s: %w", f.ID, err)
		case state == string(entities.StateResolved):
			_, err = tx.ExecContext(ctx, `
				UPDATE findings
				SET state = ?, last_seen = ?, resolved_at = NULL, severity = ?, title = ?, path = ?
				WHERE id = ?
			`, entities.StateOpen, now, f.Severity.String(), f.Title, f.Path, f.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to reopen %s: %w", f.ID, err)
			}
			summary.Reopened++
		default:
			_, err = tx.ExecContext(ctx, `
				UPDATE findings
				SET last_seen = ?, severity = ?, title = ?, path = ?
				WHERE id = ?
			`, now, f.Severity.String(), f.Title, f.Path, f.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to update %s: %w", f.ID, err)
			}
		}
	}

	if len(findings) > 0 {
		resolved, err := s.resolveMissing(ctx, tx, current, now)
		if err != nil {
			return nil, err
		}
		summary.Resolved = resolved
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit history: %w", err)
	}
	return summary, nil
}

func (s *HistoryStore) resolveMissing(ctx context.Context, tx *sql.Tx, current map[string]bool, now string) (int, error) {
	rows, err := tx.QueryContext(ctx, "SELECT id FROM findings WHERE state = ?", entities.StateOpen)
	if err != nil {
		return 0, fmt.Errorf("failed to list open findings: %w", err)
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return 0, err
		}
		if !current[id] {
			stale = append(stale, id)
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return 0, err
	}
	_ = rows.Close()

	for _, id := range stale {
		_, err := tx.ExecContext(ctx, "UPDATE findings SET state = ?, resolved_at = ? WHERE id = ?",
			entities.StateResolved, now, id)
		if err != nil {
			return 0, fmt.Errorf("failed to resolve %s: %w", id, err)
		}
	}
	return len(stale), nil
}

// List returns records ordered by severity then first_seen, optionally filtered by state
func (s *HistoryStore) List(ctx context.Context, state entities.FindingState) ([]entities.HistoryRecord, error) {
	query := `
		SELECT id, category, severity, title, COALESCE(path, ''), state, first_seen, last_seen, resolved_at
		FROM findings
		WHERE (? = '' OR state = ?)
		ORDER BY
			CASE severity
				WHEN 'HIGH' THEN 1
				WHEN 'MED' THEN 2
				WHEN 'LOW' THEN 3
				ELSE 4
			END,
			first_seen ASC,
			id ASC
	`
	rows, err := s.conn.QueryContext(ctx, query, string(state), string(state))
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []entities.HistoryRecord
	for rows.Next() {
		var r entities.HistoryRecord
		var category, severity, recordState, firstSeen, lastSeen string
		var resolvedAt sql.NullString

		if err := rows.Scan(&r.ID, &category, &severity, &r.Title, &r.Path, &recordState,
			&firstSeen, &lastSeen, &resolvedAt); err != nil {
			return nil, err
		}

		r.Category = entities.Category(category)
		r.State = entities.FindingState(recordState)
		r.Severity, _ = entities.ParseSeverity(severity)
		r.FirstSeen, _ = time.Parse(time.RFC3339, firstSeen)
		r.LastSeen, _ = time.Parse(time.RFC3339, lastSeen)
		if resolvedAt.Valid {
			t, _ := time.Parse(time.RFC3339, resolvedAt.String)
			r.ResolvedAt = &t
		}

		records = append(records, r)
	}
	return records, rows.Err()
}
