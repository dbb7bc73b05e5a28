package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration
)

const (
	schemaVersion      = 1
	defaultBusyTimeout = 5000 // milliseconds

	// dedupeWindow is how many of the most recent facts a new fact is
	// compared against before insertion.
	dedupeWindow = 50
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS facts (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		text       TEXT NOT NULL,
		source     TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`,

	`CREATE INDEX IF NOT EXISTS idx_facts_created ON facts(created_at)`,
}

// Store persists shared facts in a SQLite database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open opens (creating if needed) the knowledge database at path and
// migrates its schema. The caller owns closing the store.
//
// The database uses WAL mode, a 5 s busy timeout, and a single
// connection (SQLite serialises writes).
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("knowledge: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("knowledge: open %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	ctx := context.TODO()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("knowledge: enable WAL: %w", err)
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("knowledge: set busy_timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:     db,
		logger: logger.With("component", "knowledge"),
		now:    time.Now,
	}, nil
}

// migrate creates or updates the database schema to the latest version.
// All DDL uses IF NOT EXISTS, making migration idempotent.
func migrate(db *sql.DB) error {
	ctx := context.TODO()

	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("knowledge: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("knowledge: read schema version: %w", err)
	}

	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("knowledge: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("knowledge: record schema version: %w", err)
	}

	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add inserts a fact unless the same text (case-insensitive) already
// appears in the most recent dedupeWindow facts. Returns true when the
// fact was stored.
func (s *Store) Add(ctx context.Context, text, source string) (bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return false, nil
	}

	recent, err := s.Recent(ctx, dedupeWindow)
	if err != nil {
		return false, err
	}
	lowered := strings.ToLower(text)
	for _, f := range recent {
		if strings.ToLower(f.Text) == lowered {
			return false, nil
		}
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO facts (text, source, created_at) VALUES (?, ?, ?)",
		text, source, s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, fmt.Errorf("knowledge: insert fact: %w", err)
	}
	return true, nil
}

// Recent returns the most recent limit facts, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Fact, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, source, created_at
		FROM facts
		ORDER BY id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("knowledge: list recent facts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var facts []Fact
	for rows.Next() {
		var (
			f         Fact
			createdAt string
		)
		if err := rows.Scan(&f.ID, &f.Text, &f.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("knowledge: scan fact: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			f.CreatedAt = t
		}
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("knowledge: iterate facts: %w", err)
	}
	return facts, nil
}

// PromptBlock renders the most recent limit facts for prompt injection,
// oldest first so newer facts read last. Returns "" when the store is
// empty.
func (s *Store) PromptBlock(ctx context.Context, limit int) (string, error) {
	facts, err := s.Recent(ctx, limit)
	if err != nil {
		return "", err
	}
	for i, j := 0, len(facts)-1; i < j; i, j = i+1, j-1 {
		facts[i], facts[j] = facts[j], facts[i]
	}
	return Block(facts), nil
}

// Len returns the total number of stored facts.
func (s *Store) Len() int {
	var count int
	if err := s.db.QueryRowContext(context.TODO(), "SELECT COUNT(*) FROM facts").Scan(&count); err != nil {
		s.logger.Error("count facts failed", "error", err)
		return 0
	}
	return count
}

// Compact trims the table down to keep facts and reclaims file space.
// Used by the maintenance scheduler. Returns the number of rows removed.
func (s *Store) Compact(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		keep = dedupeWindow
	}

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM facts
		WHERE id NOT IN (SELECT id FROM facts ORDER BY id DESC LIMIT ?)`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("knowledge: compact: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("knowledge: rows affected: %w", err)
	}

	if removed > 0 {
		if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
			s.logger.Warn("vacuum after compact failed", "error", err)
		}
	}
	return int(removed), nil
}
