package index

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) a SQLite index at path.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One writer at a time; SQLite serialises writes anyway.
	db.SetMaxOpenConns(1)

	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// CreateSchema creates the index tables if they do not exist.
func CreateSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS laws (
			law_id TEXT PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS provisions (
			law_id TEXT NOT NULL,
			key    TEXT NOT NULL,
			PRIMARY KEY (law_id, key)
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", SchemaVersion); err != nil {
			return err
		}
	}
	return nil
}

// AddLaw registers a statute.
func (s *SQLiteStore) AddLaw(ctx context.Context, lawID string) error {
	_, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO laws (law_id) VALUES (?)", lawID)
	if err != nil {
		return fmt.Errorf("inserting law: %w", err)
	}
	return nil
}

// AddProvision stores one key.
func (s *SQLiteStore) AddProvision(ctx context.Context, lawID, key string) error {
	return s.AddProvisions(ctx, lawID, []string{key})
}

// AddProvisions stores a batch of keys in one transaction.
func (s *SQLiteStore) AddProvisions(ctx context.Context, lawID string, keys []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO laws (law_id) VALUES (?)", lawID); err != nil {
		return fmt.Errorf("inserting law: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO provisions (law_id, key) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, key := range keys {
		if _, err := stmt.ExecContext(ctx, lawID, key); err != nil {
			return fmt.Errorf("inserting provision %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing provisions: %w", err)
	}
	return nil
}

// HasProvision reports whether key exists in lawID.
func (s *SQLiteStore) HasProvision(ctx context.Context, lawID, key string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM provisions WHERE law_id = ? AND key = ?)",
		lawID, key,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking provision: %w", err)
	}
	return exists, nil
}

// HasLaw reports whether lawID has been indexed.
func (s *SQLiteStore) HasLaw(ctx context.Context, lawID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM laws WHERE law_id = ?)", lawID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking law: %w", err)
	}
	return exists, nil
}

// Count returns the number of keys stored for lawID.
func (s *SQLiteStore) Count(ctx context.Context, lawID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM provisions WHERE law_id = ?", lawID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting provisions: %w", err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
