package results

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver

	"github.com/hupe1980/answermesh/core"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS result_sets (
	identity TEXT PRIMARY KEY,
	saved_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS task_results (
	identity TEXT NOT NULL,
	position INTEGER NOT NULL,
	task_id TEXT NOT NULL,
	question TEXT NOT NULL,
	answer TEXT NOT NULL,
	PRIMARY KEY (identity, position)
);`

// SQLiteStore persists result sets in SQLite. Save replaces the rows of an
// identity inside one transaction.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) a SQLite database. Use ":memory:" for an
// ephemeral database.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	store := NewSQLiteStore(db)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// NewSQLiteStore wraps an open database. Call Migrate before first use
// unless the schema already exists.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Migrate creates the tables if they do not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("migrate sqlite: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Save replaces the set stored for identity.
func (s *SQLiteStore) Save(ctx context.Context, identity string, set core.ResultSet) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM task_results WHERE identity = ?`, identity); err != nil {
		return fmt.Errorf("delete previous results: %w", err)
	}

	for i, r := range set.Results {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO task_results (identity, position, task_id, question, answer) VALUES (?, ?, ?, ?, ?)`,
			identity, i, r.TaskID, r.Question, r.Answer,
		); err != nil {
			return fmt.Errorf("insert result %s: %w", r.TaskID, err)
		}
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO result_sets (identity, saved_at) VALUES (?, ?)
		 ON CONFLICT(identity) DO UPDATE SET saved_at = excluded.saved_at`,
		identity, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("record result set: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load returns the set stored for identity.
func (s *SQLiteStore) Load(ctx context.Context, identity string) (core.ResultSet, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM result_sets WHERE identity = ?`, identity,
	).Scan(&exists); err != nil {
		return core.ResultSet{}, fmt.Errorf("lookup result set: %w", err)
	}
	if exists == 0 {
		return core.ResultSet{}, core.ErrResultSetNotFound
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id, question, answer FROM task_results WHERE identity = ? ORDER BY position`, identity)
	if err != nil {
		return core.ResultSet{}, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	set := core.ResultSet{Identity: identity, Results: []core.TaskResult{}}
	for rows.Next() {
		var r core.TaskResult
		if err := rows.Scan(&r.TaskID, &r.Question, &r.Answer); err != nil {
			return core.ResultSet{}, fmt.Errorf("scan result: %w", err)
		}
		set.Results = append(set.Results, r)
	}
	if err := rows.Err(); err != nil {
		return core.ResultSet{}, fmt.Errorf("iterate results: %w", err)
	}

	return set, nil
}
