// Package state persists per-package freshness records for one package
// root: when each package's metadata was last refreshed from its source.
// The resolution loop consults it to decide between an already-installed
// copy and a fresh source query; graph logic never touches it.
package state

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store holds the freshness records of one package root. Open at the
// start of a run, Close at the end.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the state database at path and initializes the
// schema.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate state db: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS last_updated (
		name       TEXT PRIMARY KEY,
		updated_at INTEGER NOT NULL
	);`)
	return err
}

// Touch records that name's metadata was refreshed now. Idempotent via
// ON CONFLICT.
func (s *Store) Touch(name string) error {
	_, err := s.db.Exec(
		`INSERT INTO last_updated (name, updated_at) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET updated_at = excluded.updated_at`,
		name, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("touch %s: %w", name, err)
	}
	return nil
}

// Due reports whether name's metadata should be re-checked against the
// source: no record yet, or the record is older than interval.
func (s *Store) Due(name string, interval time.Duration) (bool, error) {
	var updatedAt int64
	err := s.db.QueryRow(
		`SELECT updated_at FROM last_updated WHERE name = ?`, name,
	).Scan(&updatedAt)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup %s: %w", name, err)
	}
	return time.Since(time.Unix(updatedAt, 0)) >= interval, nil
}

// Forget drops the record for name, forcing a re-check on the next run.
func (s *Store) Forget(name string) error {
	_, err := s.db.Exec(`DELETE FROM last_updated WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("forget %s: %w", name, err)
	}
	return nil
}
