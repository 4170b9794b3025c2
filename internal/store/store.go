// Package store persists the memory ledger, per-source snapshots and run
// history in a local SQLite file.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	readDB  *sql.DB
	writeDB *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite", dbPath+"?mode=ro")
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}

	s := &Store{readDB: readDB, writeDB: writeDB}
	if err := s.init(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS memory (
			canonical_key TEXT PRIMARY KEY,
			display       TEXT NOT NULL DEFAULT '',
			sources       TEXT NOT NULL DEFAULT '',
			last_seen     TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS records (
			run_date  TEXT NOT NULL,
			source    TEXT NOT NULL,
			seq       INTEGER NOT NULL,
			id        TEXT NOT NULL,
			imposed   TEXT NOT NULL DEFAULT '',
			notified  TEXT NOT NULL DEFAULT '',
			plate     TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (run_date, source, seq)
		);
		CREATE INDEX IF NOT EXISTS idx_records_source ON records(source, run_date DESC);

		CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			run_date    TEXT NOT NULL,
			started_at  DATETIME NOT NULL,
			new         INTEGER NOT NULL DEFAULT 0,
			removed     INTEGER NOT NULL DEFAULT 0,
			retained    INTEGER NOT NULL DEFAULT 0,
			modified    INTEGER NOT NULL DEFAULT 0,
			suppressed  INTEGER NOT NULL DEFAULT 0,
			dropped     INTEGER NOT NULL DEFAULT 0,
			down        TEXT NOT NULL DEFAULT '',
			backfilled  TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);

		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	var errs []error
	if s.readDB != nil {
		errs = append(errs, s.readDB.Close())
	}
	if s.writeDB != nil {
		errs = append(errs, s.writeDB.Close())
	}
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

func (s *Store) getMeta(key string) (string, error) {
	var value string
	err := s.readDB.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	return value, err
}

func (s *Store) setMeta(key, value string) error {
	_, err := s.writeDB.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// LastRun returns when the last run was recorded.
func (s *Store) LastRun() (time.Time, error) {
	value, err := s.getMeta("last_run")
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, value)
}

// Prune deletes per-source snapshots older than olderThan. The memory
// ledger and the run history are never pruned.
func (s *Store) Prune(olderThan time.Duration) (int64, error) {
	return s.PruneBefore(time.Now().Add(-olderThan))
}

// PruneBefore deletes per-source snapshots of run dates before cutoff.
func (s *Store) PruneBefore(cutoff time.Time) (int64, error) {
	res, err := s.writeDB.Exec("DELETE FROM records WHERE run_date < ?", cutoff.Format(dateLayout))
	if err != nil {
		return 0, fmt.Errorf("pruning records: %w", err)
	}
	return res.RowsAffected()
}

// Stats summarizes what the store holds.
type Stats struct {
	MemoryEntries int
	Records       int
	Snapshots     int
	Runs          int
	SizeBytes     int64
}

func (s *Store) Stats(dbPath string) (Stats, error) {
	var st Stats
	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM memory", &st.MemoryEntries},
		{"SELECT COUNT(*) FROM records", &st.Records},
		{"SELECT COUNT(*) FROM (SELECT DISTINCT run_date, source FROM records)", &st.Snapshots},
		{"SELECT COUNT(*) FROM runs", &st.Runs},
	}
	for _, q := range queries {
		if err := s.readDB.QueryRow(q.sql).Scan(q.dest); err != nil {
			return st, fmt.Errorf("counting: %w", err)
		}
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		return st, fmt.Errorf("stat db file: %w", err)
	}
	st.SizeBytes = info.Size()
	return st, nil
}
