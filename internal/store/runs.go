package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Haunes/ComparendosTransito/internal/source"
)

// Run is one recorded reconciliation.
type Run struct {
	ID         string
	Date       time.Time
	StartedAt  time.Time
	New        int
	Removed    int
	Retained   int
	Modified   int
	Suppressed int
	Dropped    int
	Down       []source.Source
	Backfilled []source.Source
}

// RecordRun stores r under a fresh id and returns it.
func (s *Store) RecordRun(r Run) (string, error) {
	id := uuid.NewString()
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	_, err := s.writeDB.Exec(`
		INSERT INTO runs (id, run_date, started_at, new, removed, retained, modified, suppressed, dropped, down, backfilled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, formatDay(r.Date), r.StartedAt.UTC(), r.New, r.Removed, r.Retained, r.Modified, r.Suppressed, r.Dropped,
		source.Codes(r.Down), source.Codes(r.Backfilled))
	if err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}
	if err := s.setMeta("last_run", r.StartedAt.UTC().Format(time.RFC3339)); err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}
	return id, nil
}

// Runs returns the most recent runs first.
func (s *Store) Runs(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.readDB.Query(`
		SELECT id, run_date, started_at, new, removed, retained, modified, suppressed, dropped, down, backfilled
		FROM runs ORDER BY started_at DESC, run_date DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                  Run
			date, down, filled string
		)
		if err := rows.Scan(&r.ID, &date, &r.StartedAt, &r.New, &r.Removed, &r.Retained, &r.Modified,
			&r.Suppressed, &r.Dropped, &down, &filled); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Date = parseDay(date)
		r.Down = source.Split(down)
		r.Backfilled = source.Split(filled)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
