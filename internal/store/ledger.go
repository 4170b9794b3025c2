package store

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Haunes/ComparendosTransito/internal/citation"
	"github.com/Haunes/ComparendosTransito/internal/memory"
	"github.com/Haunes/ComparendosTransito/internal/source"
)

const dateLayout = citation.ISODate

// SaveLedger upserts every entry of l and records its version. Entries
// are never deleted.
func (s *Store) SaveLedger(l memory.Ledger) error {
	tx, err := s.writeDB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO memory (canonical_key, display, sources, last_seen)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(canonical_key) DO UPDATE SET
			display = excluded.display,
			sources = excluded.sources,
			last_seen = excluded.last_seen
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range l.Entries() {
		if _, err := stmt.Exec(e.Key, e.Display, source.Codes(e.Sources), formatDay(e.LastSeen)); err != nil {
			return fmt.Errorf("saving memory entry %s: %w", e.Key, err)
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO meta (key, value) VALUES ('memory_version', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, strconv.Itoa(l.Version())); err != nil {
		return fmt.Errorf("saving memory version: %w", err)
	}
	return tx.Commit()
}

// LoadLedger reads the stored ledger. An empty store yields an empty
// ledger at version 0.
func (s *Store) LoadLedger() (memory.Ledger, error) {
	rows, err := s.readDB.Query("SELECT canonical_key, display, sources, last_seen FROM memory ORDER BY canonical_key")
	if err != nil {
		return memory.Ledger{}, fmt.Errorf("querying memory: %w", err)
	}
	defer rows.Close()

	var entries []memory.Entry
	for rows.Next() {
		var (
			e              memory.Entry
			codes, lastSeen string
		)
		if err := rows.Scan(&e.Key, &e.Display, &codes, &lastSeen); err != nil {
			return memory.Ledger{}, fmt.Errorf("scanning memory entry: %w", err)
		}
		e.Sources = source.Split(codes)
		e.LastSeen = parseDay(lastSeen)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return memory.Ledger{}, err
	}

	version := 0
	if v, err := s.getMeta("memory_version"); err == nil {
		version, _ = strconv.Atoi(v)
	}
	return memory.Restore(version, entries), nil
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func parseDay(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
