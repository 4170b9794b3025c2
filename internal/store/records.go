package store

import (
	"fmt"
	"time"

	"github.com/Haunes/ComparendosTransito/internal/citation"
	"github.com/Haunes/ComparendosTransito/internal/source"
)

// SaveRecords stores the per-source records of one run date, replacing
// whatever was stored for that date.
func (s *Store) SaveRecords(date time.Time, records []citation.Record) error {
	day := formatDay(citation.Day(date))

	tx, err := s.writeDB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM records WHERE run_date = ?", day); err != nil {
		return fmt.Errorf("clearing records of %s: %w", day, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO records (run_date, source, seq, id, imposed, notified, plate)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	seq := map[source.Source]int{}
	for _, r := range records {
		n := seq[r.Source]
		seq[r.Source] = n + 1
		if _, err := stmt.Exec(day, string(r.Source), n, r.ID, r.Imposed.String(), r.Notified.String(), r.Plate); err != nil {
			return fmt.Errorf("saving record %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// PreviousRecords returns the most recent snapshot of src stored strictly
// before the given date, in the order it was saved. ok is false when no
// such snapshot exists.
func (s *Store) PreviousRecords(before time.Time, src source.Source) ([]citation.Record, bool, error) {
	day := formatDay(citation.Day(before))

	var last string
	err := s.readDB.QueryRow(
		"SELECT COALESCE(MAX(run_date), '') FROM records WHERE source = ? AND run_date < ?",
		string(src), day,
	).Scan(&last)
	if err != nil {
		return nil, false, fmt.Errorf("finding previous snapshot of %s: %w", src, err)
	}
	if last == "" {
		return nil, false, nil
	}

	rows, err := s.readDB.Query(`
		SELECT id, imposed, notified, plate FROM records
		WHERE source = ? AND run_date = ?
		ORDER BY seq
	`, string(src), last)
	if err != nil {
		return nil, false, fmt.Errorf("querying records of %s: %w", src, err)
	}
	defer rows.Close()

	var out []citation.Record
	for rows.Next() {
		var id, imposed, notified, plate string
		if err := rows.Scan(&id, &imposed, &notified, &plate); err != nil {
			return nil, false, fmt.Errorf("scanning record: %w", err)
		}
		out = append(out, citation.Record{
			ID:       id,
			Imposed:  citation.ParseDate(imposed),
			Notified: citation.ParseDate(notified),
			Plate:    plate,
			Source:   src,
		})
	}
	return out, true, rows.Err()
}

// PreviousBySource collects PreviousRecords for every source that has a
// stored snapshot.
func (s *Store) PreviousBySource(before time.Time, sources []source.Source) (map[source.Source][]citation.Record, error) {
	out := map[source.Source][]citation.Record{}
	for _, src := range sources {
		records, ok, err := s.PreviousRecords(before, src)
		if err != nil {
			return nil, err
		}
		if ok {
			out[src] = records
		}
	}
	return out, nil
}
