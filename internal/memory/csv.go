package memory

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Haunes/ComparendosTransito/internal/citation"
	"github.com/Haunes/ComparendosTransito/internal/source"
	"github.com/Haunes/ComparendosTransito/internal/tabular"
)

// Columns is the persisted layout of a ledger.
var Columns = []string{"canonical_key", "display_identifier", "last_seen_sources_csv", "last_seen_date"}

// ErrMissingColumn is returned when a ledger table has no key column.
var ErrMissingColumn = errors.New("memory table has no canonical_key column")

// Table renders the ledger in Columns order.
func (l Ledger) Table() tabular.Table {
	t := tabular.Table{Header: append([]string(nil), Columns...), Rows: [][]string{}}
	for _, e := range l.Entries() {
		date := ""
		if !e.LastSeen.IsZero() {
			date = e.LastSeen.Format(citation.ISODate)
		}
		t.Rows = append(t.Rows, []string{e.Key, e.Display, source.Codes(e.Sources), date})
	}
	return t
}

// WriteCSV persists the ledger.
func WriteCSV(w io.Writer, l Ledger) error {
	return tabular.WriteCSV(w, l.Table())
}

// ReadCSV loads a ledger written by WriteCSV. The column names of older
// exports (key, numero_display, last_seen_platforms_codes) are accepted.
// Missing optional columns load as empty values and an unreadable date
// loads as unknown.
func ReadCSV(r io.Reader) (Ledger, error) {
	t, err := tabular.ReadCSV(r)
	if err != nil {
		return Ledger{}, fmt.Errorf("reading memory table: %w", err)
	}
	return FromTable(t)
}

// FromTable converts a table in Columns layout into a ledger.
func FromTable(t tabular.Table) (Ledger, error) {
	keyCol := t.Column("canonical_key", "key", "__key")
	if keyCol < 0 {
		return Ledger{}, fmt.Errorf("%w (header: %s)", ErrMissingColumn, strings.Join(t.Header, ", "))
	}
	displayCol := t.Column("display_identifier", "numero_display")
	sourcesCol := t.Column("last_seen_sources_csv", "last_seen_platforms_codes")
	dateCol := t.Column("last_seen_date")

	entries := make([]Entry, 0, len(t.Rows))
	for _, row := range t.Rows {
		key := tabular.Cell(row, keyCol)
		if key == "" {
			continue
		}
		var sources []source.Source
		for _, code := range strings.Split(tabular.Cell(row, sourcesCol), ",") {
			if s := source.Normalize(code); s != "" {
				sources = append(sources, s)
			}
		}
		entries = append(entries, Entry{
			Key:      key,
			Display:  tabular.Cell(row, displayCol),
			Sources:  sources,
			LastSeen: parseSeen(tabular.Cell(row, dateCol)),
		})
	}
	return Restore(0, entries), nil
}

func parseSeen(s string) time.Time {
	d := citation.ParseDate(s)
	return d.Time()
}
