// Package memory keeps the "last seen" ledger: for every citation ever
// aggregated, which sources reported it and when it was last observed.
// Removal suppression relies on it to tell a resolved citation from one
// whose only sources are offline.
package memory

import (
	"sort"
	"time"

	"github.com/Haunes/ComparendosTransito/internal/canon"
	"github.com/Haunes/ComparendosTransito/internal/citation"
	"github.com/Haunes/ComparendosTransito/internal/source"
)

// Entry is the last known state of one citation.
type Entry struct {
	Key      string
	Display  string
	Sources  []source.Source
	LastSeen time.Time // zero when unknown
}

// Ledger is an immutable table of entries keyed by canonical key. Every
// Merge produces a new ledger with the next version.
type Ledger struct {
	version int
	entries map[string]Entry
}

// Restore rebuilds a ledger from persisted entries. Keys are reduced to
// their canonical form and later duplicates replace earlier ones.
func Restore(version int, entries []Entry) Ledger {
	l := Ledger{version: version, entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		e.Key = canon.Base(e.Key)
		if e.Key == "" {
			continue
		}
		l.entries[e.Key] = e
	}
	return l
}

func (l Ledger) Version() int { return l.version }

func (l Ledger) Len() int { return len(l.entries) }

func (l Ledger) Get(key string) (Entry, bool) {
	e, ok := l.entries[key]
	return e, ok
}

// Entries returns every entry ordered by key.
func (l Ledger) Entries() []Entry {
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Merge upserts today's aggregate into previous. Keys seen today get
// today's display identifier, source set and date; every other entry is
// carried over untouched. previous is not modified.
func Merge(previous Ledger, today citation.Snapshot, date time.Time) Ledger {
	next := Ledger{
		version: previous.version + 1,
		entries: make(map[string]Entry, len(previous.entries)+len(today.Rows)),
	}
	for k, e := range previous.entries {
		next.entries[k] = e
	}

	seen := citation.Day(date)
	touched := map[string]bool{}
	for _, row := range today.Rows {
		key := row.CanonicalKey()
		if key == "" {
			continue
		}
		e := Entry{
			Key:      key,
			Display:  row.ID,
			Sources:  row.Sources,
			LastSeen: seen,
		}
		// Split short keys share one entry: the union of what reported them.
		if touched[key] {
			prev := next.entries[key]
			e.Display = prev.Display
			e.Sources = append(append([]source.Source(nil), prev.Sources...), row.Sources...)
		}
		e.Sources = source.NewSet(e.Sources...).Sorted()
		next.entries[key] = e
		touched[key] = true
	}
	return next
}
