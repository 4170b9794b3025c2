// Package citation holds the shared shapes of the reconciliation engine:
// single-source observations and the per-day aggregate built from them.
package citation

import (
	"github.com/Haunes/ComparendosTransito/internal/canon"
	"github.com/Haunes/ComparendosTransito/internal/source"
)

// Record is one citation as reported by one source on one day.
type Record struct {
	ID       string
	Imposed  Date
	Notified Date
	Plate    string
	Source   source.Source
}

// Key is the canonical key of the record's identifier.
func (r Record) Key() string {
	return canon.CanonicalKey(r.ID)
}

// Row is one citation after merging every source that reported it that day.
type Row struct {
	// Key is the canonical key, qualified with canon.Qualify only when two
	// conflicting citations share a short key on the same day.
	Key      string
	ID       string
	Imposed  Date
	Notified Date
	Plate    string
	Sources  []source.Source
	Count    int

	// Notices holds the first notification date each source reported.
	Notices map[source.Source]Date
}

// CanonicalKey is Key without any same-day qualifier.
func (r Row) CanonicalKey() string {
	return canon.Base(r.Key)
}

// NotifiedBy returns the notification date as seen by src. Rows without
// per-source detail fall back to the merged date when src is listed, and
// rows with no provenance at all (official exports) always answer.
func (r Row) NotifiedBy(src source.Source) (Date, bool) {
	if d, ok := r.Notices[src]; ok {
		return d, true
	}
	if len(r.Sources) == 0 {
		return r.Notified, true
	}
	for _, s := range r.Sources {
		if s == src {
			return r.Notified, true
		}
	}
	return Date{}, false
}

// Snapshot is the full aggregate of one day.
type Snapshot struct {
	Rows []Row

	// Dropped counts input records discarded for having no usable key.
	Dropped int
}

// Index maps each key to its row.
func (s Snapshot) Index() map[string]Row {
	idx := make(map[string]Row, len(s.Rows))
	for _, r := range s.Rows {
		idx[r.Key] = r
	}
	return idx
}

// Keys returns the set of keys present in the snapshot.
func (s Snapshot) Keys() map[string]struct{} {
	keys := make(map[string]struct{}, len(s.Rows))
	for _, r := range s.Rows {
		keys[r.Key] = struct{}{}
	}
	return keys
}

func (s Snapshot) Len() int { return len(s.Rows) }
