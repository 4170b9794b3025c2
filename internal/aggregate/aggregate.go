// Package aggregate collapses the records of one day into one row per
// citation, merging what every source reported about it.
package aggregate

import (
	"sort"
	"strings"

	"github.com/Haunes/ComparendosTransito/internal/canon"
	"github.com/Haunes/ComparendosTransito/internal/citation"
	"github.com/Haunes/ComparendosTransito/internal/source"
)

type bucket struct {
	row  citation.Row
	seen source.Set
}

// Aggregate groups records by canonical key. Records with a short key join
// the first group whose plate and imposition date are compatible with
// theirs; when one short key ends up split, each group's key is qualified.
// Within a group the displayed identifier prefers the letter-prefixed
// variant, scalar fields keep the first non-empty value, and sources are
// deduplicated and ordered by priority. Records without a key are counted
// in Snapshot.Dropped.
func Aggregate(records []citation.Record, priority []source.Source) citation.Snapshot {
	snap := citation.Snapshot{Rows: []citation.Row{}}
	groups := map[string][]*bucket{}
	var order []string

	for _, rec := range records {
		id := strings.TrimSpace(rec.ID)
		key := rec.Key()
		if id == "" || key == "" {
			snap.Dropped++
			continue
		}

		b := find(groups[key], key, rec)
		if b == nil {
			b = &bucket{
				row:  citation.Row{Key: key, Notices: map[source.Source]citation.Date{}},
				seen: source.NewSet(),
			}
			if len(groups[key]) == 0 {
				order = append(order, key)
			}
			groups[key] = append(groups[key], b)
		}
		b.add(id, rec)
	}

	for _, key := range order {
		group := groups[key]
		for _, b := range group {
			if len(group) > 1 {
				b.row.Key = canon.Qualify(key, b.row.Plate, b.row.Imposed.String())
			}
			b.row.Sources = source.Sort(b.row.Sources, priority)
			b.row.Count = len(b.row.Sources)
			snap.Rows = append(snap.Rows, b.row)
		}
	}

	sort.SliceStable(snap.Rows, func(i, j int) bool {
		a, b := snap.Rows[i], snap.Rows[j]
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return joinCodes(a.Sources) < joinCodes(b.Sources)
	})
	return snap
}

func find(group []*bucket, key string, rec citation.Record) *bucket {
	if len(group) == 0 {
		return nil
	}
	if !canon.IsShort(key) {
		return group[0]
	}
	for _, b := range group {
		if canon.Compatible(b.row.Plate, b.row.Imposed.String(), rec.Plate, rec.Imposed.String()) {
			return b
		}
	}
	return nil
}

func (b *bucket) add(id string, rec citation.Record) {
	row := &b.row
	switch {
	case row.ID == "":
		row.ID = id
	case !canon.HasLeadingLetter(row.ID) && canon.HasLeadingLetter(id):
		row.ID = id
	}

	if row.Imposed.Empty() && !rec.Imposed.Empty() {
		row.Imposed = rec.Imposed
	}
	if row.Notified.Empty() && !rec.Notified.Empty() {
		row.Notified = rec.Notified
	}
	if plate := strings.TrimSpace(rec.Plate); row.Plate == "" && plate != "" {
		row.Plate = plate
	}

	src := rec.Source
	if src == "" {
		return
	}
	if prev, ok := row.Notices[src]; !ok || prev.Empty() {
		row.Notices[src] = rec.Notified
	}
	if !b.seen.Has(src) {
		b.seen[src] = struct{}{}
		row.Sources = append(row.Sources, src)
	}
}

func joinCodes(sources []source.Source) string {
	parts := make([]string, len(sources))
	for i, s := range sources {
		parts[i] = string(s)
	}
	return strings.Join(parts, "-")
}
