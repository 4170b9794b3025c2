// Package backfill stands in for a source that failed to deliver today by
// re-emitting what it reported the previous day.
package backfill

import (
	"strings"

	"github.com/Haunes/ComparendosTransito/internal/citation"
	"github.com/Haunes/ComparendosTransito/internal/source"
)

// Backfill returns the records of previous that belong to src, cleaned up
// to be used as today's records for that source. Source names are compared
// after normalization. Records without an identifier are skipped.
func Backfill(previous []citation.Record, src source.Source) []citation.Record {
	want := source.Normalize(string(src))
	out := []citation.Record{}
	for _, r := range previous {
		if source.Normalize(string(r.Source)) != want {
			continue
		}
		id := strings.TrimSpace(r.ID)
		if id == "" {
			continue
		}
		out = append(out, citation.Record{
			ID:       id,
			Imposed:  r.Imposed,
			Notified: r.Notified,
			Plate:    strings.ToUpper(strings.TrimSpace(r.Plate)),
			Source:   want,
		})
	}
	return out
}
