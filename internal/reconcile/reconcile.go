// Package reconcile runs one day end to end over in-memory inputs:
// backfill, aggregate, diff and ledger merge.
package reconcile

import (
	"time"

	"go.uber.org/zap"

	"github.com/Haunes/ComparendosTransito/internal/aggregate"
	"github.com/Haunes/ComparendosTransito/internal/backfill"
	"github.com/Haunes/ComparendosTransito/internal/calendar"
	"github.com/Haunes/ComparendosTransito/internal/citation"
	"github.com/Haunes/ComparendosTransito/internal/diff"
	"github.com/Haunes/ComparendosTransito/internal/memory"
	"github.com/Haunes/ComparendosTransito/internal/source"
	"github.com/Haunes/ComparendosTransito/internal/tabular"
)

// Plan is everything one run needs.
type Plan struct {
	Date      time.Time
	Today     []citation.Record
	Yesterday citation.Snapshot
	Memory    memory.Ledger
	Down      []source.Source

	// Backfill re-emits the previous records of every down source that
	// delivered nothing today.
	Backfill bool
	// Previous holds the last stored per-source records. Sources missing
	// here are backfilled from Yesterday's provenance instead.
	Previous map[source.Source][]citation.Record

	GraceDays int
	Authority source.Source
	Priority  []source.Source
	Calendar  *calendar.Calendar
	Logger    *zap.Logger
}

// Outcome is the result of one run.
type Outcome struct {
	Result     diff.Result
	Snapshot   citation.Snapshot
	Records    []citation.Record
	Ledger     memory.Ledger
	Backfilled []source.Source
}

// Run executes p. It never fails: malformed rows are dropped and counted
// by the steps that see them.
func Run(p Plan) Outcome {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	priority := p.Priority
	if len(priority) == 0 {
		priority = source.All()
	}

	records := append([]citation.Record(nil), p.Today...)
	var filled []source.Source
	if p.Backfill {
		present := source.NewSet()
		for _, r := range records {
			present[r.Source] = struct{}{}
		}
		for _, src := range p.Down {
			if present.Has(src) {
				continue
			}
			previous, ok := p.Previous[src]
			if !ok {
				previous = recordsOf(p.Yesterday)
			}
			extra := backfill.Backfill(previous, src)
			if len(extra) == 0 {
				continue
			}
			log.Info("backfilled down source", zap.String("source", string(src)), zap.Int("records", len(extra)))
			records = append(records, extra...)
			filled = append(filled, src)
		}
	}

	snap := aggregate.Aggregate(records, priority)
	if snap.Dropped > 0 {
		log.Warn("dropped records without identifier", zap.Int("count", snap.Dropped))
	}

	res, ledger := diff.Diff(snap, p.Yesterday, p.Memory, diff.Options{
		Today:     p.Date,
		Down:      p.Down,
		GraceDays: p.GraceDays,
		Authority: p.Authority,
		Calendar:  p.Calendar,
		Logger:    log,
	})

	return Outcome{
		Result:     res,
		Snapshot:   snap,
		Records:    records,
		Ledger:     ledger,
		Backfilled: filled,
	}
}

// recordsOf expands aggregated rows back into one record per listed source,
// using each source's own notification date when it is known.
func recordsOf(s citation.Snapshot) []citation.Record {
	var out []citation.Record
	for _, row := range s.Rows {
		for _, src := range row.Sources {
			notified, _ := row.NotifiedBy(src)
			out = append(out, citation.Record{
				ID:       row.ID,
				Imposed:  row.Imposed,
				Notified: notified,
				Plate:    row.Plate,
				Source:   src,
			})
		}
	}
	return out
}

// Named is an output table with its file name.
type Named struct {
	Name  string
	Table tabular.Table
}

// Tables returns every output table of the run in a stable order.
func (o Outcome) Tables() []Named {
	return []Named{
		{"hoy_raw.csv", tabular.FromRecords(o.Records)},
		{"hoy.csv", tabular.FromRows(o.Snapshot.Rows)},
		{"nuevos.csv", o.Result.NewTable()},
		{"eliminados.csv", o.Result.RemovedTable()},
		{"mantenidos.csv", o.Result.RetainedTable()},
		{"modificados.csv", o.Result.ModifiedTable()},
		{"suprimidos.csv", o.Result.SuppressedTable()},
		{"last_seen.csv", o.Ledger.Table()},
	}
}
