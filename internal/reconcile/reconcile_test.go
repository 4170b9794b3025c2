package reconcile

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Haunes/ComparendosTransito/internal/aggregate"
	"github.com/Haunes/ComparendosTransito/internal/calendar"
	"github.com/Haunes/ComparendosTransito/internal/citation"
	"github.com/Haunes/ComparendosTransito/internal/memory"
	"github.com/Haunes/ComparendosTransito/internal/source"
)

const (
	idA = "05001000000011111111"
	idB = "05001000000022222222"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func plan(t *testing.T) Plan {
	t.Helper()
	cal, err := calendar.New("", nil)
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	yesterday := aggregate.Aggregate([]citation.Record{
		{ID: idA, Source: source.Simit},
		{ID: idB, Source: source.Fenix, Plate: "abc123"},
	}, source.All())
	return Plan{
		Date:      day("2024-01-02"),
		Today:     []citation.Record{{ID: idA, Source: source.Simit}},
		Yesterday: yesterday,
		Memory: memory.Restore(1, []memory.Entry{
			{Key: idB, Display: idB, Sources: []source.Source{source.Fenix}, LastSeen: day("2023-12-01")},
		}),
		Down:      []source.Source{source.Fenix},
		GraceDays: 2,
		Calendar:  cal,
	}
}

func TestRunWithoutBackfillRemovesAfterGrace(t *testing.T) {
	out := Run(plan(t))

	if len(out.Result.Removed) != 1 || out.Result.Removed[0].Key != idB {
		t.Errorf("expected %s removed, got %+v", idB, out.Result.Removed)
	}
	if len(out.Backfilled) != 0 {
		t.Errorf("backfill disabled, got %v", out.Backfilled)
	}
	if out.Ledger.Version() != 2 {
		t.Errorf("expected ledger version 2, got %d", out.Ledger.Version())
	}
}

func TestRunBackfillsFromYesterday(t *testing.T) {
	p := plan(t)
	p.Backfill = true

	out := Run(p)

	if diff := cmp.Diff([]source.Source{source.Fenix}, out.Backfilled); diff != "" {
		t.Errorf("backfilled mismatch (-want +got):\n%s", diff)
	}
	if len(out.Result.Removed) != 0 {
		t.Errorf("backfilled rows must not be removed, got %+v", out.Result.Removed)
	}
	if len(out.Result.Retained) != 2 {
		t.Errorf("expected 2 retained, got %d", len(out.Result.Retained))
	}
	var plate string
	for _, r := range out.Records {
		if r.Source == source.Fenix {
			plate = r.Plate
		}
	}
	if plate != "ABC123" {
		t.Errorf("expected uppercased plate, got %q", plate)
	}
}

func TestRunBackfillPrefersStoredRecords(t *testing.T) {
	p := plan(t)
	p.Backfill = true
	p.Previous = map[source.Source][]citation.Record{
		source.Fenix: {{ID: idB, Source: source.Fenix, Notified: citation.ParseDate("2024-01-01")}},
	}

	out := Run(p)

	row, ok := out.Snapshot.Index()[idB]
	if !ok {
		t.Fatalf("expected %s in today's aggregate", idB)
	}
	if got := row.Notified.String(); got != "2024-01-01" {
		t.Errorf("notified = %q, want the stored date", got)
	}
}

func TestRunSkipsBackfillForDeliveredSource(t *testing.T) {
	p := plan(t)
	p.Backfill = true
	p.Down = []source.Source{source.Simit}

	out := Run(p)

	if len(out.Backfilled) != 0 {
		t.Errorf("SIMIT delivered today, got backfilled %v", out.Backfilled)
	}
}

func TestOutcomeTables(t *testing.T) {
	out := Run(plan(t))

	var names []string
	for _, n := range out.Tables() {
		names = append(names, n.Name)
		if len(n.Table.Header) == 0 {
			t.Errorf("%s has no header", n.Name)
		}
	}
	want := []string{
		"hoy_raw.csv", "hoy.csv", "nuevos.csv", "eliminados.csv",
		"mantenidos.csv", "modificados.csv", "suprimidos.csv", "last_seen.csv",
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("table names mismatch (-want +got):\n%s", diff)
	}
}
