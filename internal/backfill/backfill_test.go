package backfill

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Haunes/ComparendosTransito/internal/citation"
	"github.com/Haunes/ComparendosTransito/internal/source"
)

func TestBackfillKeepsOnlyTheDownSource(t *testing.T) {
	previous := []citation.Record{
		{ID: " 05001000000011111111 ", Plate: " abc123", Notified: citation.ParseDate("2024-01-01"), Source: source.Fenix},
		{ID: "05001000000022222222", Plate: "XYZ987", Source: source.Simit},
		{ID: "D05001000000033333333", Plate: "def45e", Source: "fenix"},
		{ID: "  ", Plate: "GHI111", Source: source.Fenix},
	}

	got := Backfill(previous, source.Fenix)

	want := []citation.Record{
		{ID: "05001000000011111111", Plate: "ABC123", Notified: citation.ParseDate("2024-01-01"), Source: source.Fenix},
		{ID: "D05001000000033333333", Plate: "DEF45E", Source: source.Fenix},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("backfill mismatch (-want +got):\n%s", diff)
	}
}

func TestBackfillMatchesLabels(t *testing.T) {
	previous := []citation.Record{{ID: "111", Source: "Santa Marta"}}

	got := Backfill(previous, source.SantaMarta)

	if len(got) != 1 || got[0].Source != source.SantaMarta {
		t.Errorf("expected one SANTAMARTA record, got %+v", got)
	}
}

func TestBackfillNothingToCopy(t *testing.T) {
	got := Backfill(nil, source.Cali)
	if got == nil || len(got) != 0 {
		t.Errorf("expected an empty non-nil slice, got %#v", got)
	}
}
