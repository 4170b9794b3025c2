package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Haunes/ComparendosTransito/internal/citation"
	"github.com/Haunes/ComparendosTransito/internal/source"
	"github.com/Haunes/ComparendosTransito/internal/tabular"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		arg     string
		want    Input
		wantErr bool
	}{
		{"SIMIT=hoy/simit.csv", Input{Source: source.Simit, Path: "hoy/simit.csv"}, false},
		{"santa marta=sm.csv", Input{Source: source.SantaMarta, Path: "sm.csv"}, false},
		{"fenix= f.csv ", Input{Source: source.Fenix, Path: "f.csv"}, false},
		{"simit.csv", Input{}, true},
		{"SIMIT=", Input{}, true},
		{"BOGOTA=b.csv", Input{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := ParseInput(tt.arg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseInput(%q) error = %v, wantErr %v", tt.arg, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseInput(%q) = %+v, want %+v", tt.arg, got, tt.want)
			}
		})
	}
}

func TestParseInputUnknownSource(t *testing.T) {
	_, err := ParseInput("BOGOTA=b.csv")
	if !errors.Is(err, source.ErrUnknown) {
		t.Errorf("expected ErrUnknown, got %v", err)
	}
}

func TestLoadAllCollectsPerSourceErrors(t *testing.T) {
	simit := writeFile(t, "simit.csv", "numero_comparendo,fecha_notificacion,placa\n05001000000011111111,01/01/2024,ABC123\n")
	fenix := writeFile(t, "fenix.csv", "placa\nABC123\n")
	inputs := []Input{
		{Source: source.Simit, Path: simit},
		{Source: source.Fenix, Path: fenix},
		{Source: source.Cali, Path: filepath.Join(t.TempDir(), "missing.csv")},
	}

	res := LoadAll(context.Background(), inputs, nil)

	if diff := cmp.Diff([]source.Source{source.Simit}, res.Loaded); diff != "" {
		t.Errorf("loaded mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]source.Source{source.Fenix, source.Cali}, res.Failed); diff != "" {
		t.Errorf("failed mismatch (-want +got):\n%s", diff)
	}
	if len(res.Records) != 1 || res.Records[0].Source != source.Simit {
		t.Fatalf("expected one SIMIT record, got %+v", res.Records)
	}
	if got := res.Records[0].Notified.String(); got != "2024-01-01" {
		t.Errorf("notified = %q, want 2024-01-01", got)
	}
	if !errors.Is(res.Err(), tabular.ErrNoIdentifier) {
		t.Errorf("expected ErrNoIdentifier among errors, got %v", res.Err())
	}
}

func TestLoadAllAccentedHeadersConcurrently(t *testing.T) {
	sources := []source.Source{
		source.Simit, source.Fenix, source.Medellin, source.Bello,
		source.Itagui, source.Manizales, source.Cali, source.Bolivar,
	}
	labels := []string{"Simit", "Fénix", "Medellín", "Bello", "Itagüí", "Manizales", "Cali", "Bolívar"}
	var inputs []Input
	for i, src := range sources {
		content := fmt.Sprintf("Número de Comparendo;Fecha de Imposición;Fecha de Notificación;Placa;Plataforma\n"+
			"D0500100000001111%04d;02/01/2024;03/01/2024;ABC123;%s\n", i, labels[i])
		inputs = append(inputs, Input{Source: src, Path: writeFile(t, string(src)+".csv", content)})
	}

	res := LoadAll(context.Background(), inputs, nil)

	if err := res.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(sources, res.Loaded); diff != "" {
		t.Errorf("loaded mismatch (-want +got):\n%s", diff)
	}
	if len(res.Records) != len(sources) {
		t.Fatalf("expected %d records, got %d", len(sources), len(res.Records))
	}
	for i, r := range res.Records {
		if r.Source != sources[i] {
			t.Errorf("record %d source = %s, want %s", i, r.Source, sources[i])
		}
		if got := r.Notified.String(); got != "2024-01-03" {
			t.Errorf("record %d notified = %q, want 2024-01-03", i, got)
		}
	}
}

type stubLoader map[source.Source]int

func (s stubLoader) Load(_ context.Context, in Input) ([]citation.Record, error) {
	n := s[in.Source]
	out := make([]citation.Record, n)
	for i := range out {
		out[i] = citation.Record{ID: string(in.Source), Source: in.Source}
	}
	return out, nil
}

func TestLoadAllKeepsInputOrder(t *testing.T) {
	loader := stubLoader{source.Simit: 2, source.Fenix: 1, source.Bello: 3, source.Cali: 1, source.Itagui: 2}
	inputs := []Input{
		{Source: source.Bello}, {Source: source.Simit}, {Source: source.Itagui},
		{Source: source.Cali}, {Source: source.Fenix},
	}

	res := LoadAllWith(context.Background(), loader, inputs, nil)

	var got []source.Source
	for _, r := range res.Records {
		got = append(got, r.Source)
	}
	want := []source.Source{
		source.Bello, source.Bello, source.Bello,
		source.Simit, source.Simit,
		source.Itagui, source.Itagui,
		source.Cali, source.Fenix,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("record order mismatch (-want +got):\n%s", diff)
	}
	if res.Err() != nil {
		t.Errorf("unexpected error: %v", res.Err())
	}
}

func TestLoadSnapshotAggregatedShape(t *testing.T) {
	path := writeFile(t, "ayer.csv",
		"numero_comparendo;fecha_notificacion;placa;plataformas;numero_veces\n"+
			"D05001000000011111111;2024-01-01;ABC123;Simit - Fenix;2\n")

	snap, err := LoadSnapshot(path, source.All())
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if snap.Len() != 1 {
		t.Fatalf("expected one row, got %d", snap.Len())
	}
	row := snap.Rows[0]
	if diff := cmp.Diff([]source.Source{source.Simit, source.Fenix}, row.Sources); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
	if row.Count != 2 {
		t.Errorf("count = %d, want 2", row.Count)
	}
}
