package tabular

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/Haunes/ComparendosTransito/internal/citation"
	"github.com/Haunes/ComparendosTransito/internal/source"
	"github.com/google/go-cmp/cmp"
)

func read(t *testing.T, s string) Table {
	t.Helper()
	tbl, err := ReadCSV(strings.NewReader(s))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	return tbl
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Número de Comparendo", "numero de comparendo"},
		{"FECHA_NOTIFICACION", "fecha notificacion"},
		{"  Fecha   de  Imposición ", "fecha de imposicion"},
		{"Placa", "placa"},
	}
	for _, tt := range tests {
		if got := NormalizeHeader(tt.input); got != tt.want {
			t.Errorf("NormalizeHeader(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestRecordsPerSourceShape(t *testing.T) {
	tbl := read(t, "Numero_Comparendo,FECHA_IMPOSICION,fecha_notificacion,Placa,PLATAFORMA,otra\n"+
		"A1000000000001,2024-01-01,,abc123,SIMIT,1\n"+
		"A1000000000002,02/01/2024,2024-01-05, dEf456 ,Santa Marta,2\n")

	got, err := Records(tbl, "")
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Source != source.Simit || got[1].Source != source.SantaMarta {
		t.Errorf("unexpected sources %s, %s", got[0].Source, got[1].Source)
	}
	if got[1].Imposed.String() != "2024-01-02" || got[1].Notified.String() != "2024-01-05" {
		t.Errorf("unexpected dates %s / %s", got[1].Imposed, got[1].Notified)
	}
	if got[1].Plate != "dEf456" {
		t.Errorf("plate should be trimmed, got %q", got[1].Plate)
	}
}

func TestRecordsAggregatedShapeSplitsSources(t *testing.T) {
	tbl := read(t, "numero_comparendo,fecha_imposicion,fecha_notificacion,placa,plataformas,numero_veces\n"+
		"11001000000039571821,2024-01-12,,XXY123,Simit - Fenix,2\n"+
		"11001000000039571822,2024-01-12,,XXY124,,0\n")

	got, err := Records(tbl, "")
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	var sources []source.Source
	for _, r := range got {
		sources = append(sources, r.Source)
	}
	want := []source.Source{source.Simit, source.Fenix, ""}
	if diff := cmp.Diff(want, sources); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordsFallbackSource(t *testing.T) {
	tbl := read(t, "Número de Comparendo;Fecha de Notificación\n11001000000039571821;15/01/2024\n;\n")
	got, err := Records(tbl, source.Fenix)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("blank rows should be skipped, got %d records", len(got))
	}
	if got[0].Source != source.Fenix {
		t.Errorf("expected fallback source, got %q", got[0].Source)
	}
	if got[0].Notified.String() != "2024-01-15" {
		t.Errorf("semicolon file not parsed, notified = %q", got[0].Notified)
	}
}

func TestRecordsWithoutIdentifierColumn(t *testing.T) {
	tbl := read(t, "placa,fecha\nABC123,2024-01-01\n")
	_, err := Records(tbl, "")
	if !errors.Is(err, ErrNoIdentifier) {
		t.Errorf("expected ErrNoIdentifier, got %v", err)
	}
}

func TestReadCSVStripsBOM(t *testing.T) {
	tbl := read(t, "\ufeffnumero_comparendo,placa\n11001000000039571821,ABC123\n")
	if tbl.Column("numero_comparendo") != 0 {
		t.Errorf("BOM not stripped from header: %q", tbl.Header[0])
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	rows := []citation.Row{{
		Key:      "11001000000039571821",
		ID:       "D11001000000039571821",
		Imposed:  citation.ParseDate("2024-01-12"),
		Notified: citation.ParseDate("En proceso notificación"),
		Plate:    "XXY123",
		Sources:  []source.Source{source.Simit, source.SantaMarta},
		Count:    2,
	}}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, FromRows(rows)); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	back, err := Records(read(t, buf.String()), "")
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(back) != 2 {
		t.Fatalf("expected one record per source, got %d", len(back))
	}
	if back[0].ID != "D11001000000039571821" || back[1].Source != source.SantaMarta {
		t.Errorf("unexpected records %+v", back)
	}
	if back[0].Notified.Status() != "En proceso notificación" {
		t.Errorf("status lost: %q", back[0].Notified)
	}
}

func TestFromRowsEmptyKeepsHeader(t *testing.T) {
	tbl := FromRows(nil)
	if diff := cmp.Diff(SnapshotColumns, tbl.Header); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	if tbl.Rows == nil || len(tbl.Rows) != 0 {
		t.Errorf("expected empty non-nil rows, got %v", tbl.Rows)
	}
}
