package tabular

import (
	"strconv"

	"github.com/Haunes/ComparendosTransito/internal/citation"
	"github.com/Haunes/ComparendosTransito/internal/source"
)

// SnapshotColumns is the fixed column set of an aggregated row.
var SnapshotColumns = []string{
	"numero_comparendo", "fecha_imposicion", "fecha_notificacion", "placa", "plataformas", "numero_veces",
}

// RecordColumns is the fixed column set of a single-source record.
var RecordColumns = []string{
	"numero_comparendo", "fecha_imposicion", "fecha_notificacion", "placa", "plataforma",
}

// RowValues renders r in SnapshotColumns order.
func RowValues(r citation.Row) []string {
	return []string{
		r.ID,
		r.Imposed.String(),
		r.Notified.String(),
		r.Plate,
		source.Labels(r.Sources),
		strconv.Itoa(r.Count),
	}
}

// FromRows builds an aggregated table. The header is present even when
// rows is empty.
func FromRows(rows []citation.Row) Table {
	t := Table{Header: append([]string(nil), SnapshotColumns...), Rows: [][]string{}}
	for _, r := range rows {
		t.Rows = append(t.Rows, RowValues(r))
	}
	return t
}

// FromRecords builds a one-row-per-source table.
func FromRecords(records []citation.Record) Table {
	t := Table{Header: append([]string(nil), RecordColumns...), Rows: [][]string{}}
	for _, r := range records {
		t.Rows = append(t.Rows, []string{
			r.ID, r.Imposed.String(), r.Notified.String(), r.Plate, string(r.Source),
		})
	}
	return t
}
