package diff

import (
	"time"

	"github.com/Haunes/ComparendosTransito/internal/calendar"
	"github.com/Haunes/ComparendosTransito/internal/citation"
	"github.com/Haunes/ComparendosTransito/internal/tabular"
)

var deadlineColumns = []string{"fecha_limite_50", "fecha_desde_25", "fecha_limite_25"}

// NewColumns is the column set of the new-citations table.
var NewColumns = append(append([]string(nil), tabular.SnapshotColumns...), deadlineColumns...)

// ModifiedColumns is the column set of the modified-citations table.
var ModifiedColumns = append([]string{
	"numero_comparendo", "placa", "fecha_notif_ayer", "fecha_notif_hoy", "estado",
}, deadlineColumns...)

// NewTable renders the new citations with their deadlines.
func (r Result) NewTable() tabular.Table {
	t := tabular.Table{Header: append([]string(nil), NewColumns...), Rows: [][]string{}}
	for _, d := range r.New {
		t.Rows = append(t.Rows, append(tabular.RowValues(d.Row), deadlineValues(d.Deadlines)...))
	}
	return t
}

func (r Result) RemovedTable() tabular.Table    { return tabular.FromRows(r.Removed) }
func (r Result) RetainedTable() tabular.Table   { return tabular.FromRows(r.Retained) }
func (r Result) SuppressedTable() tabular.Table { return tabular.FromRows(r.Suppressed) }

// ModifiedTable renders notification date changes with recomputed deadlines.
func (r Result) ModifiedTable() tabular.Table {
	t := tabular.Table{Header: append([]string(nil), ModifiedColumns...), Rows: [][]string{}}
	for _, c := range r.Modified {
		row := []string{c.ID, c.Plate, c.Before.String(), c.After.String(), string(c.Kind)}
		t.Rows = append(t.Rows, append(row, deadlineValues(c.Deadlines)...))
	}
	return t
}

func deadlineValues(d calendar.Deadlines) []string {
	return []string{isoOrEmpty(d.FirstTier), isoOrEmpty(d.SecondStart), isoOrEmpty(d.SecondEnd)}
}

func isoOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(citation.ISODate)
}
