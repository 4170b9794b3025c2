// Package report summarizes a run and renders it for the terminal.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Haunes/ComparendosTransito/internal/calendar"
	"github.com/Haunes/ComparendosTransito/internal/citation"
	"github.com/Haunes/ComparendosTransito/internal/diff"
	"github.com/Haunes/ComparendosTransito/internal/source"
	"github.com/Haunes/ComparendosTransito/internal/store"
	"github.com/Haunes/ComparendosTransito/internal/tabular"
)

// MaxTableRows caps how many rows of each table are printed.
const MaxTableRows = 25

// Summary holds the counts of one run.
type Summary struct {
	RunID      string
	Date       time.Time
	New        int
	Removed    int
	Retained   int
	Modified   int
	Suppressed int
	Dropped    int
	Today      int
	GraceDays  int
	Active     []source.Source
	Down       []source.Source
	Backfilled []source.Source
}

// Build summarizes res. down is the list of sources flagged down.
func Build(res diff.Result, down []source.Source) Summary {
	return Summary{
		New:        len(res.New),
		Removed:    len(res.Removed),
		Retained:   len(res.Retained),
		Modified:   len(res.Modified),
		Suppressed: len(res.Suppressed),
		Dropped:    res.Dropped,
		Today:      len(res.New) + len(res.Retained),
		GraceDays:  res.GraceDays,
		Active:     res.Active,
		Down:       source.NewSet(down...).Sorted(),
	}
}

// SummaryColumns is the column set of the summary table.
var SummaryColumns = []string{
	"fecha", "nuevos", "eliminados", "mantenidos", "modificados", "suprimidos",
	"hoy_total", "descartados", "dias_gracia", "plataformas_activas", "plataformas_caidas_hoy",
}

// Table renders s as a one-row table.
func (s Summary) Table() tabular.Table {
	date := ""
	if !s.Date.IsZero() {
		date = s.Date.Format(citation.ISODate)
	}
	return tabular.Table{
		Header: append([]string(nil), SummaryColumns...),
		Rows: [][]string{{
			date,
			strconv.Itoa(s.New),
			strconv.Itoa(s.Removed),
			strconv.Itoa(s.Retained),
			strconv.Itoa(s.Modified),
			strconv.Itoa(s.Suppressed),
			strconv.Itoa(s.Today),
			strconv.Itoa(s.Dropped),
			strconv.Itoa(s.GraceDays),
			source.Labels(s.Active),
			source.Labels(s.Down),
		}},
	}
}

// Render prints the summary header followed by the new, removed, modified
// and suppressed tables.
func Render(w io.Writer, s Summary, res diff.Result) error {
	var b strings.Builder

	title := headerStyle.Render("Comparendos")
	if !s.Date.IsZero() {
		title += " " + headerDateStyle.Render(s.Date.Format(citation.ISODate))
	}
	b.WriteString(title + "\n\n")

	counts := []struct {
		label string
		n     int
	}{
		{"Hoy", s.Today},
		{"Nuevos", s.New},
		{"Eliminados", s.Removed},
		{"Mantenidos", s.Retained},
		{"Modificados", s.Modified},
		{"Suprimidos", s.Suppressed},
		{"Descartados", s.Dropped},
	}
	for _, c := range counts {
		b.WriteString(labelStyle.Render(c.label) + countStyle.Render(strconv.Itoa(c.n)) + "\n")
	}

	b.WriteString(labelStyle.Render("Activas") + sourceStyle.Render(orDash(source.Labels(s.Active))) + "\n")
	if len(s.Down) > 0 {
		b.WriteString(labelStyle.Render("Caídas") + downStyle.Render(source.Labels(s.Down)) +
			dimStyle.Render(fmt.Sprintf("  (gracia %d días)", s.GraceDays)) + "\n")
	}
	if len(s.Backfilled) > 0 {
		b.WriteString(labelStyle.Render("Rellenadas") + sourceStyle.Render(source.Labels(s.Backfilled)) + "\n")
	}
	if s.RunID != "" {
		b.WriteString(labelStyle.Render("Ejecución") + dimStyle.Render(s.RunID) + "\n")
	}

	sections := []struct {
		title string
		t     tabular.Table
	}{
		{"Nuevos", res.NewTable()},
		{"Eliminados", res.RemovedTable()},
		{"Modificados", res.ModifiedTable()},
		{"Suprimidos", res.SuppressedTable()},
	}
	for _, sec := range sections {
		if len(sec.t.Rows) == 0 {
			continue
		}
		b.WriteString(sectionStyle.Render(fmt.Sprintf("%s (%d)", sec.title, len(sec.t.Rows))) + "\n")
		b.WriteString(renderTable(sec.t) + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderDeadlines prints the discount deadlines for one notification date,
// flagging a notification that falls on a weekend or holiday.
func RenderDeadlines(w io.Writer, cal *calendar.Calendar, notified time.Time) error {
	d := cal.DeadlinesFrom(notified)
	notice := notified.Format(citation.ISODate)
	if !cal.IsBusinessDay(notified) {
		notice += " (no hábil)"
	}
	t := tabular.Table{
		Header: []string{"tramo", "fecha"},
		Rows: [][]string{
			{"notificación", notice},
			{"límite 50%", d.FirstTier.Format(citation.ISODate)},
			{"desde 25%", d.SecondStart.Format(citation.ISODate)},
			{"límite 25%", d.SecondEnd.Format(citation.ISODate)},
		},
	}
	_, err := io.WriteString(w, renderTable(t)+"\n")
	return err
}

// RenderRuns prints the run history, newest first.
func RenderRuns(w io.Writer, runs []store.Run) error {
	if len(runs) == 0 {
		_, err := io.WriteString(w, dimStyle.Render("No runs recorded yet.")+"\n")
		return err
	}
	t := tabular.Table{Header: []string{
		"fecha", "nuevos", "eliminados", "modificados", "suprimidos", "caídas", "ejecutado", "id",
	}}
	for _, r := range runs {
		t.Rows = append(t.Rows, []string{
			r.Date.Format(citation.ISODate),
			strconv.Itoa(r.New),
			strconv.Itoa(r.Removed),
			strconv.Itoa(r.Modified),
			strconv.Itoa(r.Suppressed),
			orDash(source.Codes(r.Down)),
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			shortID(r.ID),
		})
	}
	_, err := io.WriteString(w, renderTable(t)+"\n")
	return err
}

func renderTable(t tabular.Table) string {
	rows := t.Rows
	more := 0
	if len(rows) > MaxTableRows {
		more = len(rows) - MaxTableRows
		rows = rows[:MaxTableRows]
	}

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers(t.Header...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})

	out := tbl.String()
	if more > 0 {
		out += "\n" + dimStyle.Render(fmt.Sprintf("… y %d más", more))
	}
	return out
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
