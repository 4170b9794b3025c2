// Package tabular moves citation data in and out of flat CSV tables. It is
// the boundary where the different shapes of exported files are reduced to
// records before reconciliation.
package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Haunes/ComparendosTransito/internal/citation"
	"github.com/Haunes/ComparendosTransito/internal/source"
)

// ErrNoIdentifier is returned when a table has no citation number column.
var ErrNoIdentifier = errors.New("no citation identifier column")

// Header aliases, already in normalized form.
var (
	idAliases       = []string{"numero comparendo", "numero de comparendo", "comparendo", "numero", "id raw"}
	imposedAliases  = []string{"fecha imposicion", "fecha de imposicion", "fecha comparendo"}
	notifiedAliases = []string{"fecha notificacion", "fecha de notificacion", "fecha notif"}
	plateAliases    = []string{"placa"}
	sourceAliases   = []string{"plataforma", "fuente"}
	sourcesAliases  = []string{"plataformas", "fuentes"}
)

// Table is a header plus string rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// ReadCSV reads a table whose first row is the header. Comma and semicolon
// separated files are both accepted.
func ReadCSV(r io.Reader) (Table, error) {
	br := bufio.NewReader(r)
	first, _ := br.Peek(4096)
	if i := bytes.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	if bytes.Count(first, []byte{';'}) > bytes.Count(first, []byte{','}) {
		cr.Comma = ';'
	}

	records, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("reading csv: %w", err)
	}
	if len(records) == 0 {
		return Table{}, nil
	}
	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return Table{Header: header, Rows: records[1:]}, nil
}

// WriteCSV writes t with a header row.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("writing rows: %w", err)
	}
	return nil
}

// Column returns the index of the first header matching any of names after
// normalization, or -1.
func (t Table) Column(names ...string) int {
	for _, name := range names {
		want := NormalizeHeader(name)
		for i, h := range t.Header {
			if NormalizeHeader(h) == want {
				return i
			}
		}
	}
	return -1
}

// Cell returns the trimmed value at idx, or "" when idx is out of range.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// NormalizeHeader lowercases h, strips accents and turns underscores and
// runs of spaces into single spaces.
func NormalizeHeader(h string) string {
	folded := strings.ReplaceAll(strings.ToLower(source.Fold(h)), "_", " ")
	return strings.Join(strings.Fields(folded), " ")
}

// Records converts a table into records. Three shapes are understood: one
// row per source (a "plataforma" column), one row per citation listing its
// sources (a "plataformas" column, one record is emitted per listed source),
// and rows without provenance, which get fallback as their source.
func Records(t Table, fallback source.Source) ([]citation.Record, error) {
	idCol := t.Column(idAliases...)
	if idCol < 0 {
		return nil, fmt.Errorf("%w (header: %s)", ErrNoIdentifier, strings.Join(t.Header, ", "))
	}
	var (
		impCol   = t.Column(imposedAliases...)
		notCol   = t.Column(notifiedAliases...)
		plateCol = t.Column(plateAliases...)
		srcCol   = t.Column(sourceAliases...)
		srcsCol  = t.Column(sourcesAliases...)
	)

	var out []citation.Record
	for _, row := range t.Rows {
		if blank(row) {
			continue
		}
		base := citation.Record{
			ID:       Cell(row, idCol),
			Imposed:  citation.ParseDate(Cell(row, impCol)),
			Notified: citation.ParseDate(Cell(row, notCol)),
			Plate:    Cell(row, plateCol),
			Source:   fallback,
		}

		switch {
		case srcCol >= 0:
			if s := source.Normalize(Cell(row, srcCol)); s != "" {
				base.Source = s
			}
			out = append(out, base)
		case srcsCol >= 0:
			sources := source.Split(Cell(row, srcsCol))
			if len(sources) == 0 {
				out = append(out, base)
				continue
			}
			for _, s := range sources {
				r := base
				r.Source = s
				out = append(out, r)
			}
		default:
			out = append(out, base)
		}
	}
	return out, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
