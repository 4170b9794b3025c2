// Package source enumerates the agencies and platforms that report citations.
package source

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Source is the uppercase code of a reporting platform.
type Source string

const (
	Simit      Source = "SIMIT"
	Fenix      Source = "FENIX"
	Medellin   Source = "MEDELLIN"
	Bello      Source = "BELLO"
	Itagui     Source = "ITAGUI"
	Manizales  Source = "MANIZALES"
	Cali       Source = "CALI"
	Bolivar    Source = "BOLIVAR"
	SantaMarta Source = "SANTAMARTA"
	Magdalena  Source = "MAGDALENA"
	Soledad    Source = "SOLEDAD"
)

// ErrUnknown is returned by Parse for names outside the known set.
var ErrUnknown = errors.New("unknown source")

// All returns every known source in the default priority order.
func All() []Source {
	return []Source{Simit, Fenix, Medellin, Bello, Itagui, Manizales, Cali, Bolivar, SantaMarta, Magdalena, Soledad}
}

// Label returns the display name used in reports.
func (s Source) Label() string {
	switch s {
	case Simit:
		return "Simit"
	case Fenix:
		return "Fenix"
	case Medellin:
		return "Medellin"
	case Bello:
		return "Bello"
	case Itagui:
		return "Itagui"
	case Manizales:
		return "Manizales"
	case Cali:
		return "Cali"
	case Bolivar:
		return "Bolivar"
	case SantaMarta:
		return "Santa Marta"
	case Magdalena:
		return "Magdalena"
	case Soledad:
		return "Soledad"
	default:
		return string(s)
	}
}

func (s Source) Known() bool {
	for _, k := range All() {
		if s == k {
			return true
		}
	}
	return false
}

// Parse maps a code or label to a Source. Case, accents, spaces, dots and
// underscores are ignored, so "Santa Marta", "santa_marta" and "SANTAMARTA"
// are the same source.
func Parse(name string) (Source, error) {
	s := Source(fold(name))
	if s.Known() {
		return s, nil
	}
	return "", fmt.Errorf("%w %q (valid: %s)", ErrUnknown, strings.TrimSpace(name), Codes(All()))
}

// Normalize is Parse for callers that must keep unknown names: an unknown
// name comes back folded instead of failing. Blank input yields "".
func Normalize(name string) Source {
	return Source(fold(name))
}

// Split parses a joined source list as written in aggregated exports, e.g.
// "Simit - Santa Marta" or "SIMIT,FENIX". Blank items are skipped.
func Split(list string) []Source {
	fields := strings.FieldsFunc(list, func(r rune) bool {
		return r == '-' || r == ',' || r == '/' || r == ';'
	})
	var out []Source
	for _, f := range fields {
		if s := Normalize(f); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Sort orders sources by their position in priority. Sources missing from
// priority go last and keep their relative order.
func Sort(sources []Source, priority []Source) []Source {
	rank := make(map[Source]int, len(priority))
	for i, p := range priority {
		if _, ok := rank[p]; !ok {
			rank[p] = i
		}
	}
	pos := func(s Source) int {
		if r, ok := rank[s]; ok {
			return r
		}
		return len(priority)
	}
	out := append([]Source(nil), sources...)
	sort.SliceStable(out, func(i, j int) bool {
		return pos(out[i]) < pos(out[j])
	})
	return out
}

// Codes joins sources as uppercase codes separated by commas, no spaces.
func Codes(sources []Source) string {
	parts := make([]string, len(sources))
	for i, s := range sources {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}

// Labels joins the display labels of sources with " - ".
func Labels(sources []Source) string {
	parts := make([]string, len(sources))
	for i, s := range sources {
		parts[i] = s.Label()
	}
	return strings.Join(parts, " - ")
}

// Set is an unordered collection of sources.
type Set map[Source]struct{}

func NewSet(sources ...Source) Set {
	set := make(Set, len(sources))
	for _, s := range sources {
		if s != "" {
			set[s] = struct{}{}
		}
	}
	return set
}

func (s Set) Has(src Source) bool {
	_, ok := s[src]
	return ok
}

// Covers reports whether every source in sources belongs to s.
func (s Set) Covers(sources []Source) bool {
	for _, src := range sources {
		if !s.Has(src) {
			return false
		}
	}
	return true
}

// Sorted returns the members of s in alphabetical code order.
func (s Set) Sorted() []Source {
	out := make([]Source, 0, len(s))
	for src := range s {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Fold strips combining accents from s. A transform.Chain keeps internal
// buffers, so a new one is built on every call.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

func fold(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(Fold(name)) {
		if unicode.IsSpace(r) || r == '_' || r == '.' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
