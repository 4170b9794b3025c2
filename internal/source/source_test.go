package source

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  Source
		err   bool
	}{
		{"SIMIT", Simit, false},
		{"simit", Simit, false},
		{" Fenix ", Fenix, false},
		{"Santa Marta", SantaMarta, false},
		{"santa_marta", SantaMarta, false},
		{"Itagüí", Itagui, false},
		{"Medellín", Medellin, false},
		{"Bogota", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.input)
		if tt.err {
			if !errors.Is(err, ErrUnknown) {
				t.Errorf("Parse(%q): expected ErrUnknown, got %v", tt.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeKeepsUnknown(t *testing.T) {
	if got := Normalize("Tránsito Bogotá"); got != "TRANSITOBOGOTA" {
		t.Errorf("Normalize unknown = %q", got)
	}
	if got := Normalize("   "); got != "" {
		t.Errorf("Normalize blank = %q, want empty", got)
	}
}

func TestFold(t *testing.T) {
	tests := map[string]string{
		"Número de Notificación": "Numero de Notificacion",
		"Itagüí":                 "Itagui",
		"BOLÍVAR":                "BOLIVAR",
		"plain":                  "plain",
		"":                       "",
	}
	for in, want := range tests {
		if got := Fold(in); got != want {
			t.Errorf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLabelRoundTrip(t *testing.T) {
	for _, s := range All() {
		got, err := Parse(s.Label())
		if err != nil {
			t.Fatalf("Parse(%q): %v", s.Label(), err)
		}
		if got != s {
			t.Errorf("Parse(Label(%s)) = %s", s, got)
		}
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		input string
		want  []Source
	}{
		{"Simit - Santa Marta", []Source{Simit, SantaMarta}},
		{"SIMIT-FENIX", []Source{Simit, Fenix}},
		{"SIMIT,FENIX;CALI/BELLO", []Source{Simit, Fenix, Cali, Bello}},
		{" - ", nil},
		{"", nil},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, Split(tt.input)); diff != "" {
			t.Errorf("Split(%q) mismatch (-want +got):\n%s", tt.input, diff)
		}
	}
}

func TestSortByPriority(t *testing.T) {
	priority := []Source{Simit, Fenix, Cali}
	in := []Source{"OTRA", Cali, "ZETA", Simit, Fenix}
	got := Sort(in, priority)
	want := []Source{Simit, Fenix, Cali, "OTRA", "ZETA"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Sort mismatch (-want +got):\n%s", diff)
	}
	if in[0] != "OTRA" {
		t.Error("Sort must not reorder its input")
	}
}

func TestSetCovers(t *testing.T) {
	down := NewSet(Fenix, Cali)
	if !down.Covers([]Source{Fenix}) {
		t.Error("expected {FENIX} covered")
	}
	if down.Covers([]Source{Fenix, Simit}) {
		t.Error("expected {FENIX, SIMIT} not covered")
	}
	if got := Codes(down.Sorted()); got != "CALI,FENIX" {
		t.Errorf("Sorted codes = %q", got)
	}
}

func TestLabels(t *testing.T) {
	if got := Labels([]Source{Simit, SantaMarta}); got != "Simit - Santa Marta" {
		t.Errorf("Labels = %q", got)
	}
}
