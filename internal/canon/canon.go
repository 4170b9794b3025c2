// Package canon derives the matching key used to recognise the same citation
// across sources that format its identifier differently.
package canon

import (
	"strings"
	"unicode"
)

// MinKeyDigits is the shortest key trusted on its own. Shorter keys are
// still returned by CanonicalKey but are matched only when their plate and
// imposition date are Compatible.
const MinKeyDigits = 11

// CanonicalKey keeps only the ASCII digits of raw. The result may be empty
// or shorter than MinKeyDigits; it is never padded.
func CanonicalKey(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// HasLeadingLetter reports whether raw, once trimmed, is a single letter
// followed by at least eight digits and nothing else.
func HasLeadingLetter(raw string) bool {
	s := strings.TrimSpace(raw)
	if len(s) < 9 {
		return false
	}
	c := s[0]
	if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// IsShort reports whether key is non-empty but below MinKeyDigits.
func IsShort(key string) bool {
	return key != "" && len(key) < MinKeyDigits
}

// Compatible reports whether two observations of the same short key can be
// the same citation. They conflict only when both carry a plate and the
// plates differ, or both carry an imposition date and the dates differ. A
// missing value never splits a citation.
func Compatible(plateA, imposedA, plateB, imposedB string) bool {
	if a, b := normalizePlate(plateA), normalizePlate(plateB); a != "" && b != "" && a != b {
		return false
	}
	a, b := strings.TrimSpace(imposedA), strings.TrimSpace(imposedB)
	return a == "" || b == "" || a == b
}

// Qualify tells apart two citations that share a short key within one day.
// The result is only used as an in-memory row identity; Base recovers the
// canonical key from it.
func Qualify(key, plate, imposed string) string {
	return key + "#" + normalizePlate(plate) + "#" + strings.TrimSpace(imposed)
}

// Base returns the canonical key a row identity was built from.
func Base(key string) string {
	base, _, _ := strings.Cut(key, "#")
	return base
}

func normalizePlate(plate string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(plate) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
