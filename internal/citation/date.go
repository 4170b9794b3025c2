package citation

import (
	"strings"
	"time"
)

// ISODate is the layout used whenever a date is written back out.
const ISODate = "2006-01-02"

// Date is one date cell of a citation: a calendar day, a free-text status
// reported instead of a date (e.g. "En proceso notificación"), or empty.
// Only calendar days take part in deadline and change arithmetic.
type Date struct {
	day    time.Time
	status string
}

var missingTokens = map[string]bool{
	"": true, "nan": true, "none": true, "null": true, "nat": true,
	"n/a": true, "na": true, "nd": true, "n.d": true, "no aplica": true, "-": true,
}

var dateLayouts = []string{
	"2/1/2006",
	"2/1/06",
	"2-1-2006",
	ISODate,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ParseDate reads a date cell. Missing-value tokens give an empty Date and
// anything that is not a recognised date is kept as a status.
func ParseDate(s string) Date {
	s = strings.TrimSpace(s)
	if missingTokens[strings.ToLower(s)] {
		return Date{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t)
		}
	}
	return Date{status: s}
}

// NewDate wraps the calendar day of t. A zero t gives an empty Date.
func NewDate(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	return Date{day: Day(t)}
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Valid reports whether d holds a calendar day.
func (d Date) Valid() bool { return !d.day.IsZero() }

// Empty reports whether d holds neither a day nor a status.
func (d Date) Empty() bool { return d.day.IsZero() && d.status == "" }

// Time returns the calendar day, or the zero time when d is not Valid.
func (d Date) Time() time.Time { return d.day }

func (d Date) Status() string { return d.status }

// String renders a day as ISO 8601, a status verbatim and empty as "".
func (d Date) String() string {
	if d.Valid() {
		return d.day.Format(ISODate)
	}
	return d.status
}

func (d Date) Equal(o Date) bool {
	return d.day.Equal(o.day) && d.status == o.status
}
