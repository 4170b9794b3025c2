// Package calendar does business-day arithmetic under a country's public
// holidays.
package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Discount tier offsets, in business days after the notification date.
const (
	FirstTierDays       = 11
	SecondTierStartDays = 12
	SecondTierEndDays   = 26
)

// Calendar knows which days are holidays for one country.
type Calendar struct {
	country string
	extra   map[time.Time]bool
}

// New returns the calendar for country ("CO" or "" for weekends only) with
// extra days added as holidays.
func New(country string, extra []time.Time) (*Calendar, error) {
	country = strings.ToUpper(strings.TrimSpace(country))
	switch country {
	case "", "CO":
	default:
		return nil, fmt.Errorf("unsupported holiday calendar %q (valid: CO, or empty for none)", country)
	}
	c := &Calendar{country: country, extra: make(map[time.Time]bool, len(extra))}
	for _, d := range extra {
		c.extra[day(d)] = true
	}
	return c, nil
}

// Holidays lists the holidays of year in date order.
func (c *Calendar) Holidays(year int) []time.Time {
	var out []time.Time
	if c.country == "CO" {
		out = colombia(year)
	}
	for d := range c.extra {
		if d.Year() == year {
			out = append(out, d)
		}
	}
	sortDays(out)
	return out
}

// IsBusinessDay reports whether d is a weekday that is not a holiday.
func (c *Calendar) IsBusinessDay(d time.Time) bool {
	return c.isBusinessDay(day(d), c.holidaySet(d.Year(), 1))
}

// AddBusinessDays returns the n-th business day after d, counting from the
// following day. Holidays of d's year and the two years after it are
// skipped. A zero d gives a zero result.
func (c *Calendar) AddBusinessDays(d time.Time, n int) time.Time {
	if d.IsZero() {
		return time.Time{}
	}
	cur := day(d)
	if n <= 0 {
		return cur
	}
	hols := c.holidaySet(cur.Year(), 3)
	for added := 0; added < n; {
		cur = cur.AddDate(0, 0, 1)
		if c.isBusinessDay(cur, hols) {
			added++
		}
	}
	return cur
}

// Deadlines are the discount tier dates derived from a notification date.
// Zero fields mean there was no notification date to count from.
type Deadlines struct {
	FirstTier   time.Time
	SecondStart time.Time
	SecondEnd   time.Time
}

// DeadlinesFrom computes the first tier deadline and the second tier window
// for a citation notified on notified.
func (c *Calendar) DeadlinesFrom(notified time.Time) Deadlines {
	return Deadlines{
		FirstTier:   c.AddBusinessDays(notified, FirstTierDays),
		SecondStart: c.AddBusinessDays(notified, SecondTierStartDays),
		SecondEnd:   c.AddBusinessDays(notified, SecondTierEndDays),
	}
}

func (c *Calendar) isBusinessDay(d time.Time, hols map[time.Time]bool) bool {
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !hols[d]
}

func (c *Calendar) holidaySet(from, years int) map[time.Time]bool {
	set := map[time.Time]bool{}
	for y := from; y < from+years; y++ {
		for _, h := range c.Holidays(y) {
			set[h] = true
		}
	}
	return set
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
