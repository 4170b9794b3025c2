package calendar

import (
	"sort"
	"time"
)

// colombia returns the public holidays of year under Ley 51 de 1983: some
// fixed dates, some moved to the following Monday, and the Easter-based
// feasts.
func colombia(year int) []time.Time {
	date := func(m time.Month, d int) time.Time {
		return time.Date(year, m, d, 0, 0, 0, 0, time.UTC)
	}
	easter := easterSunday(year)

	days := []time.Time{
		date(time.January, 1),
		date(time.May, 1),
		date(time.July, 20),
		date(time.August, 7),
		date(time.December, 8),
		date(time.December, 25),

		nextMonday(date(time.January, 6)),
		nextMonday(date(time.March, 19)),
		nextMonday(date(time.June, 29)),
		nextMonday(date(time.August, 15)),
		nextMonday(date(time.October, 12)),
		nextMonday(date(time.November, 1)),
		nextMonday(date(time.November, 11)),

		easter.AddDate(0, 0, -3),
		easter.AddDate(0, 0, -2),
		nextMonday(easter.AddDate(0, 0, 39)),
		nextMonday(easter.AddDate(0, 0, 60)),
		nextMonday(easter.AddDate(0, 0, 68)),
	}
	sortDays(days)
	return days
}

// nextMonday returns d itself when it is a Monday, otherwise the Monday
// after it.
func nextMonday(d time.Time) time.Time {
	shift := (int(time.Monday) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, shift)
}

// easterSunday uses the anonymous Gregorian algorithm.
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func sortDays(days []time.Time) {
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
}
