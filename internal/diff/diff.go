// Package diff reconciles today's aggregate against yesterday's snapshot.
//
// Keys only in today are new, keys in both are retained and keys only in
// yesterday are removal candidates. Short keys also match across days when
// their plate and imposition date do not conflict. A candidate is held back (suppressed)
// while every source that last reported it is flagged down and the grace
// period since it was last seen has not elapsed. Retained keys reported by
// the authoritative source on both days are checked for notification date
// changes, and new and changed rows get their discount deadlines.
package diff

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Haunes/ComparendosTransito/internal/calendar"
	"github.com/Haunes/ComparendosTransito/internal/canon"
	"github.com/Haunes/ComparendosTransito/internal/citation"
	"github.com/Haunes/ComparendosTransito/internal/memory"
	"github.com/Haunes/ComparendosTransito/internal/source"
)

// DefaultGraceDays is how long a citation whose sources are all down is
// kept before its absence counts as a removal.
const DefaultGraceDays = 2

// Kind classifies a notification date change.
type Kind string

const (
	// Updated: yesterday had no notification date, today has one.
	Updated Kind = "ACTUALIZADO"
	// Modified: both days have a notification date and they differ.
	Modified Kind = "MODIFICADO"
)

// Options configure one Diff call.
type Options struct {
	// Today is the run date. Defaults to the current day.
	Today     time.Time
	Down      []source.Source
	GraceDays int
	// Authority is the source whose notification date is legally binding.
	// Defaults to SIMIT.
	Authority source.Source
	// Calendar defaults to the Colombian holiday calendar.
	Calendar *calendar.Calendar
	Logger   *zap.Logger
}

// Dated is a row with its discount deadlines.
type Dated struct {
	citation.Row
	calendar.Deadlines
}

// Change is a retained citation whose authoritative notification date
// was filled in or changed.
type Change struct {
	Key    string
	ID     string
	Plate  string
	Before citation.Date
	After  citation.Date
	Kind   Kind
	calendar.Deadlines
}

// Result holds the outcome of one reconciliation.
type Result struct {
	New      []Dated
	Removed  []citation.Row
	Retained []citation.Row
	Modified []Change

	// Suppressed are removal candidates held back by the grace rule.
	Suppressed []citation.Row

	Active    []source.Source
	GraceDays int
	Dropped   int
}

// Diff compares today against yesterday and returns the result together
// with the ledger updated with today's observations. mem is only read; the
// merge happens after every classification is done.
func Diff(today, yesterday citation.Snapshot, mem memory.Ledger, opts Options) (Result, memory.Ledger) {
	opts = opts.withDefaults()
	log := opts.Logger

	todayRows, droppedToday := keyed(today.Rows)
	yesterdayRows, droppedYesterday := keyed(yesterday.Rows)
	if droppedToday+droppedYesterday > 0 {
		log.Warn("excluded rows without canonical key",
			zap.Int("today", droppedToday),
			zap.Int("yesterday", droppedYesterday))
	}

	pairs, matched := pair(todayRows, yesterdayRows)

	res := Result{
		New:        []Dated{},
		Removed:    []citation.Row{},
		Retained:   []citation.Row{},
		Modified:   []Change{},
		Suppressed: []citation.Row{},
		GraceDays:  opts.GraceDays,
		Dropped:    today.Dropped + yesterday.Dropped + droppedToday + droppedYesterday,
	}

	for i, row := range todayRows {
		if _, ok := pairs[i]; ok {
			res.Retained = append(res.Retained, row)
			continue
		}
		res.New = append(res.New, Dated{Row: row, Deadlines: opts.Calendar.DeadlinesFrom(row.Notified.Time())})
	}

	down := source.NewSet(opts.Down...)
	todayDay := citation.Day(opts.Today)
	for j, row := range yesterdayRows {
		if matched[j] {
			continue
		}
		if held(row.CanonicalKey(), mem, down, todayDay, opts.GraceDays) {
			log.Debug("removal suppressed, sources down", zap.String("key", row.Key), zap.String("id", row.ID))
			res.Suppressed = append(res.Suppressed, row)
			continue
		}
		res.Removed = append(res.Removed, row)
	}

	for i, row := range todayRows {
		j, ok := pairs[i]
		if !ok {
			continue
		}
		if c, ok := detectChange(yesterdayRows[j], row, opts.Authority); ok {
			c.Deadlines = opts.Calendar.DeadlinesFrom(c.After.Time())
			res.Modified = append(res.Modified, c)
		}
	}
	sort.SliceStable(res.Modified, func(i, j int) bool { return res.Modified[i].ID < res.Modified[j].ID })

	res.Active = activeSources(todayRows)

	next := memory.Merge(mem, citation.Snapshot{Rows: todayRows}, opts.Today)
	log.Info("diff complete",
		zap.Int("new", len(res.New)),
		zap.Int("removed", len(res.Removed)),
		zap.Int("retained", len(res.Retained)),
		zap.Int("modified", len(res.Modified)),
		zap.Int("suppressed", len(res.Suppressed)),
		zap.Int("memory_version", next.Version()))
	return res, next
}

// held decides whether a removal candidate stays suppressed. Suppression
// needs a memory entry whose last-seen sources are all down. An entry
// without a last-seen date cannot prove the grace period has elapsed, so it
// stays held.
func held(key string, mem memory.Ledger, down source.Set, today time.Time, grace int) bool {
	if len(down) == 0 {
		return false
	}
	e, ok := mem.Get(key)
	if !ok || len(e.Sources) == 0 || !down.Covers(e.Sources) {
		return false
	}
	if e.LastSeen.IsZero() {
		return true
	}
	gap := int(today.Sub(citation.Day(e.LastSeen)).Hours() / 24)
	return gap <= grace
}

func detectChange(before, after citation.Row, authority source.Source) (Change, bool) {
	prev, ok := before.NotifiedBy(authority)
	if !ok {
		return Change{}, false
	}
	cur, ok := after.Notices[authority]
	if !ok {
		return Change{}, false
	}

	var kind Kind
	switch {
	case !prev.Valid() && cur.Valid():
		kind = Updated
	case prev.Valid() && cur.Valid() && !prev.Time().Equal(cur.Time()):
		kind = Modified
	default:
		return Change{}, false
	}

	c := Change{
		Key:    after.CanonicalKey(),
		ID:     after.ID,
		Plate:  after.Plate,
		Before: prev,
		After:  cur,
		Kind:   kind,
	}
	if !canon.HasLeadingLetter(c.ID) && canon.HasLeadingLetter(before.ID) {
		c.ID = before.ID
	}
	if c.Plate == "" {
		c.Plate = before.Plate
	}
	return c, true
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Today.IsZero() {
		o.Today = citation.Day(time.Now())
	}
	if o.Authority == "" {
		o.Authority = source.Simit
	}
	if o.Calendar == nil {
		o.Calendar, _ = calendar.New("CO", nil)
	}
	if o.GraceDays < 0 {
		o.GraceDays = 0
	}
	return o
}

func keyed(rows []citation.Row) ([]citation.Row, int) {
	out := make([]citation.Row, 0, len(rows))
	dropped := 0
	for _, r := range rows {
		if r.Key == "" {
			dropped++
			continue
		}
		out = append(out, r)
	}
	return out, dropped
}

// pair matches today's rows to yesterday's. Rows with equal keys pair
// first. Leftover rows sharing a short canonical key then pair with the
// first compatible partner, so a plate or date missing on one day does not
// turn one citation into a new row and a removed row. pairs maps a today
// index to a yesterday index; matched marks the yesterday side.
func pair(today, yesterday []citation.Row) (map[int]int, []bool) {
	pairs := make(map[int]int, len(today))
	matched := make([]bool, len(yesterday))

	byKey := make(map[string]int, len(yesterday))
	for j, r := range yesterday {
		if _, ok := byKey[r.Key]; !ok {
			byKey[r.Key] = j
		}
	}
	for i, r := range today {
		if j, ok := byKey[r.Key]; ok && !matched[j] {
			pairs[i] = j
			matched[j] = true
		}
	}

	short := map[string][]int{}
	for j, r := range yesterday {
		if !matched[j] && canon.IsShort(r.CanonicalKey()) {
			short[r.CanonicalKey()] = append(short[r.CanonicalKey()], j)
		}
	}
	if len(short) == 0 {
		return pairs, matched
	}
	for i, r := range today {
		if _, ok := pairs[i]; ok {
			continue
		}
		for _, j := range short[r.CanonicalKey()] {
			y := yesterday[j]
			if matched[j] || !canon.Compatible(y.Plate, y.Imposed.String(), r.Plate, r.Imposed.String()) {
				continue
			}
			pairs[i] = j
			matched[j] = true
			break
		}
	}
	return pairs, matched
}

func activeSources(rows []citation.Row) []source.Source {
	set := source.NewSet()
	for _, r := range rows {
		for _, s := range r.Sources {
			set[s] = struct{}{}
		}
	}
	return set.Sorted()
}
