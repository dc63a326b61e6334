// Package calendar lays events out as day, week and month views.
package calendar

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/okian/timeforge/internal/domain/model"
)

// View is the calendar granularity.
type View string

const (
	ViewDay   View = "day"
	ViewWeek  View = "week"
	ViewMonth View = "month"
)

// ErrUnknownView is returned by ParseView.
var ErrUnknownView = errors.New("view must be day, week or month")

// ParseView parses a view name. An empty string means month.
func ParseView(s string) (View, error) {
	switch View(strings.ToLower(strings.TrimSpace(s))) {
	case "", ViewMonth:
		return ViewMonth, nil
	case ViewWeek:
		return ViewWeek, nil
	case ViewDay:
		return ViewDay, nil
	}
	return "", ErrUnknownView
}

// Cell is one day of a rendered view.
type Cell struct {
	Date    time.Time     `json:"date"`
	InMonth bool          `json:"inMonth"`
	IsToday bool          `json:"isToday"`
	Events  []model.Event `json:"events"`
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same civil date in a's location.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}

// StartOfWeek returns midnight of the first day of t's week.
func StartOfWeek(t time.Time, weekStart time.Weekday) time.Time {
	diff := (int(t.Weekday()) - int(weekStart) + 7) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-diff, 0, 0, 0, 0, t.Location())
}

func addDays(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, t.Location())
}

// Range returns the half-open interval [from, to) covered by a view.
// Month views cover whole weeks, so they include the spill-over days.
func Range(v View, anchor time.Time, weekStart time.Weekday) (from, to time.Time) {
	switch v {
	case ViewDay:
		from = StartOfDay(anchor)
		return from, addDays(from, 1)
	case ViewWeek:
		from = StartOfWeek(anchor, weekStart)
		return from, addDays(from, 7)
	default:
		y, m, _ := anchor.Date()
		first := time.Date(y, m, 1, 0, 0, 0, 0, anchor.Location())
		last := time.Date(y, m+1, 0, 0, 0, 0, 0, anchor.Location())
		from = StartOfWeek(first, weekStart)
		to = addDays(StartOfWeek(last, weekStart), 7)
		return from, to
	}
}

// Days lists midnight of every day in the view.
func Days(v View, anchor time.Time, weekStart time.Weekday) []time.Time {
	from, to := Range(v, anchor, weekStart)
	var days []time.Time
	for d := from; d.Before(to); d = addDays(d, 1) {
		days = append(days, d)
	}
	return days
}

// Shift moves anchor by delta days, weeks or months. Month shifts clamp to the
// last day of the target month.
func Shift(v View, anchor time.Time, delta int) time.Time {
	switch v {
	case ViewDay:
		return anchor.AddDate(0, 0, delta)
	case ViewWeek:
		return anchor.AddDate(0, 0, 7*delta)
	default:
		y, m, d := anchor.Date()
		h, mi, s := anchor.Clock()
		lastDay := time.Date(y, m+time.Month(delta)+1, 0, 0, 0, 0, 0, anchor.Location()).Day()
		if d > lastDay {
			d = lastDay
		}
		return time.Date(y, m+time.Month(delta), d, h, mi, s, anchor.Nanosecond(), anchor.Location())
	}
}

func sortByStart(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })
}

// EventsOn returns the events starting on day, ordered by start.
func EventsOn(events []model.Event, day time.Time) []model.Event {
	out := make([]model.Event, 0)
	for i := range events {
		if SameDay(day, events[i].Start) {
			out = append(out, events[i])
		}
	}
	sortByStart(out)
	return out
}

// Between returns the events starting in [from, to), ordered by start.
// A zero bound is open.
func Between(events []model.Event, from, to time.Time) []model.Event {
	out := make([]model.Event, 0, len(events))
	for i := range events {
		s := events[i].Start
		if !from.IsZero() && s.Before(from) {
			continue
		}
		if !to.IsZero() && !s.Before(to) {
			continue
		}
		out = append(out, events[i])
	}
	sortByStart(out)
	return out
}

// Grid renders the cells of a view around anchor. now marks today.
func Grid(events []model.Event, v View, anchor, now time.Time, weekStart time.Weekday) []Cell {
	days := Days(v, anchor, weekStart)
	cells := make([]Cell, 0, len(days))
	for _, d := range days {
		cells = append(cells, Cell{
			Date:    d,
			InMonth: d.Month() == anchor.Month() && d.Year() == anchor.Year(),
			IsToday: SameDay(d, now),
			Events:  EventsOn(events, d),
		})
	}
	return cells
}
