// Package reminder decides which events are about to start.
package reminder

import (
	"sort"
	"time"

	"github.com/okian/timeforge/internal/domain/model"
)

// Defaults for the "starting soon" window.
const (
	DefaultLead = 5 * time.Minute
	DefaultTick = time.Minute
)

// Due returns the uncompleted events that start within (lead-tick, lead] of now,
// ordered by start. Scanning every tick announces each event exactly once.
// Events that already started are never due.
func Due(events []model.Event, now time.Time, lead, tick time.Duration) []model.Event {
	if lead <= 0 {
		lead = DefaultLead
	}
	if tick <= 0 {
		tick = DefaultTick
	}
	lower := lead - tick
	if lower < 0 {
		lower = 0
	}
	var due []model.Event
	for i := range events {
		if events[i].Completed {
			continue
		}
		until := events[i].Start.Sub(now)
		if until > lower && until <= lead {
			due = append(due, events[i])
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].Start.Before(due[j].Start) })
	return due
}
