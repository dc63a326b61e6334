package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/timeforge/internal/adapters/ical"
	"github.com/okian/timeforge/internal/adapters/notify"
	"github.com/okian/timeforge/internal/domain/calendar"
	"github.com/okian/timeforge/internal/domain/model"
	"github.com/okian/timeforge/internal/domain/streak"
	"github.com/okian/timeforge/pkg/logger"
	"github.com/okian/timeforge/pkg/metrics"
)

// CalendarView is a rendered day, week or month.
type CalendarView struct {
	View     calendar.View   `json:"view"`
	Anchor   string          `json:"anchor"`
	From     time.Time       `json:"from"`
	To       time.Time       `json:"to"`
	Previous string          `json:"previous"`
	Next     string          `json:"next"`
	Cells    []calendar.Cell `json:"cells"`
}

// DateLayout is the wire format of calendar anchors.
const DateLayout = "2006-01-02"

// Location returns the zone events are bucketed in.
func (s *Service) Location() *time.Location { return s.location }

// Today returns the current date in the service zone.
func (s *Service) Today() time.Time { return calendar.StartOfDay(s.now().In(s.location)) }

// ParseDate reads a DateLayout anchor in the service zone. Empty means today.
func (s *Service) ParseDate(value string) (time.Time, error) {
	if value == "" {
		return s.Today(), nil
	}
	t, err := time.ParseInLocation(DateLayout, value, s.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", value)
	}
	return t, nil
}

// Summary computes owner's streak summary as of now.
func (s *Service) Summary(ctx context.Context, owner string) (streak.Summary, error) {
	events, err := s.events(ctx, owner)
	if err != nil {
		return streak.Summary{}, err
	}
	return s.summarize(events), nil
}

func (s *Service) summarize(events []model.Event) streak.Summary {
	start := time.Now()
	sum := streak.Summarize(events, s.now().In(s.location), s.messages)
	metrics.RecordStreakComputation(float64(time.Since(start).Microseconds())/1000, sum.CurrentStreak)
	return sum
}

// Calendar renders view around anchor for owner.
func (s *Service) Calendar(ctx context.Context, owner string, view calendar.View, anchor time.Time) (CalendarView, error) {
	events, err := s.events(ctx, owner)
	if err != nil {
		return CalendarView{}, err
	}
	anchor = calendar.StartOfDay(anchor.In(s.location))
	from, to := calendar.Range(view, anchor, s.weekStart)
	return CalendarView{
		View:     view,
		Anchor:   anchor.Format(DateLayout),
		From:     from,
		To:       to,
		Previous: calendar.Shift(view, anchor, -1).Format(DateLayout),
		Next:     calendar.Shift(view, anchor, 1).Format(DateLayout),
		Cells:    calendar.Grid(events, view, anchor, s.now().In(s.location), s.weekStart),
	}, nil
}

// ExportICS renders owner's events as an iCalendar document.
func (s *Service) ExportICS(ctx context.Context, owner string) (string, error) {
	events, err := s.events(ctx, owner)
	if err != nil {
		return "", err
	}
	return ical.Export(events, s.now()), nil
}

// handleChange runs on the worker pool for every mutation: it recomputes
// the owner's summary and pushes it, with the change, to connected clients.
func (s *Service) handleChange(ctx context.Context, c model.Change) error {
	events, err := s.store.List(ctx, c.Owner)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}
	sum := s.summarize(events)
	if s.hub.Clients(c.Owner) == 0 {
		return nil
	}
	s.hub.Broadcast(c.Owner, notify.Message{Type: notify.TypeEventChanged, Data: c})
	s.hub.Broadcast(c.Owner, notify.Message{Type: notify.TypeStreakSummary, Data: sum})
	s.logger.Debug(ctx, "pushed summary",
		logger.String("owner", c.Owner), logger.Int("currentStreak", sum.CurrentStreak))
	return nil
}
