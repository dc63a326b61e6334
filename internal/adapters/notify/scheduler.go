package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/okian/timeforge/internal/domain/model"
	"github.com/okian/timeforge/internal/domain/reminder"
	"github.com/okian/timeforge/pkg/logger"
	"github.com/okian/timeforge/pkg/metrics"
)

// DefaultSchedule runs the reminder scan once a minute.
const DefaultSchedule = "@every 1m"

// EventSource lists events per owner.
type EventSource interface {
	Owners(ctx context.Context) ([]string, error)
	List(ctx context.Context, owner string) ([]model.Event, error)
}

// Publisher delivers a message to an owner's clients.
type Publisher interface {
	Broadcast(owner string, msg Message) int
}

// Reminder is the payload of an upcoming_event message.
type Reminder struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Event       model.Event `json:"event"`
}

// Scheduler periodically announces events that are about to start.
type Scheduler struct {
	src  EventSource
	pub  Publisher
	lead time.Duration
	tick time.Duration
	now  func() time.Time
	log  logger.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithLead sets how long before start an event is announced.
func WithLead(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.lead = d
		}
	}
}

// WithTick fixes the scan interval used for the due window instead of
// deriving it from the schedule.
func WithTick(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithSchedulerClock overrides the time source.
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSchedulerLogger sets the scheduler logger.
func WithSchedulerLogger(l logger.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// NewScheduler returns a stopped scheduler reading from src and pushing to pub.
func NewScheduler(src EventSource, pub Publisher, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		src:  src,
		pub:  pub,
		lead: reminder.DefaultLead,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("reminders")
	}
	return s
}

// Start registers the scan on a cron schedule (standard five-field or
// descriptors such as "@every 1m") and starts the cron runner.
func (s *Scheduler) Start(spec string) error {
	if spec == "" {
		spec = DefaultSchedule
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("parse reminder schedule %q: %w", spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	if s.tick <= 0 {
		s.tick = interval(sched, s.now())
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(sched, cron.FuncJob(func() {
		if _, err := s.Tick(context.Background()); err != nil {
			s.log.Error(context.Background(), "reminder scan failed", logger.Error(err))
		}
	}))
	c.Start()
	s.cron = c
	s.running = true
	s.log.Info(context.Background(), "reminder scheduler started",
		logger.String("schedule", spec), logger.Duration("lead", s.lead), logger.Duration("tick", s.tick))
	return nil
}

// Stop cancels the recurring job and waits for a running scan to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.running = false
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// Tick scans every owner once and pushes reminders for due events.
// It returns the number of reminders sent.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	owners, err := s.src.Owners(ctx)
	if err != nil {
		return 0, fmt.Errorf("list owners: %w", err)
	}
	now := s.now()
	tick := s.tick
	sent := 0
	for _, owner := range owners {
		events, err := s.src.List(ctx, owner)
		if err != nil {
			s.log.Warn(ctx, "skip owner in reminder scan", logger.String("owner", owner), logger.Error(err))
			continue
		}
		for _, e := range reminder.Due(events, now, s.lead, tick) {
			s.pub.Broadcast(owner, Message{Type: TypeUpcomingEvent, Data: s.reminderFor(e)})
			metrics.RecordReminderSent()
			sent++
		}
	}
	return sent, nil
}

func (s *Scheduler) reminderFor(e model.Event) Reminder {
	return Reminder{
		Title:       "Upcoming Event",
		Description: fmt.Sprintf("%s starts in %d minutes.", e.Title, int(s.lead/time.Minute)),
		Event:       e,
	}
}

// interval measures the gap between two consecutive activations of sched.
func interval(sched cron.Schedule, from time.Time) time.Duration {
	first := sched.Next(from)
	d := sched.Next(first).Sub(first)
	if d <= 0 {
		return reminder.DefaultTick
	}
	return d
}
