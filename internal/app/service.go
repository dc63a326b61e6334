// Package service wires the event store, streak engine, reminders and
// suggestions behind the dependencies required by the HTTP API.
package service

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/timeforge/internal/adapters/identity"
	eventqueue "github.com/okian/timeforge/internal/adapters/mq/queue"
	workerpool "github.com/okian/timeforge/internal/adapters/mq/worker"
	"github.com/okian/timeforge/internal/adapters/notify"
	"github.com/okian/timeforge/internal/adapters/repository"
	"github.com/okian/timeforge/internal/adapters/suggest"
	"github.com/okian/timeforge/internal/config"
	"github.com/okian/timeforge/internal/domain/dedupe"
	"github.com/okian/timeforge/internal/domain/reminder"
	"github.com/okian/timeforge/pkg/logger"
	"github.com/okian/timeforge/pkg/metrics"
)

// Service implements the API dependencies for the scheduler.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	deduper   dedupe.Deduper
	queue     eventqueue.Queue
	pool      *workerpool.Pool
	hub       *notify.Hub
	reminders *notify.Scheduler
	suggester suggest.Suggester
	accounts  *identity.Service

	// Configuration
	workerCount      int
	queueSize        int
	dedupeSize       int
	location         *time.Location
	weekStart        time.Weekday
	messages         []string
	seedDemo         bool
	reminderSchedule string
	reminderLead     time.Duration
	suggestTimeout   time.Duration
	backend          string
	now              func() time.Time
	newID            func() string

	// State
	started  bool
	released bool
	seedMu   sync.Mutex
	seeded   map[string]struct{}
	closers  []func() error

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of summary workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the change queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many idempotency keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the event store. The service closes it on Stop.
func WithStore(store repository.Store, backend string) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
			s.backend = backend
		}
	}
}

// WithSuggester sets the slot suggester.
func WithSuggester(sg suggest.Suggester) Option {
	return func(s *Service) {
		if sg != nil {
			s.suggester = sg
		}
	}
}

// WithAccounts enables the auth-gated mode backed by accounts.
func WithAccounts(accounts *identity.Service) Option {
	return func(s *Service) { s.accounts = accounts }
}

// WithLocation sets the zone used to bucket events into days.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithWeekStart sets the first day of calendar weeks.
func WithWeekStart(d time.Weekday) Option {
	return func(s *Service) { s.weekStart = d }
}

// WithMotivationalMessages sets the streak message rotation.
func WithMotivationalMessages(msgs []string) Option {
	return func(s *Service) {
		if len(msgs) > 0 {
			s.messages = msgs
		}
	}
}

// WithDemoSeed toggles seeding empty collections with the demo week.
func WithDemoSeed(enabled bool) Option {
	return func(s *Service) { s.seedDemo = enabled }
}

// WithReminders sets the reminder cron schedule and lead time.
func WithReminders(schedule string, lead time.Duration) Option {
	return func(s *Service) {
		if schedule != "" {
			s.reminderSchedule = schedule
		}
		if lead > 0 {
			s.reminderLead = lead
		}
	}
}

// WithSuggestTimeout bounds each suggestion request.
func WithSuggestTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.suggestTimeout = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides event id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithCloser registers cleanup run after the store is closed on Stop.
func WithCloser(fn func() error) Option {
	return func(s *Service) {
		if fn != nil {
			s.closers = append(s.closers, fn)
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:      runtime.NumCPU(),
		queueSize:        10_000,
		dedupeSize:       10_000,
		location:         time.Local,
		weekStart:        time.Sunday,
		messages:         config.DefaultMotivationalMessages(),
		reminderSchedule: notify.DefaultSchedule,
		reminderLead:     reminder.DefaultLead,
		suggestTimeout:   30 * time.Second,
		suggester:        suggest.Disabled{},
		now:              time.Now,
		newID:            uuid.NewString,
		seeded:           make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.backend = "memory"
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting timeforge service...")

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.hub = notify.NewHub(s.logger.Named("notify"))

	s.pool = workerpool.NewPool(s.workerCount, s.queue, workerpool.HandlerFunc(s.handleChange))
	s.pool.Start(ctx)

	s.reminders = notify.NewScheduler(s.store, s.hub,
		notify.WithLead(s.reminderLead),
		notify.WithSchedulerClock(s.now),
		notify.WithSchedulerLogger(s.logger.Named("reminders")),
	)
	if err := s.reminders.Start(s.reminderSchedule); err != nil {
		_ = s.pool.Shutdown(ctx)
		return err
	}

	metrics.UpdateEventsStored(s.store.Count(ctx))

	s.started = true
	s.released = false
	s.logger.Info(ctx, "timeforge service started",
		logger.String("store", s.backend),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Bool("auth", s.accounts != nil),
	)
	return nil
}

// Stop gracefully shuts down the service: reminders first, then clients,
// workers, and finally storage.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping timeforge service...")

	s.reminders.Stop()
	s.hub.Close()
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	s.releaseLocked(ctx)

	s.started = false
	s.logger.Info(ctx, "timeforge service stopped")
}

// Close releases the store and registered resources of a service that never
// started or whose Start failed. A running service is stopped instead.
func (s *Service) Close() {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if started {
		s.Stop()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked(context.Background())
}

// releaseLocked closes storage and then the registered closers, once.
func (s *Service) releaseLocked(ctx context.Context) {
	if s.released {
		return
	}
	s.released = true
	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "closing store", logger.Error(err))
	}
	for _, fn := range s.closers {
		if err := fn(); err != nil {
			s.logger.Error(ctx, "closing resource", logger.Error(err))
		}
	}
}

// Started reports whether Start has completed.
func (s *Service) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// ServeWS streams owner's notifications over a websocket until the client leaves.
func (s *Service) ServeWS(w http.ResponseWriter, r *http.Request, owner string) error {
	s.mu.RLock()
	hub := s.hub
	started := s.started
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}
	return hub.ServeWS(w, r, owner)
}

// RunReminders runs one reminder scan immediately.
func (s *Service) RunReminders(ctx context.Context) (int, error) {
	s.mu.RLock()
	sched := s.reminders
	started := s.started
	s.mu.RUnlock()
	if !started {
		return 0, ErrNotStarted
	}
	return sched.Tick(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":            s.started,
		"store":              s.backend,
		"workerCount":        s.workerCount,
		"queueSize":          s.queueSize,
		"dedupeSize":         s.dedupeSize,
		"timezone":           s.location.String(),
		"weekStart":          s.weekStart.String(),
		"authEnabled":        s.accounts != nil,
		"suggestionsEnabled": !isDisabled(s.suggester),
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		events := s.store.Count(ctx)
		stats["queueLength"] = queueLen
		stats["eventsStored"] = events
		stats["idempotencyKeys"] = s.deduper.Size()
		stats["websocketClients"] = s.hub.Total()
		if owners, err := s.store.Owners(ctx); err == nil {
			stats["owners"] = len(owners)
		}

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateEventsStored(events)
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}

// Size returns the number of remembered idempotency keys.
func (s *Service) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

func isDisabled(sg suggest.Suggester) bool {
	_, ok := sg.(suggest.Disabled)
	return ok
}
