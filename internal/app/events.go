package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/timeforge/internal/domain/calendar"
	"github.com/okian/timeforge/internal/domain/dedupe"
	"github.com/okian/timeforge/internal/domain/model"
	"github.com/okian/timeforge/pkg/logger"
	"github.com/okian/timeforge/pkg/metrics"
)

// ListEvents returns owner's events sorted by start. Zero bounds are open;
// otherwise only events starting in [from, to) are returned.
func (s *Service) ListEvents(ctx context.Context, owner string, from, to time.Time) ([]model.Event, error) {
	events, err := s.events(ctx, owner)
	if err != nil {
		return nil, err
	}
	return calendar.Between(events, from, to), nil
}

// GetEvent returns one event.
func (s *Service) GetEvent(ctx context.Context, owner, id string) (model.Event, error) {
	if err := s.seed(ctx, owner); err != nil {
		return model.Event{}, err
	}
	return s.store.Get(ctx, owner, id)
}

// CreateEvent validates d and stores a new event. When idempotencyKey is
// non-empty and was already used by owner, nothing is created and
// duplicate is true.
func (s *Service) CreateEvent(ctx context.Context, owner string, d model.Draft, idempotencyKey string) (e model.Event, duplicate bool, err error) {
	if err := d.Validate(); err != nil {
		return model.Event{}, false, err
	}
	if err := s.seed(ctx, owner); err != nil {
		return model.Event{}, false, err
	}

	var key string
	if idempotencyKey != "" {
		if !s.Started() {
			return model.Event{}, false, ErrNotStarted
		}
		key = dedupe.Key(owner, idempotencyKey)
		if s.deduper.SeenAndRecord(ctx, key) {
			metrics.RecordIdempotentReplay()
			s.logger.Debug(ctx, "duplicate create skipped",
				logger.String("owner", owner), logger.String("idempotencyKey", idempotencyKey))
			return model.Event{}, true, nil
		}
	}

	e = model.NewEvent(s.newID(), owner, d, s.now())
	if err := s.store.Add(ctx, e); err != nil {
		if key != "" {
			s.deduper.Unrecord(ctx, key)
		}
		return model.Event{}, false, err
	}
	s.publish(ctx, model.ChangeCreated, owner, e.ID)
	return e, false, nil
}

// UpdateEvent replaces the editable fields of an event, keeping its completion flag.
func (s *Service) UpdateEvent(ctx context.Context, owner, id string, d model.Draft) (model.Event, error) {
	if err := d.Validate(); err != nil {
		return model.Event{}, err
	}
	if err := s.seed(ctx, owner); err != nil {
		return model.Event{}, err
	}
	e, err := s.store.Replace(ctx, owner, id, d)
	if err != nil {
		return model.Event{}, err
	}
	s.publish(ctx, model.ChangeUpdated, owner, id)
	return e, nil
}

// DeleteEvent removes an event.
func (s *Service) DeleteEvent(ctx context.Context, owner, id string) error {
	if err := s.seed(ctx, owner); err != nil {
		return err
	}
	if err := s.store.Remove(ctx, owner, id); err != nil {
		return err
	}
	s.publish(ctx, model.ChangeDeleted, owner, id)
	return nil
}

// ToggleEvent flips the completion flag of an event.
func (s *Service) ToggleEvent(ctx context.Context, owner, id string) (model.Event, error) {
	if err := s.seed(ctx, owner); err != nil {
		return model.Event{}, err
	}
	e, err := s.store.ToggleCompleted(ctx, owner, id)
	if err != nil {
		return model.Event{}, err
	}
	s.publish(ctx, model.ChangeToggled, owner, id)
	return e, nil
}

// events returns the owner's collection, seeding it first if needed.
func (s *Service) events(ctx context.Context, owner string) ([]model.Event, error) {
	if err := s.seed(ctx, owner); err != nil {
		return nil, err
	}
	return s.store.List(ctx, owner)
}

// seed fills an empty collection with the demo week the first time the
// owner is seen by this process.
func (s *Service) seed(ctx context.Context, owner string) error {
	if !s.seedDemo {
		return nil
	}
	s.seedMu.Lock()
	defer s.seedMu.Unlock()
	if _, done := s.seeded[owner]; done {
		return nil
	}

	existing, err := s.store.List(ctx, owner)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		for _, e := range model.DemoWeek(owner, s.now().In(s.location), s.newID) {
			if err := s.store.Add(ctx, e); err != nil {
				return fmt.Errorf("seed demo week: %w", err)
			}
		}
		s.logger.Info(ctx, "seeded demo week", logger.String("owner", owner))
		s.publish(ctx, model.ChangeCreated, owner, "")
	}
	s.seeded[owner] = struct{}{}
	return nil
}

// publish enqueues a change for the workers. A full or closed queue drops
// the change; the mutation itself has already succeeded.
func (s *Service) publish(ctx context.Context, kind model.ChangeKind, owner, id string) {
	s.mu.RLock()
	q := s.queue
	started := s.started
	s.mu.RUnlock()
	if !started {
		return
	}
	c := model.Change{Kind: kind, Owner: owner, EventID: id, At: s.now()}
	if !q.Enqueue(ctx, c) {
		s.logger.Warn(ctx, "change dropped",
			logger.String("kind", string(kind)), logger.String("owner", owner), logger.String("eventId", id))
	}
}
