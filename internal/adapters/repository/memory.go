package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/okian/timeforge/internal/domain/model"
	"github.com/okian/timeforge/pkg/metrics"
)

// MemoryStore keeps every collection in process memory.
type MemoryStore struct {
	opts    options
	mu      sync.RWMutex
	byOwner map[string]map[string]model.Event
	total   int
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		opts:    newOptions(opts),
		byOwner: make(map[string]map[string]model.Event),
	}
}

func sortByStart(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Start.Equal(events[j].Start) {
			return events[i].ID < events[j].ID
		}
		return events[i].Start.Before(events[j].Start)
	})
}

func (s *MemoryStore) List(_ context.Context, owner string) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll := s.byOwner[owner]
	out := make([]model.Event, 0, len(coll))
	for _, e := range coll {
		out = append(out, e)
	}
	sortByStart(out)
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, owner, id string) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byOwner[owner][id]
	if !ok {
		return model.Event{}, ErrNotFound
	}
	return e, nil
}

func (s *MemoryStore) Add(_ context.Context, e model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(e)
}

func (s *MemoryStore) addLocked(e model.Event) error {
	if err := s.insertLocked(e); err != nil {
		return err
	}
	metrics.RecordEventMutation("create")
	metrics.UpdateEventsStored(s.total)
	return nil
}

func (s *MemoryStore) insertLocked(e model.Event) error {
	coll, ok := s.byOwner[e.Owner]
	if !ok {
		coll = make(map[string]model.Event)
		s.byOwner[e.Owner] = coll
	}
	if _, dup := coll[e.ID]; dup {
		return ErrDuplicateID
	}
	coll[e.ID] = e
	s.total++
	return nil
}

func (s *MemoryStore) Replace(_ context.Context, owner, id string, d model.Draft) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byOwner[owner][id]
	if !ok {
		return model.Event{}, ErrNotFound
	}
	e = e.Apply(d, s.opts.now())
	s.byOwner[owner][id] = e
	metrics.RecordEventMutation("update")
	return e, nil
}

func (s *MemoryStore) Remove(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.byOwner[owner]
	if _, ok := coll[id]; !ok {
		return ErrNotFound
	}
	delete(coll, id)
	if len(coll) == 0 {
		delete(s.byOwner, owner)
	}
	s.total--
	metrics.RecordEventMutation("delete")
	metrics.UpdateEventsStored(s.total)
	return nil
}

func (s *MemoryStore) ToggleCompleted(_ context.Context, owner, id string) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byOwner[owner][id]
	if !ok {
		return model.Event{}, ErrNotFound
	}
	e.Completed = !e.Completed
	e.UpdatedAt = s.opts.now()
	s.byOwner[owner][id] = e
	metrics.RecordEventMutation("toggle")
	return e, nil
}

func (s *MemoryStore) Owners(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owners := make([]string, 0, len(s.byOwner))
	for o := range s.byOwner {
		owners = append(owners, o)
	}
	sort.Strings(owners)
	return owners, nil
}

func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

func (s *MemoryStore) Close() error { return nil }

// snapshotLocked returns every event of every owner. Caller holds at least a read lock.
func (s *MemoryStore) snapshotLocked() []model.Event {
	all := make([]model.Event, 0, s.total)
	for _, coll := range s.byOwner {
		for _, e := range coll {
			all = append(all, e)
		}
	}
	sortByStart(all)
	return all
}
