package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/okian/timeforge/internal/domain/model"
	"github.com/okian/timeforge/pkg/logger"
	"github.com/okian/timeforge/pkg/metrics"
)

// FileStore is a MemoryStore that rewrites the whole collection to a JSON file
// after every mutation. The in-memory copy stays authoritative if a write fails;
// the next successful write catches the file up.
type FileStore struct {
	*MemoryStore
	path string
}

// NewFileStore loads path (if present) and returns a store persisting to it.
// An unreadable or corrupt file is logged and treated as empty.
func NewFileStore(ctx context.Context, path string, opts ...Option) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrPersist)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	s := &FileStore{MemoryStore: NewMemoryStore(opts...), path: path}
	events, err := readEventsFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		s.opts.log.Warn(ctx, "failed to parse events file, starting empty",
			logger.String("path", path), logger.Error(err))
	default:
		s.mu.Lock()
		for _, e := range events {
			if err := s.insertLocked(e); err != nil {
				s.opts.log.Warn(ctx, "skipping duplicate event in file",
					logger.String("id", e.ID), logger.String("owner", e.Owner))
			}
		}
		metrics.UpdateEventsStored(s.total)
		s.mu.Unlock()
		s.opts.log.Info(ctx, "loaded events file",
			logger.String("path", path), logger.Int("events", len(events)))
	}
	return s, nil
}

func readEventsFile(path string) ([]model.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var events []model.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// persistLocked writes a snapshot atomically. Caller holds the write lock.
func (s *FileStore) persistLocked() error {
	data, err := json.Marshal(s.snapshotLocked())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".events-*.json")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// persist writes the snapshot after a mutation that already took effect in
// memory. A failed write is logged and counted but not returned, so callers
// never see an error for a change that stuck.
func (s *FileStore) persist(ctx context.Context) {
	if err := s.persistLocked(); err != nil {
		metrics.RecordStorePersistError()
		s.opts.log.Error(ctx, "failed to write events file",
			logger.String("path", s.path), logger.Error(err))
	}
}

func (s *FileStore) Add(ctx context.Context, e model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.addLocked(e); err != nil {
		return err
	}
	s.persist(ctx)
	return nil
}

func (s *FileStore) Replace(ctx context.Context, owner, id string, d model.Draft) (model.Event, error) {
	e, err := s.MemoryStore.Replace(ctx, owner, id, d)
	if err != nil {
		return e, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persist(ctx)
	return e, nil
}

func (s *FileStore) Remove(ctx context.Context, owner, id string) error {
	if err := s.MemoryStore.Remove(ctx, owner, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persist(ctx)
	return nil
}

func (s *FileStore) ToggleCompleted(ctx context.Context, owner, id string) (model.Event, error) {
	e, err := s.MemoryStore.ToggleCompleted(ctx, owner, id)
	if err != nil {
		return e, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persist(ctx)
	return e, nil
}

// Close flushes the current collection one last time.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}
