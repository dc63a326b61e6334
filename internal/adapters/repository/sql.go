package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/timeforge/internal/domain/model"
	"github.com/okian/timeforge/pkg/metrics"
)

// eventRecord is the row shape of the events table.
type eventRecord struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Owner     string    `gorm:"index;not null"`
	Title     string    `gorm:"not null"`
	Start     time.Time `gorm:"column:starts_at;index;not null"`
	End       time.Time `gorm:"column:ends_at;not null"`
	Category  string    `gorm:"size:16;not null"`
	Completed bool      `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (eventRecord) TableName() string { return "events" }

func toRecord(e model.Event) eventRecord {
	return eventRecord{
		ID:        e.ID,
		Owner:     e.Owner,
		Title:     e.Title,
		Start:     e.Start,
		End:       e.End,
		Category:  string(e.Category),
		Completed: e.Completed,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func (r eventRecord) toEvent() model.Event {
	return model.Event{
		ID:        r.ID,
		Owner:     r.Owner,
		Title:     r.Title,
		Start:     r.Start,
		End:       r.End,
		Category:  model.Category(r.Category),
		Completed: r.Completed,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// OpenSQLite opens (creating if needed) a SQLite database through GORM.
// ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:" shared.
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// SQLStore keeps events in a relational table through GORM.
type SQLStore struct {
	opts options
	db   *gorm.DB
}

// NewSQLStore migrates the events table on db and returns a store over it.
func NewSQLStore(ctx context.Context, db *gorm.DB, opts ...Option) (*SQLStore, error) {
	if err := db.WithContext(ctx).AutoMigrate(&eventRecord{}); err != nil {
		return nil, fmt.Errorf("migrate events: %w", err)
	}
	s := &SQLStore{opts: newOptions(opts), db: db}
	metrics.UpdateEventsStored(s.Count(ctx))
	return s, nil
}

func (s *SQLStore) List(ctx context.Context, owner string) ([]model.Event, error) {
	var rows []eventRecord
	if err := s.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("starts_at ASC").Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	out := make([]model.Event, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toEvent())
	}
	return out, nil
}

func (s *SQLStore) get(tx *gorm.DB, owner, id string) (eventRecord, error) {
	var r eventRecord
	if err := tx.First(&r, "id = ? AND owner = ?", id, owner).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return r, ErrNotFound
		}
		return r, fmt.Errorf("get event: %w", err)
	}
	return r, nil
}

func (s *SQLStore) Get(ctx context.Context, owner, id string) (model.Event, error) {
	r, err := s.get(s.db.WithContext(ctx), owner, id)
	if err != nil {
		return model.Event{}, err
	}
	return r.toEvent(), nil
}

func (s *SQLStore) Add(ctx context.Context, e model.Event) error {
	r := toRecord(e)
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateID
		}
		return fmt.Errorf("add event: %w", err)
	}
	metrics.RecordEventMutation("create")
	metrics.UpdateEventsStored(s.Count(ctx))
	return nil
}

func (s *SQLStore) Replace(ctx context.Context, owner, id string, d model.Draft) (model.Event, error) {
	var out model.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.get(tx, owner, id)
		if err != nil {
			return err
		}
		out = r.toEvent().Apply(d, s.opts.now())
		updated := toRecord(out)
		return tx.Model(&eventRecord{}).
			Where("id = ? AND owner = ?", id, owner).
			Select("title", "starts_at", "ends_at", "category", "updated_at").
			Updates(&updated).Error
	})
	if err != nil {
		return model.Event{}, err
	}
	metrics.RecordEventMutation("update")
	return out, nil
}

func (s *SQLStore) Remove(ctx context.Context, owner, id string) error {
	res := s.db.WithContext(ctx).Delete(&eventRecord{}, "id = ? AND owner = ?", id, owner)
	if res.Error != nil {
		return fmt.Errorf("remove event: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	metrics.RecordEventMutation("delete")
	metrics.UpdateEventsStored(s.Count(ctx))
	return nil
}

func (s *SQLStore) ToggleCompleted(ctx context.Context, owner, id string) (model.Event, error) {
	var out model.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.get(tx, owner, id)
		if err != nil {
			return err
		}
		r.Completed = !r.Completed
		r.UpdatedAt = s.opts.now()
		if err := tx.Model(&eventRecord{}).
			Where("id = ? AND owner = ?", id, owner).
			Updates(map[string]any{"completed": r.Completed, "updated_at": r.UpdatedAt}).Error; err != nil {
			return err
		}
		out = r.toEvent()
		return nil
	})
	if err != nil {
		return model.Event{}, err
	}
	metrics.RecordEventMutation("toggle")
	return out, nil
}

func (s *SQLStore) Owners(ctx context.Context) ([]string, error) {
	var owners []string
	if err := s.db.WithContext(ctx).Model(&eventRecord{}).
		Distinct().Order("owner").Pluck("owner", &owners).Error; err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	return owners, nil
}

func (s *SQLStore) Count(ctx context.Context) int {
	var n int64
	if err := s.db.WithContext(ctx).Model(&eventRecord{}).Count(&n).Error; err != nil {
		return 0
	}
	return int(n)
}

// Close is a no-op; whoever opened db closes it.
func (s *SQLStore) Close() error { return nil }
