package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/okian/timeforge/internal/adapters/identity"
	"github.com/okian/timeforge/internal/adapters/repository"
	"github.com/okian/timeforge/internal/adapters/suggest"
	"github.com/okian/timeforge/internal/config"
	"github.com/okian/timeforge/pkg/logger"
)

// FromConfig builds a Service with the store, accounts and suggester cfg selects.
// The returned service is not started.
func FromConfig(ctx context.Context, cfg *config.Config, extra ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	log := logger.Get().Named("service")

	weekStart := time.Sunday
	if cfg.MondayFirst() {
		weekStart = time.Monday
	}

	opts := []Option{
		WithLogger(log),
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithDedupeSize(cfg.IdempotencyCacheSize),
		WithLocation(loc),
		WithWeekStart(weekStart),
		WithMotivationalMessages(cfg.MotivationalMessages),
		WithDemoSeed(cfg.SeedDemo),
		WithReminders(cfg.ReminderSchedule, cfg.ReminderLead()),
		WithSuggestTimeout(cfg.AITimeout()),
	}

	var db *gorm.DB
	openDB := func() (*gorm.DB, error) {
		if db != nil {
			return db, nil
		}
		d, err := repository.OpenSQLite(cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		sqlDB, err := d.DB()
		if err != nil {
			return nil, err
		}
		db = d
		opts = append(opts, WithCloser(sqlDB.Close))
		return db, nil
	}

	backend := strings.ToLower(cfg.StoreBackend)
	var store repository.Store
	switch backend {
	case "file":
		store, err = repository.NewFileStore(ctx, cfg.StorePath, repository.WithLogger(log.Named("repository")))
	case "sqlite":
		var d *gorm.DB
		if d, err = openDB(); err == nil {
			store, err = repository.NewSQLStore(ctx, d, repository.WithLogger(log.Named("repository")))
		}
	default:
		store = repository.NewMemoryStore(repository.WithLogger(log.Named("repository")))
	}
	if err != nil {
		closeDB(db)
		return nil, fmt.Errorf("open %s store: %w", backend, err)
	}
	opts = append(opts, WithStore(store, backend))

	if cfg.AuthEnabled {
		d, err := openDB()
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("open accounts database: %w", err)
		}
		accounts, err := identity.NewService(ctx, d, cfg.JWTSecret,
			identity.WithTokenTTL(cfg.JWTTTL()),
			identity.WithLogger(log.Named("identity")),
		)
		if err != nil {
			_ = store.Close()
			closeDB(db)
			return nil, fmt.Errorf("init accounts: %w", err)
		}
		opts = append(opts, WithAccounts(accounts))
	}

	if cfg.AIAPIKey != "" {
		sg, err := suggest.NewOpenAI(cfg.AIAPIKey, cfg.AIModel,
			suggest.WithBaseURL(cfg.AIBaseURL),
			suggest.WithLogger(log.Named("suggest")),
		)
		if err != nil {
			_ = store.Close()
			closeDB(db)
			return nil, fmt.Errorf("init suggester: %w", err)
		}
		opts = append(opts, WithSuggester(sg))
	} else {
		log.Info(ctx, "no AI API key configured, suggestions disabled")
	}

	return New(append(opts, extra...)...), nil
}

func closeDB(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
