// Package config defines service configuration and how it is loaded.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Timezone is the IANA zone used to bucket events into calendar days.
	// "Local" uses the host zone.
	Timezone string `koanf:"timezone"`

	// WeekStart is "sunday" or "monday".
	WeekStart string `koanf:"week_start"`

	// StoreBackend selects the event store: memory, file or sqlite.
	StoreBackend string `koanf:"store_backend"`

	// StorePath is the JSON file used by the file backend.
	StorePath string `koanf:"store_path"`

	// DatabasePath is the SQLite database used by the sqlite backend and by accounts.
	DatabasePath string `koanf:"database_path"`

	// SeedDemo fills an empty collection with the demo week on first access.
	SeedDemo bool `koanf:"seed_demo"`

	AuthEnabled   bool   `koanf:"auth_enabled"`
	JWTSecret     string `koanf:"jwt_secret"`
	JWTTTLMinutes int    `koanf:"jwt_ttl_minutes"`

	// AI suggester. An empty key disables suggestions.
	AIBaseURL        string `koanf:"ai_base_url"`
	AIAPIKey         string `koanf:"ai_api_key"`
	AIModel          string `koanf:"ai_model"`
	AITimeoutSeconds int    `koanf:"ai_timeout_seconds"`

	// ReminderSchedule is a cron spec for the "starting soon" scan.
	ReminderSchedule    string `koanf:"reminder_schedule"`
	ReminderLeadMinutes int    `koanf:"reminder_lead_minutes"`

	// QueueSize bounds the in-memory change queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of summary workers.
	WorkerCount int `koanf:"worker_count"`

	// IdempotencyCacheSize bounds the number of remembered Idempotency-Key values.
	IdempotencyCacheSize int `koanf:"idempotency_cache_size"`

	// MotivationalMessages are indexed by streak length.
	MotivationalMessages []string `koanf:"motivational_messages"`
}

// DefaultMotivationalMessages is the stock message rotation.
func DefaultMotivationalMessages() []string {
	return []string{
		"On fire! Keep up the great work.",
		"Consistency is key. You're nailing it!",
		"Another day, another win. You're unstoppable.",
		"Building great habits, one day at a time.",
		"Your dedication is inspiring. Keep it going!",
	}
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		Timezone:             "Local",
		WeekStart:            "sunday",
		StoreBackend:         "memory",
		StorePath:            "data/events.json",
		DatabasePath:         "data/timeforge.db",
		SeedDemo:             true,
		AuthEnabled:          false,
		JWTTTLMinutes:        24 * 60,
		AIModel:              "gpt-4o-mini",
		AITimeoutSeconds:     30,
		ReminderSchedule:     "@every 1m",
		ReminderLeadMinutes:  5,
		QueueSize:            10_000,
		WorkerCount:          runtime.NumCPU(),
		IdempotencyCacheSize: 10_000,
		MotivationalMessages: DefaultMotivationalMessages(),
	}
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	switch strings.ToLower(c.WeekStart) {
	case "sunday", "monday":
	default:
		return fmt.Errorf("%w: week_start must be sunday or monday, got %q", ErrInvalidConfig, c.WeekStart)
	}
	switch strings.ToLower(c.StoreBackend) {
	case "memory":
	case "file":
		if c.StorePath == "" {
			return fmt.Errorf("%w: store_path is required for the file backend", ErrInvalidConfig)
		}
	case "sqlite":
		if c.DatabasePath == "" {
			return fmt.Errorf("%w: database_path is required for the sqlite backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}
	if c.AuthEnabled {
		if c.JWTSecret == "" {
			return fmt.Errorf("%w: jwt_secret is required when auth is enabled", ErrInvalidConfig)
		}
		if c.DatabasePath == "" {
			return fmt.Errorf("%w: database_path is required when auth is enabled", ErrInvalidConfig)
		}
	}
	if c.ReminderLeadMinutes <= 0 {
		return fmt.Errorf("%w: reminder_lead_minutes must be positive", ErrInvalidConfig)
	}
	if c.AITimeoutSeconds <= 0 {
		return fmt.Errorf("%w: ai_timeout_seconds must be positive", ErrInvalidConfig)
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// MondayFirst reports whether weeks start on Monday.
func (c *Config) MondayFirst() bool {
	return strings.EqualFold(c.WeekStart, "monday")
}

// AITimeout returns the per-request suggestion deadline.
func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AITimeoutSeconds) * time.Second
}

// JWTTTL returns the access token lifetime.
func (c *Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLMinutes) * time.Minute
}

// ReminderLead returns how far ahead of an event its reminder fires.
func (c *Config) ReminderLead() time.Duration {
	return time.Duration(c.ReminderLeadMinutes) * time.Minute
}
