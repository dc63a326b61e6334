package loadgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/timeforge/internal/domain/calendar"
	"github.com/okian/timeforge/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// ErrAuthMismatch is returned when -auth disagrees with the server's mode.
var ErrAuthMismatch = errors.New("auth mode does not match the server")

// Run executes a complete load run.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()
	if config.Workers < 1 {
		config.Workers = 1
	}

	log.Info(ctx, "starting timeforge load run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("owners", config.Owners),
		logger.Int("days", config.Days),
		logger.Int("perDay", config.EventsPerDay),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Bool("auth", config.Auth))

	client := newHTTPClient(config.BaseURL, config.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Learn the server's zone and mode
	loc, authEnabled, err := serverSettings(ctx, client)
	if err != nil {
		return fmt.Errorf("stats retrieval failed: %w", err)
	}
	if authEnabled != config.Auth {
		return fmt.Errorf("%w: server auth=%t, run auth=%t", ErrAuthMismatch, authEnabled, config.Auth)
	}

	// Step 3: Owners
	owners := []Owner{{}}
	if config.Auth {
		if owners, err = signupOwners(ctx, client, config.Owners); err != nil {
			return fmt.Errorf("signup failed: %w", err)
		}
	}

	// Step 4: Generate events
	today := calendar.StartOfDay(time.Now().In(loc))
	events, err := generateEvents(ctx, config, len(owners), today, stats)
	if err != nil {
		return fmt.Errorf("event generation failed: %w", err)
	}

	// Step 5: Submit events concurrently
	if err := submitEvents(ctx, config, client, owners, events, stats); err != nil {
		return fmt.Errorf("event submission failed: %w", err)
	}

	// Step 6: Let change workers drain
	if config.Settle > 0 {
		log.Info(ctx, "waiting for changes to be processed", logger.Duration("settle", config.Settle))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(config.Settle):
		}
	}

	// Step 7: Verify results
	verifyErr := verifyResults(ctx, client, owners, events, loc, stats)

	// Step 8: Save events to file
	if config.OutputFile != "-" {
		if err := saveEventsToFile(ctx, config, events); err != nil {
			log.Warn(ctx, "failed to save events to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	if verifyErr != nil {
		return fmt.Errorf("result verification failed: %w", verifyErr)
	}
	log.Info(ctx, "load run completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	logger.Get().Info(ctx, "checking service health")

	status, _, err := client.do(ctx, http.MethodGet, "/healthz", "", nil, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	// The service answers with Prometheus metrics.
	if status != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", status)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// serverSettings reads the zone and auth mode from /stats.
func serverSettings(ctx context.Context, client *HTTPClient) (*time.Location, bool, error) {
	var stats struct {
		Timezone    string `json:"timezone"`
		AuthEnabled bool   `json:"authEnabled"`
	}
	if err := client.getJSON(ctx, "/stats", "", &stats); err != nil {
		return nil, false, err
	}
	loc, err := time.LoadLocation(stats.Timezone)
	if err != nil {
		return nil, false, fmt.Errorf("server timezone %q: %w", stats.Timezone, err)
	}
	return loc, stats.AuthEnabled, nil
}

// saveEventsToFile saves the generated events to a JSON file.
func saveEventsToFile(ctx context.Context, config *Config, events []Event) error {
	if len(events) == 0 {
		return fmt.Errorf("no events to save")
	}

	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_events_" + timestamp + ".json"
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "events saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(stats *Stats) {
	var successRate, eventsPerSecond float64

	if stats.EventsSubmitted > 0 {
		successRate = float64(stats.EventsSuccessful+stats.EventsDuplicate) / float64(stats.EventsSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("eventsSuccessful", stats.EventsSuccessful),
		logger.Int("eventsDuplicate", stats.EventsDuplicate),
		logger.Int("eventsToggled", stats.EventsToggled),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.Int("ownersVerified", stats.OwnersVerified),
		logger.Int("mismatches", stats.Mismatches),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("eventsPerSecond", eventsPerSecond))
}
