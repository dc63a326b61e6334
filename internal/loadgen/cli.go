package loadgen

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/timeforge/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures JSON logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "loadgen_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.InitWithWriter(io.MultiWriter(os.Stdout, file), "json"); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the load generator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`TimeForge Load Generator
========================

Fills a running TimeForge server with event history, completes a share of
the days, and checks that /streaks agrees with the events the server holds.

Usage:
  go run ./cmd/loadgen [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -owners int
        Accounts to sign up when -auth is set (default 5)
  -days int
        Days of history per owner, ending today (default 30)
  -per-day int
        Events per owner and day (default 3)
  -complete float
        Share of days marked completed (default 0.7)
  -duplicates float
        Share of creates replayed with the same Idempotency-Key (default 0.1)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -auth
        Sign up fresh accounts instead of writing to the local owner
  -output string
        Output file for generated events (default: generated_events_TIMESTAMP.json)
  -log string
        Log file for run output (default: loadgen_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  go run ./cmd/loadgen -days 90 -per-day 5
  go run ./cmd/loadgen -auth -owners 20 -workers 16 -url http://localhost:8080
`)
}
