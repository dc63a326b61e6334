package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/timeforge/internal/loadgen"
)

// Default configuration constants.
const (
	defaultOwners         = 5
	defaultDays           = 30
	defaultPerDay         = 3
	defaultCompletionRate = 0.7
	defaultDuplicateRate  = 0.1
	defaultWorkers        = 2 // multiplier for runtime.NumCPU()
	defaultTimeout        = 30 * time.Second
	defaultRunTimeout     = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		owners     = flag.Int("owners", defaultOwners, "Accounts to sign up when -auth is set")
		days       = flag.Int("days", defaultDays, "Days of history per owner, ending today")
		perDay     = flag.Int("per-day", defaultPerDay, "Events per owner and day")
		complete   = flag.Float64("complete", defaultCompletionRate, "Share of days marked completed")
		duplicates = flag.Float64("duplicates", defaultDuplicateRate, "Share of creates replayed with the same Idempotency-Key")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		auth       = flag.Bool("auth", false, "Sign up fresh accounts instead of writing to the local owner")
		outputFile = flag.String("output", "", "Output file for generated events (default: generated_events_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for run output (default: loadgen_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadgen.ShowHelp()
		return
	}

	if err := loadgen.SetupLogging(*logFile); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &loadgen.Config{
		BaseURL:        *baseURL,
		Owners:         *owners,
		Days:           *days,
		EventsPerDay:   *perDay,
		CompletionRate: *complete,
		DuplicateRate:  *duplicates,
		Workers:        *workers,
		Timeout:        *timeout,
		Settle:         loadgen.DefaultSettle,
		Auth:           *auth,
		OutputFile:     *outputFile,
		LogFile:        *logFile,
		Verbose:        *verbose,
	}

	if err := loadgen.Run(ctx, config); err != nil {
		_, _ = os.Stderr.WriteString("Load run failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
