package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL        string        // Base URL of the service
	Owners         int           // Accounts to create when Auth is set
	Days           int           // Days of history generated per owner, ending today
	EventsPerDay   int           // Events generated per owner and day
	CompletionRate float64       // Share of days whose events are marked completed
	DuplicateRate  float64       // Share of creates replayed with the same Idempotency-Key
	Workers        int           // Number of concurrent workers
	Timeout        time.Duration // HTTP request timeout
	Settle         time.Duration // Pause before verification so workers drain
	Auth           bool          // Sign up fresh accounts instead of using the local owner
	OutputFile     string        // Output file for generated events
	LogFile        string        // Log file for run output
	Verbose        bool          // Enable verbose logging
}

// Owner is one collection the run writes to.
type Owner struct {
	Email string `json:"email,omitempty"`
	Token string `json:"-"`
}

// Event is one generated event and its intended completion state.
type Event struct {
	Owner          int        `json:"owner"`
	IdempotencyKey string     `json:"idempotencyKey"`
	Draft          eventDraft `json:"draft"`
	Complete       bool       `json:"complete"`
	ID             string     `json:"id,omitempty"`
}

type eventDraft struct {
	Title    string `json:"title"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Category string `json:"category"`
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type sessionResponse struct {
	AccessToken string `json:"accessToken"`
}

type summaryResponse struct {
	CurrentStreak  int `json:"currentStreak"`
	LongestStreak  int `json:"longestStreak"`
	TotalCompleted int `json:"totalCompleted"`
}

// Stats holds run statistics.
type Stats struct {
	EventsGenerated  int
	EventsSubmitted  int
	EventsSuccessful int
	EventsDuplicate  int
	EventsFailed     int
	EventsToggled    int
	OwnersVerified   int
	Mismatches       int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
