package loadgen

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/okian/timeforge/internal/domain/model"
	"github.com/okian/timeforge/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	firstHour          = 7
	hourSpan           = 13
	maxDurationSlots   = 4
	slotMinutes        = 30
)

var titles = []string{ //nolint:gochecknoglobals // fixed vocabulary
	"Deep work", "Standup", "Gym", "Read a chapter", "Language practice",
	"Code review", "Groceries", "Flashcards", "Walk", "Plan the week",
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// randomInt returns a random int in [0, n).
func randomInt(n int) int {
	if n <= 0 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// generateEvents builds Days of history for every owner. Each day is either
// completed as a whole or left open, so streak lengths are predictable.
func generateEvents(ctx context.Context, config *Config, owners int, today time.Time, stats *Stats) ([]Event, error) {
	logger.Get().Info(ctx, "generating events",
		logger.Int("owners", owners),
		logger.Int("days", config.Days),
		logger.Int("perDay", config.EventsPerDay))

	categories := model.Categories()
	events := make([]Event, 0, owners*config.Days*config.EventsPerDay)
	for o := 0; o < owners; o++ {
		for d := config.Days - 1; d >= 0; d-- {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("context cancelled during event generation: %w", err)
			}
			day := today.AddDate(0, 0, -d)
			complete := getRandomFloat() < config.CompletionRate
			for i := 0; i < config.EventsPerDay; i++ {
				events = append(events, generateSingleEvent(o, day, complete, categories))
			}
		}
	}

	stats.EventsGenerated = len(events)
	logger.Get().Info(ctx, "generated events successfully", logger.Int("count", len(events)))
	return events, nil
}

// generateSingleEvent creates one event on day for owner.
func generateSingleEvent(owner int, day time.Time, complete bool, categories []model.Category) Event {
	start := time.Date(day.Year(), day.Month(), day.Day(), firstHour+randomInt(hourSpan), slotMinutes*randomInt(2), 0, 0, day.Location())
	end := start.Add(time.Duration(1+randomInt(maxDurationSlots)) * slotMinutes * time.Minute)

	return Event{
		Owner:          owner,
		IdempotencyKey: uuid.NewString(),
		Complete:       complete,
		Draft: eventDraft{
			Title:    titles[randomInt(len(titles))],
			Start:    start.Format(time.RFC3339),
			End:      end.Format(time.RFC3339),
			Category: string(categories[randomInt(len(categories))]),
		},
	}
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
