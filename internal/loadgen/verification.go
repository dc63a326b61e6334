package loadgen

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/timeforge/internal/domain/model"
	"github.com/okian/timeforge/internal/domain/streak"
	"github.com/okian/timeforge/pkg/logger"
)

// verifyResults checks, per owner, that every created event is listed and
// that /streaks matches a summary recomputed from the listed events.
func verifyResults(ctx context.Context, client *HTTPClient, owners []Owner, events []Event, loc *time.Location, stats *Stats) error {
	log := logger.Get()
	log.Info(ctx, "verifying results", logger.Int("owners", len(owners)))

	created := make([]map[string]bool, len(owners))
	for i := range created {
		created[i] = map[string]bool{}
	}
	for _, ev := range events {
		if ev.ID != "" {
			created[ev.Owner][ev.ID] = true
		}
	}

	for i, owner := range owners {
		if err := verifyOwner(ctx, client, owner, created[i], loc); err != nil {
			stats.Mismatches++
			log.Warn(ctx, "owner verification failed", logger.Int("owner", i), logger.String("email", owner.Email), logger.Error(err))
			continue
		}
		stats.OwnersVerified++
	}

	if stats.Mismatches > 0 {
		return fmt.Errorf("%d of %d owners failed verification", stats.Mismatches, len(owners))
	}
	log.Info(ctx, "result verification completed")
	return nil
}

func verifyOwner(ctx context.Context, client *HTTPClient, owner Owner, created map[string]bool, loc *time.Location) error {
	var listed []model.Event
	if err := client.getJSON(ctx, "/events", owner.Token, &listed); err != nil {
		return err
	}
	seen := make(map[string]bool, len(listed))
	for _, e := range listed {
		seen[e.ID] = true
	}
	for id := range created {
		if !seen[id] {
			return fmt.Errorf("event %s was created but is not listed", id)
		}
	}

	var got summaryResponse
	if err := client.getJSON(ctx, "/streaks", owner.Token, &got); err != nil {
		return err
	}
	return compareSummary(listed, got, time.Now().In(loc))
}

// compareSummary recomputes the streak summary of events and compares the
// numeric fields with what the server reported.
func compareSummary(events []model.Event, got summaryResponse, now time.Time) error {
	want := streak.Summarize(events, now, nil)
	switch {
	case got.CurrentStreak != want.CurrentStreak:
		return fmt.Errorf("current streak: server %d, expected %d", got.CurrentStreak, want.CurrentStreak)
	case got.LongestStreak != want.LongestStreak:
		return fmt.Errorf("longest streak: server %d, expected %d", got.LongestStreak, want.LongestStreak)
	case got.TotalCompleted != want.TotalCompleted:
		return fmt.Errorf("total completed: server %d, expected %d", got.TotalCompleted, want.TotalCompleted)
	}
	return nil
}
