package service

import (
	"context"
	"strings"
	"time"

	"github.com/okian/timeforge/internal/adapters/ical"
	"github.com/okian/timeforge/internal/adapters/suggest"
	"github.com/okian/timeforge/pkg/logger"
	"github.com/okian/timeforge/pkg/metrics"
)

// SuggestionFailure is the user-facing error of a failed suggestion.
const SuggestionFailure = "Failed to get suggestions from AI."

// SuggestRequest asks for free slots. An empty Schedule is filled with the
// owner's events.
type SuggestRequest struct {
	Schedule        string `json:"schedule"`
	DurationMinutes int    `json:"durationMinutes"`
	Preferences     string `json:"preferences"`
}

// SuggestResult is always returned, successful or not.
type SuggestResult struct {
	Success     bool        `json:"success"`
	Error       string      `json:"error,omitempty"`
	Suggestions []string    `json:"suggestions"`
	Slots       []ical.Slot `json:"slots,omitempty"`
}

// Suggest asks the model for slots. Any failure after validation yields the
// fail-closed result and leaves all state unchanged.
func (s *Service) Suggest(ctx context.Context, owner string, req SuggestRequest) (SuggestResult, error) {
	if req.DurationMinutes <= 0 {
		return SuggestResult{}, ErrInvalidDuration
	}
	if strings.TrimSpace(req.Schedule) == "" {
		doc, err := s.ExportICS(ctx, owner)
		if err != nil {
			return s.suggestFailed(ctx, owner, err, time.Now()), nil
		}
		req.Schedule = doc
	}

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, s.suggestTimeout)
	defer cancel()

	res, err := s.suggester.Suggest(callCtx, suggest.Request{
		Schedule:        req.Schedule,
		DurationMinutes: req.DurationMinutes,
		Preferences:     req.Preferences,
	})
	if err != nil {
		return s.suggestFailed(ctx, owner, err, start), nil
	}
	metrics.RecordSuggestion("success", msSince(start))

	out := SuggestResult{Success: true, Suggestions: res.SuggestedSlots}
	if out.Suggestions == nil {
		out.Suggestions = []string{}
	}
	for _, raw := range out.Suggestions {
		if slot, err := ical.ParseSlot(raw, s.location); err == nil {
			out.Slots = append(out.Slots, slot)
		}
	}
	return out, nil
}

func (s *Service) suggestFailed(ctx context.Context, owner string, err error, start time.Time) SuggestResult {
	metrics.RecordSuggestion("failure", msSince(start))
	metrics.RecordErrorByComponent("suggest", "model_error")
	s.logger.Error(ctx, "error getting AI suggestions", logger.String("owner", owner), logger.Error(err))
	return SuggestResult{Success: false, Error: SuggestionFailure, Suggestions: []string{}}
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
