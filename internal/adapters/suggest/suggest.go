// Package suggest asks a language model for free time slots.
package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"
)

var (
	// ErrDisabled is returned when no model is configured.
	ErrDisabled = errors.New("suggest: no AI model configured")
	// ErrEmptyResponse is returned when the model answers with no choices.
	ErrEmptyResponse = errors.New("suggest: empty model response")
	// ErrMalformedResponse is returned when the answer is not the expected JSON.
	ErrMalformedResponse = errors.New("suggest: malformed model response")
)

// SlotCount is how many slots the model is asked for.
const SlotCount = 3

// Request is the suggestion input.
type Request struct {
	Schedule        string `json:"schedule"`
	DurationMinutes int    `json:"durationMinutes"`
	Preferences     string `json:"preferences"`
}

// Result holds the suggested slots as iCalendar entries.
type Result struct {
	SuggestedSlots []string `json:"suggestedSlots"`
}

// Suggester produces slot suggestions.
type Suggester interface {
	Suggest(ctx context.Context, req Request) (Result, error)
}

// Disabled is the Suggester used when no API key is configured.
type Disabled struct{}

// Suggest always fails with ErrDisabled.
func (Disabled) Suggest(context.Context, Request) (Result, error) {
	return Result{}, ErrDisabled
}

const systemPrompt = `You are an AI assistant that suggests potential event slots to a user based on their existing schedule, event duration, and preferences.
Respond with a single JSON object of the form {"suggestedSlots": ["BEGIN:VEVENT...END:VEVENT", ...]} and nothing else.`

var userPrompt = template.Must(template.New("suggest").Parse(`Given the user's schedule in iCalendar format, the duration of the event, and the user preferences, analyze the schedule and suggest {{.Count}} possible event slots.

Output the suggested event slots as iCalendar entries.

User Schedule (iCalendar format):
{{.Schedule}}

Event Duration (minutes):
{{.DurationMinutes}}

User Preferences:
{{.Preferences}}
`))

// Prompt renders the user message for req.
func Prompt(req Request) (string, error) {
	var b strings.Builder
	err := userPrompt.Execute(&b, struct {
		Request
		Count int
	}{req, SlotCount})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return b.String(), nil
}

// Decode parses a model answer into a Result. Markdown code fences are
// stripped and a bare JSON array of strings is accepted.
func Decode(content string) (Result, error) {
	body := stripFences(content)
	if body == "" {
		return Result{}, ErrEmptyResponse
	}

	var res Result
	if strings.HasPrefix(body, "[") {
		if err := json.Unmarshal([]byte(body), &res.SuggestedSlots); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	} else {
		var raw struct {
			SuggestedSlots *[]string `json:"suggestedSlots"`
		}
		if err := json.Unmarshal([]byte(body), &raw); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		if raw.SuggestedSlots == nil {
			return Result{}, fmt.Errorf("%w: missing suggestedSlots", ErrMalformedResponse)
		}
		res.SuggestedSlots = *raw.SuggestedSlots
	}

	slots := res.SuggestedSlots[:0]
	for _, s := range res.SuggestedSlots {
		if s = strings.TrimSpace(s); s != "" {
			slots = append(slots, s)
		}
	}
	res.SuggestedSlots = slots
	return res, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
