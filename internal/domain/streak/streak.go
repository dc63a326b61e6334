// Package streak scores consecutive calendar days that contain completed events.
//
// Every function is pure: the reference time is passed in, nothing is cached,
// and empty input yields zero values instead of errors.
package streak

import (
	"sort"
	"time"

	"github.com/okian/timeforge/internal/domain/model"
)

// FallbackMessage is shown when there is no running streak.
const FallbackMessage = "Complete a task to start a new streak!"

// Summary is the derived streak view of a collection. It is never persisted.
type Summary struct {
	CurrentStreak  int     `json:"currentStreak"`
	LongestStreak  int     `json:"longestStreak"`
	TotalCompleted int     `json:"totalCompleted"`
	Message        string  `json:"message"`
	WeeklyProgress [7]bool `json:"weeklyProgress"`
}

// day is a civil date expressed as days since 1970-01-01.
type day int64

func dayOf(t time.Time, loc *time.Location) day {
	y, m, d := t.In(loc).Date()
	return day(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

func completedDays(events []model.Event, loc *time.Location) map[day]struct{} {
	set := make(map[day]struct{})
	for i := range events {
		if events[i].Completed {
			set[dayOf(events[i].Start, loc)] = struct{}{}
		}
	}
	return set
}

// CurrentStreak counts consecutive completed days ending today, in now's location.
// A today without completions is skipped rather than ending the streak, so an
// unfinished day does not reset yesterday's run.
func CurrentStreak(events []model.Event, now time.Time) int {
	set := completedDays(events, now.Location())
	if len(set) == 0 {
		return 0
	}

	cursor := dayOf(now, now.Location())
	streak := 0
	if _, ok := set[cursor]; ok {
		streak++
	}
	cursor--
	for {
		if _, ok := set[cursor]; !ok {
			return streak
		}
		streak++
		cursor--
	}
}

// LongestStreak returns the longest run of consecutive completed days in loc.
// Input order does not matter.
func LongestStreak(events []model.Event, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	set := completedDays(events, loc)
	if len(set) == 0 {
		return 0
	}

	days := make([]day, 0, len(set))
	for d := range set {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] > days[j] })

	longest, run := 0, 1
	for i := 0; i < len(days)-1; i++ {
		if days[i]-days[i+1] == 1 {
			run++
			continue
		}
		longest = max(longest, run)
		run = 1
	}
	return max(longest, run)
}

// TotalCompleted counts completed events.
func TotalCompleted(events []model.Event) int {
	n := 0
	for i := range events {
		if events[i].Completed {
			n++
		}
	}
	return n
}

// SelectMessage picks messages[streak % len(messages)]. A non-positive streak
// or an empty list yields FallbackMessage.
func SelectMessage(streak int, messages []string) string {
	if streak <= 0 || len(messages) == 0 {
		return FallbackMessage
	}
	return messages[streak%len(messages)]
}

// WeeklyProgress marks the first streak%7 days of the week as done.
func WeeklyProgress(streak int) [7]bool {
	var p [7]bool
	if streak <= 0 {
		return p
	}
	for i := 0; i < streak%7; i++ {
		p[i] = true
	}
	return p
}

// Summarize computes every derived value for events as of now.
func Summarize(events []model.Event, now time.Time, messages []string) Summary {
	current := CurrentStreak(events, now)
	return Summary{
		CurrentStreak:  current,
		LongestStreak:  LongestStreak(events, now.Location()),
		TotalCompleted: TotalCompleted(events),
		Message:        SelectMessage(current, messages),
		WeeklyProgress: WeeklyProgress(current),
	}
}
