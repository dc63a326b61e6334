// Package ical converts events to iCalendar documents and reads time slots
// back out of iCalendar fragments.
package ical

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/okian/timeforge/internal/domain/model"
)

// ProductID identifies documents produced by Export.
const ProductID = "-//TimeForge//EN"

const (
	layoutUTC      = "20060102T150405Z"
	layoutFloating = "20060102T150405"
)

var (
	// ErrNoSlot is returned when a fragment carries no usable DTSTART/DTEND pair.
	ErrNoSlot = errors.New("ical: no DTSTART/DTEND in suggestion")

	errFloating = errors.New("ical: floating time")

	dtStartPattern = regexp.MustCompile(`DTSTART(?:;TZID=([^:;\r\n]+))?(?:;[^:\r\n]*)?:(\d{8}T\d{6}Z?)`)
	dtEndPattern   = regexp.MustCompile(`DTEND(?:;TZID=([^:;\r\n]+))?(?:;[^:\r\n]*)?:(\d{8}T\d{6}Z?)`)
)

// Slot is a start/end pair extracted from a suggestion.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Export renders events as a VCALENDAR with one VEVENT per event.
func Export(events []model.Event, now time.Time) string {
	cal := ics.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetMethod(ics.MethodPublish)

	for _, e := range events {
		ve := cal.AddEvent(e.ID)
		ve.SetDtStampTime(now.UTC())
		if !e.CreatedAt.IsZero() {
			ve.SetCreatedTime(e.CreatedAt.UTC())
		}
		if !e.UpdatedAt.IsZero() {
			ve.SetModifiedAt(e.UpdatedAt.UTC())
		}
		ve.SetSummary(e.Title)
		ve.SetStartAt(e.Start.UTC())
		ve.SetEndAt(e.End.UTC())
		ve.SetProperty(ics.ComponentPropertyCategories, strings.ToUpper(string(e.Category)))
		status := "NEEDS-ACTION"
		if e.Completed {
			status = "COMPLETED"
		}
		ve.SetProperty(ics.ComponentPropertyStatus, status)
	}
	return cal.Serialize()
}

// ParseSlot extracts the first DTSTART/DTEND pair from an iCalendar
// fragment. A bare VEVENT is accepted. Floating times are read in loc.
func ParseSlot(s string, loc *time.Location) (Slot, error) {
	if loc == nil {
		loc = time.Local
	}
	if slot, err := parseCalendar(s); err == nil {
		return slot, nil
	}
	return parsePattern(s, loc)
}

func parseCalendar(s string) (Slot, error) {
	doc := strings.TrimSpace(s)
	if !strings.Contains(doc, "BEGIN:VEVENT") {
		return Slot{}, ErrNoSlot
	}
	if !strings.Contains(doc, "BEGIN:VCALENDAR") {
		doc = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ProductID + "\r\n" + doc + "\r\nEND:VCALENDAR\r\n"
	}
	cal, err := ics.ParseCalendar(strings.NewReader(doc))
	if err != nil {
		return Slot{}, err
	}
	events := cal.Events()
	if len(events) == 0 {
		return Slot{}, ErrNoSlot
	}
	ve := events[0]
	for _, prop := range []ics.ComponentProperty{ics.ComponentPropertyDtStart, ics.ComponentPropertyDtEnd} {
		p := ve.GetProperty(prop)
		if p == nil {
			return Slot{}, ErrNoSlot
		}
		_, hasTZ := p.ICalParameters["TZID"]
		if !hasTZ && !strings.HasSuffix(p.Value, "Z") {
			return Slot{}, errFloating
		}
	}
	start, err := ve.GetStartAt()
	if err != nil {
		return Slot{}, err
	}
	end, err := ve.GetEndAt()
	if err != nil {
		return Slot{}, err
	}
	return Slot{Start: start, End: end}, nil
}

func parsePattern(s string, loc *time.Location) (Slot, error) {
	start, err := matchTime(dtStartPattern, s, loc)
	if err != nil {
		return Slot{}, err
	}
	end, err := matchTime(dtEndPattern, s, loc)
	if err != nil {
		return Slot{}, err
	}
	return Slot{Start: start, End: end}, nil
}

func matchTime(re *regexp.Regexp, s string, loc *time.Location) (time.Time, error) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, ErrNoSlot
	}
	tzid, value := m[1], m[2]
	if strings.HasSuffix(value, "Z") {
		return time.Parse(layoutUTC, value)
	}
	if tzid != "" {
		tz, err := time.LoadLocation(strings.Trim(tzid, `"`))
		if err != nil {
			return time.Time{}, fmt.Errorf("ical: unknown TZID %q: %w", tzid, err)
		}
		loc = tz
	}
	return time.ParseInLocation(layoutFloating, value, loc)
}
