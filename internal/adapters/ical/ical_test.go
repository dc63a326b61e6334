package ical

import (
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/timeforge/internal/domain/model"
)

func TestExport(t *testing.T) {
	Convey("Given two events", t, func() {
		now := time.Date(2024, 5, 15, 8, 0, 0, 0, time.UTC)
		events := []model.Event{
			{
				ID:       "e-1",
				Title:    "Deep work",
				Start:    time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC),
				End:      time.Date(2024, 5, 15, 11, 0, 0, 0, time.UTC),
				Category: model.CategoryWork,
			},
			{
				ID:        "e-2",
				Title:     "Gym",
				Start:     time.Date(2024, 5, 15, 18, 0, 0, 0, time.UTC),
				End:       time.Date(2024, 5, 15, 19, 0, 0, 0, time.UTC),
				Category:  model.CategoryPersonal,
				Completed: true,
			},
		}

		doc := Export(events, now)

		Convey("The document is a calendar with one VEVENT per event", func() {
			So(doc, ShouldStartWith, "BEGIN:VCALENDAR")
			So(doc, ShouldContainSubstring, "PRODID:"+ProductID)
			So(doc, ShouldContainSubstring, "VERSION:2.0")
			So(strings.Count(doc, "BEGIN:VEVENT"), ShouldEqual, 2)
			So(doc, ShouldContainSubstring, "UID:e-1")
			So(doc, ShouldContainSubstring, "SUMMARY:Deep work")
			So(doc, ShouldContainSubstring, "DTSTART:20240515T090000Z")
			So(doc, ShouldContainSubstring, "DTEND:20240515T110000Z")
			So(doc, ShouldContainSubstring, "CATEGORIES:WORK")
			So(doc, ShouldContainSubstring, "STATUS:NEEDS-ACTION")
			So(doc, ShouldContainSubstring, "STATUS:COMPLETED")
		})

		Convey("Each exported event parses back to its slot", func() {
			parts := strings.SplitAfter(doc, "END:VEVENT")
			slot, err := ParseSlot(parts[0][strings.Index(parts[0], "BEGIN:VEVENT"):], time.UTC)
			So(err, ShouldBeNil)
			So(slot.Start.Equal(events[0].Start), ShouldBeTrue)
			So(slot.End.Equal(events[0].End), ShouldBeTrue)
		})
	})

	Convey("An empty collection is still a valid calendar", t, func() {
		doc := Export(nil, time.Now())
		So(doc, ShouldContainSubstring, "BEGIN:VCALENDAR")
		So(doc, ShouldNotContainSubstring, "BEGIN:VEVENT")
	})
}

func TestParseSlot(t *testing.T) {
	Convey("ParseSlot", t, func() {
		berlin, err := time.LoadLocation("Europe/Berlin")
		So(err, ShouldBeNil)

		Convey("reads a bare UTC VEVENT", func() {
			s := "BEGIN:VEVENT\nSUMMARY:Focus\nDTSTART:20240516T140000Z\nDTEND:20240516T150000Z\nEND:VEVENT"
			slot, err := ParseSlot(s, berlin)
			So(err, ShouldBeNil)
			So(slot.Start.Equal(time.Date(2024, 5, 16, 14, 0, 0, 0, time.UTC)), ShouldBeTrue)
			So(slot.End.Equal(time.Date(2024, 5, 16, 15, 0, 0, 0, time.UTC)), ShouldBeTrue)
		})

		Convey("reads floating times in the given location", func() {
			s := "BEGIN:VEVENT\r\nDTSTART:20240516T100000\r\nDTEND:20240516T113000\r\nEND:VEVENT"
			slot, err := ParseSlot(s, berlin)
			So(err, ShouldBeNil)
			So(slot.Start.Equal(time.Date(2024, 5, 16, 10, 0, 0, 0, berlin)), ShouldBeTrue)
			So(slot.End.Sub(slot.Start), ShouldEqual, 90*time.Minute)
		})

		Convey("falls back to the pattern for loose text with a TZID", func() {
			s := "Suggested: DTSTART;TZID=America/New_York:20240517T090000 DTEND;TZID=America/New_York:20240517T100000"
			slot, err := ParseSlot(s, time.UTC)
			So(err, ShouldBeNil)
			ny, _ := time.LoadLocation("America/New_York")
			So(slot.Start.Equal(time.Date(2024, 5, 17, 9, 0, 0, 0, ny)), ShouldBeTrue)
			So(slot.End.Equal(time.Date(2024, 5, 17, 10, 0, 0, 0, ny)), ShouldBeTrue)
		})

		Convey("rejects text without a slot", func() {
			_, err := ParseSlot("Tuesday afternoon would be nice", time.UTC)
			So(errors.Is(err, ErrNoSlot), ShouldBeTrue)

			_, err = ParseSlot("DTSTART:20240517T090000Z", time.UTC)
			So(errors.Is(err, ErrNoSlot), ShouldBeTrue)
		})
	})
}
