package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/timeforge/internal/adapters/repository"
	"github.com/okian/timeforge/internal/adapters/suggest"
	service "github.com/okian/timeforge/internal/app"
	"github.com/okian/timeforge/internal/config"
	"github.com/okian/timeforge/internal/domain/calendar"
	"github.com/okian/timeforge/internal/domain/model"
	"github.com/okian/timeforge/internal/domain/streak"
)

// Wednesday 15 May 2024, 10:00 UTC.
var testNow = time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("evt-%d", n)
	}
}

func newTestService(opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithWorkerCount(2),
		service.WithQueueSize(100),
		service.WithDedupeSize(100),
		service.WithLocation(time.UTC),
		service.WithClock(func() time.Time { return testNow }),
		service.WithIDGenerator(sequentialIDs()),
		service.WithReminders("@every 1h", 5*time.Minute),
	}
	return service.New(append(base, opts...)...)
}

func draft(title string, start time.Time, cat model.Category) model.Draft {
	return model.Draft{Title: title, Start: start, End: start.Add(time.Hour), Category: cat}
}

type stubSuggester struct {
	res suggest.Result
	err error
	got suggest.Request
}

func (s *stubSuggester) Suggest(_ context.Context, req suggest.Request) (suggest.Result, error) {
	s.got = req
	return s.res, s.err
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := newTestService()
		defer svc.Stop()
		ctx := context.Background()

		Convey("It reports defaults before starting", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["store"], ShouldEqual, "memory")
			So(stats["authEnabled"], ShouldEqual, false)
			So(stats["suggestionsEnabled"], ShouldEqual, false)
			So(svc.Size(), ShouldEqual, 0)
		})

		Convey("Start is idempotent and Stop resets the state", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Started(), ShouldBeTrue)

			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["workerCount"], ShouldEqual, 2)
			So(stats["queueLength"], ShouldEqual, 0)
			So(stats["eventsStored"], ShouldEqual, 0)

			svc.Stop()
			svc.Stop()
			So(svc.Started(), ShouldBeFalse)
		})

		Convey("A bad reminder schedule fails Start", func() {
			bad := newTestService(service.WithReminders("sometimes", 0))
			So(bad.Start(ctx), ShouldNotBeNil)
			So(bad.Started(), ShouldBeFalse)
		})

		Convey("Close releases resources after a failed Start", func() {
			closed := 0
			bad := newTestService(
				service.WithReminders("sometimes", 0),
				service.WithCloser(func() error { closed++; return nil }),
			)
			So(bad.Start(ctx), ShouldNotBeNil)

			bad.Stop()
			So(closed, ShouldEqual, 0)

			bad.Close()
			bad.Close()
			So(closed, ShouldEqual, 1)
		})

		Convey("Close on a running service stops it and releases once", func() {
			closed := 0
			running := newTestService(service.WithCloser(func() error { closed++; return nil }))
			So(running.Start(ctx), ShouldBeNil)

			running.Close()
			So(running.Started(), ShouldBeFalse)
			running.Close()
			So(closed, ShouldEqual, 1)
		})
	})
}

func TestService_Events(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := newTestService()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Create stores a validated event", func() {
			e, dup, err := svc.CreateEvent(ctx, "alice", draft("  Write report ", testNow, model.CategoryWork), "")
			So(err, ShouldBeNil)
			So(dup, ShouldBeFalse)
			So(e.ID, ShouldEqual, "evt-1")
			So(e.Title, ShouldEqual, "Write report")
			So(e.Owner, ShouldEqual, "alice")
			So(e.Completed, ShouldBeFalse)

			got, err := svc.GetEvent(ctx, "alice", e.ID)
			So(err, ShouldBeNil)
			So(got.Title, ShouldEqual, "Write report")

			_, err = svc.GetEvent(ctx, "bob", e.ID)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Invalid drafts are rejected", func() {
			_, _, err := svc.CreateEvent(ctx, "alice", draft("   ", testNow, model.CategoryWork), "")
			So(errors.Is(err, model.ErrEmptyTitle), ShouldBeTrue)
			_, _, err = svc.CreateEvent(ctx, "alice", draft("x", testNow, "chores"), "")
			So(errors.Is(err, model.ErrInvalidCategory), ShouldBeTrue)
		})

		Convey("End before start is stored as given", func() {
			d := model.Draft{Title: "Backwards", Start: testNow, End: testNow.Add(-time.Hour), Category: model.CategoryOther}
			e, _, err := svc.CreateEvent(ctx, "alice", d, "")
			So(err, ShouldBeNil)
			So(e.End.Before(e.Start), ShouldBeTrue)
		})

		Convey("Update keeps the completion flag and toggle flips it", func() {
			e, _, err := svc.CreateEvent(ctx, "alice", draft("Gym", testNow, model.CategoryPersonal), "")
			So(err, ShouldBeNil)

			toggled, err := svc.ToggleEvent(ctx, "alice", e.ID)
			So(err, ShouldBeNil)
			So(toggled.Completed, ShouldBeTrue)

			updated, err := svc.UpdateEvent(ctx, "alice", e.ID, draft("Gym + sauna", testNow.Add(time.Hour), model.CategoryPersonal))
			So(err, ShouldBeNil)
			So(updated.Title, ShouldEqual, "Gym + sauna")
			So(updated.Completed, ShouldBeTrue)

			back, err := svc.ToggleEvent(ctx, "alice", e.ID)
			So(err, ShouldBeNil)
			So(back.Completed, ShouldBeFalse)
		})

		Convey("Delete removes the event and unknown ids are not found", func() {
			e, _, err := svc.CreateEvent(ctx, "alice", draft("Read", testNow, model.CategoryStudy), "")
			So(err, ShouldBeNil)
			So(svc.DeleteEvent(ctx, "alice", e.ID), ShouldBeNil)

			So(errors.Is(svc.DeleteEvent(ctx, "alice", e.ID), repository.ErrNotFound), ShouldBeTrue)
			_, err = svc.ToggleEvent(ctx, "alice", "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = svc.UpdateEvent(ctx, "alice", "nope", draft("x", testNow, model.CategoryOther))
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("List is sorted and can be bounded", func() {
			for i, h := range []int{15, 9, 12} {
				_, _, err := svc.CreateEvent(ctx, "alice",
					draft(fmt.Sprintf("e%d", i), time.Date(2024, 5, 15, h, 0, 0, 0, time.UTC), model.CategoryWork), "")
				So(err, ShouldBeNil)
			}
			all, err := svc.ListEvents(ctx, "alice", time.Time{}, time.Time{})
			So(err, ShouldBeNil)
			So(all, ShouldHaveLength, 3)
			So(all[0].Start.Hour(), ShouldEqual, 9)
			So(all[2].Start.Hour(), ShouldEqual, 15)

			morning, err := svc.ListEvents(ctx, "alice", time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC), time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC))
			So(err, ShouldBeNil)
			So(morning, ShouldHaveLength, 1)

			none, err := svc.ListEvents(ctx, "nobody", time.Time{}, time.Time{})
			So(err, ShouldBeNil)
			So(none, ShouldNotBeNil)
			So(none, ShouldBeEmpty)
		})
	})
}

func TestService_Idempotency(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := newTestService()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("A repeated key creates once", func() {
			_, dup, err := svc.CreateEvent(ctx, "alice", draft("Once", testNow, model.CategoryWork), "key-1")
			So(err, ShouldBeNil)
			So(dup, ShouldBeFalse)

			_, dup, err = svc.CreateEvent(ctx, "alice", draft("Once", testNow, model.CategoryWork), "key-1")
			So(err, ShouldBeNil)
			So(dup, ShouldBeTrue)

			events, err := svc.ListEvents(ctx, "alice", time.Time{}, time.Time{})
			So(err, ShouldBeNil)
			So(events, ShouldHaveLength, 1)
			So(svc.Size(), ShouldEqual, 1)
		})

		Convey("Keys are scoped per owner", func() {
			_, _, err := svc.CreateEvent(ctx, "alice", draft("A", testNow, model.CategoryWork), "shared")
			So(err, ShouldBeNil)
			_, dup, err := svc.CreateEvent(ctx, "bob", draft("B", testNow, model.CategoryWork), "shared")
			So(err, ShouldBeNil)
			So(dup, ShouldBeFalse)
		})

		Convey("An invalid draft does not consume the key", func() {
			_, _, err := svc.CreateEvent(ctx, "alice", draft("", testNow, model.CategoryWork), "key-2")
			So(err, ShouldNotBeNil)
			_, dup, err := svc.CreateEvent(ctx, "alice", draft("Now valid", testNow, model.CategoryWork), "key-2")
			So(err, ShouldBeNil)
			So(dup, ShouldBeFalse)
		})
	})

	Convey("A failed store write releases the key", t, func() {
		ctx := context.Background()
		svc := newTestService(service.WithIDGenerator(func() string { return "fixed" }))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		_, _, err := svc.CreateEvent(ctx, "alice", draft("First", testNow, model.CategoryWork), "")
		So(err, ShouldBeNil)

		_, _, err = svc.CreateEvent(ctx, "alice", draft("Clash", testNow, model.CategoryWork), "retry")
		So(errors.Is(err, repository.ErrDuplicateID), ShouldBeTrue)
		So(svc.Size(), ShouldEqual, 0)
	})
}

func TestService_Summary(t *testing.T) {
	Convey("Given completed events on consecutive days", t, func() {
		ctx := context.Background()
		svc := newTestService()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		complete := func(day int) {
			e, _, err := svc.CreateEvent(ctx, "alice", draft("Done", time.Date(2024, 5, day, 8, 0, 0, 0, time.UTC), model.CategoryWork), "")
			So(err, ShouldBeNil)
			_, err = svc.ToggleEvent(ctx, "alice", e.ID)
			So(err, ShouldBeNil)
		}
		complete(13)
		complete(14)
		complete(10)

		Convey("Today is exempt and the longest run spans the gap", func() {
			sum, err := svc.Summary(ctx, "alice")
			So(err, ShouldBeNil)
			So(sum.CurrentStreak, ShouldEqual, 2)
			So(sum.LongestStreak, ShouldEqual, 2)
			So(sum.TotalCompleted, ShouldEqual, 3)
			So(sum.Message, ShouldEqual, config.DefaultMotivationalMessages()[2])
			So(sum.WeeklyProgress, ShouldResemble, [7]bool{true, true})
		})

		Convey("Completing today extends the streak", func() {
			complete(15)
			sum, err := svc.Summary(ctx, "alice")
			So(err, ShouldBeNil)
			So(sum.CurrentStreak, ShouldEqual, 3)
		})

		Convey("An owner with nothing completed gets the fallback message", func() {
			sum, err := svc.Summary(ctx, "bob")
			So(err, ShouldBeNil)
			So(sum, ShouldResemble, streak.Summary{Message: streak.FallbackMessage})
		})
	})

	Convey("Custom messages rotate by streak length", t, func() {
		ctx := context.Background()
		svc := newTestService(service.WithMotivationalMessages([]string{"even", "odd"}))
		e, _, err := svc.CreateEvent(ctx, "alice", draft("Done", testNow.Add(-24*time.Hour), model.CategoryWork), "")
		So(err, ShouldBeNil)
		_, err = svc.ToggleEvent(ctx, "alice", e.ID)
		So(err, ShouldBeNil)

		sum, err := svc.Summary(ctx, "alice")
		So(err, ShouldBeNil)
		So(sum.CurrentStreak, ShouldEqual, 1)
		So(sum.Message, ShouldEqual, "odd")
	})
}

func TestService_Demo(t *testing.T) {
	Convey("Given demo seeding", t, func() {
		ctx := context.Background()
		svc := newTestService(service.WithDemoSeed(true))

		Convey("The first read fills an empty collection once", func() {
			events, err := svc.ListEvents(ctx, "alice", time.Time{}, time.Time{})
			So(err, ShouldBeNil)
			So(events, ShouldHaveLength, 39)

			completed := 0
			for _, e := range events {
				if e.Completed {
					completed++
				}
			}
			So(completed, ShouldEqual, 5)

			for _, e := range events {
				So(svc.DeleteEvent(ctx, "alice", e.ID), ShouldBeNil)
			}
			events, err = svc.ListEvents(ctx, "alice", time.Time{}, time.Time{})
			So(err, ShouldBeNil)
			So(events, ShouldBeEmpty)
		})

		Convey("The demo week starts on the Sunday of the current week", func() {
			events, err := svc.ListEvents(ctx, "alice", time.Time{}, time.Time{})
			So(err, ShouldBeNil)
			So(events[0].Start.Weekday(), ShouldEqual, time.Sunday)
			So(events[0].Start.Day(), ShouldEqual, 12)
		})
	})
}

func TestService_Calendar(t *testing.T) {
	Convey("Given a few events in May 2024", t, func() {
		ctx := context.Background()
		svc := newTestService(service.WithWeekStart(time.Monday))
		_, _, err := svc.CreateEvent(ctx, "alice", draft("Standup", time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC), model.CategoryWork), "")
		So(err, ShouldBeNil)

		anchor, err := svc.ParseDate("2024-05-15")
		So(err, ShouldBeNil)

		Convey("The month grid covers whole Monday weeks", func() {
			view, err := svc.Calendar(ctx, "alice", calendar.ViewMonth, anchor)
			So(err, ShouldBeNil)
			So(view.Cells, ShouldHaveLength, 35)
			So(view.Cells[0].Date.Format(service.DateLayout), ShouldEqual, "2024-04-29")
			So(view.Previous, ShouldEqual, "2024-04-15")
			So(view.Next, ShouldEqual, "2024-06-15")

			var today *calendar.Cell
			for i := range view.Cells {
				if view.Cells[i].IsToday {
					today = &view.Cells[i]
				}
			}
			So(today, ShouldNotBeNil)
			So(today.Events, ShouldHaveLength, 1)
		})

		Convey("The day view holds one cell", func() {
			view, err := svc.Calendar(ctx, "alice", calendar.ViewDay, anchor)
			So(err, ShouldBeNil)
			So(view.Cells, ShouldHaveLength, 1)
			So(view.Next, ShouldEqual, "2024-05-16")
		})

		Convey("Dates must be YYYY-MM-DD", func() {
			_, err := svc.ParseDate("15/05/2024")
			So(err, ShouldNotBeNil)
			today, err := svc.ParseDate("")
			So(err, ShouldBeNil)
			So(today.Format(service.DateLayout), ShouldEqual, "2024-05-15")
		})

		Convey("The iCalendar export lists the events", func() {
			doc, err := svc.ExportICS(ctx, "alice")
			So(err, ShouldBeNil)
			So(doc, ShouldContainSubstring, "SUMMARY:Standup")
		})
	})
}

func TestService_Suggest(t *testing.T) {
	Convey("Given a service with a stub model", t, func() {
		ctx := context.Background()
		stub := &stubSuggester{}
		svc := newTestService(service.WithSuggester(stub))

		Convey("A non-positive duration is a request error", func() {
			_, err := svc.Suggest(ctx, "alice", service.SuggestRequest{DurationMinutes: 0})
			So(errors.Is(err, service.ErrInvalidDuration), ShouldBeTrue)
		})

		Convey("A model failure fails closed", func() {
			stub.err = errors.New("upstream down")
			res, err := svc.Suggest(ctx, "alice", service.SuggestRequest{DurationMinutes: 30})
			So(err, ShouldBeNil)
			So(res, ShouldResemble, service.SuggestResult{
				Success:     false,
				Error:       "Failed to get suggestions from AI.",
				Suggestions: []string{},
			})
		})

		Convey("Success returns raw entries and parsed slots", func() {
			stub.res = suggest.Result{SuggestedSlots: []string{
				"BEGIN:VEVENT\nDTSTART:20240516T140000Z\nDTEND:20240516T143000Z\nEND:VEVENT",
				"Thursday evening",
			}}
			_, _, err := svc.CreateEvent(ctx, "alice", draft("Busy", testNow, model.CategoryWork), "")
			So(err, ShouldBeNil)

			res, err := svc.Suggest(ctx, "alice", service.SuggestRequest{DurationMinutes: 30, Preferences: "afternoons"})
			So(err, ShouldBeNil)
			So(res.Success, ShouldBeTrue)
			So(res.Suggestions, ShouldHaveLength, 2)
			So(res.Slots, ShouldHaveLength, 1)
			So(res.Slots[0].Start.Equal(time.Date(2024, 5, 16, 14, 0, 0, 0, time.UTC)), ShouldBeTrue)

			So(stub.got.DurationMinutes, ShouldEqual, 30)
			So(stub.got.Preferences, ShouldEqual, "afternoons")
			So(stub.got.Schedule, ShouldContainSubstring, "SUMMARY:Busy")
		})

		Convey("A client supplied schedule is passed through", func() {
			_, err := svc.Suggest(ctx, "alice", service.SuggestRequest{Schedule: "BEGIN:VCALENDAR\nEND:VCALENDAR", DurationMinutes: 15})
			So(err, ShouldBeNil)
			So(stub.got.Schedule, ShouldEqual, "BEGIN:VCALENDAR\nEND:VCALENDAR")
		})
	})

	Convey("Without a model suggestions fail closed", t, func() {
		svc := newTestService()
		res, err := svc.Suggest(context.Background(), "alice", service.SuggestRequest{DurationMinutes: 30})
		So(err, ShouldBeNil)
		So(res.Success, ShouldBeFalse)
		So(res.Error, ShouldEqual, service.SuggestionFailure)
		So(res.Suggestions, ShouldNotBeNil)
	})
}

func TestService_Auth(t *testing.T) {
	Convey("Without accounts every request is the local owner", t, func() {
		ctx := context.Background()
		svc := newTestService()
		So(svc.AuthEnabled(), ShouldBeFalse)

		owner, err := svc.Authenticate(ctx, "")
		So(err, ShouldBeNil)
		So(owner, ShouldEqual, model.LocalOwner)

		_, err = svc.Signup(ctx, "a@example.com", "secret1", "")
		So(errors.Is(err, service.ErrAuthDisabled), ShouldBeTrue)
		_, err = svc.Login(ctx, "a@example.com", "secret1")
		So(errors.Is(err, service.ErrAuthDisabled), ShouldBeTrue)
	})
}

func readMessage(conn *websocket.Conn) (string, json.RawMessage, error) {
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		return "", nil, err
	}
	return msg.Type, msg.Data, nil
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestService_Notifications(t *testing.T) {
	Convey("Given a connected websocket client", t, func() {
		ctx := context.Background()
		svc := newTestService()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = svc.ServeWS(w, r, "alice")
		}))
		defer srv.Close()

		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
		So(err, ShouldBeNil)
		defer conn.Close()
		So(waitFor(func() bool { return svc.GetStats()["websocketClients"] == 1 }), ShouldBeTrue)

		Convey("A mutation pushes the change and a fresh summary", func() {
			e, _, err := svc.CreateEvent(ctx, "alice", draft("Done", testNow.Add(-24*time.Hour), model.CategoryWork), "")
			So(err, ShouldBeNil)
			_, err = svc.ToggleEvent(ctx, "alice", e.ID)
			So(err, ShouldBeNil)

			var last streak.Summary
			changes := 0
			for i := 0; i < 4; i++ {
				typ, data, err := readMessage(conn)
				So(err, ShouldBeNil)
				switch typ {
				case "event_changed":
					changes++
				case "streak_summary":
					So(json.Unmarshal(data, &last), ShouldBeNil)
				}
			}
			So(changes, ShouldEqual, 2)
			So(last.TotalCompleted, ShouldBeBetweenOrEqual, 0, 1)
		})

		Convey("A due event triggers an upcoming_event reminder", func() {
			_, _, err := svc.CreateEvent(ctx, "alice", draft("Standup", testNow.Add(5*time.Minute), model.CategoryWork), "")
			So(err, ShouldBeNil)

			sent, err := svc.RunReminders(ctx)
			So(err, ShouldBeNil)
			So(sent, ShouldEqual, 1)

			found := false
			for i := 0; i < 3 && !found; i++ {
				typ, data, err := readMessage(conn)
				So(err, ShouldBeNil)
				if typ == "upcoming_event" {
					found = true
					So(string(data), ShouldContainSubstring, "Standup starts in 5 minutes.")
				}
			}
			So(found, ShouldBeTrue)
		})
	})

	Convey("ServeWS and reminders need a started service", t, func() {
		svc := newTestService()
		_, err := svc.RunReminders(context.Background())
		So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		So(errors.Is(svc.ServeWS(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ws", nil), "alice"), service.ErrNotStarted), ShouldBeTrue)
	})
}
