package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/robfig/cron/v3"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/timeforge/internal/domain/model"
)

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

func dial(t *testing.T, srv *httptest.Server, owner string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?owner=" + owner
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestHub(t *testing.T) {
	Convey("Given a hub behind a test server", t, func() {
		hub := NewHub(nil)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = hub.ServeWS(w, r, r.URL.Query().Get("owner"))
		}))
		defer srv.Close()

		conn := dial(t, srv, "alice")
		defer conn.Close()
		So(waitFor(func() bool { return hub.Clients("alice") == 1 }), ShouldBeTrue)
		So(hub.Total(), ShouldEqual, 1)

		Convey("Broadcast reaches only the owner's clients", func() {
			So(hub.Broadcast("bob", Message{Type: TypeStreakSummary}), ShouldEqual, 0)
			So(hub.Broadcast("alice", Message{Type: TypeStreakSummary, Data: map[string]int{"currentStreak": 3}}), ShouldEqual, 1)

			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			_, payload, err := conn.ReadMessage()
			So(err, ShouldBeNil)

			var got struct {
				Type string         `json:"type"`
				Data map[string]int `json:"data"`
			}
			So(json.Unmarshal(payload, &got), ShouldBeNil)
			So(got.Type, ShouldEqual, TypeStreakSummary)
			So(got.Data["currentStreak"], ShouldEqual, 3)
		})

		Convey("A disconnecting client is unregistered", func() {
			So(conn.Close(), ShouldBeNil)
			So(waitFor(func() bool { return hub.Clients("alice") == 0 }), ShouldBeTrue)
			So(hub.Total(), ShouldEqual, 0)
		})

		Convey("Close disconnects clients and refuses new ones", func() {
			hub.Close()
			So(hub.Total(), ShouldEqual, 0)

			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			_, _, err := conn.ReadMessage()
			So(websocket.IsCloseError(err, websocket.CloseNormalClosure), ShouldBeTrue)

			So(hub.Broadcast("alice", Message{Type: TypeStreakSummary}), ShouldEqual, 0)

			late := dial(t, srv, "alice")
			defer late.Close()
			_ = late.SetReadDeadline(time.Now().Add(2 * time.Second))
			_, _, err = late.ReadMessage()
			So(websocket.IsCloseError(err, websocket.CloseGoingAway), ShouldBeTrue)
		})
	})
}

type fakeSource struct {
	events map[string][]model.Event
	err    error
}

func (f *fakeSource) Owners(context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	owners := make([]string, 0, len(f.events))
	for o := range f.events {
		owners = append(owners, o)
	}
	return owners, nil
}

func (f *fakeSource) List(_ context.Context, owner string) ([]model.Event, error) {
	return f.events[owner], nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent map[string][]Message
}

func (p *recordingPublisher) Broadcast(owner string, msg Message) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sent == nil {
		p.sent = make(map[string][]Message)
	}
	p.sent[owner] = append(p.sent[owner], msg)
	return 1
}

func TestSchedulerTick(t *testing.T) {
	Convey("Given events around the five minute mark", t, func() {
		now := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)
		src := &fakeSource{events: map[string][]model.Event{
			"alice": {
				{ID: "soon", Title: "Standup", Start: now.Add(5 * time.Minute)},
				{ID: "done", Title: "Done", Start: now.Add(5 * time.Minute), Completed: true},
				{ID: "later", Title: "Later", Start: now.Add(20 * time.Minute)},
			},
			"bob": {
				{ID: "edge", Title: "Review", Start: now.Add(4*time.Minute + 30*time.Second)},
			},
		}}
		pub := &recordingPublisher{}
		s := NewScheduler(src, pub, WithTick(time.Minute), WithSchedulerClock(func() time.Time { return now }))

		Convey("Tick announces due uncompleted events per owner", func() {
			n, err := s.Tick(context.Background())
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)

			So(pub.sent["alice"], ShouldHaveLength, 1)
			r, ok := pub.sent["alice"][0].Data.(Reminder)
			So(ok, ShouldBeTrue)
			So(pub.sent["alice"][0].Type, ShouldEqual, TypeUpcomingEvent)
			So(r.Event.ID, ShouldEqual, "soon")
			So(r.Title, ShouldEqual, "Upcoming Event")
			So(r.Description, ShouldEqual, "Standup starts in 5 minutes.")
			So(pub.sent["bob"], ShouldHaveLength, 1)
		})

		Convey("A failing source is reported", func() {
			src.err = errors.New("down")
			_, err := s.Tick(context.Background())
			So(err, ShouldNotBeNil)
		})
	})
}

func TestSchedulerLifecycle(t *testing.T) {
	Convey("Start rejects a bad schedule", t, func() {
		s := NewScheduler(&fakeSource{}, &recordingPublisher{})
		So(s.Start("every tuesday"), ShouldNotBeNil)
	})

	Convey("Start derives the tick from the schedule and Stop cancels it", t, func() {
		s := NewScheduler(&fakeSource{}, &recordingPublisher{})
		So(s.Start("@every 2m"), ShouldBeNil)
		So(s.tick, ShouldEqual, 2*time.Minute)
		So(s.Start("@every 2m"), ShouldBeNil)

		done := make(chan struct{})
		go func() {
			s.Stop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Stop did not return")
		}
		s.Stop()
	})

	Convey("interval measures standard schedules", t, func() {
		sched, err := cron.ParseStandard("*/15 * * * *")
		So(err, ShouldBeNil)
		So(interval(sched, time.Date(2024, 5, 15, 9, 7, 0, 0, time.UTC)), ShouldEqual, 15*time.Minute)
	})
}
