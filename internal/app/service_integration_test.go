package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/timeforge/internal/adapters/identity"
	service "github.com/okian/timeforge/internal/app"
	"github.com/okian/timeforge/internal/config"
	"github.com/okian/timeforge/internal/domain/model"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.New()
	cfg.Timezone = "UTC"
	cfg.SeedDemo = false
	cfg.WorkerCount = 2
	cfg.QueueSize = 100
	cfg.StorePath = filepath.Join(dir, "events.json")
	cfg.DatabasePath = filepath.Join(dir, "timeforge.db")
	cfg.ReminderSchedule = "@every 1h"
	return cfg
}

func TestServiceFromConfig(t *testing.T) {
	Convey("Given a sqlite backed service with accounts", t, func() {
		ctx := context.Background()
		cfg := testConfig(t)
		cfg.StoreBackend = "sqlite"
		cfg.AuthEnabled = true
		cfg.JWTSecret = "integration-secret"

		svc, err := service.FromConfig(ctx, cfg, service.WithClock(func() time.Time { return testNow }))
		So(err, ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		So(svc.AuthEnabled(), ShouldBeTrue)
		So(svc.GetStats()["store"], ShouldEqual, "sqlite")

		Convey("Requests without a token are rejected", func() {
			_, err := svc.Authenticate(ctx, "")
			So(errors.Is(err, service.ErrUnauthenticated), ShouldBeTrue)
			_, err = svc.Authenticate(ctx, "Basic abc")
			So(errors.Is(err, service.ErrUnauthenticated), ShouldBeTrue)
			_, err = svc.Authenticate(ctx, "Bearer garbage")
			So(errors.Is(err, identity.ErrInvalidToken), ShouldBeTrue)
		})

		Convey("Each account sees only its own events", func() {
			ada, err := svc.Signup(ctx, "ada@example.com", "secret1", "Ada")
			So(err, ShouldBeNil)
			bob, err := svc.Signup(ctx, "bob@example.com", "secret2", "Bob")
			So(err, ShouldBeNil)

			_, err = svc.Signup(ctx, "ada@example.com", "secret3", "")
			So(errors.Is(err, identity.ErrEmailInUse), ShouldBeTrue)

			adaOwner, err := svc.Authenticate(ctx, "Bearer "+ada.AccessToken)
			So(err, ShouldBeNil)
			So(adaOwner, ShouldEqual, ada.User.ID)

			_, _, err = svc.CreateEvent(ctx, adaOwner, draft("Ada's task", testNow, model.CategoryWork), "")
			So(err, ShouldBeNil)

			bobOwner, err := svc.Authenticate(ctx, "bearer "+bob.AccessToken)
			So(err, ShouldBeNil)
			events, err := svc.ListEvents(ctx, bobOwner, time.Time{}, time.Time{})
			So(err, ShouldBeNil)
			So(events, ShouldBeEmpty)

			login, err := svc.Login(ctx, "ada@example.com", "secret1")
			So(err, ShouldBeNil)
			So(login.User.ID, ShouldEqual, ada.User.ID)

			events, err = svc.ListEvents(ctx, adaOwner, time.Time{}, time.Time{})
			So(err, ShouldBeNil)
			So(events, ShouldHaveLength, 1)
			So(svc.GetStats()["owners"], ShouldEqual, 1)
		})
	})

	Convey("Given a file backed service", t, func() {
		ctx := context.Background()
		cfg := testConfig(t)
		cfg.StoreBackend = "file"

		svc, err := service.FromConfig(ctx, cfg)
		So(err, ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)

		e, _, err := svc.CreateEvent(ctx, model.LocalOwner, draft("Persist me", testNow, model.CategoryStudy), "")
		So(err, ShouldBeNil)
		_, err = svc.ToggleEvent(ctx, model.LocalOwner, e.ID)
		So(err, ShouldBeNil)
		svc.Stop()

		Convey("A restarted service reads the same collection", func() {
			again, err := service.FromConfig(ctx, cfg)
			So(err, ShouldBeNil)
			So(again.Start(ctx), ShouldBeNil)
			defer again.Stop()

			got, err := again.GetEvent(ctx, model.LocalOwner, e.ID)
			So(err, ShouldBeNil)
			So(got.Title, ShouldEqual, "Persist me")
			So(got.Completed, ShouldBeTrue)
		})
	})

	Convey("An invalid configuration is refused", t, func() {
		cfg := testConfig(t)
		cfg.StoreBackend = "postgres"
		_, err := service.FromConfig(context.Background(), cfg)
		So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
	})
}
