package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/timeforge/internal/adapters/identity"
	"github.com/okian/timeforge/internal/adapters/repository"
	service "github.com/okian/timeforge/internal/app"
	"github.com/okian/timeforge/internal/domain/model"
)

func TestErrorMapping(t *testing.T) {
	Convey("Errors map to HTTP statuses", t, func() {
		cases := []struct {
			err    error
			status int
		}{
			{repository.ErrNotFound, http.StatusNotFound},
			{fmt.Errorf("get: %w", repository.ErrNotFound), http.StatusNotFound},
			{model.ErrInvalidCategory, http.StatusBadRequest},
			{service.ErrInvalidDuration, http.StatusBadRequest},
			{service.ErrUnauthenticated, http.StatusUnauthorized},
			{identity.ErrExpiredToken, http.StatusUnauthorized},
			{identity.ErrEmailInUse, http.StatusConflict},
			{identity.ErrWeakPassword, http.StatusBadRequest},
			{service.ErrNotStarted, http.StatusServiceUnavailable},
			{errors.New("disk on fire"), http.StatusInternalServerError},
		}
		for _, c := range cases {
			So(statusOf(Wrap("op", c.err)), ShouldEqual, c.status)
		}
	})

	Convey("Explicit kinds win and keep the cause", t, func() {
		cause := errors.New("boom")
		err := WrapKind("api.test", ErrBadRequest, cause)
		So(errors.Is(err, ErrBadRequest), ShouldBeTrue)
		So(errors.Is(err, cause), ShouldBeTrue)
		So(err.Error(), ShouldEqual, "api.test: boom")

		So(NewKind("api.test", ErrConflict).Error(), ShouldEqual, "api.test: conflict")
		So(Wrap("op", nil), ShouldBeNil)
	})

	Convey("Envelopes hide internal causes", t, func() {
		code, msg := codeAndMessage(http.StatusInternalServerError, Wrap("op", errors.New("dsn=secret")))
		So(code, ShouldEqual, "internal_error")
		So(msg, ShouldNotContainSubstring, "secret")

		code, msg = codeAndMessage(http.StatusConflict, Wrap("op", identity.ErrEmailInUse))
		So(code, ShouldEqual, "email_in_use")
		So(msg, ShouldEqual, identity.ErrEmailInUse.Message)
	})
}

func TestErrorTypeLabels(t *testing.T) {
	Convey("Status codes map to metric labels", t, func() {
		So(getErrorType(http.StatusInternalServerError), ShouldEqual, "server_error")
		So(getErrorType(http.StatusTooManyRequests), ShouldEqual, "rate_limit")
		So(getErrorType(http.StatusNotFound), ShouldEqual, "not_found")
		So(getErrorType(http.StatusUnauthorized), ShouldEqual, "unauthorized")
		So(getErrorType(http.StatusConflict), ShouldEqual, "client_error")
		So(getErrorSeverity(http.StatusBadGateway), ShouldEqual, "high")
		So(getErrorSeverity(http.StatusBadRequest), ShouldEqual, "medium")
		So(getErrorSeverity(http.StatusOK), ShouldEqual, "low")
	})
}
