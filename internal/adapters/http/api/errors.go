package api

import (
	"errors"
	"net/http"

	"github.com/okian/timeforge/internal/adapters/identity"
	"github.com/okian/timeforge/internal/adapters/repository"
	service "github.com/okian/timeforge/internal/app"
	"github.com/okian/timeforge/internal/domain/calendar"
	"github.com/okian/timeforge/internal/domain/model"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrUnavailable  = errors.New("unavailable")
	ErrInternal     = errors.New("internal error")
)

// OpError records the handler operation that failed, the kind used to pick
// the response status, and the underlying cause.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewKind returns an error of kind with no further cause.
func NewKind(op string, kind error) error {
	return &OpError{Op: op, Kind: kind}
}

// WrapKind attaches op and an explicit kind to err.
func WrapKind(op string, kind, err error) error {
	return &OpError{Op: op, Kind: kind, Err: err}
}

// Wrap attaches op to err and derives the kind from err.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Kind: kindOf(err), Err: err}
}

func kindOf(err error) error {
	var idErr *identity.Error
	switch {
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrAuthDisabled):
		return ErrNotFound
	case errors.Is(err, model.ErrEmptyTitle),
		errors.Is(err, model.ErrInvalidCategory),
		errors.Is(err, model.ErrMissingTime),
		errors.Is(err, calendar.ErrUnknownView),
		errors.Is(err, service.ErrInvalidDuration):
		return ErrBadRequest
	case errors.Is(err, service.ErrUnauthenticated),
		errors.Is(err, identity.ErrInvalidToken),
		errors.Is(err, identity.ErrExpiredToken),
		errors.Is(err, identity.ErrInvalidCredentials):
		return ErrUnauthorized
	case errors.Is(err, identity.ErrEmailInUse),
		errors.Is(err, repository.ErrDuplicateID):
		return ErrConflict
	case errors.As(err, &idErr):
		return ErrBadRequest
	case errors.Is(err, service.ErrNotStarted):
		return ErrUnavailable
	}
	return ErrInternal
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// codeAndMessage returns the envelope fields for err. Identity failures keep
// their own code and user-facing message; internal errors are not echoed.
func codeAndMessage(status int, err error) (string, string) {
	var idErr *identity.Error
	if errors.As(err, &idErr) {
		return idErr.Code, idErr.Message
	}
	var opErr *OpError
	cause := err
	if errors.As(err, &opErr) && opErr.Err != nil {
		cause = opErr.Err
	}
	switch status {
	case http.StatusBadRequest:
		return "bad_request", cause.Error()
	case http.StatusNotFound:
		return "not_found", cause.Error()
	case http.StatusUnauthorized:
		return "unauthorized", cause.Error()
	case http.StatusConflict:
		return "conflict", cause.Error()
	case http.StatusServiceUnavailable:
		return "unavailable", http.StatusText(status)
	}
	return "internal_error", http.StatusText(status)
}
