package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okian/timeforge/internal/domain/model"
)

// IdempotencyHeader carries the client key that makes POST /events safe to retry.
const IdempotencyHeader = "Idempotency-Key"

// EventsHandler serves the event collection of the authenticated owner.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

type eventRequest struct {
	Title    string `json:"title"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Category string `json:"category"`
}

// draft converts the wire request. Missing times are left zero so that
// validation reports them; malformed ones are rejected here.
func (req eventRequest) draft() (model.Draft, error) {
	d := model.Draft{Title: req.Title, Category: model.Category(req.Category)}
	var err error
	if d.Start, err = parseTimestamp("start", req.Start); err != nil {
		return d, err
	}
	if d.End, err = parseTimestamp("end", req.End); err != nil {
		return d, err
	}
	return d, nil
}

func parseTimestamp(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be an RFC3339 timestamp", field)
	}
	return t, nil
}

// HandleList handles GET /events?from=&to=.
func (h *EventsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.events.list"
	owner, _ := OwnerFrom(r.Context())

	from, err := h.bound(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	to, err := h.bound(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	events, err := h.deps.ListEvents(r.Context(), owner, from, to)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// bound accepts an RFC3339 timestamp or a date in the service zone.
func (h *EventsHandler) bound(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return h.deps.ParseDate(value)
}

// HandleCreate handles POST /events.
func (h *EventsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.events.create"
	owner, _ := OwnerFrom(r.Context())

	var req eventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, fmt.Errorf("invalid JSON body: %w", err)))
		return
	}
	d, err := req.draft()
	if err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	e, duplicate, err := h.deps.CreateEvent(r.Context(), owner, d, r.Header.Get(IdempotencyHeader))
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// HandleGet handles GET /events/{id}.
func (h *EventsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.events.get"
	owner, _ := OwnerFrom(r.Context())
	e, err := h.deps.GetEvent(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// HandleUpdate handles PUT /events/{id}.
func (h *EventsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.events.update"
	owner, _ := OwnerFrom(r.Context())

	var req eventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, fmt.Errorf("invalid JSON body: %w", err)))
		return
	}
	d, err := req.draft()
	if err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	e, err := h.deps.UpdateEvent(r.Context(), owner, r.PathValue("id"), d)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// HandleDelete handles DELETE /events/{id}.
func (h *EventsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.events.delete"
	owner, _ := OwnerFrom(r.Context())
	if err := h.deps.DeleteEvent(r.Context(), owner, r.PathValue("id")); err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleToggle handles POST /events/{id}/toggle.
func (h *EventsHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	const op = "api.events.toggle"
	owner, _ := OwnerFrom(r.Context())
	e, err := h.deps.ToggleEvent(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, e)
}
