package api

import (
	"net/http"

	"github.com/okian/timeforge/internal/domain/calendar"
)

// ViewsHandler serves read-only projections: streaks, calendar grids and
// the iCalendar export.
type ViewsHandler struct {
	deps ViewDependencies
}

// NewViewsHandler creates a new views handler.
func NewViewsHandler(deps ViewDependencies) *ViewsHandler {
	return &ViewsHandler{deps: deps}
}

// HandleStreaks handles GET /streaks.
func (h *ViewsHandler) HandleStreaks(w http.ResponseWriter, r *http.Request) {
	const op = "api.streaks"
	owner, _ := OwnerFrom(r.Context())
	sum, err := h.deps.Summary(r.Context(), owner)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleCalendar handles GET /calendar?view=day|week|month&date=YYYY-MM-DD.
func (h *ViewsHandler) HandleCalendar(w http.ResponseWriter, r *http.Request) {
	const op = "api.calendar"
	owner, _ := OwnerFrom(r.Context())
	q := r.URL.Query()

	view, err := calendar.ParseView(q.Get("view"))
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	anchor, err := h.deps.ParseDate(q.Get("date"))
	if err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	cv, err := h.deps.Calendar(r.Context(), owner, view, anchor)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, cv)
}

// HandleICS handles GET /calendar.ics.
func (h *ViewsHandler) HandleICS(w http.ResponseWriter, r *http.Request) {
	const op = "api.calendar.ics"
	owner, _ := OwnerFrom(r.Context())
	doc, err := h.deps.ExportICS(r.Context(), owner)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="timeforge.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}
