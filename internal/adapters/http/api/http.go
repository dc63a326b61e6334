// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/okian/timeforge/internal/adapters/identity"
	service "github.com/okian/timeforge/internal/app"
	"github.com/okian/timeforge/internal/domain/calendar"
	"github.com/okian/timeforge/internal/domain/model"
	"github.com/okian/timeforge/internal/domain/streak"
	"github.com/okian/timeforge/pkg/logger"
)

// EventDependencies are the event store operations, scoped by owner.
type EventDependencies interface {
	ListEvents(ctx context.Context, owner string, from, to time.Time) ([]model.Event, error)
	GetEvent(ctx context.Context, owner, id string) (model.Event, error)
	CreateEvent(ctx context.Context, owner string, d model.Draft, idempotencyKey string) (model.Event, bool, error)
	UpdateEvent(ctx context.Context, owner, id string, d model.Draft) (model.Event, error)
	DeleteEvent(ctx context.Context, owner, id string) error
	ToggleEvent(ctx context.Context, owner, id string) (model.Event, error)
	ParseDate(value string) (time.Time, error)
}

// ViewDependencies render derived views of an owner's events.
type ViewDependencies interface {
	Summary(ctx context.Context, owner string) (streak.Summary, error)
	Calendar(ctx context.Context, owner string, view calendar.View, anchor time.Time) (service.CalendarView, error)
	ExportICS(ctx context.Context, owner string) (string, error)
	ParseDate(value string) (time.Time, error)
}

// SuggestDependencies produce AI slot suggestions.
type SuggestDependencies interface {
	Suggest(ctx context.Context, owner string, req service.SuggestRequest) (service.SuggestResult, error)
}

// AuthDependencies manage accounts and resolve request owners.
type AuthDependencies interface {
	AuthEnabled() bool
	Authenticate(ctx context.Context, authorization string) (string, error)
	Signup(ctx context.Context, email, password, fullName string) (identity.Session, error)
	Login(ctx context.Context, email, password string) (identity.Session, error)
}

// NotifyDependencies stream push messages to clients.
type NotifyDependencies interface {
	ServeWS(w http.ResponseWriter, r *http.Request, owner string) error
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	EventDependencies
	ViewDependencies
	SuggestDependencies
	AuthDependencies
	NotifyDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	auth               AuthDependencies
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	eventsHandler      *EventsHandler
	viewsHandler       *ViewsHandler
	suggestionsHandler *SuggestionsHandler
	authHandler        *AuthHandler
	wsHandler          *WSHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		auth:               deps,
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		eventsHandler:      NewEventsHandler(deps),
		viewsHandler:       NewViewsHandler(deps),
		suggestionsHandler: NewSuggestionsHandler(deps),
		authHandler:        NewAuthHandler(deps),
		wsHandler:          NewWSHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	owned := func(h http.HandlerFunc) http.HandlerFunc { return RequireOwner(s.auth, h) }

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /auth/signup", MetricsMiddleware(s.authHandler.HandleSignup, "auth_signup"))
	mux.HandleFunc("POST /auth/login", MetricsMiddleware(s.authHandler.HandleLogin, "auth_login"))

	mux.HandleFunc("GET /events", MetricsMiddleware(owned(s.eventsHandler.HandleList), "events"))
	mux.HandleFunc("POST /events", MetricsMiddleware(owned(s.eventsHandler.HandleCreate), "events"))
	mux.HandleFunc("GET /events/{id}", MetricsMiddleware(owned(s.eventsHandler.HandleGet), "event"))
	mux.HandleFunc("PUT /events/{id}", MetricsMiddleware(owned(s.eventsHandler.HandleUpdate), "event"))
	mux.HandleFunc("DELETE /events/{id}", MetricsMiddleware(owned(s.eventsHandler.HandleDelete), "event"))
	mux.HandleFunc("POST /events/{id}/toggle", MetricsMiddleware(owned(s.eventsHandler.HandleToggle), "event_toggle"))

	mux.HandleFunc("GET /streaks", MetricsMiddleware(owned(s.viewsHandler.HandleStreaks), "streaks"))
	mux.HandleFunc("GET /calendar", MetricsMiddleware(owned(s.viewsHandler.HandleCalendar), "calendar"))
	mux.HandleFunc("GET /calendar.ics", MetricsMiddleware(owned(s.viewsHandler.HandleICS), "calendar_ics"))

	mux.HandleFunc("POST /suggestions", MetricsMiddleware(owned(s.suggestionsHandler.HandleSuggest), "suggestions"))

	mux.HandleFunc("GET /ws", owned(s.wsHandler.HandleWS))
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err in the {code,message} envelope. Server side
// failures are logged with their cause and answered generically.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	code, msg := codeAndMessage(status, err)
	if status >= http.StatusInternalServerError {
		logger.Named("api").Error(r.Context(), "request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

const maxBodyBytes = 1 << 20
