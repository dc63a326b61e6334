package api

import (
	"errors"
	"net/http"

	service "github.com/okian/timeforge/internal/app"
	"github.com/okian/timeforge/pkg/logger"
)

// WSHandler upgrades authenticated requests to the notification stream.
type WSHandler struct {
	deps NotifyDependencies
}

// NewWSHandler creates a new websocket handler.
func NewWSHandler(deps NotifyDependencies) *WSHandler {
	return &WSHandler{deps: deps}
}

// HandleWS handles GET /ws.
func (h *WSHandler) HandleWS(w http.ResponseWriter, r *http.Request) {
	const op = "api.ws"
	owner, _ := OwnerFrom(r.Context())
	err := h.deps.ServeWS(w, r, owner)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, r, Wrap(op, err))
	default:
		// The upgrader has already answered the client.
		logger.Named("api").Debug(r.Context(), "websocket closed",
			logger.String("owner", owner), logger.Error(err))
	}
}
