package api

import (
	"fmt"
	"net/http"

	service "github.com/okian/timeforge/internal/app"
)

// SuggestionsHandler serves AI slot suggestions.
type SuggestionsHandler struct {
	deps SuggestDependencies
}

// NewSuggestionsHandler creates a new suggestions handler.
func NewSuggestionsHandler(deps SuggestDependencies) *SuggestionsHandler {
	return &SuggestionsHandler{deps: deps}
}

// HandleSuggest handles POST /suggestions. Model failures are reported in
// the body with success=false; only malformed input is a 400.
func (h *SuggestionsHandler) HandleSuggest(w http.ResponseWriter, r *http.Request) {
	const op = "api.suggestions"
	owner, _ := OwnerFrom(r.Context())

	var req service.SuggestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, fmt.Errorf("invalid JSON body: %w", err)))
		return
	}
	res, err := h.deps.Suggest(r.Context(), owner, req)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
