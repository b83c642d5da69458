package api

import (
	"context"
	"net/http"

	"github.com/unisport/kursfinder/internal/domain/model"
)

// EventsDependencies defines the interface for schedule queries.
type EventsDependencies interface {
	ListEvents(ctx context.Context, c model.EventCriteria) ([]model.Event, error)
}

// EventsHandler handles schedule listing requests.
type EventsHandler struct {
	deps EventsDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventsDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandleListEvents handles GET /events requests. Sessions come back in
// chronological order; filter criteria arrive as query parameters.
func (h *EventsHandler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_events"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	criteria, err := eventCriteriaFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	events, err := h.deps.ListEvents(r.Context(), criteria)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toEventResponses(events))
}
