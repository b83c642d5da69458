package api

import (
	"context"
	"net/http"

	"github.com/unisport/kursfinder/internal/adapters/ical"
	"github.com/unisport/kursfinder/internal/domain/model"
)

// FeedDependencies defines the interface for calendar feed rendering.
type FeedDependencies interface {
	Feed(ctx context.Context, c model.EventCriteria) (string, error)
}

// FeedHandler handles iCalendar feed requests.
type FeedHandler struct {
	deps FeedDependencies
}

// NewFeedHandler creates a new feed handler.
func NewFeedHandler(deps FeedDependencies) *FeedHandler {
	return &FeedHandler{deps: deps}
}

// HandleFeed handles GET /feed.ics requests. The same query parameters as
// /events narrow the feed, so calendar clients can subscribe to a single
// course or weekday.
func (h *FeedHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_feed"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	criteria, err := eventCriteriaFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	doc, err := h.deps.Feed(r.Context(), criteria)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	w.Header().Set("Content-Type", ical.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="unisport.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}
