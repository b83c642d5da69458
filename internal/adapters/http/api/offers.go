package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/unisport/kursfinder/internal/domain/model"
)

// OffersDependencies defines the interface for catalog read and rating
// operations.
type OffersDependencies interface {
	ListOffers(ctx context.Context, c model.OfferCriteria) ([]model.Offer, error)
	GetOffer(ctx context.Context, id int64) (model.Offer, []model.Event, error)
	EnsureUser(ctx context.Context, sub, email, name string) (int64, error)
	RateOffer(ctx context.Context, userID, offerID int64, score int) error
}

// OffersHandler handles catalog browsing and rating requests.
type OffersHandler struct {
	deps OffersDependencies
	auth *Authenticator
}

// NewOffersHandler creates a new offers handler.
func NewOffersHandler(deps OffersDependencies, auth *Authenticator) *OffersHandler {
	return &OffersHandler{deps: deps, auth: auth}
}

// HandleListOffers handles GET /offers requests. Filter criteria arrive as
// query parameters; an empty query returns the whole catalog.
func (h *OffersHandler) HandleListOffers(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_offers"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	criteria, err := offerCriteriaFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	offers, err := h.deps.ListOffers(r.Context(), criteria)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toOfferResponses(offers))
}

// HandleOfferSubtree dispatches requests under /offers/:
// GET /offers/{id} returns one offer with its schedule, and
// PUT /offers/{id}/rating stores the caller's rating.
func (h *OffersHandler) HandleOfferSubtree(w http.ResponseWriter, r *http.Request) {
	const op = "api.offer_by_id"
	path := strings.TrimPrefix(r.URL.Path, "/offers/")
	rest := ""
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path, rest = path[:i], path[i+1:]
	}
	id, err := strconv.ParseInt(path, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, errOfferID))
		return
	}
	switch {
	case rest == "" && r.Method == http.MethodGet:
		h.getOffer(w, r, id)
	case rest == "rating" && r.Method == http.MethodPut:
		h.putRating(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (h *OffersHandler) getOffer(w http.ResponseWriter, r *http.Request, id int64) {
	const op = "api.get_offer"
	offer, events, err := h.deps.GetOffer(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, offerDetailResponse{
		offerResponse: toOfferResponse(offer),
		Events:        toEventResponses(events),
	})
}

// ratingRequest mirrors the OpenAPI schema for PUT /offers/{id}/rating.
type ratingRequest struct {
	Score int `json:"score" validate:"required,gte=1,lte=5"`
}

func (h *OffersHandler) putRating(w http.ResponseWriter, r *http.Request, id int64) {
	const op = "api.rate_offer"
	claims, err := h.auth.Authenticate(r)
	if err != nil {
		writeUnauthorized(w, op, err)
		return
	}
	var req ratingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, errScoreRange))
		return
	}
	userID, err := h.deps.EnsureUser(r.Context(), claims.Subject, claims.Email, claims.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if err := h.deps.RateOffer(r.Context(), userID, id, req.Score); err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}
