package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/unisport/kursfinder/internal/domain/model"
)

// MeDependencies defines the interface for per-user state.
type MeDependencies interface {
	EnsureUser(ctx context.Context, sub, email, name string) (int64, error)
	Favorites(ctx context.Context, userID int64) ([]model.Offer, error)
	SetFavorite(ctx context.Context, userID, offerID int64, on bool) (bool, error)
	SavePreferences(ctx context.Context, userID int64, f model.Features) error
	PreferencesFor(ctx context.Context, userID int64) (model.Features, time.Time, error)
}

// MeHandler handles requests for the authenticated user's own state.
type MeHandler struct {
	deps MeDependencies
	auth *Authenticator
}

// NewMeHandler creates a new user-state handler.
func NewMeHandler(deps MeDependencies, auth *Authenticator) *MeHandler {
	return &MeHandler{deps: deps, auth: auth}
}

type userResponse struct {
	ID      int64  `json:"id"`
	Subject string `json:"subject"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
}

type preferencesResponse struct {
	Features map[string]float64 `json:"features"`
	SavedAt  time.Time          `json:"saved_at"`
}

// preferencesRequest mirrors the OpenAPI schema for PUT /me/preferences.
type preferencesRequest struct {
	Preferences map[string]float64 `json:"preferences,omitempty"`
	Vector      []float64          `json:"vector,omitempty"`
}

// user authenticates the request and resolves the caller's stored identity,
// creating it on first contact.
func (h *MeHandler) user(w http.ResponseWriter, r *http.Request, op string) (int64, *Claims, bool) {
	claims, err := h.auth.Authenticate(r)
	if err != nil {
		writeUnauthorized(w, op, err)
		return 0, nil, false
	}
	id, err := h.deps.EnsureUser(r.Context(), claims.Subject, claims.Email, claims.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return 0, nil, false
	}
	return id, claims, true
}

// HandleMe handles GET and PUT /me requests. Both resolve the caller's
// account from the token, creating it on first contact, and return it.
func (h *MeHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	const op = "api.me"
	if r.Method != http.MethodGet && r.Method != http.MethodPut {
		http.NotFound(w, r)
		return
	}
	id, claims, ok := h.user(w, r, op)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, userResponse{
		ID:      id,
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
	})
}

// HandleMeSubtree dispatches requests under /me/: preference storage at
// /me/preferences and the favorites list at /me/favorites.
func (h *MeHandler) HandleMeSubtree(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/me/")
	switch {
	case path == "preferences" && r.Method == http.MethodGet:
		h.getPreferences(w, r)
	case path == "preferences" && r.Method == http.MethodPut:
		h.putPreferences(w, r)
	case path == "favorites" && r.Method == http.MethodGet:
		h.listFavorites(w, r)
	case strings.HasPrefix(path, "favorites/"):
		h.handleFavorite(w, r, strings.TrimPrefix(path, "favorites/"))
	default:
		http.NotFound(w, r)
	}
}

func (h *MeHandler) getPreferences(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_preferences"
	id, _, ok := h.user(w, r, op)
	if !ok {
		return
	}
	features, savedAt, err := h.deps.PreferencesFor(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, preferencesResponse{
		Features: featuresByName(features),
		SavedAt:  savedAt,
	})
}

func (h *MeHandler) putPreferences(w http.ResponseWriter, r *http.Request) {
	const op = "api.save_preferences"
	id, _, ok := h.user(w, r, op)
	if !ok {
		return
	}
	var req preferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	features, err := resolveFeatures(req.Preferences, req.Vector)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	if err := h.deps.SavePreferences(r.Context(), id, features); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (h *MeHandler) listFavorites(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_favorites"
	id, _, ok := h.user(w, r, op)
	if !ok {
		return
	}
	offers, err := h.deps.Favorites(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toOfferResponses(offers))
}

// handleFavorite handles POST and DELETE /me/favorites/{offer_id}. Both are
// idempotent; the response reports whether anything changed.
func (h *MeHandler) handleFavorite(w http.ResponseWriter, r *http.Request, rawID string) {
	const op = "api.set_favorite"
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		http.NotFound(w, r)
		return
	}
	offerID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || offerID <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, errOfferID))
		return
	}
	id, _, ok := h.user(w, r, op)
	if !ok {
		return
	}
	changed, err := h.deps.SetFavorite(r.Context(), id, offerID, r.Method == http.MethodPost)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok", Changed: changed})
}
