package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/unisport/kursfinder/internal/domain/model"
	"github.com/unisport/kursfinder/internal/domain/recommend"
)

// RecommendDependencies defines the interface for scoring operations.
type RecommendDependencies interface {
	Recommend(ctx context.Context, req recommend.Request) ([]model.MatchResult, error)
}

// RecommendHandler handles recommendation requests.
type RecommendHandler struct {
	deps RecommendDependencies
}

// NewRecommendHandler creates a new recommendation handler.
func NewRecommendHandler(deps RecommendDependencies) *RecommendHandler {
	return &RecommendHandler{deps: deps}
}

// recommendRequest mirrors the OpenAPI schema for POST /recommendations.
// Preferences arrive either as named weights or as a raw vector in storage
// order; exactly one of the two must be present.
type recommendRequest struct {
	Preferences map[string]float64 `json:"preferences,omitempty"`
	Vector      []float64          `json:"vector,omitempty"`
	K           int                `json:"k,omitempty" validate:"gte=0,lte=500"`
	MinScore    *float64           `json:"min_score,omitempty" validate:"omitempty,gte=0,lte=100"`
	Limit       int                `json:"limit,omitempty" validate:"gte=0,lte=500"`
	Criteria    criteriaRequest    `json:"criteria,omitempty"`
}

// criteriaRequest carries offer filter criteria inside a JSON body, using the
// same names and values as the /offers query parameters.
type criteriaRequest struct {
	Search       string   `json:"search,omitempty"`
	Intensity    []string `json:"intensity,omitempty"`
	Focus        []string `json:"focus,omitempty"`
	Setting      []string `json:"setting,omitempty"`
	UpcomingOnly bool     `json:"upcoming_only,omitempty"`
}

func (c criteriaRequest) toCriteria() (model.OfferCriteria, error) {
	out := model.OfferCriteria{
		Search:       c.Search,
		UpcomingOnly: c.UpcomingOnly,
	}
	for _, raw := range c.Intensity {
		in, err := model.ParseIntensity(raw)
		if err != nil {
			return out, err
		}
		out.Intensities = append(out.Intensities, in)
	}
	for _, raw := range c.Focus {
		f, err := model.ParseFocus(raw)
		if err != nil {
			return out, err
		}
		out.Focus = append(out.Focus, f)
	}
	for _, raw := range c.Setting {
		s, err := model.ParseSetting(raw)
		if err != nil {
			return out, err
		}
		out.Settings = append(out.Settings, s)
	}
	return out, out.Validate()
}

// resolveFeatures accepts the two preference shapes used across the API:
// named weights or a raw vector in storage order. Exactly one must be set.
func resolveFeatures(weights map[string]float64, vector []float64) (model.Features, error) {
	switch {
	case len(weights) > 0 && len(vector) > 0:
		return nil, fmt.Errorf("preferences and vector are mutually exclusive: %w", ErrBadRequest)
	case len(weights) > 0:
		f, err := model.NewFeatures(weights)
		if err != nil {
			return nil, fmt.Errorf("preferences: %w: %v", ErrBadRequest, err)
		}
		return f, nil
	case len(vector) > 0:
		if len(vector) != model.FeatureDim {
			return nil, fmt.Errorf("vector must carry one value per feature dimension: %w", ErrBadRequest)
		}
		return model.Features(vector), nil
	default:
		return nil, fmt.Errorf("missing preferences: %w", ErrBadRequest)
	}
}

// HandleRecommend handles POST /recommendations requests.
func (h *RecommendHandler) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	const op = "api.recommend"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	pref, err := resolveFeatures(req.Preferences, req.Vector)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	criteria, err := req.Criteria.toCriteria()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	results, err := h.deps.Recommend(r.Context(), recommend.Request{
		Preferences: pref,
		Criteria:    criteria,
		K:           req.K,
		MinScore:    req.MinScore,
		Limit:       req.Limit,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toMatchResponses(results))
}
