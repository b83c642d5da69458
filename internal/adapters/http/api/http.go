// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/unisport/kursfinder/internal/domain/model"
	"github.com/unisport/kursfinder/internal/domain/recommend"
)

// validate checks request payloads against their struct tags.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Scoring endpoint budget. Everything else is cheap enough to leave alone.
const (
	recommendRatePerSecond = 50
	recommendBurst         = 100
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Catalog reads over the current snapshot.
	ListOffers(ctx context.Context, c model.OfferCriteria) ([]model.Offer, error)
	GetOffer(ctx context.Context, id int64) (model.Offer, []model.Event, error)
	ListEvents(ctx context.Context, c model.EventCriteria) ([]model.Event, error)

	// Recommend runs the scoring pipeline against the snapshot.
	Recommend(ctx context.Context, req recommend.Request) ([]model.MatchResult, error)

	// Feed renders filtered events as an iCalendar document.
	Feed(ctx context.Context, c model.EventCriteria) (string, error)

	// User state, keyed by the id EnsureUser returns.
	EnsureUser(ctx context.Context, sub, email, name string) (int64, error)
	Favorites(ctx context.Context, userID int64) ([]model.Offer, error)
	SetFavorite(ctx context.Context, userID, offerID int64, on bool) (bool, error)
	SavePreferences(ctx context.Context, userID int64, f model.Features) error
	PreferencesFor(ctx context.Context, userID int64) (model.Features, time.Time, error)
	RateOffer(ctx context.Context, userID, offerID int64, score int) error
}

// Server wires HTTP routes for the catalog API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	offersHandler    *OffersHandler
	eventsHandler    *EventsHandler
	recommendHandler *RecommendHandler
	feedHandler      *FeedHandler
	meHandler        *MeHandler
	recommendLimiter *rate.Limiter
}

// NewServer creates a new API server with all handlers. A nil authenticator
// leaves the user endpoints mounted but rejecting.
func NewServer(deps Dependencies, statsProvider StatsProvider, auth *Authenticator) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		offersHandler:    NewOffersHandler(deps, auth),
		eventsHandler:    NewEventsHandler(deps),
		recommendHandler: NewRecommendHandler(deps),
		feedHandler:      NewFeedHandler(deps),
		meHandler:        NewMeHandler(deps, auth),
		recommendLimiter: rate.NewLimiter(rate.Limit(recommendRatePerSecond), recommendBurst),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux, deps Dependencies) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/offers", MetricsMiddleware(s.offersHandler.HandleListOffers, "offers"))
	mux.HandleFunc("/offers/", MetricsMiddleware(s.offersHandler.HandleOfferSubtree, "offer_detail"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandleListEvents, "events"))
	mux.HandleFunc("/recommendations", MetricsMiddleware(
		RateLimitMiddleware(s.recommendHandler.HandleRecommend, s.recommendLimiter), "recommendations"))
	mux.HandleFunc("/feed.ics", MetricsMiddleware(s.feedHandler.HandleFeed, "feed"))
	mux.HandleFunc("/me", MetricsMiddleware(s.meHandler.HandleMe, "me"))
	mux.HandleFunc("/me/", MetricsMiddleware(s.meHandler.HandleMeSubtree, "me"))
}

// offerResponse mirrors the OpenAPI schema for catalog offers.
type offerResponse struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	URL         string             `json:"url,omitempty"`
	Intensity   string             `json:"intensity,omitempty"`
	Focus       []string           `json:"focus,omitempty"`
	Settings    []string           `json:"settings,omitempty"`
	AvgRating   float64            `json:"avg_rating"`
	RatingCount int                `json:"rating_count"`
	HasUpcoming bool               `json:"has_upcoming"`
	Features    map[string]float64 `json:"features,omitempty"`
}

// eventResponse mirrors the OpenAPI schema for scheduled sessions.
type eventResponse struct {
	ID        int64     `json:"id"`
	OfferID   int64     `json:"offer_id"`
	Offer     string    `json:"offer"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Weekday   string    `json:"weekday"`
	Location  string    `json:"location,omitempty"`
	Cancelled bool      `json:"cancelled"`
}

// matchResponse pairs an offer with its computed score.
type matchResponse struct {
	Offer             offerResponse `json:"offer"`
	Score             float64       `json:"score"`
	PassedHardFilters bool          `json:"passed_hard_filters"`
}

type offerDetailResponse struct {
	offerResponse
	Events []eventResponse `json:"events"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Changed bool   `json:"changed,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toOfferResponse(o model.Offer) offerResponse {
	out := offerResponse{
		ID:          o.ID,
		Name:        o.Name,
		Description: o.Description,
		URL:         o.URL,
		AvgRating:   o.AvgRating,
		RatingCount: o.RatingCount,
		HasUpcoming: o.HasUpcoming,
	}
	if o.Intensity != model.IntensityUnknown {
		out.Intensity = o.Intensity.String()
	}
	for _, f := range o.Focus {
		out.Focus = append(out.Focus, string(f))
	}
	for _, s := range o.Settings {
		out.Settings = append(out.Settings, string(s))
	}
	if o.HasFeatures() {
		out.Features = featuresByName(o.Features)
	}
	return out
}

func toOfferResponses(offers []model.Offer) []offerResponse {
	out := make([]offerResponse, len(offers))
	for i, o := range offers {
		out[i] = toOfferResponse(o)
	}
	return out
}

func toEventResponse(e model.Event) eventResponse {
	return eventResponse{
		ID:        e.ID,
		OfferID:   e.OfferID,
		Offer:     e.OfferName,
		Start:     e.Start,
		End:       e.End,
		Weekday:   string(e.Weekday),
		Location:  e.Location,
		Cancelled: e.Cancelled,
	}
}

func toEventResponses(events []model.Event) []eventResponse {
	out := make([]eventResponse, len(events))
	for i, e := range events {
		out[i] = toEventResponse(e)
	}
	return out
}

func toMatchResponses(results []model.MatchResult) []matchResponse {
	out := make([]matchResponse, len(results))
	for i, r := range results {
		out[i] = matchResponse{
			Offer:             toOfferResponse(r.Offer),
			Score:             r.Score,
			PassedHardFilters: r.PassedHardFilters,
		}
	}
	return out
}

// featuresByName renders a vector as a name-to-value map, which survives
// dimension reordering in clients better than a bare array.
func featuresByName(f model.Features) map[string]float64 {
	out := make(map[string]float64, len(f))
	for i, v := range f {
		if i < len(model.FeatureNames) {
			out[model.FeatureNames[i]] = v
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func writeUnauthorized(w http.ResponseWriter, op string, err error) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, "unauthorized", Wrap(op, err))
}
