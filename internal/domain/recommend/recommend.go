// Package recommend scores catalog offers against a user preference vector.
//
// The scorer is a plain K-nearest-neighbors ranking: offer and preference
// vectors are standardized over the offer population, compared by Euclidean
// distance, and the distances of the K closest offers are mapped
// monotonically onto a [0, 100] match score. Everything is a batch
// computation over the snapshot it is handed; there is no hidden state and
// for fixed inputs the output is fully deterministic.
package recommend

import (
	"fmt"
	"math"
	"sort"

	"github.com/unisport/kursfinder/internal/domain/filter"
	"github.com/unisport/kursfinder/internal/domain/model"
)

// Default scoring configuration constants.
const (
	defaultK           = 10
	defaultSoftPenalty = 15.0
	defaultMinScore    = 75.0
	maxScore           = 100.0
)

// Policy decides what happens to offers outside the K nearest.
type Policy string

// Policies for offers outside the K nearest.
const (
	// PolicyOmit drops them from the result (the default).
	PolicyOmit Policy = "omit"
	// PolicyZero keeps them with a score of zero.
	PolicyZero Policy = "zero"
)

// Request carries one ranking computation's inputs. K, MinScore and Limit
// fall back to the scorer's configured defaults when unset.
type Request struct {
	Preferences model.Features
	Criteria    model.OfferCriteria
	K           int
	MinScore    *float64
	Limit       int
}

// Scorer ranks offers by closeness to a preference vector.
type Scorer struct {
	k           int
	policy      Policy
	softPenalty float64
	minScore    float64
	limit       int
}

// NewScorer creates a scorer with configuration options.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		k:           defaultK,
		policy:      PolicyOmit,
		softPenalty: defaultSoftPenalty,
		minScore:    defaultMinScore,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the KNN match scores for offers against the preference
// vector. Every offer must carry a feature vector of the same dimensionality
// as pref; a mismatch is a configuration error, never silently corrected.
// K larger than the offer count is treated as the offer count. Results are
// ordered by score descending, then name ascending.
func (s *Scorer) Score(offers []model.Offer, pref model.Features, k int) ([]model.MatchResult, error) {
	if len(offers) == 0 {
		return []model.MatchResult{}, nil
	}
	dim := pref.Dim()
	if dim == 0 {
		return nil, fmt.Errorf("%w: preference vector is empty", ErrDimensionMismatch)
	}
	for _, o := range offers {
		if o.Features.Dim() != dim {
			return nil, fmt.Errorf("%w: offer %q has %d dimensions, want %d",
				ErrDimensionMismatch, o.Name, o.Features.Dim(), dim)
		}
	}
	if k <= 0 {
		k = s.k
	}
	if k > len(offers) {
		k = len(offers)
	}

	scaled, user := standardize(offers, pref)

	type candidate struct {
		idx  int
		dist float64
	}
	cands := make([]candidate, len(offers))
	maxDist := 0.0
	for i := range offers {
		d := euclidean(scaled[i], user)
		cands[i] = candidate{idx: i, dist: d}
		if d > maxDist {
			maxDist = d
		}
	}

	// Nearest first; ties broken by name then id so reruns are identical.
	sort.Slice(cands, func(a, b int) bool {
		ca, cb := cands[a], cands[b]
		if ca.dist != cb.dist {
			return ca.dist < cb.dist
		}
		oa, ob := offers[ca.idx], offers[cb.idx]
		if oa.Name != ob.Name {
			return oa.Name < ob.Name
		}
		return oa.ID < ob.ID
	})

	results := make([]model.MatchResult, 0, len(offers))
	for rank, c := range cands {
		if rank >= k {
			if s.policy == PolicyOmit {
				break
			}
			results = append(results, model.MatchResult{Offer: offers[c.idx], Score: 0})
			continue
		}
		results = append(results, model.MatchResult{
			Offer: offers[c.idx],
			Score: distanceToScore(c.dist, maxDist),
		})
	}
	return results, nil
}

// Rank runs the full soft-filtering pipeline: score the snapshot, subtract a
// fixed penalty per mismatched preference criterion, cut below the minimum
// score, and order the survivors. Offers without a usable feature vector are
// left out of the ranking; that is a data gap, not an error. The hard-filter
// verdict for the complete criteria is reported on every result.
func (s *Scorer) Rank(offers []model.Offer, req Request) ([]model.MatchResult, error) {
	gate := model.OfferCriteria{
		WithFeatures: true,
		UpcomingOnly: req.Criteria.UpcomingOnly,
	}
	candidates := filter.Offers(offers, gate)

	results, err := s.Score(candidates, req.Preferences, req.K)
	if err != nil {
		return nil, err
	}

	minScore := s.minScore
	if req.MinScore != nil {
		minScore = *req.MinScore
	}

	ranked := make([]model.MatchResult, 0, len(results))
	for _, r := range results {
		misses := filter.OfferMismatches(r.Offer, req.Criteria)
		score := r.Score - float64(misses)*s.softPenalty
		if score < 0 {
			score = 0
		}
		if score < minScore {
			continue
		}
		ranked = append(ranked, model.MatchResult{
			Offer:             r.Offer,
			Score:             score,
			PassedHardFilters: filter.OfferMatches(r.Offer, req.Criteria),
		})
	}

	sortResults(ranked)

	limit := s.limit
	if req.Limit > 0 {
		limit = req.Limit
	}
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// sortResults orders by score descending, then name ascending, then id, so
// equal scores keep a stable display order.
func sortResults(results []model.MatchResult) {
	sort.Slice(results, func(a, b int) bool {
		ra, rb := results[a], results[b]
		if ra.Score != rb.Score {
			return ra.Score > rb.Score
		}
		if ra.Offer.Name != rb.Offer.Name {
			return ra.Offer.Name < rb.Offer.Name
		}
		return ra.Offer.ID < rb.Offer.ID
	})
}

// standardize z-scores the offer vectors and the preference vector using the
// offer population's mean and deviation per dimension. Constant dimensions
// are passed through unscaled to avoid dividing by zero.
func standardize(offers []model.Offer, pref model.Features) ([][]float64, []float64) {
	dim := pref.Dim()
	n := float64(len(offers))

	mean := make([]float64, dim)
	for _, o := range offers {
		for j, v := range o.Features {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= n
	}

	scale := make([]float64, dim)
	for _, o := range offers {
		for j, v := range o.Features {
			d := v - mean[j]
			scale[j] += d * d
		}
	}
	for j := range scale {
		scale[j] = math.Sqrt(scale[j] / n)
		if scale[j] == 0 {
			scale[j] = 1
		}
	}

	scaled := make([][]float64, len(offers))
	for i, o := range offers {
		row := make([]float64, dim)
		for j, v := range o.Features {
			row[j] = (v - mean[j]) / scale[j]
		}
		scaled[i] = row
	}
	user := make([]float64, dim)
	for j, v := range pref {
		user[j] = (v - mean[j]) / scale[j]
	}
	return scaled, user
}

func euclidean(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// distanceToScore maps a distance into [0, 100], closer means higher. The
// farthest candidate in the snapshot anchors the bottom of the scale; an
// exact match always scores 100.
func distanceToScore(dist, maxDist float64) float64 {
	if maxDist == 0 {
		return maxScore
	}
	score := (1 - dist/maxDist) * maxScore
	if score < 0 {
		return 0
	}
	if score > maxScore {
		return maxScore
	}
	return score
}
