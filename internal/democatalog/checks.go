package democatalog

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"
)

// catalogPollInterval is how often the tool re-reads /offers while waiting
// for the service's snapshot cache to pick up the seeded rows.
const catalogPollInterval = 5 * time.Second

// recommendPayload mirrors the POST /recommendations request body.
type recommendPayload struct {
	Preferences map[string]float64 `json:"preferences,omitempty"`
	K           int                `json:"k,omitempty"`
	MinScore    *float64           `json:"min_score,omitempty"`
	Criteria    *criteriaPayload   `json:"criteria,omitempty"`
}

type criteriaPayload struct {
	Intensity    []string `json:"intensity,omitempty"`
	Setting      []string `json:"setting,omitempty"`
	UpcomingOnly bool     `json:"upcoming_only,omitempty"`
}

// eventEntry mirrors the schedule listing response.
type eventEntry struct {
	ID        int64  `json:"id"`
	OfferID   int64  `json:"offer_id"`
	Offer     string `json:"offer"`
	Weekday   string `json:"weekday"`
	Location  string `json:"location"`
	Cancelled bool   `json:"cancelled"`
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, config *Config) error {
	log.Println("🩺 Checking service health...")

	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if _, err := readResponseBody(resp); err != nil {
		return fmt.Errorf("failed to read health response: %w", err)
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	log.Println("✅ Service is healthy")
	return nil
}

// waitForCatalog polls the catalog until the seeded offers are visible
// through the service's snapshot cache, or the wait budget runs out.
func waitForCatalog(ctx context.Context, client *HTTPClient, config *Config) ([]OfferEntry, error) {
	log.Printf("⏳ Waiting up to %s for the seeded catalog to appear...", config.Wait)

	deadline := time.Now().Add(config.Wait)
	for {
		var offers []OfferEntry
		err := client.getJSON(ctx, config.BaseURL+"/offers", &offers)
		if err == nil && containsOffer(offers, "Bouldern") {
			log.Printf("✅ Catalog visible with %d offers", len(offers))
			return offers, nil
		}
		if config.Verbose {
			if err != nil {
				log.Printf("   catalog not readable yet: %v", err)
			} else {
				log.Printf("   catalog visible but stale (%d offers); the snapshot cache has not expired yet", len(offers))
			}
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("seeded catalog did not appear within %s; lower KURSFINDER_CACHE_TTL_SECONDS or restart the service", config.Wait)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(catalogPollInterval):
		}
	}
}

func containsOffer(offers []OfferEntry, name string) bool {
	for _, o := range offers {
		if o.Name == name {
			return true
		}
	}
	return false
}

// checkFilters exercises the catalog filter parameters.
func checkFilters(ctx context.Context, client *HTTPClient, config *Config, stats *Stats) error {
	log.Println("🔍 Checking catalog filters...")

	cases := []struct {
		name   string
		query  string
		verify func([]OfferEntry) error
	}{
		{
			name:  "focus=strength finds the strength offers",
			query: "/offers?focus=strength",
			verify: func(offers []OfferEntry) error {
				if !containsOffer(offers, "Bouldern") || !containsOffer(offers, "Rudern Grundkurs") {
					return fmt.Errorf("expected Bouldern and Rudern Grundkurs, got %s", offerNames(offers))
				}
				if containsOffer(offers, "Meditation") {
					return fmt.Errorf("Meditation should not match focus=strength")
				}
				return nil
			},
		},
		{
			name:  "intensity=low returns only low intensity offers",
			query: "/offers?intensity=low",
			verify: func(offers []OfferEntry) error {
				if len(offers) == 0 {
					return fmt.Errorf("no low intensity offers found")
				}
				for _, o := range offers {
					if o.Intensity != "low" {
						return fmt.Errorf("offer %s has intensity %s", o.Name, o.Intensity)
					}
				}
				return nil
			},
		},
		{
			name:  "setting=team with upcoming sessions",
			query: "/offers?setting=team&upcoming_only=true",
			verify: func(offers []OfferEntry) error {
				if !containsOffer(offers, "Rudern Grundkurs") || !containsOffer(offers, "Fussball") {
					return fmt.Errorf("expected the team offers, got %s", offerNames(offers))
				}
				for _, o := range offers {
					if !o.HasUpcoming {
						return fmt.Errorf("offer %s has no upcoming sessions", o.Name)
					}
				}
				return nil
			},
		},
		{
			name:  "search matches names case-insensitively",
			query: "/offers?search=" + url.QueryEscape("bOULder"),
			verify: func(offers []OfferEntry) error {
				if len(offers) != 1 || offers[0].Name != "Bouldern" {
					return fmt.Errorf("expected exactly Bouldern, got %s", offerNames(offers))
				}
				return nil
			},
		},
	}

	for _, c := range cases {
		stats.ChecksRun++
		var offers []OfferEntry
		if err := client.getJSON(ctx, config.BaseURL+c.query, &offers); err != nil {
			stats.ChecksFailed++
			log.Printf("❌ %s: %v", c.name, err)
			continue
		}
		if err := c.verify(offers); err != nil {
			stats.ChecksFailed++
			log.Printf("❌ %s: %v", c.name, err)
			continue
		}
		if config.Verbose {
			log.Printf("   ✅ %s", c.name)
		}
	}

	// Schedule filters
	stats.ChecksRun++
	var events []eventEntry
	if err := client.getJSON(ctx, config.BaseURL+"/events?weekday=tue&hide_cancelled=true", &events); err != nil {
		stats.ChecksFailed++
		log.Printf("❌ weekday filter: %v", err)
	} else {
		ok := len(events) > 0
		for _, e := range events {
			if e.Weekday != "tue" || e.Cancelled {
				ok = false
				break
			}
		}
		if !ok {
			stats.ChecksFailed++
			log.Printf("❌ weekday filter returned wrong sessions (%d entries)", len(events))
		} else if config.Verbose {
			log.Printf("   ✅ weekday=tue returns %d Tuesday sessions", len(events))
		}
	}

	log.Println("✅ Catalog filter checks completed")
	return nil
}

// checkRecommendations exercises the scoring endpoint with taste profiles
// whose best match is known from the seeded feature vectors.
func checkRecommendations(ctx context.Context, client *HTTPClient, config *Config, stats *Stats) error {
	log.Println("🎯 Checking recommendations...")

	minScore := 0.0

	// This profile is the exact feature vector of the Meditation offer, so
	// it must come back first with a perfect score.
	stats.ChecksRun++
	var matches []MatchEntry
	err := client.postJSON(ctx, config.BaseURL+"/recommendations", recommendPayload{
		Preferences: map[string]float64{
			"relaxation": 1, "longevity": 0.8, "balance": 0.2,
			"intensity": 0.33, "setting_solo": 1,
		},
		MinScore: &minScore,
	}, &matches)
	if err != nil {
		stats.ChecksFailed++
		return fmt.Errorf("recommendation request failed: %w", err)
	}
	if len(matches) == 0 {
		stats.ChecksFailed++
		return fmt.Errorf("no recommendations returned")
	}
	if matches[0].Offer.Name != "Meditation" {
		stats.ChecksFailed++
		return fmt.Errorf("expected Meditation first, got %s (%.1f)", matches[0].Offer.Name, matches[0].Score)
	}
	if matches[0].Score < 99.9 {
		stats.ChecksFailed++
		return fmt.Errorf("exact match scored %.1f, want 100", matches[0].Score)
	}
	if err := verifyOrdering(matches); err != nil {
		stats.ChecksFailed++
		return err
	}

	displayTopMatches("calm solo profile", matches, config.Verbose)

	// A team endurance profile has to surface the rowing course.
	stats.ChecksRun++
	var teamMatches []MatchEntry
	err = client.postJSON(ctx, config.BaseURL+"/recommendations", recommendPayload{
		Preferences: map[string]float64{
			"endurance": 1, "strength": 0.9, "intensity": 1, "setting_team": 1,
		},
		MinScore: &minScore,
	}, &teamMatches)
	if err != nil {
		stats.ChecksFailed++
		return fmt.Errorf("recommendation request failed: %w", err)
	}
	if len(teamMatches) == 0 || teamMatches[0].Offer.Name != "Rudern Grundkurs" {
		stats.ChecksFailed++
		return fmt.Errorf("expected Rudern Grundkurs first for the team profile, got %s", topName(teamMatches))
	}
	if err := verifyOrdering(teamMatches); err != nil {
		stats.ChecksFailed++
		return err
	}

	displayTopMatches("team endurance profile", teamMatches, config.Verbose)

	// Criteria turn into soft penalties: everything that is not low
	// intensity must be flagged as missing the hard filters.
	stats.ChecksRun++
	var flagged []MatchEntry
	err = client.postJSON(ctx, config.BaseURL+"/recommendations", recommendPayload{
		Preferences: map[string]float64{"relaxation": 1, "flexibility": 0.8},
		MinScore:    &minScore,
		Criteria:    &criteriaPayload{Intensity: []string{"low"}},
	}, &flagged)
	if err != nil {
		stats.ChecksFailed++
		return fmt.Errorf("recommendation request failed: %w", err)
	}
	for _, m := range flagged {
		passes := m.Offer.Intensity == "low"
		if m.PassedHardFilters != passes {
			stats.ChecksFailed++
			return fmt.Errorf("offer %s: passed_hard_filters=%v but intensity is %s",
				m.Offer.Name, m.PassedHardFilters, m.Offer.Intensity)
		}
	}

	log.Println("✅ Recommendation checks completed")
	return nil
}

// verifyOrdering checks that scores are within range and sorted descending.
func verifyOrdering(matches []MatchEntry) error {
	for i, m := range matches {
		if m.Score < 0 || m.Score > 100 {
			return fmt.Errorf("score %.2f for %s out of range", m.Score, m.Offer.Name)
		}
		if i > 0 && m.Score > matches[i-1].Score {
			return fmt.Errorf("matches not sorted: entry %d has higher score than entry %d", i, i-1)
		}
	}
	return nil
}

func topName(matches []MatchEntry) string {
	if len(matches) == 0 {
		return "(nothing)"
	}
	return matches[0].Offer.Name
}

// checkFeed verifies the iCalendar export.
func checkFeed(ctx context.Context, client *HTTPClient, config *Config, stats *Stats) error {
	log.Println("📅 Checking calendar feed...")
	stats.ChecksRun++

	resp, err := client.Get(ctx, config.BaseURL+"/feed.ics?hide_cancelled=true")
	if err != nil {
		stats.ChecksFailed++
		return fmt.Errorf("feed request failed: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		stats.ChecksFailed++
		return fmt.Errorf("failed to read feed: %w", err)
	}
	if resp.StatusCode != 200 {
		stats.ChecksFailed++
		return fmt.Errorf("feed returned status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/calendar") {
		stats.ChecksFailed++
		return fmt.Errorf("feed content type is %q", ct)
	}

	doc := string(body)
	switch {
	case !strings.Contains(doc, "BEGIN:VCALENDAR"):
		stats.ChecksFailed++
		return fmt.Errorf("feed is not an iCalendar document")
	case !strings.Contains(doc, "SUMMARY:Yoga Vinyasa"):
		stats.ChecksFailed++
		return fmt.Errorf("feed is missing the seeded sessions")
	case strings.Contains(doc, "STATUS:CANCELLED"):
		stats.ChecksFailed++
		return fmt.Errorf("feed contains cancelled sessions despite hide_cancelled")
	}

	log.Printf("✅ Feed carries %d sessions", strings.Count(doc, "BEGIN:VEVENT"))
	return nil
}

// displayTopMatches shows the best matches for one taste profile.
func displayTopMatches(profile string, matches []MatchEntry, verbose bool) {
	topN := 3
	if len(matches) < topN {
		topN = len(matches)
	}

	log.Printf("🏆 Top %d matches for the %s:", topN, profile)
	for i := 0; i < topN; i++ {
		m := matches[i]
		log.Printf("   %d. %s - Score: %.1f", i+1, m.Offer.Name, m.Score)
	}

	if verbose && len(matches) > 0 {
		sum := 0.0
		for _, m := range matches {
			sum += m.Score
		}
		log.Printf("📊 %d matches, average score %.1f", len(matches), sum/float64(len(matches)))
	}
}

func offerNames(offers []OfferEntry) string {
	if len(offers) == 0 {
		return "(nothing)"
	}
	names := make([]string, len(offers))
	for i, o := range offers {
		names[i] = o.Name
	}
	return strings.Join(names, ", ")
}
