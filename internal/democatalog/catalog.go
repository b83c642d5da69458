package democatalog

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/unisport/kursfinder/internal/adapters/repository"
	"github.com/unisport/kursfinder/internal/domain/model"
)

// Store is the slice of the repository the seeder writes through.
type Store interface {
	UpsertOffers(ctx context.Context, offers []repository.ScrapedOffer) (map[string]int64, error)
	UpsertEvents(ctx context.Context, events []repository.ScrapedEvent) (int, error)
	UpsertLocations(ctx context.Context, locations []model.Location) (int, error)
	AddTrainingSample(ctx context.Context, sport string, features model.Features) error
}

// sessionSpec places one weekly session of an offer. Sessions are expanded
// for two weeks starting from the Monday after the seed run.
type sessionSpec struct {
	href      string
	kursnr    string
	day       int // offset from Monday
	hour      int
	minute    int
	duration  time.Duration
	location  string
	cancelled bool
}

func mustFeatures(weights map[string]float64) model.Features {
	f, err := model.NewFeatures(weights)
	if err != nil {
		panic(err)
	}
	return f
}

// demoOffers returns the curated catalog. Feature weights are hand-tuned so
// the recommendation checks have a known best match per taste profile.
func demoOffers() []repository.ScrapedOffer {
	return []repository.ScrapedOffer{
		{
			Name:        "Yoga Vinyasa",
			Href:        "/demo/k_yoga_vinyasa.html",
			Description: "Flowing sequences linking breath and movement. Open level.",
			Intensity:   "low",
			Focus:       []string{"flexibility", "relaxation"},
			Settings:    []string{"solo", "indoor"},
			Features: mustFeatures(map[string]float64{
				"flexibility": 1, "relaxation": 0.9, "balance": 0.5,
				"longevity": 0.6, "intensity": 0.33, "setting_solo": 1,
			}),
		},
		{
			Name:        "Rudern Grundkurs",
			Href:        "/demo/k_rudern.html",
			Description: "Sweep rowing basics in team boats on the lake.",
			Intensity:   "high",
			Focus:       []string{"strength", "endurance"},
			Settings:    []string{"team", "water"},
			Features: mustFeatures(map[string]float64{
				"strength": 0.9, "endurance": 1, "intensity": 1,
				"setting_team": 1, "setting_fun": 0.4,
			}),
		},
		{
			Name:        "Aikido",
			Href:        "/demo/k_aikido.html",
			Description: "Japanese martial art built on throws and joint locks, trained in pairs.",
			Intensity:   "medium",
			Focus:       []string{"coordination", "balance"},
			Settings:    []string{"duo", "indoor"},
			Features: mustFeatures(map[string]float64{
				"coordination": 1, "balance": 0.8, "longevity": 0.5,
				"intensity": 0.67, "setting_duo": 1,
			}),
		},
		{
			Name:        "Bouldern",
			Href:        "/demo/k_bouldern.html",
			Description: "Climbing at jumping height, no ropes. Shoes can be rented.",
			Intensity:   "high",
			Focus:       []string{"strength", "coordination"},
			Settings:    []string{"solo", "indoor"},
			Features: mustFeatures(map[string]float64{
				"strength": 1, "coordination": 0.7, "balance": 0.6,
				"intensity": 1, "setting_solo": 0.8, "setting_fun": 0.5,
			}),
		},
		{
			Name:        "Pilates",
			Href:        "/demo/k_pilates.html",
			Description: "Controlled mat work strengthening the core.",
			Intensity:   "medium",
			Focus:       []string{"flexibility", "strength"},
			Settings:    []string{"solo", "indoor"},
			Features: mustFeatures(map[string]float64{
				"flexibility": 0.8, "strength": 0.5, "balance": 0.7,
				"relaxation": 0.4, "intensity": 0.67, "setting_solo": 1,
			}),
		},
		{
			Name:        "Fussball",
			Href:        "/demo/k_fussball.html",
			Description: "Open training and short matches, all levels welcome.",
			Intensity:   "high",
			Focus:       []string{"endurance", "coordination"},
			Settings:    []string{"team", "competitive", "outdoor"},
			Features: mustFeatures(map[string]float64{
				"endurance": 0.9, "coordination": 0.8, "strength": 0.5,
				"intensity": 1, "setting_team": 1, "setting_competitive": 0.9,
				"setting_fun": 0.8,
			}),
		},
		{
			Name:        "Meditation",
			Href:        "/demo/k_meditation.html",
			Description: "Guided stillness and breathing practice.",
			Intensity:   "low",
			Focus:       []string{"relaxation"},
			Settings:    []string{"solo", "indoor"},
			Features: mustFeatures(map[string]float64{
				"relaxation": 1, "longevity": 0.8, "balance": 0.2,
				"intensity": 0.33, "setting_solo": 1,
			}),
		},
		{
			Name:        "Badminton",
			Href:        "/demo/k_badminton.html",
			Description: "Court play in pairs, rackets provided.",
			Intensity:   "medium",
			Focus:       []string{"coordination", "endurance"},
			Settings:    []string{"duo", "fun", "indoor"},
			Features: mustFeatures(map[string]float64{
				"coordination": 0.9, "endurance": 0.6, "intensity": 0.67,
				"setting_duo": 1, "setting_fun": 0.7, "setting_competitive": 0.5,
			}),
		},
	}
}

// demoSchedule returns the weekly session plan for the demo offers.
func demoSchedule() []sessionSpec {
	return []sessionSpec{
		{href: "/demo/k_yoga_vinyasa.html", kursnr: "9001", day: 0, hour: 7, minute: 15, duration: 60 * time.Minute, location: "Sporthalle Kreuzbleiche"},
		{href: "/demo/k_yoga_vinyasa.html", kursnr: "9002", day: 3, hour: 12, minute: 15, duration: 60 * time.Minute, location: "Sporthalle Kreuzbleiche"},
		{href: "/demo/k_rudern.html", kursnr: "9010", day: 1, hour: 17, minute: 30, duration: 90 * time.Minute, location: "Bootshaus Rorschach"},
		{href: "/demo/k_rudern.html", kursnr: "9011", day: 5, hour: 9, minute: 0, duration: 120 * time.Minute, location: "Bootshaus Rorschach"},
		{href: "/demo/k_aikido.html", kursnr: "9020", day: 2, hour: 19, minute: 0, duration: 90 * time.Minute, location: "Budo Raum"},
		{href: "/demo/k_bouldern.html", kursnr: "9030", day: 2, hour: 18, minute: 0, duration: 120 * time.Minute, location: "Kletterhalle St. Gallen"},
		{href: "/demo/k_pilates.html", kursnr: "9040", day: 1, hour: 12, minute: 15, duration: 45 * time.Minute, location: "Sporthalle Kreuzbleiche"},
		{href: "/demo/k_fussball.html", kursnr: "9050", day: 3, hour: 18, minute: 30, duration: 90 * time.Minute, location: "Gruendenmoos"},
		{href: "/demo/k_meditation.html", kursnr: "9060", day: 4, hour: 8, minute: 0, duration: 30 * time.Minute, location: "Budo Raum"},
		{href: "/demo/k_badminton.html", kursnr: "9070", day: 4, hour: 20, minute: 0, duration: 90 * time.Minute, location: "Sporthalle Kreuzbleiche"},
		// One cancelled session so the hide_cancelled filter has something to hide
		{href: "/demo/k_badminton.html", kursnr: "9071", day: 6, hour: 10, minute: 0, duration: 90 * time.Minute, location: "Sporthalle Kreuzbleiche", cancelled: true},
	}
}

// demoLocations returns the venues the schedule refers to.
func demoLocations() []model.Location {
	return []model.Location{
		{Name: "Sporthalle Kreuzbleiche", Lat: 47.4192, Lon: 9.3598},
		{Name: "Bootshaus Rorschach", Lat: 47.4785, Lon: 9.4907},
		{Name: "Budo Raum", Lat: 47.4316, Lon: 9.3748},
		{Name: "Kletterhalle St. Gallen", Lat: 47.4125, Lon: 9.3341},
		{Name: "Gruendenmoos", Lat: 47.4083, Lon: 9.3189},
	}
}

// nextMonday returns the Monday after t at midnight, so every seeded session
// lies in the future regardless of when the demo runs.
func nextMonday(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	for {
		day = day.AddDate(0, 0, 1)
		if day.Weekday() == time.Monday {
			return day
		}
	}
}

// seedCatalog writes the demo catalog through the store and reports counts.
func seedCatalog(ctx context.Context, store Store, stats *Stats) error {
	log.Println("🌱 Seeding demo catalog...")

	offers := demoOffers()
	ids, err := store.UpsertOffers(ctx, offers)
	if err != nil {
		return fmt.Errorf("failed to seed offers: %w", err)
	}
	stats.OffersSeeded = len(ids)

	// Two weeks of sessions from next Monday.
	anchor := nextMonday(time.Now())
	var events []repository.ScrapedEvent
	for week := 0; week < 2; week++ {
		for _, s := range demoSchedule() {
			offerID, ok := ids[s.href]
			if !ok {
				return fmt.Errorf("no offer id for %s", s.href)
			}
			start := anchor.AddDate(0, 0, week*7+s.day).
				Add(time.Duration(s.hour)*time.Hour + time.Duration(s.minute)*time.Minute)
			events = append(events, repository.ScrapedEvent{
				OfferID:      offerID,
				Kursnr:       s.kursnr,
				Start:        start,
				End:          start.Add(s.duration),
				LocationName: s.location,
				Cancelled:    s.cancelled,
			})
		}
	}
	n, err := store.UpsertEvents(ctx, events)
	if err != nil {
		return fmt.Errorf("failed to seed sessions: %w", err)
	}
	stats.SessionsSeeded = n

	locs, err := store.UpsertLocations(ctx, demoLocations())
	if err != nil {
		return fmt.Errorf("failed to seed locations: %w", err)
	}
	stats.LocationsSeeded = locs

	// Feature vectors double as labelled rows of the training matrix.
	for _, o := range offers {
		if err := store.AddTrainingSample(ctx, o.Name, o.Features); err != nil {
			return fmt.Errorf("failed to seed training sample for %s: %w", o.Name, err)
		}
		stats.SamplesSeeded++
	}

	log.Printf("✅ Seeded %d offers, %d sessions, %d locations, %d training samples",
		stats.OffersSeeded, stats.SessionsSeeded, stats.LocationsSeeded, stats.SamplesSeeded)
	return nil
}
