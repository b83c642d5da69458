// Package scrape imports the university sports catalog from its public
// pages into the store.
//
// A run fetches the index once, fans the offer pages out over a bounded job
// queue and a small worker pool, then writes everything back in idempotent
// batches. A broken page never aborts the run; it is counted and reported.
package scrape

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/unisport/kursfinder/internal/adapters/repository"
	"github.com/unisport/kursfinder/internal/domain/model"
	"github.com/unisport/kursfinder/pkg/logger"
	"github.com/unisport/kursfinder/pkg/metrics"
)

// maxOccurrences caps how many sessions a single course can expand to,
// guarding against a parsed date range spanning years.
const maxOccurrences = 200

// Store is the slice of the repository the importer writes through.
type Store interface {
	Offers(ctx context.Context) ([]model.Offer, error)
	UpsertOffers(ctx context.Context, offers []repository.ScrapedOffer) (map[string]int64, error)
	UpsertEvents(ctx context.Context, events []repository.ScrapedEvent) (int, error)
	UpsertLocations(ctx context.Context, locations []model.Location) (int, error)
	AddTrainingSample(ctx context.Context, sport string, features model.Features) error
	BeginRun(ctx context.Context, run repository.ETLRun) error
	FinishRun(ctx context.Context, run repository.ETLRun) error
}

// Report summarizes one import run.
type Report struct {
	RunID        string
	Started      time.Time
	Finished     time.Time
	DryRun       bool
	PagesPlanned int
	PagesOK      int
	PagesFailed  int
	Offers       int
	Events       int
	Locations    int
	Samples      int
	Errors       []string
}

// Scraper imports the catalog. Construct with New, run with Run; a Scraper
// is reusable across runs.
type Scraper struct {
	store   Store
	fetcher Fetcher
	cfg     config
	logger  logger.Logger
}

// New creates a Scraper writing through store.
func New(store Store, opts ...Option) *Scraper {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Scraper{
		store:  store,
		cfg:    cfg,
		logger: logger.Get().Named("scrape"),
	}
	s.fetcher = cfg.fetcher
	if s.fetcher == nil {
		s.fetcher = NewHTTPFetcher(cfg.rps, cfg.timeout, cfg.userAgent)
	}
	return s
}

// Run performs one full import. The returned Report is filled even when an
// error is returned.
func (s *Scraper) Run(ctx context.Context) (Report, error) {
	started := time.Now()
	report := Report{
		RunID:   uuid.NewString(),
		Started: started,
		DryRun:  s.cfg.dryRun,
	}
	defer func() {
		metrics.RecordScrapeRunDuration(float64(time.Since(started).Milliseconds()))
	}()

	run := repository.ETLRun{ID: report.RunID, StartedAt: started}
	if !s.cfg.dryRun {
		if err := s.store.BeginRun(ctx, run); err != nil {
			return report, fmt.Errorf("begin run: %w", err)
		}
	}

	jobs, err := s.loadIndex(ctx)
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		s.finish(ctx, &report, repository.RunFailed)
		return report, err
	}
	if s.cfg.limit > 0 && len(jobs) > s.cfg.limit {
		jobs = jobs[:s.cfg.limit]
	}
	report.PagesPlanned = len(jobs)
	s.logger.Info(ctx, "catalog index loaded", logger.Int("offers", len(jobs)))

	existing, err := s.existingByHref(ctx)
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		s.finish(ctx, &report, repository.RunFailed)
		return report, err
	}

	pages := s.fetchAll(ctx, jobs, &report)
	if report.PagesOK == 0 {
		err := fmt.Errorf("%w: %d pages failed", ErrNoProgress, report.PagesFailed)
		report.Errors = append(report.Errors, err.Error())
		s.finish(ctx, &report, repository.RunFailed)
		return report, err
	}

	offers, events, locations := s.assemble(pages, existing)
	report.Offers = len(offers)
	for _, g := range events {
		report.Events += len(g.events)
	}
	report.Locations = len(locations)

	if s.cfg.dryRun {
		report.Finished = time.Now()
		s.logger.Info(ctx, "dry run complete, nothing written",
			logger.Int("offers", report.Offers),
			logger.Int("events", report.Events),
		)
		return report, nil
	}

	if err := s.persist(ctx, offers, events, locations, &report); err != nil {
		report.Errors = append(report.Errors, err.Error())
		s.finish(ctx, &report, repository.RunFailed)
		return report, err
	}

	s.finish(ctx, &report, repository.RunSucceeded)
	return report, nil
}

// loadIndex fetches and parses the catalog index page.
func (s *Scraper) loadIndex(ctx context.Context) ([]Job, error) {
	body, err := s.fetcher.Fetch(ctx, s.cfg.baseURL)
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	jobs, err := ParseIndex(bytes.NewReader(body), s.cfg.baseURL)
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	return jobs, nil
}

// existingByHref indexes the stored offers so curated categories survive
// the import. The public pages carry no intensity or focus data; those
// fields are maintained in the database and must not be wiped by a rescrape.
func (s *Scraper) existingByHref(ctx context.Context) (map[string]model.Offer, error) {
	stored, err := s.store.Offers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stored offers: %w", err)
	}
	out := make(map[string]model.Offer, len(stored))
	for _, o := range stored {
		out[o.URL] = o
	}
	return out, nil
}

// fetchAll runs the queue and worker pool over all jobs and collects results.
func (s *Scraper) fetchAll(ctx context.Context, jobs []Job, report *Report) []Page {
	queue := NewJobQueue(len(jobs))
	results := make(chan PageResult, len(jobs))

	pool := newWorkerPool(s.cfg.concurrency, queue, s.fetcher, results, s.cfg.year)
	pool.start(ctx)

	for _, j := range jobs {
		if !queue.Enqueue(ctx, j) {
			report.PagesFailed++
			report.Errors = append(report.Errors, fmt.Sprintf("enqueue %s: queue rejected job", j.Name))
		}
	}
	_ = queue.Close()

	if err := pool.wait(ctx); err != nil {
		report.Errors = append(report.Errors, err.Error())
	}

	// The results channel is sized for one entry per job, so worker sends
	// never block and everything produced is buffered by the time the pool
	// has joined. The channel is never closed; a worker that outlives the
	// wait timeout must not find it gone.
	var pages []Page
	for {
		select {
		case r := <-results:
			if r.Err != nil {
				report.PagesFailed++
				report.Errors = append(report.Errors, r.Err.Error())
				continue
			}
			report.PagesOK++
			pages = append(pages, r.Page)
		default:
			return pages
		}
	}
}

// assemble turns parsed pages into idempotent write batches. Curated
// categories from existing rows are merged in before features are derived.
func (s *Scraper) assemble(pages []Page, existing map[string]model.Offer) ([]repository.ScrapedOffer, []scrapedEvents, []model.Location) {
	offers := make([]repository.ScrapedOffer, 0, len(pages))
	events := make([]scrapedEvents, 0, len(pages))
	locationSet := make(map[string]struct{})

	for _, page := range pages {
		offer := repository.ScrapedOffer{
			Name:        page.Name,
			Href:        page.URL,
			Description: page.Description,
		}
		if cur, ok := existing[page.URL]; ok {
			offer.Intensity = cur.Intensity.String()
			if cur.Intensity == model.IntensityUnknown {
				offer.Intensity = ""
			}
			for _, f := range cur.Focus {
				offer.Focus = append(offer.Focus, string(f))
			}
			for _, st := range cur.Settings {
				offer.Settings = append(offer.Settings, string(st))
			}
			offer.Features = DeriveFeatures(cur.Intensity, cur.Focus, cur.Settings)
		}
		offers = append(offers, offer)

		var pageEvents []repository.ScrapedEvent
		for _, course := range page.Courses {
			for _, occ := range occurrences(course, s.cfg.tz) {
				pageEvents = append(pageEvents, repository.ScrapedEvent{
					Kursnr:       course.Kursnr,
					Start:        occ.start,
					End:          occ.end,
					LocationName: course.Location,
					Cancelled:    course.cancelled(),
				})
			}
			if course.Location != "" {
				locationSet[course.Location] = struct{}{}
			}
		}
		if len(pageEvents) > 0 {
			events = append(events, scrapedEvents{href: page.URL, events: pageEvents})
		}
	}

	locations := make([]model.Location, 0, len(locationSet))
	for name := range locationSet {
		locations = append(locations, model.Location{Name: name})
	}
	return offers, events, locations
}

// scrapedEvents keeps a page's events grouped by offer href until ids are
// known.
type scrapedEvents struct {
	href   string
	events []repository.ScrapedEvent
}

// persist writes all batches through the store.
func (s *Scraper) persist(ctx context.Context, offers []repository.ScrapedOffer, grouped []scrapedEvents, locations []model.Location, report *Report) error {
	ids, err := s.store.UpsertOffers(ctx, offers)
	if err != nil {
		return fmt.Errorf("persist offers: %w", err)
	}

	var events []repository.ScrapedEvent
	for _, g := range grouped {
		id, ok := ids[g.href]
		if !ok {
			report.Errors = append(report.Errors, fmt.Sprintf("no id for offer %s, events dropped", g.href))
			continue
		}
		for _, e := range g.events {
			e.OfferID = id
			events = append(events, e)
		}
	}

	if _, err := s.store.UpsertLocations(ctx, locations); err != nil {
		return fmt.Errorf("persist locations: %w", err)
	}
	if _, err := s.store.UpsertEvents(ctx, events); err != nil {
		return fmt.Errorf("persist events: %w", err)
	}
	report.Events = len(events)

	for _, o := range offers {
		if len(o.Features) == 0 {
			continue
		}
		if err := s.store.AddTrainingSample(ctx, o.Name, o.Features); err != nil {
			return fmt.Errorf("persist training sample %s: %w", o.Name, err)
		}
		report.Samples++
	}
	return nil
}

// finish closes the etl_runs row and the report.
func (s *Scraper) finish(ctx context.Context, report *Report, status string) {
	report.Finished = time.Now()
	if s.cfg.dryRun {
		return
	}

	run := repository.ETLRun{
		ID:           report.RunID,
		StartedAt:    report.Started,
		FinishedAt:   report.Finished,
		Status:       status,
		PagesFetched: report.PagesOK,
		PagesFailed:  report.PagesFailed,
		OffersSeen:   report.Offers,
		EventsSeen:   report.Events,
	}
	if len(report.Errors) > 0 {
		run.LastError = report.Errors[len(report.Errors)-1]
	}
	if err := s.store.FinishRun(ctx, run); err != nil {
		s.logger.Error(ctx, "failed to close etl run", logger.String("run_id", run.ID), logger.Error(err))
	}
}

// occurrence is one concrete session of a weekly course.
type occurrence struct {
	start time.Time
	end   time.Time
}

// occurrences expands a weekly course into concrete sessions. Courses
// without a weekday, times, or a date range expand to nothing.
func occurrences(c Course, tz *time.Location) []occurrence {
	if c.Weekday == "" || !c.HasTimes || !c.HasDates {
		return nil
	}

	day := c.DateFrom
	for model.WeekdayOf(day) != c.Weekday {
		day = day.AddDate(0, 0, 1)
		if day.After(c.DateTo) {
			return nil
		}
	}

	var out []occurrence
	for !day.After(c.DateTo) && len(out) < maxOccurrences {
		start := time.Date(day.Year(), day.Month(), day.Day(), int(c.Start)/60, int(c.Start)%60, 0, 0, tz)
		end := time.Date(day.Year(), day.Month(), day.Day(), int(c.End)/60, int(c.End)%60, 0, 0, tz)
		if end.Before(start) {
			end = end.AddDate(0, 0, 1)
		}
		out = append(out, occurrence{start: start, end: end})
		day = day.AddDate(0, 0, 7)
	}
	return out
}

// Summary renders a one-line human readable run result for CLI output.
func (r Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %d/%d pages, %d offers, %d events, %d locations, %d samples in %s",
		r.RunID, r.PagesOK, r.PagesPlanned, r.Offers, r.Events, r.Locations, r.Samples,
		r.Finished.Sub(r.Started).Round(time.Millisecond))
	if r.DryRun {
		b.WriteString(" (dry run)")
	}
	if r.PagesFailed > 0 {
		fmt.Fprintf(&b, ", %d pages failed", r.PagesFailed)
	}
	return b.String()
}
