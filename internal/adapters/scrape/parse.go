package scrape

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/unisport/kursfinder/internal/domain/model"
)

// Index entries the catalog lists that are not bookable sports.
var excludedIndexEntries = map[string]struct{}{
	"alle freien Kursplätze dieses Zeitraums": {},
}

// germanWeekdays maps the catalog's abbreviations to weekday codes.
var germanWeekdays = map[string]model.Weekday{
	"mo": model.WeekdayMon,
	"di": model.WeekdayTue,
	"mi": model.WeekdayWed,
	"do": model.WeekdayThu,
	"fr": model.WeekdayFri,
	"sa": model.WeekdaySat,
	"so": model.WeekdaySun,
}

var timeRangePattern = regexp.MustCompile(`(\d{1,2})[.:](\d{2})\s*-\s*(\d{1,2})[.:](\d{2})`)

// Course is one parsed row of an offer's course table.
type Course struct {
	Kursnr   string
	Details  string
	Weekday  model.Weekday
	Start    model.TimeOfDay
	End      model.TimeOfDay
	HasTimes bool
	Location string
	DateFrom time.Time
	DateTo   time.Time
	HasDates bool
	Price    string
	Booking  string
}

// Page is everything parsed from one offer page.
type Page struct {
	Name        string
	URL         string
	Description string
	Courses     []Course
}

// ParseIndex extracts offer links from the catalog index page. Entries
// without a name or link, excluded pseudo-offers, and duplicate targets
// are skipped.
func ParseIndex(r io.Reader, base string) ([]Job, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadIndex, err)
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("%w: bad base url: %v", ErrBadIndex, err)
	}

	var jobs []Job
	seen := make(map[string]struct{})
	doc.Find("dl.bs_menu dd a").Each(func(_ int, a *goquery.Selection) {
		name := strings.TrimSpace(a.Text())
		href, ok := a.Attr("href")
		if name == "" || !ok || href == "" {
			return
		}
		if _, skip := excludedIndexEntries[name]; skip {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := baseURL.ResolveReference(ref).String()
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		jobs = append(jobs, Job{Name: name, URL: abs})
	})

	if len(jobs) == 0 {
		return nil, fmt.Errorf("%w: no offer links found", ErrBadIndex)
	}
	return jobs, nil
}

// ParsePage extracts the description and course table from one offer page.
// A page without a course table is still a valid offer, just one without
// bookable sessions this period.
func ParsePage(r io.Reader, pageURL, name string, year int) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrBadPage, err)
	}

	page := Page{
		Name:        name,
		URL:         pageURL,
		Description: parseDescription(doc),
	}

	doc.Find("table.bs_kurse tr").Each(func(_ int, tr *goquery.Selection) {
		course, ok := parseCourseRow(tr, year)
		if !ok {
			return
		}
		for _, existing := range page.Courses {
			if existing.Kursnr == course.Kursnr {
				return
			}
		}
		page.Courses = append(page.Courses, course)
	})

	return page, nil
}

// parseDescription collects the paragraphs before the course table. Find
// returns matches in document order, so the table doubles as a stop marker.
func parseDescription(doc *goquery.Document) string {
	var parts []string
	doc.Find("p, table.bs_kurse").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Is("table.bs_kurse") {
			return false
		}
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
		return true
	})
	return strings.Join(parts, "\n\n")
}

func parseCourseRow(tr *goquery.Selection, year int) (Course, bool) {
	text := func(sel string) string {
		return strings.TrimSpace(tr.Find(sel).First().Text())
	}

	kursnr := text("td.bs_sknr")
	if kursnr == "" {
		return Course{}, false
	}

	c := Course{
		Kursnr:   kursnr,
		Details:  text("td.bs_sdet"),
		Location: text("td.bs_sort"),
		Price:    text("td.bs_spreis"),
		Booking:  text("td.bs_sbuch"),
	}

	if wd, err := parseGermanWeekday(text("td.bs_stag")); err == nil {
		c.Weekday = wd
	}
	if start, end, ok := parseTimeRange(text("td.bs_szeit")); ok {
		c.Start, c.End, c.HasTimes = start, end, true
	}
	if from, to, ok := parseDateRange(text("td.bs_szr"), year); ok {
		c.DateFrom, c.DateTo, c.HasDates = from, to, true
	}
	return c, true
}

// parseGermanWeekday maps catalog abbreviations (Mo, Di, ...) to codes.
// English codes pass through for robustness against partially translated
// pages.
func parseGermanWeekday(s string) (model.Weekday, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if len(v) >= 2 {
		if wd, ok := germanWeekdays[v[:2]]; ok {
			return wd, nil
		}
	}
	return model.ParseWeekday(s)
}

// parseTimeRange reads "18.15-19.45" or "18:15 - 19:45" shaped cells. The
// catalog mixes dots and colons freely.
func parseTimeRange(s string) (start, end model.TimeOfDay, ok bool) {
	m := timeRangePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	start, err := model.ParseTimeOfDay(m[1] + ":" + m[2])
	if err != nil {
		return 0, 0, false
	}
	end, err = model.ParseTimeOfDay(m[3] + ":" + m[4])
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}

var dateRangePattern = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{4})?\s*-\s*(\d{1,2})\.(\d{1,2})\.(\d{4})?`)

// parseDateRange reads "06.10.-26.01." or "06.10.2025-26.01.2026" shaped
// cells. Short forms take the given year for the start; an end before the
// start rolls into the next year, covering ranges across New Year.
func parseDateRange(s string, year int) (from, to time.Time, ok bool) {
	m := dateRangePattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, time.Time{}, false
	}

	fromYear, toYear := year, year
	if m[3] != "" {
		fromYear = atoi(m[3])
	}
	if m[6] != "" {
		toYear = atoi(m[6])
	} else if m[3] != "" {
		toYear = fromYear
	}

	from = time.Date(fromYear, time.Month(atoi(m[2])), atoi(m[1]), 0, 0, 0, 0, time.UTC)
	to = time.Date(toYear, time.Month(atoi(m[5])), atoi(m[4]), 0, 0, 0, 0, time.UTC)
	if to.Before(from) {
		to = to.AddDate(1, 0, 0)
	}
	return from, to, true
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

// cancelled reports whether a course row is marked as called off.
func (c Course) cancelled() bool {
	text := strings.ToLower(c.Booking + " " + c.Details)
	return strings.Contains(text, "abgesagt") || strings.Contains(text, "entfällt")
}
