package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/unisport/kursfinder/internal/domain/model"
)

// listValues collects repeated query parameters and splits comma-separated
// values, so ?focus=strength,endurance and ?focus=strength&focus=endurance
// parse the same.
func listValues(q url.Values, key string) []string {
	var out []string
	for _, raw := range q[key] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func boolValue(q url.Values, key string) (bool, error) {
	raw := q.Get(key)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %v", key, err)
	}
	return v, nil
}

// offerCriteriaFromQuery parses catalog filter parameters.
func offerCriteriaFromQuery(q url.Values) (model.OfferCriteria, error) {
	var c model.OfferCriteria
	c.Search = strings.TrimSpace(q.Get("search"))

	for _, raw := range listValues(q, "intensity") {
		in, err := model.ParseIntensity(raw)
		if err != nil {
			return c, err
		}
		c.Intensities = append(c.Intensities, in)
	}
	for _, raw := range listValues(q, "focus") {
		f, err := model.ParseFocus(raw)
		if err != nil {
			return c, err
		}
		c.Focus = append(c.Focus, f)
	}
	for _, raw := range listValues(q, "setting") {
		s, err := model.ParseSetting(raw)
		if err != nil {
			return c, err
		}
		c.Settings = append(c.Settings, s)
	}

	var err error
	if c.UpcomingOnly, err = boolValue(q, "upcoming_only"); err != nil {
		return c, err
	}
	if c.WithFeatures, err = boolValue(q, "with_features"); err != nil {
		return c, err
	}
	return c, c.Validate()
}

// eventCriteriaFromQuery parses schedule filter parameters. Dates use
// YYYY-MM-DD, times of day use HH:MM.
func eventCriteriaFromQuery(q url.Values) (model.EventCriteria, error) {
	var c model.EventCriteria

	if raw := q.Get("offer_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return c, fmt.Errorf("offer_id: %v", err)
		}
		c.OfferID = id
	}
	c.OfferName = strings.TrimSpace(q.Get("offer"))

	for _, raw := range listValues(q, "weekday") {
		wd, err := model.ParseWeekday(raw)
		if err != nil {
			return c, err
		}
		c.Weekdays = append(c.Weekdays, wd)
	}

	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return c, fmt.Errorf("from: %v", err)
		}
		c.DateFrom = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return c, fmt.Errorf("to: %v", err)
		}
		c.DateTo = t
	}

	after, before := q.Get("start_after"), q.Get("start_before")
	if after != "" || before != "" {
		var w model.TimeWindow
		var err error
		if after != "" {
			if w.From, err = model.ParseTimeOfDay(after); err != nil {
				return c, err
			}
		}
		if before != "" {
			if w.To, err = model.ParseTimeOfDay(before); err != nil {
				return c, err
			}
		} else {
			w.To = model.TimeOfDay(23*60 + 59)
		}
		c.Window = &w
	}

	c.Location = strings.TrimSpace(q.Get("location"))

	var err error
	if c.HideCancelled, err = boolValue(q, "hide_cancelled"); err != nil {
		return c, err
	}
	return c, c.Validate()
}
