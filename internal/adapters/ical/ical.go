// Package ical renders course events as an iCalendar document so users can
// subscribe to their filtered schedule from any calendar client.
//
// UIDs are derived deterministically from the event identity. A client that
// refreshes the feed sees the same UID for the same session and updates the
// entry in place instead of duplicating it.
package ical

import (
	"fmt"
	"sort"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/unisport/kursfinder/internal/domain/model"
)

// ContentType is the MIME type feed responses are served with.
const ContentType = "text/calendar; charset=utf-8"

const (
	defaultCalendarName = "Unisport Kurskalender"
	defaultProductID    = "-//unisport//kursfinder//DE"
)

// uidNamespace scopes the deterministic event UIDs to this application.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("kursfinder.unisport"))

// Clock abstracts time for tests.
type Clock func() time.Time

// Builder renders event lists into serialized calendars.
type Builder struct {
	name   string
	prodID string
	now    Clock
}

// NewBuilder creates a feed builder with configuration options.
func NewBuilder(opts ...Option) *Builder {
	cfg := settings{
		name:   defaultCalendarName,
		prodID: defaultProductID,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Builder{
		name:   cfg.name,
		prodID: cfg.prodID,
		now:    cfg.now,
	}
}

// Render serializes events into an iCalendar document. Events are emitted in
// chronological order regardless of input order; the input is not modified.
// Cancelled events are included with STATUS:CANCELLED so subscribed clients
// strike them through instead of silently dropping them.
func (b *Builder) Render(events []model.Event) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(b.prodID)
	cal.SetName(b.name)
	cal.SetXWRCalName(b.name)

	ordered := make([]model.Event, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Start.Equal(ordered[j].Start) {
			return ordered[i].Start.Before(ordered[j].Start)
		}
		return ordered[i].OfferName < ordered[j].OfferName
	})

	stamp := b.now().UTC()
	for _, e := range ordered {
		ev := cal.AddEvent(eventUID(e))
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(e.Start.UTC())
		if !e.End.IsZero() {
			ev.SetEndAt(e.End.UTC())
		}
		ev.SetSummary(e.OfferName)
		if e.Location != "" {
			ev.SetLocation(e.Location)
		}
		if e.Cancelled {
			ev.SetStatus(ics.ObjectStatusCancelled)
		} else {
			ev.SetStatus(ics.ObjectStatusConfirmed)
		}
	}
	return cal.Serialize()
}

// eventUID hashes the event identity into a stable UID. Offer, start time and
// location together identify one session; the database row id is left out so
// a re-import does not change UIDs.
func eventUID(e model.Event) string {
	identity := fmt.Sprintf("%d/%d/%s", e.OfferID, e.Start.UTC().Unix(), e.Location)
	return uuid.NewSHA1(uidNamespace, []byte(identity)).String() + "@kursfinder"
}
