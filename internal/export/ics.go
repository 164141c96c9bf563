// Package export writes cached events as an iCalendar (RFC 5545) document.
package export

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/teemow/talendar/internal/cache"
)

// ProductID identifies talendar in exported calendars.
const ProductID = "-//teemow//talendar//EN"

// Options controls an export.
type Options struct {
	// Now stamps DTSTAMP. Nil uses time.Now.
	Now func() time.Time
}

// Stats counts what an export wrote.
type Stats struct {
	Events  int
	Skipped int
}

// WriteICS writes every cached event whose bucket lies between from and to
// inclusive. Events without a parseable start are skipped.
func WriteICS(w io.Writer, c *cache.Cache, from, to cache.Date, opts Options) (Stats, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	stamp := now().UTC()

	cal := ical.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetMethod(ical.MethodPublish)

	var stats Stats
	seen := make(map[string]bool)
	for _, day := range c.EventsBetween(from, to) {
		for _, e := range day.Events {
			uid := eventUID(e)
			if seen[uid] || e.IsCancelled() {
				continue
			}
			if !addEvent(cal, uid, e, stamp) {
				stats.Skipped++
				continue
			}
			seen[uid] = true
			stats.Events++
		}
	}

	if err := cal.SerializeTo(w); err != nil {
		return stats, fmt.Errorf("failed to write calendar: %w", err)
	}
	return stats, nil
}

func eventUID(e cache.Event) string {
	if e.CalendarID == "" {
		return e.ID
	}
	return e.ID + "@" + e.CalendarID
}

func addEvent(cal *ical.Calendar, uid string, e cache.Event, stamp time.Time) bool {
	if e.ID == "" || e.Start == nil {
		return false
	}

	var (
		start, end time.Time
		allDay     bool
		ok         bool
	)
	if e.Start.Date != "" {
		allDay = true
		start, ok = parseDate(e.Start.Date)
		end = start.AddDate(0, 0, 1)
		if e.End != nil && e.End.Date != "" {
			if t, ok := parseDate(e.End.Date); ok {
				end = t
			}
		}
	} else {
		start, ok = parseDateTime(e.Start.DateTime)
		end = start
		if e.End != nil {
			if t, ok := parseDateTime(e.End.DateTime); ok {
				end = t
			}
		}
	}
	if !ok {
		return false
	}

	ev := cal.AddEvent(uid)
	ev.SetDtStampTime(stamp)
	if allDay {
		ev.SetAllDayStartAt(start)
		ev.SetAllDayEndAt(end)
	} else {
		ev.SetStartAt(start)
		ev.SetEndAt(end)
	}
	if e.Summary != "" {
		ev.SetSummary(e.Summary)
	}
	if e.Description != "" {
		ev.SetDescription(e.Description)
	}
	if e.Location != "" {
		ev.SetLocation(e.Location)
	}
	if e.HTMLLink != "" {
		ev.SetURL(e.HTMLLink)
	}
	switch e.Status {
	case cache.StatusConfirmed:
		ev.SetStatus(ical.ObjectStatusConfirmed)
	case cache.StatusTentative:
		ev.SetStatus(ical.ObjectStatusTentative)
	}
	return true
}

func parseDate(s string) (time.Time, bool) {
	d, err := cache.ParseDate(s)
	if err != nil {
		return time.Time{}, false
	}
	return d.In(time.UTC), true
}

func parseDateTime(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
