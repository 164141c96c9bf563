package cache

import (
	"maps"
	"slices"
	"sync"
	"time"
)

// RemoveStatus describes the outcome of a removal.
type RemoveStatus int

const (
	// RemoveOK means at least one entry was removed.
	RemoveOK RemoveStatus = iota
	// RemoveNotFound means the bucket exists but holds no entry with the id.
	RemoveNotFound
	// RemoveBucketMissing means no bucket exists for the event date; the event was already missing.
	RemoveBucketMissing
	// RemoveSkippedNoID means the event has no id and cannot be targeted.
	RemoveSkippedNoID
	// RemoveNoDate means the event has no determinable date.
	RemoveNoDate
	// RemovePending means the removal was recorded in a Buffer and applies on merge.
	RemovePending
)

func (s RemoveStatus) String() string {
	switch s {
	case RemoveOK:
		return "removed"
	case RemoveNotFound:
		return "not_found"
	case RemoveBucketMissing:
		return "bucket_missing"
	case RemoveSkippedNoID:
		return "skipped_no_id"
	case RemoveNoDate:
		return "no_date"
	case RemovePending:
		return "pending"
	default:
		return "unknown"
	}
}

// RemoveResult reports what a removal did.
type RemoveResult struct {
	Status  RemoveStatus
	Date    Date
	Removed int
}

// Skipped reports whether the removal could not be attempted at all.
func (r RemoveResult) Skipped() bool {
	return r.Status == RemoveSkippedNoID || r.Status == RemoveNoDate
}

// Cache is the in-memory mirror of remote calendar state.
//
// A sync pass is the only writer; the mutex lets parallel workers merge their
// buffers and lets readers run while a long-lived process syncs.
type Cache struct {
	mu  sync.RWMutex
	loc *time.Location
	doc Document
}

// New returns an empty Cache bucketing in the process local time zone.
func New() *Cache {
	return &Cache{
		loc: time.Local,
		doc: NewDocument(),
	}
}

// FromDocument builds a Cache from a deserialized Document.
func FromDocument(doc Document) *Cache {
	if doc.SyncTokens == nil {
		doc.SyncTokens = make(map[string]string)
	}
	if doc.Events == nil {
		doc.Events = make(map[Date][]Event)
	}
	if doc.Calendars == nil {
		doc.Calendars = []CalendarDescriptor{}
	}
	return &Cache{
		loc: time.Local,
		doc: doc,
	}
}

// SetLocation sets the time zone used to derive bucket dates of timed events.
func (c *Cache) SetLocation(loc *time.Location) {
	if loc == nil {
		loc = time.Local
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loc = loc
}

// Location returns the time zone used for bucketing.
func (c *Cache) Location() *time.Location {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loc
}

// Upsert appends the event to the bucket of its start date, creating the
// bucket if needed. It returns false when the event has no determinable date.
func (c *Cache) Upsert(e Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.upsertLocked(e)
}

func (c *Cache) upsertLocked(e Event) bool {
	date, ok := e.StartDate(c.loc)
	if !ok {
		return false
	}
	c.doc.Events[date] = append(c.doc.Events[date], e)
	return true
}

// Remove deletes every entry in the event's bucket whose id equals e.ID.
// Missing buckets and missing ids are reported, never treated as errors.
func (c *Cache) Remove(e Event) RemoveResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeLocked(e)
}

func (c *Cache) removeLocked(e Event) RemoveResult {
	if e.ID == "" {
		return RemoveResult{Status: RemoveSkippedNoID}
	}
	date, ok := e.StartDate(c.loc)
	if !ok {
		return RemoveResult{Status: RemoveNoDate}
	}
	bucket, ok := c.doc.Events[date]
	if !ok {
		return RemoveResult{Status: RemoveBucketMissing, Date: date}
	}

	kept := make([]Event, 0, len(bucket))
	for _, existing := range bucket {
		if existing.ID != e.ID {
			kept = append(kept, existing)
		}
	}
	removed := len(bucket) - len(kept)
	c.doc.Events[date] = kept

	if removed == 0 {
		return RemoveResult{Status: RemoveNotFound, Date: date}
	}
	return RemoveResult{Status: RemoveOK, Date: date, Removed: removed}
}

// EventsOn returns a copy of the bucket for date. The boolean is false when no
// bucket exists, which is distinct from an existing empty bucket.
func (c *Cache) EventsOn(date Date) ([]Event, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	bucket, ok := c.doc.Events[date]
	if !ok {
		return nil, false
	}
	return slices.Clone(bucket), true
}

// Day is one date bucket.
type Day struct {
	Date   Date
	Events []Event
}

// EventsBetween returns the non-empty buckets from from to to inclusive, in date order.
func (c *Cache) EventsBetween(from, to Date) []Day {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var days []Day
	for date, bucket := range c.doc.Events {
		if date.Before(from) || date.After(to) || len(bucket) == 0 {
			continue
		}
		days = append(days, Day{Date: date, Events: slices.Clone(bucket)})
	}
	slices.SortFunc(days, func(a, b Day) int {
		switch {
		case a.Date.Before(b.Date):
			return -1
		case b.Date.Before(a.Date):
			return 1
		}
		return 0
	})
	return days
}

// Dates returns every bucket date in ascending order.
func (c *Cache) Dates() []Date {
	c.mu.RLock()
	defer c.mu.RUnlock()
	dates := slices.Collect(maps.Keys(c.doc.Events))
	slices.SortFunc(dates, func(a, b Date) int {
		switch {
		case a.Before(b):
			return -1
		case b.Before(a):
			return 1
		}
		return 0
	})
	return dates
}

// Len returns the total number of cached events.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, bucket := range c.doc.Events {
		n += len(bucket)
	}
	return n
}

// SyncToken returns the stored sync token for a calendar.
func (c *Cache) SyncToken(calendarID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	token, ok := c.doc.SyncTokens[calendarID]
	return token, ok
}

// SetSyncToken replaces the sync token of a calendar.
func (c *Cache) SetSyncToken(calendarID, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc.SyncTokens[calendarID] = token
}

// ClearSyncToken forgets the sync token of a calendar, forcing a full sync next time.
func (c *Cache) ClearSyncToken(calendarID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.doc.SyncTokens, calendarID)
}

// Calendars returns a copy of the cached calendar list.
func (c *Cache) Calendars() []CalendarDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.doc.Calendars)
}

// SetCalendars overwrites the calendar list. No merge with the previous list is done.
func (c *Cache) SetCalendars(calendars []CalendarDescriptor) {
	if calendars == nil {
		calendars = []CalendarDescriptor{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc.Calendars = slices.Clone(calendars)
}

// Colors returns the cached colour palette.
func (c *Cache) Colors() ColorPalette {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return clonePalette(c.doc.Colors)
}

// SetColors overwrites the colour palette.
func (c *Cache) SetColors(p ColorPalette) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc.Colors = clonePalette(p)
}

// Document returns a deep copy of the cache state for serialization.
func (c *Cache) Document() Document {
	c.mu.RLock()
	defer c.mu.RUnlock()

	doc := Document{
		SyncTokens: maps.Clone(c.doc.SyncTokens),
		Events:     make(map[Date][]Event, len(c.doc.Events)),
		Calendars:  slices.Clone(c.doc.Calendars),
		Colors:     clonePalette(c.doc.Colors),
	}
	for date, bucket := range c.doc.Events {
		doc.Events[date] = slices.Clone(bucket)
	}
	return doc
}

func clonePalette(p ColorPalette) ColorPalette {
	return ColorPalette{
		Event:    maps.Clone(p.Event),
		Calendar: maps.Clone(p.Calendar),
		Updated:  p.Updated,
	}
}
