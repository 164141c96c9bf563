// Package cache holds the local, date-indexed mirror of remote calendar state.
//
// A Cache stores events in date buckets keyed by the local calendar date of
// each event's start, together with the calendar list, the colour palette and
// one sync token per calendar. It performs no I/O; persistence lives in the
// store package and remote fetching in the syncer package.
//
// Buckets keep insertion order and do not deduplicate. A removal targets every
// entry in the event's bucket that carries the same id.
//
// Example usage:
//
//	c := cache.New()
//	c.Upsert(cache.Event{ID: "a", Start: &cache.EventDateTime{Date: "2024-06-01"}})
//	events, ok := c.EventsOn(cache.MustParseDate("2024-06-01"))
package cache
