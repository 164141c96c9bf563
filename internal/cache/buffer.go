package cache

import "time"

type opKind int

const (
	opUpsert opKind = iota
	opRemove
)

type op struct {
	kind  opKind
	event Event
}

// Buffer records the mutations of one calendar's sync in isolation so that
// several calendars can be fetched concurrently and merged into a Cache in a
// single critical section.
type Buffer struct {
	loc        *time.Location
	ops        []op
	tokens     map[string]string
	clearToken map[string]bool
}

// NewBuffer returns an empty Buffer that buckets with the cache's location.
func (c *Cache) NewBuffer() *Buffer {
	return &Buffer{
		loc:        c.Location(),
		tokens:     make(map[string]string),
		clearToken: make(map[string]bool),
	}
}

// Upsert records an insertion. It returns false when the event has no date.
func (b *Buffer) Upsert(e Event) bool {
	if _, ok := e.StartDate(b.loc); !ok {
		return false
	}
	b.ops = append(b.ops, op{kind: opUpsert, event: e})
	return true
}

// Remove records a removal. Preconditions are checked immediately; the actual
// removal happens when the buffer is applied.
func (b *Buffer) Remove(e Event) RemoveResult {
	if e.ID == "" {
		return RemoveResult{Status: RemoveSkippedNoID}
	}
	date, ok := e.StartDate(b.loc)
	if !ok {
		return RemoveResult{Status: RemoveNoDate}
	}
	b.ops = append(b.ops, op{kind: opRemove, event: e})
	return RemoveResult{Status: RemovePending, Date: date}
}

// SetSyncToken records a new sync token for a calendar.
func (b *Buffer) SetSyncToken(calendarID, token string) {
	delete(b.clearToken, calendarID)
	b.tokens[calendarID] = token
}

// ClearSyncToken records that the calendar's token must be dropped.
func (b *Buffer) ClearSyncToken(calendarID string) {
	delete(b.tokens, calendarID)
	b.clearToken[calendarID] = true
}

// Len returns the number of recorded mutations.
func (b *Buffer) Len() int {
	return len(b.ops)
}

// ApplyStats summarizes a merged buffer. Removed and Missing count
// recorded removals, not cache entries.
type ApplyStats struct {
	Upserted int
	Removed  int
	Missing  int
}

// Apply replays the buffer into the cache in recorded order, holding the
// cache lock for the whole merge.
func (c *Cache) Apply(b *Buffer) ApplyStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var stats ApplyStats
	for _, o := range b.ops {
		switch o.kind {
		case opUpsert:
			if c.upsertLocked(o.event) {
				stats.Upserted++
			}
		case opRemove:
			res := c.removeLocked(o.event)
			if res.Status == RemoveOK {
				stats.Removed++
			} else {
				stats.Missing++
			}
		}
	}
	for id := range b.clearToken {
		delete(c.doc.SyncTokens, id)
	}
	for id, token := range b.tokens {
		c.doc.SyncTokens[id] = token
	}
	return stats
}
