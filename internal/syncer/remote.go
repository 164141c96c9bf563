package syncer

import (
	"context"

	"github.com/teemow/talendar/internal/cache"
)

// MaxPageSize is the largest page the events endpoint returns.
const MaxPageSize = 2500

// ListEventsRequest holds the parameters of one events list call.
type ListEventsRequest struct {
	SyncToken    string
	PageToken    string
	TimeZone     string
	SingleEvents bool
	MaxResults   int64
}

// EventPage is one page of an events listing.
type EventPage struct {
	Items         []cache.Event
	NextPageToken string
	NextSyncToken string
}

// Remote is the calendar service as seen by the sync engine.
type Remote interface {
	ListCalendars(ctx context.Context) ([]cache.CalendarDescriptor, error)
	ListEvents(ctx context.Context, calendarID string, req ListEventsRequest) (EventPage, error)
	GetColorPalette(ctx context.Context) (cache.ColorPalette, error)
}

// Target receives the mutations of one calendar sync. Both *cache.Cache and
// *cache.Buffer implement it.
type Target interface {
	Upsert(e cache.Event) bool
	Remove(e cache.Event) cache.RemoveResult
	SetSyncToken(calendarID, token string)
	ClearSyncToken(calendarID string)
}

// Saver persists a cache at the end of a successful pass.
type Saver interface {
	Save(ctx context.Context, c *cache.Cache) error
}

var (
	_ Target = (*cache.Cache)(nil)
	_ Target = (*cache.Buffer)(nil)
)
