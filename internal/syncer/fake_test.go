package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/teemow/talendar/internal/cache"
)

type pageResponse struct {
	page  EventPage
	err   error
	delay time.Duration
}

type listCall struct {
	CalendarID string
	Request    ListEventsRequest
}

// fakeRemote serves scripted pages per calendar.
type fakeRemote struct {
	mu          sync.Mutex
	calendars   []cache.CalendarDescriptor
	calendarErr error
	pages       map[string][]pageResponse
	palette     cache.ColorPalette
	paletteErr  error
	block       bool

	calls       []listCall
	colorsCalls int
}

func newFakeRemote(calendarIDs ...string) *fakeRemote {
	f := &fakeRemote{pages: make(map[string][]pageResponse)}
	for _, id := range calendarIDs {
		f.calendars = append(f.calendars, cache.CalendarDescriptor{ID: id, Summary: "Calendar " + id})
	}
	f.palette = cache.ColorPalette{Event: map[string]cache.ColorDefinition{
		"1": {Foreground: "#1d1d1d", Background: "#a4bdfc"},
	}}
	return f
}

func (f *fakeRemote) addPage(calendarID string, p pageResponse) {
	f.pages[calendarID] = append(f.pages[calendarID], p)
}

func (f *fakeRemote) ListCalendars(ctx context.Context) ([]cache.CalendarDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.calendarErr != nil {
		return nil, f.calendarErr
	}
	return f.calendars, nil
}

func (f *fakeRemote) ListEvents(ctx context.Context, calendarID string, req ListEventsRequest) (EventPage, error) {
	f.mu.Lock()
	n := 0
	for _, c := range f.calls {
		if c.CalendarID == calendarID {
			n++
		}
	}
	f.calls = append(f.calls, listCall{CalendarID: calendarID, Request: req})
	var resp pageResponse
	scripted := f.pages[calendarID]
	if n < len(scripted) {
		resp = scripted[n]
	} else {
		resp = pageResponse{err: fmt.Errorf("unexpected request %d for %s", n+1, calendarID)}
	}
	block := f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return EventPage{}, ctx.Err()
	}
	if resp.delay > 0 {
		select {
		case <-time.After(resp.delay):
		case <-ctx.Done():
			return EventPage{}, ctx.Err()
		}
	}
	if resp.err != nil {
		return EventPage{}, resp.err
	}
	return resp.page, nil
}

func (f *fakeRemote) GetColorPalette(ctx context.Context) (cache.ColorPalette, error) {
	f.mu.Lock()
	f.colorsCalls++
	f.mu.Unlock()
	if f.paletteErr != nil {
		return cache.ColorPalette{}, f.paletteErr
	}
	return f.palette, nil
}

func (f *fakeRemote) callsFor(calendarID string) []ListEventsRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ListEventsRequest
	for _, c := range f.calls {
		if c.CalendarID == calendarID {
			out = append(out, c.Request)
		}
	}
	return out
}

type fakeSaver struct {
	mu    sync.Mutex
	saves int
	err   error
}

func (s *fakeSaver) Save(_ context.Context, _ *cache.Cache) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	return s.err
}

func allDay(id, date string) cache.Event {
	return cache.Event{ID: id, Summary: "event " + id, Status: cache.StatusConfirmed, Start: &cache.EventDateTime{Date: date}}
}

func cancelled(id, date string) cache.Event {
	e := allDay(id, date)
	e.Status = cache.StatusCancelled
	return e
}

func newTestCache() *cache.Cache {
	c := cache.New()
	c.SetLocation(time.UTC)
	return c
}

func ids(events []cache.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}
