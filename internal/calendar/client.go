package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/talendar/internal/cache"
	"github.com/teemow/talendar/internal/instrumentation"
	"github.com/teemow/talendar/internal/syncer"
)

// calendarListPageSize is the largest page CalendarList.List accepts.
const calendarListPageSize = 250

// Client wraps the Google Calendar service
type Client struct {
	svc     *calendar.Service
	metrics *instrumentation.Metrics
}

var _ syncer.Remote = (*Client)(nil)

// NewClient creates a Calendar client sending requests through httpClient,
// which must already carry OAuth credentials. Extra options are appended,
// which lets tests point the client at a fake endpoint.
func NewClient(ctx context.Context, httpClient *http.Client, metrics *instrumentation.Metrics, opts ...option.ClientOption) (*Client, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("http client cannot be nil")
	}

	all := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := calendar.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &Client{svc: svc, metrics: metrics}, nil
}

// ListCalendars returns the user's calendar list, following pagination.
func (c *Client) ListCalendars(ctx context.Context) ([]cache.CalendarDescriptor, error) {
	var calendars []cache.CalendarDescriptor
	err := c.observe(ctx, instrumentation.OperationListCalendars, nil, func(ctx context.Context) error {
		call := c.svc.CalendarList.List().MaxResults(calendarListPageSize)
		return call.Pages(ctx, func(page *calendar.CalendarList) error {
			for _, entry := range page.Items {
				calendars = append(calendars, toCalendarDescriptor(entry))
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}
	if calendars == nil {
		calendars = []cache.CalendarDescriptor{}
	}
	return calendars, nil
}

// ListEvents fetches one page of events of a calendar.
func (c *Client) ListEvents(ctx context.Context, calendarID string, req syncer.ListEventsRequest) (syncer.EventPage, error) {
	var page syncer.EventPage
	attrs := []attribute.KeyValue{
		attribute.String(instrumentation.SpanAttrCalendar, calendarID),
		attribute.Bool(instrumentation.SpanAttrFullSync, req.SyncToken == ""),
	}
	err := c.observe(ctx, instrumentation.OperationListEvents, attrs, func(ctx context.Context) error {
		call := c.svc.Events.List(calendarID).SingleEvents(req.SingleEvents)
		if req.MaxResults > 0 {
			call = call.MaxResults(req.MaxResults)
		}
		if req.TimeZone != "" {
			call = call.TimeZone(req.TimeZone)
		}
		if req.SyncToken != "" {
			call = call.SyncToken(req.SyncToken)
		}
		if req.PageToken != "" {
			call = call.PageToken(req.PageToken)
		}

		events, err := call.Context(ctx).Do()
		if err != nil {
			return err
		}

		page.NextPageToken = events.NextPageToken
		page.NextSyncToken = events.NextSyncToken
		page.Items = make([]cache.Event, 0, len(events.Items))
		for _, item := range events.Items {
			page.Items = append(page.Items, toEvent(calendarID, item))
		}
		return nil
	})
	if err != nil {
		return syncer.EventPage{}, fmt.Errorf("failed to list events: %w", err)
	}
	return page, nil
}

// GetColorPalette returns the event and calendar colour definitions.
func (c *Client) GetColorPalette(ctx context.Context) (cache.ColorPalette, error) {
	var palette cache.ColorPalette
	err := c.observe(ctx, instrumentation.OperationGetColors, nil, func(ctx context.Context) error {
		colors, err := c.svc.Colors.Get().Context(ctx).Do()
		if err != nil {
			return err
		}
		palette = toPalette(colors)
		return nil
	})
	if err != nil {
		return cache.ColorPalette{}, fmt.Errorf("failed to get colors: %w", err)
	}
	return palette, nil
}

func (c *Client) observe(ctx context.Context, operation string, attrs []attribute.KeyValue, fn func(context.Context) error) error {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, operation, attrs...)
	defer span.End()

	start := time.Now()
	err := fn(ctx)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, operation, status, time.Since(start))
	return err
}
