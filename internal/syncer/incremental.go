package syncer

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/talendar/internal/cache"
	"github.com/teemow/talendar/internal/instrumentation"
	"github.com/teemow/talendar/internal/logging"
)

// CalendarRequest describes one calendar sync.
type CalendarRequest struct {
	CalendarID string

	// SyncToken is the stored token. Empty means full sync.
	SyncToken string

	// TimeZone is the IANA zone name results are localized to.
	TimeZone string

	// RequestTimeout bounds every remote call. Zero means no per-request bound.
	RequestTimeout time.Duration
}

// CalendarResult counts what one calendar sync did.
type CalendarResult struct {
	CalendarID string
	Pages      int
	Upserted   int
	Removed    int
	// Absent counts cancellations for events the cache did not hold.
	Absent       int
	Skipped      int
	TokenUpdated bool
	FullSync     bool
}

// IncrementalSync fetches every page of one calendar and applies it to
// target as it arrives. Cancelled items are removed, all others upserted.
// The sync token of the last page replaces the stored one; when the last page
// carries none the stored token is left as is.
//
// On error the pages applied so far stay applied. If the service reports the
// sync token as invalid, the token is cleared on target before returning.
func IncrementalSync(ctx context.Context, remote Remote, target Target, req CalendarRequest, logger logging.Logger, metrics *instrumentation.Metrics) (CalendarResult, error) {
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	res := CalendarResult{CalendarID: req.CalendarID, FullSync: req.SyncToken == ""}

	ctx, span := instrumentation.StartCalendarSpan(ctx, req.CalendarID, res.FullSync)
	defer span.End()

	logger.Debug("syncing calendar",
		logging.KeyCalendar, req.CalendarID,
		"full_sync", res.FullSync,
		"sync_token", logging.SanitizeToken(req.SyncToken))

	listReq := ListEventsRequest{
		SyncToken:    req.SyncToken,
		TimeZone:     req.TimeZone,
		SingleEvents: true,
		MaxResults:   MaxPageSize,
	}

	var last EventPage
	for {
		page, err := listEvents(ctx, remote, req.CalendarID, listReq, req.RequestTimeout)
		if err != nil {
			if IsSyncTokenInvalid(err) {
				target.ClearSyncToken(req.CalendarID)
				logger.Warn("sync token rejected, next pass performs a full sync", logging.KeyCalendar, req.CalendarID)
			}
			instrumentation.SetSpanError(span, err)
			recordApplied(ctx, metrics, res)
			return res, fmt.Errorf("failed to list events of %s (page %d): %w", req.CalendarID, res.Pages+1, err)
		}
		res.Pages++
		applyPage(target, page.Items, &res, logger)
		last = page

		if len(page.Items) == 0 || page.NextPageToken == "" {
			break
		}
		listReq.PageToken = page.NextPageToken
	}

	if last.NextSyncToken != "" {
		target.SetSyncToken(req.CalendarID, last.NextSyncToken)
		res.TokenUpdated = true
	} else {
		logger.Warn("no sync token returned, next pass performs a full sync", logging.KeyCalendar, req.CalendarID)
	}

	span.SetAttributes(attribute.Int(instrumentation.SpanAttrPages, res.Pages))
	instrumentation.SetSpanSuccess(span)
	recordApplied(ctx, metrics, res)

	logger.Debug("calendar synced",
		logging.KeyCalendar, req.CalendarID,
		"pages", res.Pages,
		"upserted", res.Upserted,
		"removed", res.Removed,
		"skipped", res.Skipped)
	return res, nil
}

func listEvents(ctx context.Context, remote Remote, calendarID string, req ListEventsRequest, timeout time.Duration) (EventPage, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return remote.ListEvents(ctx, calendarID, req)
}

func applyPage(target Target, items []cache.Event, res *CalendarResult, logger logging.Logger) {
	for _, item := range items {
		if !item.IsCancelled() {
			if target.Upsert(item) {
				res.Upserted++
			} else {
				res.Skipped++
				logger.Debug("skipping event without start date", "event_id", item.ID)
			}
			continue
		}

		removed := target.Remove(item)
		switch removed.Status {
		case cache.RemoveOK, cache.RemovePending:
			res.Removed++
		case cache.RemoveBucketMissing, cache.RemoveNotFound:
			res.Absent++
		case cache.RemoveSkippedNoID:
			res.Skipped++
			logger.Warn("skipping cancellation without event id", "summary", item.Summary)
		default:
			res.Skipped++
			logger.Debug("skipping cancellation without start date", "event_id", item.ID)
		}
	}
}

func recordApplied(ctx context.Context, metrics *instrumentation.Metrics, res CalendarResult) {
	metrics.RecordEventsApplied(ctx, res.CalendarID, instrumentation.ActionUpsert, res.Upserted)
	metrics.RecordEventsApplied(ctx, res.CalendarID, instrumentation.ActionRemove, res.Removed)
	metrics.RecordEventsApplied(ctx, res.CalendarID, instrumentation.ActionSkip, res.Skipped)
}
