package syncer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Stage names the step of a pass that failed.
type Stage string

// Pass stages.
const (
	StageCalendars Stage = "calendar_list"
	StageEvents    Stage = "events"
	StageColors    Stage = "colors"
	StageSave      Stage = "save"
)

// SyncError reports where a pass failed. Index and CalendarID are only set
// for StageEvents.
type SyncError struct {
	Stage      Stage
	Index      int
	CalendarID string
	Err        error
}

func (e *SyncError) Error() string {
	if e.Stage == StageEvents {
		return fmt.Sprintf("failed to sync calendar %d (%s): %v", e.Index, e.CalendarID, e.Err)
	}
	return fmt.Sprintf("failed to sync %s: %v", e.Stage, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// rate limit reasons Google reports with status 403
var rateLimitReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
}

// IsTransient reports whether err is worth retrying on a later pass: timeouts,
// server errors and rate limiting. Authentication failures, malformed requests
// and invalidated sync tokens are permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code >= 500, apiErr.Code == http.StatusTooManyRequests:
			return true
		case apiErr.Code == http.StatusForbidden:
			for _, item := range apiErr.Errors {
				if rateLimitReasons[item.Reason] {
					return true
				}
			}
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// IsSyncTokenInvalid reports whether the service rejected the sync token.
// The calendar must be fully synced again.
func IsSyncTokenInvalid(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusGone
}
