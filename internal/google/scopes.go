package google

import calendar "google.golang.org/api/calendar/v3"

// Scopes are the OAuth scopes requested. The mirror only reads.
var Scopes = []string{
	calendar.CalendarReadonlyScope,
}
