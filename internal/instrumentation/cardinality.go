package instrumentation

import "strings"

// Cardinality management helpers for metrics.
// Calendar ids are email-like and unbounded, so metrics only ever carry the
// calendar kind.

// Calendar kinds reported by CalendarKind.
const (
	CalendarKindPrimary = "primary"
	CalendarKindGroup   = "group"
	CalendarKindHoliday = "holiday"
	CalendarKindUser    = "user"
	CalendarKindUnknown = "unknown"
)

// CalendarKind maps a calendar id to a low-cardinality label.
//
// Example:
//
//	CalendarKind("primary")                                   // "primary"
//	CalendarKind("abc123@group.calendar.google.com")          // "group"
//	CalendarKind("en.usa#holiday@group.v.calendar.google.com") // "holiday"
//	CalendarKind("jane@example.com")                          // "user"
func CalendarKind(calendarID string) string {
	switch {
	case calendarID == "":
		return CalendarKindUnknown
	case calendarID == "primary":
		return CalendarKindPrimary
	case strings.Contains(calendarID, "#holiday@"):
		return CalendarKindHoliday
	case strings.HasSuffix(calendarID, "@group.calendar.google.com"),
		strings.HasSuffix(calendarID, "@group.v.calendar.google.com"):
		return CalendarKindGroup
	case strings.Contains(calendarID, "@"):
		return CalendarKindUser
	default:
		return CalendarKindUnknown
	}
}

// Common operation types for Google API metrics.
const (
	OperationListCalendars = "calendar_list.list"
	OperationListEvents    = "events.list"
	OperationGetColors     = "colors.get"
)
