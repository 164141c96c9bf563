package cache

import (
	"time"
)

// Event status values as returned by the remote service.
const (
	StatusConfirmed = "confirmed"
	StatusTentative = "tentative"
	StatusCancelled = "cancelled"
)

// EventDateTime is either an all-day Date or a time zone aware DateTime (RFC 3339).
type EventDateTime struct {
	Date     string `json:"date,omitempty"`
	DateTime string `json:"dateTime,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// Event is a calendar event as received from the remote service.
// Events are never modified after they are received.
type Event struct {
	ID          string         `json:"id,omitempty"`
	CalendarID  string         `json:"calendarId,omitempty"`
	Summary     string         `json:"summary,omitempty"`
	Description string         `json:"description,omitempty"`
	Location    string         `json:"location,omitempty"`
	HTMLLink    string         `json:"htmlLink,omitempty"`
	Status      string         `json:"status,omitempty"`
	ColorID     string         `json:"colorId,omitempty"`
	Start       *EventDateTime `json:"start,omitempty"`
	End         *EventDateTime `json:"end,omitempty"`
}

// IsCancelled reports whether the event marks a deletion.
func (e Event) IsCancelled() bool {
	return e.Status == StatusCancelled
}

// IsAllDay reports whether the event starts on an all-day date.
func (e Event) IsAllDay() bool {
	return e.Start != nil && e.Start.Date != ""
}

// StartDate returns the local calendar date of the event start. Timed events
// are converted to loc first; all-day dates are taken as is.
func (e Event) StartDate(loc *time.Location) (Date, bool) {
	return localDate(e.Start, loc)
}

// EndDate returns the local calendar date of the event end.
func (e Event) EndDate(loc *time.Location) (Date, bool) {
	return localDate(e.End, loc)
}

// IsMultiDay reports whether the event spans more than one calendar day.
// All-day end dates are exclusive, so a single all-day event ends the next day.
func (e Event) IsMultiDay(loc *time.Location) bool {
	start, ok := e.StartDate(loc)
	if !ok {
		return false
	}
	end, ok := e.EndDate(loc)
	if !ok {
		return false
	}
	days := start.DaysUntil(end)
	if e.IsAllDay() {
		return days > 1
	}
	return days > 0
}

// StartString describes the event start for display.
func (e Event) StartString(loc *time.Location) string {
	if e.Start == nil {
		return "No Start Time"
	}
	if e.Start.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, e.Start.DateTime); err == nil {
			if loc == nil {
				loc = time.Local
			}
			return t.In(loc).Format("2006-01-02 15:04 MST")
		}
	}
	if e.Start.Date != "" {
		return e.Start.Date + " ALL DAY"
	}
	return "No Start Time"
}

func localDate(edt *EventDateTime, loc *time.Location) (Date, bool) {
	if edt == nil {
		return Date{}, false
	}
	if edt.Date != "" {
		d, err := ParseDate(edt.Date)
		if err != nil {
			return Date{}, false
		}
		return d, true
	}
	if edt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, edt.DateTime)
		if err != nil {
			return Date{}, false
		}
		if loc == nil {
			loc = time.Local
		}
		return DateOf(t.In(loc)), true
	}
	return Date{}, false
}

// CalendarDescriptor describes a calendar from the user's calendar list.
type CalendarDescriptor struct {
	ID              string `json:"id"`
	Summary         string `json:"summary,omitempty"`
	SummaryOverride string `json:"summaryOverride,omitempty"`
	Description     string `json:"description,omitempty"`
	TimeZone        string `json:"timeZone,omitempty"`
	ColorID         string `json:"colorId,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	ForegroundColor string `json:"foregroundColor,omitempty"`
	Primary         bool   `json:"primary,omitempty"`
	AccessRole      string `json:"accessRole,omitempty"` // "owner", "writer", "reader", "freeBusyReader"
	Selected        bool   `json:"selected,omitempty"`
	Hidden          bool   `json:"hidden,omitempty"`
}

// DisplayName returns the user's override if set, else the calendar summary.
func (c CalendarDescriptor) DisplayName() string {
	if c.SummaryOverride != "" {
		return c.SummaryOverride
	}
	if c.Summary != "" {
		return c.Summary
	}
	return c.ID
}

// ColorDefinition is a foreground/background pair.
type ColorDefinition struct {
	Background string `json:"background,omitempty"`
	Foreground string `json:"foreground,omitempty"`
}

// ColorPalette maps colour ids to colour definitions.
type ColorPalette struct {
	Event    map[string]ColorDefinition `json:"event,omitempty"`
	Calendar map[string]ColorDefinition `json:"calendar,omitempty"`
	Updated  string                     `json:"updated,omitempty"`
}

// Document is the serializable state of a Cache.
type Document struct {
	SyncTokens map[string]string    `json:"sync_tokens"`
	Events     map[Date][]Event     `json:"events"`
	Calendars  []CalendarDescriptor `json:"calendars"`
	Colors     ColorPalette         `json:"colors"`
}

// NewDocument returns an empty Document with initialized maps.
func NewDocument() Document {
	return Document{
		SyncTokens: make(map[string]string),
		Events:     make(map[Date][]Event),
		Calendars:  []CalendarDescriptor{},
	}
}
