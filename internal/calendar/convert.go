package calendar

import (
	calendar "google.golang.org/api/calendar/v3"

	"github.com/teemow/talendar/internal/cache"
)

// toEvent converts a Google Calendar event into the cache model.
func toEvent(calendarID string, event *calendar.Event) cache.Event {
	if event == nil {
		return cache.Event{}
	}
	return cache.Event{
		ID:          event.Id,
		CalendarID:  calendarID,
		Summary:     event.Summary,
		Description: event.Description,
		Location:    event.Location,
		HTMLLink:    event.HtmlLink,
		Status:      event.Status,
		ColorID:     event.ColorId,
		Start:       toEventDateTime(event.Start),
		End:         toEventDateTime(event.End),
	}
}

func toEventDateTime(edt *calendar.EventDateTime) *cache.EventDateTime {
	if edt == nil || (edt.Date == "" && edt.DateTime == "") {
		return nil
	}
	return &cache.EventDateTime{
		Date:     edt.Date,
		DateTime: edt.DateTime,
		TimeZone: edt.TimeZone,
	}
}

// toCalendarDescriptor converts a calendar list entry.
func toCalendarDescriptor(entry *calendar.CalendarListEntry) cache.CalendarDescriptor {
	if entry == nil {
		return cache.CalendarDescriptor{}
	}
	return cache.CalendarDescriptor{
		ID:              entry.Id,
		Summary:         entry.Summary,
		SummaryOverride: entry.SummaryOverride,
		Description:     entry.Description,
		TimeZone:        entry.TimeZone,
		ColorID:         entry.ColorId,
		BackgroundColor: entry.BackgroundColor,
		ForegroundColor: entry.ForegroundColor,
		Primary:         entry.Primary,
		AccessRole:      entry.AccessRole,
		Selected:        entry.Selected,
		Hidden:          entry.Hidden,
	}
}

// toPalette converts the colors resource.
func toPalette(colors *calendar.Colors) cache.ColorPalette {
	if colors == nil {
		return cache.ColorPalette{}
	}
	return cache.ColorPalette{
		Event:    toColorMap(colors.Event),
		Calendar: toColorMap(colors.Calendar),
		Updated:  colors.Updated,
	}
}

func toColorMap(in map[string]calendar.ColorDefinition) map[string]cache.ColorDefinition {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]cache.ColorDefinition, len(in))
	for id, def := range in {
		out[id] = cache.ColorDefinition{Background: def.Background, Foreground: def.Foreground}
	}
	return out
}
