package cache

import "regexp"

// DefaultColor is used when an event has no colour or its colour is unknown.
const DefaultColor = "#FFFFFF"

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// EventColor returns the foreground colour of the event's colour id in the
// palette, or DefaultColor.
func EventColor(e Event, p ColorPalette) string {
	if e.ColorID == "" {
		return DefaultColor
	}
	def, ok := p.Event[e.ColorID]
	if !ok || !hexColor.MatchString(def.Foreground) {
		return DefaultColor
	}
	return def.Foreground
}
