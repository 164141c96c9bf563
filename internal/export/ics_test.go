package export

import (
	"bytes"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/talendar/internal/cache"
)

func exportCache() *cache.Cache {
	c := cache.New()
	c.SetLocation(time.UTC)
	c.Upsert(cache.Event{
		ID: "holiday", CalendarID: "holidays", Summary: "Midsummer", Status: cache.StatusConfirmed,
		Start: &cache.EventDateTime{Date: "2024-06-21"}, End: &cache.EventDateTime{Date: "2024-06-22"},
	})
	c.Upsert(cache.Event{
		ID: "standup", CalendarID: "primary", Summary: "Standup", Location: "Room 1",
		Status: cache.StatusTentative,
		Start:  &cache.EventDateTime{DateTime: "2024-06-20T09:00:00+02:00"},
		End:    &cache.EventDateTime{DateTime: "2024-06-20T09:15:00+02:00"},
	})
	c.Upsert(cache.Event{
		ID: "later", CalendarID: "primary", Summary: "Out of range",
		Start: &cache.EventDateTime{Date: "2024-07-01"},
	})
	c.Upsert(cache.Event{
		ID: "noend", CalendarID: "primary",
		Start: &cache.EventDateTime{Date: "2024-06-20"},
	})
	return c
}

func parse(t *testing.T, data []byte) map[string]*ical.VEvent {
	t.Helper()
	cal, err := ical.ParseCalendar(bytes.NewReader(data))
	require.NoError(t, err)
	byUID := make(map[string]*ical.VEvent)
	for _, ev := range cal.Events() {
		byUID[ev.GetProperty(ical.ComponentPropertyUniqueId).Value] = ev
	}
	return byUID
}

func TestWriteICS(t *testing.T) {
	var buf bytes.Buffer
	stamp := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	stats, err := WriteICS(&buf, exportCache(),
		cache.MustParseDate("2024-06-20"), cache.MustParseDate("2024-06-30"),
		Options{Now: func() time.Time { return stamp }})
	require.NoError(t, err)
	assert.Equal(t, Stats{Events: 3, Skipped: 0}, stats)

	out := buf.String()
	assert.Contains(t, out, "PRODID:"+ProductID)
	assert.NotContains(t, out, "Out of range")

	events := parse(t, buf.Bytes())
	require.Len(t, events, 3)

	holiday := events["holiday@holidays"]
	require.NotNil(t, holiday)
	assert.Equal(t, "Midsummer", holiday.GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "20240621", holiday.GetProperty(ical.ComponentPropertyDtStart).Value)
	assert.Equal(t, "20240622", holiday.GetProperty(ical.ComponentPropertyDtEnd).Value)
	assert.Equal(t, "CONFIRMED", holiday.GetProperty(ical.ComponentPropertyStatus).Value)

	standup := events["standup@primary"]
	require.NotNil(t, standup)
	assert.Equal(t, "20240620T070000Z", standup.GetProperty(ical.ComponentPropertyDtStart).Value)
	assert.Equal(t, "20240620T071500Z", standup.GetProperty(ical.ComponentPropertyDtEnd).Value)
	assert.Equal(t, "Room 1", standup.GetProperty(ical.ComponentPropertyLocation).Value)
	assert.Equal(t, "TENTATIVE", standup.GetProperty(ical.ComponentPropertyStatus).Value)
	assert.Equal(t, "20240601T120000Z", standup.GetProperty(ical.ComponentPropertyDtstamp).Value)

	noEnd := events["noend@primary"]
	require.NotNil(t, noEnd)
	assert.Equal(t, "20240621", noEnd.GetProperty(ical.ComponentPropertyDtEnd).Value,
		"a missing all-day end defaults to the next day")
}

func TestWriteICS_SkipsUnparseableStart(t *testing.T) {
	c := cache.New()
	c.SetLocation(time.UTC)
	c.Upsert(cache.Event{ID: "ok", Start: &cache.EventDateTime{Date: "2024-06-20"}})

	var buf bytes.Buffer
	stats, err := WriteICS(&buf, c, cache.MustParseDate("2024-06-01"), cache.MustParseDate("2024-06-30"), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Events)

	assert.False(t, addEvent(ical.NewCalendar(), "x", cache.Event{ID: "x", Start: &cache.EventDateTime{DateTime: "soon"}}, time.Now()))
	assert.False(t, addEvent(ical.NewCalendar(), "x", cache.Event{ID: "x"}, time.Now()))
}

func TestWriteICS_Empty(t *testing.T) {
	var buf bytes.Buffer
	stats, err := WriteICS(&buf, cache.New(), cache.MustParseDate("2024-06-01"), cache.MustParseDate("2024-06-30"), Options{})
	require.NoError(t, err)
	assert.Zero(t, stats.Events)
	assert.Contains(t, buf.String(), "BEGIN:VCALENDAR")
	assert.Empty(t, parse(t, buf.Bytes()))
}
