package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nlevent/internal/model"
)

var stamp = time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC)

func TestExportRoundTrip(t *testing.T) {
	ev := model.ExtractedEvent{
		Title:       "Team lunch",
		Description: "Event: Team lunch",
		Date:        time.Date(2024, time.January, 11, 13, 0, 0, 0, time.UTC),
		Location:    "the cafeteria",
		Status:      model.StatusMaybe,
	}

	body, err := Export(ev, "lunch-1@nlevent", 0, stamp)
	require.NoError(t, err)
	assert.Contains(t, body, "PRODID:"+ProductID)
	assert.Contains(t, body, "UID:lunch-1@nlevent")
	assert.Contains(t, body, "STATUS:TENTATIVE")
	assert.Contains(t, body, "X-NLEVENT-STATUS:maybe")

	decoded, err := Decode([]byte(body))
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	got := decoded[0]
	assert.Equal(t, ev.Title, got.Title)
	assert.Equal(t, ev.Description, got.Description)
	assert.Equal(t, ev.Location, got.Location)
	assert.Equal(t, ev.Status, got.Status)
	assert.True(t, ev.Date.Equal(got.Date), "got %s", got.Date)
}

func TestExportKeepsInstantAcrossZones(t *testing.T) {
	kst := time.FixedZone("KST", 9*60*60)
	ev := model.ExtractedEvent{
		Title:  "Standup",
		Date:   time.Date(2024, time.January, 15, 9, 0, 0, 0, kst),
		Status: model.StatusUpcoming,
	}

	body, err := Export(ev, "", 30*time.Minute, stamp)
	require.NoError(t, err)
	assert.Contains(t, body, "@nlevent")
	assert.NotContains(t, body, "LOCATION")

	decoded, err := Decode([]byte(body))
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.True(t, ev.Date.Equal(decoded[0].Date))
	assert.Equal(t, model.StatusUpcoming, decoded[0].Status)
}

func TestExportRejectsInvalidEvent(t *testing.T) {
	_, err := Export(model.ExtractedEvent{Title: "x", Status: model.StatusUpcoming}, "", 0, stamp)
	assert.Error(t, err)
}

func TestDecodeMapsPlainStatus(t *testing.T) {
	body := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"UID:a",
		"DTSTAMP:20240110T080000Z",
		"DTSTART:20240112T150000Z",
		"SUMMARY:Board meeting",
		"STATUS:CANCELLED",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:b",
		"DTSTAMP:20240110T080000Z",
		"DTSTART:20240112T150000Z",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	events, err := Decode([]byte(body))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Board meeting", events[0].Title)
	assert.Equal(t, model.StatusDeclined, events[0].Status)
}

func TestDecodeEmpty(t *testing.T) {
	_, err := Decode([]byte("  "))
	assert.Error(t, err)
}
