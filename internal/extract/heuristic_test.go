package extract

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nlevent/internal/model"
)

func TestParseHeuristicTeamLunch(t *testing.T) {
	out := ParseHeuristic("team lunch tomorrow at 1pm in the cafeteria", wednesday)

	ev, ok := out.Event()
	require.True(t, ok, "kind=%s", out.Kind())
	assert.Equal(t, "team lunch", ev.Title)
	assert.Equal(t, "Event: team lunch", ev.Description)
	assert.True(t, at(11, 13, 0).Equal(ev.Date), ev.Date.String())
	assert.Equal(t, "the cafeteria", ev.Location)
	assert.Equal(t, model.StatusUpcoming, ev.Status)
	assert.NoError(t, ev.Validate())
}

func TestParseHeuristicStandupMonday(t *testing.T) {
	ev, ok := ParseHeuristic("standup monday at 9am", wednesday).Event()
	require.True(t, ok)
	assert.Equal(t, time.Monday, ev.Date.Weekday())
	assert.True(t, at(15, 9, 0).Equal(ev.Date), ev.Date.String())
	assert.Empty(t, ev.Location)
}

func TestParseHeuristicEmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\t\n"} {
		out := ParseHeuristic(in, wednesday)
		msg, ok := out.Clarification()
		require.True(t, ok, "%q", in)
		assert.NotEmpty(t, msg)
	}
}

func TestParseHeuristicDefaultsWithoutDateWords(t *testing.T) {
	for _, in := range []string{
		"book club",
		"dinner with the Johnsons",
		"gym",
		"sync in the 2nd floor lounge",
		"pick up dry cleaning!",
		"Protest march downtown",
		"company party on december 20",
		"Sprint review for the may 3 release notes",
		"Split the 3/4 budget meeting",
		"Season 2024-25 kickoff",
		"team may 5k run",
	} {
		ev, ok := ParseHeuristic(in, wednesday).Event()
		require.True(t, ok, in)
		assert.True(t, at(11, 9, 0).Equal(ev.Date), "%s: %s", in, ev.Date)
	}
}

func TestParseHeuristicNeverFails(t *testing.T) {
	for _, in := range []string{
		"at", "in", "at at at", "in in", "123", ":::", "pm am", "next next next", "🎉 party tomorrow in 🏠",
	} {
		out := ParseHeuristic(in, wednesday)
		assert.NotEqual(t, model.KindFailure, out.Kind(), in)
		if ev, ok := out.Event(); ok {
			assert.NoError(t, ev.Validate(), in)
		}
	}
}

func TestHeuristicExtractor(t *testing.T) {
	h := NewHeuristic()
	assert.Equal(t, "heuristic", h.Name())

	req := model.Request{Text: "retro next week", Now: wednesday}
	assert.Equal(t, ParseHeuristic(req.Text, req.Now), h.Extract(context.Background(), req))
}
