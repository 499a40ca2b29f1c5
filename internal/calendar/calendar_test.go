package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleDoc = `* Weekly Sync <2026-07-30 Thu 10:00-10:30>
:PARTICIPANTS: Alice <alice@example.com>, Bob <bob@example.com>
:LOCATION: Zoom
Video: [[https://zoom.us/j/12345][📹 Join]]

* Design Review <2026-07-30 Thu 14:00-15:00>
:PARTICIPANTS: Carol
Notes go here.

* Company Holiday <2026-07-31 Fri>
All day entry, no time window.
`

func TestParseExtractsEntries(t *testing.T) {
	entries := Parse(sampleDoc)
	require.Len(t, entries, 3)

	require.Equal(t, "Weekly Sync", entries[0].Title)
	require.Equal(t, "2026-07-30", entries[0].Date)
	require.Equal(t, "10:00", entries[0].StartTime)
	require.Equal(t, "10:30", entries[0].EndTime)
	require.Equal(t, []string{"Alice", "Bob"}, entries[0].Participants)
	require.Equal(t, "Zoom", entries[0].Location)
	require.Equal(t, []string{"https://zoom.us/j/12345"}, entries[0].VideoLinks)

	require.Equal(t, "Design Review", entries[1].Title)
	require.Equal(t, []string{"Carol"}, entries[1].Participants)

	require.Equal(t, "Company Holiday", entries[2].Title)
	require.Empty(t, entries[2].StartTime)
}

func TestMatchTitlePrefersWindowContainingNow(t *testing.T) {
	entries := Parse(sampleDoc)
	now := time.Date(2026, 7, 30, 10, 5, 0, 0, time.UTC)

	title, ok := MatchTitle(entries, now)
	require.True(t, ok)
	require.Equal(t, "Weekly Sync", title)
}

func TestMatchTitleFallsBackToAllDay(t *testing.T) {
	entries := Parse(sampleDoc)
	now := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)

	title, ok := MatchTitle(entries, now)
	require.True(t, ok)
	require.Equal(t, "Company Holiday", title)
}

func TestMatchTitleNoMatch(t *testing.T) {
	entries := Parse(sampleDoc)
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	_, ok := MatchTitle(entries, now)
	require.False(t, ok)
}

func TestMatchTitleRespectsPadAroundWindow(t *testing.T) {
	entries := Parse(sampleDoc)
	now := time.Date(2026, 7, 30, 9, 57, 0, 0, time.UTC) // 3 min before start, within 5 min pad

	title, ok := MatchTitle(entries, now)
	require.True(t, ok)
	require.Equal(t, "Weekly Sync", title)
}
