package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/activitytracker/internal/errors"
	"github.com/julianstephens/activitytracker/internal/utils"
)

func TestNewActivityEntry(t *testing.T) {
	entry, err := NewActivityEntry(EntryInput{
		Start:    "2023-10-01T12:00:00",
		Stop:     "2023-10-01T14:30:00",
		Activity: "code review",
		Notes:    "dispatcher PR",
	})
	require.NoError(t, err)

	assert.Equal(t, "2023-10-01T12:00:00", entry.Start())
	assert.Equal(t, "2023-10-01T14:30:00", entry.Stop())
	assert.Equal(t, "code review", entry.Activity())
	assert.Equal(t, "dispatcher PR", entry.Notes())
	assert.Equal(t, 2.5, entry.Duration())
	assert.Equal(t, "code review", entry.String())
	assert.False(t, entry.IsNegative())

	_, err = uuid.Parse(entry.ID())
	assert.NoError(t, err, "generated id should be a uuid")
}

func TestNewActivityEntryDefaults(t *testing.T) {
	entry, err := NewActivityEntry(EntryInput{})
	require.NoError(t, err)

	near, err := utils.ApproxEqual(entry.Start(), utils.NowText(), 2)
	require.NoError(t, err)
	assert.True(t, near, "defaulted start %q not within 2s of now", entry.Start())

	shifted, err := utils.Shift(entry.Start(), 0, 30, 0)
	require.NoError(t, err)
	assert.Equal(t, shifted, entry.Stop())
	assert.Equal(t, "", entry.Activity())
	assert.Equal(t, "", entry.Notes())
	assert.InDelta(t, 0.5, entry.Duration(), 1e-9)
}

func TestNewActivityEntryWithClock(t *testing.T) {
	ts := utils.NewTimestamps(
		utils.WithClock(utils.FixedClock(time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC))),
		utils.WithDefaultDuration(time.Hour),
	)

	entry, err := NewActivityEntryWith(ts, EntryInput{Activity: "standup"})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02T08:00:00", entry.Start())
	assert.Equal(t, "2024-01-02T09:00:00", entry.Stop())
}

func TestNewActivityEntryErrors(t *testing.T) {
	tests := []struct {
		name string
		in   EntryInput
	}{
		{name: "bad start", in: EntryInput{Start: "invalid-date-format"}},
		{name: "bad stop", in: EntryInput{Start: "2023-10-01T12:00:00", Stop: "2023-13-01T12:00:00"}},
		{name: "short start", in: EntryInput{Start: "2023-10-01"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewActivityEntry(tt.in)
			require.ErrorIs(t, err, errors.ErrInvalidFormat)
		})
	}
}

func TestNegativeDurationIsSurfacedNotRejected(t *testing.T) {
	entry, err := NewActivityEntry(EntryInput{
		Start: "2023-10-01T14:00:00",
		Stop:  "2023-10-01T13:00:00",
	})
	require.NoError(t, err)
	assert.True(t, entry.IsNegative())
	assert.Equal(t, -1.0, entry.Duration())
}

func TestDurationIn(t *testing.T) {
	entry, err := NewActivityEntry(EntryInput{Start: "2023-10-01T12:00:00", Stop: "2023-10-01T14:30:00"})
	require.NoError(t, err)

	minutes, err := entry.DurationIn(utils.Minutes)
	require.NoError(t, err)
	assert.Equal(t, 150.0, minutes)

	_, err = entry.DurationIn("days")
	require.ErrorIs(t, err, errors.ErrInvalidArgument)

	_, err = ActivityEntry{}.DurationIn(utils.Hours)
	require.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestWithHelpers(t *testing.T) {
	entry, err := NewActivityEntry(EntryInput{Start: "2023-10-01T12:00:00", Activity: "a"})
	require.NoError(t, err)

	relabeled := entry.WithActivity("b").WithNotes("n")
	assert.Equal(t, "a", entry.Activity(), "original must not change")
	assert.Equal(t, "b", relabeled.Activity())
	assert.Equal(t, "n", relabeled.Notes())
	assert.Equal(t, entry.ID(), relabeled.ID())

	later, err := entry.WithStop("2023-10-01T15:00:00")
	require.NoError(t, err)
	assert.Equal(t, 3.0, later.Duration())
	assert.Equal(t, entry.ID(), later.ID())

	_, err = entry.WithStart("nope")
	require.ErrorIs(t, err, errors.ErrInvalidFormat)
}

func TestOverlaps(t *testing.T) {
	mk := func(start, stop string) ActivityEntry {
		e, err := NewActivityEntry(EntryInput{Start: start, Stop: stop})
		require.NoError(t, err)
		return e
	}

	a := mk("2023-10-01T09:00:00", "2023-10-01T10:00:00")
	assert.True(t, a.Overlaps(mk("2023-10-01T09:30:00", "2023-10-01T11:00:00")))
	assert.False(t, a.Overlaps(mk("2023-10-01T10:00:00", "2023-10-01T11:00:00")), "touching spans")
	assert.True(t, a.Overlaps(mk("2023-10-01T09:45:00", "2023-10-01T09:15:00")), "reversed span")
	assert.False(t, a.Overlaps(ActivityEntry{}))
}

func TestEntryJSON(t *testing.T) {
	entry, err := NewActivityEntry(EntryInput{
		Start:    "2023-10-01T12:00:00",
		Stop:     "2023-10-01T12:45:00",
		Activity: "writing",
		Notes:    "design doc",
	})
	require.NoError(t, err)

	data, err := sonic.Marshal(entry)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "writing", fields["activity"])
	assert.Equal(t, 0.75, fields["duration"])
	assert.Equal(t, entry.ID(), fields["id"])

	var decoded ActivityEntry
	require.NoError(t, sonic.Unmarshal(data, &decoded))
	assert.Equal(t, entry, decoded)
}

func TestEntryJSONIgnoresStoredDuration(t *testing.T) {
	doc := `{"start":"2023-10-01T12:00:00","stop":"2023-10-01T13:00:00","activity":"x","notes":"","duration":99}`

	var e ActivityEntry
	require.NoError(t, json.Unmarshal([]byte(doc), &e))
	assert.Equal(t, 1.0, e.Duration())
	assert.NotEmpty(t, e.ID(), "missing id is generated")
}

func TestEntryJSONMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "missing start", doc: `{"stop":"2023-10-01T13:00:00","activity":"x","notes":""}`},
		{name: "missing notes", doc: `{"start":"2023-10-01T12:00:00","stop":"2023-10-01T13:00:00","activity":"x"}`},
		{name: "wrong type", doc: `{"start":12,"stop":"2023-10-01T13:00:00","activity":"x","notes":""}`},
		{name: "empty stop", doc: `{"start":"2023-10-01T12:00:00","stop":"","activity":"x","notes":""}`},
		{name: "bad timestamp", doc: `{"start":"yesterday at noon!!","stop":"2023-10-01T13:00:00","activity":"x","notes":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e ActivityEntry
			err := json.Unmarshal([]byte(tt.doc), &e)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrMalformedDocument), "got %v", err)
		})
	}
}

func TestZeroEntry(t *testing.T) {
	var e ActivityEntry
	assert.True(t, e.IsZero())
	assert.True(t, e.StartTime().IsZero())

	_, err := e.MarshalJSON()
	require.ErrorIs(t, err, errors.ErrInvalidArgument)
}
