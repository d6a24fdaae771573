package models

import (
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/julianstephens/activitytracker/internal/errors"
	"github.com/julianstephens/activitytracker/internal/utils"
)

// EntryInput carries the raw fields of an entry before validation.
// Empty Start means now; empty Stop means Start plus the default duration.
type EntryInput struct {
	ID       string
	Start    string
	Stop     string
	Activity string
	Notes    string
}

// ActivityEntry is one recorded span of work. Values are built by
// NewActivityEntry and never change afterwards; the With* methods return
// validated copies.
type ActivityEntry struct {
	id       string
	start    string
	stop     string
	activity string
	notes    string
}

// NewActivityEntry validates in against the default timestamp rules
func NewActivityEntry(in EntryInput) (ActivityEntry, error) {
	return NewActivityEntryWith(utils.Default(), in)
}

// NewActivityEntryWith validates in using ts for defaulting.
// A stop before start is accepted; callers check IsNegative.
func NewActivityEntryWith(ts *utils.Timestamps, in EntryInput) (ActivityEntry, error) {
	if ts == nil {
		ts = utils.Default()
	}
	start, err := ts.ValidateStart(in.Start)
	if err != nil {
		return ActivityEntry{}, err
	}
	stop, err := ts.ValidateStop(start, in.Stop)
	if err != nil {
		return ActivityEntry{}, err
	}
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	return ActivityEntry{
		id:       id,
		start:    start,
		stop:     stop,
		activity: in.Activity,
		notes:    in.Notes,
	}, nil
}

func (e ActivityEntry) ID() string       { return e.id }
func (e ActivityEntry) Start() string    { return e.start }
func (e ActivityEntry) Stop() string     { return e.stop }
func (e ActivityEntry) Activity() string { return e.activity }
func (e ActivityEntry) Notes() string    { return e.notes }

// String returns the activity label
func (e ActivityEntry) String() string { return e.activity }

// IsZero reports whether e was never constructed
func (e ActivityEntry) IsZero() bool {
	return e.start == "" && e.stop == ""
}

// Duration returns stop minus start in hours, derived on every call
func (e ActivityEntry) Duration() float64 {
	d, _ := e.DurationIn(utils.Hours)
	return d
}

// DurationIn returns stop minus start in unit
func (e ActivityEntry) DurationIn(unit utils.Unit) (float64, error) {
	if e.IsZero() {
		return 0, errors.InvalidArgument("entry has no timestamps")
	}
	return utils.Duration(e.start, e.stop, unit)
}

// IsNegative reports whether stop precedes start
func (e ActivityEntry) IsNegative() bool {
	return e.Duration() < 0
}

// StartTime returns the parsed start, or the zero time for a zero entry
func (e ActivityEntry) StartTime() time.Time {
	return parseOrZero(e.start)
}

// StopTime returns the parsed stop, or the zero time for a zero entry
func (e ActivityEntry) StopTime() time.Time {
	return parseOrZero(e.stop)
}

// Overlaps reports whether the spans of e and other intersect.
// Touching endpoints do not count.
func (e ActivityEntry) Overlaps(other ActivityEntry) bool {
	if e.IsZero() || other.IsZero() {
		return false
	}
	aStart, aStop := ordered(e.StartTime(), e.StopTime())
	bStart, bStop := ordered(other.StartTime(), other.StopTime())
	return aStart.Before(bStop) && bStart.Before(aStop)
}

// Input returns the fields of e as an EntryInput
func (e ActivityEntry) Input() EntryInput {
	return EntryInput{ID: e.id, Start: e.start, Stop: e.stop, Activity: e.activity, Notes: e.notes}
}

// WithActivity returns a copy of e with a new label
func (e ActivityEntry) WithActivity(activity string) ActivityEntry {
	e.activity = activity
	return e
}

// WithNotes returns a copy of e with new notes
func (e ActivityEntry) WithNotes(notes string) ActivityEntry {
	e.notes = notes
	return e
}

// WithStart returns a re-validated copy of e starting at start
func (e ActivityEntry) WithStart(start string) (ActivityEntry, error) {
	in := e.Input()
	in.Start = start
	return NewActivityEntry(in)
}

// WithStop returns a re-validated copy of e stopping at stop
func (e ActivityEntry) WithStop(stop string) (ActivityEntry, error) {
	in := e.Input()
	in.Stop = stop
	return NewActivityEntry(in)
}

type entryJSON struct {
	ID       *string  `json:"id,omitempty"`
	Start    *string  `json:"start"`
	Stop     *string  `json:"stop"`
	Activity *string  `json:"activity"`
	Notes    *string  `json:"notes"`
	Duration *float64 `json:"duration,omitempty"`
}

// MarshalJSON writes the entry with its derived duration in hours
func (e ActivityEntry) MarshalJSON() ([]byte, error) {
	if e.IsZero() {
		return nil, errors.InvalidArgument("cannot encode a zero entry")
	}
	d := e.Duration()
	return sonic.Marshal(entryJSON{
		ID:       &e.id,
		Start:    &e.start,
		Stop:     &e.stop,
		Activity: &e.activity,
		Notes:    &e.notes,
		Duration: &d,
	})
}

// UnmarshalJSON reads and re-validates an entry. The stored duration is
// ignored and derived again from start and stop.
func (e *ActivityEntry) UnmarshalJSON(data []byte) error {
	var raw entryJSON
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return errors.MalformedDocument("activity entry: %v", err)
	}
	if err := requireFields(raw); err != nil {
		return err
	}
	if *raw.Start == "" || *raw.Stop == "" {
		return errors.MalformedDocument("activity entry has an empty timestamp")
	}
	in := EntryInput{
		Start:    *raw.Start,
		Stop:     *raw.Stop,
		Activity: *raw.Activity,
		Notes:    *raw.Notes,
	}
	if raw.ID != nil {
		in.ID = *raw.ID
	}
	entry, err := NewActivityEntry(in)
	if err != nil {
		return errors.MalformedDocument("activity entry: %v", err)
	}
	*e = entry
	return nil
}

func requireFields(raw entryJSON) error {
	switch {
	case raw.Start == nil:
		return errors.MalformedDocument("activity entry missing %q", "start")
	case raw.Stop == nil:
		return errors.MalformedDocument("activity entry missing %q", "stop")
	case raw.Activity == nil:
		return errors.MalformedDocument("activity entry missing %q", "activity")
	case raw.Notes == nil:
		return errors.MalformedDocument("activity entry missing %q", "notes")
	}
	return nil
}

func parseOrZero(text string) time.Time {
	if text == "" {
		return time.Time{}
	}
	t, err := utils.Parse(text)
	if err != nil {
		return time.Time{}
	}
	return t
}

func ordered(a, b time.Time) (time.Time, time.Time) {
	if b.Before(a) {
		return b, a
	}
	return a, b
}
