package utils

import (
	"math"
	"strings"
	"time"

	"github.com/julianstephens/activitytracker/internal/constants"
	"github.com/julianstephens/activitytracker/internal/errors"
)

// Unit selects the scale of a computed duration
type Unit string

const (
	Hours   Unit = "hours"
	Minutes Unit = "minutes"
	Seconds Unit = "seconds"
)

// parseLayouts are tried in order. Fractional seconds are accepted after
// the seconds field by time.Parse even though no layout spells them out.
const (
	minYear = 1
	maxYear = 9999

	// maxShiftSeconds spans the whole of years 1-9999
	maxShiftSeconds = float64(maxYear-minYear+1) * 366 * 24 * 3600
)

var parseLayouts = []string{
	constants.TimestampFormat,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	constants.DateFormat,
}

// Timestamps converts, validates and defaults textual timestamps.
// Every defaulted field reads the clock at the moment it is defaulted.
type Timestamps struct {
	clock           Clock
	defaultDuration time.Duration
}

// Option configures a Timestamps value
type Option func(*Timestamps)

// WithClock replaces the system clock
func WithClock(c Clock) Option {
	return func(ts *Timestamps) {
		if c != nil {
			ts.clock = c
		}
	}
}

// WithDefaultDuration sets the gap between a defaulted stop and its start
func WithDefaultDuration(d time.Duration) Option {
	return func(ts *Timestamps) {
		if d > 0 {
			ts.defaultDuration = d
		}
	}
}

// NewTimestamps returns a Timestamps using the system clock and a 30 minute default duration
func NewTimestamps(opts ...Option) *Timestamps {
	ts := &Timestamps{
		clock:           SystemClock{},
		defaultDuration: constants.DefaultDurationMin * time.Minute,
	}
	for _, opt := range opts {
		opt(ts)
	}
	return ts
}

var std = NewTimestamps()

// Default returns the package-level Timestamps used by the top-level functions
func Default() *Timestamps { return std }

// DefaultDurationValue returns the configured gap applied by DefaultStop
func (ts *Timestamps) DefaultDurationValue() time.Duration { return ts.defaultDuration }

// ToText renders t in canonical form, with six fractional digits only when
// the sub-second part is non-zero.
func (ts *Timestamps) ToText(t time.Time) (string, error) {
	if y := t.Year(); y < minYear || y > maxYear {
		return "", errors.InvalidArgument("year %d is outside %d-%d", y, minYear, maxYear)
	}
	t = t.Truncate(time.Microsecond)
	if t.Nanosecond() != 0 {
		return t.Format(constants.TimestampFormat + constants.TimestampFractionFormat), nil
	}
	return t.Format(constants.TimestampFormat), nil
}

// Parse reads a timestamp. Empty text yields the current instant.
// Surrounding whitespace is not accepted.
func (ts *Timestamps) Parse(text string) (time.Time, error) {
	if text == "" {
		return ts.Now(), nil
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.InvalidFormat("%q is not an ISO-8601 timestamp", text)
}

// ValidateText checks that text is a full timestamp (at least YYYY-MM-DDTHH:MM:SS)
func (ts *Timestamps) ValidateText(text string) error {
	if text == "" {
		return errors.EmptyInput("timestamp is empty")
	}
	if len(text) < constants.MinTimestampLength {
		return errors.InvalidFormat("%q is shorter than %d characters", text, constants.MinTimestampLength)
	}
	if _, err := ts.Parse(text); err != nil {
		return err
	}
	return nil
}

// IsValidText reports whether ValidateText accepts text
func (ts *Timestamps) IsValidText(text string) bool {
	return ts.ValidateText(text) == nil
}

// Now reads the clock
func (ts *Timestamps) Now() time.Time {
	return ts.clock.Now()
}

// NowText reads the clock and renders it in canonical form
func (ts *Timestamps) NowText() string {
	text, _ := ts.ToText(ts.Now())
	return text
}

// DefaultStart is the start used when none is given
func (ts *Timestamps) DefaultStart() string {
	return ts.NowText()
}

// DefaultStop validates start and adds the default duration to it
func (ts *Timestamps) DefaultStop(start string) (string, error) {
	start, err := ts.ValidateStart(start)
	if err != nil {
		return "", err
	}
	t, err := ts.Parse(start)
	if err != nil {
		return "", err
	}
	return ts.ToText(t.Add(ts.defaultDuration))
}

// ValidateStart defaults an empty start to now and otherwise returns text unchanged
func (ts *Timestamps) ValidateStart(text string) (string, error) {
	if text == "" {
		return ts.DefaultStart(), nil
	}
	if err := ts.ValidateText(text); err != nil {
		return "", err
	}
	return text, nil
}

// ValidateStop validates start first, then defaults an empty stop to the
// default stop for that start. A given stop is normalized to canonical form.
func (ts *Timestamps) ValidateStop(start, stop string) (string, error) {
	start, err := ts.ValidateStart(start)
	if err != nil {
		return "", err
	}
	if stop == "" {
		return ts.DefaultStop(start)
	}
	if err := ts.ValidateText(stop); err != nil {
		return "", err
	}
	t, err := ts.Parse(stop)
	if err != nil {
		return "", err
	}
	return ts.ToText(t)
}

// ApproxEqual reports whether a and b lie within toleranceSeconds of each other.
// Each empty input is replaced by its own reading of the clock.
func (ts *Timestamps) ApproxEqual(a, b string, toleranceSeconds float64) (bool, error) {
	if math.IsNaN(toleranceSeconds) || math.IsInf(toleranceSeconds, 0) || toleranceSeconds < 0 {
		return false, errors.InvalidArgument("tolerance must be a finite non-negative number, got %v", toleranceSeconds)
	}
	ta, err := ts.Parse(a)
	if err != nil {
		return false, err
	}
	tb, err := ts.Parse(b)
	if err != nil {
		return false, err
	}
	return math.Abs(secondsBetween(tb, ta)) <= toleranceSeconds, nil
}

// Shift adds a signed delta to text and returns the result in canonical form
func (ts *Timestamps) Shift(text string, hours, minutes, seconds float64) (string, error) {
	if text == "" {
		return "", errors.InvalidArgument("no timestamp to shift")
	}
	t, err := ts.Parse(text)
	if err != nil {
		return "", err
	}
	total := hours*3600 + minutes*60 + seconds
	if math.IsNaN(total) || math.IsInf(total, 0) || math.Abs(total) > maxShiftSeconds {
		return "", errors.InvalidArgument("shift of %v seconds is out of range", total)
	}
	// time.Duration tops out near 292 years, so whole seconds go through Unix time
	whole := math.Trunc(total)
	shifted := time.Unix(t.Unix()+int64(whole), int64(t.Nanosecond())).In(t.Location()).
		Add(time.Duration(math.Round((total - whole) * float64(time.Second))))
	return ts.ToText(shifted)
}

// Increase moves text forward by the magnitude of each component
func (ts *Timestamps) Increase(text string, hours, minutes, seconds float64) (string, error) {
	return ts.Shift(text, math.Abs(hours), math.Abs(minutes), math.Abs(seconds))
}

// Decrease moves text backward by the magnitude of each component
func (ts *Timestamps) Decrease(text string, hours, minutes, seconds float64) (string, error) {
	return ts.Shift(text, -math.Abs(hours), -math.Abs(minutes), -math.Abs(seconds))
}

// Duration returns stop minus start in unit. The result is negative when
// stop precedes start.
func (ts *Timestamps) Duration(start, stop string, unit Unit) (float64, error) {
	divisor, ok := unitSeconds(unit)
	if !ok {
		return 0, errors.InvalidArgument("unknown duration unit %q", unit)
	}
	if start == "" || stop == "" {
		return 0, errors.EmptyInput("duration needs both start and stop")
	}
	tStart, err := ts.Parse(start)
	if err != nil {
		return 0, err
	}
	tStop, err := ts.Parse(stop)
	if err != nil {
		return 0, err
	}
	return secondsBetween(tStart, tStop) / divisor, nil
}

// secondsBetween returns b minus a in seconds for any pair of representable
// instants, unlike Time.Sub which saturates.
func secondsBetween(a, b time.Time) float64 {
	return float64(b.Unix()-a.Unix()) + float64(b.Nanosecond()-a.Nanosecond())/1e9
}

// DefaultDuration returns the default entry length in unit, or 0 for an unknown unit
func (ts *Timestamps) DefaultDuration(unit Unit) float64 {
	divisor, ok := unitSeconds(unit)
	if !ok {
		return 0
	}
	return ts.defaultDuration.Seconds() / divisor
}

// Coerce turns an untyped timestamp value into text. nil becomes "" so that
// the caller's defaulting rules apply.
func (ts *Timestamps) Coerce(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case time.Time:
		if val.IsZero() {
			return "", errors.InvalidArgument("zero time.Time is not a timestamp")
		}
		return ts.ToText(val)
	case *time.Time:
		if val == nil {
			return "", nil
		}
		return ts.Coerce(*val)
	default:
		return "", errors.InvalidArgument("cannot use %T as a timestamp", v)
	}
}

// ParseUnit reads a unit name, accepting singular forms and h/m/s
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hours", "hour", "h":
		return Hours, nil
	case "minutes", "minute", "min", "m":
		return Minutes, nil
	case "seconds", "second", "sec", "s":
		return Seconds, nil
	}
	return "", errors.InvalidArgument("unknown duration unit %q", s)
}

func unitSeconds(unit Unit) (float64, bool) {
	switch unit {
	case Hours:
		return 3600, true
	case Minutes:
		return 60, true
	case Seconds:
		return 1, true
	}
	return 0, false
}

// Package-level helpers backed by Default().

func ToText(t time.Time) (string, error) { return std.ToText(t) }
func Parse(text string) (time.Time, error) { return std.Parse(text) }
func ValidateText(text string) error { return std.ValidateText(text) }
func IsValidText(text string) bool { return std.IsValidText(text) }
func Now() time.Time { return std.Now() }
func NowText() string { return std.NowText() }
func DefaultStart() string { return std.DefaultStart() }
func DefaultStop(start string) (string, error) { return std.DefaultStop(start) }
func ValidateStart(text string) (string, error) { return std.ValidateStart(text) }
func ValidateStop(start, stop string) (string, error) { return std.ValidateStop(start, stop) }
func DefaultDuration(unit Unit) float64 { return std.DefaultDuration(unit) }
func Coerce(v any) (string, error) { return std.Coerce(v) }

func ApproxEqual(a, b string, toleranceSeconds float64) (bool, error) {
	return std.ApproxEqual(a, b, toleranceSeconds)
}

func Shift(text string, hours, minutes, seconds float64) (string, error) {
	return std.Shift(text, hours, minutes, seconds)
}

func Increase(text string, hours, minutes, seconds float64) (string, error) {
	return std.Increase(text, hours, minutes, seconds)
}

func Decrease(text string, hours, minutes, seconds float64) (string, error) {
	return std.Decrease(text, hours, minutes, seconds)
}

func Duration(start, stop string, unit Unit) (float64, error) {
	return std.Duration(start, stop, unit)
}
