package model

import (
	"strings"
	"time"
)

// DateLayout is the format used for reservation dates on the wire and in
// the database (DATE columns).
const DateLayout = "2006-01-02"

// DateRange is a half-open span of calendar days [Start, End).  A guest
// checking out on End leaves the day free for the next arrival, so two
// ranges where one ends exactly when the other starts do not overlap.
//
// Both bounds are kept at midnight UTC; use NewDateRange or Day to
// normalise arbitrary timestamps.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange builds a DateRange from two timestamps truncated to their
// calendar days.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: Day(start), End: Day(end)}
}

// ParseDateRange parses two YYYY-MM-DD strings into a DateRange.  It does
// not check ordering; call Valid for that.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, err
	}
	return DateRange{Start: s, End: e}, nil
}

// ParseDate parses a YYYY-MM-DD string as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// Day truncates t to midnight UTC of the calendar date t falls on in its
// own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Valid reports whether Start is strictly before End.  A same-day range is
// not a valid reservation.
func (r DateRange) Valid() bool {
	return r.Start.Before(r.End)
}

// Overlaps reports whether r and o share at least one day.  It is the only
// definition of a reservation conflict; storage queries encode the same
// predicate.
func (r DateRange) Overlaps(o DateRange) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// Nights returns the number of days covered by the range, or zero when the
// range is not valid.
func (r DateRange) Nights() int {
	if !r.Valid() {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours() / 24)
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + "/" + r.End.Format(DateLayout)
}
