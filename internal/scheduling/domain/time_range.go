package domain

import "time"

// TimeRange represents a half-open time interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange creates a time range from a start time and duration.
func NewTimeRange(start time.Time, duration time.Duration) TimeRange {
	return TimeRange{Start: start, End: start.Add(duration)}
}

// Overlaps checks if two time ranges overlap. Touching endpoints do not
// count as an overlap because the intervals are half-open.
func (t TimeRange) Overlaps(other TimeRange) bool {
	return t.Start.Before(other.End) && other.Start.Before(t.End)
}

// OverlapDuration returns the length of the intersection of two ranges,
// or zero when they do not overlap.
func (t TimeRange) OverlapDuration(other TimeRange) time.Duration {
	start := t.Start
	if other.Start.After(start) {
		start = other.Start
	}
	end := t.End
	if other.End.Before(end) {
		end = other.End
	}
	if !start.Before(end) {
		return 0
	}
	return end.Sub(start)
}

// Duration returns the length of the time range.
func (t TimeRange) Duration() time.Duration {
	return t.End.Sub(t.Start)
}

// Shift returns a copy of the range moved by the given offset.
func (t TimeRange) Shift(offset time.Duration) TimeRange {
	return TimeRange{Start: t.Start.Add(offset), End: t.End.Add(offset)}
}

// Day returns the calendar day the range starts on, truncated to midnight UTC.
func (t TimeRange) Day() time.Time {
	y, m, d := t.Start.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateRange represents an inclusive span of calendar days.
type DateRange struct {
	From time.Time
	To   time.Time
}

// NewDateRange creates a date range, normalizing both ends to midnight UTC.
func NewDateRange(from, to time.Time) DateRange {
	return DateRange{From: midnightUTC(from), To: midnightUTC(to)}
}

// Contains reports whether the given instant falls on a day inside the range.
func (d DateRange) Contains(t time.Time) bool {
	day := midnightUTC(t)
	return !day.Before(d.From) && !day.After(d.To)
}

// Days returns every calendar day in the range, in order.
func (d DateRange) Days() []time.Time {
	var days []time.Time
	for day := d.From; !day.After(d.To); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}
	return days
}

// DayKey formats a day as a stable map key.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
