package aggregate

import (
	"errors"
	"time"
)

// RangePreset names the date-range shortcuts offered by the dashboards.
type RangePreset string

const (
	RangeToday     RangePreset = "today"
	RangeThisWeek  RangePreset = "thisWeek"
	RangeThisMonth RangePreset = "thisMonth"
	RangeLastMonth RangePreset = "lastMonth"
	RangeAll       RangePreset = "all"
	RangeCustom    RangePreset = "custom"
)

// Bounds for the "all" preset. The platform has no recorded data before
// 2020 and the far-future ceiling keeps the backend query effectively
// unbounded.
var (
	allDataStart = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	allDataEnd   = time.Date(2099, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// ErrIncompleteRange means a custom range is missing a bound. It is a
// precondition, not a failure: callers skip the fetch and leave any prior
// result in place.
var ErrIncompleteRange = errors.New("custom range requires both start and end")

// ResolveRange turns a preset into concrete [start, end] bounds relative to
// now. Day and week boundaries are taken in now's location; weeks start on
// Monday.
func ResolveRange(preset RangePreset, now time.Time, customStart, customEnd *time.Time) (time.Time, time.Time, error) {
	switch preset {
	case RangeToday:
		return startOfDay(now), now, nil
	case RangeThisWeek:
		return startOfWeek(now), now, nil
	case RangeThisMonth:
		return startOfMonth(now), now, nil
	case RangeLastMonth:
		start := startOfMonth(now).AddDate(0, -1, 0)
		return start, endOfMonth(start), nil
	case RangeCustom:
		if customStart == nil || customEnd == nil {
			return time.Time{}, time.Time{}, ErrIncompleteRange
		}
		return *customStart, *customEnd, nil
	case RangeAll:
		return allDataStart, allDataEnd, nil
	default:
		return allDataStart, allDataEnd, nil
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// startOfWeek returns the most recent Monday midnight at or before t.
func startOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	wd := int(day.Weekday())
	if wd == 0 {
		wd = 7 // Sunday counts as day 7 of the preceding week
	}
	return day.AddDate(0, 0, -(wd - 1))
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// endOfMonth returns the last representable instant of the month containing t.
func endOfMonth(t time.Time) time.Time {
	return startOfMonth(t).AddDate(0, 1, 0).Add(-time.Nanosecond)
}
