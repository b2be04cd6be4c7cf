package aggregate

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveRangePresets(t *testing.T) {
	t.Parallel()

	// A Wednesday mid-afternoon.
	now := time.Date(2024, time.May, 15, 14, 30, 0, 0, time.UTC)

	cases := []struct {
		name      string
		preset    RangePreset
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "today",
			preset:    RangeToday,
			wantStart: date(2024, time.May, 15),
			wantEnd:   now,
		},
		{
			name:      "this week starts monday",
			preset:    RangeThisWeek,
			wantStart: date(2024, time.May, 13),
			wantEnd:   now,
		},
		{
			name:      "this month",
			preset:    RangeThisMonth,
			wantStart: date(2024, time.May, 1),
			wantEnd:   now,
		},
		{
			name:      "last month spans whole month",
			preset:    RangeLastMonth,
			wantStart: date(2024, time.April, 1),
			wantEnd:   date(2024, time.May, 1).Add(-time.Nanosecond),
		},
		{
			name:      "all data",
			preset:    RangeAll,
			wantStart: date(2020, time.January, 1),
			wantEnd:   date(2099, time.December, 31),
		},
		{
			name:      "unknown preset falls back to all",
			preset:    RangePreset("bogus"),
			wantStart: date(2020, time.January, 1),
			wantEnd:   date(2099, time.December, 31),
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			start, end, err := ResolveRange(tc.preset, now, nil, nil)
			if err != nil {
				t.Fatalf("ResolveRange(%s) error: %v", tc.preset, err)
			}
			if !start.Equal(tc.wantStart) {
				t.Errorf("start = %v, want %v", start, tc.wantStart)
			}
			if !end.Equal(tc.wantEnd) {
				t.Errorf("end = %v, want %v", end, tc.wantEnd)
			}
		})
	}
}

func TestResolveRangeWeekStartsOnSunday(t *testing.T) {
	t.Parallel()

	// A Sunday belongs to the week that started the previous Monday.
	sunday := time.Date(2024, time.May, 19, 9, 0, 0, 0, time.UTC)
	start, _, err := ResolveRange(RangeThisWeek, sunday, nil, nil)
	if err != nil {
		t.Fatalf("ResolveRange error: %v", err)
	}
	if want := date(2024, time.May, 13); !start.Equal(want) {
		t.Errorf("start = %v, want %v", start, want)
	}
}

func TestResolveRangeLastMonthAcrossYear(t *testing.T) {
	t.Parallel()

	jan := time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC)
	start, end, err := ResolveRange(RangeLastMonth, jan, nil, nil)
	if err != nil {
		t.Fatalf("ResolveRange error: %v", err)
	}
	if want := date(2023, time.December, 1); !start.Equal(want) {
		t.Errorf("start = %v, want %v", start, want)
	}
	if want := date(2024, time.January, 1).Add(-time.Nanosecond); !end.Equal(want) {
		t.Errorf("end = %v, want %v", end, want)
	}
}

func TestResolveRangeCustom(t *testing.T) {
	t.Parallel()

	now := time.Now()
	from := date(2024, time.March, 1)
	to := date(2024, time.March, 15)

	start, end, err := ResolveRange(RangeCustom, now, &from, &to)
	if err != nil {
		t.Fatalf("ResolveRange error: %v", err)
	}
	if !start.Equal(from) || !end.Equal(to) {
		t.Errorf("got [%v, %v], want [%v, %v]", start, end, from, to)
	}

	for _, tc := range []struct {
		name  string
		start *time.Time
		end   *time.Time
	}{
		{"missing start", nil, &to},
		{"missing end", &from, nil},
		{"missing both", nil, nil},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := ResolveRange(RangeCustom, now, tc.start, tc.end); !errors.Is(err, ErrIncompleteRange) {
				t.Errorf("err = %v, want ErrIncompleteRange", err)
			}
		})
	}
}
