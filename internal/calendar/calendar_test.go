package calendar

import (
	"testing"
	"time"
)

func TestRange_SkipsWeekends(t *testing.T) {
	cal := New(nil)

	// 2019-03-01 is a Friday.
	start := time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2019, 3, 8, 0, 0, 0, 0, time.UTC)

	days := cal.Range(start, end)
	if len(days) != 6 {
		t.Fatalf("expected 6 business days, got %d", len(days))
	}
	for _, d := range days {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Errorf("weekend day %v in range", d)
		}
	}
}

func TestRange_SkipsHolidays(t *testing.T) {
	// Carnival Monday/Tuesday 2019.
	carnival := []time.Time{
		time.Date(2019, 3, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2019, 3, 5, 0, 0, 0, 0, time.UTC),
	}
	cal := New(carnival)

	start := time.Date(2019, 3, 4, 0, 0, 0, 0, time.UTC)
	end := time.Date(2019, 3, 8, 0, 0, 0, 0, time.UTC)

	days := cal.Range(start, end)
	if len(days) != 3 {
		t.Fatalf("expected 3 business days, got %d", len(days))
	}
	if !days[0].Equal(time.Date(2019, 3, 6, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected first day 2019-03-06, got %v", days[0])
	}
}

func TestNext_SkipsToMonday(t *testing.T) {
	cal := New(nil)

	friday := time.Date(2019, 3, 8, 0, 0, 0, 0, time.UTC)
	next := cal.Next(friday)

	monday := time.Date(2019, 3, 11, 0, 0, 0, 0, time.UTC)
	if !next.Equal(monday) {
		t.Errorf("expected %v, got %v", monday, next)
	}
}

func TestNormalize_DropsTimeOfDay(t *testing.T) {
	ts := time.Date(2019, 3, 8, 17, 45, 12, 0, time.UTC)
	if got := Normalize(ts); got.Hour() != 0 || got.Minute() != 0 {
		t.Errorf("expected midnight, got %v", got)
	}
}
