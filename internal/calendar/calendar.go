package calendar

import "time"

// Calendar builds business-day sequences: weekdays minus exchange holidays.
type Calendar struct {
	holidays map[string]struct{}
}

// New creates a calendar excluding the given holiday dates.
func New(holidays []time.Time) *Calendar {
	set := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		set[dayKey(h)] = struct{}{}
	}
	return &Calendar{holidays: set}
}

// IsBusinessDay reports whether d is a weekday and not a holiday.
func (c *Calendar) IsBusinessDay(d time.Time) bool {
	wd := d.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	_, holiday := c.holidays[dayKey(d)]
	return !holiday
}

// Range returns the ordered business days within [start, end] inclusive.
func (c *Calendar) Range(start, end time.Time) []time.Time {
	var days []time.Time
	for d := Normalize(start); !d.After(Normalize(end)); d = d.AddDate(0, 0, 1) {
		if c.IsBusinessDay(d) {
			days = append(days, d)
		}
	}
	return days
}

// Next returns the first business day strictly after d.
func (c *Calendar) Next(d time.Time) time.Time {
	n := Normalize(d).AddDate(0, 0, 1)
	for !c.IsBusinessDay(n) {
		n = n.AddDate(0, 0, 1)
	}
	return n
}

// Normalize truncates a timestamp to its UTC calendar day.
func Normalize(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func dayKey(d time.Time) string {
	return d.Format("2006-01-02")
}
