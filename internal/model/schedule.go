package model

import (
	"sort"
	"time"
)

// Window binds a classifier to the period it may be used in. A model trained
// on data up to its training cutoff is valid for dates after that cutoff and
// at or before ValidUntil, which prevents look-ahead bias when backtesting
// across model retrains.
type Window struct {
	ValidUntil time.Time
	Model      Classifier
}

// Schedule is an ordered list of model windows for one ticker. Resolution is
// a pure date lookup: the first window whose ValidUntil is not before the
// date wins.
type Schedule struct {
	windows []Window
}

// NewSchedule creates a schedule from windows, ordering them by ValidUntil.
func NewSchedule(windows []Window) (*Schedule, error) {
	if len(windows) == 0 {
		return nil, ErrEmptySchedule
	}

	sorted := make([]Window, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ValidUntil.Before(sorted[j].ValidUntil)
	})

	return &Schedule{windows: sorted}, nil
}

// ActiveAt returns the classifier valid for the given date, or nil when the
// date falls past every window.
func (s *Schedule) ActiveAt(date time.Time) Classifier {
	for _, w := range s.windows {
		if !w.ValidUntil.Before(date) {
			return w.Model
		}
	}
	return nil
}
