// Package streak tracks consecutive days on which a drill was completed.
package streak

import "time"

// DateLayout is the persisted calendar date format.
const DateLayout = "2006-01-02"

// State is the day-streak counter and the calendar day it was last bumped.
// A zero LastDate means no drill has been recorded yet.
type State struct {
	Count    int
	LastDate time.Time
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a persisted YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// FormatDate renders a calendar date in the persisted format.
func FormatDate(t time.Time) string {
	return Day(t).Format(DateLayout)
}

// Update applies a completed drill on today to the streak.
//
// The same day leaves the state unchanged. Exactly one day after the last
// recorded day extends the streak. Anything else, including a last date in
// the future, restarts it at 1.
func Update(s State, today time.Time) State {
	today = Day(today)
	if s.LastDate.IsZero() {
		return State{Count: 1, LastDate: today}
	}

	last := Day(s.LastDate)
	switch {
	case last.Equal(today):
		return State{Count: s.Count, LastDate: today}
	case last.AddDate(0, 0, 1).Equal(today):
		return State{Count: s.Count + 1, LastDate: today}
	default:
		return State{Count: 1, LastDate: today}
	}
}

// Active reports whether the streak is still alive on today, meaning a drill
// today or tomorrow keeps it going.
func Active(s State, today time.Time) bool {
	if s.LastDate.IsZero() || s.Count == 0 {
		return false
	}
	last := Day(s.LastDate)
	today = Day(today)
	return last.Equal(today) || last.AddDate(0, 0, 1).Equal(today)
}

// NextMilestone returns the next streak length worth celebrating above current.
func NextMilestone(current int) int {
	milestones := []int{3, 7, 14, 30}
	for _, m := range milestones {
		if m > current {
			return m
		}
	}
	// Beyond a month, every 30 days.
	return ((current / 30) + 1) * 30
}
