package tracker

import (
	"time"

	"github.com/pqtu-edu/progresskit/model"
)

// advanceStreak applies the calendar-day streak rule: activity on the same
// day leaves the streak alone, the next calendar day extends it, and a gap
// beyond 1+graceDays calendar days resets it to 1. Longest is maintained
// as a true invariant on every mutation.
func advanceStreak(s *model.Streak, now time.Time, graceDays int) {
	switch {
	case s.LastActivityDate.IsZero():
		s.Current = 1
	case sameCalendarDay(s.LastActivityDate, now):
		// No change.
	case calendarDaysBetween(s.LastActivityDate, now) <= 1+graceDays:
		s.Current++
	default:
		s.Current = 1
	}
	s.LastActivityDate = now
	if s.Longest < s.Current {
		s.Longest = s.Current
	}
}

func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// calendarDaysBetween counts whole calendar-day boundaries crossed from a
// to b, ignoring the time of day.
func calendarDaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	start := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	end := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}
