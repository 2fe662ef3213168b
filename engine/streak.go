package engine

import "github.com/masteryflow/masteryflow/models"

// advanceStreak applies the streak-continuity rule to one streak row for an
// activity on the given date. today and yesterday are calendar-date strings
// in the user's timezone.
//
// Last activity yesterday extends the run; last activity today is a same-day
// repeat and leaves the count unchanged; anything else is a gap and resets
// the run to 1. LongestStreak tracks the historical maximum and never
// decreases, so a reset leaves it untouched.
func advanceStreak(streak *models.Streak, today, yesterday string) {
	switch streak.LastActivityDate {
	case yesterday:
		streak.CurrentStreak++
	case today:
		// Same-day re-activity is idempotent.
	default:
		streak.CurrentStreak = 1
	}

	if streak.CurrentStreak > streak.LongestStreak {
		streak.LongestStreak = streak.CurrentStreak
	}
	streak.LastActivityDate = today
}
