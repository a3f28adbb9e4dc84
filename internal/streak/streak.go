// Package streak computes consecutive-day completion runs from a habit's marks.
package streak

import (
	"sort"
	"time"

	"github.com/julianstephens/streaklit/internal/utils"
)

// Compute returns the number of consecutive days, counting backward from
// today, on which the habit was marked done.
//
// The walk starts at today: a habit not marked today has a streak of 0 even
// if it was marked yesterday. The first gap ends the walk, so older runs are
// ignored. Input order does not matter and duplicate days count once.
func Compute(dates []time.Time, today time.Time) int {
	days := descending(dates)
	today = utils.Day(today)

	streak := 0
	for _, d := range days {
		if !d.Equal(today.AddDate(0, 0, -streak)) {
			break
		}
		streak++
	}
	return streak
}

// Longest returns the longest run of consecutive marked days anywhere in dates.
func Longest(dates []time.Time) int {
	days := descending(dates)
	if len(days) == 0 {
		return 0
	}

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i].Equal(days[i-1].AddDate(0, 0, -1)) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// descending normalizes dates to calendar days, drops duplicates and sorts newest first.
func descending(dates []time.Time) []time.Time {
	seen := make(map[time.Time]struct{}, len(dates))
	days := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		day := utils.Day(d)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].After(days[j])
	})
	return days
}
