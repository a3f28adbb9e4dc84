package models

import (
	"time"

	"github.com/julianstephens/streaklit/internal/constants"
)

// WeeklyGrid is a habit's completion history over a trailing window,
// reshaped into weekday rows and week columns for heatmap rendering.
//
// Cells[r][c] is 1 when the day at offset r of week bucket c was marked done.
// The final bucket is zero-padded when the window is not a multiple of seven days.
type WeeklyGrid struct {
	Start     time.Time                     `json:"start"`
	End       time.Time                     `json:"end"`
	Days      int                           `json:"days"`
	Completed int                           `json:"completed"`
	Weeks     []int                         `json:"weeks"`
	DayLabels [constants.DaysPerWeek]string `json:"day_labels"`
	Cells     [constants.DaysPerWeek][]int  `json:"cells"`
}

// WeekCount returns the number of week buckets (columns) in the grid.
func (g WeeklyGrid) WeekCount() int {
	return len(g.Weeks)
}

// DayAt returns the calendar day represented by cell (row, week).
// Padding cells past the end of the window return a date after End.
func (g WeeklyGrid) DayAt(row, week int) time.Time {
	return g.Start.AddDate(0, 0, week*constants.DaysPerWeek+row)
}

// HabitTimeline pairs a habit with its weekly grid for the per-habit view.
type HabitTimeline struct {
	Habit         Habit      `json:"habit"`
	CurrentStreak int        `json:"current_streak"`
	LongestStreak int        `json:"longest_streak"`
	Grid          WeeklyGrid `json:"grid"`
}
