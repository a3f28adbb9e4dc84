package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/streaklit/internal/constants"
)

// Habit is a user-defined practice tracked once per day.
type Habit struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedDate time.Time `json:"created_date"`
}

// Validate checks the fields a caller supplies when creating a habit.
func (h *Habit) Validate() error {
	if strings.TrimSpace(h.Name) == "" {
		return fmt.Errorf("habit name cannot be empty")
	}
	return nil
}

// CreatedDay returns the creation date in YYYY-MM-DD form.
func (h *Habit) CreatedDay() string {
	return h.CreatedDate.Format(constants.DateFormat)
}

// HabitCount is a habit together with its lifetime number of completion marks.
type HabitCount struct {
	Habit
	TotalDone int `json:"total_done"`
}

// HabitSummary is the dashboard row for a single habit.
type HabitSummary struct {
	Habit
	TotalDone int `json:"total_done"`
	Streak    int `json:"streak"`
}

// DeleteResult reports what a habit deletion removed.
// Found is false when no habit with HabitID existed; that is not an error.
type DeleteResult struct {
	HabitID      int64 `json:"habit_id"`
	Found        bool  `json:"found"`
	MarksRemoved int64 `json:"marks_removed"`
}

// ChartPoint is one bar of the dashboard bar chart.
type ChartPoint struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}
