package models

import (
	"testing"
	"time"
)

func TestHabitValidate(t *testing.T) {
	tests := []struct {
		name    string
		habit   Habit
		wantErr bool
	}{
		{"valid", Habit{Name: "Read"}, false},
		{"empty", Habit{Name: ""}, true},
		{"whitespace", Habit{Name: " \t"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.habit.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHabitCreatedDay(t *testing.T) {
	h := Habit{CreatedDate: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)}
	if got := h.CreatedDay(); got != "2026-03-09" {
		t.Errorf("CreatedDay() = %q, want 2026-03-09", got)
	}
}

func TestWeeklyGrid(t *testing.T) {
	g := WeeklyGrid{
		Start: time.Date(2026, 7, 19, 0, 0, 0, 0, time.UTC),
		Weeks: make([]int, 13),
	}
	if g.WeekCount() != 13 {
		t.Errorf("WeekCount() = %d, want 13", g.WeekCount())
	}

	tests := []struct {
		row, week int
		want      string
	}{
		{0, 0, "2026-07-19"},
		{6, 0, "2026-07-25"},
		{0, 1, "2026-07-26"},
		{6, 12, "2026-10-17"},
	}
	for _, tt := range tests {
		if got := g.DayAt(tt.row, tt.week).Format("2006-01-02"); got != tt.want {
			t.Errorf("DayAt(%d, %d) = %s, want %s", tt.row, tt.week, got, tt.want)
		}
	}
}
