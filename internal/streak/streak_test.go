package streak

import (
	"testing"
	"time"
)

var today = time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

func daysAgo(n ...int) []time.Time {
	out := make([]time.Time, 0, len(n))
	for _, d := range n {
		out = append(out, today.AddDate(0, 0, -d))
	}
	return out
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name  string
		dates []time.Time
		want  int
	}{
		{name: "no marks", dates: nil, want: 0},
		{name: "only today", dates: daysAgo(0), want: 1},
		{name: "yesterday but not today", dates: daysAgo(1), want: 0},
		{name: "old marks without today", dates: daysAgo(2, 3, 4, 5), want: 0},
		{name: "three day run", dates: daysAgo(0, 1, 2), want: 3},
		{name: "gap breaks older run", dates: daysAgo(0, 2, 3, 4), want: 1},
		{name: "unsorted input", dates: daysAgo(2, 0, 1), want: 3},
		{name: "duplicates count once", dates: daysAgo(0, 0, 1, 1, 2), want: 3},
		{name: "future mark ends the walk", dates: daysAgo(-1, 0, 1), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compute(tt.dates, today); got != tt.want {
				t.Errorf("Compute() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCompute_RunOfK(t *testing.T) {
	for k := 0; k <= 45; k++ {
		var dates []time.Time
		for i := 0; i < k; i++ {
			dates = append(dates, today.AddDate(0, 0, -i))
		}
		// Marks older than the gap at today-k must not extend the streak.
		dates = append(dates, today.AddDate(0, 0, -(k+1)), today.AddDate(0, 0, -(k+2)))

		if got := Compute(dates, today); got != k {
			t.Errorf("k=%d: Compute() = %d", k, got)
		}
	}
}

// Habit created on day 0, marked on days 0, 1, 2, skipped day 3, marked on day 4 (today).
func TestCompute_ReadScenario(t *testing.T) {
	day0 := today.AddDate(0, 0, -4)
	dates := []time.Time{day0, day0.AddDate(0, 0, 1), day0.AddDate(0, 0, 2), day0.AddDate(0, 0, 4)}

	if got := Compute(dates, today); got != 1 {
		t.Errorf("Compute() = %d, want 1", got)
	}
	if got := Longest(dates); got != 3 {
		t.Errorf("Longest() = %d, want 3", got)
	}
}

func TestCompute_IgnoresTimeOfDay(t *testing.T) {
	dates := []time.Time{
		today.Add(22 * time.Hour),
		today.AddDate(0, 0, -1).Add(3 * time.Hour),
	}
	if got := Compute(dates, today.Add(8*time.Hour)); got != 2 {
		t.Errorf("Compute() = %d, want 2", got)
	}
}

func TestLongest(t *testing.T) {
	tests := []struct {
		name  string
		dates []time.Time
		want  int
	}{
		{name: "empty", dates: nil, want: 0},
		{name: "single", dates: daysAgo(10), want: 1},
		{name: "two runs", dates: daysAgo(0, 1, 5, 6, 7, 8), want: 4},
		{name: "duplicates", dates: daysAgo(3, 3, 4), want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Longest(tt.dates); got != tt.want {
				t.Errorf("Longest() = %d, want %d", got, tt.want)
			}
		})
	}
}
