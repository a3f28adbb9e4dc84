// Package timeline turns a sparse set of completion dates into a dense
// weekday-by-week grid suitable for calendar heatmaps.
package timeline

import (
	"time"

	"github.com/julianstephens/streaklit/internal/constants"
	"github.com/julianstephens/streaklit/internal/models"
	"github.com/julianstephens/streaklit/internal/utils"
)

type options struct {
	windowDays      int
	referenceLabels bool
}

// Option configures Build.
type Option func(*options)

// WithWindow sets how many days before today the window starts.
// Values below 1 fall back to the default of 90.
func WithWindow(days int) Option {
	return func(o *options) {
		if days >= 1 {
			o.windowDays = days
		}
	}
}

// WithReferenceLabels labels the rows Saturday..Friday regardless of the
// weekday the window starts on.
func WithReferenceLabels() Option {
	return func(o *options) {
		o.referenceLabels = true
	}
}

// Build lays marked out over the closed range [today-window, today].
// With the default window of 90 this is 91 calendar days.
//
// The days are bucketed into consecutive weeks of seven, left to right, and
// transposed so that row r holds offset r of every bucket. The last bucket is
// zero-padded on the right.
func Build(marked []time.Time, today time.Time, opts ...Option) models.WeeklyGrid {
	o := options{windowDays: constants.DefaultWindowDays}
	for _, opt := range opts {
		opt(&o)
	}

	set := make(map[time.Time]struct{}, len(marked))
	for _, d := range marked {
		set[utils.Day(d)] = struct{}{}
	}

	end := utils.Day(today)
	start := end.AddDate(0, 0, -o.windowDays)

	flags := make([]int, 0, o.windowDays+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if _, ok := set[d]; ok {
			flags = append(flags, 1)
		} else {
			flags = append(flags, 0)
		}
	}

	grid := models.WeeklyGrid{
		Start: start,
		End:   end,
		Days:  len(flags),
	}

	weeks := weekBuckets(flags)
	grid.Weeks = make([]int, len(weeks))
	for c := range weeks {
		grid.Weeks[c] = c
	}
	for r := 0; r < constants.DaysPerWeek; r++ {
		row := make([]int, len(weeks))
		for c, week := range weeks {
			row[c] = week[r]
		}
		grid.Cells[r] = row
	}

	for _, f := range flags {
		grid.Completed += f
	}

	if o.referenceLabels {
		grid.DayLabels = constants.ReferenceDayLabels
	} else {
		grid.DayLabels = DayLabels(start.Weekday())
	}

	return grid
}

// DayLabels returns weekday names for rows 0..6 of a grid whose window starts on first.
func DayLabels(first time.Weekday) [constants.DaysPerWeek]string {
	var labels [constants.DaysPerWeek]string
	for r := range labels {
		labels[r] = time.Weekday((int(first) + r) % constants.DaysPerWeek).String()
	}
	return labels
}

// weekBuckets splits flags into groups of seven, padding the last one with zeros.
func weekBuckets(flags []int) [][constants.DaysPerWeek]int {
	var weeks [][constants.DaysPerWeek]int
	for i := 0; i < len(flags); i += constants.DaysPerWeek {
		var week [constants.DaysPerWeek]int
		for j := 0; j < constants.DaysPerWeek; j++ {
			if i+j < len(flags) {
				week[j] = flags[i+j]
			}
		}
		weeks = append(weeks, week)
	}
	return weeks
}
