// Package render draws habit charts for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/streaklit/internal/models"
	"github.com/julianstephens/streaklit/internal/utils"
)

const (
	DoneCell    = "■"
	MissedCell  = "·"
	PaddingCell = " "
	BarRune     = "█"

	DefaultBarWidth = 40
	// ChartTitle heads the dashboard bar chart.
	ChartTitle = "Habit Tracker Progress"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#03DAC6")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	missedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("111"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// Heatmap renders a habit's weekly grid with one row per weekday and one
// column per week, oldest on the left.
func Heatmap(tl models.HabitTimeline) string {
	g := tl.Grid

	labelWidth := 0
	for _, l := range g.DayLabels {
		labelWidth = max(labelWidth, lipgloss.Width(l))
	}

	rows := make([]string, 0, len(g.Cells)+3)
	rows = append(rows, titleStyle.Render(tl.Habit.Name))
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("streak %d, longest %d, %d of %d days",
		tl.CurrentStreak, tl.LongestStreak, g.Completed, g.Days)))

	for r, cells := range g.Cells {
		var b strings.Builder
		for c, v := range cells {
			if c > 0 {
				b.WriteString(" ")
			}
			switch {
			case g.DayAt(r, c).After(g.End):
				b.WriteString(PaddingCell)
			case v == 1:
				b.WriteString(doneStyle.Render(DoneCell))
			default:
				b.WriteString(missedStyle.Render(MissedCell))
			}
		}
		label := labelStyle.Width(labelWidth).Render(g.DayLabels[r])
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, label, "  ", b.String()))
	}

	rows = append(rows, mutedStyle.Render(fmt.Sprintf("%s to %s", utils.FormatDay(g.Start), utils.FormatDay(g.End))))
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// BarChart renders one horizontal bar per point, scaled so the largest
// value spans width cells.
func BarChart(title string, points []models.ChartPoint, width int) string {
	if width <= 0 {
		width = DefaultBarWidth
	}

	rows := []string{titleStyle.Render(title)}
	if len(points) == 0 {
		rows = append(rows, mutedStyle.Render("No habits yet."))
		return lipgloss.JoinVertical(lipgloss.Left, rows...)
	}

	labelWidth, peak := 0, 0
	for _, p := range points {
		labelWidth = max(labelWidth, lipgloss.Width(p.Label))
		peak = max(peak, p.Value)
	}

	for _, p := range points {
		label := labelStyle.Width(labelWidth).Render(p.Label)
		bar := barStyle.Render(strings.Repeat(BarRune, barLength(p.Value, peak, width)))
		rows = append(rows, fmt.Sprintf("%s  %s %d", label, bar, p.Value))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// barLength scales value into [0, width]. Any positive value gets at least one cell.
func barLength(value, peak, width int) int {
	if value <= 0 || peak <= 0 {
		return 0
	}
	n := value * width / peak
	if n == 0 {
		n = 1
	}
	return n
}
