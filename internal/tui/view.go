package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/streaklit/internal/render"
	"github.com/julianstephens/streaklit/internal/tracker"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case StateHabits:
		content = m.habitsModel.View()
	case StateHeatmap:
		content = m.viewHeatmap()
	case StateChart:
		content = m.viewChart()
	case StateAddHabit:
		content = docStyle.Render(m.form.View())
	case StateConfirmDelete:
		content = m.viewConfirmDelete()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		content,
		m.viewStatus(),
		m.help.View(m),
	)
}

func (m Model) viewTabs() string {
	var tabs []string
	for i, title := range tabTitles {
		if m.state == SessionState(i) {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewHeatmap() string {
	if m.timeline == nil {
		return docStyle.Render("Select a habit and press enter to see its heatmap.")
	}
	return docStyle.Render(render.Heatmap(*m.timeline))
}

func (m Model) viewChart() string {
	width := render.DefaultBarWidth
	// Leave room for the label column and value.
	if m.width > 0 && m.width-30 < width {
		width = max(m.width-30, 10)
	}
	return docStyle.Render(render.BarChart(render.ChartTitle, tracker.BarSeries(m.summaries), width))
}

func (m Model) viewStatus() string {
	if m.err != nil {
		return dangerStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}
	return statusStyle.Render(m.status)
}

func (m Model) viewConfirmDelete() string {
	return lipgloss.Place(m.width, m.height-4,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			dangerStyle.Render(fmt.Sprintf("Delete habit %q and all its marks?", m.habitToDelete.Name)),
			"",
			"[y] Yes",
			"[n] No",
		),
	)
}
