package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/streaklit/internal/logger"
	"github.com/julianstephens/streaklit/internal/models"
	"github.com/julianstephens/streaklit/internal/tui/components/habits"
)

type summariesMsg struct {
	summaries []models.HabitSummary
}

type timelineMsg struct {
	timeline models.HabitTimeline
}

// mutatedMsg reports a completed write; the habit list is reloaded after it.
type mutatedMsg struct {
	status string
}

type errMsg struct {
	err error
}

func (m Model) loadHabits() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		summaries, err := svc.GetDashboardSummary(context.Background())
		if err != nil {
			return errMsg{err}
		}
		return summariesMsg{summaries}
	}
}

func (m Model) loadTimeline(id int64) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		tl, err := svc.GetHabitTimeline(context.Background(), id)
		if err != nil {
			return errMsg{err}
		}
		return timelineMsg{tl}
	}
}

func (m Model) mutate(status string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(context.Background()); err != nil {
			return errMsg{err}
		}
		return mutatedMsg{status}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		// Tabs, status and help take four lines.
		m.habitsModel.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case summariesMsg:
		m.summaries = msg.summaries
		m.habitsModel.SetHabits(msg.summaries)
		if m.timeline != nil {
			return m, m.loadTimeline(m.timeline.Habit.ID)
		}
		return m, nil

	case timelineMsg:
		m.timeline = &msg.timeline
		return m, nil

	case mutatedMsg:
		m.status = msg.status
		m.err = nil
		return m, m.loadHabits()

	case errMsg:
		logger.Debug("tui command failed", "error", msg.err)
		m.err = msg.err
		return m, nil

	case habits.AddHabitMsg:
		m.habitForm = &HabitFormModel{}
		m.form = newHabitForm(m.habitForm)
		m.previousState = m.state
		m.state = StateAddHabit
		return m, m.form.Init()

	case habits.MarkHabitMsg:
		svc, id := m.svc, msg.ID
		return m, m.mutate("Marked done for today", func(ctx context.Context) error {
			return svc.MarkDone(ctx, id, time.Time{})
		})

	case habits.UnmarkHabitMsg:
		svc, id := m.svc, msg.ID
		return m, m.mutate("Unmarked for today", func(ctx context.Context) error {
			return svc.Unmark(ctx, id, time.Time{})
		})

	case habits.DeleteHabitMsg:
		m.habitToDelete = msg
		m.previousState = m.state
		m.state = StateConfirmDelete
		return m, nil

	case habits.ShowHabitMsg:
		m.state = StateHeatmap
		return m, m.loadTimeline(msg.ID)
	}

	switch m.state {
	case StateAddHabit:
		return m.updateAddHabit(msg)
	case StateConfirmDelete:
		return m.updateConfirmDelete(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok && !(m.state == StateHabits && m.habitsModel.Filtering()) {
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Tab):
			return m.switchTab((m.state + 1) % tabCount)
		case key.Matches(msg, m.keys.ShiftTab):
			return m.switchTab((m.state - 1 + tabCount) % tabCount)
		case m.state != StateHabits && key.Matches(msg, m.keys.Back):
			m.state = StateHabits
			return m, nil
		case m.state != StateHabits && key.Matches(msg, m.keys.Refresh):
			return m, m.loadHabits()
		}
	}

	if m.state == StateHabits {
		var cmd tea.Cmd
		m.habitsModel, cmd = m.habitsModel.Update(msg)
		return m, cmd
	}
	return m, nil
}

// switchTab moves to state; entering the heatmap follows the highlighted habit.
func (m Model) switchTab(state SessionState) (tea.Model, tea.Cmd) {
	m.state = state
	if state == StateHeatmap {
		if i, ok := m.habitsModel.Selected(); ok {
			return m, m.loadTimeline(i.Summary.ID)
		}
	}
	return m, nil
}

func newHabitForm(fm *HabitFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&fm.Name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("name is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Description").
				Description("Optional").
				Value(&fm.Description),
		),
	).WithTheme(huh.ThemeDracula())
}

func (m Model) updateAddHabit(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.state = m.previousState
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.state = m.previousState
		svc, fm := m.svc, *m.habitForm
		return m, m.mutate(fmt.Sprintf("Added %q", fm.Name), func(ctx context.Context) error {
			_, err := svc.AddHabit(ctx, fm.Name, fm.Description)
			return err
		})
	case huh.StateAborted:
		m.state = m.previousState
	}
	return m, cmd
}

func (m Model) updateConfirmDelete(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.keys.Confirm):
		m.state = m.previousState
		svc, target := m.svc, m.habitToDelete
		if m.timeline != nil && m.timeline.Habit.ID == target.ID {
			m.timeline = nil
		}
		return m, m.mutate(fmt.Sprintf("Deleted %q", target.Name), func(ctx context.Context) error {
			_, err := svc.DeleteHabit(ctx, target.ID)
			return err
		})
	case key.Matches(keyMsg, m.keys.Cancel):
		m.state = m.previousState
	}
	return m, nil
}
