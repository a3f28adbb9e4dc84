// Package tui is the interactive terminal dashboard: a habit list with
// today's marks, a per-habit heatmap and the progress bar chart.
package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/streaklit/internal/models"
	"github.com/julianstephens/streaklit/internal/tracker"
	"github.com/julianstephens/streaklit/internal/tui/components/habits"
)

type SessionState int

const (
	StateHabits SessionState = iota
	StateHeatmap
	StateChart
	StateAddHabit
	StateConfirmDelete
)

// tabCount is the number of states reachable with tab.
const tabCount = 3

var tabTitles = [tabCount]string{"Habits", "Heatmap", "Chart"}

type HabitFormModel struct {
	Name        string
	Description string
}

type Model struct {
	svc           *tracker.Service
	state         SessionState
	previousState SessionState
	keys          KeyMap
	help          help.Model
	habitsModel   habits.Model
	summaries     []models.HabitSummary
	timeline      *models.HabitTimeline
	form          *huh.Form
	habitForm     *HabitFormModel
	habitToDelete habits.DeleteHabitMsg
	status        string
	err           error
	quitting      bool
	width         int
	height        int
}

func NewModel(svc *tracker.Service) Model {
	return Model{
		svc:         svc,
		state:       StateHabits,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		habitsModel: habits.New(nil, 0, 0),
	}
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Quit, m.keys.Help}
	switch m.state {
	case StateHabits:
		keys = append(keys, habits.DefaultKeyMap().Bindings()...)
	case StateHeatmap:
		keys = append(keys, m.keys.Back)
	case StateConfirmDelete:
		keys = []key.Binding{m.keys.Confirm, m.keys.Cancel}
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Back, m.keys.Refresh, m.keys.Quit, m.keys.Help}

	var actions []key.Binding
	if m.state == StateHabits {
		actions = habits.DefaultKeyMap().Bindings()
	}
	return [][]key.Binding{global, actions}
}

func (m Model) Init() tea.Cmd {
	return m.loadHabits()
}
