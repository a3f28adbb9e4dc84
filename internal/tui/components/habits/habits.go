package habits

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/streaklit/internal/models"
)

type AddHabitMsg struct{}

type MarkHabitMsg struct {
	ID int64
}

type UnmarkHabitMsg struct {
	ID int64
}

type DeleteHabitMsg struct {
	ID   int64
	Name string
}

type ShowHabitMsg struct {
	ID int64
}

type Item struct {
	Summary models.HabitSummary
}

// A non-zero streak always includes today.
func (i Item) MarkedToday() bool { return i.Summary.Streak > 0 }

func (i Item) Title() string {
	if i.MarkedToday() {
		return "✓ " + i.Summary.Name
	}
	return "○ " + i.Summary.Name
}

func (i Item) Description() string {
	return fmt.Sprintf("streak %d, %d done", i.Summary.Streak, i.Summary.TotalDone)
}

func (i Item) FilterValue() string { return i.Summary.Name }

type KeyMap struct {
	Add    key.Binding
	Mark   key.Binding
	Unmark key.Binding
	Delete key.Binding
	Show   key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Mark: key.NewBinding(
			key.WithKeys("m", " "),
			key.WithHelp("m/space", "mark today"),
		),
		Unmark: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "unmark today"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Show: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "heatmap"),
		),
	}
}

func (k KeyMap) Bindings() []key.Binding {
	return []key.Binding{k.Add, k.Mark, k.Unmark, k.Delete, k.Show}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(summaries []models.HabitSummary, width, height int) Model {
	l := list.New(items(summaries), list.NewDefaultDelegate(), width, height)
	l.Title = "Habits"
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = keys.Bindings
	l.AdditionalFullHelpKeys = keys.Bindings

	return Model{list: l, keys: keys}
}

func items(summaries []models.HabitSummary) []list.Item {
	out := make([]list.Item, len(summaries))
	for i, s := range summaries {
		out[i] = Item{Summary: s}
	}
	return out
}

func (m *Model) SetHabits(summaries []models.HabitSummary) {
	m.list.SetItems(items(summaries))
}

// Selected returns the highlighted habit, if any.
func (m Model) Selected() (Item, bool) {
	i, ok := m.list.SelectedItem().(Item)
	return i, ok
}

// Filtering reports whether the list is capturing keystrokes for its filter.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	if msg, ok := msg.(tea.KeyMsg); ok && !m.Filtering() {
		if key.Matches(msg, m.keys.Add) {
			return m, func() tea.Msg { return AddHabitMsg{} }
		}
		if i, ok := m.Selected(); ok {
			id := i.Summary.ID
			switch {
			case key.Matches(msg, m.keys.Mark):
				if !i.MarkedToday() {
					return m, func() tea.Msg { return MarkHabitMsg{ID: id} }
				}
				return m, nil
			case key.Matches(msg, m.keys.Unmark):
				if i.MarkedToday() {
					return m, func() tea.Msg { return UnmarkHabitMsg{ID: id} }
				}
				return m, nil
			case key.Matches(msg, m.keys.Delete):
				return m, func() tea.Msg { return DeleteHabitMsg{ID: id, Name: i.Summary.Name} }
			case key.Matches(msg, m.keys.Show):
				return m, func() tea.Msg { return ShowHabitMsg{ID: id} }
			}
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 && m.list.FilterState() != list.Filtering {
		return "\n  No habits yet.\n  Press 'a' to add one."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
