package habitlist

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/streaks/internal/models"
)

// EvaluateMsg asks the parent to evaluate the selected habit.
type EvaluateMsg struct {
	Habit models.Habit
}

type Item struct {
	Habit models.Habit
	// Posts is the number of proofs in the current week.
	Posts int
}

func (i Item) Title() string {
	if i.Habit.IsInGracePeriod {
		return i.Habit.Name + " [grace]"
	}
	return i.Habit.Name
}

func (i Item) Description() string {
	return fmt.Sprintf("%s | streak %d | %d/%d this week", i.Habit.Key(), i.Habit.Streak, i.Posts, i.Habit.Cadence)
}

func (i Item) FilterValue() string { return i.Habit.Name }

type KeyMap struct {
	Evaluate key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Evaluate: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "evaluate"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(items []Item, width, height int) Model {
	l := list.New(toListItems(items), list.NewDefaultDelegate(), width, height)
	l.Title = "Habits"
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	// the parent owns quitting
	l.DisableQuitKeybindings()

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Evaluate}
	}
	return Model{list: l, keys: keys}
}

func toListItems(items []Item) []list.Item {
	out := make([]list.Item, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}

func (m *Model) SetHabits(items []Item) {
	m.list.SetItems(toListItems(items))
}

// Selected returns the highlighted item.
func (m Model) Selected() (Item, bool) {
	it, ok := m.list.SelectedItem().(Item)
	return it, ok
}

func (m Model) Len() int {
	return len(m.list.Items())
}

func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && !m.Filtering() {
		if key.Matches(msg, m.keys.Evaluate) {
			if it, ok := m.Selected(); ok {
				return m, func() tea.Msg { return EvaluateMsg{Habit: it.Habit} }
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 && !m.Filtering() {
		return "\n  No habits yet.\n  Add one with 'streaks habit add'."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
