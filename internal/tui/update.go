package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/streaks/internal/tui/components/habitlist"
)

// tabs, status line, and help
const chromeHeight = 6

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		h, v := docStyle.GetFrameSize()
		m.habitList.SetSize(msg.Width-h, msg.Height-v-chromeHeight)
		m.weekModel.SetSize(msg.Width-h, msg.Height-v-chromeHeight)
		return m, nil

	case habitsLoadedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.window = msg.window
			m.habitList.SetHabits(msg.items)
		}
		return m, nil

	case proofsLoadedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.weekModel.SetProofs(msg.habit, m.window, msg.proofs, m.deps.Location)
		}
		return m, nil

	case evaluatedMsg:
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		m.status = fmt.Sprintf("%s: %s", msg.result.Habit.Key(), msg.result.Outcome)
		return m, m.loadHabits()

	case sweptMsg:
		m.err = msg.err
		// a cancelled sweep still reports what it did
		if msg.err == nil || msg.summary.HabitsProcessed > 0 {
			sum := msg.summary
			m.lastSweep = &sum
			m.status = fmt.Sprintf("Sweep processed %d habit(s), %d failure(s)", sum.HabitsProcessed, sum.Failures)
		}
		m.state = StateSweep
		return m, m.loadHabits()

	case habitlist.EvaluateMsg:
		m.status = "Evaluating " + msg.Habit.Key().String() + "..."
		return m, m.evaluate(msg.Habit)

	case tea.KeyMsg:
		if m.state == StateConfirmSweep {
			switch {
			case key.Matches(msg, m.keys.Confirm):
				m.state = m.previousState
				m.status = "Sweeping..."
				return m, m.sweep()
			case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Quit):
				m.state = m.previousState
			}
			return m, nil
		}

		if !m.habitList.Filtering() {
			switch {
			case key.Matches(msg, m.keys.Quit):
				m.quitting = true
				return m, tea.Quit
			case key.Matches(msg, m.keys.Tab):
				m.state = (m.state + 1) % SessionState(len(tabTitles))
				return m, m.enterTab()
			case key.Matches(msg, m.keys.ShiftTab):
				m.state = (m.state - 1 + SessionState(len(tabTitles))) % SessionState(len(tabTitles))
				return m, m.enterTab()
			case key.Matches(msg, m.keys.Help):
				m.help.ShowAll = !m.help.ShowAll
				return m, nil
			case key.Matches(msg, m.keys.Refresh):
				return m, tea.Batch(m.loadHabits(), m.enterTab())
			case key.Matches(msg, m.keys.Sweep):
				if m.deps.Sweeper == nil {
					return m, nil
				}
				m.previousState = m.state
				m.state = StateConfirmSweep
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	switch m.state {
	case StateHabits:
		m.habitList, cmd = m.habitList.Update(msg)
	case StateWeek:
		m.weekModel, cmd = m.weekModel.Update(msg)
	}
	return m, cmd
}

// enterTab loads whatever the newly shown tab needs.
func (m Model) enterTab() tea.Cmd {
	if m.state != StateWeek {
		return nil
	}
	it, ok := m.habitList.Selected()
	if !ok {
		return nil
	}
	return m.loadProofs(it.Habit)
}
