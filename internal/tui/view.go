package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/streaks/internal/streak"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case StateHabits:
		content = docStyle.Render(m.habitList.View())
	case StateWeek:
		content = docStyle.Render(m.weekModel.View())
	case StateSweep:
		content = docStyle.Render(m.viewSweep())
	case StateConfirmSweep:
		content = m.viewConfirmSweep()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		m.viewStatus(),
		content,
		m.help.View(m),
	)
}

func (m Model) viewTabs() string {
	active := m.state
	if active == StateConfirmSweep {
		active = m.previousState
	}
	var tabs []string
	for i, title := range tabTitles {
		if active == SessionState(i) {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewStatus() string {
	if m.err != nil {
		return errorStyle.Render("Error: " + m.err.Error())
	}
	line := "Week of " + m.window.Key()
	if m.status != "" {
		line += " | " + m.status
	}
	return statusStyle.Render(line)
}

func (m Model) viewSweep() string {
	if m.lastSweep == nil {
		return "No sweep has run in this session. Press 's' to run one."
	}
	sum := m.lastSweep

	var b strings.Builder
	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label) + value + "\n")
	}
	row("Started", sum.StartedAt.In(m.deps.Location).Format("2006-01-02 15:04:05 MST"))
	row("Duration", sum.Duration.String())
	row("Habits processed", fmt.Sprint(sum.HabitsProcessed))
	row("Failures", fmt.Sprint(sum.Failures))
	row("Skipped", fmt.Sprint(sum.Skipped))
	for _, o := range streak.Outcomes {
		if n := sum.Outcomes[o]; n > 0 {
			row(string(o), fmt.Sprint(n))
		}
	}
	return b.String()
}

func (m Model) viewConfirmSweep() string {
	return lipgloss.Place(m.width, m.height-4,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			dangerStyle.Render("Run a sweep now?"),
			"Habits short of cadence this week will have their streak reset.",
			"",
			"[y] Yes",
			"[n] No",
		),
	)
}
