package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/streaks/internal/models"
	"github.com/julianstephens/streaks/internal/streak"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Width(18)

	OKStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	DangerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Italic(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

func row(label string, value interface{}) string {
	return LabelStyle.Render(label) + fmt.Sprint(value)
}

// RenderSummary formats a sweep summary as a bordered block.
func RenderSummary(sum streak.Summary) string {
	lines := []string{
		TitleStyle.Render("Sweep complete"),
		row("Started", sum.StartedAt.Format("2006-01-02 15:04:05 MST")),
		row("Duration", sum.Duration.Round(time.Millisecond)),
		row("Habits processed", sum.HabitsProcessed),
	}
	failures := fmt.Sprint(sum.Failures)
	if sum.Failures > 0 {
		failures = DangerStyle.Render(failures)
	}
	lines = append(lines, row("Failures", failures), row("Skipped", sum.Skipped))

	for _, o := range streak.Outcomes {
		if n := sum.Outcomes[o]; n > 0 {
			lines = append(lines, row("  "+string(o), n))
		}
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

// RenderHabit formats one habit's streak state with weeks shown in loc.
func RenderHabit(h models.Habit, loc *time.Location) string {
	grace := "no"
	if h.IsInGracePeriod {
		grace = WarningStyle.Render("yes")
	}
	lastUpdated := "never"
	if h.LastWeekUpdated != nil {
		lastUpdated = h.LastWeekUpdated.Format("2006-01-02 15:04:05 MST")
	}
	credited := streak.CreditedWeekKey(h.CreditedWeek, loc)
	if credited == "" {
		credited = "none"
	}

	lines := []string{
		TitleStyle.Render(h.Name) + " " + LabelStyle.UnsetWidth().Render("("+h.Key().String()+")"),
		row("Cadence", fmt.Sprintf("%d/week", h.Cadence)),
		row("Streak", h.Streak),
		row("Grace period", grace),
		row("Last week posts", h.LastWeekPosts),
		row("Last updated", lastUpdated),
		row("Credited week", credited),
		row("Created", h.CreatedAt.Format("2006-01-02 15:04:05 MST")),
	}
	if h.Color != "" {
		lines = append(lines, row("Color", lipgloss.NewStyle().Foreground(lipgloss.Color(h.Color)).Render(h.Color)))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

// RenderOutcome colours an evaluation outcome.
func RenderOutcome(o streak.Outcome) string {
	switch o {
	case streak.OutcomeStreakIncremented, streak.OutcomeGraceContinues:
		return OKStyle.Render(string(o))
	case streak.OutcomeStreakReset:
		return DangerStyle.Render(string(o))
	case streak.OutcomeGraceEnded, streak.OutcomeSkipped:
		return WarningStyle.Render(string(o))
	default:
		return string(o)
	}
}
