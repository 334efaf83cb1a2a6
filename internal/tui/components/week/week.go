package week

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/streaks/internal/models"
	"github.com/julianstephens/streaks/internal/streak"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(14)

	captionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	metStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// Model shows one habit's proofs for the current week.
type Model struct {
	viewport viewport.Model
	habit    *models.Habit
	window   streak.Window
	proofs   []models.Proof
	loc      *time.Location
}

func New(width, height int) Model {
	return Model{viewport: viewport.New(width, height), loc: time.UTC}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.habit == nil {
		return "Select a habit on the Habits tab."
	}
	return m.viewport.View()
}

func (m *Model) SetSize(width, height int) {
	m.viewport.Width = width
	m.viewport.Height = height
	m.Render()
}

// SetProofs replaces the content. Proofs outside w are dropped.
func (m *Model) SetProofs(h models.Habit, w streak.Window, proofs []models.Proof, loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	m.habit = &h
	m.window = w
	m.loc = loc
	var kept []models.Proof
	for _, p := range proofs {
		if w.Contains(p.OccurredAt) {
			kept = append(kept, p)
		}
	}
	m.proofs = kept
	m.Render()
}

// Count is the number of proofs shown.
func (m Model) Count() int {
	return len(m.proofs)
}

func (m *Model) Render() {
	if m.habit == nil {
		m.viewport.SetContent("")
		return
	}

	var b strings.Builder
	progress := fmt.Sprintf("%d/%d", len(m.proofs), m.habit.Cadence)
	if len(m.proofs) >= m.habit.Cadence {
		progress = metStyle.Render(progress + " met")
	}
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s, week of %s: ", m.habit.Name, m.window.Key())))
	b.WriteString(progress)
	b.WriteString("\n\n")

	if len(m.proofs) == 0 {
		b.WriteString("No proofs this week.\n")
	}
	for _, p := range m.proofs {
		caption := p.Caption
		if caption == "" {
			caption = "(no caption)"
		}
		fmt.Fprintf(&b, "%s %s %s\n",
			timeStyle.Render(p.OccurredAt.In(m.loc).Format("Mon 15:04")),
			captionStyle.Render(caption),
			idStyle.Render(p.ProofID),
		)
	}
	m.viewport.SetContent(b.String())
}
