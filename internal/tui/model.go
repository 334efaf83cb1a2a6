// Package tui is the interactive habit dashboard.
package tui

import (
	"context"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/streaks/internal/models"
	"github.com/julianstephens/streaks/internal/storage"
	"github.com/julianstephens/streaks/internal/streak"
	"github.com/julianstephens/streaks/internal/tui/components/habitlist"
	"github.com/julianstephens/streaks/internal/tui/components/week"
)

type SessionState int

const (
	StateHabits SessionState = iota
	StateWeek
	StateSweep
	StateConfirmSweep
)

var tabTitles = []string{"Habits", "This week", "Sweep"}

// SweepRunner runs one full sweep.
type SweepRunner interface {
	RunSweep(ctx context.Context) (streak.Summary, error)
}

// Deps are the services the dashboard drives. Owner limits the dashboard to
// one owner's habits; empty shows everyone's.
type Deps struct {
	Store     storage.Provider
	Evaluator *streak.Evaluator
	Sweeper   SweepRunner
	Location  *time.Location
	Owner     string
}

type habitsLoadedMsg struct {
	items  []habitlist.Item
	window streak.Window
	err    error
}

type proofsLoadedMsg struct {
	habit  models.Habit
	proofs []models.Proof
	err    error
}

type evaluatedMsg struct {
	result streak.Result
	err    error
}

type sweptMsg struct {
	summary streak.Summary
	err     error
}

type Model struct {
	ctx           context.Context
	deps          Deps
	state         SessionState
	previousState SessionState
	keys          KeyMap
	help          help.Model
	habitList     habitlist.Model
	weekModel     week.Model
	window        streak.Window
	lastSweep     *streak.Summary
	status        string
	err           error
	quitting      bool
	width         int
	height        int
}

func NewModel(ctx context.Context, deps Deps) Model {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	return Model{
		ctx:       ctx,
		deps:      deps,
		state:     StateHabits,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		habitList: habitlist.New(nil, 0, 0),
		weekModel: week.New(0, 0),
		window:    deps.Evaluator.CurrentWeek(),
	}
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Quit, m.keys.Help, m.keys.Refresh}
	switch m.state {
	case StateHabits:
		keys = append(keys, m.keys.Evaluate, m.keys.Sweep)
	case StateSweep:
		keys = append(keys, m.keys.Sweep)
	case StateConfirmSweep:
		keys = []key.Binding{m.keys.Confirm, m.keys.Cancel}
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Quit, m.keys.Help}
	navigation := []key.Binding{m.keys.Up, m.keys.Down}
	actions := []key.Binding{m.keys.Refresh, m.keys.Evaluate, m.keys.Sweep}
	return [][]key.Binding{global, navigation, actions}
}

func (m Model) Init() tea.Cmd {
	return m.loadHabits()
}

func (m Model) loadHabits() tea.Cmd {
	ctx, deps := m.ctx, m.deps
	return func() tea.Msg {
		var (
			habits []models.Habit
			err    error
		)
		if deps.Owner != "" {
			habits, err = deps.Store.ListHabits(ctx, deps.Owner)
		} else {
			habits, err = deps.Store.ScanHabits(ctx)
		}
		if err != nil {
			return habitsLoadedMsg{err: err}
		}
		sort.Slice(habits, func(i, j int) bool {
			return habits[i].Key().String() < habits[j].Key().String()
		})

		window := deps.Evaluator.CurrentWeek()
		counter := streak.NewProofCounter(deps.Store)
		items := make([]habitlist.Item, 0, len(habits))
		for _, h := range habits {
			posts, err := counter.Count(ctx, h.OwnerID, h.HabitID, window)
			if err != nil {
				return habitsLoadedMsg{err: err}
			}
			items = append(items, habitlist.Item{Habit: h, Posts: posts})
		}
		return habitsLoadedMsg{items: items, window: window}
	}
}

func (m Model) loadProofs(h models.Habit) tea.Cmd {
	ctx, store := m.ctx, m.deps.Store
	return func() tea.Msg {
		proofs, err := store.ListProofs(ctx, h.OwnerID, h.HabitID)
		return proofsLoadedMsg{habit: h, proofs: proofs, err: err}
	}
}

// evaluate never resets: the week is still running.
func (m Model) evaluate(h models.Habit) tea.Cmd {
	ctx, eval := m.ctx, m.deps.Evaluator
	return func() tea.Msg {
		res, err := eval.EvaluateHabit(ctx, h.OwnerID, h.HabitID, streak.TriggerIngest)
		return evaluatedMsg{result: res, err: err}
	}
}

func (m Model) sweep() tea.Cmd {
	ctx, sweeper := m.ctx, m.deps.Sweeper
	return func() tea.Msg {
		sum, err := sweeper.RunSweep(ctx)
		return sweptMsg{summary: sum, err: err}
	}
}
