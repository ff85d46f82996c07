package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/google/uuid"

	"github.com/julianstephens/stride/internal/cli"
	"github.com/julianstephens/stride/internal/health"
	"github.com/julianstephens/stride/internal/models"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		// Leave room for the header, detail pane and help.
		m.table.SetHeight(max(msg.Height-16, 3))
		return m, nil

	case goalsLoadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.goals = msg.goals
			m.results = msg.results
		}
		m.applyFilter()
		return m, nil
	}

	if m.state == StateAddGoal {
		return m.updateAddGoal(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Filter):
			m.filter++
			if m.filter >= len(health.QuickFilters()) {
				m.filter = -1
			}
			m.applyFilter()
			return m, nil
		case key.Matches(msg, m.keys.Clear):
			m.filter = -1
			m.applyFilter()
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			m.loading = true
			return m, m.loadGoals(true)
		case key.Matches(msg, m.keys.Add):
			m.state = StateAddGoal
			return m, m.newGoalForm()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) updateAddGoal(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.state = StateDashboard
		return m, nil
	}

	var cmds []tea.Cmd
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	cmds = append(cmds, cmd)

	switch m.form.State {
	case huh.StateCompleted:
		goal, err := m.goalFromForm()
		if err == nil {
			err = m.store.AddGoal(goal)
		}
		if err != nil {
			// Stay in form state on error to allow retry
			m.formError = fmt.Sprintf("Failed to add goal: %v", err)
			cmds = append(cmds, m.newGoalForm())
			return m, tea.Batch(cmds...)
		}
		m.state = StateDashboard
		m.loading = true
		cmds = append(cmds, m.loadGoals(false))
	case huh.StateAborted:
		m.state = StateDashboard
	}

	return m, tea.Batch(cmds...)
}

func (m Model) goalFromForm() (models.Goal, error) {
	f := m.goalForm
	now := m.now()
	goal := models.Goal{
		ID:        uuid.New().String(),
		Title:     strings.TrimSpace(f.Title),
		Area:      strings.TrimSpace(f.Area),
		Status:    models.GoalStatus(f.Status),
		Priority:  f.Priority,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if goal.Title == "" {
		return models.Goal{}, fmt.Errorf("title cannot be empty")
	}
	if f.Target != "" {
		target, err := cli.ParseDate(f.Target)
		if err != nil {
			return models.Goal{}, err
		}
		goal.TargetDate = &target
	}
	return goal, nil
}
