package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/stride/internal/cli"
	"github.com/julianstephens/stride/internal/health"
	"github.com/julianstephens/stride/internal/loader"
	"github.com/julianstephens/stride/internal/models"
	"github.com/julianstephens/stride/internal/storage"
)

type SessionState int

const (
	StateDashboard SessionState = iota
	StateAddGoal
)

type GoalFormModel struct {
	Title    string
	Area     string
	Target   string
	Priority int
	Status   string
}

// goalsLoadedMsg carries a fresh snapshot of goals and their scores.
type goalsLoadedMsg struct {
	goals   []models.Goal
	results map[string]loader.Result
	err     error
}

type Model struct {
	store     storage.Provider
	loader    *loader.Loader
	policy    models.Policy
	now       func() time.Time
	state     SessionState
	keys      KeyMap
	help      help.Model
	table     table.Model
	bar       progress.Model
	form      *huh.Form
	goalForm  *GoalFormModel
	// filter indexes health.QuickFilters(); -1 shows every goal.
	filter    int
	goals     []models.Goal
	results   map[string]loader.Result
	visible   []models.Goal
	loading   bool
	err       error
	formError string
	quitting  bool
	width     int
	height    int
}

var columns = []table.Column{
	{Title: "Goal", Width: 32},
	{Title: "Progress", Width: 17},
	{Title: "Health", Width: 11},
	{Title: "Target", Width: 12},
	{Title: "Status", Width: 10},
}

func NewModel(ctx *cli.Context) (Model, error) {
	l, err := ctx.NewLoader()
	if err != nil {
		return Model{}, err
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	s := table.DefaultStyles()
	s.Selected = s.Selected.Foreground(titleStyle.GetForeground()).Bold(true)
	t.SetStyles(s)

	return Model{
		store:   ctx.Store,
		loader:  l,
		policy:  ctx.Policy,
		now:     ctx.Now,
		state:   StateDashboard,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		table:   t,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		filter:  -1,
		results: map[string]loader.Result{},
		loading: true,
	}, nil
}

func (m Model) Init() tea.Cmd {
	return m.loadGoals(false)
}

// loadGoals scores every live goal off the UI goroutine. A refresh drops the
// cache first so time-based health is recomputed.
func (m Model) loadGoals(purge bool) tea.Cmd {
	store, l := m.store, m.loader
	return func() tea.Msg {
		ctx := context.Background()
		goals, err := store.GetAllGoals(ctx, false)
		if err != nil {
			return goalsLoadedMsg{err: fmt.Errorf("failed to load goals: %w", err)}
		}
		cli.SortGoals(goals)

		if purge {
			l.Purge()
		}
		l.WarmGoals(ctx, goals)
		return goalsLoadedMsg{goals: goals, results: l.Results()}
	}
}

// activeFilter returns the selected quick filter, or "" when none is set.
func (m Model) activeFilter() health.QuickFilter {
	filters := health.QuickFilters()
	if m.filter < 0 || m.filter >= len(filters) {
		return ""
	}
	return filters[m.filter]
}

// applyFilter rebuilds the table rows from the loaded goals.
func (m *Model) applyFilter() {
	f := m.activeFilter()
	now := m.now()

	m.visible = nil
	rows := make([]table.Row, 0, len(m.goals))
	for _, g := range m.goals {
		res, ok := m.results[g.ID]
		if f != "" && (!ok || !f.Matches(g, res.Health, now, m.policy)) {
			continue
		}
		m.visible = append(m.visible, g)
		rows = append(rows, goalRow(g, res, ok))
	}

	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

func goalRow(g models.Goal, res loader.Result, ok bool) table.Row {
	if !ok {
		return table.Row{g.Title, "unavailable", "-", cli.FormatDate(g.TargetDate), string(g.Status)}
	}
	pct := res.Breakdown.Overall
	return table.Row{
		g.Title,
		fmt.Sprintf("%s %3d%%", cli.ProgressBar(pct, 10), pct),
		cli.FormatHealth(res.Health),
		cli.FormatDate(g.TargetDate),
		string(g.Status),
	}
}

// selected returns the goal under the table cursor.
func (m Model) selected() (models.Goal, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.visible) {
		return models.Goal{}, false
	}
	return m.visible[i], true
}

func (m *Model) newGoalForm() tea.Cmd {
	m.goalForm = &GoalFormModel{Status: string(models.GoalActive)}
	m.formError = ""
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&m.goalForm.Title).
				Validate(func(s string) error {
					if len(s) == 0 {
						return fmt.Errorf("title cannot be empty")
					}
					return nil
				}),
			huh.NewInput().
				Title("Area").
				Description("Optional, e.g. health or career").
				Value(&m.goalForm.Area),
			huh.NewInput().
				Title("Target date").
				Description("YYYY-MM-DD, leave empty for none").
				Value(&m.goalForm.Target).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					_, err := cli.ParseDate(s)
					return err
				}),
			huh.NewSelect[int]().
				Title("Priority").
				Options(huh.NewOptions(0, 1, 2, 3, 4, 5)...).
				Value(&m.goalForm.Priority),
			huh.NewSelect[string]().
				Title("Status").
				Options(
					huh.NewOption("Active", string(models.GoalActive)),
					huh.NewOption("Planning", string(models.GoalPlanning)),
				).
				Value(&m.goalForm.Status),
		),
	).WithShowHelp(true)
	return m.form.Init()
}
