package goals

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/julianstephens/stride/internal/cli"
	"github.com/julianstephens/stride/internal/health"
	"github.com/julianstephens/stride/internal/models"
	"github.com/julianstephens/stride/internal/storage"
)

type GoalCmd struct {
	Add     GoalAddCmd     `cmd:"" help:"Add a new goal."`
	List    GoalListCmd    `cmd:"" help:"List goals with progress and health." default:"1"`
	Show    GoalShowCmd    `cmd:"" help:"Show a goal's progress breakdown."`
	Status  GoalStatusCmd  `cmd:"" help:"Change a goal's status."`
	Delete  GoalDeleteCmd  `cmd:"" help:"Delete a goal."`
	Restore GoalRestoreCmd `cmd:"" help:"Restore a deleted goal."`
}

type GoalAddCmd struct {
	Title    string   `arg:"" help:"Goal title."`
	Area     string   `help:"Life area, e.g. health or career."`
	Target   string   `help:"Target date (YYYY-MM-DD)."`
	Priority int      `help:"Priority, higher sorts first." default:"0"`
	Status   string   `help:"Initial status." enum:"planning,active" default:"active"`
	Criteria []string `help:"Success criterion (repeatable)." short:"c"`
	Weights  string   `help:"Progress weights as criteria,tasks,metrics,habits (e.g. 40,30,20,10)."`
}

func (c *GoalAddCmd) Run(ctx *cli.Context) error {
	title := strings.TrimSpace(c.Title)
	if title == "" {
		return errors.New("goal title cannot be empty")
	}

	now := ctx.Now()
	goal := models.Goal{
		ID:        uuid.New().String(),
		Title:     title,
		Area:      strings.TrimSpace(c.Area),
		Status:    models.GoalStatus(c.Status),
		Priority:  c.Priority,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !goal.Status.IsValid() {
		return fmt.Errorf("invalid status %q", c.Status)
	}

	if c.Target != "" {
		target, err := cli.ParseDate(c.Target)
		if err != nil {
			return err
		}
		goal.TargetDate = &target
	}

	for _, text := range c.Criteria {
		if text = strings.TrimSpace(text); text != "" {
			goal.SuccessCriteria = append(goal.SuccessCriteria, models.SuccessCriterion{Text: text})
		}
	}

	if c.Weights != "" {
		pc, err := ParseWeights(c.Weights)
		if err != nil {
			return err
		}
		goal.ProgressConfig = &pc
	}

	if err := ctx.Store.AddGoal(goal); err != nil {
		return fmt.Errorf("failed to add goal: %w", err)
	}

	ctx.Printf("Added goal: %s (%s)\n", goal.Title, cli.ShortID(goal.ID))
	return nil
}

// ParseWeights parses "criteria,tasks,metrics,habits" into a progress config.
func ParseWeights(s string) (models.ProgressConfig, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return models.ProgressConfig{}, fmt.Errorf("weights must have 4 comma-separated values, got %d", len(parts))
	}

	var w [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return models.ProgressConfig{}, fmt.Errorf("invalid weight %q: %w", p, err)
		}
		if v < 0 {
			return models.ProgressConfig{}, fmt.Errorf("weight %q must not be negative", p)
		}
		w[i] = v
	}

	return models.ProgressConfig{
		CriteriaWeight: w[0],
		TasksWeight:    w[1],
		MetricsWeight:  w[2],
		HabitsWeight:   w[3],
	}, nil
}

type GoalListCmd struct {
	Filter  string `help:"Quick filter: at-risk, dormant, needs-attention, due-this-week, recently-completed." short:"f"`
	ShowIDs bool   `help:"Show goal IDs." name:"show-ids"`
}

func (c *GoalListCmd) Run(ctx *cli.Context) error {
	var filter health.QuickFilter
	if c.Filter != "" {
		f, err := health.ParseQuickFilter(c.Filter)
		if err != nil {
			return err
		}
		filter = f
	}

	bg := context.Background()
	goals, err := ctx.Store.GetAllGoals(bg, false)
	if err != nil {
		return fmt.Errorf("failed to get goals: %w", err)
	}
	if len(goals) == 0 {
		ctx.Println("No goals found")
		return nil
	}
	cli.SortGoals(goals)

	results, err := ctx.Score(bg, goals)
	if err != nil {
		return err
	}

	now := ctx.Now()
	shown := 0
	for _, g := range goals {
		res, ok := results[g.ID]
		if !ok {
			ctx.Printf("  %-32s  (failed to load)\n", g.Title)
			continue
		}
		if filter != "" && !filter.Matches(g, res.Health, now, ctx.Policy) {
			continue
		}
		if shown == 0 {
			header := "Goals:"
			if filter != "" {
				header = fmt.Sprintf("Goals (%s):", filter)
			}
			ctx.Println(header)
		}
		shown++

		idStr := ""
		if c.ShowIDs {
			idStr = fmt.Sprintf(" (ID: %s)", g.ID)
		}
		ctx.Printf("  %s %3d%%  %-32s %-11s %s%s\n",
			cli.ProgressBar(res.Breakdown.Overall, 10), res.Breakdown.Overall, g.Title,
			cli.FormatHealth(res.Health), cli.FormatDaysRemaining(res.Health.DaysRemaining), idStr)
	}

	if shown == 0 {
		ctx.Printf("No goals match filter %s\n", filter)
	}
	return nil
}

type GoalShowCmd struct {
	Goal string `arg:"" help:"Goal ID, ID prefix or title."`
}

func (c *GoalShowCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	goal, err := ctx.ResolveGoal(bg, c.Goal)
	if err != nil {
		return err
	}

	l, err := ctx.NewLoader()
	if err != nil {
		return err
	}
	l.Load(bg, goal.ID, &goal)
	res, ok := l.Get(goal.ID)
	if !ok {
		return fmt.Errorf("failed to compute progress for goal %s", goal.Title)
	}

	b, h := res.Breakdown, res.Health
	ctx.Printf("%s (%s)\n", goal.Title, goal.ID)
	if goal.Area != "" {
		ctx.Printf("  Area:       %s\n", goal.Area)
	}
	ctx.Printf("  Status:     %s (priority %d)\n", goal.Status, goal.Priority)
	ctx.Printf("  Target:     %s (%s)\n", cli.FormatDate(goal.TargetDate), cli.FormatDaysRemaining(h.DaysRemaining))
	ctx.Printf("  Overall:    %s %d%%\n", cli.ProgressBar(b.Overall, 20), b.Overall)
	ctx.Printf("  Health:     %s\n", cli.FormatHealth(h))
	if h.ExpectedPercentage != nil {
		ctx.Printf("  Expected:   %d%%\n", *h.ExpectedPercentage)
	}
	ctx.Printf("  Momentum:   %s (last activity %d days ago)\n", h.Momentum, h.DaysSinceActivity)

	w := goal.Weights()
	ctx.Println()
	ctx.Println("Breakdown:")
	printSource(ctx, "Criteria", b.Criteria.Present(), b.Criteria.Percentage, w.CriteriaWeight,
		fmt.Sprintf("%d/%d complete", b.Criteria.Completed, b.Criteria.Total))
	printSource(ctx, "Tasks", b.Tasks.Present(), b.Tasks.Percentage, w.TasksWeight,
		fmt.Sprintf("%d/%d done", b.Tasks.Completed, b.Tasks.Total))
	printSource(ctx, "Metrics", b.Metrics.Present(), b.Metrics.Percentage, w.MetricsWeight,
		fmt.Sprintf("%d scored", len(b.Metrics.Scores)))
	printSource(ctx, "Habits", b.Habits.Present(), b.Habits.Consistency, w.HabitsWeight,
		fmt.Sprintf("%d tracked", len(b.Habits.Scores)))

	for i, sc := range goal.SuccessCriteria {
		mark := " "
		if sc.IsCompleted {
			mark = "x"
		}
		if i == 0 {
			ctx.Println()
			ctx.Println("Success criteria:")
		}
		ctx.Printf("  %d. [%s] %s\n", i+1, mark, sc.Text)
	}
	for i, ms := range b.Metrics.Scores {
		if i == 0 {
			ctx.Println()
			ctx.Println("Metrics:")
		}
		ctx.Printf("  %-20s %3.0f%%  current %g, target %g (%s)\n", ms.Name, ms.Percentage, ms.CurrentValue, ms.TargetValue, ms.Direction)
	}
	for i, hs := range b.Habits.Scores {
		if i == 0 {
			ctx.Println()
			ctx.Println("Habits:")
		}
		ctx.Printf("  %-20s %3.0f%%  %d/%d in window\n", hs.Name, hs.Consistency, hs.Actual, hs.Expected)
	}

	if len(res.Degraded) > 0 {
		ctx.Println()
		ctx.Printf("⚠ Some sources could not be read and were skipped: %s\n", strings.Join(res.Degraded, ", "))
	}
	return nil
}

func printSource(ctx *cli.Context, name string, present bool, pct int, weight float64, detail string) {
	if !present {
		ctx.Printf("  %-9s    -   (weight %g, no data)\n", name, weight)
		return
	}
	ctx.Printf("  %-9s %3d%%  (weight %g, %s)\n", name, pct, weight, detail)
}

type GoalStatusCmd struct {
	Goal   string `arg:"" help:"Goal ID, ID prefix or title."`
	Status string `arg:"" help:"New status." enum:"planning,active,on_track,at_risk,achieved,abandoned"`
}

func (c *GoalStatusCmd) Run(ctx *cli.Context) error {
	goal, err := ctx.ResolveGoal(context.Background(), c.Goal)
	if err != nil {
		return err
	}

	status := models.GoalStatus(c.Status)
	if !status.IsValid() {
		return fmt.Errorf("invalid status %q", c.Status)
	}

	now := ctx.Now()
	goal.Status = status
	switch {
	case status == models.GoalAchieved && goal.CompletedDate == nil:
		goal.CompletedDate = &now
	case status != models.GoalAchieved:
		goal.CompletedDate = nil
	}
	goal.Touch(now)

	if err := ctx.Store.UpdateGoal(goal); err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}

	ctx.Printf("Goal %s is now %s\n", goal.Title, goal.Status)
	return nil
}

type GoalDeleteCmd struct {
	Goal string `arg:"" help:"Goal ID, ID prefix or title."`
}

func (c *GoalDeleteCmd) Run(ctx *cli.Context) error {
	goal, err := ctx.ResolveGoal(context.Background(), c.Goal)
	if err != nil {
		return err
	}
	if err := ctx.Store.DeleteGoal(goal.ID); err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	ctx.Printf("Deleted goal: %s (%s)\n", goal.Title, cli.ShortID(goal.ID))
	ctx.Printf("  Restore with: stride goal restore %s\n", goal.ID)
	return nil
}

type GoalRestoreCmd struct {
	Goal string `arg:"" help:"ID or ID prefix of the deleted goal."`
}

func (c *GoalRestoreCmd) Run(ctx *cli.Context) error {
	goals, err := ctx.Store.GetAllGoals(context.Background(), true)
	if err != nil {
		return fmt.Errorf("failed to get goals: %w", err)
	}

	var matches []models.Goal
	for _, g := range goals {
		if g.DeletedAt != nil && strings.HasPrefix(g.ID, c.Goal) {
			matches = append(matches, g)
		}
	}
	switch len(matches) {
	case 0:
		return fmt.Errorf("deleted goal %q: %w", c.Goal, storage.ErrNotFound)
	case 1:
	default:
		return fmt.Errorf("deleted goal %q matches %d goals: %w", c.Goal, len(matches), cli.ErrAmbiguous)
	}

	if err := ctx.Store.RestoreGoal(matches[0].ID); err != nil {
		return fmt.Errorf("failed to restore goal: %w", err)
	}
	ctx.Printf("Restored goal: %s\n", matches[0].Title)
	return nil
}
