package goals

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/stride/internal/cli"
	"github.com/julianstephens/stride/internal/models"
)

type CriterionCmd struct {
	Add    CriterionAddCmd    `cmd:"" help:"Add a success criterion to a goal."`
	Toggle CriterionToggleCmd `cmd:"" help:"Mark a success criterion complete or incomplete."`
}

type CriterionAddCmd struct {
	Goal string `arg:"" help:"Goal ID, ID prefix or title."`
	Text string `arg:"" help:"Criterion text."`
}

func (c *CriterionAddCmd) Run(ctx *cli.Context) error {
	text := strings.TrimSpace(c.Text)
	if text == "" {
		return errors.New("criterion text cannot be empty")
	}

	goal, err := ctx.ResolveGoal(context.Background(), c.Goal)
	if err != nil {
		return err
	}

	goal.SuccessCriteria = append(goal.SuccessCriteria, models.SuccessCriterion{Text: text})
	goal.UpdatedAt = ctx.Now()
	if err := ctx.Store.UpdateGoal(goal); err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}

	ctx.Printf("Added criterion %d to %s: %s\n", len(goal.SuccessCriteria), goal.Title, text)
	return nil
}

type CriterionToggleCmd struct {
	Goal  string `arg:"" help:"Goal ID, ID prefix or title."`
	Index int    `arg:"" help:"Criterion number as shown by 'stride goal show'."`
}

func (c *CriterionToggleCmd) Run(ctx *cli.Context) error {
	goal, err := ctx.ResolveGoal(context.Background(), c.Goal)
	if err != nil {
		return err
	}
	if c.Index < 1 || c.Index > len(goal.SuccessCriteria) {
		return fmt.Errorf("criterion %d out of range (goal has %d)", c.Index, len(goal.SuccessCriteria))
	}

	now := ctx.Now()
	sc := &goal.SuccessCriteria[c.Index-1]
	sc.IsCompleted = !sc.IsCompleted
	if sc.IsCompleted {
		sc.CompletedAt = &now
	} else {
		sc.CompletedAt = nil
	}
	goal.Touch(now)

	if err := ctx.Store.UpdateGoal(goal); err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}

	state := "incomplete"
	if sc.IsCompleted {
		state = "complete"
	}
	ctx.Printf("Marked %q %s\n", sc.Text, state)
	return nil
}
