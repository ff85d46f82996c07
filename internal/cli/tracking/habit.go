package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/stride/internal/cli"
	"github.com/julianstephens/stride/internal/models"
)

type HabitCmd struct {
	Add     HabitAddCmd     `cmd:"" help:"Add a habit, optionally linked to goals."`
	Log     HabitLogCmd     `cmd:"" help:"Record a habit completion."`
	List    HabitListCmd    `cmd:"" help:"List habits." default:"1"`
	Archive HabitArchiveCmd `cmd:"" help:"Archive a habit."`
}

type HabitAddCmd struct {
	Name      string   `arg:"" help:"Habit name."`
	Frequency string   `help:"How often the habit is expected." enum:"daily,weekly" default:"daily"`
	Goals     []string `help:"Goal to link (ID, ID prefix or title; repeatable)." short:"g" name:"goal"`
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return errors.New("habit name cannot be empty")
	}

	existing, err := ctx.Store.GetAllHabits(true)
	if err != nil {
		return fmt.Errorf("failed to get habits: %w", err)
	}
	for _, h := range existing {
		if strings.EqualFold(h.Name, name) {
			return fmt.Errorf("habit with name %q already exists", name)
		}
	}

	goalIDs, err := ctx.ResolveGoalIDs(context.Background(), c.Goals)
	if err != nil {
		return err
	}

	habit := models.Habit{
		ID:        uuid.New().String(),
		Name:      name,
		Frequency: models.HabitFrequency(c.Frequency),
		GoalIDs:   goalIDs,
		CreatedAt: ctx.Now(),
	}
	if err := ctx.Store.AddHabit(habit); err != nil {
		return fmt.Errorf("failed to add habit: %w", err)
	}

	ctx.Printf("Added habit: %s (%s)\n", habit.Name, habit.Frequency)
	return nil
}

type HabitLogCmd struct {
	Habit  string  `arg:"" help:"Habit ID, ID prefix or name."`
	Date   string  `help:"Date in YYYY-MM-DD format (default: now)."`
	Amount float64 `help:"Amount completed." default:"1"`
	Note   string  `help:"Optional note for this entry."`
}

func (c *HabitLogCmd) Validate() error {
	if c.Amount <= 0 {
		return fmt.Errorf("amount must be greater than zero")
	}
	return nil
}

func (c *HabitLogCmd) Run(ctx *cli.Context) error {
	habit, err := findHabit(ctx, c.Habit, false)
	if err != nil {
		return err
	}

	now := ctx.Now()
	completedAt := now
	if c.Date != "" {
		day, err := cli.ParseDate(c.Date)
		if err != nil {
			return err
		}
		if day.After(now) {
			return fmt.Errorf("cannot log habit in the future: %s", c.Date)
		}
		// Backdated entries are stamped at local noon.
		completedAt = time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, day.Location())
		if completedAt.After(now) {
			completedAt = now
		}
	}

	entry := models.HabitLog{
		ID:          uuid.New().String(),
		HabitID:     habit.ID,
		CompletedAt: completedAt,
		Amount:      c.Amount,
		Note:        strings.TrimSpace(c.Note),
	}
	if err := ctx.Store.AddHabitLog(entry); err != nil {
		return fmt.Errorf("failed to log habit: %w", err)
	}
	if err := ctx.RecordActivity(habit.GoalIDs, now); err != nil {
		return err
	}

	ctx.Printf("Logged %s on %s\n", habit.Name, completedAt.Format("2006-01-02"))
	return nil
}

func findHabit(ctx *cli.Context, ref string, includeArchived bool) (models.Habit, error) {
	habits, err := ctx.Store.GetAllHabits(includeArchived)
	if err != nil {
		return models.Habit{}, fmt.Errorf("failed to get habits: %w", err)
	}
	return resolve("habit", ref, habits,
		func(h models.Habit) string { return h.ID },
		func(h models.Habit) string { return h.Name })
}

type HabitListCmd struct {
	Archived bool `help:"Include archived habits."`
}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	habits, err := ctx.Store.GetAllHabits(c.Archived)
	if err != nil {
		return fmt.Errorf("failed to get habits: %w", err)
	}
	if len(habits) == 0 {
		ctx.Println("No habits found")
		return nil
	}

	for _, h := range habits {
		status := ""
		if h.ArchivedAt != nil {
			status = " [ARCHIVED]"
		}
		ctx.Printf("%s (%s)%s\n", h.Name, h.Frequency, status)
	}
	return nil
}

type HabitArchiveCmd struct {
	Habit string `arg:"" help:"Habit ID, ID prefix or name."`
}

func (c *HabitArchiveCmd) Run(ctx *cli.Context) error {
	habit, err := findHabit(ctx, c.Habit, false)
	if err != nil {
		return err
	}
	if err := ctx.Store.ArchiveHabit(habit.ID); err != nil {
		return fmt.Errorf("failed to archive habit: %w", err)
	}
	ctx.Printf("Archived habit: %s\n", habit.Name)
	return nil
}
