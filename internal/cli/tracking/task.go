package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/julianstephens/stride/internal/cli"
	"github.com/julianstephens/stride/internal/models"
)

type TaskCmd struct {
	Add    TaskAddCmd    `cmd:"" help:"Add a task, optionally linked to goals."`
	Done   TaskDoneCmd   `cmd:"" help:"Mark a task done."`
	Cancel TaskCancelCmd `cmd:"" help:"Cancel a task."`
	List   TaskListCmd   `cmd:"" help:"List tasks." default:"1"`
}

type TaskAddCmd struct {
	Title string   `arg:"" help:"Task title."`
	Goals []string `help:"Goal to link (ID, ID prefix or title; repeatable)." short:"g" name:"goal"`
}

func (c *TaskAddCmd) Run(ctx *cli.Context) error {
	title := strings.TrimSpace(c.Title)
	if title == "" {
		return errors.New("task title cannot be empty")
	}

	goalIDs, err := ctx.ResolveGoalIDs(context.Background(), c.Goals)
	if err != nil {
		return err
	}

	now := ctx.Now()
	task := models.Task{
		ID:        uuid.New().String(),
		Title:     title,
		Status:    models.TaskTodo,
		GoalIDs:   goalIDs,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := ctx.Store.AddTask(task); err != nil {
		return fmt.Errorf("failed to add task: %w", err)
	}

	ctx.Printf("Added task: %s (%s)\n", task.Title, cli.ShortID(task.ID))
	return nil
}

type TaskDoneCmd struct {
	Task string `arg:"" help:"Task ID, ID prefix or title."`
}

func (c *TaskDoneCmd) Run(ctx *cli.Context) error {
	return setTaskStatus(ctx, c.Task, models.TaskDone)
}

type TaskCancelCmd struct {
	Task string `arg:"" help:"Task ID, ID prefix or title."`
}

func (c *TaskCancelCmd) Run(ctx *cli.Context) error {
	return setTaskStatus(ctx, c.Task, models.TaskCancelled)
}

func setTaskStatus(ctx *cli.Context, ref string, status models.TaskStatus) error {
	task, err := findTask(ctx, ref)
	if err != nil {
		return err
	}
	if task.Status == status {
		ctx.Printf("Task %s is already %s\n", task.Title, status)
		return nil
	}

	now := ctx.Now()
	task.Status = status
	task.UpdatedAt = now
	if status == models.TaskDone {
		task.CompletedAt = &now
	} else {
		task.CompletedAt = nil
	}

	if err := ctx.Store.UpdateTask(task); err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if err := ctx.RecordActivity(task.GoalIDs, now); err != nil {
		return err
	}

	ctx.Printf("Task %s: %s\n", status, task.Title)
	return nil
}

func findTask(ctx *cli.Context, ref string) (models.Task, error) {
	tasks, err := ctx.Store.GetAllTasks()
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to get tasks: %w", err)
	}
	return resolve("task", ref, tasks,
		func(t models.Task) string { return t.ID },
		func(t models.Task) string { return t.Title })
}

type TaskListCmd struct {
	Goal string `help:"Only show tasks linked to this goal." short:"g"`
	All  bool   `help:"Include done and cancelled tasks." short:"a"`
}

func (c *TaskListCmd) Run(ctx *cli.Context) error {
	var (
		tasks []models.Task
		err   error
	)
	if c.Goal != "" {
		bg := context.Background()
		goal, gerr := ctx.ResolveGoal(bg, c.Goal)
		if gerr != nil {
			return gerr
		}
		tasks, err = ctx.Store.GetTasksByGoal(bg, goal.ID)
	} else {
		tasks, err = ctx.Store.GetAllTasks()
	}
	if err != nil {
		return fmt.Errorf("failed to get tasks: %w", err)
	}

	shown := 0
	for _, t := range tasks {
		if !c.All && (t.Status == models.TaskDone || t.Status == models.TaskCancelled) {
			continue
		}
		if shown == 0 {
			ctx.Println("Tasks:")
		}
		shown++

		mark := " "
		switch t.Status {
		case models.TaskDone:
			mark = "x"
		case models.TaskCancelled:
			mark = "-"
		case models.TaskInProgress:
			mark = "~"
		}
		ctx.Printf("  [%s] %-40s %s\n", mark, t.Title, cli.ShortID(t.ID))
	}

	if shown == 0 {
		ctx.Println("No tasks found")
	}
	return nil
}
