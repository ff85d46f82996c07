package storage

import (
	"context"
	"errors"
	"time"

	"github.com/julianstephens/stride/internal/models"
)

// ErrNotFound is returned when a requested entity does not exist or has been deleted.
var ErrNotFound = errors.New("not found")

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Goals
	AddGoal(models.Goal) error
	GetGoal(ctx context.Context, id string) (models.Goal, error)
	GetAllGoals(ctx context.Context, includeDeleted bool) ([]models.Goal, error)
	UpdateGoal(models.Goal) error
	DeleteGoal(id string) error
	RestoreGoal(id string) error
	// TouchGoals stamps LastActivityAt and UpdatedAt on every listed goal.
	// Unknown or deleted goals are skipped.
	TouchGoals(goalIDs []string, at time.Time) error

	// Tasks
	AddTask(models.Task) error
	GetTask(id string) (models.Task, error)
	GetAllTasks() ([]models.Task, error)
	GetTasksByGoal(ctx context.Context, goalID string) ([]models.Task, error)
	UpdateTask(models.Task) error

	// Metrics
	AddMetric(models.Metric) error
	GetMetric(id string) (models.Metric, error)
	GetAllMetrics() ([]models.Metric, error)
	GetMetricsByGoal(ctx context.Context, goalID string) ([]models.Metric, error)
	AddMetricLog(models.MetricLog) error
	GetMetricLogs(ctx context.Context, metricID string) ([]models.MetricLog, error)

	// Habits
	AddHabit(models.Habit) error
	GetHabit(id string) (models.Habit, error)
	GetAllHabits(includeArchived bool) ([]models.Habit, error)
	GetHabitsByGoal(ctx context.Context, goalID string) ([]models.Habit, error)
	ArchiveHabit(id string) error
	AddHabitLog(models.HabitLog) error
	GetHabitLogs(ctx context.Context, habitID string) ([]models.HabitLog, error)

	// Diagnostics
	Ping(ctx context.Context) error
	Migrate(logFn func(string)) (int, error)
	SchemaVersion() (current, latest int, err error)
	CountOrphanLinks() (int, error)

	// Utils
	GetConfigPath() string
}
