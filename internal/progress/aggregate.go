package progress

import (
	"math"
	"time"

	"github.com/julianstephens/stride/internal/models"
)

// Score is one source's percentage and whether the source had any
// contributing items.
type Score struct {
	Value   float64
	Present bool
}

// Aggregate computes the weighted average of the present sources. Absent
// sources drop out of the denominator; if nothing is present (or every present
// source carries zero weight) the result is 0.
func Aggregate(weights models.ProgressConfig, criteria, tasks, metrics, habits Score) int {
	sources := [...]struct {
		score  Score
		weight float64
	}{
		{criteria, weights.CriteriaWeight},
		{tasks, weights.TasksWeight},
		{metrics, weights.MetricsWeight},
		{habits, weights.HabitsWeight},
	}

	var weighted, total float64
	for _, s := range sources {
		if !s.score.Present {
			continue
		}
		w := s.weight
		if math.IsNaN(w) || w < 0 {
			w = 0
		}
		weighted += clamp(s.score.Value, 0, 100) * w
		total += w
	}

	if total == 0 {
		return 0
	}
	return roundPercent(weighted / total)
}

// Snapshot is a read-only view of a goal and the entities linked to it.
// Log maps are keyed by metric and habit ID.
type Snapshot struct {
	Goal       models.Goal
	Tasks      []models.Task
	Metrics    []models.Metric
	MetricLogs map[string][]models.MetricLog
	Habits     []models.Habit
	HabitLogs  map[string][]models.HabitLog
}

// ComputeGoalProgress runs the four calculators and aggregates them using the
// goal's weights. It has no side effects.
func ComputeGoalProgress(s Snapshot, now time.Time, policy models.Policy) models.GoalProgressBreakdown {
	criteria := Criteria(s.Goal.SuccessCriteria)
	tasks := Tasks(s.Tasks)
	metrics := Metrics(s.Metrics, s.MetricLogs)
	habits := Habits(s.Habits, s.HabitLogs, now, policy.HabitWindowDays)

	overall := Aggregate(s.Goal.Weights(),
		Score{Value: float64(criteria.Percentage), Present: criteria.Present()},
		Score{Value: float64(tasks.Percentage), Present: tasks.Present()},
		Score{Value: float64(metrics.Percentage), Present: metrics.Present()},
		Score{Value: float64(habits.Consistency), Present: habits.Present()},
	)

	return models.GoalProgressBreakdown{
		Overall:  overall,
		Criteria: criteria,
		Tasks:    tasks,
		Metrics:  metrics,
		Habits:   habits,
	}
}
