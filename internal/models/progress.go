package models

// CriteriaProgress is the success criteria sub-score of a goal.
type CriteriaProgress struct {
	Percentage int `json:"percentage"`
	Completed  int `json:"completed"`
	Total      int `json:"total"`
}

// Present reports whether any criteria contributed to the score.
func (p CriteriaProgress) Present() bool { return p.Total > 0 }

// TaskProgress is the linked task sub-score of a goal. Cancelled tasks are not
// counted in Total.
type TaskProgress struct {
	Percentage int `json:"percentage"`
	Completed  int `json:"completed"`
	Total      int `json:"total"`
}

func (p TaskProgress) Present() bool { return p.Total > 0 }

// MetricScore is the normalized progress of a single metric toward its target.
type MetricScore struct {
	MetricID     string          `json:"metric_id"`
	Name         string          `json:"name"`
	Direction    MetricDirection `json:"direction"`
	CurrentValue float64         `json:"current_value"`
	TargetValue  float64         `json:"target_value"`
	Percentage   float64         `json:"percentage"`
}

type MetricProgress struct {
	Percentage int           `json:"percentage"`
	Scores     []MetricScore `json:"scores,omitempty"`
}

func (p MetricProgress) Present() bool { return len(p.Scores) > 0 }

// HabitScore is the consistency of a single habit over the trailing window.
type HabitScore struct {
	HabitID     string  `json:"habit_id"`
	Name        string  `json:"name"`
	Expected    int     `json:"expected"`
	Actual      int     `json:"actual"`
	Consistency float64 `json:"consistency"`
}

type HabitProgress struct {
	Consistency int          `json:"consistency"`
	Scores      []HabitScore `json:"scores,omitempty"`
}

func (p HabitProgress) Present() bool { return len(p.Scores) > 0 }

// GoalProgressBreakdown is the derived, non-persisted progress of a goal.
// Absent sources report 0 and are excluded from Overall.
type GoalProgressBreakdown struct {
	Overall  int              `json:"overall"`
	Criteria CriteriaProgress `json:"criteria"`
	Tasks    TaskProgress     `json:"tasks"`
	Metrics  MetricProgress   `json:"metrics"`
	Habits   HabitProgress    `json:"habits"`
}
