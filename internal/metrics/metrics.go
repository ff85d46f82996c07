package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/julianstephens/stride/internal/models"
)

// Load outcomes
const (
	OutcomeComputed = "computed"
	OutcomeFresh    = "fresh"
	OutcomeShared   = "shared"
	OutcomeFailed   = "failed"
)

// Refresh run statuses
const (
	RefreshOK     = "ok"
	RefreshFailed = "failed"
)

var (
	GoalLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stride",
			Name:      "goal_loads_total",
			Help:      "Goal data loads by outcome",
		},
		[]string{"outcome"},
	)

	GoalLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "stride",
			Name:      "goal_load_duration_seconds",
			Help:      "Time spent fetching and scoring a single goal",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)

	SourceFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stride",
			Name:      "source_fetch_errors_total",
			Help:      "Linked entity reads that failed and were treated as absent",
		},
		[]string{"source"},
	)

	GoalProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "stride",
			Name:      "goal_progress_percent",
			Help:      "Overall progress of each goal",
		},
		[]string{"goal_id"},
	)

	GoalsByHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "stride",
			Name:      "goals_by_health",
			Help:      "Number of goals in each health status",
		},
		[]string{"status"},
	)

	RefreshRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stride",
			Name:      "refresh_runs_total",
			Help:      "Scheduled refresh runs by status",
		},
		[]string{"status"},
	)
)

// RecordLoad records a goal load outcome.
func RecordLoad(outcome string) {
	GoalLoads.WithLabelValues(outcome).Inc()
}

// RecordLoadDuration records the time taken by a computed load.
func RecordLoadDuration(d time.Duration) {
	GoalLoadDuration.Observe(d.Seconds())
}

// RecordSourceError records a failed read of a linked entity source.
func RecordSourceError(source string) {
	SourceFetchErrors.WithLabelValues(source).Inc()
}

// HealthLabel maps a health status to a metric label.
func HealthLabel(status models.HealthStatus) string {
	if status == models.HealthUnclassified {
		return "unclassified"
	}
	return string(status)
}

// SetGoalGauges replaces the per-goal progress and health gauges.
func SetGoalGauges(progress map[string]int, health map[string]models.HealthStatus) {
	GoalProgress.Reset()
	for id, pct := range progress {
		GoalProgress.WithLabelValues(id).Set(float64(pct))
	}

	counts := map[string]int{}
	for _, status := range []models.HealthStatus{
		models.HealthHealthy, models.HealthAtRisk, models.HealthBehind,
		models.HealthDormant, models.HealthUnclassified,
	} {
		counts[HealthLabel(status)] = 0
	}
	for _, status := range health {
		counts[HealthLabel(status)]++
	}

	GoalsByHealth.Reset()
	for label, n := range counts {
		GoalsByHealth.WithLabelValues(label).Set(float64(n))
	}
}
