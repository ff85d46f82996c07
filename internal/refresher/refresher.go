// Package refresher periodically rescores every goal and publishes the
// results as prometheus gauges.
package refresher

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/julianstephens/stride/internal/loader"
	"github.com/julianstephens/stride/internal/logger"
	"github.com/julianstephens/stride/internal/metrics"
	"github.com/julianstephens/stride/internal/models"
)

// GoalLister lists the goals to refresh.
type GoalLister interface {
	GetAllGoals(ctx context.Context, includeDeleted bool) ([]models.Goal, error)
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule checks a cron expression or descriptor such as "@every 5m".
func ValidateSchedule(schedule string) error {
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	return nil
}

type Refresher struct {
	goals  GoalLister
	loader *loader.Loader
	cron   *cron.Cron
}

func New(goals GoalLister, l *loader.Loader, schedule string) (*Refresher, error) {
	r := &Refresher{
		goals:  goals,
		loader: l,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
		),
	}

	if _, err := r.cron.AddFunc(schedule, func() {
		if err := r.RunOnce(context.Background()); err != nil {
			logger.Error("Scheduled refresh failed", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	return r, nil
}

// Start runs the schedule in the background.
func (r *Refresher) Start() {
	r.cron.Start()
}

// Stop halts the schedule and returns a context that is done once any
// running refresh has finished.
func (r *Refresher) Stop() context.Context {
	return r.cron.Stop()
}

// RunOnce rescores every live goal and updates the gauges. Cached results are
// dropped first so time-dependent health (dormancy, expected progress) moves
// forward even for goals that have not changed.
func (r *Refresher) RunOnce(ctx context.Context) error {
	started := time.Now()

	goals, err := r.goals.GetAllGoals(ctx, false)
	if err != nil {
		metrics.RefreshRuns.WithLabelValues(metrics.RefreshFailed).Inc()
		return fmt.Errorf("failed to list goals: %w", err)
	}

	r.loader.Purge()
	r.loader.WarmGoals(ctx, goals)

	progress := make(map[string]int, len(goals))
	health := make(map[string]models.HealthStatus, len(goals))
	for _, g := range goals {
		res, ok := r.loader.Get(g.ID)
		if !ok {
			continue
		}
		progress[g.ID] = res.Breakdown.Overall
		health[g.ID] = res.Health.Status
	}
	metrics.SetGoalGauges(progress, health)
	metrics.RefreshRuns.WithLabelValues(metrics.RefreshOK).Inc()

	logger.Info("Refreshed goal scores", "goals", len(goals), "scored", len(progress), "took", time.Since(started))
	return nil
}

// cronLogger routes cron's own messages into the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
