package loader

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/julianstephens/stride/internal/health"
	"github.com/julianstephens/stride/internal/logger"
	"github.com/julianstephens/stride/internal/metrics"
	"github.com/julianstephens/stride/internal/models"
	"github.com/julianstephens/stride/internal/progress"
)

// Reader is the read-only data access the loader needs.
type Reader interface {
	GetGoal(ctx context.Context, id string) (models.Goal, error)
	GetTasksByGoal(ctx context.Context, goalID string) ([]models.Task, error)
	GetMetricsByGoal(ctx context.Context, goalID string) ([]models.Metric, error)
	GetHabitsByGoal(ctx context.Context, goalID string) ([]models.Habit, error)
	GetMetricLogs(ctx context.Context, metricID string) ([]models.MetricLog, error)
	GetHabitLogs(ctx context.Context, habitID string) ([]models.HabitLog, error)
}

// Linked entity sources, as reported in Result.Degraded.
const (
	SourceTasks      = "tasks"
	SourceMetrics    = "metrics"
	SourceMetricLogs = "metric_logs"
	SourceHabits     = "habits"
	SourceHabitLogs  = "habit_logs"
)

// Result is the cached outcome of scoring one goal.
type Result struct {
	Goal       models.Goal
	Breakdown  models.GoalProgressBreakdown
	Health     models.GoalHealth
	Version    string
	ComputedAt time.Time
	// Degraded lists the sources that could not be read and were scored as absent.
	Degraded   []string
}

type Option func(*Loader)

// WithPolicy sets the scoring policy, batch size and cache size.
func WithPolicy(p models.Policy) Option {
	return func(l *Loader) { l.policy = p }
}

// WithClock overrides the time source used for scoring.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) { l.now = now }
}

// Loader computes and caches progress and health for goals. At most one
// computation runs per goal ID at a time; callers arriving while one is in
// flight wait for it instead of starting another.
type Loader struct {
	repo       Reader
	policy     models.Policy
	now        func() time.Time
	flights    singleflight.Group
	results    *lru.Cache[string, Result]
	// registered, when set, runs once a caller has joined or started the
	// in-flight computation for a goal.
	registered func(goalID string)
}

func New(repo Reader, opts ...Option) (*Loader, error) {
	l := &Loader{
		repo:   repo,
		policy: models.DefaultPolicy(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := l.policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid loader policy: %w", err)
	}

	cache, err := lru.New[string, Result](l.policy.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}
	l.results = cache

	return l, nil
}

// Load scores a single goal and caches the result. goal may be nil, in which
// case the current record is read from the repository. Errors are logged and
// leave any previous cache entry in place.
func (l *Loader) Load(ctx context.Context, goalID string, goal *models.Goal) {
	// Work that has started runs to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	led := false
	ch := l.flights.DoChan(goalID, func() (interface{}, error) {
		led = true
		return nil, l.load(ctx, goalID, goal)
	})
	if l.registered != nil {
		l.registered(goalID)
	}
	res := <-ch
	err := res.Err

	if res.Shared && !led {
		metrics.RecordLoad(metrics.OutcomeShared)
		logger.Debug("Joined in-flight goal load", "goal_id", goalID)
		return
	}
	if err != nil {
		metrics.RecordLoad(metrics.OutcomeFailed)
		logger.Error("Failed to load goal data", "goal_id", goalID, "error", err)
	}
}

func (l *Loader) load(ctx context.Context, goalID string, goal *models.Goal) error {
	if goal == nil {
		g, err := l.repo.GetGoal(ctx, goalID)
		if err != nil {
			return fmt.Errorf("failed to read goal: %w", err)
		}
		goal = &g
	}

	version := goal.VersionToken()
	if cached, ok := l.results.Peek(goalID); ok && cached.Version == version && len(cached.Degraded) == 0 {
		metrics.RecordLoad(metrics.OutcomeFresh)
		return nil
	}

	started := time.Now()
	snapshot, degraded := l.fetch(ctx, *goal)

	now := l.now()
	breakdown := progress.ComputeGoalProgress(snapshot, now, l.policy)
	h := health.ComputeGoalHealth(*goal, breakdown, health.LastActivity(snapshot), now, l.policy)

	l.results.Add(goalID, Result{
		Goal:       *goal,
		Breakdown:  breakdown,
		Health:     h,
		Version:    version,
		ComputedAt: now,
		Degraded:   degraded,
	})

	metrics.RecordLoad(metrics.OutcomeComputed)
	metrics.RecordLoadDuration(time.Since(started))
	logger.Debug("Computed goal progress",
		"goal_id", goalID,
		"overall", breakdown.Overall,
		"health", h.Status,
		"momentum", h.Momentum,
	)

	return nil
}

// fetch reads the entities linked to a goal one source at a time. A failed
// read drops that source (or that single metric/habit) rather than failing
// the whole goal.
func (l *Loader) fetch(ctx context.Context, goal models.Goal) (progress.Snapshot, []string) {
	s := progress.Snapshot{
		Goal:       goal,
		MetricLogs: map[string][]models.MetricLog{},
		HabitLogs:  map[string][]models.HabitLog{},
	}

	var degraded []string
	fail := func(source string, err error, keyvals ...interface{}) {
		degraded = append(degraded, source)
		metrics.RecordSourceError(source)
		kv := append([]interface{}{"goal_id", goal.ID, "source", source, "error", err}, keyvals...)
		logger.Warn("Linked entity read failed, scoring source as absent", kv...)
	}

	tasks, err := l.repo.GetTasksByGoal(ctx, goal.ID)
	if err != nil {
		fail(SourceTasks, err)
	} else {
		s.Tasks = tasks
	}

	linkedMetrics, err := l.repo.GetMetricsByGoal(ctx, goal.ID)
	if err != nil {
		fail(SourceMetrics, err)
	}
	for _, m := range linkedMetrics {
		logs, err := l.repo.GetMetricLogs(ctx, m.ID)
		if err != nil {
			fail(SourceMetricLogs, err, "metric_id", m.ID)
			continue
		}
		s.Metrics = append(s.Metrics, m)
		s.MetricLogs[m.ID] = logs
	}

	habits, err := l.repo.GetHabitsByGoal(ctx, goal.ID)
	if err != nil {
		fail(SourceHabits, err)
	}
	for _, h := range habits {
		logs, err := l.repo.GetHabitLogs(ctx, h.ID)
		if err != nil {
			fail(SourceHabitLogs, err, "habit_id", h.ID)
			continue
		}
		s.Habits = append(s.Habits, h)
		s.HabitLogs[h.ID] = logs
	}

	return s, degraded
}

// Warm loads many goals by ID with at most Policy.LoaderBatchSize loads in
// flight. It stops starting new loads once ctx is done.
func (l *Loader) Warm(ctx context.Context, goalIDs []string) {
	l.warm(ctx, len(goalIDs), func(i int) (string, *models.Goal) {
		return goalIDs[i], nil
	})
}

// WarmGoals is Warm for callers that already hold the goal records.
func (l *Loader) WarmGoals(ctx context.Context, goals []models.Goal) {
	l.warm(ctx, len(goals), func(i int) (string, *models.Goal) {
		return goals[i].ID, &goals[i]
	})
}

func (l *Loader) warm(ctx context.Context, n int, at func(int) (string, *models.Goal)) {
	var g errgroup.Group
	g.SetLimit(l.policy.LoaderBatchSize)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			logger.Warn("Stopping goal warm-up", "remaining", n-i, "error", err)
			break
		}
		id, goal := at(i)
		g.Go(func() error {
			l.Load(ctx, id, goal)
			return nil
		})
	}
	// Load logs its own failures, so there is never an error to collect.
	g.Wait()
}

// Get returns the cached result for a goal.
func (l *Loader) Get(goalID string) (Result, bool) {
	return l.results.Get(goalID)
}

// Results returns every cached result keyed by goal ID.
func (l *Loader) Results() map[string]Result {
	out := make(map[string]Result, l.results.Len())
	for _, id := range l.results.Keys() {
		if r, ok := l.results.Peek(id); ok {
			out[id] = r
		}
	}
	return out
}

// Invalidate drops the cached result for a goal so the next load recomputes it.
func (l *Loader) Invalidate(goalID string) {
	l.results.Remove(goalID)
}

// Purge drops every cached result.
func (l *Loader) Purge() {
	l.results.Purge()
}

// Policy returns the policy the loader scores with.
func (l *Loader) Policy() models.Policy {
	return l.policy
}
