package loader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/julianstephens/stride/internal/models"
)

var testNow = time.Date(2024, 3, 15, 18, 0, 0, 0, time.UTC)

// mockReader is an in-memory Reader that counts calls and can block or fail
// individual reads.
type mockReader struct {
	mu         sync.Mutex
	goals      map[string]models.Goal
	tasks      map[string][]models.Task
	metrics    map[string][]models.Metric
	habits     map[string][]models.Habit
	metricLogs map[string][]models.MetricLog
	habitLogs  map[string][]models.HabitLog

	goalErr       error
	taskErr       error
	metricErr     error
	habitErr      error
	metricLogErrs map[string]error

	// gate, when set, blocks GetTasksByGoal until it is closed.
	gate    chan struct{}
	entered chan struct{}

	goalCalls atomic.Int32
	taskCalls atomic.Int32
	inFlight  atomic.Int32
	maxFlight atomic.Int32
	taskDelay time.Duration
}

func newMockReader() *mockReader {
	return &mockReader{
		goals:         map[string]models.Goal{},
		tasks:         map[string][]models.Task{},
		metrics:       map[string][]models.Metric{},
		habits:        map[string][]models.Habit{},
		metricLogs:    map[string][]models.MetricLog{},
		habitLogs:     map[string][]models.HabitLog{},
		metricLogErrs: map[string]error{},
	}
}

func (m *mockReader) setGoal(g models.Goal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.goals[g.ID] = g
}

func (m *mockReader) GetGoal(_ context.Context, id string) (models.Goal, error) {
	m.goalCalls.Add(1)
	if m.goalErr != nil {
		return models.Goal{}, m.goalErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.goals[id]
	if !ok {
		return models.Goal{}, errors.New("goal not found")
	}
	return g, nil
}

func (m *mockReader) GetTasksByGoal(_ context.Context, goalID string) ([]models.Task, error) {
	m.taskCalls.Add(1)

	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		cur := m.maxFlight.Load()
		if n <= cur || m.maxFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	if m.entered != nil {
		m.entered <- struct{}{}
	}
	if m.gate != nil {
		<-m.gate
	}
	if m.taskDelay > 0 {
		time.Sleep(m.taskDelay)
	}

	if m.taskErr != nil {
		return nil, m.taskErr
	}
	return m.tasks[goalID], nil
}

func (m *mockReader) GetMetricsByGoal(_ context.Context, goalID string) ([]models.Metric, error) {
	if m.metricErr != nil {
		return nil, m.metricErr
	}
	return m.metrics[goalID], nil
}

func (m *mockReader) GetHabitsByGoal(_ context.Context, goalID string) ([]models.Habit, error) {
	if m.habitErr != nil {
		return nil, m.habitErr
	}
	return m.habits[goalID], nil
}

func (m *mockReader) GetMetricLogs(_ context.Context, metricID string) ([]models.MetricLog, error) {
	if err := m.metricLogErrs[metricID]; err != nil {
		return nil, err
	}
	return m.metricLogs[metricID], nil
}

func (m *mockReader) GetHabitLogs(_ context.Context, habitID string) ([]models.HabitLog, error) {
	return m.habitLogs[habitID], nil
}

func newGoal(id string, updated time.Time) models.Goal {
	created := testNow.AddDate(0, 0, -3)
	return models.Goal{
		ID:        id,
		Title:     "Goal " + id,
		Status:    models.GoalActive,
		CreatedAt: created,
		UpdatedAt: updated,
	}
}

func newTestLoader(t *testing.T, repo Reader, opts ...Option) *Loader {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	l, err := New(repo, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l
}

func ptr[T any](v T) *T { return &v }

func TestNewRejectsInvalidPolicy(t *testing.T) {
	p := models.DefaultPolicy()
	p.LoaderBatchSize = 0
	if _, err := New(newMockReader(), WithPolicy(p)); err == nil {
		t.Fatal("expected error for zero batch size")
	}
}

func TestLoadComputesAndCaches(t *testing.T) {
	repo := newMockReader()
	g := newGoal("g1", testNow.Add(-time.Hour))
	g.SuccessCriteria = []models.SuccessCriterion{{Text: "a", IsCompleted: true}, {Text: "b"}}
	repo.setGoal(g)
	repo.tasks["g1"] = []models.Task{
		{ID: "t1", Status: models.TaskDone},
		{ID: "t2", Status: models.TaskTodo},
	}

	l := newTestLoader(t, repo)
	l.Load(context.Background(), "g1", nil)

	res, ok := l.Get("g1")
	if !ok {
		t.Fatal("expected cached result")
	}
	if res.Breakdown.Criteria.Percentage != 50 || res.Breakdown.Tasks.Percentage != 50 {
		t.Errorf("unexpected breakdown: %+v", res.Breakdown)
	}
	if res.Breakdown.Overall != 50 {
		t.Errorf("Overall = %d, want 50", res.Breakdown.Overall)
	}
	if res.Version != g.VersionToken() {
		t.Errorf("Version = %q, want %q", res.Version, g.VersionToken())
	}
	if !res.ComputedAt.Equal(testNow) {
		t.Errorf("ComputedAt = %v, want %v", res.ComputedAt, testNow)
	}
	if res.Health.Momentum != models.MomentumActive {
		t.Errorf("Momentum = %q, want active", res.Health.Momentum)
	}
}

func TestLoadConcurrentCallsShareOneFetch(t *testing.T) {
	repo := newMockReader()
	repo.setGoal(newGoal("g1", testNow))
	repo.gate = make(chan struct{})
	repo.entered = make(chan struct{}, 2)

	l := newTestLoader(t, repo)
	registered := make(chan string, 2)
	l.registered = func(goalID string) { registered <- goalID }

	var wg sync.WaitGroup
	load := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Load(context.Background(), "g1", nil)
		}()
	}

	load()
	// The first load is blocked inside the fetch cycle.
	<-repo.entered
	<-registered

	load()
	// The second caller has joined the in-flight call; the gate is still closed,
	// so the first computation cannot have finished.
	<-registered

	close(repo.gate)
	wg.Wait()

	if got := repo.taskCalls.Load(); got != 1 {
		t.Errorf("GetTasksByGoal called %d times, want 1", got)
	}
	if got := repo.goalCalls.Load(); got != 1 {
		t.Errorf("GetGoal called %d times, want 1", got)
	}
	if _, ok := l.Get("g1"); !ok {
		t.Error("expected cached result after shared load")
	}
}

func TestLoadSkipsWhenVersionUnchanged(t *testing.T) {
	repo := newMockReader()
	g := newGoal("g1", testNow.Add(-time.Hour))
	repo.setGoal(g)

	l := newTestLoader(t, repo)
	l.Load(context.Background(), "g1", &g)
	l.Load(context.Background(), "g1", &g)

	if got := repo.taskCalls.Load(); got != 1 {
		t.Errorf("GetTasksByGoal called %d times, want 1", got)
	}
	if got := repo.goalCalls.Load(); got != 0 {
		t.Errorf("GetGoal called %d times, want 0 when goal is supplied", got)
	}
}

func TestLoadRecomputesWhenVersionChanges(t *testing.T) {
	repo := newMockReader()
	g := newGoal("g1", testNow.Add(-time.Hour))
	repo.setGoal(g)

	l := newTestLoader(t, repo)
	l.Load(context.Background(), "g1", nil)

	g.SuccessCriteria = []models.SuccessCriterion{{Text: "done", IsCompleted: true}}
	g.UpdatedAt = testNow.Add(-time.Minute)
	repo.setGoal(g)
	l.Load(context.Background(), "g1", nil)

	if got := repo.taskCalls.Load(); got != 2 {
		t.Errorf("GetTasksByGoal called %d times, want 2", got)
	}
	res, _ := l.Get("g1")
	if res.Breakdown.Overall != 100 {
		t.Errorf("Overall = %d, want 100 after update", res.Breakdown.Overall)
	}
	if res.Version != g.VersionToken() {
		t.Errorf("Version = %q, want %q", res.Version, g.VersionToken())
	}
}

func TestLoadGoalReadFailureKeepsCache(t *testing.T) {
	repo := newMockReader()
	g := newGoal("g1", testNow.Add(-time.Hour))
	repo.setGoal(g)

	l := newTestLoader(t, repo)
	l.Load(context.Background(), "g1", nil)
	before, ok := l.Get("g1")
	if !ok {
		t.Fatal("expected cached result")
	}

	repo.goalErr = errors.New("database is locked")
	l.Load(context.Background(), "g1", nil)

	after, ok := l.Get("g1")
	if !ok {
		t.Fatal("cache entry removed after failed load")
	}
	if after.Version != before.Version || !after.ComputedAt.Equal(before.ComputedAt) {
		t.Errorf("cache entry changed after failed load: before %+v, after %+v", before, after)
	}

	l.Load(context.Background(), "missing", nil)
	if _, ok := l.Get("missing"); ok {
		t.Error("expected no result for goal that failed to load")
	}
}

func TestLoadSourceFailureTreatedAsAbsent(t *testing.T) {
	repo := newMockReader()
	g := newGoal("g1", testNow.Add(-time.Hour))
	g.SuccessCriteria = []models.SuccessCriterion{{Text: "a", IsCompleted: true}, {Text: "b"}}
	repo.setGoal(g)
	repo.tasks["g1"] = []models.Task{{ID: "t1", Status: models.TaskTodo}}
	repo.taskErr = errors.New("tasks table unavailable")
	repo.metrics["g1"] = []models.Metric{
		{ID: "m1", Direction: models.DirectionHigher, TargetValue: ptr(10.0)},
		{ID: "m2", Direction: models.DirectionHigher, TargetValue: ptr(10.0)},
	}
	repo.metricLogs["m1"] = []models.MetricLog{{MetricID: "m1", Value: 10, LoggedAt: testNow}}
	repo.metricLogErrs["m2"] = errors.New("log read failed")

	l := newTestLoader(t, repo)
	l.Load(context.Background(), "g1", nil)

	res, ok := l.Get("g1")
	if !ok {
		t.Fatal("expected cached result")
	}
	if res.Breakdown.Tasks.Present() {
		t.Error("tasks should be absent after a failed read")
	}
	if len(res.Breakdown.Metrics.Scores) != 1 || res.Breakdown.Metrics.Percentage != 100 {
		t.Errorf("expected only m1 scored at 100, got %+v", res.Breakdown.Metrics)
	}
	// criteria 50 @ 40, metrics 100 @ 20
	if res.Breakdown.Overall != 67 {
		t.Errorf("Overall = %d, want 67", res.Breakdown.Overall)
	}
	if len(res.Degraded) != 2 {
		t.Errorf("Degraded = %v, want tasks and metric_logs", res.Degraded)
	}

	// A degraded result is recomputed on the next load even with the same version.
	repo.taskErr = nil
	l.Load(context.Background(), "g1", nil)
	if got := repo.taskCalls.Load(); got != 2 {
		t.Errorf("GetTasksByGoal called %d times, want 2", got)
	}
}

func TestWarmBatchesConcurrency(t *testing.T) {
	repo := newMockReader()
	repo.taskDelay = 20 * time.Millisecond

	var ids []string
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		repo.setGoal(newGoal(id, testNow))
		ids = append(ids, id)
	}

	l := newTestLoader(t, repo)
	l.Warm(context.Background(), ids)

	if got := repo.maxFlight.Load(); got > 5 {
		t.Errorf("max concurrent loads = %d, want <= 5", got)
	}
	if got := repo.taskCalls.Load(); got != int32(len(ids)) {
		t.Errorf("GetTasksByGoal called %d times, want %d", got, len(ids))
	}
	if got := len(l.Results()); got != len(ids) {
		t.Errorf("len(Results()) = %d, want %d", got, len(ids))
	}
}

func TestWarmGoalsUsesSuppliedRecords(t *testing.T) {
	repo := newMockReader()
	goals := []models.Goal{newGoal("a", testNow), newGoal("b", testNow)}

	p := models.DefaultPolicy()
	p.LoaderBatchSize = 1
	l := newTestLoader(t, repo, WithPolicy(p))
	l.WarmGoals(context.Background(), goals)

	if got := repo.goalCalls.Load(); got != 0 {
		t.Errorf("GetGoal called %d times, want 0", got)
	}
	if got := repo.maxFlight.Load(); got > 1 {
		t.Errorf("max concurrent loads = %d, want 1", got)
	}
	for _, g := range goals {
		if _, ok := l.Get(g.ID); !ok {
			t.Errorf("missing result for %s", g.ID)
		}
	}
}

func TestWarmStopsWhenContextCancelled(t *testing.T) {
	repo := newMockReader()
	repo.setGoal(newGoal("a", testNow))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := newTestLoader(t, repo)
	l.Warm(ctx, []string{"a"})

	if got := repo.taskCalls.Load(); got != 0 {
		t.Errorf("GetTasksByGoal called %d times, want 0", got)
	}
}

func TestInvalidateAndPurge(t *testing.T) {
	repo := newMockReader()
	repo.setGoal(newGoal("a", testNow))
	repo.setGoal(newGoal("b", testNow))

	l := newTestLoader(t, repo)
	l.Warm(context.Background(), []string{"a", "b"})

	l.Invalidate("a")
	if _, ok := l.Get("a"); ok {
		t.Error("expected a to be invalidated")
	}
	if _, ok := l.Get("b"); !ok {
		t.Error("expected b to remain cached")
	}

	l.Purge()
	if got := len(l.Results()); got != 0 {
		t.Errorf("len(Results()) = %d after Purge, want 0", got)
	}
}
