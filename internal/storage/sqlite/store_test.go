package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/stride/internal/models"
	"github.com/julianstephens/stride/internal/storage"
)

var testNow = time.Date(2024, 3, 15, 18, 0, 0, 0, time.UTC)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "stride.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func ptr[T any](v T) *T { return &v }

func addGoal(t *testing.T, s *Store, id string) models.Goal {
	t.Helper()
	g := models.Goal{
		ID:        id,
		Title:     "Goal " + id,
		Status:    models.GoalActive,
		CreatedAt: testNow.AddDate(0, 0, -10),
		UpdatedAt: testNow.AddDate(0, 0, -10),
	}
	if err := s.AddGoal(g); err != nil {
		t.Fatalf("AddGoal(%s) error = %v", id, err)
	}
	return g
}

func TestLoadBeforeInit(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.db"))
	if err := store.Load(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Load() error = %v, want ErrNotInitialized", err)
	}
}

func TestInitIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stride.db")

	first := NewStore(path)
	if err := first.Init(); err != nil {
		t.Fatalf("first Init() error = %v", err)
	}
	addGoal(t, first, "g1")
	first.Close()

	second := NewStore(path)
	if err := second.Init(); err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	defer second.Close()

	if _, err := second.GetGoal(context.Background(), "g1"); err != nil {
		t.Errorf("goal lost after re-init: %v", err)
	}
}

func TestSchemaTables(t *testing.T) {
	store := setupTestStore(t)

	for _, table := range []string{"goals", "tasks", "task_goals", "metrics", "metric_goals", "metric_logs", "habits", "habit_goals", "habit_logs", "schema_version"} {
		exists, err := store.tableExists(table)
		if err != nil {
			t.Fatalf("tableExists(%s) error = %v", table, err)
		}
		if !exists {
			t.Errorf("table %s missing after Init", table)
		}
	}

	current, latest, err := store.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if current != latest || current < 1 {
		t.Errorf("SchemaVersion() = %d, %d; want equal and >= 1", current, latest)
	}
}

func TestGoalRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	completedAt := testNow.Add(-time.Hour)
	g := models.Goal{
		ID:         "g1",
		Title:      "Run a marathon",
		Area:       "health",
		Status:     models.GoalActive,
		Priority:   2,
		TargetDate: ptr(testNow.AddDate(0, 3, 0)),
		SuccessCriteria: []models.SuccessCriterion{
			{Text: "Run 10k", IsCompleted: true, CompletedAt: &completedAt},
			{Text: "Run 21k"},
		},
		ProgressConfig: &models.ProgressConfig{CriteriaWeight: 10, TasksWeight: 0, MetricsWeight: 60, HabitsWeight: 30},
		CreatedAt:      testNow.AddDate(0, -1, 0),
		UpdatedAt:      testNow,
	}
	if err := store.AddGoal(g); err != nil {
		t.Fatalf("AddGoal() error = %v", err)
	}

	got, err := store.GetGoal(ctx, "g1")
	if err != nil {
		t.Fatalf("GetGoal() error = %v", err)
	}
	if got.Title != g.Title || got.Area != g.Area || got.Priority != 2 || got.Status != models.GoalActive {
		t.Errorf("GetGoal() = %+v", got)
	}
	if got.TargetDate == nil || !got.TargetDate.Equal(*g.TargetDate) {
		t.Errorf("TargetDate = %v, want %v", got.TargetDate, g.TargetDate)
	}
	if len(got.SuccessCriteria) != 2 || !got.SuccessCriteria[0].IsCompleted {
		t.Errorf("SuccessCriteria = %+v", got.SuccessCriteria)
	}
	if got.ProgressConfig == nil || got.ProgressConfig.MetricsWeight != 60 {
		t.Errorf("ProgressConfig = %+v", got.ProgressConfig)
	}
	if got.VersionToken() != g.VersionToken() {
		t.Errorf("VersionToken() = %q, want %q", got.VersionToken(), g.VersionToken())
	}

	got.Status = models.GoalAchieved
	got.CompletedDate = ptr(testNow)
	got.UpdatedAt = testNow.Add(time.Minute)
	if err := store.UpdateGoal(got); err != nil {
		t.Fatalf("UpdateGoal() error = %v", err)
	}
	updated, _ := store.GetGoal(ctx, "g1")
	if updated.Status != models.GoalAchieved || updated.CompletedDate == nil {
		t.Errorf("update not persisted: %+v", updated)
	}
	if updated.VersionToken() == g.VersionToken() {
		t.Error("VersionToken() did not change after update")
	}
}

func TestGoalWithoutProgressConfig(t *testing.T) {
	store := setupTestStore(t)
	addGoal(t, store, "g1")

	got, err := store.GetGoal(context.Background(), "g1")
	if err != nil {
		t.Fatalf("GetGoal() error = %v", err)
	}
	if got.ProgressConfig != nil {
		t.Errorf("ProgressConfig = %+v, want nil", got.ProgressConfig)
	}
	if len(got.SuccessCriteria) != 0 {
		t.Errorf("SuccessCriteria = %+v, want empty", got.SuccessCriteria)
	}
}

func TestGoalSoftDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	addGoal(t, store, "g1")
	addGoal(t, store, "g2")

	if err := store.DeleteGoal("g1"); err != nil {
		t.Fatalf("DeleteGoal() error = %v", err)
	}
	if _, err := store.GetGoal(ctx, "g1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetGoal() after delete error = %v, want ErrNotFound", err)
	}
	if err := store.DeleteGoal("g1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second DeleteGoal() error = %v, want ErrNotFound", err)
	}

	active, _ := store.GetAllGoals(ctx, false)
	all, _ := store.GetAllGoals(ctx, true)
	if len(active) != 1 || len(all) != 2 {
		t.Errorf("GetAllGoals() = %d active, %d total; want 1, 2", len(active), len(all))
	}

	if err := store.RestoreGoal("g1"); err != nil {
		t.Fatalf("RestoreGoal() error = %v", err)
	}
	if _, err := store.GetGoal(ctx, "g1"); err != nil {
		t.Errorf("GetGoal() after restore error = %v", err)
	}
	if err := store.RestoreGoal("g1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("RestoreGoal() on live goal error = %v, want ErrNotFound", err)
	}
}

func TestTouchGoals(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	before := addGoal(t, store, "g1")
	addGoal(t, store, "g2")

	at := testNow.Add(-time.Minute)
	if err := store.TouchGoals([]string{"g1", "unknown"}, at); err != nil {
		t.Fatalf("TouchGoals() error = %v", err)
	}

	g1, _ := store.GetGoal(ctx, "g1")
	if g1.LastActivityAt == nil || !g1.LastActivityAt.Equal(at) || !g1.UpdatedAt.Equal(at) {
		t.Errorf("g1 not touched: %+v", g1)
	}
	if g1.VersionToken() == before.VersionToken() {
		t.Error("VersionToken() unchanged after touch")
	}

	g2, _ := store.GetGoal(ctx, "g2")
	if g2.LastActivityAt != nil {
		t.Errorf("g2 touched unexpectedly: %+v", g2)
	}
}

func TestTasksByGoal(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	addGoal(t, store, "g1")
	addGoal(t, store, "g2")

	tasks := []models.Task{
		{ID: "t1", Title: "Buy shoes", Status: models.TaskDone, GoalIDs: []string{"g1", "g2"}, CompletedAt: ptr(testNow)},
		{ID: "t2", Title: "Plan route", Status: models.TaskTodo, GoalIDs: []string{"g1"}},
		{ID: "t3", Title: "Unrelated", Status: models.TaskTodo},
	}
	for _, task := range tasks {
		task.CreatedAt, task.UpdatedAt = testNow, testNow
		if err := store.AddTask(task); err != nil {
			t.Fatalf("AddTask(%s) error = %v", task.ID, err)
		}
	}

	got, err := store.GetTasksByGoal(ctx, "g1")
	if err != nil {
		t.Fatalf("GetTasksByGoal() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetTasksByGoal(g1) returned %d tasks, want 2", len(got))
	}

	t1, err := store.GetTask("t1")
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if len(t1.GoalIDs) != 2 || t1.CompletedAt == nil {
		t.Errorf("GetTask(t1) = %+v", t1)
	}

	t1.GoalIDs = []string{"g2"}
	t1.UpdatedAt = testNow.Add(time.Minute)
	if err := store.UpdateTask(t1); err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	got, _ = store.GetTasksByGoal(ctx, "g1")
	if len(got) != 1 || got[0].ID != "t2" {
		t.Errorf("after relink GetTasksByGoal(g1) = %+v", got)
	}

	all, _ := store.GetAllTasks()
	if len(all) != 3 {
		t.Errorf("GetAllTasks() returned %d, want 3", len(all))
	}

	if err := store.UpdateTask(models.Task{ID: "missing"}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("UpdateTask(missing) error = %v, want ErrNotFound", err)
	}
}

func TestMetricsAndLogs(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	addGoal(t, store, "g1")

	m := models.Metric{
		ID: "m1", Name: "weight", Unit: "kg", TargetValue: ptr(75.0), Direction: models.DirectionLower,
		GoalIDs: []string{"g1"}, CreatedAt: testNow, UpdatedAt: testNow,
	}
	if err := store.AddMetric(m); err != nil {
		t.Fatalf("AddMetric() error = %v", err)
	}
	if err := store.AddMetric(models.Metric{ID: "m2", Name: "notes", Direction: models.DirectionHigher, CreatedAt: testNow, UpdatedAt: testNow}); err != nil {
		t.Fatalf("AddMetric(m2) error = %v", err)
	}

	for i, v := range []float64{80, 78, 77} {
		l := models.MetricLog{ID: string(rune('a' + i)), MetricID: "m1", Value: v, LoggedAt: testNow.AddDate(0, 0, i-3)}
		if err := store.AddMetricLog(l); err != nil {
			t.Fatalf("AddMetricLog() error = %v", err)
		}
	}

	linked, err := store.GetMetricsByGoal(ctx, "g1")
	if err != nil {
		t.Fatalf("GetMetricsByGoal() error = %v", err)
	}
	if len(linked) != 1 || linked[0].TargetValue == nil || *linked[0].TargetValue != 75 {
		t.Fatalf("GetMetricsByGoal() = %+v", linked)
	}

	logs, err := store.GetMetricLogs(ctx, "m1")
	if err != nil {
		t.Fatalf("GetMetricLogs() error = %v", err)
	}
	if len(logs) != 3 || logs[0].Value != 80 || logs[2].Value != 77 {
		t.Errorf("GetMetricLogs() = %+v, want oldest first", logs)
	}

	m2, err := store.GetMetric("m2")
	if err != nil {
		t.Fatalf("GetMetric() error = %v", err)
	}
	if m2.TargetValue != nil {
		t.Errorf("m2 TargetValue = %v, want nil", *m2.TargetValue)
	}

	all, _ := store.GetAllMetrics()
	if len(all) != 2 {
		t.Errorf("GetAllMetrics() returned %d, want 2", len(all))
	}
}

func TestHabitsAndLogs(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	addGoal(t, store, "g1")

	for _, h := range []models.Habit{
		{ID: "h1", Name: "stretch", Frequency: models.FrequencyDaily, GoalIDs: []string{"g1"}, CreatedAt: testNow},
		{ID: "h2", Name: "long run", Frequency: models.FrequencyWeekly, GoalIDs: []string{"g1"}, CreatedAt: testNow},
	} {
		if err := store.AddHabit(h); err != nil {
			t.Fatalf("AddHabit(%s) error = %v", h.ID, err)
		}
	}

	if err := store.AddHabitLog(models.HabitLog{ID: "l1", HabitID: "h1", CompletedAt: testNow, Amount: 1, Note: "morning"}); err != nil {
		t.Fatalf("AddHabitLog() error = %v", err)
	}

	linked, err := store.GetHabitsByGoal(ctx, "g1")
	if err != nil {
		t.Fatalf("GetHabitsByGoal() error = %v", err)
	}
	if len(linked) != 2 {
		t.Fatalf("GetHabitsByGoal() returned %d, want 2", len(linked))
	}

	if err := store.ArchiveHabit("h2"); err != nil {
		t.Fatalf("ArchiveHabit() error = %v", err)
	}
	linked, _ = store.GetHabitsByGoal(ctx, "g1")
	if len(linked) != 1 || linked[0].ID != "h1" {
		t.Errorf("archived habit still linked: %+v", linked)
	}

	active, _ := store.GetAllHabits(false)
	all, _ := store.GetAllHabits(true)
	if len(active) != 1 || len(all) != 2 {
		t.Errorf("GetAllHabits() = %d active, %d total; want 1, 2", len(active), len(all))
	}

	logs, err := store.GetHabitLogs(ctx, "h1")
	if err != nil {
		t.Fatalf("GetHabitLogs() error = %v", err)
	}
	if len(logs) != 1 || logs[0].Note != "morning" || !logs[0].CompletedAt.Equal(testNow) {
		t.Errorf("GetHabitLogs() = %+v", logs)
	}
}

func TestCountOrphanLinks(t *testing.T) {
	store := setupTestStore(t)
	addGoal(t, store, "g1")

	if err := store.AddTask(models.Task{ID: "t1", Title: "x", Status: models.TaskTodo, GoalIDs: []string{"g1"}, CreatedAt: testNow, UpdatedAt: testNow}); err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}

	n, err := store.CountOrphanLinks()
	if err != nil {
		t.Fatalf("CountOrphanLinks() error = %v", err)
	}
	if n != 0 {
		t.Errorf("CountOrphanLinks() = %d, want 0", n)
	}

	// Bypass foreign keys on a single connection to simulate a link left
	// behind by an older build.
	ctx := context.Background()
	conn, err := store.GetDB().Conn(ctx)
	if err != nil {
		t.Fatalf("Conn() error = %v", err)
	}
	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		t.Fatalf("disable foreign keys: %v", err)
	}
	if _, err := conn.ExecContext(ctx, "INSERT INTO task_goals (task_id, goal_id) VALUES ('t1', 'ghost')"); err != nil {
		t.Fatalf("insert orphan: %v", err)
	}
	conn.Close()

	n, err = store.CountOrphanLinks()
	if err != nil {
		t.Fatalf("CountOrphanLinks() error = %v", err)
	}
	if n != 1 {
		t.Errorf("CountOrphanLinks() = %d, want 1", n)
	}
}
