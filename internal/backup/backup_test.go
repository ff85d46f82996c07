package backup

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/stride/internal/models"
	"github.com/julianstephens/stride/internal/storage/sqlite"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.Local)

// setupTestDB creates a stride database holding the given goal titles and
// closes it so the file can be snapshotted or replaced.
func setupTestDB(t *testing.T, titles ...string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "stride.db")
	store := sqlite.NewStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	for i, title := range titles {
		addGoal(t, store, title, i)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return dbPath
}

func addGoal(t *testing.T, store *sqlite.Store, title string, i int) {
	t.Helper()
	created := testNow.AddDate(0, 0, -i-1)
	err := store.AddGoal(models.Goal{
		ID:        "goal-" + strings.ReplaceAll(strings.ToLower(title), " ", "-"),
		Title:     title,
		Status:    models.GoalActive,
		CreatedAt: created,
		UpdatedAt: created,
	})
	if err != nil {
		t.Fatalf("AddGoal() error = %v", err)
	}
}

func goalTitles(t *testing.T, dbPath string) []string {
	t.Helper()
	store := sqlite.NewStore(dbPath)
	if err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer store.Close()

	goals, err := store.GetAllGoals(context.Background(), false)
	if err != nil {
		t.Fatalf("GetAllGoals() error = %v", err)
	}
	var titles []string
	for _, g := range goals {
		titles = append(titles, g.Title)
	}
	return titles
}

func fixedClock() func() time.Time {
	return func() time.Time { return testNow }
}

func TestCreate(t *testing.T) {
	dbPath := setupTestDB(t, "Run a marathon", "Learn Go")
	mgr := NewManager(dbPath, WithClock(fixedClock()))

	info, err := mgr.Create(context.Background())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if info.Name != "stride-20240315-120000.db" {
		t.Errorf("Name = %q, want stride-20240315-120000.db", info.Name)
	}
	if filepath.Dir(info.Path) != filepath.Join(filepath.Dir(dbPath), DirName) {
		t.Errorf("Path = %q, want it inside %s", info.Path, mgr.Dir())
	}
	if !info.Timestamp.Equal(testNow) {
		t.Errorf("Timestamp = %v, want %v", info.Timestamp, testNow)
	}
	if info.Size == 0 {
		t.Error("Size = 0, want a non-empty snapshot")
	}

	if got := goalTitles(t, info.Path); len(got) != 2 {
		t.Errorf("snapshot holds %d goals, want 2", len(got))
	}
}

func TestCreateWithoutDatabase(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "missing.db"))

	_, err := mgr.Create(context.Background())
	if !errors.Is(err, ErrNoDatabase) {
		t.Errorf("Create() error = %v, want ErrNoDatabase", err)
	}
	if _, err := os.Stat(mgr.Dir()); !os.IsNotExist(err) {
		t.Error("backup directory should not be created when the database is missing")
	}
}

func TestCreateSameSecondNames(t *testing.T) {
	dbPath := setupTestDB(t, "Learn Go")
	mgr := NewManager(dbPath, WithClock(fixedClock()))

	want := []string{
		"stride-20240315-120000.db",
		"stride-20240315-120000-1.db",
		"stride-20240315-120000-2.db",
	}
	for i, name := range want {
		info, err := mgr.Create(context.Background())
		if err != nil {
			t.Fatalf("Create() #%d error = %v", i, err)
		}
		if info.Name != name {
			t.Errorf("Create() #%d name = %q, want %q", i, info.Name, name)
		}
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(backups) != 3 {
		t.Fatalf("List() returned %d backups, want 3", len(backups))
	}
	// Same timestamp: the later counter is the newer snapshot.
	if backups[0].Name != want[2] || backups[2].Name != want[0] {
		t.Errorf("List() order = %s, %s, %s", backups[0].Name, backups[1].Name, backups[2].Name)
	}
}

func TestRotation(t *testing.T) {
	dbPath := setupTestDB(t, "Learn Go")

	now := testNow
	mgr := NewManager(dbPath, WithRetention(3), WithClock(func() time.Time { return now }))

	var names []string
	for i := 0; i < 5; i++ {
		info, err := mgr.Create(context.Background())
		if err != nil {
			t.Fatalf("Create() #%d error = %v", i, err)
		}
		names = append(names, info.Name)
		now = now.Add(time.Hour)
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(backups) != 3 {
		t.Fatalf("List() returned %d backups after rotation, want 3", len(backups))
	}
	for i, b := range backups {
		if want := names[len(names)-1-i]; b.Name != want {
			t.Errorf("backups[%d] = %q, want %q", i, b.Name, want)
		}
	}
}

func TestListIgnoresForeignFiles(t *testing.T) {
	dbPath := setupTestDB(t, "Learn Go")
	mgr := NewManager(dbPath, WithClock(fixedClock()))
	if _, err := mgr.Create(context.Background()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for _, name := range []string{
		"notes.txt",
		"backup-20240101-0900.db",
		"stride-latest.db",
		"stride-20240315-120000-x.db",
	} {
		if err := os.WriteFile(filepath.Join(mgr.Dir(), name), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(mgr.Dir(), "stride-20240101-000000.db"), 0o700); err != nil {
		t.Fatal(err)
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(backups) != 1 {
		t.Errorf("List() returned %d backups, want 1", len(backups))
	}
}

func TestListWithoutDirectory(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "stride.db"))

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(backups) != 0 {
		t.Errorf("List() returned %d backups, want 0", len(backups))
	}
}

func TestParseName(t *testing.T) {
	tests := []struct {
		name    string
		wantOK  bool
		wantSeq int
	}{
		{"stride-20240315-120000.db", true, 0},
		{"stride-20240315-120000-7.db", true, 7},
		{"stride-20240315-120000-0.db", false, 0},
		{"stride-20240315-1200.db", false, 0},
		{"stride-20241315-120000.db", false, 0},
		{"stride-20240315-120000x1.db", false, 0},
		{"stride-20240315-120000.sqlite", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, seq, ok := parseName(tt.name)
			if ok != tt.wantOK {
				t.Fatalf("parseName() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if seq != tt.wantSeq {
				t.Errorf("seq = %d, want %d", seq, tt.wantSeq)
			}
			if !ts.Equal(testNow) {
				t.Errorf("timestamp = %v, want %v", ts, testNow)
			}
		})
	}
}

func TestRestore(t *testing.T) {
	dbPath := setupTestDB(t, "Run a marathon")
	now := testNow
	mgr := NewManager(dbPath, WithClock(func() time.Time { return now }))

	snapshot, err := mgr.Create(context.Background())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	store := sqlite.NewStore(dbPath)
	if err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	addGoal(t, store, "Learn Go", 1)
	store.Close()

	if got := goalTitles(t, dbPath); len(got) != 2 {
		t.Fatalf("database holds %d goals before restore, want 2", len(got))
	}

	now = now.Add(time.Minute)
	safety, err := mgr.Restore(context.Background(), snapshot.Path)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	if got := goalTitles(t, dbPath); len(got) != 1 || got[0] != "Run a marathon" {
		t.Errorf("restored goals = %v, want [Run a marathon]", got)
	}

	if safety == nil {
		t.Fatal("Restore() should snapshot the current database first")
	}
	if safety.Name != "stride-20240315-120100.db" {
		t.Errorf("safety snapshot = %q", safety.Name)
	}
	if got := goalTitles(t, safety.Path); len(got) != 2 {
		t.Errorf("safety snapshot holds %d goals, want 2", len(got))
	}
	if _, err := os.Stat(dbPath + ".restore.tmp"); !os.IsNotExist(err) {
		t.Error("temporary restore file left behind")
	}
}

func TestRestoreWithoutCurrentDatabase(t *testing.T) {
	dbPath := setupTestDB(t, "Learn Go")
	mgr := NewManager(dbPath, WithClock(fixedClock()))

	snapshot, err := mgr.Create(context.Background())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := os.Remove(dbPath); err != nil {
		t.Fatal(err)
	}

	safety, err := mgr.Restore(context.Background(), snapshot.Path)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if safety != nil {
		t.Errorf("Restore() safety = %+v, want nil when there is no current database", safety)
	}
	if got := goalTitles(t, dbPath); len(got) != 1 {
		t.Errorf("restored database holds %d goals, want 1", len(got))
	}
}

func TestRestoreRejectsInvalidBackups(t *testing.T) {
	dbPath := setupTestDB(t, "Learn Go")
	mgr := NewManager(dbPath, WithClock(fixedClock()))
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.db")
	if err := os.WriteFile(garbage, []byte("this is not a sqlite database"), 0o600); err != nil {
		t.Fatal(err)
	}

	// A valid SQLite file without the stride schema.
	foreign := filepath.Join(dir, "foreign.db")
	db, err := sql.Open("sqlite", "file:"+foreign)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "missing.db")},
		{"not sqlite", garbage},
		{"no goals table", foreign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := mgr.Restore(context.Background(), tt.path); err == nil {
				t.Error("Restore() expected error")
			}
			if got := goalTitles(t, dbPath); len(got) != 1 {
				t.Errorf("database holds %d goals after a failed restore, want 1", len(got))
			}
		})
	}
}

func TestResolve(t *testing.T) {
	mgr := NewManager(filepath.Join("data", "stride.db"))

	if got, want := mgr.Resolve("stride-20240315-120000.db"), filepath.Join("data", DirName, "stride-20240315-120000.db"); got != want {
		t.Errorf("Resolve(name) = %q, want %q", got, want)
	}
	path := filepath.Join("elsewhere", "copy.db")
	if got := mgr.Resolve(path); got != path {
		t.Errorf("Resolve(path) = %q, want %q", got, path)
	}
}
