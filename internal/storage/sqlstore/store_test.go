package sqlstore

import (
	"testing"
	"time"

	"github.com/julianstephens/stride/internal/migration"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		name   string
		driver migration.Driver
		query  string
		want   string
	}{
		{"sqlite unchanged", migration.DriverSQLite, "SELECT * FROM goals WHERE id = ? AND status = ?", "SELECT * FROM goals WHERE id = ? AND status = ?"},
		{"postgres numbered", migration.DriverPostgres, "SELECT * FROM goals WHERE id = ? AND status = ?", "SELECT * FROM goals WHERE id = $1 AND status = $2"},
		{"postgres no placeholders", migration.DriverPostgres, "SELECT COUNT(*) FROM goals", "SELECT COUNT(*) FROM goals"},
		{"postgres many", migration.DriverPostgres, "VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", "VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.driver)
			if got := s.rebind(tt.query); got != tt.want {
				t.Errorf("rebind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTimestampsSortLexically(t *testing.T) {
	base := time.Date(2024, 3, 15, 9, 0, 0, 0, time.FixedZone("EST", -5*3600))
	times := []time.Time{
		base,
		base.Add(time.Nanosecond),
		base.Add(time.Millisecond),
		base.Add(90 * time.Minute),
		base.AddDate(1, 0, 0),
	}

	for i := 1; i < len(times); i++ {
		prev, cur := formatTime(times[i-1]), formatTime(times[i])
		if len(prev) != len(cur) {
			t.Errorf("formatTime() widths differ: %q vs %q", prev, cur)
		}
		if prev >= cur {
			t.Errorf("formatTime(%v) = %q not before %q", times[i], cur, prev)
		}
	}
}

func TestTimeParser(t *testing.T) {
	want := time.Date(2024, 3, 15, 14, 0, 0, 123, time.UTC)

	var p timeParser
	got := p.at(formatTime(want))
	if p.err != nil || !got.Equal(want) {
		t.Fatalf("at() = %v, %v; want %v", got, p.err, want)
	}

	if p.ptr(nullTime(nil)) != nil {
		t.Error("ptr(NULL) should be nil")
	}

	p.at("yesterday")
	if p.err == nil {
		t.Fatal("expected parse error")
	}
	first := p.err
	p.at("also bad")
	if p.err != first {
		t.Error("timeParser should keep the first error")
	}
}
