package audit

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/cast-bridge/internal/infrastructure/database"
	_ "github.com/nerrad567/cast-bridge/migrations"
)

// openTestRepo opens a migrated SQLite database in a temp dir.
func openTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "audit.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	return NewSQLiteRepository(db.DB)
}

func TestCreate_GeneratesIDAndTimestamp(t *testing.T) {
	repo := openTestRepo(t)

	log := &CommandLog{Route: "media", DeviceID: "5", Value: "30", Success: true}
	if err := repo.Create(context.Background(), log); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if !strings.HasPrefix(log.ID, "cmd-") {
		t.Errorf("ID = %q, want cmd- prefix", log.ID)
	}
	if log.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestList_RoundTripAndOrder(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []*CommandLog{
		{Route: "siren", DeviceID: "5", Value: "off", Success: true, CreatedAt: base},
		{Route: "media", DeviceID: "5", Value: "30", Success: false, Error: "status 500", CreatedAt: base.Add(time.Second)},
		{Route: "refresh", Success: true, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	result, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 3 || len(result.Logs) != 3 {
		t.Fatalf("List() total=%d len=%d, want 3", result.Total, len(result.Logs))
	}
	if result.Logs[0].Route != "refresh" {
		t.Errorf("first log route = %q, want newest (refresh)", result.Logs[0].Route)
	}

	failed := result.Logs[1]
	if failed.Success || failed.Error != "status 500" || failed.Value != "30" {
		t.Errorf("failed entry = %+v", failed)
	}
	if !failed.CreatedAt.Equal(base.Add(time.Second)) {
		t.Errorf("CreatedAt = %v, want %v", failed.CreatedAt, base.Add(time.Second))
	}
}

func TestList_Filters(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	for _, e := range []*CommandLog{
		{Route: "siren", DeviceID: "5", Success: true},
		{Route: "media", DeviceID: "5", Success: false},
		{Route: "media", DeviceID: "7", Success: true},
		{Route: "assistant", DeviceID: "1", Success: true},
	} {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"by route", Filter{Route: "media"}, 2},
		{"by device", Filter{DeviceID: "5"}, 2},
		{"route and device", Filter{Route: "media", DeviceID: "7"}, 1},
		{"failed only", Filter{Failed: true}, 1},
		{"no match", Filter{Route: "refresh"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if result.Total != tt.want || len(result.Logs) != tt.want {
				t.Errorf("List() total=%d len=%d, want %d", result.Total, len(result.Logs), tt.want)
			}
		})
	}
}

func TestList_ClampsPaging(t *testing.T) {
	repo := openTestRepo(t)

	result, err := repo.List(context.Background(), Filter{Limit: 1000, Offset: -5})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Limit != maxLimit {
		t.Errorf("Limit = %d, want %d", result.Limit, maxLimit)
	}
	if result.Offset != 0 {
		t.Errorf("Offset = %d, want 0", result.Offset)
	}
	if result.Logs == nil {
		t.Error("Logs = nil, want empty slice")
	}
}
