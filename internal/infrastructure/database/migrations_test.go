package database

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"
)

func speakerMigrations() fstest.MapFS {
	return fstest.MapFS{
		"20260301_120000_command_log.up.sql": {Data: []byte(
			`CREATE TABLE command_log (id TEXT PRIMARY KEY, route TEXT NOT NULL);`)},
		"20260301_120000_command_log.down.sql": {Data: []byte(`DROP TABLE command_log;`)},
		"20260402_080000_command_value.up.sql": {Data: []byte(
			`ALTER TABLE command_log ADD COLUMN value TEXT NOT NULL DEFAULT '';
			 CREATE INDEX idx_command_log_route ON command_log (route);`)},
		"README.md": {Data: []byte("ignored")},
	}
}

func TestMigrate_AppliesInOrder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.migrate(ctx, speakerMigrations()); err != nil {
		t.Fatalf("migrate() error = %v", err)
	}

	applied, err := db.AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("AppliedMigrations() error = %v", err)
	}
	want := []string{"20260301_120000", "20260402_080000"}
	if strings.Join(applied, ",") != strings.Join(want, ",") {
		t.Errorf("applied = %v, want %v", applied, want)
	}

	// The second migration depends on the first.
	if _, err := db.Exec(`INSERT INTO command_log (id, route, value) VALUES ('a', 'media', '30')`); err != nil {
		t.Errorf("insert after migrate error = %v", err)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := db.migrate(ctx, speakerMigrations()); err != nil {
			t.Fatalf("migrate() run %d error = %v", i+1, err)
		}
	}

	applied, err := db.AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("AppliedMigrations() error = %v", err)
	}
	if len(applied) != 2 {
		t.Errorf("applied = %v, want 2 versions", applied)
	}
}

func TestMigrate_FailureRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"20260301_120000_ok.up.sql":     {Data: []byte(`CREATE TABLE a (x INTEGER);`)},
		"20260302_120000_broken.up.sql": {Data: []byte(`CREATE TABLE b (x INTEGER); NOT SQL;`)},
	}

	err := db.migrate(ctx, fsys)
	if err == nil || !strings.Contains(err.Error(), "20260302_120000") {
		t.Fatalf("migrate() error = %v, want failure naming the broken version", err)
	}

	applied, _ := db.AppliedMigrations(ctx) //nolint:errcheck // checked via length
	if len(applied) != 1 {
		t.Errorf("applied = %v, want only the first migration", applied)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'b'`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Error("table from the failed migration survived rollback")
	}
}

func TestMigrate_NothingRegistered(t *testing.T) {
	RegisterMigrations(nil)
	db := openTestDB(t)

	if err := db.Migrate(context.Background()); !errors.Is(err, ErrNoMigrations) {
		t.Errorf("Migrate() error = %v, want ErrNoMigrations", err)
	}
}

func TestMigrate_Registered(t *testing.T) {
	RegisterMigrations(speakerMigrations())
	t.Cleanup(func() { RegisterMigrations(nil) })
	db := openTestDB(t)

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
}

func TestLoadMigrations_Errors(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
	}{
		{"bad version", fstest.MapFS{"2026_x_name.up.sql": {Data: []byte("SELECT 1;")}}},
		{"invalid date", fstest.MapFS{"20261399_120000_name.up.sql": {Data: []byte("SELECT 1;")}}},
		{"missing name", fstest.MapFS{"20260301_120000.up.sql": {Data: []byte("SELECT 1;")}}},
		{"duplicate version", fstest.MapFS{
			"20260301_120000_a.up.sql": {Data: []byte("SELECT 1;")},
			"20260301_120000_b.up.sql": {Data: []byte("SELECT 1;")},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loadMigrations(tt.fsys); err == nil {
				t.Error("loadMigrations() error = nil, want error")
			}
		})
	}
}

func TestParseMigrationName(t *testing.T) {
	version, name, err := parseMigrationName("20260301_120000_command_log.up.sql")
	if err != nil {
		t.Fatalf("parseMigrationName() error = %v", err)
	}
	if version != "20260301_120000" || name != "command_log" {
		t.Errorf("got (%q, %q)", version, name)
	}
}
