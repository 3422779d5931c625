package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	upSuffix       = ".up.sql"
	versionLayout  = "20060102_150405"
	migrationTable = "schema_migrations"
)

// ErrNoMigrations is returned by Migrate when nothing was registered.
var ErrNoMigrations = errors.New("database: no migrations registered")

var (
	sourceMu sync.RWMutex
	source   fs.FS
)

// RegisterMigrations sets the filesystem Migrate reads *.up.sql files from.
// The migrations package calls it from init with its embedded files.
func RegisterMigrations(fsys fs.FS) {
	sourceMu.Lock()
	source = fsys
	sourceMu.Unlock()
}

func registered() fs.FS {
	sourceMu.RLock()
	defer sourceMu.RUnlock()
	return source
}

// migration is one forward schema step.
type migration struct {
	version string
	name    string
	sql     string
}

// Migrate applies every registered migration not yet recorded in
// schema_migrations, oldest first, each in its own transaction.
// Down files are kept for operators; the bridge only migrates forward.
func (db *DB) Migrate(ctx context.Context) error {
	fsys := registered()
	if fsys == nil {
		return ErrNoMigrations
	}
	return db.migrate(ctx, fsys)
}

func (db *DB) migrate(ctx context.Context, fsys fs.FS) error {
	pending, err := loadMigrations(fsys)
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+migrationTable+` (
		version    TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("creating %s: %w", migrationTable, err)
	}

	applied, err := db.AppliedMigrations(ctx)
	if err != nil {
		return err
	}
	done := make(map[string]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	for _, m := range pending {
		if done[m.version] {
			continue
		}
		if err := db.apply(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) apply(ctx context.Context, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %s: begin: %w", m.version, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return fmt.Errorf("migration %s (%s): %w", m.version, m.name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO `+migrationTable+` (version, name, applied_at) VALUES (?, ?, ?)`,
		m.version, m.name, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("migration %s: recording: %w", m.version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migration %s: commit: %w", m.version, err)
	}
	return nil
}

// AppliedMigrations returns the recorded versions, oldest first.
func (db *DB) AppliedMigrations(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM `+migrationTable+` ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", migrationTable, err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", migrationTable, err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// loadMigrations reads YYYYMMDD_HHMMSS_name.up.sql files from the root of
// fsys, sorted by version.
func loadMigrations(fsys fs.FS) ([]migration, error) {
	files, err := fs.Glob(fsys, "*"+upSuffix)
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}

	migrations := make([]migration, 0, len(files))
	seen := make(map[string]string, len(files))
	for _, file := range files {
		version, name, err := parseMigrationName(file)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migration version %s used by %s and %s", version, prev, file)
		}
		seen[version] = file

		body, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}
		migrations = append(migrations, migration{version: version, name: name, sql: string(body)})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].version < migrations[j].version })
	return migrations, nil
}

// parseMigrationName splits "20260301_120000_command_log.up.sql" into
// version "20260301_120000" and name "command_log".
func parseMigrationName(file string) (version, name string, err error) {
	base := strings.TrimSuffix(file, upSuffix)
	if len(base) < len(versionLayout)+2 || base[len(versionLayout)] != '_' {
		return "", "", fmt.Errorf("migration %q: want YYYYMMDD_HHMMSS_name%s", file, upSuffix)
	}
	version = base[:len(versionLayout)]
	if _, err := time.Parse(versionLayout, version); err != nil {
		return "", "", fmt.Errorf("migration %q: bad version: %w", file, err)
	}
	return version, base[len(versionLayout)+1:], nil
}
