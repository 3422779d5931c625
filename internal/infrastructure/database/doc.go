// Package database provides SQLite connectivity for the cast bridge.
//
// The bridge keeps no device state on disk; SQLite only stores the
// command audit trail (see internal/audit).
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Embedded schema migrations (schema_migrations table)
//   - Connection pooling and lifecycle management
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{
//	    Path:        cfg.Database.Path,
//	    WALMode:     cfg.Database.WALMode,
//	    BusyTimeout: cfg.Database.BusyTimeout,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql, and are registered by the migrations package.
package database
