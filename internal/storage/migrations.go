package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS issues (
					id TEXT PRIMARY KEY,
					raised_by TEXT NOT NULL,
					roll_no TEXT NOT NULL,
					issue TEXT NOT NULL,
					raised_at DATETIME NOT NULL,
					user_score REAL NOT NULL,
					status TEXT NOT NULL,
					category TEXT NOT NULL,
					resolved_at DATETIME
				)`,
				`CREATE INDEX idx_issues_status ON issues(status)`,
				`CREATE INDEX idx_issues_category ON issues(category)`,

				`CREATE TABLE IF NOT EXISTS feedback (
					id TEXT PRIMARY KEY,
					email TEXT NOT NULL,
					roll_no TEXT NOT NULL,
					answers TEXT NOT NULL,
					submitted_at DATETIME NOT NULL,
					time_taken REAL NOT NULL,
					floor_no INTEGER NOT NULL DEFAULT 0,
					issue_presence BOOLEAN NOT NULL DEFAULT 0,
					issue_id TEXT REFERENCES issues(id)
				)`,
				`CREATE INDEX idx_feedback_submitted_at ON feedback(submitted_at)`,
				`CREATE INDEX idx_feedback_roll_no ON feedback(roll_no)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Track submitters for the resubmission cooldown",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS users (
					email TEXT PRIMARY KEY,
					roll_no TEXT NOT NULL,
					last_login DATETIME NOT NULL,
					last_feedback DATETIME
				)`,
			)
		},
	},
	{
		Version:     3,
		Description: "Add submission activity log",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS user_logs (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					roll_no TEXT NOT NULL,
					logged_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_user_logs_logged_at ON user_logs(logged_at)`,
			)
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

// Migrate brings the schema up to ExpectedSchemaVersion.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion returns the applied schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
