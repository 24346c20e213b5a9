package database

import (
	"database/sql"
	"fmt"
	"log"
)

// Migration is one versioned schema change
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// The schema ships embedded; there is no migrations directory to deploy.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_track_points",
		SQL: `
			CREATE TABLE IF NOT EXISTS track_points (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				subject_id TEXT NOT NULL,
				date TEXT NOT NULL,
				latitude REAL NOT NULL,
				longitude REAL NOT NULL,
				accuracy REAL NOT NULL DEFAULT 0,
				timestamp INTEGER NOT NULL,
				source TEXT NOT NULL,
				device_tag TEXT NOT NULL DEFAULT '',
				UNIQUE(subject_id, date, timestamp, source, device_tag)
			);
			CREATE INDEX IF NOT EXISTS idx_track_points_day
				ON track_points(subject_id, date, timestamp);
		`,
	},
	{
		Version: 2,
		Name:    "create_break_annotations",
		SQL: `
			CREATE TABLE IF NOT EXISTS break_annotations (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				subject_id TEXT NOT NULL,
				date TEXT NOT NULL,
				start_timestamp INTEGER NOT NULL,
				end_timestamp INTEGER NOT NULL,
				latitude REAL NOT NULL DEFAULT 0,
				longitude REAL NOT NULL DEFAULT 0,
				annotations TEXT NOT NULL DEFAULT '',
				UNIQUE(subject_id, date, start_timestamp)
			);
			CREATE INDEX IF NOT EXISTS idx_break_annotations_day
				ON break_annotations(subject_id, date);
		`,
	},
}

// Migrate applies all pending schema migrations, tracking them in the
// migrations table.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := appliedVersions(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		if err := apply(db, m); err != nil {
			return err
		}
	}

	return nil
}

func appliedVersions(db *sql.DB) (map[int]bool, error) {
	rows, err := db.Query("SELECT version FROM migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

func apply(db *sql.DB, m Migration) error {
	return Transaction(db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(m.SQL); err != nil {
			return fmt.Errorf("failed to execute migration %d: %w", m.Version, err)
		}
		if _, err := tx.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)", m.Version, m.Name); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		log.Printf("[Database] Applied migration %d: %s", m.Version, m.Name)
		return nil
	})
}
