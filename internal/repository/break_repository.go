package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fieldtrace/replay-backend-go/internal/models"
)

// BreakRepository stores authoritative break lists supplied by upstream
// annotation tooling. When a day has stored breaks they supersede gap
// detection entirely.
type BreakRepository struct {
	db *sql.DB
}

// NewBreakRepository creates a new break repository
func NewBreakRepository(db *sql.DB) *BreakRepository {
	return &BreakRepository{db: db}
}

// ReplaceDay replaces the authoritative break list for one subject and day
func (r *BreakRepository) ReplaceDay(subjectID, date string, breaks []models.BreakPeriod) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if _, err := tx.Exec(`DELETE FROM break_annotations WHERE subject_id = ? AND date = ?`, subjectID, date); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear breaks: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO break_annotations
		(subject_id, date, start_timestamp, end_timestamp, latitude, longitude, annotations)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, b := range breaks {
		annotations := ""
		if len(b.Annotations) > 0 {
			data, err := json.Marshal(b.Annotations)
			if err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to encode annotations for break at %d: %w", b.StartTime, err)
			}
			annotations = string(data)
		}
		if _, err := stmt.Exec(subjectID, date, b.StartTime, b.EndTime, b.CenterLat, b.CenterLng, annotations); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert break at %d: %w", b.StartTime, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetDay returns the stored authoritative breaks for one subject and day,
// ordered by start time. An empty slice means no authoritative list exists
// and gap detection applies.
func (r *BreakRepository) GetDay(subjectID, date string) ([]models.BreakPeriod, error) {
	rows, err := r.db.Query(`SELECT start_timestamp, end_timestamp, latitude, longitude, annotations
		FROM break_annotations
		WHERE subject_id = ? AND date = ?
		ORDER BY start_timestamp ASC`, subjectID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query breaks: %w", err)
	}
	defer rows.Close()

	var breaks []models.BreakPeriod
	for rows.Next() {
		var b models.BreakPeriod
		var annotations string
		if err := rows.Scan(&b.StartTime, &b.EndTime, &b.CenterLat, &b.CenterLng, &annotations); err != nil {
			return nil, fmt.Errorf("failed to scan break: %w", err)
		}
		if annotations != "" {
			if err := json.Unmarshal([]byte(annotations), &b.Annotations); err != nil {
				return nil, fmt.Errorf("failed to decode annotations for break at %d: %w", b.StartTime, err)
			}
		}
		b.DurationMs = b.EndTime - b.StartTime
		b.Authoritative = true
		breaks = append(breaks, b)
	}
	return breaks, rows.Err()
}
