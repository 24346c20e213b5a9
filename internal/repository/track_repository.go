package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/fieldtrace/replay-backend-go/internal/models"
)

// TrackRepository handles database operations for ingested trace points
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new track repository
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// SaveBatch inserts a batch of points for one subject and day. Duplicate
// points (same timestamp, source and device tag) are ignored so re-ingesting
// a day is idempotent. Returns the number of newly stored points.
func (r *TrackRepository) SaveBatch(subjectID, date string, points []models.GeoPoint) (int64, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO track_points
		(subject_id, date, latitude, longitude, accuracy, timestamp, source, device_tag)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	var stored int64
	for _, p := range points {
		res, err := stmt.Exec(subjectID, date, p.Latitude, p.Longitude, p.Accuracy, p.Timestamp, string(p.Source), p.DeviceTag)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("failed to insert point at %d: %w", p.Timestamp, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			stored += n
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return stored, nil
}

// GetPoints retrieves stored points with filtering and pagination
func (r *TrackRepository) GetPoints(filter models.PointFilter) ([]models.GeoPoint, int64, error) {
	query := `SELECT latitude, longitude, accuracy, timestamp, source, device_tag
		FROM track_points`

	var conditions []string
	var args []interface{}

	if filter.SubjectID != "" {
		conditions = append(conditions, "subject_id = ?")
		args = append(args, filter.SubjectID)
	}
	if filter.Date != "" {
		conditions = append(conditions, "date = ?")
		args = append(args, filter.Date)
	}
	if filter.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, filter.Source)
	}
	if filter.StartTime > 0 {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, filter.StartTime)
	}
	if filter.EndTime > 0 {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, filter.EndTime)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM track_points"
	if len(conditions) > 0 {
		countQuery += " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count points: %w", err)
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 5000
	}
	if filter.PageSize > 50000 {
		filter.PageSize = 50000
	}

	offset := (filter.Page - 1) * filter.PageSize
	query += " ORDER BY timestamp ASC LIMIT ? OFFSET ?"
	args = append(args, filter.PageSize, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query points: %w", err)
	}
	defer rows.Close()

	var points []models.GeoPoint
	for rows.Next() {
		var p models.GeoPoint
		var source string
		if err := rows.Scan(&p.Latitude, &p.Longitude, &p.Accuracy, &p.Timestamp, &source, &p.DeviceTag); err != nil {
			return nil, 0, fmt.Errorf("failed to scan point: %w", err)
		}
		p.Source = models.Source(source)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate points: %w", err)
	}

	return points, total, nil
}

// GetDay retrieves every stored point for one subject and day in timestamp
// order, without pagination.
func (r *TrackRepository) GetDay(subjectID, date string) ([]models.GeoPoint, error) {
	rows, err := r.db.Query(`SELECT latitude, longitude, accuracy, timestamp, source, device_tag
		FROM track_points
		WHERE subject_id = ? AND date = ?
		ORDER BY timestamp ASC`, subjectID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query day: %w", err)
	}
	defer rows.Close()

	var points []models.GeoPoint
	for rows.Next() {
		var p models.GeoPoint
		var source string
		if err := rows.Scan(&p.Latitude, &p.Longitude, &p.Accuracy, &p.Timestamp, &source, &p.DeviceTag); err != nil {
			return nil, fmt.Errorf("failed to scan point: %w", err)
		}
		p.Source = models.Source(source)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate day: %w", err)
	}

	return points, nil
}

// ListDates returns the distinct dates that have stored points for a
// subject, newest first.
func (r *TrackRepository) ListDates(subjectID string) ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT date FROM track_points
		WHERE subject_id = ? ORDER BY date DESC`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan date: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}
