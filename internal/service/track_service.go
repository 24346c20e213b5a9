package service

import (
	"fmt"
	"math"

	"github.com/fieldtrace/replay-backend-go/internal/ingest"
	"github.com/fieldtrace/replay-backend-go/internal/models"
	"github.com/fieldtrace/replay-backend-go/internal/repository"
	"github.com/fieldtrace/replay-backend-go/internal/stats"
)

// TrackService handles ingestion and retrieval of day traces
type TrackService struct {
	trackRepo *repository.TrackRepository
	breakRepo *repository.BreakRepository
}

// NewTrackService creates a new track service
func NewTrackService(trackRepo *repository.TrackRepository, breakRepo *repository.BreakRepository) *TrackService {
	return &TrackService{
		trackRepo: trackRepo,
		breakRepo: breakRepo,
	}
}

// IngestDay validates and stores a batch of points for one subject and day.
// Corrupt coordinates are dropped before storage. Returns the number of
// newly stored points and the number dropped.
func (s *TrackService) IngestDay(subjectID, date string, points []models.GeoPoint) (int64, int, error) {
	for _, p := range points {
		if p.Source != "" && !p.Source.Valid() {
			return 0, 0, fmt.Errorf("unknown source %q", p.Source)
		}
	}

	clean := ingest.FilterPoints(points)
	dropped := len(points) - len(clean)

	stored, err := s.trackRepo.SaveBatch(subjectID, date, clean)
	if err != nil {
		return 0, dropped, fmt.Errorf("failed to store points: %w", err)
	}

	return stored, dropped, nil
}

// GetPoints retrieves stored points with filtering and pagination
func (s *TrackService) GetPoints(filter models.PointFilter) (*models.PointsResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 5000
	}
	if filter.PageSize > 50000 {
		filter.PageSize = 50000
	}

	points, total, err := s.trackRepo.GetPoints(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get points: %w", err)
	}

	totalPages := int(math.Ceil(float64(total) / float64(filter.PageSize)))

	return &models.PointsResponse{
		Data:       points,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages,
	}, nil
}

// LoadTrack assembles the ordered day trace for one subject and day
func (s *TrackService) LoadTrack(subjectID, date string) (*models.Track, error) {
	points, err := s.trackRepo.GetDay(subjectID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load day: %w", err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no points stored for %s on %s", subjectID, date)
	}
	return ingest.BuildTrack(subjectID, date, points), nil
}

// Summarize computes the aggregate statistics of one stored day trace
func (s *TrackService) Summarize(subjectID, date string) (*stats.DaySummary, error) {
	track, err := s.LoadTrack(subjectID, date)
	if err != nil {
		return nil, err
	}
	summary := stats.Summarize(track)
	return &summary, nil
}

// ListDates returns the dates with stored points for a subject, newest first
func (s *TrackService) ListDates(subjectID string) ([]string, error) {
	dates, err := s.trackRepo.ListDates(subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dates: %w", err)
	}
	return dates, nil
}

// SaveBreaks stores an authoritative break list for one subject and day
func (s *TrackService) SaveBreaks(subjectID, date string, breaks []models.BreakPeriod) error {
	for _, b := range breaks {
		if b.EndTime < b.StartTime {
			return fmt.Errorf("break at %d ends before it starts", b.StartTime)
		}
	}
	if err := s.breakRepo.ReplaceDay(subjectID, date, breaks); err != nil {
		return fmt.Errorf("failed to save breaks: %w", err)
	}
	return nil
}
