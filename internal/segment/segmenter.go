package segment

import (
	"github.com/fieldtrace/replay-backend-go/internal/models"
	"github.com/fieldtrace/replay-backend-go/internal/spatial"
)

// Config holds the segmentation thresholds
type Config struct {
	GapThresholdMeters  float64 // displacement that closes a segment
	DrivingSpeedKmh     float64 // pairwise speed above which a pair counts as driving
	MergeWindowMs       int64   // driving runs closer than this are merged
	MinDisplacementM    float64 // net displacement a driving run must reach
}

// DefaultConfig returns the production thresholds
func DefaultConfig() Config {
	return Config{
		GapThresholdMeters: 50,
		DrivingSpeedKmh:    8,
		MergeWindowMs:      10 * 60 * 1000,
		MinDisplacementM:   50,
	}
}

// Segmenter splits sorted point lists into gap-free rendering segments and
// computes driving intervals.
type Segmenter struct {
	cfg Config
}

// NewSegmenter creates a segmenter with the given thresholds
func NewSegmenter(cfg Config) *Segmenter {
	if cfg.GapThresholdMeters <= 0 {
		cfg.GapThresholdMeters = 50
	}
	if cfg.DrivingSpeedKmh <= 0 {
		cfg.DrivingSpeedKmh = 8
	}
	if cfg.MergeWindowMs <= 0 {
		cfg.MergeWindowMs = 10 * 60 * 1000
	}
	if cfg.MinDisplacementM <= 0 {
		cfg.MinDisplacementM = 50
	}
	return &Segmenter{cfg: cfg}
}

// Split walks a time-sorted point list and produces maximal contiguous
// segments. A segment closes when the displacement between consecutive
// points reaches the gap threshold or when the source/deviceTag changes.
// The returned segments are ordered, non-overlapping, and cover every input
// point exactly once.
func (s *Segmenter) Split(points []models.GeoPoint) []models.Segment {
	if len(points) == 0 {
		return nil
	}

	var segments []models.Segment
	current := []models.GeoPoint{points[0]}

	for i := 1; i < len(points); i++ {
		prev := points[i-1]
		p := points[i]

		dist := spatial.HaversineDistance(prev.Latitude, prev.Longitude, p.Latitude, p.Longitude)
		sameFeed := p.Source == prev.Source && p.DeviceTag == prev.DeviceTag

		if dist >= s.cfg.GapThresholdMeters || !sameFeed {
			segments = append(segments, makeSegment(current))
			current = []models.GeoPoint{p}
			continue
		}
		current = append(current, p)
	}
	segments = append(segments, makeSegment(current))

	return segments
}

func makeSegment(points []models.GeoPoint) models.Segment {
	return models.Segment{
		StartTimestamp: points[0].Timestamp,
		EndTimestamp:   points[len(points)-1].Timestamp,
		Source:         points[0].Source,
		DeviceTag:      points[0].DeviceTag,
		Points:         points,
	}
}

// DrivingIntervals detects windows of sustained above-threshold speed.
// Consecutive fast pairs form raw runs; runs separated by less than the
// merge window are joined so traffic-light stops do not split a drive;
// merged runs whose points never move the minimum displacement from the run
// start are discarded as GPS jitter.
func (s *Segmenter) DrivingIntervals(points []models.GeoPoint) []models.DrivingInterval {
	if len(points) < 2 {
		return nil
	}

	var raw []models.DrivingInterval
	var open *models.DrivingInterval

	for i := 1; i < len(points); i++ {
		prev := points[i-1]
		p := points[i]
		speed := spatial.SpeedKmh(prev.Latitude, prev.Longitude, prev.Timestamp, p.Latitude, p.Longitude, p.Timestamp)

		if speed > s.cfg.DrivingSpeedKmh {
			if open == nil {
				open = &models.DrivingInterval{Start: prev.Timestamp, End: p.Timestamp}
			} else {
				open.End = p.Timestamp
			}
			continue
		}
		if open != nil {
			raw = append(raw, *open)
			open = nil
		}
	}
	if open != nil {
		raw = append(raw, *open)
	}

	merged := s.mergeIntervals(raw)
	return s.filterJitter(merged, points)
}

// mergeIntervals joins driving runs separated by less than the merge window
func (s *Segmenter) mergeIntervals(intervals []models.DrivingInterval) []models.DrivingInterval {
	if len(intervals) == 0 {
		return nil
	}

	merged := []models.DrivingInterval{intervals[0]}
	for _, iv := range intervals[1:] {
		last := &merged[len(merged)-1]
		if iv.Start-last.End < s.cfg.MergeWindowMs {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// filterJitter drops intervals whose point set never reaches the minimum
// net displacement from the interval's starting point
func (s *Segmenter) filterJitter(intervals []models.DrivingInterval, points []models.GeoPoint) []models.DrivingInterval {
	var kept []models.DrivingInterval

	for _, iv := range intervals {
		var origin *models.GeoPoint
		moved := false

		for i := range points {
			p := points[i]
			if p.Timestamp < iv.Start || p.Timestamp > iv.End {
				continue
			}
			if origin == nil {
				origin = &p
				continue
			}
			d := spatial.HaversineDistance(origin.Latitude, origin.Longitude, p.Latitude, p.Longitude)
			if d >= s.cfg.MinDisplacementM {
				moved = true
				break
			}
		}

		if moved {
			kept = append(kept, iv)
		}
	}
	return kept
}
