package snapcache

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/fieldtrace/replay-backend-go/internal/models"
	"github.com/fieldtrace/replay-backend-go/internal/spatial"
)

// ErrSuperseded is returned when a newer snap request was issued while
// this one was in flight; its results are discarded.
var ErrSuperseded = errors.New("snap request superseded by a newer one")

// DefaultGapMeters is the displacement between consecutive points that
// qualifies as a snappable gap segment.
const DefaultGapMeters = 50.0

// Service resolves snapped coordinate chains for a day's gap segments,
// serving repeats from the persistent cache and batching novel segments
// into the minimum number of external calls.
type Service struct {
	store     *Store
	snapper   Snapper
	gapMeters float64

	reqID atomic.Int64

	mu    sync.Mutex
	stats models.SnapStats
}

// NewService creates a snap service over the given store and snapper
func NewService(store *Store, snapper Snapper, gapMeters float64) *Service {
	if gapMeters <= 0 {
		gapMeters = DefaultGapMeters
	}
	return &Service{store: store, snapper: snapper, gapMeters: gapMeters}
}

// Stats returns the accumulated call and cost accounting
func (s *Service) Stats() models.SnapStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// gapSegment is one snappable displacement between consecutive points
type gapSegment struct {
	seg    models.Segment
	coords []models.SnapCoordinate
}

// GapSegments finds consecutive pairs whose displacement reaches the gap
// threshold; each pair's endpoints form one snappable segment.
func (s *Service) GapSegments(points []models.GeoPoint) []models.Segment {
	var out []models.Segment
	for i := 1; i < len(points); i++ {
		prev := points[i-1]
		p := points[i]
		d := spatial.HaversineDistance(prev.Latitude, prev.Longitude, p.Latitude, p.Longitude)
		if d < s.gapMeters {
			continue
		}
		out = append(out, models.Segment{
			StartTimestamp: prev.Timestamp,
			EndTimestamp:   p.Timestamp,
			Source:         prev.Source,
			DeviceTag:      prev.DeviceTag,
			Points:         []models.GeoPoint{prev, p},
		})
	}
	return out
}

// SnapDay returns snapped chains for a day's gap segments under the given
// source filter. Cached segments are served with zero external calls; only
// the response matching the latest in-flight request id is applied.
func (s *Service) SnapDay(ctx context.Context, subjectID, date, sourceFilter string, points []models.GeoPoint) ([]models.SnappedChain, error) {
	if sourceFilter != "" {
		var filtered []models.GeoPoint
		for _, p := range points {
			if string(p.Source) == sourceFilter {
				filtered = append(filtered, p)
			}
		}
		points = filtered
	}

	id := s.reqID.Add(1)
	segments := s.GapSegments(points)
	if len(segments) == 0 {
		return nil, nil
	}

	chains := make([]models.SnappedChain, 0, len(segments))
	var novel []gapSegment

	for _, seg := range segments {
		key := models.SnapCacheKey{
			SubjectID:    subjectID,
			Date:         date,
			SourceFilter: sourceFilter,
			SegmentID:    seg.ID(),
		}
		if entry, ok := s.store.Get(ctx, key); ok {
			chains = append(chains, models.SnappedChain{
				StartTimestamp: seg.StartTimestamp,
				EndTimestamp:   seg.EndTimestamp,
				Coordinates:    entry.Coordinates,
				FromCache:      true,
			})
			continue
		}
		novel = append(novel, gapSegment{seg: seg, coords: segmentCoords(seg)})
	}

	if len(novel) == 0 {
		return chains, nil
	}

	snapped, err := s.snapNovel(ctx, novel)
	if err != nil {
		log.Printf("[SnapCache] External snapping failed, falling back to straight lines: %v", err)
		// Straight-line fallback for this response only: no cache write, so
		// the next request retries.
		for _, g := range novel {
			chains = append(chains, fallbackChain(g.seg))
		}
		return chains, nil
	}

	// Apply only if no newer request was issued meanwhile.
	if s.reqID.Load() != id {
		return nil, ErrSuperseded
	}

	now := time.Now().UTC()
	for _, g := range novel {
		coords := coordsInRange(snapped, g.seg.StartTimestamp, g.seg.EndTimestamp)
		if len(coords) == 0 {
			// No snapped points mapped to this segment; keep its two raw
			// endpoints so the chain still covers the window.
			coords = segmentCoords(g.seg)
		}
		entry := models.SnapCacheEntry{
			ID: uuid.NewString(),
			Key: models.SnapCacheKey{
				SubjectID:    subjectID,
				Date:         date,
				SourceFilter: sourceFilter,
				SegmentID:    g.seg.ID(),
			},
			Coordinates: coords,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		s.store.Put(ctx, entry)

		chains = append(chains, models.SnappedChain{
			StartTimestamp: g.seg.StartTimestamp,
			EndTimestamp:   g.seg.EndTimestamp,
			Coordinates:    coords,
			FromCache:      true,
		})
	}

	s.mu.Lock()
	s.stats.SegmentCount += len(novel)
	s.mu.Unlock()

	return chains, nil
}

// snapNovel batches the novel segments' endpoints into the minimum number
// of external calls and returns all snapped coordinates.
func (s *Service) snapNovel(ctx context.Context, novel []gapSegment) ([]models.SnapCoordinate, error) {
	var all []models.SnapCoordinate
	for _, g := range novel {
		all = append(all, g.coords...)
	}

	var snapped []models.SnapCoordinate
	calls := 0
	for start := 0; start < len(all); start += MaxCoordinatesPerCall {
		end := start + MaxCoordinatesPerCall
		if end > len(all) {
			end = len(all)
		}
		batch, err := s.snapper.SnapCoordinates(ctx, all[start:end])
		if err != nil {
			return nil, err
		}
		calls++
		snapped = append(snapped, batch...)
	}

	s.mu.Lock()
	s.stats.APICallsUsed += calls
	s.stats.CostCents += float64(calls) * CostCentsPerCall
	s.mu.Unlock()

	return snapped, nil
}

func segmentCoords(seg models.Segment) []models.SnapCoordinate {
	coords := make([]models.SnapCoordinate, len(seg.Points))
	for i, p := range seg.Points {
		coords[i] = models.SnapCoordinate{
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			Timestamp: p.Timestamp,
		}
	}
	return coords
}

// coordsInRange redistributes snapped coordinates to their originating
// segment by timestamp range
func coordsInRange(coords []models.SnapCoordinate, from, to int64) []models.SnapCoordinate {
	var out []models.SnapCoordinate
	for _, c := range coords {
		if c.Timestamp >= from && c.Timestamp <= to {
			out = append(out, c)
		}
	}
	return out
}

// fallbackChain draws the segment as a straight great-circle line: the two
// endpoints plus their midpoint, so the interpolator still has a vertex to
// curve through.
func fallbackChain(seg models.Segment) models.SnappedChain {
	coords := segmentCoords(seg)
	if len(coords) == 2 {
		midLat, midLng := spatial.Midpoint(coords[0].Latitude, coords[0].Longitude, coords[1].Latitude, coords[1].Longitude)
		mid := models.SnapCoordinate{
			Latitude:  midLat,
			Longitude: midLng,
			Timestamp: (coords[0].Timestamp + coords[1].Timestamp) / 2,
		}
		coords = []models.SnapCoordinate{coords[0], mid, coords[1]}
	}
	return models.SnappedChain{
		StartTimestamp: seg.StartTimestamp,
		EndTimestamp:   seg.EndTimestamp,
		Coordinates:    coords,
		FromCache:      false,
	}
}
