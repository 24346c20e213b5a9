package snapcache

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldtrace/replay-backend-go/internal/models"
	"github.com/fieldtrace/replay-backend-go/internal/spatial"
)

type fakeSnapper struct {
	calls  int
	coords [][]models.SnapCoordinate
	err    error
}

func (f *fakeSnapper) SnapCoordinates(_ context.Context, coords []models.SnapCoordinate) ([]models.SnapCoordinate, error) {
	f.calls++
	f.coords = append(f.coords, coords)
	if f.err != nil {
		return nil, f.err
	}
	// Snap by nudging everything slightly east, keeping timestamps.
	out := make([]models.SnapCoordinate, len(coords))
	for i, c := range coords {
		out[i] = models.SnapCoordinate{Latitude: c.Latitude, Longitude: c.Longitude + 0.0001, Timestamp: c.Timestamp}
	}
	return out, nil
}

func newTestService(t *testing.T, snapper Snapper) *Service {
	t.Helper()
	store, err := OpenStore(t.TempDir(), nil)
	require.NoError(t, err)
	return NewService(store, snapper, 0)
}

// gapPoints returns primary-device points with one 200 m jump in the middle
func gapPoints() []models.GeoPoint {
	lat2, lng2 := spatial.DestinationPoint(52.52, 13.405, 0, 200)
	return []models.GeoPoint{
		{Latitude: 52.52, Longitude: 13.405, Timestamp: 0, Source: models.SourcePrimaryDevice},
		{Latitude: lat2, Longitude: lng2, Timestamp: 60_000, Source: models.SourcePrimaryDevice},
	}
}

func TestSnapDay(t *testing.T) {
	t.Parallel()

	t.Run("one uncached segment costs one call", func(t *testing.T) {
		t.Parallel()
		snapper := &fakeSnapper{}
		svc := newTestService(t, snapper)

		chains, err := svc.SnapDay(context.Background(), "subj-1", "2026-08-20", "", gapPoints())
		require.NoError(t, err)
		require.Len(t, chains, 1)
		assert.True(t, chains[0].FromCache)

		stats := svc.Stats()
		assert.Equal(t, 1, stats.APICallsUsed)
		assert.Equal(t, CostCentsPerCall, stats.CostCents)
		assert.Equal(t, 1, stats.SegmentCount)
	})

	t.Run("re-request is served from cache with zero calls", func(t *testing.T) {
		t.Parallel()
		snapper := &fakeSnapper{}
		svc := newTestService(t, snapper)
		ctx := context.Background()

		first, err := svc.SnapDay(ctx, "subj-1", "2026-08-20", "", gapPoints())
		require.NoError(t, err)
		callsAfterFirst := snapper.calls

		second, err := svc.SnapDay(ctx, "subj-1", "2026-08-20", "", gapPoints())
		require.NoError(t, err)

		assert.Equal(t, callsAfterFirst, snapper.calls)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("cached chains differ from original (-first +second):\n%s", diff)
		}
	})

	t.Run("failure falls back to straight lines without caching", func(t *testing.T) {
		t.Parallel()
		snapper := &fakeSnapper{err: errors.New("upstream down")}
		svc := newTestService(t, snapper)
		ctx := context.Background()

		chains, err := svc.SnapDay(ctx, "subj-1", "2026-08-20", "", gapPoints())
		require.NoError(t, err)
		require.Len(t, chains, 1)
		assert.False(t, chains[0].FromCache)
		assert.Equal(t, 0, svc.Stats().APICallsUsed)

		// The failed segment was not cached, so recovery retries the call.
		snapper.err = nil
		chains, err = svc.SnapDay(ctx, "subj-1", "2026-08-20", "", gapPoints())
		require.NoError(t, err)
		assert.True(t, chains[0].FromCache)
		assert.Equal(t, 1, svc.Stats().APICallsUsed)
	})

	t.Run("no gaps means no calls", func(t *testing.T) {
		t.Parallel()
		snapper := &fakeSnapper{}
		svc := newTestService(t, snapper)

		points := []models.GeoPoint{
			{Latitude: 52.52, Longitude: 13.405, Timestamp: 0, Source: models.SourcePrimaryDevice},
			{Latitude: 52.52001, Longitude: 13.405, Timestamp: 60_000, Source: models.SourcePrimaryDevice},
		}
		chains, err := svc.SnapDay(context.Background(), "subj-1", "2026-08-20", "", points)
		require.NoError(t, err)
		assert.Empty(t, chains)
		assert.Equal(t, 0, snapper.calls)
	})

	t.Run("source filter limits the considered points", func(t *testing.T) {
		t.Parallel()
		snapper := &fakeSnapper{}
		svc := newTestService(t, snapper)

		points := gapPoints()
		points[1].Source = models.SourceServiceA
		// With the primary filter only one point remains: no pair, no gap.
		chains, err := svc.SnapDay(context.Background(), "subj-1", "2026-08-20", string(models.SourcePrimaryDevice), points)
		require.NoError(t, err)
		assert.Empty(t, chains)
	})
}

func TestSnapDayBatching(t *testing.T) {
	t.Parallel()

	snapper := &fakeSnapper{}
	svc := newTestService(t, snapper)

	// 120 gap segments contribute 240 endpoint coordinates: three calls of
	// at most 100 each.
	var points []models.GeoPoint
	lat, lng := 52.52, 13.405
	for i := 0; i <= 120; i++ {
		points = append(points, models.GeoPoint{
			Latitude:  lat,
			Longitude: lng,
			Timestamp: int64(i) * 60_000,
			Source:    models.SourcePrimaryDevice,
		})
		lat, lng = spatial.DestinationPoint(lat, lng, 0, 200)
	}

	chains, err := svc.SnapDay(context.Background(), "subj-1", "2026-08-20", "", points)
	require.NoError(t, err)
	assert.Len(t, chains, 120)
	assert.Equal(t, 3, snapper.calls)
	for _, batch := range snapper.coords {
		assert.LessOrEqual(t, len(batch), MaxCoordinatesPerCall)
	}

	stats := svc.Stats()
	assert.Equal(t, 3, stats.APICallsUsed)
	assert.Equal(t, 3*CostCentsPerCall, stats.CostCents)
}

func TestGapSegments(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &fakeSnapper{})

	t.Run("close points yield no segments", func(t *testing.T) {
		t.Parallel()
		points := []models.GeoPoint{
			{Latitude: 52.52, Longitude: 13.405, Timestamp: 0},
			{Latitude: 52.520_01, Longitude: 13.405, Timestamp: 1000},
		}
		assert.Empty(t, svc.GapSegments(points))
	})

	t.Run("each wide pair becomes one segment", func(t *testing.T) {
		t.Parallel()
		segs := svc.GapSegments(gapPoints())
		require.Len(t, segs, 1)
		assert.Equal(t, "0-60000", segs[0].ID())
	})
}
