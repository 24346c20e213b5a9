package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fieldtrace/replay-backend-go/internal/models"
)

func geo(lat, lng, acc float64, ts int64) models.GeoPoint {
	return models.GeoPoint{Latitude: lat, Longitude: lng, Accuracy: acc, Timestamp: ts, Source: models.SourcePrimaryDevice}
}

func TestPositionAt(t *testing.T) {
	t.Parallel()

	points := []models.GeoPoint{
		geo(52.0, 13.0, 10, 0),
		geo(53.0, 14.0, 20, 100_000),
	}

	t.Run("midpoint is a convex combination of the brackets", func(t *testing.T) {
		t.Parallel()
		p := PositionAt(50_000, points, nil)
		assert.InDelta(t, 52.5, p.Latitude, 1e-9)
		assert.InDelta(t, 13.5, p.Longitude, 1e-9)
		assert.InDelta(t, 15.0, p.Accuracy, 1e-9)
	})

	t.Run("quarter point", func(t *testing.T) {
		t.Parallel()
		p := PositionAt(25_000, points, nil)
		assert.InDelta(t, 52.25, p.Latitude, 1e-9)
		assert.InDelta(t, 13.25, p.Longitude, 1e-9)
	})

	t.Run("interpolated values stay within the bracket range", func(t *testing.T) {
		t.Parallel()
		for ts := int64(0); ts <= 100_000; ts += 7_000 {
			p := PositionAt(ts, points, nil)
			assert.GreaterOrEqual(t, p.Latitude, 52.0)
			assert.LessOrEqual(t, p.Latitude, 53.0)
			assert.GreaterOrEqual(t, p.Longitude, 13.0)
			assert.LessOrEqual(t, p.Longitude, 14.0)
		}
	})

	t.Run("heading follows the bracketing pair's azimuth", func(t *testing.T) {
		t.Parallel()
		// 52,13 -> 53,14 is roughly north-north-east.
		p := PositionAt(50_000, points, nil)
		assert.InDelta(t, 30.9, p.Heading, 0.5)

		// Clamped boundary positions face the adjacent pair.
		assert.InDelta(t, 30.9, PositionAt(-5_000, points, nil).Heading, 0.5)
	})

	t.Run("before the first point clamps to it", func(t *testing.T) {
		t.Parallel()
		p := PositionAt(-5_000, points, nil)
		assert.Equal(t, 52.0, p.Latitude)
		assert.Equal(t, 13.0, p.Longitude)
		assert.Equal(t, 10.0, p.Accuracy)
	})

	t.Run("after the last point clamps to it", func(t *testing.T) {
		t.Parallel()
		p := PositionAt(999_999, points, nil)
		assert.Equal(t, 53.0, p.Latitude)
		assert.Equal(t, 14.0, p.Longitude)
	})

	t.Run("duplicate timestamps resolve without dividing by zero", func(t *testing.T) {
		t.Parallel()
		dup := []models.GeoPoint{
			geo(52.0, 13.0, 10, 0),
			geo(52.5, 13.5, 10, 50_000),
			geo(53.0, 14.0, 10, 50_000),
			geo(53.5, 14.5, 10, 100_000),
		}
		p := PositionAt(50_000, dup, nil)
		assert.Equal(t, 53.0, p.Latitude)
	})

	t.Run("empty point list yields the zero position", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, models.Position{}, PositionAt(1000, nil, nil))
	})
}

func TestPositionAtSnappedChain(t *testing.T) {
	t.Parallel()

	points := []models.GeoPoint{
		geo(52.0, 13.0, 10, 0),
		geo(53.0, 14.0, 20, 100_000),
	}
	chains := []models.SnappedChain{{
		StartTimestamp: 0,
		EndTimestamp:   100_000,
		Coordinates: []models.SnapCoordinate{
			{Latitude: 52.0, Longitude: 13.0},
			{Latitude: 52.2, Longitude: 13.6}, // road detour off the direct line
			{Latitude: 53.0, Longitude: 14.0},
		},
	}}

	t.Run("chain takes precedence over raw interpolation", func(t *testing.T) {
		t.Parallel()
		p := PositionAt(50_000, points, chains)
		// Halfway through the window is exactly the middle chain coordinate.
		assert.InDelta(t, 52.2, p.Latitude, 1e-9)
		assert.InDelta(t, 13.6, p.Longitude, 1e-9)
	})

	t.Run("chain end resolves to the last coordinate", func(t *testing.T) {
		t.Parallel()
		p := PositionAt(100_000, points, chains)
		assert.InDelta(t, 53.0, p.Latitude, 1e-9)
		assert.InDelta(t, 14.0, p.Longitude, 1e-9)
	})

	t.Run("timestamps outside the chain fall back to raw points", func(t *testing.T) {
		t.Parallel()
		shifted := []models.SnappedChain{{
			StartTimestamp: 200_000,
			EndTimestamp:   300_000,
			Coordinates:    chains[0].Coordinates,
		}}
		p := PositionAt(50_000, points, shifted)
		assert.InDelta(t, 52.5, p.Latitude, 1e-9)
	})
}
