package breaks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldtrace/replay-backend-go/internal/models"
)

func pt(lat, lng float64, ts int64, src models.Source) models.GeoPoint {
	return models.GeoPoint{Latitude: lat, Longitude: lng, Timestamp: ts, Source: src}
}

func TestDetect(t *testing.T) {
	t.Parallel()

	d := NewDetector(0) // default 20 min

	t.Run("close points produce no break", func(t *testing.T) {
		t.Parallel()
		points := []models.GeoPoint{
			pt(52.52, 13.40, 0, models.SourcePrimaryDevice),
			pt(52.52, 13.40, 60_000, models.SourcePrimaryDevice),
			pt(52.52, 13.40, 130_000, models.SourcePrimaryDevice),
		}
		assert.Empty(t, d.Detect(points))
	})

	t.Run("a 25 minute gap produces one break", func(t *testing.T) {
		t.Parallel()
		points := []models.GeoPoint{
			pt(52.0, 13.0, 0, models.SourcePrimaryDevice),
			pt(52.2, 13.2, 1_500_000, models.SourcePrimaryDevice),
		}
		got := d.Detect(points)
		require.Len(t, got, 1)
		assert.Equal(t, int64(1_500_000), got[0].DurationMs)
		assert.InDelta(t, 52.1, got[0].CenterLat, 1e-9)
		assert.InDelta(t, 13.1, got[0].CenterLng, 1e-9)
	})

	t.Run("gap exactly at the threshold is a break", func(t *testing.T) {
		t.Parallel()
		points := []models.GeoPoint{
			pt(52.0, 13.0, 0, models.SourcePrimaryDevice),
			pt(52.0, 13.0, DefaultInactivityThresholdMs, models.SourcePrimaryDevice),
		}
		assert.Len(t, d.Detect(points), 1)
	})

	t.Run("gap one millisecond under the threshold is not", func(t *testing.T) {
		t.Parallel()
		points := []models.GeoPoint{
			pt(52.0, 13.0, 0, models.SourcePrimaryDevice),
			pt(52.0, 13.0, DefaultInactivityThresholdMs-1, models.SourcePrimaryDevice),
		}
		assert.Empty(t, d.Detect(points))
	})

	t.Run("secondary sources are ignored", func(t *testing.T) {
		t.Parallel()
		points := []models.GeoPoint{
			pt(52.0, 13.0, 0, models.SourcePrimaryDevice),
			pt(52.0, 13.0, 600_000, models.SourceServiceA),
			pt(52.0, 13.0, 1_500_000, models.SourcePrimaryDevice),
		}
		// The service-a point in the middle must not split the gap.
		got := d.Detect(points)
		require.Len(t, got, 1)
		assert.Equal(t, int64(1_500_000), got[0].DurationMs)
	})
}

func TestResolve(t *testing.T) {
	t.Parallel()

	computed := []models.BreakPeriod{{StartTime: 0, EndTime: 1_500_000, DurationMs: 1_500_000}}
	authoritative := []models.BreakPeriod{
		{StartTime: 100, EndTime: 2_000_000, Annotations: []models.BreakAnnotation{{PlaceName: "Depot"}}},
	}

	t.Run("authoritative list supersedes computed entirely", func(t *testing.T) {
		t.Parallel()
		got := Resolve(computed, authoritative)
		require.Len(t, got, 1)
		assert.Equal(t, int64(100), got[0].StartTime)
		assert.True(t, got[0].Authoritative)
		assert.Equal(t, int64(1_999_900), got[0].DurationMs)
	})

	t.Run("computed list is the fallback", func(t *testing.T) {
		t.Parallel()
		got := Resolve(computed, nil)
		assert.Equal(t, computed, got)
	})
}
