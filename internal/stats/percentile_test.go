package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fieldtrace/replay-backend-go/internal/models"
	"github.com/fieldtrace/replay-backend-go/internal/spatial"
)

func TestPercentile(t *testing.T) {
	t.Parallel()

	values := []float64{1, 2, 3, 4, 5}

	assert.Equal(t, 3.0, Percentile(values, 50))
	assert.Equal(t, 1.0, Percentile(values, 0))
	assert.Equal(t, 5.0, Percentile(values, 100))
	assert.InDelta(t, 4.8, Percentile(values, 95), 1e-9)
	assert.Equal(t, 0.0, Percentile(nil, 50))

	// Out-of-range percentiles clamp.
	assert.Equal(t, 1.0, Percentile(values, -20))
	assert.Equal(t, 5.0, Percentile(values, 140))
}

func TestPercentiles(t *testing.T) {
	t.Parallel()

	got := Percentiles([]float64{10, 20, 30, 40}, []float64{25, 50, 75})
	assert.InDelta(t, 17.5, got[0], 1e-9)
	assert.InDelta(t, 25.0, got[1], 1e-9)
	assert.InDelta(t, 32.5, got[2], 1e-9)

	assert.Equal(t, []float64{0, 0}, Percentiles(nil, []float64{50, 95}))
}

func TestMeanMax(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2.0, Mean([]float64{1, 2, 3}))
	assert.Equal(t, 3.0, Max([]float64{1, 3, 2}))
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, Max(nil))
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	// Steady 100 m/min northward walk with one secondary point in between.
	var points []models.GeoPoint
	lat, lng := 52.52, 13.405
	for i := 0; i < 5; i++ {
		if i == 3 {
			points = append(points, models.GeoPoint{
				Latitude:  52.6,
				Longitude: 13.5,
				Timestamp: 150_000,
				Source:    models.SourceServiceA,
			})
		}
		points = append(points, models.GeoPoint{
			Latitude:  lat,
			Longitude: lng,
			Timestamp: int64(i) * 60_000,
			Source:    models.SourcePrimaryDevice,
		})
		lat, lng = spatial.DestinationPoint(lat, lng, 0, 100)
	}

	track := &models.Track{SubjectID: "subj-1", Date: "2026-08-20", Points: points}
	summary := Summarize(track)

	assert.Equal(t, 6, summary.Points)
	assert.Equal(t, 5, summary.SourceBreakdown[models.SourcePrimaryDevice])
	assert.Equal(t, 1, summary.SourceBreakdown[models.SourceServiceA])
	// Distance counts only the primary chain, so the far-off secondary
	// point contributes nothing.
	assert.InDelta(t, 400, summary.DistanceMeters, 1)
	assert.InDelta(t, 6.0, summary.MeanSpeedKmh, 0.1)
	assert.InDelta(t, 6.0, summary.MaxSpeedKmh, 0.1)
	assert.Equal(t, int64(240_000), summary.DurationMs)
	// The bounding box spans all sources, so the secondary point stretches it.
	assert.InDelta(t, 52.52, summary.Bounds.MinLat, 1e-6)
	assert.InDelta(t, 13.405, summary.Bounds.MinLng, 1e-6)
	assert.InDelta(t, 52.6, summary.Bounds.MaxLat, 1e-6)
	assert.InDelta(t, 13.5, summary.Bounds.MaxLng, 1e-6)
}

func TestSummarizeEmpty(t *testing.T) {
	t.Parallel()

	summary := Summarize(&models.Track{SubjectID: "subj-1", Date: "2026-08-20"})
	assert.Equal(t, 0, summary.Points)
	assert.Equal(t, 0.0, summary.DistanceMeters)
	assert.Equal(t, int64(0), summary.DurationMs)
}
