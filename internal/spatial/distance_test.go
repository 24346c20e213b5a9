package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineDistance(t *testing.T) {
	t.Parallel()

	t.Run("zero distance for identical points", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 0.0, HaversineDistance(52.52, 13.405, 52.52, 13.405))
	})

	t.Run("one degree of latitude is about 111 km", func(t *testing.T) {
		t.Parallel()
		d := HaversineDistance(52.0, 13.0, 53.0, 13.0)
		assert.InDelta(t, 111195, d, 500)
	})

	t.Run("round trips through DestinationPoint", func(t *testing.T) {
		t.Parallel()
		lat, lon := DestinationPoint(48.8566, 2.3522, 90, 1000)
		d := HaversineDistance(48.8566, 2.3522, lat, lon)
		assert.InDelta(t, 1000, d, 1)
	})
}

func TestSpeedKmh(t *testing.T) {
	t.Parallel()

	t.Run("zero time delta yields zero speed", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 0.0, SpeedKmh(52.0, 13.0, 1000, 52.1, 13.0, 1000))
	})

	t.Run("negative time delta yields zero speed", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 0.0, SpeedKmh(52.0, 13.0, 2000, 52.1, 13.0, 1000))
	})

	t.Run("1 km covered in one minute is 60 km/h", func(t *testing.T) {
		t.Parallel()
		lat, lon := DestinationPoint(52.0, 13.0, 0, 1000)
		speed := SpeedKmh(52.0, 13.0, 0, lat, lon, 60_000)
		assert.InDelta(t, 60.0, speed, 0.1)
	})
}

func TestMidpoint(t *testing.T) {
	t.Parallel()

	lat, lon := Midpoint(52.0, 13.0, 54.0, 13.0)
	assert.InDelta(t, 53.0, lat, 0.01)
	assert.InDelta(t, 13.0, lon, 0.01)
}

func TestBearing(t *testing.T) {
	t.Parallel()

	t.Run("due north", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 0.0, Bearing(52.0, 13.0, 53.0, 13.0), 0.01)
	})

	t.Run("due east", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 90.0, Bearing(0.0, 13.0, 0.0, 14.0), 0.5)
	})
}

func TestBoundingBox(t *testing.T) {
	t.Parallel()

	minLat, minLon, maxLat, maxLon := BoundingBox([]Point{
		{Lat: 1, Lon: 5},
		{Lat: -2, Lon: 7},
		{Lat: 0.5, Lon: 6},
	})
	assert.Equal(t, -2.0, minLat)
	assert.Equal(t, 5.0, minLon)
	assert.Equal(t, 1.0, maxLat)
	assert.Equal(t, 7.0, maxLon)
}

func TestCentroid(t *testing.T) {
	t.Parallel()

	c := Centroid([]Point{{Lat: 2, Lon: 4}, {Lat: 4, Lon: 8}})
	assert.Equal(t, Point{Lat: 3, Lon: 6}, c)
	assert.Equal(t, Point{}, Centroid(nil))
}
