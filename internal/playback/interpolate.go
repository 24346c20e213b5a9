package playback

import (
	"sort"

	"github.com/fieldtrace/replay-backend-go/internal/models"
	"github.com/fieldtrace/replay-backend-go/internal/spatial"
)

// PositionAt resolves a trajectory timestamp to an exact position. A
// snapped coordinate chain covering ts takes precedence over raw two-point
// interpolation; timestamps outside the point range clamp to the nearest
// boundary point with no extrapolation. Heading is the forward azimuth of
// the bracketing pair, which the direction icon on the primary polyline
// follows.
func PositionAt(ts int64, points []models.GeoPoint, chains []models.SnappedChain) models.Position {
	if len(points) == 0 {
		return models.Position{}
	}

	if p, ok := chainPosition(ts, chains); ok {
		return p
	}

	first := points[0]
	last := points[len(points)-1]
	if ts <= first.Timestamp {
		pos := pointPosition(first, first.Timestamp)
		if len(points) > 1 {
			pos.Heading = spatial.Bearing(first.Latitude, first.Longitude, points[1].Latitude, points[1].Longitude)
		}
		return pos
	}
	if ts >= last.Timestamp {
		pos := pointPosition(last, last.Timestamp)
		if len(points) > 1 {
			prev := points[len(points)-2]
			pos.Heading = spatial.Bearing(prev.Latitude, prev.Longitude, last.Latitude, last.Longitude)
		}
		return pos
	}

	// Index of the first point with timestamp > ts; its predecessor is the
	// left bracket.
	hi := sort.Search(len(points), func(i int) bool {
		return points[i].Timestamp > ts
	})
	a := points[hi-1]
	b := points[hi]

	ratio := 0.0
	if denom := b.Timestamp - a.Timestamp; denom > 0 {
		ratio = float64(ts-a.Timestamp) / float64(denom)
	}
	return models.Position{
		Latitude:  a.Latitude + (b.Latitude-a.Latitude)*ratio,
		Longitude: a.Longitude + (b.Longitude-a.Longitude)*ratio,
		Accuracy:  a.Accuracy + (b.Accuracy-a.Accuracy)*ratio,
		Heading:   spatial.Bearing(a.Latitude, a.Longitude, b.Latitude, b.Longitude),
		Timestamp: ts,
	}
}

// chainPosition interpolates along a snapped chain's point index
// proportional to the elapsed fraction of the chain's window.
func chainPosition(ts int64, chains []models.SnappedChain) (models.Position, bool) {
	for _, ch := range chains {
		if ts < ch.StartTimestamp || ts > ch.EndTimestamp || len(ch.Coordinates) == 0 {
			continue
		}
		if len(ch.Coordinates) == 1 {
			c := ch.Coordinates[0]
			return models.Position{Latitude: c.Latitude, Longitude: c.Longitude, Timestamp: ts}, true
		}

		frac := 0.0
		if denom := ch.EndTimestamp - ch.StartTimestamp; denom > 0 {
			frac = float64(ts-ch.StartTimestamp) / float64(denom)
		}
		fidx := frac * float64(len(ch.Coordinates)-1)
		lo := int(fidx)
		if lo >= len(ch.Coordinates)-1 {
			lo = len(ch.Coordinates) - 2
		}
		t := fidx - float64(lo)
		a := ch.Coordinates[lo]
		b := ch.Coordinates[lo+1]
		return models.Position{
			Latitude:  a.Latitude + (b.Latitude-a.Latitude)*t,
			Longitude: a.Longitude + (b.Longitude-a.Longitude)*t,
			Heading:   spatial.Bearing(a.Latitude, a.Longitude, b.Latitude, b.Longitude),
			Timestamp: ts,
		}, true
	}
	return models.Position{}, false
}

func pointPosition(p models.GeoPoint, ts int64) models.Position {
	return models.Position{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Accuracy:  p.Accuracy,
		Timestamp: ts,
	}
}
