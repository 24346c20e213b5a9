package breaks

import (
	"github.com/fieldtrace/replay-backend-go/internal/models"
	"github.com/fieldtrace/replay-backend-go/internal/spatial"
)

// DefaultInactivityThresholdMs is the minimum gap between consecutive
// primary-device points that counts as a break (20 minutes).
const DefaultInactivityThresholdMs = 20 * 60 * 1000

// Detector finds inactivity windows in a day's primary-device points
type Detector struct {
	inactivityThresholdMs int64
}

// NewDetector creates a detector; a non-positive threshold falls back to
// the default.
func NewDetector(inactivityThresholdMs int64) *Detector {
	if inactivityThresholdMs <= 0 {
		inactivityThresholdMs = DefaultInactivityThresholdMs
	}
	return &Detector{inactivityThresholdMs: inactivityThresholdMs}
}

// Detect emits a BreakPeriod for every consecutive primary-device pair
// whose gap reaches the inactivity threshold. The boundary is inclusive: a
// gap exactly equal to the threshold is a break. Points from other sources
// are ignored.
func (d *Detector) Detect(points []models.GeoPoint) []models.BreakPeriod {
	var primary []models.GeoPoint
	for _, p := range points {
		if p.Source == models.SourcePrimaryDevice {
			primary = append(primary, p)
		}
	}

	var out []models.BreakPeriod
	for i := 1; i < len(primary); i++ {
		prev := primary[i-1]
		p := primary[i]
		gap := p.Timestamp - prev.Timestamp
		if gap < d.inactivityThresholdMs {
			continue
		}

		center := spatial.Centroid([]spatial.Point{
			{Lat: prev.Latitude, Lon: prev.Longitude},
			{Lat: p.Latitude, Lon: p.Longitude},
		})
		out = append(out, models.BreakPeriod{
			StartTime:  prev.Timestamp,
			EndTime:    p.Timestamp,
			DurationMs: gap,
			CenterLat:  center.Lat,
			CenterLng:  center.Lon,
		})
	}
	return out
}

// Resolve picks the break list to use for a day. An authoritative external
// list supersedes the computed one entirely; the detector output is a
// fallback, never merged.
func Resolve(computed, authoritative []models.BreakPeriod) []models.BreakPeriod {
	if len(authoritative) > 0 {
		out := make([]models.BreakPeriod, len(authoritative))
		copy(out, authoritative)
		for i := range out {
			out[i].Authoritative = true
			if out[i].DurationMs == 0 {
				out[i].DurationMs = out[i].EndTime - out[i].StartTime
			}
		}
		return out
	}
	return computed
}
