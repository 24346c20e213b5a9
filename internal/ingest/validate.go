package ingest

import (
	"log"
	"math"

	"github.com/fieldtrace/replay-backend-go/internal/models"
)

// Readings this close to the null island axes are treated as corrupted
// receiver output rather than real coordinates.
const corruptCoordinateEpsilon = 0.001

// IsCorrupt reports whether a point must be excluded at the ingestion
// boundary: out-of-range coordinates or near-zero lat/lng readings.
func IsCorrupt(p models.GeoPoint) bool {
	if p.Latitude < -90 || p.Latitude > 90 {
		return true
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return true
	}
	if math.Abs(p.Latitude) <= corruptCoordinateEpsilon || math.Abs(p.Longitude) <= corruptCoordinateEpsilon {
		return true
	}
	return false
}

// FilterPoints drops corrupted points and points with unknown sources.
// Dropped points are logged, never surfaced as failures.
func FilterPoints(points []models.GeoPoint) []models.GeoPoint {
	kept := make([]models.GeoPoint, 0, len(points))
	dropped := 0
	for _, p := range points {
		if IsCorrupt(p) || !p.Source.Valid() {
			dropped++
			continue
		}
		kept = append(kept, p)
	}
	if dropped > 0 {
		log.Printf("[Ingest] Filtered %d corrupted points (%d kept)", dropped, len(kept))
	}
	return kept
}
