package ingest

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/fieldtrace/replay-backend-go/internal/models"
)

// BuildTrack filters, sorts and signs a day's raw points into an immutable
// Track. The signature changes whenever the underlying point set changes,
// which is what triggers a rebuild of derived segments and breaks.
func BuildTrack(subjectID, date string, points []models.GeoPoint) *models.Track {
	clean := FilterPoints(points)
	sort.SliceStable(clean, func(i, j int) bool {
		return clean[i].Timestamp < clean[j].Timestamp
	})

	return &models.Track{
		SubjectID: subjectID,
		Date:      date,
		Points:    clean,
		Signature: Signature(clean),
	}
}

// Signature computes an FNV-1a hash over the ordered point set
func Signature(points []models.GeoPoint) uint64 {
	h := fnv.New64a()
	for _, p := range points {
		fmt.Fprintf(h, "%d|%.7f|%.7f|%s|%s;", p.Timestamp, p.Latitude, p.Longitude, p.Source, p.DeviceTag)
	}
	return h.Sum64()
}
