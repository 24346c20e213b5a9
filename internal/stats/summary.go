package stats

import (
	"github.com/fieldtrace/replay-backend-go/internal/models"
	"github.com/fieldtrace/replay-backend-go/internal/spatial"
)

// Bounds is the geographic extent of a day trace
type Bounds struct {
	MinLat float64 `json:"minLat"`
	MinLng float64 `json:"minLng"`
	MaxLat float64 `json:"maxLat"`
	MaxLng float64 `json:"maxLng"`
}

// DaySummary aggregates one day trace for display next to the replay
type DaySummary struct {
	Points          int     `json:"points"`
	DistanceMeters  float64 `json:"distanceMeters"`
	DurationMs      int64   `json:"durationMs"`
	Bounds          Bounds  `json:"bounds"`
	MeanSpeedKmh    float64 `json:"meanSpeedKmh"`
	MedianSpeedKmh  float64 `json:"medianSpeedKmh"`
	P95SpeedKmh     float64 `json:"p95SpeedKmh"`
	MaxSpeedKmh     float64 `json:"maxSpeedKmh"`
	SourceBreakdown map[models.Source]int `json:"sourceBreakdown"`
}

// Summarize computes the day summary from an ordered day trace. Speeds are
// taken pairwise between consecutive primary-device points so secondary
// sources cannot fabricate jumps.
func Summarize(track *models.Track) DaySummary {
	summary := DaySummary{
		Points:          len(track.Points),
		SourceBreakdown: make(map[models.Source]int),
	}
	all := make([]spatial.Point, 0, len(track.Points))
	for _, p := range track.Points {
		summary.SourceBreakdown[p.Source]++
		all = append(all, spatial.Point{Lat: p.Latitude, Lon: p.Longitude})
	}
	if len(track.Points) > 0 {
		summary.DurationMs = track.End() - track.Start()
		minLat, minLng, maxLat, maxLng := spatial.BoundingBox(all)
		summary.Bounds = Bounds{MinLat: minLat, MinLng: minLng, MaxLat: maxLat, MaxLng: maxLng}
	}

	primary := track.SourcePoints(models.SourcePrimaryDevice)
	path := make([]spatial.Point, 0, len(primary))
	var speeds []float64
	for i := range primary {
		path = append(path, spatial.Point{Lat: primary[i].Latitude, Lon: primary[i].Longitude})
		if i == 0 {
			continue
		}
		prev, cur := primary[i-1], primary[i]
		if speed := spatial.SpeedKmh(prev.Latitude, prev.Longitude, prev.Timestamp, cur.Latitude, cur.Longitude, cur.Timestamp); speed > 0 {
			speeds = append(speeds, speed)
		}
	}
	summary.DistanceMeters = spatial.PathLength(path)

	if len(speeds) > 0 {
		ps := Percentiles(speeds, []float64{50, 95})
		summary.MeanSpeedKmh = Mean(speeds)
		summary.MedianSpeedKmh = ps[0]
		summary.P95SpeedKmh = ps[1]
		summary.MaxSpeedKmh = Max(speeds)
	}

	return summary
}
