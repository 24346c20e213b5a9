package models

// Track is the ordered point sequence for one subject/day. It is immutable
// once built; a changed point set produces a different signature and the
// track is rebuilt from scratch.
type Track struct {
	SubjectID string     `json:"subjectId"`
	Date      string     `json:"date"` // YYYY-MM-DD
	Points    []GeoPoint `json:"points"`
	Signature uint64     `json:"signature"`
}

// Start returns the timestamp of the first point, or 0 for an empty track
func (t *Track) Start() int64 {
	if len(t.Points) == 0 {
		return 0
	}
	return t.Points[0].Timestamp
}

// End returns the timestamp of the last point, or 0 for an empty track
func (t *Track) End() int64 {
	if len(t.Points) == 0 {
		return 0
	}
	return t.Points[len(t.Points)-1].Timestamp
}

// PartitionByDevice splits the track's points per (source, deviceTag) feed,
// preserving timestamp order within each partition.
func (t *Track) PartitionByDevice() map[Source]map[string][]GeoPoint {
	out := make(map[Source]map[string][]GeoPoint)
	for _, p := range t.Points {
		byTag, ok := out[p.Source]
		if !ok {
			byTag = make(map[string][]GeoPoint)
			out[p.Source] = byTag
		}
		byTag[p.DeviceTag] = append(byTag[p.DeviceTag], p)
	}
	return out
}

// SourcePoints returns the track's points for one source, in timestamp order
func (t *Track) SourcePoints(s Source) []GeoPoint {
	var pts []GeoPoint
	for _, p := range t.Points {
		if p.Source == s {
			pts = append(pts, p)
		}
	}
	return pts
}
