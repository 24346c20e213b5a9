package models

import "fmt"

// Segment is a maximal contiguous run of points from one source/deviceTag
// where consecutive displacement stays below the gap threshold. Identity is
// the (start, end) timestamp pair of its boundary points.
type Segment struct {
	StartTimestamp int64      `json:"startTimestamp"`
	EndTimestamp   int64      `json:"endTimestamp"`
	Source         Source     `json:"source"`
	DeviceTag      string     `json:"deviceTag,omitempty"`
	Points         []GeoPoint `json:"points"`
}

// ID returns the segment identity derived from its boundary timestamps
func (s *Segment) ID() string {
	return fmt.Sprintf("%d-%d", s.StartTimestamp, s.EndTimestamp)
}

// DurationMs returns the covered trajectory time in milliseconds
func (s *Segment) DurationMs() int64 {
	return s.EndTimestamp - s.StartTimestamp
}

// DrivingInterval is a window where instantaneous speed stayed above the
// driving threshold for a real displacement (not GPS jitter).
type DrivingInterval struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Contains reports whether ts falls inside the interval (inclusive)
func (d DrivingInterval) Contains(ts int64) bool {
	return ts >= d.Start && ts <= d.End
}
