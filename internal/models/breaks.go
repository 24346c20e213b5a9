package models

// BreakAnnotation is optional metadata attached to a break by the external
// annotation service (place names, conversation flags).
type BreakAnnotation struct {
	PlaceName    string `json:"placeName,omitempty"`
	POIType      string `json:"poiType,omitempty"`
	Conversation bool   `json:"conversation,omitempty"`
}

// BreakPeriod is a detected or externally supplied inactivity window
type BreakPeriod struct {
	StartTime   int64             `json:"startTime"`
	EndTime     int64             `json:"endTime"`
	DurationMs  int64             `json:"durationMs"`
	CenterLat   float64           `json:"centerLat"`
	CenterLng   float64           `json:"centerLng"`
	Annotations []BreakAnnotation `json:"annotations,omitempty"`
	// Authoritative marks breaks supplied by the annotation service rather
	// than computed from point gaps.
	Authoritative bool `json:"authoritative,omitempty"`
}
