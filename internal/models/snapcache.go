package models

import (
	"fmt"
	"time"
)

// SnapCoordinate is one road-snapped coordinate returned by the external
// snapping service.
type SnapCoordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp,omitempty"`
}

// SnapCacheKey identifies one snapped segment in the persistent cache
type SnapCacheKey struct {
	SubjectID    string `json:"subjectId"`
	Date         string `json:"date"` // YYYY-MM-DD
	SourceFilter string `json:"sourceFilter"`
	SegmentID    string `json:"segmentId"`
}

// String renders the key in its canonical flat form
func (k SnapCacheKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%s", k.SubjectID, k.Date, k.SourceFilter, k.SegmentID)
}

// SnapCacheEntry holds the snapped coordinate chain for one segment key.
// Entries are immutable once written.
type SnapCacheEntry struct {
	ID          string           `json:"id"`
	Key         SnapCacheKey     `json:"key"`
	Coordinates []SnapCoordinate `json:"coordinates"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// MonthlyCache groups cache entries by calendar month for persistence
type MonthlyCache struct {
	Month   string           `json:"month"` // YYYY-MM
	Entries []SnapCacheEntry `json:"entries"`
}

// SnapStats accumulates per-day external call and cost accounting
type SnapStats struct {
	APICallsUsed int     `json:"apiCallsUsed"`
	CostCents    float64 `json:"costCents"`
	SegmentCount int     `json:"segmentCount"`
}

// SnappedChain is a snapped coordinate run covering one trajectory window;
// the interpolator prefers chains over raw two-point interpolation.
type SnappedChain struct {
	StartTimestamp int64            `json:"startTimestamp"`
	EndTimestamp   int64            `json:"endTimestamp"`
	Coordinates    []SnapCoordinate `json:"coordinates"`
	// FromCache is false when the chain is a straight-line fallback after an
	// external failure; fallback chains are never written to the cache.
	FromCache bool `json:"fromCache"`
}
