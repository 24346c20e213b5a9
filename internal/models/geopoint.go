package models

// Source identifies which originating device or data feed produced a point
type Source string

// Source constants
const (
	SourcePrimaryDevice Source = "primary-device"
	SourceServiceA      Source = "secondary-service-a"
	SourceServiceB      Source = "secondary-service-b"
	SourceExternalApp   Source = "external-app"
)

// Valid reports whether the source is one of the known feeds
func (s Source) Valid() bool {
	switch s {
	case SourcePrimaryDevice, SourceServiceA, SourceServiceB, SourceExternalApp:
		return true
	}
	return false
}

// GeoPoint represents a single timestamped, sourced coordinate reading
type GeoPoint struct {
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
	Accuracy  float64 `json:"accuracy" db:"accuracy"`
	Timestamp int64   `json:"timestamp" db:"timestamp"` // Unix milliseconds
	Source    Source  `json:"source" db:"source"`
	DeviceTag string  `json:"deviceTag,omitempty" db:"device_tag"`
}

// RenderPolicy carries the per-source drawing behaviour. Consumers pick the
// policy from RenderPolicies instead of branching on the source value.
type RenderPolicy struct {
	Color             string  `json:"color"`
	Opacity           float64 `json:"opacity"`
	Width             int     `json:"width"`
	ShowDirectionIcon bool    `json:"showDirectionIcon"`
	AllowMultiple     bool    `json:"allowMultiple"` // multiple concurrent instances (one per device tag)
}

// RenderPolicies maps each source to its drawing behaviour
var RenderPolicies = map[Source]RenderPolicy{
	SourcePrimaryDevice: {Color: "#1a73e8", Opacity: 0.9, Width: 4, ShowDirectionIcon: true, AllowMultiple: true},
	SourceServiceA:      {Color: "#34a853", Opacity: 0.7, Width: 3, ShowDirectionIcon: false, AllowMultiple: false},
	SourceServiceB:      {Color: "#fbbc04", Opacity: 0.7, Width: 3, ShowDirectionIcon: false, AllowMultiple: false},
	SourceExternalApp:   {Color: "#ea4335", Opacity: 0.6, Width: 2, ShowDirectionIcon: false, AllowMultiple: false},
}

// RenderPolicyFor returns the render policy for a source, falling back to a
// neutral grey polyline for sources added after this table was written.
func RenderPolicyFor(s Source) RenderPolicy {
	if p, ok := RenderPolicies[s]; ok {
		return p
	}
	return RenderPolicy{Color: "#9aa0a6", Opacity: 0.5, Width: 2}
}
