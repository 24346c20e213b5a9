package spatial

import (
	"math"

	"github.com/golang/geo/s2"
)

// Constants
const (
	EarthRadiusMeters = 6371000.0 // Earth's mean radius in meters
	EarthRadiusKm     = 6371.0    // Earth's mean radius in kilometers
)

// HaversineDistance calculates the great-circle distance between two points
// in meters using the Haversine formula
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// SpeedKmh calculates the instantaneous speed between two readings in km/h.
// A zero or negative time delta yields 0 rather than an error.
func SpeedKmh(lat1, lon1 float64, ts1 int64, lat2, lon2 float64, ts2 int64) float64 {
	deltaMs := ts2 - ts1
	if deltaMs <= 0 {
		return 0
	}
	meters := HaversineDistance(lat1, lon1, lat2, lon2)
	return (meters / 1000.0) / (float64(deltaMs) / 3600000.0)
}

// Midpoint returns the great-circle midpoint between two points
func Midpoint(lat1, lon1, lat2, lon2 float64) (float64, float64) {
	p1 := s2.PointFromLatLng(s2.LatLngFromDegrees(lat1, lon1))
	p2 := s2.PointFromLatLng(s2.LatLngFromDegrees(lat2, lon2))
	mid := s2.LatLngFromPoint(s2.Interpolate(0.5, p1, p2))
	return mid.Lat.Degrees(), mid.Lng.Degrees()
}

// Bearing calculates the initial bearing (forward azimuth) from point 1 to
// point 2. Returns bearing in degrees (0-360), where 0 is North, 90 is East.
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lonDiff := (lon2 - lon1) * math.Pi / 180

	y := math.Sin(lonDiff) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) - math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(lonDiff)
	bearing := math.Atan2(y, x)

	bearingDeg := bearing * 180 / math.Pi
	return math.Mod(bearingDeg+360, 360)
}

// DestinationPoint calculates the destination point given a start point,
// bearing (degrees) and distance (meters)
func DestinationPoint(lat, lon, bearing, distance float64) (float64, float64) {
	p := s2.LatLngFromDegrees(lat, lon)
	bearingRad := bearing * math.Pi / 180
	angularDistance := distance / EarthRadiusMeters

	latRad := p.Lat.Radians()
	lonRad := p.Lng.Radians()

	lat2 := math.Asin(math.Sin(latRad)*math.Cos(angularDistance) +
		math.Cos(latRad)*math.Sin(angularDistance)*math.Cos(bearingRad))

	lon2 := lonRad + math.Atan2(
		math.Sin(bearingRad)*math.Sin(angularDistance)*math.Cos(latRad),
		math.Cos(angularDistance)-math.Sin(latRad)*math.Sin(lat2))

	return lat2 * 180 / math.Pi, lon2 * 180 / math.Pi
}

// MetersToLatDegrees converts a north-south distance to degrees of latitude
func MetersToLatDegrees(meters float64) float64 {
	return meters / 111320.0
}

// MetersToLngDegrees converts an east-west distance at the given latitude to
// degrees of longitude
func MetersToLngDegrees(meters, atLat float64) float64 {
	scale := 111320.0 * math.Cos(atLat*math.Pi/180)
	if scale <= 0 {
		return 0
	}
	return meters / scale
}
