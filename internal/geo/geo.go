// Package geo validates driver proximity to checkpoints.
package geo

import "math"

// EarthRadiusMeters is the spherical-earth approximation radius.
const EarthRadiusMeters = 6371000.0

// DistanceMeters calculates the great-circle distance between two GPS
// coordinates in meters using the Haversine formula.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	// Convert to radians
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	// Haversine formula
	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	// Clamp guards against rounding pushing a past 1 near antipodes
	if a > 1 {
		a = 1
	}
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// WithinRadius reports whether a measured distance falls inside the allowed
// marking radius.
func WithinRadius(distanceMeters, radiusMeters float64) bool {
	return distanceMeters <= radiusMeters
}
