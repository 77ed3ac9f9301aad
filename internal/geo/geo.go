// Package geo holds the pure geometry used by the planner: great-circle
// distance, walking-time estimates and datum conversion between WGS-84 and
// GCJ-02.
package geo

import (
	"math"

	"travel-planner/internal/models"
)

// EarthRadiusMeters is the mean earth radius used by Haversine
const EarthRadiusMeters = 6371000.0

// WalkingSpeedMPS is the assumed walking speed in meters per second
const WalkingSpeedMPS = 1.3

// Haversine returns the great-circle distance between a and b in meters
func Haversine(a, b models.Coordinates) float64 {
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// WalkingSeconds estimates the walking time for a distance
func WalkingSeconds(meters float64) float64 {
	return meters / WalkingSpeedMPS
}

// ValidCoordinates reports whether c is finite and inside lng/lat bounds
func ValidCoordinates(c models.Coordinates) bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lng >= -180 && c.Lng <= 180 && c.Lat >= -90 && c.Lat <= 90
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
