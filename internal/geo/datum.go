package geo

import (
	"math"

	"travel-planner/internal/models"
)

// Krasovsky 1940 ellipsoid parameters used by the GCJ-02 offset
const (
	gcjA  = 6378245.0
	gcjEE = 0.00669342162296594323
)

// OutOfChina reports whether the point lies outside the area where the
// GCJ-02 offset applies. Such points are returned unchanged.
func OutOfChina(c models.Coordinates) bool {
	return c.Lng < 72.004 || c.Lng > 137.8347 || c.Lat < 0.8293 || c.Lat > 55.8271
}

// WGS84ToGCJ02 converts a GPS coordinate to the map provider's datum
func WGS84ToGCJ02(c models.Coordinates) models.Coordinates {
	if OutOfChina(c) {
		return c
	}
	dLat, dLng := gcjDelta(c)
	return models.Coordinates{Lat: c.Lat + dLat, Lng: c.Lng + dLng}
}

// GCJ02ToWGS84 is the approximate inverse of WGS84ToGCJ02 (error of a few meters)
func GCJ02ToWGS84(c models.Coordinates) models.Coordinates {
	if OutOfChina(c) {
		return c
	}
	dLat, dLng := gcjDelta(c)
	return models.Coordinates{Lat: c.Lat - dLat, Lng: c.Lng - dLng}
}

func gcjDelta(c models.Coordinates) (float64, float64) {
	dLat := transformLat(c.Lng-105.0, c.Lat-35.0)
	dLng := transformLng(c.Lng-105.0, c.Lat-35.0)
	radLat := c.Lat / 180.0 * math.Pi
	magic := math.Sin(radLat)
	magic = 1 - gcjEE*magic*magic
	sqrtMagic := math.Sqrt(magic)
	dLat = (dLat * 180.0) / ((gcjA * (1 - gcjEE)) / (magic * sqrtMagic) * math.Pi)
	dLng = (dLng * 180.0) / (gcjA / sqrtMagic * math.Cos(radLat) * math.Pi)
	return dLat, dLng
}

func transformLat(x, y float64) float64 {
	ret := -100.0 + 2.0*x + 3.0*y + 0.2*y*y + 0.1*x*y + 0.2*math.Sqrt(math.Abs(x))
	ret += (20.0*math.Sin(6.0*x*math.Pi) + 20.0*math.Sin(2.0*x*math.Pi)) * 2.0 / 3.0
	ret += (20.0*math.Sin(y*math.Pi) + 40.0*math.Sin(y/3.0*math.Pi)) * 2.0 / 3.0
	ret += (160.0*math.Sin(y/12.0*math.Pi) + 320*math.Sin(y*math.Pi/30.0)) * 2.0 / 3.0
	return ret
}

func transformLng(x, y float64) float64 {
	ret := 300.0 + x + 2.0*y + 0.1*x*x + 0.1*x*y + 0.1*math.Sqrt(math.Abs(x))
	ret += (20.0*math.Sin(6.0*x*math.Pi) + 20.0*math.Sin(2.0*x*math.Pi)) * 2.0 / 3.0
	ret += (20.0*math.Sin(x*math.Pi) + 40.0*math.Sin(x/3.0*math.Pi)) * 2.0 / 3.0
	ret += (150.0*math.Sin(x/12.0*math.Pi) + 300.0*math.Sin(x/30.0*math.Pi)) * 2.0 / 3.0
	return ret
}
