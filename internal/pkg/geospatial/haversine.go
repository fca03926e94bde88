package geospatial

import (
	"math"

	"github.com/samirrijal/hafasgo/internal/core/domain"
)

// Mean earth radius in meters (IUGG).
const earthRadius = 6371008.8

// Haversine returns the great-circle distance in meters between two points
// given in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	φ1, φ2 := toRad(lat1), toRad(lat2)
	dφ := φ2 - φ1
	dλ := toRad(lon2 - lon1)

	h := math.Sin(dφ/2)*math.Sin(dφ/2) + math.Cos(φ1)*math.Cos(φ2)*math.Sin(dλ/2)*math.Sin(dλ/2)
	return 2 * earthRadius * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Meters is the distance between a and b rounded to whole meters.
func Meters(a, b domain.GeoPoint) int {
	return int(math.Round(Haversine(a.Lat, a.Lon, b.Lat, b.Lon)))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
