// Package route orders tournée addresses for walking.
package route

import (
	"math"

	"github.com/calygofire/calygo"
)

// EarthRadiusKm is the sphere radius used by Haversine.
const EarthRadiusKm = 6371.0

// Haversine returns the great-circle distance in kilometers between a and b.
// It is a straight-line proxy, not a road distance.
func Haversine(a, b calygo.GeoPoint) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// TotalDistance sums the legs of walking points in the given ID order.
// IDs missing from points are skipped.
func TotalDistance(points []calygo.GeoPoint, order []int) float64 {
	byID := make(map[int]calygo.GeoPoint, len(points))
	for _, p := range points {
		byID[p.ID] = p
	}

	var total float64
	var prev *calygo.GeoPoint
	for _, id := range order {
		p, ok := byID[id]
		if !ok {
			continue
		}
		if prev != nil {
			total += Haversine(*prev, p)
		}
		prev = &p
	}
	return total
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
