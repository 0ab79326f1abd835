package route

import "math"

// Bounds is a latitude/longitude rectangle, edges included.
type Bounds struct {
	North float64
	South float64
	East  float64
	West  float64
}

func (b Bounds) Contains(lat, lon float64) bool {
	return lat <= b.North && lat >= b.South && lon <= b.East && lon >= b.West
}

// SaintePazanneBounds is the default canvassing area.
func SaintePazanneBounds() Bounds {
	return Bounds{
		North: 47.12,
		South: 47.08,
		East:  -1.83,
		West:  -1.87,
	}
}

// ValidCoordinates reports whether lat and lon are real degrees in range.
func ValidCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
