package route

import (
	"github.com/calygofire/calygo"
)

// Optimize returns the IDs of points in nearest-neighbor visiting order,
// starting from points[0]. Ties go to the earliest point in input order.
//
// Invalid coordinates are not rejected: they yield NaN distances, which never
// compare smaller, so the result is still a permutation of the input IDs.
func Optimize(points []calygo.GeoPoint) []int {
	ids := make([]int, 0, len(points))
	if len(points) <= 1 {
		for _, p := range points {
			ids = append(ids, p.ID)
		}
		return ids
	}

	visited := make([]bool, len(points))
	current := 0
	visited[current] = true
	ids = append(ids, points[current].ID)

	for range len(points) - 1 {
		next := -1
		var best float64
		for i := range points {
			if visited[i] {
				continue
			}
			d := Haversine(points[current], points[i])
			if next == -1 || d < best {
				next, best = i, d
			}
		}
		visited[next] = true
		ids = append(ids, points[next].ID)
		current = next
	}

	return ids
}
