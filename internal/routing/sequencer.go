// Package routing orders stops into a short visiting sequence from a fixed
// origin. It is pure computation over great-circle distances.
package routing

import (
	"log"
	"math"

	"travel-planner/internal/geo"
	"travel-planner/internal/models"
)

// Locatable is anything with coordinates
type Locatable interface {
	GetCoords() models.Coordinates
}

const (
	// splitThreshold is the smallest input that gets clustered before ordering
	splitThreshold  = 4
	splitIterations = 8
)

// Sequence returns a permutation of points that starts near origin and keeps
// the total path short. Small inputs are ordered nearest-neighbor only;
// larger ones are split in two groups first and then refined with 2-opt.
// points is not modified.
func Sequence[T Locatable](origin models.Coordinates, points []T) []T {
	if len(points) < splitThreshold {
		return NearestNeighbor(origin, points)
	}

	groupA, groupB := split(points)
	if len(groupA) == 0 || len(groupB) == 0 {
		return NearestNeighbor(origin, points)
	}

	first, second := groupA, groupB
	if minDistance(origin, groupB) < minDistance(origin, groupA) {
		first, second = groupB, groupA
	}

	ordered := NearestNeighbor(origin, first)
	start := origin
	if len(ordered) > 0 {
		start = ordered[len(ordered)-1].GetCoords()
	}
	ordered = append(ordered, NearestNeighbor(start, second)...)

	before := PathLength(origin, ordered)
	passes := twoOpt(origin, ordered)
	log.Printf("[ROUTING] Sequenced: points=%d groups=%d/%d before=%.0fm after=%.0fm passes=%d",
		len(points), len(first), len(second), before, PathLength(origin, ordered), passes)

	return ordered
}

// NearestNeighbor orders points greedily, always moving to the closest
// remaining point. Ties keep input order.
func NearestNeighbor[T Locatable](start models.Coordinates, points []T) []T {
	remaining := append([]T(nil), points...)
	ordered := make([]T, 0, len(points))

	current := start
	for len(remaining) > 0 {
		best := 0
		bestDist := math.Inf(1)
		for i, p := range remaining {
			if d := geo.Haversine(current, p.GetCoords()); d < bestDist {
				best = i
				bestDist = d
			}
		}
		next := remaining[best]
		ordered = append(ordered, next)
		remaining = append(remaining[:best], remaining[best+1:]...)
		current = next.GetCoords()
	}
	return ordered
}

// PathLength is the great-circle length of origin -> points[0] -> ... in meters
func PathLength[T Locatable](origin models.Coordinates, points []T) float64 {
	total := 0.0
	prev := origin
	for _, p := range points {
		c := p.GetCoords()
		total += geo.Haversine(prev, c)
		prev = c
	}
	return total
}

// split partitions points in two around the farthest-apart pair, moving
// each group's center to its centroid a fixed number of times.
func split[T Locatable](points []T) ([]T, []T) {
	seedA, seedB := farthestPair(points)
	centerA := points[seedA].GetCoords()
	centerB := points[seedB].GetCoords()

	var groupA, groupB []T
	for iter := 0; iter < splitIterations; iter++ {
		groupA, groupB = groupA[:0], groupB[:0]
		for _, p := range points {
			c := p.GetCoords()
			if geo.Haversine(c, centerA) <= geo.Haversine(c, centerB) {
				groupA = append(groupA, p)
			} else {
				groupB = append(groupB, p)
			}
		}
		if len(groupA) > 0 {
			centerA = centroid(groupA)
		}
		if len(groupB) > 0 {
			centerB = centroid(groupB)
		}
	}
	return groupA, groupB
}

// farthestPair scans i<j and keeps the first pair with the largest distance
func farthestPair[T Locatable](points []T) (int, int) {
	bestI, bestJ := 0, 1
	bestDist := -1.0
	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			if d := geo.Haversine(points[i].GetCoords(), points[j].GetCoords()); d > bestDist {
				bestI, bestJ, bestDist = i, j, d
			}
		}
	}
	return bestI, bestJ
}

func centroid[T Locatable](points []T) models.Coordinates {
	var lat, lng float64
	for _, p := range points {
		c := p.GetCoords()
		lat += c.Lat
		lng += c.Lng
	}
	n := float64(len(points))
	return models.Coordinates{Lat: lat / n, Lng: lng / n}
}

func minDistance[T Locatable](origin models.Coordinates, points []T) float64 {
	best := math.Inf(1)
	for _, p := range points {
		best = math.Min(best, geo.Haversine(origin, p.GetCoords()))
	}
	return best
}
