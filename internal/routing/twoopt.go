package routing

import (
	"travel-planner/internal/geo"
	"travel-planner/internal/models"
)

const (
	maxTwoOptPasses = 50
	// twoOptEpsilon is the smallest gain in meters worth a reversal
	twoOptEpsilon   = 1e-6
)

// twoOpt applies 2-opt in place to the path start -> stops. start never
// moves. Returns the number of passes made.
func twoOpt[T Locatable](start models.Coordinates, stops []T) int {
	if len(stops) < 2 {
		return 0
	}

	passes := 0
	improved := true
	for improved && passes < maxTwoOptPasses {
		improved = false
		passes++
		for i := 0; i < len(stops)-1; i++ {
			for j := i + 2; j <= len(stops); j++ {
				var beforeI models.Coordinates
				if i == 0 {
					beforeI = start
				} else {
					beforeI = stops[i-1].GetCoords()
				}

				// Current edges: beforeI->stops[i] and stops[j-1]->afterJ
				// After reverse: beforeI->stops[j-1] and stops[i]->afterJ
				first := stops[i].GetCoords()
				last := stops[j-1].GetCoords()
				delta := geo.Haversine(beforeI, last) - geo.Haversine(beforeI, first)

				// Reversing a suffix only changes the first edge
				if j < len(stops) {
					afterJ := stops[j].GetCoords()
					delta += geo.Haversine(first, afterJ) - geo.Haversine(last, afterJ)
				}

				if delta < -twoOptEpsilon {
					reverse(stops, i, j-1)
					improved = true
				}
			}
		}
	}
	return passes
}

// reverse reverses stops[i..j] in place
func reverse[T any](stops []T, i, j int) {
	for i < j {
		stops[i], stops[j] = stops[j], stops[i]
		i++
		j--
	}
}
