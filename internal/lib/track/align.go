package track

import (
	"fmt"
	"math"

	"github.com/trailpeak/trackmatch/internal/lib/geo"
	"github.com/trailpeak/trackmatch/internal/lib/profile"
)

// DefaultAlignmentToleranceKm is the default distance within which two points
// are considered the same position during endpoint alignment (100 m).
const DefaultAlignmentToleranceKm = 0.1

// AlignEndpoints truncates two tracks of the same route so they start and end
// at approximately the same positions. It searches only the first and last
// ceil(20%) of each track's points, selects the minimal-distance pair at each
// end, and requires that minimum to be within toleranceKm; otherwise it fails
// with ErrNoAlignmentFound rather than silently keeping the raw endpoints.
// Ties prefer the pair closest to the original boundary, maximizing retained
// overlap. Inputs are never mutated.
func AlignEndpoints(track1, track2 *Track, toleranceKm float64) (*Track, *Track, error) {
	if track1.Len() < 2 || track2.Len() < 2 {
		return nil, nil, fmt.Errorf("%w: both tracks must have at least 2 points for alignment", profile.ErrInvalidInput)
	}

	start1, start2, startDist := bestStartPair(track1, track2)
	if startDist > toleranceKm {
		return nil, nil, fmt.Errorf("%w: best start pair is %.3fkm apart (tolerance %.3fkm)", ErrNoAlignmentFound, startDist, toleranceKm)
	}

	end1, end2, endDist := bestEndPair(track1, track2)
	if endDist > toleranceKm {
		return nil, nil, fmt.Errorf("%w: best end pair is %.3fkm apart (tolerance %.3fkm)", ErrNoAlignmentFound, endDist, toleranceKm)
	}

	if end1 <= start1 || end2 <= start2 {
		return nil, nil, fmt.Errorf("%w: aligned ranges [%d,%d] and [%d,%d]", ErrInsufficientOverlap, start1, end1, start2, end2)
	}

	aligned1 := New(track1.points[start1 : end1+1])
	aligned2 := New(track2.points[start2 : end2+1])
	return aligned1, aligned2, nil
}

// boundaryWindow returns ceil(20%) of n, at least 1. Restricting the search
// to boundary regions bounds cost to O(0.2n * 0.2m).
func boundaryWindow(n int) int {
	w := (n + 4) / 5
	if w < 1 {
		w = 1
	}
	return w
}

// bestStartPair scans the head windows of both tracks for the closest point
// pair. Equal distances prefer earlier indices.
func bestStartPair(track1, track2 *Track) (i, j int, distance float64) {
	w1 := boundaryWindow(track1.Len())
	w2 := boundaryWindow(track2.Len())

	best := math.Inf(1)
	bestI, bestJ := 0, 0
	for a := 0; a < w1; a++ {
		for b := 0; b < w2; b++ {
			d := geo.Haversine(track1.points[a], track2.points[b])
			if d < best || (d == best && a+b < bestI+bestJ) {
				best = d
				bestI, bestJ = a, b
			}
		}
	}
	return bestI, bestJ, best
}

// bestEndPair scans the tail windows of both tracks for the closest point
// pair. Equal distances prefer later indices.
func bestEndPair(track1, track2 *Track) (i, j int, distance float64) {
	n1, n2 := track1.Len(), track2.Len()
	w1 := boundaryWindow(n1)
	w2 := boundaryWindow(n2)

	best := math.Inf(1)
	bestI, bestJ := n1-1, n2-1
	for a := n1 - w1; a < n1; a++ {
		for b := n2 - w2; b < n2; b++ {
			d := geo.Haversine(track1.points[a], track2.points[b])
			if d < best || (d == best && a+b > bestI+bestJ) {
				best = d
				bestI, bestJ = a, b
			}
		}
	}
	return bestI, bestJ, best
}
