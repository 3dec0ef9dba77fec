// Package tolerance classifies point-pairs of two elevation profiles as
// within or outside a spatial tolerance, producing a boolean conformance
// vector. Three variants trade exactness of correspondence for robustness to
// unequal sampling: index-wise, nearest-on-distance-axis, and k-d tree
// nearest neighbor.
package tolerance

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/trailpeak/trackmatch/internal/lib/geo"
	"github.com/trailpeak/trackmatch/internal/lib/profile"
)

// Method selects how point correspondence is established.
type Method string

const (
	// MethodDirect compares point i of one profile to point i of the other.
	MethodDirect Method = "direct"
	// MethodKDTree compares each point to its nearest neighbor in the other profile.
	MethodKDTree Method = "kdtree"
)

// Options configures tolerance matching.
type Options struct {
	// ToleranceKm is the non-negative distance within which a pair conforms.
	// Zero requires exact coincidence and is valid.
	ToleranceKm float64
	// IncludeElevation folds the elevation delta into the distance
	// computation. Pairs where either point lacks elevation fall back to
	// horizontal distance only.
	IncludeElevation bool
}

func (o Options) validate() error {
	if o.ToleranceKm < 0 {
		return fmt.Errorf("%w: tolerance must be non-negative, got %f", profile.ErrInvalidInput, o.ToleranceKm)
	}
	return nil
}

// MatchAligned compares point i of p1 to point i of p2 by haversine distance
// (optionally combined with the elevation delta), producing one boolean per
// index. The profiles must have equal point counts.
func MatchAligned(p1, p2 *profile.ElevationProfile, opts Options) ([]bool, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if p1.Len() != p2.Len() {
		return nil, fmt.Errorf("%w: profiles have %d and %d points", profile.ErrLengthMismatch, p1.Len(), p2.Len())
	}

	vector := make([]bool, p1.Len())
	for i := range vector {
		vector[i] = pairDistance(p1.Point(i), p2.Point(i), opts.IncludeElevation) <= opts.ToleranceKm
	}
	return vector, nil
}

// MatchNearestOnAxis marks, for each point of the comparison profile, whether
// it lies within tolerance of the base-profile point whose cumulative
// distance is nearest on the distance axis. Comparison points whose distance
// falls outside the base profile's axis are marked false. The output length
// equals the comparison profile's point count.
func MatchNearestOnAxis(base, comparison *profile.ElevationProfile, toleranceKm float64) ([]bool, error) {
	if toleranceKm < 0 {
		return nil, fmt.Errorf("%w: tolerance must be non-negative, got %f", profile.ErrInvalidInput, toleranceKm)
	}

	baseDistances := base.Distances()
	maxDist := baseDistances[len(baseDistances)-1]

	vector := make([]bool, comparison.Len())
	for i := range vector {
		d := comparison.Distance(i)
		if d < baseDistances[0] || d > maxDist {
			continue
		}

		// Ties between the two bracketing candidates resolve to the lower index.
		pos := sort.SearchFloat64s(baseDistances, d)
		best := pos
		if pos > 0 && (pos == len(baseDistances) || d-baseDistances[pos-1] <= baseDistances[pos]-d) {
			best = pos - 1
		}

		if geo.Haversine(base.Point(best), comparison.Point(i)) <= toleranceKm {
			vector[i] = true
		}
	}
	return vector, nil
}

// MatchKDTree builds a transient k-d tree over p2's points in ECEF
// coordinates and, for each point of p1, marks whether the nearest p2 point
// lies within tolerance. It answers "is p1 point i near some point of p2"
// rather than "near p2 point i", so the profiles may have unequal counts.
// The output length always equals p1's point count. Distances are chord
// lengths, indistinguishable from arc lengths at tolerances far below the
// Earth radius.
func MatchKDTree(p1, p2 *profile.ElevationProfile, opts Options) ([]bool, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	points2 := p2.Points()
	data := make(kdtree.Points, len(points2))
	for i, pt := range points2 {
		data[i] = cartesianPoint(pt, opts.IncludeElevation)
	}
	tree := kdtree.New(data, false)

	vector := make([]bool, p1.Len())
	for i := 0; i < p1.Len(); i++ {
		_, squared := tree.Nearest(cartesianPoint(p1.Point(i), opts.IncludeElevation))
		vector[i] = math.Sqrt(squared) <= opts.ToleranceKm
	}
	return vector, nil
}

// cartesianPoint converts a geographic point to an ECEF k-d tree point. With
// the elevation axis enabled, the sphere radius is scaled by the point's
// elevation so vertical separation inflates the chord distance.
func cartesianPoint(pt geo.Point, includeElevation bool) kdtree.Point {
	radius := geo.EarthRadiusKm
	if includeElevation && pt.HasElevation() {
		radius += pt.Elevation / 1000.0
	}
	x, y, z := pt.Cartesian(radius)
	return kdtree.Point{x, y, z}
}

// pairDistance combines the horizontal haversine distance with the vertical
// elevation delta (in kilometers) when requested and available.
func pairDistance(a, b geo.Point, includeElevation bool) float64 {
	horizontal := geo.Haversine(a, b)
	if !includeElevation || !a.HasElevation() || !b.HasElevation() {
		return horizontal
	}
	vertical := (a.Elevation - b.Elevation) / 1000.0
	return math.Hypot(horizontal, vertical)
}
