package track

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"

	"github.com/trailpeak/trackmatch/internal/lib/geo"
	"github.com/trailpeak/trackmatch/internal/lib/profile"
)

// InterpolateToMatchPoints resamples the full route's geometry onto the point
// cadence of the subset route. The result has exactly len(subset) points,
// sampled at distances linearly spaced over [0, full total distance], so it
// covers the full route uniformly while being index-comparable with the
// subset. Elevation is carried over only when every full-route point has one.
// Neither input is mutated.
func InterpolateToMatchPoints(fullRoute, subsetRoute *Track) (*Track, error) {
	if fullRoute.Len() < 2 {
		return nil, fmt.Errorf("%w: full route must have at least 2 points for interpolation", profile.ErrInvalidInput)
	}
	if subsetRoute.Len() < 2 {
		return nil, fmt.Errorf("%w: subset route must have at least 2 points", profile.ErrInvalidInput)
	}

	fullProfile, err := fullRoute.Profile()
	if err != nil {
		return nil, err
	}

	distances := fullProfile.Distances()
	latitudes := fullProfile.Latitudes()
	longitudes := fullProfile.Longitudes()
	elevations := fullProfile.Elevations()

	withElevation := true
	for _, pt := range fullRoute.points {
		if !pt.HasElevation() {
			withElevation = false
			break
		}
	}

	// Coincident consecutive points produce duplicate cumulative distances;
	// collapse them so the interpolation axis is strictly increasing.
	distances, axes := dedupeAxis(distances, latitudes, longitudes, elevations)
	latitudes, longitudes, elevations = axes[0], axes[1], axes[2]
	if len(distances) < 2 {
		return nil, fmt.Errorf("%w: full route has zero length", profile.ErrInvalidInput)
	}

	var latInterp, lonInterp, elevInterp interp.PiecewiseLinear
	if err := latInterp.Fit(distances, latitudes); err != nil {
		return nil, fmt.Errorf("fitting latitude interpolant: %w", err)
	}
	if err := lonInterp.Fit(distances, longitudes); err != nil {
		return nil, fmt.Errorf("fitting longitude interpolant: %w", err)
	}
	if withElevation {
		if err := elevInterp.Fit(distances, elevations); err != nil {
			return nil, fmt.Errorf("fitting elevation interpolant: %w", err)
		}
	}

	targetCount := subsetRoute.Len()
	targets := make([]float64, targetCount)
	floats.Span(targets, 0, distances[len(distances)-1])

	points := make([]geo.Point, targetCount)
	for i, d := range targets {
		pt := geo.NewPointUnsafe(latInterp.Predict(d), lonInterp.Predict(d))
		if withElevation {
			pt.Elevation = elevInterp.Predict(d)
		}
		points[i] = pt
	}

	return New(points), nil
}

// dedupeAxis collapses entries whose x equals the previous x, keeping the
// last occurrence so the final sample lands exactly on the total distance.
func dedupeAxis(xs []float64, ys ...[]float64) ([]float64, [][]float64) {
	outX := xs[:0:0]
	outY := make([][]float64, len(ys))
	for i := range xs {
		if len(outX) > 0 && xs[i] == outX[len(outX)-1] {
			for a := range ys {
				outY[a][len(outY[a])-1] = ys[a][i]
			}
			continue
		}
		outX = append(outX, xs[i])
		for a := range ys {
			outY[a] = append(outY[a], ys[a][i])
		}
	}
	return outX, outY
}
