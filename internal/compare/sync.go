// Package compare synchronizes two GPS tracks onto a comparable footing and
// reports how closely they conform.
package compare

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"

	"github.com/trailpeak/trackmatch/internal/lib/geo"
	"github.com/trailpeak/trackmatch/internal/lib/profile"
	"github.com/trailpeak/trackmatch/internal/lib/track"
)

// SyncMethod selects how the comparison track is brought onto the base
// track's footing before matching.
type SyncMethod string

const (
	// SyncElevation slides the comparison profile along the distance axis to
	// the offset where the elevation series agree best.
	SyncElevation SyncMethod = "elevation_sync"
	// SyncStart trims both tracks to their closest pair of starting points.
	SyncStart SyncMethod = "start_sync"
	// SyncInterpolate resamples the comparison elevations onto the base
	// profile's distance axis.
	SyncInterpolate SyncMethod = "interpolate_elevations"
	// SyncAlign aligns endpoints within boundary windows and resamples the
	// comparison track to the base track's point count.
	SyncAlign SyncMethod = "align"
)

// commonGridSamples is the resolution of the shared distance grid used by
// elevation sync.
const commonGridSamples = 1000

// maxShiftSamples bounds the slide search to ±50 grid samples.
const maxShiftSamples = 50

// startSyncWindow is how many points at the head of each track are searched
// for a common starting point.
const startSyncWindow = 50

// ElevationSync shifts the comparison profile along the distance axis to the
// offset (within ±50 samples of a 1000-sample common grid) that minimizes the
// mean squared elevation error against the base profile. Both tracks must
// carry complete elevation data. The returned profiles share no state with
// the inputs; the comparison profile's distances carry the applied shift,
// which is also returned in kilometers.
func ElevationSync(base, comparison *track.Track) (*profile.ElevationProfile, *profile.ElevationProfile, float64, error) {
	baseProfile, err := base.Profile()
	if err != nil {
		return nil, nil, 0, err
	}
	comparisonProfile, err := comparison.Profile()
	if err != nil {
		return nil, nil, 0, err
	}

	basePredictor, err := elevationPredictor(baseProfile)
	if err != nil {
		return nil, nil, 0, err
	}
	comparisonPredictor, err := elevationPredictor(comparisonProfile)
	if err != nil {
		return nil, nil, 0, err
	}

	lo := math.Max(baseProfile.Distance(0), comparisonProfile.Distance(0))
	hi := math.Min(baseProfile.TotalDistance(), comparisonProfile.TotalDistance())
	if hi <= lo {
		return nil, nil, 0, fmt.Errorf("%w: tracks share no distance range", track.ErrInsufficientOverlap)
	}

	grid := make([]float64, commonGridSamples)
	floats.Span(grid, lo, hi)

	baseElevs := make([]float64, commonGridSamples)
	comparisonElevs := make([]float64, commonGridSamples)
	for i, d := range grid {
		baseElevs[i] = basePredictor.Predict(d)
		comparisonElevs[i] = comparisonPredictor.Predict(d)
	}

	bestShift := -maxShiftSamples
	bestError := math.Inf(1)
	for shift := -maxShiftSamples; shift <= maxShiftSamples; shift++ {
		var shifted, reference []float64
		switch {
		case shift < 0:
			shifted = comparisonElevs[-shift:]
			reference = baseElevs[:len(shifted)]
		case shift > 0:
			shifted = comparisonElevs[:len(comparisonElevs)-shift]
			reference = baseElevs[shift:]
		default:
			shifted = comparisonElevs
			reference = baseElevs
		}

		var sse float64
		for i := range shifted {
			diff := shifted[i] - reference[i]
			sse += diff * diff
		}
		if mse := sse / float64(len(shifted)); mse < bestError {
			bestError = mse
			bestShift = shift
		}
	}

	stepSize := (hi - lo) / float64(commonGridSamples)
	shiftKm := float64(bestShift) * stepSize

	shiftedProfile := comparisonProfile.Copy()
	distances := shiftedProfile.Distances()
	for i := range distances {
		distances[i] += shiftKm
	}
	if err := shiftedProfile.SetDistances(distances); err != nil {
		return nil, nil, 0, err
	}

	return baseProfile.Copy(), shiftedProfile, shiftKm, nil
}

// StartSync trims both tracks to the closest pair of points found within the
// first 50 points of each, so they begin at a shared location. It fails with
// ErrNoAlignmentFound when even the closest pair exceeds the tolerance.
func StartSync(base, comparison *track.Track, toleranceKm float64) (*track.Track, *track.Track, error) {
	if base.Len() == 0 || comparison.Len() == 0 {
		return nil, nil, fmt.Errorf("%w: empty track", profile.ErrInvalidInput)
	}

	window1 := startSyncWindow
	if base.Len() < window1 {
		window1 = base.Len()
	}
	window2 := startSyncWindow
	if comparison.Len() < window2 {
		window2 = comparison.Len()
	}

	bestI, bestJ := 0, 0
	bestDistance := math.Inf(1)
	for i := 0; i < window1; i++ {
		for j := 0; j < window2; j++ {
			if d := geo.Haversine(base.Point(i), comparison.Point(j)); d < bestDistance {
				bestI, bestJ = i, j
				bestDistance = d
			}
		}
	}

	if bestDistance > toleranceKm {
		return nil, nil, fmt.Errorf("%w: closest starting points are %.3fkm apart", track.ErrNoAlignmentFound, bestDistance)
	}

	return track.New(base.Points()[bestI:]), track.New(comparison.Points()[bestJ:]), nil
}

// InterpolateElevations resamples the comparison track's elevations onto the
// base track's distance axis by clamped linear interpolation, returning the
// base profile alongside a comparison profile whose points, distances, and
// elevations all line up index-wise with the base. The comparison track must
// have at least as many points as the base and complete elevation data.
func InterpolateElevations(base, comparison *track.Track) (*profile.ElevationProfile, *profile.ElevationProfile, error) {
	baseProfile, err := base.Profile()
	if err != nil {
		return nil, nil, err
	}
	comparisonProfile, err := comparison.Profile()
	if err != nil {
		return nil, nil, err
	}

	comparisonElevs := comparisonProfile.Elevations()
	for i, e := range comparisonElevs {
		if math.IsNaN(e) {
			return nil, nil, fmt.Errorf("%w: comparison point %d has no elevation", profile.ErrNoElevationData, i)
		}
	}
	if comparisonProfile.Len() < baseProfile.Len() {
		return nil, nil, fmt.Errorf("%w: comparison track has %d points, base has %d", profile.ErrLengthMismatch, comparisonProfile.Len(), baseProfile.Len())
	}

	comparisonDists := comparisonProfile.Distances()
	baseDists := baseProfile.Distances()

	resampled := make([]float64, len(baseDists))
	for i, d := range baseDists {
		resampled[i] = interpolateClamped(comparisonDists, comparisonElevs, d)
	}

	aligned, err := profile.New(comparison.Points()[:baseProfile.Len()])
	if err != nil {
		return nil, nil, err
	}
	if err := aligned.SetDistances(baseDists); err != nil {
		return nil, nil, err
	}
	if err := aligned.SetElevations(resampled); err != nil {
		return nil, nil, err
	}

	return baseProfile, aligned, nil
}

// interpolateClamped linearly interpolates ys over xs at x, clamping to the
// end values outside the range. Zero-width segments take the left value.
func interpolateClamped(xs, ys []float64, x float64) float64 {
	if x <= xs[0] {
		return ys[0]
	}
	if x >= xs[len(xs)-1] {
		return ys[len(ys)-1]
	}

	idx := sort.SearchFloat64s(xs, x)
	left, right := idx-1, idx
	if xs[left] == xs[right] {
		return ys[left]
	}
	ratio := (x - xs[left]) / (xs[right] - xs[left])
	return ys[left] + ratio*(ys[right]-ys[left])
}

// elevationPredictor fits a piecewise-linear interpolant over a profile's
// distance/elevation series. Duplicate distances (coincident points) collapse
// to their last elevation so the fit axis stays strictly increasing.
func elevationPredictor(p *profile.ElevationProfile) (*interp.PiecewiseLinear, error) {
	elevations := p.Elevations()
	for i, e := range elevations {
		if math.IsNaN(e) {
			return nil, fmt.Errorf("%w: point %d has no elevation", profile.ErrNoElevationData, i)
		}
	}

	distances := p.Distances()
	xs := make([]float64, 0, len(distances))
	ys := make([]float64, 0, len(elevations))
	for i := range distances {
		if i > 0 && distances[i] == xs[len(xs)-1] {
			ys[len(ys)-1] = elevations[i]
			continue
		}
		xs = append(xs, distances[i])
		ys = append(ys, elevations[i])
	}
	if len(xs) < 2 {
		return nil, fmt.Errorf("%w: profile spans zero distance", profile.ErrInvalidInput)
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("failed to fit elevation series: %w", err)
	}
	return &pl, nil
}
