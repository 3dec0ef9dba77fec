package compare

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailpeak/trackmatch/internal/lib/geo"
	"github.com/trailpeak/trackmatch/internal/lib/profile"
	"github.com/trailpeak/trackmatch/internal/lib/track"
)

// kmToLonDegrees converts a distance along the equator to degrees of
// longitude, so tracks can be laid out at exact kilometer marks.
func kmToLonDegrees(km float64) float64 {
	return km / (geo.EarthRadiusKm * math.Pi / 180)
}

// equatorTrack builds a track along the equator with points at the given
// kilometer marks. Elevations are optional.
func equatorTrack(kms []float64, elevations []float64) *track.Track {
	points := make([]geo.Point, len(kms))
	for i, km := range kms {
		points[i] = geo.NewPointUnsafe(0, kmToLonDegrees(km))
		if elevations != nil {
			points[i].Elevation = elevations[i]
		}
	}
	return track.New(points)
}

// hillTrack lays out n points at spacing km intervals along the equator with
// elevations drawn from f evaluated at each point's distance.
func hillTrack(n int, spacingKm float64, f func(d float64) float64) *track.Track {
	kms := make([]float64, n)
	elevations := make([]float64, n)
	for i := range kms {
		kms[i] = float64(i) * spacingKm
		elevations[i] = f(kms[i])
	}
	return equatorTrack(kms, elevations)
}

func rollingHills(d float64) float64 {
	return 100 * math.Sin(2*math.Pi*d/2)
}

func TestElevationSync_IdenticalTracks(t *testing.T) {
	base := hillTrack(101, 0.1, rollingHills)
	comparison := hillTrack(101, 0.1, rollingHills)

	baseProfile, comparisonProfile, shiftKm, err := ElevationSync(base, comparison)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, shiftKm, 1e-9)
	assert.Equal(t, baseProfile.Len(), comparisonProfile.Len())
	assert.InDelta(t, baseProfile.TotalDistance(), comparisonProfile.TotalDistance(), 1e-9)
}

func TestElevationSync_RecoversAxisOffset(t *testing.T) {
	base := hillTrack(101, 0.1, rollingHills)
	// Same geometry, but the elevation pattern lags 0.2km behind the base.
	comparison := hillTrack(101, 0.1, func(d float64) float64 {
		return rollingHills(d - 0.2)
	})

	_, comparisonProfile, shiftKm, err := ElevationSync(base, comparison)
	require.NoError(t, err)

	// Common grid is 1000 samples over 10km, so the shift resolves in steps
	// of about 0.01km.
	assert.InDelta(t, -0.2, shiftKm, 0.015)
	assert.InDelta(t, shiftKm, comparisonProfile.Distance(0), 1e-9)
}

func TestElevationSync_ShiftedProfileDoesNotAliasInput(t *testing.T) {
	base := hillTrack(51, 0.1, rollingHills)
	comparison := hillTrack(51, 0.1, rollingHills)

	_, shifted, _, err := ElevationSync(base, comparison)
	require.NoError(t, err)

	require.NoError(t, shifted.SetDistances(make([]float64, shifted.Len())))

	originalProfile, err := comparison.Profile()
	require.NoError(t, err)
	assert.InDelta(t, 5.0, originalProfile.TotalDistance(), 1e-6)
}

func TestElevationSync_RequiresElevations(t *testing.T) {
	base := equatorTrack([]float64{0, 1, 2}, nil)
	comparison := equatorTrack([]float64{0, 1, 2}, []float64{10, 20, 30})

	_, _, _, err := ElevationSync(base, comparison)
	assert.ErrorIs(t, err, profile.ErrNoElevationData)
}

func TestStartSync_TrimsToClosestHeads(t *testing.T) {
	base := equatorTrack([]float64{0, 1, 2, 3, 4, 5}, nil)
	comparison := equatorTrack([]float64{1, 2, 3, 4, 5}, nil)

	trimmedBase, trimmedComparison, err := StartSync(base, comparison, 0.1)
	require.NoError(t, err)

	assert.Equal(t, 5, trimmedBase.Len())
	assert.Equal(t, 5, trimmedComparison.Len())
	assert.InDelta(t, trimmedBase.Point(0).Longitude, trimmedComparison.Point(0).Longitude, 1e-12)
}

func TestStartSync_NoCommonStartWithinTolerance(t *testing.T) {
	base := equatorTrack([]float64{0, 1, 2}, nil)
	comparison := equatorTrack([]float64{10, 11, 12}, nil)

	_, _, err := StartSync(base, comparison, 0.1)
	assert.ErrorIs(t, err, track.ErrNoAlignmentFound)
}

func TestStartSync_DoesNotMutateInputs(t *testing.T) {
	base := equatorTrack([]float64{0, 1, 2, 3}, nil)
	comparison := equatorTrack([]float64{0.5, 1.5, 2.5}, nil)

	trimmed, _, err := StartSync(base, comparison, 1.0)
	require.NoError(t, err)
	trimmed.SetPoints([]geo.Point{geo.NewPointUnsafe(0, 0), geo.NewPointUnsafe(0, 1)})

	assert.Equal(t, 4, base.Len())
}

func TestInterpolateElevations_ResamplesOntoBaseAxis(t *testing.T) {
	base := equatorTrack([]float64{0, 1, 2}, []float64{5, 15, 25})
	comparison := equatorTrack([]float64{0, 0.5, 1, 1.5, 2}, []float64{0, 10, 20, 30, 40})

	baseProfile, aligned, err := InterpolateElevations(base, comparison)
	require.NoError(t, err)

	require.Equal(t, baseProfile.Len(), aligned.Len())
	for i := 0; i < baseProfile.Len(); i++ {
		assert.InDelta(t, baseProfile.Distance(i), aligned.Distance(i), 1e-9, "distance %d", i)
	}

	elevations := aligned.Elevations()
	assert.InDelta(t, 0.0, elevations[0], 1e-6)
	assert.InDelta(t, 20.0, elevations[1], 1e-6)
	assert.InDelta(t, 40.0, elevations[2], 1e-6)
}

func TestInterpolateElevations_ClampsOutsideComparisonRange(t *testing.T) {
	base := equatorTrack([]float64{0, 2, 4, 6}, []float64{0, 0, 0, 0})
	comparison := equatorTrack([]float64{1, 2, 3, 4, 5}, []float64{10, 20, 30, 40, 50})

	_, aligned, err := InterpolateElevations(base, comparison)
	require.NoError(t, err)

	elevations := aligned.Elevations()
	assert.InDelta(t, 10.0, elevations[0], 1e-6, "before comparison range clamps to first elevation")
	assert.InDelta(t, 50.0, elevations[3], 1e-6, "past comparison range clamps to last elevation")
}

func TestInterpolateElevations_ComparisonShorterThanBase(t *testing.T) {
	base := equatorTrack([]float64{0, 1, 2, 3}, []float64{0, 0, 0, 0})
	comparison := equatorTrack([]float64{0, 1, 2}, []float64{0, 10, 20})

	_, _, err := InterpolateElevations(base, comparison)
	assert.ErrorIs(t, err, profile.ErrLengthMismatch)
}

func TestInterpolateElevations_RequiresComparisonElevations(t *testing.T) {
	base := equatorTrack([]float64{0, 1, 2}, []float64{0, 0, 0})
	comparison := equatorTrack([]float64{0, 1, 2}, nil)

	_, _, err := InterpolateElevations(base, comparison)
	assert.ErrorIs(t, err, profile.ErrNoElevationData)
}
