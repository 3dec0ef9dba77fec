package tolerance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailpeak/trackmatch/internal/lib/geo"
	"github.com/trailpeak/trackmatch/internal/lib/profile"
)

func kmToLonDegrees(km float64) float64 {
	return km / (geo.EarthRadiusKm * math.Pi / 180)
}

func equatorProfile(t *testing.T, kms []float64, elevations []float64) *profile.ElevationProfile {
	t.Helper()
	points := make([]geo.Point, len(kms))
	for i, km := range kms {
		points[i] = geo.NewPointUnsafe(0, kmToLonDegrees(km))
		if elevations != nil {
			points[i].Elevation = elevations[i]
		}
	}
	p, err := profile.New(points)
	require.NoError(t, err)
	return p
}

func TestMatchAligned_IdenticalProfilesZeroTolerance(t *testing.T) {
	p1 := equatorProfile(t, []float64{0, 1, 2, 3}, []float64{10, 20, 30, 40})
	p2 := equatorProfile(t, []float64{0, 1, 2, 3}, []float64{10, 20, 30, 40})

	vector, err := MatchAligned(p1, p2, Options{ToleranceKm: 0})
	require.NoError(t, err)
	require.Len(t, vector, p1.Len())
	for i, ok := range vector {
		assert.True(t, ok, "index %d should conform", i)
	}
}

func TestMatchAligned_DivergingIndexMarked(t *testing.T) {
	p1 := equatorProfile(t, []float64{0, 1, 2, 3}, nil)
	p2 := equatorProfile(t, []float64{0, 1, 2.5, 3}, nil)

	vector, err := MatchAligned(p1, p2, Options{ToleranceKm: 0.1})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, false, true}, vector)
}

func TestMatchAligned_LengthMismatch(t *testing.T) {
	p1 := equatorProfile(t, []float64{0, 1, 2}, nil)
	p2 := equatorProfile(t, []float64{0, 1}, nil)

	_, err := MatchAligned(p1, p2, Options{ToleranceKm: 0.1})
	assert.ErrorIs(t, err, profile.ErrLengthMismatch)
}

func TestMatchAligned_NegativeTolerance(t *testing.T) {
	p := equatorProfile(t, []float64{0, 1}, nil)
	_, err := MatchAligned(p, p, Options{ToleranceKm: -1})
	assert.ErrorIs(t, err, profile.ErrInvalidInput)
}

func TestMatchAligned_ElevationAxis(t *testing.T) {
	// Same positions, 500m apart vertically.
	p1 := equatorProfile(t, []float64{0, 1}, []float64{0, 0})
	p2 := equatorProfile(t, []float64{0, 1}, []float64{500, 500})

	horizontal, err := MatchAligned(p1, p2, Options{ToleranceKm: 0.1})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true}, horizontal)

	combined, err := MatchAligned(p1, p2, Options{ToleranceKm: 0.1, IncludeElevation: true})
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false}, combined)
}

func TestMatchKDTree_AgreesWithDirectOnAlignedProfiles(t *testing.T) {
	// Equal lengths and each p1 point closest to the same-index p2 point.
	p1 := equatorProfile(t, []float64{0, 1, 2, 3, 4}, nil)
	p2 := equatorProfile(t, []float64{0.05, 1.05, 2.5, 3.05, 4.05}, nil)

	opts := Options{ToleranceKm: 0.1}
	direct, err := MatchAligned(p1, p2, opts)
	require.NoError(t, err)
	indexed, err := MatchKDTree(p1, p2, opts)
	require.NoError(t, err)

	assert.Equal(t, direct, indexed)
}

func TestMatchKDTree_UnequalLengths(t *testing.T) {
	base := equatorProfile(t, []float64{0, 1, 2, 3, 4, 5}, nil)
	sparse := equatorProfile(t, []float64{0, 2.5, 5, 30}, nil)

	vector, err := MatchKDTree(sparse, base, Options{ToleranceKm: 0.6})
	require.NoError(t, err)
	require.Len(t, vector, sparse.Len())
	assert.Equal(t, []bool{true, true, true, false}, vector)
}

func TestMatchKDTree_ZeroToleranceIdentical(t *testing.T) {
	p1 := equatorProfile(t, []float64{0, 1, 2}, nil)
	p2 := equatorProfile(t, []float64{0, 1, 2}, nil)

	vector, err := MatchKDTree(p1, p2, Options{ToleranceKm: 0})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, true}, vector)
}

func TestMatchKDTree_ElevationAxis(t *testing.T) {
	p1 := equatorProfile(t, []float64{0, 1}, []float64{0, 0})
	p2 := equatorProfile(t, []float64{0, 1}, []float64{500, 500})

	horizontal, err := MatchKDTree(p1, p2, Options{ToleranceKm: 0.1})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true}, horizontal)

	combined, err := MatchKDTree(p1, p2, Options{ToleranceKm: 0.1, IncludeElevation: true})
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false}, combined)
}

func TestMatchNearestOnAxis(t *testing.T) {
	base := equatorProfile(t, []float64{0, 1, 2, 3, 4, 5}, nil)
	comparison := equatorProfile(t, []float64{0.02, 1.02, 2.02, 3.02, 4.02}, nil)

	vector, err := MatchNearestOnAxis(base, comparison, 0.1)
	require.NoError(t, err)
	require.Len(t, vector, comparison.Len())
	for i, ok := range vector {
		assert.True(t, ok, "index %d should conform", i)
	}
}

func TestMatchNearestOnAxis_OutsideAxisMarkedFalse(t *testing.T) {
	base := equatorProfile(t, []float64{0, 1, 2}, nil)
	comparison := equatorProfile(t, []float64{0, 1, 2, 3, 4}, nil)

	vector, err := MatchNearestOnAxis(base, comparison, 0.1)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, true, false, false}, vector)
}

func TestMatchNearestOnAxis_LateralDivergence(t *testing.T) {
	base := equatorProfile(t, []float64{0, 1, 2}, nil)

	// Same distance parameterization, but the middle point sits 1km north
	// of the line.
	points := []geo.Point{
		geo.NewPointUnsafe(0, 0),
		geo.NewPointUnsafe(1.0/(geo.EarthRadiusKm*math.Pi/180), kmToLonDegrees(1)),
		geo.NewPointUnsafe(0, kmToLonDegrees(2)),
	}
	comparison, err := profile.New(points)
	require.NoError(t, err)

	vector, err := MatchNearestOnAxis(base, comparison, 0.1)
	require.NoError(t, err)
	assert.True(t, vector[0])
	assert.False(t, vector[1], "laterally divergent point must not conform")
}
