package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailpeak/trackmatch/internal/lib/geo"
	"github.com/trailpeak/trackmatch/internal/lib/profile"
)

func assertSamePosition(t *testing.T, want, got geo.Point) {
	t.Helper()
	assert.Equal(t, want.Latitude, got.Latitude)
	assert.Equal(t, want.Longitude, got.Longitude)
}

func TestAlignEndpoints_LateStart(t *testing.T) {
	// track2 starts 0.5km late along the same line.
	track1 := equatorTrack([]float64{0, 1, 2, 3, 4, 5}, nil)
	track2 := equatorTrack([]float64{0.5, 1.6, 2.5, 3, 4, 5}, nil)

	aligned1, aligned2, err := AlignEndpoints(track1, track2, 0.6)
	require.NoError(t, err)

	// track1's index-0 point is nearest to track2's start within tolerance.
	assertSamePosition(t, track1.Point(0), aligned1.Point(0))
	assertSamePosition(t, track2.Point(0), aligned2.Point(0))

	first := geo.Haversine(aligned1.Point(0), aligned2.Point(0))
	last := geo.Haversine(aligned1.Point(aligned1.Len()-1), aligned2.Point(aligned2.Len()-1))
	assert.LessOrEqual(t, first, 0.6)
	assert.LessOrEqual(t, last, 0.6)

	// Tail points coincide exactly; the tie-break keeps the outermost pair.
	assertSamePosition(t, track1.Point(5), aligned1.Point(aligned1.Len()-1))
	assertSamePosition(t, track2.Point(5), aligned2.Point(aligned2.Len()-1))
}

func TestAlignEndpoints_TruncatesExtraHead(t *testing.T) {
	// track1 carries a 2km warm-up before the shared route; head windows of
	// 20% (3 of 12 points) reach past it.
	track1 := equatorTrack([]float64{-2, -1, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, nil)
	track2 := equatorTrack([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, nil)

	aligned1, aligned2, err := AlignEndpoints(track1, track2, 0.1)
	require.NoError(t, err)

	assertSamePosition(t, track1.Point(2), aligned1.Point(0))
	assertSamePosition(t, track2.Point(0), aligned2.Point(0))
	assert.Equal(t, aligned1.Len(), aligned2.Len())
}

func TestAlignEndpoints_NoAlignmentWithinTolerance(t *testing.T) {
	track1 := equatorTrack([]float64{0, 1, 2, 3}, nil)
	track2 := equatorTrack([]float64{50, 51, 52, 53}, nil)

	_, _, err := AlignEndpoints(track1, track2, 0.1)
	assert.ErrorIs(t, err, ErrNoAlignmentFound)
}

func TestAlignEndpoints_InputValidation(t *testing.T) {
	single := equatorTrack([]float64{0}, nil)
	pair := equatorTrack([]float64{0, 1}, nil)

	_, _, err := AlignEndpoints(single, pair, 0.1)
	assert.ErrorIs(t, err, profile.ErrInvalidInput)

	_, _, err = AlignEndpoints(pair, single, 0.1)
	assert.ErrorIs(t, err, profile.ErrInvalidInput)
}

func TestAlignEndpoints_DoesNotMutateInputs(t *testing.T) {
	track1 := equatorTrack([]float64{0, 1, 2, 3, 4, 5}, nil)
	track2 := equatorTrack([]float64{0.5, 1.6, 2.5, 3, 4, 5}, nil)
	len1, len2 := track1.Len(), track2.Len()

	aligned1, aligned2, err := AlignEndpoints(track1, track2, 0.6)
	require.NoError(t, err)

	assert.Equal(t, len1, track1.Len())
	assert.Equal(t, len2, track2.Len())

	// The aligned tracks own their points.
	require.NoError(t, aligned1.SetElevations(make([]float64, aligned1.Len())))
	require.NoError(t, aligned2.SetElevations(make([]float64, aligned2.Len())))
	assert.False(t, track1.Point(0).HasElevation())
	assert.False(t, track2.Point(0).HasElevation())
}

func TestAlignEndpoints_ZeroToleranceExactMatch(t *testing.T) {
	track1 := equatorTrack([]float64{0, 1, 2, 3, 4}, nil)
	track2 := equatorTrack([]float64{0, 1, 2, 3, 4}, nil)

	aligned1, aligned2, err := AlignEndpoints(track1, track2, 0)
	require.NoError(t, err)
	assert.Equal(t, track1.Len(), aligned1.Len())
	assert.Equal(t, track2.Len(), aligned2.Len())
}

func TestBoundaryWindow(t *testing.T) {
	assert.Equal(t, 1, boundaryWindow(2))
	assert.Equal(t, 1, boundaryWindow(5))
	assert.Equal(t, 2, boundaryWindow(6))
	assert.Equal(t, 2, boundaryWindow(10))
	assert.Equal(t, 3, boundaryWindow(11))
}
