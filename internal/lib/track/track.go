// Package track models a recorded GPS track and the operations that make two
// independently recorded tracks of the same route point-for-point comparable:
// distance-parameterized resampling and tolerance-based endpoint alignment.
package track

import (
	"context"
	"errors"
	"fmt"

	"github.com/trailpeak/trackmatch/internal/lib/geo"
	"github.com/trailpeak/trackmatch/internal/lib/profile"
)

var (
	// ErrNoAlignmentFound indicates no point pair within tolerance during endpoint alignment.
	ErrNoAlignmentFound = errors.New("track: no alignment found within tolerance")
	// ErrInsufficientOverlap indicates an aligned result would retain fewer than 2 points.
	ErrInsufficientOverlap = errors.New("track: insufficient overlap after alignment")
)

// ElevationSource supplies one elevation per input point, in input order.
// Concrete sources (web APIs, fixtures) live outside this package.
type ElevationSource interface {
	Elevations(ctx context.Context, points []geo.Point) ([]float64, error)
}

// Track owns an ordered point sequence and lazily derives an ElevationProfile
// and a total-distance scalar from it.
type Track struct {
	points        []geo.Point
	profile       *profile.ElevationProfile
	totalDistance float64
	hasTotal      bool
}

// New creates a Track from a point sequence. The input slice is copied.
func New(points []geo.Point) *Track {
	owned := make([]geo.Point, len(points))
	copy(owned, points)
	return &Track{points: owned}
}

// Len returns the number of points in the track.
func (t *Track) Len() int {
	return len(t.points)
}

// Point returns the point at index i.
func (t *Track) Point(i int) geo.Point {
	return t.points[i]
}

// Points returns a copy of the point sequence.
func (t *Track) Points() []geo.Point {
	out := make([]geo.Point, len(t.points))
	copy(out, t.points)
	return out
}

// SetPoints replaces the point sequence and discards the cached profile and
// total distance.
func (t *Track) SetPoints(points []geo.Point) {
	owned := make([]geo.Point, len(points))
	copy(owned, points)
	t.points = owned
	t.profile = nil
	t.hasTotal = false
}

// Profile returns the ElevationProfile for the current points, computing and
// caching it on first use.
func (t *Track) Profile() (*profile.ElevationProfile, error) {
	if t.profile == nil {
		p, err := profile.New(t.points)
		if err != nil {
			return nil, err
		}
		t.profile = p
	}
	return t.profile, nil
}

// TotalDistance returns the total haversine distance of the track in
// kilometers, 0 for tracks with fewer than 2 points.
func (t *Track) TotalDistance() float64 {
	if !t.hasTotal {
		var distance float64
		for i := 0; i < len(t.points)-1; i++ {
			distance += t.points[i].DistanceTo(t.points[i+1])
		}
		t.totalDistance = distance
		t.hasTotal = true
	}
	return t.totalDistance
}

// Latitudes returns the latitudes of all points in order.
func (t *Track) Latitudes() []float64 {
	out := make([]float64, len(t.points))
	for i, pt := range t.points {
		out[i] = pt.Latitude
	}
	return out
}

// Longitudes returns the longitudes of all points in order.
func (t *Track) Longitudes() []float64 {
	out := make([]float64, len(t.points))
	for i, pt := range t.points {
		out[i] = pt.Longitude
	}
	return out
}

// Elevations returns the elevations of all points in order, NaN where absent.
func (t *Track) Elevations() []float64 {
	out := make([]float64, len(t.points))
	for i, pt := range t.points {
		out[i] = pt.Elevation
	}
	return out
}

// SetElevations replaces the elevation of each point positionally and keeps a
// cached profile in sync. The value count must equal the point count.
func (t *Track) SetElevations(elevations []float64) error {
	if len(elevations) != len(t.points) {
		return fmt.Errorf("%w: got %d elevations for %d points", profile.ErrLengthMismatch, len(elevations), len(t.points))
	}
	for i, elevation := range elevations {
		t.points[i].Elevation = elevation
	}
	if t.profile != nil {
		return t.profile.SetElevations(elevations)
	}
	return nil
}

// Copy returns a deep-independent duplicate of the track.
func (t *Track) Copy() *Track {
	return New(t.points)
}

// WithElevations returns a new Track whose elevations come from the given
// source. The receiver is never mutated; a source returning a mismatched
// count fails with ErrLengthMismatch.
func (t *Track) WithElevations(ctx context.Context, source ElevationSource) (*Track, error) {
	elevations, err := source.Elevations(ctx, t.Points())
	if err != nil {
		return nil, fmt.Errorf("fetching elevations: %w", err)
	}

	out := t.Copy()
	if err := out.SetElevations(elevations); err != nil {
		return nil, err
	}
	return out, nil
}
