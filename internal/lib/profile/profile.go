// Package profile derives and caches cumulative along-track distance for an
// ordered point sequence and exposes per-axis views and elevation statistics.
package profile

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/trailpeak/trackmatch/internal/lib/geo"
)

var (
	// ErrInvalidInput indicates an empty or structurally invalid point sequence.
	ErrInvalidInput = errors.New("profile: invalid input")
	// ErrLengthMismatch indicates a sequence-length contract violation between paired inputs.
	ErrLengthMismatch = errors.New("profile: length mismatch")
	// ErrNoElevationData indicates statistics were requested with no elevation present.
	ErrNoElevationData = errors.New("profile: no elevation data")
)

// ElevationProfile owns an ordered point sequence and a parallel sequence of
// cumulative haversine distances in kilometers, index-aligned 1:1 with the
// points. Distances are purely planar: replacing elevations never changes
// them.
type ElevationProfile struct {
	points    []geo.Point
	distances []float64
}

// New constructs a profile from a non-empty point sequence. The input slice
// is copied; cumulative distances are computed once here, with distances[0]
// always 0.
func New(points []geo.Point) (*ElevationProfile, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: at least one point required", ErrInvalidInput)
	}

	owned := make([]geo.Point, len(points))
	copy(owned, points)

	distances := make([]float64, len(owned))
	for i := 1; i < len(owned); i++ {
		distances[i] = distances[i-1] + geo.Haversine(owned[i-1], owned[i])
	}

	return &ElevationProfile{points: owned, distances: distances}, nil
}

// Len returns the number of points in the profile.
func (p *ElevationProfile) Len() int {
	return len(p.points)
}

// Point returns the point at index i.
func (p *ElevationProfile) Point(i int) geo.Point {
	return p.points[i]
}

// Points returns a copy of the point sequence.
func (p *ElevationProfile) Points() []geo.Point {
	out := make([]geo.Point, len(p.points))
	copy(out, p.points)
	return out
}

// Latitudes returns the latitudes of all points in order.
func (p *ElevationProfile) Latitudes() []float64 {
	out := make([]float64, len(p.points))
	for i, pt := range p.points {
		out[i] = pt.Latitude
	}
	return out
}

// Longitudes returns the longitudes of all points in order.
func (p *ElevationProfile) Longitudes() []float64 {
	out := make([]float64, len(p.points))
	for i, pt := range p.points {
		out[i] = pt.Longitude
	}
	return out
}

// Elevations returns the elevations of all points in order, NaN where absent.
func (p *ElevationProfile) Elevations() []float64 {
	out := make([]float64, len(p.points))
	for i, pt := range p.points {
		out[i] = pt.Elevation
	}
	return out
}

// Distances returns a copy of the cumulative distances in kilometers.
func (p *ElevationProfile) Distances() []float64 {
	out := make([]float64, len(p.distances))
	copy(out, p.distances)
	return out
}

// Distance returns the cumulative distance at index i in kilometers.
func (p *ElevationProfile) Distance(i int) float64 {
	return p.distances[i]
}

// TotalDistance returns the cumulative distance at the last point.
func (p *ElevationProfile) TotalDistance() float64 {
	return p.distances[len(p.distances)-1]
}

// SetElevations replaces the elevation of each point positionally. Distances
// are left untouched. The value count must equal the point count.
func (p *ElevationProfile) SetElevations(elevations []float64) error {
	if len(elevations) != len(p.points) {
		return fmt.Errorf("%w: got %d elevations for %d points", ErrLengthMismatch, len(elevations), len(p.points))
	}
	for i, elevation := range elevations {
		p.points[i].Elevation = elevation
	}
	return nil
}

// SetDistances overrides the cumulative distances, for callers that shift or
// re-parameterize the distance axis. The value count must equal the point
// count.
func (p *ElevationProfile) SetDistances(distances []float64) error {
	if len(distances) != len(p.points) {
		return fmt.Errorf("%w: got %d distances for %d points", ErrLengthMismatch, len(distances), len(p.points))
	}
	copy(p.distances, distances)
	return nil
}

// Stats summarizes the elevations present on a profile. StdDev is the sample
// standard deviation.
type Stats struct {
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// ElevationStats computes Stats over the elevations present on the profile.
// Points without elevation are skipped; if no point carries one the call
// fails with ErrNoElevationData.
func (p *ElevationProfile) ElevationStats() (Stats, error) {
	var present []float64
	for _, pt := range p.points {
		if pt.HasElevation() {
			present = append(present, pt.Elevation)
		}
	}
	if len(present) == 0 {
		return Stats{}, ErrNoElevationData
	}

	stats := Stats{
		Min:  floats.Min(present),
		Max:  floats.Max(present),
		Mean: stat.Mean(present, nil),
	}
	if len(present) > 1 {
		stats.StdDev = stat.StdDev(present, nil)
	}
	return stats, nil
}

// AscentStats summarizes the elevation deltas along a profile.
type AscentStats struct {
	Ascent          float64
	Descent         float64
	GreatestAscent  float64
	GreatestDescent float64
}

// ElevationDeltas accumulates total ascent and descent along the profile,
// together with the greatest single-step climb and drop. Steps where either
// endpoint lacks elevation are skipped.
func (p *ElevationProfile) ElevationDeltas() AscentStats {
	var stats AscentStats
	for i := 0; i < len(p.points)-1; i++ {
		if !p.points[i].HasElevation() || !p.points[i+1].HasElevation() {
			continue
		}
		delta := p.points[i+1].Elevation - p.points[i].Elevation
		if delta > 0 {
			stats.Ascent += delta
			stats.GreatestAscent = math.Max(stats.GreatestAscent, delta)
		} else {
			stats.Descent += -delta
			stats.GreatestDescent = math.Max(stats.GreatestDescent, -delta)
		}
	}
	return stats
}

// Copy returns a deep-independent duplicate: mutating the copy never affects
// the original.
func (p *ElevationProfile) Copy() *ElevationProfile {
	points := make([]geo.Point, len(p.points))
	copy(points, p.points)
	distances := make([]float64, len(p.distances))
	copy(distances, p.distances)
	return &ElevationProfile{points: points, distances: distances}
}
