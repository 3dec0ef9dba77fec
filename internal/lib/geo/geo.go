package geo

import (
	"errors"
	"math"
)

// EarthRadiusKm is the mean Earth radius used for all great-circle math.
// Tolerance thresholds elsewhere are calibrated against this exact value.
const EarthRadiusKm = 6371.0

// Point represents a geographic coordinate with an optional elevation.
// It is a value type: assignment produces an independent copy.
type Point struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	Elevation float64 `json:"elevation"` // meters; NaN when absent
}

// NewPoint creates a Point without elevation, validating coordinate ranges.
func NewPoint(latitude, longitude float64) (Point, error) {
	point := Point{Latitude: latitude, Longitude: longitude, Elevation: math.NaN()}
	if !point.Valid() {
		return Point{}, errors.New("invalid coordinates: latitude must be [-90, 90], longitude must be [-180, 180]")
	}
	return point, nil
}

// NewPointUnsafe creates a Point without validation (for performance-critical paths).
func NewPointUnsafe(latitude, longitude float64) Point {
	return Point{Latitude: latitude, Longitude: longitude, Elevation: math.NaN()}
}

// NewPointWithElevation creates a validated Point carrying an elevation in meters.
func NewPointWithElevation(latitude, longitude, elevation float64) (Point, error) {
	point, err := NewPoint(latitude, longitude)
	if err != nil {
		return Point{}, err
	}
	point.Elevation = elevation
	return point, nil
}

// Valid reports whether latitude and longitude are within range.
func (p Point) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

// HasElevation reports whether the point carries an elevation value.
func (p Point) HasElevation() bool {
	return !math.IsNaN(p.Elevation)
}

// WithoutElevation returns a copy of the point with the elevation cleared.
func (p Point) WithoutElevation() Point {
	p.Elevation = math.NaN()
	return p
}

// DistanceTo returns the haversine distance to another point in kilometers.
func (p Point) DistanceTo(other Point) float64 {
	return Haversine(p, other)
}

// Haversine calculates the great-circle distance between two points in
// kilometers on a sphere of radius EarthRadiusKm.
func Haversine(p1, p2 Point) float64 {
	return HaversineOnSphere(p1, p2, EarthRadiusKm)
}

// HaversineOnSphere calculates the great-circle distance between two points
// on a sphere with the given radius. The radius is a parameter so tests can
// inject alternate sphere sizes without touching shared state.
func HaversineOnSphere(p1, p2 Point, radiusKm float64) float64 {
	if p1.Latitude == p2.Latitude && p1.Longitude == p2.Longitude {
		return 0
	}

	lat1 := p1.Latitude * math.Pi / 180
	lon1 := p1.Longitude * math.Pi / 180
	lat2 := p2.Latitude * math.Pi / 180
	lon2 := p2.Longitude * math.Pi / 180

	dlat := lat2 - lat1
	dlon := lon2 - lon1

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return radiusKm * c
}

// Cartesian converts the point to ECEF coordinates (kilometers) on a sphere
// of the given radius. Elevation is not folded in; callers that want an
// elevation-aware conversion scale the radius themselves.
func (p Point) Cartesian(radiusKm float64) (x, y, z float64) {
	lat := p.Latitude * math.Pi / 180
	lon := p.Longitude * math.Pi / 180
	x = radiusKm * math.Cos(lat) * math.Cos(lon)
	y = radiusKm * math.Cos(lat) * math.Sin(lon)
	z = radiusKm * math.Sin(lat)
	return x, y, z
}
