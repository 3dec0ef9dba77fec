// Package trackio loads GPS tracks from common interchange formats: GPX
// files, KML files, and Google encoded polylines.
package trackio

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tkrajina/gpxgo/gpx"
	"github.com/twpayne/go-polyline"

	"github.com/trailpeak/trackmatch/internal/lib/geo"
	"github.com/trailpeak/trackmatch/internal/lib/profile"
	"github.com/trailpeak/trackmatch/internal/lib/track"
)

// FromFile loads a track from path, dispatching on the file extension
// (.gpx or .kml).
func FromFile(path string) (*track.Track, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gpx":
		return FromGPXFile(path)
	case ".kml":
		return FromKMLFile(path)
	default:
		return nil, fmt.Errorf("%w: unsupported track format %q", profile.ErrInvalidInput, filepath.Ext(path))
	}
}

// FromGPXFile loads the points of every track segment (and route) in a GPX
// file, in document order, as a single track.
func FromGPXFile(path string) (*track.Track, error) {
	doc, err := gpx.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GPX file: %w", err)
	}

	var points []geo.Point
	for _, trk := range doc.Tracks {
		for _, seg := range trk.Segments {
			for _, p := range seg.Points {
				points = append(points, gpxPoint(p.Point))
			}
		}
	}
	for _, rte := range doc.Routes {
		for _, p := range rte.Points {
			points = append(points, gpxPoint(p.Point))
		}
	}

	return newTrack(points)
}

func gpxPoint(p gpx.Point) geo.Point {
	point := geo.NewPointUnsafe(p.Latitude, p.Longitude)
	if p.Elevation.NotNull() {
		point.Elevation = p.Elevation.Value()
	}
	return point
}

// kmlDocument captures only the pieces of a KML file that carry track
// geometry: LineString coordinates inside placemarks, wherever they nest.
type kmlDocument struct {
	XMLName     xml.Name        `xml:"kml"`
	LineStrings []kmlLineString `xml:"Document>Placemark>LineString"`
	Folders     []kmlFolder     `xml:"Document>Folder"`
	Root        []kmlLineString `xml:"Placemark>LineString"`
}

type kmlFolder struct {
	LineStrings []kmlLineString `xml:"Placemark>LineString"`
	Folders     []kmlFolder     `xml:"Folder"`
}

type kmlLineString struct {
	Coordinates string `xml:"coordinates"`
}

// FromKMLFile loads every LineString in a KML file, in document order, as a
// single track. KML coordinates are lon,lat[,alt] tuples.
func FromKMLFile(path string) (*track.Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read KML file: %w", err)
	}

	var doc kmlDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse KML file: %w", err)
	}

	var points []geo.Point
	for _, ls := range append(doc.LineStrings, doc.Root...) {
		linePoints, err := parseKMLCoordinates(ls.Coordinates)
		if err != nil {
			return nil, err
		}
		points = append(points, linePoints...)
	}
	for _, folder := range doc.Folders {
		folderPoints, err := folderPoints(folder)
		if err != nil {
			return nil, err
		}
		points = append(points, folderPoints...)
	}

	return newTrack(points)
}

func folderPoints(folder kmlFolder) ([]geo.Point, error) {
	var points []geo.Point
	for _, ls := range folder.LineStrings {
		linePoints, err := parseKMLCoordinates(ls.Coordinates)
		if err != nil {
			return nil, err
		}
		points = append(points, linePoints...)
	}
	for _, nested := range folder.Folders {
		nestedPoints, err := folderPoints(nested)
		if err != nil {
			return nil, err
		}
		points = append(points, nestedPoints...)
	}
	return points, nil
}

func parseKMLCoordinates(raw string) ([]geo.Point, error) {
	var points []geo.Point
	for _, tuple := range strings.Fields(raw) {
		parts := strings.Split(tuple, ",")
		if len(parts) < 2 {
			return nil, fmt.Errorf("%w: malformed KML coordinate tuple %q", profile.ErrInvalidInput, tuple)
		}

		lon, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad longitude in %q", profile.ErrInvalidInput, tuple)
		}
		lat, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad latitude in %q", profile.ErrInvalidInput, tuple)
		}

		point := geo.NewPointUnsafe(lat, lon)
		if len(parts) >= 3 && parts[2] != "" {
			alt, err := strconv.ParseFloat(parts[2], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad altitude in %q", profile.ErrInvalidInput, tuple)
			}
			point.Elevation = alt
		}
		points = append(points, point)
	}
	return points, nil
}

// FromPolyline decodes a Google encoded polyline into a track. Encoded
// polylines never carry elevation.
func FromPolyline(encoded string) (*track.Track, error) {
	coords, remaining, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode polyline: %w", err)
	}
	if len(remaining) > 0 {
		return nil, fmt.Errorf("%w: trailing polyline data %q", profile.ErrInvalidInput, string(remaining))
	}

	points := make([]geo.Point, len(coords))
	for i, c := range coords {
		points[i] = geo.NewPointUnsafe(c[0], c[1])
	}
	return newTrack(points)
}

// ToPolyline encodes a track's positions as a Google encoded polyline.
// Elevations are dropped.
func ToPolyline(t *track.Track) string {
	points := t.Points()
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Latitude, p.Longitude}
	}
	return string(polyline.EncodeCoords(coords))
}

// newTrack validates the parsed points and wraps them in a track.
func newTrack(points []geo.Point) (*track.Track, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no track points found", profile.ErrInvalidInput)
	}
	for i, p := range points {
		if !p.Valid() {
			return nil, fmt.Errorf("%w: point %d has out-of-range coordinates (%f, %f)", profile.ErrInvalidInput, i, p.Latitude, p.Longitude)
		}
	}
	return track.New(points), nil
}
