// Package kmlreport renders a compared pair of tracks as a KML document: the
// base track as one line, the comparison track split into segments styled by
// whether each stretch conformed to the tolerance.
package kmlreport

import (
	"fmt"
	"image/color"
	"io"

	"github.com/twpayne/go-kml/v2"

	"github.com/trailpeak/trackmatch/internal/lib/geo"
	"github.com/trailpeak/trackmatch/internal/lib/profile"
)

const (
	baseStyleID    = "baseTrack"
	withinStyleID  = "withinTolerance"
	outsideStyleID = "outsideTolerance"
)

// Write renders the report document to w. The conformance vector must have
// one entry per comparison point.
func Write(w io.Writer, base, comparison *profile.ElevationProfile, conformance []bool) error {
	if len(conformance) != comparison.Len() {
		return fmt.Errorf("%w: got %d conformance entries for %d comparison points", profile.ErrLengthMismatch, len(conformance), comparison.Len())
	}

	children := []kml.Element{
		kml.Name("track comparison"),
		kml.SharedStyle(baseStyleID,
			kml.LineStyle(
				kml.Color(color.RGBA{R: 0, G: 0, B: 255, A: 255}),
				kml.Width(3),
			),
		),
		kml.SharedStyle(withinStyleID,
			kml.LineStyle(
				kml.Color(color.RGBA{R: 0, G: 255, B: 0, A: 255}),
				kml.Width(4),
			),
		),
		kml.SharedStyle(outsideStyleID,
			kml.LineStyle(
				kml.Color(color.RGBA{R: 255, G: 0, B: 0, A: 255}),
				kml.Width(4),
			),
		),
		kml.Placemark(
			kml.Name("base"),
			kml.StyleURL("#"+baseStyleID),
			kml.LineString(
				kml.Tessellate(true),
				kml.Coordinates(coordinates(base.Points())...),
			),
		),
	}

	points := comparison.Points()
	for _, seg := range segments(conformance) {
		styleID := outsideStyleID
		name := "comparison (outside tolerance)"
		if seg.within {
			styleID = withinStyleID
			name = "comparison (within tolerance)"
		}

		// Extend each segment one point past its run so consecutive
		// segments join up visually.
		end := seg.end
		if end < len(points)-1 {
			end++
		}

		children = append(children, kml.Placemark(
			kml.Name(name),
			kml.StyleURL("#"+styleID),
			kml.LineString(
				kml.Tessellate(true),
				kml.Coordinates(coordinates(points[seg.start:end+1])...),
			),
		))
	}

	doc := kml.KML(kml.Document(children...))
	if err := doc.WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("failed to write KML report: %w", err)
	}
	return nil
}

// segment is a maximal run of comparison points sharing a conformance value.
// Indices are inclusive.
type segment struct {
	start, end int
	within     bool
}

func segments(conformance []bool) []segment {
	var runs []segment
	for i, within := range conformance {
		if i > 0 && runs[len(runs)-1].within == within {
			runs[len(runs)-1].end = i
			continue
		}
		runs = append(runs, segment{start: i, end: i, within: within})
	}
	return runs
}

func coordinates(points []geo.Point) []kml.Coordinate {
	coords := make([]kml.Coordinate, len(points))
	for i, p := range points {
		c := kml.Coordinate{Lon: p.Longitude, Lat: p.Latitude}
		if p.HasElevation() {
			c.Alt = p.Elevation
		}
		coords[i] = c
	}
	return coords
}
