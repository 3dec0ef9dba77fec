package kmlreport

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailpeak/trackmatch/internal/lib/geo"
	"github.com/trailpeak/trackmatch/internal/lib/profile"
)

func lineProfile(t *testing.T, n int, elevations bool) *profile.ElevationProfile {
	t.Helper()
	points := make([]geo.Point, n)
	for i := range points {
		points[i] = geo.NewPointUnsafe(38.0, -120.5+0.01*float64(i))
		if elevations {
			points[i].Elevation = 400 + 10*float64(i)
		}
	}
	p, err := profile.New(points)
	require.NoError(t, err)
	return p
}

func TestWriteProducesWellFormedKML(t *testing.T) {
	base := lineProfile(t, 5, true)
	comparison := lineProfile(t, 5, true)
	conformance := []bool{true, true, false, false, true}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, base, comparison, conformance))

	out := buf.String()
	assert.Contains(t, out, "<kml")
	assert.Contains(t, out, baseStyleID)
	assert.Contains(t, out, withinStyleID)
	assert.Contains(t, out, outsideStyleID)

	decoder := xml.NewDecoder(strings.NewReader(out))
	placemarks := 0
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if start, ok := tok.(xml.StartElement); ok && start.Name.Local == "Placemark" {
			placemarks++
		}
	}
	// One base line plus three conformance runs: true, false, true.
	assert.Equal(t, 4, placemarks)
}

func TestWriteSingleRun(t *testing.T) {
	base := lineProfile(t, 3, false)
	comparison := lineProfile(t, 3, false)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, base, comparison, []bool{true, true, true}))

	out := buf.String()
	assert.Contains(t, out, "#"+withinStyleID)
	assert.NotContains(t, out, "comparison (outside tolerance)")
}

func TestWriteConformanceLengthMismatch(t *testing.T) {
	base := lineProfile(t, 3, false)
	comparison := lineProfile(t, 3, false)

	err := Write(io.Discard, base, comparison, []bool{true})
	assert.ErrorIs(t, err, profile.ErrLengthMismatch)
}

func TestWriteOmitsAltitudeForMissingElevation(t *testing.T) {
	base := lineProfile(t, 3, false)
	comparison := lineProfile(t, 3, false)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, base, comparison, []bool{false, false, false}))

	assert.NotContains(t, buf.String(), "NaN")
}
