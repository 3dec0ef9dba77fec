// Package elevation provides clients for public elevation lookup APIs. Each
// client returns one elevation per input point, in input order, and satisfies
// track.ElevationSource.
package elevation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/trailpeak/trackmatch/internal/lib/geo"
	"github.com/trailpeak/trackmatch/internal/lib/profile"
)

// Provider names a supported elevation API.
type Provider string

const (
	ProviderOpenElevation Provider = "open-elevation"
	ProviderOSMHeight     Provider = "osm-height"
)

// NewClient returns a client for the named provider.
func NewClient(provider Provider) (Client, error) {
	switch provider {
	case ProviderOpenElevation:
		return NewOpenElevationClient(), nil
	case ProviderOSMHeight:
		return NewOSMHeightClient(), nil
	default:
		return nil, fmt.Errorf("%w: unknown elevation provider %q", profile.ErrInvalidInput, provider)
	}
}

// Client is the common surface of the elevation API clients.
type Client interface {
	Elevations(ctx context.Context, points []geo.Point) ([]float64, error)
}

// OpenElevationClient queries the Open-Elevation lookup API.
type OpenElevationClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewOpenElevationClient creates a client for the public Open-Elevation
// endpoint.
func NewOpenElevationClient() *OpenElevationClient {
	return &OpenElevationClient{
		baseURL: "https://api.open-elevation.com",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Elevations looks up elevations in meters for the given points.
func (c *OpenElevationClient) Elevations(ctx context.Context, points []geo.Point) ([]float64, error) {
	if len(points) == 0 {
		return nil, nil
	}

	payload := openElevationRequest{
		Locations: make([]openElevationLocation, len(points)),
	}
	for i, p := range points {
		payload.Locations[i] = openElevationLocation{
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
		}
	}

	var response openElevationResponse
	requestURL := c.baseURL + "/api/v1/lookup"
	if err := postJSON(ctx, c.httpClient, requestURL, payload, &response); err != nil {
		return nil, err
	}

	if len(response.Results) != len(points) {
		return nil, fmt.Errorf("elevation API returned %d results for %d points", len(response.Results), len(points))
	}

	elevations := make([]float64, len(response.Results))
	for i, r := range response.Results {
		elevations[i] = r.Elevation
	}
	return elevations, nil
}

// OSMHeightClient queries the Valhalla height service hosted by
// OpenStreetMap.
type OSMHeightClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewOSMHeightClient creates a client for the public Valhalla height
// endpoint.
func NewOSMHeightClient() *OSMHeightClient {
	return &OSMHeightClient{
		baseURL: "https://valhalla1.openstreetmap.de",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Elevations looks up elevations in meters for the given points.
func (c *OSMHeightClient) Elevations(ctx context.Context, points []geo.Point) ([]float64, error) {
	if len(points) == 0 {
		return nil, nil
	}

	payload := osmHeightRequest{
		Shape: make([]osmHeightPoint, len(points)),
	}
	for i, p := range points {
		payload.Shape[i] = osmHeightPoint{
			Lat: p.Latitude,
			Lon: p.Longitude,
		}
	}

	var response osmHeightResponse
	requestURL := c.baseURL + "/height"
	if err := postJSON(ctx, c.httpClient, requestURL, payload, &response); err != nil {
		return nil, err
	}

	if len(response.Height) != len(points) {
		return nil, fmt.Errorf("height API returned %d results for %d points", len(response.Height), len(points))
	}
	return response.Height, nil
}

// postJSON sends a JSON POST request and decodes the JSON response into out.
func postJSON(ctx context.Context, client *http.Client, requestURL string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", requestURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 429 {
		return fmt.Errorf("rate limit exceeded")
	}
	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(errBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type openElevationRequest struct {
	Locations []openElevationLocation `json:"locations"`
}

type openElevationLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type openElevationResponse struct {
	Results []openElevationResult `json:"results"`
}

type openElevationResult struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
}

type osmHeightRequest struct {
	Shape []osmHeightPoint `json:"shape"`
}

type osmHeightPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type osmHeightResponse struct {
	Height []float64 `json:"height"`
}
