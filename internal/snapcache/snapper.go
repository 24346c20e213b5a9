package snapcache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fieldtrace/replay-backend-go/internal/models"
)

// MaxCoordinatesPerCall is the external service's per-call coordinate limit
const MaxCoordinatesPerCall = 100

// CostCentsPerCall is the fixed rate charged per external snapping call
const CostCentsPerCall = 1.0

// Snapper snaps raw coordinates to the road network. Implementations
// return one snapped coordinate per input (or fewer), preserving the input
// timestamps on the returned coordinates.
type Snapper interface {
	SnapCoordinates(ctx context.Context, coords []models.SnapCoordinate) ([]models.SnapCoordinate, error)
}

// RoadsClient is an HTTP client for the external road-snapping service
type RoadsClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewRoadsClient creates a snapping client. baseURL defaults to the hosted
// service endpoint.
func NewRoadsClient(apiKey, baseURL string) *RoadsClient {
	if baseURL == "" {
		baseURL = "https://roads.googleapis.com/v1/snapToRoads"
	}
	return &RoadsClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type snapResponse struct {
	SnappedPoints []struct {
		Location struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"location"`
		OriginalIndex *int `json:"originalIndex,omitempty"`
	} `json:"snappedPoints"`
}

// SnapCoordinates sends up to MaxCoordinatesPerCall coordinates and maps
// the snapped results back onto the input timestamps by original index.
func (c *RoadsClient) SnapCoordinates(ctx context.Context, coords []models.SnapCoordinate) ([]models.SnapCoordinate, error) {
	if len(coords) == 0 {
		return nil, nil
	}
	if len(coords) > MaxCoordinatesPerCall {
		return nil, fmt.Errorf("snap request exceeds %d coordinates: %d", MaxCoordinatesPerCall, len(coords))
	}

	parts := make([]string, len(coords))
	for i, co := range coords {
		parts[i] = fmt.Sprintf("%.6f,%.6f", co.Latitude, co.Longitude)
	}

	params := url.Values{}
	params.Add("path", strings.Join(parts, "|"))
	params.Add("interpolate", "false")
	params.Add("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build snap request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call snapping service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("snapping service error (status %d): %s", resp.StatusCode, string(body))
	}

	var result snapResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse snap response: %w", err)
	}

	snapped := make([]models.SnapCoordinate, 0, len(result.SnappedPoints))
	for i, sp := range result.SnappedPoints {
		idx := i
		if sp.OriginalIndex != nil {
			idx = *sp.OriginalIndex
		}
		out := models.SnapCoordinate{
			Latitude:  sp.Location.Latitude,
			Longitude: sp.Location.Longitude,
		}
		if idx >= 0 && idx < len(coords) {
			out.Timestamp = coords[idx].Timestamp
		}
		snapped = append(snapped, out)
	}
	return snapped, nil
}
