package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/ShakthiNandan/overlay-geotag/internal/geotag"
)

// LocationClient reads the latest position from a location query endpoint.
type LocationClient struct {
	endpoint string
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
}

// NewLocationClient creates a client for endpoint (e.g. http://localhost:5000/location).
// A failed poll is not retried here; the next poll tick is the retry.
func NewLocationClient(client *http.Client, endpoint string) *LocationClient {
	return &LocationClient{
		endpoint: endpoint,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      0,
				InitialInterval: 500 * time.Millisecond,
			},
		},
		circuit: newBreaker("location"),
	}
}

// Latest implements geotag.LocationSource.
func (c *LocationClient) Latest(ctx context.Context) (geotag.Position, error) {
	buildRequest := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return geotag.Position{}, geotag.ErrNoData
		}
		return geotag.Position{}, err
	}
	defer resp.Body.Close()

	// Coordinates are required; a body without them is malformed, not "no data".
	var payload struct {
		Lat   *float64 `json:"lat"`
		Lon   *float64 `json:"lon"`
		Time  *string  `json:"time"`
		Speed *string  `json:"speed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return geotag.Position{}, fmt.Errorf("%w: location body: %v", geotag.ErrDecode, err)
	}
	if payload.Lat == nil || payload.Lon == nil {
		return geotag.Position{}, fmt.Errorf("%w: location body without lat/lon", geotag.ErrDecode)
	}

	return geotag.Position{
		Lat:   *payload.Lat,
		Lon:   *payload.Lon,
		Time:  payload.Time,
		Speed: payload.Speed,
	}, nil
}
