package providers

import (
	"context"
	"fmt"

	"github.com/kelvins/geocoder"
	"github.com/sony/gobreaker"

	"github.com/ShakthiNandan/overlay-geotag/internal/geotag"
)

// GoogleGeocoder implements geotag.Geocoder with the Google Geocoding API.
type GoogleGeocoder struct {
	name    string
	apiKey  string
	circuit *gobreaker.CircuitBreaker

	reverse func(geocoder.Location) ([]geocoder.Address, error)
}

// NewGoogleGeocoder sets the geocoder package's API key; only one Google
// geocoder should exist per process.
func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	geocoder.ApiKey = apiKey
	return &GoogleGeocoder{
		name:    "google",
		apiKey:  apiKey,
		circuit: newBreaker("google-geocoder"),
		reverse: geocoder.GeocodingReverse,
	}
}

func (g *GoogleGeocoder) Name() string {
	return g.name
}

// Reverse implements geotag.Geocoder. The underlying client takes no context,
// so a cancelled ctx abandons the call rather than aborting it.
func (g *GoogleGeocoder) Reverse(ctx context.Context, c geotag.Coordinates) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("google geocoder api key is not configured")
	}

	type result struct {
		addr string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		out, err := g.circuit.Execute(func() (interface{}, error) {
			addrs, err := g.reverse(geocoder.Location{Latitude: c.Lat, Longitude: c.Lon})
			if err != nil {
				return nil, err
			}
			if len(addrs) == 0 {
				return "", nil
			}
			// The first result is the most detailed one.
			if addrs[0].FormattedAddress != "" {
				return addrs[0].FormattedAddress, nil
			}
			return addrs[0].FormatAddress(), nil
		})
		if err != nil {
			done <- result{err: fmt.Errorf("%w: google geocoder: %v", geotag.ErrTransport, err)}
			return
		}
		done <- result{addr: out.(string)}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", geotag.ErrTransport, ctx.Err())
	case r := <-done:
		return r.addr, r.err
	}
}
