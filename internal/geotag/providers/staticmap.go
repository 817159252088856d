package providers

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/ShakthiNandan/overlay-geotag/internal/geotag"
)

// StaticMapConfig describes the tile to request.
type StaticMapConfig struct {
	BaseURL string
	Zoom    int
	Size    int    // square tile edge in pixels
	Layers  string // e.g. "sat,skl"
}

// StaticMapProvider implements geotag.TileProvider against a Yandex-style static map API.
type StaticMapProvider struct {
	name    string
	cfg     StaticMapConfig
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewStaticMapProvider(client *http.Client, cfg StaticMapConfig) *StaticMapProvider {
	return &StaticMapProvider{
		name: "staticmap",
		cfg:  cfg,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      1,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     2 * time.Second,
			},
		},
		circuit: newBreaker("staticmap"),
	}
}

func (p *StaticMapProvider) Name() string {
	return p.name
}

// TileURL builds the request URL. The API expects longitude first and literal commas,
// so the query is assembled by hand instead of through url.Values.
func (p *StaticMapProvider) TileURL(c geotag.Coordinates) string {
	ll := strconv.FormatFloat(c.Lon, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lat, 'f', -1, 64)
	size := strconv.Itoa(p.cfg.Size)
	return fmt.Sprintf("%s?ll=%s&z=%d&size=%s,%s&l=%s&pt=%s,pm2rdm",
		p.cfg.BaseURL, ll, p.cfg.Zoom, size, size, p.cfg.Layers, ll)
}

func (p *StaticMapProvider) Tile(ctx context.Context, c geotag.Coordinates) (image.Image, error) {
	buildRequest := func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, p.TileURL(c), nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: map tile: %v", geotag.ErrDecode, err)
	}
	return img, nil
}
