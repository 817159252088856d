package overlay

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ShakthiNandan/overlay-geotag/internal/geotag"
)

type fakeSource struct {
	mu  sync.Mutex
	pos geotag.Position
	err error
}

func (s *fakeSource) set(pos geotag.Position, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos, s.err = pos, err
}

func (s *fakeSource) Latest(ctx context.Context) (geotag.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos, s.err
}

// gates lets a test hold a fake provider's answer for given coordinates.
// Held calls ignore context cancellation to model a provider that answers late.
type gates struct {
	mu sync.Mutex
	ch map[geotag.Coordinates]chan struct{}
}

func (g *gates) hold(c geotag.Coordinates) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ch == nil {
		g.ch = make(map[geotag.Coordinates]chan struct{})
	}
	ch := make(chan struct{})
	g.ch[c] = ch
	return ch
}

func (g *gates) wait(c geotag.Coordinates) {
	g.mu.Lock()
	ch := g.ch[c]
	g.mu.Unlock()
	if ch != nil {
		<-ch
	}
}

type fakeGeocoder struct {
	gates
	calls     atomic.Int32
	addresses map[geotag.Coordinates]string
	err       error
}

func (g *fakeGeocoder) Name() string { return "fake" }

func (g *fakeGeocoder) Reverse(ctx context.Context, c geotag.Coordinates) (string, error) {
	g.calls.Add(1)
	g.wait(c)
	if g.err != nil {
		return "", g.err
	}
	return g.addresses[c], nil
}

type fakeTiles struct {
	gates
	calls  atomic.Int32
	colors map[geotag.Coordinates]color.RGBA
	fail   map[geotag.Coordinates]bool
}

func (f *fakeTiles) Name() string { return "fake" }

func (f *fakeTiles) Tile(ctx context.Context, c geotag.Coordinates) (image.Image, error) {
	f.calls.Add(1)
	f.wait(c)
	if f.fail[c] {
		return nil, errors.Join(geotag.ErrTransport, errors.New("status 403"))
	}
	return solid(f.colors[c]), nil
}

func solid(c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

var (
	posA = geotag.Position{Lat: 40.7128, Lon: -74.006}
	posB = geotag.Position{Lat: 40.75, Lon: -73.99}

	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

type fixture struct {
	source   *fakeSource
	geocoder *fakeGeocoder
	tiles    *fakeTiles
	fetcher  *Fetcher
	cache    *ViewCache
	poller   *Poller
	clock    *fakeClock
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newFixture() *fixture {
	f := &fixture{
		source: &fakeSource{},
		geocoder: &fakeGeocoder{addresses: map[geotag.Coordinates]string{
			posA.Coordinates(): "City Hall, Manhattan, New York, United States",
			posB.Coordinates(): "Midtown, Manhattan, New York, United States",
		}},
		tiles: &fakeTiles{colors: map[geotag.Coordinates]color.RGBA{
			posA.Coordinates(): red,
			posB.Coordinates(): blue,
		}},
		cache: NewViewCache(),
		clock: &fakeClock{t: time.Date(2024, 1, 1, 13, 5, 0, 0, time.UTC)},
	}
	cfg := FetcherConfig{GeocodeTimeout: time.Second, MapTimeout: time.Second, Diameter: 160}
	f.fetcher = NewFetcher(f.geocoder, f.tiles, cfg, zerolog.Nop())
	f.poller = NewPoller(f.source, f.fetcher, f.cache, time.Second, zerolog.Nop())
	f.poller.now = f.clock.now
	return f
}
