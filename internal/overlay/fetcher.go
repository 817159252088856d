package overlay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ShakthiNandan/overlay-geotag/internal/geotag"
)

// Need selects which artifacts a task must derive.
type Need struct {
	Address bool
	Map     bool
}

func (n Need) any() bool { return n.Address || n.Map }

// Task is one in-flight derivation for a coordinate pair. Gen is the poller
// generation the task was started for; results are applied only while it is current.
type Task struct {
	ID     string
	Gen    uint64
	Coords geotag.Coordinates

	ctx    context.Context
	cancel context.CancelFunc
}

// sink receives task results. Implementations must drop results of superseded tasks.
type sink interface {
	applyAddress(t *Task, addr geotag.Address, resolved bool)
	applyMap(t *Task, png []byte)
}

type FetcherConfig struct {
	GeocodeTimeout time.Duration
	MapTimeout     time.Duration
	Diameter       int
}

// Fetcher derives the address and map image for coordinates off the poll path.
// At most one task is current; starting a new one cancels the previous one.
type Fetcher struct {
	geocoder geotag.Geocoder
	tiles    geotag.TileProvider
	cfg      FetcherConfig
	log      zerolog.Logger

	mu      sync.Mutex
	current *Task
	wg      sync.WaitGroup
}

func NewFetcher(geocoder geotag.Geocoder, tiles geotag.TileProvider, cfg FetcherConfig, log zerolog.Logger) *Fetcher {
	return &Fetcher{
		geocoder: geocoder,
		tiles:    tiles,
		cfg:      cfg,
		log:      log.With().Str("module", "fetcher").Logger(),
	}
}

// Start launches a task deriving need for c and returns immediately.
func (f *Fetcher) Start(gen uint64, c geotag.Coordinates, need Need, s sink) *Task {
	ctx, cancel := context.WithCancel(context.Background())
	t := &Task{ID: uuid.NewString(), Gen: gen, Coords: c, ctx: ctx, cancel: cancel}

	f.mu.Lock()
	if prev := f.current; prev != nil {
		prev.cancel()
		f.log.Debug().Str("task", prev.ID).Str("by", t.ID).Msg("task superseded")
	}
	f.current = t
	f.mu.Unlock()

	f.log.Debug().Str("task", t.ID).Uint64("gen", gen).
		Float64("lat", c.Lat).Float64("lon", c.Lon).
		Bool("address", need.Address).Bool("map", need.Map).
		Msg("task started")

	f.wg.Add(1)
	go f.run(t, need, s)
	return t
}

// Cancel cancels the current task, if any.
func (f *Fetcher) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.current != nil {
		f.current.cancel()
		f.current = nil
	}
}

// inFlight reports whether a task is running.
func (f *Fetcher) inFlight() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current != nil
}

// Wait blocks until every started task has finished, superseded ones included.
func (f *Fetcher) Wait() {
	f.wg.Wait()
}

func (f *Fetcher) run(t *Task, need Need, s sink) {
	defer f.wg.Done()
	defer f.finish(t)

	var wg sync.WaitGroup
	if need.Address {
		wg.Add(1)
		go func() {
			defer wg.Done()
			addr, resolved := f.Address(t.ctx, t.Coords)
			s.applyAddress(t, addr, resolved)
		}()
	}
	if need.Map {
		wg.Add(1)
		go func() {
			defer wg.Done()
			png, err := f.MapImage(t.ctx, t.Coords)
			if err != nil {
				f.log.Warn().Err(err).Str("task", t.ID).Msg("map image unavailable")
				return
			}
			s.applyMap(t, png)
		}()
	}
	wg.Wait()
}

func (f *Fetcher) finish(t *Task) {
	t.cancel()

	f.mu.Lock()
	if f.current == t {
		f.current = nil
	}
	f.mu.Unlock()
}

// Address reverse-geocodes c into three display components. It never fails:
// errors, timeouts and empty answers yield geotag.AddressUnknown with resolved=false.
func (f *Fetcher) Address(ctx context.Context, c geotag.Coordinates) (addr geotag.Address, resolved bool) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.GeocodeTimeout)
	defer cancel()

	raw, err := f.geocoder.Reverse(ctx, c)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			f.log.Warn().Err(err).Str("geocoder", f.geocoder.Name()).Msg("reverse geocode failed")
		}
		return geotag.AddressUnknown, false
	}
	if raw == "" {
		return geotag.AddressUnknown, false
	}
	return geotag.SplitAddress(raw), true
}

// MapImage fetches the map tile for c and returns it as a circular PNG.
func (f *Fetcher) MapImage(ctx context.Context, c geotag.Coordinates) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.MapTimeout)
	defer cancel()

	img, err := f.tiles.Tile(ctx, c)
	if err != nil {
		return nil, err
	}
	png, err := circularPNG(img, f.cfg.Diameter)
	if err != nil {
		return nil, fmt.Errorf("%w: encode map: %v", geotag.ErrDecode, err)
	}
	return png, nil
}
