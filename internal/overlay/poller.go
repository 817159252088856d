package overlay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ShakthiNandan/overlay-geotag/internal/geotag"
)

// TickResult is the outcome of one poll.
type TickResult int

const (
	// TickFailed: the location endpoint could not be read; the view is untouched.
	TickFailed TickResult = iota
	// TickNoData: nothing has been reported yet.
	TickNoData
	// TickUnchanged: the coordinates equal the displayed ones.
	TickUnchanged
	// TickChanged: new coordinates are displayed and their artifacts re-derived.
	TickChanged
)

func (r TickResult) String() string {
	switch r {
	case TickNoData:
		return "no-data"
	case TickUnchanged:
		return "unchanged"
	case TickChanged:
		return "changed"
	default:
		return "failed"
	}
}

// Poller reads the latest position, detects coordinate changes and keeps the
// displayed View in sync with it.
//
// Every change bumps a generation counter. Fetch tasks carry the generation they
// were started for, and their results are applied only if it is still current,
// so a slow fetch for old coordinates can never overwrite newer artifacts.
type Poller struct {
	source       geotag.LocationSource
	fetcher      *Fetcher
	cache        *ViewCache
	queryTimeout time.Duration
	log          zerolog.Logger

	// now is swapped in tests.
	now func() time.Time

	mu        sync.Mutex
	position  geotag.Position
	displayed geotag.Coordinates
	gen       uint64
	version   uint64
	view      View

	pubMu     sync.Mutex
	published uint64
	subs      []func(View)
}

func NewPoller(source geotag.LocationSource, fetcher *Fetcher, cache *ViewCache, queryTimeout time.Duration, log zerolog.Logger) *Poller {
	return &Poller{
		source:       source,
		fetcher:      fetcher,
		cache:        cache,
		queryTimeout: queryTimeout,
		log:          log.With().Str("module", "poller").Logger(),
		now:          time.Now,
		view:         initialView(),
	}
}

// Subscribe registers fn to receive every new View. fn must not block for long;
// views are delivered in order and stale ones are skipped.
func (p *Poller) Subscribe(fn func(View)) {
	p.pubMu.Lock()
	defer p.pubMu.Unlock()
	p.subs = append(p.subs, fn)
}

// View returns the current view.
func (p *Poller) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

// Tick polls the location source once.
func (p *Poller) Tick(ctx context.Context) TickResult {
	qctx, cancel := context.WithTimeout(ctx, p.queryTimeout)
	defer cancel()

	pos, err := p.source.Latest(qctx)
	switch {
	case errors.Is(err, geotag.ErrNoData):
		p.log.Debug().Msg("no location reported yet")
		return TickNoData
	case err != nil:
		p.log.Warn().Err(err).Msg("error getting location")
		return TickFailed
	}

	c := pos.Coordinates()

	p.mu.Lock()
	if p.view.Displayed && c == p.displayed {
		p.mu.Unlock()
		return TickUnchanged
	}
	p.position = pos
	p.displayed = c
	p.view.showPosition(pos, p.now())
	snap := p.rederiveLocked()
	p.mu.Unlock()

	p.log.Info().Float64("lat", c.Lat).Float64("lon", c.Lon).Msg("position changed")
	p.publish(snap)
	return TickChanged
}

// Refresh re-renders the displayed position with a fresh clock, reusing cached
// artifacts. It reports false when nothing has been displayed yet.
func (p *Poller) Refresh() bool {
	p.mu.Lock()
	if !p.view.Displayed {
		p.mu.Unlock()
		return false
	}
	p.view.showPosition(p.position, p.now())
	snap := p.rederiveLocked()
	p.mu.Unlock()

	p.publish(snap)
	return true
}

// rederiveLocked starts a new generation for the displayed coordinates, applies
// whatever the cache holds for them and fetches the rest. p.mu must be held.
func (p *Poller) rederiveLocked() View {
	p.gen++
	c := p.displayed

	need := Need{Address: true, Map: true}
	if cv, ok := p.cache.Lookup(c); ok {
		if cv.Address != nil {
			p.view.Address = *cv.Address
			need.Address = false
		}
		if cv.MapPNG != nil {
			p.view.setMap(cv.MapPNG)
			need.Map = false
		}
	} else {
		p.cache.Invalidate()
	}

	if need.Address {
		p.view.Address = geotag.AddressPending
	}

	if need.any() {
		p.fetcher.Start(p.gen, c, need, p)
	} else {
		p.fetcher.Cancel()
	}
	return p.snapshotLocked()
}

func (p *Poller) applyAddress(t *Task, addr geotag.Address, resolved bool) {
	p.mu.Lock()
	if t.Gen != p.gen {
		p.mu.Unlock()
		p.log.Debug().Str("task", t.ID).Msg("discarding superseded address")
		return
	}
	p.view.Address = addr
	if resolved {
		p.cacheLocked(t.Coords, func(cv *CachedView) {
			cv.Address = &addr
		})
	}
	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.publish(snap)
}

func (p *Poller) applyMap(t *Task, png []byte) {
	p.mu.Lock()
	if t.Gen != p.gen {
		p.mu.Unlock()
		p.log.Debug().Str("task", t.ID).Msg("discarding superseded map image")
		return
	}
	p.view.setMap(png)
	p.cacheLocked(t.Coords, func(cv *CachedView) {
		cv.MapPNG = png
	})
	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.publish(snap)
}

// cacheLocked merges fn's changes into the cached view for c, starting a fresh
// entry when the cache holds other coordinates. p.mu must be held.
func (p *Poller) cacheLocked(c geotag.Coordinates, fn func(*CachedView)) {
	cv, _ := p.cache.Lookup(c)
	fn(&cv)
	cv.FetchedAt = p.now()
	p.cache.Store(c, cv)
}

func (p *Poller) snapshotLocked() View {
	p.version++
	p.view.Version = p.version
	return p.view
}

func (p *Poller) publish(v View) {
	p.pubMu.Lock()
	defer p.pubMu.Unlock()

	if v.Version <= p.published {
		return
	}
	p.published = v.Version
	for _, fn := range p.subs {
		fn(v)
	}
}
