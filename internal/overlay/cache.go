package overlay

import (
	"sync"
	"time"

	"github.com/ShakthiNandan/overlay-geotag/internal/geotag"
)

// CachedView holds the expensive artifacts derived from one coordinate pair.
// Address is nil until a geocode succeeded; MapPNG is nil until a tile was fetched.
type CachedView struct {
	Key       geotag.Coordinates
	Address   *geotag.Address
	MapPNG    []byte
	FetchedAt time.Time
}

// ViewCache is a single-slot cache of derived artifacts.
// A lookup hits only when the coordinates equal the cached key exactly.
type ViewCache struct {
	mu    sync.Mutex
	entry *CachedView
}

func NewViewCache() *ViewCache {
	return &ViewCache{}
}

// Lookup returns the cached view when key equals the cached key.
func (c *ViewCache) Lookup(key geotag.Coordinates) (CachedView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entry == nil || c.entry.Key != key {
		return CachedView{}, false
	}
	return *c.entry, true
}

// Store replaces the cached view unconditionally, evicting any entry for other
// coordinates.
func (c *ViewCache) Store(key geotag.Coordinates, v CachedView) {
	v.Key = key

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = &v
}

// Invalidate drops the cached view.
func (c *ViewCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = nil
}
