package geotag

import (
	"context"
	"image"
)

// Store is the contract for the single-slot latest-position store.
type Store interface {
	Save(p Position)
	GetLatest() (Position, error)
}

// LocationSource returns the latest position known to the ingestion side.
// It returns ErrNoData before the first report, and errors wrapping
// ErrTransport or ErrDecode on failure.
type LocationSource interface {
	Latest(ctx context.Context) (Position, error)
}

// Geocoder abstracts a reverse-geocoding service (e.g. Nominatim, Google).
// Reverse returns the provider's full address string for the coordinates.
type Geocoder interface {
	Name() string
	Reverse(ctx context.Context, c Coordinates) (string, error)
}

// TileProvider abstracts a static map image service.
type TileProvider interface {
	Name() string
	Tile(ctx context.Context, c Coordinates) (image.Image, error)
}
