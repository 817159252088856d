package geotag

import (
	"strings"
)

// Coordinates is a parsed latitude/longitude pair.
// Two Coordinates are the same position only when both floats are exactly equal.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Position is the latest known position of the reporting device.
// Time and Speed are opaque strings passed through from the report; nil means absent.
type Position struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Time  *string `json:"time"`
	Speed *string `json:"speed"`
}

// Coordinates returns the position's coordinate pair.
func (p Position) Coordinates() Coordinates {
	return Coordinates{Lat: p.Lat, Lon: p.Lon}
}

// Address is a reverse-geocoded address split into at most three display components.
type Address [3]string

var (
	// AddressUnknown is shown when reverse geocoding yields nothing usable.
	AddressUnknown = Address{"Unknown", "", ""}
	// AddressPending is shown before the first position has been resolved.
	AddressPending = Address{"Waiting...", "", ""}
)

// SplitAddress splits a provider address on commas and keeps the first three segments.
// An empty address yields AddressUnknown.
func SplitAddress(s string) Address {
	if strings.TrimSpace(s) == "" {
		return AddressUnknown
	}

	var a Address
	for i, part := range strings.SplitN(s, ",", len(a)+1) {
		if i >= len(a) {
			break
		}
		a[i] = strings.TrimSpace(part)
	}
	return a
}
