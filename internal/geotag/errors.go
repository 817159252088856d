package geotag

import "errors"

var (
	// ErrMissingCoordinate is returned when a report lacks latitude or longitude.
	ErrMissingCoordinate = errors.New("missing lat or longitude")
	// ErrInvalidCoordinate is returned when a coordinate is not a finite number.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrNoData means the location endpoint has not received any report yet.
	ErrNoData = errors.New("no data yet")
	// ErrTransport covers network failures and unexpected statuses from external calls.
	ErrTransport = errors.New("transport error")
	// ErrDecode covers malformed response bodies from external calls.
	ErrDecode = errors.New("decode error")
)
