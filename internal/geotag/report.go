package geotag

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Fields holds the raw key/value pairs of one encoding of a report
// (query string or structured body). Empty values count as absent.
type Fields map[string]string

func (f Fields) first(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(f[k]); v != "" {
			return v
		}
	}
	return ""
}

// Report is a position report after merging its encodings, before parsing.
type Report struct {
	Lat   string `validate:"required"`
	Lon   string `validate:"required"`
	Time  string
	Speed string
}

// MergeReport resolves field synonyms and merges the query string with the body.
// Query values win over body values for the same logical field.
func MergeReport(query, body Fields) Report {
	pick := func(keys ...string) string {
		if v := query.first(keys...); v != "" {
			return v
		}
		return body.first(keys...)
	}

	return Report{
		Lat:   pick("lat"),
		Lon:   pick("longitude", "lon"),
		Time:  pick("time"),
		Speed: pick("s", "speed"),
	}
}

// Parse validates the report and builds a fully populated Position.
func (r Report) Parse() (Position, error) {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return Position{}, ErrMissingCoordinate
		}
		return Position{}, err
	}

	lat, err := parseCoordinate("lat", r.Lat)
	if err != nil {
		return Position{}, err
	}
	lon, err := parseCoordinate("longitude", r.Lon)
	if err != nil {
		return Position{}, err
	}

	return Position{
		Lat:   lat,
		Lon:   lon,
		Time:  optional(r.Time),
		Speed: optional(r.Speed),
	}, nil
}

func parseCoordinate(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", ErrInvalidCoordinate, name, s)
	}
	// NaN and Inf parse fine but cannot be served back as JSON.
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s %q is not finite", ErrInvalidCoordinate, name, s)
	}
	return v, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
