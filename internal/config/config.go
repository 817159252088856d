package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Modes select which roles the process runs.
const (
	ModeAll     = "all"
	ModeServer  = "server"
	ModeOverlay = "overlay"
)

type AppConfig struct {
	Mode string `validate:"oneof=all server overlay"`

	// Port is the ingestion/query listener; ViewPort serves the rendered view.
	Port     string `validate:"required,numeric"`
	ViewPort string `validate:"required,numeric"`

	// LocationEndpoint is polled by the display side.
	LocationEndpoint string        `validate:"required,url"`
	PollInterval     time.Duration `validate:"gt=0"`
	QueryTimeout     time.Duration `validate:"gt=0"`

	Geocoder           string        `validate:"oneof=nominatim google"`
	GeocoderAPIKey     string        `validate:"required_if=Geocoder google"`
	NominatimURL       string        `validate:"required,url"`
	NominatimUserAgent string        `validate:"required"`
	GeocodeTimeout     time.Duration `validate:"gt=0"`

	// Static map tile request and display shape.
	MapURL      string        `validate:"required,url"`
	MapZoom     int           `validate:"gte=0,lte=21"`
	MapSize     int           `validate:"gt=0,lte=650"`
	MapLayers   string        `validate:"required"`
	MapDiameter int           `validate:"gt=0"`
	MapTimeout  time.Duration `validate:"gt=0"`

	LogLevel  string `validate:"oneof=trace debug info warn error"`
	LogFormat string `validate:"oneof=console json"`
}

var defaults = map[string]any{
	"MODE":                 ModeAll,
	"PORT":                 "5000",
	"VIEW_PORT":            "5001",
	"LOCATION_ENDPOINT":    "http://localhost:5000/location",
	"POLL_INTERVAL":        "10s",
	"QUERY_TIMEOUT":        "3s",
	"GEOCODER":             "nominatim",
	"GEOCODER_API_KEY":     "",
	"NOMINATIM_URL":        "https://nominatim.openstreetmap.org/reverse",
	"NOMINATIM_USER_AGENT": "geo_overlay",
	"GEOCODE_TIMEOUT":      "5s",
	"MAP_URL":              "https://static-maps.yandex.ru/1.x/",
	"MAP_ZOOM":             14,
	"MAP_SIZE":             200,
	"MAP_LAYERS":           "sat,skl",
	"MAP_DIAMETER":         160,
	"MAP_TIMEOUT":          "4s",
	"LOG_LEVEL":            "info",
	"LOG_FORMAT":           "console",
}

// Load reads configuration from an optional .env file and the environment,
// applies defaults and validates the result. The returned note is non-empty
// when no .env file was loaded.
func Load() (*AppConfig, string, error) {
	var note string
	if err := godotenv.Load(); err != nil {
		note = fmt.Sprintf("no .env file loaded: %v", err)
	}

	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()

	cfg, err := fromViper(v)
	if err != nil {
		return nil, note, err
	}
	return cfg, note, nil
}

func fromViper(v *viper.Viper) (*AppConfig, error) {
	cfg := &AppConfig{
		Mode:               v.GetString("MODE"),
		Port:               v.GetString("PORT"),
		ViewPort:           v.GetString("VIEW_PORT"),
		LocationEndpoint:   v.GetString("LOCATION_ENDPOINT"),
		Geocoder:           v.GetString("GEOCODER"),
		GeocoderAPIKey:     v.GetString("GEOCODER_API_KEY"),
		NominatimURL:       v.GetString("NOMINATIM_URL"),
		NominatimUserAgent: v.GetString("NOMINATIM_USER_AGENT"),
		MapURL:             v.GetString("MAP_URL"),
		MapZoom:            v.GetInt("MAP_ZOOM"),
		MapSize:            v.GetInt("MAP_SIZE"),
		MapLayers:          v.GetString("MAP_LAYERS"),
		MapDiameter:        v.GetInt("MAP_DIAMETER"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		LogFormat:          v.GetString("LOG_FORMAT"),
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"POLL_INTERVAL", &cfg.PollInterval},
		{"QUERY_TIMEOUT", &cfg.QueryTimeout},
		{"GEOCODE_TIMEOUT", &cfg.GeocodeTimeout},
		{"MAP_TIMEOUT", &cfg.MapTimeout},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(v.GetString(d.key))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// RunsServer reports whether the ingestion/query endpoints should be started.
func (c *AppConfig) RunsServer() bool {
	return c.Mode == ModeAll || c.Mode == ModeServer
}

// RunsOverlay reports whether the display poller and view surface should be started.
func (c *AppConfig) RunsOverlay() bool {
	return c.Mode == ModeAll || c.Mode == ModeOverlay
}
