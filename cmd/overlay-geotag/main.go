package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	httpapi "github.com/ShakthiNandan/overlay-geotag/internal/api/http"
	viewapi "github.com/ShakthiNandan/overlay-geotag/internal/api/view"
	"github.com/ShakthiNandan/overlay-geotag/internal/config"
	"github.com/ShakthiNandan/overlay-geotag/internal/geotag"
	"github.com/ShakthiNandan/overlay-geotag/internal/geotag/providers"
	"github.com/ShakthiNandan/overlay-geotag/internal/logging"
	"github.com/ShakthiNandan/overlay-geotag/internal/overlay"
	"github.com/ShakthiNandan/overlay-geotag/internal/scheduler"
	"github.com/ShakthiNandan/overlay-geotag/internal/store"
)

func main() {
	cfg, note, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to build logger")
	}
	if note != "" {
		log.Info().Msg(note)
	}
	log.Info().Str("mode", cfg.Mode).Msg("starting overlay-geotag")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var shutdowns []func(context.Context) error

	if cfg.RunsServer() {
		shutdown, err := startIngestion(cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to start ingestion server")
		}
		shutdowns = append(shutdowns, shutdown)
	}

	if cfg.RunsOverlay() {
		shutdown, err := startOverlay(cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to start overlay")
		}
		shutdowns = append(shutdowns, shutdown)
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i := len(shutdowns) - 1; i >= 0; i-- {
		if err := shutdowns[i](shutdownCtx); err != nil {
			log.Error().Err(err).Msg("error during shutdown")
		}
	}
}

// startIngestion serves the ingestion and query endpoints on cfg.Port.
// Per-report log lines go through a non-blocking writer so a slow log sink
// never delays a reporting client.
func startIngestion(cfg *config.AppConfig, log zerolog.Logger) (func(context.Context) error, error) {
	ingestOut := logging.NonBlocking(os.Stderr, func(missed int) {
		log.Warn().Int("missed", missed).Msg("ingestion log lines dropped")
	})
	ingestLog, err := logging.New(cfg.LogLevel, cfg.LogFormat, ingestOut)
	if err != nil {
		return nil, err
	}

	memStore := store.NewMemoryStore()
	service := geotag.NewService(memStore, ingestLog)
	app := httpapi.NewApp(service, log)

	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return nil, err
	}
	go func() {
		if err := app.Listener(ln); err != nil {
			log.Error().Err(err).Msg("fiber server stopped")
		}
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("ingestion server listening")

	return func(ctx context.Context) error {
		err := app.ShutdownWithContext(ctx)
		return errors.Join(err, ingestOut.Close())
	}, nil
}

// startOverlay starts the display poller on its timer and serves the rendered
// view on cfg.ViewPort.
func startOverlay(cfg *config.AppConfig, log zerolog.Logger) (func(context.Context) error, error) {
	httpClient := &http.Client{}

	var geocoder geotag.Geocoder
	switch cfg.Geocoder {
	case "google":
		geocoder = providers.NewGoogleGeocoder(cfg.GeocoderAPIKey)
	default:
		geocoder = providers.NewNominatimGeocoder(httpClient, cfg.NominatimURL, cfg.NominatimUserAgent)
	}
	tiles := providers.NewStaticMapProvider(httpClient, providers.StaticMapConfig{
		BaseURL: cfg.MapURL,
		Zoom:    cfg.MapZoom,
		Size:    cfg.MapSize,
		Layers:  cfg.MapLayers,
	})
	source := providers.NewLocationClient(httpClient, cfg.LocationEndpoint)

	fetcher := overlay.NewFetcher(geocoder, tiles, overlay.FetcherConfig{
		GeocodeTimeout: cfg.GeocodeTimeout,
		MapTimeout:     cfg.MapTimeout,
		Diameter:       cfg.MapDiameter,
	}, log)
	poller := overlay.NewPoller(source, fetcher, overlay.NewViewCache(), cfg.QueryTimeout, log)

	view := &http.Server{
		Addr:              ":" + cfg.ViewPort,
		Handler:           viewapi.NewServer(poller, log).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ln, err := net.Listen("tcp", view.Addr)
	if err != nil {
		return nil, err
	}
	go func() {
		if err := view.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("view server stopped")
		}
	}()
	log.Info().Str("addr", ln.Addr().String()).
		Str("geocoder", geocoder.Name()).
		Str("tiles", tiles.Name()).
		Msg("view server listening")

	sched := scheduler.New(cfg.PollInterval, log)
	if err := sched.Start("poll-location", func(ctx context.Context) {
		poller.Tick(ctx)
	}); err != nil {
		_ = view.Close()
		return nil, err
	}

	return func(ctx context.Context) error {
		sched.Stop()
		fetcher.Cancel()
		fetcher.Wait()
		return view.Shutdown(ctx)
	}, nil
}
