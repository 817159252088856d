package geotag

import (
	"github.com/rs/zerolog"
)

// Service validates incoming reports and serves the latest position.
type Service struct {
	store Store
	log   zerolog.Logger
}

// NewService creates a new Service. The logger receives one line per accepted
// report and should be backed by a non-blocking writer.
func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("module", "ingest").Logger(),
	}
}

// Ingest parses the report and replaces the stored position with it.
// Invalid reports are rejected and never reach the store.
func (s *Service) Ingest(r Report) (Position, error) {
	pos, err := r.Parse()
	if err != nil {
		s.log.Debug().Err(err).Str("lat", r.Lat).Str("lon", r.Lon).Msg("report rejected")
		return Position{}, err
	}

	s.store.Save(pos)

	ev := s.log.Info().Float64("lat", pos.Lat).Float64("lon", pos.Lon)
	if pos.Time != nil {
		ev = ev.Str("time", *pos.Time)
	}
	if pos.Speed != nil {
		ev = ev.Str("speed", *pos.Speed)
	}
	ev.Msg("position logged")

	return pos, nil
}

// GetLatest delegates to the underlying store.
func (s *Service) GetLatest() (Position, error) {
	return s.store.GetLatest()
}
