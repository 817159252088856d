package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// Job is one scheduled unit of work. ctx is cancelled when the run exceeds
// its interval or the scheduler stops.
type Job func(ctx context.Context)

// Scheduler runs a job at a fixed interval. A run that is still going when the
// next one is due makes the next one wait, so runs never overlap.
type Scheduler struct {
	scheduler *gocron.Scheduler
	interval  time.Duration
	log       zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Scheduler.
func New(interval time.Duration, log zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		interval:  interval,
		log:       log.With().Str("module", "scheduler").Logger(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules job, runs it once right away and then every interval.
func (s *Scheduler) Start(name string, job Job) error {
	if s.interval <= 0 {
		return errors.New("scheduler: interval must be positive")
	}

	_, err := s.scheduler.Every(s.interval).Name(name).SingletonMode().Do(func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.interval)
		defer cancel()

		start := time.Now()
		job(ctx)
		s.log.Trace().Str("job", name).Dur("took", time.Since(start)).Msg("job run")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.log.Info().Str("job", name).Dur("interval", s.interval).Msg("scheduler started")
	return nil
}

// Stop cancels the running job, if any, and stops future runs.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
