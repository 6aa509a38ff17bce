package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"

	"github.com/MikhailRaia/urlshort/internal/model"
)

const jobTimeout = 10 * time.Second

// StatsSource reports store-wide counters.
type StatsSource interface {
	Stats(ctx context.Context) (model.Stats, error)
}

// StatsSink receives fresh counters, e.g. Prometheus gauges.
type StatsSink interface {
	SetStats(stats model.Stats)
}

// Pruner drops state idle for longer than maxIdle.
type Pruner interface {
	Prune(maxIdle time.Duration) int
}

// Scheduler runs periodic maintenance jobs.
type Scheduler struct {
	cron     *gocron.Scheduler
	interval time.Duration
}

// New creates a Scheduler whose jobs run every interval.
func New(interval time.Duration) *Scheduler {
	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()

	return &Scheduler{
		cron:     cron,
		interval: interval,
	}
}

// AddStatsJob refreshes sink from source on every tick.
func (s *Scheduler) AddStatsJob(source StatsSource, sink StatsSink) error {
	_, err := s.cron.Every(s.interval).Tag("stats").Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		stats, err := source.Stats(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to collect link stats")
			return
		}

		sink.SetStats(stats)
		log.Info().
			Int64("links", stats.Links).
			Int64("clicks", stats.Clicks).
			Msg("Link stats refreshed")
	})
	if err != nil {
		return fmt.Errorf("failed to schedule stats job: %w", err)
	}
	return nil
}

// AddPruneJob prunes p on every tick.
func (s *Scheduler) AddPruneJob(p Pruner, maxIdle time.Duration) error {
	_, err := s.cron.Every(s.interval).Tag("prune").Do(func() {
		if removed := p.Prune(maxIdle); removed > 0 {
			log.Debug().Int("removed", removed).Msg("Pruned idle rate limit clients")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule prune job: %w", err)
	}
	return nil
}

// Start runs the jobs in the background. Each job fires once immediately.
func (s *Scheduler) Start() {
	s.cron.StartAsync()
	log.Info().Dur("interval", s.interval).Int("jobs", s.cron.Len()).Msg("Scheduler started")
}

// Stop halts the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Info().Msg("Scheduler stopped")
}
