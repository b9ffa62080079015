package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Landfall-Studios/Sentinel/internal/config"
)

const (
	percentileRefreshInterval = time.Hour
	consensusInterval         = 24 * time.Hour
)

// Scheduler drives the three maintenance tasks on a single background
// goroutine: stale-cache refresh, global percentile refresh, and daily
// consensus tracking. Tasks run sequentially, never interleaved, and a
// failure or panic in one pass does not affect the others or the next run.
type Scheduler struct {
	rep       *ReputationService
	consensus *ConsensusTracker
	ledger    Ledger
	cfg       config.Reputation
	log       zerolog.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewScheduler(rep *ReputationService, consensus *ConsensusTracker, ledger Ledger, cfg config.Reputation, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		rep:       rep,
		consensus: consensus,
		ledger:    ledger,
		cfg:       cfg,
		log:       log.With().Str("component", "scheduler").Logger(),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start runs the maintenance loop until Stop is called or the context is
// cancelled. Call it on its own goroutine. The cache refresh runs once
// immediately on startup.
func (s *Scheduler) Start(ctx context.Context) {
	defer close(s.doneCh)

	refreshInterval := time.Duration(s.cfg.ScheduleRefreshMinutes) * time.Minute
	s.log.Info().
		Dur("refresh_interval", refreshInterval).
		Dur("percentile_interval", percentileRefreshInterval).
		Dur("consensus_interval", consensusInterval).
		Msg("maintenance scheduler started")

	s.runTask(ctx, "cache_refresh", s.refreshStaleCaches)

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()
	percentileTicker := time.NewTicker(percentileRefreshInterval)
	defer percentileTicker.Stop()
	consensusTicker := time.NewTicker(consensusInterval)
	defer consensusTicker.Stop()

	for {
		select {
		case <-refreshTicker.C:
			s.runTask(ctx, "cache_refresh", s.refreshStaleCaches)
		case <-percentileTicker.C:
			s.runTask(ctx, "percentile_refresh", s.refreshPercentiles)
		case <-consensusTicker.C:
			s.runTask(ctx, "consensus_tracking", s.trackConsensus)
		case <-s.stopCh:
			s.log.Info().Msg("maintenance scheduler stopping")
			return
		case <-ctx.Done():
			s.log.Info().Msg("maintenance scheduler stopping (context cancelled)")
			return
		}
	}
}

// Stop signals the scheduler and blocks until the in-flight task, if any,
// has finished, or the context expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}

	select {
	case <-s.doneCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler shutdown: %w", ctx.Err())
	}
}

// runTask isolates one maintenance pass: a panic or error is logged and
// recorded, never propagated.
func (s *Scheduler) runTask(ctx context.Context, name string, fn func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			schedulerPasses.WithLabelValues(name, "panic").Inc()
			s.log.Error().Str("task", name).Any("panic", r).Msg("maintenance task panicked")
		}
	}()

	start := time.Now()
	if err := fn(ctx); err != nil {
		schedulerPasses.WithLabelValues(name, "error").Inc()
		s.log.Error().Err(err).Str("task", name).Msg("maintenance task failed")
		return
	}
	schedulerPasses.WithLabelValues(name, "ok").Inc()
	s.log.Debug().Str("task", name).
		Dur("elapsed", time.Since(start).Round(time.Millisecond)).
		Msg("maintenance task complete")
}

// refreshStaleCaches recomputes every cached target whose entry is past the
// staleness threshold and has received at least one vote since it was last
// calculated. Targets with no new activity are skipped to bound cost, and a
// failure on one target does not abort the rest of the batch.
func (s *Scheduler) refreshStaleCaches(ctx context.Context) error {
	allCaches, err := s.ledger.AllReputationScores(ctx)
	if err != nil {
		return fmt.Errorf("load caches for refresh: %w", err)
	}

	staleBefore := time.Now().Add(-time.Duration(s.cfg.CacheStaleMinutes) * time.Minute)
	refreshed := 0

	for _, cache := range allCaches {
		if !cache.LastCalculated.Before(staleBefore) {
			continue
		}

		votes, err := s.ledger.VotesForTarget(ctx, cache.TargetID)
		if err != nil {
			s.log.Error().Err(err).Str("target", cache.TargetID).Msg("vote load failed, skipping target")
			continue
		}
		if len(votes) == 0 {
			continue
		}

		hasNewActivity := false
		for _, v := range votes {
			if v.VotedAt.After(cache.LastCalculated) {
				hasNewActivity = true
				break
			}
		}
		if !hasNewActivity {
			continue
		}

		if _, err := s.rep.CalculateReputation(ctx, cache.TargetID); err != nil {
			s.log.Error().Err(err).Str("target", cache.TargetID).Msg("refresh recalculation failed")
			continue
		}
		refreshed++
	}

	if refreshed > 0 {
		s.log.Info().Int("refreshed", refreshed).Msg("cache refresh complete")
	}
	return nil
}

func (s *Scheduler) refreshPercentiles(ctx context.Context) error {
	updated, err := s.rep.UpdatePercentileRanks(ctx)
	if err != nil {
		return err
	}
	if updated > 0 {
		s.log.Info().Int("updated", updated).Msg("percentile refresh complete")
	}
	return nil
}

func (s *Scheduler) trackConsensus(ctx context.Context) error {
	updated, err := s.consensus.Run(ctx)
	if err != nil {
		return err
	}
	resynced, err := s.consensus.ResyncDailyCounts(ctx)
	if err != nil {
		return err
	}
	s.log.Info().Int("voters_updated", updated).Int("counters_resynced", resynced).
		Msg("consensus tracking complete")
	return nil
}
