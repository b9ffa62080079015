package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Landfall-Studios/Sentinel/internal/config"
	"github.com/Landfall-Studios/Sentinel/internal/model"
)

// ConsensusTracker retroactively scores each voter's agreement with the
// eventual community consensus on the targets they voted on. Agreement and
// disagreement counters feed back into voter credibility on future votes.
type ConsensusTracker struct {
	ledger Ledger
	cfg    config.Reputation
	log    zerolog.Logger
}

func NewConsensusTracker(ledger Ledger, cfg config.Reputation, log zerolog.Logger) *ConsensusTracker {
	return &ConsensusTracker{
		ledger: ledger,
		cfg:    cfg,
		log:    log.With().Str("component", "consensus").Logger(),
	}
}

type consensusDelta struct {
	agreements    int
	disagreements int
}

// Run walks every scored target, derives the consensus direction from all its
// votes, and credits each voter whose vote is older than the consensus window
// with one agreement or disagreement. Deltas are accumulated across targets
// and applied once per voter. Targets without a clear consensus are skipped.
func (t *ConsensusTracker) Run(ctx context.Context) (int, error) {
	threshold := time.Now().Add(-time.Duration(t.cfg.ConsensusDays) * 24 * time.Hour)

	allScores, err := t.ledger.AllReputationScores(ctx)
	if err != nil {
		return 0, fmt.Errorf("load scores for consensus pass: %w", err)
	}

	deltas := make(map[string]*consensusDelta)

	for _, cache := range allScores {
		votes, err := t.ledger.VotesForTarget(ctx, cache.TargetID)
		if err != nil {
			t.log.Error().Err(err).Str("target", cache.TargetID).Msg("vote load failed, skipping target")
			continue
		}

		var oldVotes []model.Vote
		for _, v := range votes {
			if v.VotedAt.Before(threshold) {
				oldVotes = append(oldVotes, v)
			}
		}
		if len(oldVotes) == 0 {
			continue
		}

		direction := consensusDirection(votes)
		if direction == 0 {
			continue
		}

		for _, v := range oldVotes {
			d, ok := deltas[v.VoterID]
			if !ok {
				d = &consensusDelta{}
				deltas[v.VoterID] = d
			}
			if (v.Value > 0) == (direction > 0) {
				d.agreements++
			} else {
				d.disagreements++
			}
		}
	}

	updated := 0
	for voterID, d := range deltas {
		stats, err := t.ledger.VoterStats(ctx, voterID)
		if err != nil {
			t.log.Error().Err(err).Str("voter", voterID).Msg("stats load failed, skipping voter")
			continue
		}
		if stats == nil {
			continue
		}
		stats.ConsensusAgreements += d.agreements
		stats.ConsensusDisagreements += d.disagreements
		if err := t.ledger.UpdateVoterStats(ctx, *stats); err != nil {
			t.log.Error().Err(err).Str("voter", voterID).Msg("stats write failed")
			continue
		}
		updated++
	}

	return updated, nil
}

// ResyncDailyCounts re-queries each known voter's trailing-24h vote count and
// corrects any drift in the stored counter.
func (t *ConsensusTracker) ResyncDailyCounts(ctx context.Context) (int, error) {
	allScores, err := t.ledger.AllReputationScores(ctx)
	if err != nil {
		return 0, fmt.Errorf("load scores for 24h resync: %w", err)
	}

	oneDayAgo := time.Now().Add(-24 * time.Hour)
	resynced := 0

	for _, cache := range allScores {
		stats, err := t.ledger.VoterStats(ctx, cache.TargetID)
		if err != nil {
			t.log.Error().Err(err).Str("voter", cache.TargetID).Msg("stats load failed, skipping")
			continue
		}
		if stats == nil {
			continue
		}

		recent, err := t.ledger.VotesByVoterSince(ctx, stats.VoterID, oneDayAgo)
		if err != nil {
			t.log.Error().Err(err).Str("voter", stats.VoterID).Msg("24h window load failed, skipping")
			continue
		}

		if len(recent) == stats.VotesLast24h {
			continue
		}
		stats.VotesLast24h = len(recent)
		if err := t.ledger.UpdateVoterStats(ctx, *stats); err != nil {
			t.log.Error().Err(err).Str("voter", stats.VoterID).Msg("stats write failed")
			continue
		}
		resynced++
	}

	return resynced, nil
}

// consensusDirection is +1 when positive votes outnumber negative by more
// than 1.5x, -1 symmetrically, and 0 when neither side dominates.
func consensusDirection(votes []model.Vote) int {
	positive := 0
	negative := 0
	for _, v := range votes {
		if v.Value > 0 {
			positive++
		} else {
			negative++
		}
	}
	switch {
	case float64(positive) > float64(negative)*1.5:
		return 1
	case float64(negative) > float64(positive)*1.5:
		return -1
	default:
		return 0
	}
}
