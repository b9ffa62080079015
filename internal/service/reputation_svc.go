package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/Landfall-Studios/Sentinel/internal/config"
	"github.com/Landfall-Studios/Sentinel/internal/model"
)

// ReputationService is the scoring engine: it validates vote submissions,
// aggregates weighted votes into scores, manages the cached results, and
// maintains percentile ranks.
//
// Recomputation is serialized per target so a slow recomputation cannot
// overwrite the effect of a concurrent submission, and concurrent stale reads
// of the same target collapse into one recomputation. Operations on distinct
// targets never contend.
type ReputationService struct {
	ledger   Ledger
	cfg      config.Reputation
	pipeline *WeightPipeline
	hot      *HotCache
	log      zerolog.Logger

	group singleflight.Group

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewReputationService wires the engine. hot may be nil to run without the
// redis layer.
func NewReputationService(ledger Ledger, cfg config.Reputation, hot *HotCache, log zerolog.Logger) *ReputationService {
	return &ReputationService{
		ledger:   ledger,
		cfg:      cfg,
		pipeline: NewWeightPipeline(cfg),
		hot:      hot,
		log:      log.With().Str("component", "reputation").Logger(),
		locks:    make(map[string]*sync.Mutex),
	}
}

// lockTarget acquires the per-target mutex and returns its release func.
func (s *ReputationService) lockTarget(targetID string) func() {
	s.mu.Lock()
	l, ok := s.locks[targetID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[targetID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// GetReputation returns a target's reputation, serving the cached entry when
// it is fresher than the configured staleness threshold and recomputing
// otherwise. Storage failures degrade to a neutral result; reputation is
// advisory, so reads never surface errors to the caller.
func (s *ReputationService) GetReputation(ctx context.Context, targetID string) *model.ReputationResult {
	if res, err := s.hot.Get(ctx, targetID); err != nil {
		s.log.Warn().Err(err).Str("target", targetID).Msg("hot cache read failed")
	} else if res != nil {
		cacheHits.WithLabelValues("redis").Inc()
		res.FromCache = true
		return res
	}

	cached, err := s.ledger.ReputationCache(ctx, targetID)
	if err != nil {
		s.log.Error().Err(err).Str("target", targetID).Msg("cache read failed, serving neutral score")
		return neutralResult(targetID, time.Now())
	}

	if cached != nil {
		age := time.Since(cached.LastCalculated)
		if age < time.Duration(s.cfg.CacheStaleMinutes)*time.Minute {
			cacheHits.WithLabelValues("ledger").Inc()
			recent, err := s.ledger.RecentVotes(ctx, targetID, s.cfg.DisplayRecentVotesCount)
			if err != nil {
				s.log.Warn().Err(err).Str("target", targetID).Msg("recent votes read failed")
				recent = nil
			}
			res := &model.ReputationResult{Cache: *cached, RecentVotes: recent, FromCache: true}
			if err := s.hot.Set(ctx, targetID, res); err != nil {
				s.log.Warn().Err(err).Str("target", targetID).Msg("hot cache write failed")
			}
			return res
		}
	}

	cacheMisses.Inc()

	// Collapse concurrent stale reads of the same target into one pass.
	v, err, _ := s.group.Do(targetID, func() (any, error) {
		return s.CalculateReputation(ctx, targetID)
	})
	if err != nil {
		s.log.Error().Err(err).Str("target", targetID).Msg("recalculation failed, serving neutral score")
		return neutralResult(targetID, time.Now())
	}
	return v.(*model.ReputationResult)
}

// CalculateReputation recomputes a target's score from every live vote and
// writes the new cache entry. A target with no votes gets the neutral entry.
// The global percentile pass runs after each write.
func (s *ReputationService) CalculateReputation(ctx context.Context, targetID string) (*model.ReputationResult, error) {
	unlock := s.lockTarget(targetID)
	defer unlock()

	timer := prometheus.NewTimer(recalcDuration)
	defer timer.ObserveDuration()

	now := time.Now()

	votes, err := s.ledger.VotesForTarget(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("load votes: %w", err)
	}

	if len(votes) == 0 {
		cache := model.ReputationCache{
			TargetID:       targetID,
			LastCalculated: now,
			PercentileRank: 50.0,
		}
		if err := s.ledger.UpdateReputationCache(ctx, cache); err != nil {
			s.log.Error().Err(err).Str("target", targetID).Msg("neutral cache write failed")
		}
		return &model.ReputationResult{Cache: cache}, nil
	}

	// Current cached scores snapshot: supplies both the percentile
	// denominator and the progressive-adjustment and voter-reputation
	// inputs. Factors see the pre-update state.
	allScores, err := s.ledger.AllReputationScores(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("score snapshot read failed, scoring without it")
		allScores = nil
	}
	scoreByID := make(map[string]*model.ReputationCache, len(allScores))
	for i := range allScores {
		scoreByID[allScores[i].TargetID] = &allScores[i]
	}

	statsByVoter := make(map[string]*model.VoterStats)
	reciprocalByVoter := make(map[string]*model.Vote)

	rawScore := 0.0
	for _, vote := range votes {
		vc := &VoteContext{
			Now:         now,
			TargetID:    targetID,
			TargetVotes: votes,
			TargetCache: scoreByID[targetID],
			VoterCache:  scoreByID[vote.VoterID],
		}

		if st, ok := statsByVoter[vote.VoterID]; ok {
			vc.VoterStats = st
		} else {
			st, err := s.ledger.VoterStats(ctx, vote.VoterID)
			if err != nil {
				s.log.Warn().Err(err).Str("voter", vote.VoterID).Msg("voter stats read failed")
			}
			statsByVoter[vote.VoterID] = st
			vc.VoterStats = st
		}

		if recip, ok := reciprocalByVoter[vote.VoterID]; ok {
			vc.Reciprocal = recip
		} else {
			recip, err := s.ledger.VoteByVoterAndTarget(ctx, targetID, vote.VoterID)
			if err != nil {
				s.log.Warn().Err(err).Str("voter", vote.VoterID).Msg("reciprocal vote read failed")
			}
			reciprocalByVoter[vote.VoterID] = recip
			vc.Reciprocal = recip
		}

		rawScore += float64(vote.Value) * s.pipeline.Weight(vote, vc)
	}

	displayScore := int(math.Round(math.Tanh(rawScore/10.0) * 100))
	percentile := percentileRank(displayScore, allScores)

	cache := model.ReputationCache{
		TargetID:       targetID,
		RawScore:       rawScore,
		DisplayScore:   displayScore,
		LastCalculated: now,
		TotalVotes:     len(votes),
		PercentileRank: percentile,
	}
	if err := s.ledger.UpdateReputationCache(ctx, cache); err != nil {
		s.log.Error().Err(err).Str("target", targetID).Msg("cache write failed")
	}

	// The new score shifts everyone else's standing.
	if _, err := s.UpdatePercentileRanks(ctx); err != nil {
		s.log.Error().Err(err).Msg("percentile pass after recalculation failed")
	}

	recent := votes
	if len(recent) > s.cfg.DisplayRecentVotesCount {
		recent = recent[:s.cfg.DisplayRecentVotesCount]
	}

	res := &model.ReputationResult{Cache: cache, RecentVotes: recent}
	if err := s.hot.Set(ctx, targetID, res); err != nil {
		s.log.Warn().Err(err).Str("target", targetID).Msg("hot cache write failed")
	}
	return res, nil
}

// SubmitVote validates and records a vote, then synchronously recomputes the
// target's score. Every rejection is a result value carrying the reason.
func (s *ReputationService) SubmitVote(ctx context.Context, voterID, targetID string, value int, comment string) model.VoteResult {
	if voterID == targetID {
		return s.rejected("You cannot vote on yourself.")
	}

	existing, err := s.ledger.VoteByVoterAndTarget(ctx, voterID, targetID)
	if err != nil {
		s.log.Error().Err(err).Str("voter", voterID).Str("target", targetID).Msg("cooldown lookup failed")
		return s.failed()
	}
	if existing != nil {
		daysSince := int(time.Since(existing.VotedAt).Hours() / 24)
		if daysSince < s.cfg.VoteCooldownDays {
			remaining := s.cfg.VoteCooldownDays - daysSince
			return s.rejected(fmt.Sprintf(
				"You must wait %d more day(s) before voting on this user again.", remaining))
		}
	}

	if value != 1 && value != -1 {
		return s.rejected("Invalid vote value. Must be +1 or -1.")
	}

	if utf8.RuneCountInString(comment) > s.cfg.MaxCommentLength {
		return s.rejected(fmt.Sprintf("Comment is too long (max %d characters).", s.cfg.MaxCommentLength))
	}

	if err := s.ledger.UpsertVote(ctx, voterID, targetID, value, comment); err != nil {
		s.log.Error().Err(err).Str("voter", voterID).Str("target", targetID).Msg("vote write failed")
		return s.failed()
	}

	if err := s.updateVoterStatistics(ctx, voterID, value); err != nil {
		// Stats drift is self-correcting (daily resync); the vote stands.
		s.log.Warn().Err(err).Str("voter", voterID).Msg("voter stats update failed")
	}

	// Invalidate-on-write: recompute now rather than lazily on next read.
	if err := s.hot.Invalidate(ctx, targetID); err != nil {
		s.log.Warn().Err(err).Str("target", targetID).Msg("hot cache invalidate failed")
	}
	if _, err := s.CalculateReputation(ctx, targetID); err != nil {
		s.log.Error().Err(err).Str("target", targetID).Msg("post-vote recalculation failed")
	}

	votesSubmitted.WithLabelValues("accepted").Inc()
	return model.VoteResult{Success: true, Message: "Vote submitted successfully!"}
}

func (s *ReputationService) rejected(msg string) model.VoteResult {
	votesSubmitted.WithLabelValues("rejected").Inc()
	return model.VoteResult{Success: false, Message: msg}
}

func (s *ReputationService) failed() model.VoteResult {
	votesSubmitted.WithLabelValues("error").Inc()
	return model.VoteResult{Success: false, Message: "Failed to submit vote. Please try again."}
}

// updateVoterStatistics refreshes a voter's counters after a submission. The
// 24h figure is re-queried from the trailing window rather than incremented,
// so it self-corrects.
func (s *ReputationService) updateVoterStatistics(ctx context.Context, voterID string, value int) error {
	now := time.Now()

	existing, err := s.ledger.VoterStats(ctx, voterID)
	if err != nil {
		return err
	}

	var stats model.VoterStats
	if existing != nil {
		recent, err := s.ledger.VotesByVoterSince(ctx, voterID, now.Add(-24*time.Hour))
		if err != nil {
			return err
		}
		stats = *existing
		stats.TotalVotesCast++
		if value > 0 {
			stats.PositiveVotesCast++
		} else {
			stats.NegativeVotesCast++
		}
		stats.VotesLast24h = len(recent)
		stats.LastVoteAt = &now
	} else {
		stats = model.VoterStats{
			VoterID:          voterID,
			AccountCreatedAt: now,
			TotalVotesCast:   1,
			VotesLast24h:     1,
			LastVoteAt:       &now,
			CredibilityScore: 1.0,
		}
		if value > 0 {
			stats.PositiveVotesCast = 1
		} else {
			stats.NegativeVotesCast = 1
		}
	}

	return s.ledger.UpdateVoterStats(ctx, stats)
}

// UpdatePercentileRanks recomputes every cached target's percentile against
// the current score distribution. Rows that moved by 0.1 or less are left
// untouched. Idempotent and safe to call on demand.
func (s *ReputationService) UpdatePercentileRanks(ctx context.Context) (int, error) {
	allScores, err := s.ledger.AllReputationScores(ctx)
	if err != nil {
		return 0, fmt.Errorf("load scores for percentile pass: %w", err)
	}

	updated := 0
	for _, cache := range allScores {
		percentile := percentileRank(cache.DisplayScore, allScores)
		if math.Abs(percentile-cache.PercentileRank) <= 0.1 {
			continue
		}
		cache.PercentileRank = percentile
		if err := s.ledger.UpdateReputationCache(ctx, cache); err != nil {
			s.log.Error().Err(err).Str("target", cache.TargetID).Msg("percentile write failed")
			continue
		}
		updated++
	}
	return updated, nil
}

// VoterProfile returns the API view of a voter's credibility inputs, or nil
// if the voter has never cast a vote.
func (s *ReputationService) VoterProfile(ctx context.Context, voterID string) (*model.VoterStatsResponse, error) {
	stats, err := s.ledger.VoterStats(ctx, voterID)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		return nil, nil
	}

	agreementRate := 0.0
	if checks := stats.ConsensusChecks(); checks > 0 {
		agreementRate = float64(stats.ConsensusAgreements) / float64(checks)
	}

	return &model.VoterStatsResponse{
		VoterID:                stats.VoterID,
		AccountAgeDays:         int(time.Since(stats.AccountCreatedAt).Hours() / 24),
		TotalVotesCast:         stats.TotalVotesCast,
		PositiveVotesCast:      stats.PositiveVotesCast,
		NegativeVotesCast:      stats.NegativeVotesCast,
		VotesLast24h:           stats.VotesLast24h,
		ConsensusAgreements:    stats.ConsensusAgreements,
		ConsensusDisagreements: stats.ConsensusDisagreements,
		AgreementRate:          agreementRate,
	}, nil
}

// percentileRank is the share of cached targets with a strictly lower display
// score, in [0, 100]. A target with no peers sits at the median.
func percentileRank(displayScore int, allScores []model.ReputationCache) float64 {
	if len(allScores) == 0 {
		return 50.0
	}
	below := 0
	for _, other := range allScores {
		if other.DisplayScore < displayScore {
			below++
		}
	}
	return float64(below) / float64(len(allScores)) * 100.0
}

func neutralResult(targetID string, now time.Time) *model.ReputationResult {
	return &model.ReputationResult{
		Cache: model.ReputationCache{
			TargetID:       targetID,
			LastCalculated: now,
			PercentileRank: 50.0,
		},
	}
}
