package service

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Landfall-Studios/Sentinel/internal/config"
	"github.com/Landfall-Studios/Sentinel/internal/model"
)

// VoteContext is the snapshot a recomputation shares across all factors for
// one vote. Everything here is read before scoring starts; factors never
// touch the ledger themselves.
type VoteContext struct {
	Now      time.Time
	TargetID string

	// TargetVotes is every live vote on the target.
	TargetVotes []model.Vote

	// TargetCache is the target's cached entry prior to this recomputation,
	// nil if the target has never been scored.
	TargetCache *model.ReputationCache

	// VoterStats are the credibility inputs for this vote's voter, nil for
	// a voter the ledger has never seen.
	VoterStats *model.VoterStats

	// VoterCache is the voter's own cached score, nil if unscored.
	VoterCache *model.ReputationCache

	// Reciprocal is the target's live vote on the voter, nil if none.
	Reciprocal *model.Vote
}

// Factor computes one multiplicative weight component for a vote.
type Factor interface {
	Name() string
	Multiplier(v model.Vote, vc *VoteContext) float64
}

// WeightPipeline multiplies an ordered list of factors into one vote weight.
type WeightPipeline struct {
	factors []Factor
}

// NewWeightPipeline builds the stock seven-factor pipeline.
func NewWeightPipeline(cfg config.Reputation) *WeightPipeline {
	return &WeightPipeline{
		factors: []Factor{
			timeDecay{rate: cfg.TimeDecayRate},
			voterCredibility{cfg: cfg},
			commentQuality{cfg: cfg},
			antiAbuse{cfg: cfg},
			voteDiversity{},
			progressiveAdjustment{cfg: cfg},
			smallServerScaling{cfg: cfg},
		},
	}
}

// Weight returns the product of all factor multipliers for the vote.
func (p *WeightPipeline) Weight(v model.Vote, vc *VoteContext) float64 {
	weight := 1.0
	for _, f := range p.factors {
		weight *= f.Multiplier(v, vc)
	}
	return weight
}

// Factors exposes the ordered factor list, mostly for tests.
func (p *WeightPipeline) Factors() []Factor {
	return p.factors
}

// timeDecay: e^(-rate * ageDays). A vote loses roughly half its weight at 30
// days under the default rate.
type timeDecay struct {
	rate float64
}

func (timeDecay) Name() string { return "time_decay" }

func (f timeDecay) Multiplier(v model.Vote, vc *VoteContext) float64 {
	ageDays := vc.Now.Sub(v.VotedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Exp(-f.rate * ageDays)
}

// voterCredibility combines account age, vote-direction diversity, the spam
// dampener, the voter's own reputation, and consensus agreement into one
// multiplier.
type voterCredibility struct {
	cfg config.Reputation
}

func (voterCredibility) Name() string { return "voter_credibility" }

func (f voterCredibility) Multiplier(v model.Vote, vc *VoteContext) float64 {
	stats := vc.VoterStats
	if stats == nil {
		// First-time voter: account dates from this vote, no history.
		stats = &model.VoterStats{
			VoterID:          v.VoterID,
			AccountCreatedAt: v.VotedAt,
		}
	}

	credibility := 1.0

	accountDays := vc.Now.Sub(stats.AccountCreatedAt).Hours() / 24
	credibility *= math.Min(1.0, accountDays/float64(f.cfg.FullCredibilityDays))

	// One-directional voters lose weight once they have a track record.
	if stats.TotalVotesCast > 5 {
		total := float64(stats.TotalVotesCast)
		positiveRatio := float64(stats.PositiveVotesCast) / total
		negativeRatio := float64(stats.NegativeVotesCast) / total

		if positiveRatio > 0.95 || negativeRatio > 0.95 {
			skew := math.Max(positiveRatio, negativeRatio)
			// Linear from 1.0 at 95% skew down to the floor at 100%.
			penalty := 1.0 - (skew-0.95)*((1.0-f.cfg.SingleDirectionWeight)/0.05)
			credibility *= math.Max(f.cfg.SingleDirectionWeight, penalty)
		}
	}

	credibility *= 1.0 / (1.0 + float64(stats.VotesLast24h)*f.cfg.SpamDampenerFactor)

	if vc.VoterCache != nil {
		score := vc.VoterCache.DisplayScore
		switch {
		case score >= 50:
			credibility *= 1.0 + float64(score-50)/100.0*0.5
		case score <= -50:
			credibility *= 1.0 - float64(-score-50)/100.0*0.5
		}
	}

	if checks := stats.ConsensusChecks(); checks >= 10 {
		rate := float64(stats.ConsensusAgreements) / float64(checks)
		switch {
		case rate >= 0.70:
			// Full weight.
		case rate >= 0.50:
			credibility *= 0.9
		case rate >= 0.30:
			credibility *= 0.7
		default:
			credibility *= 0.5
		}
	}

	return credibility
}

// commentQuality rewards substantive comments and dampens vague complaints.
type commentQuality struct {
	cfg config.Reputation
}

func (commentQuality) Name() string { return "comment_quality" }

func (f commentQuality) Multiplier(v model.Vote, _ *VoteContext) float64 {
	if strings.TrimSpace(v.Comment) == "" {
		return f.cfg.NoCommentWeight
	}

	lower := strings.ToLower(v.Comment)
	for _, pattern := range f.cfg.VagueCommentPatterns {
		if strings.Contains(lower, pattern) {
			return f.cfg.VagueCommentWeight
		}
	}

	switch length := utf8.RuneCountInString(v.Comment); {
	case length >= 50:
		return f.cfg.DetailedCommentWeight
	case length >= 10:
		return f.cfg.ShortCommentWeight
	default:
		return f.cfg.NoCommentWeight
	}
}

// antiAbuse dampens reciprocal vote-trading and brigading. The two penalties
// compose multiplicatively when both trigger.
type antiAbuse struct {
	cfg config.Reputation
}

func (antiAbuse) Name() string { return "anti_abuse" }

func (f antiAbuse) Multiplier(v model.Vote, vc *VoteContext) float64 {
	multiplier := 1.0

	if recip := vc.Reciprocal; recip != nil && recip.Value == v.Value {
		between := v.VotedAt.Sub(recip.VotedAt)
		if between < 0 {
			between = -between
		}
		if between < time.Hour {
			multiplier *= f.cfg.ReciprocalQuickWeight
		} else if between < 7*24*time.Hour {
			multiplier *= f.cfg.ReciprocalDelayedWeight
		}
	}

	// Brigading: 3+ same-signed votes inside a ±10 minute window around this
	// vote. The vote itself counts toward the cluster.
	windowStart := v.VotedAt.Add(-10 * time.Minute)
	windowEnd := v.VotedAt.Add(10 * time.Minute)
	nearby := 0
	for _, other := range vc.TargetVotes {
		if other.Value == v.Value &&
			other.VotedAt.After(windowStart) && other.VotedAt.Before(windowEnd) {
			nearby++
		}
	}
	if nearby >= 3 {
		multiplier *= f.cfg.BrigadingWeight
	}

	return multiplier
}

// voteDiversity penalizes the vote side (positive or negative) whose votes
// come from proportionally fewer unique voters.
type voteDiversity struct{}

func (voteDiversity) Name() string { return "vote_diversity" }

func (voteDiversity) Multiplier(v model.Vote, vc *VoteContext) float64 {
	positiveVoters := make(map[string]struct{})
	negativeVoters := make(map[string]struct{})
	positiveCount := 0
	negativeCount := 0

	for _, other := range vc.TargetVotes {
		if other.Value > 0 {
			positiveVoters[other.VoterID] = struct{}{}
			positiveCount++
		} else {
			negativeVoters[other.VoterID] = struct{}{}
			negativeCount++
		}
	}

	if positiveCount == 0 || negativeCount == 0 {
		return 1.0
	}

	positiveDiversity := float64(len(positiveVoters)) / float64(positiveCount)
	negativeDiversity := float64(len(negativeVoters)) / float64(negativeCount)

	if v.Value > 0 && positiveDiversity < negativeDiversity {
		return math.Sqrt(positiveDiversity / negativeDiversity)
	}
	if v.Value < 0 && negativeDiversity < positiveDiversity {
		return math.Sqrt(negativeDiversity / positiveDiversity)
	}
	return 1.0
}

// progressiveAdjustment dampens downvotes on targets already near the top of
// the percentile ladder and amplifies upvotes on targets near the bottom,
// using the target's cached percentile from before this recomputation.
type progressiveAdjustment struct {
	cfg config.Reputation
}

func (progressiveAdjustment) Name() string { return "progressive_adjustment" }

func (f progressiveAdjustment) Multiplier(v model.Vote, vc *VoteContext) float64 {
	if vc.TargetCache == nil {
		return 1.0
	}
	percentile := vc.TargetCache.PercentileRank

	if v.Value < 0 && percentile >= f.cfg.HighPercentileThreshold {
		progress := (percentile - f.cfg.HighPercentileThreshold) /
			(100.0 - f.cfg.HighPercentileThreshold)
		return 1.0 - progress*(1.0-f.cfg.HighPercentileMinWeight)
	}

	if v.Value > 0 && percentile <= f.cfg.LowPercentileThreshold {
		progress := (f.cfg.LowPercentileThreshold - percentile) /
			f.cfg.LowPercentileThreshold
		return 1.0 + progress*(f.cfg.LowPercentileMaxWeight-1.0)
	}

	return 1.0
}

// smallServerScaling boosts weights on targets with a broad voter base so
// scores remain meaningful in small communities.
type smallServerScaling struct {
	cfg config.Reputation
}

func (smallServerScaling) Name() string { return "small_server_scaling" }

func (f smallServerScaling) Multiplier(_ model.Vote, vc *VoteContext) float64 {
	unique := make(map[string]struct{}, len(vc.TargetVotes))
	for _, other := range vc.TargetVotes {
		unique[other.VoterID] = struct{}{}
	}

	switch count := len(unique); {
	case count >= 20:
		return f.cfg.SmallServerMaxMultiplier
	case count >= 16:
		return f.cfg.SmallServer16to20Multiplier
	case count >= 11:
		return f.cfg.SmallServer11to15Multiplier
	case count >= 6:
		return f.cfg.SmallServer6to10Multiplier
	case count >= 3:
		return f.cfg.SmallServer3to5Multiplier
	default:
		return 1.0
	}
}
