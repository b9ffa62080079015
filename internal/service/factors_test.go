package service

import (
	"math"
	"testing"
	"time"

	"github.com/Landfall-Studios/Sentinel/internal/config"
	"github.com/Landfall-Studios/Sentinel/internal/model"
)

func defaultRepConfig() config.Reputation {
	return config.Default().Reputation
}

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestTimeDecay(t *testing.T) {
	f := timeDecay{rate: 0.023}
	now := time.Now()

	tests := []struct {
		name    string
		ageDays float64
		wantMin float64
		wantMax float64
	}{
		{"fresh vote", 0, 0.999, 1.0},
		{"one day old", 1, 0.976, 0.978},
		{"thirty days old (half weight)", 30, 0.49, 0.51},
		{"ninety days old", 90, 0.12, 0.13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := model.Vote{Value: 1, VotedAt: now.Add(-time.Duration(tt.ageDays * 24 * float64(time.Hour)))}
			got := f.Multiplier(v, &VoteContext{Now: now})
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("decay at %.0f days = %.4f, want [%.3f, %.3f]", tt.ageDays, got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestTimeDecayMonotonic(t *testing.T) {
	f := timeDecay{rate: 0.023}
	now := time.Now()

	prev := math.Inf(1)
	for days := 0; days <= 120; days += 5 {
		v := model.Vote{VotedAt: now.Add(-time.Duration(days) * 24 * time.Hour)}
		got := f.Multiplier(v, &VoteContext{Now: now})
		if got >= prev {
			t.Fatalf("decay not strictly decreasing at %d days: %.6f >= %.6f", days, got, prev)
		}
		prev = got
	}
}

func TestVoterCredibilityAccountAge(t *testing.T) {
	f := voterCredibility{cfg: defaultRepConfig()}
	now := time.Now()

	tests := []struct {
		name        string
		accountDays int
		wantMin     float64
		wantMax     float64
	}{
		{"brand new account", 0, 0.0, 0.01},
		{"fifteen days old", 15, 0.49, 0.51},
		{"thirty days old (full)", 30, 0.99, 1.0},
		{"veteran account (capped)", 300, 0.99, 1.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vc := &VoteContext{
				Now: now,
				VoterStats: &model.VoterStats{
					VoterID:          "100",
					AccountCreatedAt: now.Add(-time.Duration(tt.accountDays) * 24 * time.Hour),
				},
			}
			got := f.Multiplier(model.Vote{VoterID: "100", Value: 1, VotedAt: now}, vc)
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("credibility with %d-day account = %.4f, want [%.2f, %.2f]",
					tt.accountDays, got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestVoterCredibilityUnknownVoter(t *testing.T) {
	f := voterCredibility{cfg: defaultRepConfig()}
	now := time.Now()

	// A voter with no stats row is treated as brand new: the account-age
	// factor zeroes their weight until the account matures.
	got := f.Multiplier(model.Vote{VoterID: "100", Value: 1, VotedAt: now}, &VoteContext{Now: now})
	if got > 0.01 {
		t.Errorf("unknown voter credibility = %.4f, want ~0", got)
	}
}

func TestVoterCredibilityDiversityPenalty(t *testing.T) {
	f := voterCredibility{cfg: defaultRepConfig()}
	now := time.Now()
	matured := now.Add(-60 * 24 * time.Hour)

	tests := []struct {
		name     string
		positive int
		negative int
		wantMin  float64
		wantMax  float64
	}{
		{"balanced voter, no penalty", 10, 10, 0.99, 1.01},
		{"few votes, skew ignored", 5, 0, 0.99, 1.01},
		{"90% positive, under threshold", 18, 2, 0.99, 1.01},
		{"all positive, full penalty", 20, 0, 0.69, 0.71},
		{"all negative, full penalty", 0, 20, 0.69, 0.71},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vc := &VoteContext{
				Now: now,
				VoterStats: &model.VoterStats{
					VoterID:           "100",
					AccountCreatedAt:  matured,
					TotalVotesCast:    tt.positive + tt.negative,
					PositiveVotesCast: tt.positive,
					NegativeVotesCast: tt.negative,
				},
			}
			got := f.Multiplier(model.Vote{VoterID: "100", Value: 1, VotedAt: now}, vc)
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("credibility = %.4f, want [%.2f, %.2f]", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestVoterCredibilitySpamDampener(t *testing.T) {
	f := voterCredibility{cfg: defaultRepConfig()}
	now := time.Now()
	matured := now.Add(-60 * 24 * time.Hour)

	tests := []struct {
		name     string
		last24h  int
		want     float64
	}{
		{"no recent votes", 0, 1.0},
		{"five recent votes", 5, 1.0 / 1.5},
		{"ten recent votes", 10, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vc := &VoteContext{
				Now: now,
				VoterStats: &model.VoterStats{
					VoterID:          "100",
					AccountCreatedAt: matured,
					VotesLast24h:     tt.last24h,
				},
			}
			got := f.Multiplier(model.Vote{VoterID: "100", Value: 1, VotedAt: now}, vc)
			if !almostEqual(got, tt.want, 0.001) {
				t.Errorf("credibility with %d votes in 24h = %.4f, want %.4f", tt.last24h, got, tt.want)
			}
		})
	}
}

func TestVoterCredibilityOwnReputation(t *testing.T) {
	f := voterCredibility{cfg: defaultRepConfig()}
	now := time.Now()
	matured := now.Add(-60 * 24 * time.Hour)

	tests := []struct {
		name  string
		score int
		want  float64
	}{
		{"top score", 100, 1.25},
		{"high score", 50, 1.0},
		{"neutral score", 0, 1.0},
		{"low score", -50, 1.0},
		{"bottom score", -100, 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vc := &VoteContext{
				Now:        now,
				VoterStats: &model.VoterStats{VoterID: "100", AccountCreatedAt: matured},
				VoterCache: &model.ReputationCache{TargetID: "100", DisplayScore: tt.score},
			}
			got := f.Multiplier(model.Vote{VoterID: "100", Value: 1, VotedAt: now}, vc)
			if !almostEqual(got, tt.want, 0.001) {
				t.Errorf("credibility with own score %d = %.4f, want %.4f", tt.score, got, tt.want)
			}
		})
	}
}

func TestVoterCredibilityConsensusAgreement(t *testing.T) {
	f := voterCredibility{cfg: defaultRepConfig()}
	now := time.Now()
	matured := now.Add(-60 * 24 * time.Hour)

	tests := []struct {
		name          string
		agreements    int
		disagreements int
		want          float64
	}{
		{"too few checks, ignored", 2, 3, 1.0},
		{"high agreement", 9, 1, 1.0},
		{"moderate agreement", 6, 4, 0.9},
		{"low agreement", 4, 6, 0.7},
		{"contrarian", 1, 9, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vc := &VoteContext{
				Now: now,
				VoterStats: &model.VoterStats{
					VoterID:                "100",
					AccountCreatedAt:       matured,
					ConsensusAgreements:    tt.agreements,
					ConsensusDisagreements: tt.disagreements,
				},
			}
			got := f.Multiplier(model.Vote{VoterID: "100", Value: 1, VotedAt: now}, vc)
			if !almostEqual(got, tt.want, 0.001) {
				t.Errorf("credibility with %d/%d consensus = %.4f, want %.4f",
					tt.agreements, tt.disagreements, got, tt.want)
			}
		})
	}
}

func TestCommentQuality(t *testing.T) {
	f := commentQuality{cfg: defaultRepConfig()}

	tests := []struct {
		name    string
		comment string
		want    float64
	}{
		{"no comment", "", 0.9},
		{"whitespace only", "   ", 0.9},
		{"very short", "ok bad", 0.9},
		{"short comment", "helped me out", 1.0},
		{"detailed comment", "always shares resources and helped rebuild my base after the raid", 1.3},
		{"vague complaint", "this guy is toxic", 0.7},
		{"vague complaint uppercase", "SO TOXIC", 0.7},
		{"vague beats length", "honestly just a trash player in my opinion, never again", 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Multiplier(model.Vote{Value: 1, Comment: tt.comment}, &VoteContext{})
			if got != tt.want {
				t.Errorf("comment quality(%q) = %.2f, want %.2f", tt.comment, got, tt.want)
			}
		})
	}
}

func TestAntiAbuseReciprocal(t *testing.T) {
	f := antiAbuse{cfg: defaultRepConfig()}
	now := time.Now()

	tests := []struct {
		name       string
		reciprocal *model.Vote
		want       float64
	}{
		{"no reciprocal vote", nil, 1.0},
		{
			"quick same-sign reciprocal",
			&model.Vote{VoterID: "2", TargetID: "1", Value: 1, VotedAt: now.Add(-40 * time.Minute)},
			0.4,
		},
		{
			"delayed same-sign reciprocal",
			&model.Vote{VoterID: "2", TargetID: "1", Value: 1, VotedAt: now.Add(-3 * 24 * time.Hour)},
			0.75,
		},
		{
			"stale same-sign reciprocal",
			&model.Vote{VoterID: "2", TargetID: "1", Value: 1, VotedAt: now.Add(-10 * 24 * time.Hour)},
			1.0,
		},
		{
			"opposite-sign reciprocal ignored",
			&model.Vote{VoterID: "2", TargetID: "1", Value: -1, VotedAt: now.Add(-5 * time.Minute)},
			1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := model.Vote{VoterID: "1", TargetID: "2", Value: 1, VotedAt: now}
			vc := &VoteContext{
				Now:         now,
				TargetVotes: []model.Vote{v},
				Reciprocal:  tt.reciprocal,
			}
			got := f.Multiplier(v, vc)
			if !almostEqual(got, tt.want, 0.001) {
				t.Errorf("anti-abuse = %.4f, want %.4f", got, tt.want)
			}
		})
	}
}

func TestAntiAbuseBrigading(t *testing.T) {
	f := antiAbuse{cfg: defaultRepConfig()}
	now := time.Now()

	// Four distinct voters upvote the same target within five minutes.
	cluster := []model.Vote{
		{VoterID: "1", TargetID: "9", Value: 1, VotedAt: now},
		{VoterID: "2", TargetID: "9", Value: 1, VotedAt: now.Add(1 * time.Minute)},
		{VoterID: "3", TargetID: "9", Value: 1, VotedAt: now.Add(3 * time.Minute)},
		{VoterID: "4", TargetID: "9", Value: 1, VotedAt: now.Add(5 * time.Minute)},
	}

	vc := &VoteContext{Now: now, TargetVotes: cluster}
	for _, v := range cluster {
		if got := f.Multiplier(v, vc); !almostEqual(got, 0.3, 0.001) {
			t.Errorf("vote from %s: anti-abuse = %.4f, want 0.3 (brigading)", v.VoterID, got)
		}
	}

	// A downvote in the same window is not part of the cluster.
	down := model.Vote{VoterID: "5", TargetID: "9", Value: -1, VotedAt: now.Add(2 * time.Minute)}
	vc.TargetVotes = append(cluster, down)
	if got := f.Multiplier(down, vc); !almostEqual(got, 1.0, 0.001) {
		t.Errorf("opposite-sign vote in window = %.4f, want 1.0", got)
	}

	// Two same-signed votes are below the cluster threshold.
	pair := cluster[:2]
	vc = &VoteContext{Now: now, TargetVotes: pair}
	if got := f.Multiplier(pair[0], vc); !almostEqual(got, 1.0, 0.001) {
		t.Errorf("two-vote window = %.4f, want 1.0", got)
	}
}

func TestVoteDiversity(t *testing.T) {
	f := voteDiversity{}
	now := time.Now()

	t.Run("one-sided votes, no penalty", func(t *testing.T) {
		votes := []model.Vote{
			{VoterID: "1", Value: 1, VotedAt: now},
			{VoterID: "2", Value: 1, VotedAt: now},
		}
		if got := f.Multiplier(votes[0], &VoteContext{TargetVotes: votes}); got != 1.0 {
			t.Errorf("diversity = %.4f, want 1.0", got)
		}
	})

	t.Run("less diverse side penalized", func(t *testing.T) {
		// Positive side: 4 votes from 2 voters (diversity 0.5).
		// Negative side: 2 votes from 2 voters (diversity 1.0).
		votes := []model.Vote{
			{VoterID: "1", Value: 1, VotedAt: now},
			{VoterID: "1", Value: 1, VotedAt: now},
			{VoterID: "2", Value: 1, VotedAt: now},
			{VoterID: "2", Value: 1, VotedAt: now},
			{VoterID: "3", Value: -1, VotedAt: now},
			{VoterID: "4", Value: -1, VotedAt: now},
		}
		up := votes[0]
		want := math.Sqrt(0.5)
		if got := f.Multiplier(up, &VoteContext{TargetVotes: votes}); !almostEqual(got, want, 0.001) {
			t.Errorf("penalized side diversity = %.4f, want %.4f", got, want)
		}

		down := votes[4]
		if got := f.Multiplier(down, &VoteContext{TargetVotes: votes}); got != 1.0 {
			t.Errorf("diverse side diversity = %.4f, want 1.0", got)
		}
	})
}

func TestProgressiveAdjustment(t *testing.T) {
	f := progressiveAdjustment{cfg: defaultRepConfig()}

	tests := []struct {
		name       string
		value      int
		percentile float64
		noCache    bool
		want       float64
	}{
		{"no cache yet", 1, 0, true, 1.0},
		{"downvote on median target", -1, 50, false, 1.0},
		{"downvote at high threshold", -1, 80, false, 1.0},
		{"downvote at 90th percentile", -1, 90, false, 0.75},
		{"downvote at top", -1, 100, false, 0.5},
		{"upvote on median target", 1, 50, false, 1.0},
		{"upvote at low threshold", 1, 20, false, 1.0},
		{"upvote at 10th percentile", 1, 10, false, 1.25},
		{"upvote at bottom", 1, 0, false, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vc := &VoteContext{}
			if !tt.noCache {
				vc.TargetCache = &model.ReputationCache{PercentileRank: tt.percentile}
			}
			got := f.Multiplier(model.Vote{Value: tt.value}, vc)
			if !almostEqual(got, tt.want, 0.001) {
				t.Errorf("progressive = %.4f, want %.4f", got, tt.want)
			}
		})
	}
}

func TestSmallServerScaling(t *testing.T) {
	f := smallServerScaling{cfg: defaultRepConfig()}
	now := time.Now()

	tests := []struct {
		name   string
		voters int
		want   float64
	}{
		{"two voters", 2, 1.0},
		{"three voters", 3, 1.1},
		{"five voters", 5, 1.1},
		{"six voters", 6, 1.2},
		{"twelve voters", 12, 1.3},
		{"seventeen voters", 17, 1.4},
		{"twenty voters", 20, 1.5},
		{"large community", 45, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			votes := make([]model.Vote, tt.voters)
			for i := range votes {
				votes[i] = model.Vote{VoterID: string(rune('A' + i)), Value: 1, VotedAt: now}
			}
			got := f.Multiplier(votes[0], &VoteContext{TargetVotes: votes})
			if !almostEqual(got, tt.want, 0.001) {
				t.Errorf("small-server scaling with %d voters = %.2f, want %.2f", tt.voters, got, tt.want)
			}
		})
	}
}

func TestWeightPipelineOrderAndProduct(t *testing.T) {
	p := NewWeightPipeline(defaultRepConfig())

	wantOrder := []string{
		"time_decay", "voter_credibility", "comment_quality", "anti_abuse",
		"vote_diversity", "progressive_adjustment", "small_server_scaling",
	}
	factors := p.Factors()
	if len(factors) != len(wantOrder) {
		t.Fatalf("pipeline has %d factors, want %d", len(factors), len(wantOrder))
	}
	for i, f := range factors {
		if f.Name() != wantOrder[i] {
			t.Errorf("factor %d = %s, want %s", i, f.Name(), wantOrder[i])
		}
	}

	// Weight equals the product of the individual multipliers.
	now := time.Now()
	v := model.Vote{VoterID: "1", TargetID: "2", Value: 1, Comment: "helped me out", VotedAt: now}
	vc := &VoteContext{
		Now:         now,
		TargetID:    "2",
		TargetVotes: []model.Vote{v},
		VoterStats:  &model.VoterStats{VoterID: "1", AccountCreatedAt: now.Add(-60 * 24 * time.Hour)},
	}

	product := 1.0
	for _, f := range factors {
		product *= f.Multiplier(v, vc)
	}
	if got := p.Weight(v, vc); !almostEqual(got, product, 1e-9) {
		t.Errorf("Weight() = %.6f, want product %.6f", got, product)
	}
}
