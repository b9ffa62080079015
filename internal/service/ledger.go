package service

import (
	"context"
	"time"

	"github.com/Landfall-Studios/Sentinel/internal/model"
)

// Ledger is the engine's view of durable storage: votes, voter statistics,
// and cached scores. The engine performs no I/O beyond this boundary; every
// other component is a pure computation over data read from it.
type Ledger interface {
	VotesForTarget(ctx context.Context, targetID string) ([]model.Vote, error)
	VoteByVoterAndTarget(ctx context.Context, voterID, targetID string) (*model.Vote, error)
	VotesByVoterSince(ctx context.Context, voterID string, since time.Time) ([]model.Vote, error)
	RecentVotes(ctx context.Context, targetID string, limit int) ([]model.Vote, error)
	UpsertVote(ctx context.Context, voterID, targetID string, value int, comment string) error

	VoterStats(ctx context.Context, voterID string) (*model.VoterStats, error)
	UpdateVoterStats(ctx context.Context, st model.VoterStats) error

	ReputationCache(ctx context.Context, targetID string) (*model.ReputationCache, error)
	AllReputationScores(ctx context.Context) ([]model.ReputationCache, error)
	UpdateReputationCache(ctx context.Context, c model.ReputationCache) error
}
