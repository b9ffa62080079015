package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Landfall-Studios/Sentinel/internal/model"
)

// VoterStats returns the credibility inputs for a voter, or nil if the voter
// has never cast a vote.
func (s *Store) VoterStats(ctx context.Context, voterID string) (*model.VoterStats, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT voter_id, account_created_at, total_votes_cast, positive_votes_cast,
		       negative_votes_cast, votes_last_24h, last_vote_at,
		       consensus_agreements, consensus_disagreements, credibility_score
		FROM reputation_voter_stats
		WHERE voter_id = $1`,
		voterID)

	var st model.VoterStats
	err := row.Scan(&st.VoterID, &st.AccountCreatedAt, &st.TotalVotesCast,
		&st.PositiveVotesCast, &st.NegativeVotesCast, &st.VotesLast24h,
		&st.LastVoteAt, &st.ConsensusAgreements, &st.ConsensusDisagreements,
		&st.CredibilityScore)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("voter stats for %s: %w", voterID, err)
	}
	return &st, nil
}

// UpdateVoterStats upserts the full stats row for a voter.
func (s *Store) UpdateVoterStats(ctx context.Context, st model.VoterStats) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reputation_voter_stats
			(voter_id, account_created_at, total_votes_cast, positive_votes_cast,
			 negative_votes_cast, votes_last_24h, last_vote_at,
			 consensus_agreements, consensus_disagreements, credibility_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (voter_id) DO UPDATE
		SET total_votes_cast        = EXCLUDED.total_votes_cast,
		    positive_votes_cast     = EXCLUDED.positive_votes_cast,
		    negative_votes_cast     = EXCLUDED.negative_votes_cast,
		    votes_last_24h          = EXCLUDED.votes_last_24h,
		    last_vote_at            = EXCLUDED.last_vote_at,
		    consensus_agreements    = EXCLUDED.consensus_agreements,
		    consensus_disagreements = EXCLUDED.consensus_disagreements,
		    credibility_score       = EXCLUDED.credibility_score`,
		st.VoterID, st.AccountCreatedAt, st.TotalVotesCast, st.PositiveVotesCast,
		st.NegativeVotesCast, st.VotesLast24h, st.LastVoteAt,
		st.ConsensusAgreements, st.ConsensusDisagreements, st.CredibilityScore)
	if err != nil {
		return fmt.Errorf("update voter stats for %s: %w", st.VoterID, err)
	}
	return nil
}
