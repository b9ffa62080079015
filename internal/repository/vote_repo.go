package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Landfall-Studios/Sentinel/internal/model"
)

const voteColumns = `id, voter_id, target_id, vote_value, COALESCE(comment, ''), voted_at`

// VotesForTarget returns every live vote cast on the target, newest first.
func (s *Store) VotesForTarget(ctx context.Context, targetID string) ([]model.Vote, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+voteColumns+`
		FROM reputation_votes
		WHERE target_id = $1
		ORDER BY voted_at DESC`,
		targetID)
	if err != nil {
		return nil, fmt.Errorf("votes for target %s: %w", targetID, err)
	}
	defer rows.Close()

	return scanVotes(rows)
}

// VoteByVoterAndTarget returns the voter's live vote on the target, or nil if
// none exists.
func (s *Store) VoteByVoterAndTarget(ctx context.Context, voterID, targetID string) (*model.Vote, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+voteColumns+`
		FROM reputation_votes
		WHERE voter_id = $1 AND target_id = $2`,
		voterID, targetID)

	var v model.Vote
	err := row.Scan(&v.ID, &v.VoterID, &v.TargetID, &v.Value, &v.Comment, &v.VotedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("vote by voter %s on %s: %w", voterID, targetID, err)
	}
	return &v, nil
}

// VotesByVoterSince returns the voter's votes cast at or after the given
// instant, newest first. Used for the trailing-24h spam window.
func (s *Store) VotesByVoterSince(ctx context.Context, voterID string, since time.Time) ([]model.Vote, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+voteColumns+`
		FROM reputation_votes
		WHERE voter_id = $1 AND voted_at >= $2
		ORDER BY voted_at DESC`,
		voterID, since)
	if err != nil {
		return nil, fmt.Errorf("votes by voter %s since %s: %w", voterID, since, err)
	}
	defer rows.Close()

	return scanVotes(rows)
}

// RecentVotes returns the most recent votes on the target for display.
func (s *Store) RecentVotes(ctx context.Context, targetID string, limit int) ([]model.Vote, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+voteColumns+`
		FROM reputation_votes
		WHERE target_id = $1
		ORDER BY voted_at DESC
		LIMIT $2`,
		targetID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent votes for %s: %w", targetID, err)
	}
	defer rows.Close()

	return scanVotes(rows)
}

// UpsertVote inserts a vote, or replaces the existing (voter, target) vote in
// place with a fresh timestamp. Cooldown enforcement happens above this layer.
func (s *Store) UpsertVote(ctx context.Context, voterID, targetID string, value int, comment string) error {
	var commentVal any
	if comment != "" {
		commentVal = comment
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO reputation_votes (voter_id, target_id, vote_value, comment, voted_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (voter_id, target_id) DO UPDATE
		SET vote_value = EXCLUDED.vote_value,
		    comment    = EXCLUDED.comment,
		    voted_at   = EXCLUDED.voted_at`,
		voterID, targetID, value, commentVal)
	if err != nil {
		return fmt.Errorf("upsert vote from %s on %s: %w", voterID, targetID, err)
	}
	return nil
}

func scanVotes(rows pgx.Rows) ([]model.Vote, error) {
	var votes []model.Vote
	for rows.Next() {
		var v model.Vote
		if err := rows.Scan(&v.ID, &v.VoterID, &v.TargetID, &v.Value, &v.Comment, &v.VotedAt); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate votes: %w", err)
	}
	return votes, nil
}
