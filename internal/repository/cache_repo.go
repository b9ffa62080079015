package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Landfall-Studios/Sentinel/internal/model"
)

const cacheColumns = `target_id, raw_score, display_score, last_calculated, total_votes, percentile_rank`

// ReputationCache returns the cached score for a target, or nil if the target
// has never been scored.
func (s *Store) ReputationCache(ctx context.Context, targetID string) (*model.ReputationCache, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+cacheColumns+`
		FROM reputation_cache
		WHERE target_id = $1`,
		targetID)

	var c model.ReputationCache
	err := row.Scan(&c.TargetID, &c.RawScore, &c.DisplayScore, &c.LastCalculated,
		&c.TotalVotes, &c.PercentileRank)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reputation cache for %s: %w", targetID, err)
	}
	return &c, nil
}

// AllReputationScores returns every cached score. The percentile pass and the
// maintenance scheduler walk this set.
func (s *Store) AllReputationScores(ctx context.Context) ([]model.ReputationCache, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+cacheColumns+`
		FROM reputation_cache
		ORDER BY display_score DESC`)
	if err != nil {
		return nil, fmt.Errorf("all reputation scores: %w", err)
	}
	defer rows.Close()

	var caches []model.ReputationCache
	for rows.Next() {
		var c model.ReputationCache
		if err := rows.Scan(&c.TargetID, &c.RawScore, &c.DisplayScore,
			&c.LastCalculated, &c.TotalVotes, &c.PercentileRank); err != nil {
			return nil, fmt.Errorf("scan reputation cache: %w", err)
		}
		caches = append(caches, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reputation scores: %w", err)
	}
	return caches, nil
}

// UpdateReputationCache upserts a target's cached score. last_calculated only
// moves forward: a slower recomputation that finishes after a fresher write
// does not clobber it.
func (s *Store) UpdateReputationCache(ctx context.Context, c model.ReputationCache) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reputation_cache
			(target_id, raw_score, display_score, last_calculated, total_votes, percentile_rank)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (target_id) DO UPDATE
		SET raw_score       = EXCLUDED.raw_score,
		    display_score   = EXCLUDED.display_score,
		    last_calculated = EXCLUDED.last_calculated,
		    total_votes     = EXCLUDED.total_votes,
		    percentile_rank = EXCLUDED.percentile_rank
		WHERE reputation_cache.last_calculated <= EXCLUDED.last_calculated`,
		c.TargetID, c.RawScore, c.DisplayScore, c.LastCalculated, c.TotalVotes,
		c.PercentileRank)
	if err != nil {
		return fmt.Errorf("update reputation cache for %s: %w", c.TargetID, err)
	}
	return nil
}

// CommunityStats aggregates community-wide figures for the stats endpoint.
func (s *Store) CommunityStats(ctx context.Context, topN int) (*model.CommunityStats, error) {
	var stats model.CommunityStats

	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM reputation_cache),
			(SELECT COUNT(*) FROM reputation_votes),
			(SELECT COUNT(*) FROM reputation_voter_stats)`).
		Scan(&stats.TotalTargets, &stats.TotalVotes, &stats.TotalVoters)
	if err != nil {
		return nil, fmt.Errorf("community stats: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+cacheColumns+`
		FROM reputation_cache
		ORDER BY display_score DESC, percentile_rank DESC
		LIMIT $1`,
		topN)
	if err != nil {
		return nil, fmt.Errorf("community stats top scores: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c model.ReputationCache
		if err := rows.Scan(&c.TargetID, &c.RawScore, &c.DisplayScore,
			&c.LastCalculated, &c.TotalVotes, &c.PercentileRank); err != nil {
			return nil, fmt.Errorf("scan top score: %w", err)
		}
		stats.TopScores = append(stats.TopScores, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top scores: %w", err)
	}
	return &stats, nil
}
