package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Store is the Postgres-backed ledger: votes, voter statistics, and cached
// reputation scores. It is the engine's single source of truth.
type Store struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

func NewStore(pool *pgxpool.Pool, log zerolog.Logger) *Store {
	return &Store{pool: pool, log: log.With().Str("component", "ledger").Logger()}
}

// EnsureSchema creates the ledger tables if they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS reputation_votes (
			id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			voter_id   VARCHAR(32) NOT NULL,
			target_id  VARCHAR(32) NOT NULL,
			vote_value SMALLINT    NOT NULL,
			comment    TEXT,
			voted_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (voter_id, target_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_votes_target ON reputation_votes (target_id)`,
		`CREATE INDEX IF NOT EXISTS idx_votes_voter ON reputation_votes (voter_id)`,
		`CREATE INDEX IF NOT EXISTS idx_votes_voted_at ON reputation_votes (voted_at)`,
		`CREATE TABLE IF NOT EXISTS reputation_cache (
			target_id       VARCHAR(32)   PRIMARY KEY,
			raw_score       DECIMAL(10,4) NOT NULL DEFAULT 0,
			display_score   INT           NOT NULL DEFAULT 0,
			last_calculated TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
			total_votes     INT           NOT NULL DEFAULT 0,
			percentile_rank DECIMAL(5,2)  NOT NULL DEFAULT 50.0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cache_display_score ON reputation_cache (display_score)`,
		`CREATE TABLE IF NOT EXISTS reputation_voter_stats (
			voter_id                VARCHAR(32)  PRIMARY KEY,
			account_created_at      TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			total_votes_cast        INT          NOT NULL DEFAULT 0,
			positive_votes_cast     INT          NOT NULL DEFAULT 0,
			negative_votes_cast     INT          NOT NULL DEFAULT 0,
			votes_last_24h          INT          NOT NULL DEFAULT 0,
			last_vote_at            TIMESTAMPTZ,
			consensus_agreements    INT          NOT NULL DEFAULT 0,
			consensus_disagreements INT          NOT NULL DEFAULT 0,
			credibility_score       DECIMAL(5,4) NOT NULL DEFAULT 1.0
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
