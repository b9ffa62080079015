package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Landfall-Studios/Sentinel/internal/model"
)

// hotResultTTL bounds how long a serialized read result may be served
// without touching the ledger. Kept well below the staleness threshold.
const hotResultTTL = 5 * time.Minute

// HotCache keeps recently served reputation results in Redis, in front of
// the ledger's own reputation cache. It is entirely optional: with no Redis
// configured (or a nil receiver) every operation is a no-op and reads fall
// through to the ledger.
type HotCache struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewHotCache connects to Redis. On an empty URL or connection failure it
// returns a disabled cache rather than an error.
func NewHotCache(redisURL string, log zerolog.Logger) *HotCache {
	log = log.With().Str("component", "hotcache").Logger()

	if redisURL == "" {
		log.Info().Msg("no redis URL configured, hot cache disabled")
		return &HotCache{log: log}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn().Err(err).Msg("invalid redis URL, hot cache disabled")
		return &HotCache{log: log}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis connection failed, hot cache disabled")
		return &HotCache{log: log}
	}

	log.Info().Msg("redis connected, hot cache enabled")
	return &HotCache{rdb: rdb, log: log}
}

// Client returns the underlying Redis client for health checks. May be nil.
func (h *HotCache) Client() *redis.Client {
	if h == nil {
		return nil
	}
	return h.rdb
}

// Get returns the cached result for a target, or nil on a miss.
func (h *HotCache) Get(ctx context.Context, targetID string) (*model.ReputationResult, error) {
	if h == nil || h.rdb == nil {
		return nil, nil
	}
	data, err := h.rdb.Get(ctx, reputationKey(targetID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var res model.ReputationResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Set stores a result for a target.
func (h *HotCache) Set(ctx context.Context, targetID string, res *model.ReputationResult) error {
	if h == nil || h.rdb == nil {
		return nil
	}
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return h.rdb.Set(ctx, reputationKey(targetID), b, hotResultTTL).Err()
}

// Invalidate drops a target's entry. Called on every vote write.
func (h *HotCache) Invalidate(ctx context.Context, targetID string) error {
	if h == nil || h.rdb == nil {
		return nil
	}
	return h.rdb.Del(ctx, reputationKey(targetID)).Err()
}

// Close shuts down the Redis connection.
func (h *HotCache) Close() error {
	if h == nil || h.rdb == nil {
		return nil
	}
	return h.rdb.Close()
}

func reputationKey(targetID string) string {
	return "reputation:" + targetID
}
