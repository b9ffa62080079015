package model

import "time"

// ReputationCache is the memoized scoring result for one target. One row per
// target that has received at least one vote; overwritten on recomputation.
// LastCalculated is monotonically non-decreasing.
type ReputationCache struct {
	TargetID       string    `json:"targetId"`
	RawScore       float64   `json:"rawScore"`
	DisplayScore   int       `json:"displayScore"`
	LastCalculated time.Time `json:"lastCalculated"`
	TotalVotes     int       `json:"totalVotes"`
	PercentileRank float64   `json:"percentileRank"`
}

// ReputationResult is what a reputation read returns: the cache entry, the
// most recent votes for display, and whether the entry was served from cache.
type ReputationResult struct {
	Cache       ReputationCache `json:"cache"`
	RecentVotes []Vote          `json:"recentVotes"`
	FromCache   bool            `json:"fromCache"`
}

// CommunityStats is the API response for aggregate community figures.
type CommunityStats struct {
	TotalTargets int               `json:"totalTargets"`
	TotalVotes   int               `json:"totalVotes"`
	TotalVoters  int               `json:"totalVoters"`
	TopScores    []ReputationCache `json:"topScores"`
}
