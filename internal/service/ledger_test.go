package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Landfall-Studios/Sentinel/internal/model"
)

// memLedger is an in-memory Ledger for tests. It counts calls per method and
// can be told to fail specific methods.
type memLedger struct {
	mu     sync.Mutex
	votes  []model.Vote
	stats  map[string]model.VoterStats
	caches map[string]model.ReputationCache
	calls  map[string]int
	fail   map[string]error
	nextID int64
}

func newMemLedger() *memLedger {
	return &memLedger{
		stats:  make(map[string]model.VoterStats),
		caches: make(map[string]model.ReputationCache),
		calls:  make(map[string]int),
		fail:   make(map[string]error),
	}
}

func (m *memLedger) count(method string) error {
	m.calls[method]++
	return m.fail[method]
}

func (m *memLedger) callCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *memLedger) addVote(voterID, targetID string, value int, comment string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.votes = append(m.votes, model.Vote{
		ID: m.nextID, VoterID: voterID, TargetID: targetID,
		Value: value, Comment: comment, VotedAt: at,
	})
}

func (m *memLedger) setStats(st model.VoterStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats[st.VoterID] = st
}

func (m *memLedger) setCache(c model.ReputationCache) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches[c.TargetID] = c
}

func (m *memLedger) VotesForTarget(_ context.Context, targetID string) ([]model.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.count("VotesForTarget"); err != nil {
		return nil, err
	}
	var out []model.Vote
	for _, v := range m.votes {
		if v.TargetID == targetID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VotedAt.After(out[j].VotedAt) })
	return out, nil
}

func (m *memLedger) VoteByVoterAndTarget(_ context.Context, voterID, targetID string) (*model.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.count("VoteByVoterAndTarget"); err != nil {
		return nil, err
	}
	for _, v := range m.votes {
		if v.VoterID == voterID && v.TargetID == targetID {
			vote := v
			return &vote, nil
		}
	}
	return nil, nil
}

func (m *memLedger) VotesByVoterSince(_ context.Context, voterID string, since time.Time) ([]model.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.count("VotesByVoterSince"); err != nil {
		return nil, err
	}
	var out []model.Vote
	for _, v := range m.votes {
		if v.VoterID == voterID && v.VotedAt.After(since) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memLedger) RecentVotes(_ context.Context, targetID string, limit int) ([]model.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.count("RecentVotes"); err != nil {
		return nil, err
	}
	var out []model.Vote
	for _, v := range m.votes {
		if v.TargetID == targetID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VotedAt.After(out[j].VotedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memLedger) UpsertVote(_ context.Context, voterID, targetID string, value int, comment string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.count("UpsertVote"); err != nil {
		return err
	}
	for i, v := range m.votes {
		if v.VoterID == voterID && v.TargetID == targetID {
			m.votes[i].Value = value
			m.votes[i].Comment = comment
			m.votes[i].VotedAt = time.Now()
			return nil
		}
	}
	m.nextID++
	m.votes = append(m.votes, model.Vote{
		ID: m.nextID, VoterID: voterID, TargetID: targetID,
		Value: value, Comment: comment, VotedAt: time.Now(),
	})
	return nil
}

func (m *memLedger) VoterStats(_ context.Context, voterID string) (*model.VoterStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.count("VoterStats"); err != nil {
		return nil, err
	}
	st, ok := m.stats[voterID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (m *memLedger) UpdateVoterStats(_ context.Context, st model.VoterStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.count("UpdateVoterStats"); err != nil {
		return err
	}
	m.stats[st.VoterID] = st
	return nil
}

func (m *memLedger) ReputationCache(_ context.Context, targetID string) (*model.ReputationCache, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.count("ReputationCache"); err != nil {
		return nil, err
	}
	c, ok := m.caches[targetID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memLedger) AllReputationScores(_ context.Context) ([]model.ReputationCache, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.count("AllReputationScores"); err != nil {
		return nil, err
	}
	out := make([]model.ReputationCache, 0, len(m.caches))
	for _, c := range m.caches {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetID < out[j].TargetID })
	return out, nil
}

func (m *memLedger) UpdateReputationCache(_ context.Context, c model.ReputationCache) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.count("UpdateReputationCache"); err != nil {
		return err
	}
	// Same monotonicity rule as the SQL upsert: never let an older
	// recomputation overwrite a newer one.
	if existing, ok := m.caches[c.TargetID]; ok && existing.LastCalculated.After(c.LastCalculated) {
		return nil
	}
	m.caches[c.TargetID] = c
	return nil
}
