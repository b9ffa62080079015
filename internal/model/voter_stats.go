package model

import "time"

// VoterStats holds the per-voter credibility inputs consumed by the weight
// pipeline. Created on a voter's first vote, mutated on every subsequent vote
// and by the consensus tracker, never deleted.
type VoterStats struct {
	VoterID                string     `json:"voterId"`
	AccountCreatedAt       time.Time  `json:"accountCreatedAt"`
	TotalVotesCast         int        `json:"totalVotesCast"`
	PositiveVotesCast      int        `json:"positiveVotesCast"`
	NegativeVotesCast      int        `json:"negativeVotesCast"`
	VotesLast24h           int        `json:"votesLast24h"`
	LastVoteAt             *time.Time `json:"lastVoteAt,omitempty"`
	ConsensusAgreements    int        `json:"consensusAgreements"`
	ConsensusDisagreements int        `json:"consensusDisagreements"`
	// CredibilityScore is stored but not read by the pipeline today.
	CredibilityScore float64 `json:"-"`
}

// ConsensusChecks returns the total number of recorded consensus comparisons.
func (s *VoterStats) ConsensusChecks() int {
	return s.ConsensusAgreements + s.ConsensusDisagreements
}

// VoterStatsResponse is the API view of a voter's credibility inputs.
type VoterStatsResponse struct {
	VoterID                string  `json:"voterId"`
	AccountAgeDays         int     `json:"accountAgeDays"`
	TotalVotesCast         int     `json:"totalVotesCast"`
	PositiveVotesCast      int     `json:"positiveVotesCast"`
	NegativeVotesCast      int     `json:"negativeVotesCast"`
	VotesLast24h           int     `json:"votesLast24h"`
	ConsensusAgreements    int     `json:"consensusAgreements"`
	ConsensusDisagreements int     `json:"consensusDisagreements"`
	AgreementRate          float64 `json:"agreementRate"`
}
