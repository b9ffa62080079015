package model

import "time"

// Vote is a single live vote from one member about another. At most one vote
// exists per (voter, target) pair; a resubmission after the cooldown replaces
// the previous one in place.
type Vote struct {
	ID       int64     `json:"id"`
	VoterID  string    `json:"voterId"`
	TargetID string    `json:"targetId"`
	Value    int       `json:"value"`
	Comment  string    `json:"comment,omitempty"`
	VotedAt  time.Time `json:"votedAt"`
}

// VoteRequest is the API request body for submitting a vote.
type VoteRequest struct {
	VoterID  string `json:"voterId"`
	TargetID string `json:"targetId"`
	Value    int    `json:"value"`
	Comment  string `json:"comment,omitempty"`
}

// VoteResult is the outcome of a vote submission. Rejections carry a
// human-readable reason; they are values, never errors.
type VoteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
