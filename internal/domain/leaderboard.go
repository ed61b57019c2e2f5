package domain

import "time"

// LeaderboardEntry is one ranked participant. Derived, never persisted.
type LeaderboardEntry struct {
	Rank             int       `json:"rank"`
	UserID           string    `json:"user_id"`
	Score            int       `json:"score"`
	JoinedAt         time.Time `json:"joined_at"`
	IsRequestingUser bool      `json:"is_requesting_user"`
}

// Leaderboard is the ranked view of a competition as seen by one user.
type Leaderboard struct {
	Competition *Competition
	Entries     []LeaderboardEntry

	// Me is the requesting user's entry, nil when they are not a participant.
	Me *LeaderboardEntry

	// Stale is set when a due recompute failed and Entries reflect the last stored scores.
	Stale bool

	// Recomputed reports whether scores were refreshed for this read.
	Recomputed          bool
	ParticipantsUpdated int
	LastUpdated         time.Time
}
