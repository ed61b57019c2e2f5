// Package leaderboard ranks competition participants.
package leaderboard

import (
	"cmp"
	"slices"

	"github.com/habitleague/habitleague-server/internal/domain"
)

// Build orders participants by score descending, then joined_at ascending,
// then user ID, and assigns ranks 1..n in that order. Equal scores never
// share a rank.
//
// The second return value is the requesting user's entry, or nil when they
// are not among the participants.
func Build(participants []domain.Participant, requestingUserID string) ([]domain.LeaderboardEntry, *domain.LeaderboardEntry) {
	sorted := slices.Clone(participants)
	slices.SortStableFunc(sorted, compare)

	entries := make([]domain.LeaderboardEntry, len(sorted))
	var me *domain.LeaderboardEntry
	for i, p := range sorted {
		entries[i] = domain.LeaderboardEntry{
			Rank:             i + 1,
			UserID:           p.UserID,
			Score:            p.Score,
			JoinedAt:         p.JoinedAt,
			IsRequestingUser: requestingUserID != "" && p.UserID == requestingUserID,
		}
		if entries[i].IsRequestingUser {
			entry := entries[i]
			me = &entry
		}
	}
	return entries, me
}

func compare(a, b domain.Participant) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.UserID, b.UserID)
}
