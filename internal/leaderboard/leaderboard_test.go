package leaderboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitleague/habitleague-server/internal/domain"
)

var t0 = time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

func participant(userID string, score int, joinedAfter time.Duration) domain.Participant {
	return domain.Participant{
		CompetitionID: "comp-1",
		UserID:        userID,
		Score:         score,
		JoinedAt:      t0.Add(joinedAfter),
	}
}

func userIDs(entries []domain.LeaderboardEntry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.UserID
	}
	return ids
}

func TestBuild_OrdersByScoreThenJoinedAt(t *testing.T) {
	participants := []domain.Participant{
		participant("carol", 5, 2*time.Hour),
		participant("alice", 9, 3*time.Hour),
		participant("bob", 5, time.Hour),
		participant("dave", 0, 0),
	}

	entries, me := Build(participants, "carol")

	assert.Equal(t, []string{"alice", "bob", "carol", "dave"}, userIDs(entries))
	for i, e := range entries {
		assert.Equal(t, i+1, e.Rank)
	}

	require.NotNil(t, me)
	assert.Equal(t, "carol", me.UserID)
	assert.Equal(t, 3, me.Rank)
	assert.Equal(t, 5, me.Score)
	assert.True(t, entries[2].IsRequestingUser)
	assert.False(t, entries[0].IsRequestingUser)
}

func TestBuild_TieBreakIgnoresInputOrder(t *testing.T) {
	early := participant("late-name-early-join", 4, 0)
	late := participant("a-early-name-late-join", 4, time.Minute)

	forward, _ := Build([]domain.Participant{early, late}, "")
	reverse, _ := Build([]domain.Participant{late, early}, "")

	assert.Equal(t, userIDs(forward), userIDs(reverse))
	assert.Equal(t, "late-name-early-join", forward[0].UserID)
}

func TestBuild_IdenticalJoinTimeFallsBackToUserID(t *testing.T) {
	entries, _ := Build([]domain.Participant{
		participant("zed", 1, 0),
		participant("amy", 1, 0),
	}, "")

	assert.Equal(t, []string{"amy", "zed"}, userIDs(entries))
}

func TestBuild_TiesGetDistinctRanks(t *testing.T) {
	entries, _ := Build([]domain.Participant{
		participant("a", 3, 0),
		participant("b", 3, time.Second),
		participant("c", 3, 2*time.Second),
	}, "")

	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, 3, entries[2].Rank)
}

func TestBuild_RequestingUserAbsent(t *testing.T) {
	entries, me := Build([]domain.Participant{participant("alice", 1, 0)}, "mallory")

	assert.Nil(t, me)
	assert.Len(t, entries, 1)
	assert.False(t, entries[0].IsRequestingUser)
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	participants := []domain.Participant{
		participant("low", 1, 0),
		participant("high", 2, 0),
	}

	_, _ = Build(participants, "")
	assert.Equal(t, "low", participants[0].UserID)
}

func TestBuild_Empty(t *testing.T) {
	entries, me := Build(nil, "alice")
	assert.Empty(t, entries)
	assert.Nil(t, me)
}
