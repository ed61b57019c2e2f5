package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitleague/habitleague-server/internal/calendar"
	"github.com/habitleague/habitleague-server/internal/domain"
)

func TestRecomputeDue(t *testing.T) {
	tests := []struct {
		status domain.CompetitionStatus
		force  bool
		want   bool
	}{
		{domain.CompetitionActive, false, true},
		{domain.CompetitionActive, true, true},
		{domain.CompetitionFinalized, false, false},
		{domain.CompetitionFinalized, true, true},
		{domain.CompetitionCancelled, false, false},
		{domain.CompetitionCancelled, true, true},
	}

	for _, tt := range tests {
		c := &domain.Competition{Status: tt.status}
		assert.Equal(t, tt.want, RecomputeDue(c, tt.force), "status=%s force=%v", tt.status, tt.force)
	}
}

func TestSweepAndFinalize_IsOneWay(t *testing.T) {
	svc := setupTestServices(t)
	ctx := context.Background()

	createTestCompetition(t, svc.db, "comp-1", domain.GoalTotalCompleted, "2024-02-01", "2024-03-01")

	n, err := svc.lifecycle.SweepAndFinalize(ctx, calendar.MustParse("2024-03-01"))
	require.NoError(t, err)
	assert.Equal(t, 0, n, "end date itself is still active")

	n, err = svc.lifecycle.SweepAndFinalize(ctx, calendar.MustParse("2024-03-02"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	c, err := svc.db.GetCompetition(ctx, "comp-1")
	require.NoError(t, err)
	assert.Equal(t, domain.CompetitionFinalized, c.Status)

	n, err = svc.lifecycle.SweepAndFinalize(ctx, calendar.MustParse("2024-03-10"))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	c, err = svc.db.GetCompetition(ctx, "comp-1")
	require.NoError(t, err)
	assert.Equal(t, domain.CompetitionFinalized, c.Status)
}

func TestSweepAndFinalize_LeavesCancelledAndScoresAlone(t *testing.T) {
	svc := setupTestServices(t)
	ctx := context.Background()

	createTestCompetition(t, svc.db, "comp-cancelled", domain.GoalTotalCompleted, "2024-01-01", "2024-01-31")
	require.NoError(t, svc.db.SetCompetitionStatus(ctx, "comp-cancelled", domain.CompetitionCancelled))

	createTestCompetition(t, svc.db, "comp-ended", domain.GoalTotalCompleted, "2024-01-01", "2024-01-31")
	createTestHabit(t, svc.db, "habit-1", "alice", domain.HabitTypeYesNo)
	recordTestEvent(t, svc.db, "habit-1", "2024-01-10", true)
	joinTestCompetition(t, svc.db, "comp-ended", "alice", joinBase)

	n, err := svc.lifecycle.SweepAndFinalize(ctx, calendar.MustParse("2024-03-02"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	c, err := svc.db.GetCompetition(ctx, "comp-cancelled")
	require.NoError(t, err)
	assert.Equal(t, domain.CompetitionCancelled, c.Status)

	// Finalization does not score.
	assert.Equal(t, 0, scores(t, svc, "comp-ended")["alice"])
}

func TestRunScheduledSweep(t *testing.T) {
	svc := setupTestServices(t)
	ctx := context.Background()

	// testNow is 2024-03-02.
	createTestCompetition(t, svc.db, "comp-expired", domain.GoalTotalCompleted, "2024-02-01", "2024-03-01")
	createTestCompetition(t, svc.db, "comp-running", domain.GoalTotalCompleted, "2024-02-15", "2024-03-31")
	createTestCompetition(t, svc.db, "comp-future", domain.GoalTotalCompleted, "2024-04-01", "2024-04-30")

	createTestHabit(t, svc.db, "habit-1", "alice", domain.HabitTypeYesNo)
	recordTestEvent(t, svc.db, "habit-1", "2024-02-20", true)
	recordTestEvent(t, svc.db, "habit-1", "2024-03-01", true)
	for _, id := range []string{"comp-expired", "comp-running", "comp-future"} {
		joinTestCompetition(t, svc.db, id, "alice", joinBase)
	}

	report, err := svc.lifecycle.RunScheduledSweep(ctx, testNow)
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, testNow, report.StartedAt)
	assert.Equal(t, 1, report.CompetitionsFinalized)
	assert.Equal(t, 1, report.CompetitionsRecomputed)
	assert.Equal(t, 1, report.CompetitionsSkipped)
	assert.Empty(t, report.CompetitionsFailed)
	assert.Equal(t, 1, report.ParticipantsUpdated)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "comp-running", report.Results[0].CompetitionID)

	assert.Equal(t, 2, scores(t, svc, "comp-running")["alice"])
	assert.Equal(t, 0, scores(t, svc, "comp-expired")["alice"], "finalized competitions are not rescored")
	assert.Equal(t, 0, scores(t, svc, "comp-future")["alice"])

	// A second pass finds nothing new to write.
	again, err := svc.lifecycle.RunScheduledSweep(ctx, testNow)
	require.NoError(t, err)
	assert.NotEqual(t, report.RunID, again.RunID)
	assert.Equal(t, 0, again.CompetitionsFinalized)
	assert.Equal(t, 1, again.CompetitionsRecomputed)
	assert.Equal(t, 0, again.ParticipantsUpdated)
}

func TestRunScheduledSweep_PartialFailure(t *testing.T) {
	svc, faulty := setupFaultyServices(t)
	ctx := context.Background()

	createTestCompetition(t, svc.db, "comp-a", domain.GoalTotalCompleted, "2024-02-01", "2024-03-31")
	createTestCompetition(t, svc.db, "comp-slow", domain.GoalTotalCompleted, "2024-02-01", "2024-03-31")
	createTestHabit(t, svc.db, "habit-1", "alice", domain.HabitTypeYesNo)
	recordTestEvent(t, svc.db, "habit-1", "2024-03-01", true)
	joinTestCompetition(t, svc.db, "comp-a", "alice", joinBase)
	joinTestCompetition(t, svc.db, "comp-slow", "alice", joinBase)

	faulty.blockParticipants["comp-slow"] = true
	svc.lifecycle.opts.CompetitionTimeout = 50 * time.Millisecond

	report, err := svc.lifecycle.RunScheduledSweep(ctx, testNow)
	require.NoError(t, err)

	assert.Equal(t, 1, report.CompetitionsRecomputed)
	require.Equal(t, 1, report.Failed())
	assert.Equal(t, "comp-slow", report.CompetitionsFailed[0].CompetitionID)
	assert.Contains(t, report.CompetitionsFailed[0].Error, "deadline exceeded")

	assert.Equal(t, 1, scores(t, svc, "comp-a")["alice"])
}

func TestListActive(t *testing.T) {
	svc := setupTestServices(t)
	ctx := context.Background()

	createTestCompetition(t, svc.db, "comp-running", domain.GoalTotalCompleted, "2024-02-15", "2024-03-31")
	createTestCompetition(t, svc.db, "comp-future", domain.GoalTotalCompleted, "2024-04-01", "2024-04-30")
	createTestCompetition(t, svc.db, "comp-done", domain.GoalTotalCompleted, "2024-01-01", "2024-01-31")
	require.NoError(t, svc.db.SetCompetitionStatus(ctx, "comp-done", domain.CompetitionFinalized))

	joinTestCompetition(t, svc.db, "comp-running", "alice", joinBase)
	joinTestCompetition(t, svc.db, "comp-running", "bob", joinBase)

	active, err := svc.lifecycle.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)

	assert.Equal(t, "comp-running", active[0].Competition.ID)
	assert.Equal(t, 2, active[0].Participants)
	assert.True(t, active[0].Started)
	assert.False(t, active[0].Ended)

	assert.Equal(t, "comp-future", active[1].Competition.ID)
	assert.Equal(t, 0, active[1].Participants)
	assert.False(t, active[1].Started)
}
