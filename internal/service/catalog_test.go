package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitleague/habitleague-server/internal/calendar"
	"github.com/habitleague/habitleague-server/internal/domain"
	domainerrors "github.com/habitleague/habitleague-server/internal/errors"
)

func TestCatalog_CreateHabit(t *testing.T) {
	svc := setupTestServices(t)
	ctx := context.Background()

	h := &domain.Habit{OwnerID: "alice", Name: "Run", Type: domain.HabitTypeMeasurable, TargetValue: domain.Float(5)}
	require.NoError(t, svc.catalog.CreateHabit(ctx, h))
	assert.True(t, strings.HasPrefix(h.ID, "habit-"))

	got, err := svc.db.GetHabit(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, "Run", got.Name)

	bad := &domain.Habit{OwnerID: "alice", Name: "Nap", Type: "SOMETIMES"}
	err = svc.catalog.CreateHabit(ctx, bad)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
}

func TestCatalog_RecordEvent(t *testing.T) {
	svc := setupTestServices(t)
	ctx := context.Background()

	createTestHabit(t, svc.db, "habit-1", "alice", domain.HabitTypeBad)

	e := &domain.HabitEvent{HabitID: "habit-1", Date: calendar.MustParse("2024-03-01"), BooleanValue: domain.Bool(false)}
	require.NoError(t, svc.catalog.RecordEvent(ctx, "alice", e))
	assert.True(t, strings.HasPrefix(e.ID, "evt-"))
	assert.Equal(t, domain.HabitTypeBad, e.Kind)
	assert.Equal(t, testNow, e.RecordedAt)

	err := svc.catalog.RecordEvent(ctx, "bob", &domain.HabitEvent{HabitID: "habit-1", Date: calendar.MustParse("2024-03-02")})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrForbidden))

	err = svc.catalog.RecordEvent(ctx, "alice", &domain.HabitEvent{HabitID: "missing", Date: calendar.MustParse("2024-03-02")})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

	err = svc.catalog.RecordEvent(ctx, "alice", &domain.HabitEvent{HabitID: "habit-1"})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
}

func TestCatalog_CreateCompetition(t *testing.T) {
	svc := setupTestServices(t)
	ctx := context.Background()

	c := &domain.Competition{
		CreatorID: "alice",
		Name:      "March",
		GoalType:  domain.GoalMaxStreak,
		StartDate: calendar.MustParse("2024-03-01"),
		EndDate:   calendar.MustParse("2024-03-31"),
	}
	require.NoError(t, svc.catalog.CreateCompetition(ctx, c))
	assert.True(t, strings.HasPrefix(c.ID, "comp-"))
	assert.Equal(t, domain.CompetitionActive, c.Status)

	backwards := *c
	backwards.ID = ""
	backwards.EndDate = calendar.MustParse("2024-02-01")
	err := svc.catalog.CreateCompetition(ctx, &backwards)
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
}

func TestCatalog_JoinCompetition(t *testing.T) {
	svc := setupTestServices(t)
	ctx := context.Background()

	createTestCompetition(t, svc.db, "comp-1", domain.GoalTotalCompleted, "2024-03-01", "2024-03-31")

	p, err := svc.catalog.JoinCompetition(ctx, "comp-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Score)
	assert.Equal(t, testNow, p.JoinedAt)

	_, err = svc.catalog.JoinCompetition(ctx, "comp-1", "alice")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrConflict))

	_, err = svc.catalog.JoinCompetition(ctx, "missing", "alice")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

	require.NoError(t, svc.db.SetCompetitionStatus(ctx, "comp-1", domain.CompetitionFinalized))
	_, err = svc.catalog.JoinCompetition(ctx, "comp-1", "bob")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
}
