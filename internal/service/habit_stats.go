// Package service holds the application services that sit between the HTTP
// API and the event store: habit statistics, competition scoring and the
// competition lifecycle.
package service

import (
	"context"
	"log/slog"

	"github.com/habitleague/habitleague-server/internal/calendar"
	"github.com/habitleague/habitleague-server/internal/domain"
	domainerrors "github.com/habitleague/habitleague-server/internal/errors"
	"github.com/habitleague/habitleague-server/internal/store"
	"github.com/habitleague/habitleague-server/internal/streak"
)

// HabitStatsService derives streak statistics for single habits.
type HabitStatsService struct {
	store  store.EventStore
	clock  *Clock
	retry  RetryPolicy
	logger *slog.Logger
}

// NewHabitStatsService creates a new habit stats service.
func NewHabitStatsService(store store.EventStore, clock *Clock, retry RetryPolicy, logger *slog.Logger) *HabitStatsService {
	return &HabitStatsService{
		store:  store,
		clock:  clock,
		retry:  retry,
		logger: logger,
	}
}

// GetHabitStats returns the habit's streak statistics as of asOf, together
// with the canonical events they were derived from.
//
// A zero asOf means today. Only the habit's owner may read it; an empty
// requestingUserID skips the ownership check for internal callers.
func (s *HabitStatsService) GetHabitStats(
	ctx context.Context,
	requestingUserID string,
	habitID string,
	asOf calendar.Date,
) (*domain.HabitStats, error) {
	if asOf.IsZero() {
		asOf = s.clock.Today()
	}

	habit, err := retryValue(ctx, s.retry, func(ctx context.Context) (*domain.Habit, error) {
		return s.store.GetHabit(ctx, habitID)
	})
	if err != nil {
		return nil, mapStoreError(err)
	}

	if requestingUserID != "" && habit.OwnerID != requestingUserID {
		return nil, domainerrors.Forbidden("habit belongs to another user")
	}

	events, err := retryValue(ctx, s.retry, func(ctx context.Context) ([]domain.HabitEvent, error) {
		return s.store.GetHabitEvents(ctx, habit.OwnerID, []string{habit.ID}, calendar.Date{}, asOf)
	})
	if err != nil {
		return nil, mapStoreError(err)
	}

	// The habit's type is authoritative for how its events are judged.
	for i := range events {
		events[i].Kind = habit.Type
	}

	stats, err := streak.Compute(events, asOf)
	if err != nil {
		s.logger.Error("invalid habit data",
			"habit_id", habit.ID,
			"habit_type", habit.Type,
			"error", err,
		)
		return nil, err
	}

	s.logger.Debug("habit stats computed",
		"habit_id", habit.ID,
		"as_of", asOf.String(),
		"current_streak", stats.CurrentStreak,
		"best_streak", stats.BestStreak,
	)

	return &domain.HabitStats{
		Habit:  habit,
		Stats:  stats,
		Events: streak.Canonicalize(events),
	}, nil
}
