package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/habitleague/habitleague-server/internal/domain"
	domainerrors "github.com/habitleague/habitleague-server/internal/errors"
	"github.com/habitleague/habitleague-server/internal/leaderboard"
	"github.com/habitleague/habitleague-server/internal/scoring"
	"github.com/habitleague/habitleague-server/internal/store"
)

// CompetitionService recomputes participant scores and serves leaderboards.
type CompetitionService struct {
	store   store.EventStore
	retry   RetryPolicy
	workers int
	logger  *slog.Logger
}

// NewCompetitionService creates a new competition service.
// workers bounds how many participants of one competition are scored at once.
func NewCompetitionService(store store.EventStore, retry RetryPolicy, workers int, logger *slog.Logger) *CompetitionService {
	return &CompetitionService{
		store:   store,
		retry:   retry,
		workers: max(workers, 1),
		logger:  logger,
	}
}

// RecomputeCompetition rescores every participant of c over its window and
// writes the scores that changed.
//
// The first participant failure cancels the rest; the returned result still
// counts the writes that happened before it.
func (s *CompetitionService) RecomputeCompetition(ctx context.Context, c *domain.Competition) (domain.RecomputeResult, error) {
	result := domain.RecomputeResult{CompetitionID: c.ID}

	if !c.GoalType.Valid() {
		err := domainerrors.InvalidGoalTypef("competition %s has unknown goal type %q", c.ID, c.GoalType)
		s.logger.Error("invalid competition data", "competition_id", c.ID, "error", err)
		return result, err
	}

	participants, err := retryValue(ctx, s.retry, func(ctx context.Context) ([]domain.Participant, error) {
		return s.store.GetParticipants(ctx, c.ID)
	})
	if err != nil {
		return result, mapStoreError(err)
	}
	result.Participants = len(participants)

	var updated atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, p := range participants {
		g.Go(func() error {
			changed, err := s.recomputeParticipant(gctx, c, p)
			if err != nil {
				return fmt.Errorf("participant %s: %w", p.UserID, err)
			}
			if changed {
				updated.Add(1)
			}
			return nil
		})
	}

	err = g.Wait()
	result.ParticipantsUpdated = int(updated.Load())
	if err != nil {
		return result, err
	}

	s.logger.Debug("competition recomputed",
		"competition_id", c.ID,
		"participants", result.Participants,
		"participants_updated", result.ParticipantsUpdated,
	)
	return result, nil
}

// recomputeParticipant scores one participant and reports whether a write happened.
func (s *CompetitionService) recomputeParticipant(ctx context.Context, c *domain.Competition, p domain.Participant) (bool, error) {
	habits, err := retryValue(ctx, s.retry, func(ctx context.Context) ([]*domain.Habit, error) {
		return s.store.GetParticipantHabits(ctx, p.UserID)
	})
	if err != nil {
		return false, mapStoreError(err)
	}

	var events []domain.HabitEvent
	if len(habits) > 0 {
		types := make(map[string]domain.HabitType, len(habits))
		ids := make([]string, 0, len(habits))
		for _, h := range habits {
			types[h.ID] = h.Type
			ids = append(ids, h.ID)
		}

		raw, err := retryValue(ctx, s.retry, func(ctx context.Context) ([]domain.HabitEvent, error) {
			return s.store.GetHabitEvents(ctx, p.UserID, ids, c.StartDate, c.EndDate)
		})
		if err != nil {
			return false, mapStoreError(err)
		}

		events = make([]domain.HabitEvent, 0, len(raw))
		for _, e := range raw {
			t, ok := types[e.HabitID]
			if !ok {
				continue
			}
			e.Kind = t
			events = append(events, e)
		}
	}

	score, err := scoring.Score(c.GoalType, events, c.StartDate, c.EndDate)
	if err != nil {
		s.logger.Error("invalid habit data",
			"competition_id", c.ID,
			"user_id", p.UserID,
			"error", err,
		)
		return false, err
	}

	if score == p.Score {
		s.logger.Debug("score unchanged, skipping write",
			"competition_id", c.ID,
			"user_id", p.UserID,
			"score", score,
		)
		return false, nil
	}

	err = s.retry.Do(ctx, func(ctx context.Context) error {
		return s.store.WriteParticipantScore(ctx, c.ID, p.UserID, score)
	})
	if err != nil {
		return false, mapStoreError(err)
	}

	s.logger.Debug("score updated",
		"competition_id", c.ID,
		"user_id", p.UserID,
		"old_score", p.Score,
		"new_score", score,
	)
	return true, nil
}

// GetLeaderboard returns the ranked participants of a competition as seen by
// requestingUserID.
//
// Scores are refreshed first when RecomputeDue says so. A failed refresh does
// not fail the read: the stored scores are returned with Stale set.
func (s *CompetitionService) GetLeaderboard(
	ctx context.Context,
	competitionID string,
	requestingUserID string,
	force bool,
) (*domain.Leaderboard, error) {
	c, err := s.getCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}

	lb := &domain.Leaderboard{Competition: c}

	if RecomputeDue(c, force) {
		result, err := s.RecomputeCompetition(ctx, c)
		if err != nil {
			s.logger.Warn("leaderboard recompute failed, serving stored scores",
				"competition_id", c.ID,
				"error", err,
			)
			lb.Stale = true
		} else {
			lb.Recomputed = true
		}
		lb.ParticipantsUpdated = result.ParticipantsUpdated
	}

	participants, err := retryValue(ctx, s.retry, func(ctx context.Context) ([]domain.Participant, error) {
		return s.store.GetParticipants(ctx, c.ID)
	})
	if err != nil {
		return nil, mapStoreError(err)
	}

	lb.Entries, lb.Me = leaderboard.Build(participants, requestingUserID)
	lb.LastUpdated = lastUpdated(participants)

	return lb, nil
}

// ForceRecompute rescores a competition regardless of its status.
func (s *CompetitionService) ForceRecompute(ctx context.Context, competitionID string) (domain.RecomputeResult, error) {
	c, err := s.getCompetition(ctx, competitionID)
	if err != nil {
		return domain.RecomputeResult{CompetitionID: competitionID}, err
	}

	result, err := s.RecomputeCompetition(ctx, c)
	if err != nil {
		return result, err
	}

	s.logger.Info("competition recompute forced",
		"competition_id", c.ID,
		"status", c.Status,
		"participants_updated", result.ParticipantsUpdated,
	)
	return result, nil
}

func (s *CompetitionService) getCompetition(ctx context.Context, id string) (*domain.Competition, error) {
	c, err := retryValue(ctx, s.retry, func(ctx context.Context) (*domain.Competition, error) {
		return s.store.GetCompetition(ctx, id)
	})
	if err != nil {
		return nil, mapStoreError(err)
	}
	return c, nil
}

// lastUpdated is the most recent score write among participants.
func lastUpdated(participants []domain.Participant) time.Time {
	var latest time.Time
	for _, p := range participants {
		if p.ScoreUpdatedAt.After(latest) {
			latest = p.ScoreUpdatedAt
		}
	}
	return latest
}
