package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/habitleague/habitleague-server/internal/domain"
	domainerrors "github.com/habitleague/habitleague-server/internal/errors"
	"github.com/habitleague/habitleague-server/internal/id"
	"github.com/habitleague/habitleague-server/internal/store"
	"github.com/habitleague/habitleague-server/internal/validation"
)

// CatalogService writes habits, events, competitions and memberships.
// It backs the seed tool and tests; production data arrives from the
// data-entry layer through the same store.
type CatalogService struct {
	store     store.EventStore
	validator *validation.Validator
	clock     *Clock
	logger    *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(store store.EventStore, validator *validation.Validator, clock *Clock, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		store:     store,
		validator: validator,
		clock:     clock,
		logger:    logger,
	}
}

// CreateHabit validates and stores h, assigning an ID when it has none.
func (s *CatalogService) CreateHabit(ctx context.Context, h *domain.Habit) error {
	if err := assignID(&h.ID, id.PrefixHabit); err != nil {
		return err
	}
	if err := s.validator.Validate(h); err != nil {
		return err
	}
	if err := s.store.CreateHabit(ctx, h); err != nil {
		return mapStoreError(err)
	}

	s.logger.Debug("habit created", "habit_id", h.ID, "owner_id", h.OwnerID, "type", h.Type)
	return nil
}

// RecordEvent stores e for one of userID's habits, replacing any earlier
// event for the same day. An empty userID skips the ownership check.
func (s *CatalogService) RecordEvent(ctx context.Context, userID string, e *domain.HabitEvent) error {
	if err := assignID(&e.ID, id.PrefixEvent); err != nil {
		return err
	}
	if err := s.validator.Validate(e); err != nil {
		return err
	}

	habit, err := s.store.GetHabit(ctx, e.HabitID)
	if err != nil {
		return mapStoreError(err)
	}
	if userID != "" && habit.OwnerID != userID {
		return domainerrors.Forbidden("habit belongs to another user")
	}

	e.Kind = habit.Type
	if e.RecordedAt.IsZero() {
		e.RecordedAt = s.clock.Now()
	}
	if err := s.store.RecordHabitEvent(ctx, e); err != nil {
		return mapStoreError(err)
	}
	return nil
}

// CreateCompetition validates and stores c as active, assigning an ID when it has none.
func (s *CatalogService) CreateCompetition(ctx context.Context, c *domain.Competition) error {
	if err := assignID(&c.ID, id.PrefixCompetition); err != nil {
		return err
	}
	if c.Status == "" {
		c.Status = domain.CompetitionActive
	}
	if err := s.validator.Validate(c); err != nil {
		return err
	}
	if err := s.store.CreateCompetition(ctx, c); err != nil {
		return mapStoreError(err)
	}

	s.logger.Info("competition created",
		"competition_id", c.ID,
		"goal_type", c.GoalType,
		"start_date", c.StartDate.String(),
		"end_date", c.EndDate.String(),
	)
	return nil
}

// JoinCompetition adds userID to an active competition with a score of 0.
func (s *CatalogService) JoinCompetition(ctx context.Context, competitionID, userID string) (*domain.Participant, error) {
	if userID == "" {
		return nil, domainerrors.Validation("user ID is required")
	}

	c, err := s.store.GetCompetition(ctx, competitionID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if c.Status != domain.CompetitionActive {
		return nil, domainerrors.Validationf("competition %s is %s", c.ID, c.Status)
	}

	p := &domain.Participant{
		CompetitionID: c.ID,
		UserID:        userID,
		JoinedAt:      s.clock.Now(),
	}
	if err := s.store.AddParticipant(ctx, p); err != nil {
		return nil, mapStoreError(err)
	}
	return p, nil
}

func assignID(dst *string, prefix string) error {
	if *dst != "" {
		return nil
	}
	generated, err := id.Generate(prefix)
	if err != nil {
		return fmt.Errorf("assign %s id: %w", prefix, err)
	}
	*dst = generated
	return nil
}
