package store

import (
	"cmp"
	"context"
	"slices"

	"github.com/habitleague/habitleague-server/internal/calendar"
	"github.com/habitleague/habitleague-server/internal/domain"
)

// CreateCompetition stores a new competition. An empty status defaults to active.
func (s *Store) CreateCompetition(ctx context.Context, c *domain.Competition) error {
	if c.Status == "" {
		c.Status = domain.CompetitionActive
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	return s.competitions.Create(ctx, c.ID, c)
}

// GetCompetition retrieves a competition by ID.
func (s *Store) GetCompetition(ctx context.Context, id string) (*domain.Competition, error) {
	return s.competitions.Get(ctx, id)
}

// ListActiveCompetitions returns all active competitions ordered by end date.
func (s *Store) ListActiveCompetitions(ctx context.Context) ([]*domain.Competition, error) {
	comps, err := s.competitions.ListByIndex(ctx, "status", string(domain.CompetitionActive))
	if err != nil {
		return nil, err
	}
	slices.SortFunc(comps, func(a, b *domain.Competition) int {
		if c := a.EndDate.Compare(b.EndDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return comps, nil
}

// ListActiveCompetitionsPastEndDate returns active competitions with end_date < today.
func (s *Store) ListActiveCompetitionsPastEndDate(ctx context.Context, today calendar.Date) ([]*domain.Competition, error) {
	active, err := s.ListActiveCompetitions(ctx)
	if err != nil {
		return nil, err
	}

	var expired []*domain.Competition
	for _, c := range active {
		if c.HasEnded(today) {
			expired = append(expired, c)
		}
	}
	return expired, nil
}

// SetCompetitionStatus moves a competition forward in its lifecycle.
func (s *Store) SetCompetitionStatus(ctx context.Context, competitionID string, status domain.CompetitionStatus) error {
	return s.competitions.Update(ctx, competitionID, func(c *domain.Competition) (bool, error) {
		if c.Status == status {
			return false, nil
		}
		if !c.Status.CanTransitionTo(status) {
			return false, ErrInvalidTransition.WithMessage("cannot move competition from " + string(c.Status) + " to " + string(status))
		}
		c.Status = status
		return true, nil
	})
}
