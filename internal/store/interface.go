// Package store defines the persistence contract for the HabitLeague server
// and its Badger implementation.
package store

import (
	"context"

	"github.com/habitleague/habitleague-server/internal/calendar"
	"github.com/habitleague/habitleague-server/internal/domain"
)

// EventStore is everything the streak and competition engines read and write.
//
// Implementations must make WriteParticipantScore and SetCompetitionStatus
// atomic single-row writes. Transient failures are reported as ErrUnavailable.
type EventStore interface {
	// Lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Habits and events
	CreateHabit(ctx context.Context, habit *domain.Habit) error
	GetHabit(ctx context.Context, id string) (*domain.Habit, error)
	GetParticipantHabits(ctx context.Context, userID string) ([]*domain.Habit, error)
	// RecordHabitEvent upserts the event for (habit, date); the latest write wins.
	RecordHabitEvent(ctx context.Context, event *domain.HabitEvent) error
	// GetHabitEvents returns the events of userID's habits in habitIDs dated
	// within [from, to], ascending by date then habit. Zero bounds are open.
	// Habits not owned by userID are ignored.
	GetHabitEvents(ctx context.Context, userID string, habitIDs []string, from, to calendar.Date) ([]domain.HabitEvent, error)

	// Competitions
	CreateCompetition(ctx context.Context, c *domain.Competition) error
	GetCompetition(ctx context.Context, id string) (*domain.Competition, error)
	ListActiveCompetitions(ctx context.Context) ([]*domain.Competition, error)
	// ListActiveCompetitionsPastEndDate returns active competitions whose end
	// date is strictly before today.
	ListActiveCompetitionsPastEndDate(ctx context.Context, today calendar.Date) ([]*domain.Competition, error)
	// SetCompetitionStatus moves a competition to status. Setting the current
	// status is a no-op; a backwards move returns ErrInvalidTransition.
	SetCompetitionStatus(ctx context.Context, competitionID string, status domain.CompetitionStatus) error

	// Participants
	AddParticipant(ctx context.Context, p *domain.Participant) error
	GetParticipants(ctx context.Context, competitionID string) ([]domain.Participant, error)
	WriteParticipantScore(ctx context.Context, competitionID, userID string, score int) error
}
