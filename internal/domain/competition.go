package domain

import (
	"time"

	"github.com/habitleague/habitleague-server/internal/calendar"
)

// GoalType selects the scoring formula for a competition.
type GoalType string

// GoalType constants.
const (
	// GoalMaxPerDay scores the most successes achieved on any single day.
	GoalMaxPerDay GoalType = "MAX_PER_DAY"
	// GoalMaxStreak scores the longest run of consecutive days with at least one success.
	GoalMaxStreak GoalType = "MAX_STREAK"
	// GoalTotalCompleted scores the number of successes in the window.
	GoalTotalCompleted GoalType = "TOTAL_COMPLETED"
)

// Valid returns true if the goal type is a recognized value.
func (g GoalType) Valid() bool {
	switch g {
	case GoalMaxPerDay, GoalMaxStreak, GoalTotalCompleted:
		return true
	default:
		return false
	}
}

// CompetitionStatus is the lifecycle state of a competition.
type CompetitionStatus string

// CompetitionStatus constants.
const (
	CompetitionActive    CompetitionStatus = "active"
	CompetitionFinalized CompetitionStatus = "finalized"
	CompetitionCancelled CompetitionStatus = "cancelled"
)

// Valid returns true if the status is a recognized value.
func (s CompetitionStatus) Valid() bool {
	switch s {
	case CompetitionActive, CompetitionFinalized, CompetitionCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether moving from s to next is allowed.
// active -> finalized, active -> cancelled and finalized -> cancelled are the
// only transitions; nothing ever returns to active.
func (s CompetitionStatus) CanTransitionTo(next CompetitionStatus) bool {
	switch s {
	case CompetitionActive:
		return next == CompetitionFinalized || next == CompetitionCancelled
	case CompetitionFinalized:
		return next == CompetitionCancelled
	default:
		return false
	}
}

// Competition is a time-boxed contest scored by GoalType over [StartDate, EndDate].
type Competition struct {
	ID          string            `json:"id" validate:"required"`
	CreatorID   string            `json:"creator_id" validate:"required"`
	Name        string            `json:"name" validate:"required,max=255"`
	Description string            `json:"description,omitempty"`
	GoalType    GoalType          `json:"goal_type" validate:"required,oneof=MAX_PER_DAY MAX_STREAK TOTAL_COMPLETED"`
	StartDate   calendar.Date     `json:"start_date" validate:"required"`
	EndDate     calendar.Date     `json:"end_date" validate:"required"`
	Status      CompetitionStatus `json:"status" validate:"required,oneof=active finalized cancelled"`
	CreatedAt   time.Time         `json:"created_at"`
}

// HasStarted reports whether the competition window has opened by today.
func (c *Competition) HasStarted(today calendar.Date) bool {
	return !today.Before(c.StartDate)
}

// HasEnded reports whether today is strictly past the competition's end date.
func (c *Competition) HasEnded(today calendar.Date) bool {
	return today.After(c.EndDate)
}

// Participant is a user's membership in a competition.
// Score is written only by the scoring engine.
type Participant struct {
	CompetitionID  string    `json:"competition_id"`
	UserID         string    `json:"user_id"`
	Score          int       `json:"score"`
	JoinedAt       time.Time `json:"joined_at"`
	ScoreUpdatedAt time.Time `json:"score_updated_at,omitzero"`
}
