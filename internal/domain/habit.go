// Package domain contains the core data types shared by the engines, stores and API.
package domain

import (
	"time"

	"github.com/habitleague/habitleague-server/internal/calendar"
)

// HabitType determines how a habit's events are judged.
// The set is closed; every switch over it must be exhaustive.
type HabitType string

// HabitType constants.
const (
	HabitTypeYesNo      HabitType = "YES_NO"
	HabitTypeMeasurable HabitType = "MEASURABLE_NUMERIC"
	HabitTypeBad        HabitType = "BAD_HABIT"
)

// Valid returns true if the habit type is a recognized value.
func (t HabitType) Valid() bool {
	switch t {
	case HabitTypeYesNo, HabitTypeMeasurable, HabitTypeBad:
		return true
	default:
		return false
	}
}

// Habit is a user's tracked habit. Owned by the data-entry layer; read-only here.
type Habit struct {
	ID      string    `json:"id" validate:"required"`
	OwnerID string    `json:"owner_id" validate:"required"`
	Name    string    `json:"name" validate:"required,max=255"`
	Type    HabitType `json:"type" validate:"required,oneof=YES_NO MEASURABLE_NUMERIC BAD_HABIT"`

	// TargetValue is informational only; it does not gate success.
	TargetValue *float64 `json:"target_value,omitempty" validate:"omitempty,gt=0"`

	CreatedAt time.Time `json:"created_at"`
}

// HabitEvent is one record of activity for a habit on a calendar day.
type HabitEvent struct {
	ID      string        `json:"id"`
	HabitID string        `json:"habit_id" validate:"required"`
	Date    calendar.Date `json:"date" validate:"required"`

	// Kind mirrors the owning habit's type.
	Kind HabitType `json:"kind"`

	BooleanValue *bool    `json:"boolean_value,omitempty"`
	NumericValue *float64 `json:"numeric_value,omitempty"`

	// RecordedAt is the write time. The latest write for a (habit, date) is canonical.
	RecordedAt time.Time `json:"recorded_at"`
}

// IsSuccess applies habitType's success predicate to e.
//
//   - YES_NO succeeds when the boolean value is true.
//   - MEASURABLE_NUMERIC succeeds when the numeric value is > 0. The habit's
//     target value is not consulted (product confirmation pending).
//   - BAD_HABIT succeeds ("no relapse") when the boolean value is false.
//
// Missing values never succeed. Unknown types never succeed; callers validate
// types up front and report ErrInvalidHabitType instead of relying on this.
func IsSuccess(habitType HabitType, e HabitEvent) bool {
	switch habitType {
	case HabitTypeYesNo:
		return e.BooleanValue != nil && *e.BooleanValue
	case HabitTypeMeasurable:
		return e.NumericValue != nil && *e.NumericValue > 0
	case HabitTypeBad:
		return e.BooleanValue != nil && !*e.BooleanValue
	default:
		return false
	}
}

// Bool returns a pointer to b. Convenience for building events.
func Bool(b bool) *bool { return &b }

// Float returns a pointer to f. Convenience for building events.
func Float(f float64) *float64 { return &f }
