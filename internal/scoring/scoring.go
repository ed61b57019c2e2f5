// Package scoring turns a participant's event log into one competition score.
package scoring

import (
	"github.com/habitleague/habitleague-server/internal/calendar"
	"github.com/habitleague/habitleague-server/internal/domain"
	domainerrors "github.com/habitleague/habitleague-server/internal/errors"
	"github.com/habitleague/habitleague-server/internal/streak"
)

// Score computes the score for goal over events dated within
// [windowStart, windowEnd]. Events may span several habits; each event's
// Kind selects its success predicate. Events outside the window are ignored.
//
// The result is deterministic for a given input and never negative.
func Score(goal domain.GoalType, events []domain.HabitEvent, windowStart, windowEnd calendar.Date) (int, error) {
	if !goal.Valid() {
		return 0, domainerrors.InvalidGoalTypef("unknown goal type %q", goal)
	}

	wins, err := Successes(events, windowStart, windowEnd)
	if err != nil {
		return 0, err
	}

	switch goal {
	case domain.GoalMaxPerDay:
		return maxPerDay(wins), nil
	case domain.GoalMaxStreak:
		return streak.BestStreak(streak.SuccessDates(wins)), nil
	case domain.GoalTotalCompleted:
		return len(wins), nil
	}
	return 0, domainerrors.InvalidGoalTypef("unknown goal type %q", goal)
}

// Successes is the reduction shared by every goal type: the events inside
// the window that satisfy their habit type's predicate, in input order.
func Successes(events []domain.HabitEvent, windowStart, windowEnd calendar.Date) ([]domain.HabitEvent, error) {
	if err := streak.ValidateKinds(events); err != nil {
		return nil, err
	}

	var wins []domain.HabitEvent
	for _, e := range events {
		if !e.Date.Within(windowStart, windowEnd) {
			continue
		}
		if domain.IsSuccess(e.Kind, e) {
			wins = append(wins, e)
		}
	}
	return wins, nil
}

func maxPerDay(wins []domain.HabitEvent) int {
	perDay := make(map[calendar.Date]int)
	best := 0
	for _, e := range wins {
		perDay[e.Date]++
		best = max(best, perDay[e.Date])
	}
	return best
}
