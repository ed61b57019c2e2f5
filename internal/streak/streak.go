// Package streak derives continuity metrics from a habit's event log.
//
// Everything here is pure and synchronous: the caller loads events, this
// package classifies and counts them.
package streak

import (
	"math"
	"slices"

	"github.com/habitleague/habitleague-server/internal/calendar"
	"github.com/habitleague/habitleague-server/internal/domain"
	domainerrors "github.com/habitleague/habitleague-server/internal/errors"
)

// Compute returns the streak statistics for one habit's events as of asOf.
//
// Events dated after asOf are ignored. Duplicate (habit, date) events are
// collapsed to the latest write before anything is counted. The current
// streak is the run ending at the last success date even when that date is
// well before asOf; compare StreakStats.LastSuccessDate to AsOf for
// "still alive" semantics.
func Compute(events []domain.HabitEvent, asOf calendar.Date) (domain.StreakStats, error) {
	stats := domain.StreakStats{AsOf: asOf}

	if err := ValidateKinds(events); err != nil {
		return stats, err
	}

	visible := make([]domain.HabitEvent, 0, len(events))
	for _, e := range events {
		if !e.Date.After(asOf) {
			visible = append(visible, e)
		}
	}

	dates := SuccessDates(Canonicalize(visible))
	if len(dates) == 0 {
		return stats, nil
	}

	stats.BestStreak = BestStreak(dates)
	stats.CurrentStreak = TrailingStreak(dates)
	stats.TotalSuccesses = len(dates)
	stats.LastSuccessDate = dates[len(dates)-1]
	stats.SuccessRateLast30d = successRate(dates, asOf)

	return stats, nil
}

// ValidateKinds fails fast on any event whose kind is not a known habit type.
func ValidateKinds(events []domain.HabitEvent) error {
	for _, e := range events {
		if !e.Kind.Valid() {
			return domainerrors.InvalidHabitTypef("event %s for habit %s has unknown kind %q", e.ID, e.HabitID, e.Kind)
		}
	}
	return nil
}

// Canonicalize keeps one event per (habit, date): the one with the latest
// RecordedAt, with later positions in the input winning ties. The result is
// ordered by date, then habit ID.
func Canonicalize(events []domain.HabitEvent) []domain.HabitEvent {
	type key struct {
		habitID string
		date    calendar.Date
	}

	latest := make(map[key]int, len(events))
	for i, e := range events {
		k := key{e.HabitID, e.Date}
		prev, seen := latest[k]
		if !seen || !e.RecordedAt.Before(events[prev].RecordedAt) {
			latest[k] = i
		}
	}

	out := make([]domain.HabitEvent, 0, len(latest))
	for _, idx := range latest {
		out = append(out, events[idx])
	}
	slices.SortFunc(out, func(a, b domain.HabitEvent) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		switch {
		case a.HabitID < b.HabitID:
			return -1
		case a.HabitID > b.HabitID:
			return 1
		default:
			return 0
		}
	})
	return out
}

// SuccessDates returns the distinct dates whose event satisfies the event's
// habit-type predicate, ascending.
func SuccessDates(events []domain.HabitEvent) []calendar.Date {
	seen := make(map[calendar.Date]bool)
	var dates []calendar.Date
	for _, e := range events {
		if !domain.IsSuccess(e.Kind, e) || seen[e.Date] {
			continue
		}
		seen[e.Date] = true
		dates = append(dates, e.Date)
	}
	slices.SortFunc(dates, calendar.Date.Compare)
	return dates
}

// BestStreak returns the longest run of consecutive days in dates.
// dates must be ascending and distinct.
func BestStreak(dates []calendar.Date) int {
	if len(dates) == 0 {
		return 0
	}

	best, run := 1, 1
	for i := 1; i < len(dates); i++ {
		if calendar.IsNextDay(dates[i-1], dates[i]) {
			run++
		} else {
			run = 1
		}
		best = max(best, run)
	}
	return best
}

// TrailingStreak returns the length of the run ending at the last date.
// dates must be ascending and distinct.
func TrailingStreak(dates []calendar.Date) int {
	if len(dates) == 0 {
		return 0
	}

	run := 1
	for i := len(dates) - 1; i > 0; i-- {
		if !calendar.IsNextDay(dates[i-1], dates[i]) {
			break
		}
		run++
	}
	return run
}

// successRate is the percentage of the trailing 30 days (asOf inclusive) that
// were success dates, rounded to the nearest integer.
func successRate(dates []calendar.Date, asOf calendar.Date) int {
	from := asOf.AddDays(-(domain.SuccessRateWindowDays - 1))

	hits := 0
	for _, d := range dates {
		if d.Within(from, asOf) {
			hits++
		}
	}
	return int(math.Round(float64(hits) * 100 / domain.SuccessRateWindowDays))
}
