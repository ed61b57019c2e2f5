package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitleague/habitleague-server/internal/calendar"
	"github.com/habitleague/habitleague-server/internal/domain"
	domainerrors "github.com/habitleague/habitleague-server/internal/errors"
)

func yesNo(date string, done bool) domain.HabitEvent {
	return domain.HabitEvent{
		ID:           "evt-" + date,
		HabitID:      "habit-1",
		Date:         calendar.MustParse(date),
		Kind:         domain.HabitTypeYesNo,
		BooleanValue: domain.Bool(done),
	}
}

func badHabit(date string, relapsed bool) domain.HabitEvent {
	e := yesNo(date, relapsed)
	e.Kind = domain.HabitTypeBad
	return e
}

func measurable(date string, value float64) domain.HabitEvent {
	return domain.HabitEvent{
		ID:           "evt-" + date,
		HabitID:      "habit-1",
		Date:         calendar.MustParse(date),
		Kind:         domain.HabitTypeMeasurable,
		NumericValue: domain.Float(value),
	}
}

func TestCompute_EmptyLog(t *testing.T) {
	stats, err := Compute(nil, calendar.MustParse("2024-01-10"))
	require.NoError(t, err)

	assert.Equal(t, 0, stats.CurrentStreak)
	assert.Equal(t, 0, stats.BestStreak)
	assert.Equal(t, 0, stats.TotalSuccesses)
	assert.Equal(t, 0, stats.SuccessRateLast30d)
	assert.True(t, stats.LastSuccessDate.IsZero())
}

func TestCompute_SingleSuccess(t *testing.T) {
	stats, err := Compute([]domain.HabitEvent{yesNo("2024-01-10", true)}, calendar.MustParse("2024-01-10"))
	require.NoError(t, err)

	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, 1, stats.BestStreak)
	assert.Equal(t, 1, stats.TotalSuccesses)
}

func TestCompute_GapStartsNewRun(t *testing.T) {
	events := []domain.HabitEvent{
		yesNo("2024-01-01", true),
		yesNo("2024-01-02", true),
		yesNo("2024-01-03", true),
		yesNo("2024-01-05", true),
	}

	stats, err := Compute(events, calendar.MustParse("2024-01-05"))
	require.NoError(t, err)

	assert.Equal(t, 3, stats.BestStreak)
	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, 4, stats.TotalSuccesses)
	assert.Equal(t, calendar.MustParse("2024-01-05"), stats.LastSuccessDate)
}

func TestCompute_CurrentStreakNotZeroedWhenStale(t *testing.T) {
	events := []domain.HabitEvent{
		yesNo("2024-01-01", true),
		yesNo("2024-01-02", true),
	}

	// Weeks later the run ending at the last success is still reported.
	stats, err := Compute(events, calendar.MustParse("2024-02-15"))
	require.NoError(t, err)

	assert.Equal(t, 2, stats.CurrentStreak)
	assert.Equal(t, calendar.MustParse("2024-01-02"), stats.LastSuccessDate)
	assert.Equal(t, 0, stats.SuccessRateLast30d)
}

func TestCompute_FailuresBreakRuns(t *testing.T) {
	events := []domain.HabitEvent{
		yesNo("2024-01-01", true),
		yesNo("2024-01-02", false),
		yesNo("2024-01-03", true),
		yesNo("2024-01-04", true),
	}

	stats, err := Compute(events, calendar.MustParse("2024-01-04"))
	require.NoError(t, err)

	assert.Equal(t, 2, stats.BestStreak)
	assert.Equal(t, 2, stats.CurrentStreak)
	assert.Equal(t, 3, stats.TotalSuccesses)
}

func TestCompute_BadHabitRelapseBreaksStreak(t *testing.T) {
	events := []domain.HabitEvent{
		badHabit("2024-01-01", false),
		badHabit("2024-01-02", false),
		badHabit("2024-01-03", true), // relapse
		badHabit("2024-01-04", false),
	}

	stats, err := Compute(events, calendar.MustParse("2024-01-04"))
	require.NoError(t, err)

	assert.Equal(t, 2, stats.BestStreak)
	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, 3, stats.TotalSuccesses)

	// The same raw values on a YES_NO habit mean the opposite.
	for i := range events {
		events[i].Kind = domain.HabitTypeYesNo
	}
	stats, err = Compute(events, calendar.MustParse("2024-01-04"))
	require.NoError(t, err)

	assert.Equal(t, 1, stats.BestStreak)
	assert.Equal(t, 1, stats.TotalSuccesses)
	assert.Equal(t, calendar.MustParse("2024-01-03"), stats.LastSuccessDate)
}

func TestCompute_MeasurableIgnoresTarget(t *testing.T) {
	events := []domain.HabitEvent{
		measurable("2024-01-01", 1),
		measurable("2024-01-02", 0),
		measurable("2024-01-03", 150),
	}

	stats, err := Compute(events, calendar.MustParse("2024-01-03"))
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalSuccesses)
	assert.Equal(t, 1, stats.BestStreak)
}

func TestCompute_DuplicateDayLastWriteWins(t *testing.T) {
	base := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)

	first := yesNo("2024-01-02", true)
	first.RecordedAt = base
	second := yesNo("2024-01-02", false)
	second.RecordedAt = base.Add(time.Hour)

	events := []domain.HabitEvent{yesNo("2024-01-01", true), first, second}

	stats, err := Compute(events, calendar.MustParse("2024-01-02"))
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TotalSuccesses)
	assert.Equal(t, 1, stats.BestStreak)

	// Reversed write times flip the outcome.
	first.RecordedAt, second.RecordedAt = second.RecordedAt, first.RecordedAt
	stats, err = Compute([]domain.HabitEvent{yesNo("2024-01-01", true), first, second}, calendar.MustParse("2024-01-02"))
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalSuccesses)
	assert.Equal(t, 2, stats.BestStreak)
}

func TestCompute_DuplicateSuccessesCountedOnce(t *testing.T) {
	events := []domain.HabitEvent{
		yesNo("2024-01-01", true),
		yesNo("2024-01-01", true),
		yesNo("2024-01-01", true),
	}

	stats, err := Compute(events, calendar.MustParse("2024-01-01"))
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TotalSuccesses)
	assert.Equal(t, 1, stats.CurrentStreak)
}

func TestCompute_IgnoresEventsAfterAsOf(t *testing.T) {
	events := []domain.HabitEvent{
		yesNo("2024-01-01", true),
		yesNo("2024-01-02", true),
		yesNo("2024-01-03", true),
	}

	stats, err := Compute(events, calendar.MustParse("2024-01-02"))
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalSuccesses)
	assert.Equal(t, 2, stats.CurrentStreak)
}

func TestCompute_SuccessRate(t *testing.T) {
	asOf := calendar.MustParse("2024-03-30")

	tests := []struct {
		name string
		days int // successes on the last `days` days
		want int
	}{
		{"none", 0, 0},
		{"one day", 1, 3},     // 3.33 -> 3
		{"five days", 5, 17},  // 16.67 -> 17
		{"fifteen", 15, 50},   // 50
		{"all thirty", 30, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var events []domain.HabitEvent
			for i := 0; i < tt.days; i++ {
				events = append(events, yesNo(asOf.AddDays(-i).String(), true))
			}
			stats, err := Compute(events, asOf)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stats.SuccessRateLast30d)
		})
	}
}

func TestCompute_SuccessRateWindowEdges(t *testing.T) {
	asOf := calendar.MustParse("2024-03-30")
	events := []domain.HabitEvent{
		yesNo(asOf.AddDays(-29).String(), true), // first day in window
		yesNo(asOf.AddDays(-30).String(), true), // just outside
	}

	stats, err := Compute(events, asOf)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.SuccessRateLast30d)
	assert.Equal(t, 2, stats.TotalSuccesses)
}

func TestCompute_InvalidKind(t *testing.T) {
	e := yesNo("2024-01-01", true)
	e.Kind = "SOMETIMES"

	_, err := Compute([]domain.HabitEvent{e}, calendar.MustParse("2024-01-01"))
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrInvalidHabitType))
}

func TestStreakMonotonicity(t *testing.T) {
	events := []domain.HabitEvent{
		yesNo("2024-01-01", true),
		yesNo("2024-01-02", true),
	}
	before, err := Compute(events, calendar.MustParse("2024-01-10"))
	require.NoError(t, err)

	// Extending the run by exactly one day never decreases the current streak.
	extended, err := Compute(append(events, yesNo("2024-01-03", true)), calendar.MustParse("2024-01-10"))
	require.NoError(t, err)
	assert.Equal(t, before.CurrentStreak+1, extended.CurrentStreak)

	// A success more than one day past the last one starts a new run of 1.
	restarted, err := Compute(append(events, yesNo("2024-01-05", true)), calendar.MustParse("2024-01-10"))
	require.NoError(t, err)
	assert.Equal(t, 1, restarted.CurrentStreak)
	assert.Equal(t, 2, restarted.BestStreak)
}

func TestBestAndTrailingStreak(t *testing.T) {
	dates := []calendar.Date{
		calendar.MustParse("2024-02-27"),
		calendar.MustParse("2024-02-28"),
		calendar.MustParse("2024-02-29"),
		calendar.MustParse("2024-03-01"),
		calendar.MustParse("2024-03-03"),
		calendar.MustParse("2024-03-04"),
	}

	assert.Equal(t, 4, BestStreak(dates))
	assert.Equal(t, 2, TrailingStreak(dates))
	assert.Equal(t, 0, BestStreak(nil))
	assert.Equal(t, 0, TrailingStreak(nil))
}

func TestCanonicalize_OrdersByDate(t *testing.T) {
	events := []domain.HabitEvent{
		yesNo("2024-01-03", true),
		yesNo("2024-01-01", true),
		yesNo("2024-01-02", true),
	}

	got := Canonicalize(events)
	require.Len(t, got, 3)
	assert.Equal(t, "2024-01-01", got[0].Date.String())
	assert.Equal(t, "2024-01-03", got[2].Date.String())
}
