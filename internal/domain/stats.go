package domain

import "github.com/habitleague/habitleague-server/internal/calendar"

// SuccessRateWindowDays is the trailing window used for SuccessRateLast30d.
const SuccessRateWindowDays = 30

// StreakStats are continuity metrics derived from one habit's event log.
// Recomputed on demand; never persisted.
type StreakStats struct {
	CurrentStreak      int `json:"current_streak"`
	BestStreak         int `json:"best_streak"`
	TotalSuccesses     int `json:"total_successes"`
	SuccessRateLast30d int `json:"success_rate_last_30d"` // 0-100

	// LastSuccessDate is the most recent success date, zero when there is none.
	// Callers wanting "still alive today" semantics compare it to AsOf.
	LastSuccessDate calendar.Date `json:"last_success_date"`
	AsOf            calendar.Date `json:"as_of"`
}

// HabitStats bundles a habit, its derived stats and the canonical events they came from.
type HabitStats struct {
	Habit  *Habit       `json:"habit"`
	Stats  StreakStats  `json:"stats"`
	Events []HabitEvent `json:"events"`
}
