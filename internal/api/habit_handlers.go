package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/habitleague/habitleague-server/internal/calendar"
	"github.com/habitleague/habitleague-server/internal/domain"
	domainerrors "github.com/habitleague/habitleague-server/internal/errors"
)

func (s *Server) registerHabitRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getHabitStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/habits/{id}/stats",
		Summary:     "Get habit statistics",
		Description: "Returns current and best streak, total successes and the trailing 30-day success rate for one of the caller's habits",
		Tags:        []string{"Habits"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetHabitStats)
}

// === DTOs ===

// GetHabitStatsInput contains parameters for getting habit stats.
type GetHabitStatsInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Habit ID"`
	AsOf          string `query:"as_of" doc:"Calendar day to evaluate as of (YYYY-MM-DD); defaults to today"`
}

// HabitResponse describes a habit.
type HabitResponse struct {
	ID          string   `json:"id" doc:"Habit ID"`
	Name        string   `json:"name" doc:"Habit name"`
	Type        string   `json:"type" enum:"YES_NO,MEASURABLE_NUMERIC,BAD_HABIT" doc:"Habit type"`
	TargetValue *float64 `json:"target_value,omitempty" doc:"Informational target for measurable habits"`
}

// HabitEventResponse is one canonical day of a habit's log.
type HabitEventResponse struct {
	Date         string   `json:"date" format:"date" doc:"Calendar day"`
	BooleanValue *bool    `json:"boolean_value,omitempty" doc:"Yes/no value"`
	NumericValue *float64 `json:"numeric_value,omitempty" doc:"Measured value"`
	Success      bool     `json:"success" doc:"Whether the day counts as a success for this habit's type"`
}

// HabitStatsResponse contains a habit's derived statistics.
type HabitStatsResponse struct {
	Habit              HabitResponse        `json:"habit"`
	AsOf               string               `json:"as_of" format:"date" doc:"Day the stats were evaluated as of"`
	CurrentStreak      int                  `json:"current_streak" doc:"Run of consecutive success days ending at the last success"`
	BestStreak         int                  `json:"best_streak" doc:"Longest run of consecutive success days"`
	TotalSuccesses     int                  `json:"total_successes" doc:"Number of success days"`
	SuccessRateLast30d int                  `json:"success_rate_last_30d" minimum:"0" maximum:"100" doc:"Percent of the last 30 days that were successes"`
	LastSuccessDate    *string              `json:"last_success_date,omitempty" format:"date" doc:"Most recent success day"`
	Events             []HabitEventResponse `json:"events" doc:"Canonical events the stats were derived from"`
}

// HabitStatsOutput wraps the habit stats response for Huma.
type HabitStatsOutput struct {
	Body HabitStatsResponse
}

// === Handlers ===

func (s *Server) handleGetHabitStats(ctx context.Context, input *GetHabitStatsInput) (*HabitStatsOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	var asOf calendar.Date
	if input.AsOf != "" {
		asOf, err = calendar.Parse(input.AsOf)
		if err != nil {
			return nil, domainerrors.ValidationWithDetails("invalid as_of", map[string]string{
				"as_of": "must be a date in YYYY-MM-DD form",
			})
		}
	}

	stats, err := s.services.HabitStats.GetHabitStats(ctx, userID, input.ID, asOf)
	if err != nil {
		return nil, err
	}

	return &HabitStatsOutput{Body: toHabitStatsResponse(stats)}, nil
}

func toHabitStatsResponse(hs *domain.HabitStats) HabitStatsResponse {
	events := make([]HabitEventResponse, len(hs.Events))
	for i, e := range hs.Events {
		events[i] = HabitEventResponse{
			Date:         e.Date.String(),
			BooleanValue: e.BooleanValue,
			NumericValue: e.NumericValue,
			Success:      domain.IsSuccess(hs.Habit.Type, e),
		}
	}

	resp := HabitStatsResponse{
		Habit: HabitResponse{
			ID:          hs.Habit.ID,
			Name:        hs.Habit.Name,
			Type:        string(hs.Habit.Type),
			TargetValue: hs.Habit.TargetValue,
		},
		AsOf:               hs.Stats.AsOf.String(),
		CurrentStreak:      hs.Stats.CurrentStreak,
		BestStreak:         hs.Stats.BestStreak,
		TotalSuccesses:     hs.Stats.TotalSuccesses,
		SuccessRateLast30d: hs.Stats.SuccessRateLast30d,
		Events:             events,
	}
	if !hs.Stats.LastSuccessDate.IsZero() {
		last := hs.Stats.LastSuccessDate.String()
		resp.LastSuccessDate = &last
	}
	return resp
}
