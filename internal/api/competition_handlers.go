package api

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/habitleague/habitleague-server/internal/domain"
	domainerrors "github.com/habitleague/habitleague-server/internal/errors"
)

func (s *Server) registerCompetitionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getLeaderboard",
		Method:      http.MethodGet,
		Path:        "/api/v1/competitions/{id}/leaderboard",
		Summary:     "Get competition leaderboard",
		Description: "Returns the ranked participants of a competition. Active competitions are rescored before the read when update is set.",
		Tags:        []string{"Competitions"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetLeaderboard)

	huma.Register(s.api, huma.Operation{
		OperationID: "recomputeCompetition",
		Method:      http.MethodPost,
		Path:        "/api/v1/competitions/{id}/leaderboard",
		Summary:     "Recompute competition scores",
		Description: "Rescores every participant regardless of the competition's status",
		Tags:        []string{"Competitions"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRecomputeCompetition)
}

// === DTOs ===

// GetLeaderboardInput contains parameters for reading a leaderboard.
type GetLeaderboardInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Competition ID"`
	Update        bool   `query:"update" doc:"Recompute scores before reading"`
}

// RecomputeCompetitionInput contains parameters for a forced recompute.
type RecomputeCompetitionInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Competition ID"`
}

// CompetitionSummary describes a competition.
type CompetitionSummary struct {
	ID        string `json:"id" doc:"Competition ID"`
	Name      string `json:"name" doc:"Competition name"`
	GoalType  string `json:"goal_type" enum:"MAX_PER_DAY,MAX_STREAK,TOTAL_COMPLETED" doc:"Scoring formula"`
	StartDate string `json:"start_date" format:"date" doc:"First day of the window"`
	EndDate   string `json:"end_date" format:"date" doc:"Last day of the window"`
	Status    string `json:"status" enum:"active,finalized,cancelled" doc:"Lifecycle state"`
}

// LeaderboardEntryResponse is one ranked participant.
type LeaderboardEntryResponse struct {
	Rank             int       `json:"rank" minimum:"1" doc:"1-based position"`
	UserID           string    `json:"user_id" doc:"Participant user ID"`
	Score            int       `json:"score" doc:"Score under the competition's goal type"`
	JoinedAt         time.Time `json:"joined_at" doc:"When the user joined"`
	IsRequestingUser bool      `json:"is_requesting_user" doc:"Whether this entry belongs to the caller"`
}

// LeaderboardResponse is the ranked view of a competition.
type LeaderboardResponse struct {
	Competition         CompetitionSummary         `json:"competition"`
	Entries             []LeaderboardEntryResponse `json:"entries"`
	Me                  *LeaderboardEntryResponse  `json:"me,omitempty" doc:"Caller's entry; absent when not a participant"`
	TotalParticipants   int                        `json:"total_participants"`
	Stale               bool                       `json:"stale" doc:"Set when a due recompute failed and scores are from the last successful run"`
	Recomputed          bool                       `json:"recomputed" doc:"Whether scores were refreshed for this read"`
	ParticipantsUpdated int                        `json:"participants_updated"`
	LastUpdated         *time.Time                 `json:"last_updated,omitempty" doc:"Latest score write among participants"`
}

// LeaderboardOutput wraps the leaderboard response for Huma.
type LeaderboardOutput struct {
	Body LeaderboardResponse
}

// RecomputeResponse describes a completed recompute.
type RecomputeResponse struct {
	CompetitionID       string `json:"competition_id"`
	Participants        int    `json:"participants"`
	ParticipantsUpdated int    `json:"participants_updated" doc:"Participants whose score changed"`
}

// RecomputeOutput wraps the recompute response for Huma.
type RecomputeOutput struct {
	Body RecomputeResponse
}

// === Handlers ===

func (s *Server) handleGetLeaderboard(ctx context.Context, input *GetLeaderboardInput) (*LeaderboardOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if input.Update {
		if err := s.checkRecomputeLimit(userID); err != nil {
			return nil, err
		}
	}

	lb, err := s.services.Competitions.GetLeaderboard(ctx, input.ID, userID, input.Update)
	if err != nil {
		return nil, err
	}

	return &LeaderboardOutput{Body: toLeaderboardResponse(lb)}, nil
}

func (s *Server) handleRecomputeCompetition(ctx context.Context, input *RecomputeCompetitionInput) (*RecomputeOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.checkRecomputeLimit(userID); err != nil {
		return nil, err
	}

	result, err := s.services.Competitions.ForceRecompute(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("competition recomputed on request",
		"competition_id", result.CompetitionID,
		"user_id", userID,
		"participants_updated", result.ParticipantsUpdated,
	)

	return &RecomputeOutput{Body: RecomputeResponse{
		CompetitionID:       result.CompetitionID,
		Participants:        result.Participants,
		ParticipantsUpdated: result.ParticipantsUpdated,
	}}, nil
}

// checkRecomputeLimit applies the per-user limit on explicit recomputes.
func (s *Server) checkRecomputeLimit(userID string) error {
	if s.recomputeLimiter == nil {
		return nil
	}

	allowed, retryAfter := s.recomputeLimiter.Check(userID)
	if allowed {
		return nil
	}

	return domainerrors.RateLimited("too many recompute requests").WithDetails(map[string]int{
		"retry_after_seconds": int(math.Ceil(retryAfter.Seconds())),
	})
}

func toCompetitionSummary(c *domain.Competition) CompetitionSummary {
	return CompetitionSummary{
		ID:        c.ID,
		Name:      c.Name,
		GoalType:  string(c.GoalType),
		StartDate: c.StartDate.String(),
		EndDate:   c.EndDate.String(),
		Status:    string(c.Status),
	}
}

func toLeaderboardEntry(e domain.LeaderboardEntry) LeaderboardEntryResponse {
	return LeaderboardEntryResponse{
		Rank:             e.Rank,
		UserID:           e.UserID,
		Score:            e.Score,
		JoinedAt:         e.JoinedAt,
		IsRequestingUser: e.IsRequestingUser,
	}
}

func toLeaderboardResponse(lb *domain.Leaderboard) LeaderboardResponse {
	entries := make([]LeaderboardEntryResponse, len(lb.Entries))
	for i, e := range lb.Entries {
		entries[i] = toLeaderboardEntry(e)
	}

	resp := LeaderboardResponse{
		Competition:         toCompetitionSummary(lb.Competition),
		Entries:             entries,
		TotalParticipants:   len(lb.Entries),
		Stale:               lb.Stale,
		Recomputed:          lb.Recomputed,
		ParticipantsUpdated: lb.ParticipantsUpdated,
	}
	if lb.Me != nil {
		me := toLeaderboardEntry(*lb.Me)
		resp.Me = &me
	}
	if !lb.LastUpdated.IsZero() {
		last := lb.LastUpdated
		resp.LastUpdated = &last
	}
	return resp
}
