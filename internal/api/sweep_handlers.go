package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/habitleague/habitleague-server/internal/domain"
)

func (s *Server) registerSweepRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "runSweep",
		Method:      http.MethodPost,
		Path:        "/api/v1/competitions/sweep",
		Summary:     "Run the scheduled sweep",
		Description: "Finalizes expired competitions, then recomputes every active one. Individual failures are reported, not fatal.",
		Tags:        []string{"Sweep"},
		Security:    []map[string][]string{{"cron": {}}, {"bearer": {}}},
	}, s.handleRunSweep)

	huma.Register(s.api, huma.Operation{
		OperationID: "listActiveCompetitions",
		Method:      http.MethodGet,
		Path:        "/api/v1/competitions/sweep",
		Summary:     "List active competitions",
		Description: "Lists the competitions the next sweep will consider, with their window state",
		Tags:        []string{"Sweep"},
		Security:    []map[string][]string{{"cron": {}}, {"bearer": {}}},
	}, s.handleListActive)
}

// === DTOs ===

// SweepInput carries the credentials accepted by the sweep endpoints.
type SweepInput struct {
	APIKey        string `header:"X-API-Key"`
	Authorization string `header:"Authorization"`
}

// SweepResponse summarizes one sweep.
type SweepResponse struct {
	RunID                  string                `json:"run_id" doc:"Identifier for this sweep, also present in logs"`
	StartedAt              time.Time             `json:"started_at"`
	DurationMs             int64                 `json:"duration_ms"`
	CompetitionsFinalized  int                   `json:"competitions_finalized"`
	CompetitionsRecomputed int                   `json:"competitions_recomputed"`
	CompetitionsSkipped    int                   `json:"competitions_skipped"`
	CompetitionsFailed     []domain.SweepFailure `json:"competitions_failed"`
	ParticipantsUpdated    int                   `json:"participants_updated"`
	Results                []RecomputeResponse   `json:"results"`
}

// SweepOutput wraps the sweep response for Huma.
type SweepOutput struct {
	Body SweepResponse
}

// ActiveCompetitionResponse is one competition in the active listing.
type ActiveCompetitionResponse struct {
	CompetitionSummary
	Participants int  `json:"participants"`
	Started      bool `json:"started" doc:"Window has opened"`
	Ended        bool `json:"ended" doc:"Window has closed; the next sweep finalizes it"`
}

// ListActiveResponse lists active competitions.
type ListActiveResponse struct {
	Competitions []ActiveCompetitionResponse `json:"competitions"`
	Total        int                         `json:"total"`
}

// ListActiveOutput wraps the active listing for Huma.
type ListActiveOutput struct {
	Body ListActiveResponse
}

// === Handlers ===

func (s *Server) handleRunSweep(ctx context.Context, input *SweepInput) (*SweepOutput, error) {
	if err := s.authorizeCron(ctx, input.APIKey, input.Authorization); err != nil {
		return nil, err
	}

	report, err := s.services.Lifecycle.RunScheduledSweep(ctx, s.services.Clock.Now())
	if err != nil {
		return nil, err
	}

	results := make([]RecomputeResponse, len(report.Results))
	for i, r := range report.Results {
		results[i] = RecomputeResponse{
			CompetitionID:       r.CompetitionID,
			Participants:        r.Participants,
			ParticipantsUpdated: r.ParticipantsUpdated,
		}
	}

	return &SweepOutput{Body: SweepResponse{
		RunID:                  report.RunID,
		StartedAt:              report.StartedAt,
		DurationMs:             report.Duration.Milliseconds(),
		CompetitionsFinalized:  report.CompetitionsFinalized,
		CompetitionsRecomputed: report.CompetitionsRecomputed,
		CompetitionsSkipped:    report.CompetitionsSkipped,
		CompetitionsFailed:     report.CompetitionsFailed,
		ParticipantsUpdated:    report.ParticipantsUpdated,
		Results:                results,
	}}, nil
}

func (s *Server) handleListActive(ctx context.Context, input *SweepInput) (*ListActiveOutput, error) {
	if err := s.authorizeCron(ctx, input.APIKey, input.Authorization); err != nil {
		return nil, err
	}

	active, err := s.services.Lifecycle.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ActiveCompetitionResponse, len(active))
	for i, a := range active {
		out[i] = ActiveCompetitionResponse{
			CompetitionSummary: toCompetitionSummary(a.Competition),
			Participants:       a.Participants,
			Started:            a.Started,
			Ended:              a.Ended,
		}
	}

	return &ListActiveOutput{Body: ListActiveResponse{Competitions: out, Total: len(out)}}, nil
}
