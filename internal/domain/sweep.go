package domain

import "time"

// RecomputeResult describes one competition's score refresh.
type RecomputeResult struct {
	CompetitionID       string `json:"competition_id"`
	Participants        int    `json:"participants"`
	ParticipantsUpdated int    `json:"participants_updated"`
}

// SweepFailure records a competition whose recompute failed or timed out.
type SweepFailure struct {
	CompetitionID string `json:"competition_id"`
	Error         string `json:"error"`
}

// SweepReport summarizes one scheduled pass.
// A non-empty CompetitionsFailed is a partial failure, not a hard error.
type SweepReport struct {
	RunID                  string            `json:"run_id"`
	StartedAt              time.Time         `json:"started_at"`
	Duration               time.Duration     `json:"duration"`
	CompetitionsFinalized  int               `json:"competitions_finalized"`
	CompetitionsRecomputed int               `json:"competitions_recomputed"`
	CompetitionsSkipped    int               `json:"competitions_skipped"`
	CompetitionsFailed     []SweepFailure    `json:"competitions_failed"`
	ParticipantsUpdated    int               `json:"participants_updated"`
	Results                []RecomputeResult `json:"results"`
}

// Failed returns the number of competitions whose recompute failed.
func (r *SweepReport) Failed() int {
	return len(r.CompetitionsFailed)
}
