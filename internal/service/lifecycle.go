package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/habitleague/habitleague-server/internal/calendar"
	"github.com/habitleague/habitleague-server/internal/domain"
	"github.com/habitleague/habitleague-server/internal/store"
)

// SweepOptions bounds one scheduled sweep.
type SweepOptions struct {
	Workers            int           // competitions recomputed at once
	CompetitionTimeout time.Duration // cap on one competition's recompute; 0 means none
}

// ActiveCompetition is an operator view of one active competition.
type ActiveCompetition struct {
	Competition  *domain.Competition `json:"competition"`
	Participants int                 `json:"participants"`
	Started      bool                `json:"started"`
	Ended        bool                `json:"ended"`
}

// LifecycleService finalizes expired competitions and runs scheduled sweeps.
type LifecycleService struct {
	store        store.EventStore
	competitions *CompetitionService
	clock        *Clock
	retry        RetryPolicy
	opts         SweepOptions
	logger       *slog.Logger
}

// NewLifecycleService creates a new lifecycle service.
func NewLifecycleService(
	store store.EventStore,
	competitions *CompetitionService,
	clock *Clock,
	retry RetryPolicy,
	opts SweepOptions,
	logger *slog.Logger,
) *LifecycleService {
	opts.Workers = max(opts.Workers, 1)
	return &LifecycleService{
		store:        store,
		competitions: competitions,
		clock:        clock,
		retry:        retry,
		opts:         opts,
		logger:       logger,
	}
}

// RecomputeDue reports whether c's scores should be refreshed: always when
// forced, otherwise only while the competition is active.
func RecomputeDue(c *domain.Competition, force bool) bool {
	return force || c.Status == domain.CompetitionActive
}

// SweepAndFinalize marks every active competition whose end date is before
// today as finalized and returns how many it finalized. Scores are not
// touched. Competitions that could not be finalized are reported in the
// error; the others are still finalized.
func (s *LifecycleService) SweepAndFinalize(ctx context.Context, today calendar.Date) (int, error) {
	finalized, failures, err := s.finalizeExpired(ctx, today)
	if err != nil {
		return finalized, err
	}

	errs := make([]error, 0, len(failures))
	for _, f := range failures {
		errs = append(errs, fmt.Errorf("finalize %s: %s", f.CompetitionID, f.Error))
	}
	return finalized, errors.Join(errs...)
}

func (s *LifecycleService) finalizeExpired(ctx context.Context, today calendar.Date) (int, []domain.SweepFailure, error) {
	expired, err := retryValue(ctx, s.retry, func(ctx context.Context) ([]*domain.Competition, error) {
		return s.store.ListActiveCompetitionsPastEndDate(ctx, today)
	})
	if err != nil {
		return 0, nil, mapStoreError(err)
	}

	finalized := 0
	var failures []domain.SweepFailure
	for _, c := range expired {
		err := s.retry.Do(ctx, func(ctx context.Context) error {
			return s.store.SetCompetitionStatus(ctx, c.ID, domain.CompetitionFinalized)
		})
		switch {
		case errors.Is(err, store.ErrInvalidTransition):
			// Cancelled since it was listed.
			s.logger.Debug("competition no longer active, not finalizing", "competition_id", c.ID)
		case err != nil:
			s.logger.Warn("failed to finalize competition", "competition_id", c.ID, "error", err)
			failures = append(failures, domain.SweepFailure{CompetitionID: c.ID, Error: err.Error()})
		default:
			finalized++
			s.logger.Info("competition finalized",
				"competition_id", c.ID,
				"end_date", c.EndDate.String(),
				"today", today.String(),
			)
		}
	}
	return finalized, failures, nil
}

// RunScheduledSweep finalizes expired competitions, then recomputes every
// active competition whose window contains today.
//
// Competitions are recomputed in parallel under SweepOptions. A competition
// that fails or times out is listed in the report without aborting the
// sweep. Only failing to list competitions is a hard error.
func (s *LifecycleService) RunScheduledSweep(ctx context.Context, now time.Time) (*domain.SweepReport, error) {
	began := s.clock.Now()
	today := s.clock.DateOf(now)

	report := &domain.SweepReport{
		RunID:              uuid.NewString(),
		StartedAt:          now,
		CompetitionsFailed: []domain.SweepFailure{},
		Results:            []domain.RecomputeResult{},
	}
	logger := s.logger.With("run_id", report.RunID)

	finalized, failures, err := s.finalizeExpired(ctx, today)
	if err != nil {
		return nil, err
	}
	report.CompetitionsFinalized = finalized
	report.CompetitionsFailed = append(report.CompetitionsFailed, failures...)

	active, err := retryValue(ctx, s.retry, func(ctx context.Context) ([]*domain.Competition, error) {
		return s.store.ListActiveCompetitions(ctx)
	})
	if err != nil {
		return nil, mapStoreError(err)
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.opts.Workers)

	for _, c := range active {
		if !c.HasStarted(today) || c.HasEnded(today) {
			report.CompetitionsSkipped++
			continue
		}

		g.Go(func() error {
			cctx, cancel := s.competitionContext(ctx)
			defer cancel()

			result, err := s.competitions.RecomputeCompetition(cctx, c)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn("competition recompute failed",
					"competition_id", c.ID,
					"error", err,
				)
				report.CompetitionsFailed = append(report.CompetitionsFailed, domain.SweepFailure{
					CompetitionID: c.ID,
					Error:         err.Error(),
				})
				return nil
			}
			report.CompetitionsRecomputed++
			report.ParticipantsUpdated += result.ParticipantsUpdated
			report.Results = append(report.Results, result)
			return nil
		})
	}
	_ = g.Wait()

	slices.SortFunc(report.Results, func(a, b domain.RecomputeResult) int {
		return cmp.Compare(a.CompetitionID, b.CompetitionID)
	})
	slices.SortFunc(report.CompetitionsFailed, func(a, b domain.SweepFailure) int {
		return cmp.Compare(a.CompetitionID, b.CompetitionID)
	})
	report.Duration = s.clock.Now().Sub(began)

	logger.Info("sweep completed",
		"today", today.String(),
		"finalized", report.CompetitionsFinalized,
		"recomputed", report.CompetitionsRecomputed,
		"skipped", report.CompetitionsSkipped,
		"failed", report.Failed(),
		"participants_updated", report.ParticipantsUpdated,
		"duration", report.Duration,
	)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (s *LifecycleService) competitionContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.CompetitionTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.CompetitionTimeout)
}

// ListActive returns every active competition with its participant count,
// ordered by end date.
func (s *LifecycleService) ListActive(ctx context.Context) ([]ActiveCompetition, error) {
	today := s.clock.Today()

	active, err := retryValue(ctx, s.retry, func(ctx context.Context) ([]*domain.Competition, error) {
		return s.store.ListActiveCompetitions(ctx)
	})
	if err != nil {
		return nil, mapStoreError(err)
	}

	out := make([]ActiveCompetition, 0, len(active))
	for _, c := range active {
		participants, err := retryValue(ctx, s.retry, func(ctx context.Context) ([]domain.Participant, error) {
			return s.store.GetParticipants(ctx, c.ID)
		})
		if err != nil {
			return nil, mapStoreError(err)
		}
		out = append(out, ActiveCompetition{
			Competition:  c,
			Participants: len(participants),
			Started:      c.HasStarted(today),
			Ended:        c.HasEnded(today),
		})
	}
	return out, nil
}
