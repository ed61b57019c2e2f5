package providers

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/do/v2"

	"github.com/habitleague/habitleague-server/internal/config"
	"github.com/habitleague/habitleague-server/internal/logger"
	"github.com/habitleague/habitleague-server/internal/ratelimit"
	"github.com/habitleague/habitleague-server/internal/service"
)

// SweepJob runs the scheduled sweep on an interval.
type SweepJob struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable. It waits for an in-flight sweep to
// observe cancellation.
func (j *SweepJob) Shutdown() error {
	j.cancel()
	select {
	case <-j.done:
	case <-time.After(shutdownTimeout):
	}
	return nil
}

// ProvideSweepJob provides the periodic sweep job. A zero interval leaves
// sweeps to the cron endpoint.
func ProvideSweepJob(i do.Injector) (*SweepJob, error) {
	cfg := do.MustInvoke[*config.Config](i)
	lifecycle := do.MustInvoke[*service.LifecycleService](i)
	clock := do.MustInvoke[*service.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())
	job := &SweepJob{cancel: cancel, done: make(chan struct{})}

	if cfg.Sweep.Interval == 0 {
		close(job.done)
		log.Info("Scheduled sweep disabled by configuration")
		return job, nil
	}

	go func() {
		defer close(job.done)

		ticker := time.NewTicker(cfg.Sweep.Interval)
		defer ticker.Stop()

		// Initial sweep on startup
		runSweep(ctx, lifecycle, clock, log.Logger)

		for {
			select {
			case <-ticker.C:
				runSweep(ctx, lifecycle, clock, log.Logger)
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Sweep job started", "interval", cfg.Sweep.Interval)

	return job, nil
}

func runSweep(ctx context.Context, lifecycle *service.LifecycleService, clock *service.Clock, log *slog.Logger) {
	report, err := lifecycle.RunScheduledSweep(ctx, clock.Now())
	if err != nil {
		if ctx.Err() == nil {
			log.Warn("Scheduled sweep failed", "error", err)
		}
		return
	}
	if report.Failed() > 0 {
		log.Warn("Scheduled sweep completed with failures",
			"run_id", report.RunID,
			"failed", report.Failed(),
		)
	}
}

// RecomputeLimiterHandle wraps the per-user recompute limiter with shutdown capability.
type RecomputeLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *RecomputeLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideRecomputeLimiter provides the per-user limiter for explicit recomputes.
func ProvideRecomputeLimiter(i do.Injector) (*RecomputeLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)

	limiter := ratelimit.PerMinute(cfg.RateLimit.RecomputePerMinute, cfg.RateLimit.RecomputeBurst)
	return &RecomputeLimiterHandle{KeyedRateLimiter: limiter}, nil
}
