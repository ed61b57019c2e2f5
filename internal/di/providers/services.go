package providers

import (
	"github.com/samber/do/v2"

	"github.com/habitleague/habitleague-server/internal/config"
	"github.com/habitleague/habitleague-server/internal/logger"
	"github.com/habitleague/habitleague-server/internal/service"
	"github.com/habitleague/habitleague-server/internal/validation"
)

// ProvideClock provides the clock that defines the current calendar day.
func ProvideClock(i do.Injector) (*service.Clock, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return service.NewClock(cfg.Calendar.Location, nil), nil
}

// ProvideRetryPolicy provides the retry policy for transient store failures.
func ProvideRetryPolicy(i do.Injector) (service.RetryPolicy, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return service.RetryPolicy{
		Attempts: cfg.Retry.Attempts,
		Backoff:  cfg.Retry.Backoff,
	}, nil
}

// ProvideValidator provides the struct validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideHabitStatsService provides the habit statistics service.
func ProvideHabitStatsService(i do.Injector) (*service.HabitStatsService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	clock := do.MustInvoke[*service.Clock](i)
	retry := do.MustInvoke[service.RetryPolicy](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewHabitStatsService(storeHandle.EventStore, clock, retry, log.Component("habit_stats")), nil
}

// ProvideCompetitionService provides the competition scoring service.
func ProvideCompetitionService(i do.Injector) (*service.CompetitionService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	retry := do.MustInvoke[service.RetryPolicy](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCompetitionService(storeHandle.EventStore, retry, cfg.Sweep.ParticipantWorkers, log.Component("competitions")), nil
}

// ProvideLifecycleService provides the competition lifecycle service.
func ProvideLifecycleService(i do.Injector) (*service.LifecycleService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	competitions := do.MustInvoke[*service.CompetitionService](i)
	clock := do.MustInvoke[*service.Clock](i)
	retry := do.MustInvoke[service.RetryPolicy](i)
	log := do.MustInvoke[*logger.Logger](i)

	opts := service.SweepOptions{
		Workers:            cfg.Sweep.Workers,
		CompetitionTimeout: cfg.Sweep.CompetitionTimeout,
	}
	return service.NewLifecycleService(storeHandle.EventStore, competitions, clock, retry, opts, log.Component("lifecycle")), nil
}

// ProvideCatalogService provides the habit and competition catalog service.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	clock := do.MustInvoke[*service.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCatalogService(storeHandle.EventStore, validator, clock, log.Component("catalog")), nil
}
