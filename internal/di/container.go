// Package di provides dependency injection configuration for the HabitLeague server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/habitleague/habitleague-server/internal/auth"
	"github.com/habitleague/habitleague-server/internal/config"
	"github.com/habitleague/habitleague-server/internal/di/providers"
	"github.com/habitleague/habitleague-server/internal/logger"
	"github.com/habitleague/habitleague-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideClock)
	do.Provide(injector, providers.ProvideRetryPolicy)
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideHabitStatsService)
	do.Provide(injector, providers.ProvideCompetitionService)
	do.Provide(injector, providers.ProvideLifecycleService)
	do.Provide(injector, providers.ProvideCatalogService)

	// Workers
	do.Provide(injector, providers.ProvideRecomputeLimiter)
	do.Provide(injector, providers.ProvideSweepJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)

	// Business services
	_ = do.MustInvoke[*service.HabitStatsService](injector)
	_ = do.MustInvoke[*service.CompetitionService](injector)
	_ = do.MustInvoke[*service.LifecycleService](injector)

	// Workers
	_ = do.MustInvoke[*providers.SweepJob](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
