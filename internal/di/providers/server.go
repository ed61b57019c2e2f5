package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/habitleague/habitleague-server/internal/api"
	"github.com/habitleague/habitleague-server/internal/auth"
	"github.com/habitleague/habitleague-server/internal/config"
	"github.com/habitleague/habitleague-server/internal/logger"
	"github.com/habitleague/habitleague-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	limiter := do.MustInvoke[*RecomputeLimiterHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		HabitStats:   do.MustInvoke[*service.HabitStatsService](i),
		Competitions: do.MustInvoke[*service.CompetitionService](i),
		Lifecycle:    do.MustInvoke[*service.LifecycleService](i),
		Clock:        do.MustInvoke[*service.Clock](i),
	}

	handler := api.NewServer(storeHandle.EventStore, services, tokens, limiter.KeyedRateLimiter, api.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		CronAPIKey:     cfg.Auth.CronAPIKey,
	}, log.Component("api"))

	if cfg.Auth.CronAPIKey == "" {
		log.Warn("No cron API key configured; sweep endpoints accept any authenticated user")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
