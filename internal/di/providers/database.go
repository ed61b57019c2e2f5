package providers

import (
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/habitleague/habitleague-server/internal/config"
	"github.com/habitleague/habitleague-server/internal/logger"
	"github.com/habitleague/habitleague-server/internal/store"
	"github.com/habitleague/habitleague-server/internal/store/sqlite"
)

// StoreHandle wraps the event store with shutdown capability.
type StoreHandle struct {
	store.EventStore
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the event store for the configured driver.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	path := cfg.StorePath()

	var (
		es  store.EventStore
		err error
	)
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		es, err = sqlite.Open(path, log.Logger)
	default:
		es, err = store.New(path, log.Logger)
	}
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "driver", cfg.Storage.Driver, "path", path)

	return &StoreHandle{EventStore: es}, nil
}
