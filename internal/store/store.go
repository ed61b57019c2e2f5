package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/habitleague/habitleague-server/internal/domain"
)

// Store is the Badger-backed EventStore.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
	now    func() time.Time

	habits       *Entity[domain.Habit]
	competitions *Entity[domain.Competition]
}

var _ EventStore = (*Store)(nil)

// New opens (or creates) a Badger database at path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
		now:    time.Now,
	}

	s.habits = NewEntity[domain.Habit](s, habitPrefix).
		WithNotFound(ErrHabitNotFound).
		WithIndex("owner", func(h *domain.Habit) []string {
			return []string{h.OwnerID}
		})
	s.competitions = NewEntity[domain.Competition](s, competitionPrefix).
		WithNotFound(ErrCompetitionNotFound).
		WithIndex("status", func(c *domain.Competition) []string {
			return []string{string(c.Status)}
		})

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return s, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// Ping reports ErrUnavailable once the database has been closed.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return ErrUnavailable.WithMessage("database closed")
	}
	return nil
}

// get retrieves a value by key inside txn.
func get(txn *badger.Txn, key []byte, dest any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dest)
	})
}

// set stores a value by key inside txn.
func set(txn *badger.Txn, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return txn.Set(key, data)
}

// translate maps Badger's transient failures onto ErrUnavailable.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrConflict), errors.Is(err, badger.ErrBlockedWrites):
		return ErrUnavailable.WithCause(err)
	default:
		return err
	}
}
