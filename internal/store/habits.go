package store

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/habitleague/habitleague-server/internal/calendar"
	"github.com/habitleague/habitleague-server/internal/domain"
)

// CreateHabit stores a new habit.
func (s *Store) CreateHabit(ctx context.Context, habit *domain.Habit) error {
	if habit.CreatedAt.IsZero() {
		habit.CreatedAt = s.now()
	}
	return s.habits.Create(ctx, habit.ID, habit)
}

// GetHabit retrieves a habit by ID.
func (s *Store) GetHabit(ctx context.Context, id string) (*domain.Habit, error) {
	return s.habits.Get(ctx, id)
}

// GetParticipantHabits returns every habit owned by userID.
func (s *Store) GetParticipantHabits(ctx context.Context, userID string) ([]*domain.Habit, error) {
	habits, err := s.habits.ListByIndex(ctx, "owner", userID)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(habits, func(a, b *domain.Habit) int { return cmp.Compare(a.ID, b.ID) })
	return habits, nil
}

// RecordHabitEvent upserts the event for (habit, date). An empty Kind is
// filled from the habit's type and a zero RecordedAt is set to now.
func (s *Store) RecordHabitEvent(ctx context.Context, event *domain.HabitEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if event.HabitID == "" || event.Date.IsZero() {
		return ErrInvalidInput.WithMessage("habit ID and date are required")
	}

	key := buildKey(eventPrefix, event.HabitID, event.Date.String())
	defer releaseKey(key)

	err := s.db.Update(func(txn *badger.Txn) error {
		var habit domain.Habit
		if err := s.habits.getTxn(txn, event.HabitID, &habit); err != nil {
			return err
		}
		if event.Kind == "" {
			event.Kind = habit.Type
		}
		if event.RecordedAt.IsZero() {
			event.RecordedAt = s.now()
		}
		return set(txn, key, event)
	})
	return translate(err)
}

// GetHabitEvents returns events for userID's habits within [from, to].
// An empty habitIDs selects all of the user's habits.
func (s *Store) GetHabitEvents(ctx context.Context, userID string, habitIDs []string, from, to calendar.Date) ([]domain.HabitEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(habitIDs) == 0 {
		if userID == "" {
			return nil, ErrInvalidInput.WithMessage("user ID or habit IDs required")
		}
		habits, err := s.GetParticipantHabits(ctx, userID)
		if err != nil {
			return nil, err
		}
		for _, h := range habits {
			habitIDs = append(habitIDs, h.ID)
		}
	}

	var events []domain.HabitEvent
	err := s.db.View(func(txn *badger.Txn) error {
		for _, habitID := range habitIDs {
			var habit domain.Habit
			if err := s.habits.getTxn(txn, habitID, &habit); err != nil {
				if errors.Is(err, ErrHabitNotFound) {
					continue
				}
				return err
			}
			if userID != "" && habit.OwnerID != userID {
				continue
			}

			found, err := scanEvents(ctx, txn, habitID, from, to)
			if err != nil {
				return err
			}
			events = append(events, found...)
		}
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}

	slices.SortStableFunc(events, func(a, b domain.HabitEvent) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.HabitID, b.HabitID)
	})
	return events, nil
}

// scanEvents walks one habit's event keys, which sort by date.
func scanEvents(ctx context.Context, txn *badger.Txn, habitID string, from, to calendar.Date) ([]domain.HabitEvent, error) {
	prefix := buildKey(eventPrefix, habitID, "")
	defer releaseKey(prefix)

	seek := prefix
	if !from.IsZero() {
		seek = buildKey(eventPrefix, habitID, from.String())
		defer releaseKey(seek)
	}

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var events []domain.HabitEvent
	for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var e domain.HabitEvent
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		}); err != nil {
			return nil, err
		}
		if !to.IsZero() && e.Date.After(to) {
			break
		}
		events = append(events, e)
	}
	return events, nil
}
