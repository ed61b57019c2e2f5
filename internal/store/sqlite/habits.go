package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/habitleague/habitleague-server/internal/calendar"
	"github.com/habitleague/habitleague-server/internal/domain"
	"github.com/habitleague/habitleague-server/internal/store"
)

const habitColumns = `id, owner_id, name, type, target_value, created_at`

// scanHabit scans a sql.Row (or sql.Rows via its Scan method) into a domain.Habit.
func scanHabit(scanner interface{ Scan(dest ...any) error }) (*domain.Habit, error) {
	var (
		h         domain.Habit
		habitType string
		target    sql.NullFloat64
		createdAt string
	)
	if err := scanner.Scan(&h.ID, &h.OwnerID, &h.Name, &habitType, &target, &createdAt); err != nil {
		return nil, err
	}

	h.Type = domain.HabitType(habitType)
	if target.Valid {
		h.TargetValue = domain.Float(target.Float64)
	}

	var err error
	h.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// CreateHabit inserts a new habit.
// Returns store.ErrAlreadyExists if the habit ID already exists.
func (s *Store) CreateHabit(ctx context.Context, habit *domain.Habit) error {
	if habit.CreatedAt.IsZero() {
		habit.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO habits (`+habitColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		habit.ID,
		habit.OwnerID,
		habit.Name,
		string(habit.Type),
		nullFloat(habit.TargetValue),
		formatTime(habit.CreatedAt),
	)
	return translate(err)
}

// GetHabit retrieves a habit by ID.
// Returns store.ErrHabitNotFound if the habit does not exist.
func (s *Store) GetHabit(ctx context.Context, id string) (*domain.Habit, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+habitColumns+` FROM habits WHERE id = ?`, id)

	h, err := scanHabit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrHabitNotFound
	}
	if err != nil {
		return nil, translate(err)
	}
	return h, nil
}

// GetParticipantHabits returns every habit owned by userID.
func (s *Store) GetParticipantHabits(ctx context.Context, userID string) ([]*domain.Habit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+habitColumns+` FROM habits WHERE owner_id = ? ORDER BY id ASC`, userID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var habits []*domain.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err)
	}
	return habits, nil
}

// RecordHabitEvent upserts the event for (habit, date); the latest write wins.
func (s *Store) RecordHabitEvent(ctx context.Context, event *domain.HabitEvent) error {
	if event.HabitID == "" || event.Date.IsZero() {
		return store.ErrInvalidInput.WithMessage("habit ID and date are required")
	}

	habit, err := s.GetHabit(ctx, event.HabitID)
	if err != nil {
		return err
	}
	if event.Kind == "" {
		event.Kind = habit.Type
	}
	if event.RecordedAt.IsZero() {
		event.RecordedAt = s.now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO habit_events (id, habit_id, date, kind, boolean_value, numeric_value, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (habit_id, date) DO UPDATE SET
			id = excluded.id,
			kind = excluded.kind,
			boolean_value = excluded.boolean_value,
			numeric_value = excluded.numeric_value,
			recorded_at = excluded.recorded_at`,
		event.ID,
		event.HabitID,
		event.Date.String(),
		string(event.Kind),
		nullBool(event.BooleanValue),
		nullFloat(event.NumericValue),
		formatTime(event.RecordedAt),
	)
	return translate(err)
}

// GetHabitEvents returns events for userID's habits within [from, to],
// ascending by date then habit. An empty habitIDs selects all of the
// user's habits.
func (s *Store) GetHabitEvents(ctx context.Context, userID string, habitIDs []string, from, to calendar.Date) ([]domain.HabitEvent, error) {
	if userID == "" && len(habitIDs) == 0 {
		return nil, store.ErrInvalidInput.WithMessage("user ID or habit IDs required")
	}

	var (
		where []string
		args  []any
	)
	if userID != "" {
		where = append(where, "h.owner_id = ?")
		args = append(args, userID)
	}
	if len(habitIDs) > 0 {
		where = append(where, "e.habit_id IN ("+strings.TrimSuffix(strings.Repeat("?,", len(habitIDs)), ",")+")")
		for _, id := range habitIDs {
			args = append(args, id)
		}
	}
	if !from.IsZero() {
		where = append(where, "e.date >= ?")
		args = append(args, from.String())
	}
	if !to.IsZero() {
		where = append(where, "e.date <= ?")
		args = append(args, to.String())
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.habit_id, e.date, e.kind, e.boolean_value, e.numeric_value, e.recorded_at
		FROM habit_events e
		JOIN habits h ON h.id = e.habit_id
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY e.date ASC, e.habit_id ASC`, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var events []domain.HabitEvent
	for rows.Next() {
		var (
			e          domain.HabitEvent
			date       string
			kind       string
			boolValue  sql.NullBool
			numValue   sql.NullFloat64
			recordedAt string
		)
		if err := rows.Scan(&e.ID, &e.HabitID, &date, &kind, &boolValue, &numValue, &recordedAt); err != nil {
			return nil, err
		}

		if e.Date, err = scanDate(date); err != nil {
			return nil, err
		}
		if e.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, err
		}
		e.Kind = domain.HabitType(kind)
		if boolValue.Valid {
			e.BooleanValue = domain.Bool(boolValue.Bool)
		}
		if numValue.Valid {
			e.NumericValue = domain.Float(numValue.Float64)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err)
	}
	return events, nil
}
