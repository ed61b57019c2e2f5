package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/habitleague/habitleague-server/internal/calendar"
	"github.com/habitleague/habitleague-server/internal/domain"
	"github.com/habitleague/habitleague-server/internal/store"
)

// competitionColumns must match the scan order in scanCompetition.
const competitionColumns = `id, creator_id, name, description, goal_type, start_date, end_date, status, created_at`

func scanCompetition(scanner interface{ Scan(dest ...any) error }) (*domain.Competition, error) {
	var (
		c           domain.Competition
		description sql.NullString
		goalType    string
		startDate   string
		endDate     string
		status      string
		createdAt   string
	)
	err := scanner.Scan(&c.ID, &c.CreatorID, &c.Name, &description, &goalType, &startDate, &endDate, &status, &createdAt)
	if err != nil {
		return nil, err
	}

	c.Description = description.String
	c.GoalType = domain.GoalType(goalType)
	c.Status = domain.CompetitionStatus(status)
	if c.StartDate, err = scanDate(startDate); err != nil {
		return nil, err
	}
	if c.EndDate, err = scanDate(endDate); err != nil {
		return nil, err
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCompetition inserts a new competition. An empty status defaults to active.
func (s *Store) CreateCompetition(ctx context.Context, c *domain.Competition) error {
	if c.Status == "" {
		c.Status = domain.CompetitionActive
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO competitions (`+competitionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.CreatorID,
		c.Name,
		nullString(c.Description),
		string(c.GoalType),
		c.StartDate.String(),
		c.EndDate.String(),
		string(c.Status),
		formatTime(c.CreatedAt),
	)
	return translate(err)
}

// GetCompetition retrieves a competition by ID.
// Returns store.ErrCompetitionNotFound if it does not exist.
func (s *Store) GetCompetition(ctx context.Context, id string) (*domain.Competition, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+competitionColumns+` FROM competitions WHERE id = ?`, id)

	c, err := scanCompetition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrCompetitionNotFound
	}
	if err != nil {
		return nil, translate(err)
	}
	return c, nil
}

func (s *Store) queryCompetitions(ctx context.Context, query string, args ...any) ([]*domain.Competition, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var comps []*domain.Competition
	for rows.Next() {
		c, err := scanCompetition(rows)
		if err != nil {
			return nil, err
		}
		comps = append(comps, c)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err)
	}
	return comps, nil
}

// ListActiveCompetitions returns all active competitions ordered by end date.
func (s *Store) ListActiveCompetitions(ctx context.Context) ([]*domain.Competition, error) {
	return s.queryCompetitions(ctx, `
		SELECT `+competitionColumns+` FROM competitions
		WHERE status = ?
		ORDER BY end_date ASC, id ASC`, string(domain.CompetitionActive))
}

// ListActiveCompetitionsPastEndDate returns active competitions with end_date < today.
func (s *Store) ListActiveCompetitionsPastEndDate(ctx context.Context, today calendar.Date) ([]*domain.Competition, error) {
	return s.queryCompetitions(ctx, `
		SELECT `+competitionColumns+` FROM competitions
		WHERE status = ? AND end_date < ?
		ORDER BY end_date ASC, id ASC`, string(domain.CompetitionActive), today.String())
}

// SetCompetitionStatus moves a competition forward in its lifecycle.
// The transition check and the write share one transaction.
func (s *Store) SetCompetitionStatus(ctx context.Context, competitionID string, status domain.CompetitionStatus) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translate(err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM competitions WHERE id = ?`, competitionID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrCompetitionNotFound
	}
	if err != nil {
		return translate(err)
	}

	from := domain.CompetitionStatus(current)
	if from == status {
		return nil
	}
	if !from.CanTransitionTo(status) {
		return store.ErrInvalidTransition.WithMessage("cannot move competition from " + current + " to " + string(status))
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE competitions SET status = ? WHERE id = ? AND status = ?`,
		string(status), competitionID, current); err != nil {
		return translate(err)
	}
	return translate(tx.Commit())
}
