package sqlite

import (
	"context"
	"database/sql"

	"github.com/habitleague/habitleague-server/internal/domain"
	"github.com/habitleague/habitleague-server/internal/store"
)

// AddParticipant enrolls a user in an existing competition.
func (s *Store) AddParticipant(ctx context.Context, p *domain.Participant) error {
	if _, err := s.GetCompetition(ctx, p.CompetitionID); err != nil {
		return err
	}
	if p.JoinedAt.IsZero() {
		p.JoinedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO participants (competition_id, user_id, score, joined_at)
		VALUES (?, ?, ?, ?)`,
		p.CompetitionID, p.UserID, p.Score, formatTime(p.JoinedAt))
	return translate(err)
}

// GetParticipants returns a competition's participants ordered by join time.
func (s *Store) GetParticipants(ctx context.Context, competitionID string) ([]domain.Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT competition_id, user_id, score, joined_at, score_updated_at
		FROM participants
		WHERE competition_id = ?
		ORDER BY joined_at ASC, user_id ASC`, competitionID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var participants []domain.Participant
	for rows.Next() {
		var (
			p         domain.Participant
			joinedAt  string
			updatedAt sql.NullString
		)
		if err := rows.Scan(&p.CompetitionID, &p.UserID, &p.Score, &joinedAt, &updatedAt); err != nil {
			return nil, err
		}
		if p.JoinedAt, err = parseTime(joinedAt); err != nil {
			return nil, err
		}
		if p.ScoreUpdatedAt, err = parseNullableTime(updatedAt); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err)
	}
	return participants, nil
}

// WriteParticipantScore overwrites one participant's score in a single-row update.
func (s *Store) WriteParticipantScore(ctx context.Context, competitionID, userID string, score int) error {
	if score < 0 {
		return store.ErrInvalidInput.WithMessage("score must not be negative")
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE participants SET score = ?, score_updated_at = ?
		WHERE competition_id = ? AND user_id = ?`,
		score, formatTime(s.now()), competitionID, userID)
	if err != nil {
		return translate(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrParticipantNotFound
	}
	return nil
}
