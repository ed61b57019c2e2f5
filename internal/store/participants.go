package store

import (
	"context"
	"encoding/json"
	"errors"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/habitleague/habitleague-server/internal/domain"
)

// AddParticipant enrolls a user in an existing competition.
func (s *Store) AddParticipant(ctx context.Context, p *domain.Participant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.JoinedAt.IsZero() {
		p.JoinedAt = s.now()
	}

	key := buildKey(participantPrefix, p.CompetitionID, p.UserID)
	defer releaseKey(key)

	err := s.db.Update(func(txn *badger.Txn) error {
		var c domain.Competition
		if err := s.competitions.getTxn(txn, p.CompetitionID, &c); err != nil {
			return err
		}

		_, err := txn.Get(key)
		if err == nil {
			return ErrAlreadyExists.WithMessage("user already participates")
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return set(txn, key, p)
	})
	return translate(err)
}

// GetParticipants returns a competition's participants ordered by join time.
func (s *Store) GetParticipants(ctx context.Context, competitionID string) ([]domain.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := buildKey(participantPrefix, competitionID, "")
	defer releaseKey(prefix)

	var participants []domain.Participant
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var p domain.Participant
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			}); err != nil {
				return err
			}
			participants = append(participants, p)
		}
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}

	slices.SortStableFunc(participants, func(a, b domain.Participant) int {
		return a.JoinedAt.Compare(b.JoinedAt)
	})
	return participants, nil
}

// WriteParticipantScore overwrites one participant's score atomically.
func (s *Store) WriteParticipantScore(ctx context.Context, competitionID, userID string, score int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if score < 0 {
		return ErrInvalidInput.WithMessage("score must not be negative")
	}

	key := buildKey(participantPrefix, competitionID, userID)
	defer releaseKey(key)

	err := s.db.Update(func(txn *badger.Txn) error {
		var p domain.Participant
		if err := get(txn, key, &p); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrParticipantNotFound
			}
			return err
		}
		p.Score = score
		p.ScoreUpdatedAt = s.now()
		return set(txn, key, &p)
	})
	return translate(err)
}
