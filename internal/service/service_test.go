package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/habitleague/habitleague-server/internal/calendar"
	"github.com/habitleague/habitleague-server/internal/domain"
	"github.com/habitleague/habitleague-server/internal/store"
	"github.com/habitleague/habitleague-server/internal/validation"
)

// testNow is 2024-03-02 midday UTC.
var testNow = time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)

type testServices struct {
	store        store.EventStore
	db           *store.Store
	clock        *Clock
	stats        *HabitStatsService
	competitions *CompetitionService
	lifecycle    *LifecycleService
	catalog      *CatalogService
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRetry() RetryPolicy {
	return RetryPolicy{Attempts: 3, Backoff: time.Millisecond}
}

func setupTestServices(t *testing.T) *testServices {
	t.Helper()

	db, err := store.New(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return newTestServices(db, db)
}

// newTestServices wires services over es; db is the underlying store used
// for fixtures, which may differ when es injects faults.
func newTestServices(es store.EventStore, db *store.Store) *testServices {
	logger := testLogger()
	clock := NewClock(time.UTC, func() time.Time { return testNow })
	competitions := NewCompetitionService(es, testRetry(), 2, logger)

	return &testServices{
		store:        es,
		db:           db,
		clock:        clock,
		stats:        NewHabitStatsService(es, clock, testRetry(), logger),
		competitions: competitions,
		lifecycle: NewLifecycleService(es, competitions, clock, testRetry(), SweepOptions{
			Workers:            2,
			CompetitionTimeout: time.Second,
		}, logger),
		catalog: NewCatalogService(es, validation.New(), clock, logger),
	}
}

func createTestHabit(t *testing.T, s *store.Store, habitID, ownerID string, habitType domain.HabitType) {
	t.Helper()

	require.NoError(t, s.CreateHabit(context.Background(), &domain.Habit{
		ID:      habitID,
		OwnerID: ownerID,
		Name:    "habit " + habitID,
		Type:    habitType,
	}))
}

func recordTestEvent(t *testing.T, s *store.Store, habitID, date string, done bool) {
	t.Helper()

	require.NoError(t, s.RecordHabitEvent(context.Background(), &domain.HabitEvent{
		ID:           habitID + "-" + date,
		HabitID:      habitID,
		Date:         calendar.MustParse(date),
		BooleanValue: domain.Bool(done),
	}))
}

func createTestCompetition(t *testing.T, s *store.Store, id string, goal domain.GoalType, start, end string) *domain.Competition {
	t.Helper()

	c := &domain.Competition{
		ID:        id,
		CreatorID: "user-creator",
		Name:      "competition " + id,
		GoalType:  goal,
		StartDate: calendar.MustParse(start),
		EndDate:   calendar.MustParse(end),
	}
	require.NoError(t, s.CreateCompetition(context.Background(), c))
	return c
}

func joinTestCompetition(t *testing.T, s *store.Store, competitionID, userID string, joinedAt time.Time) {
	t.Helper()

	require.NoError(t, s.AddParticipant(context.Background(), &domain.Participant{
		CompetitionID: competitionID,
		UserID:        userID,
		JoinedAt:      joinedAt,
	}))
}

var errInjected = errors.New("injected failure")

// faultyStore wraps an EventStore and injects failures.
type faultyStore struct {
	store.EventStore

	mu sync.Mutex
	// writeFailures is the number of upcoming score writes that fail with ErrUnavailable;
	// negative fails every write.
	writeFailures int
	// blockParticipants makes GetParticipants for these competitions wait for ctx.
	blockParticipants map[string]bool

	writes        atomic.Int64
	writeAttempts atomic.Int64
}

func (f *faultyStore) WriteParticipantScore(ctx context.Context, competitionID, userID string, score int) error {
	f.writeAttempts.Add(1)

	f.mu.Lock()
	fail := f.writeFailures != 0
	if f.writeFailures > 0 {
		f.writeFailures--
	}
	f.mu.Unlock()

	if fail {
		return store.ErrUnavailable.WithCause(errInjected)
	}
	f.writes.Add(1)
	return f.EventStore.WriteParticipantScore(ctx, competitionID, userID, score)
}

func (f *faultyStore) GetParticipants(ctx context.Context, competitionID string) ([]domain.Participant, error) {
	if f.blockParticipants[competitionID] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.EventStore.GetParticipants(ctx, competitionID)
}

func setupFaultyServices(t *testing.T) (*testServices, *faultyStore) {
	t.Helper()

	db, err := store.New(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	faulty := &faultyStore{EventStore: db, blockParticipants: map[string]bool{}}
	return newTestServices(faulty, db), faulty
}
