package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitleague/habitleague-server/internal/auth"
	"github.com/habitleague/habitleague-server/internal/calendar"
	"github.com/habitleague/habitleague-server/internal/domain"
	"github.com/habitleague/habitleague-server/internal/ratelimit"
	"github.com/habitleague/habitleague-server/internal/service"
	"github.com/habitleague/habitleague-server/internal/store"
)

// testNow is 2024-03-02 midday UTC.
var testNow = time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)

const testCronKey = "cron-secret"

type testServer struct {
	*Server
	api    humatest.TestAPI
	db     *store.Store
	tokens *auth.TokenService
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := store.New(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	key, err := auth.LoadOrGenerateKey(t.TempDir())
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, 15*time.Minute)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := service.NewClock(time.UTC, func() time.Time { return testNow })
	retry := service.RetryPolicy{Attempts: 2, Backoff: time.Millisecond}

	competitions := service.NewCompetitionService(db, retry, 2, logger)
	services := &Services{
		HabitStats:   service.NewHabitStatsService(db, clock, retry, logger),
		Competitions: competitions,
		Lifecycle: service.NewLifecycleService(db, competitions, clock, retry, service.SweepOptions{
			Workers:            2,
			CompetitionTimeout: time.Second,
		}, logger),
		Clock: clock,
	}

	limiter := ratelimit.PerMinute(1, 1)
	t.Cleanup(limiter.Stop)

	s := NewServer(db, services, tokens, limiter, Options{CronAPIKey: testCronKey}, logger)

	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.api),
		db:     db,
		tokens: tokens,
	}
}

func (ts *testServer) bearer(t *testing.T, userID string) string {
	t.Helper()

	token, err := ts.tokens.GenerateAccessToken(userID)
	require.NoError(t, err)
	return "Authorization: Bearer " + token
}

// seedMarch creates an active March competition where alice has two
// successes and bob one.
func (ts *testServer) seedMarch(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, ts.db.CreateHabit(ctx, &domain.Habit{ID: "habit-alice", OwnerID: "alice", Name: "Read", Type: domain.HabitTypeYesNo}))
	require.NoError(t, ts.db.CreateHabit(ctx, &domain.Habit{ID: "habit-bob", OwnerID: "bob", Name: "Run", Type: domain.HabitTypeYesNo}))

	for _, d := range []string{"2024-03-01", "2024-03-02"} {
		require.NoError(t, ts.db.RecordHabitEvent(ctx, &domain.HabitEvent{
			ID: "alice-" + d, HabitID: "habit-alice", Date: calendar.MustParse(d), BooleanValue: domain.Bool(true),
		}))
	}
	require.NoError(t, ts.db.RecordHabitEvent(ctx, &domain.HabitEvent{
		ID: "bob-2024-03-01", HabitID: "habit-bob", Date: calendar.MustParse("2024-03-01"), BooleanValue: domain.Bool(true),
	}))

	require.NoError(t, ts.db.CreateCompetition(ctx, &domain.Competition{
		ID:        "comp-march",
		CreatorID: "alice",
		Name:      "March",
		GoalType:  domain.GoalTotalCompleted,
		StartDate: calendar.MustParse("2024-03-01"),
		EndDate:   calendar.MustParse("2024-03-31"),
	}))

	joined := time.Date(2024, 2, 28, 9, 0, 0, 0, time.UTC)
	require.NoError(t, ts.db.AddParticipant(ctx, &domain.Participant{CompetitionID: "comp-march", UserID: "bob", JoinedAt: joined}))
	require.NoError(t, ts.db.AddParticipant(ctx, &domain.Participant{CompetitionID: "comp-march", UserID: "alice", JoinedAt: joined.Add(time.Hour)}))
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}

func TestHealthCheck_Success(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	assert.Equal(t, http.StatusOK, resp.Code)

	health := decode[HealthResponse](t, resp.Body.Bytes())
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "healthy", health.Components["store"].Status)
}

func TestHealthCheck_StoreClosed(t *testing.T) {
	ts := setupTestServer(t)
	require.NoError(t, ts.db.Close())

	resp := ts.api.Get("/health")
	assert.Equal(t, http.StatusOK, resp.Code)

	health := decode[HealthResponse](t, resp.Body.Bytes())
	assert.Equal(t, "unhealthy", health.Status)
}

func TestGetHabitStats(t *testing.T) {
	ts := setupTestServer(t)
	ts.seedMarch(t)

	resp := ts.api.Get("/api/v1/habits/habit-alice/stats", ts.bearer(t, "alice"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	stats := decode[HabitStatsResponse](t, resp.Body.Bytes())
	assert.Equal(t, "habit-alice", stats.Habit.ID)
	assert.Equal(t, "YES_NO", stats.Habit.Type)
	assert.Equal(t, "2024-03-02", stats.AsOf)
	assert.Equal(t, 2, stats.CurrentStreak)
	assert.Equal(t, 2, stats.BestStreak)
	assert.Equal(t, 2, stats.TotalSuccesses)
	assert.Equal(t, 7, stats.SuccessRateLast30d)
	require.NotNil(t, stats.LastSuccessDate)
	assert.Equal(t, "2024-03-02", *stats.LastSuccessDate)
	assert.Len(t, stats.Events, 2)
}

func TestGetHabitStats_AsOf(t *testing.T) {
	ts := setupTestServer(t)
	ts.seedMarch(t)

	resp := ts.api.Get("/api/v1/habits/habit-alice/stats?as_of=2024-03-01", ts.bearer(t, "alice"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	stats := decode[HabitStatsResponse](t, resp.Body.Bytes())
	assert.Equal(t, 1, stats.TotalSuccesses)
	assert.Equal(t, "2024-03-01", stats.AsOf)
}

func TestGetHabitStats_Errors(t *testing.T) {
	ts := setupTestServer(t)
	ts.seedMarch(t)

	tests := []struct {
		name   string
		path   string
		args   []any
		status int
		code   string
	}{
		{"no token", "/api/v1/habits/habit-alice/stats", nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"bad token", "/api/v1/habits/habit-alice/stats", []any{"Authorization: Bearer nope"}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"other owner", "/api/v1/habits/habit-alice/stats", []any{ts.bearer(t, "bob")}, http.StatusForbidden, "FORBIDDEN"},
		{"unknown habit", "/api/v1/habits/missing/stats", []any{ts.bearer(t, "alice")}, http.StatusNotFound, "NOT_FOUND"},
		{"bad as_of", "/api/v1/habits/habit-alice/stats?as_of=03/01/2024", []any{ts.bearer(t, "alice")}, http.StatusBadRequest, "VALIDATION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Get(tt.path, tt.args...)
			assert.Equal(t, tt.status, resp.Code, resp.Body.String())

			apiErr := decode[APIError](t, resp.Body.Bytes())
			assert.Equal(t, tt.code, apiErr.Code)
		})
	}
}

func TestGetLeaderboard(t *testing.T) {
	ts := setupTestServer(t)
	ts.seedMarch(t)

	// Active competitions are rescored on every read.
	resp := ts.api.Get("/api/v1/competitions/comp-march/leaderboard", ts.bearer(t, "bob"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	lb := decode[LeaderboardResponse](t, resp.Body.Bytes())
	assert.Equal(t, "comp-march", lb.Competition.ID)
	assert.Equal(t, "TOTAL_COMPLETED", lb.Competition.GoalType)
	assert.True(t, lb.Recomputed)
	assert.False(t, lb.Stale)
	assert.Equal(t, 2, lb.TotalParticipants)
	assert.Equal(t, 2, lb.ParticipantsUpdated)
	require.NotNil(t, lb.LastUpdated)

	require.Len(t, lb.Entries, 2)
	assert.Equal(t, "alice", lb.Entries[0].UserID)
	assert.Equal(t, 2, lb.Entries[0].Score)
	assert.Equal(t, 1, lb.Entries[0].Rank)
	assert.Equal(t, "bob", lb.Entries[1].UserID)
	assert.Equal(t, 2, lb.Entries[1].Rank)
	assert.True(t, lb.Entries[1].IsRequestingUser)

	require.NotNil(t, lb.Me)
	assert.Equal(t, "bob", lb.Me.UserID)
	assert.Equal(t, 2, lb.Me.Rank)
}

func TestGetLeaderboard_NonParticipant(t *testing.T) {
	ts := setupTestServer(t)
	ts.seedMarch(t)

	resp := ts.api.Get("/api/v1/competitions/comp-march/leaderboard", ts.bearer(t, "dave"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	lb := decode[LeaderboardResponse](t, resp.Body.Bytes())
	assert.Nil(t, lb.Me)
	for _, e := range lb.Entries {
		assert.False(t, e.IsRequestingUser)
	}
}

func TestGetLeaderboard_NotFound(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/competitions/missing/leaderboard", ts.bearer(t, "alice"))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestGetLeaderboard_UpdateIsRateLimited(t *testing.T) {
	ts := setupTestServer(t)
	ts.seedMarch(t)

	resp := ts.api.Get("/api/v1/competitions/comp-march/leaderboard?update=true", ts.bearer(t, "alice"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Get("/api/v1/competitions/comp-march/leaderboard?update=true", ts.bearer(t, "alice"))
	require.Equal(t, http.StatusTooManyRequests, resp.Code, resp.Body.String())

	apiErr := decode[struct {
		Code    string         `json:"code"`
		Details map[string]int `json:"details"`
	}](t, resp.Body.Bytes())
	assert.Equal(t, "RATE_LIMITED", apiErr.Code)
	assert.Positive(t, apiErr.Details["retry_after_seconds"])

	// Plain reads and other users are unaffected.
	resp = ts.api.Get("/api/v1/competitions/comp-march/leaderboard", ts.bearer(t, "alice"))
	assert.Equal(t, http.StatusOK, resp.Code)
	resp = ts.api.Get("/api/v1/competitions/comp-march/leaderboard?update=true", ts.bearer(t, "bob"))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestRecomputeCompetition_Forced(t *testing.T) {
	ts := setupTestServer(t)
	ts.seedMarch(t)
	ctx := context.Background()

	require.NoError(t, ts.db.SetCompetitionStatus(ctx, "comp-march", domain.CompetitionFinalized))

	// A finalized competition is read from stored scores.
	resp := ts.api.Get("/api/v1/competitions/comp-march/leaderboard", ts.bearer(t, "alice"))
	require.Equal(t, http.StatusOK, resp.Code)
	lb := decode[LeaderboardResponse](t, resp.Body.Bytes())
	assert.False(t, lb.Recomputed)
	assert.Equal(t, 0, lb.Entries[0].Score)

	resp = ts.api.Post("/api/v1/competitions/comp-march/leaderboard", ts.bearer(t, "alice"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	result := decode[RecomputeResponse](t, resp.Body.Bytes())
	assert.Equal(t, "comp-march", result.CompetitionID)
	assert.Equal(t, 2, result.Participants)
	assert.Equal(t, 2, result.ParticipantsUpdated)

	resp = ts.api.Post("/api/v1/competitions/comp-march/leaderboard", ts.bearer(t, "alice"))
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
}

func TestSweep_RequiresCronKey(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/competitions/sweep")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = ts.api.Post("/api/v1/competitions/sweep", "X-API-Key: wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	// A user token is not a substitute once a cron key is configured.
	resp = ts.api.Post("/api/v1/competitions/sweep", ts.bearer(t, "alice"))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestSweep_Run(t *testing.T) {
	ts := setupTestServer(t)
	ts.seedMarch(t)
	ctx := context.Background()

	require.NoError(t, ts.db.CreateCompetition(ctx, &domain.Competition{
		ID:        "comp-feb",
		CreatorID: "bob",
		Name:      "February",
		GoalType:  domain.GoalMaxStreak,
		StartDate: calendar.MustParse("2024-02-01"),
		EndDate:   calendar.MustParse("2024-02-29"),
	}))

	resp := ts.api.Post("/api/v1/competitions/sweep", "X-API-Key: "+testCronKey)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	report := decode[SweepResponse](t, resp.Body.Bytes())
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 1, report.CompetitionsFinalized)
	assert.Equal(t, 1, report.CompetitionsRecomputed)
	assert.Empty(t, report.CompetitionsFailed)
	assert.Equal(t, 2, report.ParticipantsUpdated)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "comp-march", report.Results[0].CompetitionID)

	feb, err := ts.db.GetCompetition(ctx, "comp-feb")
	require.NoError(t, err)
	assert.Equal(t, domain.CompetitionFinalized, feb.Status)
}

func TestSweep_ListActive(t *testing.T) {
	ts := setupTestServer(t)
	ts.seedMarch(t)

	resp := ts.api.Get("/api/v1/competitions/sweep", "X-API-Key: "+testCronKey)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	list := decode[ListActiveResponse](t, resp.Body.Bytes())
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "comp-march", list.Competitions[0].ID)
	assert.Equal(t, 2, list.Competitions[0].Participants)
	assert.True(t, list.Competitions[0].Started)
	assert.False(t, list.Competitions[0].Ended)
}
