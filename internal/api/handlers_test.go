package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tahcohcat/stride/config"
	"github.com/tahcohcat/stride/internal/auth"
	"github.com/tahcohcat/stride/internal/database"
	"github.com/tahcohcat/stride/internal/health"
	"github.com/tahcohcat/stride/internal/leaderboard"
	"github.com/tahcohcat/stride/internal/logger"
	"github.com/tahcohcat/stride/internal/models"
	"github.com/tahcohcat/stride/internal/services"
	"github.com/tahcohcat/stride/internal/stepsync"
	"github.com/tahcohcat/stride/internal/store"
)

var apiNow = time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)

type stubPlatform struct {
	available bool
	body      string
}

func (p *stubPlatform) Name() string { return "stub" }

func (p *stubPlatform) Status(context.Context) (health.Status, error) {
	return health.Status{Available: p.available, PermissionsGranted: p.available}, nil
}

func (p *stubPlatform) RequestPermissions(context.Context) error {
	if !p.available {
		return health.ErrUnavailable
	}
	return nil
}

func (p *stubPlatform) Aggregate(context.Context, health.AggregateRequest) (json.RawMessage, error) {
	return json.RawMessage(p.body), nil
}

type recordedEvent struct {
	Type string
	Data any
}

type eventRecorder struct{ events []recordedEvent }

func (r *eventRecorder) Publish(eventType string, data any) {
	r.events = append(r.events, recordedEvent{eventType, data})
}

type testServer struct {
	handler http.Handler
	store   *store.Store
	events  *eventRecorder
	board   *leaderboard.Client
}

func newTestServer(t *testing.T, platform *stubPlatform) *testServer {
	t.Helper()
	logger.SetOutput(io.Discard)

	db, err := database.NewDB(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := func() time.Time { return apiNow }
	s := store.New(db, store.WithClock(clock), store.WithLocation(time.UTC))

	remote, err := sqlx.Connect("sqlite3", filepath.Join(t.TempDir(), "board.db"))
	require.NoError(t, err)
	remote.SetMaxOpenConns(1)
	board := leaderboard.NewClient(remote)
	t.Cleanup(func() { _ = board.Close() })
	require.NoError(t, board.EnsureSchema(context.Background()))

	engine := stepsync.NewEngine(s, health.NewAdapter(platform, time.UTC), time.UTC, stepsync.WithClock(clock))
	achievements := services.NewAchievementService(s, nil)
	stop := achievements.Start()
	t.Cleanup(stop)

	events := &eventRecorder{}
	h := NewHandler(Deps{
		Store:            s,
		Scheduler:        stepsync.NewScheduler(engine, 0, time.Hour),
		Achievements:     achievements,
		Profiles:         services.NewProfileService(s),
		Leaderboard:      board,
		LeaderboardLimit: 10,
		Events:           events,
		Location:         time.UTC,
		Now:              clock,
	})

	gate := auth.NewGate(config.AuthConfig{SessionSecret: "test-secret-test-secret-test-sec"})
	return &testServer{
		handler: NewRouter(h, gate, nil, []string{"http://localhost:3000"}),
		store:   s,
		events:  events,
		board:   board,
	}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestStepsCRUD(t *testing.T) {
	ts := newTestServer(t, &stubPlatform{})

	rec := ts.do(t, http.MethodPost, "/api/v1/steps", `{"formatted_date": "2024-05-14", "steps": 8200}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var entry models.StepEntry
	decode(t, rec, &entry)
	assert.Equal(t, 8200, entry.Steps)
	require.Len(t, ts.events.events, 1)
	assert.Equal(t, "steps", ts.events.events[0].Type)

	rec = ts.do(t, http.MethodPost, "/api/v1/steps", `{"formatted_date": "2024-05-13", "steps": 100}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/steps", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []models.StepEntry
	decode(t, rec, &entries)
	require.Len(t, entries, 2)
	assert.Equal(t, "2024-05-13", entries[0].FormattedDate)

	rec = ts.do(t, http.MethodGet, "/api/v1/steps?start=2024-05-14&end=2024-05-31", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &entries)
	require.Len(t, entries, 1)

	rec = ts.do(t, http.MethodGet, "/api/v1/steps/2024-05-14", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/v1/steps/2024-05-14", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/steps/2024-05-14", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ts.do(t, http.MethodDelete, "/api/v1/steps/2024-05-14", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStepsValidation(t *testing.T) {
	ts := newTestServer(t, &stubPlatform{})

	for _, body := range []string{
		`{"formatted_date": "2024-05-14", "steps": -1}`,
		`{"formatted_date": "14/05/2024", "steps": 10}`,
		`{"steps": 10}`,
		`{"formatted_date": "2024-05-14"}`,
		`not json`,
	} {
		rec := ts.do(t, http.MethodPost, "/api/v1/steps", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/v1/steps/yesterday", "").Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/v1/steps?start=bad", "").Code)
}

func TestStats(t *testing.T) {
	ts := newTestServer(t, &stubPlatform{})
	ts.do(t, http.MethodPost, "/api/v1/steps", `{"formatted_date": "2024-05-14", "steps": 3000}`)
	ts.do(t, http.MethodPost, "/api/v1/steps", `{"formatted_date": "2024-05-15", "steps": 5000}`)

	rec := ts.do(t, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary struct {
		TotalSteps    int `json:"totalSteps"`
		CurrentStreak int `json:"currentStreak"`
	}
	decode(t, rec, &summary)
	assert.Equal(t, 8000, summary.TotalSteps)
	assert.Equal(t, 2, summary.CurrentStreak)
}

func TestSyncEndpoints(t *testing.T) {
	ts := newTestServer(t, &stubPlatform{available: true, body: `[{"date": "2024-05-15", "steps": 4321}]`})

	rec := ts.do(t, http.MethodPost, "/api/v1/sync", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result models.SyncResult
	decode(t, rec, &result)
	assert.True(t, result.Success)
	assert.Equal(t, "2024-05-01", result.StartDate)
	require.NotNil(t, result.TodaySteps)
	assert.Equal(t, 4321, *result.TodaySteps)

	rec = ts.do(t, http.MethodPost, "/api/v1/sync", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/sync/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status stepsync.Status
	decode(t, rec, &status)
	assert.Equal(t, "stub", status.Platform)
	require.NotNil(t, status.Tracking.LastSyncedDate)
	assert.Equal(t, "2024-05-15", *status.Tracking.LastSyncedDate)

	rec = ts.do(t, http.MethodPost, "/api/v1/health/permissions", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSyncWithoutPlatform(t *testing.T) {
	ts := newTestServer(t, &stubPlatform{})

	rec := ts.do(t, http.MethodPost, "/api/v1/sync", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var result models.SyncResult
	decode(t, rec, &result)
	assert.False(t, result.Success)
	assert.False(t, result.HealthConnectAvailable)

	rec = ts.do(t, http.MethodPost, "/api/v1/health/permissions", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProfileAndBadgeSelection(t *testing.T) {
	ts := newTestServer(t, &stubPlatform{})

	rec := ts.do(t, http.MethodGet, "/api/v1/profile", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var profile models.UserProfile
	decode(t, rec, &profile)
	assert.Equal(t, "Walker"+profile.UserID, profile.Username)

	rec = ts.do(t, http.MethodPut, "/api/v1/profile", `{"username": "Strider", "weight_kg": 81}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &profile)
	assert.Equal(t, "Strider", profile.Username)
	assert.Equal(t, 81.0, profile.WeightKg)

	rec = ts.do(t, http.MethodPut, "/api/v1/profile", `{"height_cm": 5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/v1/profile/badge", `{"badge": 2}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	ts.do(t, http.MethodPost, "/api/v1/steps", `{"formatted_date": "2024-05-14", "steps": 26000}`)

	rec = ts.do(t, http.MethodPut, "/api/v1/profile/badge", `{"badge": 2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &profile)
	require.NotNil(t, profile.SelectedBadge)
	assert.Equal(t, 2, *profile.SelectedBadge)

	rec = ts.do(t, http.MethodPut, "/api/v1/profile/badge", `{"badge": "first step"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &profile)
	assert.Equal(t, 1, *profile.SelectedBadge)

	rec = ts.do(t, http.MethodPut, "/api/v1/profile/badge", `{"badge": 42}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/v1/profile/badge", `{"badge": null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &profile)
	assert.Nil(t, profile.SelectedBadge)
}

func TestAchievementEndpoints(t *testing.T) {
	ts := newTestServer(t, &stubPlatform{})
	ts.do(t, http.MethodPost, "/api/v1/steps", `{"formatted_date": "2024-01-01", "steps": 60000}`)
	ts.do(t, http.MethodPost, "/api/v1/steps", `{"formatted_date": "2024-01-02", "steps": 50000}`)

	rec := ts.do(t, http.MethodGet, "/api/v1/achievements", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var overview services.Overview
	decode(t, rec, &overview)
	assert.Equal(t, 110_000, overview.TotalSteps)
	assert.True(t, overview.Milestones[1].Crossed)
	assert.Equal(t, "2024-01-02", overview.Milestones[1].Date)
	assert.True(t, overview.Badges[1].Unlocked)

	rec = ts.do(t, http.MethodGet, "/api/v1/achievements/notifications", "")
	var notifications []models.Notification
	decode(t, rec, &notifications)
	assert.Len(t, notifications, 2)

	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodPost, "/api/v1/milestones/50000/dismiss", "").Code)
	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodPost, "/api/v1/milestones/100000/unwrap", "").Code)
	assert.Equal(t, http.StatusConflict, ts.do(t, http.MethodPost, "/api/v1/milestones/250000/unwrap", "").Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPost, "/api/v1/milestones/7/dismiss", "").Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/v1/milestones/lots/dismiss", "").Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/achievements/notifications", "")
	decode(t, rec, &notifications)
	assert.Empty(t, notifications)
}

func TestLeaderboardEndpoint(t *testing.T) {
	ts := newTestServer(t, &stubPlatform{})
	ctx := context.Background()

	ts.do(t, http.MethodPost, "/api/v1/steps", `{"formatted_date": "2024-05-14", "steps": 1000}`)
	profile, err := ts.store.EnsureProfile()
	require.NoError(t, err)
	require.NoError(t, ts.board.UpsertDailySteps(ctx, profile.UserID, "2024-05-14", 1000))
	require.NoError(t, ts.board.UpsertDailySteps(ctx, "999999", "2024-05-14", 5000))

	rec := ts.do(t, http.MethodGet, "/api/v1/leaderboard?period=yesterday", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var response struct {
		Leaderboard leaderboard.Board `json:"leaderboard"`
		Me          *leaderboard.Entry `json:"me"`
	}
	decode(t, rec, &response)
	require.Len(t, response.Leaderboard.Entries, 2)
	assert.Equal(t, "999999", response.Leaderboard.Entries[0].UserID)
	require.NotNil(t, response.Me)
	assert.Equal(t, 2, response.Me.Rank)

	rec = ts.do(t, http.MethodGet, "/api/v1/leaderboard?period=monthly", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportImport(t *testing.T) {
	ts := newTestServer(t, &stubPlatform{})
	ts.do(t, http.MethodPost, "/api/v1/steps", `{"formatted_date": "2024-05-14", "steps": 1234}`)

	rec := ts.do(t, http.MethodGet, "/api/v1/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "stride-export-2024-05-15.json")
	exported := rec.Body.String()

	ts.do(t, http.MethodDelete, "/api/v1/steps/2024-05-14", "")

	rec = ts.do(t, http.MethodPost, "/api/v1/import?mode=overwrite", exported)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result models.ImportResult
	decode(t, rec, &result)
	assert.Equal(t, 1, result.Added)

	entry, err := ts.store.Get("2024-05-14")
	require.NoError(t, err)
	assert.Equal(t, 1234, entry.Steps)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/v1/import", `{"stepsData": []}`).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/v1/import?mode=append", exported).Code)
}

func TestPutWeather(t *testing.T) {
	ts := newTestServer(t, &stubPlatform{})
	ts.do(t, http.MethodPost, "/api/v1/steps", `{"formatted_date": "2024-05-14", "steps": 6000}`)

	rec := ts.do(t, http.MethodPut, "/api/v1/weather/2024-05-14", `{"condition": "rain", "precipitation_mm": 6.5}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var day models.WeatherDay
	decode(t, rec, &day)
	assert.Equal(t, "2024-05-14", day.Date)

	rec = ts.do(t, http.MethodGet, "/api/v1/achievements", "")
	var overview services.Overview
	decode(t, rec, &overview)
	assert.True(t, overview.Badges[8].Unlocked, "weather change re-evaluates badges")

	rec = ts.do(t, http.MethodPut, "/api/v1/weather/2024-05-14", `{"condition": "hail"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthzIsPublic(t *testing.T) {
	ts := newTestServer(t, &stubPlatform{})
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/healthz", "").Code)
}

func TestRouterRequiresLoginWhenPasswordSet(t *testing.T) {
	ts := newTestServer(t, &stubPlatform{})

	hash, err := auth.HashPassword("open sesame")
	require.NoError(t, err)
	gate := auth.NewGate(config.AuthConfig{PasswordHash: hash, SessionSecret: "test-secret-test-secret-test-sec"})
	router := NewRouter(NewHandler(Deps{Store: ts.store}), gate, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/steps", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"password": "open sesame"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/steps", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
