package store

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tahcohcat/stride/internal/models"
)

func seed(t *testing.T, s *Store, clock *fakeClock, days map[string]int) {
	t.Helper()
	for _, d := range []string{"2024-05-01", "2024-05-02", "2024-05-03"} {
		if steps, ok := days[d]; ok {
			_, err := s.Add(models.StepInput{Steps: intPtr(steps), FormattedDate: d})
			require.NoError(t, err)
			clock.Advance(time.Minute)
		}
	}
}

func TestExport(t *testing.T) {
	s, clock := testStore(t)
	seed(t, s, clock, map[string]int{"2024-05-01": 100, "2024-05-03": 300})

	snap, err := s.Export()
	require.NoError(t, err)

	assert.Equal(t, models.SnapshotVersion, snap.Version)
	assert.Equal(t, 2, snap.Metadata.TotalEntries)
	assert.Equal(t, models.DateRange{Start: "2024-05-01", End: "2024-05-03"}, snap.Metadata.DateRange)
	require.NotNil(t, snap.UserProfile)
	assert.Len(t, snap.UserProfile.UserID, 6)
}

func TestImport_OverwriteRoundTrip(t *testing.T) {
	src, clock := testStore(t)
	seed(t, src, clock, map[string]int{"2024-05-01": 100, "2024-05-02": 200, "2024-05-03": 300})
	require.NoError(t, src.UpdateSyncTracking("2024-05-03", nil))

	exported, err := src.Export()
	require.NoError(t, err)
	data, err := json.Marshal(exported)
	require.NoError(t, err)

	dst, _ := testStore(t)
	_, err = dst.Add(models.StepInput{Steps: intPtr(9999), FormattedDate: "2023-01-01"})
	require.NoError(t, err)

	result, err := dst.Import(data, models.ImportOverwrite)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Added)

	again, err := dst.Export()
	require.NoError(t, err)
	assert.Equal(t, exported.StepsData, again.StepsData)
	assert.Equal(t, exported.UserProfile, again.UserProfile)
	assert.Equal(t, "2024-05-03", *dst.SyncTracking().LastSyncedDate)
}

func TestImport_RejectsMissingSections(t *testing.T) {
	s, _ := testStore(t)

	for _, doc := range []string{
		`{"version":"1.0","userProfile":{"userId":"123456"}}`,
		`{"version":"1.0","stepsData":[]}`,
		`{"stepsData":null,"userProfile":null}`,
		`not json`,
	} {
		_, err := s.Import([]byte(doc), models.ImportMerge)
		assert.ErrorIs(t, err, ErrInvalidFormat, doc)
	}
}

func TestImport_MergeKeepsNewerLocal(t *testing.T) {
	s, _ := testStore(t)

	local := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return local }
	_, err := s.Add(models.StepInput{Steps: intPtr(5000), FormattedDate: "2024-05-10"})
	require.NoError(t, err)
	_, err = s.Add(models.StepInput{Steps: intPtr(1000), FormattedDate: "2024-05-11"})
	require.NoError(t, err)

	older := local.Add(-time.Hour)
	newer := local.Add(time.Hour)
	doc := models.Snapshot{
		UserProfile: &models.UserProfile{UserID: "999999", Username: "imported"},
		StepsData: []models.StepEntry{
			{Steps: 1, FormattedDate: "2024-05-10", CreatedAt: older, UpdatedAt: older},
			{Steps: 2000, FormattedDate: "2024-05-11", CreatedAt: older, UpdatedAt: newer},
			{Steps: 700, FormattedDate: "2024-05-12", CreatedAt: older, UpdatedAt: older},
			{Steps: -5, FormattedDate: "2024-05-13"},
		},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	result, err := s.Import(data, models.ImportMerge)
	require.NoError(t, err)
	assert.Equal(t, models.ImportResult{Mode: models.ImportMerge, Added: 1, Updated: 1, Skipped: 1, Rejected: 1}, *result)

	byDate := map[string]int{}
	for _, e := range s.GetAll() {
		byDate[e.FormattedDate] = e.Steps
	}
	assert.Equal(t, map[string]int{"2024-05-10": 5000, "2024-05-11": 2000, "2024-05-12": 700}, byDate)

	assert.NotEqual(t, "999999", s.Profile().UserID)
}

func TestImport_MergeTieKeepsLocal(t *testing.T) {
	s, clock := testStore(t)
	_, err := s.Add(models.StepInput{Steps: intPtr(5000), FormattedDate: "2024-05-10"})
	require.NoError(t, err)

	ts := clock.Now().UTC()
	doc := models.Snapshot{
		UserProfile: &models.UserProfile{},
		StepsData:   []models.StepEntry{{Steps: 1, FormattedDate: "2024-05-10", CreatedAt: ts, UpdatedAt: ts}},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	result, err := s.Import(data, models.ImportMerge)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)

	entry, err := s.Get("2024-05-10")
	require.NoError(t, err)
	assert.Equal(t, 5000, entry.Steps)
}

func TestImport_UnknownMode(t *testing.T) {
	s, _ := testStore(t)
	_, err := s.Import([]byte(`{}`), models.ImportMode("append"))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "mode", verr.Field)
}

func TestImport_OverwriteDropsFutureWatermark(t *testing.T) {
	for name, date := range map[string]string{
		"future":      "2999-01-01",
		"tomorrow":    "2024-05-16",
		"unparseable": "last tuesday",
	} {
		t.Run(name, func(t *testing.T) {
			s, _ := testStore(t)
			data := `{"userProfile": {"userId": "123456", "username": "Walker123456"}, "stepsData": [],
				"syncTracking": {"lastSyncedDate": "` + date + `", "lastSyncedTime": "2024-05-14T20:00:00Z"}}`

			_, err := s.Import([]byte(data), models.ImportOverwrite)
			require.NoError(t, err)

			tracking := s.SyncTracking()
			assert.Nil(t, tracking.LastSyncedDate)
			require.NotNil(t, tracking.LastSyncedTime)
		})
	}
}

func TestImport_OverwriteKeepsPastWatermark(t *testing.T) {
	s, _ := testStore(t)
	data := `{"userProfile": {"userId": "123456", "username": "Walker123456"}, "stepsData": [],
		"syncTracking": {"lastSyncedDate": "2024-05-15"}}`

	_, err := s.Import([]byte(data), models.ImportOverwrite)
	require.NoError(t, err)

	tracking := s.SyncTracking()
	require.NotNil(t, tracking.LastSyncedDate)
	assert.Equal(t, "2024-05-15", *tracking.LastSyncedDate)
}
