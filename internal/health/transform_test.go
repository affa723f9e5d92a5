package health

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tahcohcat/stride/internal/models"
)

func TestTransform_AggregatedData(t *testing.T) {
	raw := `{"aggregatedData": [{"startDate": "2024-05-10T00:00:00Z", "value": 4000}]}`

	days, err := Transform([]byte(raw), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, []models.DailySteps{{Steps: 4000, FormattedDate: "2024-05-10"}}, days)
}

func TestTransform_Shapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind envelope
		want []models.DailySteps
	}{
		{
			name: "bare array",
			raw:  `[{"date": "2024-05-11", "steps": 1200}]`,
			kind: envelopeArray,
			want: []models.DailySteps{{Steps: 1200, FormattedDate: "2024-05-11"}},
		},
		{
			name: "data envelope",
			raw:  `{"data": [{"day": "2024-05-12", "count": 800}]}`,
			kind: envelopeData,
			want: []models.DailySteps{{Steps: 800, FormattedDate: "2024-05-12"}},
		},
		{
			name: "health connect nested result",
			raw:  `{"aggregatedData": [{"startTime": "2024-05-13T00:00:00+02:00", "result": {"COUNT_TOTAL": 9100}}]}`,
			kind: envelopeAggregated,
			want: []models.DailySteps{{Steps: 9100, FormattedDate: "2024-05-13"}},
		},
		{
			name: "numeric string count",
			raw:  `[{"formatted_date": "2024-05-14", "stepsCount": "321"}]`,
			kind: envelopeArray,
			want: []models.DailySteps{{Steps: 321, FormattedDate: "2024-05-14"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, kind, err := parseEnvelope([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, kind)

			days, err := Transform([]byte(tt.raw), time.UTC)
			require.NoError(t, err)
			assert.Equal(t, tt.want, days)
		})
	}
}

func TestTransform_SumsSameDate(t *testing.T) {
	raw := `[
		{"startDate": "2024-05-10T06:00:00Z", "steps": 1000},
		{"startDate": "2024-05-10T12:00:00Z", "steps": 2500},
		{"startDate": "2024-05-09T12:00:00Z", "steps": 10},
		{"startDate": "2024-05-10T18:00:00Z", "value": 500}
	]`

	days, err := Transform([]byte(raw), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, []models.DailySteps{
		{Steps: 10, FormattedDate: "2024-05-09"},
		{Steps: 4000, FormattedDate: "2024-05-10"},
	}, days)
}

func TestTransform_DiscardsInvalidRecords(t *testing.T) {
	raw := `{"data": [
		{"steps": 100},
		{"date": "yesterday", "steps": 100},
		{"date": "2024-05-10", "steps": -4},
		{"date": "2024-05-10", "steps": "lots"},
		{"date": "2024-05-10", "steps": null},
		{"date": "2024-05-10"},
		{"date": "2024-05-10", "steps": 1e30},
		{"date": "2024-05-10", "steps": 5e18},
		{"date": "2024-05-10", "steps": 5e18},
		"not an object",
		{"date": "2024-05-11", "steps": 42}
	]}`

	days, err := Transform([]byte(raw), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, []models.DailySteps{{Steps: 42, FormattedDate: "2024-05-11"}}, days)
}

func TestTransform_CapsDailySum(t *testing.T) {
	raw := `[{"date": "2024-05-10", "steps": 2000000000}, {"date": "2024-05-10", "steps": 2000000000}]`

	days, err := Transform([]byte(raw), time.UTC)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, math.MaxInt32, days[0].Steps)
}

func TestTransform_FallsBackToNextStepField(t *testing.T) {
	raw := `[
		{"date": "2024-05-10", "steps": null, "count": 500},
		{"date": "2024-05-11", "steps": "n/a", "value": "75"},
		{"date": "2024-05-12", "steps": -1, "count": 500}
	]`

	days, err := Transform([]byte(raw), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, []models.DailySteps{
		{Steps: 500, FormattedDate: "2024-05-10"},
		{Steps: 75, FormattedDate: "2024-05-11"},
	}, days)
}

func TestTransform_EpochTimestamps(t *testing.T) {
	// 2024-05-10T23:30:00Z
	raw := `[{"startTime": 1715383800000, "steps": 50}, {"timestamp": 1715383800, "steps": 25}]`

	days, err := Transform([]byte(raw), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, []models.DailySteps{{Steps: 75, FormattedDate: "2024-05-10"}}, days)

	tokyo := time.FixedZone("JST", 9*60*60)
	days, err = Transform([]byte(raw), tokyo)
	require.NoError(t, err)
	assert.Equal(t, []models.DailySteps{{Steps: 75, FormattedDate: "2024-05-11"}}, days)
}

func TestTransform_UnknownShape(t *testing.T) {
	for _, raw := range []string{``, `{"records": []}`, `42`, `{"data": "nope"}`, `{broken`} {
		_, err := Transform([]byte(raw), time.UTC)
		assert.ErrorIs(t, err, ErrUnknownShape, raw)
	}
}

func TestTransform_EmptyArray(t *testing.T) {
	days, err := Transform([]byte(`{"aggregatedData": []}`), time.UTC)
	require.NoError(t, err)
	assert.Empty(t, days)
}
