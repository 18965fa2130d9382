package ultrahuman

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"healthsync/internal/domain"
	apperrors "healthsync/internal/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeRequester struct {
	dates   []string
	respond func(date string) (map[string]any, error)
}

func (f *fakeRequester) Request(ctx context.Context, userID uuid.UUID, endpoint, method string, params map[string]string) (map[string]any, error) {
	f.dates = append(f.dates, params["date"])
	return f.respond(params["date"])
}

type fakeEventStore struct {
	events  []domain.EventRecord
	details []map[string]any
	points  []domain.NormalizedSample
	failAll bool
}

func (f *fakeEventStore) CreateEvent(ctx context.Context, event domain.EventRecord) (uuid.UUID, error) {
	if f.failAll {
		return uuid.Nil, errors.New("storage down")
	}
	f.events = append(f.events, event)
	return uuid.New(), nil
}

func (f *fakeEventStore) CreateEventDetail(ctx context.Context, eventID uuid.UUID, payload map[string]any) error {
	if f.failAll {
		return errors.New("storage down")
	}
	f.details = append(f.details, payload)
	return nil
}

func (f *fakeEventStore) CreateSeriesPoint(ctx context.Context, userID uuid.UUID, sample domain.NormalizedSample) error {
	if f.failAll {
		return errors.New("storage down")
	}
	f.points = append(f.points, sample)
	return nil
}

func newTestData247(requester domain.Requester) *Data247 {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewData247(ProviderName, "https://partner.ultrahuman.com/api/partners/v1", requester, log)
}

func TestNormalizeSleepAPIShape(t *testing.T) {
	d := newTestData247(nil)
	userID := uuid.New()

	raw := jsonMap(t, `{
		"date": "2024-01-15",
		"bedtime_start": 1705309200,
		"bedtime_end": 1705338000,
		"quick_metrics": [
			{"type": "time_in_bed", "value": 28800},
			{"type": "sleep_efic", "value": 85.5}
		],
		"sleep_stages": [
			{"type": "deep_sleep", "stage_time": 5400},
			{"type": "rem_sleep", "stage_time": 7200},
			{"type": "light_sleep", "stage_time": 12600},
			{"type": "awake", "stage_time": 3600}
		],
		"sleep_efficiency": 87.5
	}`)

	rec := d.NormalizeSleep(raw, userID)

	require.Equal(t, userID, rec.UserID)
	require.Equal(t, ProviderName, rec.Provider)
	require.Equal(t, "2024-01-15", rec.Date)
	require.NotNil(t, rec.StartTime)
	require.NotNil(t, rec.EndTime)
	require.Equal(t, time.Unix(1705309200, 0).UTC(), *rec.StartTime)
	require.Equal(t, time.Unix(1705338000, 0).UTC(), *rec.EndTime)
	require.Equal(t, 28800, rec.DurationSeconds)
	// the quick_metrics entry wins over the top-level field
	require.NotNil(t, rec.EfficiencyPercent)
	require.Equal(t, 85.5, *rec.EfficiencyPercent)
	require.Equal(t, 5400, rec.Stages.DeepSeconds)
	require.Equal(t, 7200, rec.Stages.RemSeconds)
	require.Equal(t, 12600, rec.Stages.LightSeconds)
	require.Equal(t, 3600, rec.Stages.AwakeSeconds)
	require.False(t, rec.IsNap)
	require.Empty(t, rec.Timestamp)
}

func TestNormalizeSleepISOShape(t *testing.T) {
	d := newTestData247(nil)
	userID := uuid.New()

	raw := jsonMap(t, `{
		"date": "2025-01-14",
		"bed_time": "2025-01-14T22:00:00Z",
		"wake_time": "2025-01-15T06:00:00Z",
		"total_sleep_duration": 28800,
		"deep_sleep_duration": 3600,
		"rem_sleep_duration": 5400,
		"light_sleep_duration": 19800,
		"sleep_efficiency": 90,
		"is_nap": false
	}`)

	rec := d.NormalizeSleep(raw, userID)

	require.Equal(t, "2025-01-14", rec.Date)
	require.NotNil(t, rec.StartTime)
	require.Equal(t, time.Date(2025, 1, 14, 22, 0, 0, 0, time.UTC), *rec.StartTime)
	require.NotNil(t, rec.EndTime)
	require.Equal(t, time.Date(2025, 1, 15, 6, 0, 0, 0, time.UTC), *rec.EndTime)
	require.Equal(t, 28800, rec.DurationSeconds)
	require.NotNil(t, rec.EfficiencyPercent)
	require.Equal(t, 90.0, *rec.EfficiencyPercent)
	require.False(t, rec.IsNap)
	require.Equal(t, 3600, rec.Stages.DeepSeconds)
	require.Equal(t, 5400, rec.Stages.RemSeconds)
	require.Equal(t, 19800, rec.Stages.LightSeconds)
	require.Equal(t, 0, rec.Stages.AwakeSeconds)
}

func TestNormalizeSleepMinimal(t *testing.T) {
	d := newTestData247(nil)
	userID := uuid.New()

	rec := d.NormalizeSleep(jsonMap(t, `{"date": "2025-01-14"}`), userID)

	require.Nil(t, rec.StartTime)
	require.Nil(t, rec.EndTime)
	require.Equal(t, 0, rec.DurationSeconds)
	require.Nil(t, rec.EfficiencyPercent)
	require.False(t, rec.IsNap)
	require.Equal(t, domain.SleepStages{}, rec.Stages)
	// without a time window the record keeps the calendar date for later correlation
	require.Equal(t, "2025-01-14", rec.Timestamp)
}

func TestNormalizeSleepDurationComputedFromWindow(t *testing.T) {
	d := newTestData247(nil)

	raw := jsonMap(t, `{"date": "2024-01-15", "bedtime_start": 1705309200, "bedtime_end": 1705338000}`)
	rec := d.NormalizeSleep(raw, uuid.New())

	require.Equal(t, 28800, rec.DurationSeconds)
}

func TestNormalizeSleepEfficiencyFallback(t *testing.T) {
	d := newTestData247(nil)

	raw := jsonMap(t, `{"date": "2024-01-15", "sleep_efficiency": 87.5}`)
	rec := d.NormalizeSleep(raw, uuid.New())

	require.NotNil(t, rec.EfficiencyPercent)
	require.Equal(t, 87.5, *rec.EfficiencyPercent)
}

func TestNormalizeSleepUnknownStageTagsIgnored(t *testing.T) {
	d := newTestData247(nil)

	raw := jsonMap(t, `{
		"date": "2024-01-15",
		"sleep_stages": [
			{"type": "deep_sleep", "stage_time": 5400},
			{"type": "lucid_dream", "stage_time": 999}
		]
	}`)
	rec := d.NormalizeSleep(raw, uuid.New())

	require.Equal(t, 5400, rec.Stages.DeepSeconds)
	require.Equal(t, 0, rec.Stages.RemSeconds)
}

func TestNormalizeRecoveryFlatShape(t *testing.T) {
	d := newTestData247(nil)
	userID := uuid.New()

	raw := jsonMap(t, `{"date": "2025-01-14", "recovery_index": 85, "movement_index": 72, "metabolic_score": 78}`)
	rec := d.NormalizeRecovery(raw, userID)

	require.Equal(t, userID, rec.UserID)
	require.Equal(t, ProviderName, rec.Provider)
	require.Equal(t, "2025-01-14", rec.Date)
	require.Equal(t, 85, *rec.RecoveryIndex)
	require.Equal(t, 72, *rec.MovementIndex)
	require.Equal(t, 78, *rec.MetabolicScore)
}

func TestNormalizeRecoveryWrappedShape(t *testing.T) {
	d := newTestData247(nil)

	raw := jsonMap(t, `{
		"date": "2024-01-15",
		"recovery_index": {"value": 78, "unit": "score"},
		"movement_index": {"value": 65, "unit": "score"}
	}`)
	rec := d.NormalizeRecovery(raw, uuid.New())

	require.Equal(t, 78, *rec.RecoveryIndex)
	require.Equal(t, 65, *rec.MovementIndex)
	// absent means "not measured", not zero
	require.Nil(t, rec.MetabolicScore)
}

func TestNormalizeActivitySamplesOrderAndUnits(t *testing.T) {
	d := newTestData247(nil)

	raw := []map[string]any{jsonMap(t, `{
		"type": "hr",
		"values": [
			{"timestamp": 1705309260, "value": 68},
			{"timestamp": 1705309320, "value": 72},
			{"timestamp": 1705309380, "value": 75},
			{"timestamp": 1705309440, "value": 71}
		]
	}`)}

	samples := d.NormalizeActivitySamples(raw, uuid.New())

	require.Len(t, samples, 1)
	hr := samples[domain.SampleHeartRate]
	require.Len(t, hr, 4)
	wantValues := []float64{68, 72, 75, 71}
	for i, s := range hr {
		require.Equal(t, domain.SampleHeartRate, s.Type)
		require.Equal(t, "bpm", s.Unit)
		require.Equal(t, wantValues[i], s.Value)
		require.NotNil(t, s.RecordedAt)
		require.Equal(t, ProviderName, s.Provider)
	}
	require.Equal(t, time.Unix(1705309260, 0).UTC(), *hr[0].RecordedAt)
}

func TestNormalizeActivitySamplesNestedObjectShape(t *testing.T) {
	d := newTestData247(nil)

	raw := []map[string]any{jsonMap(t, `{
		"type": "temp",
		"object": {"values": [{"timestamp": 1705309260, "value": 36.6}, {"timestamp": 1705309320, "value": 36.7}]}
	}`)}

	samples := d.NormalizeActivitySamples(raw, uuid.New())

	temps := samples[domain.SampleTemperature]
	require.Len(t, temps, 2)
	require.Equal(t, "celsius", temps[0].Unit)
	require.Equal(t, 36.6, temps[0].Value)
}

func TestNormalizeActivitySamplesUnknownTagIgnored(t *testing.T) {
	d := newTestData247(nil)

	raw := []map[string]any{
		jsonMap(t, `{"type": "hr", "values": [{"timestamp": 1705309260, "value": 68}]}`),
		jsonMap(t, `{"type": "spo2", "values": [{"timestamp": 1705309260, "value": 98}]}`),
		jsonMap(t, `{"type": "steps", "values": [{"timestamp": 1705309260, "value": 100}]}`),
	}

	samples := d.NormalizeActivitySamples(raw, uuid.New())

	require.Len(t, samples, 2)
	require.Contains(t, samples, domain.SampleHeartRate)
	require.Contains(t, samples, domain.SampleSteps)
	require.NotContains(t, samples, domain.SampleType("spo2"))
}

func TestNormalizeActivitySamplesAccumulateSameType(t *testing.T) {
	d := newTestData247(nil)

	raw := []map[string]any{
		jsonMap(t, `{"type": "hrv", "values": [{"timestamp": 1705309260, "value": 45}]}`),
		jsonMap(t, `{"type": "hrv", "values": [{"timestamp": 1705309320, "value": 52}]}`),
	}

	samples := d.NormalizeActivitySamples(raw, uuid.New())

	hrv := samples[domain.SampleHRV]
	require.Len(t, hrv, 2)
	require.Equal(t, 45.0, hrv[0].Value)
	require.Equal(t, 52.0, hrv[1].Value)
	require.Equal(t, "ms", hrv[0].Unit)
}

func TestNormalizeActivitySamplesDailySummary(t *testing.T) {
	d := newTestData247(nil)

	raw := []map[string]any{jsonMap(t, `{
		"date": "2025-01-14",
		"heart_rate": [{"value": 72}, {"value": 75}],
		"hrv": [{"value": 45}, {"value": 50}],
		"temperature": [{"value": 36.5}, {"value": 36.6}],
		"steps": 8500
	}`)}

	samples := d.NormalizeActivitySamples(raw, uuid.New())

	require.Len(t, samples[domain.SampleHeartRate], 2)
	require.Len(t, samples[domain.SampleHRV], 2)
	require.Len(t, samples[domain.SampleTemperature], 2)
	require.Len(t, samples[domain.SampleSteps], 1)
	require.Equal(t, 72.0, samples[domain.SampleHeartRate][0].Value)
	require.Equal(t, 8500.0, samples[domain.SampleSteps][0].Value)
	// summary entries carry no individual timestamps
	require.Nil(t, samples[domain.SampleHeartRate][0].RecordedAt)
	require.Equal(t, "count", samples[domain.SampleSteps][0].Unit)
}

func TestNormalizeActivitySamplesEmpty(t *testing.T) {
	d := newTestData247(nil)
	samples := d.NormalizeActivitySamples(nil, uuid.New())
	require.Empty(t, samples)
}

func TestFetchDailyMetricsInjectsDate(t *testing.T) {
	doc := jsonMap(t, `{
		"data": {"metric_data": [
			{"type": "Sleep", "object": {"bedtime_start": 1705309200}},
			{"type": "hr", "values": [{"timestamp": 1705309260, "value": 68}]}
		]}
	}`)
	requester := &fakeRequester{respond: func(date string) (map[string]any, error) {
		return doc, nil
	}}
	d := newTestData247(requester)

	items, err := d.FetchDailyMetrics(context.Background(), uuid.New(), "2024-01-15")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, []string{"2024-01-15"}, requester.dates)

	for _, item := range items {
		require.Equal(t, "2024-01-15", item["date"])
	}
	obj := items[0]["object"].(map[string]any)
	require.Equal(t, "2024-01-15", obj["ultrahuman_date"])
}

func TestFetchDailyMetricsMissingPath(t *testing.T) {
	requester := &fakeRequester{respond: func(date string) (map[string]any, error) {
		return map[string]any{}, nil
	}}
	d := newTestData247(requester)

	items, err := d.FetchDailyMetrics(context.Background(), uuid.New(), "2024-01-15")
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestFetchDailyMetricsServerErrorSwallowed(t *testing.T) {
	requester := &fakeRequester{respond: func(date string) (map[string]any, error) {
		return nil, apperrors.NewProviderError(ProviderName, 503, errors.New("upstream down"))
	}}
	d := newTestData247(requester)

	items, err := d.FetchDailyMetrics(context.Background(), uuid.New(), "2024-01-15")
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestFetchDailyMetricsAuthErrorPropagates(t *testing.T) {
	requester := &fakeRequester{respond: func(date string) (map[string]any, error) {
		return nil, apperrors.NewAuthError(ProviderName, errors.New("refresh failed"))
	}}
	d := newTestData247(requester)

	_, err := d.FetchDailyMetrics(context.Background(), uuid.New(), "2024-01-15")
	require.Error(t, err)
	require.True(t, apperrors.IsAuth(err))
}

func syncWindow(days int) (time.Time, time.Time) {
	end := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	return end.AddDate(0, 0, -(days - 1)), end
}

func TestLoadAndSaveAllCounts(t *testing.T) {
	doc := jsonMap(t, `{
		"data": {"metric_data": [
			{"type": "Sleep", "object": {
				"bedtime_start": 1705309200,
				"bedtime_end": 1705338000,
				"sleep_stages": [{"type": "deep_sleep", "stage_time": 5400}]
			}},
			{"type": "recovery_index", "object": {"recovery_index": {"value": 78, "unit": "score"}}},
			{"type": "hr", "object": {"values": [{"timestamp": 1705309260, "value": 68}, {"timestamp": 1705309320, "value": 72}]}},
			{"type": "steps", "object": {"values": [{"timestamp": 1705309260, "value": 100}, {"timestamp": 1705309320, "value": 150}]}}
		]}
	}`)
	requester := &fakeRequester{respond: func(date string) (map[string]any, error) {
		return doc, nil
	}}
	store := &fakeEventStore{}
	d := newTestData247(requester)

	start, end := syncWindow(1)
	result, err := d.LoadAndSaveAll(context.Background(), store, uuid.New(), start, end)
	require.NoError(t, err)

	require.Equal(t, 1, result.SleepSessionsSynced)
	require.Equal(t, 1, result.RecoveryDaysSynced)
	require.Equal(t, 4, result.ActivitySamples)
	require.Equal(t, 0, result.FailedDays)
	require.Empty(t, result.Errors)

	require.Len(t, store.events, 2)
	require.Equal(t, "sleep", store.events[0].Category)
	require.Equal(t, "recovery", store.events[1].Category)
	require.Len(t, store.details, 2)
	require.Len(t, store.points, 4)
	require.Equal(t, "bpm", store.points[0].Unit)
}

func TestLoadAndSaveAllEmptyDay(t *testing.T) {
	requester := &fakeRequester{respond: func(date string) (map[string]any, error) {
		return map[string]any{}, nil
	}}
	store := &fakeEventStore{}
	d := newTestData247(requester)

	start, end := syncWindow(1)
	result, err := d.LoadAndSaveAll(context.Background(), store, uuid.New(), start, end)
	require.NoError(t, err)

	require.Equal(t, 0, result.SleepSessionsSynced)
	require.Equal(t, 0, result.ActivitySamples)
	require.Equal(t, 0, result.RecoveryDaysSynced)
	require.Equal(t, 0, result.FailedDays)
	require.Empty(t, result.Errors)
}

func TestLoadAndSaveAllDefaultWindow(t *testing.T) {
	requester := &fakeRequester{respond: func(date string) (map[string]any, error) {
		return map[string]any{}, nil
	}}
	d := newTestData247(requester)

	// no explicit range: 30 days ending today, both endpoints inclusive
	_, err := d.LoadAndSaveAll(context.Background(), &fakeEventStore{}, uuid.New(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, requester.dates, 31)
}

func TestLoadAndSaveAllPerDayFailure(t *testing.T) {
	requester := &fakeRequester{respond: func(date string) (map[string]any, error) {
		if date == "2024-01-14" {
			return nil, fmt.Errorf("connection reset")
		}
		return map[string]any{}, nil
	}}
	store := &fakeEventStore{}
	d := newTestData247(requester)

	start, end := syncWindow(3)
	result, err := d.LoadAndSaveAll(context.Background(), store, uuid.New(), start, end)
	require.NoError(t, err)

	require.Equal(t, 1, result.FailedDays)
	require.Len(t, result.Errors, 1)
	require.Equal(t, "2024-01-14", result.Errors[0].Date)
	require.Contains(t, result.Errors[0].Error, "connection reset")
	// the other days were still fetched
	require.Len(t, requester.dates, 3)
}

func TestLoadAndSaveAllStorageFailureRecordedPerDay(t *testing.T) {
	doc := jsonMap(t, `{
		"data": {"metric_data": [
			{"type": "Sleep", "object": {"bedtime_start": 1705309200, "bedtime_end": 1705338000}}
		]}
	}`)
	requester := &fakeRequester{respond: func(date string) (map[string]any, error) {
		return doc, nil
	}}
	store := &fakeEventStore{failAll: true}
	d := newTestData247(requester)

	start, end := syncWindow(2)
	result, err := d.LoadAndSaveAll(context.Background(), store, uuid.New(), start, end)
	require.NoError(t, err)

	require.Equal(t, 2, result.FailedDays)
	require.Len(t, result.Errors, 2)
	require.Equal(t, 0, result.SleepSessionsSynced)
}

func TestLoadAndSaveAllAuthAborts(t *testing.T) {
	requester := &fakeRequester{respond: func(date string) (map[string]any, error) {
		if date == "2024-01-13" {
			return nil, apperrors.NewAuthError(ProviderName, errors.New("refresh failed"))
		}
		return map[string]any{}, nil
	}}
	d := newTestData247(requester)

	start, end := syncWindow(5) // 2024-01-11 .. 2024-01-15
	result, err := d.LoadAndSaveAll(context.Background(), &fakeEventStore{}, uuid.New(), start, end)

	require.Error(t, err)
	require.True(t, apperrors.IsAuth(err))
	require.Nil(t, result)
	// no fetches after the fatal day
	require.Equal(t, []string{"2024-01-11", "2024-01-12", "2024-01-13"}, requester.dates)
}

func TestLoadAndSaveAllSkipsSleepWithoutWindow(t *testing.T) {
	doc := jsonMap(t, `{
		"data": {"metric_data": [
			{"type": "Sleep", "object": {"quick_metrics": [{"type": "sleep_efic", "value": 85.5}]}}
		]}
	}`)
	requester := &fakeRequester{respond: func(date string) (map[string]any, error) {
		return doc, nil
	}}
	store := &fakeEventStore{}
	d := newTestData247(requester)

	start, end := syncWindow(1)
	result, err := d.LoadAndSaveAll(context.Background(), store, uuid.New(), start, end)
	require.NoError(t, err)

	require.Equal(t, 0, result.SleepSessionsSynced)
	require.Equal(t, 0, result.FailedDays)
	require.Empty(t, store.events)
}

func TestLoadAndSaveAllIgnoresUntypedItems(t *testing.T) {
	doc := jsonMap(t, `{
		"data": {"metric_data": [
			{"object": {"bedtime_start": 1705309200}},
			{"type": "recovery_index", "object": {"recovery_index": 78}}
		]}
	}`)
	requester := &fakeRequester{respond: func(date string) (map[string]any, error) {
		return doc, nil
	}}
	store := &fakeEventStore{}
	d := newTestData247(requester)

	start, end := syncWindow(1)
	result, err := d.LoadAndSaveAll(context.Background(), store, uuid.New(), start, end)
	require.NoError(t, err)

	require.Equal(t, 0, result.SleepSessionsSynced)
	require.Equal(t, 1, result.RecoveryDaysSynced)
}

func TestLoadAndSaveAllSkipsAllNilRecovery(t *testing.T) {
	doc := jsonMap(t, `{
		"data": {"metric_data": [
			{"type": "recovery_index", "object": {"recovery_index": null}}
		]}
	}`)
	requester := &fakeRequester{respond: func(date string) (map[string]any, error) {
		return doc, nil
	}}
	store := &fakeEventStore{}
	d := newTestData247(requester)

	start, end := syncWindow(1)
	result, err := d.LoadAndSaveAll(context.Background(), store, uuid.New(), start, end)
	require.NoError(t, err)

	require.Equal(t, 0, result.RecoveryDaysSynced)
	require.Empty(t, store.events)
}
