package ultrahuman

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"healthsync/internal/domain"
	apperrors "healthsync/internal/errors"

	"github.com/google/uuid"
)

const (
	metricsEndpoint = "/user_data/metrics"

	// defaultSyncDays is the lookback window when no explicit range is
	// given: 30 days ending today, both endpoints inclusive.
	defaultSyncDays = 30
)

// sampleTypeTags maps Ultrahuman series tags to canonical sample types.
// Unrecognized tags are ignored.
var sampleTypeTags = map[string]domain.SampleType{
	"hr":    domain.SampleHeartRate,
	"hrv":   domain.SampleHRV,
	"temp":  domain.SampleTemperature,
	"steps": domain.SampleSteps,
}

// summaryArrayKeys maps the daily-summary parallel-array keys to canonical
// sample types. Summary entries carry values without individual timestamps.
var summaryArrayKeys = []struct {
	key string
	typ domain.SampleType
}{
	{"heart_rate", domain.SampleHeartRate},
	{"hrv", domain.SampleHRV},
	{"temperature", domain.SampleTemperature},
}

// saveOrder fixes the iteration order over a SampleSet when persisting, so a
// day's series points land in a stable order.
var saveOrder = []domain.SampleType{
	domain.SampleHeartRate,
	domain.SampleHRV,
	domain.SampleTemperature,
	domain.SampleSteps,
}

// Data247 fetches and normalizes Ultrahuman 24/7 data: sleep sessions,
// recovery scores and activity sample series.
type Data247 struct {
	providerName string
	apiBaseURL   string
	requester    domain.Requester
	log          *slog.Logger
}

func NewData247(providerName, apiBaseURL string, requester domain.Requester, log *slog.Logger) *Data247 {
	return &Data247{
		providerName: providerName,
		apiBaseURL:   apiBaseURL,
		requester:    requester,
		log:          log,
	}
}

// FetchDailyMetrics fetches all raw metric items for one calendar day and
// stamps each item with the requested date so downstream normalization can
// recover it even when the payload's own timestamps are missing.
//
// A 5xx-class upstream failure is treated as "no data this day" and returns
// an empty sequence. An auth failure propagates: the requester has already
// tried a token refresh, so a 401 reaching this layer is terminal.
func (d *Data247) FetchDailyMetrics(ctx context.Context, userID uuid.UUID, date string) ([]map[string]any, error) {
	doc, err := d.requester.Request(ctx, userID, metricsEndpoint, http.MethodGet, map[string]string{"date": date})
	if err != nil {
		if apperrors.IsProvider(err) {
			d.log.Warn("upstream error fetching daily metrics, skipping day",
				slog.String("provider", d.providerName), slog.String("date", date), slog.Any("error", err))
			return []map[string]any{}, nil
		}
		return nil, err
	}

	items := metricItems(doc)
	for _, item := range items {
		item["date"] = date
		if obj, ok := item["object"].(map[string]any); ok {
			obj["ultrahuman_date"] = date
		}
	}
	return items, nil
}

// metricItems digs data.metric_data out of the response document. An absent
// or empty path yields an empty sequence, not an error.
func metricItems(doc map[string]any) []map[string]any {
	data, ok := doc["data"].(map[string]any)
	if !ok {
		return []map[string]any{}
	}
	raw, ok := data["metric_data"].([]any)
	if !ok {
		return []map[string]any{}
	}
	items := make([]map[string]any, 0, len(raw))
	for _, v := range raw {
		if m, isMap := v.(map[string]any); isMap {
			items = append(items, m)
		}
	}
	return items
}

// NormalizeSleep maps one raw sleep payload to the canonical record.
// Field names vary between API exports: timestamps may arrive as
// bedtime_start/bedtime_end epoch seconds or bed_time/wake_time ISO strings,
// stages as a sleep_stages sequence or flat *_duration fields. Missing
// fields degrade to nil or zero, never to an error.
func (d *Data247) NormalizeSleep(raw map[string]any, userID uuid.UUID) domain.NormalizedSleep {
	date := stringField(raw, "date", "ultrahuman_date")

	start := timeField(raw, "bedtime_start", "bed_time")
	end := timeField(raw, "bedtime_end", "wake_time")

	duration := 0
	if v, ok := numberValue(raw["total_sleep_duration"]); ok {
		duration = int(v)
	} else if start != nil && end != nil {
		duration = int(end.Sub(*start).Seconds())
	}

	rec := domain.NormalizedSleep{
		UserID:            userID,
		Provider:          d.providerName,
		Date:              date,
		StartTime:         start,
		EndTime:           end,
		DurationSeconds:   duration,
		EfficiencyPercent: sleepEfficiency(raw),
		IsNap:             boolField(raw, "is_nap"),
		Stages:            sleepStages(raw),
	}
	if start == nil && end == nil {
		rec.Timestamp = date
	}
	return rec
}

// sleepEfficiency resolves the efficiency percentage: the quick_metrics
// sleep_efic entry wins, then the top-level sleep_efficiency field, then nil.
func sleepEfficiency(raw map[string]any) *float64 {
	for _, qm := range entriesOf(raw, "quick_metrics") {
		if tag, _ := qm["type"].(string); tag == "sleep_efic" {
			if v, ok := numberValue(qm["value"]); ok {
				return &v
			}
		}
	}
	return floatField(raw, "sleep_efficiency")
}

// sleepStages scans the sleep_stages sequence, mapping known stage tags and
// ignoring unknown ones. Exports without the sequence carry flat
// *_duration fields instead.
func sleepStages(raw map[string]any) domain.SleepStages {
	var stages domain.SleepStages
	entries := entriesOf(raw, "sleep_stages")
	if len(entries) == 0 {
		return domain.SleepStages{
			DeepSeconds:  intField(raw, "deep_sleep_duration"),
			RemSeconds:   intField(raw, "rem_sleep_duration"),
			LightSeconds: intField(raw, "light_sleep_duration"),
			AwakeSeconds: intField(raw, "awake_duration"),
		}
	}
	for _, entry := range entries {
		seconds := intField(entry, "stage_time")
		switch tag, _ := entry["type"].(string); tag {
		case "deep_sleep":
			stages.DeepSeconds = seconds
		case "rem_sleep":
			stages.RemSeconds = seconds
		case "light_sleep":
			stages.LightSeconds = seconds
		case "awake":
			stages.AwakeSeconds = seconds
		}
	}
	return stages
}

// NormalizeRecovery maps a raw recovery payload to the canonical record.
// Each score is accepted as a bare number or a {value, unit} object; an
// absent score stays nil.
func (d *Data247) NormalizeRecovery(raw map[string]any, userID uuid.UUID) domain.NormalizedRecovery {
	return domain.NormalizedRecovery{
		UserID:         userID,
		Provider:       d.providerName,
		Date:           stringField(raw, "date", "ultrahuman_date"),
		RecoveryIndex:  intScore(raw, "recovery_index"),
		MovementIndex:  intScore(raw, "movement_index"),
		MetabolicScore: intScore(raw, "metabolic_score"),
	}
}

// NormalizeActivitySamples maps raw sample-series items to canonical sample
// sequences grouped by type. Items with a recognized type tag contribute
// their timestamped values; a daily-summary item contributes its parallel
// arrays and scalar step count as untimestamped samples. Items of the same
// type accumulate in encounter order; unrecognized items are ignored.
func (d *Data247) NormalizeActivitySamples(raw []map[string]any, userID uuid.UUID) domain.SampleSet {
	out := domain.SampleSet{}

	for _, item := range raw {
		tag, _ := item["type"].(string)
		if canonical, ok := sampleTypeTags[tag]; ok {
			for _, v := range valuesOf(item) {
				value, ok := numberValue(v["value"])
				if !ok {
					continue
				}
				var recordedAt *time.Time
				if ts, present := v["timestamp"]; present {
					recordedAt = epochTime(ts)
				}
				out[canonical] = append(out[canonical], domain.NormalizedSample{
					Type:       canonical,
					Value:      value,
					Unit:       domain.UnitFor(canonical),
					RecordedAt: recordedAt,
					Provider:   d.providerName,
				})
			}
			continue
		}

		d.appendSummarySamples(item, out)
	}
	return out
}

// appendSummarySamples handles the daily-summary shape: parallel arrays of
// {value} entries keyed by canonical name, plus a scalar steps count that
// becomes exactly one sample.
func (d *Data247) appendSummarySamples(item map[string]any, out domain.SampleSet) {
	for _, arr := range summaryArrayKeys {
		for _, entry := range entriesOf(item, arr.key) {
			value, ok := numberValue(entry["value"])
			if !ok {
				continue
			}
			out[arr.typ] = append(out[arr.typ], domain.NormalizedSample{
				Type:     arr.typ,
				Value:    value,
				Unit:     domain.UnitFor(arr.typ),
				Provider: d.providerName,
			})
		}
	}
	if steps, ok := numberValue(item["steps"]); ok {
		out[domain.SampleSteps] = append(out[domain.SampleSteps], domain.NormalizedSample{
			Type:     domain.SampleSteps,
			Value:    steps,
			Unit:     domain.UnitFor(domain.SampleSteps),
			Provider: d.providerName,
		})
	}
}

// LoadAndSaveAll drives one sync window [start, end] inclusive, one calendar
// day at a time. Per-day failures are recorded in the result and the loop
// continues; an auth failure aborts the remaining range immediately with no
// result. When start or end is zero the window defaults to the 30 days
// ending today.
func (d *Data247) LoadAndSaveAll(ctx context.Context, store domain.EventStore, userID uuid.UUID, start, end time.Time) (*domain.SyncResult, error) {
	if start.IsZero() || end.IsZero() {
		end = time.Now().UTC()
		start = end.AddDate(0, 0, -defaultSyncDays)
	}

	day := dateOf(start)
	last := dateOf(end)

	result := &domain.SyncResult{Errors: []domain.SyncError{}}
	for !day.After(last) {
		date := day.Format(domain.DateFormat)
		if err := d.syncDay(ctx, store, userID, date, result); err != nil {
			if apperrors.IsAuth(err) {
				return nil, err
			}
			result.FailedDays++
			result.Errors = append(result.Errors, domain.SyncError{Date: date, Error: err.Error()})
			d.log.Warn("day sync failed",
				slog.String("provider", d.providerName), slog.String("date", date), slog.Any("error", err))
		}
		day = day.AddDate(0, 0, 1)
	}

	d.log.Info("sync window completed",
		slog.String("provider", d.providerName),
		slog.Int("sleep_sessions", result.SleepSessionsSynced),
		slog.Int("activity_samples", result.ActivitySamples),
		slog.Int("recovery_days", result.RecoveryDaysSynced),
		slog.Int("failed_days", result.FailedDays))
	return result, nil
}

// syncDay fetches one day, routes items by type tag to the matching
// normalizer and persists the canonical records.
func (d *Data247) syncDay(ctx context.Context, store domain.EventStore, userID uuid.UUID, date string, result *domain.SyncResult) error {
	items, err := d.FetchDailyMetrics(ctx, userID, date)
	if err != nil {
		return err
	}

	var sampleItems []map[string]any
	recoveryPayload := map[string]any{}

	for _, item := range items {
		tag, _ := item["type"].(string)
		switch {
		case tag == "":
			// malformed item, ignore
		case strings.EqualFold(tag, "sleep"):
			rec := d.NormalizeSleep(objectOf(item), userID)
			saved, err := d.saveSleep(ctx, store, rec)
			if err != nil {
				return err
			}
			result.SleepSessionsSynced += saved
		case tag == "recovery_index" || tag == "movement_index" || tag == "metabolic_score":
			for k, v := range objectOf(item) {
				recoveryPayload[k] = v
			}
		default:
			sampleItems = append(sampleItems, item)
		}
	}

	if len(recoveryPayload) > 0 {
		recoveryPayload["date"] = date
		rec := d.NormalizeRecovery(recoveryPayload, userID)
		saved, err := d.saveRecovery(ctx, store, rec)
		if err != nil {
			return err
		}
		result.RecoveryDaysSynced += saved
	}

	if len(sampleItems) > 0 {
		samples := d.NormalizeActivitySamples(sampleItems, userID)
		saved, err := d.saveSamples(ctx, store, userID, samples)
		if err != nil {
			return err
		}
		result.ActivitySamples += saved
	}
	return nil
}

// saveSleep persists one sleep session as an event plus a stage-detail
// record. A record with no resolvable start carries no storage value and is
// skipped outright.
func (d *Data247) saveSleep(ctx context.Context, store domain.EventStore, rec domain.NormalizedSleep) (int, error) {
	if rec.StartTime == nil {
		return 0, nil
	}

	eventID, err := store.CreateEvent(ctx, domain.EventRecord{
		UserID:          rec.UserID,
		Provider:        rec.Provider,
		Category:        "sleep",
		ExternalID:      fmt.Sprintf("%s-sleep-%s", rec.Provider, rec.Date),
		StartDatetime:   rec.StartTime,
		EndDatetime:     rec.EndTime,
		DurationSeconds: rec.DurationSeconds,
	})
	if err != nil {
		return 0, err
	}

	detail := map[string]any{
		"deep_seconds":  rec.Stages.DeepSeconds,
		"rem_seconds":   rec.Stages.RemSeconds,
		"light_seconds": rec.Stages.LightSeconds,
		"awake_seconds": rec.Stages.AwakeSeconds,
		"is_nap":        rec.IsNap,
	}
	if rec.EfficiencyPercent != nil {
		detail["efficiency_percent"] = *rec.EfficiencyPercent
	}
	if err := store.CreateEventDetail(ctx, eventID, detail); err != nil {
		return 0, err
	}
	return 1, nil
}

// saveRecovery persists one recovery day. A record where every score is nil
// has nothing to persist and is skipped.
func (d *Data247) saveRecovery(ctx context.Context, store domain.EventStore, rec domain.NormalizedRecovery) (int, error) {
	if rec.RecoveryIndex == nil && rec.MovementIndex == nil && rec.MetabolicScore == nil {
		return 0, nil
	}

	start := dayStart(rec.Date)
	eventID, err := store.CreateEvent(ctx, domain.EventRecord{
		UserID:        rec.UserID,
		Provider:      rec.Provider,
		Category:      "recovery",
		ExternalID:    fmt.Sprintf("%s-recovery-%s", rec.Provider, rec.Date),
		StartDatetime: start,
	})
	if err != nil {
		return 0, err
	}

	detail := map[string]any{}
	if rec.RecoveryIndex != nil {
		detail["recovery_index"] = *rec.RecoveryIndex
	}
	if rec.MovementIndex != nil {
		detail["movement_index"] = *rec.MovementIndex
	}
	if rec.MetabolicScore != nil {
		detail["metabolic_score"] = *rec.MetabolicScore
	}
	if err := store.CreateEventDetail(ctx, eventID, detail); err != nil {
		return 0, err
	}
	return 1, nil
}

// saveSamples persists every normalized sample and returns the total count.
func (d *Data247) saveSamples(ctx context.Context, store domain.EventStore, userID uuid.UUID, samples domain.SampleSet) (int, error) {
	saved := 0
	for _, typ := range saveOrder {
		for _, sample := range samples[typ] {
			if err := store.CreateSeriesPoint(ctx, userID, sample); err != nil {
				return saved, err
			}
			saved++
		}
	}
	return saved, nil
}

// dateOf truncates an instant to its UTC calendar day.
func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// dayStart parses a YYYY-MM-DD date into its midnight UTC instant.
func dayStart(date string) *time.Time {
	t, err := time.Parse(domain.DateFormat, date)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
