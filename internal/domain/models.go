package domain

import (
	"time"

	"github.com/google/uuid"
)

// DateFormat is the calendar date format exchanged with providers and
// collaborators, always UTC-anchored.
const DateFormat = "2006-01-02"

// SampleType identifies a canonical time-series metric.
type SampleType string

const (
	SampleHeartRate   SampleType = "heart_rate"
	SampleHRV         SampleType = "hrv"
	SampleTemperature SampleType = "temperature"
	SampleSteps       SampleType = "steps"
)

// UnitFor returns the canonical measurement unit for a sample type,
// independent of any unit string present in the source payload.
func UnitFor(t SampleType) string {
	switch t {
	case SampleHeartRate:
		return "bpm"
	case SampleHRV:
		return "ms"
	case SampleTemperature:
		return "celsius"
	case SampleSteps:
		return "count"
	}
	return ""
}

// SleepStages holds per-stage second counts. Absent stages stay at 0.
type SleepStages struct {
	DeepSeconds  int
	RemSeconds   int
	LightSeconds int
	AwakeSeconds int
}

// NormalizedSleep is one provider sleep session mapped to the canonical shape.
// StartTime and EndTime are nil when the source carried no resolvable
// timestamps; Timestamp then holds the calendar date string so the record can
// still be correlated later.
type NormalizedSleep struct {
	UserID            uuid.UUID
	Provider          string
	Date              string // provider-local calendar day, YYYY-MM-DD
	StartTime         *time.Time
	EndTime           *time.Time
	DurationSeconds   int
	EfficiencyPercent *float64
	IsNap             bool
	Stages            SleepStages
	Timestamp         string
}

// NormalizedRecovery is one day's recovery scores. A nil score means "not
// measured today"; zero is a valid measured score.
type NormalizedRecovery struct {
	UserID         uuid.UUID
	Provider       string
	Date           string
	RecoveryIndex  *int
	MovementIndex  *int
	MetabolicScore *int
}

// NormalizedSample is one instantaneous measurement. RecordedAt is nil for
// samples from daily-summary payloads that carry no per-sample timestamp.
type NormalizedSample struct {
	Type       SampleType
	Value      float64
	Unit       string
	RecordedAt *time.Time
	Provider   string
}

// SampleSet groups normalized samples by canonical type. A type that yielded
// zero samples is absent from the map; order within a slice is source order.
type SampleSet map[SampleType][]NormalizedSample

// SyncError records one failed day of a sync window.
type SyncError struct {
	Date  string
	Error string
}

// SyncResult aggregates counters across one sync window.
type SyncResult struct {
	SleepSessionsSynced int
	ActivitySamples     int
	RecoveryDaysSynced  int
	FailedDays          int
	Errors              []SyncError
}

// EventRecord is the storage-facing event shape handed to the EventStore.
type EventRecord struct {
	UserID          uuid.UUID
	Provider        string
	Category        string
	ExternalID      string
	StartDatetime   *time.Time
	EndDatetime     *time.Time
	DurationSeconds int
}

// Connection holds one user's credentials for a provider.
type Connection struct {
	UserID         uuid.UUID
	Provider       string
	ProviderUserID string
	AccessToken    string
	RefreshToken   string
	TokenType      string
	ExpiresAt      *time.Time
}

// TokenResponse is the provider's answer to a token exchange or refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
}

// ProviderUserInfo is the provider-side identity of a connected user.
type ProviderUserInfo struct {
	UserID   string
	Username string
	Email    string
}
