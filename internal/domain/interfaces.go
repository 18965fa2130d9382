package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Requester performs an authenticated request against a provider API on
// behalf of a user. Implementations own token loading and a single
// transparent refresh-on-401; an auth error surfaced here means refresh
// already failed and the whole sync must abort.
type Requester interface {
	Request(ctx context.Context, userID uuid.UUID, endpoint, method string, params map[string]string) (map[string]any, error)
}

// EventStore is the event/series storage collaborator. Each call either
// fully succeeds or returns an error; the core never retries.
type EventStore interface {
	CreateEvent(ctx context.Context, event EventRecord) (uuid.UUID, error)
	CreateEventDetail(ctx context.Context, eventID uuid.UUID, payload map[string]any) error
	CreateSeriesPoint(ctx context.Context, userID uuid.UUID, sample NormalizedSample) error
}

// ConnectionStore persists provider credentials per user.
type ConnectionStore interface {
	Get(ctx context.Context, userID uuid.UUID, provider string) (*Connection, error)
	Upsert(ctx context.Context, conn Connection) error
	UpdateTokens(ctx context.Context, userID uuid.UUID, provider string, tokens TokenResponse) error
}

// StateStore keeps short-lived OAuth authorize states keyed by the random
// state string. Consume is one-shot: a state can only be redeemed once.
type StateStore interface {
	Put(ctx context.Context, state string, userID uuid.UUID, ttl time.Duration) error
	Consume(ctx context.Context, state string) (uuid.UUID, bool, error)
}

// OAuthProvider is the OAuth collaborator contract the core consumes.
type OAuthProvider interface {
	AuthorizationURL(ctx context.Context, userID uuid.UUID) (authURL, state string, err error)
	ExchangeToken(ctx context.Context, code string) (*TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error)
}

// ProviderData is the per-provider daily-data capability set: fetch one day's
// raw metrics, normalize them into canonical records, and drive a full
// fetch-normalize-save loop over a date range.
type ProviderData interface {
	FetchDailyMetrics(ctx context.Context, userID uuid.UUID, date string) ([]map[string]any, error)
	NormalizeSleep(raw map[string]any, userID uuid.UUID) NormalizedSleep
	NormalizeRecovery(raw map[string]any, userID uuid.UUID) NormalizedRecovery
	NormalizeActivitySamples(raw []map[string]any, userID uuid.UUID) SampleSet
	LoadAndSaveAll(ctx context.Context, store EventStore, userID uuid.UUID, start, end time.Time) (*SyncResult, error)
}

// ProviderStrategy bundles one provider's components, selected by name from
// the registry. One concrete type per provider.
type ProviderStrategy interface {
	Name() string
	DisplayName() string
	APIBaseURL() string
	OAuth() OAuthProvider
	Data247() ProviderData
}
