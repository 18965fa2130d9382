package services

import (
	"context"
	"log/slog"
	"time"

	"healthsync/internal/domain"
	"healthsync/internal/providers"

	"github.com/google/uuid"
)

// SyncService runs provider syncs: it selects the provider strategy by name
// and drives its fetch-normalize-save loop against the event store. One call
// syncs one user for one date range; calls for different users may run
// concurrently since no state is shared between them.
type SyncService struct {
	registry *providers.Registry
	store    domain.EventStore
	log      *slog.Logger
}

func NewSyncService(registry *providers.Registry, store domain.EventStore, log *slog.Logger) *SyncService {
	return &SyncService{
		registry: registry,
		store:    store,
		log:      log,
	}
}

// SyncUser syncs one user's data from a provider over [start, end]
// inclusive. Zero start/end times select the default window of the 30 days
// ending today. The returned result itemizes per-day failures; an auth
// failure returns an error and no result.
func (s *SyncService) SyncUser(ctx context.Context, providerName string, userID uuid.UUID, start, end time.Time) (*domain.SyncResult, error) {
	strategy, err := s.registry.Get(providerName)
	if err != nil {
		return nil, err
	}

	s.log.Info("starting sync",
		slog.String("provider", providerName),
		slog.String("user_id", userID.String()))

	result, err := strategy.Data247().LoadAndSaveAll(ctx, s.store, userID, start, end)
	if err != nil {
		s.log.Error("sync aborted",
			slog.String("provider", providerName),
			slog.String("user_id", userID.String()),
			slog.Any("error", err))
		return nil, err
	}
	return result, nil
}
