package repository

import (
	"context"
	"encoding/json"

	"healthsync/internal/database"
	"healthsync/internal/domain"
	apperrors "healthsync/internal/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormEventStore persists events, event details and time-series points.
type GormEventStore struct {
	db *gorm.DB
}

func NewGormEventStore(db *gorm.DB) *GormEventStore {
	return &GormEventStore{db: db}
}

// CreateEvent stores one event and returns its generated id.
func (s *GormEventStore) CreateEvent(ctx context.Context, event domain.EventRecord) (uuid.UUID, error) {
	row := &database.EventRecord{
		UserID:          event.UserID,
		ProviderName:    event.Provider,
		Category:        event.Category,
		ExternalID:      event.ExternalID,
		StartDatetime:   event.StartDatetime,
		EndDatetime:     event.EndDatetime,
		DurationSeconds: event.DurationSeconds,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return uuid.Nil, apperrors.NewStorageError(err)
	}
	return row.ID, nil
}

// CreateEventDetail links a JSON payload to an existing event.
func (s *GormEventStore) CreateEventDetail(ctx context.Context, eventID uuid.UUID, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	row := &database.EventDetail{
		EventID: eventID,
		Payload: data,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return apperrors.NewStorageError(err)
	}
	return nil
}

// CreateSeriesPoint stores one time-series sample.
func (s *GormEventStore) CreateSeriesPoint(ctx context.Context, userID uuid.UUID, sample domain.NormalizedSample) error {
	row := &database.DataPointSeries{
		UserID:       userID,
		ProviderName: sample.Provider,
		SeriesType:   string(sample.Type),
		Value:        sample.Value,
		Unit:         sample.Unit,
		RecordedAt:   sample.RecordedAt,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return apperrors.NewStorageError(err)
	}
	return nil
}
