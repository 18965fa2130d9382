package repository

import (
	"context"
	"fmt"
	"time"

	"healthsync/internal/database"
	"healthsync/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConnectionRepository persists provider connections and their tokens.
type ConnectionRepository struct {
	db *gorm.DB
}

func NewConnectionRepository(db *gorm.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

// Get returns the user's connection for a provider, or nil when absent.
func (r *ConnectionRepository) Get(ctx context.Context, userID uuid.UUID, provider string) (*domain.Connection, error) {
	var row database.UserConnection
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}

	return &domain.Connection{
		UserID:         row.UserID,
		Provider:       row.Provider,
		ProviderUserID: row.ProviderUserID,
		AccessToken:    row.AccessToken,
		RefreshToken:   row.RefreshToken,
		TokenType:      row.TokenType,
		ExpiresAt:      row.ExpiresAt,
	}, nil
}

// Upsert creates the connection or replaces its credentials.
func (r *ConnectionRepository) Upsert(ctx context.Context, conn domain.Connection) error {
	var existing database.UserConnection
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", conn.UserID, conn.Provider).
		First(&existing)

	if result.Error == gorm.ErrRecordNotFound {
		row := &database.UserConnection{
			UserID:         conn.UserID,
			Provider:       conn.Provider,
			ProviderUserID: conn.ProviderUserID,
			AccessToken:    conn.AccessToken,
			RefreshToken:   conn.RefreshToken,
			TokenType:      conn.TokenType,
			ExpiresAt:      conn.ExpiresAt,
		}
		if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
			return fmt.Errorf("failed to create connection: %w", err)
		}
		return nil
	}
	if result.Error != nil {
		return fmt.Errorf("failed to get connection: %w", result.Error)
	}

	updates := map[string]any{
		"provider_user_id": conn.ProviderUserID,
		"access_token":     conn.AccessToken,
		"refresh_token":    conn.RefreshToken,
		"token_type":       conn.TokenType,
		"expires_at":       conn.ExpiresAt,
	}
	if err := r.db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update connection: %w", err)
	}
	return nil
}

// UpdateTokens replaces the stored tokens after a refresh.
func (r *ConnectionRepository) UpdateTokens(ctx context.Context, userID uuid.UUID, provider string, tokens domain.TokenResponse) error {
	updates := map[string]any{
		"access_token": tokens.AccessToken,
		"token_type":   tokens.TokenType,
	}
	if tokens.RefreshToken != "" {
		updates["refresh_token"] = tokens.RefreshToken
	}
	if tokens.ExpiresIn > 0 {
		expiresAt := time.Now().UTC().Add(time.Duration(tokens.ExpiresIn) * time.Second)
		updates["expires_at"] = &expiresAt
	}

	err := r.db.WithContext(ctx).
		Model(&database.UserConnection{}).
		Where("user_id = ? AND provider = ?", userID, provider).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update tokens: %w", err)
	}
	return nil
}
