package services

import (
	"context"
	"fmt"
	"time"

	"healthsync/internal/database"
	"healthsync/internal/domain"
	"healthsync/internal/repository"

	"github.com/google/uuid"
)

// UserService manages users and their provider connections.
type UserService struct {
	users       *repository.UserRepository
	connections *repository.ConnectionRepository
}

func NewUserService(users *repository.UserRepository, connections *repository.ConnectionRepository) *UserService {
	return &UserService{
		users:       users,
		connections: connections,
	}
}

func (s *UserService) RegisterUser(ctx context.Context, email, firstName, lastName string) (*database.User, error) {
	user, err := s.users.GetOrCreateByEmail(ctx, email, firstName, lastName)
	if err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	return user, nil
}

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*database.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ConnectProvider stores a fresh token set for a user/provider pair,
// replacing any previous connection.
func (s *UserService) ConnectProvider(ctx context.Context, userID uuid.UUID, provider, providerUserID string, tokens domain.TokenResponse) error {
	var expiresAt *time.Time
	if tokens.ExpiresIn > 0 {
		t := time.Now().UTC().Add(time.Duration(tokens.ExpiresIn) * time.Second)
		expiresAt = &t
	}

	err := s.connections.Upsert(ctx, domain.Connection{
		UserID:         userID,
		Provider:       provider,
		ProviderUserID: providerUserID,
		AccessToken:    tokens.AccessToken,
		RefreshToken:   tokens.RefreshToken,
		TokenType:      tokens.TokenType,
		ExpiresAt:      expiresAt,
	})
	if err != nil {
		return fmt.Errorf("failed to connect provider: %w", err)
	}
	return nil
}

// SetPersonalRecord updates the user's slow-changing physical attributes.
func (s *UserService) SetPersonalRecord(ctx context.Context, userID uuid.UUID, birthDate *time.Time, gender string) error {
	record := &database.PersonalRecord{
		UserID:    userID,
		BirthDate: birthDate,
		Gender:    gender,
	}
	if err := s.users.SetPersonalRecord(ctx, record); err != nil {
		return fmt.Errorf("failed to set personal record: %w", err)
	}
	return nil
}
