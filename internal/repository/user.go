package repository

import (
	"context"

	"healthsync/internal/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository handles user data operations
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetOrCreateByEmail gets an existing user or creates a new one
func (r *UserRepository) GetOrCreateByEmail(ctx context.Context, email, firstName, lastName string) (*database.User, error) {
	var user database.User
	result := r.db.WithContext(ctx).Where("email = ?", email).First(&user)
	if result.Error == nil {
		return &user, nil
	}

	if result.Error != gorm.ErrRecordNotFound {
		return nil, result.Error
	}

	user = database.User{
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
	}

	if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

// GetByEmail gets a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*database.User, error) {
	var user database.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID gets a user by id
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*database.User, error) {
	var user database.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SetPersonalRecord creates or updates the user's personal record
func (r *UserRepository) SetPersonalRecord(ctx context.Context, record *database.PersonalRecord) error {
	var existing database.PersonalRecord
	result := r.db.WithContext(ctx).Where("user_id = ?", record.UserID).First(&existing)
	if result.Error == gorm.ErrRecordNotFound {
		return r.db.WithContext(ctx).Create(record).Error
	}
	if result.Error != nil {
		return result.Error
	}

	return r.db.WithContext(ctx).Model(&existing).Updates(map[string]any{
		"birth_date": record.BirthDate,
		"gender":     record.Gender,
	}).Error
}

// GetPersonalRecord gets the user's personal record
func (r *UserRepository) GetPersonalRecord(ctx context.Context, userID uuid.UUID) (*database.PersonalRecord, error) {
	var record database.PersonalRecord
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}
