package database

import (
	"fmt"
	"time"

	"healthsync/internal/config"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Email     string `gorm:"uniqueIndex"`
	FirstName string
	LastName  string
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// UserConnection stores one user's OAuth credentials for a provider.
type UserConnection struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	UserID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_provider"`
	Provider       string    `gorm:"not null;uniqueIndex:idx_user_provider"`
	ProviderUserID string
	AccessToken    string
	RefreshToken   string
	TokenType      string
	ExpiresAt      *time.Time

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (c *UserConnection) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// PersonalRecord holds slow-changing physical attributes linked to a user.
type PersonalRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	BirthDate *time.Time
	Gender    string `gorm:"size:64"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (r *PersonalRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// EventRecord is one provider event (a sleep session, a recovery day).
type EventRecord struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	UserID          uuid.UUID `gorm:"type:uuid;not null;index:idx_event_user_start"`
	ProviderName    string    `gorm:"not null;index"`
	Category        string    `gorm:"not null;index"`
	ExternalID      string    `gorm:"index"`
	StartDatetime   *time.Time `gorm:"index:idx_event_user_start,sort:desc"`
	EndDatetime     *time.Time
	DurationSeconds int
}

func (e *EventRecord) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// EventDetail carries the event-linked payload, e.g. a sleep stage breakdown.
type EventDetail struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
	EventID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Payload   []byte    `gorm:"type:jsonb"`

	Event EventRecord `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
}

func (d *EventDetail) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// DataPointSeries is one time-series sample. RecordedAt is null for samples
// that arrive without an individual timestamp.
type DataPointSeries struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt    time.Time
	UserID       uuid.UUID `gorm:"type:uuid;not null;index:idx_series_user_type"`
	ProviderName string    `gorm:"not null"`
	SeriesType   string    `gorm:"not null;index:idx_series_user_type"`
	Value        float64
	Unit         string `gorm:"size:10"`
	RecordedAt   *time.Time `gorm:"index"`
}

func (p *DataPointSeries) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// SeriesTypeDefinition defines the available time-series types and their
// canonical units.
type SeriesTypeDefinition struct {
	ID   uint   `gorm:"primaryKey"`
	Code string `gorm:"size:32;uniqueIndex"`
	Unit string `gorm:"size:10"`
}

var canonicalSeriesTypes = []SeriesTypeDefinition{
	{Code: "heart_rate", Unit: "bpm"},
	{Code: "hrv", Unit: "ms"},
	{Code: "temperature", Unit: "celsius"},
	{Code: "steps", Unit: "count"},
}

func NewPostgresDB(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&User{},
		&UserConnection{},
		&PersonalRecord{},
		&EventRecord{},
		&EventDetail{},
		&DataPointSeries{},
		&SeriesTypeDefinition{},
	); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	if err := seedSeriesTypes(db); err != nil {
		return nil, fmt.Errorf("failed to seed series types: %w", err)
	}

	return db, nil
}

func seedSeriesTypes(db *gorm.DB) error {
	for _, def := range canonicalSeriesTypes {
		if err := db.Where(SeriesTypeDefinition{Code: def.Code}).
			FirstOrCreate(&SeriesTypeDefinition{Code: def.Code, Unit: def.Unit}).Error; err != nil {
			return err
		}
	}
	return nil
}
