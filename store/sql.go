// Package store provides CredentialStore implementations: a gorm/sqlite
// store for deployments and an in-memory store for tests and examples.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nystai-labs/authcore"
)

type userRow struct {
	ID           string `gorm:"primaryKey;size:36"`
	Name         string `gorm:"size:255"`
	Email        string `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"size:16;not null"`
	OTPDigest    string `gorm:"size:64"`
	OTPExpiry    *time.Time
	OTPAttempts  int `gorm:"not null;default:0"`
	CreatedAt    time.Time
}

func (userRow) TableName() string {
	return "users"
}

// SQL is a gorm-backed [authcore.CredentialStore].
type SQL struct {
	db *gorm.DB
}

// Open opens (or creates) a sqlite database at path and migrates the schema.
func Open(path string) (*SQL, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	return NewSQL(db)
}

// NewSQL wraps an existing gorm handle and migrates the schema. The handle
// must have TranslateError enabled for duplicate detection to work.
func NewSQL(db *gorm.DB) (*SQL, error) {
	if err := db.AutoMigrate(&userRow{}); err != nil {
		return nil, err
	}
	return &SQL{db: db}, nil
}

func (s *SQL) FindByEmail(ctx context.Context, email string) (authcore.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return authcore.User{}, authcore.ErrUserNotFound
		}
		return authcore.User{}, err
	}
	return rowToUser(row), nil
}

func (s *SQL) FindByID(ctx context.Context, id string) (authcore.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return authcore.User{}, authcore.ErrUserNotFound
		}
		return authcore.User{}, err
	}
	return rowToUser(row), nil
}

func (s *SQL) List(ctx context.Context) ([]authcore.User, error) {
	var rows []userRow
	err := s.db.WithContext(ctx).Order("created_at ASC, email ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}

	users := make([]authcore.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, rowToUser(row))
	}
	return users, nil
}

func (s *SQL) Create(ctx context.Context, u authcore.User) (authcore.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	row := userToRow(u)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return authcore.User{}, authcore.ErrDuplicateEmail
		}
		return authcore.User{}, err
	}
	return rowToUser(row), nil
}

func (s *SQL) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return s.updateByID(ctx, id, map[string]interface{}{
		"password_hash": hash,
	})
}

func (s *SQL) UpdateRole(ctx context.Context, id string, role authcore.Role) error {
	return s.updateByID(ctx, id, map[string]interface{}{
		"role": string(role),
	})
}

func (s *SQL) SetOTP(ctx context.Context, id, digest string, expiry time.Time) error {
	return s.updateByID(ctx, id, map[string]interface{}{
		"otp_digest":   digest,
		"otp_expiry":   &expiry,
		"otp_attempts": 0,
	})
}

// IncrementOTPAttempts applies the increment inside the database so
// concurrent failed verifications each land.
func (s *SQL) IncrementOTPAttempts(ctx context.Context, id string) error {
	return s.updateByID(ctx, id, map[string]interface{}{
		"otp_attempts": gorm.Expr("otp_attempts + 1"),
	})
}

func (s *SQL) ClearOTP(ctx context.Context, id string) error {
	return s.updateByID(ctx, id, map[string]interface{}{
		"otp_digest":   "",
		"otp_expiry":   nil,
		"otp_attempts": 0,
	})
}

func (s *SQL) updateByID(ctx context.Context, id string, values map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return authcore.ErrUserNotFound
	}
	return nil
}

func rowToUser(row userRow) authcore.User {
	u := authcore.User{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		Role:         authcore.Role(row.Role),
		OTPDigest:    row.OTPDigest,
		OTPAttempts:  row.OTPAttempts,
		CreatedAt:    row.CreatedAt,
	}
	if row.OTPExpiry != nil {
		u.OTPExpiry = *row.OTPExpiry
	}
	return u
}

func userToRow(u authcore.User) userRow {
	row := userRow{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		OTPDigest:    u.OTPDigest,
		OTPAttempts:  u.OTPAttempts,
		CreatedAt:    u.CreatedAt,
	}
	if !u.OTPExpiry.IsZero() {
		expiry := u.OTPExpiry
		row.OTPExpiry = &expiry
	}
	return row
}
