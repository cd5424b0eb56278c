package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// userRecord is the GORM model backing User.
type userRecord struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;not null"`
	Firstname    string `gorm:"not null"`
	Lastname     string `gorm:"not null"`
	PasswordHash string `gorm:"not null"`
	CreatedOn    string `gorm:"not null"`
}

func (userRecord) TableName() string { return "users" }

// GormStore persists users in SQLite via GORM.
type GormStore struct {
	db *gorm.DB
}

// OpenGormStore opens (or creates) the SQLite database at path and runs
// the schema migration. Use ":memory:" for an ephemeral database.
func OpenGormStore(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %s: %w", path, err)
	}
	if err := db.AutoMigrate(&userRecord{}); err != nil {
		return nil, fmt.Errorf("migrate users: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Create inserts a new account. Returns ErrExists if the username is taken.
func (s *GormStore) Create(ctx context.Context, u *User) error {
	rec := userRecord{
		Username:     u.Username,
		Firstname:    u.Firstname,
		Lastname:     u.Lastname,
		PasswordHash: u.PasswordHash,
		CreatedOn:    u.CreatedOn,
	}
	err := s.db.WithContext(ctx).Create(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return ErrExists
		}
		return err
	}
	return nil
}

// ByUsername looks up an account by username.
func (s *GormStore) ByUsername(ctx context.Context, username string) (*User, error) {
	var rec userRecord
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return &User{
		Username:     rec.Username,
		Firstname:    rec.Firstname,
		Lastname:     rec.Lastname,
		PasswordHash: rec.PasswordHash,
		CreatedOn:    rec.CreatedOn,
	}, nil
}

// isUniqueViolation matches the sqlite driver's unique-constraint error,
// which GORM does not always translate.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
