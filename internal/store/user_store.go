package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/plogger/backend/internal/models"
	"gorm.io/gorm"
)

// CreateUser registers a user with credentials.
func (s *LogStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.Username != nil {
		if _, err := s.FindUserByUsername(ctx, *user.Username); err == nil {
			return ErrDuplicate
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *LogStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (s *LogStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// UpdatePasswordHash replaces the credential hash of the named user.
func (s *LogStore) UpdatePasswordHash(ctx context.Context, username, passwordHash string) error {
	result := passwordUpdate(s.db.WithContext(ctx), username, passwordHash)
	if result.Error != nil {
		return fmt.Errorf("failed to update password: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func passwordUpdate(tx *gorm.DB, username, passwordHash string) *gorm.DB {
	return tx.Model(&models.User{}).Where("username = ?", username).Update("password_hash", passwordHash)
}
