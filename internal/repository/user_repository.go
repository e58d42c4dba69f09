package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"taskboss/internal/model"
)

// UserRepository handles CRUD for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// EnsureOwner finds the user with the given email or creates it.
func (r *UserRepository) EnsureOwner(ctx context.Context, name, email string) (*model.User, error) {
	var user model.User
	db := r.db.WithContext(ctx)
	err := db.Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = model.User{Name: name, Email: email}
		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		return &user, nil
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}
}

// UpsertFromTelegram finds or creates a user based on TelegramID and refreshes the display name.
func (r *UserRepository) UpsertFromTelegram(ctx context.Context, telegramID int64, name string) (*model.User, error) {
	var user model.User
	db := r.db.WithContext(ctx)
	err := db.Where("telegram_id = ?", telegramID).First(&user).Error
	switch {
	case err == nil:
		if name != "" && name != user.Name {
			if err := db.Model(&user).Update("name", name).Error; err != nil {
				return nil, fmt.Errorf("update user: %w", err)
			}
		}
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		id := telegramID
		user = model.User{
			Name:       name,
			Email:      fmt.Sprintf("tg-%d@taskboss.local", telegramID),
			TelegramID: &id,
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		return &user, nil
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}
}

// LinkTelegram attaches a Telegram account to an existing user.
func (r *UserRepository) LinkTelegram(ctx context.Context, userID uint, telegramID int64) error {
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).
		Update("telegram_id", telegramID).Error; err != nil {
		return fmt.Errorf("link telegram: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) ListAll(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
