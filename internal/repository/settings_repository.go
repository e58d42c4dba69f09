package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskboss/internal/model"
)

// SettingsRepository stores one reminder settings document per user.
type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns gorm.ErrRecordNotFound when the user has no settings yet.
func (r *SettingsRepository) Get(ctx context.Context, userID uint) (*model.ReminderSettings, error) {
	var rec model.SettingsRecord
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec.Settings, nil
}

// Save replaces the whole document. Concurrent saves resolve to the last writer.
func (r *SettingsRepository) Save(ctx context.Context, userID uint, settings model.ReminderSettings) error {
	rec := model.SettingsRecord{UserID: userID, Settings: settings}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"settings", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
