package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskboss/internal/model"
	"taskboss/internal/reminder"
	"taskboss/internal/repository"
)

// SettingsService reads and replaces a user's reminder settings.
type SettingsService struct {
	repo   *repository.SettingsRepository
	onSave func(userID uint, settings model.ReminderSettings) error
}

func NewSettingsService(repo *repository.SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

// OnSave registers a hook run after every successful save.
func (s *SettingsService) OnSave(fn func(userID uint, settings model.ReminderSettings) error) {
	s.onSave = fn
}

// Get returns the user's settings, creating the defaults on first access.
func (s *SettingsService) Get(ctx context.Context, userID uint) (model.ReminderSettings, error) {
	stored, err := s.repo.Get(ctx, userID)
	switch {
	case err == nil:
		return stored.WithDefaults(), nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		defaults := model.DefaultReminderSettings()
		if err := s.repo.Save(ctx, userID, defaults); err != nil {
			return model.ReminderSettings{}, err
		}
		log.Printf("[info] default reminder settings created user=%d", userID)
		return defaults, nil
	default:
		return model.ReminderSettings{}, fmt.Errorf("load settings: %w", err)
	}
}

// Save validates and stores the whole settings document. Missing sections are
// back-filled only after validation, so an out-of-range window is rejected.
func (s *SettingsService) Save(ctx context.Context, userID uint, settings model.ReminderSettings) (model.ReminderSettings, error) {
	if err := normalizeSettings(&settings); err != nil {
		return model.ReminderSettings{}, err
	}
	settings = settings.WithDefaults()
	if err := s.repo.Save(ctx, userID, settings); err != nil {
		return model.ReminderSettings{}, err
	}
	log.Printf("[info] reminder settings saved user=%d contacts=%d groups=%d", userID, len(settings.Contacts), len(settings.Groups))

	if s.onSave != nil {
		if err := s.onSave(userID, settings); err != nil {
			log.Printf("[warn] reschedule user=%d: %v", userID, err)
		}
	}
	return settings, nil
}

func normalizeSettings(s *model.ReminderSettings) error {
	for i, t := range s.DailyReminders.Times {
		if _, _, err := reminder.ParseClock(t.Time); err != nil {
			return fmt.Errorf("%w: daily reminder %d: %v", ErrValidation, i+1, err)
		}
	}
	if s.DailyReminders.Enabled && strings.TrimSpace(s.DailyReminders.Message) == "" {
		return fmt.Errorf("%w: daily reminder message is empty", ErrValidation)
	}

	if _, _, err := reminder.ParseClock(s.AdvanceReminders.Time); err != nil {
		return fmt.Errorf("%w: advance reminder: %v", ErrValidation, err)
	}
	if s.AdvanceReminders.Days < 1 {
		return fmt.Errorf("%w: advance window must be at least 1 day, got %d", ErrValidation, s.AdvanceReminders.Days)
	}
	if s.AdvanceReminders.Days > 365 {
		return fmt.Errorf("%w: advance window of %d days is too long", ErrValidation, s.AdvanceReminders.Days)
	}
	if s.AdvanceReminders.Enabled && strings.TrimSpace(s.AdvanceReminders.Message) == "" {
		return fmt.Errorf("%w: advance reminder message is empty", ErrValidation)
	}

	s.WhatsApp.APIKey = strings.TrimSpace(s.WhatsApp.APIKey)
	s.WhatsApp.PhoneNumber = strings.TrimSpace(s.WhatsApp.PhoneNumber)

	seen := make(map[string]bool)
	for i := range s.Contacts {
		c := &s.Contacts[i]
		c.Name = strings.TrimSpace(c.Name)
		c.PhoneNumber = strings.TrimSpace(c.PhoneNumber)
		if c.Name == "" || c.PhoneNumber == "" {
			return fmt.Errorf("%w: contact %d needs a name and a phone number", ErrValidation, i+1)
		}
		if seen[c.Name] {
			return fmt.Errorf("%w: duplicate contact %q", ErrValidation, c.Name)
		}
		seen[c.Name] = true
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
	}

	seen = make(map[string]bool)
	for i := range s.Groups {
		g := &s.Groups[i]
		g.Name = strings.TrimSpace(g.Name)
		g.GroupID = strings.TrimSpace(g.GroupID)
		if g.Name == "" || g.GroupID == "" {
			return fmt.Errorf("%w: group %d needs a name and a group id", ErrValidation, i+1)
		}
		if seen[g.Name] {
			return fmt.Errorf("%w: duplicate group %q", ErrValidation, g.Name)
		}
		seen[g.Name] = true
		if g.ID == "" {
			g.ID = uuid.NewString()
		}
	}
	return nil
}
