package cli

import (
	"context"
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"taskboss/internal/config"
	"taskboss/internal/model"
	"taskboss/internal/repository"
	"taskboss/internal/service"
	"taskboss/internal/whatsapp"
)

// app holds the wiring shared by serve and remind.
type app struct {
	cfg       config.Config
	db        *gorm.DB
	users     *repository.UserRepository
	tasks     *service.TaskService
	settings  *service.SettingsService
	reminders *service.ReminderService
	reports   *service.ReportService
	owner     *model.User
	clock     service.Clock
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	users := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	owner, err := users.EnsureOwner(ctx, cfg.OwnerName, cfg.OwnerEmail)
	if err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}

	clock := service.SystemClock(cfg.Location)
	settings := service.NewSettingsService(settingsRepo)
	sender := whatsapp.NewClient(cfg.WhatsAppURL, &http.Client{})

	return &app{
		cfg:       cfg,
		db:        db,
		users:     users,
		tasks:     service.NewTaskService(taskRepo, clock),
		settings:  settings,
		reminders: service.NewReminderService(taskRepo, settings, sender, cfg.SendTimeout),
		reports:   service.NewReportService(taskRepo, clock),
		owner:     owner,
		clock:     clock,
	}, nil
}

func (a *app) Close() {
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}
