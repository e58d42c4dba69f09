package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"taskboss/internal/model"
	"taskboss/internal/reminder"
	"taskboss/internal/repository"
)

const jobTimeout = 5 * time.Minute

// ReminderScheduler keeps the cron entries of every user in line with their settings.
type ReminderScheduler struct {
	scheduler *SchedulerService
	reminders *ReminderService
	settings  *SettingsService
	users     *repository.UserRepository
	clock     Clock
}

func NewReminderScheduler(scheduler *SchedulerService, reminders *ReminderService, settings *SettingsService, users *repository.UserRepository, clock Clock) *ReminderScheduler {
	return &ReminderScheduler{scheduler: scheduler, reminders: reminders, settings: settings, users: users, clock: clock}
}

// Reschedule replaces the user's jobs: one per enabled daily slot and one for
// the advance reminder.
func (r *ReminderScheduler) Reschedule(userID uint, settings model.ReminderSettings) error {
	var jobs []DailyJob
	if settings.WhatsApp.Enabled {
		if settings.DailyReminders.Enabled {
			for i, at := range reminder.EnabledSlots(settings.DailyReminders) {
				slot := i + 1
				jobs = append(jobs, DailyJob{Time: at, Run: func() { r.run(userID, reminder.KindDaily, slot) }})
			}
		}
		if settings.AdvanceReminders.Enabled {
			jobs = append(jobs, DailyJob{Time: settings.AdvanceReminders.Time, Run: func() { r.run(userID, reminder.KindAdvance, 0) }})
		}
	}

	if err := r.scheduler.ReplaceGroup(groupKey(userID), jobs); err != nil {
		return fmt.Errorf("schedule reminders: %w", err)
	}
	log.Printf("[info] reminders scheduled user=%d jobs=%d", userID, len(jobs))
	return nil
}

// RescheduleAll registers the jobs of every known user.
func (r *ReminderScheduler) RescheduleAll(ctx context.Context) error {
	users, err := r.users.ListAll(ctx)
	if err != nil {
		return err
	}
	for _, user := range users {
		settings, err := r.settings.Get(ctx, user.ID)
		if err != nil {
			log.Printf("[warn] load settings user=%d: %v", user.ID, err)
			continue
		}
		if err := r.Reschedule(user.ID, settings); err != nil {
			log.Printf("[warn] reschedule user=%d: %v", user.ID, err)
		}
	}
	return nil
}

// NextRun returns when the user's next reminder fires, or zero time.
func (r *ReminderScheduler) NextRun(userID uint) time.Time {
	return r.scheduler.Next(groupKey(userID))
}

func (r *ReminderScheduler) run(userID uint, kind reminder.Kind, slot int) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	out, err := r.reminders.Dispatch(ctx, userID, kind, slot, r.clock())
	if err != nil {
		var cfgErr *reminder.ConfigurationError
		if errors.As(err, &cfgErr) {
			log.Printf("[warn] reminder not sent user=%d kind=%s: %v", userID, kind, err)
			return
		}
		log.Printf("reminder user=%d kind=%s: %v", userID, kind, err)
		return
	}
	log.Printf("[info] reminder run user=%d kind=%s slot=%d sent=%d failed=%d skipped=%d", userID, kind, slot, out.Sent, out.Failed, len(out.Plan.Skips))
}

func groupKey(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}
