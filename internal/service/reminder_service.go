package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"taskboss/internal/model"
	"taskboss/internal/reminder"
	"taskboss/internal/repository"
)

// Sender delivers one message to a phone number or group id.
type Sender interface {
	Send(ctx context.Context, apiKey, target, message string) error
}

// SendResult is the outcome of one job.
type SendResult struct {
	Job   reminder.Job `json:"job"`
	Sent  bool         `json:"sent"`
	Error string       `json:"error,omitempty"`
	err   error
}

// Err returns the send error, if any.
func (r SendResult) Err() error {
	return r.err
}

// Dispatch is the outcome of one reminder run.
type Dispatch struct {
	Plan    reminder.Plan `json:"plan"`
	Results []SendResult  `json:"results"`
	Sent    int           `json:"sent"`
	Failed  int           `json:"failed"`
}

// ReminderService composes reminder messages from stored tasks and settings and sends them.
type ReminderService struct {
	taskRepo    *repository.TaskRepository
	settings    *SettingsService
	sender      Sender
	sendTimeout time.Duration
}

func NewReminderService(taskRepo *repository.TaskRepository, settings *SettingsService, sender Sender, sendTimeout time.Duration) *ReminderService {
	return &ReminderService{taskRepo: taskRepo, settings: settings, sender: sender, sendTimeout: sendTimeout}
}

// Plan builds the jobs for one reminder run without sending anything.
// slot is the 1-based daily reminder number and is ignored for advance reminders.
func (s *ReminderService) Plan(ctx context.Context, userID uint, kind reminder.Kind, slot int, now time.Time) (reminder.Plan, error) {
	settings, err := s.settings.Get(ctx, userID)
	if err != nil {
		return reminder.Plan{}, err
	}
	return s.plan(ctx, userID, settings, kind, slot, now)
}

func (s *ReminderService) plan(ctx context.Context, userID uint, settings model.ReminderSettings, kind reminder.Kind, slot int, now time.Time) (reminder.Plan, error) {
	if !kind.Valid() {
		return reminder.Plan{}, fmt.Errorf("%w: unknown reminder kind %q", ErrValidation, kind)
	}
	if kind == reminder.KindDaily && slot < 1 {
		return reminder.Plan{}, fmt.Errorf("%w: reminder number must be at least 1", ErrValidation)
	}

	tasks, err := s.taskRepo.ListByUser(ctx, userID, repository.TaskFilter{})
	if err != nil {
		return reminder.Plan{}, err
	}

	var plan reminder.Plan
	if kind == reminder.KindDaily {
		plan = reminder.PlanDaily(settings, tasks, slot, now)
	} else {
		plan = reminder.PlanAdvance(settings, tasks, now)
	}
	for _, skip := range plan.Skips {
		log.Printf("[warn] reminder skip user=%d kind=%s %s %q: %s", userID, skip.Kind, skip.TargetType, skip.Name, skip.Reason)
	}
	return plan, nil
}

// Dispatch plans one reminder run and sends every job. A failed send does not
// stop the remaining jobs; failures are reported in the result.
func (s *ReminderService) Dispatch(ctx context.Context, userID uint, kind reminder.Kind, slot int, now time.Time) (*Dispatch, error) {
	settings, err := s.settings.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := reminder.CheckTransport(settings); err != nil {
		return nil, err
	}

	plan, err := s.plan(ctx, userID, settings, kind, slot, now)
	if err != nil {
		return nil, err
	}
	if err := reminder.CheckResolvable(plan); err != nil {
		return nil, err
	}

	out := &Dispatch{Plan: plan, Results: make([]SendResult, 0, len(plan.Jobs))}
	for _, job := range plan.Jobs {
		res := SendResult{Job: job}
		if err := s.send(ctx, settings.WhatsApp.APIKey, job.Target, job.Message); err != nil {
			res.err = err
			res.Error = err.Error()
			out.Failed++
			log.Printf("[warn] reminder send failed user=%d kind=%s recipient=%q: %v", userID, kind, job.Recipient, err)
		} else {
			res.Sent = true
			out.Sent++
			log.Printf("[info] reminder sent user=%d kind=%s %s=%q tasks=%d", userID, kind, job.TargetType, job.Recipient, job.TaskCount)
		}
		out.Results = append(out.Results, res)
	}
	return out, nil
}

// SendTest sends a sample-rendered message to the default number, or to the
// first selected daily contact when no default number is configured.
func (s *ReminderService) SendTest(ctx context.Context, userID uint, kind reminder.Kind) (*reminder.Job, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown reminder kind %q", ErrValidation, kind)
	}
	settings, err := s.settings.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := reminder.CheckTransport(settings); err != nil {
		return nil, err
	}

	job := reminder.Job{Kind: kind, TargetType: reminder.TargetContact, Recipient: settings.NameInReminder, Target: settings.WhatsApp.PhoneNumber}
	if job.Target == "" {
		job.Recipient, job.Target = firstSelectedContact(settings)
	}
	if job.Target == "" {
		return nil, &reminder.ConfigurationError{Reason: "no phone number or selected contact to send a test message to"}
	}
	job.Message = reminder.SampleMessage(settings, kind)

	if err := s.send(ctx, settings.WhatsApp.APIKey, job.Target, job.Message); err != nil {
		return nil, err
	}
	log.Printf("[info] test reminder sent user=%d kind=%s", userID, kind)
	return &job, nil
}

func (s *ReminderService) send(ctx context.Context, apiKey, target, message string) error {
	sendCtx := ctx
	if s.sendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, s.sendTimeout)
		defer cancel()
	}
	return s.sender.Send(sendCtx, apiKey, target, message)
}

func firstSelectedContact(s model.ReminderSettings) (name, phone string) {
	for _, selected := range s.DailyTargets.SelectedContacts {
		for _, c := range s.Contacts {
			if c.Name == selected && c.PhoneNumber != "" {
				return c.Name, c.PhoneNumber
			}
		}
	}
	return "", ""
}
