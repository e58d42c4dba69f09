package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taskboss/internal/model"
	"taskboss/internal/reminder"
	"taskboss/internal/repository"
)

// TaskInput represents data required to create or replace a task.
type TaskInput struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Deadline    *time.Time     `json:"deadline"`
	Status      model.Status   `json:"status"`
	PIC         string         `json:"pic"`
	Priority    model.Priority `json:"priority"`
	Location    string         `json:"location"`
}

// TaskService wraps task-related business logic.
type TaskService struct {
	taskRepo *repository.TaskRepository
	clock    Clock
}

func NewTaskService(taskRepo *repository.TaskRepository, clock Clock) *TaskService {
	return &TaskService{taskRepo: taskRepo, clock: clock}
}

func (s *TaskService) CreateTask(ctx context.Context, userID uint, input TaskInput) (*model.Task, error) {
	task := model.Task{UserID: userID}
	if err := applyInput(&task, input); err != nil {
		return nil, err
	}
	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, err
	}
	s.decorate(&task)
	return &task, nil
}

// UpdateTask replaces every user-editable field of the task.
func (s *TaskService) UpdateTask(ctx context.Context, userID uint, taskID string, input TaskInput) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, userID, taskID)
	if err != nil {
		return nil, notFound(err)
	}
	if err := applyInput(task, input); err != nil {
		return nil, err
	}
	if err := s.taskRepo.Save(ctx, task); err != nil {
		return nil, err
	}
	s.decorate(task)
	return task, nil
}

func (s *TaskService) SetStatus(ctx context.Context, userID uint, taskID string, status model.Status) (*model.Task, error) {
	if !status.Settable() {
		return nil, fmt.Errorf("%w: status %q cannot be set", ErrValidation, status)
	}
	task, err := s.taskRepo.FindByID(ctx, userID, taskID)
	if err != nil {
		return nil, notFound(err)
	}
	task.Status = status
	if err := s.taskRepo.Save(ctx, task); err != nil {
		return nil, err
	}
	s.decorate(task)
	return task, nil
}

func (s *TaskService) GetTask(ctx context.Context, userID uint, taskID string) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, userID, taskID)
	if err != nil {
		return nil, notFound(err)
	}
	s.decorate(task)
	return task, nil
}

// ListTasks returns the user's tasks ordered by deadline. A filter on
// overdue matches the derived status rather than the stored one.
func (s *TaskService) ListTasks(ctx context.Context, userID uint, filter repository.TaskFilter) ([]model.Task, error) {
	wantOverdue := filter.Status == model.StatusOverdue
	if wantOverdue {
		filter.Status = ""
	}
	tasks, err := s.taskRepo.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	out := tasks[:0]
	for i := range tasks {
		s.decorate(&tasks[i])
		if wantOverdue && tasks[i].DisplayStatus != model.StatusOverdue {
			continue
		}
		out = append(out, tasks[i])
	}
	return out, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, userID uint, taskID string) error {
	return notFound(s.taskRepo.Delete(ctx, userID, taskID))
}

func (s *TaskService) DeleteAllTasks(ctx context.Context, userID uint) (int64, error) {
	return s.taskRepo.DeleteAll(ctx, userID)
}

func (s *TaskService) decorate(task *model.Task) {
	task.DisplayStatus = reminder.DisplayStatus(*task, s.clock())
}

func applyInput(task *model.Task, input TaskInput) error {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	pic := strings.TrimSpace(input.PIC)
	if pic == "" {
		return fmt.Errorf("%w: pic is required", ErrValidation)
	}
	if input.Deadline == nil || input.Deadline.IsZero() {
		return fmt.Errorf("%w: deadline is required", ErrValidation)
	}

	status := input.Status
	if status == "" {
		status = model.StatusTodo
	}
	if !status.Settable() {
		return fmt.Errorf("%w: status %q cannot be set", ErrValidation, status)
	}

	priority := input.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrValidation, priority)
	}

	task.Title = title
	task.Description = strings.TrimSpace(input.Description)
	task.Deadline = *input.Deadline
	task.Status = status
	task.PIC = pic
	task.Priority = priority
	task.Location = strings.TrimSpace(input.Location)
	return nil
}
