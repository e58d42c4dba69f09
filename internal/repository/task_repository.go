package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"taskboss/internal/model"
)

// TaskFilter narrows ListByUser. Empty fields match everything.
type TaskFilter struct {
	Status   model.Status
	PIC      string
	Location string
}

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Save writes every field of an existing task.
func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

// ListByUser returns tasks ordered by deadline, newest first among equal deadlines.
func (r *TaskRepository) ListByUser(ctx context.Context, userID uint, filter TaskFilter) ([]model.Task, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.PIC != "" {
		q = q.Where("pic = ?", filter.PIC)
	}
	if filter.Location != "" {
		q = q.Where("location = ?", filter.Location)
	}

	var tasks []model.Task
	if err := q.Order("deadline ASC, created_at DESC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, userID uint, taskID string) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// Delete removes a task for the given user. It reports gorm.ErrRecordNotFound when nothing matched.
func (r *TaskRepository) Delete(ctx context.Context, userID uint, taskID string) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).Delete(&model.Task{})
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteAll removes every task of the user and returns how many were deleted.
func (r *TaskRepository) DeleteAll(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Task{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete tasks: %w", res.Error)
	}
	return res.RowsAffected, nil
}
