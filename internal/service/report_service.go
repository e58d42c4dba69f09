package service

import (
	"context"
	"time"

	"taskboss/internal/model"
	"taskboss/internal/reminder"
	"taskboss/internal/repository"
)

// Summary backs the dashboard and report screens.
type Summary struct {
	Total      int                    `json:"total"`
	Completed  int                    `json:"completed"`
	InProgress int                    `json:"inProgress"`
	Overdue    int                    `json:"overdue"`
	ByStatus   map[model.Status]int   `json:"byStatus"`
	ByLocation map[string]int         `json:"byLocation"`
	ByPriority map[model.Priority]int `json:"byPriority"`
	ByPIC      map[string]int         `json:"byPic"`
	Today      []model.Task           `json:"today"`
	Upcoming   []model.Task           `json:"upcoming"`
	Late       []model.Task           `json:"late"`
}

// ReportService computes task statistics.
type ReportService struct {
	taskRepo *repository.TaskRepository
	clock    Clock
}

func NewReportService(taskRepo *repository.TaskRepository, clock Clock) *ReportService {
	return &ReportService{taskRepo: taskRepo, clock: clock}
}

// Summary aggregates the user's tasks, optionally narrowed by PIC and location.
func (s *ReportService) Summary(ctx context.Context, userID uint, pic, location string) (*Summary, error) {
	tasks, err := s.taskRepo.ListByUser(ctx, userID, repository.TaskFilter{PIC: pic, Location: location})
	if err != nil {
		return nil, err
	}
	return Summarize(tasks, s.clock()), nil
}

// Summarize counts tasks by derived status. Today lists every task due today;
// Upcoming and Late only hold tasks that are still open.
func Summarize(tasks []model.Task, now time.Time) *Summary {
	sum := &Summary{
		ByStatus:   make(map[model.Status]int),
		ByLocation: make(map[string]int),
		ByPriority: make(map[model.Priority]int),
		ByPIC:      make(map[string]int),
		Today:      []model.Task{},
		Upcoming:   []model.Task{},
		Late:       []model.Task{},
	}
	for _, task := range tasks {
		task.DisplayStatus = reminder.DisplayStatus(task, now)

		sum.Total++
		sum.ByStatus[task.DisplayStatus]++
		sum.ByLocation[task.Location]++
		sum.ByPriority[task.Priority]++
		sum.ByPIC[task.PIC]++

		switch task.DisplayStatus {
		case model.StatusCompleted:
			sum.Completed++
		case model.StatusInProgress:
			sum.InProgress++
		case model.StatusOverdue:
			sum.Overdue++
			sum.Late = append(sum.Late, task)
		}

		days := reminder.DaysUntil(now, task.Deadline)
		switch {
		case days == 0:
			sum.Today = append(sum.Today, task)
		case days > 0 && !task.Status.Closed():
			sum.Upcoming = append(sum.Upcoming, task)
		}
	}
	return sum
}
