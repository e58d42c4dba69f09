package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"taskboss/internal/model"
	"taskboss/internal/reminder"
	"taskboss/internal/repository"
	"taskboss/internal/service"
)

// TaskService is the subset of service.TaskService used by the handlers.
type TaskService interface {
	CreateTask(ctx context.Context, userID uint, input service.TaskInput) (*model.Task, error)
	UpdateTask(ctx context.Context, userID uint, taskID string, input service.TaskInput) (*model.Task, error)
	SetStatus(ctx context.Context, userID uint, taskID string, status model.Status) (*model.Task, error)
	GetTask(ctx context.Context, userID uint, taskID string) (*model.Task, error)
	ListTasks(ctx context.Context, userID uint, filter repository.TaskFilter) ([]model.Task, error)
	DeleteTask(ctx context.Context, userID uint, taskID string) error
	DeleteAllTasks(ctx context.Context, userID uint) (int64, error)
}

type SettingsService interface {
	Get(ctx context.Context, userID uint) (model.ReminderSettings, error)
	Save(ctx context.Context, userID uint, settings model.ReminderSettings) (model.ReminderSettings, error)
}

type ReminderService interface {
	Plan(ctx context.Context, userID uint, kind reminder.Kind, slot int, now time.Time) (reminder.Plan, error)
	Dispatch(ctx context.Context, userID uint, kind reminder.Kind, slot int, now time.Time) (*service.Dispatch, error)
	SendTest(ctx context.Context, userID uint, kind reminder.Kind) (*reminder.Job, error)
}

type ReportService interface {
	Summary(ctx context.Context, userID uint, pic, location string) (*service.Summary, error)
}

// UserStore looks up the user named by the X-User-ID header.
type UserStore interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

// Deps are the services exposed over HTTP.
type Deps struct {
	Tasks     TaskService
	Settings  SettingsService
	Reminders ReminderService
	Reports   ReportService
	Users     UserStore
	// OwnerID answers requests that carry no X-User-ID header.
	OwnerID uint
	// Location interprets date-only deadlines.
	Location *time.Location
	Clock    service.Clock
}

// Server is the TaskBoss HTTP API.
type Server struct {
	deps   Deps
	router *gin.Engine
}

// NewServer builds the router. origins lists the allowed CORS origins; empty
// or "*" allows all.
func NewServer(deps Deps, origins []string) *Server {
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Clock == nil {
		deps.Clock = service.SystemClock(deps.Location)
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(cors.New(corsConfig(origins)))

	s := &Server{deps: deps, router: router}

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "TaskBoss API is running!"})
	})

	api := router.Group("/api", s.resolveUser())
	{
		api.GET("/tasks", s.handleListTasks)
		api.POST("/tasks", s.handleCreateTask)
		api.DELETE("/tasks", s.handleDeleteAllTasks)
		api.GET("/tasks/:id", s.handleGetTask)
		api.PUT("/tasks/:id", s.handleUpdateTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)
		api.PATCH("/tasks/:id/status", s.handleSetStatus)

		api.GET("/settings", s.handleGetSettings)
		api.PUT("/settings", s.handleSaveSettings)

		api.GET("/reminders/preview", s.handlePreview)
		api.POST("/reminders/send", s.handleSend)
		api.POST("/reminders/test", s.handleTest)

		api.GET("/reports/summary", s.handleSummary)
	}

	return s
}

// Handler exposes the router for http.Server and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", userHeader)
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
