package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"taskboss/internal/model"
	"taskboss/internal/repository"
	"taskboss/internal/service"
)

type taskRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Deadline    string         `json:"deadline"`
	Status      model.Status   `json:"status"`
	PIC         string         `json:"pic"`
	Priority    model.Priority `json:"priority"`
	Location    string         `json:"location"`
}

// toInput accepts RFC 3339 deadlines and plain YYYY-MM-DD dates, the latter
// interpreted as midnight in loc.
func (r taskRequest) toInput(loc *time.Location) (service.TaskInput, error) {
	input := service.TaskInput{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		PIC:         r.PIC,
		Priority:    r.Priority,
		Location:    r.Location,
	}
	raw := strings.TrimSpace(r.Deadline)
	if raw == "" {
		return input, nil
	}
	deadline, err := ParseDeadline(raw, loc)
	if err != nil {
		return input, err
	}
	input.Deadline = &deadline
	return input, nil
}

// ParseDeadline reads an RFC 3339 timestamp or a YYYY-MM-DD date in loc.
func ParseDeadline(raw string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: deadline %q is neither RFC 3339 nor YYYY-MM-DD", service.ErrValidation, raw)
	}
	return t, nil
}

func (s *Server) handleListTasks(c *gin.Context) {
	filter := repository.TaskFilter{
		Status:   model.Status(c.Query("status")),
		PIC:      c.Query("pic"),
		Location: c.Query("location"),
	}
	tasks, err := s.deps.Tasks.ListTasks(c.Request.Context(), currentUser(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": tasks})
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	input, err := req.toInput(s.deps.Location)
	if err != nil {
		respondError(c, err)
		return
	}
	task, err := s.deps.Tasks.CreateTask(c.Request.Context(), currentUser(c), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": task})
}

func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.deps.Tasks.GetTask(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": task})
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	input, err := req.toInput(s.deps.Location)
	if err != nil {
		respondError(c, err)
		return
	}
	task, err := s.deps.Tasks.UpdateTask(c.Request.Context(), currentUser(c), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": task})
}

func (s *Server) handleSetStatus(c *gin.Context) {
	var req struct {
		Status model.Status `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		badRequest(c, "status is required")
		return
	}
	task, err := s.deps.Tasks.SetStatus(c.Request.Context(), currentUser(c), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": task})
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.deps.Tasks.DeleteTask(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Task deleted"})
}

func (s *Server) handleDeleteAllTasks(c *gin.Context) {
	n, err := s.deps.Tasks.DeleteAllTasks(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": n})
}
