package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskboss/internal/model"
	"taskboss/internal/reminder"
)

func (s *Server) handleGetSettings(c *gin.Context) {
	settings, err := s.deps.Settings.Get(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": settings})
}

func (s *Server) handleSaveSettings(c *gin.Context) {
	var settings model.ReminderSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		badRequest(c, "invalid settings document")
		return
	}
	saved, err := s.deps.Settings.Save(c.Request.Context(), currentUser(c), settings)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": saved})
}

type runRequest struct {
	Kind reminder.Kind `json:"kind"`
	Slot int           `json:"slot"`
}

// normalize defaults the daily slot to the first reminder.
func (r *runRequest) normalize() {
	if r.Kind == reminder.KindDaily && r.Slot == 0 {
		r.Slot = 1
	}
}

func (s *Server) handlePreview(c *gin.Context) {
	req := runRequest{Kind: reminder.Kind(c.DefaultQuery("kind", string(reminder.KindDaily)))}
	if raw := c.Query("slot"); raw != "" {
		slot, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "slot must be a number")
			return
		}
		req.Slot = slot
	}
	req.normalize()

	plan, err := s.deps.Reminders.Plan(c.Request.Context(), currentUser(c), req.Kind, req.Slot, s.deps.Clock())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": plan})
}

func (s *Server) handleSend(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	req.normalize()

	out, err := s.deps.Reminders.Dispatch(c.Request.Context(), currentUser(c), req.Kind, req.Slot, s.deps.Clock())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": out.Failed == 0, "data": out})
}

func (s *Server) handleTest(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	job, err := s.deps.Reminders.SendTest(c.Request.Context(), currentUser(c), req.Kind)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Test message sent", "data": job})
}

func (s *Server) handleSummary(c *gin.Context) {
	sum, err := s.deps.Reports.Summary(c.Request.Context(), currentUser(c), c.Query("pic"), c.Query("location"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": sum})
}
