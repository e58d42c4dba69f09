package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"taskboss/internal/reminder"
	"taskboss/internal/service"
	"taskboss/internal/whatsapp"
)

const (
	userHeader = "X-User-ID"
	userKey    = "userID"
)

// resolveUser stores the acting user id in the context. Without a header the
// request acts as the owner. A header naming an unknown user is a 404.
func (s *Server) resolveUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(userHeader))
		if raw == "" {
			c.Set(userKey, s.deps.OwnerID)
			c.Next()
			return
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid " + userHeader + " header"})
			return
		}
		if s.deps.Users != nil {
			if _, err := s.deps.Users.FindByID(c.Request.Context(), uint(id)); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"success": false, "error": "user " + raw + " not found"})
					return
				}
				log.Printf("resolve user %s: %v", raw, err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "resolve user"})
				return
			}
		}
		c.Set(userKey, uint(id))
		c.Next()
	}
}

func currentUser(c *gin.Context) uint {
	return c.GetUint(userKey)
}

func respondError(c *gin.Context, err error) {
	var cfgErr *reminder.ConfigurationError
	var transportErr *whatsapp.TransportError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.As(err, &cfgErr):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &transportErr):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}
